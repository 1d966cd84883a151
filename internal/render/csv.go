package render

import (
	"bytes"
	"context"
	"encoding/csv"
	"strconv"
)

// CSVRenderer is the trivial flat serialization of the item table.
type CSVRenderer struct{}

// NewCSVRenderer creates the CSV renderer.
func NewCSVRenderer() *CSVRenderer {
	return &CSVRenderer{}
}

// Render writes the six-column table.
func (r *CSVRenderer) Render(_ context.Context, data ExportData) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(simpleHeaders); err != nil {
		return nil, err
	}
	for i, item := range data.Items {
		record := []string{
			strconv.Itoa(i + 1),
			orNA(item.SKU),
			item.Name,
			strconv.Itoa(item.Quantity),
			strconv.FormatFloat(item.UnitPrice, 'f', -1, 64),
			strconv.FormatFloat(item.Total, 'f', -1, 64),
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
