package render

import (
	"bytes"
	"context"
	"time"

	"configurator_backend/platform/apperr"
	"configurator_backend/platform/logger"

	"github.com/tealeg/xlsx"
)

var simpleHeaders = []string{"№", "Артикул", "Наименование", "Количество", "Цена", "Сумма"}

// ExcelSimpleRenderer produces the flat single-table workbook used for
// quotes and invoices.
type ExcelSimpleRenderer struct {
	log *logger.Logger
}

// NewExcelSimpleRenderer creates the flat-format Excel renderer.
func NewExcelSimpleRenderer(log *logger.Logger) *ExcelSimpleRenderer {
	return &ExcelSimpleRenderer{log: log}
}

// Render builds the workbook.
func (r *ExcelSimpleRenderer) Render(_ context.Context, data ExportData) ([]byte, error) {
	started := time.Now()

	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Документ")
	if err != nil {
		return nil, apperr.Rendering("failed to create worksheet: "+err.Error(), err)
	}

	for col, header := range simpleHeaders {
		cell := sheet.Cell(0, col)
		cell.SetString(header)
		style := xlsx.NewStyle()
		style.Font.Bold = true
		style.ApplyFont = true
		cell.SetStyle(style)
	}

	for i, item := range data.Items {
		row := i + 1
		sheet.Cell(row, 0).SetInt(i + 1)
		sheet.Cell(row, 1).SetString(orNA(item.SKU))
		sheet.Cell(row, 2).SetString(item.Name)
		sheet.Cell(row, 3).SetInt(item.Quantity)
		sheet.Cell(row, 4).SetFloat(item.UnitPrice)
		sheet.Cell(row, 5).SetFloat(item.Total)
	}

	_ = sheet.SetColWidth(0, len(simpleHeaders)-1, 15)

	var buf bytes.Buffer
	if err := file.Write(&buf); err != nil {
		return nil, apperr.Rendering("failed to write workbook: "+err.Error(), err)
	}

	r.log.RenderTiming(FormatExcel, time.Since(started).Milliseconds())
	return buf.Bytes(), nil
}
