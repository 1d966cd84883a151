// Package render produces the downloadable document artifacts (PDF, Excel,
// CSV) from a normalized export payload.
package render

import (
	"context"
	"fmt"
	"strings"

	catalogservice "configurator_backend/internal/catalog/service"
)

// Document types.
const (
	TypeQuote   = "quote"
	TypeInvoice = "invoice"
	TypeOrder   = "order"
)

// Output formats.
const (
	FormatPDF   = "pdf"
	FormatExcel = "excel"
	FormatCSV   = "csv"
)

// Client is the client block rendered into document headers.
type Client struct {
	Name    string
	Phone   string
	Address string
}

// NormalizedItem is one cart line prepared for rendering: a fully formed
// display name plus the catalog rows the product matcher resolved for it.
type NormalizedItem struct {
	Name      string
	SKU       string
	Type      string
	Quantity  int
	UnitPrice float64
	Total     float64
	Matches   []catalogservice.MatchedProduct
}

// ExportData is the payload every renderer consumes.
type ExportData struct {
	Type           string
	DocumentNumber string
	Client         Client
	Items          []NormalizedItem
	TotalAmount    float64
}

// Renderer turns an export payload into a file buffer.
type Renderer interface {
	Render(ctx context.Context, data ExportData) ([]byte, error)
}

// Registry dispatches on (document type, format). Both PDF and Excel
// split per type: orders carry the wide catalog layout and get the full
// render budget, quotes and invoices are simpler documents on a shorter
// budget.
type Registry struct {
	pdfOrder    Renderer
	pdfSimple   Renderer
	excelOrder  Renderer
	excelSimple Renderer
	csv         Renderer
}

// NewRegistry assembles the renderer dispatch table.
func NewRegistry(pdfOrder, pdfSimple, excelOrder, excelSimple, csv Renderer) *Registry {
	return &Registry{
		pdfOrder:    pdfOrder,
		pdfSimple:   pdfSimple,
		excelOrder:  excelOrder,
		excelSimple: excelSimple,
		csv:         csv,
	}
}

// For selects the renderer for a document type and format.
func (r *Registry) For(docType, format string) (Renderer, error) {
	switch format {
	case FormatPDF:
		if docType == TypeOrder {
			return r.pdfOrder, nil
		}
		return r.pdfSimple, nil
	case FormatExcel:
		if docType == TypeOrder {
			return r.excelOrder, nil
		}
		return r.excelSimple, nil
	case FormatCSV:
		return r.csv, nil
	default:
		return nil, fmt.Errorf("unsupported export format %q", format)
	}
}

// MIMEType returns the content type for a format.
func MIMEType(format string) string {
	switch format {
	case FormatPDF:
		return "application/pdf"
	case FormatExcel:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case FormatCSV:
		return "text/csv"
	default:
		return "application/octet-stream"
	}
}

// FileExtension returns the filename extension for a format.
func FileExtension(format string) string {
	switch format {
	case FormatExcel:
		return "xlsx"
	default:
		return format
	}
}

// Title returns the localized document heading for a type.
func Title(docType string) string {
	switch docType {
	case TypeQuote:
		return "КОММЕРЧЕСКОЕ ПРЕДЛОЖЕНИЕ"
	case TypeInvoice:
		return "СЧЕТ"
	default:
		return "ЗАКАЗ"
	}
}

// formatAmount renders a number the way ru-RU locale output does: space
// thousands separators and a comma decimal mark, fractional part only when
// present.
func formatAmount(v float64) string {
	negative := v < 0
	if negative {
		v = -v
	}

	whole := int64(v)
	frac := v - float64(whole)

	digits := fmt.Sprintf("%d", whole)
	var groups []string
	for len(digits) > 3 {
		groups = append([]string{digits[len(digits)-3:]}, groups...)
		digits = digits[:len(digits)-3]
	}
	groups = append([]string{digits}, groups...)
	out := strings.Join(groups, " ")

	if frac > 0 {
		fracText := strings.TrimRight(fmt.Sprintf("%.2f", frac)[2:], "0")
		if fracText != "" {
			out += "," + fracText
		}
	}
	if negative {
		out = "-" + out
	}
	return out
}

func orNA(value string) string {
	if strings.TrimSpace(value) == "" {
		return "N/A"
	}
	return value
}
