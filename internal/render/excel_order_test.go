package render

import (
	"context"
	"testing"

	catalogservice "configurator_backend/internal/catalog/service"
	"configurator_backend/platform/logger"

	"github.com/tealeg/xlsx"
)

func renderOrderSheet(t *testing.T, data ExportData) *xlsx.Sheet {
	t.Helper()

	r := NewExcelOrderRenderer(logger.New("development"))
	buffer, err := r.Render(context.Background(), data)
	if err != nil {
		t.Fatalf("unexpected render error: %v", err)
	}

	file, err := xlsx.OpenBinary(buffer)
	if err != nil {
		t.Fatalf("workbook does not open: %v", err)
	}
	if len(file.Sheets) != 1 {
		t.Fatalf("expected one sheet, got %d", len(file.Sheets))
	}
	return file.Sheets[0]
}

func orderData(items ...NormalizedItem) ExportData {
	return ExportData{
		Type:           TypeOrder,
		DocumentNumber: "Order-1700000000000",
		Client:         Client{Name: "Иван Иванов", Phone: "+7 (999) 123-45-67"},
		Items:          items,
		TotalAmount:    30000,
	}
}

func matched(props map[string]interface{}) catalogservice.MatchedProduct {
	return catalogservice.MatchedProduct{ID: "p1", SKU: "SKU-1", Properties: props}
}

func TestOrderSheetLayout(t *testing.T) {
	sheet := renderOrderSheet(t, orderData(NormalizedItem{
		Name: "Дверь DomeoDoors Классика 1", Type: "door",
		Quantity: 2, UnitPrice: 15000, Total: 30000,
		Matches: []catalogservice.MatchedProduct{
			matched(map[string]interface{}{"Поставщик": "Фабрика А"}),
		},
	}))

	if got := sheet.Cell(0, 0).Value; got != "ЗАКАЗ" {
		t.Fatalf("expected title, got %q", got)
	}
	if got := sheet.Cell(2, 1).Value; got != "Иван Иванов" {
		t.Fatalf("expected client name in row 3, got %q", got)
	}
	if got := sheet.Cell(orderHeaderRow, 0).Value; got != "№" {
		t.Fatalf("expected header row at row 10, got %q", got)
	}
	if got := sheet.Cell(orderHeaderRow, 5).Value; got != "Цена опт" {
		t.Fatalf("expected first catalog header, got %q", got)
	}
	if got := sheet.Cell(orderFirstDataRow, 1).Value; got != "Дверь DomeoDoors Классика 1" {
		t.Fatalf("expected item name, got %q", got)
	}
	if got := sheet.Cell(orderFirstDataRow, 7).Value; got != "Фабрика А" {
		t.Fatalf("expected supplier from catalog row, got %q", got)
	}
}

func TestOrderSheetMergesCartColumnsAcrossGroup(t *testing.T) {
	sheet := renderOrderSheet(t, orderData(NormalizedItem{
		Name: "Дверь", Type: "door", Quantity: 1, UnitPrice: 100, Total: 100,
		Matches: []catalogservice.MatchedProduct{
			matched(map[string]interface{}{"SKU внутреннее": "A"}),
			matched(map[string]interface{}{"SKU внутреннее": "B"}),
			matched(map[string]interface{}{"SKU внутреннее": "C"}),
		},
	}))

	for col := 0; col < len(orderCartHeaders); col++ {
		if got := sheet.Cell(orderFirstDataRow, col).VMerge; got != 2 {
			t.Fatalf("cart column %d VMerge = %d, want 2", col, got)
		}
	}
	// Catalog columns differ per row, no vertical merge.
	skuCol := len(orderCartHeaders) + 9
	if got := sheet.Cell(orderFirstDataRow+1, skuCol).Value; got != "B" {
		t.Fatalf("expected second catalog row value, got %q", got)
	}
	if got := sheet.Cell(orderFirstDataRow, skuCol).VMerge; got != 0 {
		t.Fatalf("catalog column must not merge, VMerge = %d", got)
	}
}

func TestOrderSheetUnmatchedItemSingleBlankRow(t *testing.T) {
	sheet := renderOrderSheet(t, orderData(NormalizedItem{
		Name: "Дверь без совпадений", Type: "door",
		Quantity: 1, UnitPrice: 100, Total: 100,
	}))

	if got := sheet.Cell(orderFirstDataRow, 1).Value; got != "Дверь без совпадений" {
		t.Fatalf("expected cart name, got %q", got)
	}
	for i := range orderCatalogFields {
		col := len(orderCartHeaders) + i
		if got := sheet.Cell(orderFirstDataRow, col).Value; got != "" {
			t.Fatalf("catalog column %d should be blank, got %q", col, got)
		}
	}
	if got := sheet.Cell(orderFirstDataRow, 0).VMerge; got != 0 {
		t.Fatalf("single row must not merge, VMerge = %d", got)
	}
}

func TestOrderSheetHandleColumnPolicy(t *testing.T) {
	sheet := renderOrderSheet(t, orderData(NormalizedItem{
		Name: "Ручка Fiora", Type: "handle",
		Quantity: 1, UnitPrice: 2500, Total: 2500,
		Matches: []catalogservice.MatchedProduct{
			matched(map[string]interface{}{
				"Цена розница":      float64(3200),
				"Фабрика_артикул":   "F-778",
				"Материал/Покрытие": "Металл",
				"Ширина/мм":         float64(50),
			}),
		},
	}))

	base := len(orderCartHeaders)
	// Material and the three size columns stay blank for handles.
	for _, offset := range []int{4, 5, 6, 7} {
		if got := sheet.Cell(orderFirstDataRow, base+offset).Value; got != "" {
			t.Fatalf("handle column offset %d should be blank, got %q", offset, got)
		}
	}
	// RRC price comes from the handle retail price alias.
	if got := sheet.Cell(orderFirstDataRow, base+1).Value; got != "3200" {
		t.Fatalf("expected handle RRC price 3200, got %q", got)
	}
	// Supplier article comes from the factory article alias.
	if got := sheet.Cell(orderFirstDataRow, base+10).Value; got != "F-778" {
		t.Fatalf("expected factory article, got %q", got)
	}
}

func TestOrderSheetDoorSizeColumns(t *testing.T) {
	sheet := renderOrderSheet(t, orderData(NormalizedItem{
		Name: "Дверь", Type: "door", Quantity: 1, UnitPrice: 100, Total: 100,
		Matches: []catalogservice.MatchedProduct{
			matched(map[string]interface{}{
				"Ширина/мм":  float64(800),
				"Высота/мм":  float64(2000),
				"Толщина/мм": float64(38),
				"Цена опт":   "12 000", // not parseable, must yield blank
			}),
		},
	}))

	base := len(orderCartHeaders)
	if got := sheet.Cell(orderFirstDataRow, base+5).Value; got != "800" {
		t.Fatalf("Размер 1 = %q, want 800", got)
	}
	if got := sheet.Cell(orderFirstDataRow, base+6).Value; got != "2000" {
		t.Fatalf("Размер 2 = %q, want 2000", got)
	}
	if got := sheet.Cell(orderFirstDataRow, base+7).Value; got != "38" {
		t.Fatalf("Размер 3 = %q, want 38", got)
	}
	if got := sheet.Cell(orderFirstDataRow, base).Value; got != "" {
		t.Fatalf("unparseable price must render blank, got %q", got)
	}
}

func TestOrderSheetTotalRow(t *testing.T) {
	sheet := renderOrderSheet(t, orderData(NormalizedItem{
		Name: "Дверь", Type: "door", Quantity: 1, UnitPrice: 30000, Total: 30000,
	}))

	totalRowIndex := orderFirstDataRow + 2
	if got := sheet.Cell(totalRowIndex, 3).Value; got != "Итого:" {
		t.Fatalf("expected total label, got %q", got)
	}
	if got := sheet.Cell(totalRowIndex, 4).Value; got != "30000" {
		t.Fatalf("expected total amount, got %q", got)
	}
}
