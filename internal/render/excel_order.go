package render

import (
	"bytes"
	"context"
	"strconv"
	"time"

	catalogservice "configurator_backend/internal/catalog/service"
	"configurator_backend/platform/apperr"
	"configurator_backend/platform/logger"

	"github.com/tealeg/xlsx"
)

// Fill colors communicating provenance: cart-sourced cells versus
// catalog-sourced cells.
const (
	fillCartHeader    = "FFE6F3FF" // light blue
	fillCatalogHeader = "FFF5F5DC" // beige
	fillCartRow       = "FFFFFFFF" // white
	fillCatalogRow    = "FFF0F0F0" // light grey
)

// orderCartHeaders are the cart-sourced columns of the order sheet.
var orderCartHeaders = []string{"№", "Наименование", "Количество", "Цена", "Сумма"}

// orderCatalogFields are the catalog-sourced columns, in sheet order.
var orderCatalogFields = []string{
	"Цена опт",
	"Цена РРЦ",
	"Поставщик",
	"Наименование у поставщика",
	"Материал/Покрытие",
	"Размер 1",
	"Размер 2",
	"Размер 3",
	"Цвет/Отделка",
	"SKU внутреннее",
	"Артикул поставщика",
}

const (
	orderHeaderRow    = 9 // 0-based; row 10 on the sheet
	orderFirstDataRow = 10
)

// ExcelOrderRenderer produces the wide supplier-order workbook: one row
// group per cart item, one row per matched catalog product, with the
// cart columns vertically merged across the group.
type ExcelOrderRenderer struct {
	log *logger.Logger
}

// NewExcelOrderRenderer creates the order-format Excel renderer.
func NewExcelOrderRenderer(log *logger.Logger) *ExcelOrderRenderer {
	return &ExcelOrderRenderer{log: log}
}

// Render builds the workbook.
func (r *ExcelOrderRenderer) Render(_ context.Context, data ExportData) ([]byte, error) {
	started := time.Now()

	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Заказ")
	if err != nil {
		return nil, apperr.Rendering("failed to create worksheet: "+err.Error(), err)
	}

	columnCount := len(orderCartHeaders) + len(orderCatalogFields)

	writeOrderTitle(sheet, data, columnCount)
	writeOrderClientBlock(sheet, data)
	writeOrderHeaderRow(sheet)

	rowIndex := orderFirstDataRow
	for i, item := range data.Items {
		rowIndex = r.writeItemGroup(sheet, rowIndex, i+1, item, columnCount)
	}

	// Border under the last data row, then the bold total.
	if rowIndex > orderFirstDataRow {
		applyBottomBorder(sheet, rowIndex-1, columnCount)
	}

	totalLabel := sheet.Cell(rowIndex+1, 3)
	totalLabel.SetString("Итого:")
	labelStyle := xlsx.NewStyle()
	labelStyle.Font.Bold = true
	labelStyle.ApplyFont = true
	labelStyle.Alignment = xlsx.Alignment{Horizontal: "right"}
	labelStyle.ApplyAlignment = true
	totalLabel.SetStyle(labelStyle)

	totalCell := sheet.Cell(rowIndex+1, 4)
	totalCell.SetFloatWithFormat(data.TotalAmount, "#,##0")
	totalStyle := xlsx.NewStyle()
	totalStyle.Font.Bold = true
	totalStyle.ApplyFont = true
	totalCell.SetStyle(totalStyle)

	_ = sheet.SetColWidth(0, 5, 15)
	_ = sheet.SetColWidth(6, columnCount-1, 20)

	var buf bytes.Buffer
	if err := file.Write(&buf); err != nil {
		return nil, apperr.Rendering("failed to write workbook: "+err.Error(), err)
	}

	r.log.RenderTiming(FormatExcel, time.Since(started).Milliseconds())
	return buf.Bytes(), nil
}

func writeOrderTitle(sheet *xlsx.Sheet, data ExportData, columnCount int) {
	title := sheet.Cell(0, 0)
	title.SetString(Title(data.Type))
	title.HMerge = columnCount - 1

	style := xlsx.NewStyle()
	style.Font.Size = 16
	style.Font.Bold = true
	style.ApplyFont = true
	style.Alignment = xlsx.Alignment{Horizontal: "center"}
	style.ApplyAlignment = true
	title.SetStyle(style)
}

func writeOrderClientBlock(sheet *xlsx.Sheet, data ExportData) {
	sheet.Cell(2, 0).SetString("Клиент:")
	sheet.Cell(2, 1).SetString(orNA(data.Client.Name))
	sheet.Cell(3, 0).SetString("Телефон:")
	sheet.Cell(3, 1).SetString(orNA(data.Client.Phone))
	sheet.Cell(4, 0).SetString("Адрес:")
	sheet.Cell(4, 1).SetString(orNA(data.Client.Address))
	sheet.Cell(6, 0).SetString("Номер документа:")
	sheet.Cell(6, 1).SetString(data.DocumentNumber)
	sheet.Cell(7, 0).SetString("Дата:")
	sheet.Cell(7, 1).SetString(time.Now().Format("02.01.2006"))
}

func writeOrderHeaderRow(sheet *xlsx.Sheet) {
	headers := append(append([]string{}, orderCartHeaders...), orderCatalogFields...)
	for col, header := range headers {
		cell := sheet.Cell(orderHeaderRow, col)
		cell.SetString(header)

		fill := fillCartHeader
		if col >= len(orderCartHeaders) {
			fill = fillCatalogHeader
		}
		style := xlsx.NewStyle()
		style.Font.Bold = true
		style.ApplyFont = true
		style.Fill = *xlsx.NewFill("solid", fill, fill)
		style.ApplyFill = true
		style.Border = *xlsx.NewBorder("", "", "", "thin")
		style.ApplyBorder = true
		cell.SetStyle(style)
	}
}

// writeItemGroup emits the row group for one cart item and returns the next
// free row index. A matched item gets one row per catalog product (grey),
// an unmatched item exactly one row with blank catalog columns (white).
func (r *ExcelOrderRenderer) writeItemGroup(sheet *xlsx.Sheet, rowIndex, rowNumber int, item NormalizedItem, columnCount int) int {
	groupSize := len(item.Matches)
	if groupSize == 0 {
		groupSize = 1
	}

	sheet.Cell(rowIndex, 0).SetInt(rowNumber)
	sheet.Cell(rowIndex, 1).SetString(item.Name)
	sheet.Cell(rowIndex, 2).SetInt(item.Quantity)
	sheet.Cell(rowIndex, 3).SetFloatWithFormat(item.UnitPrice, "#,##0")
	sheet.Cell(rowIndex, 4).SetFloatWithFormat(item.Total, "#,##0")

	// Cart columns appear once per cart item: merge them down the group.
	if groupSize > 1 {
		for col := 0; col < len(orderCartHeaders); col++ {
			sheet.Cell(rowIndex, col).VMerge = groupSize - 1
		}
	}

	rowFill := fillCartRow
	if len(item.Matches) > 0 {
		rowFill = fillCatalogRow
	}

	for offset := 0; offset < groupSize; offset++ {
		if offset < len(item.Matches) {
			writeCatalogColumns(sheet, rowIndex+offset, item.Type, item.Matches[offset])
		}
		applyRowStyle(sheet, rowIndex+offset, columnCount, rowFill)
	}

	applyBottomBorder(sheet, rowIndex+groupSize-1, columnCount)
	return rowIndex + groupSize
}

func writeCatalogColumns(sheet *xlsx.Sheet, rowIndex int, itemType string, product catalogservice.MatchedProduct) {
	for i, field := range orderCatalogFields {
		col := len(orderCartHeaders) + i
		value := catalogFieldValue(itemType, field, product.Properties)

		if field == "Цена опт" || field == "Цена РРЦ" {
			if parsed, err := strconv.ParseFloat(value, 64); err == nil {
				sheet.Cell(rowIndex, col).SetFloatWithFormat(parsed, "#,##0")
			} else {
				sheet.Cell(rowIndex, col).SetString("")
			}
			continue
		}
		sheet.Cell(rowIndex, col).SetString(value)
	}
}

// catalogFieldValue maps one catalog column to the product's properties.
// The mapping is type-dependent: handles have no door-style dimensions or
// material, and pull their prices and supplier article from handle-specific
// property names.
func catalogFieldValue(itemType, field string, props map[string]interface{}) string {
	isHandle := itemType == "handle"

	switch field {
	case "Наименование у поставщика":
		return catalogservice.PropertyValue(props,
			"Фабрика_наименование", "Наименование двери у поставщика",
			"Наименование поставщика", "Наименование")
	case "Материал/Покрытие":
		if isHandle {
			return ""
		}
		return catalogservice.PropertyValue(props, "Материал/Покрытие", "Тип покрытия")
	case "Размер 1":
		if isHandle {
			return ""
		}
		return catalogservice.PropertyValue(props, "Ширина/мм")
	case "Размер 2":
		if isHandle {
			return ""
		}
		return catalogservice.PropertyValue(props, "Высота/мм")
	case "Размер 3":
		if isHandle {
			return ""
		}
		return catalogservice.PropertyValue(props, "Толщина/мм")
	case "Цвет/Отделка":
		return catalogservice.PropertyValue(props, "Цвет/Отделка", "Domeo_Цвет")
	case "Цена РРЦ":
		if isHandle {
			return catalogservice.PropertyValue(props, "Цена розница", "Цена РРЦ")
		}
		return catalogservice.PropertyValue(props, field)
	case "Артикул поставщика":
		if isHandle {
			return catalogservice.PropertyValue(props, "Фабрика_артикул", "Артикул поставщика")
		}
		return catalogservice.PropertyValue(props, field)
	default:
		return catalogservice.PropertyValue(props, field)
	}
}

func applyRowStyle(sheet *xlsx.Sheet, rowIndex, columnCount int, fill string) {
	for col := 0; col < columnCount; col++ {
		cell := sheet.Cell(rowIndex, col)
		style := cell.GetStyle()
		style.Fill = *xlsx.NewFill("solid", fill, fill)
		style.ApplyFill = true
		style.Alignment = xlsx.Alignment{Horizontal: "center", Vertical: "center"}
		style.ApplyAlignment = true
		cell.SetStyle(style)
	}
}

func applyBottomBorder(sheet *xlsx.Sheet, rowIndex, columnCount int) {
	for col := 0; col < columnCount; col++ {
		cell := sheet.Cell(rowIndex, col)
		style := cell.GetStyle()
		style.Border = *xlsx.NewBorder("", "", "", "thin")
		style.ApplyBorder = true
		cell.SetStyle(style)
	}
}
