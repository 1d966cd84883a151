package render

import (
	"fmt"
	"html"
	"strings"
	"time"
)

// buildHTML assembles the self-contained document page: inline CSS, A4 with
// 20mm margins, title, client block, the six-column item table and the
// total row. All interpolated values are HTML-escaped.
func buildHTML(data ExportData) string {
	title := html.EscapeString(Title(data.Type))

	var b strings.Builder
	b.WriteString(`<!DOCTYPE html>
<html lang="ru">
<head>
  <meta charset="UTF-8">
  <title>` + title + `</title>
  <style>
    @page {
      size: A4;
      margin: 20mm;
    }
    body {
      font-family: 'Arial', 'Helvetica', sans-serif;
      font-size: 12px;
      margin: 0;
      padding: 0;
      line-height: 1.4;
      color: #000;
    }
    .header {
      text-align: center;
      font-size: 18px;
      font-weight: bold;
      margin-bottom: 20px;
      border-bottom: 2px solid #000;
      padding-bottom: 10px;
    }
    .info {
      margin-bottom: 20px;
      line-height: 1.6;
      background-color: #f9f9f9;
      padding: 15px;
      border-radius: 5px;
    }
    .info div { margin-bottom: 5px; }
    .info strong { font-weight: bold; }
    table {
      width: 100%;
      border-collapse: collapse;
      margin-bottom: 20px;
      font-size: 11px;
    }
    th, td {
      border: 1px solid #000;
      padding: 8px;
      text-align: left;
      vertical-align: top;
    }
    th {
      background-color: #e0e0e0;
      font-weight: bold;
      text-align: center;
    }
    .number { text-align: center; width: 5%; }
    .sku { width: 15%; }
    .name { width: 40%; }
    .price { text-align: right; width: 15%; }
    .qty { text-align: center; width: 10%; }
    .total { text-align: right; width: 15%; }
    .total-row {
      text-align: right;
      font-size: 14px;
      font-weight: bold;
      margin-top: 20px;
      border-top: 2px solid #000;
      padding-top: 10px;
    }
    .footer {
      font-size: 10px;
      margin-top: 30px;
      text-align: center;
      color: #666;
    }
  </style>
</head>
<body>
  <div class="header">` + title + `</div>

  <div class="info">
    <div><strong>Клиент:</strong> ` + html.EscapeString(orNA(data.Client.Name)) + `</div>
    <div><strong>Телефон:</strong> ` + html.EscapeString(orNA(data.Client.Phone)) + `</div>
    <div><strong>Адрес:</strong> ` + html.EscapeString(orNA(data.Client.Address)) + `</div>
    <div><strong>Номер документа:</strong> ` + html.EscapeString(data.DocumentNumber) + `</div>
    <div><strong>Дата:</strong> ` + time.Now().Format("02.01.2006") + `</div>
  </div>

  <table>
    <thead>
      <tr>
        <th class="number">№</th>
        <th class="sku">Артикул</th>
        <th class="name">Наименование</th>
        <th class="price">Цена за ед.</th>
        <th class="qty">Кол-во</th>
        <th class="total">Сумма</th>
      </tr>
    </thead>
    <tbody>
`)

	for i, item := range data.Items {
		b.WriteString(fmt.Sprintf(`      <tr>
        <td class="number">%d</td>
        <td class="sku">%s</td>
        <td class="name">%s</td>
        <td class="price">%s ₽</td>
        <td class="qty">%d</td>
        <td class="total">%s ₽</td>
      </tr>
`,
			i+1,
			html.EscapeString(orNA(item.SKU)),
			html.EscapeString(item.Name),
			formatAmount(item.UnitPrice),
			item.Quantity,
			formatAmount(item.Total),
		))
	}

	b.WriteString(`    </tbody>
  </table>

  <div class="total-row">Итого: ` + formatAmount(data.TotalAmount) + ` ₽</div>

  <div class="footer">Документ сгенерирован автоматически системой Domeo</div>
</body>
</html>`)

	return b.String()
}
