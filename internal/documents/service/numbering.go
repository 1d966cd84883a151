package service

import (
	"encoding/base64"
	"encoding/json"
	"strconv"
	"strings"
	"time"
	"unicode"

	"configurator_backend/internal/documents/transport"
)

// Canonical (database-facing) number prefixes, localized for the admin UI.
var dbNumberPrefixes = map[string]string{
	"quote":   "КП",
	"invoice": "Счет",
	"order":   "Заказ",
}

// Export-facing number prefixes, Latin so filenames stay ASCII-safe.
var exportNumberPrefixes = map[string]string{
	"quote":   "KP",
	"invoice": "Invoice",
	"order":   "Order",
}

// dbDocumentNumber mints the canonical stored number: localized prefix
// plus the current unix-millisecond timestamp.
func dbDocumentNumber(docType string, now time.Time) string {
	return dbNumberPrefixes[docType] + "-" + strconv.FormatInt(now.UnixMilli(), 10)
}

// exportDocumentNumber mints the download-facing number. A fresh one is
// generated on every export act, including reuse of an existing document.
func exportDocumentNumber(docType string, now time.Time) string {
	return exportNumberPrefixes[docType] + "-" + strconv.FormatInt(now.UnixMilli(), 10)
}

// translitTable maps lowercase Cyrillic onto Latin for filename
// sanitization.
var translitTable = map[rune]string{
	'а': "a", 'б': "b", 'в': "v", 'г': "g", 'д': "d", 'е': "e", 'ё': "yo",
	'ж': "zh", 'з': "z", 'и': "i", 'й': "y", 'к': "k", 'л': "l", 'м': "m",
	'н': "n", 'о': "o", 'п': "p", 'р': "r", 'с': "s", 'т': "t", 'у': "u",
	'ф': "f", 'х': "h", 'ц': "ts", 'ч': "ch", 'ш': "sh", 'щ': "sch",
	'ъ': "", 'ы': "y", 'ь': "", 'э': "e", 'ю': "yu", 'я': "ya",
}

// sanitizeFilename transliterates Cyrillic to Latin and degrades any other
// non-ASCII rune to "X", keeping the result safe for Content-Disposition.
func sanitizeFilename(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r < 128:
			b.WriteRune(r)
		default:
			lower := unicode.ToLower(r)
			mapped, ok := translitTable[lower]
			if !ok {
				b.WriteString("X")
				continue
			}
			if r != lower && mapped != "" {
				b.WriteString(strings.ToUpper(mapped[:1]) + mapped[1:])
			} else {
				b.WriteString(mapped)
			}
		}
	}
	return b.String()
}

// deriveCartSessionID builds a deterministic session id from the cart
// content, so repeated exports of the same cart land on the same session
// even when the caller supplies none.
func deriveCartSessionID(clientID string, items []transport.CartItem, totalAmount float64) string {
	type fingerprintItem struct {
		ID        string  `json:"id"`
		Type      string  `json:"type"`
		Model     string  `json:"model"`
		Qty       int     `json:"qty"`
		UnitPrice float64 `json:"unitPrice"`
	}

	fingerprint := struct {
		ClientID    string            `json:"clientId"`
		Items       []fingerprintItem `json:"items"`
		TotalAmount float64           `json:"totalAmount"`
	}{ClientID: clientID, TotalAmount: totalAmount}

	for _, item := range items {
		fingerprint.Items = append(fingerprint.Items, fingerprintItem{
			ID:        item.ID,
			Type:      item.Type,
			Model:     item.Model,
			Qty:       item.Count(),
			UnitPrice: item.EffectiveUnitPrice(),
		})
	}

	raw, _ := json.Marshal(fingerprint)
	encoded := base64.StdEncoding.EncodeToString(raw)
	if len(encoded) > 20 {
		encoded = encoded[:20]
	}
	return "cart_" + encoded
}
