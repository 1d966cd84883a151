// Package transport defines the wire-level request and response types for
// the document export endpoint.
package transport

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// FlexString unmarshals from either a JSON string or a JSON number. Cart
// payloads carry dimensions both ways depending on the frontend code path.
type FlexString string

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	// Strip a trailing ".0" so numeric widths compare equal to their
	// string forms.
	text := n.String()
	if parsed, err := strconv.ParseFloat(text, 64); err == nil && parsed == float64(int64(parsed)) {
		text = strconv.FormatInt(int64(parsed), 10)
	}
	*f = FlexString(text)
	return nil
}

// String returns the underlying value.
func (f FlexString) String() string { return string(f) }

// Float returns the numeric value, or 0 when empty or unparseable.
func (f FlexString) Float() float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(string(f)), 64)
	if err != nil {
		return 0
	}
	return v
}

// CartItem is one caller-supplied cart position. Identity is positional
// within a submission; there is no independent lifecycle.
type CartItem struct {
	ID              string     `json:"id"`
	Type            string     `json:"type"`
	Name            string     `json:"name,omitempty"`
	Model           string     `json:"model,omitempty"`
	Style           string     `json:"style,omitempty"`
	Finish          string     `json:"finish,omitempty"`
	Color           string     `json:"color,omitempty"`
	Width           FlexString `json:"width,omitempty"`
	Height          FlexString `json:"height,omitempty"`
	HardwareKitID   string     `json:"hardwareKitId,omitempty"`
	HardwareKitName string     `json:"hardwareKitName,omitempty"`
	Hardware        string     `json:"hardware,omitempty"`
	HandleID        string     `json:"handleId,omitempty"`
	HandleName      string     `json:"handleName,omitempty"`
	SKU1C           string     `json:"sku_1c,omitempty"`
	Qty             int        `json:"qty,omitempty"`
	Quantity        int        `json:"quantity,omitempty"`
	UnitPrice       float64    `json:"unitPrice"`
	Price           float64    `json:"price,omitempty"`
}

// Count resolves the item quantity: qty, then quantity, then 1.
func (i CartItem) Count() int {
	if i.Qty > 0 {
		return i.Qty
	}
	if i.Quantity > 0 {
		return i.Quantity
	}
	return 1
}

// EffectiveUnitPrice resolves the unit price: unitPrice, then price.
func (i CartItem) EffectiveUnitPrice() float64 {
	if i.UnitPrice != 0 {
		return i.UnitPrice
	}
	return i.Price
}

// ExportRequest is the POST /documents/export payload.
type ExportRequest struct {
	Type             string     `json:"type" binding:"required" validate:"required,oneof=quote invoice order"`
	Format           string     `json:"format" validate:"omitempty,oneof=pdf excel csv"`
	ClientID         string     `json:"clientId" binding:"required" validate:"required"`
	Items            []CartItem `json:"items" binding:"required" validate:"required,min=1,dive"`
	ParentDocumentID *string    `json:"parentDocumentId,omitempty"`
	CartSessionID    string     `json:"cartSessionId,omitempty"`
	// RequireClient switches the missing-client behavior from placeholder
	// provisioning to a NotFound abort.
	RequireClient bool   `json:"requireClient,omitempty"`
	CreatedBy     string `json:"createdBy,omitempty"`

	// RawItems is the caller's items array exactly as received, captured
	// during unmarshaling. The persisted cart_data audit snapshot uses these
	// bytes, so fields outside CartItem survive untouched.
	RawItems json.RawMessage `json:"-"`
}

// exportRequestFields breaks the UnmarshalJSON recursion.
type exportRequestFields ExportRequest

// UnmarshalJSON decodes the typed fields and keeps the raw items bytes.
func (r *ExportRequest) UnmarshalJSON(data []byte) error {
	var fields exportRequestFields
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	var raw struct {
		Items json.RawMessage `json:"items"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*r = ExportRequest(fields)
	r.RawItems = raw.Items
	return nil
}

// ExportResult is what the orchestrator hands back to the HTTP layer.
type ExportResult struct {
	Buffer         []byte
	Filename       string
	MimeType       string
	DocumentNumber string
	DocumentID     string
	DocumentType   string
	Reused         bool
}
