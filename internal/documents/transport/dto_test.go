package transport

import (
	"encoding/json"
	"testing"
)

func TestFlexStringAcceptsStringAndNumber(t *testing.T) {
	var item CartItem
	if err := json.Unmarshal([]byte(`{"width":"800","height":2000.0}`), &item); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if item.Width.String() != "800" {
		t.Fatalf("string width: got %q", item.Width)
	}
	if item.Height.String() != "2000" {
		t.Fatalf("numeric height must drop the trailing .0: got %q", item.Height)
	}
	if item.Height.Float() != 2000 {
		t.Fatalf("height as float: got %v", item.Height.Float())
	}
}

func TestExportRequestKeepsRawItems(t *testing.T) {
	body := []byte(`{
		"type": "quote",
		"clientId": "client-1",
		"items": [{"id":"p1","type":"door","model":"DomeoDoors_Neo","width":800,"qty":1,"unitPrice":1000,"photo":"door.jpg","comment":"клиент просил белую"}]
	}`)

	var req ExportRequest
	if err := json.Unmarshal(body, &req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(req.Items) != 1 || req.Items[0].Model != "DomeoDoors_Neo" {
		t.Fatalf("typed items not decoded: %+v", req.Items)
	}
	if req.Items[0].Width.String() != "800" {
		t.Fatalf("typed width: got %q", req.Items[0].Width)
	}

	// The raw snapshot is byte-for-byte what the caller sent: fields the
	// typed struct does not model survive, and numbers stay numbers.
	var snapshot []map[string]interface{}
	if err := json.Unmarshal(req.RawItems, &snapshot); err != nil {
		t.Fatalf("raw items must stay valid JSON: %v", err)
	}
	if snapshot[0]["photo"] != "door.jpg" {
		t.Fatalf("unknown field photo lost: %v", snapshot[0])
	}
	if snapshot[0]["comment"] != "клиент просил белую" {
		t.Fatalf("unknown field comment lost: %v", snapshot[0])
	}
	if width, ok := snapshot[0]["width"].(float64); !ok || width != 800 {
		t.Fatalf("numeric width must stay numeric in the snapshot: %v", snapshot[0]["width"])
	}
}

func TestCartItemQuantityAndPriceFallbacks(t *testing.T) {
	if (CartItem{Qty: 3}).Count() != 3 {
		t.Fatal("qty must win")
	}
	if (CartItem{Quantity: 4}).Count() != 4 {
		t.Fatal("quantity is the fallback")
	}
	if (CartItem{}).Count() != 1 {
		t.Fatal("missing quantity defaults to 1")
	}
	if (CartItem{UnitPrice: 100, Price: 50}).EffectiveUnitPrice() != 100 {
		t.Fatal("unitPrice must win")
	}
	if (CartItem{Price: 50}).EffectiveUnitPrice() != 50 {
		t.Fatal("price is the fallback")
	}
}
