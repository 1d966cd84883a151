package service

import (
	"strings"

	"configurator_backend/internal/documents/transport"
)

// hardwareKitPrefix is stripped from kit names before they are embedded in
// a door's display name (the name already carries its own label).
const hardwareKitPrefix = "Комплект фурнитуры — "

// displayName builds the customer-facing item name. The same string goes
// into every renderer and into the persisted item notes, so it must stay
// consistent across both.
func displayName(item transport.CartItem) string {
	if item.Type == "handle" {
		handleName := item.HandleName
		if handleName == "" {
			handleName = item.HandleID
		}
		if handleName == "" {
			handleName = "Неизвестная ручка"
		}
		return "Ручка " + handleName
	}

	if item.Model != "" && strings.Contains(item.Model, "DomeoDoors") {
		dimensions := ""
		if item.Width != "" && item.Height != "" {
			dimensions = item.Width.String() + " × " + item.Height.String() + " мм"
		}

		hardware := item.HardwareKitName
		if hardware == "" {
			hardware = item.Hardware
		}
		if hardware == "" {
			hardware = "Базовый"
		}
		hardware = strings.TrimPrefix(hardware, hardwareKitPrefix)

		modelName := strings.ReplaceAll(item.Model, "DomeoDoors_", "")
		modelName = strings.ReplaceAll(modelName, "_", " ")

		return "Дверь DomeoDoors " + modelName +
			" (" + item.Finish + ", " + item.Color + ", " + dimensions +
			", Комплект фурнитуры -" + hardware + ")"
	}

	if item.Name != "" {
		return item.Name
	}
	model := item.Model
	if model == "" {
		model = "Товар"
	}
	return strings.TrimSpace(model + " " + item.Finish + " " + item.Color)
}

// itemNotes is the persisted line-item annotation.
func itemNotes(item transport.CartItem) string {
	sku := item.SKU1C
	if sku == "" {
		sku = "N/A"
	}
	return displayName(item) + " | Артикул: " + sku
}
