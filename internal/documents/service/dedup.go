// Package service holds the document export pipeline: deduplication,
// numbering, and the orchestrator tying matcher, renderers and persistence
// together.
package service

import (
	"context"
	"encoding/json"
	"math"
	"sort"
	"strconv"
	"strings"

	"configurator_backend/internal/documents/repository"
	"configurator_backend/internal/documents/transport"
	"configurator_backend/platform/logger"
)

// priceTolerance is the per-item unit price comparison band.
const priceTolerance = 0.01

// normalizedItem is a cart item reduced to its comparable identity.
// Handles collapse to (type, handleId, quantity, unitPrice); everything
// else about a handle is noise for equality purposes.
type normalizedItem struct {
	Type          string
	Style         string
	Model         string
	Finish        string
	Color         string
	Width         float64
	Height        float64
	Quantity      int
	UnitPrice     float64
	HardwareKitID string
	HandleID      string
}

func normalizeItems(items []transport.CartItem) []normalizedItem {
	normalized := make([]normalizedItem, 0, len(items))
	for _, item := range items {
		itemType := strings.ToLower(item.Type)
		if itemType == "" {
			itemType = "door"
		}

		if itemType == "handle" || item.HandleID != "" {
			normalized = append(normalized, normalizedItem{
				Type:      "handle",
				HandleID:  strings.TrimSpace(item.HandleID),
				Quantity:  item.Count(),
				UnitPrice: item.EffectiveUnitPrice(),
			})
			continue
		}

		model := item.Model
		if model == "" {
			model = item.Name
		}
		normalized = append(normalized, normalizedItem{
			Type:          itemType,
			Style:         strings.ToLower(strings.TrimSpace(item.Style)),
			Model:         strings.ToLower(strings.TrimSpace(model)),
			Finish:        strings.ToLower(strings.TrimSpace(item.Finish)),
			Color:         strings.ToLower(strings.TrimSpace(item.Color)),
			Width:         item.Width.Float(),
			Height:        item.Height.Float(),
			Quantity:      item.Count(),
			UnitPrice:     item.EffectiveUnitPrice(),
			HardwareKitID: strings.TrimSpace(item.HardwareKitID),
			HandleID:      strings.TrimSpace(item.HandleID),
		})
	}

	sort.Slice(normalized, func(i, j int) bool {
		return sortKey(normalized[i]) < sortKey(normalized[j])
	})
	return normalized
}

// sortKey makes the comparison order-independent: both sides sort by the
// same composite identity key before positional comparison.
func sortKey(n normalizedItem) string {
	identity := n.HandleID
	if identity == "" {
		identity = n.Model
	}
	return strings.Join([]string{
		n.Type,
		identity,
		n.Finish,
		n.Color,
		strconv.FormatFloat(n.Width, 'f', -1, 64),
		strconv.FormatFloat(n.Height, 'f', -1, 64),
		n.HardwareKitID,
	}, ":")
}

func itemsEqual(a, b normalizedItem) bool {
	if a.Type == "handle" || b.Type == "handle" {
		return a.Type == b.Type &&
			a.HandleID == b.HandleID &&
			a.Quantity == b.Quantity &&
			math.Abs(a.UnitPrice-b.UnitPrice) <= priceTolerance
	}
	return a.Type == b.Type &&
		a.Style == b.Style &&
		a.Model == b.Model &&
		a.Finish == b.Finish &&
		a.Color == b.Color &&
		a.Width == b.Width &&
		a.Height == b.Height &&
		a.HardwareKitID == b.HardwareKitID &&
		a.HandleID == b.HandleID &&
		a.Quantity == b.Quantity &&
		math.Abs(a.UnitPrice-b.UnitPrice) <= priceTolerance
}

// compareCartContent reports whether the request items equal the stored
// cart_data snapshot. The snapshot may be a bare array or an object with
// an "items" field; parse failures compare as not-equal.
func compareCartContent(items []transport.CartItem, cartData []byte, log *logger.Logger) bool {
	if len(cartData) == 0 {
		return false
	}

	stored, err := parseCartData(cartData)
	if err != nil {
		log.Warn("failed to parse stored cart_data", "error", err)
		return false
	}

	left := normalizeItems(items)
	right := normalizeItems(stored)

	if len(left) != len(right) {
		return false
	}
	for i := range left {
		if !itemsEqual(left[i], right[i]) {
			return false
		}
	}
	return true
}

func parseCartData(cartData []byte) ([]transport.CartItem, error) {
	var asArray []transport.CartItem
	if err := json.Unmarshal(cartData, &asArray); err == nil {
		return asArray, nil
	}

	var asObject struct {
		Items []transport.CartItem `json:"items"`
	}
	if err := json.Unmarshal(cartData, &asObject); err != nil {
		return nil, err
	}
	return asObject.Items, nil
}

// DocumentFinder is the slice of the documents repository the
// deduplicator needs.
type DocumentFinder interface {
	FindStrict(ctx context.Context, docType string, p repository.StrictParams) (*repository.Document, error)
	ListCandidates(ctx context.Context, docType, clientID string, parentDocumentID *string, totalAmount float64) ([]repository.Document, error)
}

// FindParams identify the logical document being deduplicated.
type FindParams struct {
	Type             string
	ClientID         string
	ParentDocumentID *string
	CartSessionID    string
	Items            []transport.CartItem
	TotalAmount      float64
}

// Deduplicator is the idempotency guard: it decides whether an equal
// document already exists before anything is persisted.
type Deduplicator struct {
	docs DocumentFinder
	log  *logger.Logger
}

// NewDeduplicator creates a deduplicator.
func NewDeduplicator(docs DocumentFinder, log *logger.Logger) *Deduplicator {
	return &Deduplicator{docs: docs, log: log}
}

// FindExisting returns the newest equal document, or nil. Any lookup error
// is logged and treated as no-duplicate: the system prefers an extra
// duplicate over a failed export.
func (d *Deduplicator) FindExisting(ctx context.Context, p FindParams) *repository.Document {
	// Orders are root documents; their lookup never accepts a parent.
	parent := p.ParentDocumentID
	if p.Type == "order" {
		parent = nil
	}

	// Pass 1: strict discriminator match. For orders the cart session is
	// the primary discriminator, so the pass only runs when one is given.
	if p.Type != "order" || p.CartSessionID != "" {
		var session *string
		if p.CartSessionID != "" {
			session = &p.CartSessionID
		}
		existing, err := d.docs.FindStrict(ctx, p.Type, repository.StrictParams{
			ClientID:         p.ClientID,
			ParentDocumentID: parent,
			CartSessionID:    session,
			TotalAmount:      p.TotalAmount,
		})
		if err != nil {
			d.log.Error("strict dedup lookup failed, treating as no duplicate",
				"type", p.Type, "error", err)
			return nil
		}
		if existing != nil && compareCartContent(p.Items, existing.CartData, d.log) {
			d.log.DedupResult(p.Type, true, existing.ID)
			return existing
		}
	}

	// Pass 2: content scan over the client's recent documents in the
	// tolerance band of the total.
	candidates, err := d.docs.ListCandidates(ctx, p.Type, p.ClientID, parent, p.TotalAmount)
	if err != nil {
		d.log.Error("candidate dedup lookup failed, treating as no duplicate",
			"type", p.Type, "error", err)
		return nil
	}
	for i := range candidates {
		if compareCartContent(p.Items, candidates[i].CartData, d.log) {
			d.log.DedupResult(p.Type, true, candidates[i].ID)
			return &candidates[i]
		}
	}

	d.log.DedupResult(p.Type, false, "")
	return nil
}
