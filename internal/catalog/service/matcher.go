// Package service implements the product matcher: it maps a cart item's
// configuration onto the catalog product rows it corresponds to.
package service

import (
	"context"
	"encoding/json"
	"strconv"

	"configurator_backend/internal/catalog/repository"
	"configurator_backend/platform/apperr"
	"configurator_backend/platform/logger"
	"configurator_backend/platform/memcache"
)

const (
	// CategoryDoors is the catalog category holding interior doors.
	CategoryDoors = "Межкомнатные двери"
	// CategoryHandles is the catalog category holding door handles.
	CategoryHandles = "Ручки"

	// maxMatches caps how many catalog rows a single cart item may resolve to.
	maxMatches = 5
)

// fieldAliases maps a logical configuration field onto the property-name
// aliases found in the catalog data. Aliases are tried in order; the first
// key with a non-empty value wins.
var fieldAliases = map[string][]string{
	"model":  {"Domeo_Название модели для Web", "МОДЕЛЬ", "model"},
	"finish": {"Тип покрытия", "Покрытие", "finish"},
	"color":  {"Domeo_Цвет", "Цвет/Отделка", "color"},
	"width":  {"Ширина/мм", "Ширина", "width"},
	"height": {"Высота/мм", "Высота", "height"},
}

// Query describes one cart item's configuration for resolution.
// HandleID switches the lookup to the exact-identity handle path; the five
// door fields are each optional and match vacuously when empty.
type Query struct {
	Type     string
	HandleID string
	Model    string
	Finish   string
	Color    string
	Width    string
	Height   string
}

// MatchedProduct is a catalog row with its properties blob already parsed.
type MatchedProduct struct {
	ID         string
	SKU        string
	Name       string
	Properties map[string]interface{}
}

// CatalogReader is the slice of the catalog repository the matcher needs.
type CatalogReader interface {
	ListByCategoryName(ctx context.Context, categoryName string) ([]repository.Product, error)
	FindInCategoryByID(ctx context.Context, categoryName, id string) (*repository.Product, error)
}

// Matcher resolves cart items against the catalog with a per-category
// TTL cache of the full product list.
type Matcher struct {
	catalog CatalogReader
	cache   *memcache.Cache
	log     *logger.Logger
}

// NewMatcher creates a product matcher.
func NewMatcher(catalog CatalogReader, cache *memcache.Cache, log *logger.Logger) *Matcher {
	return &Matcher{catalog: catalog, cache: cache, log: log}
}

// Resolve returns the catalog products matching the query, capped at 5.
// Handle queries are exact primary-key lookups within the handles category
// and return at most one product; a missing handle resolves to zero products.
func (m *Matcher) Resolve(ctx context.Context, q Query) ([]MatchedProduct, error) {
	if q.Type == "handle" && q.HandleID != "" {
		return m.resolveHandle(ctx, q.HandleID)
	}
	return m.resolveDoor(ctx, q)
}

func (m *Matcher) resolveHandle(ctx context.Context, handleID string) ([]MatchedProduct, error) {
	product, err := m.catalog.FindInCategoryByID(ctx, CategoryHandles, handleID)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			m.log.Warn("handle not found in catalog", "handle_id", handleID)
			return nil, nil
		}
		return nil, err
	}

	matched, ok := m.parse(*product)
	if !ok {
		return nil, nil
	}
	return []MatchedProduct{matched}, nil
}

func (m *Matcher) resolveDoor(ctx context.Context, q Query) ([]MatchedProduct, error) {
	products, err := m.categoryProducts(ctx, CategoryDoors)
	if err != nil {
		return nil, err
	}

	var matches []MatchedProduct
	truncated := false
	for _, product := range products {
		if len(product.PropertiesData) == 0 {
			continue
		}
		candidate, ok := m.parse(product)
		if !ok {
			continue
		}
		if !m.configurationMatches(q, candidate.Properties) {
			continue
		}
		if len(matches) == maxMatches {
			truncated = true
			break
		}
		matches = append(matches, candidate)
	}

	if truncated {
		m.log.Warn("match limit reached, results truncated",
			"model", q.Model, "limit", maxMatches)
	}

	return matches, nil
}

// categoryProducts returns the category's product list, reusing a cached
// copy for up to the cache TTL. Concurrent misses may each hit the database.
func (m *Matcher) categoryProducts(ctx context.Context, categoryName string) ([]repository.Product, error) {
	if cached, ok := m.cache.Get(categoryName); ok {
		if products, ok := cached.([]repository.Product); ok {
			return products, nil
		}
	}

	products, err := m.catalog.ListByCategoryName(ctx, categoryName)
	if err != nil {
		return nil, err
	}
	m.cache.Set(categoryName, products)
	m.log.Debug("category products loaded", "category", categoryName, "count", len(products))

	return products, nil
}

func (m *Matcher) parse(product repository.Product) (MatchedProduct, bool) {
	var props map[string]interface{}
	if len(product.PropertiesData) > 0 {
		if err := json.Unmarshal(product.PropertiesData, &props); err != nil {
			m.log.Warn("failed to parse product properties, skipping",
				"sku", product.SKU, "error", err)
			return MatchedProduct{}, false
		}
	}
	return MatchedProduct{
		ID:         product.ID,
		SKU:        product.SKU,
		Name:       product.Name,
		Properties: props,
	}, true
}

// configurationMatches tests the five field predicates. Each predicate is
// vacuously true when the query's attribute is empty. Model, finish and
// color compare exactly; width and height compare after string coercion.
func (m *Matcher) configurationMatches(q Query, props map[string]interface{}) bool {
	modelMatch := q.Model == "" || PropertyValue(props, fieldAliases["model"]...) == q.Model
	finishMatch := q.Finish == "" || PropertyValue(props, fieldAliases["finish"]...) == q.Finish
	colorMatch := q.Color == "" || PropertyValue(props, fieldAliases["color"]...) == q.Color
	widthMatch := q.Width == "" || PropertyValue(props, fieldAliases["width"]...) == q.Width
	heightMatch := q.Height == "" || PropertyValue(props, fieldAliases["height"]...) == q.Height

	return modelMatch && finishMatch && colorMatch && widthMatch && heightMatch
}

// PropertyValue returns the first non-empty value among the given property
// keys, coerced to a string. Numeric JSON values render without a trailing
// ".0" so sizes stored as numbers compare equal to their string forms.
func PropertyValue(props map[string]interface{}, keys ...string) string {
	for _, key := range keys {
		value, ok := props[key]
		if !ok || value == nil {
			continue
		}
		switch typed := value.(type) {
		case string:
			if typed != "" {
				return typed
			}
		case float64:
			if typed == float64(int64(typed)) {
				return strconv.FormatInt(int64(typed), 10)
			}
			return strconv.FormatFloat(typed, 'f', -1, 64)
		case bool:
			return strconv.FormatBool(typed)
		}
	}
	return ""
}
