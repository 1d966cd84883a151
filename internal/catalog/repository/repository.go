package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"configurator_backend/platform/apperr"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Product is the reduced catalog product view used for matching and export
// enrichment. PropertiesData is the raw JSON blob keyed by the human-readable
// Russian property names from the catalog import.
type Product struct {
	ID             string          `db:"id"`
	SKU            string          `db:"sku"`
	Name           string          `db:"name"`
	PropertiesData json.RawMessage `db:"properties_data"`
}

const productNotFoundMsg = "product not found"

// Repo implements catalog read access.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new catalog repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// ListByCategoryName returns every product of the named category.
func (r *Repo) ListByCategoryName(ctx context.Context, categoryName string) ([]Product, error) {
	query := `
		SELECT p.id, p.sku, p.name, p.properties_data
		FROM products p
		JOIN catalog_categories c ON c.id = p.catalog_category_id
		WHERE c.name = $1`

	rows, err := r.pool.Query(ctx, query, categoryName)
	if err != nil {
		return nil, fmt.Errorf("failed to list products for category %q: %w", categoryName, err)
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.SKU, &p.Name, &p.PropertiesData); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate products: %w", err)
	}

	return products, nil
}

// FindInCategoryByID looks up a single product by primary key, constrained to
// the named category.
func (r *Repo) FindInCategoryByID(ctx context.Context, categoryName, id string) (*Product, error) {
	query := `
		SELECT p.id, p.sku, p.name, p.properties_data
		FROM products p
		JOIN catalog_categories c ON c.id = p.catalog_category_id
		WHERE c.name = $1 AND p.id = $2`

	var p Product
	err := r.pool.QueryRow(ctx, query, categoryName, id).Scan(&p.ID, &p.SKU, &p.Name, &p.PropertiesData)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound(productNotFoundMsg)
		}
		return nil, fmt.Errorf("failed to find product %q: %w", id, err)
	}

	return &p, nil
}
