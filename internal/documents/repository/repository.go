package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Document is the shared database model for the three structurally
// identical document tables (quotes, invoices, orders).
type Document struct {
	ID               string    `db:"id"`
	Number           string    `db:"number"`
	ParentDocumentID *string   `db:"parent_document_id"`
	CartSessionID    *string   `db:"cart_session_id"`
	ClientID         string    `db:"client_id"`
	CreatedBy        string    `db:"created_by"`
	Status           string    `db:"status"`
	Subtotal         float64   `db:"subtotal"`
	TotalAmount      float64   `db:"total_amount"`
	Currency         string    `db:"currency"`
	Notes            *string   `db:"notes"`
	CartData         []byte    `db:"cart_data"`
	CreatedAt        time.Time `db:"created_at"`
}

// DocumentItem is one persisted line item.
type DocumentItem struct {
	ID         string  `db:"id"`
	DocumentID string  `db:"document_id"`
	ProductID  string  `db:"product_id"`
	Quantity   int     `db:"quantity"`
	UnitPrice  float64 `db:"unit_price"`
	TotalPrice float64 `db:"total_price"`
	Notes      string  `db:"notes"`
}

// HistoryEntry is one audit row in document_history.
type HistoryEntry struct {
	DocumentType string
	DocumentID   string
	Action       string
	NewValue     []byte
	UserID       string
	Notes        string
}

// totalTolerance is the candidate band on total_amount used by the
// content-scan pass and the order strict pass.
const totalTolerance = 0.01

type tableSet struct {
	documents string
	items     string
	itemFK    string
}

// tables resolves a document type to its table names. The switch doubles
// as a guard: SQL is built with these literals, never with caller input.
func tables(docType string) (tableSet, error) {
	switch docType {
	case "quote":
		return tableSet{documents: "quotes", items: "quote_items", itemFK: "quote_id"}, nil
	case "invoice":
		return tableSet{documents: "invoices", items: "invoice_items", itemFK: "invoice_id"}, nil
	case "order":
		return tableSet{documents: "orders", items: "order_items", itemFK: "order_id"}, nil
	default:
		return tableSet{}, fmt.Errorf("unknown document type %q", docType)
	}
}

// Repository provides database operations for documents.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new documents repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const documentColumns = `id, number, parent_document_id, cart_session_id, client_id,
		created_by, status, subtotal, total_amount, currency, notes, cart_data, created_at`

func scanDocument(row pgx.Row) (*Document, error) {
	var doc Document
	err := row.Scan(
		&doc.ID, &doc.Number, &doc.ParentDocumentID, &doc.CartSessionID, &doc.ClientID,
		&doc.CreatedBy, &doc.Status, &doc.Subtotal, &doc.TotalAmount, &doc.Currency,
		&doc.Notes, &doc.CartData, &doc.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// CreateWithItems inserts the document header and its line items in a
// single transaction. Partial creation is never left behind.
func (r *Repository) CreateWithItems(ctx context.Context, docType string, doc *Document, items []DocumentItem) error {
	t, err := tables(docType)
	if err != nil {
		return err
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	headerQuery := fmt.Sprintf(`
		INSERT INTO %s (
			id, number, parent_document_id, cart_session_id, client_id,
			created_by, status, subtotal, total_amount, currency, notes, cart_data, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`, t.documents)

	if _, err := tx.Exec(ctx, headerQuery,
		doc.ID, doc.Number, doc.ParentDocumentID, doc.CartSessionID, doc.ClientID,
		doc.CreatedBy, doc.Status, doc.Subtotal, doc.TotalAmount, doc.Currency,
		doc.Notes, doc.CartData, doc.CreatedAt,
	); err != nil {
		return fmt.Errorf("failed to insert %s header: %w", docType, err)
	}

	itemQuery := fmt.Sprintf(`
		INSERT INTO %s (id, %s, product_id, quantity, unit_price, total_price, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`, t.items, t.itemFK)

	for _, item := range items {
		if _, err := tx.Exec(ctx, itemQuery,
			item.ID, doc.ID, item.ProductID, item.Quantity,
			item.UnitPrice, item.TotalPrice, item.Notes,
		); err != nil {
			return fmt.Errorf("failed to insert %s item: %w", docType, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit %s: %w", docType, err)
	}

	return nil
}

// StrictParams are the discriminator fields of the strict dedup pass.
type StrictParams struct {
	ClientID         string
	ParentDocumentID *string
	CartSessionID    *string
	TotalAmount      float64
}

// FindStrict runs the strict discriminator pass: newest document matching
// type, client, parent and cart session. Quotes and invoices require exact
// total equality; orders are root documents (parent always NULL) and use
// the tolerance band instead.
func (r *Repository) FindStrict(ctx context.Context, docType string, p StrictParams) (*Document, error) {
	t, err := tables(docType)
	if err != nil {
		return nil, err
	}

	var query string
	var args []interface{}
	if docType == "order" {
		query = fmt.Sprintf(`
			SELECT %s FROM %s
			WHERE parent_document_id IS NULL
			  AND cart_session_id = $1
			  AND client_id = $2
			  AND total_amount BETWEEN $3 AND $4
			ORDER BY created_at DESC
			LIMIT 1`, documentColumns, t.documents)
		args = []interface{}{p.CartSessionID, p.ClientID,
			p.TotalAmount - totalTolerance, p.TotalAmount + totalTolerance}
	} else {
		query = fmt.Sprintf(`
			SELECT %s FROM %s
			WHERE parent_document_id IS NOT DISTINCT FROM $1
			  AND cart_session_id IS NOT DISTINCT FROM $2
			  AND client_id = $3
			  AND total_amount = $4
			ORDER BY created_at DESC
			LIMIT 1`, documentColumns, t.documents)
		args = []interface{}{p.ParentDocumentID, p.CartSessionID, p.ClientID, p.TotalAmount}
	}

	doc, err := scanDocument(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("strict %s lookup failed: %w", docType, err)
	}
	return doc, nil
}

// ListCandidates runs the content-scan pass: the client's newest documents
// of the type within the tolerance band of the total. Orders scan up to 20
// root documents, quotes and invoices up to 10 under the same parent.
func (r *Repository) ListCandidates(ctx context.Context, docType, clientID string, parentDocumentID *string, totalAmount float64) ([]Document, error) {
	t, err := tables(docType)
	if err != nil {
		return nil, err
	}

	var query string
	var args []interface{}
	if docType == "order" {
		query = fmt.Sprintf(`
			SELECT %s FROM %s
			WHERE parent_document_id IS NULL
			  AND client_id = $1
			  AND total_amount BETWEEN $2 AND $3
			ORDER BY created_at DESC
			LIMIT 20`, documentColumns, t.documents)
		args = []interface{}{clientID, totalAmount - totalTolerance, totalAmount + totalTolerance}
	} else {
		query = fmt.Sprintf(`
			SELECT %s FROM %s
			WHERE client_id = $1
			  AND parent_document_id IS NOT DISTINCT FROM $2
			  AND total_amount BETWEEN $3 AND $4
			ORDER BY created_at DESC
			LIMIT 10`, documentColumns, t.documents)
		args = []interface{}{clientID, parentDocumentID,
			totalAmount - totalTolerance, totalAmount + totalTolerance}
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("candidate %s lookup failed: %w", docType, err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan %s candidate: %w", docType, err)
		}
		docs = append(docs, *doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate %s candidates: %w", docType, err)
	}

	return docs, nil
}

// ValidateParent enforces document lineage before a child is created:
// an invoice's parent must be an existing order that has no invoice yet;
// an order's parent must be an existing quote.
func (r *Repository) ValidateParent(ctx context.Context, docType, parentDocumentID string) error {
	switch docType {
	case "invoice":
		var exists, hasInvoice bool
		query := `
			SELECT TRUE, EXISTS (
				SELECT 1 FROM invoices i WHERE i.parent_document_id = o.id
			)
			FROM orders o
			WHERE o.id = $1`
		err := r.pool.QueryRow(ctx, query, parentDocumentID).Scan(&exists, &hasInvoice)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return fmt.Errorf("order %s not found, an invoice must be created from an order", parentDocumentID)
			}
			return fmt.Errorf("failed to validate invoice parent: %w", err)
		}
		if hasInvoice {
			return fmt.Errorf("order %s already has an invoice", parentDocumentID)
		}
		return nil
	case "order":
		var id string
		err := r.pool.QueryRow(ctx, `SELECT id FROM quotes WHERE id = $1`, parentDocumentID).Scan(&id)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return fmt.Errorf("quote %s not found", parentDocumentID)
			}
			return fmt.Errorf("failed to validate order parent: %w", err)
		}
		return nil
	default:
		return nil
	}
}

// InsertHistory appends an audit row.
func (r *Repository) InsertHistory(ctx context.Context, entry HistoryEntry) error {
	query := `
		INSERT INTO document_history (document_type, document_id, action, new_value, user_id, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.pool.Exec(ctx, query,
		entry.DocumentType, entry.DocumentID, entry.Action,
		entry.NewValue, entry.UserID, entry.Notes, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert history entry: %w", err)
	}
	return nil
}
