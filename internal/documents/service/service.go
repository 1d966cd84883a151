package service

import (
	"context"
	"encoding/json"
	"time"

	catalogservice "configurator_backend/internal/catalog/service"
	clientsrepo "configurator_backend/internal/clients/repository"
	"configurator_backend/internal/documents/repository"
	"configurator_backend/internal/documents/transport"
	"configurator_backend/internal/render"
	"configurator_backend/platform/apperr"
	"configurator_backend/platform/logger"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const (
	createdByFallback = "system"
	documentNotes     = "Сгенерировано из конфигуратора дверей"
	historyAction     = "created_from_cart"
)

// ClientStore is the slice of the clients repository the orchestrator needs.
type ClientStore interface {
	FindByID(ctx context.Context, id string) (*clientsrepo.Client, error)
}

// DocumentStore is the documents repository surface used by the pipeline.
type DocumentStore interface {
	DocumentFinder
	CreateWithItems(ctx context.Context, docType string, doc *repository.Document, items []repository.DocumentItem) error
	ValidateParent(ctx context.Context, docType, parentDocumentID string) error
	InsertHistory(ctx context.Context, entry repository.HistoryEntry) error
}

// ProductResolver maps cart configurations onto catalog products.
type ProductResolver interface {
	Resolve(ctx context.Context, q catalogservice.Query) ([]catalogservice.MatchedProduct, error)
}

// RendererSource selects a renderer for a (type, format) pair.
type RendererSource interface {
	For(docType, format string) (render.Renderer, error)
}

// Archiver stores rendered buffers for later retrieval. Optional.
type Archiver interface {
	Put(ctx context.Context, objectName, contentType string, data []byte) error
}

// Service is the export orchestrator: dedup check, numbering, parallel
// item resolution, rendering, and best-effort persistence.
type Service struct {
	docs     DocumentStore
	clients  ClientStore
	matcher  ProductResolver
	renders  RendererSource
	archive  Archiver
	dedup    *Deduplicator
	log      *logger.Logger
	now      func() time.Time
}

// New creates the export orchestrator. archive may be nil.
func New(docs DocumentStore, clients ClientStore, matcher ProductResolver, renders RendererSource, archive Archiver, log *logger.Logger) *Service {
	return &Service{
		docs:    docs,
		clients: clients,
		matcher: matcher,
		renders: renders,
		archive: archive,
		dedup:   NewDeduplicator(docs, log),
		log:     log,
		now:     time.Now,
	}
}

// Export runs the pipeline for one export request and returns the rendered
// buffer with its identifiers. Persistence and archiving failures are
// absorbed: the caller still receives the file.
func (s *Service) Export(ctx context.Context, req transport.ExportRequest) (*transport.ExportResult, error) {
	format := req.Format
	if format == "" {
		format = render.FormatPDF
	}

	renderer, err := s.renders.For(req.Type, format)
	if err != nil {
		return nil, apperr.BadRequest(err.Error())
	}

	totalAmount := 0.0
	for _, item := range req.Items {
		totalAmount += item.EffectiveUnitPrice() * float64(item.Count())
	}

	client, err := s.resolveClient(ctx, req)
	if err != nil {
		return nil, err
	}

	cartSessionID := req.CartSessionID
	if cartSessionID == "" {
		cartSessionID = deriveCartSessionID(req.ClientID, req.Items, totalAmount)
	}

	s.log.ExportEvent("start", req.Type, format,
		"client_id", req.ClientID, "items", len(req.Items), "total", totalAmount)

	existing := s.dedup.FindExisting(ctx, FindParams{
		Type:             req.Type,
		ClientID:         req.ClientID,
		ParentDocumentID: req.ParentDocumentID,
		CartSessionID:    cartSessionID,
		Items:            req.Items,
		TotalAmount:      totalAmount,
	})

	now := s.now()
	// The export-facing number is fresh on every call; the stored number
	// keeps its localized prefix and survives reuse.
	exportNumber := exportDocumentNumber(req.Type, now)
	documentID := ""
	storedNumber := dbDocumentNumber(req.Type, now)
	if existing != nil {
		documentID = existing.ID
		storedNumber = existing.Number
		s.log.ExportEvent("reuse", req.Type, format,
			"document_id", documentID, "stored_number", storedNumber)
	}

	items := s.resolveItems(ctx, req.Items)

	data := render.ExportData{
		Type:           req.Type,
		DocumentNumber: exportNumber,
		Client: render.Client{
			Name:    client.Name,
			Phone:   client.Phone,
			Address: stringValue(client.Address),
		},
		Items:       items,
		TotalAmount: totalAmount,
	}

	buffer, err := renderer.Render(ctx, data)
	if err != nil {
		return nil, err
	}

	if existing == nil {
		documentID = s.persist(ctx, req, storedNumber, cartSessionID, totalAmount, format, now)
	}

	filename := sanitizeFilename(req.Type+"-"+exportNumber) + "." + render.FileExtension(format)
	mimeType := render.MIMEType(format)

	if s.archive != nil {
		if err := s.archive.Put(ctx, filename, mimeType, buffer); err != nil {
			s.log.Warn("failed to archive export artifact", "filename", filename, "error", err)
		}
	}

	s.log.ExportEvent("done", req.Type, format,
		"document_number", exportNumber, "document_id", documentID, "reused", existing != nil)

	return &transport.ExportResult{
		Buffer:         buffer,
		Filename:       filename,
		MimeType:       mimeType,
		DocumentNumber: exportNumber,
		DocumentID:     documentID,
		DocumentType:   req.Type,
		Reused:         existing != nil,
	}, nil
}

// resolveClient loads the client, or provisions an in-memory placeholder
// when the client is missing and the request allows the degraded path.
func (s *Service) resolveClient(ctx context.Context, req transport.ExportRequest) (*clientsrepo.Client, error) {
	client, err := s.clients.FindByID(ctx, req.ClientID)
	if err == nil {
		return client, nil
	}
	if !apperr.Is(err, apperr.KindNotFound) {
		return nil, err
	}
	if req.RequireClient {
		return nil, err
	}

	s.log.Warn("client not found, using placeholder", "client_id", req.ClientID)
	address := "Тестовый адрес"
	email := "test@example.com"
	return &clientsrepo.Client{
		ID:      req.ClientID,
		Name:    "Тестовый Клиент",
		Phone:   "+7 (999) 123-45-67",
		Address: &address,
		Email:   &email,
	}, nil
}

// resolveItems fans resolution out across the cart. Resolution is
// read-only; a matcher failure degrades that item to cart-only fields
// instead of failing the export.
func (s *Service) resolveItems(ctx context.Context, cartItems []transport.CartItem) []render.NormalizedItem {
	items := make([]render.NormalizedItem, len(cartItems))

	g, gctx := errgroup.WithContext(ctx)
	for i, item := range cartItems {
		i, item := i, item
		g.Go(func() error {
			matches, err := s.matcher.Resolve(gctx, catalogservice.Query{
				Type:     item.Type,
				HandleID: item.HandleID,
				Model:    item.Model,
				Finish:   item.Finish,
				Color:    item.Color,
				Width:    item.Width.String(),
				Height:   item.Height.String(),
			})
			if err != nil {
				s.log.Warn("product resolution failed, rendering cart fields only",
					"item_id", item.ID, "error", err)
				matches = nil
			}

			quantity := item.Count()
			unitPrice := item.EffectiveUnitPrice()
			items[i] = render.NormalizedItem{
				Name:      displayName(item),
				SKU:       item.SKU1C,
				Type:      item.Type,
				Quantity:  quantity,
				UnitPrice: unitPrice,
				Total:     unitPrice * float64(quantity),
				Matches:   matches,
			}
			return nil
		})
	}
	_ = g.Wait()

	return items
}

// persist creates the document and its items inside one transaction, then
// appends the audit row. All failures are logged and absorbed; the zero
// return value means no document id is available.
func (s *Service) persist(ctx context.Context, req transport.ExportRequest, storedNumber, cartSessionID string, totalAmount float64, format string, now time.Time) string {
	if req.ParentDocumentID != nil {
		if err := s.docs.ValidateParent(ctx, req.Type, *req.ParentDocumentID); err != nil {
			s.log.Error("document lineage validation failed, skipping persistence",
				"type", req.Type, "parent_id", *req.ParentDocumentID, "error", err)
			return ""
		}
	}

	createdBy := req.CreatedBy
	if createdBy == "" {
		createdBy = createdByFallback
	}

	status := "DRAFT"
	if req.Type == "order" {
		status = "PENDING"
	}

	// cart_data keeps the caller's items exactly as received; re-marshaling
	// the typed structs would drop fields CartItem does not model.
	cartData := []byte(req.RawItems)
	if len(cartData) == 0 {
		marshaled, err := json.Marshal(req.Items)
		if err != nil {
			s.log.Error("failed to serialize cart snapshot", "error", err)
			return ""
		}
		cartData = marshaled
	}

	notes := documentNotes
	doc := &repository.Document{
		ID:               uuid.NewString(),
		Number:           storedNumber,
		ParentDocumentID: req.ParentDocumentID,
		CartSessionID:    &cartSessionID,
		ClientID:         req.ClientID,
		CreatedBy:        createdBy,
		Status:           status,
		Subtotal:         totalAmount,
		TotalAmount:      totalAmount,
		Currency:         "RUB",
		Notes:            &notes,
		CartData:         cartData,
		CreatedAt:        now,
	}

	docItems := make([]repository.DocumentItem, 0, len(req.Items))
	for _, item := range req.Items {
		productID := item.ID
		if productID == "" {
			productID = "temp_" + uuid.NewString()[:8]
		}
		quantity := item.Count()
		unitPrice := item.EffectiveUnitPrice()
		docItems = append(docItems, repository.DocumentItem{
			ID:         uuid.NewString(),
			ProductID:  productID,
			Quantity:   quantity,
			UnitPrice:  unitPrice,
			TotalPrice: unitPrice * float64(quantity),
			Notes:      itemNotes(item),
		})
	}

	if err := s.docs.CreateWithItems(ctx, req.Type, doc, docItems); err != nil {
		s.log.DatabaseError("create "+req.Type, err)
		return ""
	}

	historyValue, _ := json.Marshal(map[string]interface{}{
		"cartItemsCount": len(req.Items),
		"totalAmount":    totalAmount,
		"format":         format,
	})
	if err := s.docs.InsertHistory(ctx, repository.HistoryEntry{
		DocumentType: req.Type,
		DocumentID:   doc.ID,
		Action:       historyAction,
		NewValue:     historyValue,
		UserID:       createdBy,
		Notes:        "Создан из корзины",
	}); err != nil {
		s.log.Warn("failed to append document history", "document_id", doc.ID, "error", err)
	}

	return doc.ID
}

func stringValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
