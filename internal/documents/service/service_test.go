package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	catalogservice "configurator_backend/internal/catalog/service"
	clientsrepo "configurator_backend/internal/clients/repository"
	"configurator_backend/internal/documents/repository"
	"configurator_backend/internal/documents/transport"
	"configurator_backend/internal/render"
	"configurator_backend/platform/apperr"
)

type fakeDocs struct {
	fakeFinder

	created      []*repository.Document
	createdItems [][]repository.DocumentItem
	createErr    error

	parentErr    error
	parentCalls  int
	historyCalls int
	historyErr   error
	lastHistory  repository.HistoryEntry
}

func (f *fakeDocs) CreateWithItems(_ context.Context, _ string, doc *repository.Document, items []repository.DocumentItem) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, doc)
	f.createdItems = append(f.createdItems, items)
	return nil
}

func (f *fakeDocs) ValidateParent(_ context.Context, _, _ string) error {
	f.parentCalls++
	return f.parentErr
}

func (f *fakeDocs) InsertHistory(_ context.Context, entry repository.HistoryEntry) error {
	f.historyCalls++
	f.lastHistory = entry
	return f.historyErr
}

type fakeClients struct {
	client *clientsrepo.Client
	err    error
}

func (f *fakeClients) FindByID(_ context.Context, _ string) (*clientsrepo.Client, error) {
	return f.client, f.err
}

type fakeMatcher struct {
	matches []catalogservice.MatchedProduct
	err     error
}

func (f *fakeMatcher) Resolve(_ context.Context, _ catalogservice.Query) ([]catalogservice.MatchedProduct, error) {
	return f.matches, f.err
}

type fakeRenderer struct {
	output []byte
	err    error
	data   render.ExportData
}

func (f *fakeRenderer) Render(_ context.Context, data render.ExportData) ([]byte, error) {
	f.data = data
	return f.output, f.err
}

type fakeRendererSource struct {
	renderer *fakeRenderer
	err      error
}

func (f *fakeRendererSource) For(_, _ string) (render.Renderer, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.renderer, nil
}

type fakeArchiver struct {
	objectName  string
	contentType string
	data        []byte
	err         error
	calls       int
}

func (f *fakeArchiver) Put(_ context.Context, objectName, contentType string, data []byte) error {
	f.calls++
	f.objectName = objectName
	f.contentType = contentType
	f.data = data
	return f.err
}

func knownClient() *clientsrepo.Client {
	address := "Москва, Тверская 1"
	return &clientsrepo.Client{ID: "client-1", Name: "Иванов", Phone: "+7 900 000-00-00", Address: &address}
}

func newTestService(docs *fakeDocs, clients *fakeClients, matcher *fakeMatcher, renders *fakeRendererSource, archive Archiver) *Service {
	svc := New(docs, clients, matcher, renders, archive, testLogger())
	svc.now = func() time.Time { return time.UnixMilli(1700000000000) }
	return svc
}

func quoteRequest() transport.ExportRequest {
	return transport.ExportRequest{
		Type:     "quote",
		Format:   "pdf",
		ClientID: "client-1",
		Items: []transport.CartItem{
			doorItem("Neo", 2, 10000),
		},
	}
}

func TestExportCreatesNewDocument(t *testing.T) {
	docs := &fakeDocs{}
	renderer := &fakeRenderer{output: []byte("%PDF")}
	svc := newTestService(docs, &fakeClients{client: knownClient()}, &fakeMatcher{}, &fakeRendererSource{renderer: renderer}, nil)

	result, err := svc.Export(context.Background(), quoteRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Reused {
		t.Fatal("fresh export must not be marked reused")
	}
	if result.DocumentNumber != "KP-1700000000000" {
		t.Fatalf("unexpected export number %q", result.DocumentNumber)
	}
	if result.Filename != "quote-KP-1700000000000.pdf" {
		t.Fatalf("unexpected filename %q", result.Filename)
	}
	if string(result.Buffer) != "%PDF" {
		t.Fatalf("unexpected buffer %q", result.Buffer)
	}

	if len(docs.created) != 1 {
		t.Fatalf("expected 1 persisted document, got %d", len(docs.created))
	}
	doc := docs.created[0]
	if doc.Number != "КП-1700000000000" {
		t.Fatalf("stored number must use the localized prefix, got %q", doc.Number)
	}
	if doc.Status != "DRAFT" {
		t.Fatalf("quote status must be DRAFT, got %q", doc.Status)
	}
	if doc.TotalAmount != 20000 {
		t.Fatalf("total must be 20000, got %v", doc.TotalAmount)
	}
	if doc.Notes == nil || *doc.Notes != "Сгенерировано из конфигуратора дверей" {
		t.Fatalf("unexpected notes: %v", doc.Notes)
	}
	if doc.CartSessionID == nil || !strings.HasPrefix(*doc.CartSessionID, "cart_") {
		t.Fatalf("derived cart session expected, got %v", doc.CartSessionID)
	}
	if result.DocumentID != doc.ID {
		t.Fatalf("result must carry the persisted id %q, got %q", doc.ID, result.DocumentID)
	}

	var snapshot []transport.CartItem
	if err := json.Unmarshal(doc.CartData, &snapshot); err != nil || len(snapshot) != 1 {
		t.Fatalf("cart_data must be the verbatim item snapshot: %v %v", err, snapshot)
	}

	items := docs.createdItems[0]
	if len(items) != 1 || items[0].Quantity != 2 || items[0].TotalPrice != 20000 {
		t.Fatalf("unexpected persisted items: %+v", items)
	}
	if !strings.Contains(items[0].Notes, "Артикул:") {
		t.Fatalf("item notes must carry the SKU annotation, got %q", items[0].Notes)
	}

	if docs.historyCalls != 1 || docs.lastHistory.Action != "created_from_cart" {
		t.Fatalf("expected one created_from_cart history row, got %d %q", docs.historyCalls, docs.lastHistory.Action)
	}
}

func TestExportPersistsVerbatimCartSnapshot(t *testing.T) {
	docs := &fakeDocs{}
	renderer := &fakeRenderer{output: []byte("%PDF")}
	svc := newTestService(docs, &fakeClients{client: knownClient()}, &fakeMatcher{}, &fakeRendererSource{renderer: renderer}, nil)

	body := []byte(`{
		"type": "quote",
		"format": "pdf",
		"clientId": "client-1",
		"items": [{"id":"p1","type":"door","model":"DomeoDoors_Neo","width":800,"qty":1,"unitPrice":1000,"photo":"door.jpg","comment":"клиент просил белую"}]
	}`)
	var req transport.ExportRequest
	if err := json.Unmarshal(body, &req); err != nil {
		t.Fatalf("failed to decode request: %v", err)
	}

	if _, err := svc.Export(context.Background(), req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(docs.created) != 1 {
		t.Fatalf("expected 1 persisted document, got %d", len(docs.created))
	}
	if string(docs.created[0].CartData) != string(req.RawItems) {
		t.Fatalf("cart_data must be the caller's items byte-for-byte:\ngot  %s\nwant %s",
			docs.created[0].CartData, req.RawItems)
	}

	var snapshot []map[string]interface{}
	if err := json.Unmarshal(docs.created[0].CartData, &snapshot); err != nil {
		t.Fatalf("snapshot must stay valid JSON: %v", err)
	}
	if snapshot[0]["photo"] != "door.jpg" || snapshot[0]["comment"] != "клиент просил белую" {
		t.Fatalf("caller-supplied fields lost from the snapshot: %v", snapshot[0])
	}
}

func TestExportOrderStatusPending(t *testing.T) {
	docs := &fakeDocs{}
	renderer := &fakeRenderer{output: []byte("%PDF")}
	svc := newTestService(docs, &fakeClients{client: knownClient()}, &fakeMatcher{}, &fakeRendererSource{renderer: renderer}, nil)

	req := quoteRequest()
	req.Type = "order"
	if _, err := svc.Export(context.Background(), req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if docs.created[0].Status != "PENDING" {
		t.Fatalf("order status must be PENDING, got %q", docs.created[0].Status)
	}
	if docs.created[0].Number != "Заказ-1700000000000" {
		t.Fatalf("unexpected stored order number %q", docs.created[0].Number)
	}
}

func TestExportReusesExistingDocument(t *testing.T) {
	req := quoteRequest()
	cartData, _ := json.Marshal(req.Items)
	docs := &fakeDocs{}
	docs.strictDoc = &repository.Document{ID: "doc-1", Number: "КП-111", CartData: cartData}

	renderer := &fakeRenderer{output: []byte("%PDF")}
	svc := newTestService(docs, &fakeClients{client: knownClient()}, &fakeMatcher{}, &fakeRendererSource{renderer: renderer}, nil)

	result, err := svc.Export(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !result.Reused {
		t.Fatal("expected reuse of the existing document")
	}
	if result.DocumentID != "doc-1" {
		t.Fatalf("result must reference the existing document, got %q", result.DocumentID)
	}
	if result.DocumentNumber != "KP-1700000000000" {
		t.Fatalf("reuse must still mint a fresh export number, got %q", result.DocumentNumber)
	}
	if len(docs.created) != 0 {
		t.Fatalf("reuse must not persist anything, got %d creates", len(docs.created))
	}
}

func TestExportPersistenceErrorAbsorbed(t *testing.T) {
	docs := &fakeDocs{createErr: errors.New("disk full")}
	renderer := &fakeRenderer{output: []byte("%PDF")}
	svc := newTestService(docs, &fakeClients{client: knownClient()}, &fakeMatcher{}, &fakeRendererSource{renderer: renderer}, nil)

	result, err := svc.Export(context.Background(), quoteRequest())
	if err != nil {
		t.Fatalf("persistence failure must not fail the export: %v", err)
	}
	if result.DocumentID != "" {
		t.Fatalf("failed persistence must leave the id empty, got %q", result.DocumentID)
	}
	if len(result.Buffer) == 0 {
		t.Fatal("the rendered file must still be returned")
	}
}

func TestExportLineageFailureSkipsPersistence(t *testing.T) {
	docs := &fakeDocs{parentErr: errors.New("quote missing")}
	renderer := &fakeRenderer{output: []byte("%PDF")}
	svc := newTestService(docs, &fakeClients{client: knownClient()}, &fakeMatcher{}, &fakeRendererSource{renderer: renderer}, nil)

	req := quoteRequest()
	req.Type = "order"
	parent := "quote-404"
	req.ParentDocumentID = &parent

	result, err := svc.Export(context.Background(), req)
	if err != nil {
		t.Fatalf("lineage failure must not fail the export: %v", err)
	}
	if docs.parentCalls != 1 {
		t.Fatalf("expected one lineage check, got %d", docs.parentCalls)
	}
	if len(docs.created) != 0 {
		t.Fatal("lineage failure must skip persistence")
	}
	if result.DocumentID != "" {
		t.Fatalf("expected empty document id, got %q", result.DocumentID)
	}
}

func TestExportPlaceholderClient(t *testing.T) {
	docs := &fakeDocs{}
	renderer := &fakeRenderer{output: []byte("%PDF")}
	clients := &fakeClients{err: apperr.NotFound("client not found")}
	svc := newTestService(docs, clients, &fakeMatcher{}, &fakeRendererSource{renderer: renderer}, nil)

	if _, err := svc.Export(context.Background(), quoteRequest()); err != nil {
		t.Fatalf("missing client must degrade to placeholder: %v", err)
	}
	if renderer.data.Client.Name != "Тестовый Клиент" {
		t.Fatalf("expected placeholder client, got %q", renderer.data.Client.Name)
	}
	if renderer.data.Client.Phone != "+7 (999) 123-45-67" {
		t.Fatalf("unexpected placeholder phone %q", renderer.data.Client.Phone)
	}
}

func TestExportRequireClientAborts(t *testing.T) {
	clients := &fakeClients{err: apperr.NotFound("client not found")}
	svc := newTestService(&fakeDocs{}, clients, &fakeMatcher{}, &fakeRendererSource{renderer: &fakeRenderer{}}, nil)

	req := quoteRequest()
	req.RequireClient = true

	_, err := svc.Export(context.Background(), req)
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected NotFound abort, got %v", err)
	}
}

func TestExportRenderErrorPropagates(t *testing.T) {
	renderer := &fakeRenderer{err: apperr.Rendering("chrome crashed", errors.New("exit 1"))}
	svc := newTestService(&fakeDocs{}, &fakeClients{client: knownClient()}, &fakeMatcher{}, &fakeRendererSource{renderer: renderer}, nil)

	_, err := svc.Export(context.Background(), quoteRequest())
	if !apperr.Is(err, apperr.KindRendering) {
		t.Fatalf("expected rendering error, got %v", err)
	}
}

func TestExportMatcherErrorDegradesToCartFields(t *testing.T) {
	renderer := &fakeRenderer{output: []byte("%PDF")}
	matcher := &fakeMatcher{err: errors.New("catalog unavailable")}
	svc := newTestService(&fakeDocs{}, &fakeClients{client: knownClient()}, matcher, &fakeRendererSource{renderer: renderer}, nil)

	if _, err := svc.Export(context.Background(), quoteRequest()); err != nil {
		t.Fatalf("matcher failure must not fail the export: %v", err)
	}
	if len(renderer.data.Items) != 1 {
		t.Fatalf("expected one rendered item, got %d", len(renderer.data.Items))
	}
	if renderer.data.Items[0].Matches != nil {
		t.Fatalf("matcher failure must leave matches empty, got %+v", renderer.data.Items[0].Matches)
	}
}

func TestExportArchivesArtifact(t *testing.T) {
	archive := &fakeArchiver{}
	renderer := &fakeRenderer{output: []byte("%PDF")}
	svc := newTestService(&fakeDocs{}, &fakeClients{client: knownClient()}, &fakeMatcher{}, &fakeRendererSource{renderer: renderer}, archive)

	result, err := svc.Export(context.Background(), quoteRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if archive.calls != 1 || archive.objectName != result.Filename {
		t.Fatalf("expected one archive upload of %q, got %d of %q", result.Filename, archive.calls, archive.objectName)
	}
	if archive.contentType != "application/pdf" {
		t.Fatalf("unexpected content type %q", archive.contentType)
	}
}

func TestExportArchiveErrorAbsorbed(t *testing.T) {
	archive := &fakeArchiver{err: errors.New("bucket gone")}
	renderer := &fakeRenderer{output: []byte("%PDF")}
	svc := newTestService(&fakeDocs{}, &fakeClients{client: knownClient()}, &fakeMatcher{}, &fakeRendererSource{renderer: renderer}, archive)

	if _, err := svc.Export(context.Background(), quoteRequest()); err != nil {
		t.Fatalf("archive failure must not fail the export: %v", err)
	}
}

func TestExportUnsupportedFormat(t *testing.T) {
	svc := newTestService(&fakeDocs{}, &fakeClients{client: knownClient()}, &fakeMatcher{}, &fakeRendererSource{err: errors.New("unsupported format")}, nil)

	req := quoteRequest()
	req.Format = "docx"
	_, err := svc.Export(context.Background(), req)
	if !apperr.Is(err, apperr.KindBadRequest) {
		t.Fatalf("expected BadRequest for unsupported format, got %v", err)
	}
}
