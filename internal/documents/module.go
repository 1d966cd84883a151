// Package documents wires the export pipeline into the HTTP layer.
package documents

import (
	"configurator_backend/internal/documents/handler"
	internalhttp "configurator_backend/internal/http"
)

// Module bundles the document export routes.
type Module struct {
	handler *handler.Handler
}

// NewModule creates the documents module.
func NewModule(h *handler.Handler) *Module {
	return &Module{handler: h}
}

// Name implements http.Module.
func (m *Module) Name() string { return "documents" }

// RegisterRoutes implements http.Module.
func (m *Module) RegisterRoutes(ctx *internalhttp.RouterContext) {
	docs := ctx.V1.Group("/documents")
	docs.POST("/export", m.handler.Export)
	docs.GET("/export/formats", m.handler.Formats)
}
