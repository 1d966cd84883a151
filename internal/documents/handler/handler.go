// Package handler exposes the document export HTTP endpoints.
package handler

import (
	"context"
	"net/http"

	"configurator_backend/internal/documents/transport"
	"configurator_backend/platform/httpkit"
	"configurator_backend/platform/logger"
	"configurator_backend/platform/validator"

	"github.com/gin-gonic/gin"
)

// Exporter runs the export pipeline.
type Exporter interface {
	Export(ctx context.Context, req transport.ExportRequest) (*transport.ExportResult, error)
}

// Handler handles document export requests.
type Handler struct {
	service  Exporter
	validate *validator.Validator
	log      *logger.Logger
}

// New creates a documents handler.
func New(service Exporter, validate *validator.Validator, log *logger.Logger) *Handler {
	return &Handler{service: service, validate: validate, log: log}
}

// Export handles POST /documents/export. The response body is the rendered
// file itself; document identifiers travel in headers.
func (h *Handler) Export(c *gin.Context) {
	var req transport.ExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "Validation failed", err.Error())
		return
	}

	result, err := h.service.Export(c.Request.Context(), req)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+result.Filename+`"`)
	c.Header("X-Document-Number", result.DocumentNumber)
	if result.DocumentID != "" {
		c.Header("X-Document-Id", result.DocumentID)
	}
	c.Data(http.StatusOK, result.MimeType, result.Buffer)
}

// Formats handles GET /documents/export/formats.
func (h *Handler) Formats(c *gin.Context) {
	formats := []string{"pdf", "excel", "csv"}
	httpkit.OK(c, gin.H{
		"quote":   formats,
		"invoice": formats,
		"order":   formats,
	})
}
