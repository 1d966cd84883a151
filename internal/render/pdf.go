package render

import (
	"context"
	"time"

	"configurator_backend/platform/apperr"
	"configurator_backend/platform/logger"
)

// Page is one browser tab. Close must be called exactly once.
type Page interface {
	SetContent(ctx context.Context, html string) error
	PDF(ctx context.Context) ([]byte, error)
	Close() error
}

// Browser is a running headless-browser instance. Close must be called
// exactly once; leaked browser processes are the primary failure mode here.
type Browser interface {
	NewPage(ctx context.Context) (Page, error)
	Close() error
}

// Launcher starts a browser instance.
type Launcher interface {
	Launch(ctx context.Context) (Browser, error)
}

// PDFRenderer prints the HTML document through a headless browser.
type PDFRenderer struct {
	launcher Launcher
	timeout  time.Duration
	log      *logger.Logger
}

// NewPDFRenderer creates a PDF renderer with the given total render budget.
func NewPDFRenderer(launcher Launcher, timeout time.Duration, log *logger.Logger) *PDFRenderer {
	return &PDFRenderer{launcher: launcher, timeout: timeout, log: log}
}

// Render builds the HTML document and prints it to PDF. The page and the
// browser are closed exactly once on both the success and the failure path.
func (r *PDFRenderer) Render(ctx context.Context, data ExportData) ([]byte, error) {
	started := time.Now()

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	htmlContent := buildHTML(data)

	browser, err := r.launcher.Launch(ctx)
	if err != nil {
		return nil, apperr.Rendering("failed to launch browser: "+err.Error(), err)
	}

	page, err := browser.NewPage(ctx)
	if err != nil {
		_ = browser.Close()
		return nil, apperr.Rendering("failed to open page: "+err.Error(), err)
	}
	defer func() {
		if closeErr := page.Close(); closeErr != nil {
			r.log.Warn("failed to close page", "error", closeErr)
		}
		if closeErr := browser.Close(); closeErr != nil {
			r.log.Warn("failed to close browser", "error", closeErr)
		}
	}()

	if err := page.SetContent(ctx, htmlContent); err != nil {
		return nil, apperr.Rendering("failed to set page content: "+err.Error(), err)
	}

	buffer, err := page.PDF(ctx)
	if err != nil {
		return nil, apperr.Rendering("PDF generation failed: "+err.Error(), err)
	}

	r.log.RenderTiming(FormatPDF, time.Since(started).Milliseconds())
	return buffer, nil
}
