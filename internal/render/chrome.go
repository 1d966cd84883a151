package render

import (
	"context"
	"os"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// Well-known Chrome/Chromium install locations, tried in order when no
// override is configured. The last entry is the hardcoded fallback used
// even when none of the paths exist.
var chromePaths = []string{
	"/usr/bin/google-chrome",
	"/usr/bin/google-chrome-stable",
	"/usr/bin/chromium",
	"/usr/bin/chromium-browser",
	"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
}

const defaultChromePath = "/usr/bin/google-chrome"

// ResolveExecutable picks the browser binary: explicit configuration
// override, then the CHROME_BIN platform variable, then well-known
// filesystem paths, then a hardcoded default.
func ResolveExecutable(override string) string {
	return resolveExecutable(override, os.Getenv, func(path string) bool {
		_, err := os.Stat(path)
		return err == nil
	})
}

func resolveExecutable(override string, getenv func(string) string, exists func(string) bool) string {
	if override != "" {
		return override
	}
	if fromEnv := getenv("CHROME_BIN"); fromEnv != "" {
		return fromEnv
	}
	for _, path := range chromePaths {
		if exists(path) {
			return path
		}
	}
	return defaultChromePath
}

// ChromeLauncher launches headless Chrome via the DevTools protocol.
type ChromeLauncher struct {
	// ExecPath overrides browser binary resolution when set.
	ExecPath string
}

// Launch starts a browser process. Sandboxing is disabled for containerized
// execution.
func (l *ChromeLauncher) Launch(ctx context.Context) (Browser, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.NoSandbox,
		chromedp.ExecPath(ResolveExecutable(l.ExecPath)),
		chromedp.Flag("disable-setuid-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-web-security", true),
	)

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)

	// Start the process eagerly so launch failures surface here, not on
	// the first page action.
	if err := chromedp.Run(browserCtx); err != nil {
		cancelBrowser()
		cancelAlloc()
		return nil, err
	}

	return &chromeBrowser{
		ctx:           browserCtx,
		cancelBrowser: cancelBrowser,
		cancelAlloc:   cancelAlloc,
	}, nil
}

type chromeBrowser struct {
	ctx           context.Context
	cancelBrowser context.CancelFunc
	cancelAlloc   context.CancelFunc
}

func (b *chromeBrowser) NewPage(_ context.Context) (Page, error) {
	pageCtx, cancel := chromedp.NewContext(b.ctx)
	return &chromePage{ctx: pageCtx, cancel: cancel}, nil
}

func (b *chromeBrowser) Close() error {
	b.cancelBrowser()
	b.cancelAlloc()
	return nil
}

type chromePage struct {
	ctx    context.Context
	cancel context.CancelFunc
}

// SetContent loads the HTML into the tab's main frame and waits for the
// document to become ready. The content is inline, so readiness is
// equivalent to network idle.
func (p *chromePage) SetContent(_ context.Context, html string) error {
	return chromedp.Run(p.ctx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			frameTree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(frameTree.Frame.ID, html).Do(ctx)
		}),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
}

// PDF prints the tab to an A4 page with 20mm margins.
func (p *chromePage) PDF(_ context.Context) ([]byte, error) {
	var buffer []byte
	err := chromedp.Run(p.ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		// A4 in inches; 20mm margins are 0.79in.
		var printErr error
		buffer, _, printErr = page.PrintToPDF().
			WithPrintBackground(true).
			WithPaperWidth(8.27).
			WithPaperHeight(11.69).
			WithMarginTop(0.79).
			WithMarginBottom(0.79).
			WithMarginLeft(0.79).
			WithMarginRight(0.79).
			Do(ctx)
		return printErr
	}))
	if err != nil {
		return nil, err
	}
	return buffer, nil
}

func (p *chromePage) Close() error {
	p.cancel()
	return nil
}
