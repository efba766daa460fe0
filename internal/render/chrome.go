package render

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"github.com/picpress/picpress/internal/layout"
)

// cssPixelsPerInch matches the 96-DPI layout units used by the composer.
const cssPixelsPerInch = 96.0

// defaultRenderTimeout bounds a single print run, including browser startup.
const defaultRenderTimeout = 60 * time.Second

// ChromeRenderer prints page markup to PDF with headless Chrome. A fresh
// browser context is allocated per render; the markup is self-contained
// (inline payloads only), so no network access is needed inside the page.
type ChromeRenderer struct {
	spec    layout.PageSpec
	timeout time.Duration
}

// NewChromeRenderer creates a renderer producing pages of the given spec.
func NewChromeRenderer(spec layout.PageSpec, timeout time.Duration) *ChromeRenderer {
	if timeout <= 0 {
		timeout = defaultRenderTimeout
	}
	return &ChromeRenderer{spec: spec, timeout: timeout}
}

// Render loads the markup into a blank page and prints it with zero margins
// and the paper size matching the page spec.
func (r *ChromeRenderer) Render(ctx context.Context, html string) ([]byte, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.DisableGPU,
		chromedp.NoSandbox,
		chromedp.Headless,
	)
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	browserCtx, cancelTimeout := context.WithTimeout(browserCtx, r.timeout)
	defer cancelTimeout()

	var pdf []byte
	err := chromedp.Run(browserCtx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			frameTree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(frameTree.Frame.ID, html).Do(ctx)
		}),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			pdf, _, err = page.PrintToPDF().
				WithPrintBackground(true).
				WithPaperWidth(r.spec.Width / cssPixelsPerInch).
				WithPaperHeight(r.spec.Height / cssPixelsPerInch).
				WithMarginTop(0).
				WithMarginBottom(0).
				WithMarginLeft(0).
				WithMarginRight(0).
				WithPreferCSSPageSize(true).
				Do(ctx)
			return err
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("headless chrome print failed: %w", err)
	}
	return pdf, nil
}
