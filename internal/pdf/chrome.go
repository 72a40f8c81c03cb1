// Package pdf turns invoices and statements into PDF documents, either by
// printing the rendered HTML through headless Chromium or by laying the page out
// directly with gofpdf.
package pdf

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// Rasterizer converts a self-contained HTML document into PDF bytes.
type Rasterizer interface {
	Rasterize(ctx context.Context, document string) ([]byte, error)
}

// ChromeRasterizer prints HTML to PDF via headless Chromium. If Chromium is
// unavailable it returns an error so the caller can fall back or retry.
type ChromeRasterizer struct {
	ExecPath string
	Timeout  time.Duration
}

func NewChromeRasterizer(execPath string, timeout time.Duration) *ChromeRasterizer {
	return &ChromeRasterizer{ExecPath: execPath, Timeout: timeout}
}

func (r *ChromeRasterizer) Rasterize(ctx context.Context, document string) ([]byte, error) {
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
	)
	if r.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(r.ExecPath))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, allocOpts...)
	defer cancelAlloc()

	timeout := r.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	runCtx, cancelRun := chromedp.NewContext(allocCtx)
	defer cancelRun()
	runCtx, cancelTimeout := context.WithTimeout(runCtx, timeout)
	defer cancelTimeout()

	var buf []byte
	err := chromedp.Run(runCtx,
		chromedp.Navigate("data:text/html,"+url.PathEscape(document)),
		chromedp.ActionFunc(func(ctx context.Context) error {
			out, _, err := page.PrintToPDF().
				WithPrintBackground(true).
				WithPreferCSSPageSize(true).
				Do(ctx)
			if err != nil {
				return err
			}
			buf = out
			return nil
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("chromedp run failed: %w", err)
	}
	return buf, nil
}
