// Package capture screenshots a published HTML timetable page so the
// image can be handed to the vision extraction step.
package capture

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
)

const (
	defaultWidth      = 1280
	defaultHeight     = 1600
	defaultTimeoutSec = 30
)

// Options defines parameters for a Chromium-based screenshot capture.
type Options struct {
	// URL of the timetable page, e.g. "https://campus.example.edu/timetable".
	URL string

	// WaitSelector, if set, is a CSS selector that must become visible
	// before the screenshot is taken. Empty waits only for navigation.
	WaitSelector string

	// Width and Height are the viewport dimensions in pixels. Zero uses
	// the defaults.
	Width  int
	Height int

	// Timeout bounds the entire capture operation.
	Timeout time.Duration
}

// TimetablePNG launches a headless Chromium via chromedp, navigates to
// opts.URL and returns a full-page PNG screenshot. The caller feeds the
// bytes to the vision extractor.
func TimetablePNG(parentCtx context.Context, opts Options) ([]byte, error) {
	if opts.URL == "" {
		return nil, fmt.Errorf("capture: URL is required")
	}
	if opts.Width <= 0 {
		opts.Width = defaultWidth
	}
	if opts.Height <= 0 {
		opts.Height = defaultHeight
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeoutSec * time.Second
	}

	ctx, cancel := chromedp.NewContext(parentCtx)
	defer cancel()

	ctx, timeoutCancel := context.WithTimeout(ctx, opts.Timeout)
	defer timeoutCancel()

	tasks := chromedp.Tasks{
		chromedp.EmulateViewport(int64(opts.Width), int64(opts.Height)),
		chromedp.Navigate(opts.URL),
	}
	if opts.WaitSelector != "" {
		tasks = append(tasks, chromedp.WaitVisible(opts.WaitSelector, chromedp.ByQuery))
	}
	// Small extra delay to allow final paints.
	tasks = append(tasks, chromedp.Sleep(500*time.Millisecond))

	var png []byte
	tasks = append(tasks, chromedp.FullScreenshot(&png, 100))

	if err := chromedp.Run(ctx, tasks); err != nil {
		return nil, fmt.Errorf("capture: chromedp run failed: %w", err)
	}
	return png, nil
}
