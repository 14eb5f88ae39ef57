// Package fetch - browser.go renders job pages whose description only appears after JavaScript runs.
package fetch

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
)

// MinDescriptionLength is the shortest extracted text accepted without rendering.
// Client-rendered boards return little more than a loading shell over plain HTTP.
const MinDescriptionLength = 500

// ShouldUseBrowser reports whether text is too short to be a real description
func ShouldUseBrowser(text string) bool {
	return len(strings.TrimSpace(text)) < MinDescriptionLength
}

// renderFunc renders a URL to HTML; replaced in tests
type renderFunc func(ctx context.Context, url string, platform Platform, timeout time.Duration, logger *slog.Logger) (string, error)

var _ renderFunc = WithBrowser

// WithBrowser loads url in headless Chrome and returns the page HTML once the
// platform's description element is ready (the body for unknown boards).
// Chrome or Chromium must be installed.
func WithBrowser(ctx context.Context, url string, platform Platform, timeout time.Duration, logger *slog.Logger) (string, error) {
	if logger == nil {
		logger = slog.Default()
	}
	waitFor := "body"
	if platform.Name != GenericPlatform.Name && len(platform.Content) > 0 {
		waitFor = platform.Content[0]
	}
	logger.Debug("rendering job page", "url", url, "platform", platform.Name, "wait_for", waitFor)

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx,
		append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", true),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
			chromedp.UserAgent(DefaultUserAgent),
		)...,
	)
	defer cancelAlloc()

	tabCtx, cancelTab := chromedp.NewContext(allocCtx)
	defer cancelTab()
	tabCtx, cancelTimeout := context.WithTimeout(tabCtx, timeout)
	defer cancelTimeout()

	var html string
	if err := chromedp.Run(tabCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady(waitFor, chromedp.ByQuery),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	); err != nil {
		return "", &Error{URL: url, Message: "browser rendering failed", Cause: err}
	}

	logger.Debug("rendered job page", "url", url, "bytes", len(html))
	return html, nil
}
