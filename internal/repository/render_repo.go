package repository

import (
	"context"
	"time"
)

// Browser is one render session. It owns every page it opens.
type Browser interface {
	// NewPage opens an independent page context.
	NewPage(ctx context.Context) (Page, error)
	// MultiPage reports whether pages can be driven concurrently.
	MultiPage() bool
	Close() error
}

// BrowserLauncher starts a render session. Failures wrap ErrBrowserInit.
type BrowserLauncher func(ctx context.Context) (Browser, error)

// Page is a single rendered document.
type Page interface {
	// Navigate loads url, failing with ErrNavigationFailed after timeout.
	Navigate(ctx context.Context, url string, timeout time.Duration) error
	// WaitVisible blocks until selector matches a visible element.
	WaitVisible(ctx context.Context, selector string, timeout time.Duration) error
	// Count is the number of elements matching selector.
	Count(ctx context.Context, selector string) (int, error)
	// OuterHTML returns the markup of the index-th match of selector.
	OuterHTML(ctx context.Context, selector string, index int) (string, error)
	// Click clicks the index-th match of selector.
	Click(ctx context.Context, selector string, index int) error
	// Evaluate runs script in the document and decodes its result into out.
	Evaluate(ctx context.Context, script string, out any) error
	SetViewport(ctx context.Context, width, height int) error
	Close() error
}
