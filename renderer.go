package sitecrawl

import "context"

// Response is the outcome of rendering a page.
type Response struct {
	// URL is the URL that was requested.
	URL string

	// StatusCode is the HTTP status of the main document.
	// Zero when the renderer could not observe a status.
	StatusCode int

	// HTML is the rendered document.
	HTML string
}

// Renderer loads a URL and returns its rendered HTML.
// A Renderer is stateful (one browser tab) and is not safe for concurrent use;
// callers obtain exclusive access through a pool lease.
type Renderer interface {
	// Render navigates to the URL, waits for the page to settle and returns
	// the rendered document. The context bounds the whole navigation.
	Render(ctx context.Context, url string) (*Response, error)

	// Close releases the renderer's resources.
	Close() error
}

// Browser is a shared browser session that hands out independent renderers.
type Browser interface {
	// NewRenderer opens a new renderer (tab) within the session.
	NewRenderer(ctx context.Context) (Renderer, error)

	// Close tears down the session. Renderers must be closed first.
	Close() error
}

// BrowserLauncher starts browser sessions.
type BrowserLauncher interface {
	// Launch starts a new session. Returns ESETUP if the browser cannot start.
	Launch(ctx context.Context) (Browser, error)
}

// DomainLimiter provides per-domain rate limiting.
type DomainLimiter interface {
	// Wait blocks until the rate limit allows a request to the domain.
	// Returns an error if the context is canceled.
	Wait(ctx context.Context, domain string) error
}
