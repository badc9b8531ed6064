// Package http provides an HTTP-based renderer for static sites that don't
// require JavaScript rendering.
package http

import (
	"context"
	"io"
	"mime"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fwojciec/sitecrawl"
)

// DefaultFetchTimeout is the default timeout for HTTP requests.
const DefaultFetchTimeout = 10 * time.Second

// DefaultMaxBodyBytes caps how much of a page is read.
const DefaultMaxBodyBytes = 10 << 20

// Ensure the static types implement the renderer capability at compile time.
var (
	_ sitecrawl.BrowserLauncher = (*Launcher)(nil)
	_ sitecrawl.Browser         = (*Browser)(nil)
	_ sitecrawl.Renderer        = (*Renderer)(nil)
)

// Launcher opens static "browser sessions" backed by one HTTP client.
// Unlike rod.Launcher, this does not execute JavaScript and is suitable
// for static sites only.
type Launcher struct {
	client       *http.Client
	timeout      time.Duration
	userAgent    string
	maxBodyBytes int64
}

// Option configures a Launcher.
type Option func(*Launcher)

// WithTimeout sets the timeout for HTTP requests.
// Defaults to DefaultFetchTimeout (10s) if not specified.
func WithTimeout(d time.Duration) Option {
	return func(l *Launcher) {
		l.timeout = d
	}
}

// WithClient sets the HTTP client. A client without a Timeout gets the
// launcher's timeout.
func WithClient(c *http.Client) Option {
	return func(l *Launcher) {
		l.client = c
	}
}

// WithUserAgent sets the User-Agent header of every request.
func WithUserAgent(ua string) Option {
	return func(l *Launcher) {
		l.userAgent = ua
	}
}

// WithMaxBodyBytes caps how much of each response body is read.
func WithMaxBodyBytes(n int64) Option {
	return func(l *Launcher) {
		l.maxBodyBytes = n
	}
}

// NewLauncher creates a new static Launcher.
func NewLauncher(opts ...Option) *Launcher {
	l := &Launcher{
		timeout:      DefaultFetchTimeout,
		maxBodyBytes: DefaultMaxBodyBytes,
	}
	for _, opt := range opts {
		opt(l)
	}

	if l.client == nil {
		l.client = &http.Client{}
	}
	if l.client.Timeout == 0 {
		c := *l.client
		c.Timeout = l.timeout
		l.client = &c
	}

	return l
}

// Launch returns a Browser sharing the launcher's client.
func (l *Launcher) Launch(ctx context.Context) (sitecrawl.Browser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &Browser{launcher: l}, nil
}

// Browser hands out renderers that share one HTTP client.
type Browser struct {
	launcher *Launcher
	closed   atomic.Bool
}

// NewRenderer returns a renderer using the session's client.
func (b *Browser) NewRenderer(ctx context.Context) (sitecrawl.Renderer, error) {
	if b.closed.Load() {
		return nil, sitecrawl.Errorf(sitecrawl.ECLOSED, "browser closed")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &Renderer{launcher: b.launcher}, nil
}

// Close releases idle connections. Close is safe to call multiple times.
func (b *Browser) Close() error {
	if b.closed.CompareAndSwap(false, true) {
		b.launcher.client.CloseIdleConnections()
	}
	return nil
}

// Renderer fetches pages with plain HTTP GET requests.
type Renderer struct {
	launcher *Launcher
	closed   atomic.Bool
}

// Render fetches url and returns its body. Redirects are followed and the
// final URL is reported. Non-2xx responses are not errors; the status is
// returned for the caller to judge. Bodies of non-HTML responses are not
// read.
func (r *Renderer) Render(ctx context.Context, url string) (*sitecrawl.Response, error) {
	if r.closed.Load() {
		return nil, sitecrawl.Errorf(sitecrawl.ECLOSED, "renderer closed")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, sitecrawl.Wrap(sitecrawl.ENAVIGATION, err, "creating request for %s", url)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	if ua := r.launcher.userAgent; ua != "" {
		req.Header.Set("User-Agent", ua)
	}

	resp, err := r.launcher.client.Do(req)
	if err != nil {
		return nil, sitecrawl.Wrap(sitecrawl.ENAVIGATION, err, "fetching %s", url)
	}
	defer resp.Body.Close()

	out := &sitecrawl.Response{URL: resp.Request.URL.String(), StatusCode: resp.StatusCode}
	if !isHTML(resp.Header.Get("Content-Type")) {
		return out, nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, r.launcher.maxBodyBytes))
	if err != nil {
		return nil, sitecrawl.Wrap(sitecrawl.ENAVIGATION, err, "reading %s", url)
	}
	out.HTML = string(body)
	return out, nil
}

// Close marks the renderer closed. Close is safe to call multiple times.
func (r *Renderer) Close() error {
	r.closed.Store(true)
	return nil
}

// isHTML reports whether a Content-Type names an HTML document. A missing
// Content-Type is treated as HTML.
func isHTML(contentType string) bool {
	if contentType == "" {
		return true
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "text/html" || mediaType == "application/xhtml+xml" || strings.HasSuffix(mediaType, "+html")
}
