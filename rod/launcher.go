// Package rod implements the sitecrawl renderer capability with headless
// Chrome driven by go-rod.
package rod

import (
	"context"
	"time"

	"github.com/fwojciec/sitecrawl"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
)

// DefaultSettleTimeout bounds the wait for in-flight jQuery requests after
// the load event.
const DefaultSettleTimeout = 10 * time.Second

// DefaultUserAgent is a desktop Chrome user agent.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Default viewport dimensions.
const (
	DefaultViewportWidth  = 1920
	DefaultViewportHeight = 1080
)

// Ensure Launcher implements sitecrawl.BrowserLauncher at compile time.
var _ sitecrawl.BrowserLauncher = (*Launcher)(nil)

// Launcher starts headless Chrome sessions. Rod's launcher locates a local
// Chrome or downloads one on first use.
type Launcher struct {
	bin            string
	headless       bool
	userAgent      string
	viewportWidth  int
	viewportHeight int
	settleTimeout  time.Duration
}

// Option configures a Launcher.
type Option func(*Launcher)

// WithHeadless toggles headless mode. Defaults to true.
func WithHeadless(headless bool) Option {
	return func(l *Launcher) {
		l.headless = headless
	}
}

// WithBin sets the path of the browser binary.
func WithBin(path string) Option {
	return func(l *Launcher) {
		l.bin = path
	}
}

// WithUserAgent sets the user agent of every page.
func WithUserAgent(ua string) Option {
	return func(l *Launcher) {
		l.userAgent = ua
	}
}

// WithViewport sets the viewport of every page.
func WithViewport(width, height int) Option {
	return func(l *Launcher) {
		l.viewportWidth = width
		l.viewportHeight = height
	}
}

// WithSettleTimeout sets how long a render waits for the page to go idle
// after the load event. Defaults to DefaultSettleTimeout (10s).
func WithSettleTimeout(d time.Duration) Option {
	return func(l *Launcher) {
		l.settleTimeout = d
	}
}

// NewLauncher creates a new Launcher.
func NewLauncher(opts ...Option) *Launcher {
	l := &Launcher{
		headless:       true,
		userAgent:      DefaultUserAgent,
		viewportWidth:  DefaultViewportWidth,
		viewportHeight: DefaultViewportHeight,
		settleTimeout:  DefaultSettleTimeout,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Launch starts a browser process, connects to it and opens an isolated
// incognito context that every renderer of the session shares.
// The session outlives ctx; it ends when the returned Browser is closed.
func (l *Launcher) Launch(ctx context.Context) (sitecrawl.Browser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	lnchr := launcher.New().
		Set("disable-background-timer-throttling").
		Set("disable-backgrounding-occluded-windows").
		Set("disable-renderer-backgrounding").
		Set("disable-dev-shm-usage").
		Set("disable-hang-monitor").
		Set("disable-gpu").
		NoSandbox(true).
		Leakless(true).
		Headless(l.headless)
	if l.bin != "" {
		lnchr = lnchr.Bin(l.bin)
	}

	u, err := lnchr.Launch()
	if err != nil {
		return nil, sitecrawl.Wrap(sitecrawl.ESETUP, err, "launching browser")
	}

	root := rod.New().ControlURL(u)
	if err := root.Connect(); err != nil {
		lnchr.Kill()
		return nil, sitecrawl.Wrap(sitecrawl.ESETUP, err, "connecting to browser")
	}

	incognito, err := root.Incognito()
	if err != nil {
		_ = root.Close()
		lnchr.Kill()
		return nil, sitecrawl.Wrap(sitecrawl.ESETUP, err, "creating browser context")
	}

	return &Browser{
		root:      root,
		context:   incognito,
		launcher:  lnchr,
		userAgent: l.userAgent,
		width:     l.viewportWidth,
		height:    l.viewportHeight,
		settle:    l.settleTimeout,
	}, nil
}
