package mock

import (
	"context"

	"github.com/fwojciec/sitecrawl"
)

var _ sitecrawl.Renderer = (*Renderer)(nil)

// Renderer is a mock implementation of sitecrawl.Renderer.
type Renderer struct {
	RenderFn func(ctx context.Context, url string) (*sitecrawl.Response, error)
	CloseFn  func() error
}

func (r *Renderer) Render(ctx context.Context, url string) (*sitecrawl.Response, error) {
	return r.RenderFn(ctx, url)
}

func (r *Renderer) Close() error {
	return r.CloseFn()
}

var _ sitecrawl.Browser = (*Browser)(nil)

// Browser is a mock implementation of sitecrawl.Browser.
type Browser struct {
	NewRendererFn func(ctx context.Context) (sitecrawl.Renderer, error)
	CloseFn       func() error
}

func (b *Browser) NewRenderer(ctx context.Context) (sitecrawl.Renderer, error) {
	return b.NewRendererFn(ctx)
}

func (b *Browser) Close() error {
	return b.CloseFn()
}

var _ sitecrawl.BrowserLauncher = (*BrowserLauncher)(nil)

// BrowserLauncher is a mock implementation of sitecrawl.BrowserLauncher.
type BrowserLauncher struct {
	LaunchFn func(ctx context.Context) (sitecrawl.Browser, error)
}

func (l *BrowserLauncher) Launch(ctx context.Context) (sitecrawl.Browser, error) {
	return l.LaunchFn(ctx)
}

var _ sitecrawl.DomainLimiter = (*DomainLimiter)(nil)

// DomainLimiter is a mock implementation of sitecrawl.DomainLimiter.
type DomainLimiter struct {
	WaitFn func(ctx context.Context, domain string) error
}

func (l *DomainLimiter) Wait(ctx context.Context, domain string) error {
	return l.WaitFn(ctx, domain)
}
