package rod

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fwojciec/sitecrawl"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// idleJS reports whether the document finished loading and jQuery, when the
// page uses it, has no requests in flight.
const idleJS = `() => document.readyState === 'complete' &&
	(typeof jQuery === 'undefined' || jQuery.active === 0)`

// Ensure Renderer implements sitecrawl.Renderer at compile time.
var _ sitecrawl.Renderer = (*Renderer)(nil)

// Renderer is one browser tab. It renders one URL at a time; the pool
// guarantees exclusive use.
type Renderer struct {
	page   *rod.Page
	settle time.Duration
	closed atomic.Bool
}

// Render navigates the tab to url, waits for the load event and for the page
// to settle, and returns the rendered HTML. The status code is that of the
// main frame's document response, or 0 if none was observed.
func (r *Renderer) Render(ctx context.Context, url string) (*sitecrawl.Response, error) {
	if r.closed.Load() {
		return nil, sitecrawl.Errorf(sitecrawl.ECLOSED, "renderer closed")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	page := r.page.Context(ctx)

	var (
		mu     sync.Mutex
		status int
	)
	go page.EachEvent(func(e *proto.NetworkResponseReceived) {
		if e.Type != proto.NetworkResourceTypeDocument || e.Response == nil {
			return
		}
		if e.FrameID != "" && e.FrameID != page.FrameID {
			return
		}
		mu.Lock()
		status = e.Response.Status
		mu.Unlock()
	})()

	if err := page.Navigate(url); err != nil {
		return nil, renderError(ctx, err, "navigating to %s", url)
	}
	if err := page.WaitLoad(); err != nil {
		return nil, renderError(ctx, err, "waiting for load of %s", url)
	}

	settling := page.Timeout(r.settle)
	err := settling.Wait(rod.Eval(idleJS))
	settling.CancelTimeout()
	if err != nil {
		return nil, renderError(ctx, err, "waiting for %s to settle", url)
	}

	html, err := page.HTML()
	if err != nil {
		return nil, renderError(ctx, err, "reading HTML of %s", url)
	}

	resp := &sitecrawl.Response{URL: url, HTML: html}
	if info, err := page.Info(); err == nil && info.URL != "" {
		resp.URL = info.URL
	}
	mu.Lock()
	resp.StatusCode = status
	mu.Unlock()
	return resp, nil
}

// Close closes the tab. Close is safe to call multiple times.
func (r *Renderer) Close() error {
	if !r.closed.CompareAndSwap(false, true) {
		return nil
	}
	return r.page.Close()
}

// renderError keeps context errors recognizable and classifies the rest as
// navigation failures.
func renderError(ctx context.Context, err error, format string, args ...any) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return sitecrawl.Wrap(sitecrawl.ENAVIGATION, ctxErr, format, args...)
	}
	return sitecrawl.Wrap(sitecrawl.ENAVIGATION, err, format, args...)
}
