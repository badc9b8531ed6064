package rod

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/fwojciec/sitecrawl"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// Ensure Browser implements sitecrawl.Browser at compile time.
var _ sitecrawl.Browser = (*Browser)(nil)

// Browser is one Chrome session. Renderers are tabs in its incognito context.
// Browser is safe for concurrent use.
type Browser struct {
	root     *rod.Browser
	context  *rod.Browser
	launcher *launcher.Launcher

	userAgent string
	width     int
	height    int
	settle    time.Duration

	closed atomic.Bool
}

// NewRenderer opens a new tab configured with the session's viewport and
// user agent.
func (b *Browser) NewRenderer(ctx context.Context) (sitecrawl.Renderer, error) {
	if b.closed.Load() {
		return nil, sitecrawl.Errorf(sitecrawl.ECLOSED, "browser closed")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	page, err := b.context.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return nil, sitecrawl.Wrap(sitecrawl.ESETUP, err, "opening page")
	}

	if b.width > 0 && b.height > 0 {
		err = page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
			Width:             b.width,
			Height:            b.height,
			DeviceScaleFactor: 1,
		})
		if err != nil {
			_ = page.Close()
			return nil, sitecrawl.Wrap(sitecrawl.ESETUP, err, "setting viewport")
		}
	}
	if b.userAgent != "" {
		if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: b.userAgent}); err != nil {
			_ = page.Close()
			return nil, sitecrawl.Wrap(sitecrawl.ESETUP, err, "setting user agent")
		}
	}

	return &Renderer{page: page, settle: b.settle}, nil
}

// Close disposes the incognito context, closes the browser and kills the
// launcher process. Close is safe to call multiple times.
func (b *Browser) Close() error {
	if !b.closed.CompareAndSwap(false, true) {
		return nil
	}

	var errs []error
	if err := b.context.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := b.root.Close(); err != nil {
		errs = append(errs, err)
	}
	b.launcher.Kill()
	return errors.Join(errs...)
}

// LauncherPID returns the process ID of the browser launcher.
// This method exists for testing purposes to verify proper cleanup.
func (b *Browser) LauncherPID() int {
	return b.launcher.PID()
}
