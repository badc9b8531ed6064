// Package slog provides logging decorators for the sitecrawl renderer and
// exclusion interfaces.
package slog

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/fwojciec/sitecrawl"
)

// Ensure the decorators implement their interfaces.
var (
	_ sitecrawl.BrowserLauncher = (*LoggingLauncher)(nil)
	_ sitecrawl.Browser         = (*LoggingBrowser)(nil)
	_ sitecrawl.Renderer        = (*LoggingRenderer)(nil)
)

// LoggingLauncher wraps a BrowserLauncher so that every session it launches,
// and every renderer of those sessions, is logged.
type LoggingLauncher struct {
	next   sitecrawl.BrowserLauncher
	logger *slog.Logger
}

// NewLoggingLauncher creates a new LoggingLauncher.
func NewLoggingLauncher(next sitecrawl.BrowserLauncher, logger *slog.Logger) *LoggingLauncher {
	return &LoggingLauncher{next: next, logger: logger}
}

// Launch logs the launch and wraps the resulting browser.
func (l *LoggingLauncher) Launch(ctx context.Context) (browser sitecrawl.Browser, err error) {
	defer func(begin time.Time) {
		l.logger.Info("launch browser",
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())

	browser, err = l.next.Launch(ctx)
	if err != nil {
		return nil, err
	}
	return NewLoggingBrowser(browser, l.logger), nil
}

// LoggingBrowser wraps a Browser, numbering its renderers for the log.
type LoggingBrowser struct {
	next   sitecrawl.Browser
	logger *slog.Logger
	nextID atomic.Int64
}

// NewLoggingBrowser creates a new LoggingBrowser.
func NewLoggingBrowser(next sitecrawl.Browser, logger *slog.Logger) *LoggingBrowser {
	return &LoggingBrowser{next: next, logger: logger}
}

// NewRenderer logs the renderer creation and wraps the renderer.
func (b *LoggingBrowser) NewRenderer(ctx context.Context) (sitecrawl.Renderer, error) {
	id := b.nextID.Add(1)
	r, err := b.next.NewRenderer(ctx)
	b.logger.Debug("open renderer", "renderer", id, "err", err)
	if err != nil {
		return nil, err
	}
	return &LoggingRenderer{next: r, logger: b.logger.With("renderer", id)}, nil
}

// Close logs and delegates to the wrapped browser.
func (b *LoggingBrowser) Close() error {
	err := b.next.Close()
	b.logger.Debug("close browser", "err", err)
	return err
}

// LoggingRenderer wraps a Renderer with one log line per render.
type LoggingRenderer struct {
	next   sitecrawl.Renderer
	logger *slog.Logger
}

// NewLoggingRenderer creates a new LoggingRenderer.
func NewLoggingRenderer(next sitecrawl.Renderer, logger *slog.Logger) *LoggingRenderer {
	return &LoggingRenderer{next: next, logger: logger}
}

// Render logs the URL, status, size and duration of the render.
func (r *LoggingRenderer) Render(ctx context.Context, url string) (resp *sitecrawl.Response, err error) {
	defer func(begin time.Time) {
		var status, size int
		if resp != nil {
			status, size = resp.StatusCode, len(resp.HTML)
		}
		r.logger.Info("render",
			"url", url,
			"status", status,
			"bytes", size,
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return r.next.Render(ctx, url)
}

// Close delegates to the wrapped renderer.
func (r *LoggingRenderer) Close() error {
	return r.next.Close()
}
