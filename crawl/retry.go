package crawl

import (
	"context"
	"log/slog"
	"time"

	"github.com/fwojciec/sitecrawl"
)

// RenderFunc is the signature for a render function.
type RenderFunc func(ctx context.Context, url string) (*sitecrawl.Response, error)

// DefaultRetryDelays returns backoff delays suitable for flaky sites: 1s, 2s, 4s.
// Crawls do not retry unless configured to.
func DefaultRetryDelays() []time.Duration {
	return []time.Duration{1 * time.Second, 2 * time.Second, 4 * time.Second}
}

// RenderWithRetry renders a URL, retrying failed attempts after each of the
// given delays. With no delays it makes exactly one attempt. Errors caused
// by the context, or by a released lease, are never retried.
// The logger, if provided, receives one line per retry.
func RenderWithRetry(ctx context.Context, url string, render RenderFunc, logger *slog.Logger, delays []time.Duration) (*sitecrawl.Response, error) {
	maxAttempts := len(delays) + 1 // 1 initial + N retries

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		resp, err := render(ctx, url)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		// Don't retry after the last attempt
		if attempt >= maxAttempts-1 {
			break
		}
		if sitecrawl.ErrorCode(err) == sitecrawl.ECLOSED {
			break
		}

		// Check context before sleeping
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		if logger != nil {
			logger.Debug("retrying render", "url", url, "attempt", attempt+2, "err", err)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delays[attempt]):
		}
	}

	return nil, lastErr
}
