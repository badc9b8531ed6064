// Package crawl provides the breadth-first crawl engine. It coordinates the
// renderer pool, robots exclusions, link normalization and the frontier.
package crawl

import (
	"context"
	"io"
	"iter"
	"log/slog"
	"net/url"
	"time"

	"github.com/fwojciec/sitecrawl"
	"github.com/google/uuid"
)

// DefaultPageTimeout bounds a single page render, settle wait included.
const DefaultPageTimeout = 30 * time.Second

// Crawler discovers every URL reachable from a seed within its domain.
// A Crawler holds configuration only; each Crawl call owns its own frontier
// and visited set, so concurrent calls are independent.
type Crawler struct {
	// Launcher opens a browser when Crawl is not given a pool.
	Launcher sitecrawl.BrowserLauncher

	// Exclusions loads the robots policy. Nil means no exclusions.
	Exclusions sitecrawl.ExclusionLoader

	// Links extracts anchor hrefs from rendered pages. Required.
	Links sitecrawl.LinkExtractor

	// RateLimiter spaces requests per host. When nil, a limiter is created
	// only if the robots policy declares a Crawl-delay.
	RateLimiter sitecrawl.DomainLimiter

	// Logger receives crawl diagnostics. Nil discards them.
	Logger *slog.Logger

	// Progress, if set, is called once per rendered page.
	Progress ProgressFunc

	// PoolSize is the size of the pool opened when Crawl is not given one.
	// Defaults to DefaultPoolSize.
	PoolSize int

	// Concurrency is the number of leases held by one crawl; pages of a
	// round are rendered in parallel up to this limit. Defaults to 1.
	Concurrency int

	// PageTimeout bounds each render attempt. Defaults to DefaultPageTimeout.
	PageTimeout time.Duration

	// RetryDelays are waited between render attempts. Nil means no retries.
	RetryDelays []time.Duration

	// MaxPages caps the number of pages rendered. Zero means unbounded.
	MaxPages int
}

// ProgressEvent reports the outcome of one rendered page.
type ProgressEvent struct {
	Type       ProgressType
	URL        string
	Depth      int
	StatusCode int
	Bytes      int
	Links      int
	Error      error
}

// ProgressType indicates the type of progress event.
type ProgressType int

const (
	ProgressVisited ProgressType = iota
	ProgressFailed
)

// ProgressFunc is a callback for reporting crawl progress.
type ProgressFunc func(event ProgressEvent)

// Crawl returns a lazy sequence of the URLs discovered from seedURL, in
// breadth-first order. The seed itself is not yielded. Each URL is yielded
// at most once, has the seed's host and passes robots exclusions and accept.
//
// If pool is nil a pool is opened for this call and closed when the sequence
// ends. Leased renderers are released whether the sequence is exhausted, the
// consumer stops early, or ctx is canceled.
//
// Per-page failures are logged and skipped. Setup failures (ESETUP, invalid
// seed) and context cancellation are yielded once as an error, after which
// the sequence ends.
func (c *Crawler) Crawl(ctx context.Context, seedURL string, accept sitecrawl.AcceptFunc, pool *Pool) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		logger := c.logger().With("crawl_id", uuid.NewString())

		root, err := RootURL(seedURL)
		if err != nil {
			yield("", err)
			return
		}
		logger = logger.With("root", root.String())

		if c.Links == nil {
			yield("", sitecrawl.Errorf(sitecrawl.ESETUP, "no link extractor configured"))
			return
		}

		exclusions := c.loadExclusions(ctx, root, logger)
		if exclusions.IsExcluded(root) {
			logger.Warn("crawl root excluded by robots")
			return
		}

		if pool == nil {
			pool, err = OpenPool(ctx, c.Launcher, c.poolSize())
			if err != nil {
				yield("", err)
				return
			}
			defer func() {
				if err := pool.Close(); err != nil {
					logger.Warn("closing pool", "err", err)
				}
			}()
		}

		leases, err := c.acquire(ctx, pool)
		if err != nil {
			yield("", err)
			return
		}
		defer c.release(pool, leases, logger)

		w := &walker{
			crawler:    c,
			root:       root,
			accept:     accept,
			exclusions: exclusions,
			limiter:    c.limiter(exclusions),
			frontier:   NewFrontier(frontierExpectedURLs),
			leases:     leases,
			logger:     logger,
		}
		defer func(begin time.Time) {
			logger.Info("crawl",
				"pages", w.rendered,
				"failed", w.failed,
				"links", w.discovered,
				"duration", time.Since(begin),
			)
		}(time.Now())

		w.run(ctx, yield)
	}
}

// loadExclusions fetches the robots policy, falling back to no exclusions.
func (c *Crawler) loadExclusions(ctx context.Context, root *url.URL, logger *slog.Logger) *sitecrawl.ExclusionSet {
	empty := &sitecrawl.ExclusionSet{Root: root.String(), Host: root.Host}
	if c.Exclusions == nil {
		return empty
	}
	set, err := c.Exclusions.LoadExclusions(ctx, root.String())
	if err != nil {
		logger.Warn("loading exclusions failed; crawling unrestricted", "err", err)
		return empty
	}
	if set == nil {
		return empty
	}
	return set
}

// acquire leases one renderer per unit of concurrency, all or nothing.
func (c *Crawler) acquire(ctx context.Context, pool *Pool) ([]*Lease, error) {
	n := min(c.concurrency(), pool.Size())
	leases := make([]*Lease, 0, n)
	for range n {
		lease, err := pool.Acquire(ctx)
		if err != nil {
			for _, l := range leases {
				_ = pool.Release(l)
			}
			return nil, err
		}
		leases = append(leases, lease)
	}
	return leases, nil
}

func (c *Crawler) release(pool *Pool, leases []*Lease, logger *slog.Logger) {
	for _, l := range leases {
		if err := pool.Release(l); err != nil {
			logger.Error("releasing renderer", "slot", l.Slot(), "err", err)
		}
	}
}

func (c *Crawler) limiter(exclusions *sitecrawl.ExclusionSet) sitecrawl.DomainLimiter {
	if c.RateLimiter != nil {
		return c.RateLimiter
	}
	if exclusions.CrawlDelay > 0 {
		return NewDomainLimiterEvery(exclusions.CrawlDelay)
	}
	return nil
}

func (c *Crawler) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func (c *Crawler) poolSize() int {
	if c.PoolSize > 0 {
		return c.PoolSize
	}
	return DefaultPoolSize
}

func (c *Crawler) concurrency() int {
	if c.Concurrency > 0 {
		return c.Concurrency
	}
	return 1
}

func (c *Crawler) pageTimeout() time.Duration {
	if c.PageTimeout > 0 {
		return c.PageTimeout
	}
	return DefaultPageTimeout
}
