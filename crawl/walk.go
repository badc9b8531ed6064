package crawl

import (
	"context"
	"log/slog"
	"net/url"

	"github.com/fwojciec/sitecrawl"
	"golang.org/x/sync/errgroup"
)

// walker holds the state of one crawl. Its frontier and counters are only
// touched by the goroutine running the consumer's iteration; render workers
// see nothing but their lease and the URL they are given.
type walker struct {
	crawler    *Crawler
	root       *url.URL
	accept     sitecrawl.AcceptFunc
	exclusions *sitecrawl.ExclusionSet
	limiter    sitecrawl.DomainLimiter
	frontier   *Frontier
	leases     []*Lease
	logger     *slog.Logger

	rendered   int
	failed     int
	discovered int
}

// pageResult holds the outcome of rendering a single URL.
type pageResult struct {
	url        string
	base       *url.URL
	statusCode int
	bytes      int
	hrefs      []string
	err        error
}

// run drives rounds until the frontier is exhausted, the page budget is
// spent, or the consumer stops.
func (w *walker) run(ctx context.Context, yield func(string, error) bool) {
	w.frontier.Push(w.root.String())

	for depth := 0; ; depth++ {
		batch := w.frontier.Round()
		if len(batch) == 0 {
			return
		}
		if limit := w.crawler.MaxPages; limit > 0 {
			remaining := limit - w.rendered
			if remaining <= 0 {
				w.logger.Info("page budget exhausted", "max_pages", limit)
				return
			}
			if len(batch) > remaining {
				batch = batch[:remaining]
			}
		}
		if !w.round(ctx, depth, batch, yield) {
			return
		}
	}
}

// round renders one breadth-first layer. Pages are rendered by one worker per
// lease but handled strictly in batch order. Returns false if the crawl must
// stop.
func (w *walker) round(ctx context.Context, depth int, batch []string, yield func(string, error) bool) bool {
	roundCtx, cancel := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(roundCtx)
	defer func() {
		cancel()
		_ = g.Wait()
	}()

	results := make([]chan pageResult, len(batch))
	for i := range results {
		results[i] = make(chan pageResult, 1)
	}

	jobs := make(chan int)
	g.Go(func() error {
		defer close(jobs)
		for i := range batch {
			select {
			case jobs <- i:
			case <-gctx.Done():
				return nil
			}
		}
		return nil
	})
	for _, lease := range w.leases {
		g.Go(func() error {
			for i := range jobs {
				results[i] <- w.visit(gctx, lease, batch[i])
			}
			return nil
		})
	}

	for i := range batch {
		var res pageResult
		select {
		case res = <-results[i]:
		case <-ctx.Done():
			yield("", ctx.Err())
			return false
		}
		if ctx.Err() != nil {
			yield("", ctx.Err())
			return false
		}
		if !w.handle(depth, res, yield) {
			return false
		}
	}
	return true
}

// visit renders one URL with the given lease and extracts its hrefs.
// It runs on a worker goroutine and must not touch walker state.
func (w *walker) visit(ctx context.Context, lease *Lease, rawURL string) pageResult {
	result := pageResult{url: rawURL}

	if w.limiter != nil {
		if err := w.limiter.Wait(ctx, w.root.Host); err != nil {
			result.err = err
			return result
		}
	}

	timeout := w.crawler.pageTimeout()
	render := func(ctx context.Context, u string) (*sitecrawl.Response, error) {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		return lease.Render(ctx, u)
	}
	resp, err := RenderWithRetry(ctx, rawURL, render, w.logger, w.crawler.RetryDelays)
	if err != nil {
		result.err = navigationError(err, rawURL)
		return result
	}
	if resp == nil {
		result.err = sitecrawl.Errorf(sitecrawl.ENAVIGATION, "no response for %s", rawURL)
		return result
	}
	result.statusCode = resp.StatusCode
	result.bytes = len(resp.HTML)
	if resp.StatusCode >= 400 {
		result.err = sitecrawl.Errorf(sitecrawl.ENAVIGATION, "status %d for %s", resp.StatusCode, rawURL)
		return result
	}

	// Relative links resolve against the document's final URL.
	result.base = w.root
	if u, err := url.Parse(rawURL); err == nil {
		result.base = u
	}
	if resp.URL != "" {
		if u, err := url.Parse(resp.URL); err == nil {
			result.base = u
		}
	}

	hrefs, err := w.crawler.Links.ExtractHrefs(resp.HTML)
	if err != nil {
		result.err = err
		return result
	}
	result.hrefs = hrefs
	return result
}

// handle records a page outcome, enqueues its new links and yields them.
// Returns false if the consumer stopped.
func (w *walker) handle(depth int, res pageResult, yield func(string, error) bool) bool {
	w.rendered++

	if res.err != nil {
		w.failed++
		w.logger.Warn("page failed", "url", res.url, "depth", depth, "status", res.statusCode, "err", res.err)
		w.progress(ProgressEvent{
			Type:       ProgressFailed,
			URL:        res.url,
			Depth:      depth,
			StatusCode: res.statusCode,
			Error:      res.err,
		})
		return true
	}

	w.progress(ProgressEvent{
		Type:       ProgressVisited,
		URL:        res.url,
		Depth:      depth,
		StatusCode: res.statusCode,
		Bytes:      res.bytes,
		Links:      len(res.hrefs),
	})

	for _, href := range res.hrefs {
		u, err := resolve(href, res.base)
		if err != nil {
			w.logger.Warn("skipping malformed link", "href", href, "page", res.url, "err", err)
			continue
		}
		if !Accept(u, w.root, w.exclusions, w.accept) {
			continue
		}
		link := u.String()
		if !w.frontier.Push(link) {
			continue
		}
		w.discovered++
		if !yield(link, nil) {
			return false
		}
	}
	return true
}

func (w *walker) progress(event ProgressEvent) {
	if w.crawler.Progress != nil {
		w.crawler.Progress(event)
	}
}

// navigationError classifies a render failure as ENAVIGATION while keeping
// codes the renderer already assigned.
func navigationError(err error, rawURL string) error {
	if code := sitecrawl.ErrorCode(err); code != sitecrawl.EINTERNAL {
		return err
	}
	return sitecrawl.Wrap(sitecrawl.ENAVIGATION, err, "rendering %s", rawURL)
}
