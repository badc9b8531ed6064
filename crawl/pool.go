package crawl

import (
	"context"
	"errors"
	"sync"

	"github.com/fwojciec/sitecrawl"
	"golang.org/x/sync/errgroup"
)

// DefaultPoolSize is the number of renderers a crawl opens when it is not
// given a pool.
const DefaultPoolSize = 5

// Pool is a fixed-size set of renderers sharing one browser session.
// Renderers are leased with Acquire and returned with Release; waiters are
// served in arrival order. The pool owns the session and every renderer.
// It is safe for concurrent use by multiple goroutines.
type Pool struct {
	browser sitecrawl.Browser

	mu     sync.Mutex
	slots  []slot
	leased int
	closed bool

	// ready holds the indices of idle slots.
	ready chan int
	done  chan struct{}

	closeOnce sync.Once
}

type slot struct {
	renderer sitecrawl.Renderer
	gen      uint64
	leased   bool
}

// Lease grants exclusive use of one pooled renderer until it is released.
// A lease is a token: once released, every operation on it fails with ECLOSED
// even if the same renderer has since been leased to someone else.
type Lease struct {
	pool *Pool
	slot int
	gen  uint64
}

// OpenPool launches one browser session and opens size renderers in it.
// Any failure tears down what was already created and returns ESETUP.
func OpenPool(ctx context.Context, launcher sitecrawl.BrowserLauncher, size int) (*Pool, error) {
	if size <= 0 {
		return nil, sitecrawl.Errorf(sitecrawl.EINVALID, "pool size must be positive, got %d", size)
	}
	if launcher == nil {
		return nil, sitecrawl.Errorf(sitecrawl.ESETUP, "no browser launcher configured")
	}

	browser, err := launcher.Launch(ctx)
	if err != nil {
		return nil, sitecrawl.Wrap(sitecrawl.ESETUP, err, "launching browser")
	}

	renderers := make([]sitecrawl.Renderer, size)
	g, gctx := errgroup.WithContext(ctx)
	for i := range size {
		g.Go(func() error {
			r, err := browser.NewRenderer(gctx)
			if err != nil {
				return err
			}
			renderers[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		for _, r := range renderers {
			if r != nil {
				_ = r.Close()
			}
		}
		_ = browser.Close()
		return nil, sitecrawl.Wrap(sitecrawl.ESETUP, err, "opening renderers")
	}

	p := &Pool{
		browser: browser,
		slots:   make([]slot, size),
		ready:   make(chan int, size),
		done:    make(chan struct{}),
	}
	for i, r := range renderers {
		p.slots[i].renderer = r
		p.ready <- i
	}
	return p, nil
}

// Size returns the number of renderers in the pool.
func (p *Pool) Size() int {
	return len(p.slots)
}

// Leased returns the number of renderers currently leased.
func (p *Pool) Leased() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.leased
}

// Acquire blocks until a renderer is idle and leases it to the caller.
// The caller must Release the lease on every path.
// Returns ECLOSED once the pool is closed, or the context error.
func (p *Pool) Acquire(ctx context.Context) (*Lease, error) {
	select {
	case <-p.done:
		return nil, sitecrawl.Errorf(sitecrawl.ECLOSED, "pool closed")
	default:
	}

	select {
	case i := <-p.ready:
		p.mu.Lock()
		defer p.mu.Unlock()
		if p.closed {
			// Close is draining; hand the slot to it.
			p.ready <- i
			return nil, sitecrawl.Errorf(sitecrawl.ECLOSED, "pool closed")
		}
		s := &p.slots[i]
		s.leased = true
		s.gen++
		p.leased++
		return &Lease{pool: p, slot: i, gen: s.gen}, nil
	case <-p.done:
		return nil, sitecrawl.Errorf(sitecrawl.ECLOSED, "pool closed")
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Release returns a leased renderer to the pool. The renderer is requeued
// whatever happened during use. Releasing the same lease twice returns
// ECLOSED and has no effect.
func (p *Pool) Release(l *Lease) error {
	if l == nil || l.pool != p {
		return sitecrawl.Errorf(sitecrawl.EINVALID, "lease does not belong to this pool")
	}

	p.mu.Lock()
	s := &p.slots[l.slot]
	if !s.leased || s.gen != l.gen {
		p.mu.Unlock()
		return sitecrawl.Errorf(sitecrawl.ECLOSED, "lease already released")
	}
	s.leased = false
	s.gen++
	p.leased--
	p.mu.Unlock()

	// Never blocks: the channel holds every slot and this one was out.
	p.ready <- l.slot
	return nil
}

// Close waits for every lease to be released, closes all renderers and then
// the browser session. Acquire fails with ECLOSED from the moment Close is
// called. Subsequent calls are no-ops.
func (p *Pool) Close() error {
	var err error
	p.closeOnce.Do(func() {
		p.mu.Lock()
		p.closed = true
		p.mu.Unlock()
		close(p.done)

		var errs []error
		for range len(p.slots) {
			i := <-p.ready
			if err := p.slots[i].renderer.Close(); err != nil {
				errs = append(errs, err)
			}
		}
		if err := p.browser.Close(); err != nil {
			errs = append(errs, err)
		}
		err = errors.Join(errs...)
	})
	return err
}

// renderer returns the renderer behind a live lease.
func (p *Pool) renderer(l *Lease) (sitecrawl.Renderer, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := &p.slots[l.slot]
	if !s.leased || s.gen != l.gen {
		return nil, sitecrawl.Errorf(sitecrawl.ECLOSED, "lease already released")
	}
	return s.renderer, nil
}

// Slot returns the index of the leased slot, for logging.
func (l *Lease) Slot() int {
	return l.slot
}

// Render renders the URL with the leased renderer.
// Returns ECLOSED if the lease has been released.
func (l *Lease) Render(ctx context.Context, url string) (*sitecrawl.Response, error) {
	r, err := l.pool.renderer(l)
	if err != nil {
		return nil, err
	}
	return r.Render(ctx, url)
}
