package crawl

import "sync"

// Frontier configuration.
const (
	// frontierExpectedURLs is the expected number of URLs for Bloom filter sizing.
	frontierExpectedURLs = 10000
	// visitedFalsePositiveRate is the Bloom prefilter's false positive rate.
	// False positives only cost an exact-set lookup.
	visitedFalsePositiveRate = 0.01
)

// Frontier is a breadth-first URL queue with deduplication.
// URLs are processed in rounds: Round dequeues exactly the URLs pending when
// it is called, so URLs pushed while a round is processed wait for the next.
// It is safe for concurrent use by multiple goroutines.
type Frontier struct {
	mu    sync.Mutex
	seen  *VisitedSet
	queue []string
}

// NewFrontier creates a new Frontier sized for n expected URLs.
func NewFrontier(n uint) *Frontier {
	return &Frontier{
		seen: NewVisitedSet(n),
	}
}

// Push marks the URL visited and appends it to the queue.
// Returns false, leaving the queue untouched, if the URL was already seen.
// URLs must already be canonical (see Normalize).
func (f *Frontier) Push(url string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.seen.Add(url) {
		return false
	}
	f.queue = append(f.queue, url)
	return true
}

// Round dequeues every pending URL in insertion order.
// Returns nil when the frontier is empty.
func (f *Frontier) Round() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.queue) == 0 {
		return nil
	}
	batch := f.queue
	f.queue = nil
	return batch
}

// Len returns the number of URLs waiting in the queue.
func (f *Frontier) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queue)
}

// Seen returns true if the URL has been queued or processed.
func (f *Frontier) Seen(url string) bool {
	return f.seen.Contains(url)
}
