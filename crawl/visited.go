package crawl

import (
	"sync"

	"github.com/fwojciec/sitecrawl/bloom"
)

// VisitedSet records every URL that was ever enqueued or processed.
// A Bloom filter answers "definitely new" without touching the exact set,
// which stays authoritative so that no URL is ever wrongly skipped.
// It is safe for concurrent use by multiple goroutines.
type VisitedSet struct {
	mu     sync.Mutex
	filter *bloom.Filter
	exact  map[string]struct{}
}

// NewVisitedSet creates a VisitedSet sized for n expected URLs.
func NewVisitedSet(n uint) *VisitedSet {
	return &VisitedSet{
		filter: bloom.NewFilter(n, visitedFalsePositiveRate),
		exact:  make(map[string]struct{}, n),
	}
}

// Add inserts the URL and reports whether it was not present before.
// The check and the insert happen atomically.
func (s *VisitedSet) Add(url string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.filter.TestAndAdd(url) {
		if _, ok := s.exact[url]; ok {
			return false
		}
	}
	s.exact[url] = struct{}{}
	return true
}

// Contains reports whether the URL has been added.
func (s *VisitedSet) Contains(url string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.filter.Test(url) {
		return false
	}
	_, ok := s.exact[url]
	return ok
}

// Len returns the number of URLs in the set.
func (s *VisitedSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.exact)
}
