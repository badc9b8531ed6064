// Package bloom provides the probabilistic prefilter in front of the crawl's
// visited set. A negative answer is definite, so most new URLs are admitted
// without an exact lookup.
package bloom

import "github.com/bits-and-blooms/bloom/v3"

// Filter is a Bloom filter keyed by canonical URL strings.
// It is not safe for concurrent use; the visited set serializes access.
type Filter struct {
	f *bloom.BloomFilter
}

// NewFilter sizes a filter for n expected URLs at the given false positive
// rate. Past n URLs the rate degrades but answers stay one-sided.
func NewFilter(n uint, fpRate float64) *Filter {
	return &Filter{
		f: bloom.NewWithEstimates(n, fpRate),
	}
}

// Test reports whether url may have been added. False means never added.
func (f *Filter) Test(url string) bool {
	return f.f.TestString(url)
}

// TestAndAdd adds url and reports whether it may have been present before
// the call.
func (f *Filter) TestAndAdd(url string) bool {
	return f.f.TestAndAddString(url)
}
