package mock

import "github.com/fwojciec/sitecrawl"

var _ sitecrawl.LinkExtractor = (*LinkExtractor)(nil)

// LinkExtractor is a mock implementation of sitecrawl.LinkExtractor.
type LinkExtractor struct {
	ExtractHrefsFn func(html string) ([]string, error)
}

func (e *LinkExtractor) ExtractHrefs(html string) ([]string, error) {
	return e.ExtractHrefsFn(html)
}
