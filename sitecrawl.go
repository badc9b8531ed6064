// Package sitecrawl provides a same-domain web crawler. Given a seed URL it
// discovers every reachable in-domain link, rendering pages in a headless
// browser and honoring the site's robots exclusions.
//
// This package contains domain types and interfaces following Ben Johnson's
// Standard Package Layout. Implementations live in subdirectories named
// after their primary dependency (e.g., rod/, goquery/, robotstxt/).
package sitecrawl

// AcceptFunc reports whether a discovered URL should be crawled.
// It receives the canonical absolute URL.
type AcceptFunc func(rawURL string) bool

// LinkExtractor pulls raw anchor hrefs out of rendered HTML.
type LinkExtractor interface {
	// ExtractHrefs returns the href of every anchor element in document
	// order. Hrefs are returned unresolved; non-HTTP schemes
	// (javascript:, mailto:, ...) are omitted.
	ExtractHrefs(html string) ([]string, error)
}
