// Package goquery implements sitecrawl.LinkExtractor with goquery.
package goquery

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/fwojciec/sitecrawl"
)

// DefaultSelector matches every anchor carrying an href.
const DefaultSelector = "a[href]"

// Ensure AnchorExtractor implements sitecrawl.LinkExtractor at compile time.
var _ sitecrawl.LinkExtractor = (*AnchorExtractor)(nil)

// AnchorExtractor returns the raw hrefs of anchors in rendered HTML.
// The zero value uses DefaultSelector.
type AnchorExtractor struct {
	// Selector restricts which anchors are considered.
	Selector string
}

// NewAnchorExtractor creates an AnchorExtractor matching every anchor.
func NewAnchorExtractor() *AnchorExtractor {
	return &AnchorExtractor{Selector: DefaultSelector}
}

// ExtractHrefs returns the href of every matching anchor in document order.
// Empty hrefs and non-HTTP links (javascript:, mailto:, tel:, data:) are
// skipped. Hrefs are trimmed but otherwise returned unresolved.
func (e *AnchorExtractor) ExtractHrefs(html string) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, sitecrawl.Errorf(sitecrawl.EINVALID, "failed to parse HTML: %v", err)
	}

	selector := e.Selector
	if selector == "" {
		selector = DefaultSelector
	}

	var hrefs []string
	doc.Find(selector).Each(func(_ int, sel *goquery.Selection) {
		href, exists := sel.Attr("href")
		if !exists {
			return
		}
		href = strings.TrimSpace(href)
		if href == "" || isNonHTTPLink(href) {
			return
		}
		hrefs = append(hrefs, href)
	})
	return hrefs, nil
}

// isNonHTTPLink checks if a href is a non-HTTP link that should be skipped.
func isNonHTTPLink(href string) bool {
	href = strings.ToLower(href)
	return strings.HasPrefix(href, "javascript:") ||
		strings.HasPrefix(href, "mailto:") ||
		strings.HasPrefix(href, "tel:") ||
		strings.HasPrefix(href, "data:")
}
