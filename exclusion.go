package sitecrawl

import (
	"context"
	"net/url"
	"strings"
	"time"
)

// ExclusionSet is the parsed robots exclusion policy for one domain.
// It is computed once per crawl and must not be modified afterwards.
type ExclusionSet struct {
	// Root is the canonical domain root the set was loaded for.
	Root string

	// Host is the lowercased host of Root.
	Host string

	// DenyAll marks the entire domain as disallowed.
	DenyAll bool

	// Prefixes are the disallowed path prefixes for the wildcard agent.
	// A prefix containing "?" is matched against the path and query.
	Prefixes []string

	// CrawlDelay is the wildcard agent's requested delay between requests.
	CrawlDelay time.Duration

	// Sitemaps lists the Sitemap URLs the declaration advertises.
	// Informational only; the crawler does not seed from them.
	Sitemaps []string
}

// IsExcluded reports whether u may not be crawled.
// A nil set excludes nothing.
func (s *ExclusionSet) IsExcluded(u *url.URL) bool {
	if s == nil || u == nil {
		return false
	}
	if s.DenyAll && strings.EqualFold(u.Host, s.Host) {
		return true
	}
	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	// A prefix carrying a query matches against the request URI.
	requestURI := path
	if u.RawQuery != "" || u.ForceQuery {
		requestURI += "?" + u.RawQuery
	}
	for _, prefix := range s.Prefixes {
		target := path
		if strings.Contains(prefix, "?") {
			target = requestURI
		}
		if strings.HasPrefix(target, prefix) {
			return true
		}
	}
	return false
}

// ExclusionLoader loads the exclusion policy for a domain.
type ExclusionLoader interface {
	// LoadExclusions fetches and parses the robots declaration of the domain
	// rooted at rootURL. Fetch failures are not errors: they yield an empty
	// set so that crawling proceeds unrestricted.
	LoadExclusions(ctx context.Context, rootURL string) (*ExclusionSet, error)
}

// Auditor records domains whose robots declaration restricted a named agent.
type Auditor interface {
	RecordDisallowed(ctx context.Context, rootURL string) error
}
