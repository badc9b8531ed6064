// Package robotstxt implements sitecrawl.ExclusionLoader by fetching and
// parsing a site's robots.txt over HTTP.
package robotstxt

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/fwojciec/sitecrawl"
	"github.com/temoto/robotstxt"
)

// DefaultFetchTimeout bounds the robots.txt request.
const DefaultFetchTimeout = 10 * time.Second

// DefaultUserAgent is sent with the robots.txt request.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// maxBodyBytes caps how much of a robots.txt response is read.
const maxBodyBytes = 512 * 1024

const robotsPath = "/robots.txt"

// Ensure Loader implements sitecrawl.ExclusionLoader at compile time.
var _ sitecrawl.ExclusionLoader = (*Loader)(nil)

// Loader fetches robots.txt and turns it into a sitecrawl.ExclusionSet.
//
// Loading fails open: a transport error, a read error or a non-2xx status
// yields an empty set and a nil error, so crawling proceeds unrestricted.
//
// Rules addressed to a specific user agent make the whole domain disallowed.
// The domain is then reported to the Auditor, if one is configured.
type Loader struct {
	client    *http.Client
	timeout   time.Duration
	userAgent string
	auditor   sitecrawl.Auditor
	logger    *slog.Logger
}

// Option configures a Loader.
type Option func(*Loader)

// WithClient sets the HTTP client. A client without a Timeout gets the
// loader's timeout.
func WithClient(c *http.Client) Option {
	return func(l *Loader) {
		l.client = c
	}
}

// WithTimeout sets the request timeout.
// Defaults to DefaultFetchTimeout (10s) if not specified.
func WithTimeout(d time.Duration) Option {
	return func(l *Loader) {
		l.timeout = d
	}
}

// WithUserAgent sets the User-Agent header of the robots.txt request.
func WithUserAgent(ua string) Option {
	return func(l *Loader) {
		l.userAgent = ua
	}
}

// WithAuditor sets where domains disallowed for a named agent are recorded.
func WithAuditor(a sitecrawl.Auditor) Option {
	return func(l *Loader) {
		l.auditor = a
	}
}

// WithLogger sets the logger used to report fail-open loads.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loader) {
		l.logger = logger
	}
}

// NewLoader creates a new Loader.
func NewLoader(opts ...Option) *Loader {
	l := &Loader{
		timeout:   DefaultFetchTimeout,
		userAgent: DefaultUserAgent,
	}
	for _, opt := range opts {
		opt(l)
	}

	if l.client == nil {
		l.client = &http.Client{}
	}
	if l.client.Timeout == 0 {
		c := *l.client
		c.Timeout = l.timeout
		l.client = &c
	}
	if l.logger == nil {
		l.logger = slog.New(slog.DiscardHandler)
	}

	return l
}

// LoadExclusions fetches <scheme>://<host>/robots.txt for rootURL and parses
// it for the wildcard agent.
func (l *Loader) LoadExclusions(ctx context.Context, rootURL string) (*sitecrawl.ExclusionSet, error) {
	root, err := url.Parse(rootURL)
	if err != nil {
		return nil, sitecrawl.Wrap(sitecrawl.EINVALID, err, "parsing root URL %q", rootURL)
	}
	if root.Host == "" {
		return nil, sitecrawl.Errorf(sitecrawl.EINVALID, "root URL %q has no host", rootURL)
	}

	set := &sitecrawl.ExclusionSet{
		Root: rootURL,
		Host: strings.ToLower(root.Host),
	}

	robotsURL := (&url.URL{Scheme: root.Scheme, Host: root.Host, Path: robotsPath}).String()
	body, err := l.fetch(ctx, robotsURL)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		l.logger.Warn("robots.txt unavailable; crawling unrestricted",
			"url", robotsURL,
			"code", sitecrawl.ErrorCode(err),
			"err", err,
		)
		return set, nil
	}

	rules := parse(body)
	set.Prefixes = rules.prefixes
	set.DenyAll = rules.namedAgent

	if data, err := robotstxt.FromBytes(body); err == nil {
		set.CrawlDelay = data.FindGroup("*").CrawlDelay
		set.Sitemaps = data.Sitemaps
	} else {
		l.logger.Debug("robots.txt directives unreadable", "url", robotsURL, "err", err)
	}

	if set.DenyAll && l.auditor != nil {
		if err := l.auditor.RecordDisallowed(ctx, rootURL); err != nil {
			l.logger.Error("recording disallowed domain", "root", rootURL, "err", err)
		}
	}

	return set, nil
}

// fetch returns the body of a 2xx response, read up to maxBodyBytes.
func (l *Loader) fetch(ctx context.Context, robotsURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil, sitecrawl.Wrap(sitecrawl.EFETCH, err, "creating request")
	}
	if l.userAgent != "" {
		req.Header.Set("User-Agent", l.userAgent)
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, sitecrawl.Wrap(sitecrawl.EFETCH, err, "fetching %s", robotsURL)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, sitecrawl.Errorf(sitecrawl.EFETCH, "HTTP %d for %s", resp.StatusCode, robotsURL)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, sitecrawl.Wrap(sitecrawl.EFETCH, err, "reading %s", robotsURL)
	}
	return body, nil
}

// rules is the part of a robots.txt document the crawler acts on.
type rules struct {
	// prefixes are the non-empty Disallow values of wildcard groups.
	prefixes []string

	// namedAgent is set when any Allow or Disallow line belongs to a group
	// naming a specific agent.
	namedAgent bool
}

// parse scans a robots.txt document group by group. A group is a run of
// User-agent lines followed by its directives; rules before the first
// User-agent line belong to no group and are ignored. Only Allow and Disallow
// lines count as rules of a group.
func parse(body []byte) rules {
	var (
		r        rules
		agents   []string
		inRules  bool
		wildcard bool
		named    bool
	)

	scanner := bufio.NewScanner(bytes.NewReader(body))
	for scanner.Scan() {
		line := scanner.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key = strings.ToLower(strings.TrimSpace(key))
		value = strings.TrimSpace(value)

		switch key {
		case "user-agent":
			if inRules {
				agents, inRules, wildcard, named = nil, false, false, false
			}
			agents = append(agents, value)
			if value == "*" {
				wildcard = true
			} else {
				named = true
			}
		case "allow", "disallow":
			if len(agents) == 0 {
				continue
			}
			inRules = true
			if named {
				r.namedAgent = true
			}
			if key == "disallow" && wildcard && value != "" {
				r.prefixes = append(r.prefixes, value)
			}
		case "crawl-delay", "sitemap", "host", "request-rate", "visit-time", "noindex":
			// Any other directive closes the run of User-agent lines, so the
			// next User-agent line starts a new group.
			if len(agents) > 0 {
				inRules = true
			}
		}
	}
	// A line longer than the scanner buffer ends the scan; what was read
	// before it still applies.
	return r
}
