package crawl

import (
	"net"
	"net/url"
	"path"
	"strings"

	"github.com/fwojciec/sitecrawl"
	"golang.org/x/net/idna"
)

// hostProfile maps hosts to their lowercased ASCII form. Strict STD3 rules
// are relaxed because real sites use underscores in host labels.
var hostProfile = idna.New(
	idna.MapForLookup(),
	idna.StrictDomainName(false),
	idna.Transitional(false),
)

// DefaultSkipExtensions lists file extensions that never lead to HTML pages.
var DefaultSkipExtensions = []string{
	".7z", ".avi", ".bmp", ".css", ".dmg", ".doc", ".docx", ".eot", ".exe",
	".gif", ".gz", ".ico", ".iso", ".jpeg", ".jpg", ".js", ".m4a", ".mov",
	".mp3", ".mp4", ".mpeg", ".ogg", ".otf", ".pdf", ".png", ".ppt", ".pptx",
	".rar", ".svg", ".tar", ".tgz", ".tif", ".tiff", ".ttf", ".wav", ".webm",
	".webp", ".woff", ".woff2", ".xls", ".xlsx", ".zip",
}

// Normalize resolves rawHref against base and returns the canonical URL.
// Relative, protocol-relative and absolute hrefs are supported. The fragment
// is dropped; scheme, host, path and query are kept.
// Returns EMALFORMED if the href cannot be turned into an http(s) URL.
func Normalize(rawHref string, base *url.URL) (string, error) {
	u, err := resolve(rawHref, base)
	if err != nil {
		return "", err
	}
	return u.String(), nil
}

// RootURL normalizes a seed URL into the crawl root. A missing scheme
// defaults to https and an empty path becomes "/".
func RootURL(seedURL string) (*url.URL, error) {
	seed := strings.TrimSpace(seedURL)
	if seed != "" && !strings.Contains(seed, "://") && !strings.HasPrefix(seed, "//") {
		seed = "https://" + seed
	}
	u, err := resolve(seed, nil)
	if err != nil {
		return nil, sitecrawl.Wrap(sitecrawl.EINVALID, err, "invalid seed URL %q", seedURL)
	}
	return u, nil
}

// Accept reports whether u belongs to the crawl rooted at root: same host
// (case-insensitive), not excluded by robots, and accepted by the caller's
// predicate. A nil predicate accepts everything.
func Accept(u *url.URL, root *url.URL, exclusions *sitecrawl.ExclusionSet, accept sitecrawl.AcceptFunc) bool {
	if u == nil || root == nil {
		return false
	}
	if !SameHost(u, root) {
		return false
	}
	if exclusions.IsExcluded(u) {
		return false
	}
	if accept != nil && !accept(u.String()) {
		return false
	}
	return true
}

// SameHost reports whether a and b have the same host, ignoring case.
func SameHost(a, b *url.URL) bool {
	return strings.EqualFold(a.Host, b.Host)
}

// SkipExtensions returns a predicate rejecting URLs whose path ends in one of
// the given extensions (compared case-insensitively, leading dot optional).
func SkipExtensions(exts ...string) sitecrawl.AcceptFunc {
	skip := make(map[string]struct{}, len(exts))
	for _, ext := range exts {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		skip[ext] = struct{}{}
	}
	return func(rawURL string) bool {
		u, err := url.Parse(rawURL)
		if err != nil {
			return false
		}
		_, found := skip[strings.ToLower(path.Ext(u.Path))]
		return !found
	}
}

func resolve(rawHref string, base *url.URL) (*url.URL, error) {
	href := strings.TrimSpace(rawHref)
	if href == "" {
		return nil, sitecrawl.Errorf(sitecrawl.EMALFORMED, "empty href")
	}
	ref, err := url.Parse(href)
	if err != nil {
		return nil, sitecrawl.Wrap(sitecrawl.EMALFORMED, err, "parsing href %q", href)
	}
	if base != nil {
		ref = base.ResolveReference(ref)
	}
	return canonicalize(ref)
}

// canonicalize returns a copy of u in canonical form.
func canonicalize(u *url.URL) (*url.URL, error) {
	c := *u
	c.Scheme = strings.ToLower(c.Scheme)
	if c.Scheme != "http" && c.Scheme != "https" {
		return nil, sitecrawl.Errorf(sitecrawl.EMALFORMED, "unsupported scheme in %q", u.String())
	}
	if c.Opaque != "" {
		return nil, sitecrawl.Errorf(sitecrawl.EMALFORMED, "opaque URL %q", u.String())
	}

	host, err := canonicalHost(c.Hostname())
	if err != nil {
		return nil, sitecrawl.Wrap(sitecrawl.EMALFORMED, err, "invalid host in %q", u.String())
	}
	port := c.Port()
	if (c.Scheme == "http" && port == "80") || (c.Scheme == "https" && port == "443") {
		port = ""
	}
	c.Host = joinHostPort(host, port)

	c.User = nil
	c.Fragment = ""
	c.RawFragment = ""
	if c.RawQuery == "" {
		c.ForceQuery = false
	}
	if c.Path == "" {
		c.Path = "/"
		c.RawPath = ""
	}
	return &c, nil
}

func canonicalHost(host string) (string, error) {
	if host == "" {
		return "", sitecrawl.Errorf(sitecrawl.EMALFORMED, "missing host")
	}
	if ip := net.ParseIP(host); ip != nil {
		return strings.ToLower(host), nil
	}
	ascii, err := hostProfile.ToASCII(strings.TrimSuffix(host, "."))
	if err != nil {
		return "", err
	}
	return strings.ToLower(ascii), nil
}

func joinHostPort(host, port string) string {
	if port != "" {
		return net.JoinHostPort(host, port)
	}
	if strings.Contains(host, ":") {
		return "[" + host + "]"
	}
	return host
}
