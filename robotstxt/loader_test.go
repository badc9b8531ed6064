package robotstxt_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fwojciec/sitecrawl"
	"github.com/fwojciec/sitecrawl/mock"
	"github.com/fwojciec/sitecrawl/robotstxt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newRobotsServer serves body at /robots.txt with the given status.
func newRobotsServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/robots.txt" {
			http.NotFound(w, r)
			return
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestLoader_LoadExclusions(t *testing.T) {
	t.Parallel()

	t.Run("collects wildcard disallow prefixes", func(t *testing.T) {
		t.Parallel()

		srv := newRobotsServer(t, http.StatusOK, `# site policy
User-agent: *
Disallow: /private/
Disallow: /tmp   # scratch space
Disallow:
Allow: /public/
`)
		loader := robotstxt.NewLoader(robotstxt.WithClient(srv.Client()))

		set, err := loader.LoadExclusions(context.Background(), srv.URL+"/")

		require.NoError(t, err)
		assert.False(t, set.DenyAll)
		assert.Equal(t, []string{"/private/", "/tmp"}, set.Prefixes)
		assert.Equal(t, srv.URL+"/", set.Root)
		assert.Equal(t, strings.TrimPrefix(srv.URL, "http://"), set.Host)
	})

	t.Run("keys are case insensitive", func(t *testing.T) {
		t.Parallel()

		srv := newRobotsServer(t, http.StatusOK, "USER-AGENT: *\nDISALLOW: /admin\n")
		loader := robotstxt.NewLoader(robotstxt.WithClient(srv.Client()))

		set, err := loader.LoadExclusions(context.Background(), srv.URL+"/")

		require.NoError(t, err)
		assert.Equal(t, []string{"/admin"}, set.Prefixes)
	})

	t.Run("rules for a named agent deny the whole domain", func(t *testing.T) {
		t.Parallel()

		srv := newRobotsServer(t, http.StatusOK, `User-agent: *
Disallow: /private/

User-agent: BadBot
Disallow: /
`)
		var recorded []string
		auditor := &mock.Auditor{
			RecordDisallowedFn: func(_ context.Context, rootURL string) error {
				recorded = append(recorded, rootURL)
				return nil
			},
		}
		loader := robotstxt.NewLoader(robotstxt.WithClient(srv.Client()), robotstxt.WithAuditor(auditor))

		set, err := loader.LoadExclusions(context.Background(), srv.URL+"/")

		require.NoError(t, err)
		assert.True(t, set.DenyAll)
		assert.Equal(t, []string{srv.URL + "/"}, recorded, "domain should be audited exactly once")
	})

	t.Run("named agent sharing a group with the wildcard still denies", func(t *testing.T) {
		t.Parallel()

		srv := newRobotsServer(t, http.StatusOK, "User-agent: *\nUser-agent: Googlebot\nDisallow: /x\n")
		loader := robotstxt.NewLoader(robotstxt.WithClient(srv.Client()))

		set, err := loader.LoadExclusions(context.Background(), srv.URL+"/")

		require.NoError(t, err)
		assert.True(t, set.DenyAll)
		assert.Equal(t, []string{"/x"}, set.Prefixes)
	})

	t.Run("crawl delay ends a named group", func(t *testing.T) {
		t.Parallel()

		srv := newRobotsServer(t, http.StatusOK, "User-agent: Bingbot\nCrawl-delay: 10\n\nUser-agent: *\nCrawl-delay: 2\nDisallow: /admin\n")
		auditor := &mock.Auditor{
			RecordDisallowedFn: func(_ context.Context, rootURL string) error {
				t.Errorf("unexpected audit of %s", rootURL)
				return nil
			},
		}
		loader := robotstxt.NewLoader(robotstxt.WithClient(srv.Client()), robotstxt.WithAuditor(auditor))

		set, err := loader.LoadExclusions(context.Background(), srv.URL+"/")

		require.NoError(t, err)
		assert.False(t, set.DenyAll)
		assert.Equal(t, []string{"/admin"}, set.Prefixes)
		assert.Equal(t, 2*time.Second, set.CrawlDelay)
	})

	t.Run("sitemap line between groups keeps them apart", func(t *testing.T) {
		t.Parallel()

		srv := newRobotsServer(t, http.StatusOK, "User-agent: *\nSitemap: https://example.org/sitemap.xml\nUser-agent: Googlebot\nDisallow: /x\n")
		loader := robotstxt.NewLoader(robotstxt.WithClient(srv.Client()))

		set, err := loader.LoadExclusions(context.Background(), srv.URL+"/")

		require.NoError(t, err)
		assert.True(t, set.DenyAll)
		assert.Empty(t, set.Prefixes)
	})

	t.Run("audit failure does not fail the load", func(t *testing.T) {
		t.Parallel()

		srv := newRobotsServer(t, http.StatusOK, "User-agent: Googlebot\nAllow: /\n")
		auditor := &mock.Auditor{
			RecordDisallowedFn: func(_ context.Context, _ string) error {
				return errors.New("disk full")
			},
		}
		var buf bytes.Buffer
		loader := robotstxt.NewLoader(
			robotstxt.WithClient(srv.Client()),
			robotstxt.WithAuditor(auditor),
			robotstxt.WithLogger(slog.New(slog.NewTextHandler(&buf, nil))),
		)

		set, err := loader.LoadExclusions(context.Background(), srv.URL+"/")

		require.NoError(t, err)
		assert.True(t, set.DenyAll)
		assert.Contains(t, buf.String(), "disk full")
	})

	t.Run("rules before any user agent are ignored", func(t *testing.T) {
		t.Parallel()

		srv := newRobotsServer(t, http.StatusOK, "Disallow: /orphan\nUser-agent: *\nDisallow: /kept\n")
		loader := robotstxt.NewLoader(robotstxt.WithClient(srv.Client()))

		set, err := loader.LoadExclusions(context.Background(), srv.URL+"/")

		require.NoError(t, err)
		assert.False(t, set.DenyAll)
		assert.Equal(t, []string{"/kept"}, set.Prefixes)
	})

	t.Run("reads crawl delay and sitemaps", func(t *testing.T) {
		t.Parallel()

		srv := newRobotsServer(t, http.StatusOK, `User-agent: *
Crawl-delay: 2
Disallow: /search

Sitemap: https://example.org/sitemap.xml
`)
		loader := robotstxt.NewLoader(robotstxt.WithClient(srv.Client()))

		set, err := loader.LoadExclusions(context.Background(), srv.URL+"/")

		require.NoError(t, err)
		assert.Equal(t, 2*time.Second, set.CrawlDelay)
		assert.Equal(t, []string{"https://example.org/sitemap.xml"}, set.Sitemaps)
	})

	t.Run("sends the user agent", func(t *testing.T) {
		t.Parallel()

		var got atomic.Value
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got.Store(r.Header.Get("User-Agent"))
			_, _ = w.Write([]byte("User-agent: *\n"))
		}))
		defer srv.Close()
		loader := robotstxt.NewLoader(robotstxt.WithClient(srv.Client()), robotstxt.WithUserAgent("sitecrawl-test"))

		_, err := loader.LoadExclusions(context.Background(), srv.URL+"/")

		require.NoError(t, err)
		assert.Equal(t, "sitecrawl-test", got.Load())
	})

	t.Run("requests robots.txt at the host root", func(t *testing.T) {
		t.Parallel()

		var path atomic.Value
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			path.Store(r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}))
		defer srv.Close()
		loader := robotstxt.NewLoader(robotstxt.WithClient(srv.Client()))

		_, err := loader.LoadExclusions(context.Background(), srv.URL+"/docs/")

		require.NoError(t, err)
		assert.Equal(t, "/robots.txt", path.Load())
	})

	t.Run("rejects a root without host", func(t *testing.T) {
		t.Parallel()

		loader := robotstxt.NewLoader()

		_, err := loader.LoadExclusions(context.Background(), "/relative")

		assert.Equal(t, sitecrawl.EINVALID, sitecrawl.ErrorCode(err))
	})
}

func TestLoader_LoadExclusions_fails_open(t *testing.T) {
	t.Parallel()

	t.Run("missing robots.txt", func(t *testing.T) {
		t.Parallel()

		srv := newRobotsServer(t, http.StatusNotFound, "User-agent: *\nDisallow: /\n")
		var buf bytes.Buffer
		loader := robotstxt.NewLoader(
			robotstxt.WithClient(srv.Client()),
			robotstxt.WithLogger(slog.New(slog.NewTextHandler(&buf, nil))),
		)

		set, err := loader.LoadExclusions(context.Background(), srv.URL+"/")

		require.NoError(t, err)
		assert.False(t, set.DenyAll)
		assert.Empty(t, set.Prefixes)
		assert.Contains(t, buf.String(), "level=WARN")
		assert.Contains(t, buf.String(), "code=fetch")
	})

	t.Run("server error", func(t *testing.T) {
		t.Parallel()

		srv := newRobotsServer(t, http.StatusServiceUnavailable, "")
		loader := robotstxt.NewLoader(robotstxt.WithClient(srv.Client()))

		set, err := loader.LoadExclusions(context.Background(), srv.URL+"/")

		require.NoError(t, err)
		assert.False(t, set.DenyAll)
		assert.Empty(t, set.Prefixes)
	})

	t.Run("connection refused", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.NotFoundHandler())
		addr := srv.URL
		srv.Close()
		loader := robotstxt.NewLoader()

		set, err := loader.LoadExclusions(context.Background(), addr+"/")

		require.NoError(t, err)
		assert.False(t, set.DenyAll)
		assert.Empty(t, set.Prefixes)
	})

	t.Run("slow server times out", func(t *testing.T) {
		t.Parallel()

		release := make(chan struct{})
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-release:
			case <-r.Context().Done():
			}
		}))
		defer srv.Close()
		defer close(release)
		loader := robotstxt.NewLoader(robotstxt.WithTimeout(50 * time.Millisecond))

		set, err := loader.LoadExclusions(context.Background(), srv.URL+"/")

		require.NoError(t, err)
		assert.Empty(t, set.Prefixes)
	})

	t.Run("canceled context is returned", func(t *testing.T) {
		t.Parallel()

		srv := newRobotsServer(t, http.StatusOK, "User-agent: *\nDisallow: /\n")
		loader := robotstxt.NewLoader(robotstxt.WithClient(srv.Client()))
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := loader.LoadExclusions(ctx, srv.URL+"/")

		assert.ErrorIs(t, err, context.Canceled)
	})
}
