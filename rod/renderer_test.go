//go:build integration

package rod_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fwojciec/sitecrawl"
	"github.com/fwojciec/sitecrawl/rod"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRenderer(t *testing.T, opts ...rod.Option) sitecrawl.Renderer {
	t.Helper()

	browser, err := rod.NewLauncher(opts...).Launch(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = browser.Close() })

	r, err := browser.NewRenderer(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func TestRenderer_Render_ReturnsRenderedHTML(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<!DOCTYPE html>
<html><body>
<div id="nav"></div>
<script>
document.getElementById('nav').innerHTML = '<a href="/rendered">Rendered</a>';
</script>
</body></html>`))
	}))
	defer srv.Close()

	r := newRenderer(t)

	resp, err := r.Render(context.Background(), srv.URL)

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.HTML, `href="/rendered"`)
}

func TestRenderer_Render_ReportsStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`<html><body>missing</body></html>`))
	}))
	defer srv.Close()

	r := newRenderer(t)

	resp, err := r.Render(context.Background(), srv.URL)

	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRenderer_Render_ReportsFinalURL(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/old", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/new/", http.StatusMovedPermanently)
	})
	mux.HandleFunc("/new/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><body>moved</body></html>`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	r := newRenderer(t)

	resp, err := r.Render(context.Background(), srv.URL+"/old")

	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/new/", resp.URL)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRenderer_Render_ContextCancellation(t *testing.T) {
	t.Parallel()

	r := newRenderer(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Render(ctx, "about:blank")

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRenderer_Render_TimesOutOnHangingPage(t *testing.T) {
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

	r := newRenderer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	_, err := r.Render(ctx, srv.URL)

	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, sitecrawl.ENAVIGATION, sitecrawl.ErrorCode(err))
}

func TestRenderer_Render_ReusesTab(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><body>` + r.URL.Path + `</body></html>`))
	}))
	defer srv.Close()

	r := newRenderer(t)

	for _, path := range []string{"/one", "/two", "/three"} {
		resp, err := r.Render(context.Background(), srv.URL+path)
		require.NoError(t, err)
		assert.Contains(t, resp.HTML, path)
	}
}

func TestRenderer_Close_IsIdempotent(t *testing.T) {
	t.Parallel()

	r := newRenderer(t)

	require.NoError(t, r.Close())
	require.NoError(t, r.Close())

	_, err := r.Render(context.Background(), "about:blank")
	assert.Equal(t, sitecrawl.ECLOSED, sitecrawl.ErrorCode(err))
}

func TestRenderer_SendsUserAgent(t *testing.T) {
	t.Parallel()

	agents := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case agents <- r.UserAgent():
		default:
		}
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html></html>`))
	}))
	defer srv.Close()

	r := newRenderer(t, rod.WithUserAgent("sitecrawl-test"))

	_, err := r.Render(context.Background(), srv.URL)

	require.NoError(t, err)
	assert.Equal(t, "sitecrawl-test", <-agents)
}

func TestRenderer_AppliesViewport(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><body><p id="size"></p>
<script>document.getElementById('size').textContent = window.innerWidth + 'x' + window.innerHeight;</script>
</body></html>`))
	}))
	defer srv.Close()

	r := newRenderer(t, rod.WithHeadless(true), rod.WithViewport(800, 600))

	resp, err := r.Render(context.Background(), srv.URL)

	require.NoError(t, err)
	assert.Contains(t, resp.HTML, "800x600")
}

func TestLauncher_Launch_FailsWithMissingBinary(t *testing.T) {
	t.Parallel()

	_, err := rod.NewLauncher(rod.WithBin("/nonexistent/chrome")).Launch(context.Background())

	assert.Equal(t, sitecrawl.ESETUP, sitecrawl.ErrorCode(err))
}
