package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/fwojciec/sitecrawl"
	"github.com/fwojciec/sitecrawl/crawl"
	"github.com/fwojciec/sitecrawl/fs"
	"github.com/fwojciec/sitecrawl/goquery"
	sitecrawlhttp "github.com/fwojciec/sitecrawl/http"
	"github.com/fwojciec/sitecrawl/robotstxt"
	"github.com/fwojciec/sitecrawl/rod"
	crawlslog "github.com/fwojciec/sitecrawl/slog"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := NewMain()

	if err := m.Run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

// Main represents the program.
type Main struct{}

// NewMain returns a new instance of Main with defaults.
func NewMain() *Main {
	return &Main{}
}

// Run executes the CLI with the given arguments.
func (m *Main) Run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	cli := &CLI{}
	parser, err := kong.New(cli,
		kong.Name("sitecrawl"),
		kong.Description("List every page reachable from a URL within its domain"),
		kong.Writers(stdout, stderr),
		kong.Exit(func(int) {}),
		kong.Vars{
			"default_user_agent":      rod.DefaultUserAgent,
			"default_viewport_width":  strconv.Itoa(rod.DefaultViewportWidth),
			"default_viewport_height": strconv.Itoa(rod.DefaultViewportHeight),
		},
	)
	if err != nil {
		return fmt.Errorf("failed to create parser: %w", err)
	}

	// Handle no arguments
	if len(args) == 0 {
		_, _ = parser.Parse([]string{"--help"})
		return fmt.Errorf("no arguments provided")
	}

	// Handle help flags
	if len(args) == 1 && (args[0] == "--help" || args[0] == "-h" || args[0] == "help") {
		_, _ = parser.Parse([]string{"--help"})
		return nil
	}

	_, err = parser.Parse(args)
	if err != nil {
		return err
	}

	if cli.PoolSize <= 0 {
		return fmt.Errorf("pool size must be positive, got %d", cli.PoolSize)
	}
	if cli.Concurrency <= 0 || cli.Concurrency > cli.PoolSize {
		return fmt.Errorf("concurrency must be between 1 and the pool size (%d), got %d", cli.PoolSize, cli.Concurrency)
	}
	if cli.ViewportWidth <= 0 || cli.ViewportHeight <= 0 {
		return fmt.Errorf("viewport must be positive, got %dx%d", cli.ViewportWidth, cli.ViewportHeight)
	}

	// Diagnostics go to stderr; only warnings unless --verbose
	level := slog.LevelWarn
	if cli.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	// Wire dependencies
	deps := &Dependencies{
		Ctx:    ctx,
		Stdout: stdout,
		Stderr: stderr,
	}

	var launcher sitecrawl.BrowserLauncher
	if cli.Static {
		launcher = sitecrawlhttp.NewLauncher(
			sitecrawlhttp.WithTimeout(cli.PageTimeout),
			sitecrawlhttp.WithUserAgent(cli.UserAgent),
		)
	} else {
		launcher = rod.NewLauncher(
			rod.WithHeadless(cli.Headless),
			rod.WithBin(cli.BrowserBin),
			rod.WithViewport(cli.ViewportWidth, cli.ViewportHeight),
			rod.WithSettleTimeout(cli.SettleTimeout),
			rod.WithUserAgent(cli.UserAgent),
		)
	}

	auditLog := fs.NewAuditLog(cli.AuditFile)
	logger.Debug("recording disallowed domains", "file", auditLog.Path())

	var auditor sitecrawl.Auditor = auditLog
	if cli.Verbose {
		launcher = crawlslog.NewLoggingLauncher(launcher, logger)
		auditor = crawlslog.NewLoggingAuditor(auditor, logger)
	}

	var exclusions sitecrawl.ExclusionLoader = robotstxt.NewLoader(
		robotstxt.WithUserAgent(cli.UserAgent),
		robotstxt.WithAuditor(auditor),
		robotstxt.WithLogger(logger),
	)
	if cli.Verbose {
		exclusions = crawlslog.NewLoggingExclusionLoader(exclusions, logger)
	}

	crawler := &crawl.Crawler{
		Launcher:    launcher,
		Exclusions:  exclusions,
		Links:       goquery.NewAnchorExtractor(),
		Logger:      logger,
		PoolSize:    cli.PoolSize,
		Concurrency: cli.Concurrency,
		PageTimeout: cli.PageTimeout,
		MaxPages:    cli.Limit,
	}
	if cli.Rate > 0 {
		crawler.RateLimiter = crawl.NewDomainLimiter(cli.Rate)
	}
	if cli.Retries > 0 {
		crawler.RetryDelays = retryDelays(cli.Retries)
	}
	if cli.Verbose {
		crawler.Progress = func(event crawl.ProgressEvent) {
			fmt.Fprintln(stderr, crawl.FormatProgress(event))
		}
	}
	deps.Crawler = crawler

	skip := append([]string(nil), crawl.DefaultSkipExtensions...)
	deps.Accept = crawl.SkipExtensions(append(skip, cli.SkipExt...)...)

	cmd := &CrawlCmd{
		URL: cli.URL,
	}

	return cmd.Run(deps)
}

// CLI defines the command-line interface structure for Kong.
type CLI struct {
	PoolSize       int           `short:"p" default:"5" help:"Number of browser pages kept open"`
	Concurrency    int           `short:"c" default:"1" help:"Pages rendered in parallel (at most the pool size)"`
	Limit          int           `short:"n" aliases:"max-pages" help:"Stop after rendering this many pages (0 for no limit)"`
	PageTimeout    time.Duration `short:"t" default:"30s" help:"Timeout per page render"`
	SettleTimeout  time.Duration `default:"10s" help:"How long to wait for a page to go idle after load"`
	Retries        int           `default:"0" help:"Retry failed renders up to this many times"`
	Rate           float64       `default:"0" help:"Maximum requests per second to the site (0 for no limit)"`
	AuditFile      string        `default:"not_allowed_domains.txt" help:"File recording domains whose robots.txt names specific agents"`
	Static         bool          `short:"s" help:"Fetch pages over plain HTTP without running JavaScript"`
	Headless       bool          `default:"true" negatable:"" help:"Run the browser without a window"`
	BrowserBin     string        `help:"Path to the Chrome or Chromium binary (downloaded if empty)"`
	ViewportWidth  int           `default:"${default_viewport_width}" help:"Browser viewport width"`
	ViewportHeight int           `default:"${default_viewport_height}" help:"Browser viewport height"`
	SkipExt        []string      `name:"skip-ext" help:"Additional file extensions to skip"`
	UserAgent      string        `default:"${default_user_agent}" help:"User-Agent sent with every request"`
	Verbose        bool          `short:"v" help:"Log progress and diagnostics to stderr"`
	URL            string        `arg:"" required:"" help:"URL to start crawling from"`
}

// retryDelays returns n backoff delays, doubling from one second.
func retryDelays(n int) []time.Duration {
	delays := crawl.DefaultRetryDelays()
	for len(delays) < n {
		delays = append(delays, 2*delays[len(delays)-1])
	}
	return delays[:n]
}
