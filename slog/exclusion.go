package slog

import (
	"context"
	"log/slog"
	"time"

	"github.com/fwojciec/sitecrawl"
)

// Ensure LoggingExclusionLoader implements sitecrawl.ExclusionLoader.
var _ sitecrawl.ExclusionLoader = (*LoggingExclusionLoader)(nil)

// LoggingExclusionLoader wraps an ExclusionLoader with a summary of the
// loaded policy.
type LoggingExclusionLoader struct {
	next   sitecrawl.ExclusionLoader
	logger *slog.Logger
}

// NewLoggingExclusionLoader creates a new LoggingExclusionLoader.
func NewLoggingExclusionLoader(next sitecrawl.ExclusionLoader, logger *slog.Logger) *LoggingExclusionLoader {
	return &LoggingExclusionLoader{next: next, logger: logger}
}

// LoadExclusions logs the number of prefixes, the deny-all flag, the crawl
// delay and the advertised sitemaps, then returns the wrapped result.
func (l *LoggingExclusionLoader) LoadExclusions(ctx context.Context, rootURL string) (set *sitecrawl.ExclusionSet, err error) {
	defer func(begin time.Time) {
		attrs := []any{"root", rootURL}
		if set != nil {
			attrs = append(attrs,
				"prefixes", len(set.Prefixes),
				"deny_all", set.DenyAll,
				"crawl_delay", set.CrawlDelay,
				"sitemaps", len(set.Sitemaps),
			)
		}
		attrs = append(attrs, "duration", time.Since(begin), "err", err)
		l.logger.Info("load exclusions", attrs...)
	}(time.Now())
	return l.next.LoadExclusions(ctx, rootURL)
}

// Ensure LoggingAuditor implements sitecrawl.Auditor.
var _ sitecrawl.Auditor = (*LoggingAuditor)(nil)

// LoggingAuditor wraps an Auditor, logging every recorded domain.
type LoggingAuditor struct {
	next   sitecrawl.Auditor
	logger *slog.Logger
}

// NewLoggingAuditor creates a new LoggingAuditor.
func NewLoggingAuditor(next sitecrawl.Auditor, logger *slog.Logger) *LoggingAuditor {
	return &LoggingAuditor{next: next, logger: logger}
}

// RecordDisallowed logs at WARN, since a recorded domain is never crawled.
func (a *LoggingAuditor) RecordDisallowed(ctx context.Context, rootURL string) error {
	err := a.next.RecordDisallowed(ctx, rootURL)
	a.logger.Warn("domain disallowed for named agent", "root", rootURL, "err", err)
	return err
}
