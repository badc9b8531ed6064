package main

import (
	"context"
	"io"

	"github.com/fwojciec/sitecrawl"
	"github.com/fwojciec/sitecrawl/crawl"
)

// Dependencies holds all services and configuration for command execution.
type Dependencies struct {
	Ctx    context.Context
	Stdout io.Writer
	Stderr io.Writer

	Crawler *crawl.Crawler
	Accept  sitecrawl.AcceptFunc
}

// CrawlCmd prints the URLs discovered from a seed.
type CrawlCmd struct {
	URL string
}
