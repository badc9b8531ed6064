package main

import (
	"fmt"

	"github.com/fwojciec/sitecrawl"
)

// Run executes the crawl command. URLs are printed one per line as they
// are discovered. Pages that fail to render are skipped by the crawler;
// only setup failures and cancellation end the command with an error.
func (c *CrawlCmd) Run(deps *Dependencies) error {
	var count int
	for u, err := range deps.Crawler.Crawl(deps.Ctx, c.URL, deps.Accept, nil) {
		if err != nil {
			fmt.Fprintf(deps.Stderr, "error: %s\n", sitecrawl.ErrorMessage(err))
			return err
		}
		fmt.Fprintln(deps.Stdout, u)
		count++
	}

	fmt.Fprintf(deps.Stderr, "Found %d URLs\n", count)
	return nil
}
