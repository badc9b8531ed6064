package mock

import (
	"context"

	"github.com/fwojciec/sitecrawl"
)

var _ sitecrawl.ExclusionLoader = (*ExclusionLoader)(nil)

// ExclusionLoader is a mock implementation of sitecrawl.ExclusionLoader.
type ExclusionLoader struct {
	LoadExclusionsFn func(ctx context.Context, rootURL string) (*sitecrawl.ExclusionSet, error)
}

func (l *ExclusionLoader) LoadExclusions(ctx context.Context, rootURL string) (*sitecrawl.ExclusionSet, error) {
	return l.LoadExclusionsFn(ctx, rootURL)
}

var _ sitecrawl.Auditor = (*Auditor)(nil)

// Auditor is a mock implementation of sitecrawl.Auditor.
type Auditor struct {
	RecordDisallowedFn func(ctx context.Context, rootURL string) error
}

func (a *Auditor) RecordDisallowed(ctx context.Context, rootURL string) error {
	return a.RecordDisallowedFn(ctx, rootURL)
}
