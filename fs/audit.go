// Package fs provides file-based storage for crawl side records.
package fs

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"github.com/fwojciec/sitecrawl"
)

// DefaultAuditFile is the audit log file name used by the CLI.
const DefaultAuditFile = "not_allowed_domains.txt"

// Ensure AuditLog implements sitecrawl.Auditor at compile time.
var _ sitecrawl.Auditor = (*AuditLog)(nil)

// AuditLog appends the roots of domains whose robots declaration restricted
// a named agent to a text file, one URL per line. The file is opened for
// each write with O_APPEND, so concurrent processes never truncate it.
type AuditLog struct {
	path string

	mu sync.Mutex
}

// NewAuditLog creates an AuditLog that appends to path.
func NewAuditLog(path string) *AuditLog {
	return &AuditLog{path: path}
}

// Path returns the file the log appends to.
func (a *AuditLog) Path() string {
	return a.path
}

// RecordDisallowed appends rootURL to the audit file.
func (a *AuditLog) RecordDisallowed(ctx context.Context, rootURL string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if rootURL == "" {
		return sitecrawl.Errorf(sitecrawl.EINVALID, "empty root URL")
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if dir := filepath.Dir(a.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}

	f, err := os.OpenFile(a.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	if _, err := f.WriteString(rootURL + "\n"); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
