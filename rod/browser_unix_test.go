//go:build integration && !windows

package rod_test

import (
	"context"
	"syscall"
	"testing"
	"time"

	"github.com/fwojciec/sitecrawl/rod"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBrowser_Close_KillsLauncherProcess(t *testing.T) {
	t.Parallel()

	b, err := rod.NewLauncher().Launch(context.Background())
	require.NoError(t, err)
	browser := b.(*rod.Browser)

	pid := browser.LauncherPID()
	require.NotZero(t, pid, "launcher PID should be set")

	// Signal 0 checks if the process exists without affecting it.
	err = syscall.Kill(pid, syscall.Signal(0))
	require.NoError(t, err, "launcher process should be running before Close()")

	require.NoError(t, browser.Close())
	require.NoError(t, browser.Close(), "second Close should be a no-op")

	time.Sleep(100 * time.Millisecond)

	err = syscall.Kill(pid, syscall.Signal(0))
	assert.Error(t, err, "launcher process should be terminated after Close()")
}

func TestBrowser_NewRenderer_AfterClose(t *testing.T) {
	t.Parallel()

	b, err := rod.NewLauncher().Launch(context.Background())
	require.NoError(t, err)
	require.NoError(t, b.Close())

	_, err = b.NewRenderer(context.Background())

	assert.Error(t, err)
}
