package reload_test

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/federatedmcp/gateway/pkg/reload"
)

func TestWatcherFiresOnChange(t *testing.T) {
	dir := t.TempDir()
	providersPath := filepath.Join(dir, "providers.yaml")
	workspacesPath := filepath.Join(dir, "workspaces.yaml")
	require.NoError(t, os.WriteFile(providersPath, []byte("{}\n"), 0o644))
	require.NoError(t, os.WriteFile(workspacesPath, []byte("{}\n"), 0o644))

	var fired atomic.Int32
	w := reload.New(providersPath, workspacesPath, func() { fired.Add(1) })
	require.NoError(t, w.Start())
	defer w.Stop()

	require.NoError(t, os.WriteFile(providersPath, []byte("echo: {}\n"), 0o644))

	require.Eventually(t, func() bool { return fired.Load() == 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestWatcherDebouncesRapidWrites(t *testing.T) {
	dir := t.TempDir()
	providersPath := filepath.Join(dir, "providers.yaml")
	workspacesPath := filepath.Join(dir, "workspaces.yaml")
	require.NoError(t, os.WriteFile(providersPath, []byte("{}\n"), 0o644))
	require.NoError(t, os.WriteFile(workspacesPath, []byte("{}\n"), 0o644))

	var fired atomic.Int32
	w := reload.New(providersPath, workspacesPath, func() { fired.Add(1) })
	require.NoError(t, w.Start())
	defer w.Stop()

	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(providersPath, []byte("echo: {}\n"), 0o644))
		time.Sleep(20 * time.Millisecond)
	}

	require.Eventually(t, func() bool { return fired.Load() == 1 }, 2*time.Second, 10*time.Millisecond)

	// give extra time past the debounce window to confirm no extra fires
	time.Sleep(400 * time.Millisecond)
	require.Equal(t, int32(1), fired.Load())
}

func TestStopIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	providersPath := filepath.Join(dir, "providers.yaml")
	workspacesPath := filepath.Join(dir, "workspaces.yaml")
	require.NoError(t, os.WriteFile(providersPath, []byte("{}\n"), 0o644))
	require.NoError(t, os.WriteFile(workspacesPath, []byte("{}\n"), 0o644))

	w := reload.New(providersPath, workspacesPath, func() {})
	require.NoError(t, w.Start())
	w.Stop()
	w.Stop()
}
