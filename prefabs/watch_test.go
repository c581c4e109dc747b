package prefabs

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettledWaitsForQuietPaths(t *testing.T) {
	now := time.Now()
	pending := map[string]time.Time{
		"b.yaml":     now.Add(-2 * reloadDebounce),
		"a.tengo":    now.Add(-reloadDebounce),
		"still.yaml": now.Add(-reloadDebounce / 2),
	}
	assert.Equal(t, []string{"a.tengo", "b.yaml"}, settled(pending, now))
}

func TestWatcherReportsEditedScene(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWatcher(dir)
	require.NoError(t, err)
	defer w.Close()

	path := filepath.Join(dir, "scene.yaml")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(path, []byte("name: a\n"), 0o644))
	require.NoError(t, os.WriteFile(path, []byte("name: b\n"), 0o644))

	select {
	case got := <-w.Events:
		assert.Equal(t, path, got)
	case <-time.After(5 * time.Second):
		t.Fatal("no event for edited scene")
	}

	select {
	case got := <-w.Events:
		t.Fatalf("unexpected second event %s", got)
	case <-time.After(3 * reloadDebounce):
	}
}

func TestWatcherCloseClosesChannels(t *testing.T) {
	w, err := NewWatcher(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, w.Close())

	_, ok := <-w.Events
	assert.False(t, ok)
	_, ok = <-w.Errors
	assert.False(t, ok)
}
