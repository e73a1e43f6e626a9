package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcherDetectsFileCreation(t *testing.T) {
	dir := t.TempDir()
	w, err := New(dir, 20*time.Millisecond, nil, 8)
	require.NoError(t, err)
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	target := filepath.Join(dir, "new_file.go")
	require.NoError(t, os.WriteFile(target, []byte("package main\n"), 0o644))

	select {
	case batch := <-w.Events():
		require.NotEmpty(t, batch)
		found := false
		for _, c := range batch {
			if c.Path == target {
				found = true
			}
		}
		assert.True(t, found)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for watcher event")
	}
}

func TestWatcherIgnoresMatchedGlobs(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "node_modules"), 0o755))

	w, err := New(dir, 20*time.Millisecond, []string{"node_modules/**", "node_modules"}, 8)
	require.NoError(t, err)
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "node_modules", "pkg.js"), []byte("x"), 0o644))

	select {
	case batch := <-w.Events():
		t.Fatalf("expected no events for ignored path, got %v", batch)
	case <-time.After(200 * time.Millisecond):
		// No event within the debounce window is the expected outcome.
	}
}
