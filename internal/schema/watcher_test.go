package schema

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcher_ReloadsOnWrite(t *testing.T) {
	r, _ := newTestRegistry(t)
	path := filepath.Join(t.TempDir(), "schema.graphql")
	require.NoError(t, os.WriteFile(path, []byte(sdlV1), 0o600))
	_, err := r.LoadFile(path)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	w := NewWatcher(r, path, 20*time.Millisecond, discardLogger())
	go func() { done <- w.Run(ctx) }()

	// Give the watcher time to register before writing.
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte(sdlV2), 0o600))

	assert.Eventually(t, func() bool {
		return r.Current().Schema.Types["User"] != nil
	}, 3*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop after cancellation")
	}
}

func TestWatcher_InvalidWriteKeepsSchema(t *testing.T) {
	r, _ := newTestRegistry(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "schema.graphql")
	require.NoError(t, os.WriteFile(path, []byte(sdlV1), 0o600))
	first, err := r.LoadFile(path)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = NewWatcher(r, path, 20*time.Millisecond, discardLogger()).Run(ctx) }()

	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.graphql"), []byte(sdlV2), 0o600))
	require.NoError(t, os.WriteFile(path, []byte(`type Query {`), 0o600))

	time.Sleep(300 * time.Millisecond)
	assert.Same(t, first, r.Current())
}

func TestWatcher_MissingDirectory(t *testing.T) {
	r, _ := newTestRegistry(t)
	w := NewWatcher(r, filepath.Join(t.TempDir(), "nope", "schema.graphql"), 0, discardLogger())
	require.Error(t, w.Run(context.Background()))
}
