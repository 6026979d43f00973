package archive

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestWatcher(
	t *testing.T, root string, onChange func([]string),
) *Watcher {
	t.Helper()
	w, err := NewWatcher(
		root, 100*time.Millisecond, onChange, zerolog.Nop(),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.watcher.Close() })
	return w
}

func TestWatcherRequiresCallback(t *testing.T) {
	_, err := NewWatcher(t.TempDir(), time.Second, nil, zerolog.Nop())
	assert.Error(t, err)
}

func TestWatcherDebounceBatches(t *testing.T) {
	root := t.TempDir()
	var batches [][]string
	w := newTestWatcher(t, root, func(paths []string) {
		batches = append(batches, paths)
	})

	now := time.Now()
	w.now = func() time.Time { return now }

	w.handleEvent(fsnotify.Event{
		Name: filepath.Join(root, "a.jsonl"),
		Op:   fsnotify.Write,
	})
	w.handleEvent(fsnotify.Event{
		Name: filepath.Join(root, "sub", "b.jsonl"),
		Op:   fsnotify.Create,
	})

	// Within the debounce window nothing is flushed.
	w.flush()
	assert.Empty(t, batches)

	now = now.Add(200 * time.Millisecond)
	w.flush()
	require.Len(t, batches, 1)
	assert.ElementsMatch(t,
		[]string{"a.jsonl", "sub/b.jsonl"}, batches[0])

	// A flushed change is not reported twice.
	w.flush()
	assert.Len(t, batches, 1)
}

func TestWatcherIgnoresChmod(t *testing.T) {
	root := t.TempDir()
	var calls int
	w := newTestWatcher(t, root, func([]string) { calls++ })

	now := time.Now()
	w.now = func() time.Time { return now }

	w.handleEvent(fsnotify.Event{
		Name: filepath.Join(root, "a.jsonl"),
		Op:   fsnotify.Chmod,
	})
	now = now.Add(time.Second)
	w.flush()
	assert.Zero(t, calls)
}

func TestWatcherCoalescesRepeatedWrites(t *testing.T) {
	root := t.TempDir()
	var batches [][]string
	w := newTestWatcher(t, root, func(paths []string) {
		batches = append(batches, paths)
	})

	now := time.Now()
	w.now = func() time.Time { return now }

	for range 5 {
		w.handleEvent(fsnotify.Event{
			Name: filepath.Join(root, "a.jsonl"),
			Op:   fsnotify.Write,
		})
	}
	now = now.Add(time.Second)
	w.flush()
	require.Len(t, batches, 1)
	assert.Equal(t, []string{"a.jsonl"}, batches[0])
}
