package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startWatcher(t *testing.T, w *Watcher, job Job) context.CancelFunc {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx, job) }()

	// Wait until the watch is registered.
	require.Eventually(t, func() bool {
		w.mu.Lock()
		defer w.mu.Unlock()
		return w.running
	}, time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)

	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(2 * time.Second):
			t.Error("watcher did not stop")
		}
	})
	return cancel
}

func TestWatcher_DebouncesBursts(t *testing.T) {
	dir := t.TempDir()
	var runs atomic.Int32

	w := New([]string{dir}, 200*time.Millisecond, nil)
	startWatcher(t, w, func(context.Context) error {
		runs.Add(1)
		return nil
	})

	for i := 0; i < 5; i++ {
		name := filepath.Join(dir, "SYSTEM_TOMBSTONE@"+string(rune('1'+i))+"000.txt")
		require.NoError(t, os.WriteFile(name, []byte("x"), 0644))
	}

	assert.Eventually(t, func() bool { return runs.Load() == 1 }, 3*time.Second, 20*time.Millisecond)
	time.Sleep(400 * time.Millisecond)
	assert.Equal(t, int32(1), runs.Load(), "burst should collapse into one run")
}

func TestWatcher_IgnoresUnrelatedFiles(t *testing.T) {
	dir := t.TempDir()
	var runs atomic.Int32

	w := New([]string{dir}, 50*time.Millisecond, nil)
	startWatcher(t, w, func(context.Context) error {
		runs.Add(1)
		return nil
	})

	require.NoError(t, os.WriteFile(filepath.Join(dir, "drop123.tmp"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "dropbox.log"), []byte("x"), 0644))

	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, int32(0), runs.Load())
}

func TestWatcher_Errors(t *testing.T) {
	w := New(nil, 0, nil)
	assert.Error(t, w.Run(context.Background(), func(context.Context) error { return nil }))

	w = New([]string{filepath.Join(t.TempDir(), "missing")}, 0, nil)
	assert.Error(t, w.Run(context.Background(), func(context.Context) error { return nil }))
	assert.Equal(t, DefaultDebounce, w.debounce)
}

func TestRelevant(t *testing.T) {
	tests := []struct {
		event fsnotify.Event
		want  bool
	}{
		{fsnotify.Event{Name: "/d/SYSTEM_BOOT@1.txt", Op: fsnotify.Create}, true},
		{fsnotify.Event{Name: "/d/data_app_crash@2.txt.gz", Op: fsnotify.Rename}, true},
		{fsnotify.Event{Name: "/d/x@3.lost", Op: fsnotify.Remove}, true},
		{fsnotify.Event{Name: "/d/SYSTEM_BOOT@1.txt", Op: fsnotify.Chmod}, false},
		{fsnotify.Event{Name: "/d/drop7.tmp", Op: fsnotify.Create}, false},
		{fsnotify.Event{Name: "/d/dropbox.log", Op: fsnotify.Write}, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, relevant(tt.event), "%s %s", tt.event.Op, tt.event.Name)
	}
}
