package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// waitForCallback waits up to timeout for the callback channel to receive a value.
func waitForCallback(ch <-chan string, timeout time.Duration) (string, bool) {
	select {
	case v := <-ch:
		return v, true
	case <-time.After(timeout):
		return "", false
	}
}

func TestWatcherCollapsesBursts(t *testing.T) {
	dir := t.TempDir()
	board := filepath.Join(dir, "board.kicad_pcb")
	require.NoError(t, os.WriteFile(board, []byte("(kicad_pcb)"), 0644))

	w, err := New(100 * time.Millisecond)
	require.NoError(t, err)
	defer w.Stop()

	changed := make(chan string, 10)
	require.NoError(t, w.Watch(board, func(path string) { changed <- path }))

	// Give watcher time to start
	time.Sleep(50 * time.Millisecond)

	for i := 0; i < 3; i++ {
		require.NoError(t, os.WriteFile(board, []byte("(kicad_pcb (version 1))"), 0644))
	}

	path, ok := waitForCallback(changed, 2*time.Second)
	require.True(t, ok, "expected callback for file change")
	assert.Equal(t, board, path)

	_, again := waitForCallback(changed, 300*time.Millisecond)
	assert.False(t, again, "a burst of writes must fire once")
}

func TestWatcherIgnoresSiblings(t *testing.T) {
	dir := t.TempDir()
	board := filepath.Join(dir, "board.kicad_pcb")
	require.NoError(t, os.WriteFile(board, []byte("(kicad_pcb)"), 0644))

	w, err := New(20 * time.Millisecond)
	require.NoError(t, err)
	defer w.Stop()

	changed := make(chan string, 10)
	require.NoError(t, w.Watch(board, func(path string) { changed <- path }))
	time.Sleep(50 * time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "board.kicad_pcb-bak"), []byte("x"), 0644))

	_, ok := waitForCallback(changed, 300*time.Millisecond)
	assert.False(t, ok)
}

func TestWatcherStopIsIdempotent(t *testing.T) {
	w, err := New(time.Millisecond)
	require.NoError(t, err)
	assert.NoError(t, w.Stop())
	assert.NoError(t, w.Stop())
}

func TestLoop(t *testing.T) {
	dir := t.TempDir()
	board := filepath.Join(dir, "board.kicad_pcb")
	require.NoError(t, os.WriteFile(board, []byte("(kicad_pcb)"), 0644))

	ctx, cancel := context.WithCancel(context.Background())
	var runs atomic.Int32
	ran := make(chan struct{}, 10)

	done := make(chan error, 1)
	go func() {
		done <- Loop(ctx, board, 20*time.Millisecond, func() error {
			runs.Add(1)
			ran <- struct{}{}
			return nil
		}, func(err error) { t.Errorf("unexpected error: %v", err) })
	}()

	// initial run
	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("initial run did not happen")
	}

	time.Sleep(50 * time.Millisecond)
	require.NoError(t, os.WriteFile(board, []byte("(kicad_pcb (version 2))"), 0644))

	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("change did not trigger a run")
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not stop")
	}
	assert.Equal(t, int32(2), runs.Load())
}
