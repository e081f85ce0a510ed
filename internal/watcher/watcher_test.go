package watcher

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/fileindex-mcp/internal/queue"
	"github.com/dshills/fileindex-mcp/pkg/types"
)

// fakeSource drives the adapter deterministically in tests.
type fakeSource struct {
	events chan Event
	errs   chan error
	closed bool
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		events: make(chan Event, 16),
		errs:   make(chan error, 1),
	}
}

func (s *fakeSource) Events() <-chan Event { return s.events }
func (s *fakeSource) Errors() <-chan error { return s.errs }
func (s *fakeSource) Close() error {
	if !s.closed {
		s.closed = true
		close(s.events)
		close(s.errs)
	}
	return nil
}

func testConfig() Config {
	return Config{
		DebounceWindow:    30 * time.Millisecond,
		CreateSettle:      10 * time.Millisecond,
		ClosePollInterval: 5 * time.Millisecond,
		ClosePollAttempts: 10,
	}
}

// drainTask waits for exactly one task to reach the queue.
func drainTask(t *testing.T, q *queue.Queue) types.FileTask {
	t.Helper()
	task, ok := q.Dequeue(2 * time.Second)
	require.True(t, ok, "expected a task")
	return task
}

func TestAdapter_CreateEnqueuesIndex(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fresh.txt")
	require.NoError(t, os.WriteFile(path, []byte("done writing"), 0o644))

	q := queue.New()
	src := newFakeSource()
	a := New(src, q, testConfig())
	go a.Run()
	defer func() { require.NoError(t, a.Close()) }()

	src.events <- Event{Type: EventCreated, Path: path}

	task := drainTask(t, q)
	assert.Equal(t, types.TaskIndex, task.Kind)
	assert.Equal(t, path, task.Path)
}

func TestAdapter_ModifyBurstDebounces(t *testing.T) {
	path := filepath.Join(t.TempDir(), "busy.txt")
	require.NoError(t, os.WriteFile(path, []byte("v1"), 0o644))

	cfg := testConfig()
	q := queue.New()
	src := newFakeSource()
	a := New(src, q, cfg)
	go a.Run()
	defer func() { require.NoError(t, a.Close()) }()

	// Five writes in quick succession collapse into one task, and it is
	// the first write that produces it: the task must surface within one
	// debounce window, not after the burst goes quiet.
	for i := 0; i < 5; i++ {
		src.events <- Event{Type: EventModified, Path: path}
		time.Sleep(2 * time.Millisecond)
	}

	task, ok := q.Dequeue(cfg.DebounceWindow)
	require.True(t, ok, "first write of the burst is processed immediately")
	assert.Equal(t, types.TaskUpdate, task.Kind)

	_, ok = q.Dequeue(100 * time.Millisecond)
	assert.False(t, ok, "the rest of the burst is discarded")
}

func TestAdapter_ModifyAfterWindowAccepted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "steady.txt")
	require.NoError(t, os.WriteFile(path, []byte("v1"), 0o644))

	cfg := testConfig()
	q := queue.New()
	src := newFakeSource()
	a := New(src, q, cfg)
	go a.Run()
	defer func() { require.NoError(t, a.Close()) }()

	src.events <- Event{Type: EventModified, Path: path}
	first, ok := q.Dequeue(cfg.DebounceWindow)
	require.True(t, ok)
	assert.Equal(t, types.TaskUpdate, first.Kind)

	// Writes inside the window of the accepted one vanish without a task.
	src.events <- Event{Type: EventModified, Path: path}
	src.events <- Event{Type: EventModified, Path: path}
	_, ok = q.Dequeue(cfg.DebounceWindow / 2)
	assert.False(t, ok, "writes inside the window are dropped")

	// A write past the window starts a fresh cycle.
	time.Sleep(2 * cfg.DebounceWindow)
	src.events <- Event{Type: EventModified, Path: path}
	second := drainTask(t, q)
	assert.Equal(t, types.TaskUpdate, second.Kind)
	assert.Equal(t, path, second.Path)
}

func TestAdapter_DeleteBypassesDebounce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gone.txt")

	q := queue.New()
	src := newFakeSource()
	a := New(src, q, testConfig())
	go a.Run()
	defer func() { require.NoError(t, a.Close()) }()

	// A create still settling is cancelled when the file vanishes.
	src.events <- Event{Type: EventCreated, Path: path}
	src.events <- Event{Type: EventDeleted, Path: path}

	task := drainTask(t, q)
	assert.Equal(t, types.TaskDelete, task.Kind)
	assert.Equal(t, path, task.Path)

	_, ok := q.Dequeue(100 * time.Millisecond)
	assert.False(t, ok, "the cancelled create must not surface")
}

func TestAdapter_MovePairsPaths(t *testing.T) {
	dir := t.TempDir()
	oldPath := filepath.Join(dir, "old.txt")
	newPath := filepath.Join(dir, "new.txt")
	require.NoError(t, os.WriteFile(newPath, []byte("moved"), 0o644))

	q := queue.New()
	src := newFakeSource()
	a := New(src, q, testConfig())
	go a.Run()
	defer func() { require.NoError(t, a.Close()) }()

	src.events <- Event{Type: EventMoved, Path: newPath, OldPath: oldPath}

	task := drainTask(t, q)
	assert.Equal(t, types.TaskMove, task.Kind)
	assert.Equal(t, oldPath, task.OldPath)
	assert.Equal(t, newPath, task.NewPath)
}

func TestAdapter_HiddenPathsIgnored(t *testing.T) {
	q := queue.New()
	src := newFakeSource()
	a := New(src, q, testConfig())
	go a.Run()
	defer func() { require.NoError(t, a.Close()) }()

	src.events <- Event{Type: EventCreated, Path: filepath.Join(t.TempDir(), ".swapfile")}
	src.events <- Event{Type: EventModified, Path: filepath.Join(t.TempDir(), "~$lock.docx")}

	_, ok := q.Dequeue(150 * time.Millisecond)
	assert.False(t, ok, "hidden paths never produce tasks")
}

func TestAdapter_CreatedDirectoryWalked(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "dropped")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".git"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("a"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.txt"), []byte("b"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".git", "config"), []byte("x"), 0o644))

	q := queue.New()
	src := newFakeSource()
	a := New(src, q, testConfig())
	go a.Run()
	defer func() { require.NoError(t, a.Close()) }()

	src.events <- Event{Type: EventCreated, Path: dir, IsDir: true}

	got := map[string]bool{}
	for i := 0; i < 2; i++ {
		task := drainTask(t, q)
		assert.Equal(t, types.TaskIndex, task.Kind)
		got[filepath.Base(task.Path)] = true
	}
	assert.True(t, got["a.txt"])
	assert.True(t, got["b.txt"])

	_, ok := q.Dequeue(100 * time.Millisecond)
	assert.False(t, ok, "hidden subtree contents are skipped")
}

func TestAdapter_GrowingFileWaits(t *testing.T) {
	path := filepath.Join(t.TempDir(), "growing.txt")
	require.NoError(t, os.WriteFile(path, []byte("start"), 0o644))

	q := queue.New()
	src := newFakeSource()
	a := New(src, q, testConfig())
	go a.Run()
	defer func() { require.NoError(t, a.Close()) }()

	// Keep appending while the adapter waits for the size to settle.
	stop := make(chan struct{})
	go func() {
		f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return
		}
		defer func() { _ = f.Close() }()
		for i := 0; i < 4; i++ {
			_, _ = f.WriteString("more bytes")
			time.Sleep(4 * time.Millisecond)
		}
		close(stop)
	}()

	src.events <- Event{Type: EventCreated, Path: path}
	<-stop

	task := drainTask(t, q)
	assert.Equal(t, types.TaskIndex, task.Kind)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(5), "task arrived after the writer finished")
}

func TestAdapter_CloseIsIdempotent(t *testing.T) {
	q := queue.New()
	src := newFakeSource()
	a := New(src, q, testConfig())
	go a.Run()

	require.NoError(t, a.Close())
	require.NoError(t, a.Close())
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 2*time.Second, cfg.DebounceWindow)
	assert.Equal(t, time.Second, cfg.CreateSettle)
	assert.Equal(t, time.Second, cfg.ClosePollInterval)
	assert.Equal(t, 30, cfg.ClosePollAttempts)

	// Zero config fields inherit the defaults.
	a := New(newFakeSource(), queue.New(), Config{})
	assert.Equal(t, cfg, a.cfg)
	require.NoError(t, a.Close())
}
