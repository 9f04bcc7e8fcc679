package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func waitEvent(t *testing.T, w *Watcher) (Event, bool) {
	t.Helper()
	select {
	case ev := <-w.Events():
		return ev, true
	case <-time.After(3 * time.Second):
		return Event{}, false
	}
}

func TestWatcherReportsChangesToWorkbook(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "protests.csv")
	require.NoError(t, os.WriteFile(path, []byte("ID\n"), 0o644))

	w, err := New(path, WithDebounce(20*time.Millisecond))
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))
	defer w.Stop()

	require.NoError(t, os.WriteFile(path, []byte("ID\nr1\n"), 0o644))
	ev, ok := waitEvent(t, w)
	if !ok {
		t.Fatalf("expected an event for %s", path)
	}
	if ev.Path != w.Path() {
		t.Fatalf("event path = %q, want %q", ev.Path, w.Path())
	}
}

func TestWatcherIgnoresSiblingFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "protests.csv")
	require.NoError(t, os.WriteFile(path, []byte("ID\n"), 0o644))

	w, err := New(path, WithDebounce(20*time.Millisecond))
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.csv"), []byte("x"), 0o644))
	select {
	case ev := <-w.Events():
		t.Fatalf("unexpected event %+v", ev)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestWatcherSeesAtomicReplace(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "protests.xlsx")
	require.NoError(t, os.WriteFile(path, []byte("old"), 0o644))

	w, err := New(path, WithDebounce(20*time.Millisecond))
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	tmp := filepath.Join(dir, ".protests.xlsx.tmp")
	require.NoError(t, os.WriteFile(tmp, []byte("new"), 0o644))
	require.NoError(t, os.Rename(tmp, path))
	if _, ok := waitEvent(t, w); !ok {
		t.Fatalf("expected an event after rename onto %s", path)
	}
}

func TestStopWithoutStart(t *testing.T) {
	w, err := New(filepath.Join(t.TempDir(), "x.csv"))
	require.NoError(t, err)
	w.Stop()
}
