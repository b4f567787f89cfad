package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/biyu6/swift/internal/snapshot"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		path string
		want fileKind
	}{
		{"Kit/KTView.h", kindHeader},
		{"Kit/KTVIEW.H", kindHeader},
		{"Kit/Kit.apinotes", kindNotes},
		{"Kit/KTView.m", kindOther},
		{".clangimport/Kit.interface", kindOther},
		{"Kit/.KTView.h.swp", kindOther},
		{"Kit/.hidden.h", kindOther},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, classify(tt.path))
		})
	}
}

func TestNew(t *testing.T) {
	w, err := New(".", &fakeTarget{}, 0)
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(w.Root()))
	assert.Equal(t, DefaultDebounce, w.debounce)
}

func TestRun_HeaderChangeRefreshes(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "Kit", "KTKit.h"), "int kt_version(void);\n")

	target := &fakeTarget{}
	w, err := New(root, target, 20*time.Millisecond)
	require.NoError(t, err)
	changes := make(chan *snapshot.Snapshot, 4)
	w.OnChange = func(s *snapshot.Snapshot) { changes <- s }

	stop := runWatcher(t, w)
	defer stop()

	writeFile(t, filepath.Join(root, "Kit", "KTKit.h"), "int kt_version(void);\nint kt_count(void);\n")
	waitFor(t, changes)
	assert.GreaterOrEqual(t, target.refreshes(), 1)
	assert.Equal(t, 0, target.generates())
}

func TestRun_NotesChangeRegenerates(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "Kit", "KTKit.h"), "int kt_version(void);\n")

	target := &fakeTarget{}
	w, err := New(root, target, 20*time.Millisecond)
	require.NoError(t, err)
	changes := make(chan *snapshot.Snapshot, 4)
	w.OnChange = func(s *snapshot.Snapshot) { changes <- s }

	stop := runWatcher(t, w)
	defer stop()

	writeFile(t, filepath.Join(root, "Kit", "Kit.apinotes"), "Name: Kit\n")
	waitFor(t, changes)
	assert.GreaterOrEqual(t, target.generates(), 1)
}

func TestRun_IgnoresOtherFiles(t *testing.T) {
	root := t.TempDir()
	target := &fakeTarget{}
	w, err := New(root, target, 10*time.Millisecond)
	require.NoError(t, err)

	stop := runWatcher(t, w)
	writeFile(t, filepath.Join(root, "notes.txt"), "hello\n")
	time.Sleep(150 * time.Millisecond)
	stop()

	assert.Equal(t, 0, target.refreshes())
	assert.Equal(t, 0, target.generates())
}

func TestRun_StopsOnCancel(t *testing.T) {
	w, err := New(t.TempDir(), &fakeTarget{}, 0)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, w.Run(ctx))
}

// --- helpers ---

type fakeTarget struct {
	mu        sync.Mutex
	refreshN  int
	generateN int
}

func (f *fakeTarget) GenerateSnapshot(ctx context.Context, root string) (*snapshot.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.generateN++
	return &snapshot.Snapshot{Meta: snapshot.Meta{ID: "generated", Root: root}}, nil
}

func (f *fakeTarget) Refresh(ctx context.Context) (*snapshot.Snapshot, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshN++
	return &snapshot.Snapshot{Meta: snapshot.Meta{ID: "refreshed"}}, true, nil
}

func (f *fakeTarget) refreshes() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.refreshN
}

func (f *fakeTarget) generates() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.generateN
}

// runWatcher starts w and returns a function that stops it and waits for
// Run to return.
func runWatcher(t *testing.T, w *Watcher) func() {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	// Give the watcher time to register the tree.
	time.Sleep(50 * time.Millisecond)
	return func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(2 * time.Second):
			t.Error("watcher did not stop")
		}
	}
}

func waitFor(t *testing.T, ch <-chan *snapshot.Snapshot) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(5 * time.Second):
		t.Fatal("no refresh within 5s")
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}
