// Package watch re-imports a header tree when its files change.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/biyu6/swift/internal/apinotes"
	"github.com/biyu6/swift/internal/snapshot"
)

// DefaultDebounce is how long the watcher waits for a burst of file events
// to settle before refreshing.
const DefaultDebounce = 200 * time.Millisecond

// Target is the engine surface the watcher drives.
type Target interface {
	GenerateSnapshot(ctx context.Context, root string) (*snapshot.Snapshot, error)
	Refresh(ctx context.Context) (*snapshot.Snapshot, bool, error)
}

// Watcher turns file system notifications under a header root into engine
// refreshes.
type Watcher struct {
	root     string
	target   Target
	debounce time.Duration

	// OnChange, when set, receives every snapshot a refresh produced.
	OnChange func(*snapshot.Snapshot)
}

// New creates a watcher for root. A non-positive debounce selects
// DefaultDebounce.
func New(root string, target Target, debounce time.Duration) (*Watcher, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving watch root: %w", err)
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{root: abs, target: target, debounce: debounce}, nil
}

// Root returns the absolute directory being watched.
func (w *Watcher) Root() string { return w.root }

// Run watches until ctx is done. Header edits go through an incremental
// refresh; API notes edits regenerate the tree since notes apply when a
// module is registered.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer fw.Close()

	if err := w.addTree(fw, w.root); err != nil {
		return err
	}
	log.Printf("[watch] watching %s", w.root)

	var (
		timer        *time.Timer
		fire         <-chan time.Time
		pending      int
		notesChanged bool
	)
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			switch {
			case ev.Op&fsnotify.Create != 0 && !hidden(ev.Name) && isDir(ev.Name):
				if err := w.addTree(fw, ev.Name); err != nil {
					log.Printf("[watch] warning: %v", err)
				}
				// Headers written before the directory was added produce
				// no events of their own.
				pending++
			case classify(ev.Name) == kindHeader:
				pending++
			case classify(ev.Name) == kindNotes:
				pending++
				notesChanged = true
			default:
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			log.Printf("[watch] warning: %v", err)

		case <-fire:
			fire = nil
			if pending == 0 {
				continue
			}
			log.Printf("[watch] %d file events, refreshing", pending)
			w.refresh(ctx, notesChanged)
			pending = 0
			notesChanged = false
		}
	}
}

func (w *Watcher) refresh(ctx context.Context, regenerate bool) {
	var (
		snap    *snapshot.Snapshot
		changed = true
		err     error
	)
	if regenerate {
		snap, err = w.target.GenerateSnapshot(ctx, w.root)
	} else {
		snap, changed, err = w.target.Refresh(ctx)
	}
	if err != nil {
		log.Printf("[watch] refresh failed: %v", err)
		return
	}
	if !changed {
		log.Printf("[watch] no header changes")
		return
	}
	log.Printf("[watch] snapshot %s: %d modules, %d insights", snap.Meta.ID, snap.Meta.ModuleCount, snap.Meta.InsightCount)
	if w.OnChange != nil {
		w.OnChange(snap)
	}
}

// addTree watches dir and every directory below it, skipping hidden ones.
func (w *Watcher) addTree(fw *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if err := fw.Add(path); err != nil {
			return fmt.Errorf("watching %s: %w", path, err)
		}
		return nil
	})
}

type fileKind int

const (
	kindOther fileKind = iota
	kindHeader
	kindNotes
)

func classify(path string) fileKind {
	if hidden(path) {
		return kindOther
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".h":
		return kindHeader
	case apinotes.Extension:
		return kindNotes
	}
	return kindOther
}

func hidden(path string) bool {
	return strings.HasPrefix(filepath.Base(path), ".")
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
