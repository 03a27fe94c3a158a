package workspace

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long the watcher waits for a burst of events to
// settle.
const DefaultDebounce = 200 * time.Millisecond

// Changes is one settled batch of file system events.
type Changes struct {
	Changed []string
	Removed []string
}

// Empty reports whether the batch holds nothing.
func (c Changes) Empty() bool { return len(c.Changed) == 0 && len(c.Removed) == 0 }

// Watcher reports created, modified and removed files below a set of
// roots. Events are debounced and delivered in batches.
type Watcher struct {
	roots    []string
	accept   func(path string) bool
	onChange func(Changes)
	debounce time.Duration

	watcher *fsnotify.Watcher
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewWatcher creates a watcher for the files accepted by accept.
func NewWatcher(roots []string, accept func(path string) bool, onChange func(Changes)) *Watcher {
	return &Watcher{
		roots:    roots,
		accept:   accept,
		onChange: onChange,
		debounce: DefaultDebounce,
	}
}

// SetDebounce changes the settle delay. It must be called before Start.
func (w *Watcher) SetDebounce(d time.Duration) { w.debounce = d }

// Start begins watching. Directories created later are picked up.
func (w *Watcher) Start() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	w.watcher = watcher
	w.cancel = cancel

	for _, root := range w.roots {
		w.addDirectory(root)
	}

	w.wg.Add(1)

	go w.loop(ctx)

	return nil
}

func (w *Watcher) loop(ctx context.Context) {
	defer w.wg.Done()

	pendingChanges := make(map[string]bool)
	pendingRemoves := make(map[string]bool)

	timer := time.NewTimer(time.Hour)
	timer.Stop()

	reset := func() {
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}

		timer.Reset(w.debounce)
	}

	flush := func() {
		if len(pendingChanges) == 0 && len(pendingRemoves) == 0 {
			return
		}

		var c Changes
		for path := range pendingChanges {
			c.Changed = append(c.Changed, path)
		}

		for path := range pendingRemoves {
			c.Removed = append(c.Removed, path)
		}

		pendingChanges = make(map[string]bool)
		pendingRemoves = make(map[string]bool)

		log.Debugf("file changes: %d changed, %d removed", len(c.Changed), len(c.Removed))
		w.onChange(c)
	}

	for {
		select {
		case <-ctx.Done():
			flush()
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}

			if w.ignored(event.Name) {
				continue
			}

			info, err := os.Stat(event.Name)
			if err != nil {
				if event.Op&(fsnotify.Remove|fsnotify.Rename) != 0 && w.accept(event.Name) {
					pendingRemoves[event.Name] = true
					delete(pendingChanges, event.Name)
					reset()
				}

				continue
			}

			if info.IsDir() {
				if event.Op&fsnotify.Create != 0 {
					w.addDirectory(event.Name)
				}

				continue
			}

			if !w.accept(event.Name) {
				continue
			}

			switch {
			case event.Op&(fsnotify.Create|fsnotify.Write) != 0:
				pendingChanges[event.Name] = true
				delete(pendingRemoves, event.Name)
			case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				pendingRemoves[event.Name] = true
				delete(pendingChanges, event.Name)
			default:
				continue
			}

			reset()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}

			log.Warningf("file watcher error: %s", err)

		case <-timer.C:
			flush()
		}
	}
}

// addDirectory watches dir and every directory below it.
func (w *Watcher) addDirectory(dir string) {
	_ = filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}

		if path != dir && (strings.HasPrefix(d.Name(), ".") || skipDirs[d.Name()]) {
			return filepath.SkipDir
		}

		if err := w.watcher.Add(path); err != nil {
			log.Warningf("error watching directory %s: %s", path, err)
		}

		return nil
	})
}

// ignored reports whether path lies in a hidden or build output directory
// below one of the roots.
func (w *Watcher) ignored(path string) bool {
	for _, root := range w.roots {
		rel, err := filepath.Rel(root, path)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			continue
		}

		for _, part := range strings.Split(filepath.ToSlash(rel), "/") {
			if part != "." && strings.HasPrefix(part, ".") || skipDirs[part] {
				return true
			}
		}
	}

	return false
}

// Close stops the watcher after delivering pending changes.
func (w *Watcher) Close() error {
	if w.watcher == nil {
		return nil
	}

	w.cancel()
	w.wg.Wait()

	err := w.watcher.Close()
	w.watcher = nil

	return err
}
