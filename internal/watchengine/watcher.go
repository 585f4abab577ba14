// Package watchengine implements the per-repository filesystem watcher and
// multi-tier debounce worker that drive the save routine.
package watchengine

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// recursiveWatcher wraps an fsnotify.Watcher rooted at a directory, adding
// every subdirectory (fsnotify, like inotify, is not recursive) and
// excluding .git, whose churn is noise from the daemon's own saves.
type recursiveWatcher struct {
	fsw  *fsnotify.Watcher
	root string
}

func newRecursiveWatcher(root string) (*recursiveWatcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &recursiveWatcher{fsw: fsw, root: root}
	if err := w.addTree(root); err != nil {
		fsw.Close()
		return nil, err
	}
	return w, nil
}

// addTree walks dir and adds every subdirectory (excluding .git) to the
// watch. New directories created later are picked up lazily from Create
// events in the run loop.
func (w *recursiveWatcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err // the root itself is missing or unreadable
			}
			return nil // a directory may have vanished mid-walk; skip it
		}
		if !d.IsDir() {
			return nil
		}
		if shouldSkipDir(path) {
			return filepath.SkipDir
		}
		return w.fsw.Add(path)
	})
}

func shouldSkipDir(path string) bool {
	base := filepath.Base(path)
	return base == ".git"
}

// shouldIgnoreEvent filters noise that should never trigger a save attempt
// on its own: editor swap files, lock files, and git's own bookkeeping
// (which is already excluded from the watch tree, but events can still
// arrive for paths just removed from it).
func shouldIgnoreEvent(path string) bool {
	base := filepath.Base(path)
	if strings.HasSuffix(base, ".swp") || strings.HasSuffix(base, ".swx") || strings.HasSuffix(base, "~") {
		return true
	}
	if strings.Contains(path, string(filepath.Separator)+".git"+string(filepath.Separator)) || strings.HasSuffix(path, string(filepath.Separator)+".git") {
		return true
	}
	return false
}

// run forwards filtered change notifications to notify (coalesced, never
// blocking) and watcher errors to errs until the fsnotify watcher closes.
func (w *recursiveWatcher) run(notify chan<- struct{}, errs chan<- error) {
	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if shouldIgnoreEvent(ev.Name) {
				continue
			}
			if ev.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() && !shouldSkipDir(ev.Name) {
					_ = w.fsw.Add(ev.Name)
				}
			}
			select {
			case notify <- struct{}{}:
			default:
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			select {
			case errs <- err:
			default:
			}
		}
	}
}

func (w *recursiveWatcher) Close() error {
	return w.fsw.Close()
}
