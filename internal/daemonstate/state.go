// Package daemonstate holds the daemon's authoritative watch list: the
// mapping from repository path to watch entry, its JSON persistence, and
// the mutation methods the IPC handlers and worktree driver call.
package daemonstate

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/cordx56/autosave/internal/config"
	"github.com/cordx56/autosave/internal/fileutil"
	"github.com/cordx56/autosave/internal/watchengine"
)

// fileEntry is the on-disk representation of one watched path's configs.
type fileEntry struct {
	Configs []config.Config `json:"configs"`
}

// fileFormat is the on-disk shape of watch.json.
type fileFormat struct {
	Paths map[string]fileEntry `json:"paths"`
}

// WatchList is the daemon's in-memory, mutex-guarded set of watch
// entries, backed by a JSON file on disk.
type WatchList struct {
	path string

	mu      sync.Mutex
	entries map[string]*watchengine.Entry
}

// New creates an empty watch list persisted at the given watch.json path.
func New(path string) *WatchList {
	return &WatchList{path: path, entries: make(map[string]*watchengine.Entry)}
}

// Load reconstructs a WatchList from its persisted file, starting a
// watcher for every recorded path. An entry whose watcher fails to
// construct (e.g. the path was deleted) is discarded and logged rather
// than failing the whole load, matching the daemon's startup tolerance
// for stale entries.
func Load(path string) (*WatchList, error) {
	wl := New(path)

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return wl, nil
	}
	if err != nil {
		return nil, fmt.Errorf("daemonstate: reading %s: %w", path, err)
	}

	var ff fileFormat
	if err := json.Unmarshal(data, &ff); err != nil {
		return nil, fmt.Errorf("daemonstate: parsing %s: %w", path, err)
	}

	for p, fe := range ff.Paths {
		entry, err := watchengine.NewEntry(p, fe.Configs)
		if err != nil {
			fileutil.LogError("discarding stale watch entry %s: %v", p, err)
			continue
		}
		wl.entries[p] = entry
	}
	return wl, nil
}

// Paths returns the canonical paths currently in the watch list, sorted
// for deterministic output.
func (wl *WatchList) Paths() []string {
	wl.mu.Lock()
	defer wl.mu.Unlock()
	paths := make([]string, 0, len(wl.entries))
	for p := range wl.entries {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// AppendWatchDir adds cfg to the watch entry for path, creating the
// watcher and entry if one does not already exist, and persists the
// watch list afterward.
func (wl *WatchList) AppendWatchDir(path string, cfg config.Config) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("daemonstate: resolving %s: %w", path, err)
	}
	cfg = cfg.WithDefaults()

	wl.mu.Lock()
	entry, ok := wl.entries[abs]
	if ok {
		entry.AddConfig(cfg)
	}
	wl.mu.Unlock()

	if !ok {
		entry, err = watchengine.NewEntry(abs, []config.Config{cfg})
		if err != nil {
			return fmt.Errorf("daemonstate: starting watcher for %s: %w", abs, err)
		}
		wl.mu.Lock()
		wl.entries[abs] = entry
		wl.mu.Unlock()
	}

	return wl.persist()
}

// RemoveWatchDir stops and removes the watch entry for path, if any, and
// persists the watch list afterward.
func (wl *WatchList) RemoveWatchDir(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("daemonstate: resolving %s: %w", path, err)
	}

	wl.mu.Lock()
	entry, ok := wl.entries[abs]
	if ok {
		delete(wl.entries, abs)
	}
	wl.mu.Unlock()

	if ok {
		if err := entry.Close(); err != nil {
			fileutil.LogError("closing watcher for %s: %v", abs, err)
		}
	}

	return wl.persist()
}

// RemoveAll stops and removes every watch entry, then persists the
// (now empty) watch list.
func (wl *WatchList) RemoveAll() error {
	wl.mu.Lock()
	entries := wl.entries
	wl.entries = make(map[string]*watchengine.Entry)
	wl.mu.Unlock()

	for p, e := range entries {
		if err := e.Close(); err != nil {
			fileutil.LogError("closing watcher for %s: %v", p, err)
		}
	}
	return wl.persist()
}

// Close stops every watcher without touching the persisted file, for use
// during daemon shutdown after a final persist has already happened.
func (wl *WatchList) Close() {
	wl.mu.Lock()
	entries := wl.entries
	wl.mu.Unlock()
	for p, e := range entries {
		if err := e.Close(); err != nil {
			fileutil.LogError("closing watcher for %s: %v", p, err)
		}
	}
}

// persist writes the watch list to disk using a write-to-temp-then-rename
// sequence so a reader never observes a partially written file.
func (wl *WatchList) persist() error {
	wl.mu.Lock()
	ff := fileFormat{Paths: make(map[string]fileEntry, len(wl.entries))}
	for p, e := range wl.entries {
		ff.Paths[p] = fileEntry{Configs: e.Configs()}
	}
	wl.mu.Unlock()

	data, err := json.MarshalIndent(ff, "", "  ")
	if err != nil {
		return fmt.Errorf("daemonstate: encoding watch list: %w", err)
	}

	if err := fileutil.EnsureDir(filepath.Dir(wl.path)); err != nil {
		return err
	}

	tmp := wl.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("daemonstate: writing %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, wl.path); err != nil {
		return fmt.Errorf("daemonstate: renaming %s to %s: %w", tmp, wl.path, err)
	}
	return nil
}
