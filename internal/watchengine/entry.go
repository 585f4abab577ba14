package watchengine

import (
	"fmt"
	"sync"

	"github.com/cordx56/autosave/internal/config"
	"github.com/cordx56/autosave/internal/fileutil"
	"github.com/cordx56/autosave/internal/git"
)

// Entry owns everything the daemon needs to watch a single repository
// root: the recursive filesystem watcher, the mutex-protected set of
// debounce-tier configs attached to it, and the worker goroutine driving
// saves. One Entry exists per watched path for the lifetime of the daemon.
type Entry struct {
	root string
	repo *git.Repo

	mu      sync.Mutex
	configs []config.Config

	watcher *recursiveWatcher
	notify  chan struct{}
	errs    chan error
	done    chan struct{}
}

// NewEntry starts watching root and arms the debounce worker with the
// given initial configs (at least one is required; callers should apply
// config.Config.WithDefaults() before calling this).
func NewEntry(root string, configs []config.Config) (*Entry, error) {
	if len(configs) == 0 {
		return nil, fmt.Errorf("watchengine: at least one config is required for %s", root)
	}
	w, err := newRecursiveWatcher(root)
	if err != nil {
		return nil, fmt.Errorf("watchengine: starting watcher for %s: %w", root, err)
	}

	e := &Entry{
		root:    root,
		repo:    git.NewRepo(root),
		configs: append([]config.Config(nil), configs...),
		watcher: w,
		notify:  make(chan struct{}, 1),
		errs:    make(chan error, 1),
		done:    make(chan struct{}),
	}

	go w.run(e.notify, e.errs)
	go e.drainErrors()
	go func() {
		defer close(e.done)
		runDebounceWorker(e.notify, e.logSaveError, e.snapshotConfigs, e.save)
	}()

	return e, nil
}

// Root returns the watched repository's working-tree path.
func (e *Entry) Root() string {
	return e.root
}

// AddConfig attaches another debounce tier to this watch entry. If a
// config with the same Delay already exists it is replaced, matching the
// append-to-existing-entry semantics of the watch list.
func (e *Entry) AddConfig(c config.Config) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i, existing := range e.configs {
		if existing.Delay == c.Delay {
			e.configs[i] = c
			return
		}
	}
	e.configs = append(e.configs, c)
}

// Configs returns a snapshot of the configs currently attached to this
// entry, for persistence to the watch list file.
func (e *Entry) Configs() []config.Config {
	return e.snapshotConfigs()
}

func (e *Entry) snapshotConfigs() []config.Config {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]config.Config(nil), e.configs...)
}

func (e *Entry) save(c config.Config) error {
	return e.repo.Save(c.Branch, c.CommitMessage, c.MergeMessage)
}

func (e *Entry) logSaveError(err error) {
	fileutil.LogError("save failed for %s: %v", e.root, err)
}

func (e *Entry) drainErrors() {
	for err := range e.errs {
		fileutil.LogError("watch error for %s: %v", e.root, err)
	}
}

// Close stops the watcher and lets the debounce worker drain and exit.
func (e *Entry) Close() error {
	err := e.watcher.Close()
	close(e.notify)
	<-e.done
	close(e.errs)
	return err
}
