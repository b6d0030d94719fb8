package rulepack

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/gzhole/schnabel/internal/model"
)

// DebounceInterval is how long Watcher waits after the last filesystem event
// before recompiling, collapsing bursts of writes (e.g. an editor's
// write-then-rename save) into a single reload.
const DebounceInterval = 500 * time.Millisecond

// Watcher hot-reloads a rule-pack directory: it compiles once at
// construction, then watches dir with fsnotify and atomically swaps in a
// freshly compiled pack whenever its contents change. A pack that fails to
// compile is logged and discarded — the previously loaded pack stays live,
// so a typo in one rule file never takes the scanner offline.
type Watcher struct {
	dir     string
	current atomic.Pointer[model.CompiledRulePack]
	onError func(error)
	watcher *fsnotify.Watcher
}

// NewWatcher performs an initial LoadDir(dir) and starts watching dir for
// changes. onError, if non-nil, is called (from the watch goroutine) every
// time a reload attempt fails to compile.
func NewWatcher(dir string, onError func(error)) (*Watcher, error) {
	pack, err := LoadDir(dir)
	if err != nil {
		return nil, err
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, err
	}

	w := &Watcher{dir: dir, onError: onError, watcher: fw}
	w.current.Store(pack)
	return w, nil
}

// Current returns the most recently compiled pack. Safe for concurrent use
// with Run's reloads.
func (w *Watcher) Current() *model.CompiledRulePack {
	return w.current.Load()
}

// Run watches dir for changes until ctx is cancelled, debouncing bursts of
// filesystem events and recompiling the directory on each settled burst.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.watcher.Close()

	var debounce *time.Timer
	reload := func() {
		pack, err := LoadDir(w.dir)
		if err != nil {
			if w.onError != nil {
				w.onError(err)
			}
			return
		}
		w.current.Store(pack)
	}

	for {
		select {
		case <-ctx.Done():
			if debounce != nil {
				debounce.Stop()
			}
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				if debounce != nil {
					debounce.Stop()
				}
				debounce = time.AfterFunc(DebounceInterval, reload)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			if w.onError != nil {
				w.onError(err)
			}
		}
	}
}
