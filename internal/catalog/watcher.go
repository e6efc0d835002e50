package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Enqueuer queues a reload of one project.
type Enqueuer interface {
	Enqueue(project, reason string) (*Job, error)
}

// Watcher reloads on-disk projects when their navigation scripts change.
// Bursts of events for one project collapse into a single reload after the
// debounce interval.
type Watcher struct {
	cat      *Catalog
	queue    Enqueuer
	watcher  *fsnotify.Watcher
	debounce time.Duration
	log      *slog.Logger

	mu      sync.Mutex
	pending map[string]*time.Timer
	started bool
	stopped bool
	done    chan struct{}
}

func NewWatcher(cat *Catalog, queue Enqueuer, debounce time.Duration, log *slog.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}
	return &Watcher{
		cat:      cat,
		queue:    queue,
		watcher:  fw,
		debounce: debounce,
		log:      log,
		pending:  make(map[string]*time.Timer),
		done:     make(chan struct{}),
	}, nil
}

// Start watches the directory of every on-disk target.
func (w *Watcher) Start(ctx context.Context) error {
	n := 0
	for _, t := range w.cat.Targets() {
		if t.Dir == "" {
			continue
		}
		if err := w.watcher.Add(t.Dir); err != nil {
			return fmt.Errorf("watch %s: %w", t.Dir, err)
		}
		n++
	}
	w.log.Info("watching projects", "dirs", n, "debounce", w.debounce.String())
	w.mu.Lock()
	w.started = true
	w.mu.Unlock()
	go w.loop(ctx)
	return nil
}

// Stop closes the watcher and drops pending reloads.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return nil
	}
	w.stopped = true
	for name, t := range w.pending {
		t.Stop()
		delete(w.pending, name)
	}
	started := w.started
	w.mu.Unlock()

	err := w.watcher.Close()
	if started {
		<-w.done
	}
	return err
}

func (w *Watcher) loop(ctx context.Context) {
	defer close(w.done)
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !relevant(event) {
				continue
			}
			t, ok := w.cat.TargetForDir(filepath.Dir(event.Name))
			if !ok {
				continue
			}
			w.log.Debug("navigation file changed", "project", t.Name, "file", filepath.Base(event.Name), "op", event.Op.String())
			w.schedule(t.Name)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Error("watcher error", "error", err)
		}
	}
}

// relevant keeps writes, creates, removes and renames of navigation
// scripts. Doxygen emits only .js files for the tree.
func relevant(e fsnotify.Event) bool {
	if !strings.HasSuffix(e.Name, ".js") {
		return false
	}
	return e.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0
}

func (w *Watcher) schedule(project string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return
	}
	if t, ok := w.pending[project]; ok {
		t.Reset(w.debounce)
		return
	}
	w.pending[project] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.pending, project)
		stopped := w.stopped
		w.mu.Unlock()
		if stopped {
			return
		}
		if _, err := w.queue.Enqueue(project, "watch"); err != nil {
			w.log.Error("failed to queue reload", "project", project, "error", err)
		}
	})
}
