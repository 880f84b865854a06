package status

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

// DefaultDebounce coalesces the burst of events produced by one atomic write.
const DefaultDebounce = 100 * time.Millisecond

// ChangeFunc receives the key and the reloaded record. rec is nil when the
// status file was removed.
type ChangeFunc func(key string, rec *Record)

// Watcher follows a status directory and reports changed records.
type Watcher struct {
	dir      string
	watcher  *fsnotify.Watcher
	onChange ChangeFunc
	debounce time.Duration

	reloads  singleflight.Group
	errorLog rate.Sometimes

	mu      sync.Mutex
	pending map[string]bool
	timer   *time.Timer

	ctx    context.Context
	cancel context.CancelFunc
}

// NewWatcher creates a watcher for the store's directory, creating it if
// needed. Call Start to begin delivering changes.
func NewWatcher(store *Store, onChange ChangeFunc) (*Watcher, error) {
	if err := os.MkdirAll(store.Dir(), 0o755); err != nil {
		return nil, err
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Watcher{
		dir:      store.Dir(),
		watcher:  fw,
		onChange: onChange,
		debounce: DefaultDebounce,
		errorLog: rate.Sometimes{First: 3, Interval: time.Minute},
		pending:  make(map[string]bool),
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

// Start watches until Stop is called. Existing records are reported first.
// Must be called in a goroutine.
func (w *Watcher) Start() {
	if err := w.watcher.Add(w.dir); err != nil {
		statusLog.Warn("status_watcher_add_failed",
			slog.String("dir", w.dir),
			slog.String("error", err.Error()))
		return
	}

	w.loadExisting()

	for {
		select {
		case <-w.ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !isRecordFile(event.Name) {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			w.schedule(event.Name)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.errorLog.Do(func() {
				statusLog.Warn("status_watcher_error", slog.String("error", err.Error()))
			})
		}
	}
}

// Stop shuts down the watcher. Pending debounced reloads are dropped.
func (w *Watcher) Stop() {
	w.cancel()
	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()
	_ = w.watcher.Close()
}

func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.pending[path] = true
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.flush)
}

func (w *Watcher) flush() {
	w.mu.Lock()
	files := make([]string, 0, len(w.pending))
	for f := range w.pending {
		files = append(files, f)
	}
	w.pending = make(map[string]bool)
	w.mu.Unlock()

	for _, f := range files {
		if w.ctx.Err() != nil {
			return
		}
		w.reload(f)
	}
}

func (w *Watcher) loadExisting() {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return
	}
	for _, entry := range entries {
		if entry.IsDir() || !isRecordFile(entry.Name()) {
			continue
		}
		w.reload(filepath.Join(w.dir, entry.Name()))
	}
}

// reload reads one status file. Concurrent reloads of the same path share
// a single read.
func (w *Watcher) reload(path string) {
	key := strings.TrimSuffix(filepath.Base(path), ".json")

	v, err, _ := w.reloads.Do(path, func() (any, error) {
		return readRecord(path)
	})
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if w.onChange != nil {
				w.onChange(key, nil)
			}
			return
		}
		w.errorLog.Do(func() {
			statusLog.Warn("status_reload_failed",
				slog.String("key", key),
				slog.String("error", err.Error()))
		})
		return
	}

	rec := v.(*Record)
	statusLog.Debug("status_reloaded",
		slog.String("key", key),
		slog.String("status", string(rec.Status)))

	if w.onChange != nil {
		w.onChange(key, rec)
	}
}
