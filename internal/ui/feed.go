package ui

import (
	"log/slog"
	"sync"

	"github.com/joshua-mullet-town/claude-summary-hooks/internal/status"
)

// Change is one status record update. Record is nil when the file was removed.
type Change struct {
	Key    string
	Record *status.Record
}

// Feed turns status.Watcher callbacks into a channel the dashboard reads.
type Feed struct {
	watcher   *status.Watcher
	changes   chan Change
	closeCh   chan struct{}
	closeOnce sync.Once
}

// NewFeed starts watching the store. Existing records are delivered first.
func NewFeed(store *status.Store) (*Feed, error) {
	f := &Feed{
		changes: make(chan Change, 64),
		closeCh: make(chan struct{}),
	}

	w, err := status.NewWatcher(store, f.publish)
	if err != nil {
		return nil, err
	}
	f.watcher = w
	go w.Start()

	uiLog.Debug("status_feed_started", slog.String("dir", store.Dir()))
	return f, nil
}

// publish blocks until the dashboard takes the change so none are lost.
func (f *Feed) publish(key string, rec *status.Record) {
	select {
	case f.changes <- Change{Key: key, Record: rec}:
	case <-f.closeCh:
	}
}

// Changes returns the channel of record updates.
func (f *Feed) Changes() <-chan Change {
	return f.changes
}

// Close stops the watcher. Safe to call multiple times.
func (f *Feed) Close() {
	f.closeOnce.Do(func() {
		close(f.closeCh)
		f.watcher.Stop()
	})
}
