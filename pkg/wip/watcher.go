package wip

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/grovetools/coord/errors"
	"github.com/grovetools/coord/pkg/coord"
	"github.com/grovetools/coord/pkg/models"
	"github.com/grovetools/coord/pkg/registry"
	"github.com/sirupsen/logrus"
)

// EventKind says what happened to a WIP record.
type EventKind string

const (
	EventUpdated EventKind = "updated"
	EventRemoved EventKind = "removed"
)

// Event is one observed change to the WIP bucket.
type Event struct {
	Kind      EventKind
	SessionID string
	// Record is nil for removals and for records that could not be read.
	Record *models.WipRecord
}

// Watcher streams changes to the WIP bucket of a file-backed registry.
type Watcher struct {
	watcher  *fsnotify.Watcher
	registry *Registry
	dir      string
	debounce time.Duration
	logger   *logrus.Entry

	mu      sync.Mutex
	pending map[string]fsnotify.Op
}

// NewWatcher watches the WIP bucket of a file store. Other backends have
// no change feed and return INVALID_INPUT. debounce collapses the rename
// bursts produced by atomic writes; zero means 100ms.
func NewWatcher(r *Registry, debounce time.Duration) (*Watcher, error) {
	fs, ok := r.store.(*registry.FileStore)
	if !ok {
		return nil, errors.New(errors.ErrCodeInvalidInput, "wip watch requires the file registry backend")
	}

	dir := fs.BucketDir(coord.WipBucket)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStoreFailed, "create wip directory")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "create file watcher")
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "watch wip directory")
	}

	if debounce <= 0 {
		debounce = 100 * time.Millisecond
	}

	return &Watcher{
		watcher:  watcher,
		registry: r,
		dir:      dir,
		debounce: debounce,
		logger:   r.c.Logger.WithField("watch", dir),
		pending:  make(map[string]fsnotify.Op),
	}, nil
}

// Run delivers events to onEvent until ctx is cancelled. It closes the
// watcher on return.
func (w *Watcher) Run(ctx context.Context, onEvent func(Event)) error {
	defer w.watcher.Close()

	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			w.logger.Debugf("fsnotify event: %s op=%v", event.Name, event.Op)

			key, ok := registry.KeyOf(event.Name)
			if !ok {
				continue
			}
			w.mu.Lock()
			w.pending[key] |= event.Op
			w.mu.Unlock()
			timer.Reset(w.debounce)

		case <-timer.C:
			w.flush(ctx, onEvent)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Errorf("Watcher error: %v", err)

		case <-ctx.Done():
			return nil
		}
	}
}

// flush resolves each pending key against the bucket's current contents.
func (w *Watcher) flush(ctx context.Context, onEvent func(Event)) {
	w.mu.Lock()
	pending := w.pending
	w.pending = make(map[string]fsnotify.Op)
	w.mu.Unlock()

	for key := range pending {
		rec, err := w.registry.Get(ctx, key)
		switch {
		case err == nil:
			onEvent(Event{Kind: EventUpdated, SessionID: key, Record: rec})
		case errors.Is(err, errors.ErrCodeRecordNotFound):
			onEvent(Event{Kind: EventRemoved, SessionID: key})
		default:
			w.logger.WithError(err).Debugf("Ignoring unreadable wip record %s", key)
		}
	}
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}
