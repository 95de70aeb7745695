package dataset

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/felixgeelhaar/concept-analytics/domain/concept"
	"github.com/felixgeelhaar/concept-analytics/infrastructure/logging"
)

// DefaultDebounce coalesces bursts of writes from editors.
const DefaultDebounce = 250 * time.Millisecond

// ReloadFunc receives a freshly parsed dataset.
type ReloadFunc func(ctx context.Context, ds concept.Dataset) error

// Watcher reloads a dataset file whenever it is written.
type Watcher struct {
	path     string
	reload   ReloadFunc
	debounce time.Duration

	mu      sync.Mutex
	watcher *fsnotify.Watcher
	done    chan struct{}
	stopped chan struct{}
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithDebounce sets the quiet period before a reload.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d >= 0 {
			w.debounce = d
		}
	}
}

// NewWatcher creates a watcher for path. Start must be called to begin watching.
func NewWatcher(path string, reload ReloadFunc, opts ...WatcherOption) (*Watcher, error) {
	if path == "" {
		return nil, errors.New("dataset: watch path is required")
	}
	if reload == nil {
		return nil, errors.New("dataset: reload function is required")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve path: %w", err)
	}
	w := &Watcher{path: abs, reload: reload, debounce: DefaultDebounce}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Start begins watching. The parent directory is watched so that atomic
// rename-based saves are observed.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.watcher != nil {
		return nil
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := fw.Add(filepath.Dir(w.path)); err != nil {
		_ = fw.Close()
		return fmt.Errorf("failed to watch path: %w", err)
	}

	w.watcher = fw
	w.done = make(chan struct{})
	w.stopped = make(chan struct{})
	go w.loop(ctx, fw, w.done, w.stopped)
	return nil
}

// Stop ends watching and waits for the event loop to exit.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	fw, done, stopped := w.watcher, w.done, w.stopped
	w.watcher = nil
	w.mu.Unlock()

	if fw == nil {
		return nil
	}
	close(done)
	err := fw.Close()
	<-stopped
	return err
}

func (w *Watcher) loop(ctx context.Context, fw *fsnotify.Watcher, done, stopped chan struct{}) {
	defer close(stopped)

	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-done:
			return
		case event, ok := <-fw.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C
		case <-fire:
			fire = nil
			w.apply(ctx)
		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			logging.Warn().
				Add(logging.Component("dataset")).
				Add(logging.ErrorField(err)).
				Msg("watch error")
		}
	}
}

func (w *Watcher) apply(ctx context.Context) {
	ds, err := LoadFile(w.path)
	if err == nil {
		err = w.reload(ctx, ds)
	}
	if err != nil {
		logging.Warn().
			Add(logging.Component("dataset")).
			Add(logging.Path(w.path)).
			Add(logging.ErrorField(err)).
			Msg("dataset reload failed")
		return
	}
	logging.Info().
		Add(logging.Component("dataset")).
		Add(logging.Path(w.path)).
		Add(logging.Count("concepts", len(ds.Concepts))).
		Msg("dataset reloaded")
}
