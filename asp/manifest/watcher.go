package manifest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/hornetworks/aspcache/asp/fragment"
)

// defaultDebounce batches the event bursts editors emit on save.
const defaultDebounce = 250 * time.Millisecond

// Watcher keeps a store in sync with a manifest file on disk. Each
// settled write or create replaces the store's contents with the
// manifest's fragments; a manifest that fails validation is logged and
// the previous fragments stay in place.
type Watcher struct {
	watcher  *fsnotify.Watcher
	store    *fragment.Store
	path     string
	debounce time.Duration
	logger   zerolog.Logger

	stopCh chan struct{}
	doneCh chan struct{}

	mu        sync.Mutex
	running   bool
	dirty     bool
	lastEvent time.Time
}

// NewWatcher prepares a watcher for the manifest at path. Call Start to
// begin receiving events.
func NewWatcher(path string, store *fragment.Store, logger zerolog.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	return &Watcher{
		watcher:  fsw,
		store:    store,
		path:     filepath.Clean(path),
		debounce: defaultDebounce,
		logger:   logger.With().Str("component", "manifest-watcher").Logger(),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}, nil
}

// Start loads the manifest once and begins watching it. The event loop
// runs in its own goroutine until Stop is called or ctx is canceled.
// Watching the parent directory instead of the file itself keeps
// rename-over saves visible. A Watcher that fails to start releases its
// resources and cannot be reused.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return nil
	}

	if err := w.Reload(); err != nil {
		w.watcher.Close()
		return err
	}

	dir := filepath.Dir(w.path)
	if err := w.watcher.Add(dir); err != nil {
		w.watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	w.running = true
	go w.run(ctx)
	return nil
}

// Stop shuts the event loop down and releases the underlying watcher.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh

	if err := w.watcher.Close(); err != nil {
		w.logger.Warn().Err(err).Msg("failed to close fsnotify watcher")
	}
}

// Reload reads the manifest and replaces the store's contents. Invalid
// content returns an error without touching the store.
func (w *Watcher) Reload() error {
	data, err := os.ReadFile(w.path)
	if err != nil {
		return fmt.Errorf("failed to read manifest %s: %w", w.path, err)
	}

	n, err := Replace(data, w.store)
	if err != nil {
		return err
	}
	w.logger.Info().Int("fragments", n).Str("path", w.path).Msg("manifest loaded")
	return nil
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(w.debounce / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn().Err(err).Msg("manifest watch error")
		case <-ticker.C:
			w.flush()
		}
	}
}

// handleEvent records writes to the watched manifest; everything else in
// the directory is noise.
func (w *Watcher) handleEvent(event fsnotify.Event) {
	if filepath.Clean(event.Name) != w.path {
		return
	}
	if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
		return
	}

	w.mu.Lock()
	w.dirty = true
	w.lastEvent = time.Now()
	w.mu.Unlock()
}

// flush reloads once the latest event has settled past the debounce
// window.
func (w *Watcher) flush() {
	w.mu.Lock()
	due := w.dirty && time.Since(w.lastEvent) >= w.debounce
	if due {
		w.dirty = false
	}
	w.mu.Unlock()

	if !due {
		return
	}
	if err := w.Reload(); err != nil {
		w.logger.Warn().Err(err).Str("path", w.path).Msg("manifest rejected, keeping previous fragments")
	}
}
