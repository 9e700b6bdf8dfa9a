package plugin

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const watchDebounce = 300 * time.Millisecond

// Watcher keeps the chain in step with a plugin directory: new files are
// loaded, rewritten files reloaded, removed files unloaded.
type Watcher struct {
	mu       sync.Mutex
	watcher  *fsnotify.Watcher
	chain    *Chain
	dir      string
	debounce time.Duration
	pending  map[string]time.Time
	stopCh   chan struct{}
	doneCh   chan struct{}
	running  bool
}

func NewWatcher(dir string, chain *Chain) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create plugin watcher: %w", err)
	}
	return &Watcher{
		watcher:  w,
		chain:    chain,
		dir:      dir,
		debounce: watchDebounce,
		pending:  make(map[string]time.Time),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}, nil
}

// Start begins watching in a goroutine.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	if err := w.watcher.Add(w.dir); err != nil {
		w.watcher.Close()
		close(w.doneCh)
		return fmt.Errorf("failed to watch plugin directory %s: %w", w.dir, err)
	}
	w.chain.log.Infof("Watching %s for plugin changes", w.dir)

	go w.run(ctx)
	return nil
}

// Stop ends the watch loop and waits for it to exit. It also releases a
// watcher that was never started.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		w.watcher.Close()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh
	w.watcher.Close()
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(w.debounce / 3)
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
			w.chain.log.Errorf("Plugin watcher error: %v", err)
		case <-ticker.C:
			w.flush(false)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if !w.chain.Supported(event.Name) {
		return
	}
	switch {
	case event.Op&(fsnotify.Create|fsnotify.Write) != 0:
		w.mu.Lock()
		w.pending[event.Name] = time.Now()
		w.mu.Unlock()
	case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		w.mu.Lock()
		delete(w.pending, event.Name)
		w.mu.Unlock()
		name := filepath.Base(event.Name)
		if w.chain.Loaded(name) {
			if err := w.chain.Unload(name); err != nil {
				w.chain.log.Errorf("Plugin watcher: %v", err)
			}
		}
	}
}

// flush (re)loads files whose last event is older than the debounce
// window, or all pending files when force is set.
func (w *Watcher) flush(force bool) {
	now := time.Now()
	var ready []string

	w.mu.Lock()
	for path, at := range w.pending {
		if force || now.Sub(at) >= w.debounce {
			ready = append(ready, path)
			delete(w.pending, path)
		}
	}
	w.mu.Unlock()

	for _, path := range ready {
		w.reload(path)
	}
}

func (w *Watcher) reload(path string) {
	if _, err := os.Stat(path); err != nil {
		return
	}
	name := filepath.Base(path)
	if w.chain.Loaded(name) {
		if err := w.chain.Unload(name); err != nil {
			w.chain.log.Warnf("Plugin watcher: %v", err)
		}
	}
	if err := w.chain.Load(path); err != nil {
		w.chain.log.Errorf("Plugin watcher: failed to load %s: %v", name, err)
	}
}
