package toolstore

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// ChangeCallback is invoked with the affected tool name after the store
// directory changes on disk. The runtime reloads the whole store on any
// change, so a single coalesced callback is enough.
type ChangeCallback func(name string) error

// Watcher monitors the store directory for tool files edited outside the
// runtime (an operator fixing a tool with a text editor, a clone seeding its
// store) and reports debounced change events.
type Watcher struct {
	watcher            *fsnotify.Watcher
	dir                string
	stabilityThreshold time.Duration
	onChange           ChangeCallback
	done               chan struct{}
	debounceTimers     map[string]*time.Timer
	debounceMu         sync.Mutex
	stopOnce           sync.Once
}

// NewWatcher creates a watcher for the store's directory.
func NewWatcher(store *Store, stabilityThreshold time.Duration, onChange ChangeCallback) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if stabilityThreshold <= 0 {
		stabilityThreshold = 100 * time.Millisecond
	}
	return &Watcher{
		watcher:            fsw,
		dir:                store.Dir(),
		stabilityThreshold: stabilityThreshold,
		onChange:           onChange,
		done:               make(chan struct{}),
		debounceTimers:     make(map[string]*time.Timer),
	}, nil
}

// Start starts watching the store directory.
func (w *Watcher) Start() error {
	if err := w.watcher.Add(w.dir); err != nil {
		return fmt.Errorf("failed to watch tool store: %w", err)
	}

	go w.eventLoop()

	log.Info().Str("dir", w.dir).Msg("Tool store watcher started")
	return nil
}

// Stop stops the watcher and cancels pending debounce timers.
func (w *Watcher) Stop() error {
	w.stopOnce.Do(func() {
		close(w.done)
	})

	w.debounceMu.Lock()
	for _, timer := range w.debounceTimers {
		timer.Stop()
	}
	clear(w.debounceTimers)
	w.debounceMu.Unlock()

	if err := w.watcher.Close(); err != nil {
		return fmt.Errorf("failed to close watcher: %w", err)
	}

	log.Info().Msg("Tool store watcher stopped")
	return nil
}

func (w *Watcher) eventLoop() {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Error().Err(err).Msg("Tool store watcher error")

		case <-w.done:
			return
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	base := filepath.Base(event.Name)
	if !strings.HasSuffix(base, Ext) || strings.HasPrefix(base, ".") {
		// Temp files from Save land here before the atomic rename; only the
		// rename target matters.
		return
	}
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}
	w.debounce(strings.TrimSuffix(base, Ext))
}

// debounce coalesces rapid events on the same tool into one callback.
func (w *Watcher) debounce(name string) {
	w.debounceMu.Lock()
	defer w.debounceMu.Unlock()

	if timer, exists := w.debounceTimers[name]; exists {
		timer.Stop()
	}

	w.debounceTimers[name] = time.AfterFunc(w.stabilityThreshold, func() {
		w.debounceMu.Lock()
		delete(w.debounceTimers, name)
		w.debounceMu.Unlock()

		select {
		case <-w.done:
			return
		default:
		}

		if w.onChange == nil {
			return
		}
		if err := w.onChange(name); err != nil {
			log.Error().Err(err).Str("tool", name).Msg("Error handling tool store change")
		}
	})
}
