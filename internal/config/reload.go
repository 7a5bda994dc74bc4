package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/teslashibe/go-vrtour/internal/log"
	"github.com/teslashibe/go-vrtour/pkg/metrics"
	"github.com/teslashibe/go-vrtour/pkg/tour"
)

// DefaultDebounce collapses the burst of events editors emit on save.
const DefaultDebounce = 500 * time.Millisecond

// Holder holds the active tour and reloads it when the file changes.
// A tour that fails to load or validate never replaces the current one.
type Holder struct {
	mu       sync.RWMutex
	current  *tour.Tour
	path     string
	debounce time.Duration
	logger   *slog.Logger

	watcher *fsnotify.Watcher
	done    chan struct{}

	listenersMu sync.RWMutex
	listeners   []chan<- *tour.Tour
}

// NewHolder creates a holder for a tour already loaded from path.
func NewHolder(initial *tour.Tour, path string) *Holder {
	return &Holder{
		current:  initial,
		path:     path,
		debounce: DefaultDebounce,
		logger:   log.Component("config"),
	}
}

// LoadHolder loads the tour at path and wraps it in a Holder.
func LoadHolder(path string) (*Holder, error) {
	t, err := tour.Load(path)
	if err != nil {
		return nil, err
	}
	return NewHolder(t, path), nil
}

// SetDebounce changes the quiet period before a reload. Call before
// StartWatcher.
func (h *Holder) SetDebounce(d time.Duration) {
	h.debounce = d
}

// SetLogger replaces the holder logger. Call before StartWatcher.
func (h *Holder) SetLogger(l *slog.Logger) {
	h.logger = l
}

// Get returns the current tour.
func (h *Holder) Get() *tour.Tour {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.current
}

// Reload reads the tour file again. On failure the old tour stays active.
func (h *Holder) Reload(_ context.Context) error {
	next, err := tour.Load(h.path)
	if err != nil {
		metrics.TourReloadsTotal.WithLabelValues("error").Inc()
		h.logger.Error("tour reload failed", "path", h.path, "error", err)
		return fmt.Errorf("reload tour: %w", err)
	}

	h.mu.Lock()
	old := h.current
	h.current = next
	h.mu.Unlock()

	metrics.TourReloadsTotal.WithLabelValues("success").Inc()
	h.logChanges(old, next)
	h.notifyListeners(next)
	return nil
}

// StartWatcher watches the tour file until ctx is cancelled or Stop is
// called. The parent directory is watched so editors that replace the file
// are still seen.
func (h *Holder) StartWatcher(ctx context.Context) error {
	if h.path == "" {
		h.logger.Info("tour watcher disabled")
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(h.path)); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("watch tour dir: %w", err)
	}

	h.watcher = watcher
	h.done = make(chan struct{})
	h.logger.Info("watching tour file", "path", h.path)

	go h.watchLoop(ctx)
	return nil
}

func (h *Holder) watchLoop(ctx context.Context) {
	defer close(h.done)

	var debounceTimer *time.Timer
	defer func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
		_ = h.watcher.Close()
	}()

	name := filepath.Clean(h.path)
	for {
		select {
		case <-ctx.Done():
			h.logger.Info("tour watcher stopped")
			return

		case event, ok := <-h.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != name {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			h.logger.Debug("tour file changed", "op", event.Op.String())

			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(h.debounce, func() {
				_ = h.Reload(ctx)
			})

		case err, ok := <-h.watcher.Errors:
			if !ok {
				return
			}
			h.logger.Error("tour watcher error", "error", err)
		}
	}
}

// Stop closes the watcher and waits for the watch loop to exit.
func (h *Holder) Stop() {
	if h.watcher == nil {
		return
	}
	_ = h.watcher.Close()
	<-h.done
}

// RegisterListener registers a channel that receives each successfully
// reloaded tour. Sends never block; a full channel misses the update.
func (h *Holder) RegisterListener(ch chan<- *tour.Tour) {
	h.listenersMu.Lock()
	defer h.listenersMu.Unlock()
	h.listeners = append(h.listeners, ch)
}

func (h *Holder) notifyListeners(t *tour.Tour) {
	h.listenersMu.RLock()
	defer h.listenersMu.RUnlock()

	for _, ch := range h.listeners {
		select {
		case ch <- t:
		default:
			h.logger.Warn("skipped tour listener (channel full)")
		}
	}
}

func (h *Holder) logChanges(old, next *tour.Tour) {
	if old.Name != next.Name {
		h.logger.Info("tour changed: name", "old", old.Name, "new", next.Name)
	}
	if old.Len() != next.Len() {
		h.logger.Info("tour changed: locations", "old", old.Len(), "new", next.Len())
	}
	if old.Settings.DwellThreshold != next.Settings.DwellThreshold {
		h.logger.Info("tour changed: dwell threshold", "old", old.Settings.DwellThreshold, "new", next.Settings.DwellThreshold)
	}
	if old.Settings.TweenSpeed != next.Settings.TweenSpeed {
		h.logger.Info("tour changed: tween speed", "old", old.Settings.TweenSpeed, "new", next.Settings.TweenSpeed)
	}
	h.logger.Info("tour reloaded", "tour", next.Name, "locations", next.Len())
}
