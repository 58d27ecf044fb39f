package i18n

import (
	"context"
	"fmt"
	"time"

	"github.com/fsnotify/fsnotify"
)

const defaultDebounceDelay = 500 * time.Millisecond

// Watcher reloads a catalog when files in its override directory change.
type Watcher struct {
	catalog       *Catalog
	debounceDelay time.Duration
	onReload      func()
}

// NewWatcher creates a watcher for the catalog's override directory.
// onReload, if non-nil, runs after every successful reload.
func NewWatcher(catalog *Catalog, debounceDelay time.Duration, onReload func()) (*Watcher, error) {
	if catalog.overridesDir == "" {
		return nil, fmt.Errorf("catalog has no overrides directory to watch")
	}
	if debounceDelay <= 0 {
		debounceDelay = defaultDebounceDelay
	}
	return &Watcher{catalog: catalog, debounceDelay: debounceDelay, onReload: onReload}, nil
}

// Run watches until ctx is cancelled. Bursts of events are debounced into a
// single reload; a failed reload keeps the previous bundles.
func (w *Watcher) Run(ctx context.Context) error {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer func() {
		if closeErr := fsWatcher.Close(); closeErr != nil && w.catalog.logger != nil {
			w.catalog.logger.LogError(closeErr, "Failed to close locale watcher")
		}
	}()

	// Watch the directory to catch atomic writes (rename operations)
	if err := fsWatcher.Add(w.catalog.overridesDir); err != nil {
		return fmt.Errorf("failed to watch directory %s: %w", w.catalog.overridesDir, err)
	}

	if w.catalog.logger != nil {
		w.catalog.logger.Info("Locale override watcher started",
			"directory", w.catalog.overridesDir,
			"debounce_delay", w.debounceDelay)
	}

	timer := time.NewTimer(w.debounceDelay)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fsWatcher.Events:
			if !ok {
				return nil
			}
			if shouldProcessEvent(event) {
				timer.Reset(w.debounceDelay)
			}

		case err, ok := <-fsWatcher.Errors:
			if !ok {
				return nil
			}
			if w.catalog.logger != nil {
				w.catalog.logger.LogError(err, "Locale watcher error")
			}

		case <-timer.C:
			w.reload()
		}
	}
}

func (w *Watcher) reload() {
	if err := w.catalog.Reload(); err != nil {
		if w.catalog.logger != nil {
			w.catalog.logger.LogError(err, "Locale catalog reload failed, keeping previous catalogs")
		}
		return
	}
	if w.catalog.logger != nil {
		w.catalog.logger.Info("Locale catalogs reloaded", "locales", w.catalog.Locales())
	}
	if w.onReload != nil {
		w.onReload()
	}
}

// shouldProcessEvent reports whether an event can change a catalog file
func shouldProcessEvent(event fsnotify.Event) bool {
	if !isCatalogFile(event.Name) {
		return false
	}
	return event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) != 0
}
