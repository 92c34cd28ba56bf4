// Package watch triggers exports when DropBox directories change.
package watch

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"

	"github.com/ccollicutt/dropboxlog/pkg/dropbox"
	"github.com/ccollicutt/dropboxlog/pkg/logging"
)

// DefaultDebounce is used when no debounce interval is set.
const DefaultDebounce = 2 * time.Second

// Job is run once changes settle.
type Job func(ctx context.Context) error

// Watcher watches DropBox directories and runs a Job after entries are
// added, replaced or removed. Bursts of events within the debounce interval
// collapse into a single run.
type Watcher struct {
	dirs     []string
	debounce time.Duration
	logger   logrus.FieldLogger

	mu      sync.Mutex
	running bool
}

// New creates a watcher for dirs.
func New(dirs []string, debounce time.Duration, logger logrus.FieldLogger) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &Watcher{
		dirs:     dirs,
		debounce: debounce,
		logger:   logger.WithField("component", "watcher"),
	}
}

// Run watches until ctx is canceled. It returns nil on cancellation.
func (w *Watcher) Run(ctx context.Context, job Job) error {
	if len(w.dirs) == 0 {
		return errors.New("no directories to watch")
	}

	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return errors.New("watcher already running")
	}
	w.running = true
	w.mu.Unlock()

	defer func() {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
	}()

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	defer fsw.Close()

	for _, dir := range w.dirs {
		if err := fsw.Add(dir); err != nil {
			return fmt.Errorf("failed to watch directory %q: %w", dir, err)
		}
		w.logger.WithField("path", dir).Debug("watching directory")
	}

	w.logger.WithFields(logrus.Fields{
		"dirs":     len(w.dirs),
		"debounce": w.debounce,
	}).Info("file watcher started")

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
			w.logger.Info("file watcher stopped")
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return errors.New("watcher events channel closed")
			}
			if !relevant(event) {
				continue
			}

			w.logger.WithFields(logrus.Fields{
				"path": event.Name,
				"op":   event.Op.String(),
			}).Debug("dropbox change detected")

			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			w.logger.Info("dropbox changed, running export")
			if err := job(ctx); err != nil {
				w.logger.WithError(err).Error("watch-triggered export failed")
			}

		case err, ok := <-fsw.Errors:
			if !ok {
				return errors.New("watcher errors channel closed")
			}
			// Keep watching.
			w.logger.WithError(err).Error("file watcher error")
		}
	}
}

// relevant reports whether event concerns a DropBox entry. Temporary files
// the platform writes before renaming, and the export file itself, are ignored.
func relevant(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return false
	}
	return dropbox.IsEntryName(filepath.Base(event.Name))
}
