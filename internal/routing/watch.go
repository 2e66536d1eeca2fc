package routing

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"tfsrelay/internal/config"
	"tfsrelay/internal/logging"
)

const (
	reloadDebounce     = 250 * time.Millisecond
	restartBackoffBase = 250 * time.Millisecond
	restartBackoffMax  = 5 * time.Second
)

// LoadFunc reads routing from the config file at path.
type LoadFunc func(path string) (config.Routing, error)

// Watcher reloads a Table whenever its config file changes.
type Watcher struct {
	table  *Table
	path   string
	load   LoadFunc
	logger *slog.Logger
}

// NewWatcher returns a watcher that refreshes table from the file at path.
func NewWatcher(table *Table, path string, logger *slog.Logger) *Watcher {
	return &Watcher{
		table:  table,
		path:   path,
		load:   config.LoadRouting,
		logger: logging.NewComponentLogger(logger, "routing"),
	}
}

// Reload reads the config file once and installs its routing. Invalid files
// leave the current routing in place.
func (w *Watcher) Reload() error {
	routing, err := w.load(w.path)
	if err != nil {
		w.logger.Warn("channel routing reload failed; keeping previous routes",
			logging.String("path", w.path),
			logging.Error(err),
			logging.String(logging.FieldEventType, "routing_reload_failed"),
			logging.String(logging.FieldErrorHint, "fix the config file; the next save triggers another reload"),
		)
		return err
	}
	w.table.Replace(routing)
	w.logger.Info("channel routing reloaded",
		logging.String("path", w.path),
		logging.Int("routes", len(routing.Channels)),
		logging.String("default_channel", routing.DefaultChannel),
	)
	return nil
}

// Watch blocks until ctx is cancelled, reloading routing after edits to the
// config file settle. The directory is watched rather than the file so that
// editors which replace the file on save keep working.
func (w *Watcher) Watch(ctx context.Context) error {
	dir := filepath.Dir(w.path)
	file := filepath.Base(w.path)

	var (
		timerMu sync.Mutex
		timer   *time.Timer
	)
	debounce := func() {
		timerMu.Lock()
		defer timerMu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(reloadDebounce, func() {
			if ctx.Err() != nil {
				return
			}
			_ = w.Reload()
		})
	}
	defer func() {
		timerMu.Lock()
		if timer != nil {
			timer.Stop()
		}
		timerMu.Unlock()
	}()

	backoff := restartBackoffBase
	for {
		if ctx.Err() != nil {
			return nil
		}

		fw, err := fsnotify.NewWatcher()
		if err == nil {
			if err = fw.Add(dir); err != nil {
				_ = fw.Close()
			}
		}
		if err != nil {
			w.logger.Warn("config watch setup failed", logging.String("dir", dir), logging.Error(err))
			if !sleepContext(ctx, backoff) {
				return nil
			}
			backoff = nextBackoff(backoff)
			continue
		}

		backoff = restartBackoffBase
		w.logger.Debug("config watcher started", logging.String("dir", dir), logging.String("file", file))

		if done := w.consume(ctx, fw, file, debounce); done {
			_ = fw.Close()
			return nil
		}
		_ = fw.Close()

		w.logger.Warn("config watcher stopped; restarting", logging.String("dir", dir), logging.Duration("backoff", backoff))
		if !sleepContext(ctx, backoff) {
			return nil
		}
		backoff = nextBackoff(backoff)
	}
}

// consume drains watcher events until ctx ends (true) or the watcher breaks (false).
func (w *Watcher) consume(ctx context.Context, fw *fsnotify.Watcher, file string, debounce func()) bool {
	for {
		select {
		case <-ctx.Done():
			return true
		case ev, ok := <-fw.Events:
			if !ok {
				return false
			}
			if !strings.EqualFold(filepath.Base(ev.Name), file) {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				debounce()
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return false
			}
			if errors.Is(err, fsnotify.ErrEventOverflow) {
				w.logger.Warn("config watch overflow; forcing reload", logging.Error(err))
				debounce()
				continue
			}
			w.logger.Warn("config watch error", logging.Error(err))
		}
	}
}

func nextBackoff(current time.Duration) time.Duration {
	next := current * 2
	if next > restartBackoffMax {
		return restartBackoffMax
	}
	return next
}

func sleepContext(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
