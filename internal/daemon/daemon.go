package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"tfsrelay/internal/config"
	"tfsrelay/internal/logging"
	"tfsrelay/internal/services"
)

// Handler processes one raw WorkItemChangedEvent document.
type Handler interface {
	Handle(ctx context.Context, raw []byte) error
}

// Daemon owns the inbound HTTP listener and enforces single-instance execution.
type Daemon struct {
	cfg     *config.Config
	logger  *slog.Logger
	handler Handler
	api     *apiServer

	lockPath string
	lock     *flock.Flock

	running   atomic.Bool
	startedAt atomic.Int64
	received  atomic.Int64
	failed    atomic.Int64
	cancel    context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running        bool      `json:"running"`
	PID            int       `json:"pid"`
	Address        string    `json:"address,omitempty"`
	LockFilePath   string    `json:"lock_file"`
	StartedAt      time.Time `json:"started_at,omitzero"`
	EventsReceived int64     `json:"events_received"`
	EventsFailed   int64     `json:"events_failed"`
}

// New constructs a daemon that feeds inbound events to handler.
func New(cfg *config.Config, handler Handler, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || handler == nil {
		return nil, errors.New("daemon requires config and event handler")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	lockPath := filepath.Join(cfg.Paths.LogDir, "tfsrelay.lock")
	d := &Daemon{
		cfg:      cfg,
		logger:   logger,
		handler:  handler,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}
	d.api = newAPIServer(cfg, d, logging.NewComponentLogger(logger, "api-server"))
	return d, nil
}

// Start acquires the daemon lock and begins accepting events.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}
	if err := os.MkdirAll(filepath.Dir(d.lockPath), 0o755); err != nil {
		return fmt.Errorf("ensure lock directory: %w", err)
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another tfsrelay instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	if err := d.api.start(runCtx); err != nil {
		cancel()
		_ = d.lock.Unlock()
		return err
	}

	d.cancel = cancel
	d.startedAt.Store(time.Now().UnixNano())
	d.running.Store(true)
	d.logger.Info("tfsrelay daemon started",
		logging.String("lock", d.lockPath),
		logging.String("address", d.api.address()),
	)
	return nil
}

// Stop stops the listener and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.api.stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("tfsrelay daemon stopped",
		logging.Int("events_received", int(d.received.Load())),
		logging.Int("events_failed", int(d.failed.Load())),
	)
}

// Status returns the current daemon status.
func (d *Daemon) Status() Status {
	status := Status{
		Running:        d.running.Load(),
		PID:            os.Getpid(),
		Address:        d.api.address(),
		LockFilePath:   d.lockPath,
		EventsReceived: d.received.Load(),
		EventsFailed:   d.failed.Load(),
	}
	if started := d.startedAt.Load(); started != 0 && status.Running {
		status.StartedAt = time.Unix(0, started).UTC()
	}
	return status
}

// Addr returns the listener address once started.
func (d *Daemon) Addr() string {
	return d.api.address()
}

// process hands one event to the pipeline and is the single place pipeline
// failures are logged.
func (d *Daemon) process(ctx context.Context, raw []byte, source string) error {
	d.received.Add(1)
	err := d.handler.Handle(ctx, raw)
	if err == nil {
		return nil
	}
	d.failed.Add(1)

	attrs := append(logging.ContextFields(ctx),
		logging.String("source", source),
		logging.Int("status", services.HTTPStatus(err)),
		logging.String(logging.FieldErrorHint, errorHint(err)),
		logging.Error(err),
	)
	logging.ErrorWithContext(d.logger, "event processing failed", eventType(err), attrs...)
	return err
}

func eventType(err error) string {
	switch {
	case errors.Is(err, services.ErrMalformedEvent):
		return "malformed_event"
	case errors.Is(err, services.ErrLookupFailed):
		return "tfs_lookup_failed"
	case errors.Is(err, services.ErrDelivery):
		return "slack_delivery_failed"
	default:
		return "event_failed"
	}
}

func errorHint(err error) string {
	switch {
	case errors.Is(err, services.ErrMalformedEvent):
		return "check the TFS subscription delivers WorkItemChangedEvent XML"
	case errors.Is(err, services.ErrLookupFailed):
		return "verify tfs.collection_url and the service credential"
	case errors.Is(err, services.ErrDelivery):
		return "verify slack.webhook_url and the channel routing"
	default:
		return "check logs for details"
	}
}
