package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"github.com/lttle-cloud/ignition/flash"
	"github.com/lttle-cloud/ignition/internal/config"
	"github.com/lttle-cloud/ignition/internal/journal"
	"github.com/lttle-cloud/ignition/internal/logging"
	"github.com/lttle-cloud/ignition/internal/ready"
)

// ErrDeviceUnavailable is returned by manual sends while the control
// device is not open.
var ErrDeviceUnavailable = errors.New("flash device unavailable")

// Daemon coordinates the flash integration and enforces single-instance
// execution.
type Daemon struct {
	cfg     *config.Config
	logger  *slog.Logger
	journal *journal.Journal

	lockPath string
	lock     *flock.Flock

	deviceMu sync.Mutex
	device   *flash.Device

	runner  *ready.Runner
	monitor *deviceMonitor

	running atomic.Bool
	cancel  context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running         bool
	DevicePath      string
	DeviceAvailable bool
	LockPath        string
	JournalPath     string
	Workers         []ready.WorkerStatus
	Journal         journal.Stats
	PID             int
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, j *journal.Journal, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || j == nil {
		return nil, errors.New("daemon requires config and journal")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	lockPath := cfg.LockPath()
	return &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		journal:  j,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Start acquires the daemon lock, opens the control device, and starts
// the worker runner. An absent device is logged and left to the attach
// monitor; it never fails Start.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another flashd instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	if err := d.attachDevice(); err != nil {
		d.logger.Warn("flash device unavailable, integration disabled",
			logging.Error(err),
			logging.String(logging.FieldDevice, d.cfg.Device.Path),
			logging.String(logging.FieldEventType, "device_open_failed"),
			logging.String(logging.FieldImpact, "flash notifications will not be delivered"),
			logging.String(logging.FieldErrorHint, "load the lttle kernel component or fix device.path"))
		if d.cfg.Device.WaitForDevice {
			d.monitor = newDeviceMonitor(d.cfg.Device.Path, d.logger, d.onDeviceAppeared)
			d.monitor.Start(runCtx)
		}
	}

	d.runner = d.newRunner()
	d.runner.Start(runCtx)

	d.pruneJournal(runCtx)

	d.running.Store(true)
	d.logger.Info("flashd started",
		logging.String("lock", d.lockPath),
		logging.String(logging.FieldDevice, d.cfg.Device.Path))
	return nil
}

func (d *Daemon) newRunner() *ready.Runner {
	var gate ready.Gate = ready.ImmediateGate{}
	if d.cfg.Database.Driver != "" {
		gate = &ready.DatabaseGate{
			DriverName:   d.cfg.Database.Driver,
			DSN:          d.cfg.Database.DSN,
			PollInterval: time.Duration(d.cfg.Database.RecoveryPollSeconds) * time.Second,
			Timeout:      time.Duration(d.cfg.Database.RecoveryTimeoutSeconds) * time.Second,
			Logger:       d.logger,
		}
	}

	runner := ready.NewRunner(gate, d.logger)
	if d.cfg.Worker.FlashReady {
		recorder := journal.NewSendRecorder(d.journal, journal.SourceWorker, d.logger)
		runner.Register(ready.NewFlashReady(d.cfg.Device.Path, recorder, d.logger))
	}
	return runner
}

// attachDevice opens the configured device and installs it as the
// daemon handle.
func (d *Daemon) attachDevice() error {
	device, err := flash.Open(d.cfg.Device.Path)
	if err != nil {
		return err
	}

	d.deviceMu.Lock()
	old := d.device
	d.device = device
	d.deviceMu.Unlock()
	if old != nil {
		_ = old.Close()
	}
	return nil
}

func (d *Daemon) onDeviceAppeared() {
	if err := d.attachDevice(); err != nil {
		d.logger.Warn("device appeared but open failed",
			logging.Error(err),
			logging.String(logging.FieldDevice, d.cfg.Device.Path))
		return
	}
	d.logger.Info("flash device attached, integration enabled",
		logging.String(logging.FieldDevice, d.cfg.Device.Path),
		logging.String(logging.FieldEventType, "device_attached"))
}

func (d *Daemon) pruneJournal(ctx context.Context) {
	removed, err := d.journal.Prune(ctx, d.cfg.Daemon.JournalRetention)
	if err != nil {
		d.logger.Warn("journal prune failed", logging.Error(err))
		return
	}
	if removed > 0 {
		d.logger.Debug("journal pruned", logging.Int64("removed", removed))
	}
}

// Stop stops the workers and monitor, closes the device, and releases
// the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	if d.monitor != nil {
		d.monitor.Stop()
		d.monitor = nil
	}
	if d.runner != nil {
		d.runner.Stop()
	}

	d.deviceMu.Lock()
	device := d.device
	d.device = nil
	d.deviceMu.Unlock()
	if device != nil {
		_ = device.Close()
	}

	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("flashd stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	return nil
}

// Trigger sends manual_trigger through the daemon device.
func (d *Daemon) Trigger(ctx context.Context) error {
	return d.send(ctx, flash.CommandTrigger)
}

// LockFlash sends flash_lock through the daemon device.
func (d *Daemon) LockFlash(ctx context.Context) error {
	return d.send(ctx, flash.CommandLock)
}

// UnlockFlash sends flash_unlock through the daemon device.
func (d *Daemon) UnlockFlash(ctx context.Context) error {
	return d.send(ctx, flash.CommandUnlock)
}

// send delivers a manual command and journals it with source "cli",
// since manual sends only arrive over IPC.
func (d *Daemon) send(ctx context.Context, cmd flash.Command) error {
	d.deviceMu.Lock()
	device := d.device
	d.deviceMu.Unlock()

	var sendErr error
	if device == nil {
		sendErr = fmt.Errorf("%w: %s not open", ErrDeviceUnavailable, d.cfg.Device.Path)
	} else {
		sendErr = device.Send(cmd)
	}

	event := journal.Event{
		Command: string(cmd),
		Outcome: journal.OutcomeSent,
		Source:  journal.SourceCLI,
	}
	if sendErr != nil {
		event.Outcome = journal.OutcomeFailed
		event.Detail = sendErr.Error()
	}
	if journalErr := d.journal.Append(ctx, event); journalErr != nil {
		d.logger.Warn("journal append failed", logging.Error(journalErr))
	}
	return sendErr
}

// Events returns recent journal entries.
func (d *Daemon) Events(ctx context.Context, limit int) ([]journal.Event, error) {
	return d.journal.Recent(ctx, limit)
}

// DeviceAvailable reports whether the daemon currently holds an open
// device handle.
func (d *Daemon) DeviceAvailable() bool {
	d.deviceMu.Lock()
	defer d.deviceMu.Unlock()
	return d.device != nil
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	stats, err := d.journal.CommandStats(ctx)
	if err != nil {
		d.logger.Warn("journal stats failed", logging.Error(err))
	}

	var workers []ready.WorkerStatus
	if d.runner != nil {
		workers = d.runner.Statuses()
	}

	return Status{
		Running:         d.running.Load(),
		DevicePath:      d.cfg.Device.Path,
		DeviceAvailable: d.DeviceAvailable(),
		LockPath:        d.lockPath,
		JournalPath:     d.journal.Path(),
		Workers:         workers,
		Journal:         stats,
		PID:             os.Getpid(),
	}
}
