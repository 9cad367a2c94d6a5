package daemon

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/lttle-cloud/ignition/internal/config"
	"github.com/lttle-cloud/ignition/internal/journal"
)

func newTestConfig(t *testing.T, devicePresent bool) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Daemon.DataDir = t.TempDir()
	cfg.Device.Path = filepath.Join(t.TempDir(), "lttle")
	cfg.Device.WaitForDevice = false
	cfg.Worker.FlashReady = false
	if devicePresent {
		if err := os.WriteFile(cfg.Device.Path, nil, 0o644); err != nil {
			t.Fatalf("create fake device: %v", err)
		}
	}
	return &cfg
}

func newTestDaemon(t *testing.T, cfg *config.Config) *Daemon {
	t.Helper()
	j, err := journal.Open(cfg.Daemon.DataDir)
	if err != nil {
		t.Fatalf("open journal: %v", err)
	}
	t.Cleanup(func() { _ = j.Close() })

	d, err := New(cfg, j, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })
	return d
}

func TestStartStopLifecycle(t *testing.T) {
	cfg := newTestConfig(t, true)
	d := newTestDaemon(t, cfg)
	ctx := context.Background()

	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := d.Start(ctx); err == nil {
		t.Fatal("second Start should fail")
	}

	status := d.Status(ctx)
	if !status.Running || !status.DeviceAvailable {
		t.Fatalf("unexpected status: %+v", status)
	}
	if status.PID != os.Getpid() {
		t.Fatalf("status PID = %d", status.PID)
	}

	d.Stop()
	if d.Status(ctx).Running {
		t.Fatal("daemon should report stopped")
	}

	// The lock is released; a fresh start succeeds.
	if err := d.Start(ctx); err != nil {
		t.Fatalf("restart failed: %v", err)
	}
	d.Stop()
}

func TestStartSurvivesMissingDevice(t *testing.T) {
	cfg := newTestConfig(t, false)
	d := newTestDaemon(t, cfg)
	ctx := context.Background()

	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed despite missing device: %v", err)
	}
	defer d.Stop()

	status := d.Status(ctx)
	if !status.Running || status.DeviceAvailable {
		t.Fatalf("unexpected status: %+v", status)
	}

	if err := d.Trigger(ctx); !errors.Is(err, ErrDeviceUnavailable) {
		t.Fatalf("expected ErrDeviceUnavailable, got %v", err)
	}

	// The failed manual send is journaled.
	events, err := d.Events(ctx, 5)
	if err != nil {
		t.Fatalf("Events failed: %v", err)
	}
	if len(events) != 1 || events[0].Outcome != journal.OutcomeFailed || events[0].Source != journal.SourceCLI {
		t.Fatalf("unexpected journal contents: %+v", events)
	}
}

func TestManualSendsWriteAndJournal(t *testing.T) {
	cfg := newTestConfig(t, true)
	d := newTestDaemon(t, cfg)
	ctx := context.Background()

	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer d.Stop()

	if err := d.LockFlash(ctx); err != nil {
		t.Fatalf("LockFlash failed: %v", err)
	}
	if err := d.UnlockFlash(ctx); err != nil {
		t.Fatalf("UnlockFlash failed: %v", err)
	}
	if err := d.Trigger(ctx); err != nil {
		t.Fatalf("Trigger failed: %v", err)
	}

	data, err := os.ReadFile(cfg.Device.Path)
	if err != nil {
		t.Fatalf("read fake device: %v", err)
	}
	if got, want := string(data), "flash_lockflash_unlockmanual_trigger"; got != want {
		t.Fatalf("device payload = %q, want %q", got, want)
	}

	status := d.Status(ctx)
	if status.Journal.Total != 3 || status.Journal.Failed != 0 {
		t.Fatalf("unexpected journal stats: %+v", status.Journal)
	}
}

func TestFlashReadyWorkerRunsUnderDaemon(t *testing.T) {
	cfg := newTestConfig(t, true)
	cfg.Worker.FlashReady = true
	d := newTestDaemon(t, cfg)
	ctx := context.Background()

	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer d.Stop()

	deadline := time.Now().Add(5 * time.Second)
	for {
		status := d.Status(ctx)
		if len(status.Workers) == 1 && status.Workers[0].State == "done" {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("flash-ready worker never finished: %+v", status.Workers)
		}
		time.Sleep(10 * time.Millisecond)
	}

	data, err := os.ReadFile(cfg.Device.Path)
	if err != nil {
		t.Fatalf("read fake device: %v", err)
	}
	if string(data) != "manual_trigger" {
		t.Fatalf("device payload = %q, want manual_trigger", data)
	}

	events, err := d.Events(ctx, 5)
	if err != nil {
		t.Fatalf("Events failed: %v", err)
	}
	if len(events) != 1 || events[0].Source != journal.SourceWorker || events[0].Command != "manual_trigger" {
		t.Fatalf("worker send not journaled: %+v", events)
	}
}

func TestDeviceMonitorPollAttachesDevice(t *testing.T) {
	cfg := newTestConfig(t, false)
	cfg.Device.WaitForDevice = true
	d := newTestDaemon(t, cfg)
	ctx := context.Background()

	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer d.Stop()

	if d.monitor == nil || !d.monitor.Running() {
		t.Fatal("device monitor should be running")
	}

	// Swap in a monitor with a short poll interval to keep the test fast.
	d.monitor.Stop()
	d.monitor = newDeviceMonitor(cfg.Device.Path, nil, d.onDeviceAppeared)
	d.monitor.pollInterval = 10 * time.Millisecond
	d.monitor.Start(ctx)

	if err := os.WriteFile(cfg.Device.Path, nil, 0o644); err != nil {
		t.Fatalf("create fake device: %v", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for !d.DeviceAvailable() {
		if time.Now().After(deadline) {
			t.Fatal("device never attached")
		}
		time.Sleep(10 * time.Millisecond)
	}

	if err := d.Trigger(ctx); err != nil {
		t.Fatalf("Trigger after attach failed: %v", err)
	}
}

func TestJournalPrunedOnStart(t *testing.T) {
	cfg := newTestConfig(t, true)
	cfg.Daemon.JournalRetention = 2

	j, err := journal.Open(cfg.Daemon.DataDir)
	if err != nil {
		t.Fatalf("open journal: %v", err)
	}
	t.Cleanup(func() { _ = j.Close() })
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		if err := j.Append(ctx, journal.Event{Command: "flash_lock", Outcome: journal.OutcomeSent}); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	d, err := New(cfg, j, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })

	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer d.Stop()

	stats, err := j.CommandStats(ctx)
	if err != nil {
		t.Fatalf("CommandStats failed: %v", err)
	}
	if stats.Total != 2 {
		t.Fatalf("journal not pruned to retention: %+v", stats)
	}
}
