package journal_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/lttle-cloud/ignition/flash"
	"github.com/lttle-cloud/ignition/internal/journal"
)

func mustOpen(t *testing.T, dir string) *journal.Journal {
	t.Helper()
	j, err := journal.Open(dir)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { _ = j.Close() })
	return j
}

func TestAppendAndRecent(t *testing.T) {
	j := mustOpen(t, t.TempDir())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		err := j.Append(ctx, journal.Event{
			Command: "flash_lock",
			Outcome: journal.OutcomeSent,
			Source:  journal.SourceDaemon,
			Detail:  fmt.Sprintf("run %d", i),
		})
		if err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	events, err := j.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("Recent returned %d events, want 2", len(events))
	}
	if events[0].Detail != "run 2" || events[1].Detail != "run 1" {
		t.Fatalf("events not newest-first: %+v", events)
	}
	if events[0].SessionID != j.Session() {
		t.Fatalf("session not stamped: %+v", events[0])
	}
	if events[0].CreatedAt.IsZero() {
		t.Fatal("created_at not parsed")
	}
}

func TestAppendRequiresCommand(t *testing.T) {
	j := mustOpen(t, t.TempDir())
	if err := j.Append(context.Background(), journal.Event{}); err == nil {
		t.Fatal("expected error for empty command")
	}
}

func TestCommandStats(t *testing.T) {
	j := mustOpen(t, t.TempDir())
	ctx := context.Background()

	entries := []journal.Event{
		{Command: "flash_lock", Outcome: journal.OutcomeSent},
		{Command: "flash_unlock", Outcome: journal.OutcomeSent},
		{Command: "manual_trigger", Outcome: journal.OutcomeFailed, Detail: "device closed"},
		{Command: "flash_lock", Outcome: journal.OutcomeSent},
	}
	for _, event := range entries {
		if err := j.Append(ctx, event); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	stats, err := j.CommandStats(ctx)
	if err != nil {
		t.Fatalf("CommandStats failed: %v", err)
	}
	if stats.Total != 4 || stats.Failed != 1 {
		t.Fatalf("unexpected totals: %+v", stats)
	}
	if stats.PerCommand["flash_lock"] != 2 || stats.PerCommand["manual_trigger"] != 1 {
		t.Fatalf("unexpected per-command counts: %+v", stats.PerCommand)
	}
}

func TestPruneKeepsNewest(t *testing.T) {
	j := mustOpen(t, t.TempDir())
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		if err := j.Append(ctx, journal.Event{Command: "flash_lock", Outcome: journal.OutcomeSent, Detail: fmt.Sprintf("n%d", i)}); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	removed, err := j.Prune(ctx, 3)
	if err != nil {
		t.Fatalf("Prune failed: %v", err)
	}
	if removed != 7 {
		t.Fatalf("Prune removed %d, want 7", removed)
	}

	events, err := j.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(events) != 3 || events[0].Detail != "n9" {
		t.Fatalf("unexpected survivors: %+v", events)
	}
}

func TestReopenKeepsDataAndChangesSession(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	first, err := journal.Open(dir)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := first.Append(ctx, journal.Event{Command: "manual_trigger", Outcome: journal.OutcomeSent}); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	firstSession := first.Session()
	if err := first.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	second := mustOpen(t, dir)
	if second.Session() == firstSession {
		t.Fatal("session should change across opens")
	}
	events, err := second.Recent(ctx, 5)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(events) != 1 || events[0].SessionID != firstSession {
		t.Fatalf("persisted event lost: %+v", events)
	}
}

func TestSendRecorderJournalsOutcomes(t *testing.T) {
	j := mustOpen(t, t.TempDir())
	rec := journal.NewSendRecorder(j, journal.SourceWorker, nil)

	rec.RecordSend(flash.CommandTrigger, nil)
	rec.RecordSend(flash.CommandLock, errors.New("write failed"))

	events, err := j.Recent(context.Background(), 5)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].Command != "flash_lock" || events[0].Outcome != journal.OutcomeFailed || events[0].Detail != "write failed" {
		t.Fatalf("failed send not journaled: %+v", events[0])
	}
	if events[1].Command != "manual_trigger" || events[1].Outcome != journal.OutcomeSent {
		t.Fatalf("successful send not journaled: %+v", events[1])
	}
	if events[0].Source != journal.SourceWorker {
		t.Fatalf("source not tagged: %+v", events[0])
	}
}
