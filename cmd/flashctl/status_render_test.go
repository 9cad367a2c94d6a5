package main

import (
	"fmt"
	"strings"
	"testing"
)

func TestRenderStatusLineNoColor(t *testing.T) {
	got := renderStatusLine("Daemon", statusError, "Not running", false)
	want := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, "Daemon:", "[ERROR] Not running")
	if got != want {
		t.Fatalf("renderStatusLine mismatch\n got: %q\nwant: %q", got, want)
	}
}

func TestRenderStatusLineWithColor(t *testing.T) {
	got := renderStatusLine("Daemon", statusOK, "Running", true)
	if !strings.HasPrefix(got, ansiGreen) {
		t.Fatalf("expected green prefix, got %q", got)
	}
	if !strings.HasSuffix(got, ansiReset) {
		t.Fatalf("expected reset suffix, got %q", got)
	}
}

func TestRenderStatusLineWithoutMessage(t *testing.T) {
	got := renderStatusLine("State", statusWarn, "", false)
	if !strings.Contains(got, "[WARN]") || strings.Contains(got, "[WARN] ") {
		t.Fatalf("expected bare kind label, got %q", got)
	}
}

func TestRenderSectionHeader(t *testing.T) {
	if got := renderSectionHeader("Workers", false); got != "== Workers ==" {
		t.Fatalf("unexpected header %q", got)
	}
	colored := renderSectionHeader("Workers", true)
	if !strings.HasPrefix(colored, ansiBlue) || !strings.HasSuffix(colored, ansiReset) {
		t.Fatalf("expected colored header, got %q", colored)
	}
}

func TestRenderTableAlignsNumericColumns(t *testing.T) {
	out := renderTable([]string{"Command", "Count"}, [][]string{
		{"flash_lock", "2"},
		{"manual_trigger", "10"},
	}, 1)
	lines := strings.Split(out, "\n")
	if len(lines) < 4 {
		t.Fatalf("expected bordered table, got %q", out)
	}
	var two, ten int
	for i, line := range lines {
		if strings.Contains(line, " 2 ") {
			two = i
		}
		if strings.Contains(line, " 10 ") {
			ten = i
		}
	}
	if two == 0 || ten == 0 {
		t.Fatalf("counts missing from table %q", out)
	}
	if strings.Index(lines[two], "2") != strings.Index(lines[ten], "0") {
		t.Fatalf("counts not right-aligned:\n%s", out)
	}
}

func TestDisplayLabel(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"flash-ready", "Flash Ready"},
		{"manual_trigger", "Manual Trigger"},
		{"flash_lock", "Flash Lock"},
		{"", "Unknown"},
	}
	for _, tc := range cases {
		if got := displayLabel(tc.in); got != tc.want {
			t.Fatalf("displayLabel(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
