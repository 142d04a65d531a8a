package tui

import (
	"strings"
	"testing"
	"time"

	"github.com/foremanhq/foreman/internal/run"
)

func TestProgressBarBounds(t *testing.T) {
	if got := progressBar(0, 0); got != "" {
		t.Fatalf("expected empty bar for zero total, got %q", got)
	}
	if got := progressBar(2, 4); !strings.HasSuffix(got, "50%") {
		t.Fatalf("expected 50%% suffix, got %q", got)
	}
	if got := progressBar(9, 4); !strings.HasSuffix(got, "100%") {
		t.Fatalf("expected clamp at 100%%, got %q", got)
	}
}

func TestFormatEvent(t *testing.T) {
	at := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	cases := []struct {
		ev   run.Event
		want string
	}{
		{run.Event{Kind: run.EventDispatched, ItemID: "a", WorkerID: "w1", At: at}, "a -> w1"},
		{run.Event{Kind: run.EventItemCompleted, ItemID: "a", At: at}, "a completed"},
		{run.Event{Kind: run.EventItemFailed, ItemID: "a", Reason: "boom", At: at}, "a failed: boom"},
		{run.Event{Kind: run.EventItemBlocked, ItemID: "a", Reason: "stuck", At: at}, "a blocked: stuck"},
		{run.Event{Kind: run.EventRunFinished, At: at}, "run finished"},
	}
	for _, tc := range cases {
		got := formatEvent(tc.ev)
		if !strings.Contains(got, tc.want) {
			t.Fatalf("formatEvent(%s) = %q, want substring %q", tc.ev.Kind, got, tc.want)
		}
		if !strings.HasPrefix(got, "09:30:00") {
			t.Fatalf("expected timestamp prefix, got %q", got)
		}
	}
}

func TestUpdateKeepsTickEventsOutOfActivityFeed(t *testing.T) {
	m := Model{}
	at := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)

	next, _ := m.Update(eventMsg(run.Event{Kind: run.EventTick, At: at}))
	m = next.(Model)
	if len(m.activities) != 0 {
		t.Fatalf("expected tick events to be skipped, got %v", m.activities)
	}

	next, _ = m.Update(eventMsg(run.Event{Kind: run.EventDispatched, ItemID: "a", WorkerID: "w1", At: at}))
	m = next.(Model)
	if len(m.activities) != 1 {
		t.Fatalf("expected one activity line, got %v", m.activities)
	}
}

func TestAppendActivityKeepsRecentLines(t *testing.T) {
	var lines []string
	for i := 0; i < maxActivity+3; i++ {
		lines = appendActivity(lines, strings.Repeat("x", i+1))
	}
	if len(lines) != maxActivity {
		t.Fatalf("expected %d lines, got %d", maxActivity, len(lines))
	}
	if lines[len(lines)-1] != strings.Repeat("x", maxActivity+3) {
		t.Fatal("expected the newest line to be kept")
	}
}
