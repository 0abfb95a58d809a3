package cli

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sadopc/powernap/internal/countdown"
	"github.com/sadopc/powernap/internal/logging"
	"github.com/sadopc/powernap/internal/shutdown"
	"github.com/sadopc/powernap/internal/store"
)

// syncBuffer is a bytes.Buffer safe for the runner and the test to share.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestRunnerCountsDownAndFires(t *testing.T) {
	fake := &shutdown.Fake{}
	tm := countdown.New(fake, countdown.WithRemaining(3), countdown.WithInterval(5*time.Millisecond))
	var out syncBuffer

	if err := NewRunner(tm, &out, logging.Discard()).Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if fake.Calls() != 1 {
		t.Fatalf("expected one shutdown, got %d", fake.Calls())
	}

	got := out.String()
	for _, want := range []string{"00:00:03 until shutdown", "00:00:02", "00:00:01", "00:00:00", "Shutting down..."} {
		if !strings.Contains(got, want) {
			t.Fatalf("output missing %q:\n%s", want, got)
		}
	}
}

func TestRunnerCancelStopsWithoutShutdown(t *testing.T) {
	fake := &shutdown.Fake{}
	tm := countdown.New(fake, countdown.WithRemaining(600), countdown.WithInterval(time.Hour))
	var out syncBuffer

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- NewRunner(tm, &out, logging.Discard()).Run(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for tm.State() != countdown.Running {
		if time.Now().After(deadline) {
			t.Fatal("countdown never started")
		}
		time.Sleep(time.Millisecond)
	}
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	if tm.State() != countdown.Idle || fake.Calls() != 0 {
		t.Fatalf("state=%s calls=%d", tm.State(), fake.Calls())
	}
	if !strings.Contains(out.String(), "Stopped with 00:10:00 left") {
		t.Fatalf("unexpected output:\n%s", out.String())
	}
}

func TestRunnerZeroTime(t *testing.T) {
	tm := countdown.New(&shutdown.Fake{})
	err := NewRunner(tm, &syncBuffer{}, logging.Discard()).Run(context.Background())
	if !errors.Is(err, countdown.ErrZeroTime) {
		t.Fatalf("expected ErrZeroTime, got %v", err)
	}
}

func TestRunnerReportsShutdownFailure(t *testing.T) {
	fake := &shutdown.Fake{Err: errors.New("not permitted")}
	tm := countdown.New(fake, countdown.WithRemaining(1), countdown.WithInterval(5*time.Millisecond))
	var out syncBuffer

	err := NewRunner(tm, &out, logging.Discard()).Run(context.Background())
	if err == nil || !strings.Contains(err.Error(), "not permitted") {
		t.Fatalf("expected shutdown error, got %v", err)
	}
	if !strings.Contains(out.String(), "Shutdown failed") {
		t.Fatalf("unexpected output:\n%s", out.String())
	}
}

func TestPrintHistory(t *testing.T) {
	start := time.Date(2026, 3, 14, 21, 0, 0, 0, time.Local)
	runs := []store.Countdown{
		{RunID: "a", Status: store.StatusCompleted, PlannedSeconds: 3600, StartedAt: start},
		{RunID: "b", Status: store.StatusFailed, PlannedSeconds: 60, AddedSeconds: 600, Pauses: 2, StartedAt: start, ShutdownError: "denied"},
	}

	var buf bytes.Buffer
	if err := PrintHistory(&buf, runs); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected header, rule and 2 rows, got %d:\n%s", len(lines), buf.String())
	}
	if !strings.HasPrefix(lines[0], "STARTED") {
		t.Fatalf("unexpected header %q", lines[0])
	}
	if !strings.Contains(lines[2], "2026-03-14 21:00") || !strings.Contains(lines[2], "01:00:00") {
		t.Fatalf("unexpected row %q", lines[2])
	}
	if !strings.Contains(lines[3], "00:11:00") || !strings.Contains(lines[3], "denied") {
		t.Fatalf("unexpected row %q", lines[3])
	}
}

func TestPrintHistoryEmpty(t *testing.T) {
	var buf bytes.Buffer
	PrintHistory(&buf, nil)
	if !strings.Contains(buf.String(), "No countdowns") {
		t.Fatalf("unexpected output %q", buf.String())
	}
}

func TestPrintUsageListsFlags(t *testing.T) {
	var buf bytes.Buffer
	PrintUsage(&buf)
	for _, flag := range []string{"-duration", "-headless", "-tray", "-dry-run", "-history"} {
		if !strings.Contains(buf.String(), flag) {
			t.Fatalf("usage missing %s", flag)
		}
	}
}
