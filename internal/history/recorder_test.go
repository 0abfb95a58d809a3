package history

import (
	"errors"
	"testing"
	"time"

	"github.com/sadopc/powernap/internal/countdown"
	"github.com/sadopc/powernap/internal/logging"
	"github.com/sadopc/powernap/internal/shutdown"
	"github.com/sadopc/powernap/internal/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.NewMemory()
	if err != nil {
		t.Fatalf("new memory store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func waitStatus(t *testing.T, s *store.Store, runID, status string) *store.Countdown {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		c, err := s.GetCountdownByRun(runID)
		if err == nil && c.Status == status {
			return c
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("run %s never reached status %s", runID, status)
	return nil
}

func TestRecorderStoppedRun(t *testing.T) {
	s := newTestStore(t)
	rec := NewRecorder(s, logging.Discard())
	tm := countdown.New(&shutdown.Fake{}, countdown.WithRemaining(300), countdown.WithInterval(time.Hour), countdown.WithObserver(rec))

	if err := tm.Start(); err != nil {
		t.Fatal(err)
	}
	runID := tm.Snapshot().RunID
	tm.Pause()
	tm.AddTime()
	tm.Start()
	tm.Stop()
	tm.Wait()

	c, err := s.GetCountdownByRun(runID)
	if err != nil {
		t.Fatal(err)
	}
	if c.Status != store.StatusStopped {
		t.Fatalf("expected stopped, got %s", c.Status)
	}
	if c.PlannedSeconds != 300 || c.AddedSeconds != 600 || c.Pauses != 1 {
		t.Fatalf("unexpected run %+v", c)
	}
	if c.RemainingSeconds != 900 {
		t.Fatalf("expected 900 remaining, got %d", c.RemainingSeconds)
	}
}

func TestRecorderCompletedRun(t *testing.T) {
	s := newTestStore(t)
	fake := &shutdown.Fake{}
	rec := NewRecorder(s, logging.Discard())
	tm := countdown.New(fake, countdown.WithRemaining(2), countdown.WithInterval(5*time.Millisecond), countdown.WithObserver(rec))

	tm.Start()
	runID := tm.Snapshot().RunID
	c := waitStatus(t, s, runID, store.StatusCompleted)
	if c.RemainingSeconds != 0 || c.CountedSeconds() != 2 {
		t.Fatalf("unexpected run %+v", c)
	}
	if fake.Calls() != 1 {
		t.Fatalf("expected one shutdown, got %d", fake.Calls())
	}
}

func TestRecorderFailedShutdown(t *testing.T) {
	s := newTestStore(t)
	fake := &shutdown.Fake{Err: errors.New("not permitted")}
	rec := NewRecorder(s, logging.Discard())
	tm := countdown.New(fake, countdown.WithRemaining(1), countdown.WithInterval(5*time.Millisecond), countdown.WithObserver(rec))

	tm.Start()
	runID := tm.Snapshot().RunID
	c := waitStatus(t, s, runID, store.StatusFailed)
	if c.ShutdownError != "not permitted" {
		t.Fatalf("unexpected error %q", c.ShutdownError)
	}
}

func TestRecorderEditsDuringRun(t *testing.T) {
	s := newTestStore(t)
	rec := NewRecorder(s, logging.Discard())
	tm := countdown.New(&shutdown.Fake{}, countdown.WithRemaining(3600), countdown.WithInterval(time.Hour), countdown.WithObserver(rec))

	tm.Start()
	runID := tm.Snapshot().RunID
	tm.Adjust(countdown.Hours, -1)
	tm.Stop()
	tm.Wait()

	c, err := s.GetCountdownByRun(runID)
	if err != nil {
		t.Fatal(err)
	}
	if c.RemainingSeconds != 0 || c.CountedSeconds() != 0 {
		t.Fatalf("edit to zero recorded as counted time: %+v", c)
	}

	tm.Set(60)
	tm.Start()
	runID = tm.Snapshot().RunID
	tm.Pause()
	tm.Adjust(countdown.Hours, 1)
	tm.Stop()
	tm.Wait()

	c, err = s.GetCountdownByRun(runID)
	if err != nil {
		t.Fatal(err)
	}
	if c.RemainingSeconds != 3660 || c.AdjustedSeconds != 3600 || c.CountedSeconds() != 0 {
		t.Fatalf("unexpected run after raising the time %+v", c)
	}
}

func TestRecorderIgnoresIdleAdds(t *testing.T) {
	s := newTestStore(t)
	rec := NewRecorder(s, logging.Discard())
	tm := countdown.New(nil, countdown.WithObserver(rec))

	tm.AddTime()
	tm.Adjust(countdown.Minutes, 5)
	runs, _ := s.ListCountdowns(store.CountdownFilter{})
	if len(runs) != 0 {
		t.Fatalf("idle edits must not create runs, got %d", len(runs))
	}
}
