package countdown

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// countingTrigger records how often Shutdown was called.
type countingTrigger struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (c *countingTrigger) Shutdown(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	return c.err
}

func (c *countingTrigger) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

// recorder collects events in order.
type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) Observe(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) kinds(kind EventKind) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Event
	for _, e := range r.events {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

// ============================================================
// Fields
// ============================================================

func TestSplitAndTotal(t *testing.T) {
	tests := []struct {
		total int
		want  HMS
	}{
		{0, HMS{0, 0, 0}},
		{59, HMS{0, 0, 59}},
		{3661, HMS{1, 1, 1}},
		{18000, HMS{5, 0, 0}},
		{18300, HMS{5, 5, 0}},
		{-5, HMS{0, 0, 0}},
	}
	for _, tt := range tests {
		got := Split(tt.total)
		if got != tt.want {
			t.Fatalf("Split(%d) = %+v, want %+v", tt.total, got, tt.want)
		}
		if tt.total >= 0 && got.Total() != tt.total {
			t.Fatalf("Total() = %d, want %d", got.Total(), tt.total)
		}
	}
}

func TestFormat(t *testing.T) {
	if got := Format(2 * 3600); got != "02:00:00" {
		t.Fatalf("got %q", got)
	}
	if got := Format(18300); got != "05:05:00" {
		t.Fatalf("got %q", got)
	}
}

func TestAdjustWrapsMinutesAndSeconds(t *testing.T) {
	h := HMS{1, 59, 59}
	if got := h.adjust(Minutes, 1); got != (HMS{1, 0, 59}) {
		t.Fatalf("minutes should wrap without carry, got %+v", got)
	}
	if got := h.adjust(Seconds, 1); got != (HMS{1, 59, 0}) {
		t.Fatalf("seconds should wrap without carry, got %+v", got)
	}

	z := HMS{0, 0, 0}
	if got := z.adjust(Minutes, -1); got.M != 59 {
		t.Fatalf("minutes 0-1 should be 59, got %d", got.M)
	}
	if got := z.adjust(Seconds, -1); got.S != 59 {
		t.Fatalf("seconds 0-1 should be 59, got %d", got.S)
	}
}

func TestAdjustClampsHours(t *testing.T) {
	if got := (HMS{0, 0, 0}).adjust(Hours, -1); got.H != 0 {
		t.Fatalf("hours should not go below 0, got %d", got.H)
	}
	if got := (HMS{23, 0, 0}).adjust(Hours, 1); got.H != 23 {
		t.Fatalf("hours should not exceed 23, got %d", got.H)
	}
}

func TestFieldString(t *testing.T) {
	if Hours.String() != "hours" || Minutes.String() != "minutes" || Seconds.String() != "seconds" {
		t.Fatal("unexpected field names")
	}
	if Field(9).String() != "unknown" {
		t.Fatal("expected unknown")
	}
}

// ============================================================
// Manual edits
// ============================================================

func TestTimerAdjustClampsToFiveHours(t *testing.T) {
	tm := New(nil, WithRemaining(4*3600+59*60))

	err := tm.Adjust(Hours, 1)
	if !errors.Is(err, ErrMaxDuration) {
		t.Fatalf("expected ErrMaxDuration, got %v", err)
	}
	if tm.Remaining() != MaxSeconds {
		t.Fatalf("expected clamp to %d, got %d", MaxSeconds, tm.Remaining())
	}
	if Format(tm.Remaining()) != "05:00:00" {
		t.Fatalf("expected 05:00:00, got %s", Format(tm.Remaining()))
	}
}

func TestTimerAdjustNeverExceedsCap(t *testing.T) {
	tm := New(nil, WithRemaining(0))
	for i := 0; i < 30; i++ {
		tm.Adjust(Hours, 1)
		tm.Adjust(Minutes, 7)
		tm.Adjust(Seconds, 13)
		if tm.Remaining() > MaxSeconds {
			t.Fatalf("remaining %d exceeds cap", tm.Remaining())
		}
	}
}

func TestTimerAdjustWithinRange(t *testing.T) {
	tm := New(nil, WithRemaining(3600))
	if err := tm.Adjust(Minutes, 30); err != nil {
		t.Fatal(err)
	}
	if tm.Remaining() != 5400 {
		t.Fatalf("expected 5400, got %d", tm.Remaining())
	}
	if err := tm.Adjust(Seconds, -1); err != nil {
		t.Fatal(err)
	}
	// 01:30:00 -> 01:30:59
	if tm.Remaining() != 5459 {
		t.Fatalf("expected 5459, got %d", tm.Remaining())
	}
}

func TestTimerSet(t *testing.T) {
	tm := New(nil)
	if err := tm.Set(120); err != nil {
		t.Fatal(err)
	}
	if tm.Remaining() != 120 {
		t.Fatalf("expected 120, got %d", tm.Remaining())
	}
	if err := tm.Set(MaxSeconds + 1); !errors.Is(err, ErrMaxDuration) {
		t.Fatalf("expected ErrMaxDuration, got %v", err)
	}
	if tm.Remaining() != MaxSeconds {
		t.Fatalf("expected clamp, got %d", tm.Remaining())
	}
	tm.Set(-10)
	if tm.Remaining() != 0 {
		t.Fatalf("negative should clamp to 0, got %d", tm.Remaining())
	}
}

func TestWithRemainingClamps(t *testing.T) {
	tm := New(nil, WithRemaining(10*3600))
	if tm.Remaining() != MaxSeconds {
		t.Fatalf("expected %d, got %d", MaxSeconds, tm.Remaining())
	}
}

// ============================================================
// Add ten minutes
// ============================================================

func TestAddTimeExceedsCap(t *testing.T) {
	tm := New(nil, WithRemaining(4*3600+55*60))
	snap := tm.AddTime()
	if Format(snap.Remaining) != "05:05:00" {
		t.Fatalf("expected 05:05:00, got %s", Format(snap.Remaining))
	}
	if tm.State() != Idle {
		t.Fatal("AddTime should not change state")
	}
}

func TestAddTimeWhileRunningGrowsPlanned(t *testing.T) {
	tm := New(nil, WithRemaining(60), WithInterval(time.Hour))
	if err := tm.Start(); err != nil {
		t.Fatal(err)
	}
	defer tm.Close()

	snap := tm.AddTime()
	if snap.Remaining != 660 || snap.Planned != 660 {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
	if snap.State != Running {
		t.Fatal("should still be running")
	}
}

// ============================================================
// State machine
// ============================================================

func TestStartWithZeroRejected(t *testing.T) {
	rec := &recorder{}
	tm := New(nil, WithObserver(rec))

	err := tm.Start()
	if !errors.Is(err, ErrZeroTime) {
		t.Fatalf("expected ErrZeroTime, got %v", err)
	}
	if tm.State() != Idle {
		t.Fatal("state should remain idle")
	}
	if len(rec.kinds(EventStarted)) != 0 {
		t.Fatal("no start event expected")
	}
}

func TestResumeWithZeroRejected(t *testing.T) {
	trig := &countingTrigger{}
	rec := &recorder{}
	tm := New(trig, WithRemaining(60), WithInterval(5*time.Millisecond), WithObserver(rec))
	defer tm.Close()

	tm.Start()
	tm.Pause()
	tm.Set(0)
	time.Sleep(20 * time.Millisecond)

	if err := tm.Start(); !errors.Is(err, ErrZeroTime) {
		t.Fatalf("expected ErrZeroTime, got %v", err)
	}
	if err := tm.Toggle(); !errors.Is(err, ErrZeroTime) {
		t.Fatalf("toggle: expected ErrZeroTime, got %v", err)
	}
	time.Sleep(20 * time.Millisecond)

	if tm.State() != Paused {
		t.Fatalf("state should remain paused, got %s", tm.State())
	}
	if trig.count() != 0 {
		t.Fatalf("trigger must not fire, got %d calls", trig.count())
	}
	if len(rec.kinds(EventResumed)) != 0 {
		t.Fatal("no resume event expected")
	}
}

func TestEditEventsCarryDelta(t *testing.T) {
	rec := &recorder{}
	tm := New(nil, WithRemaining(3600), WithObserver(rec))

	tm.Adjust(Hours, -1)
	tm.Set(90)
	tm.AddTime()

	adjusted := rec.kinds(EventAdjusted)
	if len(adjusted) != 2 || adjusted[0].Delta != -3600 || adjusted[1].Delta != 90 {
		t.Fatalf("unexpected adjust events %+v", adjusted)
	}
	if added := rec.kinds(EventAdded); len(added) != 1 || added[0].Delta != AddSeconds {
		t.Fatalf("unexpected add events %+v", added)
	}
}

func TestPauseWhenIdleIsNoop(t *testing.T) {
	tm := New(nil, WithRemaining(10))
	if tm.Pause() {
		t.Fatal("pause should report no change when idle")
	}
	if tm.State() != Idle {
		t.Fatal("should still be idle")
	}
}

func TestStartPauseResumeStop(t *testing.T) {
	rec := &recorder{}
	tm := New(nil, WithRemaining(100), WithInterval(time.Hour), WithObserver(rec))

	if err := tm.Start(); err != nil {
		t.Fatal(err)
	}
	if tm.State() != Running {
		t.Fatal("should be running")
	}
	runID := tm.Snapshot().RunID
	if runID == "" {
		t.Fatal("run id should be set")
	}

	// Start while running is a no-op.
	if err := tm.Start(); err != nil {
		t.Fatal(err)
	}
	if tm.Snapshot().RunID != runID {
		t.Fatal("start while running should not begin a new run")
	}

	if !tm.Pause() {
		t.Fatal("pause should succeed")
	}
	if tm.Pause() {
		t.Fatal("second pause should be a no-op")
	}
	if tm.State() != Paused {
		t.Fatal("should be paused")
	}

	if err := tm.Start(); err != nil {
		t.Fatal(err)
	}
	if tm.State() != Running {
		t.Fatal("start should resume")
	}
	if tm.Snapshot().RunID != runID {
		t.Fatal("resume keeps the run id")
	}

	if !tm.Stop() {
		t.Fatal("stop should succeed")
	}
	tm.Wait()
	if tm.State() != Idle {
		t.Fatal("should be idle after stop")
	}
	if tm.Remaining() != 100 {
		t.Fatalf("stop keeps remaining, got %d", tm.Remaining())
	}
	if tm.Stop() {
		t.Fatal("stop when idle should be a no-op")
	}

	for _, kind := range []EventKind{EventStarted, EventPaused, EventResumed, EventStopped} {
		if len(rec.kinds(kind)) != 1 {
			t.Fatalf("expected one %s event, got %d", kind, len(rec.kinds(kind)))
		}
	}
}

func TestToggle(t *testing.T) {
	tm := New(nil, WithRemaining(100), WithInterval(time.Hour))
	tm.Toggle()
	if tm.State() != Idle {
		t.Fatal("toggle should not start an idle timer")
	}

	tm.Start()
	defer tm.Close()
	tm.Toggle()
	if tm.State() != Paused {
		t.Fatal("toggle should pause")
	}
	tm.Toggle()
	if tm.State() != Running {
		t.Fatal("toggle should resume")
	}
}

// ============================================================
// Countdown loop
// ============================================================

func TestStepIsLosslessAcrossPause(t *testing.T) {
	tm := New(nil, WithRemaining(10), WithInterval(time.Hour))
	if err := tm.Start(); err != nil {
		t.Fatal(err)
	}
	defer tm.Close()

	runID := tm.Snapshot().RunID
	tm.mu.Lock()
	armed := tm.gen
	tm.mu.Unlock()

	if expired, stale := tm.step(runID, armed); expired || stale {
		t.Fatal("unexpected expiry or stale tick")
	}
	if tm.Remaining() != 9 {
		t.Fatalf("expected 9, got %d", tm.Remaining())
	}

	tm.Pause()
	tm.step(runID, armed)
	if tm.Remaining() != 9 {
		t.Fatalf("paused tick must not decrement, got %d", tm.Remaining())
	}

	tm.Start()
	// A tick armed before the resume must not count.
	if _, stale := tm.step(runID, armed); !stale {
		t.Fatal("tick armed before resume should be stale")
	}
	if tm.Remaining() != 9 {
		t.Fatalf("stale tick must not decrement, got %d", tm.Remaining())
	}

	tm.mu.Lock()
	armed = tm.gen
	tm.mu.Unlock()
	tm.step(runID, armed)
	if tm.Remaining() != 8 {
		t.Fatalf("expected 8 after resume, got %d", tm.Remaining())
	}
}

func TestStepIgnoresOtherRun(t *testing.T) {
	tm := New(nil, WithRemaining(10), WithInterval(time.Hour))
	tm.Start()
	defer tm.Close()

	tm.mu.Lock()
	armed := tm.gen
	tm.mu.Unlock()

	tm.step("some-old-run", armed)
	if tm.Remaining() != 10 {
		t.Fatalf("stale run must not decrement, got %d", tm.Remaining())
	}
}

func TestFullCountdownFiresOnce(t *testing.T) {
	trig := &countingTrigger{}
	rec := &recorder{}
	tm := New(trig, WithRemaining(3), WithInterval(5*time.Millisecond), WithObserver(rec))

	if err := tm.Start(); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool { return len(rec.kinds(EventExpired)) == 1 })
	tm.Wait()

	ticks := rec.kinds(EventTick)
	want := []int{2, 1, 0}
	if len(ticks) != len(want) {
		t.Fatalf("expected %d ticks, got %d", len(want), len(ticks))
	}
	for i, ev := range ticks {
		if ev.Remaining != want[i] {
			t.Fatalf("tick %d: remaining %d, want %d", i, ev.Remaining, want[i])
		}
	}

	if trig.count() != 1 {
		t.Fatalf("trigger should fire exactly once, fired %d", trig.count())
	}
	if tm.State() != Idle {
		t.Fatal("should be idle after expiry")
	}
	if len(rec.kinds(EventFiring)) != 1 {
		t.Fatal("expected one firing event")
	}

	// Nothing more happens afterwards.
	time.Sleep(30 * time.Millisecond)
	if trig.count() != 1 {
		t.Fatal("trigger fired again")
	}
}

func TestExpiredCarriesTriggerError(t *testing.T) {
	boom := errors.New("boom")
	trig := &countingTrigger{err: boom}
	rec := &recorder{}
	tm := New(trig, WithRemaining(1), WithInterval(5*time.Millisecond), WithObserver(rec))

	tm.Start()
	waitFor(t, func() bool { return len(rec.kinds(EventExpired)) == 1 })

	ev := rec.kinds(EventExpired)[0]
	if !errors.Is(ev.Err, boom) {
		t.Fatalf("expected trigger error, got %v", ev.Err)
	}
	if ev.State != Idle {
		t.Fatal("expired event should report idle")
	}
}

func TestEditToZeroWhileRunningFiresOnNextTick(t *testing.T) {
	trig := &countingTrigger{}
	tm := New(trig, WithRemaining(3600), WithInterval(20*time.Millisecond))
	defer tm.Close()

	tm.Start()
	tm.Set(0)
	if trig.count() != 0 {
		t.Fatal("edit alone must not fire the trigger")
	}
	waitFor(t, func() bool { return trig.count() == 1 })
	waitFor(t, func() bool { return tm.State() == Idle })
}

func TestStopPreventsTrigger(t *testing.T) {
	trig := &countingTrigger{}
	tm := New(trig, WithRemaining(5), WithInterval(20*time.Millisecond))

	tm.Start()
	time.Sleep(30 * time.Millisecond)
	tm.Stop()
	tm.Wait()

	time.Sleep(150 * time.Millisecond)
	if trig.count() != 0 {
		t.Fatal("stopped timer must not fire")
	}
}

func TestPauseHaltsDecrement(t *testing.T) {
	tm := New(nil, WithRemaining(1000), WithInterval(10*time.Millisecond))
	tm.Start()
	defer tm.Close()

	waitFor(t, func() bool { return tm.Remaining() < 1000 })
	tm.Pause()
	frozen := tm.Remaining()

	time.Sleep(60 * time.Millisecond)
	if tm.Remaining() != frozen {
		t.Fatalf("remaining changed while paused: %d -> %d", frozen, tm.Remaining())
	}

	tm.Start()
	waitFor(t, func() bool { return tm.Remaining() < frozen })
}

func TestRestartAfterStop(t *testing.T) {
	trig := &countingTrigger{}
	tm := New(trig, WithRemaining(2), WithInterval(5*time.Millisecond))

	tm.Start()
	first := tm.Snapshot().RunID
	tm.Stop()

	if err := tm.Start(); err != nil {
		t.Fatal(err)
	}
	if tm.Snapshot().RunID == first {
		t.Fatal("a new run should get a new id")
	}
	waitFor(t, func() bool { return trig.count() == 1 })
	tm.Wait()
	if trig.count() != 1 {
		t.Fatalf("expected one shutdown, got %d", trig.count())
	}
}

func TestChanObserverDoesNotBlock(t *testing.T) {
	ch := make(chan Event, 1)
	obs := Chan(ch)
	obs.Observe(Event{Kind: EventTick})
	obs.Observe(Event{Kind: EventTick}) // dropped
	if len(ch) != 1 {
		t.Fatalf("expected 1 buffered event, got %d", len(ch))
	}
}

func TestStateAndEventNames(t *testing.T) {
	if Idle.String() != "idle" || Running.String() != "running" || Paused.String() != "paused" {
		t.Fatal("unexpected state names")
	}
	if EventExpired.String() != "expired" || EventKind(99).String() != "unknown" {
		t.Fatal("unexpected event names")
	}
}
