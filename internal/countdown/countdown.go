// Package countdown holds the remaining time, runs the one-second countdown
// on its own goroutine and fires a shutdown trigger when it reaches zero.
package countdown

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	ErrZeroTime    = errors.New("set a time greater than 0")
	ErrMaxDuration = errors.New("maximum allowed time is 5 hours")
)

// State is the timer's lifecycle state.
type State int

const (
	Idle State = iota
	Running
	Paused
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Paused:
		return "paused"
	default:
		return "unknown"
	}
}

// Trigger is the action fired once when a run reaches zero.
type Trigger interface {
	Shutdown(ctx context.Context) error
}

type nopTrigger struct{}

func (nopTrigger) Shutdown(context.Context) error { return nil }

const (
	defaultInterval       = time.Second
	defaultTriggerTimeout = 30 * time.Second
)

// Snapshot is a consistent copy of the timer's state.
type Snapshot struct {
	State     State
	Remaining int
	// Planned is the run's starting time plus everything added since, used
	// for progress display. While idle it equals Remaining.
	Planned int
	RunID   string
	// Firing is true while the shutdown trigger is executing.
	Firing bool
}

// Timer is a countdown with pause/resume. All methods are safe for
// concurrent use.
type Timer struct {
	mu        sync.Mutex
	state     State
	remaining int
	planned   int
	runID     string
	gen       uint64
	firing    bool
	cancel    context.CancelFunc
	wake      chan struct{}
	observers []Observer
	trigger   Trigger

	interval       time.Duration
	triggerTimeout time.Duration
	newID          func() string

	wg sync.WaitGroup
}

type Option func(*Timer)

// WithInterval sets the tick cadence. Tests use short intervals.
func WithInterval(d time.Duration) Option {
	return func(t *Timer) {
		if d > 0 {
			t.interval = d
		}
	}
}

// WithRemaining sets the initial remaining seconds, clamped to [0, MaxSeconds].
func WithRemaining(secs int) Option {
	return func(t *Timer) {
		t.remaining, _ = clampTotal(secs)
		t.planned = t.remaining
	}
}

func WithObserver(o Observer) Option {
	return func(t *Timer) {
		t.observers = append(t.observers, o)
	}
}

// WithTriggerTimeout bounds how long the shutdown trigger may run.
func WithTriggerTimeout(d time.Duration) Option {
	return func(t *Timer) {
		if d > 0 {
			t.triggerTimeout = d
		}
	}
}

func New(trigger Trigger, opts ...Option) *Timer {
	if trigger == nil {
		trigger = nopTrigger{}
	}
	t := &Timer{
		state:          Idle,
		trigger:        trigger,
		interval:       defaultInterval,
		triggerTimeout: defaultTriggerTimeout,
		newID:          uuid.NewString,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Subscribe adds an observer after construction.
func (t *Timer) Subscribe(o Observer) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.observers = append(t.observers, o)
}

// SetTrigger replaces the shutdown trigger. A run already firing keeps the
// old one.
func (t *Timer) SetTrigger(trigger Trigger) {
	if trigger == nil {
		trigger = nopTrigger{}
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.trigger = trigger
}

func (t *Timer) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshotLocked()
}

func (t *Timer) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

func (t *Timer) Remaining() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.remaining
}

// Start begins a run from Idle or resumes from Paused. It is a no-op while
// Running and fails with ErrZeroTime when there is no time left.
func (t *Timer) Start() error {
	t.mu.Lock()
	if t.state == Running {
		t.mu.Unlock()
		return nil
	}
	if t.remaining <= 0 {
		t.mu.Unlock()
		return ErrZeroTime
	}

	if t.state == Paused {
		t.state = Running
		t.gen++
		t.signalLocked()
		ev := t.eventLocked(EventResumed)
		t.mu.Unlock()
		t.notify(ev)
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.state = Running
	t.runID = t.newID()
	t.planned = t.remaining
	t.gen++
	t.cancel = cancel
	t.wake = make(chan struct{}, 1)

	runID, wake, gen := t.runID, t.wake, t.gen
	ev := t.eventLocked(EventStarted)
	t.wg.Add(1)
	t.mu.Unlock()

	t.notify(ev)
	go t.run(ctx, runID, wake, gen)
	return nil
}

// Pause suspends a running countdown. It reports whether anything changed.
func (t *Timer) Pause() bool {
	t.mu.Lock()
	if t.state != Running || t.firing {
		t.mu.Unlock()
		return false
	}
	t.state = Paused
	t.signalLocked()
	ev := t.eventLocked(EventPaused)
	t.mu.Unlock()

	t.notify(ev)
	return true
}

// Toggle pauses a running countdown or resumes a paused one. Resuming with
// no time left fails with ErrZeroTime and leaves the timer paused.
func (t *Timer) Toggle() error {
	switch t.State() {
	case Running:
		t.Pause()
	case Paused:
		return t.Start()
	}
	return nil
}

// Stop ends the current run without firing the trigger. The remaining time
// is kept. It reports whether a run was stopped.
func (t *Timer) Stop() bool {
	t.mu.Lock()
	if t.state == Idle || t.firing {
		t.mu.Unlock()
		return false
	}
	t.state = Idle
	if t.cancel != nil {
		t.cancel()
		t.cancel = nil
	}
	ev := t.eventLocked(EventStopped)
	t.planned = t.remaining
	t.mu.Unlock()

	t.notify(ev)
	return true
}

// AddTime adds AddSeconds in any state. The result may exceed MaxSeconds.
func (t *Timer) AddTime() Snapshot {
	t.mu.Lock()
	t.remaining += AddSeconds
	if t.state == Idle {
		t.planned = t.remaining
	} else {
		t.planned += AddSeconds
	}
	ev := t.eventLocked(EventAdded)
	ev.Delta = AddSeconds
	snap := t.snapshotLocked()
	t.mu.Unlock()

	t.notify(ev)
	return snap
}

// Adjust moves one display field by delta and recomposes the total. A
// total above MaxSeconds is clamped to exactly MaxSeconds and reported as
// ErrMaxDuration; the clamped value is still applied.
func (t *Timer) Adjust(f Field, delta int) error {
	t.mu.Lock()
	total, err := clampTotal(Split(t.remaining).adjust(f, delta).Total())
	ev := t.editLocked(total)
	t.mu.Unlock()

	t.notify(ev)
	return err
}

// Set replaces the remaining time, clamped to [0, MaxSeconds].
func (t *Timer) Set(secs int) error {
	t.mu.Lock()
	total, err := clampTotal(secs)
	ev := t.editLocked(total)
	t.mu.Unlock()

	t.notify(ev)
	return err
}

// Wait blocks until the countdown goroutine of the latest run has exited.
func (t *Timer) Wait() {
	t.wg.Wait()
}

// Close stops any run and waits for its goroutine.
func (t *Timer) Close() {
	t.Stop()
	t.Wait()
}

func (t *Timer) run(ctx context.Context, runID string, wake <-chan struct{}, armed uint64) {
	defer t.wg.Done()

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-wake:
			armed = t.rearm(ticker)
		case <-ticker.C:
			expired, stale := t.step(runID, armed)
			if stale {
				armed = t.rearm(ticker)
				continue
			}
			if expired {
				t.expire(runID)
				return
			}
		}
	}
}

// rearm restarts the ticker so a full interval passes before the next
// decrement, and returns the generation it was armed for.
func (t *Timer) rearm(ticker *time.Ticker) uint64 {
	t.mu.Lock()
	gen := t.gen
	t.mu.Unlock()

	select {
	case <-ticker.C:
	default:
	}
	ticker.Reset(t.interval)
	return gen
}

// step performs one decrement. stale is set when the timer was resumed after
// the ticker was last armed; that tick must not count.
func (t *Timer) step(runID string, armed uint64) (expired, stale bool) {
	t.mu.Lock()
	if t.runID != runID || t.state != Running {
		t.mu.Unlock()
		return false, false
	}
	if t.gen != armed {
		t.mu.Unlock()
		return false, true
	}
	if t.remaining > 0 {
		t.remaining--
	}
	expired = t.remaining == 0
	if expired {
		t.firing = true
	}
	ev := t.eventLocked(EventTick)
	t.mu.Unlock()

	t.notify(ev)
	return expired, false
}

func (t *Timer) expire(runID string) {
	t.mu.Lock()
	trigger := t.trigger
	timeout := t.triggerTimeout
	ev := t.eventLocked(EventFiring)
	t.mu.Unlock()
	t.notify(ev)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	err := trigger.Shutdown(ctx)
	cancel()

	t.mu.Lock()
	t.firing = false
	if t.runID == runID {
		t.state = Idle
		if t.cancel != nil {
			t.cancel()
			t.cancel = nil
		}
		t.planned = t.remaining
	}
	ev = t.eventLocked(EventExpired)
	ev.RunID = runID
	ev.Err = err
	t.mu.Unlock()

	t.notify(ev)
}

// editLocked replaces the remaining time and returns the EventAdjusted
// carrying the change.
func (t *Timer) editLocked(total int) Event {
	delta := total - t.remaining
	t.remaining = total
	if t.state == Idle || total > t.planned {
		t.planned = total
	}
	ev := t.eventLocked(EventAdjusted)
	ev.Delta = delta
	return ev
}

func (t *Timer) signalLocked() {
	if t.wake == nil {
		return
	}
	select {
	case t.wake <- struct{}{}:
	default:
	}
}

func (t *Timer) snapshotLocked() Snapshot {
	return Snapshot{
		State:     t.state,
		Remaining: t.remaining,
		Planned:   t.planned,
		RunID:     t.runID,
		Firing:    t.firing,
	}
}

func (t *Timer) eventLocked(kind EventKind) Event {
	return Event{
		Kind:      kind,
		RunID:     t.runID,
		State:     t.state,
		Remaining: t.remaining,
		Planned:   t.planned,
		At:        time.Now(),
	}
}

func (t *Timer) notify(ev Event) {
	t.mu.Lock()
	observers := make([]Observer, len(t.observers))
	copy(observers, t.observers)
	t.mu.Unlock()

	for _, o := range observers {
		o.Observe(ev)
	}
}

func clampTotal(secs int) (int, error) {
	if secs < 0 {
		return 0, nil
	}
	if secs > MaxSeconds {
		return MaxSeconds, ErrMaxDuration
	}
	return secs, nil
}
