package tui

import (
	"errors"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/sadopc/powernap/internal/countdown"
)

// Status lines shown under the countdown.
const (
	statusReady        = "Ready"
	statusRunning      = "Timer running..."
	statusPaused       = "Paused"
	statusAdded        = "+10 minutes added"
	statusShuttingDown = "Shutting down..."
	statusZeroTime     = "Set a time greater than 0."
	statusMaxDuration  = "Maximum allowed time is 5 hours."
)

// timerModel edits and drives the shared countdown. The countdown itself
// lives on its own goroutine; snap is refreshed from it after every key
// press and every event.
type timerModel struct {
	timer  *countdown.Timer
	field  countdown.Field
	snap   countdown.Snapshot
	status string
	failed bool
}

func newTimerModel(t *countdown.Timer) timerModel {
	return timerModel{
		timer:  t,
		field:  countdown.Hours,
		snap:   t.Snapshot(),
		status: statusReady,
	}
}

func (t *timerModel) refresh() {
	t.snap = t.timer.Snapshot()
}

func (t *timerModel) setStatus(text string, failed bool) {
	t.status = text
	t.failed = failed
}

func (t timerModel) running() bool { return t.snap.State == countdown.Running }
func (t timerModel) paused() bool  { return t.snap.State == countdown.Paused }
func (t timerModel) active() bool  { return t.snap.State != countdown.Idle }

func (t timerModel) update(msg tea.Msg) (timerModel, tea.Cmd) {
	switch msg := msg.(type) {
	case countdownMsg:
		t.observe(msg.event)
		t.refresh()
		return t, nil

	case tea.KeyMsg:
		t.handleKey(msg)
		t.refresh()
	}
	return t, nil
}

func (t *timerModel) handleKey(msg tea.KeyMsg) {
	switch {
	case key.Matches(msg, keys.Start):
		if err := t.timer.Start(); errors.Is(err, countdown.ErrZeroTime) {
			t.setStatus(statusZeroTime, true)
		}
	case key.Matches(msg, keys.Pause):
		if err := t.timer.Toggle(); errors.Is(err, countdown.ErrZeroTime) {
			t.setStatus(statusZeroTime, true)
		}
	case key.Matches(msg, keys.Stop):
		t.timer.Stop()
	case key.Matches(msg, keys.Add):
		t.timer.AddTime()
	case key.Matches(msg, keys.Up):
		t.adjust(1)
	case key.Matches(msg, keys.Down):
		t.adjust(-1)
	case key.Matches(msg, keys.Left):
		t.field = (t.field + 2) % 3
	case key.Matches(msg, keys.Right):
		t.field = (t.field + 1) % 3
	}
}

func (t *timerModel) adjust(delta int) {
	if err := t.timer.Adjust(t.field, delta); errors.Is(err, countdown.ErrMaxDuration) {
		t.setStatus(statusMaxDuration, true)
	}
}

// observe maps countdown events to the status line.
func (t *timerModel) observe(ev countdown.Event) {
	switch ev.Kind {
	case countdown.EventStarted, countdown.EventResumed:
		t.setStatus(statusRunning, false)
	case countdown.EventPaused:
		t.setStatus(statusPaused, false)
	case countdown.EventAdded:
		if ev.State != countdown.Idle {
			t.setStatus(statusAdded, false)
		}
	case countdown.EventStopped:
		t.setStatus(statusReady, false)
	case countdown.EventFiring:
		t.setStatus(statusShuttingDown, false)
	case countdown.EventExpired:
		if ev.Err != nil {
			t.setStatus("Shutdown failed: "+ev.Err.Error(), true)
			return
		}
		t.setStatus(statusReady, false)
	}
}

// progress is the fraction of the planned time still remaining.
func (t timerModel) progress() float64 {
	if t.snap.Planned <= 0 {
		return 0
	}
	p := float64(t.snap.Remaining) / float64(t.snap.Planned)
	if p > 1 {
		return 1
	}
	return p
}
