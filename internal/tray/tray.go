// Package tray shows the countdown in the system tray.
package tray

import (
	"fmt"

	"fyne.io/systray"

	"github.com/sadopc/powernap/internal/countdown"
	"github.com/sadopc/powernap/internal/logging"
)

// Indicator is a tray icon whose title tracks the remaining time and whose
// menu drives the timer.
type Indicator struct {
	timer  *countdown.Timer
	log    *logging.Logger
	events chan countdown.Event
	done   chan struct{}

	statusItem *systray.MenuItem
	startItem  *systray.MenuItem
	pauseItem  *systray.MenuItem
	addItem    *systray.MenuItem
	stopItem   *systray.MenuItem
}

func New(t *countdown.Timer, log *logging.Logger) *Indicator {
	return &Indicator{
		timer:  t,
		log:    log,
		events: make(chan countdown.Event, 64),
		done:   make(chan struct{}),
	}
}

// Run blocks until Quit is chosen from the menu.
func (i *Indicator) Run() {
	i.timer.Subscribe(countdown.Chan(i.events))
	systray.Run(i.onReady, i.onExit)
}

func (i *Indicator) onReady() {
	systray.SetTitle("powernap")

	i.statusItem = systray.AddMenuItem("Ready", "Countdown status")
	i.statusItem.Disable()
	systray.AddSeparator()

	i.startItem = systray.AddMenuItem("Start", "Start or resume the countdown")
	i.pauseItem = systray.AddMenuItem("Pause", "Pause the countdown")
	i.addItem = systray.AddMenuItem("+10 min", "Add ten minutes")
	i.stopItem = systray.AddMenuItem("Stop", "Stop without shutting down")
	systray.AddSeparator()
	quitItem := systray.AddMenuItem("Quit", "Stop the countdown and exit")

	go i.handle(i.startItem, func() {
		if err := i.timer.Start(); err != nil {
			i.log.Warn("tray start: %v", err)
			i.statusItem.SetTitle("Set a time greater than 0.")
		}
	})
	go i.handle(i.pauseItem, func() { i.timer.Pause() })
	go i.handle(i.addItem, func() { i.timer.AddTime() })
	go i.handle(i.stopItem, func() { i.timer.Stop() })
	go func() {
		select {
		case <-quitItem.ClickedCh:
			i.timer.Stop()
			systray.Quit()
		case <-i.done:
		}
	}()

	i.apply(present(i.timer.Snapshot(), nil))
	go i.watch()
}

func (i *Indicator) onExit() {
	close(i.done)
	i.log.Info("tray indicator closed")
}

func (i *Indicator) handle(item *systray.MenuItem, fn func()) {
	for {
		select {
		case <-item.ClickedCh:
			fn()
		case <-i.done:
			return
		}
	}
}

func (i *Indicator) watch() {
	for {
		select {
		case ev := <-i.events:
			var err error
			if ev.Kind == countdown.EventExpired {
				err = ev.Err
			}
			i.apply(present(i.timer.Snapshot(), err))
		case <-i.done:
			return
		}
	}
}

func (i *Indicator) apply(v view) {
	systray.SetIcon(v.icon)
	systray.SetTitle(v.title)
	systray.SetTooltip(v.tooltip)
	i.statusItem.SetTitle(v.status)
	i.startItem.SetTitle(v.startLabel)
	setEnabled(i.startItem, v.canStart)
	setEnabled(i.pauseItem, v.canPause)
	setEnabled(i.stopItem, v.canStop)
	setEnabled(i.addItem, !v.firing)
}

func setEnabled(item *systray.MenuItem, enabled bool) {
	if enabled {
		item.Enable()
	} else {
		item.Disable()
	}
}

// view is everything the tray shows for one snapshot.
type view struct {
	icon       []byte
	title      string
	tooltip    string
	status     string
	startLabel string
	canStart   bool
	canPause   bool
	canStop    bool
	firing     bool
}

// present maps a timer snapshot to what the tray shows. shutdownErr is the
// result of the last trigger, if any.
func present(snap countdown.Snapshot, shutdownErr error) view {
	remaining := countdown.Format(snap.Remaining)
	v := view{
		icon:       iconFor(snap),
		title:      remaining,
		startLabel: "Start",
		firing:     snap.Firing,
	}

	switch {
	case snap.Firing:
		v.status = "Shutting down..."
	case snap.State == countdown.Running:
		v.status = "Timer running..."
		v.canPause = true
		v.canStop = true
	case snap.State == countdown.Paused:
		v.status = "Paused"
		v.startLabel = "Resume"
		v.canStart = snap.Remaining > 0
		v.canStop = true
	default:
		v.status = "Ready"
		v.canStart = snap.Remaining > 0
	}
	if shutdownErr != nil {
		v.status = "Shutdown failed"
	}

	v.tooltip = fmt.Sprintf("powernap - %s (%s)", v.status, remaining)
	return v
}

// Quit closes the tray from outside the menu, e.g. on a signal.
func (i *Indicator) Quit() {
	systray.Quit()
}
