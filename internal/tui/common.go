package tui

import (
	"fmt"
	"time"

	"github.com/sadopc/powernap/internal/countdown"
)

// viewState represents the currently active view.
type viewState int

const (
	viewTimer viewState = iota
	viewHistory
	viewSettings
	viewHelp
)

var viewNames = []string{"Timer", "History", "Settings", "Help"}

// --- Messages ---

// countdownMsg carries one event from the countdown goroutine.
type countdownMsg struct {
	event countdown.Event
}

type statusMsg struct {
	text    string
	isError bool
}

type tickMsg time.Time

// exportRequestMsg asks the app to open the export picker.
type exportRequestMsg struct{}

type exportDoneMsg struct {
	path string
}

type settingsSavedMsg struct{}

// --- Helpers ---

func formatDuration(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

func formatSeconds(secs int64) string {
	return formatDuration(time.Duration(secs) * time.Second)
}

func formatHours(secs int64) string {
	h := float64(secs) / 3600
	return fmt.Sprintf("%.1fh", h)
}
