package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sadopc/powernap/internal/countdown"
	"github.com/sadopc/powernap/internal/store"
)

// dashboardModel is the Timer tab: the countdown editor plus today's runs.
type dashboardModel struct {
	store  *store.Store
	timer  timerModel
	bar    progress.Model
	now    time.Time
	width  int
	height int

	today  []store.DailySummary
	recent []store.Countdown
}

func newDashboardModel(s *store.Store, t *countdown.Timer) dashboardModel {
	return dashboardModel{
		store: s,
		timer: newTimerModel(t),
		bar:   progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage()),
		now:   time.Now(),
	}
}

func (d dashboardModel) Init() tea.Cmd {
	return d.loadData()
}

func (d *dashboardModel) setSize(w, h int) {
	d.width = w
	d.height = h
	d.bar.Width = max(w-12, 10)
}

type dashboardDataMsg struct {
	today  []store.DailySummary
	recent []store.Countdown
}

func (d dashboardModel) loadData() tea.Cmd {
	return func() tea.Msg {
		now := time.Now().UTC()
		dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		today, _ := d.store.GetDailySummary(dayStart, dayStart.Add(24*time.Hour))
		recent, _ := d.store.ListCountdowns(store.CountdownFilter{Limit: 5})
		return dashboardDataMsg{today: today, recent: recent}
	}
}

func (d dashboardModel) update(msg tea.Msg) (dashboardModel, tea.Cmd) {
	switch msg := msg.(type) {
	case dashboardDataMsg:
		d.today = msg.today
		d.recent = msg.recent
		return d, nil

	case tickMsg:
		d.now = time.Time(msg)
		return d, nil

	case countdownMsg:
		var cmd tea.Cmd
		d.timer, cmd = d.timer.update(msg)
		switch msg.event.Kind {
		case countdown.EventStarted, countdown.EventStopped, countdown.EventExpired:
			return d, tea.Batch(cmd, d.loadData())
		}
		return d, cmd

	case tea.KeyMsg:
		var cmd tea.Cmd
		d.timer, cmd = d.timer.update(msg)
		return d, cmd
	}
	return d, nil
}

func (d dashboardModel) view() string {
	if d.width < 20 {
		return "Terminal too small"
	}

	contentWidth := d.width - 4

	return lipgloss.JoinVertical(lipgloss.Left,
		d.renderTimerPanel(contentWidth),
		d.renderTodayPanel(contentWidth),
		d.renderRecentPanel(contentWidth),
	)
}

func (d dashboardModel) renderTimerPanel(w int) string {
	snap := d.timer.snap
	hms := countdown.Split(snap.Remaining)

	fields := []string{
		fmt.Sprintf("%02d", hms.H),
		fmt.Sprintf("%02d", hms.M),
		fmt.Sprintf("%02d", hms.S),
	}
	var parts []string
	for i, f := range fields {
		style := fieldStyle
		switch {
		case snap.State == countdown.Running:
			style = runningFieldStyle
		case snap.State == countdown.Paused:
			style = pausedFieldStyle
		}
		if countdown.Field(i) == d.timer.field {
			style = selectedFieldStyle
		}
		parts = append(parts, style.Render(f))
		if i < len(fields)-1 {
			parts = append(parts, mutedStyle.Render(":"))
		}
	}
	clock := lipgloss.JoinHorizontal(lipgloss.Bottom, parts...)

	var indicator string
	switch snap.State {
	case countdown.Running:
		indicator = successStyle.Render("●  RUNNING")
	case countdown.Paused:
		indicator = warningStyle.Render("⏸  PAUSED")
	default:
		indicator = mutedStyle.Render("■  IDLE")
	}
	if snap.Firing {
		indicator = errorStyle.Render("⏻  SHUTTING DOWN")
	}

	status := highlightStyle.Render(d.timer.status)
	if d.timer.failed {
		status = errorStyle.Render(d.timer.status)
	}

	var eta string
	if snap.Remaining > 0 {
		at := d.now.Add(time.Duration(snap.Remaining) * time.Second)
		eta = mutedStyle.Render("Powers off at " + at.Format("15:04:05"))
		if snap.State != countdown.Running {
			eta = mutedStyle.Render("Would power off at " + at.Format("15:04:05"))
		}
	}

	content := lipgloss.JoinVertical(lipgloss.Center,
		lipgloss.PlaceHorizontal(w-6, lipgloss.Center, clock),
		indicator,
		d.bar.ViewAs(d.timer.progress()),
		eta,
		status,
	)
	if d.timer.active() {
		return activePanelStyle.Width(w).Render(content)
	}
	return panelStyle.Width(w).Render(content)
}

func (d dashboardModel) renderTodayPanel(w int) string {
	title := titleStyle.Render("Today")

	var runs, completed, stopped int
	var counted int64
	for _, s := range d.today {
		runs += s.Runs
		completed += s.Completed
		stopped += s.Stopped
		counted += s.CompletedSeconds + s.StoppedSeconds
	}
	if runs == 0 {
		return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left,
			title,
			mutedStyle.Render("No countdowns today"),
		))
	}

	line := fmt.Sprintf("%s  %d runs  %s  %s",
		highlightStyle.Render(formatSeconds(counted)),
		runs,
		successStyle.Render(fmt.Sprintf("%d completed", completed)),
		warningStyle.Render(fmt.Sprintf("%d stopped", stopped)),
	)
	return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, title, line))
}

func (d dashboardModel) renderRecentPanel(w int) string {
	title := titleStyle.Render("Recent Countdowns")
	if len(d.recent) == 0 {
		return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left,
			title,
			mutedStyle.Render("No countdowns yet"),
		))
	}

	var rows []string
	rows = append(rows, title)
	for _, c := range d.recent {
		rows = append(rows, renderRunRow(c))
	}
	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}

func renderRunRow(c store.Countdown) string {
	mark := statusMark(c.Status)
	planned := formatSeconds(int64(c.TotalSeconds()))
	dur := formatSeconds(int64(c.CountedSeconds()))
	if c.Status == store.StatusRunning {
		dur = "running"
	}
	return fmt.Sprintf("  %s %s  %-10s %s / %s",
		mark, c.StartedAt.Local().Format("Jan 02 15:04"), c.Status, dur, planned)
}

func statusMark(status string) string {
	switch status {
	case store.StatusCompleted:
		return successStyle.Render("✓")
	case store.StatusStopped:
		return warningStyle.Render("■")
	case store.StatusFailed:
		return errorStyle.Render("✗")
	case store.StatusRunning:
		return highlightStyle.Render("●")
	}
	return mutedStyle.Render("?")
}
