package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/NimbleMarkets/ntcharts/barchart"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sadopc/powernap/internal/store"
)

const historyDays = 7

type historyModel struct {
	store  *store.Store
	width  int
	height int

	summaries []store.DailySummary
	runs      []store.Countdown
	offset    int // 7-day blocks back from today (0 = current)

	chart barchart.Model
}

func newHistoryModel(s *store.Store) historyModel {
	return historyModel{
		store: s,
		chart: barchart.New(60, 12),
	}
}

func (h *historyModel) setSize(w, height int) {
	h.width = w
	h.height = height
}

type historyDataMsg struct {
	summaries []store.DailySummary
	runs      []store.Countdown
}

func (h historyModel) refresh() tea.Cmd {
	return func() tea.Msg {
		from, to := h.dateRange()
		summaries, _ := h.store.GetDailySummary(from, to)
		runs, _ := h.store.ListCountdowns(store.CountdownFilter{From: &from, To: &to, Limit: 8})
		return historyDataMsg{summaries: summaries, runs: runs}
	}
}

func (h historyModel) dateRange() (time.Time, time.Time) {
	now := time.Now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	end := today.AddDate(0, 0, 1-historyDays*h.offset)
	return end.AddDate(0, 0, -historyDays), end
}

func (h historyModel) update(msg tea.Msg) (historyModel, tea.Cmd) {
	switch msg := msg.(type) {
	case historyDataMsg:
		h.summaries = msg.summaries
		h.runs = msg.runs
		h.buildChart()
		return h, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Left):
			h.offset++
			return h, h.refresh()
		case key.Matches(msg, keys.Right):
			if h.offset > 0 {
				h.offset--
			}
			return h, h.refresh()
		case key.Matches(msg, keys.Export):
			return h, func() tea.Msg { return exportRequestMsg{} }
		}
	}
	return h, nil
}

func (h *historyModel) buildChart() {
	chartWidth := h.width - 8
	if chartWidth < 20 {
		chartWidth = 20
	}
	chartHeight := 10
	if h.height > 30 {
		chartHeight = 14
	}

	h.chart = barchart.New(chartWidth, chartHeight)

	byDate := make(map[string]store.DailySummary, len(h.summaries))
	for _, s := range h.summaries {
		byDate[s.Date] = s
	}

	completedStyle := lipgloss.NewStyle().Foreground(colorSuccess)
	stoppedStyle := lipgloss.NewStyle().Foreground(colorWarning)

	from, to := h.dateRange()
	var bars []barchart.BarData
	for d := from; d.Before(to); d = d.AddDate(0, 0, 1) {
		s := byDate[d.Format("2006-01-02")]
		bars = append(bars, barchart.BarData{
			Label: d.Format("Mon 02"),
			Values: []barchart.BarValue{
				{Name: "completed", Value: float64(s.CompletedSeconds) / 3600.0, Style: completedStyle},
				{Name: "stopped", Value: float64(s.StoppedSeconds) / 3600.0, Style: stoppedStyle},
			},
		})
	}

	h.chart.PushAll(bars)
	h.chart.Draw()
}

func (h historyModel) view() string {
	w := h.width - 4

	from, to := h.dateRange()
	dateLabel := mutedStyle.Render(fmt.Sprintf("%s - %s", from.Format("Jan 02"), to.Add(-24*time.Hour).Format("Jan 02, 2006")))

	header := lipgloss.JoinHorizontal(lipgloss.Bottom,
		titleStyle.Render("History"), "  ", dateLabel, "  ", h.renderTotals(),
	)

	legend := fmt.Sprintf("  %s completed  %s stopped",
		successStyle.Render("●"), warningStyle.Render("●"))

	nav := mutedStyle.Render("  ←/→: navigate  e: export")

	return panelStyle.Width(w).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			header, "", h.chart.View(), "", legend, "", h.renderRunsTable(w), "", nav,
		),
	)
}

func (h historyModel) renderTotals() string {
	var completed, stopped int64
	for _, s := range h.summaries {
		completed += s.CompletedSeconds
		stopped += s.StoppedSeconds
	}
	return highlightStyle.Render(formatHours(completed+stopped)) +
		mutedStyle.Render(fmt.Sprintf(" (%s completed)", formatHours(completed)))
}

func (h historyModel) renderRunsTable(w int) string {
	if len(h.runs) == 0 {
		return mutedStyle.Render("  No countdowns in this period")
	}

	var rows []string
	rows = append(rows, mutedStyle.Render(fmt.Sprintf("  %-14s %-10s %10s %10s %7s", "Started", "Status", "Counted", "Planned", "Pauses")))
	rows = append(rows, mutedStyle.Render("  "+strings.Repeat("─", min(w-6, 56))))

	for _, c := range h.runs {
		rows = append(rows, fmt.Sprintf("  %-14s %s %-8s %10s %10s %7d",
			c.StartedAt.Local().Format("Jan 02 15:04"),
			statusMark(c.Status),
			c.Status,
			formatSeconds(int64(c.CountedSeconds())),
			formatSeconds(int64(c.TotalSeconds())),
			c.Pauses,
		))
		if c.ShutdownError != "" {
			rows = append(rows, errorStyle.Render("    "+c.ShutdownError))
		}
	}
	return strings.Join(rows, "\n")
}
