package tui

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/sadopc/powernap/internal/config"
	"github.com/sadopc/powernap/internal/countdown"
	"github.com/sadopc/powernap/internal/export"
	"github.com/sadopc/powernap/internal/logging"
	"github.com/sadopc/powernap/internal/store"
)

// eventBuffer is the capacity of the channel feeding countdown events to
// the UI. Events beyond it are dropped; the view re-reads the timer anyway.
const eventBuffer = 64

// Options wires the UI to the running application.
type Options struct {
	Timer      *countdown.Timer
	Store      *store.Store
	Config     *config.Config
	ConfigPath string
	Log        *logging.Logger
	// DryRun keeps the dry-run trigger when settings are saved.
	DryRun bool
}

// App is the root Bubble Tea model.
type App struct {
	timer  *countdown.Timer
	store  *store.Store
	cfg    *config.Config
	log    *logging.Logger
	events chan countdown.Event
	width  int
	height int

	activeView    viewState
	showHelp      bool
	exportPicking bool
	exportCursor  int

	quitForm    *huh.Form
	quitConfirm *bool

	dashboard dashboardModel
	history   historyModel
	settings  settingsModel
	manual    helpModel

	help   help.Model
	status string
}

func NewApp(opts Options) App {
	h := help.New()
	h.ShowAll = false

	if opts.Log == nil {
		opts.Log = logging.Discard()
	}
	if opts.Config == nil {
		opts.Config = config.DefaultConfig()
	}

	events := make(chan countdown.Event, eventBuffer)
	opts.Timer.Subscribe(countdown.Chan(events))

	confirm := false
	return App{
		timer:       opts.Timer,
		store:       opts.Store,
		cfg:         opts.Config,
		log:         opts.Log,
		events:      events,
		activeView:  viewTimer,
		quitConfirm: &confirm,
		dashboard:   newDashboardModel(opts.Store, opts.Timer),
		history:     newHistoryModel(opts.Store),
		settings:    newSettingsModel(opts),
		manual:      newHelpModel(configDir(opts.ConfigPath)),
		help:        h,
	}
}

func configDir(path string) string {
	if path == "" {
		return ""
	}
	return filepath.Dir(path)
}

func (a App) Init() tea.Cmd {
	return tea.Batch(
		a.dashboard.Init(),
		tickCmd(),
		waitForEvent(a.events),
	)
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// waitForEvent blocks on the next countdown event.
func waitForEvent(ch <-chan countdown.Event) tea.Cmd {
	return func() tea.Msg {
		return countdownMsg{event: <-ch}
	}
}

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.help.Width = msg.Width
		contentHeight := a.height - 4 // header + footer
		a.dashboard.setSize(a.width, contentHeight)
		a.history.setSize(a.width, contentHeight)
		a.settings.setSize(a.width, contentHeight)
		a.manual.setSize(a.width, contentHeight)
		return a, nil

	case countdownMsg:
		var cmd tea.Cmd
		a.dashboard, cmd = a.dashboard.update(msg)
		cmds := []tea.Cmd{cmd, waitForEvent(a.events)}
		if a.activeView == viewHistory {
			switch msg.event.Kind {
			case countdown.EventStopped, countdown.EventExpired:
				cmds = append(cmds, a.history.refresh())
			}
		}
		return a, tea.Batch(cmds...)

	case tickMsg:
		var cmd tea.Cmd
		a.dashboard, cmd = a.dashboard.update(msg)
		return a, tea.Batch(cmd, tickCmd())

	case statusMsg:
		a.status = msg.text
		if msg.isError {
			a.log.Warn("%s", msg.text)
		}
		return a, nil

	case settingsSavedMsg:
		a.status = "Settings saved"
		return a, nil

	case exportRequestMsg:
		a.exportPicking = true
		a.exportCursor = 0
		return a, nil

	case exportDoneMsg:
		a.status = "Exported to " + msg.path
		a.exportPicking = false
		return a, nil
	}

	if a.quitForm != nil {
		return a.updateQuitForm(msg)
	}

	if msg, ok := msg.(tea.KeyMsg); ok {
		if a.exportPicking {
			return a.updateExportPicker(msg)
		}

		// If a child view is capturing input (e.g. form), delegate first.
		if a.isFormActive() {
			return a.updateActiveView(msg)
		}

		switch {
		case key.Matches(msg, keys.Quit):
			return a.requestQuit()
		case key.Matches(msg, keys.Help):
			a.showHelp = !a.showHelp
			a.help.ShowAll = a.showHelp
			return a, nil
		case key.Matches(msg, keys.Tab1):
			a.activeView = viewTimer
			return a, a.dashboard.loadData()
		case key.Matches(msg, keys.Tab2):
			a.activeView = viewHistory
			return a, a.history.refresh()
		case key.Matches(msg, keys.Tab3):
			a.activeView = viewSettings
			return a, nil
		case key.Matches(msg, keys.Tab4), key.Matches(msg, keys.Manual):
			a.activeView = viewHelp
			return a, nil
		case key.Matches(msg, keys.Tab):
			a.activeView = (a.activeView + 1) % viewState(len(viewNames))
			return a, a.refreshCurrentView()
		}
	}

	return a.updateActiveView(msg)
}

func (a App) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch a.activeView {
	case viewTimer:
		a.dashboard, cmd = a.dashboard.update(msg)
	case viewHistory:
		a.history, cmd = a.history.update(msg)
	case viewSettings:
		a.settings, cmd = a.settings.update(msg)
	case viewHelp:
		a.manual, cmd = a.manual.update(msg)
	}
	return a, cmd
}

func (a App) isFormActive() bool {
	return a.activeView == viewSettings && a.settings.formActive
}

func (a App) refreshCurrentView() tea.Cmd {
	switch a.activeView {
	case viewTimer:
		return a.dashboard.loadData()
	case viewHistory:
		return a.history.refresh()
	}
	return nil
}

// requestQuit quits at once unless a countdown is active and confirm_quit is
// set, in which case it asks first.
func (a App) requestQuit() (tea.Model, tea.Cmd) {
	if !a.cfg.ConfirmQuit || a.timer.State() == countdown.Idle {
		return a.quit()
	}

	*a.quitConfirm = false
	a.quitForm = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Timer is running. Quit anyway?").
				Affirmative("Quit").
				Negative("Keep running").
				Value(a.quitConfirm),
		),
	).WithShowHelp(false).WithWidth(60)
	return a, a.quitForm.Init()
}

func (a App) updateQuitForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok && key.Matches(msg, keys.Back) {
		a.quitForm = nil
		return a, nil
	}

	form, cmd := a.quitForm.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		a.quitForm = f
	}

	switch a.quitForm.State {
	case huh.StateCompleted:
		a.quitForm = nil
		if *a.quitConfirm {
			return a.quit()
		}
		return a, nil
	case huh.StateAborted:
		a.quitForm = nil
		return a, nil
	}
	return a, cmd
}

// quit stops any active countdown so leaving never powers the machine off.
func (a App) quit() (tea.Model, tea.Cmd) {
	if a.timer.Stop() {
		a.log.Info("countdown stopped on quit")
	}
	return a, tea.Quit
}

func (a App) View() string {
	if a.width == 0 {
		return "Loading..."
	}

	header := a.renderHeader()
	footer := a.renderFooter()

	var content string
	switch a.activeView {
	case viewTimer:
		content = a.dashboard.view()
	case viewHistory:
		content = a.history.view()
	case viewSettings:
		content = a.settings.view()
	case viewHelp:
		content = a.manual.view()
	}

	headerHeight := lipgloss.Height(header)
	footerHeight := lipgloss.Height(footer)
	contentHeight := a.height - headerHeight - footerHeight
	if contentHeight < 1 {
		contentHeight = 1
	}

	switch {
	case a.quitForm != nil:
		content = activePanelStyle.Width(a.width - 4).Render(a.quitForm.View())
	case a.exportPicking:
		content = a.renderExportPicker()
	}

	content = lipgloss.NewStyle().
		Width(a.width).
		Height(contentHeight).
		Render(content)

	return lipgloss.JoinVertical(lipgloss.Left, header, content, footer)
}

func (a App) renderHeader() string {
	var tabs []string
	for i, name := range viewNames {
		if viewState(i) == a.activeView {
			tabs = append(tabs, activeTabStyle.Render(name))
		} else {
			tabs = append(tabs, inactiveTabStyle.Render(name))
		}
	}

	tabRow := lipgloss.JoinHorizontal(lipgloss.Bottom, tabs...)

	title := lipgloss.NewStyle().Bold(true).Foreground(colorPrimary).Render("powernap")
	gap := a.width - lipgloss.Width(title) - lipgloss.Width(tabRow) - 4
	if gap < 1 {
		gap = 1
	}
	spacer := lipgloss.NewStyle().Width(gap).Render("")

	return headerStyle.Render(
		lipgloss.JoinHorizontal(lipgloss.Bottom, title, spacer, tabRow),
	)
}

func (a App) renderFooter() string {
	helpView := a.help.View(keys)

	status := ""
	if a.status != "" {
		status = mutedStyle.Render(" " + a.status)
	}

	// Countdown indicator in footer, visible from every tab.
	timerInfo := ""
	snap := a.dashboard.timer.snap
	switch snap.State {
	case countdown.Running:
		timerInfo = successStyle.Render(" ● " + countdown.Format(snap.Remaining))
	case countdown.Paused:
		timerInfo = warningStyle.Render(" ⏸ " + countdown.Format(snap.Remaining))
	}

	left := footerStyle.Render(helpView)
	right := timerInfo + status

	gap := a.width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if gap < 1 {
		gap = 1
	}
	spacer := lipgloss.NewStyle().Width(gap).Render("")

	return lipgloss.JoinHorizontal(lipgloss.Bottom, left, spacer, right)
}

var exportFormats = []string{"CSV", "JSON"}

func (a App) renderExportPicker() string {
	var rows []string
	rows = append(rows, titleStyle.Render("Export History"), "")
	for i, f := range exportFormats {
		cursor := "  "
		style := normalItemStyle
		if i == a.exportCursor {
			cursor = "> "
			style = selectedItemStyle
		}
		rows = append(rows, style.Render(cursor+f))
	}
	rows = append(rows, "", mutedStyle.Render("  enter: export  esc: cancel"))

	return activePanelStyle.Width(a.width - 4).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (a App) updateExportPicker(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Up):
		if a.exportCursor > 0 {
			a.exportCursor--
		}
	case key.Matches(msg, keys.Down):
		if a.exportCursor < len(exportFormats)-1 {
			a.exportCursor++
		}
	case key.Matches(msg, keys.Enter):
		a.exportPicking = false
		return a, a.doExport(a.exportCursor)
	case key.Matches(msg, keys.Back):
		a.exportPicking = false
	}
	return a, nil
}

func (a App) doExport(format int) tea.Cmd {
	return func() tea.Msg {
		runs, err := a.store.ListCountdowns(store.CountdownFilter{})
		if err != nil {
			return statusMsg{text: fmt.Sprintf("Export error: %v", err), isError: true}
		}

		now := time.Now()
		var path string
		if format == 0 {
			path = export.DefaultPath("csv", now)
			if err := export.ToCSV(runs, path); err != nil {
				return statusMsg{text: fmt.Sprintf("CSV error: %v", err), isError: true}
			}
		} else {
			path = export.DefaultPath("json", now)
			if err := export.ToJSON(runs, path); err != nil {
				return statusMsg{text: fmt.Sprintf("JSON error: %v", err), isError: true}
			}
		}

		a.log.Info("exported %d runs to %s", len(runs), path)
		return exportDoneMsg{path: path}
	}
}
