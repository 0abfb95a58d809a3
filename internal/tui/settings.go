package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/sadopc/powernap/internal/config"
	"github.com/sadopc/powernap/internal/countdown"
	"github.com/sadopc/powernap/internal/logging"
	"github.com/sadopc/powernap/internal/shutdown"
)

type settingsModel struct {
	cfg    *config.Config
	path   string
	timer  *countdown.Timer
	log    *logging.Logger
	dryRun bool
	width  int
	height int

	formActive bool
	form       *huh.Form

	// Form values as pointers (survive value copies)
	defaultDuration *string
	method          *string
	confirmQuit     *bool
}

func newSettingsModel(opts Options) settingsModel {
	dd, m, cq := "", "", false
	return settingsModel{
		cfg:             opts.Config,
		path:            opts.ConfigPath,
		timer:           opts.Timer,
		log:             opts.Log,
		dryRun:          opts.DryRun,
		defaultDuration: &dd,
		method:          &m,
		confirmQuit:     &cq,
	}
}

func (s *settingsModel) setSize(w, h int) {
	s.width = w
	s.height = h
}

func (s settingsModel) update(msg tea.Msg) (settingsModel, tea.Cmd) {
	if s.formActive && s.form != nil {
		return s.updateForm(msg)
	}

	if msg, ok := msg.(tea.KeyMsg); ok && key.Matches(msg, keys.Enter) {
		return s.showForm()
	}
	return s, nil
}

func (s settingsModel) showForm() (settingsModel, tea.Cmd) {
	*s.defaultDuration = formatConfigDuration(s.cfg.DefaultDuration)
	*s.method = s.cfg.Shutdown.Method
	*s.confirmQuit = s.cfg.ConfirmQuit

	methodOptions := make([]huh.Option[string], len(shutdown.Methods))
	for i, m := range shutdown.Methods {
		methodOptions[i] = huh.NewOption(m, m)
	}

	s.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Default duration").
				Description("e.g. 2h, 45m, 1h30m (max 5h)").
				Value(s.defaultDuration).
				Validate(validateDuration),
			huh.NewSelect[string]().Title("Shutdown method").
				Options(methodOptions...).
				Value(s.method),
			huh.NewConfirm().
				Title("Confirm before quitting a running timer").
				Value(s.confirmQuit),
		).Title("Settings"),
	).WithShowHelp(true).WithShowErrors(true)

	s.formActive = true
	return s, s.form.Init()
}

func (s settingsModel) updateForm(msg tea.Msg) (settingsModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		if msg.String() == "esc" {
			s.formActive = false
			s.form = nil
			return s, nil
		}
	}

	form, cmd := s.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		s.form = f
	}

	switch s.form.State {
	case huh.StateCompleted:
		s.formActive = false
		s.form = nil
		return s, s.save()
	case huh.StateAborted:
		s.formActive = false
		s.form = nil
		return s, nil
	}

	return s, cmd
}

// save applies the form values to the config, writes the file and swaps the
// live shutdown trigger.
func (s settingsModel) save() tea.Cmd {
	d, err := parseDuration(*s.defaultDuration)
	if err != nil {
		return statusCmd(fmt.Sprintf("Invalid duration: %v", err), true)
	}
	s.cfg.DefaultDuration = d
	s.cfg.Shutdown.Method = *s.method
	s.cfg.ConfirmQuit = *s.confirmQuit

	if err := applyTrigger(s.cfg, s.timer, s.log, s.dryRun); err != nil {
		return statusCmd(fmt.Sprintf("Shutdown method: %v", err), true)
	}
	if err := s.cfg.Save(s.path); err != nil {
		s.log.Error("save config: %v", err)
		return statusCmd(fmt.Sprintf("Save error: %v", err), true)
	}
	s.log.Info("settings saved: duration=%s method=%s confirm_quit=%t", d, s.cfg.Shutdown.Method, s.cfg.ConfirmQuit)
	return func() tea.Msg { return settingsSavedMsg{} }
}

func applyTrigger(cfg *config.Config, t *countdown.Timer, log *logging.Logger, dryRun bool) error {
	method := cfg.Shutdown.Method
	if dryRun {
		method = shutdown.MethodDryRun
	}
	trigger, err := shutdown.New(method, cfg.Shutdown.Command, log)
	if err != nil {
		return err
	}
	t.SetTrigger(trigger)
	return nil
}

func (s settingsModel) view() string {
	w := s.width - 4
	title := titleStyle.Render("Settings")

	if s.formActive && s.form != nil {
		return panelStyle.Width(w).Render(
			lipgloss.JoinVertical(lipgloss.Left, title, "", s.form.View()),
		)
	}

	method := s.cfg.Shutdown.Method
	if s.dryRun {
		method += " (dry-run forced by flag)"
	}
	command := "platform default"
	if len(s.cfg.Shutdown.Command) > 0 {
		command = strings.Join(s.cfg.Shutdown.Command, " ")
	}

	settings := [][2]string{
		{"default_duration", formatConfigDuration(s.cfg.DefaultDuration)},
		{"shutdown.method", method},
		{"shutdown.command", command},
		{"confirm_quit", fmt.Sprintf("%t", s.cfg.ConfirmQuit)},
		{"log_level", s.cfg.LogLevel},
		{"config file", s.path},
	}

	var rows []string
	rows = append(rows, title, "")
	for _, kv := range settings {
		label := lipgloss.NewStyle().Width(24).Render(kv[0])
		rows = append(rows, fmt.Sprintf("  %s %s", label, highlightStyle.Render(kv[1])))
	}
	rows = append(rows, "", mutedStyle.Render("Press enter to edit settings"))

	return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func statusCmd(text string, isError bool) tea.Cmd {
	return func() tea.Msg { return statusMsg{text: text, isError: isError} }
}

// formatConfigDuration renders durations the way users type them: 2h, 1h30m.
func formatConfigDuration(d time.Duration) string {
	s := d.String()
	if strings.HasSuffix(s, "m0s") {
		s = strings.TrimSuffix(s, "0s")
	}
	if strings.HasSuffix(s, "h0m") {
		s = strings.TrimSuffix(s, "0m")
	}
	return s
}

func parseDuration(s string) (time.Duration, error) {
	d, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("must be greater than 0")
	}
	if d > config.MaxDefaultDuration {
		return 0, fmt.Errorf("maximum is %s", formatConfigDuration(config.MaxDefaultDuration))
	}
	return d.Truncate(time.Second), nil
}

func validateDuration(s string) error {
	_, err := parseDuration(s)
	return err
}
