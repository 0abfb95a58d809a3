package tui

import (
	_ "embed"
	"os"
	"path/filepath"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
)

//go:embed help.txt
var defaultHelp string

const helpFileName = "help.txt"

// loadHelpText prefers help.txt in dir and falls back to the built-in page.
func loadHelpText(dir string) string {
	if dir != "" {
		if data, err := os.ReadFile(filepath.Join(dir, helpFileName)); err == nil && len(data) > 0 {
			return string(data)
		}
	}
	return defaultHelp
}

type helpModel struct {
	text     string
	viewport viewport.Model
}

func newHelpModel(dir string) helpModel {
	text := loadHelpText(dir)
	vp := viewport.New(60, 20)
	vp.SetContent(text)
	return helpModel{text: text, viewport: vp}
}

func (h *helpModel) setSize(w, height int) {
	h.viewport.Width = max(w-8, 20)
	h.viewport.Height = max(height-4, 5)
	h.viewport.SetContent(h.text)
}

func (h helpModel) update(msg tea.Msg) (helpModel, tea.Cmd) {
	var cmd tea.Cmd
	h.viewport, cmd = h.viewport.Update(msg)
	return h, cmd
}

func (h helpModel) view() string {
	return panelStyle.Width(h.viewport.Width + 4).Render(h.viewport.View())
}
