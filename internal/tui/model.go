package tui

import (
	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/studiowebux/loadreport/internal/report"
)

// Layout rows outside the viewport: tab bar, blank line, status bar
const chromeHeight = 3

// Message types
type statusMsg string
type errorMsg string

// Model is the table viewer state
type Model struct {
	tables   []report.Table
	active   int
	source   string
	viewport viewport.Model
	width    int
	height   int
	ready    bool

	statusMsg string
	errorMsg  string

	// copyFn writes text to the clipboard
	copyFn func(string) error
}

// New creates a viewer for the given tables; source is shown in the status bar
func New(tables []report.Table, source string) Model {
	return Model{
		tables: tables,
		source: source,
		copyFn: clipboard.WriteAll,
	}
}

// Run starts the viewer in the alternate screen and blocks until it quits
func Run(tables []report.Table, source string) error {
	p := tea.NewProgram(New(tables, source), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// Init implements tea.Model
func (m Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		height := max(1, msg.Height-chromeHeight)
		if !m.ready {
			m.viewport = viewport.New(msg.Width, height)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = height
		}
		m.updateContent()
		return m, nil

	case statusMsg:
		m.statusMsg = string(msg)
		m.errorMsg = ""
		return m, nil

	case errorMsg:
		m.errorMsg = string(msg)
		m.statusMsg = ""
		return m, nil

	case tea.KeyMsg:
		if cmd, handled := m.handleKeyPress(msg); handled {
			return m, cmd
		}
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// View implements tea.Model
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	return m.renderMain()
}

// current returns the table on display
func (m Model) current() (report.Table, bool) {
	if len(m.tables) == 0 {
		return report.Table{}, false
	}
	return m.tables[m.active], true
}

// updateContent renders the active table into the viewport
func (m *Model) updateContent() {
	if !m.ready {
		return
	}
	t, ok := m.current()
	if !ok {
		m.viewport.SetContent("No tables")
		return
	}
	m.viewport.SetContent(report.RenderTable(t))
	m.viewport.GotoTop()
}
