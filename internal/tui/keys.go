package tui

import (
	tea "github.com/charmbracelet/bubbletea"
)

// handleKeyPress handles viewer keys; unhandled keys scroll the viewport
func (m *Model) handleKeyPress(msg tea.KeyMsg) (tea.Cmd, bool) {
	switch msg.String() {
	case "ctrl+c", "q", "esc":
		return tea.Quit, true

	case "tab", "right", "l":
		m.selectTable(m.active + 1)
		return nil, true

	case "shift+tab", "left", "h":
		m.selectTable(m.active - 1)
		return nil, true

	case "1", "2", "3", "4", "5", "6", "7", "8", "9":
		index := int(msg.String()[0] - '1')
		if index < len(m.tables) {
			m.selectTable(index)
		}
		return nil, true

	case "y":
		return m.copyToClipboard(), true
	}
	return nil, false
}

// selectTable activates table i, wrapping around at both ends
func (m *Model) selectTable(i int) {
	n := len(m.tables)
	if n == 0 {
		return
	}
	m.active = ((i % n) + n) % n
	m.statusMsg = ""
	m.errorMsg = ""
	m.updateContent()
}
