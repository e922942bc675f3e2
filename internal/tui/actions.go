package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/studiowebux/loadreport/internal/report"
)

// copyToClipboard copies the active table as CSV
func (m *Model) copyToClipboard() tea.Cmd {
	t, ok := m.current()
	copyFn := m.copyFn
	return func() tea.Msg {
		if !ok {
			return errorMsg("No table to copy")
		}

		data, err := report.EncodeCSV(t)
		if err != nil {
			return errorMsg(fmt.Sprintf("Failed to encode table: %v", err))
		}
		if err := copyFn(string(data)); err != nil {
			return errorMsg(fmt.Sprintf("Failed to copy to clipboard: %v", err))
		}
		return statusMsg(fmt.Sprintf("%s copied to clipboard as CSV", t.Title))
	}
}
