package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Adaptive color definitions for light/dark terminal support
var (
	colorGreen = lipgloss.AdaptiveColor{Light: "#006400", Dark: "#00ff00"}
	colorRed   = lipgloss.AdaptiveColor{Light: "#8b0000", Dark: "#ff0000"}
	colorGray  = lipgloss.AdaptiveColor{Light: "#555555", Dark: "#888888"}
	colorCyan  = lipgloss.AdaptiveColor{Light: "#008b8b", Dark: "#00ffff"}
)

// Style definitions
var (
	styleTabActive = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorCyan).
			Padding(0, 1).
			Border(lipgloss.NormalBorder(), false, false, true, false).
			BorderForeground(colorCyan)

	styleTab = lipgloss.NewStyle().
			Foreground(colorGray).
			Padding(0, 1)

	styleSuccess = lipgloss.NewStyle().
			Foreground(colorGreen)

	styleError = lipgloss.NewStyle().
			Foreground(colorRed)

	styleSubtle = lipgloss.NewStyle().
			Foreground(colorGray)
)

const helpText = "tab/←/→: table • j/k: scroll • y: copy CSV • q: quit"

// renderMain renders the tab bar, the active table and the status bar
func (m Model) renderMain() string {
	return lipgloss.JoinVertical(
		lipgloss.Left,
		m.renderTabs(),
		m.viewport.View(),
		m.renderStatusBar(),
	)
}

func (m Model) renderTabs() string {
	tabs := make([]string, 0, len(m.tables))
	for i, t := range m.tables {
		label := fmt.Sprintf("%d %s", i+1, t.Title)
		if i == m.active {
			tabs = append(tabs, styleTabActive.Render(label))
		} else {
			tabs = append(tabs, styleTab.Render(label))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Bottom, tabs...)
}

func (m Model) renderStatusBar() string {
	var parts []string
	switch {
	case m.errorMsg != "":
		parts = append(parts, styleError.Render(m.errorMsg))
	case m.statusMsg != "":
		parts = append(parts, styleSuccess.Render(m.statusMsg))
	case m.source != "":
		parts = append(parts, styleSubtle.Render(m.source))
	}

	parts = append(parts, styleSubtle.Render(fmt.Sprintf("%3.f%%", m.viewport.ScrollPercent()*100)))
	parts = append(parts, styleSubtle.Render(helpText))
	return strings.Join(parts, "  ")
}
