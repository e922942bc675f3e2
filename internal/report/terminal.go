package report

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// Adaptive colors for light/dark terminals
var (
	colorCyan = lipgloss.AdaptiveColor{Light: "#008b8b", Dark: "#00ffff"}
	colorGray = lipgloss.AdaptiveColor{Light: "#555555", Dark: "#888888"}
)

var (
	styleTitle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorCyan)

	styleSubtle = lipgloss.NewStyle().
			Foreground(colorGray)

	styleHeader = lipgloss.NewStyle().
			Bold(true).
			Padding(0, 1)

	styleCell = lipgloss.NewStyle().
			Padding(0, 1)
)

// RenderTable renders a table with box borders for the terminal
func RenderTable(t Table) string {
	rows := make([][]string, len(t.Rows))
	for i, row := range t.Rows {
		rendered := make([]string, len(row))
		for j, cell := range row {
			if cell == "" {
				cell = "-"
			}
			rendered[j] = cell
		}
		rows[i] = rendered
	}

	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(styleSubtle).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return styleHeader
			}
			if col > 0 {
				return styleCell.Align(lipgloss.Right)
			}
			return styleCell
		}).
		Headers(t.Header...).
		Rows(rows...).
		String()
}

// Print writes every table with its title and, when set, the file it was saved to
func Print(w io.Writer, tables []Table, savedTo map[string]string) {
	for _, t := range tables {
		fmt.Fprintln(w, styleTitle.Render(t.Title))
		fmt.Fprintln(w, RenderTable(t))
		if path, ok := savedTo[t.File]; ok {
			fmt.Fprintln(w, styleSubtle.Render("Saved to "+path))
		}
		fmt.Fprintln(w)
	}
}
