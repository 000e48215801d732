package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/flashtoggle/flashtoggle/internal/search"
)

var (
	headerStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Background(lipgloss.Color("62")).Padding(0, 1)
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("15")).Background(lipgloss.Color("237")).Bold(true)
	titleStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	processStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	tagStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	desktopStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("99"))
	minimizedMark = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Render("▁")
	statusStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	errStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	helpStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// View implements tea.Model.
func (m model) View() string {
	var b strings.Builder

	b.WriteString(headerStyle.Render("flashtoggle"))
	b.WriteString(" ")
	b.WriteString(processStyle.Render(fmt.Sprintf("%d windows", len(m.results))))
	b.WriteString("\n\n")

	if m.editing {
		b.WriteString(m.tags.View())
	} else {
		b.WriteString(m.query.View())
	}
	b.WriteString("\n\n")

	rows := m.visibleRows()
	start := 0
	if m.cursor >= rows {
		start = m.cursor - rows + 1
	}
	for i := start; i < len(m.results) && i < start+rows; i++ {
		b.WriteString(m.renderRow(m.results[i], i == m.cursor))
		b.WriteString("\n")
	}
	if len(m.results) == 0 {
		b.WriteString(processStyle.Render("  no matching windows"))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	switch {
	case m.err != nil:
		b.WriteString(errStyle.Render("Error: " + m.err.Error()))
	case m.status != "":
		b.WriteString(statusStyle.Render(m.status))
	case m.editing:
		b.WriteString(helpStyle.Render("enter save · esc cancel"))
	default:
		b.WriteString(helpStyle.Render("↑/↓ select · enter activate · ctrl+t tags · esc quit"))
	}
	return b.String()
}

func (m model) visibleRows() int {
	// header, blank, input, blank, blank, footer
	rows := m.height - 6
	if m.height == 0 || rows > len(m.results) {
		rows = len(m.results)
	}
	if rows < 1 {
		rows = 1
	}
	return rows
}

func (m model) renderRow(res search.Result, selected bool) string {
	parts := []string{titleStyle.Render(res.Title)}
	if m.opts.Display.ShowProcess {
		parts = append(parts, processStyle.Render(res.ProcessName))
	}
	if res.Tags != "" {
		parts = append(parts, tagStyle.Render("#"+strings.Join(strings.Fields(res.Tags), " #")))
	}
	if m.opts.Display.ShowDesktop && res.DesktopID != "" {
		parts = append(parts, desktopStyle.Render(shortDesktop(res.DesktopID)))
	}
	if res.IsMinimized {
		parts = append(parts, minimizedMark)
	}

	line := strings.Join(parts, "  ")
	if m.width > 0 {
		line = lipgloss.NewStyle().MaxWidth(m.width - 2).Render(line)
	}
	if selected {
		return selectedStyle.Render("▸ ") + line
	}
	return "  " + line
}

// shortDesktop abbreviates a desktop GUID to its first group.
func shortDesktop(id string) string {
	id = strings.Trim(id, "{}")
	if i := strings.IndexByte(id, '-'); i > 0 {
		return "desk:" + id[:i]
	}
	return "desk:" + id
}
