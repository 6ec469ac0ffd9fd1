package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Column widths.
const (
	colMarker = 2 // "▶ "
	colClass  = 16
	colRID    = 12
)

func (m Model) renderList() string {
	innerWidth := max(m.width-4, 20)
	colFields := max(innerWidth-colMarker-colClass-colRID-2, 10)

	title := fmt.Sprintf(" %d documents ", len(m.docs))

	border := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		Width(innerWidth)

	maxRows := max(m.height-6, 3)
	start := 0
	if len(m.docs) > maxRows {
		start = max(m.cursor-maxRows/2, 0)
		if start+maxRows > len(m.docs) {
			start = len(m.docs) - maxRows
		}
	}
	end := min(start+maxRows, len(m.docs))

	header := fmt.Sprintf("  %-*s %-*s %s",
		colClass, "Class",
		colRID, "RID",
		"Fields",
	)

	var rows []string
	rows = append(rows, lipgloss.NewStyle().Bold(true).Render(header))
	for i := start; i < end; i++ {
		doc := m.docs[i]
		marker := "  "
		if i == m.cursor {
			marker = "▶ "
		}

		rid := "-"
		if doc.RID != nil {
			rid = doc.RID.String()
		}

		var fields []string
		for _, f := range doc.Fields {
			fields = append(fields, f.Name+"="+truncate(formatValue(f.Value), 24))
		}
		summary := truncate(strings.Join(fields, ", "), colFields)

		row := fmt.Sprintf("%s%-*s %-*s %s",
			marker,
			colClass, padRight(classOrSchemaless(doc.Class), colClass),
			colRID, rid,
			summary,
		)
		if i == m.cursor {
			row = lipgloss.NewStyle().Reverse(true).Render(row)
		}
		rows = append(rows, row)
	}

	return border.Render(title + "\n" + strings.Join(rows, "\n"))
}

func (m Model) renderInspector() string {
	if m.cursor >= len(m.docs) {
		return "no document selected"
	}
	doc := m.docs[m.cursor]

	var b strings.Builder
	rid := "-"
	if doc.RID != nil {
		rid = doc.RID.String()
	}
	fmt.Fprintf(&b, "%s  %s  v%d\n\n", classOrSchemaless(doc.Class), rid, doc.Version)

	width := max(m.width-4, 20)
	for _, f := range doc.Fields {
		line := fmt.Sprintf("%-*s %s", padWidth(width), f.Name+":", formatValue(f.Value))
		fmt.Fprintln(&b, line)
	}

	lines := strings.Split(strings.TrimRight(b.String(), "\n"), "\n")
	maxRows := max(m.height-3, 3)
	if m.inspectScroll > max(len(lines)-maxRows, 0) {
		m.inspectScroll = max(len(lines)-maxRows, 0)
	}
	start := min(m.inspectScroll, max(len(lines)-1, 0))
	end := min(start+maxRows, len(lines))

	return strings.Join(lines[start:end], "\n")
}

func padWidth(width int) int {
	if width > 24 {
		return 24
	}
	return width
}
