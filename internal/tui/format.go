package tui

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/mickamy/orientgo/record"
)

func padRight(s string, width int) string {
	w := lipgloss.Width(s)
	if w >= width {
		return s
	}
	return s + strings.Repeat(" ", width-w)
}

func padLeft(s string, width int) string {
	w := lipgloss.Width(s)
	if w >= width {
		return s
	}
	return strings.Repeat(" ", width-w) + s
}

var reSpaces = regexp.MustCompile(`\s+`)

func truncate(s string, maxLen int) string {
	s = strings.TrimSpace(reSpaces.ReplaceAllString(s, " "))
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 1 {
		return s[:maxLen]
	}
	return s[:maxLen-1] + "…"
}

// renderInputWithCursor renders a text input with a block cursor at the
// given rune position.
func renderInputWithCursor(text string, cursorPos int) string {
	runes := []rune(text)
	if cursorPos >= len(runes) {
		return text + "█"
	}
	return string(runes[:cursorPos]) + "█" + string(runes[cursorPos:])
}

func friendlyError(err error, width int) string {
	msg := err.Error()

	var text string
	switch {
	case strings.Contains(msg, "connection refused"),
		strings.Contains(msg, "EOF"):
		text = "Could not reach the OrientDB server.\n" +
			"Is it listening on the configured host and port?\n\n" +
			"Error: " + msg
	}
	if text == "" {
		text = "Error: " + msg
	}

	return lipgloss.NewStyle().Width(width).Render(text)
}

// formatValue renders a single record field value for a single-line list
// cell. Nested documents and collections are summarized rather than
// expanded; renderInspector shows the same one-line summaries and does not
// expand them either.
func formatValue(v record.Value) string {
	switch v.Kind {
	case record.KindNull:
		return "null"
	case record.KindBool:
		return strconv.FormatBool(v.Bool)
	case record.KindInt32:
		return strconv.FormatInt(int64(v.Int32), 10)
	case record.KindInt64:
		return strconv.FormatInt(v.Int64, 10)
	case record.KindFloat:
		return strconv.FormatFloat(float64(v.Float32), 'g', -1, 32)
	case record.KindDouble:
		return strconv.FormatFloat(v.Float64, 'g', -1, 64)
	case record.KindDecimal:
		return v.Decimal.String()
	case record.KindString:
		return v.Str
	case record.KindBytes:
		return strconv.Itoa(len(v.Bytes)) + " bytes"
	case record.KindDocument:
		if v.Doc == nil {
			return "<embedded: null>"
		}
		return "<embedded " + classOrSchemaless(v.Doc.Class) + ">"
	case record.KindList:
		return "[list, " + strconv.Itoa(len(v.List)) + " items]"
	case record.KindSet:
		return "[set, " + strconv.Itoa(len(v.Set)) + " items]"
	case record.KindMap:
		return "{map, " + strconv.Itoa(len(v.Map)) + " entries}"
	case record.KindLink:
		return v.Link.String()
	case record.KindLinkList:
		return "[linklist, " + strconv.Itoa(len(v.Links)) + " items]"
	case record.KindLinkSet:
		return "[linkset, " + strconv.Itoa(len(v.Links)) + " items]"
	case record.KindLinkMap:
		return "{linkmap, " + strconv.Itoa(len(v.LinkMap)) + " entries}"
	case record.KindDateTime:
		return v.Time.Format("2006-01-02 15:04:05.000")
	case record.KindDate:
		return v.Time.Format("2006-01-02")
	}
	return v.Kind.String()
}

func classOrSchemaless(class string) string {
	if class == "" {
		return "schemaless"
	}
	return class
}
