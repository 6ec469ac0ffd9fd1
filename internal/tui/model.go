// Package tui implements the interactive OrientDB session browser: a
// Bubble Tea model that connects to a database, runs SQL commands, and lets
// the user browse the returned documents.
package tui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/mickamy/orientgo"
	"github.com/mickamy/orientgo/clipboard"
	"github.com/mickamy/orientgo/highlight"
	"github.com/mickamy/orientgo/internal/query"
	"github.com/mickamy/orientgo/proto"
	"github.com/mickamy/orientgo/record"
)

type viewMode int

const (
	viewPrompt viewMode = iota
	viewList
	viewInspect
)

// Model is the Bubble Tea model for the orient-cli session browser.
type Model struct {
	cfg  orientgo.Config
	conn *orientgo.Connection

	width, height int
	err           error
	view          viewMode

	input       string
	inputCursor int
	history     []string

	docs   []*record.Document
	cursor int

	inspectScroll int
}

// New creates a Model that will connect using cfg once the program starts.
func New(cfg orientgo.Config) Model {
	return Model{cfg: cfg}
}

type connectedMsg struct{ conn *orientgo.Connection }
type errMsg struct{ err error }
type resultMsg struct{ docs []*record.Document }

func (m Model) Init() tea.Cmd {
	return connect(m.cfg)
}

func connect(cfg orientgo.Config) tea.Cmd {
	return func() tea.Msg {
		conn, err := orientgo.Dial(context.Background(), cfg)
		if err != nil {
			return errMsg{err: fmt.Errorf("connect: %w", err)}
		}
		return connectedMsg{conn: conn}
	}
}

func runCommand(conn *orientgo.Connection, sql string) tea.Cmd {
	return func() tea.Msg {
		docs, err := conn.Command(context.Background(), proto.CommandQuery, []byte(sql))
		if err != nil {
			return errMsg{err: err}
		}
		return resultMsg{docs: docs}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case connectedMsg:
		m.conn = msg.conn
		m.err = nil
		return m, nil

	case resultMsg:
		m.err = nil
		m.docs = msg.docs
		m.cursor = 0
		m.view = viewList
		return m, nil

	case errMsg:
		m.err = msg.err
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case viewPrompt:
			return m.updatePrompt(msg)
		case viewList:
			return m.updateList(msg)
		case viewInspect:
			return m.updateInspect(msg)
		}
	}
	return m, nil
}

func (m Model) updatePrompt(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		if m.conn != nil {
			m.conn.Stop()
		}
		return m, tea.Quit
	case "enter":
		sql := strings.TrimSpace(m.input)
		if sql == "" {
			return m, nil
		}
		m.history = append(m.history, sql)
		m.input = ""
		m.inputCursor = 0
		if m.conn == nil {
			m.err = fmt.Errorf("not connected yet")
			return m, nil
		}
		return m, runCommand(m.conn, sql)
	case "backspace":
		if m.inputCursor > 0 {
			runes := []rune(m.input)
			m.input = string(runes[:m.inputCursor-1]) + string(runes[m.inputCursor:])
			m.inputCursor--
		}
		return m, nil
	case "left":
		if m.inputCursor > 0 {
			m.inputCursor--
		}
		return m, nil
	case "right":
		if m.inputCursor < len([]rune(m.input)) {
			m.inputCursor++
		}
		return m, nil
	}
	if msg.Type == tea.KeyRunes {
		runes := []rune(m.input)
		m.input = string(runes[:m.inputCursor]) + string(msg.Runes) + string(runes[m.inputCursor:])
		m.inputCursor += len(msg.Runes)
	}
	return m, nil
}

func (m Model) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "esc":
		m.view = viewPrompt
		return m, nil
	case "j", "down":
		if m.cursor < len(m.docs)-1 {
			m.cursor++
		}
		return m, nil
	case "k", "up":
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil
	case "enter":
		if len(m.docs) > 0 {
			m.view = viewInspect
			m.inspectScroll = 0
		}
		return m, nil
	}
	return m, nil
}

func (m Model) updateInspect(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "esc":
		m.view = viewList
		return m, nil
	case "j", "down":
		m.inspectScroll++
		return m, nil
	case "k", "up":
		if m.inspectScroll > 0 {
			m.inspectScroll--
		}
		return m, nil
	case "c":
		return m, copyRID(m.currentDoc())
	}
	return m, nil
}

// currentDoc returns the document under the cursor, or nil if none.
func (m Model) currentDoc() *record.Document {
	if m.cursor < 0 || m.cursor >= len(m.docs) {
		return nil
	}
	return m.docs[m.cursor]
}

// copyRID copies a document's RID to the system clipboard. Failures are
// surfaced as the usual errMsg rather than crashing the program.
func copyRID(doc *record.Document) tea.Cmd {
	return func() tea.Msg {
		if doc == nil || doc.RID == nil {
			return nil
		}
		if err := clipboard.Copy(context.Background(), doc.RID.String()); err != nil {
			return errMsg{err: fmt.Errorf("copy rid: %w", err)}
		}
		return nil
	}
}

func (m Model) View() string {
	if m.width == 0 {
		return ""
	}
	if m.err != nil {
		return friendlyError(m.err, m.width) + "\n" + m.renderPrompt()
	}

	switch m.view {
	case viewInspect:
		return m.renderInspector() + "\n" + m.inspectFooter()
	case viewList:
		return m.renderList() + "\n" + m.footer()
	default:
		status := "connecting…"
		if m.conn != nil {
			status = "connected, " + m.conn.State().String()
		}
		return status + "\n" + m.renderPrompt() + "\n" + m.footer()
	}
}

func (m Model) renderPrompt() string {
	return "> " + highlight.SQL(renderInputWithCursor(m.input, m.inputCursor))
}

func (m Model) footer() string {
	items := []string{"enter: run query", "j/k: navigate", "esc: back", "q: quit"}
	return lipgloss.NewStyle().Faint(true).Render(strings.Join(items, "  "))
}

func (m Model) inspectFooter() string {
	items := []string{"j/k: scroll", "c: copy rid", "esc: back", "q: quit"}
	return lipgloss.NewStyle().Faint(true).Render(strings.Join(items, "  "))
}

// normalizedHistory exposes the session's query history normalized for
// display, deduplicating structurally identical queries.
func (m Model) normalizedHistory() []string {
	seen := make(map[string]bool, len(m.history))
	out := make([]string, 0, len(m.history))
	for _, sql := range m.history {
		n := query.Normalize(sql)
		if seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}
