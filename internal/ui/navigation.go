package ui

import (
	"fmt"

	"github.com/atomicstack/menu-hud/internal/logging/events"
	"github.com/atomicstack/menu-hud/internal/ui/command"
	tea "github.com/charmbracelet/bubbletea"
)

func (m *Model) handleEscapeKey() tea.Cmd {
	if m.level.Filter != "" {
		before := m.level.FilterCursorPos()
		m.level.SetFilter("", 0)
		m.filterEdited(before)
		events.Filter.Cleared()
		return nil
	}
	events.UI.Cancel()
	return tea.Quit
}

func (m *Model) handleEnterKey() tea.Cmd {
	if m.loading {
		return nil
	}
	entry, ok := m.level.Current()
	if !ok {
		return nil
	}
	events.UI.Enter(entry.ID, m.level.Filter)
	if entry.Disabled {
		m.setInfo(fmt.Sprintf("%s is disabled", entry.Label))
		return nil
	}
	m.loading = true
	m.pendingKey = entry.ID
	m.pendingLabel = entry.Label
	m.errMsg = ""
	m.forceClearInfo()
	return m.bus.Execute(m.ctx, command.Request{Key: entry.ID, Label: entry.Label, Run: m.source.Activate})
}

func (m *Model) moveCursor(delta int) {
	if m.level.Move(delta) {
		events.UI.Cursor(m.level.Cursor)
	}
	m.syncViewport(m.level)
}

func (m *Model) moveCursorWith(move func() bool) {
	if move() {
		events.UI.Cursor(m.level.Cursor)
	}
	m.syncViewport(m.level)
}

func (m *Model) syncViewport(l *level) {
	if l == nil {
		return
	}
	l.EnsureCursorVisible(m.maxVisibleItems())
}

func (m *Model) handleKeyMsg(msg tea.Msg) tea.Cmd {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return nil
	}
	if keyMsg.String() == "ctrl+c" {
		events.UI.Cancel()
		return tea.Quit
	}
	if m.handleTextInput(keyMsg) {
		return nil
	}
	switch keyMsg.String() {
	case "esc":
		return m.handleEscapeKey()
	case "enter":
		return m.handleEnterKey()
	case "up", "ctrl+p":
		m.moveCursor(-1)
	case "down", "ctrl+n":
		m.moveCursor(1)
	case "pgup":
		m.moveCursorWith(func() bool { return m.level.MoveCursorPageUp(m.maxVisibleItems()) })
	case "pgdown":
		m.moveCursorWith(func() bool { return m.level.MoveCursorPageDown(m.maxVisibleItems()) })
	case "home":
		m.moveCursorWith(m.level.MoveCursorHome)
	case "end":
		m.moveCursorWith(m.level.MoveCursorEnd)
	}
	return nil
}
