package ui

import (
	"unicode"

	"github.com/atomicstack/menu-hud/internal/logging/events"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const filterPlaceholder = "(type to search)"

func (m *Model) updateFilterCursorModel(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	m.filterCursor, cmd = m.filterCursor.Update(msg)
	return cmd
}

func (m *Model) noteFilterCursorChange(before int) {
	if before != m.level.FilterCursorPos() {
		m.filterCursorDirty = true
	}
}

// handleTextInput applies filter editing keys. It reports whether the key
// was consumed.
func (m *Model) handleTextInput(msg tea.KeyMsg) bool {
	if m.loading {
		return false
	}
	current := m.level
	switch msg.String() {
	case "ctrl+u":
		if current.Filter == "" {
			return false
		}
		before := current.FilterCursorPos()
		current.SetFilter("", 0)
		m.filterEdited(before)
		events.Filter.Cleared()
		return true
	case "ctrl+w":
		before := current.FilterCursorPos()
		if !current.DeleteFilterWordBackward() {
			return false
		}
		m.filterEdited(before)
		return true
	case "ctrl+a":
		return m.moveFilterCursor(current.MoveFilterCursorStart)
	case "ctrl+e":
		return m.moveFilterCursor(current.MoveFilterCursorEnd)
	case "alt+b":
		return m.moveFilterCursor(current.MoveFilterCursorWordBackward)
	case "alt+f":
		return m.moveFilterCursor(current.MoveFilterCursorWordForward)
	}
	switch msg.Type {
	case tea.KeyBackspace, tea.KeyCtrlH:
		return m.removeFilterRune()
	case tea.KeyRunes:
		if msg.Alt || len(msg.Runes) == 0 {
			return false
		}
		for _, r := range msg.Runes {
			if unicode.IsControl(r) {
				return false
			}
		}
		return m.appendToFilter(string(msg.Runes))
	case tea.KeySpace:
		return m.appendToFilter(" ")
	case tea.KeyLeft:
		return m.moveFilterCursor(func() bool { return current.MoveFilterCursor(-1) })
	case tea.KeyRight:
		return m.moveFilterCursor(func() bool { return current.MoveFilterCursor(1) })
	}
	return false
}

func (m *Model) moveFilterCursor(move func() bool) bool {
	before := m.level.FilterCursorPos()
	if !move() {
		return false
	}
	m.noteFilterCursorChange(before)
	events.Filter.Cursor(m.level.FilterCursor)
	return true
}

func (m *Model) appendToFilter(text string) bool {
	if text == "" {
		return false
	}
	before := m.level.FilterCursorPos()
	if !m.level.InsertFilterText(text) {
		return false
	}
	m.filterEdited(before)
	return true
}

func (m *Model) removeFilterRune() bool {
	before := m.level.FilterCursorPos()
	if !m.level.DeleteFilterRuneBackward() {
		return false
	}
	m.filterEdited(before)
	return true
}

func (m *Model) filterEdited(before int) {
	m.noteFilterCursorChange(before)
	m.forceClearInfo()
	m.errMsg = ""
	events.Filter.Changed(m.level.Filter, len(m.level.Items))
	m.syncViewport(m.level)
}

func (m *Model) filterPrompt() string {
	render := func(style *lipgloss.Style, value string) string {
		if style == nil || value == "" {
			return value
		}
		return style.Render(value)
	}
	if styles.Cursor != nil {
		m.filterCursor.Style = styles.Cursor.Copy()
	}
	if styles.Filter != nil {
		m.filterCursor.TextStyle = styles.Filter.Copy()
	} else {
		m.filterCursor.TextStyle = lipgloss.Style{}
	}
	prompt := "» "
	if styles.FilterPrompt != nil {
		prompt = styles.FilterPrompt.Render(prompt)
	}
	text := m.level.Filter
	if text == "" {
		runes := []rune(filterPlaceholder)
		if styles.FilterPlaceholder != nil {
			m.filterCursor.TextStyle = styles.FilterPlaceholder.Copy()
		}
		caret := m.renderFilterCursor(string(runes[0]))
		return prompt + caret + render(styles.FilterPlaceholder, string(runes[1:]))
	}
	runes := []rune(text)
	pos := m.level.FilterCursorPos()
	before := render(styles.Filter, string(runes[:pos]))
	caretRune := " "
	after := ""
	if pos < len(runes) {
		caretRune = string(runes[pos])
		after = render(styles.Filter, string(runes[pos+1:]))
	}
	return prompt + before + m.renderFilterCursor(caretRune) + after
}

func (m *Model) renderFilterCursor(char string) string {
	if char == "" {
		char = " "
	}
	m.filterCursor.SetChar(char)

	base := m.filterCursor.TextStyle.Copy().Inline(true)
	if m.filterCursor.Blink {
		return base.Render(char)
	}
	if styles.Cursor != nil {
		cursorStyle := styles.Cursor.Copy().Inline(true)
		return base.Inherit(cursorStyle).Blink(false).Render(char)
	}
	return base.Reverse(true).Render(char)
}
