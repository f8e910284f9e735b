package ui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/truncate"
)

const footerHint = "↑/↓ move  enter activate  ctrl+u clear  esc back  ctrl+c quit"

type styledLine struct {
	text          string
	style         *lipgloss.Style
	prefixStyle   *lipgloss.Style
	highlightFrom int
	// suffix is rendered flush right with suffixStyle.
	suffix      string
	suffixStyle *lipgloss.Style
}

// View implements tea.Model.
func (m *Model) View() string {
	lines := make([]styledLine, 0, 16)
	lines = append(lines, m.headerLine(m.width))

	current := m.level
	m.syncViewport(current)
	start := 0
	displayItems := current.Items
	if maxItems := m.maxVisibleItems(); maxItems > 0 && len(displayItems) > maxItems {
		start = current.ViewportOffset
		if start+maxItems > len(displayItems) {
			start = len(displayItems) - maxItems
			current.ViewportOffset = start
		}
		displayItems = displayItems[start : start+maxItems]
	}
	switch {
	case len(current.Full) == 0:
		lines = append(lines, styledLine{text: "(no entries)", style: styles.Info})
	case len(current.Items) == 0:
		lines = append(lines, styledLine{text: fmt.Sprintf("No matches for %q", current.Filter), style: styles.Info})
	default:
		for i := range displayItems {
			lines = append(lines, m.buildItemLine(start+i, m.width))
		}
	}
	if m.loading {
		lines = append(lines, styledLine{})
		lines = append(lines, styledLine{text: fmt.Sprintf("Activating %s…", m.pendingLabel), style: styles.Loading})
	} else if info := m.currentInfo(); info != "" {
		lines = append(lines, styledLine{})
		lines = append(lines, styledLine{text: info, style: styles.Info})
	}
	if m.showFooter {
		lines = append(lines, styledLine{})
		lines = append(lines, styledLine{text: footerHint, style: styles.Footer})
	}
	lines = limitHeight(lines, m.height-2, m.width)
	lines = applyWidth(lines, m.width)

	var statusLine styledLine
	if m.errMsg != "" {
		statusLine = styledLine{text: fmt.Sprintf("Error: %s", m.errMsg), style: styles.Error}
	}
	bottom := applyWidth([]styledLine{statusLine}, m.width)
	lines = append(lines, bottom...)
	return renderLines(lines) + "\n" + m.promptLine()
}

func (m *Model) promptLine() string {
	prompt := m.filterPrompt()
	if m.width > 0 && lipgloss.Width(prompt) > m.width {
		prompt = truncate.StringWithTail(prompt, uint(m.width), "…")
	}
	return prompt
}

// headerLine shows the title with the top-level menu names flush right. The
// names are dropped when they would not leave room for the title.
func (m *Model) headerLine(width int) styledLine {
	line := styledLine{text: m.title, style: styles.Header}
	if len(m.categories) == 0 {
		return line
	}
	suffix := "  " + strings.Join(m.categories, " · ")
	if width > 0 {
		room := width - lipgloss.Width(suffix)
		if room < lipgloss.Width(m.title) {
			return line
		}
		line.text += strings.Repeat(" ", room-lipgloss.Width(m.title))
	}
	line.suffix = suffix
	line.suffixStyle = styles.Footer
	return line
}

// buildItemLine constructs the row for the entry at idx. When width is known
// the accelerator is right-aligned and the row padded so the selected
// background spans the full line.
func (m *Model) buildItemLine(idx, width int) styledLine {
	current := m.level
	entry := current.Items[idx]
	indicator := "▌"
	lineStyle := styles.Item
	indicatorStyle := styles.ItemIndicator
	if entry.Disabled {
		lineStyle = styles.DisabledItem
	}
	if idx == current.Cursor {
		indicatorStyle = styles.SelectedItemIndicator
		lineStyle = styles.SelectedItem
	}
	mark := entry.Mark
	if mark == "" {
		mark = " "
	}
	text := indicator + " " + mark + " " + entry.Label
	suffix := ""
	if entry.Accel != "" {
		suffix = "  " + entry.Accel
	}
	if width > 0 {
		room := width - lipgloss.Width(suffix)
		if room < 4 {
			suffix = ""
			room = width
		}
		text = truncateText(text, room)
		if pad := room - lipgloss.Width(text); pad > 0 {
			text += strings.Repeat(" ", pad)
		}
	}
	return styledLine{
		text:          text,
		style:         lineStyle,
		prefixStyle:   indicatorStyle,
		highlightFrom: 1,
		suffix:        suffix,
		suffixStyle:   styles.Accel,
	}
}

func (m *Model) handleWindowSizeMsg(msg tea.Msg) tea.Cmd {
	resize, ok := msg.(tea.WindowSizeMsg)
	if !ok {
		return nil
	}
	if !m.fixedWidth {
		m.width = resize.Width
	}
	if !m.fixedHeight {
		m.height = resize.Height
	}
	m.syncViewport(m.level)
	return nil
}

func (m *Model) maxVisibleItems() int {
	if m.height <= 0 {
		return -1
	}
	used := 3 // header, status line and filter prompt
	if m.loading || m.currentInfo() != "" {
		used += 2
	}
	if m.showFooter {
		used += 2
	}
	remain := m.height - used
	if remain < 1 {
		return 1
	}
	return remain
}

func (m *Model) setInfo(message string) {
	m.infoMsg = message
	m.infoExpire = time.Now().Add(5 * time.Second)
}

func (m *Model) forceClearInfo() {
	m.infoMsg = ""
	m.infoExpire = time.Time{}
}

func (m *Model) currentInfo() string {
	if m.infoMsg != "" && !m.infoExpire.IsZero() && time.Now().After(m.infoExpire) {
		m.infoMsg = ""
		m.infoExpire = time.Time{}
	}
	return m.infoMsg
}

func limitHeight(lines []styledLine, height, width int) []styledLine {
	if height <= 0 || len(lines) <= height {
		return lines
	}
	if height == 1 {
		return []styledLine{{text: truncateText("…", width)}}
	}
	trimmed := make([]styledLine, 0, height)
	trimmed = append(trimmed, lines[:height-1]...)
	trimmed = append(trimmed, styledLine{text: truncateText("…", width)})
	return trimmed
}

func applyWidth(lines []styledLine, width int) []styledLine {
	if width <= 0 {
		return lines
	}
	result := make([]styledLine, len(lines))
	for i, line := range lines {
		line.text = truncateText(line.text, width-lipgloss.Width(line.suffix))
		result[i] = line
	}
	return result
}

func renderLines(lines []styledLine) string {
	out := make([]string, len(lines))
	for i, line := range lines {
		text := line.text
		runes := []rune(text)
		if line.highlightFrom > 0 && line.highlightFrom < len(runes) {
			head := string(runes[:line.highlightFrom])
			tail := string(runes[line.highlightFrom:])
			if line.prefixStyle != nil {
				head = line.prefixStyle.Render(head)
			}
			if line.style != nil {
				tail = line.style.Render(tail)
			}
			text = head + tail
		} else if line.style != nil {
			text = line.style.Render(text)
		}
		if line.suffix != "" {
			suffix := line.suffix
			if line.suffixStyle != nil {
				suffix = line.suffixStyle.Render(suffix)
			}
			text += suffix
		}
		out[i] = text
	}
	return strings.Join(out, "\n")
}

func truncateText(text string, width int) string {
	if width <= 0 {
		return text
	}
	if lipgloss.Width(text) <= width {
		return text
	}
	return truncate.StringWithTail(text, uint(width), "…")
}
