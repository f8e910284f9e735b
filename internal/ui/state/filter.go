package state

import (
	"sort"
	"strings"
	"unicode"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// SetFilter updates the filter query and cursor position. A non-empty query
// moves the cursor to the best match; clearing it restores the cursor held
// before filtering started.
func (l *Level) SetFilter(query string, cursor int) {
	trimmed := strings.TrimSpace(query)
	prevTrimmed := strings.TrimSpace(l.Filter)
	l.Filter = query
	l.FilterCursor = clamp(cursor, 0, len([]rune(query)))
	if trimmed != "" && prevTrimmed == "" {
		l.LastCursor = l.Cursor
	}
	l.applyFilter()
	switch {
	case trimmed != "":
		l.Cursor = 0
		l.ViewportOffset = 0
	case prevTrimmed != "":
		if l.LastCursor >= 0 && l.LastCursor < len(l.Items) {
			l.Cursor = l.LastCursor
		}
		l.LastCursor = -1
	}
}

func (l *Level) applyFilter() {
	l.Items = FilterEntries(l.Full, l.Filter)
	if len(l.Items) == 0 {
		l.Cursor = 0
		l.ViewportOffset = 0
		return
	}
	l.Cursor = clamp(l.Cursor, 0, len(l.Items)-1)
	if l.ViewportOffset > len(l.Items)-1 {
		l.ViewportOffset = 0
	}
}

// FilterCursorPos returns the rune offset of the filter cursor.
func (l *Level) FilterCursorPos() int {
	return clamp(l.FilterCursor, 0, len([]rune(l.Filter)))
}

// InsertFilterText inserts text into the filter at the cursor position.
func (l *Level) InsertFilterText(text string) bool {
	insert := []rune(text)
	if len(insert) == 0 {
		return false
	}
	runes := []rune(l.Filter)
	pos := l.FilterCursorPos()
	updated := make([]rune, 0, len(runes)+len(insert))
	updated = append(updated, runes[:pos]...)
	updated = append(updated, insert...)
	updated = append(updated, runes[pos:]...)
	l.SetFilter(string(updated), pos+len(insert))
	return true
}

// DeleteFilterRuneBackward deletes the rune before the filter cursor.
func (l *Level) DeleteFilterRuneBackward() bool {
	runes := []rune(l.Filter)
	pos := l.FilterCursorPos()
	if pos == 0 {
		return false
	}
	updated := append(runes[:pos-1:pos-1], runes[pos:]...)
	l.SetFilter(string(updated), pos-1)
	return true
}

// DeleteFilterWordBackward deletes the word preceding the filter cursor.
func (l *Level) DeleteFilterWordBackward() bool {
	runes := []rune(l.Filter)
	pos := l.FilterCursorPos()
	if pos == 0 {
		return false
	}
	i := wordStart(runes, pos)
	updated := append(runes[:i:i], runes[pos:]...)
	l.SetFilter(string(updated), i)
	return true
}

// MoveFilterCursor moves the filter cursor by delta runes.
func (l *Level) MoveFilterCursor(delta int) bool {
	pos := l.FilterCursorPos()
	next := clamp(pos+delta, 0, len([]rune(l.Filter)))
	if next == pos {
		return false
	}
	l.FilterCursor = next
	return true
}

// MoveFilterCursorStart moves the filter cursor to the start of the query.
func (l *Level) MoveFilterCursorStart() bool {
	return l.MoveFilterCursor(-l.FilterCursorPos())
}

// MoveFilterCursorEnd moves the filter cursor to the end of the query.
func (l *Level) MoveFilterCursorEnd() bool {
	return l.MoveFilterCursor(len([]rune(l.Filter)) - l.FilterCursorPos())
}

// MoveFilterCursorWordBackward moves the filter cursor to the previous word start.
func (l *Level) MoveFilterCursorWordBackward() bool {
	pos := l.FilterCursorPos()
	return l.MoveFilterCursor(wordStart([]rune(l.Filter), pos) - pos)
}

// MoveFilterCursorWordForward moves the filter cursor past the next word.
func (l *Level) MoveFilterCursorWordForward() bool {
	runes := []rune(l.Filter)
	pos := l.FilterCursorPos()
	i := pos
	for i < len(runes) && !unicode.IsSpace(runes[i]) {
		i++
	}
	for i < len(runes) && unicode.IsSpace(runes[i]) {
		i++
	}
	return l.MoveFilterCursor(i - pos)
}

func wordStart(runes []rune, pos int) int {
	i := pos
	for i > 0 && unicode.IsSpace(runes[i-1]) {
		i--
	}
	for i > 0 && !unicode.IsSpace(runes[i-1]) {
		i--
	}
	return i
}

// FilterEntries returns the entries matching query, best match first. Fuzzy
// matches are ranked by distance; when nothing matches fuzzily, entries whose
// accelerator contains the query are returned in their original order.
func FilterEntries(entries []Entry, query string) []Entry {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return CloneEntries(entries)
	}
	labels := make([]string, len(entries))
	for i, entry := range entries {
		labels[i] = entry.Label
	}
	ranks := fuzzy.RankFindNormalizedFold(trimmed, labels)
	if len(ranks) > 0 {
		sort.SliceStable(ranks, func(i, j int) bool {
			if ranks[i].Distance != ranks[j].Distance {
				return ranks[i].Distance < ranks[j].Distance
			}
			return ranks[i].OriginalIndex < ranks[j].OriginalIndex
		})
		out := make([]Entry, 0, len(ranks))
		for _, rank := range ranks {
			out = append(out, entries[rank.OriginalIndex])
		}
		return out
	}
	lower := strings.ToLower(trimmed)
	out := make([]Entry, 0, len(entries))
	for _, entry := range entries {
		if entry.Accel != "" && strings.Contains(strings.ToLower(entry.Accel), lower) {
			out = append(out, entry)
		}
	}
	return out
}
