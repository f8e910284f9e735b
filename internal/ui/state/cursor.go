package state

// Move shifts the cursor by delta rows, wrapping around either end.
func (l *Level) Move(delta int) bool {
	n := len(l.Items)
	if n == 0 {
		l.Cursor = 0
		return false
	}
	old := l.Cursor
	l.Cursor = ((l.Cursor+delta)%n + n) % n
	return old != l.Cursor
}

// MoveCursorHome moves the cursor to the first entry.
func (l *Level) MoveCursorHome() bool {
	return l.moveCursorTo(0)
}

// MoveCursorEnd moves the cursor to the last entry.
func (l *Level) MoveCursorEnd() bool {
	return l.moveCursorTo(len(l.Items) - 1)
}

// MoveCursorPageUp moves the cursor up by one page without wrapping.
func (l *Level) MoveCursorPageUp(maxVisible int) bool {
	return l.moveCursorTo(l.Cursor - l.pageSize(maxVisible))
}

// MoveCursorPageDown moves the cursor down by one page without wrapping.
func (l *Level) MoveCursorPageDown(maxVisible int) bool {
	return l.moveCursorTo(l.Cursor + l.pageSize(maxVisible))
}

func (l *Level) moveCursorTo(idx int) bool {
	if len(l.Items) == 0 {
		l.Cursor = 0
		return false
	}
	old := l.Cursor
	l.Cursor = clamp(idx, 0, len(l.Items)-1)
	return old != l.Cursor
}

func (l *Level) pageSize(maxVisible int) int {
	total := len(l.Items)
	if maxVisible <= 0 || maxVisible > total {
		maxVisible = total
	}
	if maxVisible < 1 {
		return 1
	}
	return maxVisible
}

// EnsureCursorVisible adjusts the viewport offset so the cursor stays on screen.
func (l *Level) EnsureCursorVisible(maxVisible int) {
	if len(l.Items) == 0 {
		l.Cursor = 0
		l.ViewportOffset = 0
		return
	}
	l.Cursor = clamp(l.Cursor, 0, len(l.Items)-1)
	if maxVisible <= 0 {
		l.ViewportOffset = 0
		return
	}
	maxOffset := len(l.Items) - maxVisible
	if maxOffset < 0 {
		maxOffset = 0
	}
	l.ViewportOffset = clamp(l.ViewportOffset, 0, maxOffset)
	if l.Cursor < l.ViewportOffset {
		l.ViewportOffset = l.Cursor
	}
	if l.Cursor > l.ViewportOffset+maxVisible-1 {
		l.ViewportOffset = clamp(l.Cursor-maxVisible+1, 0, maxOffset)
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
