package state

// Level holds the list state of the HUD: the full entry set, the filtered
// view, the cursor and the viewport.
type Level struct {
	Title          string
	Items          []Entry
	Full           []Entry
	Filter         string
	FilterCursor   int
	Cursor         int
	LastCursor     int
	ViewportOffset int
}

// NewLevel constructs a Level over entries with the cursor on the first row.
func NewLevel(title string, entries []Entry) *Level {
	l := &Level{
		Title:      title,
		LastCursor: -1,
	}
	l.UpdateItems(entries)
	return l
}

// IndexOf returns the filtered index of the entry with the given id.
func (l *Level) IndexOf(id string) int {
	if id == "" {
		return -1
	}
	for i, item := range l.Items {
		if item.ID == id {
			return i
		}
	}
	return -1
}

// Current returns the entry under the cursor.
func (l *Level) Current() (Entry, bool) {
	if l.Cursor < 0 || l.Cursor >= len(l.Items) {
		return Entry{}, false
	}
	return l.Items[l.Cursor], true
}

// UpdateItems replaces the entry set, keeping the cursor on the same entry
// when it survives the update.
func (l *Level) UpdateItems(entries []Entry) {
	var keep string
	if current, ok := l.Current(); ok {
		keep = current.ID
	}
	prevOffset := l.ViewportOffset
	l.Full = CloneEntries(entries)
	l.applyFilter()
	if idx := l.IndexOf(keep); idx >= 0 {
		l.Cursor = idx
	}
	if len(l.Items) == 0 || prevOffset < 0 || prevOffset > len(l.Items)-1 {
		l.ViewportOffset = 0
		return
	}
	l.ViewportOffset = prevOffset
}
