package state

// Entry is one selectable row of the HUD.
type Entry struct {
	// ID is the display key handed back to the menu model on activation.
	ID       string
	Label    string
	Accel    string
	Mark     string
	Disabled bool
}

// CloneEntries produces a shallow copy of the provided entries.
func CloneEntries(entries []Entry) []Entry {
	dup := make([]Entry, len(entries))
	copy(dup, entries)
	return dup
}
