package menu

import (
	"errors"
	"strings"

	"github.com/charmbracelet/x/ansi"
)

var (
	// ErrUnknownAction is returned when a selection key is not registered.
	ErrUnknownAction = errors.New("unknown menu action")
	// ErrNoTarget is returned when an action prefix maps to no remote object.
	ErrNoTarget = errors.New("no remote target for action")
	// ErrNoMenu is returned when a protocol is not exported by the window.
	ErrNoMenu = errors.New("window exports no menu for this protocol")
)

// PathSeparator joins the label chain of an item into its display key.
const PathSeparator = " > "

// Toggle is the checked state of a menu item.
type Toggle int

const (
	ToggleOff Toggle = iota
	ToggleOn
	ToggleRadio
)

func (t Toggle) String() string {
	switch t {
	case ToggleOn:
		return "on"
	case ToggleRadio:
		return "radio"
	default:
		return "off"
	}
}

// Section identifies the org.gtk.Menus group and menu an item came from.
type Section struct {
	Group uint32
	Menu  uint32
}

// ActionID identifies the remote action behind an item. GTK items use the
// qualified action name ("app.open"); dbusmenu items use their numeric id.
type ActionID string

// Prefix returns the namespace of a qualified action ("app" for "app.open").
func (a ActionID) Prefix() string {
	if idx := strings.IndexByte(string(a), '.'); idx > 0 {
		return string(a)[:idx]
	}
	return ""
}

// Name returns the action name without its namespace.
func (a ActionID) Name() string {
	if idx := strings.IndexByte(string(a), '.'); idx >= 0 {
		return string(a)[idx+1:]
	}
	return string(a)
}

// Item is one selectable or grouping entry of a window menu.
type Item struct {
	Label     string
	Action    ActionID
	ID        int32
	Section   Section
	Target    string
	Enabled   bool
	Checked   Toggle
	Separator bool
	Accel     string
	Path      []string
}

// Text returns the display key: the parent labels and the item label joined
// by PathSeparator.
func (i Item) Text() string {
	parts := make([]string, 0, len(i.Path)+1)
	parts = append(parts, i.Path...)
	parts = append(parts, i.Label)
	return strings.Join(parts, PathSeparator)
}

func (i Item) clone() Item {
	if i.Path != nil {
		i.Path = append([]string(nil), i.Path...)
	}
	return i
}

// cleanLabel strips terminal escape sequences and mnemonic underscores; a
// doubled underscore is a literal.
func cleanLabel(label string) string {
	label = ansi.Strip(label)
	if !strings.Contains(label, "_") {
		return label
	}
	var b strings.Builder
	b.Grow(len(label))
	runes := []rune(label)
	for i := 0; i < len(runes); i++ {
		if runes[i] == '_' {
			if i+1 < len(runes) && runes[i+1] == '_' {
				b.WriteRune('_')
				i++
			}
			continue
		}
		b.WriteRune(runes[i])
	}
	return b.String()
}

func appendPath(path []string, label string) []string {
	out := make([]string, 0, len(path)+1)
	out = append(out, path...)
	return append(out, label)
}
