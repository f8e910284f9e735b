package menu

import (
	"strings"

	"github.com/godbus/dbus/v5"
)

// gtkGroupCount is the number of menu groups subscribed through Start/End.
const gtkGroupCount = 1024

// menuGroup is one element of the org.gtk.Menus.Start reply, a(uuaa{sv}).
type menuGroup struct {
	Group uint32
	Menu  uint32
	Items []map[string]dbus.Variant
}

// menuChange is one element of the org.gtk.Menus.Changed signal, a(uuuuaa{sv}).
type menuChange struct {
	Group    uint32
	Menu     uint32
	Position uint32
	Removed  uint32
	Added    []map[string]dbus.Variant
}

// actionDescription is the org.gtk.Actions.Describe reply, (bgav).
type actionDescription struct {
	Enabled bool
	Param   dbus.Signature
	State   []dbus.Variant
}

func groupIDs() []uint32 {
	ids := make([]uint32, gtkGroupCount)
	for i := range ids {
		ids[i] = uint32(i)
	}
	return ids
}

func stringAttr(attrs map[string]dbus.Variant, key string) (string, bool) {
	v, ok := attrs[key]
	if !ok {
		return "", false
	}
	s, ok := v.Value().(string)
	return s, ok
}

// sectionAttr decodes a ":section" or ":submenu" (uu) reference.
func sectionAttr(attrs map[string]dbus.Variant, key string) (Section, bool) {
	v, ok := attrs[key]
	if !ok {
		return Section{}, false
	}
	switch ref := v.Value().(type) {
	case []interface{}:
		if len(ref) != 2 {
			return Section{}, false
		}
		group, ok1 := ref[0].(uint32)
		menu, ok2 := ref[1].(uint32)
		if !ok1 || !ok2 {
			return Section{}, false
		}
		return Section{Group: group, Menu: menu}, true
	case Section:
		return ref, true
	}
	return Section{}, false
}

// toggleFor maps an action state to a checked state. Boolean states are
// check items; string states are radio groups selected when they equal the
// item's target.
func toggleFor(state []dbus.Variant, target string) Toggle {
	if len(state) == 0 {
		return ToggleOff
	}
	switch v := state[0].Value().(type) {
	case bool:
		if v {
			return ToggleOn
		}
	case string:
		if target != "" && v == target {
			return ToggleRadio
		}
	}
	return ToggleOff
}

// gtkAccel turns "<Primary><Shift>s" into "Primary+Shift+s".
func gtkAccel(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	var parts []string
	for strings.HasPrefix(raw, "<") {
		end := strings.IndexByte(raw, '>')
		if end < 0 {
			break
		}
		parts = append(parts, raw[1:end])
		raw = raw[end+1:]
	}
	if raw != "" {
		parts = append(parts, raw)
	}
	return strings.Join(parts, "+")
}
