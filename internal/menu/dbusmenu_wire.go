package menu

import (
	"strings"

	"github.com/godbus/dbus/v5"
)

// layoutNode is one (ia{sv}av) element of a com.canonical.dbusmenu layout.
type layoutNode struct {
	ID       int32
	Props    map[string]dbus.Variant
	Children []dbus.Variant
}

// propUpdate and propRemoval are the two halves of ItemsPropertiesUpdated.
type propUpdate struct {
	ID    int32
	Props map[string]dbus.Variant
}

type propRemoval struct {
	ID    int32
	Names []string
}

func decodeLayout(v interface{}) (layoutNode, bool) {
	switch x := v.(type) {
	case layoutNode:
		return x, true
	case []interface{}:
		var n layoutNode
		if err := dbus.Store(x, &n.ID, &n.Props, &n.Children); err != nil {
			return layoutNode{}, false
		}
		return n, true
	}
	return layoutNode{}, false
}

func (n layoutNode) children() []layoutNode {
	out := make([]layoutNode, 0, len(n.Children))
	for _, v := range n.Children {
		if child, ok := decodeLayout(v.Value()); ok {
			out = append(out, child)
		}
	}
	return out
}

func (n layoutNode) lazy() bool {
	_, ok := n.Props["children-display"]
	return ok
}

func (n layoutNode) visible() bool {
	return boolProp(n.Props, "visible", true)
}

func (n layoutNode) separator() bool {
	t, _ := stringAttr(n.Props, "type")
	return t == "separator"
}

func boolProp(props map[string]dbus.Variant, key string, fallback bool) bool {
	v, ok := props[key]
	if !ok {
		return fallback
	}
	b, ok := v.Value().(bool)
	if !ok {
		return fallback
	}
	return b
}

// applyProps copies dbusmenu properties onto item.
func applyProps(item *Item, props map[string]dbus.Variant) {
	if label, ok := stringAttr(props, "label"); ok {
		item.Label = cleanLabel(label)
	}
	if t, ok := stringAttr(props, "type"); ok {
		item.Separator = t == "separator"
	}
	if _, ok := props["enabled"]; ok {
		item.Enabled = boolProp(props, "enabled", true)
	}
	if v, ok := props["toggle-state"]; ok {
		toggleType, _ := stringAttr(props, "toggle-type")
		item.Checked = dbusmenuToggle(toggleType, v)
	}
	if v, ok := props["shortcut"]; ok {
		item.Accel = dbusmenuShortcut(v)
	}
}

// clearProps restores the defaults of removed dbusmenu properties.
func clearProps(item *Item, names []string) {
	for _, name := range names {
		switch name {
		case "label":
			item.Label = ""
		case "type":
			item.Separator = false
		case "enabled":
			item.Enabled = true
		case "toggle-state", "toggle-type":
			item.Checked = ToggleOff
		case "shortcut":
			item.Accel = ""
		}
	}
}

func dbusmenuToggle(toggleType string, state dbus.Variant) Toggle {
	var on bool
	switch v := state.Value().(type) {
	case int32:
		on = v == 1
	case bool:
		on = v
	}
	if !on {
		return ToggleOff
	}
	if toggleType == "radio" {
		return ToggleRadio
	}
	return ToggleOn
}

// dbusmenuShortcut renders an aas shortcut list, e.g. [["Control","s"]].
func dbusmenuShortcut(v dbus.Variant) string {
	var combos []string
	switch x := v.Value().(type) {
	case [][]string:
		for _, keys := range x {
			combos = append(combos, strings.Join(keys, "+"))
		}
	case []interface{}:
		for _, raw := range x {
			keys, ok := raw.([]string)
			if !ok {
				continue
			}
			combos = append(combos, strings.Join(keys, "+"))
		}
	}
	return strings.Join(combos, ", ")
}
