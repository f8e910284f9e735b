package menu

import (
	"context"
	"fmt"

	"github.com/atomicstack/menu-hud/internal/logging"
	"github.com/atomicstack/menu-hud/internal/logging/events"
	"github.com/godbus/dbus/v5"
)

// actionsChange is the body of org.gtk.Actions.Changed. Action names carry
// no namespace prefix.
type actionsChange struct {
	Removed []string
	Enabled map[string]bool
	State   map[string]dbus.Variant
	Added   map[string]actionDescription
}

func decodeActionsChange(body []interface{}) (actionsChange, error) {
	var c actionsChange
	if err := dbus.Store(body, &c.Removed, &c.Enabled, &c.State, &c.Added); err != nil {
		return actionsChange{}, fmt.Errorf("decode org.gtk.Actions.Changed: %w", err)
	}
	return c, nil
}

func (m *GtkModel) onActionsChanged(path dbus.ObjectPath) func(*dbus.Signal) {
	return func(sig *dbus.Signal) {
		change, err := decodeActionsChange(sig.Body)
		if err != nil {
			logging.Error(err)
			return
		}
		m.applyActionsChange(context.Background(), path, change)
	}
}

func (m *GtkModel) applyActionsChange(ctx context.Context, path dbus.ObjectPath, change actionsChange) {
	m.mu.Lock()
	defer m.mu.Unlock()
	events.Gtk.ActionsChanged(string(path), len(change.Removed), len(change.Enabled), len(change.State), len(change.Added))

	for _, name := range change.Removed {
		for _, item := range m.matching(path, name) {
			item.Enabled = false
		}
	}
	for name, enabled := range change.Enabled {
		for _, item := range m.matching(path, name) {
			item.Enabled = enabled
		}
	}
	for name := range change.State {
		for _, item := range m.matching(path, name) {
			if desc, ok := m.describe(ctx, item.Action); ok {
				item.Enabled = desc.Enabled
				item.Checked = toggleFor(desc.State, item.Target)
			}
		}
	}
	for name, desc := range change.Added {
		for _, item := range m.matching(path, name) {
			item.Enabled = desc.Enabled
			item.Checked = toggleFor(desc.State, item.Target)
		}
	}
}

// matching scans the concrete items for an unqualified action name owned by
// the object at path.
func (m *GtkModel) matching(path dbus.ObjectPath, name string) []*Item {
	var out []*Item
	for _, h := range m.items {
		item := m.tree.item(h)
		if item == nil || item.Action.Name() != name {
			continue
		}
		if target, ok := m.targetFor(item.Action); !ok || target != path {
			continue
		}
		out = append(out, item)
	}
	return out
}

func (m *GtkModel) onMenusChanged(path dbus.ObjectPath) func(*dbus.Signal) {
	return func(sig *dbus.Signal) {
		var changes []menuChange
		if err := dbus.Store(sig.Body, &changes); err != nil {
			logging.Error(fmt.Errorf("decode org.gtk.Menus.Changed: %w", err))
			return
		}
		events.Gtk.MenusChanged(string(path), len(changes))
		if len(changes) == 0 {
			return
		}
		m.mu.Lock()
		m.stale = true
		m.mu.Unlock()
	}
}

// Stale reports whether a menu object announced a structural change since
// the last refresh.
func (m *GtkModel) Stale() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stale
}
