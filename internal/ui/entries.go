package ui

import (
	"github.com/atomicstack/menu-hud/internal/menu"
	uistate "github.com/atomicstack/menu-hud/internal/ui/state"
)

const (
	markChecked = "✓"
	markRadio   = "•"
)

// entriesFrom converts menu items into HUD rows. Separators and unlabelled
// items are not selectable and are dropped.
func entriesFrom(items []menu.Item, accels map[menu.ActionID]string) []uistate.Entry {
	entries := make([]uistate.Entry, 0, len(items))
	seen := make(map[string]bool, len(items))
	for _, item := range items {
		if item.Separator || item.Label == "" {
			continue
		}
		key := item.Text()
		if seen[key] {
			continue
		}
		seen[key] = true
		accel := item.Accel
		if accel == "" {
			accel = accels[item.Action]
		}
		entries = append(entries, uistate.Entry{
			ID:       key,
			Label:    key,
			Accel:    accel,
			Mark:     markFor(item.Checked),
			Disabled: !item.Enabled,
		})
	}
	return entries
}

func markFor(t menu.Toggle) string {
	switch t {
	case menu.ToggleOn:
		return markChecked
	case menu.ToggleRadio:
		return markRadio
	}
	return ""
}
