package menu

import (
	"context"
	"fmt"
	"sync"

	"github.com/atomicstack/menu-hud/internal/bus"
	"github.com/atomicstack/menu-hud/internal/logging"
	"github.com/atomicstack/menu-hud/internal/logging/events"
	"github.com/atomicstack/menu-hud/internal/window"
	"github.com/godbus/dbus/v5"
)

// GtkModel reads a window menu exported through org.gtk.Menus and resolves
// its actions through org.gtk.Actions.
type GtkModel struct {
	conn        bus.Conn
	busName     string
	appPath     dbus.ObjectPath
	winPath     dbus.ObjectPath
	menubarPath dbus.ObjectPath
	appMenuPath dbus.ObjectPath

	mu        sync.Mutex
	results   map[Section][]map[string]dbus.Variant
	keys      map[string]Handle
	items     []Handle
	accels    map[ActionID]string
	tree      *Tree
	topLevel  []string
	stale     bool
	listeners bus.Listeners
}

// NewGtkModel reads the GTK menu properties of win. A window without a
// unique bus name yields an inert model.
func NewGtkModel(conn bus.Conn, win window.Window) *GtkModel {
	m := &GtkModel{
		conn:        conn,
		busName:     window.Prop(win, window.PropUniqueBusName),
		appPath:     dbus.ObjectPath(window.Prop(win, window.PropApplicationPath)),
		winPath:     dbus.ObjectPath(window.Prop(win, window.PropWindowPath)),
		menubarPath: dbus.ObjectPath(window.Prop(win, window.PropMenubarPath)),
		appMenuPath: dbus.ObjectPath(window.Prop(win, window.PropAppMenuPath)),
	}
	m.reset()
	return m
}

func (m *GtkModel) available() bool {
	return m.conn != nil && m.busName != ""
}

func (m *GtkModel) reset() {
	m.results = make(map[Section][]map[string]dbus.Variant)
	m.keys = make(map[string]Handle)
	m.items = nil
	m.accels = make(map[ActionID]string)
	m.tree = NewTree()
	m.topLevel = nil
}

// Refresh rebuilds the tree from the app menu and menubar objects. A menu
// object that fails to answer is skipped; the other one still contributes.
func (m *GtkModel) Refresh(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.listeners.Release()
	m.reset()
	m.stale = false
	if !m.available() {
		return nil
	}

	contributed := false
	for _, path := range []dbus.ObjectPath{m.appMenuPath, m.menubarPath} {
		if path == "" {
			continue
		}
		groups, err := m.start(ctx, path)
		if err != nil {
			events.Gtk.SkipMenu(string(path), err)
			logging.Error(err)
			continue
		}
		contributed = true
		m.subscribe(path, bus.GtkMenusInterface, "Changed", m.onMenusChanged(path))
		for _, g := range groups {
			m.results[Section{Group: g.Group, Menu: g.Menu}] = g.Items
		}
	}
	if contributed {
		seen := map[dbus.ObjectPath]bool{}
		for _, path := range []dbus.ObjectPath{m.appPath, m.winPath, m.menubarPath} {
			if path == "" || seen[path] {
				continue
			}
			seen[path] = true
			m.subscribe(path, bus.GtkActionsInterface, "Changed", m.onActionsChanged(path))
		}
	}

	root := Section{}
	err := descend(m.sectionFrames(root, RootHandle, nil, 0, 0), func(f frame[gtkEntry]) ([]frame[gtkEntry], error) {
		return m.visit(ctx, f), nil
	})
	events.Gtk.Refresh(m.busName, len(m.results), len(m.items))
	return err
}

// gtkEntry is one raw descriptor together with the section it came from.
type gtkEntry struct {
	attrs   map[string]dbus.Variant
	section Section
}

func (m *GtkModel) sectionFrames(s Section, parent Handle, path []string, depth, hops int) []frame[gtkEntry] {
	entries := m.results[s]
	frames := make([]frame[gtkEntry], 0, len(entries))
	for _, attrs := range entries {
		frames = append(frames, frame[gtkEntry]{
			node:   gtkEntry{attrs: attrs, section: s},
			parent: parent,
			path:   path,
			depth:  depth,
			hops:   hops,
		})
	}
	return frames
}

func (m *GtkModel) visit(ctx context.Context, f frame[gtkEntry]) []frame[gtkEntry] {
	attrs := f.node.attrs
	label, hasLabel := stringAttr(attrs, "label")
	if !hasLabel {
		if ref, ok := sectionAttr(attrs, ":section"); ok {
			return m.sectionFrames(ref, f.parent, f.path, f.depth, f.hops+1)
		}
		return nil
	}

	action, _ := stringAttr(attrs, "action")
	target, _ := stringAttr(attrs, "target")
	accel, _ := stringAttr(attrs, "accel")
	item := Item{
		Label:   cleanLabel(label),
		Action:  ActionID(action),
		Section: f.node.section,
		Target:  target,
		Enabled: true,
		Accel:   gtkAccel(accel),
		Path:    f.path,
	}
	if f.depth == 0 {
		m.topLevel = append(m.topLevel, item.Label)
	}
	if item.Action != "" {
		if desc, ok := m.describe(ctx, item.Action); ok {
			item.Enabled = desc.Enabled
			item.Checked = toggleFor(desc.State, item.Target)
		}
	}

	key := string(item.Action)
	if key == "" {
		key = "menu:" + item.Text()
	}
	h := m.tree.Add(f.parent, key, item)

	if ref, ok := sectionAttr(attrs, ":submenu"); ok {
		return m.sectionFrames(ref, h, appendPath(f.path, item.Label), f.depth+1, f.hops+1)
	}
	if item.Action != "" {
		m.keys[item.Text()] = h
		m.items = append(m.items, h)
		if item.Accel != "" {
			m.accels[item.Action] = item.Accel
		}
	}
	return nil
}

func (m *GtkModel) start(ctx context.Context, path dbus.ObjectPath) ([]menuGroup, error) {
	ids := groupIDs()
	var groups []menuGroup
	if err := m.conn.Call(ctx, m.busName, path, bus.GtkMenusInterface, "Start", []interface{}{ids}, &groups); err != nil {
		return nil, fmt.Errorf("start menus %s: %w", path, err)
	}
	if err := m.conn.Call(ctx, m.busName, path, bus.GtkMenusInterface, "End", []interface{}{ids}); err != nil {
		return nil, fmt.Errorf("end menus %s: %w", path, err)
	}
	return groups, nil
}

func (m *GtkModel) subscribe(path dbus.ObjectPath, iface, member string, fn func(*dbus.Signal)) {
	sub, err := m.conn.Subscribe(m.busName, path, iface, member, fn)
	if err != nil {
		logging.Error(err)
		return
	}
	m.listeners.Add(sub)
}

// targetFor maps an action namespace onto the object that owns it.
func (m *GtkModel) targetFor(action ActionID) (dbus.ObjectPath, bool) {
	var path dbus.ObjectPath
	switch action.Prefix() {
	case "unity":
		path = m.menubarPath
	case "win":
		path = m.winPath
	case "app":
		path = m.appPath
	default:
		return "", false
	}
	return path, path != ""
}

// describe returns the remote description of action; any failure means no
// description is available.
func (m *GtkModel) describe(ctx context.Context, action ActionID) (actionDescription, bool) {
	path, ok := m.targetFor(action)
	if !ok {
		return actionDescription{}, false
	}
	var desc actionDescription
	if err := m.conn.Call(ctx, m.busName, path, bus.GtkActionsInterface, "Describe", []interface{}{action.Name()}, &desc); err != nil {
		return actionDescription{}, false
	}
	return desc, true
}

// Activate invokes the action registered under key on its owning object.
func (m *GtkModel) Activate(ctx context.Context, key string) error {
	m.mu.Lock()
	var action ActionID
	if h, ok := m.keys[key]; ok {
		action = m.tree.nodes[h].Item.Action
	}
	m.mu.Unlock()
	if action == "" {
		return fmt.Errorf("%q: %w", key, ErrUnknownAction)
	}
	path, ok := m.targetFor(action)
	if !ok {
		return fmt.Errorf("%s: %w", action, ErrNoTarget)
	}
	events.Gtk.Activate(string(action), string(path))
	args := []interface{}{action.Name(), []dbus.Variant{}, map[string]dbus.Variant{}}
	if err := m.conn.Call(ctx, m.busName, path, bus.GtkActionsInterface, "Activate", args); err != nil {
		return fmt.Errorf("activate %s: %w", action, err)
	}
	return nil
}

// HasAction reports whether key is registered.
func (m *GtkModel) HasAction(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.keys[key]
	return ok
}

// Actions returns the display key to action mapping.
func (m *GtkModel) Actions() map[string]ActionID {
	m.mu.Lock()
	defer m.mu.Unlock()
	return actionsOf(m.tree, m.keys)
}

// Items returns the concrete items in menu order.
func (m *GtkModel) Items() []Item {
	m.mu.Lock()
	defer m.mu.Unlock()
	return itemsOf(m.tree, m.items)
}

// Tree returns a snapshot of the menu tree.
func (m *GtkModel) Tree() *Tree {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tree.Clone()
}

// TopLevelMenus returns the labels of the first menu level.
func (m *GtkModel) TopLevelMenus() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.topLevel...)
}

// Accels returns accelerators advertised by the menu descriptors.
func (m *GtkModel) Accels() map[ActionID]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[ActionID]string, len(m.accels))
	for k, v := range m.accels {
		out[k] = v
	}
	return out
}

// RemoveListeners cancels every signal subscription made by Refresh.
func (m *GtkModel) RemoveListeners() {
	m.listeners.Release()
}

func actionsOf(t *Tree, keys map[string]Handle) map[string]ActionID {
	out := make(map[string]ActionID, len(keys))
	for key, h := range keys {
		if n, ok := t.Node(h); ok {
			out[key] = n.Item.Action
		}
	}
	return out
}

func itemsOf(t *Tree, hs []Handle) []Item {
	out := make([]Item, 0, len(hs))
	for _, h := range hs {
		if n, ok := t.Node(h); ok {
			out = append(out, n.Item.clone())
		}
	}
	return out
}
