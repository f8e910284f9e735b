package menu

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/atomicstack/menu-hud/internal/bus"
	"github.com/atomicstack/menu-hud/internal/logging"
	"github.com/atomicstack/menu-hud/internal/logging/events"
	"github.com/atomicstack/menu-hud/internal/window"
	"github.com/godbus/dbus/v5"
)

// now is swapped by tests that assert event timestamps.
var now = time.Now

// AppMenuModel reads a com.canonical.dbusmenu layout registered for a window
// with the AppMenu registrar.
type AppMenuModel struct {
	conn    bus.Conn
	busName string
	path    dbus.ObjectPath

	mu        sync.Mutex
	keys      map[string]Handle
	items     []Handle
	accels    map[ActionID]string
	tree      *Tree
	topLevel  []string
	revision  uint32
	stale     bool
	listeners bus.Listeners
}

// NewAppMenuModel asks the registrar for the menu of win. When the window is
// not registered the model stays inert and every view is empty.
func NewAppMenuModel(ctx context.Context, conn bus.Conn, win window.Window) *AppMenuModel {
	m := &AppMenuModel{conn: conn}
	m.reset()
	if conn == nil || win == nil {
		return m
	}
	xid := win.XID()
	var (
		name string
		path dbus.ObjectPath
	)
	err := conn.Call(ctx, bus.RegistrarName, bus.RegistrarPath, bus.RegistrarInterface, "GetMenuForWindow", []interface{}{xid}, &name, &path)
	events.AppMenu.Lookup(xid, name, string(path), err)
	if err != nil || name == "" || path == "" || path == "/" {
		return m
	}
	m.busName = name
	m.path = path
	return m
}

func (m *AppMenuModel) available() bool {
	return m.conn != nil && m.busName != ""
}

func (m *AppMenuModel) reset() {
	m.keys = make(map[string]Handle)
	m.items = nil
	m.accels = make(map[ActionID]string)
	m.tree = NewTree()
	m.topLevel = nil
}

// Refresh fetches the whole layout and rebuilds the tree.
func (m *AppMenuModel) Refresh(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.refreshLocked(ctx)
}

func (m *AppMenuModel) refreshLocked(ctx context.Context) error {
	if !m.available() {
		return nil
	}
	m.listeners.Release()
	m.subscribe("ItemsPropertiesUpdated", m.onItemsPropertiesUpdated)
	m.subscribe("LayoutUpdated", m.onLayoutUpdated)

	revision, root, err := m.layout(ctx, 0)
	if err != nil {
		return err
	}
	m.reset()
	m.revision = revision
	m.stale = false

	start := []frame[layoutNode]{{node: root, parent: RootHandle}}
	err = descend(start, func(f frame[layoutNode]) ([]frame[layoutNode], error) {
		return m.visit(ctx, f), nil
	})
	events.AppMenu.Refresh(m.busName, len(m.items))
	return err
}

func (m *AppMenuModel) visit(ctx context.Context, f frame[layoutNode]) []frame[layoutNode] {
	n := f.node
	isRoot := f.hops == 0
	if !n.visible() {
		return nil
	}
	if n.lazy() && (!isRoot || len(n.Children) == 0) {
		n = m.expand(ctx, n)
	}

	item := Item{
		ID:      n.ID,
		Action:  ActionID(strconv.Itoa(int(n.ID))),
		Enabled: true,
		Path:    f.path,
	}
	applyProps(&item, n.Props)

	children := n.children()
	if len(children) > 0 {
		parent := f.parent
		path := f.path
		if !isRoot {
			parent = m.tree.Add(f.parent, string(item.Action), item)
			if item.Label != "" {
				path = appendPath(f.path, item.Label)
			}
		}
		if len(m.topLevel) == 0 {
			for _, child := range children {
				if label, ok := stringAttr(child.Props, "label"); ok && label != "" {
					m.topLevel = append(m.topLevel, cleanLabel(label))
				}
			}
		}
		frames := make([]frame[layoutNode], 0, len(children))
		for _, child := range children {
			frames = append(frames, frame[layoutNode]{
				node:   child,
				parent: parent,
				path:   path,
				depth:  f.depth + 1,
				hops:   f.hops + 1,
			})
		}
		return frames
	}

	if isRoot || (item.Label == "" && !item.Separator) {
		return nil
	}
	h := m.tree.Add(f.parent, string(item.Action), item)
	m.items = append(m.items, h)
	if item.Label != "" {
		m.keys[item.Text()] = h
	}
	if item.Accel != "" {
		m.accels[item.Action] = item.Accel
	}
	return nil
}

// expand asks the application to populate a lazily filled submenu and
// fetches it again. On failure the node is kept as received.
func (m *AppMenuModel) expand(ctx context.Context, n layoutNode) layoutNode {
	var changed bool
	_ = m.conn.Call(ctx, m.busName, m.path, bus.DBusMenuInterface, "AboutToShow", []interface{}{n.ID}, &changed)
	if err := m.event(ctx, n.ID, "opened", dbus.MakeVariant("")); err != nil {
		logging.Error(err)
	}
	revision, fresh, err := m.layout(ctx, n.ID)
	if err != nil {
		logging.Error(err)
		return n
	}
	if revision > m.revision {
		m.revision = revision
	}
	events.AppMenu.Expand(n.ID, len(fresh.Children))
	if fresh.Props == nil {
		fresh.Props = make(map[string]dbus.Variant, len(n.Props))
	}
	for k, v := range n.Props {
		if _, ok := fresh.Props[k]; !ok {
			fresh.Props[k] = v
		}
	}
	fresh.ID = n.ID
	return fresh
}

func (m *AppMenuModel) layout(ctx context.Context, parent int32) (uint32, layoutNode, error) {
	var (
		revision uint32
		root     layoutNode
	)
	args := []interface{}{parent, int32(-1), []string{}}
	if err := m.conn.Call(ctx, m.busName, m.path, bus.DBusMenuInterface, "GetLayout", args, &revision, &root); err != nil {
		return 0, layoutNode{}, fmt.Errorf("get layout %d: %w", parent, err)
	}
	return revision, root, nil
}

func (m *AppMenuModel) event(ctx context.Context, id int32, name string, data dbus.Variant) error {
	args := []interface{}{id, name, data, uint32(now().Unix())}
	if err := m.conn.Call(ctx, m.busName, m.path, bus.DBusMenuInterface, "Event", args); err != nil {
		return fmt.Errorf("event %s on %d: %w", name, id, err)
	}
	return nil
}

func (m *AppMenuModel) subscribe(member string, fn func(*dbus.Signal)) {
	sub, err := m.conn.Subscribe(m.busName, m.path, bus.DBusMenuInterface, member, fn)
	if err != nil {
		logging.Error(err)
		return
	}
	m.listeners.Add(sub)
}

// Activate sends a clicked event for key. Applications that regenerate their
// menus invalidate ids, so a failure triggers one rebuild and one retry.
func (m *AppMenuModel) Activate(ctx context.Context, key string) error {
	item, ok := m.lookup(key)
	if !ok {
		return fmt.Errorf("%q: %w", key, ErrUnknownAction)
	}
	events.AppMenu.Activate(item.ID, key)
	err := m.event(ctx, item.ID, "clicked", dbus.MakeVariant(int32(0)))
	if err == nil {
		return nil
	}
	events.AppMenu.Retry(key, err)
	return m.retryActivate(ctx, key)
}

func (m *AppMenuModel) retryActivate(ctx context.Context, key string) error {
	m.mu.Lock()
	err := m.refreshLocked(ctx)
	m.mu.Unlock()
	if err != nil {
		return fmt.Errorf("activate %q: %w", key, err)
	}
	item, ok := m.lookup(key)
	if !ok {
		return fmt.Errorf("%q: %w", key, ErrUnknownAction)
	}
	if err := m.event(ctx, item.ID, "clicked", dbus.MakeVariant(int32(0))); err != nil {
		return fmt.Errorf("activate %q: %w", key, err)
	}
	return nil
}

func (m *AppMenuModel) lookup(key string) (Item, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.keys[key]
	if !ok {
		return Item{}, false
	}
	n, ok := m.tree.Node(h)
	return n.Item, ok
}

func (m *AppMenuModel) onItemsPropertiesUpdated(sig *dbus.Signal) {
	var (
		updated []propUpdate
		removed []propRemoval
	)
	if err := dbus.Store(sig.Body, &updated, &removed); err != nil {
		logging.Error(fmt.Errorf("decode ItemsPropertiesUpdated: %w", err))
		return
	}
	m.applyPropertyUpdates(updated, removed)
}

func (m *AppMenuModel) applyPropertyUpdates(updated []propUpdate, removed []propRemoval) {
	m.mu.Lock()
	defer m.mu.Unlock()
	events.AppMenu.PropertiesUpdated(len(updated), len(removed))
	for _, upd := range updated {
		m.updateItem(upd.ID, func(item *Item) { applyProps(item, upd.Props) })
	}
	for _, rem := range removed {
		m.updateItem(rem.ID, func(item *Item) { clearProps(item, rem.Names) })
	}
}

func (m *AppMenuModel) updateItem(id int32, fn func(*Item)) {
	n, ok := m.tree.Find(strconv.Itoa(int(id)))
	if !ok {
		events.AppMenu.UnknownItem(id)
		return
	}
	item := m.tree.item(n.Handle)
	oldKey := item.Text()
	oldLabel := item.Label
	fn(item)
	if item.Accel != "" {
		m.accels[item.Action] = item.Accel
	} else {
		delete(m.accels, item.Action)
	}
	m.rekey(n.Handle, oldKey, item)
	if item.Label == oldLabel || len(m.tree.Children(n.Handle)) == 0 {
		return
	}
	if oldLabel == "" || item.Label == "" {
		// The branch enters or leaves the label chain; only a rebuild
		// can shift every descendant path.
		m.stale = true
		return
	}
	if len(item.Path) == 0 {
		for i, name := range m.topLevel {
			if name == oldLabel {
				m.topLevel[i] = item.Label
			}
		}
	}
	m.relabelDescendants(n.Handle, len(item.Path), item.Label)
}

// relabelDescendants replaces the path element at depth for every node below
// h and moves their registry keys accordingly.
func (m *AppMenuModel) relabelDescendants(h Handle, depth int, label string) {
	for _, child := range m.tree.Children(h) {
		item := m.tree.item(child.Handle)
		if depth < len(item.Path) {
			oldKey := item.Text()
			item.Path = append([]string(nil), item.Path...)
			item.Path[depth] = label
			m.rekey(child.Handle, oldKey, item)
		}
		m.relabelDescendants(child.Handle, depth, label)
	}
}

func (m *AppMenuModel) rekey(h Handle, oldKey string, item *Item) {
	newKey := item.Text()
	if newKey == oldKey {
		return
	}
	if cur, ok := m.keys[oldKey]; ok && cur == h {
		delete(m.keys, oldKey)
		if item.Label != "" {
			m.keys[newKey] = h
		}
	}
}

func (m *AppMenuModel) onLayoutUpdated(sig *dbus.Signal) {
	var (
		revision uint32
		parent   int32
	)
	if err := dbus.Store(sig.Body, &revision, &parent); err != nil {
		logging.Error(fmt.Errorf("decode LayoutUpdated: %w", err))
		return
	}
	m.mu.Lock()
	if revision > m.revision {
		m.stale = true
	}
	m.mu.Unlock()
	events.AppMenu.LayoutUpdated(revision, parent)
}

// Stale reports whether the application announced a layout change since the
// last refresh.
func (m *AppMenuModel) Stale() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stale
}

// HasAction reports whether key is registered.
func (m *AppMenuModel) HasAction(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.keys[key]
	return ok
}

// Actions returns the display key to item id mapping.
func (m *AppMenuModel) Actions() map[string]ActionID {
	m.mu.Lock()
	defer m.mu.Unlock()
	return actionsOf(m.tree, m.keys)
}

// Items returns the leaf items in menu order.
func (m *AppMenuModel) Items() []Item {
	m.mu.Lock()
	defer m.mu.Unlock()
	return itemsOf(m.tree, m.items)
}

// Tree returns a snapshot of the menu tree.
func (m *AppMenuModel) Tree() *Tree {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tree.Clone()
}

// TopLevelMenus returns the labels of the first populated menu level.
func (m *AppMenuModel) TopLevelMenus() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.topLevel...)
}

// Accels returns shortcuts advertised through the shortcut property.
func (m *AppMenuModel) Accels() map[ActionID]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[ActionID]string, len(m.accels))
	for k, v := range m.accels {
		out[k] = v
	}
	return out
}

// RemoveListeners cancels the layout and property subscriptions.
func (m *AppMenuModel) RemoveListeners() {
	m.listeners.Release()
}
