package menu

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/godbus/dbus/v5"
)

const (
	testLegacyBus  = ":1.99"
	testLegacyPath = dbus.ObjectPath("/com/canonical/menu/3A00007")
)

func registrarKey() string {
	return "com.canonical.AppMenu.Registrar.GetMenuForWindow"
}

// serveLayouts answers GetLayout from layouts keyed by parent id and counts
// the requests per parent.
func (f *fakeConn) serveLayouts(layouts map[int32]layoutNode) {
	f.handle(dbusmenuKey("GetLayout"), func(c recordedCall) ([]interface{}, error) {
		parent, _ := c.args[0].(int32)
		n, ok := layouts[parent]
		if !ok {
			return nil, errors.New("no such item")
		}
		return []interface{}{uint32(1), n}, nil
	})
}

func (f *fakeConn) layoutRequests(parent int32) int {
	n := 0
	for _, c := range f.callsTo("GetLayout") {
		if c.args[0] == parent {
			n++
		}
	}
	return n
}

func (f *fakeConn) events(name string) []recordedCall {
	var out []recordedCall
	for _, c := range f.callsTo("Event") {
		if c.args[1] == name {
			out = append(out, c)
		}
	}
	return out
}

func legacyConn() *fakeConn {
	conn := newFakeConn()
	conn.reply(registrarKey(), testLegacyBus, testLegacyPath)
	conn.reply(dbusmenuKey("AboutToShow"), false)
	conn.reply(dbusmenuKey("Event"))
	return conn
}

func fileLayout(saveID int32) layoutNode {
	return node(0, nil,
		node(1, labelled("_File"),
			node(saveID, labelled("_Save")),
		),
	)
}

func TestAppMenuLazySubmenuIsExpanded(t *testing.T) {
	conn := legacyConn()
	lazy := map[string]dbus.Variant{"children-display": dbus.MakeVariant("submenu")}
	edit := labelled("Edit")
	edit["children-display"] = dbus.MakeVariant("submenu")
	conn.serveLayouts(map[int32]layoutNode{
		0: node(0, lazy, node(5, edit)),
		5: node(5, nil, node(9, labelled("Undo"))),
	})

	m := NewAppMenuModel(context.Background(), conn, gtkWindow())
	if err := m.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh failed: %v", err)
	}

	tree := m.Tree()
	if err := tree.Validate(); err != nil {
		t.Fatalf("invalid tree: %v", err)
	}
	editNode, ok := tree.Find("5")
	if !ok || editNode.Item.Label != "Edit" || editNode.Parent != RootHandle {
		t.Fatalf("expected Edit under root, got %+v", editNode)
	}
	kids := tree.Children(editNode.Handle)
	if len(kids) != 1 || kids[0].Item.Label != "Undo" || kids[0].ID != "9" {
		t.Fatalf("expected Undo under Edit, got %+v", kids)
	}
	if got := m.Actions(); !reflect.DeepEqual(got, map[string]ActionID{"Edit > Undo": "9"}) {
		t.Fatalf("unexpected actions %v", got)
	}
	if got := m.TopLevelMenus(); !reflect.DeepEqual(got, []string{"Edit"}) {
		t.Fatalf("unexpected top level %v", got)
	}

	shows := conn.callsTo("AboutToShow")
	if len(shows) != 1 || shows[0].args[0] != int32(5) {
		t.Fatalf("expected AboutToShow(5), got %+v", shows)
	}
	opened := conn.events("opened")
	if len(opened) != 1 || opened[0].args[0] != int32(5) {
		t.Fatalf("expected opened event on 5, got %+v", opened)
	}
	if conn.layoutRequests(0) != 1 || conn.layoutRequests(5) != 1 {
		t.Fatalf("unexpected layout requests: root=%d edit=%d", conn.layoutRequests(0), conn.layoutRequests(5))
	}
}

func TestAppMenuExpandFailureKeepsNode(t *testing.T) {
	conn := legacyConn()
	conn.fail(dbusmenuKey("AboutToShow"), errors.New("not supported"))
	file := labelled("File")
	file["children-display"] = dbus.MakeVariant("submenu")
	conn.serveLayouts(map[int32]layoutNode{
		0: node(0, nil, node(1, file, node(2, labelled("Quit")))),
	})

	m := NewAppMenuModel(context.Background(), conn, gtkWindow())
	if err := m.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	if !m.HasAction("File > Quit") {
		t.Fatalf("expected received children to be kept, got %v", m.Actions())
	}
}

func TestAppMenuDecodesItemProperties(t *testing.T) {
	conn := legacyConn()
	save := labelled("Save")
	save["shortcut"] = dbus.MakeVariant([][]string{{"Control", "s"}})
	hidden := labelled("Hidden")
	hidden["visible"] = dbus.MakeVariant(false)
	wrap := labelled("Wrap")
	wrap["toggle-type"] = dbus.MakeVariant("checkmark")
	wrap["toggle-state"] = dbus.MakeVariant(int32(1))
	wrap["enabled"] = dbus.MakeVariant(false)
	conn.serveLayouts(map[int32]layoutNode{
		0: node(0, nil, node(1, labelled("File"),
			node(2, save),
			node(3, map[string]dbus.Variant{"type": dbus.MakeVariant("separator")}),
			node(4, hidden),
			node(5, wrap),
			node(6, nil),
		)),
	})

	m := NewAppMenuModel(context.Background(), conn, gtkWindow())
	if err := m.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	items := m.Items()
	if len(items) != 3 {
		t.Fatalf("expected save, separator and wrap, got %+v", items)
	}
	if !items[1].Separator {
		t.Fatalf("expected separator in the middle, got %+v", items[1])
	}
	if items[2].Checked != ToggleOn || items[2].Enabled {
		t.Fatalf("unexpected toggle item %+v", items[2])
	}
	if got := m.Accels(); !reflect.DeepEqual(got, map[ActionID]string{"2": "Control+s"}) {
		t.Fatalf("unexpected accels %v", got)
	}
	if got := m.Actions(); len(got) != 2 || got["File > Save"] != "2" || got["File > Wrap"] != "5" {
		t.Fatalf("unexpected actions %v", got)
	}
}

func TestAppMenuActivateSendsClicked(t *testing.T) {
	conn := legacyConn()
	conn.serveLayouts(map[int32]layoutNode{0: fileLayout(2)})
	fixed := time.Unix(1700000000, 0)
	restore := now
	now = func() time.Time { return fixed }
	defer func() { now = restore }()

	m := NewAppMenuModel(context.Background(), conn, gtkWindow())
	if err := m.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	if err := m.Activate(context.Background(), "File > Save"); err != nil {
		t.Fatalf("activate failed: %v", err)
	}
	clicked := conn.events("clicked")
	if len(clicked) != 1 {
		t.Fatalf("expected one clicked event, got %d", len(clicked))
	}
	c := clicked[0]
	if c.dest != testLegacyBus || c.path != testLegacyPath {
		t.Fatalf("event sent to %s %s", c.dest, c.path)
	}
	if c.args[0] != int32(2) || c.args[3] != uint32(fixed.Unix()) {
		t.Fatalf("unexpected event args %#v", c.args)
	}
	if data, ok := c.args[2].(dbus.Variant); !ok || data.Value() != int32(0) {
		t.Fatalf("unexpected event payload %#v", c.args[2])
	}
}

func TestAppMenuActivateRetriesOnceWithFreshIDs(t *testing.T) {
	conn := legacyConn()
	var (
		mu      sync.Mutex
		fetches int
	)
	conn.handle(dbusmenuKey("GetLayout"), func(recordedCall) ([]interface{}, error) {
		mu.Lock()
		defer mu.Unlock()
		fetches++
		if fetches == 1 {
			return []interface{}{uint32(1), fileLayout(2)}, nil
		}
		return []interface{}{uint32(2), fileLayout(7)}, nil
	})
	conn.handle(dbusmenuKey("Event"), func(c recordedCall) ([]interface{}, error) {
		if c.args[1] == "clicked" && c.args[0] == int32(2) {
			return nil, errors.New("unknown id")
		}
		return nil, nil
	})

	m := NewAppMenuModel(context.Background(), conn, gtkWindow())
	if err := m.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	if err := m.Activate(context.Background(), "File > Save"); err != nil {
		t.Fatalf("activate failed: %v", err)
	}
	clicked := conn.events("clicked")
	if len(clicked) != 2 || clicked[1].args[0] != int32(7) {
		t.Fatalf("expected retry on refreshed id, got %+v", clicked)
	}
	if got := conn.layoutRequests(0); got != 2 {
		t.Fatalf("expected exactly one rebuild, got %d layout fetches", got)
	}
}

func TestAppMenuActivateSecondFailurePropagates(t *testing.T) {
	conn := legacyConn()
	conn.serveLayouts(map[int32]layoutNode{0: fileLayout(2)})
	boom := errors.New("window gone")
	conn.handle(dbusmenuKey("Event"), func(c recordedCall) ([]interface{}, error) {
		if c.args[1] == "clicked" {
			return nil, boom
		}
		return nil, nil
	})

	m := NewAppMenuModel(context.Background(), conn, gtkWindow())
	if err := m.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	err := m.Activate(context.Background(), "File > Save")
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped transport error, got %v", err)
	}
	if got := len(conn.events("clicked")); got != 2 {
		t.Fatalf("expected two attempts, got %d", got)
	}
	if got := conn.layoutRequests(0); got != 2 {
		t.Fatalf("expected one rebuild, got %d layout fetches", got)
	}
}

func TestAppMenuActivateUnknownKey(t *testing.T) {
	conn := legacyConn()
	conn.serveLayouts(map[int32]layoutNode{0: fileLayout(2)})
	m := NewAppMenuModel(context.Background(), conn, gtkWindow())
	if err := m.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	if err := m.Activate(context.Background(), "File > Missing"); !errors.Is(err, ErrUnknownAction) {
		t.Fatalf("expected ErrUnknownAction, got %v", err)
	}
	if got := len(conn.events("clicked")); got != 0 {
		t.Fatalf("expected no clicked events, got %d", got)
	}
}

func TestAppMenuPropertiesUpdated(t *testing.T) {
	conn := legacyConn()
	conn.serveLayouts(map[int32]layoutNode{0: fileLayout(2)})
	m := NewAppMenuModel(context.Background(), conn, gtkWindow())
	if err := m.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh failed: %v", err)
	}

	delivered := conn.emit(testLegacyPath, "com.canonical.dbusmenu.ItemsPropertiesUpdated",
		[]propUpdate{
			{ID: 2, Props: map[string]dbus.Variant{
				"label":   dbus.MakeVariant("Save _As"),
				"enabled": dbus.MakeVariant(false),
			}},
			{ID: 77, Props: map[string]dbus.Variant{"label": dbus.MakeVariant("Ghost")}},
		},
		[]propRemoval{},
	)
	if delivered != 1 {
		t.Fatalf("expected one properties subscription, got %d", delivered)
	}
	if m.HasAction("File > Save") || !m.HasAction("File > Save As") {
		t.Fatalf("expected item to be rekeyed, got %v", m.Actions())
	}
	items := m.Items()
	if len(items) != 1 || items[0].Enabled {
		t.Fatalf("expected disabled item, got %+v", items)
	}

	m.applyPropertyUpdates(nil, []propRemoval{{ID: 2, Names: []string{"enabled"}}})
	if !m.Items()[0].Enabled {
		t.Fatalf("removed enabled property should restore the default")
	}
}

func TestAppMenuBranchRelabelRekeysDescendants(t *testing.T) {
	conn := legacyConn()
	conn.serveLayouts(map[int32]layoutNode{0: fileLayout(2)})
	m := NewAppMenuModel(context.Background(), conn, gtkWindow())
	if err := m.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh failed: %v", err)
	}

	m.applyPropertyUpdates([]propUpdate{
		{ID: 1, Props: map[string]dbus.Variant{"label": dbus.MakeVariant("_Document")}},
	}, nil)
	if got := m.Actions(); !reflect.DeepEqual(got, map[string]ActionID{"Document > Save": "2"}) {
		t.Fatalf("expected descendants to be rekeyed, got %v", got)
	}
	if got := m.Items()[0].Path; !reflect.DeepEqual(got, []string{"Document"}) {
		t.Fatalf("unexpected descendant path %v", got)
	}
	if got := m.TopLevelMenus(); !reflect.DeepEqual(got, []string{"Document"}) {
		t.Fatalf("unexpected top level %v", got)
	}
	if m.Stale() {
		t.Fatalf("in-place relabel should not need a rebuild")
	}

	m.applyPropertyUpdates(nil, []propRemoval{{ID: 1, Names: []string{"label"}}})
	if !m.Stale() {
		t.Fatalf("expected unlabelled branch to mark model stale")
	}
}

func TestAppMenuLayoutUpdatedMarksStale(t *testing.T) {
	conn := legacyConn()
	conn.serveLayouts(map[int32]layoutNode{0: fileLayout(2)})
	m := NewAppMenuModel(context.Background(), conn, gtkWindow())
	if err := m.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	if m.Stale() {
		t.Fatalf("fresh model must not be stale")
	}
	conn.emit(testLegacyPath, "com.canonical.dbusmenu.LayoutUpdated", uint32(4), int32(0))
	if !m.Stale() {
		t.Fatalf("expected layout update to mark model stale")
	}
	if err := m.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	if m.Stale() {
		t.Fatalf("refresh should clear staleness")
	}
}

func TestAppMenuExpansionLayoutUpdateKeepsModelFresh(t *testing.T) {
	conn := legacyConn()
	var wg sync.WaitGroup
	conn.handle(dbusmenuKey("AboutToShow"), func(c recordedCall) ([]interface{}, error) {
		id, _ := c.args[0].(int32)
		wg.Add(1)
		go func() {
			defer wg.Done()
			conn.emit(testLegacyPath, "com.canonical.dbusmenu.LayoutUpdated", uint32(1), id)
		}()
		return []interface{}{true}, nil
	})
	edit := labelled("Edit")
	edit["children-display"] = dbus.MakeVariant("submenu")
	conn.serveLayouts(map[int32]layoutNode{
		0: node(0, nil, node(5, edit)),
		5: node(5, nil, node(9, labelled("Undo"))),
	})

	m := NewAppMenuModel(context.Background(), conn, gtkWindow())
	for i := 1; i <= 3; i++ {
		if err := m.Refresh(context.Background()); err != nil {
			t.Fatalf("refresh %d failed: %v", i, err)
		}
		wg.Wait()
		if m.Stale() {
			t.Fatalf("refresh %d: model stale after its own expansion", i)
		}
	}
	if got := len(conn.events("opened")); got != 3 {
		t.Fatalf("expected one opened event per refresh, got %d", got)
	}

	conn.emit(testLegacyPath, "com.canonical.dbusmenu.LayoutUpdated", uint32(2), int32(5))
	if !m.Stale() {
		t.Fatalf("expected newer revision to mark model stale")
	}
}

func TestAppMenuRegistrarMissIsInert(t *testing.T) {
	cases := map[string]func(*fakeConn){
		"error": func(f *fakeConn) { f.fail(registrarKey(), errors.New("no registrar")) },
		"empty": func(f *fakeConn) { f.reply(registrarKey(), "", dbus.ObjectPath("")) },
		"root":  func(f *fakeConn) { f.reply(registrarKey(), testLegacyBus, dbus.ObjectPath("/")) },
	}
	for name, setup := range cases {
		t.Run(name, func(t *testing.T) {
			conn := newFakeConn()
			setup(conn)
			m := NewAppMenuModel(context.Background(), conn, gtkWindow())
			if err := m.Refresh(context.Background()); err != nil {
				t.Fatalf("refresh failed: %v", err)
			}
			if got := conn.callsTo("GetLayout"); len(got) != 0 {
				t.Fatalf("inert model fetched a layout")
			}
			if len(m.Actions()) != 0 || m.Tree().Len() != 0 {
				t.Fatalf("expected empty views")
			}
		})
	}
}

func TestAppMenuLayoutFailurePropagates(t *testing.T) {
	conn := legacyConn()
	conn.fail(dbusmenuKey("GetLayout"), errors.New("timeout"))
	m := NewAppMenuModel(context.Background(), conn, gtkWindow())
	if err := m.Refresh(context.Background()); err == nil {
		t.Fatalf("expected refresh error")
	}
}

func TestAppMenuRemoveListeners(t *testing.T) {
	conn := legacyConn()
	conn.serveLayouts(map[int32]layoutNode{0: fileLayout(2)})
	m := NewAppMenuModel(context.Background(), conn, gtkWindow())
	if err := m.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	if got := conn.live(); got != 2 {
		t.Fatalf("expected two subscriptions, got %d", got)
	}
	m.RemoveListeners()
	m.RemoveListeners()
	if conn.live() != 0 || conn.overCancelled() {
		t.Fatalf("expected each subscription cancelled once")
	}
}
