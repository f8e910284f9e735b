package menu

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	"github.com/atomicstack/menu-hud/internal/bus"
	"github.com/atomicstack/menu-hud/internal/window"
	"github.com/godbus/dbus/v5"
)

type recordedCall struct {
	dest   string
	path   dbus.ObjectPath
	iface  string
	method string
	args   []interface{}
}

type replyFunc func(c recordedCall) ([]interface{}, error)

type fakeSub struct {
	conn   *fakeConn
	dest   string
	path   dbus.ObjectPath
	name   string
	fn     func(*dbus.Signal)
	cancel int
}

func (s *fakeSub) Cancel() {
	s.conn.mu.Lock()
	s.cancel++
	s.conn.mu.Unlock()
}

// fakeConn answers calls from handlers keyed by "path iface.method", falling
// back to "iface.method".
type fakeConn struct {
	mu       sync.Mutex
	calls    []recordedCall
	handlers map[string]replyFunc
	subs     []*fakeSub
	subErr   error
}

var _ bus.Conn = (*fakeConn)(nil)

func newFakeConn() *fakeConn {
	return &fakeConn{handlers: make(map[string]replyFunc)}
}

func (f *fakeConn) handle(key string, fn replyFunc) {
	f.mu.Lock()
	f.handlers[key] = fn
	f.mu.Unlock()
}

func (f *fakeConn) reply(key string, body ...interface{}) {
	f.handle(key, func(recordedCall) ([]interface{}, error) { return body, nil })
}

func (f *fakeConn) fail(key string, err error) {
	f.handle(key, func(recordedCall) ([]interface{}, error) { return nil, err })
}

func (f *fakeConn) Call(ctx context.Context, dest string, path dbus.ObjectPath, iface, method string, args []interface{}, out ...interface{}) error {
	c := recordedCall{dest: dest, path: path, iface: iface, method: method, args: args}
	f.mu.Lock()
	f.calls = append(f.calls, c)
	fn, ok := f.handlers[fmt.Sprintf("%s %s.%s", path, iface, method)]
	if !ok {
		fn, ok = f.handlers[iface+"."+method]
	}
	f.mu.Unlock()
	if !ok {
		return fmt.Errorf("no handler for %s %s.%s", path, iface, method)
	}
	body, err := fn(c)
	if err != nil {
		return err
	}
	for i := range out {
		if i >= len(body) || body[i] == nil {
			continue
		}
		reflect.ValueOf(out[i]).Elem().Set(reflect.ValueOf(body[i]))
	}
	return nil
}

func (f *fakeConn) Subscribe(dest string, path dbus.ObjectPath, iface, member string, fn func(*dbus.Signal)) (bus.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.subErr != nil {
		return nil, f.subErr
	}
	sub := &fakeSub{conn: f, dest: dest, path: path, name: iface + "." + member, fn: fn}
	f.subs = append(f.subs, sub)
	return sub, nil
}

// emit delivers a signal to every live subscription matching path and name.
func (f *fakeConn) emit(path dbus.ObjectPath, name string, body ...interface{}) int {
	f.mu.Lock()
	var targets []*fakeSub
	for _, sub := range f.subs {
		if sub.cancel == 0 && sub.path == path && sub.name == name {
			targets = append(targets, sub)
		}
	}
	f.mu.Unlock()
	for _, sub := range targets {
		sub.fn(&dbus.Signal{Sender: sub.dest, Path: path, Name: name, Body: body})
	}
	return len(targets)
}

func (f *fakeConn) live() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, sub := range f.subs {
		if sub.cancel == 0 {
			n++
		}
	}
	return n
}

func (f *fakeConn) overCancelled() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, sub := range f.subs {
		if sub.cancel > 1 {
			return true
		}
	}
	return false
}

func (f *fakeConn) callsTo(method string) []recordedCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []recordedCall
	for _, c := range f.calls {
		if c.method == method {
			out = append(out, c)
		}
	}
	return out
}

func (f *fakeConn) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

const (
	testBusName     = ":1.42"
	testAppPath     = dbus.ObjectPath("/org/example/app")
	testWinPath     = dbus.ObjectPath("/org/example/window/1")
	testMenubarPath = dbus.ObjectPath("/org/example/menus/menubar")
	testAppMenuPath = dbus.ObjectPath("/org/example/menus/appmenu")
)

func gtkWindow() window.Static {
	return window.Static{
		ID:   0x3a00007,
		Name: "Example",
		Props: map[string]string{
			window.PropUniqueBusName:   testBusName,
			window.PropApplicationPath: string(testAppPath),
			window.PropWindowPath:      string(testWinPath),
			window.PropMenubarPath:     string(testMenubarPath),
			window.PropAppMenuPath:     string(testAppMenuPath),
		},
	}
}

func menusKey(path dbus.ObjectPath, method string) string {
	return fmt.Sprintf("%s %s.%s", path, bus.GtkMenusInterface, method)
}

func actionsKey(path dbus.ObjectPath, method string) string {
	return fmt.Sprintf("%s %s.%s", path, bus.GtkActionsInterface, method)
}

func dbusmenuKey(method string) string {
	return bus.DBusMenuInterface + "." + method
}

// serveMenus answers Start on path with groups and acknowledges End.
func (f *fakeConn) serveMenus(path dbus.ObjectPath, groups ...menuGroup) {
	f.reply(menusKey(path, "Start"), groups)
	f.reply(menusKey(path, "End"))
}

// serveDescribe answers Describe on path from descs keyed by unqualified name.
func (f *fakeConn) serveDescribe(path dbus.ObjectPath, descs map[string]actionDescription) {
	f.handle(actionsKey(path, "Describe"), func(c recordedCall) ([]interface{}, error) {
		name, _ := c.args[0].(string)
		desc, ok := descs[name]
		if !ok {
			return []interface{}{actionDescription{Enabled: true}}, nil
		}
		return []interface{}{desc}, nil
	})
}

func group(g, m uint32, items ...map[string]dbus.Variant) menuGroup {
	return menuGroup{Group: g, Menu: m, Items: items}
}

func leaf(label, action string) map[string]dbus.Variant {
	return map[string]dbus.Variant{
		"label":  dbus.MakeVariant(label),
		"action": dbus.MakeVariant(action),
	}
}

func with(attrs map[string]dbus.Variant, key string, value interface{}) map[string]dbus.Variant {
	attrs[key] = dbus.MakeVariant(value)
	return attrs
}

func submenu(label string, g, m uint32) map[string]dbus.Variant {
	return map[string]dbus.Variant{
		"label":    dbus.MakeVariant(label),
		":submenu": dbus.MakeVariant([]interface{}{g, m}),
	}
}

func sectionRef(g, m uint32) map[string]dbus.Variant {
	return map[string]dbus.Variant{
		":section": dbus.MakeVariant([]interface{}{g, m}),
	}
}

func node(id int32, props map[string]dbus.Variant, children ...layoutNode) layoutNode {
	n := layoutNode{ID: id, Props: props}
	if n.Props == nil {
		n.Props = map[string]dbus.Variant{}
	}
	for _, c := range children {
		n.Children = append(n.Children, dbus.MakeVariant(c))
	}
	return n
}

func labelled(label string) map[string]dbus.Variant {
	return map[string]dbus.Variant{"label": dbus.MakeVariant(label)}
}
