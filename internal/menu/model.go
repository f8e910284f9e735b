// Package menu rebuilds the menu of a running window into one tree of
// selectable items.
//
// Two protocols are supported. GtkModel reads org.gtk.Menus and
// org.gtk.Actions; AppMenuModel reads a com.canonical.dbusmenu layout found
// through the AppMenu registrar. Model owns one of each for a window and
// answers every query from whichever protocol has data, GTK first.
//
// Trees are rebuilt by Refresh and patched in place by change signals
// delivered on the bus dispatch goroutine; each leaf model serializes both
// paths behind its own mutex.
package menu

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/atomicstack/menu-hud/internal/bus"
	"github.com/atomicstack/menu-hud/internal/logging"
	"github.com/atomicstack/menu-hud/internal/logging/events"
	"github.com/atomicstack/menu-hud/internal/window"
	"github.com/google/uuid"
	"github.com/lithammer/fuzzysearch/fuzzy"
)

// EmptyNotice is reported when neither protocol yields any menu item.
const EmptyNotice = "No menu items available!"

// protocol is the capability set shared by the two leaf models.
type protocol interface {
	Refresh(ctx context.Context) error
	Activate(ctx context.Context, key string) error
	HasAction(key string) bool
	Actions() map[string]ActionID
	Items() []Item
	Tree() *Tree
	TopLevelMenus() []string
	Accels() map[ActionID]string
	RemoveListeners()
}

// Notifier receives user-visible diagnostics tagged with the window name.
type Notifier func(windowName, message string)

// Option configures a Model.
type Option func(*Model)

// WithNotifier replaces the default diagnostic sink.
func WithNotifier(fn Notifier) Option {
	return func(m *Model) {
		if fn != nil {
			m.notify = fn
		}
	}
}

// Model merges the GTK and dbusmenu views of one window.
type Model struct {
	gtk     protocol
	appmenu protocol
	win     window.Window
	session string
	notify  Notifier

	closeOnce sync.Once
}

// NewModel builds both protocol models for win. Close must be called once the
// window is no longer observed.
func NewModel(ctx context.Context, conn bus.Conn, win window.Window, opts ...Option) *Model {
	m := &Model{
		win:     win,
		session: uuid.NewString(),
		notify:  defaultNotifier,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.gtk = NewGtkModel(conn, win)
	m.appmenu = NewAppMenuModel(ctx, conn, win)
	return m
}

func newModelFrom(gtk, appmenu protocol, win window.Window, opts ...Option) *Model {
	m := &Model{
		gtk:     gtk,
		appmenu: appmenu,
		win:     win,
		session: uuid.NewString(),
		notify:  defaultNotifier,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func defaultNotifier(windowName, message string) {
	logging.Warn("(%s) %s", windowName, message)
}

// Refresh rebuilds the GTK menu and falls back to the dbusmenu layout only
// when GTK produced no items.
func (m *Model) Refresh(ctx context.Context) error {
	if m.gtk != nil {
		if err := m.gtk.Refresh(ctx); err != nil {
			logging.Error(err)
		}
		if n := len(m.gtk.Items()); n > 0 {
			events.Model.Refresh(m.session, "gtk", n)
			return nil
		}
	}
	if m.appmenu == nil {
		return nil
	}
	if err := m.appmenu.Refresh(ctx); err != nil {
		return err
	}
	events.Model.Refresh(m.session, "dbusmenu", len(m.appmenu.Items()))
	return nil
}

// Actions returns the display key to action mapping of the active protocol.
// An empty result emits a diagnostic on every call.
func (m *Model) Actions() map[string]ActionID {
	if m.gtk != nil {
		if actions := m.gtk.Actions(); len(actions) > 0 {
			return actions
		}
	}
	if m.appmenu != nil {
		if actions := m.appmenu.Actions(); len(actions) > 0 {
			return actions
		}
	}
	m.handleEmpty()
	return map[string]ActionID{}
}

// Keys returns the display keys of the active protocol in menu order.
func (m *Model) Keys() []string {
	actions := m.Actions()
	keys := make([]string, 0, len(actions))
	seen := make(map[string]bool, len(actions))
	for _, item := range m.Items() {
		key := item.Text()
		if _, ok := actions[key]; ok && !seen[key] {
			seen[key] = true
			keys = append(keys, key)
		}
	}
	return keys
}

// Items returns the concrete items of the active protocol.
func (m *Model) Items() []Item {
	for _, p := range m.protocols() {
		if items := p.Items(); len(items) > 0 {
			return items
		}
	}
	return nil
}

// Tree returns the menu tree of the active protocol.
func (m *Model) Tree() *Tree {
	for _, p := range m.protocols() {
		if t := p.Tree(); t.Len() > 0 {
			return t
		}
	}
	return NewTree()
}

// TopLevelMenus returns the category headers of the active protocol.
func (m *Model) TopLevelMenus() []string {
	for _, p := range m.protocols() {
		if names := p.TopLevelMenus(); len(names) > 0 {
			return names
		}
	}
	return nil
}

// Accels returns the accelerators of the active protocol, if it has any.
func (m *Model) Accels() map[ActionID]string {
	for _, p := range m.protocols() {
		if accels := p.Accels(); len(accels) > 0 {
			return accels
		}
	}
	return map[ActionID]string{}
}

// Activate runs the action registered under key. Keys unknown to both
// protocols and GTK actions in a namespace without a remote object are
// ignored.
func (m *Model) Activate(ctx context.Context, key string) error {
	switch {
	case m.gtk != nil && m.gtk.HasAction(key):
		events.Model.Activate(m.session, "gtk", key)
		err := m.gtk.Activate(ctx, key)
		if errors.Is(err, ErrNoTarget) {
			events.Model.Unroutable(m.session, key, err)
			return nil
		}
		return err
	case m.appmenu != nil && m.appmenu.HasAction(key):
		events.Model.Activate(m.session, "dbusmenu", key)
		return m.appmenu.Activate(ctx, key)
	}
	return nil
}

// Search ranks the display keys against query. An empty query returns every
// key in menu order.
func (m *Model) Search(query string) []string {
	keys := m.Keys()
	query = strings.TrimSpace(query)
	if query == "" {
		return keys
	}
	ranks := fuzzy.RankFindNormalizedFold(query, keys)
	sort.SliceStable(ranks, func(i, j int) bool {
		if ranks[i].Distance != ranks[j].Distance {
			return ranks[i].Distance < ranks[j].Distance
		}
		return ranks[i].OriginalIndex < ranks[j].OriginalIndex
	})
	out := make([]string, 0, len(ranks))
	for _, r := range ranks {
		out = append(out, r.Target)
	}
	return out
}

// Stale reports whether either protocol announced a change that only a full
// Refresh can pick up.
func (m *Model) Stale() bool {
	for _, p := range m.protocols() {
		if s, ok := p.(interface{ Stale() bool }); ok && s.Stale() {
			return true
		}
	}
	return false
}

// Prompt returns the display name of the observed window, or an empty
// string when it cannot be determined.
func (m *Model) Prompt() string {
	if m.win == nil {
		return ""
	}
	name, err := m.win.AppName()
	if err != nil {
		return ""
	}
	return name
}

// Close releases the signal subscriptions of both protocol models. Only the
// first call has an effect.
func (m *Model) Close() {
	m.closeOnce.Do(func() {
		if m.appmenu != nil {
			m.appmenu.RemoveListeners()
		}
		if m.gtk != nil {
			m.gtk.RemoveListeners()
		}
		events.Model.Close(m.session)
	})
}

func (m *Model) protocols() []protocol {
	out := make([]protocol, 0, 2)
	if m.gtk != nil {
		out = append(out, m.gtk)
	}
	if m.appmenu != nil {
		out = append(out, m.appmenu)
	}
	return out
}

func (m *Model) handleEmpty() {
	name := m.Prompt()
	events.Model.Empty(m.session, name)
	m.notify(name, EmptyNotice)
}
