// Package bus wraps the D-Bus session connection used to reach remote menus.
//
// Menu models only see the Conn interface: addressed method calls plus
// signal subscriptions that are owned by the caller and released explicitly.
package bus

import (
	"context"
	"sync"

	"github.com/godbus/dbus/v5"
)

const (
	GtkMenusInterface   = "org.gtk.Menus"
	GtkActionsInterface = "org.gtk.Actions"

	DBusMenuInterface = "com.canonical.dbusmenu"

	RegistrarName      = "com.canonical.AppMenu.Registrar"
	RegistrarPath      = dbus.ObjectPath("/com/canonical/AppMenu/Registrar")
	RegistrarInterface = "com.canonical.AppMenu.Registrar"
)

// Conn is the object bus consumed by the menu models.
type Conn interface {
	// Call invokes iface.method on the object at (dest, path) and stores the
	// reply body into out.
	Call(ctx context.Context, dest string, path dbus.ObjectPath, iface, method string, args []interface{}, out ...interface{}) error
	// Subscribe registers fn for signals named iface.member emitted by dest
	// on path. fn runs on the connection's dispatch goroutine.
	Subscribe(dest string, path dbus.ObjectPath, iface, member string, fn func(*dbus.Signal)) (Subscription, error)
}

// Subscription is a live signal registration.
type Subscription interface {
	Cancel()
}

// Listeners is an owned collection of subscriptions released together.
type Listeners struct {
	mu   sync.Mutex
	subs []Subscription
}

// Add records a subscription for later release.
func (l *Listeners) Add(sub Subscription) {
	if sub == nil {
		return
	}
	l.mu.Lock()
	l.subs = append(l.subs, sub)
	l.mu.Unlock()
}

// Len reports the number of live subscriptions.
func (l *Listeners) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.subs)
}

// Release cancels every subscription and empties the collection. Calling it
// again is a no-op. It returns the number of subscriptions cancelled.
func (l *Listeners) Release() int {
	l.mu.Lock()
	subs := l.subs
	l.subs = nil
	l.mu.Unlock()
	for _, sub := range subs {
		sub.Cancel()
	}
	return len(subs)
}
