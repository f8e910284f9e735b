// Package window reads the X11 window properties that advertise a window's
// exported menus.
package window

import (
	"errors"
	"fmt"
)

const (
	PropUniqueBusName   = "_GTK_UNIQUE_BUS_NAME"
	PropApplicationPath = "_GTK_APPLICATION_OBJECT_PATH"
	PropWindowPath      = "_GTK_WINDOW_OBJECT_PATH"
	PropMenubarPath     = "_GTK_MENUBAR_OBJECT_PATH"
	PropAppMenuPath     = "_GTK_APP_MENU_OBJECT_PATH"
)

// ErrNoProperty is returned when a window does not carry the requested property.
var ErrNoProperty = errors.New("window property not set")

// Window is a handle onto one observed top-level window.
type Window interface {
	// UTF8Prop returns a UTF-8 string property by name.
	UTF8Prop(name string) (string, error)
	// XID returns the native window handle.
	XID() uint32
	// AppName returns a human readable name for the owning application.
	AppName() (string, error)
}

// Static is a Window whose properties are known up front.
type Static struct {
	ID    uint32
	Name  string
	Props map[string]string
}

func (s Static) UTF8Prop(name string) (string, error) {
	v, ok := s.Props[name]
	if !ok || v == "" {
		return "", fmt.Errorf("%s: %w", name, ErrNoProperty)
	}
	return v, nil
}

func (s Static) XID() uint32 { return s.ID }

func (s Static) AppName() (string, error) {
	if s.Name == "" {
		return "", fmt.Errorf("application name: %w", ErrNoProperty)
	}
	return s.Name, nil
}

// Prop returns the named property or an empty string when it is missing.
func Prop(w Window, name string) string {
	if w == nil {
		return ""
	}
	v, err := w.UTF8Prop(name)
	if err != nil {
		return ""
	}
	return v
}
