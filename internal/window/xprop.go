package window

import (
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

type commander interface {
	Output() ([]byte, error)
}

var runExecCommand = func(name string, args ...string) commander {
	return exec.Command(name, args...)
}

// XWindow reads properties through the xprop utility.
type XWindow struct {
	id uint32
}

// FromID parses a window id in decimal or 0x-prefixed hex form.
func FromID(raw string) (*XWindow, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, fmt.Errorf("empty window id")
	}
	id, err := strconv.ParseUint(trimmed, 0, 32)
	if err != nil {
		return nil, fmt.Errorf("parse window id %q: %w", raw, err)
	}
	return &XWindow{id: uint32(id)}, nil
}

// Active returns the window currently focused according to _NET_ACTIVE_WINDOW.
func Active() (*XWindow, error) {
	out, err := runExecCommand("xprop", "-root", "_NET_ACTIVE_WINDOW").Output()
	if err != nil {
		return nil, fmt.Errorf("xprop -root _NET_ACTIVE_WINDOW: %w", err)
	}
	line := strings.TrimSpace(string(out))
	idx := strings.LastIndex(line, "#")
	if idx < 0 {
		return nil, fmt.Errorf("unexpected xprop output %q", line)
	}
	fields := strings.FieldsFunc(line[idx+1:], func(r rune) bool { return r == ',' || r == ' ' })
	if len(fields) == 0 {
		return nil, fmt.Errorf("unexpected xprop output %q", line)
	}
	w, err := FromID(fields[0])
	if err != nil {
		return nil, err
	}
	if w.id == 0 {
		return nil, fmt.Errorf("no active window")
	}
	return w, nil
}

func (w *XWindow) XID() uint32 { return w.id }

func (w *XWindow) UTF8Prop(name string) (string, error) {
	values, err := w.strings(name)
	if err != nil {
		return "", err
	}
	return values[0], nil
}

// AppName prefers the WM_CLASS class name and falls back to the window title.
func (w *XWindow) AppName() (string, error) {
	if values, err := w.strings("WM_CLASS"); err == nil {
		return values[len(values)-1], nil
	}
	return w.UTF8Prop("_NET_WM_NAME")
}

func (w *XWindow) strings(name string) ([]string, error) {
	out, err := runExecCommand("xprop", "-id", fmt.Sprintf("0x%x", w.id), name).Output()
	if err != nil {
		return nil, fmt.Errorf("xprop %s: %w", name, err)
	}
	values := parseXprop(string(out))
	if len(values) == 0 || values[0] == "" {
		return nil, fmt.Errorf("%s: %w", name, ErrNoProperty)
	}
	return values, nil
}

// parseXprop extracts the quoted values of a single `NAME(TYPE) = "a", "b"` line.
func parseXprop(output string) []string {
	line := strings.TrimSpace(output)
	idx := strings.Index(line, " = ")
	if idx < 0 {
		return nil
	}
	rest := strings.TrimSpace(line[idx+3:])
	values := []string{}
	for rest != "" {
		if rest[0] != '"' {
			break
		}
		end := 1
		for end < len(rest) {
			if rest[end] == '\\' {
				end += 2
				continue
			}
			if rest[end] == '"' {
				break
			}
			end++
		}
		if end >= len(rest) {
			break
		}
		value, err := strconv.Unquote(rest[:end+1])
		if err != nil {
			value = rest[1:end]
		}
		values = append(values, value)
		rest = strings.TrimLeft(rest[end+1:], ", ")
	}
	return values
}
