package app

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/atomicstack/menu-hud/internal/bus"
	"github.com/atomicstack/menu-hud/internal/logging"
	"github.com/atomicstack/menu-hud/internal/menu"
	"github.com/atomicstack/menu-hud/internal/ui"
	"github.com/atomicstack/menu-hud/internal/window"
	"github.com/godbus/dbus/v5"
)

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "menu-hud-app")
	if err == nil {
		logging.Configure(filepath.Join(dir, "test.log"))
	}
	code := m.Run()
	if dir != "" {
		_ = os.RemoveAll(dir)
	}
	os.Exit(code)
}

type fakeSub struct{}

func (fakeSub) Cancel() {}

// fakeConn answers calls by interface and method with a raw reply body that
// is decoded the same way a bus reply is.
type fakeConn struct {
	replies map[string][]interface{}
	calls   []string
	closed  int
}

func (f *fakeConn) Call(_ context.Context, _ string, _ dbus.ObjectPath, iface, method string, _ []interface{}, out ...interface{}) error {
	key := iface + "." + method
	f.calls = append(f.calls, key)
	reply, ok := f.replies[key]
	if !ok {
		return errors.New("no reply for " + key)
	}
	if len(out) == 0 {
		return nil
	}
	return dbus.Store(reply, out...)
}

func (f *fakeConn) Subscribe(string, dbus.ObjectPath, string, string, func(*dbus.Signal)) (bus.Subscription, error) {
	return fakeSub{}, nil
}

func (f *fakeConn) Close() error {
	f.closed++
	return nil
}

func attrs(kv ...interface{}) map[string]dbus.Variant {
	out := make(map[string]dbus.Variant, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		out[kv[i].(string)] = dbus.MakeVariant(kv[i+1])
	}
	return out
}

func editorConn() *fakeConn {
	groups := [][]interface{}{
		{uint32(0), uint32(0), []map[string]dbus.Variant{
			attrs("label", "_File", ":submenu", []interface{}{uint32(0), uint32(1)}),
		}},
		{uint32(0), uint32(1), []map[string]dbus.Variant{
			attrs("label", "_Open", "action", "app.open", "accel", "<Primary>o"),
			attrs("label", "Quit", "action", "app.quit"),
		}},
	}
	return &fakeConn{replies: map[string][]interface{}{
		bus.GtkMenusInterface + ".Start": {groups},
		bus.GtkMenusInterface + ".End":   {},
	}}
}

func editorWindow() window.Static {
	return window.Static{
		ID:   0x3a00007,
		Name: "Editor",
		Props: map[string]string{
			window.PropUniqueBusName:   ":1.42",
			window.PropApplicationPath: "/org/example/app",
			window.PropMenubarPath:     "/org/example/menus/menubar",
		},
	}
}

func stubRuntime(t *testing.T, conn *fakeConn, win window.Window) *[]string {
	t.Helper()
	origOpen, origLookup, origRun := openBus, lookupWindow, runProgram
	t.Cleanup(func() {
		openBus, lookupWindow, runProgram = origOpen, origLookup, origRun
	})
	var requested []string
	openBus = func(string, time.Duration) (busConn, error) { return conn, nil }
	lookupWindow = func(id string) (window.Window, error) {
		requested = append(requested, id)
		return win, nil
	}
	runProgram = func(*ui.Model) error {
		t.Fatalf("interactive mode should not start")
		return nil
	}
	return &requested
}

func TestRunDumpRendersTree(t *testing.T) {
	conn := editorConn()
	requested := stubRuntime(t, conn, editorWindow())

	var out bytes.Buffer
	if err := run(context.Background(), Config{Dump: true, WindowID: "0x3a00007"}, &out); err != nil {
		t.Fatalf("run: %v", err)
	}
	want := "Root\n  File\n    Open [app.open] <Primary+o>\n    Quit [app.quit]\n"
	if out.String() != want {
		t.Fatalf("unexpected dump:\n%s\nwant:\n%s", out.String(), want)
	}
	if len(*requested) != 1 || (*requested)[0] != "0x3a00007" {
		t.Fatalf("expected window id to be passed through, got %v", *requested)
	}
	if conn.closed != 1 {
		t.Fatalf("expected bus to be closed once, got %d", conn.closed)
	}
}

func TestRunListFormatsTable(t *testing.T) {
	stubRuntime(t, editorConn(), editorWindow())

	var out bytes.Buffer
	if err := run(context.Background(), Config{List: true}, &out); err != nil {
		t.Fatalf("run: %v", err)
	}
	lines := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header plus two rows, got %q", lines)
	}
	if !strings.HasPrefix(lines[0], "ITEM") || !strings.Contains(lines[0], "ACTION") {
		t.Fatalf("unexpected header %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "File > Open") || !strings.Contains(lines[1], "Primary+o") {
		t.Fatalf("unexpected row %q", lines[1])
	}
}

func TestRunQueryRanksKeys(t *testing.T) {
	stubRuntime(t, editorConn(), editorWindow())

	var out bytes.Buffer
	if err := run(context.Background(), Config{Query: "quit"}, &out); err != nil {
		t.Fatalf("run: %v", err)
	}
	if got := strings.TrimSpace(out.String()); got != "File > Quit" {
		t.Fatalf("unexpected query result %q", got)
	}
}

func TestRunReportsMissingMenu(t *testing.T) {
	conn := &fakeConn{replies: map[string][]interface{}{}}
	stubRuntime(t, conn, window.Static{ID: 1, Name: "Terminal"})

	var out bytes.Buffer
	err := run(context.Background(), Config{Dump: true}, &out)
	if !errors.Is(err, menu.ErrNoMenu) {
		t.Fatalf("expected ErrNoMenu, got %v", err)
	}
	if !strings.Contains(err.Error(), "Terminal") {
		t.Fatalf("expected window name in error, got %v", err)
	}
	if out.Len() != 0 {
		t.Fatalf("expected no output, got %q", out.String())
	}
}

func TestRunStartsHUD(t *testing.T) {
	stubRuntime(t, editorConn(), editorWindow())
	var started *ui.Model
	runProgram = func(m *ui.Model) error {
		started = m
		return nil
	}
	if err := run(context.Background(), Config{Interval: time.Hour}, &bytes.Buffer{}); err != nil {
		t.Fatalf("run: %v", err)
	}
	if started == nil {
		t.Fatalf("expected HUD to start")
	}
	if !strings.Contains(started.View(), "File > Open") {
		t.Fatalf("expected menu entries in HUD view:\n%s", started.View())
	}
}

func TestRunPropagatesBusFailure(t *testing.T) {
	stubRuntime(t, editorConn(), editorWindow())
	openBus = func(string, time.Duration) (busConn, error) {
		return nil, errors.New("no session bus")
	}
	if err := run(context.Background(), Config{Dump: true}, &bytes.Buffer{}); err == nil {
		t.Fatalf("expected bus failure to propagate")
	}
}
