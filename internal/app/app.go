// Package app wires the bus connection, the observed window and the menu
// model into one of the output modes.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/atomicstack/menu-hud/internal/backend"
	"github.com/atomicstack/menu-hud/internal/bus"
	"github.com/atomicstack/menu-hud/internal/format/table"
	"github.com/atomicstack/menu-hud/internal/logging"
	"github.com/atomicstack/menu-hud/internal/logging/events"
	"github.com/atomicstack/menu-hud/internal/menu"
	"github.com/atomicstack/menu-hud/internal/ui"
	"github.com/atomicstack/menu-hud/internal/window"
	tea "github.com/charmbracelet/bubbletea"
)

// Config describes user-provided application options.
type Config struct {
	BusAddress string
	WindowID   string
	Timeout    time.Duration
	Interval   time.Duration
	Width      int
	Height     int
	ShowFooter bool
	Verbose    bool
	Dump       bool
	List       bool
	Query      string
}

type busConn interface {
	bus.Conn
	Close() error
}

var openBus = func(address string, timeout time.Duration) (busConn, error) {
	s, err := bus.Open(address, timeout)
	if err != nil {
		return nil, err
	}
	return s, nil
}

var lookupWindow = func(id string) (window.Window, error) {
	if strings.TrimSpace(id) != "" {
		w, err := window.FromID(id)
		if err != nil {
			return nil, err
		}
		return w, nil
	}
	w, err := window.Active()
	if err != nil {
		return nil, err
	}
	return w, nil
}

var runProgram = func(model *ui.Model) error {
	program := tea.NewProgram(model, tea.WithAltScreen())
	_, err := program.Run()
	if errors.Is(err, tea.ErrProgramKilled) {
		return nil
	}
	return err
}

// Run bootstraps the menu model and executes the selected output mode.
func Run(cfg Config) error {
	return run(context.Background(), cfg, os.Stdout)
}

func run(ctx context.Context, cfg Config, out io.Writer) (err error) {
	defer func() { events.App.Exit(err) }()

	conn, err := openBus(cfg.BusAddress, cfg.Timeout)
	if err != nil {
		return err
	}
	defer conn.Close()

	win, err := lookupWindow(cfg.WindowID)
	if err != nil {
		return fmt.Errorf("resolve window: %w", err)
	}
	events.App.Window(win.XID(), window.Prop(win, window.PropUniqueBusName))

	model := menu.NewModel(ctx, conn, win)
	defer model.Close()
	refreshErr := model.Refresh(ctx)

	switch {
	case cfg.Dump:
		return writeDump(out, model, refreshErr)
	case cfg.List:
		return writeList(out, model, refreshErr)
	case cfg.Query != "":
		return writeQuery(out, model, cfg.Query, refreshErr)
	}

	if refreshErr != nil {
		logging.Error(refreshErr)
	}
	watcher := backend.NewWatcher(model, cfg.Interval)
	defer watcher.Stop()
	hud := ui.NewModel(ctx, model, cfg.Width, cfg.Height, cfg.ShowFooter, cfg.Verbose, watcher)
	return runProgram(hud)
}

func ensureMenu(model *menu.Model, refreshErr error) error {
	if refreshErr != nil {
		return fmt.Errorf("refresh menu: %w", refreshErr)
	}
	if len(model.Items()) == 0 {
		name := model.Prompt()
		if name == "" {
			name = "window"
		}
		return fmt.Errorf("%s: %w", name, menu.ErrNoMenu)
	}
	return nil
}

func writeDump(out io.Writer, model *menu.Model, refreshErr error) error {
	if err := ensureMenu(model, refreshErr); err != nil {
		return err
	}
	_, err := io.WriteString(out, model.Tree().Render())
	return err
}

func writeList(out io.Writer, model *menu.Model, refreshErr error) error {
	if err := ensureMenu(model, refreshErr); err != nil {
		return err
	}
	items := model.Items()
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		if item.Separator || item.Label == "" {
			continue
		}
		rows = append(rows, []string{item.Text(), string(item.Action), item.Accel, stateOf(item)})
	}
	columns := []table.Column{
		{Title: "ITEM", Max: 60},
		{Title: "ACTION"},
		{Title: "ACCEL"},
		{Title: "STATE"},
	}
	for _, line := range table.Format(rows, columns) {
		if _, err := fmt.Fprintln(out, line); err != nil {
			return err
		}
	}
	return nil
}

func writeQuery(out io.Writer, model *menu.Model, query string, refreshErr error) error {
	if err := ensureMenu(model, refreshErr); err != nil {
		return err
	}
	for _, key := range model.Search(query) {
		if _, err := fmt.Fprintln(out, key); err != nil {
			return err
		}
	}
	return nil
}

func stateOf(item menu.Item) string {
	var parts []string
	if !item.Enabled {
		parts = append(parts, "disabled")
	}
	if item.Checked != menu.ToggleOff {
		parts = append(parts, item.Checked.String())
	}
	return strings.Join(parts, ",")
}
