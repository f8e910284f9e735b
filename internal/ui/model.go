package ui

import (
	"context"
	"reflect"
	"strings"
	"time"

	"github.com/atomicstack/menu-hud/internal/backend"
	"github.com/atomicstack/menu-hud/internal/logging/events"
	"github.com/atomicstack/menu-hud/internal/menu"
	"github.com/atomicstack/menu-hud/internal/theme"
	"github.com/atomicstack/menu-hud/internal/ui/command"
	uistate "github.com/atomicstack/menu-hud/internal/ui/state"
	"github.com/charmbracelet/bubbles/cursor"
	tea "github.com/charmbracelet/bubbletea"
)

type level = uistate.Level

const defaultTitle = "menu"

var styles = theme.Default()

type msgHandler func(tea.Msg) tea.Cmd

// Menu is the query and activation surface the HUD drives.
type Menu interface {
	Items() []menu.Item
	Accels() map[menu.ActionID]string
	Activate(ctx context.Context, key string) error
	Prompt() string
	TopLevelMenus() []string
}

// Model implements the Bubble Tea model for the menu HUD.
type Model struct {
	ctx    context.Context
	source Menu
	level  *level
	title  string
	// categories are the top-level menu names shown beside the title.
	categories []string

	loading           bool
	pendingKey        string
	pendingLabel      string
	errMsg            string
	infoMsg           string
	infoExpire        time.Time
	width             int
	height            int
	fixedWidth        bool
	fixedHeight       bool
	backend           *backend.Watcher
	showFooter        bool
	verbose           bool
	filterCursor      cursor.Model
	filterCursorDirty bool
	activated         string

	handlers map[reflect.Type]msgHandler

	bus *command.Bus
}

// NewModel builds the HUD over the items currently held by source.
func NewModel(ctx context.Context, source Menu, width, height int, showFooter, verbose bool, watcher *backend.Watcher) *Model {
	if ctx == nil {
		ctx = context.Background()
	}
	title := strings.TrimSpace(source.Prompt())
	if title == "" {
		title = defaultTitle
	}
	entries := entriesFrom(source.Items(), source.Accels())
	m := &Model{
		ctx:        ctx,
		source:     source,
		level:      uistate.NewLevel(title, entries),
		title:      title,
		categories: source.TopLevelMenus(),
		bus:        command.New(),
		backend:    watcher,
		showFooter: showFooter,
		verbose:    verbose,
	}
	if width > 0 {
		m.width = width
		m.fixedWidth = true
	}
	if height > 0 {
		m.height = height
		m.fixedHeight = true
	}
	c := cursor.New()
	if styles.Cursor != nil {
		c.Style = styles.Cursor.Copy()
	}
	if styles.Filter != nil {
		c.TextStyle = styles.Filter.Copy()
	}
	c.SetChar(" ")
	m.filterCursor = c
	if len(entries) == 0 {
		m.setInfo(menu.EmptyNotice)
	}
	m.syncViewport(m.level)
	m.registerHandlers()
	events.UI.Open(title, len(entries))
	return m
}

// Activated returns the display key of the item activated before the
// program quit, or an empty string.
func (m *Model) Activated() string {
	return m.activated
}

// Init is part of the tea.Model interface.
func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{}
	if m.backend != nil {
		cmds = append(cmds, waitForBackendEvent(m.backend))
	}
	if cmd := m.filterCursor.Focus(); cmd != nil {
		cmds = append(cmds, cmd)
	}
	if len(cmds) == 0 {
		return nil
	}
	return tea.Batch(cmds...)
}

// Update responds to Bubble Tea messages.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	cmds := make([]tea.Cmd, 0, 4)
	if cmd := m.updateFilterCursorModel(msg); cmd != nil {
		cmds = append(cmds, cmd)
	}
	if handler := m.handlerFor(msg); handler != nil {
		if cmd := handler(msg); cmd != nil {
			cmds = append(cmds, cmd)
		}
	}
	return m, m.finishUpdate(cmds)
}

func (m *Model) registerHandlers() {
	m.handlers = map[reflect.Type]msgHandler{
		reflect.TypeOf(tea.KeyMsg{}):        m.handleKeyMsg,
		reflect.TypeOf(tea.WindowSizeMsg{}): m.handleWindowSizeMsg,
		reflect.TypeOf(command.Result{}):    m.handleActionResultMsg,
		reflect.TypeOf(backendEventMsg{}):   m.handleBackendEventMsg,
		reflect.TypeOf(backendDoneMsg{}):    m.handleBackendDoneMsg,
	}
}

func (m *Model) handlerFor(msg tea.Msg) msgHandler {
	if msg == nil || m.handlers == nil {
		return nil
	}
	t := reflect.TypeOf(msg)
	if handler, ok := m.handlers[t]; ok {
		return handler
	}
	if t.Kind() == reflect.Ptr {
		if handler, ok := m.handlers[t.Elem()]; ok {
			return handler
		}
	}
	return nil
}

func (m *Model) finishUpdate(cmds []tea.Cmd) tea.Cmd {
	if m.filterCursorDirty {
		m.filterCursorDirty = false
		m.filterCursor.Blink = false
		if cmd := m.filterCursor.BlinkCmd(); cmd != nil {
			cmds = append(cmds, cmd)
		}
	}
	if len(cmds) == 0 {
		return nil
	}
	return tea.Batch(cmds...)
}
