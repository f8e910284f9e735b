package ui

import (
	"fmt"

	"github.com/atomicstack/menu-hud/internal/backend"
	"github.com/atomicstack/menu-hud/internal/logging"
	"github.com/atomicstack/menu-hud/internal/logging/events"
	"github.com/atomicstack/menu-hud/internal/menu"
	"github.com/atomicstack/menu-hud/internal/ui/command"
	tea "github.com/charmbracelet/bubbletea"
)

func (m *Model) handleActionResultMsg(msg tea.Msg) tea.Cmd {
	result, ok := msg.(command.Result)
	if !ok {
		return nil
	}
	if result.Key != m.pendingKey {
		return nil
	}
	m.loading = false
	m.pendingKey = ""
	m.pendingLabel = ""
	if result.Err != nil {
		logging.Error(result.Err)
		m.errMsg = result.Err.Error()
		m.forceClearInfo()
		events.Action.Error(result.Err)
		return nil
	}
	info := fmt.Sprintf("Activated %s", result.Label)
	if m.verbose {
		m.setInfo(info)
	} else {
		m.forceClearInfo()
	}
	m.activated = result.Key
	events.Action.Success(info)
	return tea.Quit
}

type backendEventMsg struct {
	event backend.Event
}

type backendDoneMsg struct{}

func waitForBackendEvent(w *backend.Watcher) tea.Cmd {
	if w == nil {
		return nil
	}
	return func() tea.Msg {
		evt, ok := <-w.Events()
		if !ok {
			return backendDoneMsg{}
		}
		return backendEventMsg{event: evt}
	}
}

func (m *Model) handleBackendEventMsg(msg tea.Msg) tea.Cmd {
	evt, ok := msg.(backendEventMsg)
	if !ok {
		return nil
	}
	m.applyBackendEvent(evt.event)
	return waitForBackendEvent(m.backend)
}

func (m *Model) handleBackendDoneMsg(tea.Msg) tea.Cmd {
	m.backend = nil
	return nil
}

func (m *Model) applyBackendEvent(evt backend.Event) {
	if evt.Err != nil {
		m.errMsg = evt.Err.Error()
	} else if !m.loading {
		m.errMsg = ""
	}
	entries := entriesFrom(evt.Items, evt.Accels)
	m.categories = m.source.TopLevelMenus()
	m.level.UpdateItems(entries)
	m.syncViewport(m.level)
	events.UI.Reload(len(entries))
	if len(entries) == 0 {
		m.setInfo(menu.EmptyNotice)
	} else if m.infoMsg == menu.EmptyNotice {
		m.forceClearInfo()
	}
}
