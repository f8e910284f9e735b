package events

import "github.com/atomicstack/menu-hud/internal/logging"

type UITracer struct{}

type FilterTracer struct{}

type ActionTracer struct{}

type CommandTracer struct{}

type WatcherTracer struct{}

var (
	UI      = UITracer{}
	Filter  = FilterTracer{}
	Action  = ActionTracer{}
	Command = CommandTracer{}
	Watcher = WatcherTracer{}
)

func (UITracer) Open(prompt string, entries int) {
	logging.Trace("hud.open", map[string]interface{}{"prompt": prompt, "entries": entries})
}

func (UITracer) Cursor(cursor int) {
	logging.Trace("hud.cursor", map[string]interface{}{"cursor": cursor})
}

func (UITracer) Enter(key, filter string) {
	logging.Trace("hud.enter", map[string]interface{}{"key": key, "filter": filter})
}

func (UITracer) Reload(entries int) {
	logging.Trace("hud.reload", map[string]interface{}{"entries": entries})
}

func (UITracer) Cancel() {
	logging.Trace("hud.cancel", nil)
}

func (ActionTracer) Error(err error) {
	if err == nil {
		return
	}
	logging.Trace("action.error", map[string]interface{}{"error": err.Error()})
}

func (ActionTracer) Success(info string) {
	logging.Trace("action.success", map[string]interface{}{"info": info})
}

func (FilterTracer) Changed(filter string, matches int) {
	logging.Trace("filter.changed", map[string]interface{}{"filter": filter, "matches": matches})
}

func (FilterTracer) Cursor(pos int) {
	logging.Trace("filter.cursor", map[string]interface{}{"cursor": pos})
}

func (FilterTracer) Cleared() {
	logging.Trace("filter.clear", nil)
}

func (CommandTracer) Queue(key string) {
	logging.Trace("command.queue", map[string]interface{}{"key": key})
}

func (CommandTracer) Result(key string, err error) {
	logging.Trace("command.result", map[string]interface{}{"key": key, "error": errString(err)})
}

func (WatcherTracer) Refresh(err error) {
	logging.Trace("watcher.refresh", map[string]interface{}{"error": errString(err)})
}

func (WatcherTracer) Changed(items int) {
	logging.Trace("watcher.changed", map[string]interface{}{"items": items})
}
