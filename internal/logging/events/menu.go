package events

import "github.com/atomicstack/menu-hud/internal/logging"

type GtkTracer struct{}

type AppMenuTracer struct{}

type ModelTracer struct{}

var (
	Gtk     = GtkTracer{}
	AppMenu = AppMenuTracer{}
	Model   = ModelTracer{}
)

func (GtkTracer) Refresh(busName string, sections, items int) {
	logging.Trace("gtk.refresh", map[string]interface{}{"busName": busName, "sections": sections, "items": items})
}

func (GtkTracer) SkipMenu(path string, err error) {
	logging.Trace("gtk.menu.skip", map[string]interface{}{"path": path, "error": errString(err)})
}

func (GtkTracer) Activate(action, target string) {
	logging.Trace("gtk.activate", map[string]interface{}{"action": action, "target": target})
}

func (GtkTracer) ActionsChanged(path string, removed, enabled, state, added int) {
	logging.Trace("gtk.actions.changed", map[string]interface{}{
		"path":    path,
		"removed": removed,
		"enabled": enabled,
		"state":   state,
		"added":   added,
	})
}

func (GtkTracer) MenusChanged(path string, changes int) {
	logging.Trace("gtk.menus.changed", map[string]interface{}{"path": path, "changes": changes})
}

func (AppMenuTracer) Lookup(xid uint32, busName, path string, err error) {
	logging.Trace("appmenu.lookup", map[string]interface{}{
		"xid":     xid,
		"busName": busName,
		"path":    path,
		"error":   errString(err),
	})
}

func (AppMenuTracer) Refresh(busName string, items int) {
	logging.Trace("appmenu.refresh", map[string]interface{}{"busName": busName, "items": items})
}

func (AppMenuTracer) Expand(id int32, children int) {
	logging.Trace("appmenu.expand", map[string]interface{}{"id": id, "children": children})
}

func (AppMenuTracer) Activate(id int32, label string) {
	logging.Trace("appmenu.activate", map[string]interface{}{"id": id, "label": label})
}

func (AppMenuTracer) Retry(label string, err error) {
	logging.Trace("appmenu.activate.retry", map[string]interface{}{"label": label, "error": errString(err)})
}

func (AppMenuTracer) PropertiesUpdated(updated, removed int) {
	logging.Trace("appmenu.properties.updated", map[string]interface{}{"updated": updated, "removed": removed})
}

func (AppMenuTracer) UnknownItem(id int32) {
	logging.Trace("appmenu.properties.unknown", map[string]interface{}{"id": id})
}

func (AppMenuTracer) LayoutUpdated(revision uint32, parent int32) {
	logging.Trace("appmenu.layout.updated", map[string]interface{}{"revision": revision, "parent": parent})
}

func (ModelTracer) Refresh(session, source string, items int) {
	logging.Trace("model.refresh", map[string]interface{}{"session": session, "source": source, "items": items})
}

func (ModelTracer) Empty(session, window string) {
	logging.Trace("model.empty", map[string]interface{}{"session": session, "window": window})
}

func (ModelTracer) Activate(session, source, key string) {
	logging.Trace("model.activate", map[string]interface{}{"session": session, "source": source, "key": key})
}

func (ModelTracer) Unroutable(session, key string, err error) {
	logging.Trace("model.activate.unroutable", map[string]interface{}{"session": session, "key": key, "error": errString(err)})
}

func (ModelTracer) Close(session string) {
	logging.Trace("model.close", map[string]interface{}{"session": session})
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
