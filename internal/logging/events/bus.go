package events

import "github.com/atomicstack/menu-hud/internal/logging"

type BusTracer struct{}

var Bus = BusTracer{}

func (BusTracer) Call(dest, path, method string, err error) {
	payload := map[string]interface{}{"dest": dest, "path": path, "method": method}
	if err != nil {
		payload["error"] = err.Error()
	}
	logging.Trace("bus.call", payload)
}

func (BusTracer) Subscribe(path, iface, member string) {
	logging.Trace("bus.subscribe", map[string]interface{}{"path": path, "interface": iface, "member": member})
}

func (BusTracer) Unsubscribe(path, iface, member string) {
	logging.Trace("bus.unsubscribe", map[string]interface{}{"path": path, "interface": iface, "member": member})
}

func (BusTracer) Dropped(path, name string) {
	logging.Trace("bus.signal.dropped", map[string]interface{}{"path": path, "name": name})
}
