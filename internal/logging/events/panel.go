package events

import "github.com/atomicstack/save-cloud/internal/logging"

type PanelTracer struct{}

var Panel = PanelTracer{}

func (PanelTracer) Dispatch(backend, path, name, action string) {
	logging.Trace("panel.dispatch", map[string]interface{}{
		"backend": backend,
		"path":    path,
		"name":    name,
		"action":  action,
	})
}

func (PanelTracer) Drop(backend, path, action string) {
	logging.Trace("panel.drop", map[string]interface{}{"backend": backend, "path": path, "action": action})
}

func (PanelTracer) Apply(action, name string, items int) {
	logging.Trace("panel.apply", map[string]interface{}{"action": action, "name": name, "items": items})
}

func (PanelTracer) Pop(depth int) {
	logging.Trace("panel.pop", map[string]interface{}{"depth": depth})
}

func (PanelTracer) ListingFailed(backend, path string, err error) {
	payload := map[string]interface{}{"backend": backend, "path": path}
	if err != nil {
		payload["error"] = err.Error()
	}
	logging.Trace("panel.listing-failed", payload)
}

func (PanelTracer) Root(devices []string) {
	logging.Trace("panel.root", map[string]interface{}{"devices": devices})
}
