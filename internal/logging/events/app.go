package events

import "github.com/atomicstack/save-cloud/internal/logging"

type AppTracer struct{}

var App = AppTracer{}

func (AppTracer) Start(payload map[string]interface{}) {
	logging.Trace("app.start", payload)
}

func (AppTracer) Stop(err error) {
	payload := map[string]interface{}{}
	if err != nil {
		payload["error"] = err.Error()
	}
	logging.Trace("app.stop", payload)
}

func (AppTracer) Approve(userCode string) {
	logging.Trace("app.approve", map[string]interface{}{"user_code": userCode})
}
