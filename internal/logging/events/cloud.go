package events

import "github.com/atomicstack/save-cloud/internal/logging"

type CloudTracer struct{}

var Cloud = CloudTracer{}

func (CloudTracer) State(from, to string) {
	logging.Trace("cloud.state", map[string]interface{}{"from": from, "to": to})
}

func (CloudTracer) DeviceCode(userCode, url string) {
	logging.Trace("cloud.device-code", map[string]interface{}{"user_code": userCode, "url": url})
}

func (CloudTracer) Poll(attempt int, err error) {
	payload := map[string]interface{}{"attempt": attempt}
	if err != nil {
		payload["error"] = err.Error()
	}
	logging.Trace("cloud.poll", payload)
}

func (CloudTracer) PollerStopped(reason string) {
	logging.Trace("cloud.poller-stopped", map[string]interface{}{"reason": reason})
}

func (CloudTracer) Profile(name string, err error) {
	payload := map[string]interface{}{"name": name}
	if err != nil {
		payload["error"] = err.Error()
	}
	logging.Trace("cloud.profile", payload)
}

func (CloudTracer) Consumers(count int) {
	logging.Trace("cloud.consumers", map[string]interface{}{"count": count})
}

func (CloudTracer) Transfer(op, name string, size int64, err error) {
	payload := map[string]interface{}{"op": op, "name": name, "size": size}
	if err != nil {
		payload["error"] = err.Error()
	}
	logging.Trace("cloud.transfer", payload)
}
