package events

import "github.com/atomicstack/save-cloud/internal/logging"

type UITracer struct{}

type PromptTracer struct{}

type ActionTracer struct{}

type CommandTracer struct{}

var (
	UI      = UITracer{}
	Prompt  = PromptTracer{}
	Action  = ActionTracer{}
	Command = CommandTracer{}
)

func (UITracer) Screen(from, to string) {
	logging.Trace("ui.screen", map[string]interface{}{"from": from, "to": to})
}

func (UITracer) Buttons(key string, buttons uint32) {
	logging.Trace("ui.buttons", map[string]interface{}{"key": key, "buttons": buttons})
}

func (UITracer) Focus(panel int) {
	logging.Trace("ui.focus", map[string]interface{}{"panel": panel})
}

func (UITracer) MenuOpen(path string, actions []string) {
	logging.Trace("menu.open", map[string]interface{}{"path": path, "actions": actions})
}

func (UITracer) MenuClose() {
	logging.Trace("menu.close", nil)
}

func (UITracer) Jump(query string, index int) {
	logging.Trace("ui.jump", map[string]interface{}{"query": query, "index": index})
}

func (UITracer) Clipboard(err error) {
	payload := map[string]interface{}{}
	if err != nil {
		payload["error"] = err.Error()
	}
	logging.Trace("ui.clipboard", payload)
}

func (PromptTracer) Open(initial string) {
	logging.Trace("prompt.open", map[string]interface{}{"initial": initial})
}

func (PromptTracer) Submit(value string) {
	logging.Trace("prompt.submit", map[string]interface{}{"value": value})
}

func (PromptTracer) Cancel() {
	logging.Trace("prompt.cancel", nil)
}

func (PromptTracer) Confirm(message string, answer bool) {
	logging.Trace("prompt.confirm", map[string]interface{}{"message": message, "answer": answer})
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

func (CommandTracer) Queue(id, label string) {
	logging.Trace("command.queue", map[string]interface{}{"id": id, "label": label})
}

func (CommandTracer) Skip(id, label string) {
	logging.Trace("command.skip", map[string]interface{}{"id": id, "label": label})
}

func (CommandTracer) Result(id, label string, err error) {
	payload := map[string]interface{}{"id": id, "label": label}
	if err != nil {
		payload["error"] = err.Error()
	}
	logging.Trace("command.result", payload)
}

func (UITracer) Toast(message string) {
	logging.Trace("ui.toast", map[string]interface{}{"message": message})
}

func (UITracer) Loading(open bool, title string) {
	logging.Trace("ui.loading", map[string]interface{}{"open": open, "title": title})
}
