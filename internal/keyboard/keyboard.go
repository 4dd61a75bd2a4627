// Package keyboard lets background workers ask the user for text or a yes/no
// answer. Workers block; the UI answers on its own loop.
package keyboard

import (
	"sync"

	"github.com/atomicstack/save-cloud/internal/logging/events"
)

// Prompter is what workers talk to. Prompt returns "" when the user cancels.
type Prompter interface {
	Prompt(initial string) string
	Confirm(msg string) bool
}

// Kind tells the UI which form to show.
type Kind int

const (
	KindPrompt Kind = iota
	KindConfirm
)

// Request is one question waiting for the UI.
type Request struct {
	Kind    Kind
	Message string
	Initial string
	reply   chan reply
}

type reply struct {
	text string
	ok   bool
}

// Broker queues questions from workers until the UI answers them.
type Broker struct {
	mu     sync.Mutex
	queue  []*Request
	closed bool
}

var _ Prompter = (*Broker)(nil)

func NewBroker() *Broker {
	return &Broker{}
}

func (b *Broker) ask(req *Request) reply {
	req.reply = make(chan reply, 1)
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return reply{}
	}
	b.queue = append(b.queue, req)
	b.mu.Unlock()
	if req.Kind == KindPrompt {
		events.Prompt.Open(req.Initial)
	}
	return <-req.reply
}

// Prompt blocks until the UI submits text or cancels.
func (b *Broker) Prompt(initial string) string {
	r := b.ask(&Request{Kind: KindPrompt, Initial: initial})
	if !r.ok {
		return ""
	}
	return r.text
}

// Confirm blocks until the UI accepts or declines msg.
func (b *Broker) Confirm(msg string) bool {
	return b.ask(&Request{Kind: KindConfirm, Message: msg}).ok
}

// Pending returns the oldest unanswered question.
func (b *Broker) Pending() (*Request, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.queue) == 0 {
		return nil, false
	}
	return b.queue[0], true
}

// Answer resolves req. ok=false cancels a prompt or declines a confirm.
func (b *Broker) Answer(req *Request, text string, ok bool) {
	b.mu.Lock()
	for i, queued := range b.queue {
		if queued == req {
			b.queue = append(b.queue[:i], b.queue[i+1:]...)
			break
		}
	}
	b.mu.Unlock()
	switch {
	case req.Kind == KindConfirm:
		events.Prompt.Confirm(req.Message, ok)
	case ok:
		events.Prompt.Submit(text)
	default:
		events.Prompt.Cancel()
	}
	req.reply <- reply{text: text, ok: ok}
}

// Close cancels every waiting question and makes later ones return at once.
func (b *Broker) Close() {
	b.mu.Lock()
	pending := b.queue
	b.queue = nil
	b.closed = true
	b.mu.Unlock()
	for _, req := range pending {
		req.reply <- reply{}
	}
}
