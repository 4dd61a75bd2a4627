package testutil

import "sync"

// Prompter answers keyboard questions from scripted queues. An exhausted
// queue cancels prompts and declines confirmations.
type Prompter struct {
	mu       sync.Mutex
	Answers  []string
	Confirms []bool
	Initials []string
	Messages []string
}

func (p *Prompter) Prompt(initial string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Initials = append(p.Initials, initial)
	if len(p.Answers) == 0 {
		return ""
	}
	answer := p.Answers[0]
	p.Answers = p.Answers[1:]
	return answer
}

func (p *Prompter) Confirm(msg string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Messages = append(p.Messages, msg)
	if len(p.Confirms) == 0 {
		return false
	}
	answer := p.Confirms[0]
	p.Confirms = p.Confirms[1:]
	return answer
}

// Asked returns the confirmation messages seen so far.
func (p *Prompter) Asked() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.Messages...)
}
