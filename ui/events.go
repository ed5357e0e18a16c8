package ui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/dgnsrekt/recite/internal/corpus"
	"github.com/dgnsrekt/recite/internal/playback"
)

// StateMsg reports a playback state change.
type StateMsg struct {
	State playback.State
	Err   error
}

// ProgressMsg reports the position within the current buffer.
type ProgressMsg playback.Progress

// PassageMsg replaces the passage after the corpus is reloaded. It takes
// effect on the next fresh start.
type PassageMsg struct {
	Passage *corpus.Passage
}

// Events forwards scheduler notifications into a running program. Its
// methods are meant to be installed as scheduler listeners.
type Events struct {
	mu      sync.RWMutex
	program *tea.Program
}

// Attach starts forwarding to p.
func (e *Events) Attach(p *tea.Program) {
	e.mu.Lock()
	e.program = p
	e.mu.Unlock()
}

// Detach stops forwarding. Call it before closing the scheduler.
func (e *Events) Detach() {
	e.Attach(nil)
}

// OnStateChange implements the scheduler's state listener.
func (e *Events) OnStateChange(st playback.State, err error) {
	e.send(StateMsg{State: st, Err: err})
}

// OnProgress implements the scheduler's progress listener.
func (e *Events) OnProgress(p playback.Progress) {
	e.send(ProgressMsg(p))
}

// OnReload forwards a reloaded passage.
func (e *Events) OnReload(p *corpus.Passage) {
	e.send(PassageMsg{Passage: p})
}

func (e *Events) send(msg tea.Msg) {
	e.mu.RLock()
	p := e.program
	e.mu.RUnlock()

	if p != nil {
		p.Send(msg)
	}
}
