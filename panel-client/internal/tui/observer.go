package tui

import (
	"sync/atomic"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/acidjurassic/isla-toxica-commands/panel-client/internal/dispatch"
)

// Observer forwards controller snapshots into a running program.
//
// Send blocks until the event loop reads it, so Update must never call a
// controller method that publishes; those calls belong in a tea.Cmd.
type Observer struct {
	program atomic.Pointer[tea.Program]
}

func (o *Observer) Attach(p *tea.Program) {
	o.program.Store(p)
}

// Observe is passed to dispatch.WithObserver. Snapshots published before
// Attach are dropped; New reads the current state anyway.
func (o *Observer) Observe(s dispatch.State) {
	if p := o.program.Load(); p != nil {
		p.Send(StateMsg(s))
	}
}
