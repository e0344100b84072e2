package dashboard

import (
	"sync/atomic"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/opsdeck/opsdeck/internal/notify"
)

// ProgramSink forwards notifications into the running bubbletea program as
// toast messages. It is created before the program exists, so fetchers can
// hold it from startup; notifications published before Attach are dropped.
type ProgramSink struct {
	program atomic.Pointer[tea.Program]
}

// Attach binds the sink to a running program.
func (s *ProgramSink) Attach(p *tea.Program) {
	s.program.Store(p)
}

// Publish implements notify.Sink.
func (s *ProgramSink) Publish(sev notify.Severity, message string) {
	p := s.program.Load()
	if p == nil {
		return
	}
	p.Send(toastMsg{sev: sev, text: message})
}
