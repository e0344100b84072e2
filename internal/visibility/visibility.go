// Package visibility tracks whether the client surface is in the foreground.
//
// The poller consults the gate immediately before each suspendable firing and
// never caches the answer across a call boundary. The TUI feeds the gate from
// terminal focus events.
package visibility

import "sync"

// Gate answers whether the surface is currently visible.
type Gate interface {
	Visible() bool
}

// Always is a gate that always reports visible. Used by one-shot CLI commands
// which have no backgrounded state.
type Always struct{}

// Visible implements Gate.
func (Always) Visible() bool { return true }

// SignalGate is a Gate fed by host focus/blur events. It notifies registered
// hooks on the hidden-to-visible edge so the poller can run a catch-up pass.
type SignalGate struct {
	mu       sync.Mutex
	visible  bool
	regained []func()
}

// NewSignalGate creates a gate that starts visible.
func NewSignalGate() *SignalGate {
	return &SignalGate{visible: true}
}

// Visible implements Gate.
func (g *SignalGate) Visible() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.visible
}

// Set records the surface's foreground state. Hooks fire only on the
// hidden-to-visible transition, after the state is updated.
func (g *SignalGate) Set(visible bool) {
	g.mu.Lock()
	regained := !g.visible && visible
	g.visible = visible
	hooks := make([]func(), 0, len(g.regained))
	if regained {
		hooks = append(hooks, g.regained...)
	}
	g.mu.Unlock()

	for _, fn := range hooks {
		fn()
	}
}

// OnRegained registers fn to run each time the surface returns to the
// foreground.
func (g *SignalGate) OnRegained(fn func()) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.regained = append(g.regained, fn)
}
