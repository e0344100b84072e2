package poll

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/opsdeck/opsdeck/internal/refresh"
	"github.com/opsdeck/opsdeck/internal/visibility"
)

// Orchestrator owns the timers behind background polling. It is either idle
// or active for exactly one context; activating a new context tears the old
// one's timers down completely before arming any new ones, so two contexts'
// timers never coexist, not even transiently.
//
// All periodic firings are silent; loud refreshes come only from explicit
// user action, outside this type.
// ActionSource resolves a polled resource name to its consolidated refresh
// action. *refresh.Actions implements it.
type ActionSource interface {
	ForResource(resource string) refresh.Action
}

type Orchestrator struct {
	table   Table
	actions ActionSource
	gate    visibility.Gate
	logger  *slog.Logger

	mu      sync.Mutex
	active  bool
	current Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewOrchestrator creates an idle orchestrator. When gate is a *SignalGate
// the caller should also register CatchUp with its OnRegained hook.
func NewOrchestrator(table Table, actions ActionSource, gate visibility.Gate, logger *slog.Logger) *Orchestrator {
	if gate == nil {
		gate = visibility.Always{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{table: table, actions: actions, gate: gate, logger: logger}
}

// SetContext activates polling for c. Re-asserting the current context is a
// no-op. Switching cancels every timer owned by the previous context and
// waits for its firing loops to exit before the new context's first refresh.
func (o *Orchestrator) SetContext(c Context) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.active && o.current == c {
		return
	}
	o.teardownLocked()

	ctx, cancel := context.WithCancel(context.Background())
	o.cancel = cancel
	o.current = c
	o.active = true

	rows := o.table.For(c)
	o.logger.Debug("polling context activated", "context", c, "resources", len(rows))

	for _, row := range rows {
		action := o.actions.ForResource(row.Resource)
		if action == nil {
			o.logger.Warn("no refresh action for polled resource", "resource", row.Resource)
			continue
		}
		o.wg.Add(1)
		go o.run(ctx, row, action)
	}
}

// run is one policy row's firing loop: an immediate, visibility-agnostic
// first refresh, then one gated refresh per interval tick.
func (o *Orchestrator) run(ctx context.Context, row Policy, action refresh.Action) {
	defer o.wg.Done()

	action(ctx, true)

	ticker := time.NewTicker(row.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// The gate is consulted at firing time, never cached.
			if row.SuspendWhenHidden && !o.gate.Visible() {
				continue
			}
			action(ctx, true)
		}
	}
}

// CatchUp runs one extra gated refresh pass over the current context's
// resources. Wire it to the visibility gate's regained hook to clear the
// staleness accumulated while the surface was hidden. Timers are unaffected.
func (o *Orchestrator) CatchUp() {
	o.mu.Lock()
	if !o.active {
		o.mu.Unlock()
		return
	}
	rows := o.table.For(o.current)
	o.mu.Unlock()

	ctx := context.Background()
	for _, row := range rows {
		if row.SuspendWhenHidden && !o.gate.Visible() {
			continue
		}
		if action := o.actions.ForResource(row.Resource); action != nil {
			go action(ctx, true)
		}
	}
}

// Current returns the active context, or false when idle.
func (o *Orchestrator) Current() (Context, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.current, o.active
}

// Close cancels all owned timers and returns the orchestrator to idle. No
// refresh fires after Close returns.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.teardownLocked()
}

// teardownLocked cancels the active context's timers and waits for every
// firing loop to exit. Callers hold o.mu.
func (o *Orchestrator) teardownLocked() {
	if !o.active {
		return
	}
	o.cancel()
	o.wg.Wait()
	o.active = false
	o.cancel = nil
}
