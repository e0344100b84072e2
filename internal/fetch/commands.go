package fetch

import (
	"context"
	"fmt"
	"time"

	"github.com/opsdeck/opsdeck/internal/notify"
)

// User-triggered commands. Unlike refreshes these propagate a typed error so
// the caller can reflect button state, but user notification still flows
// through the sink here rather than ad hoc at each call site.

// StartService starts a service, waits for the backend to settle, then
// re-polls service status loudly.
func (f *Fetchers) StartService(ctx context.Context, name string) error {
	return f.serviceCommand(ctx, name, "start", f.api.StartService)
}

// StopService stops a service and re-polls status after the settle pause.
func (f *Fetchers) StopService(ctx context.Context, name string) error {
	return f.serviceCommand(ctx, name, "stop", f.api.StopService)
}

// RestartService restarts a service and re-polls status after the settle pause.
func (f *Fetchers) RestartService(ctx context.Context, name string) error {
	return f.serviceCommand(ctx, name, "restart", f.api.RestartService)
}

func (f *Fetchers) serviceCommand(ctx context.Context, name, verb string, cmd func(context.Context, string) error) error {
	if err := cmd(ctx, name); err != nil {
		f.sink.Publish(notify.Error, fmt.Sprintf("Failed to %s %s: %v", verb, name, err))
		return err
	}
	f.sink.Publish(notify.Success, fmt.Sprintf("Service %s: %s requested", name, verb))

	// Let the backend converge before re-polling, otherwise the refreshed
	// status still shows the pre-command state.
	select {
	case <-time.After(f.settle):
	case <-ctx.Done():
		return ctx.Err()
	}

	f.Services(ctx, Opts{Silent: true})
	return nil
}

// AcknowledgeAlert marks an alert acknowledged and refreshes the alert list.
func (f *Fetchers) AcknowledgeAlert(ctx context.Context, id string) error {
	if err := f.api.AcknowledgeAlert(ctx, id); err != nil {
		f.sink.Publish(notify.Error, fmt.Sprintf("Failed to acknowledge alert: %v", err))
		return err
	}
	f.Alerts(ctx, Opts{Silent: true})
	return nil
}
