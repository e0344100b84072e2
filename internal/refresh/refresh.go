// Package refresh provides named, composable refresh actions over the
// resource fetchers.
//
// An action fans its constituent fetches out concurrently and resolves once
// all of them have; one constituent failing never blocks the others from
// publishing. Actions are reentrant: every constituent independently honors
// the in-flight guard, so overlapping invocations collapse to a single
// outstanding fetch per resource.
package refresh

import (
	"context"
	"sync"

	"github.com/opsdeck/opsdeck/internal/fetch"
)

// Actions groups the consolidated refresh entry points used by both the
// poller and explicit user-triggered refreshes.
type Actions struct {
	fetchers *fetch.Fetchers
	logLimit int

	mu              sync.Mutex
	selectedJob     string
	selectedService string
}

// New creates the action set. logLimit bounds how many log lines a log tail
// refresh requests.
func New(fetchers *fetch.Fetchers, logLimit int) *Actions {
	if logLimit <= 0 {
		logLimit = 200
	}
	return &Actions{fetchers: fetchers, logLimit: logLimit}
}

// SelectJob focuses milestone refreshes on one job. An empty id clears the
// focus; milestone refreshes then no-op.
func (a *Actions) SelectJob(id string) {
	a.mu.Lock()
	a.selectedJob = id
	a.mu.Unlock()
}

// SelectService focuses log refreshes on one service.
func (a *Actions) SelectService(name string) {
	a.mu.Lock()
	a.selectedService = name
	a.mu.Unlock()
}

// SelectedJob returns the focused job id.
func (a *Actions) SelectedJob() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.selectedJob
}

// SelectedService returns the focused service name.
func (a *Actions) SelectedService() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.selectedService
}

// fanOut runs the given fetches concurrently and waits for all of them.
// Fetchers absorb their own failures, so the join has nothing to collect.
func fanOut(fns ...func()) {
	var wg sync.WaitGroup
	wg.Add(len(fns))
	for _, fn := range fns {
		go func() {
			defer wg.Done()
			fn()
		}()
	}
	wg.Wait()
}

// Overview refreshes the dashboard headline data: metrics, services, alerts.
func (a *Actions) Overview(ctx context.Context, silent bool) {
	opts := fetch.Opts{Silent: silent}
	fanOut(
		func() { a.fetchers.Overview(ctx, opts) },
		func() { a.fetchers.Services(ctx, opts) },
		func() { a.fetchers.Alerts(ctx, opts) },
	)
}

// Runtime refreshes service health plus the headline snapshot.
func (a *Actions) Runtime(ctx context.Context, silent bool) {
	opts := fetch.Opts{Silent: silent}
	fanOut(
		func() { a.fetchers.Services(ctx, opts) },
		func() { a.fetchers.Overview(ctx, opts) },
	)
}

// Jobs refreshes the job list and, when a job is focused, its milestones.
func (a *Actions) Jobs(ctx context.Context, silent bool) {
	opts := fetch.Opts{Silent: silent}
	job := a.SelectedJob()
	fns := []func(){
		func() { a.fetchers.Jobs(ctx, opts) },
	}
	if job != "" {
		fns = append(fns, func() { a.fetchers.Milestones(ctx, job, opts) })
	}
	fanOut(fns...)
}

// Milestones refreshes only the focused job's milestones.
func (a *Actions) Milestones(ctx context.Context, silent bool) {
	if job := a.SelectedJob(); job != "" {
		a.fetchers.Milestones(ctx, job, fetch.Opts{Silent: silent})
	}
}

// Logs refreshes the focused service's log tail plus the service list that
// frames it.
func (a *Actions) Logs(ctx context.Context, silent bool) {
	opts := fetch.Opts{Silent: silent}
	service := a.SelectedService()
	fns := []func(){
		func() { a.fetchers.Services(ctx, opts) },
	}
	if service != "" {
		fns = append(fns, func() { a.fetchers.Logs(ctx, service, a.logLimit, opts) })
	}
	fanOut(fns...)
}

// LogTail refreshes only the focused service's log tail.
func (a *Actions) LogTail(ctx context.Context, silent bool) {
	if service := a.SelectedService(); service != "" {
		a.fetchers.Logs(ctx, service, a.logLimit, fetch.Opts{Silent: silent})
	}
}

// Verify runs the preflight checks.
func (a *Actions) Verify(ctx context.Context, silent bool) {
	a.fetchers.Preflight(ctx, fetch.Opts{Silent: silent})
}

// KB refreshes the knowledge-base stats.
func (a *Actions) KB(ctx context.Context, silent bool) {
	a.fetchers.KBStats(ctx, fetch.Opts{Silent: silent})
}

// Usage refreshes quota usage.
func (a *Actions) Usage(ctx context.Context, silent bool) {
	a.fetchers.Quotas(ctx, fetch.Opts{Silent: silent})
}

// Alerts refreshes the alert list.
func (a *Actions) Alerts(ctx context.Context, silent bool) {
	a.fetchers.Alerts(ctx, fetch.Opts{Silent: silent})
}

// Services refreshes the service list alone.
func (a *Actions) Services(ctx context.Context, silent bool) {
	a.fetchers.Services(ctx, fetch.Opts{Silent: silent})
}

// Action is one bound refresh entry point.
type Action func(ctx context.Context, silent bool)

// ForResource returns the refresh action backing one polled resource key.
// Unknown keys return nil.
func (a *Actions) ForResource(resource string) Action {
	switch resource {
	case fetch.KeyOverview:
		return a.Overview
	case fetch.KeyServices:
		return a.Services
	case fetch.KeyPreflight:
		return a.Verify
	case fetch.KeyJobs:
		return a.Jobs
	case "milestones":
		return a.Milestones
	case "logs":
		return a.LogTail
	case fetch.KeyKBStats:
		return a.KB
	case fetch.KeyQuotas:
		return a.Usage
	case fetch.KeyAlerts:
		return a.Alerts
	default:
		return nil
	}
}
