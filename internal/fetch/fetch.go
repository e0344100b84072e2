// Package fetch implements the per-domain resource fetchers.
//
// A fetcher is the only writer of its domain's store. Every fetch follows
// the same pipeline: acquire the in-flight token (or no-op when a fetch for
// the same key is already outstanding), call the gateway, normalize the
// payload, publish to the store, and release the token on every exit path.
// Failures never escape a fetcher; they are reported through the
// notification sink (loud) or the silent-failure ring (background).
package fetch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/opsdeck/opsdeck/internal/gateway"
	"github.com/opsdeck/opsdeck/internal/guard"
	"github.com/opsdeck/opsdeck/internal/history"
	"github.com/opsdeck/opsdeck/internal/metrics"
	"github.com/opsdeck/opsdeck/internal/notify"
	"github.com/opsdeck/opsdeck/internal/state"
)

// Resource keys. Manual and background refreshes share these, so a manual
// refresh is skipped rather than duplicated while a poll is outstanding.
const (
	KeyServices  = "services"
	KeyPreflight = "preflight"
	KeyJobs      = "jobs"
	KeyKBStats   = "kbstats"
	KeyQuotas    = "quotas"
	KeyAlerts    = "alerts"
	KeyOverview  = "overview"

	keyMilestonesPrefix = "milestones:"
	keyLogsPrefix       = "logs:"
)

// Opts modifies a single fetch invocation.
type Opts struct {
	// Silent suppresses user-facing error notifications; failures go to the
	// silent-failure ring and the debug log instead. Background polling is
	// always silent, manual refreshes are loud.
	Silent bool
}

// Deps wires a Fetchers instance. API, Guard, and Stores are required; the
// rest degrade gracefully when nil.
type Deps struct {
	API     gateway.API
	Guard   *guard.Guard
	Stores  *state.Stores
	Sink    notify.Sink
	Ring    *notify.FailureRing
	Metrics *metrics.Metrics
	History *history.Log
	Logger  *slog.Logger

	// SettleDelay pauses between a service start/stop command and the
	// follow-up status poll, giving the backend time to converge.
	SettleDelay time.Duration
}

// Fetchers holds every domain fetcher behind one receiver.
type Fetchers struct {
	api     gateway.API
	guard   *guard.Guard
	stores  *state.Stores
	sink    notify.Sink
	ring    *notify.FailureRing
	metrics *metrics.Metrics
	history *history.Log
	logger  *slog.Logger
	settle  time.Duration
}

// New creates the fetcher set.
func New(deps Deps) *Fetchers {
	if deps.Sink == nil {
		deps.Sink = notify.Discard{}
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.SettleDelay <= 0 {
		deps.SettleDelay = 750 * time.Millisecond
	}
	return &Fetchers{
		api:     deps.API,
		guard:   deps.Guard,
		stores:  deps.Stores,
		sink:    deps.Sink,
		ring:    deps.Ring,
		metrics: deps.Metrics,
		history: deps.History,
		logger:  deps.Logger,
		settle:  deps.SettleDelay,
	}
}

// Guard exposes the shared in-flight guard, letting the UI answer "is this
// resource already refreshing" without issuing a fetch.
func (f *Fetchers) Guard() *guard.Guard { return f.guard }

// fail routes a fetch failure according to the silent flag. Loud failures
// produce exactly one error notification; silent ones are recorded in the
// ring and logged at debug level only.
func (f *Fetchers) fail(resource string, err error, silent bool) {
	f.metrics.FetchFailed(resource)
	if silent {
		f.metrics.SilentFailure(resource)
		if f.ring != nil {
			f.ring.Record(resource, err.Error())
		}
		f.logger.Debug("background refresh failed", "resource", resource, "error", err)
		return
	}
	f.sink.Publish(notify.Error, fmt.Sprintf("Failed to refresh %s: %v", resource, err))
	f.logger.Warn("refresh failed", "resource", resource, "error", err)
}

// skip records a guard-contended fetch. Contention is not an error: a fetch
// for the same key is already in flight and its result will land.
func (f *Fetchers) skip(resource string) {
	f.metrics.GuardSkip(resource)
	f.logger.Debug("refresh skipped, already in flight", "resource", resource)
}

// Services refreshes the service list.
func (f *Fetchers) Services(ctx context.Context, opts Opts) {
	if !f.guard.TryAcquire(KeyServices) {
		f.skip(KeyServices)
		return
	}
	defer f.guard.Release(KeyServices)

	records, err := f.api.ListServices(ctx)
	if err != nil {
		f.fail(KeyServices, err, opts.Silent)
		return
	}
	services, err := normalizeServices(records)
	if err != nil {
		f.fail(KeyServices, err, opts.Silent)
		return
	}

	f.stores.Services.Set(services)
	f.metrics.FetchOK(KeyServices)
	f.recordHealthSamples(services)
}

// Preflight runs the backend's environment verification and stores the report.
func (f *Fetchers) Preflight(ctx context.Context, opts Opts) {
	if !f.guard.TryAcquire(KeyPreflight) {
		f.skip(KeyPreflight)
		return
	}
	defer f.guard.Release(KeyPreflight)

	record, err := f.api.RunPreflight(ctx)
	if err != nil {
		f.fail(KeyPreflight, err, opts.Silent)
		return
	}
	report, err := normalizePreflight(record)
	if err != nil {
		f.fail(KeyPreflight, err, opts.Silent)
		return
	}

	f.stores.Preflight.Set(report)
	f.metrics.FetchOK(KeyPreflight)
}

// Jobs refreshes the pipeline job list.
func (f *Fetchers) Jobs(ctx context.Context, opts Opts) {
	if !f.guard.TryAcquire(KeyJobs) {
		f.skip(KeyJobs)
		return
	}
	defer f.guard.Release(KeyJobs)

	records, err := f.api.ListJobs(ctx)
	if err != nil {
		f.fail(KeyJobs, err, opts.Silent)
		return
	}
	jobs, err := normalizeJobs(records)
	if err != nil {
		f.fail(KeyJobs, err, opts.Silent)
		return
	}

	f.stores.Jobs.Set(jobs)
	f.metrics.FetchOK(KeyJobs)
}

// MilestoneKey returns the in-flight/sequence key for one job's milestones.
func MilestoneKey(jobID string) string { return keyMilestonesPrefix + jobID }

// Milestones refreshes one job's pipeline steps. The fetch is entity-scoped:
// a sequence number is taken at issue time and the response is applied only
// if no newer request for the same job superseded it. A late response after
// a context switch or re-selection is silently discarded.
func (f *Fetchers) Milestones(ctx context.Context, jobID string, opts Opts) {
	key := MilestoneKey(jobID)
	if !f.guard.TryAcquire(key) {
		f.skip("milestones")
		return
	}
	defer f.guard.Release(key)

	seq := f.guard.NextSequence(key)
	records, err := f.api.JobMilestones(ctx, jobID)
	if err != nil {
		f.fail("milestones", err, opts.Silent)
		return
	}
	milestones, err := normalizeMilestones(records)
	if err != nil {
		f.fail("milestones", err, opts.Silent)
		return
	}

	if !f.guard.IsCurrent(key, seq) {
		f.metrics.StaleDiscard("milestones")
		f.logger.Debug("dropping superseded milestone response", "job", jobID, "seq", seq)
		return
	}
	f.stores.Milestones.Set(jobID, milestones)
	f.metrics.FetchOK("milestones")
}

// LogKey returns the in-flight/sequence key for one service's log tail.
func LogKey(service string) string { return keyLogsPrefix + service }

// Logs refreshes the log tail of one service; entity-scoped like Milestones.
func (f *Fetchers) Logs(ctx context.Context, service string, limit int, opts Opts) {
	key := LogKey(service)
	if !f.guard.TryAcquire(key) {
		f.skip("logs")
		return
	}
	defer f.guard.Release(key)

	seq := f.guard.NextSequence(key)
	records, err := f.api.ServiceLogs(ctx, service, limit)
	if err != nil {
		f.fail("logs", err, opts.Silent)
		return
	}
	entries := normalizeLogs(service, records)

	if !f.guard.IsCurrent(key, seq) {
		f.metrics.StaleDiscard("logs")
		f.logger.Debug("dropping superseded log response", "service", service, "seq", seq)
		return
	}
	f.stores.Logs.Set(service, entries)
	f.metrics.FetchOK("logs")
}

// KBStats refreshes the knowledge-base index summary.
func (f *Fetchers) KBStats(ctx context.Context, opts Opts) {
	if !f.guard.TryAcquire(KeyKBStats) {
		f.skip(KeyKBStats)
		return
	}
	defer f.guard.Release(KeyKBStats)

	record, err := f.api.KBStats(ctx)
	if err != nil {
		f.fail(KeyKBStats, err, opts.Silent)
		return
	}
	stats, err := normalizeKBStats(record)
	if err != nil {
		f.fail(KeyKBStats, err, opts.Silent)
		return
	}

	f.stores.KB.Set(stats)
	f.metrics.FetchOK(KeyKBStats)
}

// Quotas refreshes API quota usage and appends a usage sample to history.
func (f *Fetchers) Quotas(ctx context.Context, opts Opts) {
	if !f.guard.TryAcquire(KeyQuotas) {
		f.skip(KeyQuotas)
		return
	}
	defer f.guard.Release(KeyQuotas)

	records, err := f.api.Quotas(ctx)
	if err != nil {
		f.fail(KeyQuotas, err, opts.Silent)
		return
	}
	summary, err := normalizeQuotas(records)
	if err != nil {
		f.fail(KeyQuotas, err, opts.Silent)
		return
	}

	f.stores.Usage.Set(summary)
	f.metrics.FetchOK(KeyQuotas)

	if f.history != nil {
		for _, q := range summary.Quotas {
			if err := f.history.Append("quota", q.Name, q); err != nil {
				f.logger.Debug("history append failed", "kind", "quota", "error", err)
			}
		}
	}
}

// Alerts refreshes the alert list.
func (f *Fetchers) Alerts(ctx context.Context, opts Opts) {
	if !f.guard.TryAcquire(KeyAlerts) {
		f.skip(KeyAlerts)
		return
	}
	defer f.guard.Release(KeyAlerts)

	records, err := f.api.ListAlerts(ctx)
	if err != nil {
		f.fail(KeyAlerts, err, opts.Silent)
		return
	}
	alerts, err := normalizeAlerts(records)
	if err != nil {
		f.fail(KeyAlerts, err, opts.Silent)
		return
	}

	f.stores.Alerts.Set(alerts)
	f.metrics.FetchOK(KeyAlerts)
}

// Overview refreshes the headline metrics snapshot.
func (f *Fetchers) Overview(ctx context.Context, opts Opts) {
	if !f.guard.TryAcquire(KeyOverview) {
		f.skip(KeyOverview)
		return
	}
	defer f.guard.Release(KeyOverview)

	record, err := f.api.Overview(ctx)
	if err != nil {
		f.fail(KeyOverview, err, opts.Silent)
		return
	}
	overview, err := normalizeOverview(record)
	if err != nil {
		f.fail(KeyOverview, err, opts.Silent)
		return
	}

	f.stores.Overview.Set(overview)
	f.metrics.FetchOK(KeyOverview)
}

func (f *Fetchers) recordHealthSamples(services []state.ServiceInfo) {
	if f.history == nil {
		return
	}
	for _, svc := range services {
		sample := map[string]any{"status": svc.Status, "cpu": svc.CPUPercent, "mem_mb": svc.MemoryMB}
		if err := f.history.Append("service_health", svc.Name, sample); err != nil {
			f.logger.Debug("history append failed", "kind", "service_health", "error", err)
		}
	}
}
