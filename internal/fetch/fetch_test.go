package fetch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/opsdeck/opsdeck/internal/gateway"
	"github.com/opsdeck/opsdeck/internal/guard"
	"github.com/opsdeck/opsdeck/internal/notify"
	"github.com/opsdeck/opsdeck/internal/state"
)

// fakeAPI implements gateway.API with overridable behavior and call counting.
type fakeAPI struct {
	mu    sync.Mutex
	calls map[string]int

	listServicesFn  func(ctx context.Context) ([]*gateway.ServiceRecord, error)
	jobMilestonesFn func(ctx context.Context, jobID string) ([]*gateway.MilestoneRecord, error)
	startServiceFn  func(ctx context.Context, name string) error
	quotasFn        func(ctx context.Context) ([]*gateway.QuotaRecord, error)
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{calls: make(map[string]int)}
}

func (f *fakeAPI) count(method string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[method]++
}

func (f *fakeAPI) callCount(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

func (f *fakeAPI) ListServices(ctx context.Context) ([]*gateway.ServiceRecord, error) {
	f.count("list_services")
	if f.listServicesFn != nil {
		return f.listServicesFn(ctx)
	}
	return []*gateway.ServiceRecord{{Name: "indexer", Status: "running"}}, nil
}

func (f *fakeAPI) ServiceLogs(ctx context.Context, service string, limit int) ([]*gateway.LogRecord, error) {
	f.count("get_service_logs")
	return nil, nil
}

func (f *fakeAPI) RunPreflight(ctx context.Context) (*gateway.PreflightRecord, error) {
	f.count("run_preflight")
	return &gateway.PreflightRecord{Passed: true}, nil
}

func (f *fakeAPI) ListJobs(ctx context.Context) ([]*gateway.JobRecord, error) {
	f.count("list_jobs")
	return nil, nil
}

func (f *fakeAPI) JobMilestones(ctx context.Context, jobID string) ([]*gateway.MilestoneRecord, error) {
	f.count("get_job_milestones")
	if f.jobMilestonesFn != nil {
		return f.jobMilestonesFn(ctx, jobID)
	}
	return nil, nil
}

func (f *fakeAPI) KBStats(ctx context.Context) (*gateway.KBStatsRecord, error) {
	f.count("get_kb_stats")
	return &gateway.KBStatsRecord{}, nil
}

func (f *fakeAPI) Quotas(ctx context.Context) ([]*gateway.QuotaRecord, error) {
	f.count("get_quotas")
	if f.quotasFn != nil {
		return f.quotasFn(ctx)
	}
	return nil, nil
}

func (f *fakeAPI) ListAlerts(ctx context.Context) ([]*gateway.AlertRecord, error) {
	f.count("list_alerts")
	return nil, nil
}

func (f *fakeAPI) Overview(ctx context.Context) (*gateway.OverviewRecord, error) {
	f.count("get_overview")
	return &gateway.OverviewRecord{}, nil
}

func (f *fakeAPI) StartService(ctx context.Context, name string) error {
	f.count("start_service")
	if f.startServiceFn != nil {
		return f.startServiceFn(ctx, name)
	}
	return nil
}

func (f *fakeAPI) StopService(ctx context.Context, name string) error {
	f.count("stop_service")
	return nil
}

func (f *fakeAPI) RestartService(ctx context.Context, name string) error {
	f.count("restart_service")
	return nil
}

func (f *fakeAPI) AcknowledgeAlert(ctx context.Context, id string) error {
	f.count("ack_alert")
	return nil
}

// countingSink records published notifications.
type countingSink struct {
	mu     sync.Mutex
	events []notify.Severity
}

func (s *countingSink) Publish(sev notify.Severity, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, sev)
}

func (s *countingSink) countOf(sev notify.Severity) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, e := range s.events {
		if e == sev {
			n++
		}
	}
	return n
}

func newTestFetchers(api gateway.API, sink notify.Sink) (*Fetchers, *state.Stores) {
	stores := state.NewStores()
	f := New(Deps{
		API:         api,
		Guard:       guard.New(),
		Stores:      stores,
		Sink:        sink,
		Ring:        notify.NewFailureRing(16),
		SettleDelay: 5 * time.Millisecond,
	})
	return f, stores
}

func TestFetchPublishesToStore(t *testing.T) {
	api := newFakeAPI()
	f, stores := newTestFetchers(api, notify.Discard{})

	f.Services(context.Background(), Opts{Silent: true})

	services := stores.Services.Get()
	if len(services) != 1 || services[0].Name != "indexer" {
		t.Fatalf("unexpected services: %+v", services)
	}
	if services[0].Status != state.ServiceRunning {
		t.Errorf("status = %q, want running", services[0].Status)
	}
}

func TestGuardSuppressesDuplicateFetch(t *testing.T) {
	api := newFakeAPI()
	release := make(chan struct{})
	started := make(chan struct{})
	var startedOnce sync.Once
	api.listServicesFn = func(ctx context.Context) ([]*gateway.ServiceRecord, error) {
		startedOnce.Do(func() { close(started) })
		<-release
		return nil, nil
	}

	f, _ := newTestFetchers(api, notify.Discard{})

	done := make(chan struct{})
	go func() {
		f.Services(context.Background(), Opts{Silent: true})
		close(done)
	}()
	<-started

	// Second fetch while the first is outstanding must no-op without a
	// second gateway call.
	f.Services(context.Background(), Opts{Silent: true})
	if got := api.callCount("list_services"); got != 1 {
		t.Fatalf("gateway called %d times, want 1", got)
	}

	close(release)
	<-done

	// After release the key is free again.
	f.Services(context.Background(), Opts{Silent: true})
	if got := api.callCount("list_services"); got != 2 {
		t.Fatalf("gateway called %d times after release, want 2", got)
	}
}

func TestSilentFailureDoesNotNotify(t *testing.T) {
	api := newFakeAPI()
	api.listServicesFn = func(ctx context.Context) ([]*gateway.ServiceRecord, error) {
		return nil, errors.New("backend unavailable")
	}
	sink := &countingSink{}
	ring := notify.NewFailureRing(16)
	f := New(Deps{
		API:    api,
		Guard:  guard.New(),
		Stores: state.NewStores(),
		Sink:   sink,
		Ring:   ring,
	})

	f.Services(context.Background(), Opts{Silent: true})

	if got := sink.countOf(notify.Error); got != 0 {
		t.Fatalf("silent failure published %d error notifications", got)
	}
	if ring.Len() != 1 {
		t.Fatalf("expected 1 ring entry, got %d", ring.Len())
	}

	// The identical manual fetch is loud: exactly one error notification.
	f.Services(context.Background(), Opts{Silent: false})
	if got := sink.countOf(notify.Error); got != 1 {
		t.Fatalf("loud failure published %d error notifications, want 1", got)
	}
}

func TestValidationFailureReportedAsFetchFailure(t *testing.T) {
	api := newFakeAPI()
	api.listServicesFn = func(ctx context.Context) ([]*gateway.ServiceRecord, error) {
		return []*gateway.ServiceRecord{{Status: "running"}}, nil // missing name
	}
	sink := &countingSink{}
	f, stores := newTestFetchers(api, sink)

	f.Services(context.Background(), Opts{Silent: false})

	if got := sink.countOf(notify.Error); got != 1 {
		t.Fatalf("expected 1 error notification, got %d", got)
	}
	if len(stores.Services.Get()) != 0 {
		t.Error("invalid payload must not reach the store")
	}
}

func TestSupersededMilestoneResponseDiscarded(t *testing.T) {
	api := newFakeAPI()
	release := make(chan struct{})
	started := make(chan struct{})
	api.jobMilestonesFn = func(ctx context.Context, jobID string) ([]*gateway.MilestoneRecord, error) {
		close(started)
		<-release
		return []*gateway.MilestoneRecord{{Name: "stale step", Status: "done"}}, nil
	}

	f, stores := newTestFetchers(api, notify.Discard{})

	done := make(chan struct{})
	go func() {
		f.Milestones(context.Background(), "J-1", Opts{Silent: true})
		close(done)
	}()
	<-started

	// A newer request for the same job supersedes the outstanding one and
	// publishes its result first.
	f.Guard().NextSequence(MilestoneKey("J-1"))
	fresh := []state.Milestone{{Name: "fresh step", Status: "active"}}
	stores.Milestones.Set("J-1", fresh)

	close(release)
	<-done

	got, ok := stores.Milestones.Get("J-1")
	if !ok {
		t.Fatal("milestones missing from store")
	}
	if len(got) != 1 || got[0].Name != "fresh step" {
		t.Fatalf("stale response overwrote newer state: %+v", got)
	}
}

func TestLatestMilestoneResponseApplies(t *testing.T) {
	api := newFakeAPI()
	api.jobMilestonesFn = func(ctx context.Context, jobID string) ([]*gateway.MilestoneRecord, error) {
		return []*gateway.MilestoneRecord{{Name: "ingest", Status: "done"}}, nil
	}
	f, stores := newTestFetchers(api, notify.Discard{})

	f.Milestones(context.Background(), "J-1", Opts{Silent: true})

	got, ok := stores.Milestones.Get("J-1")
	if !ok || len(got) != 1 || got[0].Name != "ingest" {
		t.Fatalf("expected latest response applied, got %+v", got)
	}
}

func TestStartServiceSettlesThenRepolls(t *testing.T) {
	api := newFakeAPI()
	sink := &countingSink{}
	f, _ := newTestFetchers(api, sink)

	if err := f.StartService(context.Background(), "indexer"); err != nil {
		t.Fatalf("StartService: %v", err)
	}

	if got := api.callCount("start_service"); got != 1 {
		t.Errorf("start_service called %d times", got)
	}
	if got := api.callCount("list_services"); got != 1 {
		t.Errorf("expected follow-up status poll, list_services called %d times", got)
	}
	if got := sink.countOf(notify.Success); got != 1 {
		t.Errorf("expected 1 success notification, got %d", got)
	}
}

func TestStartServiceFailurePropagates(t *testing.T) {
	api := newFakeAPI()
	api.startServiceFn = func(ctx context.Context, name string) error {
		return errors.New("spawn failed")
	}
	sink := &countingSink{}
	f, _ := newTestFetchers(api, sink)

	err := f.StartService(context.Background(), "indexer")
	if err == nil {
		t.Fatal("expected error to propagate to the caller")
	}
	if got := sink.countOf(notify.Error); got != 1 {
		t.Errorf("expected centralized error notification, got %d", got)
	}
	if got := api.callCount("list_services"); got != 0 {
		t.Errorf("failed command must not re-poll, list_services called %d times", got)
	}
}
