package refresh

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/opsdeck/opsdeck/internal/fetch"
	"github.com/opsdeck/opsdeck/internal/gateway"
	"github.com/opsdeck/opsdeck/internal/guard"
	"github.com/opsdeck/opsdeck/internal/notify"
	"github.com/opsdeck/opsdeck/internal/state"
)

// scriptedAPI fails the methods listed in failing and answers everything
// else with minimal valid payloads.
type scriptedAPI struct {
	mu      sync.Mutex
	calls   map[string]int
	failing map[string]bool
}

func newScriptedAPI(failing ...string) *scriptedAPI {
	f := make(map[string]bool, len(failing))
	for _, m := range failing {
		f[m] = true
	}
	return &scriptedAPI{calls: make(map[string]int), failing: f}
}

func (s *scriptedAPI) record(method string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[method]++
	if s.failing[method] {
		return errors.New(method + " unavailable")
	}
	return nil
}

func (s *scriptedAPI) callCount(method string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[method]
}

func (s *scriptedAPI) ListServices(ctx context.Context) ([]*gateway.ServiceRecord, error) {
	if err := s.record("list_services"); err != nil {
		return nil, err
	}
	return []*gateway.ServiceRecord{{Name: "api", Status: "running"}}, nil
}

func (s *scriptedAPI) ServiceLogs(ctx context.Context, service string, limit int) ([]*gateway.LogRecord, error) {
	if err := s.record("get_service_logs"); err != nil {
		return nil, err
	}
	return []*gateway.LogRecord{{Message: "ready", Service: service}}, nil
}

func (s *scriptedAPI) RunPreflight(ctx context.Context) (*gateway.PreflightRecord, error) {
	if err := s.record("run_preflight"); err != nil {
		return nil, err
	}
	return &gateway.PreflightRecord{Passed: true}, nil
}

func (s *scriptedAPI) ListJobs(ctx context.Context) ([]*gateway.JobRecord, error) {
	if err := s.record("list_jobs"); err != nil {
		return nil, err
	}
	return []*gateway.JobRecord{{ID: "J-1", Status: "running"}}, nil
}

func (s *scriptedAPI) JobMilestones(ctx context.Context, jobID string) ([]*gateway.MilestoneRecord, error) {
	if err := s.record("get_job_milestones"); err != nil {
		return nil, err
	}
	return []*gateway.MilestoneRecord{{Name: "ingest", Status: "done"}}, nil
}

func (s *scriptedAPI) KBStats(ctx context.Context) (*gateway.KBStatsRecord, error) {
	if err := s.record("get_kb_stats"); err != nil {
		return nil, err
	}
	return &gateway.KBStatsRecord{Documents: 7}, nil
}

func (s *scriptedAPI) Quotas(ctx context.Context) ([]*gateway.QuotaRecord, error) {
	if err := s.record("get_quotas"); err != nil {
		return nil, err
	}
	return []*gateway.QuotaRecord{{Name: "tokens", Limit: 100}}, nil
}

func (s *scriptedAPI) ListAlerts(ctx context.Context) ([]*gateway.AlertRecord, error) {
	if err := s.record("list_alerts"); err != nil {
		return nil, err
	}
	return []*gateway.AlertRecord{{ID: "A-1", Severity: "warning"}}, nil
}

func (s *scriptedAPI) Overview(ctx context.Context) (*gateway.OverviewRecord, error) {
	if err := s.record("get_overview"); err != nil {
		return nil, err
	}
	return &gateway.OverviewRecord{ServicesTotal: 3}, nil
}

func (s *scriptedAPI) StartService(ctx context.Context, name string) error {
	return s.record("start_service")
}

func (s *scriptedAPI) StopService(ctx context.Context, name string) error {
	return s.record("stop_service")
}

func (s *scriptedAPI) RestartService(ctx context.Context, name string) error {
	return s.record("restart_service")
}

func (s *scriptedAPI) AcknowledgeAlert(ctx context.Context, id string) error {
	return s.record("ack_alert")
}

func newTestActions(api gateway.API) (*Actions, *state.Stores) {
	stores := state.NewStores()
	fetchers := fetch.New(fetch.Deps{
		API:    api,
		Guard:  guard.New(),
		Stores: stores,
		Ring:   notify.NewFailureRing(16),
	})
	return New(fetchers, 50), stores
}

func TestOverviewFansOutAllConstituents(t *testing.T) {
	api := newScriptedAPI()
	actions, stores := newTestActions(api)

	actions.Overview(context.Background(), true)

	for _, method := range []string{"get_overview", "list_services", "list_alerts"} {
		if got := api.callCount(method); got != 1 {
			t.Errorf("%s called %d times, want 1", method, got)
		}
	}
	if stores.Overview.Get().ServicesTotal != 3 {
		t.Error("overview not published")
	}
	if len(stores.Services.Get()) != 1 {
		t.Error("services not published")
	}
	if len(stores.Alerts.Get()) != 1 {
		t.Error("alerts not published")
	}
}

func TestConstituentFailureIsolated(t *testing.T) {
	api := newScriptedAPI("list_services")
	actions, stores := newTestActions(api)

	actions.Overview(context.Background(), true)

	// The failing constituent must not block the others from publishing.
	if stores.Overview.Get().ServicesTotal != 3 {
		t.Error("overview blocked by sibling failure")
	}
	if len(stores.Alerts.Get()) != 1 {
		t.Error("alerts blocked by sibling failure")
	}
	if len(stores.Services.Get()) != 0 {
		t.Error("failed constituent published data")
	}
}

func TestJobsIncludesFocusedMilestones(t *testing.T) {
	api := newScriptedAPI()
	actions, stores := newTestActions(api)

	// No focus: only the job list refreshes.
	actions.Jobs(context.Background(), true)
	if got := api.callCount("get_job_milestones"); got != 0 {
		t.Fatalf("milestones fetched with no focus: %d calls", got)
	}

	actions.SelectJob("J-1")
	actions.Jobs(context.Background(), true)
	if got := api.callCount("get_job_milestones"); got != 1 {
		t.Fatalf("milestones called %d times, want 1", got)
	}
	if ms, ok := stores.Milestones.Get("J-1"); !ok || len(ms) != 1 {
		t.Errorf("focused milestones not published: %v", ms)
	}
}

func TestLogsRequiresFocusedService(t *testing.T) {
	api := newScriptedAPI()
	actions, _ := newTestActions(api)

	actions.LogTail(context.Background(), true)
	if got := api.callCount("get_service_logs"); got != 0 {
		t.Fatalf("log tail fetched with no focus: %d calls", got)
	}

	actions.SelectService("api")
	actions.LogTail(context.Background(), true)
	if got := api.callCount("get_service_logs"); got != 1 {
		t.Fatalf("log tail called %d times, want 1", got)
	}
}

func TestForResourceCoversEveryPolledKey(t *testing.T) {
	actions, _ := newTestActions(newScriptedAPI())

	keys := []string{
		fetch.KeyOverview, fetch.KeyServices, fetch.KeyPreflight, fetch.KeyJobs,
		"milestones", "logs", fetch.KeyKBStats, fetch.KeyQuotas, fetch.KeyAlerts,
	}
	for _, key := range keys {
		if actions.ForResource(key) == nil {
			t.Errorf("no action bound for resource %q", key)
		}
	}
	if actions.ForResource("nonsense") != nil {
		t.Error("unknown resource should have no action")
	}
}
