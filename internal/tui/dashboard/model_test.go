package dashboard

import (
	"strings"
	"testing"
	"time"

	"github.com/opsdeck/opsdeck/internal/config"
	"github.com/opsdeck/opsdeck/internal/fetch"
	"github.com/opsdeck/opsdeck/internal/guard"
	"github.com/opsdeck/opsdeck/internal/notify"
	"github.com/opsdeck/opsdeck/internal/poll"
	"github.com/opsdeck/opsdeck/internal/refresh"
	"github.com/opsdeck/opsdeck/internal/state"
	"github.com/opsdeck/opsdeck/internal/visibility"
)

func newTestModel(t *testing.T) Model {
	t.Helper()

	stores := state.NewStores()
	fetchers := fetch.New(fetch.Deps{
		Guard:  guard.New(),
		Stores: stores,
	})
	m := New(Deps{
		Cfg:      config.DefaultConfig(),
		Stores:   stores,
		Actions:  refresh.New(fetchers, 200),
		Fetchers: fetchers,
		Gate:     visibility.NewSignalGate(),
		Ring:     notify.NewFailureRing(8),
	})
	m.width = 100
	m.height = 30
	return m
}

func TestPrimaryResourceCoversPollableContexts(t *testing.T) {
	m := newTestModel(t)
	m.actions.SelectService("api")

	for _, c := range poll.Contexts() {
		if c == poll.ContextSettings {
			continue
		}
		res := m.primaryResource(c)
		if res == "" {
			t.Errorf("context %s has no primary resource", c)
			continue
		}
		if m.actions.ForResource(res) == nil {
			t.Errorf("context %s: no action for resource %s", c, res)
		}
		if _, ok := m.primaryKey(c); !ok {
			t.Errorf("context %s has no guard key", c)
		}
	}

	if _, ok := m.primaryKey(poll.ContextSettings); ok {
		t.Error("settings should have nothing to refresh")
	}
}

func TestSyncSelectionClampsAndFocusesService(t *testing.T) {
	m := newTestModel(t)
	m.stores.Services.Set([]state.ServiceInfo{
		{Name: "api", Status: state.ServiceRunning},
		{Name: "indexer", Status: state.ServiceStopped},
	})
	m.readStores()

	m.tab = 1 // runtime
	m.selected[poll.ContextRuntime] = 5
	m.syncSelection()

	if got := m.selected[poll.ContextRuntime]; got != 1 {
		t.Fatalf("selection = %d, want 1", got)
	}
	if got := m.actions.SelectedService(); got != "indexer" {
		t.Fatalf("selected service = %q, want indexer", got)
	}
}

func TestSyncSelectionFocusesJob(t *testing.T) {
	m := newTestModel(t)
	m.stores.Jobs.Set([]state.JobInfo{
		{ID: "J-1", Name: "reindex", Status: state.JobRunning},
	})
	m.readStores()

	m.tab = 2 // jobs
	m.syncSelection()

	if got := m.actions.SelectedJob(); got != "J-1" {
		t.Fatalf("selected job = %q, want J-1", got)
	}
}

func TestViewRendersEveryTab(t *testing.T) {
	m := newTestModel(t)
	m.stores.Services.Set([]state.ServiceInfo{
		{Name: "api", Status: state.ServiceRunning, Port: 8080, Uptime: 3 * time.Hour},
	})
	m.stores.Jobs.Set([]state.JobInfo{
		{ID: "J-1", Name: "reindex", Status: state.JobRunning, Progress: 0.4},
	})
	m.stores.Alerts.Set([]state.AlertInfo{
		{ID: "A-1", Severity: "warning", Message: "disk filling", At: time.Now()},
	})
	m.ring.Record("quotas", "dial timeout")
	m.readStores()

	for i, c := range m.tabs {
		m.tab = i
		out := m.View()
		if out == "" {
			t.Errorf("tab %s rendered empty", c)
		}
	}

	m.tab = 1
	if out := m.View(); !strings.Contains(out, "api") {
		t.Error("runtime view missing service name")
	}
	m.tab = indexOf(m.tabs, poll.ContextSettings)
	if out := m.View(); !strings.Contains(out, "quotas") {
		t.Error("settings view missing silent failure entry")
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("truncate(short) = %q", got)
	}
	if got := truncate("a very long service name", 10); len([]rune(got)) != 10 {
		t.Errorf("truncate length = %d, want 10", len([]rune(got)))
	}
}

func TestShortDuration(t *testing.T) {
	cases := []struct {
		d    time.Duration
		want string
	}{
		{0, "-"},
		{45 * time.Second, "45s"},
		{3 * time.Minute, "3m"},
		{90 * time.Minute, "1.5h"},
		{48 * time.Hour, "2d"},
	}
	for _, tc := range cases {
		if got := shortDuration(tc.d); got != tc.want {
			t.Errorf("shortDuration(%v) = %q, want %q", tc.d, got, tc.want)
		}
	}
}

func TestByteSize(t *testing.T) {
	if got := byteSize(512); got != "512B" {
		t.Errorf("byteSize(512) = %q", got)
	}
	if got := byteSize(2 * 1024 * 1024); got != "2.0MB" {
		t.Errorf("byteSize(2MiB) = %q", got)
	}
}
