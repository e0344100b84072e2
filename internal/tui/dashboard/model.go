// Package dashboard provides the main TUI dashboard view.
package dashboard

import (
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/opsdeck/opsdeck/internal/config"
	"github.com/opsdeck/opsdeck/internal/fetch"
	"github.com/opsdeck/opsdeck/internal/notify"
	"github.com/opsdeck/opsdeck/internal/poll"
	"github.com/opsdeck/opsdeck/internal/refresh"
	"github.com/opsdeck/opsdeck/internal/state"
	"github.com/opsdeck/opsdeck/internal/tui"
	"github.com/opsdeck/opsdeck/internal/visibility"
)

// refreshInterval is how often the view re-reads store snapshots.
const refreshInterval = 500 * time.Millisecond

// statusClearDelay is how long a transient status message stays visible.
const statusClearDelay = 3 * time.Second

// Deps wires a dashboard Model. All fields are required except Ring.
type Deps struct {
	Cfg      *config.Config
	Stores   *state.Stores
	Actions  *refresh.Actions
	Orch     *poll.Orchestrator
	Fetchers *fetch.Fetchers
	Gate     *visibility.SignalGate
	Ring     *notify.FailureRing
}

// Model is the main dashboard model
type Model struct {
	cfg      *config.Config
	stores   *state.Stores
	actions  *refresh.Actions
	orch     *poll.Orchestrator
	fetchers *fetch.Fetchers
	gate     *visibility.SignalGate
	ring     *notify.FailureRing

	// Store snapshots, re-read on every UI tick
	services   []state.ServiceInfo
	preflight  state.PreflightReport
	jobs       []state.JobInfo
	milestones []state.Milestone
	logs       []state.LogEntry
	kb         state.KBStats
	usage      state.UsageSummary
	alerts     []state.AlertInfo
	overview   state.OverviewMetrics
	failures   []notify.SilentFailure

	// Navigation
	tab      int                  // index into tabs
	tabs     []poll.Context
	selected map[poll.Context]int // per-tab cursor

	// UI state
	width      int
	height     int
	helpMode   bool
	helpBody   string
	spinner    spinner.Model
	statusMsg  string
	statusSev  notify.Severity
	lastUpdate time.Time
}

// Messages
type (
	tickMsg        time.Time
	toastMsg       struct {
		sev  notify.Severity
		text string
	}
	clearStatusMsg   struct{}
	refreshDoneMsg   struct{}
	commandDoneMsg   struct{ err error }
	contextActiveMsg struct{ ctx poll.Context }
)

// New creates the dashboard model.
func New(deps Deps) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(tui.ColorAccent)

	return Model{
		cfg:      deps.Cfg,
		stores:   deps.Stores,
		actions:  deps.Actions,
		orch:     deps.Orch,
		fetchers: deps.Fetchers,
		gate:     deps.Gate,
		ring:     deps.Ring,
		tabs:     poll.Contexts(),
		selected: make(map[poll.Context]int),
		spinner:  sp,
	}
}

// Init implements tea.Model
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		m.tick(),
		m.activateContext(m.currentContext()),
	)
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// activateContext tells the orchestrator to switch polling contexts. The
// switch waits for the outgoing context's timers to stop, so it runs as a
// command rather than inside Update.
func (m Model) activateContext(c poll.Context) tea.Cmd {
	orch := m.orch
	return func() tea.Msg {
		orch.SetContext(c)
		return contextActiveMsg{ctx: c}
	}
}

func (m Model) currentContext() poll.Context {
	return m.tabs[m.tab]
}

// readStores refreshes every snapshot the views render from.
func (m *Model) readStores() {
	m.services = m.stores.Services.Get()
	m.preflight = m.stores.Preflight.Get()
	m.jobs = m.stores.Jobs.Get()
	m.kb = m.stores.KB.Get()
	m.usage = m.stores.Usage.Get()
	m.alerts = m.stores.Alerts.Get()
	m.overview = m.stores.Overview.Get()

	if job := m.actions.SelectedJob(); job != "" {
		m.milestones, _ = m.stores.Milestones.Get(job)
	} else {
		m.milestones = nil
	}
	if svc := m.actions.SelectedService(); svc != "" {
		m.logs, _ = m.stores.Logs.Get(svc)
	} else {
		m.logs = nil
	}
	if m.ring != nil {
		m.failures = m.ring.Recent(10)
	}
	m.lastUpdate = time.Now()
}

// rowCount returns how many selectable rows the active tab has.
func (m Model) rowCount() int {
	switch m.currentContext() {
	case poll.ContextOverview:
		return len(m.alerts)
	case poll.ContextRuntime, poll.ContextLogs:
		return len(m.services)
	case poll.ContextJobs:
		return len(m.jobs)
	case poll.ContextVerify:
		return len(m.preflight.Checks)
	default:
		return 0
	}
}

// syncSelection keeps the cursor in range and propagates the focused job and
// service, which scope the milestone and log fetchers.
func (m *Model) syncSelection() {
	c := m.currentContext()
	n := m.rowCount()
	if m.selected[c] >= n {
		m.selected[c] = n - 1
	}
	if m.selected[c] < 0 {
		m.selected[c] = 0
	}

	switch c {
	case poll.ContextJobs:
		if len(m.jobs) > 0 {
			m.actions.SelectJob(m.jobs[m.selected[c]].ID)
		}
	case poll.ContextRuntime, poll.ContextLogs:
		if len(m.services) > 0 {
			m.actions.SelectService(m.services[m.selected[c]].Name)
		}
	}
}

// renderMarkdown renders markdown content using glamour
func (m Model) renderMarkdown(content string) string {
	width := m.width - 4
	if width < 40 {
		width = 40
	}

	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return content // fallback to raw
	}

	out, err := r.Render(content)
	if err != nil {
		return content
	}
	return out
}
