package dashboard

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/opsdeck/opsdeck/internal/fetch"
	"github.com/opsdeck/opsdeck/internal/notify"
	"github.com/opsdeck/opsdeck/internal/poll"
)

// Update implements tea.Model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		if m.helpMode {
			return m.handleHelpMode(msg)
		}
		return m.handleNormalMode(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.helpMode {
			m.helpBody = m.renderMarkdown(helpText)
		}
		return m, nil

	case tea.FocusMsg:
		m.gate.Set(true)
		return m, nil

	case tea.BlurMsg:
		m.gate.Set(false)
		return m, nil

	case tickMsg:
		m.readStores()
		m.syncSelection()
		return m, m.tick()

	case toastMsg:
		return m.showStatus(msg.sev, msg.text)

	case clearStatusMsg:
		m.statusMsg = ""
		return m, nil

	case contextActiveMsg:
		return m, nil

	case refreshDoneMsg:
		return m, nil

	case commandDoneMsg:
		// Outcome toasts arrive through the notification sink; nothing to
		// add here.
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m Model) handleHelpMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "q", "?":
		m.helpMode = false
	}
	return m, nil
}

func (m Model) handleNormalMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		return m, tea.Quit

	case "?":
		m.helpMode = true
		m.helpBody = m.renderMarkdown(helpText)
		return m, nil

	case "tab", "l", "right":
		return m.setTab((m.tab + 1) % len(m.tabs))

	case "shift+tab", "h", "left":
		return m.setTab((m.tab - 1 + len(m.tabs)) % len(m.tabs))

	case "1", "2", "3", "4", "5", "6", "7", "8":
		idx := int(msg.String()[0] - '1')
		if idx < len(m.tabs) {
			return m.setTab(idx)
		}
		return m, nil

	case "j", "down":
		c := m.currentContext()
		if m.selected[c] < m.rowCount()-1 {
			m.selected[c]++
			m.syncSelection()
		}
		return m, nil

	case "k", "up":
		c := m.currentContext()
		if m.selected[c] > 0 {
			m.selected[c]--
			m.syncSelection()
		}
		return m, nil

	case "enter":
		// Drill from a service row into its logs.
		if c := m.currentContext(); c == poll.ContextRuntime && len(m.services) > 0 {
			m.actions.SelectService(m.services[m.selected[c]].Name)
			return m.setTab(indexOf(m.tabs, poll.ContextLogs))
		}
		return m, nil

	case "r":
		return m.manualRefresh()

	case "s":
		return m.serviceCommand("start", m.fetchers.StartService)

	case "x":
		return m.serviceCommand("stop", m.fetchers.StopService)

	case "c":
		return m.serviceCommand("restart", m.fetchers.RestartService)

	case "a":
		return m.ackAlert()
	}

	return m, nil
}

func (m Model) setTab(idx int) (tea.Model, tea.Cmd) {
	if idx == m.tab {
		return m, nil
	}
	m.tab = idx
	m.syncSelection()
	return m, m.activateContext(m.currentContext())
}

// manualRefresh runs the active context's consolidated refresh loudly. When
// the primary resource is already in flight it reports that instead of
// queuing a duplicate.
func (m Model) manualRefresh() (tea.Model, tea.Cmd) {
	c := m.currentContext()
	key, ok := m.primaryKey(c)
	if !ok {
		return m.showStatus(notify.Info, "nothing to refresh here")
	}
	if m.fetchers.Guard().Held(key) {
		return m.showStatus(notify.Info, "already refreshing")
	}

	action := m.actions.ForResource(m.primaryResource(c))
	if action == nil {
		return m.showStatus(notify.Info, "nothing to refresh here")
	}
	mm, cmd := m.showStatus(notify.Info, "refreshing "+string(c)+"...")
	return mm, tea.Batch(cmd, func() tea.Msg {
		action(context.Background(), false)
		return refreshDoneMsg{}
	})
}

// primaryResource maps a context to the policy resource its manual refresh
// targets.
func (m Model) primaryResource(c poll.Context) string {
	switch c {
	case poll.ContextOverview:
		return poll.ResourceOverview
	case poll.ContextRuntime:
		return poll.ResourceServices
	case poll.ContextJobs:
		return poll.ResourceJobs
	case poll.ContextLogs:
		return poll.ResourceLogs
	case poll.ContextVerify:
		return poll.ResourcePreflight
	case poll.ContextKB:
		return poll.ResourceKBStats
	case poll.ContextUsage:
		return poll.ResourceQuotas
	default:
		return ""
	}
}

// primaryKey maps a context to the guard key its manual refresh contends on.
func (m Model) primaryKey(c poll.Context) (string, bool) {
	switch c {
	case poll.ContextOverview:
		return fetch.KeyOverview, true
	case poll.ContextRuntime:
		return fetch.KeyServices, true
	case poll.ContextJobs:
		return fetch.KeyJobs, true
	case poll.ContextLogs:
		svc := m.actions.SelectedService()
		if svc == "" {
			return "", false
		}
		return fetch.LogKey(svc), true
	case poll.ContextVerify:
		return fetch.KeyPreflight, true
	case poll.ContextKB:
		return fetch.KeyKBStats, true
	case poll.ContextUsage:
		return fetch.KeyQuotas, true
	default:
		return "", false
	}
}

func (m Model) serviceCommand(verb string, run func(context.Context, string) error) (tea.Model, tea.Cmd) {
	c := m.currentContext()
	if c != poll.ContextRuntime || len(m.services) == 0 {
		return m, nil
	}
	name := m.services[m.selected[c]].Name
	mm, cmd := m.showStatus(notify.Info, fmt.Sprintf("%sing %s...", verb, name))
	return mm, tea.Batch(cmd, func() tea.Msg {
		return commandDoneMsg{err: run(context.Background(), name)}
	})
}

func (m Model) ackAlert() (tea.Model, tea.Cmd) {
	if m.currentContext() != poll.ContextOverview || len(m.alerts) == 0 {
		return m, nil
	}
	alert := m.alerts[m.selected[poll.ContextOverview]]
	if alert.Acknowledged {
		return m.showStatus(notify.Info, "already acknowledged")
	}
	mm, cmd := m.showStatus(notify.Info, "acknowledging...")
	return mm, tea.Batch(cmd, func() tea.Msg {
		return commandDoneMsg{err: m.fetchers.AcknowledgeAlert(context.Background(), alert.ID)}
	})
}

// showStatus displays a temporary status message
func (m Model) showStatus(sev notify.Severity, msg string) (Model, tea.Cmd) {
	m.statusMsg = msg
	m.statusSev = sev
	return m, tea.Tick(statusClearDelay, func(time.Time) tea.Msg {
		return clearStatusMsg{}
	})
}

func indexOf(tabs []poll.Context, c poll.Context) int {
	for i, t := range tabs {
		if t == c {
			return i
		}
	}
	return 0
}
