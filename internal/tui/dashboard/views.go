package dashboard

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/opsdeck/opsdeck/internal/notify"
	"github.com/opsdeck/opsdeck/internal/poll"
	"github.com/opsdeck/opsdeck/internal/state"
	"github.com/opsdeck/opsdeck/internal/tui"
)

// TabView renders a tab's content for the current model state.
type TabView func(*Model) string

var tabViews = map[poll.Context]TabView{
	poll.ContextOverview: (*Model).renderOverview,
	poll.ContextRuntime:  (*Model).renderRuntime,
	poll.ContextJobs:     (*Model).renderJobs,
	poll.ContextLogs:     (*Model).renderLogs,
	poll.ContextVerify:   (*Model).renderVerify,
	poll.ContextKB:       (*Model).renderKB,
	poll.ContextUsage:    (*Model).renderUsage,
	poll.ContextSettings: (*Model).renderSettings,
}

var tabLabels = map[poll.Context]string{
	poll.ContextOverview: "Overview",
	poll.ContextRuntime:  "Runtime",
	poll.ContextJobs:     "Jobs",
	poll.ContextLogs:     "Logs",
	poll.ContextVerify:   "Verify",
	poll.ContextKB:       "KB",
	poll.ContextUsage:    "Usage",
	poll.ContextSettings: "Settings",
}

// View implements tea.Model
func (m Model) View() string {
	if m.helpMode {
		return m.renderHelpOverlay()
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")

	if view := tabViews[m.currentContext()]; view != nil {
		b.WriteString(view(&m))
	}

	b.WriteString("\n")
	b.WriteString(m.renderStatusLine())
	return b.String()
}

func (m Model) renderHeader() string {
	var tabs []string
	for i, c := range m.tabs {
		label := fmt.Sprintf(" %d:%s ", i+1, tabLabels[c])
		if i == m.tab {
			tabs = append(tabs, tui.StyleTabActive.Render(label))
		} else {
			tabs = append(tabs, tui.StyleTabInactive.Render(label))
		}
	}

	line := tui.Logo() + "  " + strings.Join(tabs, "·")
	if !m.gate.Visible() {
		line += "  " + tui.StyleMuted.Render("(paused)")
	}
	return line + "\n" + tui.StyleMuted.Render(strings.Repeat("─", max(m.width, 20)))
}

func (m Model) renderStatusLine() string {
	left := m.spinner.View() + " "
	if m.statusMsg != "" {
		style := tui.StyleNormal
		switch m.statusSev {
		case notify.Error:
			style = tui.StatusStyle("error")
		case notify.Warning:
			style = tui.StatusStyle("warning")
		case notify.Success:
			style = tui.StatusStyle("running")
		}
		left += style.Render(m.statusMsg)
	} else if !m.lastUpdate.IsZero() {
		left += tui.StyleMuted.Render("updated " + m.lastUpdate.Format("15:04:05"))
	}
	help := tui.StyleHelp.Render("tab switch · j/k move · r refresh · ? help · q quit")
	return left + "\n" + help
}

func (m *Model) renderOverview() string {
	var b strings.Builder
	o := m.overview

	b.WriteString(tui.StyleHeader.Render("SYSTEM") + "\n")
	healthStyle := tui.StatusStyle("running")
	if o.ServicesHealthy < o.ServicesTotal {
		healthStyle = tui.StatusStyle("degraded")
	}
	b.WriteString(fmt.Sprintf("  services  %s\n",
		healthStyle.Render(fmt.Sprintf("%d/%d healthy", o.ServicesHealthy, o.ServicesTotal))))
	b.WriteString(fmt.Sprintf("  jobs      %d active, %d queued\n", o.ActiveJobs, o.QueuedJobs))
	b.WriteString(fmt.Sprintf("  traffic   %.1f req/min, %.2f%% errors\n", o.RequestsPerMin, o.ErrorRate*100))

	b.WriteString("\n" + tui.StyleHeader.Render("ALERTS") + "\n")
	if len(m.alerts) == 0 {
		b.WriteString(tui.StyleMuted.Render("  none") + "\n")
		return b.String()
	}
	sel := m.selected[poll.ContextOverview]
	for i, a := range m.alerts {
		mark := "  "
		if a.Acknowledged {
			mark = " ✓"
		}
		line := fmt.Sprintf("%s%s %s  %s",
			mark,
			tui.StatusStyle(a.Severity).Render(strings.ToUpper(a.Severity)),
			a.Message,
			tui.StyleMuted.Render(relTime(a.At)),
		)
		b.WriteString(m.cursorLine(line, i == sel) + "\n")
	}
	b.WriteString(tui.StyleMuted.Render("  a acknowledge") + "\n")
	return b.String()
}

func (m *Model) renderRuntime() string {
	var b strings.Builder
	b.WriteString(tui.StyleHeader.Render(fmt.Sprintf("  %-18s %-10s %6s %8s %8s %8s", "SERVICE", "STATUS", "PORT", "UPTIME", "CPU", "MEM")) + "\n")
	if len(m.services) == 0 {
		b.WriteString(tui.StyleMuted.Render("  no services reported") + "\n")
		return b.String()
	}
	sel := m.selected[poll.ContextRuntime]
	for i, s := range m.services {
		icon := tui.StatusIcons[string(s.Status)]
		line := fmt.Sprintf("  %-18s %s %-8s %6s %8s %7.1f%% %6.0fMB",
			displayName(s),
			tui.StatusStyle(string(s.Status)).Render(icon),
			string(s.Status),
			portString(s.Port),
			shortDuration(s.Uptime),
			s.CPUPercent,
			s.MemoryMB,
		)
		if s.LastError != "" {
			line += "  " + tui.StatusStyle("error").Render(s.LastError)
		}
		b.WriteString(m.cursorLine(line, i == sel) + "\n")
	}
	b.WriteString(tui.StyleMuted.Render("  s start · x stop · c restart · enter logs") + "\n")
	return b.String()
}

func (m *Model) renderJobs() string {
	var b strings.Builder
	b.WriteString(tui.StyleHeader.Render(fmt.Sprintf("  %-12s %-28s %-10s %9s", "ID", "JOB", "STATUS", "PROGRESS")) + "\n")
	if len(m.jobs) == 0 {
		b.WriteString(tui.StyleMuted.Render("  no jobs") + "\n")
		return b.String()
	}
	sel := m.selected[poll.ContextJobs]
	for i, j := range m.jobs {
		line := fmt.Sprintf("  %-12s %-28s %s %-9s %8.0f%%",
			j.ID,
			truncate(j.Name, 28),
			tui.StatusStyle(string(j.Status)).Render(tui.StatusIcons[string(j.Status)]),
			string(j.Status),
			j.Progress*100,
		)
		b.WriteString(m.cursorLine(line, i == sel) + "\n")
	}

	if len(m.milestones) > 0 {
		b.WriteString("\n" + tui.StyleHeader.Render("MILESTONES") + "\n")
		for _, ms := range m.milestones {
			b.WriteString(fmt.Sprintf("  %s %-24s %s\n",
				tui.StatusStyle(ms.Status).Render(tui.StatusIcons[ms.Status]),
				ms.Name,
				tui.StyleMuted.Render(ms.Detail),
			))
		}
	}
	return b.String()
}

func (m *Model) renderLogs() string {
	var b strings.Builder
	svc := m.actions.SelectedService()
	if svc == "" {
		b.WriteString(tui.StyleMuted.Render("  select a service on the Runtime tab first") + "\n")
		return b.String()
	}
	b.WriteString(tui.StyleHeader.Render("LOGS · "+svc) + "\n")
	if len(m.logs) == 0 {
		b.WriteString(tui.StyleMuted.Render("  no log lines yet") + "\n")
		return b.String()
	}

	visible := m.logs
	if limit := m.height - 8; limit > 0 && len(visible) > limit {
		visible = visible[len(visible)-limit:]
	}
	for _, e := range visible {
		b.WriteString(fmt.Sprintf("  %s %s %s\n",
			tui.StyleMuted.Render(e.At.Format("15:04:05")),
			levelStyle(e.Level).Render(fmt.Sprintf("%-5s", strings.ToUpper(e.Level))),
			e.Message,
		))
	}
	return b.String()
}

func (m *Model) renderVerify() string {
	var b strings.Builder
	r := m.preflight
	if r.RanAt.IsZero() {
		b.WriteString(tui.StyleMuted.Render("  preflight has not run yet") + "\n")
		return b.String()
	}

	verdict := tui.StatusStyle("pass").Render("PASSED")
	if !r.Passed {
		verdict = tui.StatusStyle("fail").Render("FAILED")
	}
	b.WriteString(fmt.Sprintf("%s %s %s\n\n",
		tui.StyleHeader.Render("PREFLIGHT"),
		verdict,
		tui.StyleMuted.Render(relTime(r.RanAt)),
	))

	sel := m.selected[poll.ContextVerify]
	for i, c := range r.Checks {
		line := fmt.Sprintf("  %s %-28s %s",
			tui.StatusStyle(c.Status).Render(tui.StatusIcons[c.Status]),
			c.Name,
			tui.StyleMuted.Render(c.Detail),
		)
		b.WriteString(m.cursorLine(line, i == sel) + "\n")
	}
	return b.String()
}

func (m *Model) renderKB() string {
	var b strings.Builder
	kb := m.kb
	b.WriteString(tui.StyleHeader.Render("KNOWLEDGE BASE") + "\n")
	b.WriteString(fmt.Sprintf("  documents   %d\n", kb.Documents))
	b.WriteString(fmt.Sprintf("  chunks      %d\n", kb.Chunks))
	b.WriteString(fmt.Sprintf("  index size  %s\n", byteSize(kb.IndexSizeByte)))
	b.WriteString(fmt.Sprintf("  pending     %d\n", kb.PendingJobs))
	if !kb.LastIndexedAt.IsZero() {
		b.WriteString(fmt.Sprintf("  indexed     %s\n", tui.StyleMuted.Render(relTime(kb.LastIndexedAt))))
	}
	return b.String()
}

func (m *Model) renderUsage() string {
	var b strings.Builder
	b.WriteString(tui.StyleHeader.Render("QUOTAS") + "\n")
	if len(m.usage.Quotas) == 0 {
		b.WriteString(tui.StyleMuted.Render("  no quota data") + "\n")
		return b.String()
	}
	for _, q := range m.usage.Quotas {
		pct := 0.0
		if q.Limit > 0 {
			pct = q.Used / q.Limit
		}
		b.WriteString(fmt.Sprintf("  %-20s %s %5.1f%%  %s\n",
			q.Name,
			usageBar(pct, 24),
			pct*100,
			tui.StyleMuted.Render(q.Window),
		))
	}
	return b.String()
}

func (m *Model) renderSettings() string {
	var b strings.Builder
	b.WriteString(tui.StyleHeader.Render("CONNECTION") + "\n")
	b.WriteString(fmt.Sprintf("  socket   %s\n", m.cfg.Backend.Socket))
	b.WriteString(fmt.Sprintf("  theme    %s\n", m.cfg.UI.Theme))

	b.WriteString("\n" + tui.StyleHeader.Render("RECENT BACKGROUND FAILURES") + "\n")
	if len(m.failures) == 0 {
		b.WriteString(tui.StyleMuted.Render("  none") + "\n")
		return b.String()
	}
	for _, f := range m.failures {
		b.WriteString(fmt.Sprintf("  %s %-12s %s\n",
			tui.StyleMuted.Render(f.At.Format("15:04:05")),
			f.Resource,
			truncate(f.Message, 60),
		))
	}
	return b.String()
}

func (m *Model) renderHelpOverlay() string {
	return tui.StyleBorder.Render(m.helpBody) + "\n" +
		tui.StyleHelp.Render("esc close")
}

func (m *Model) cursorLine(line string, selected bool) string {
	if selected {
		return tui.StyleSelected.Render("▸") + line[1:]
	}
	return line
}

func levelStyle(level string) lipgloss.Style {
	switch strings.ToLower(level) {
	case "error", "fatal":
		return tui.StatusStyle("error")
	case "warn", "warning":
		return tui.StatusStyle("warning")
	case "debug":
		return tui.StyleMuted
	default:
		return tui.StyleNormal
	}
}

func displayName(s state.ServiceInfo) string {
	if s.DisplayName != "" {
		return truncate(s.DisplayName, 18)
	}
	return truncate(s.Name, 18)
}

func portString(port int) string {
	if port == 0 {
		return "-"
	}
	return fmt.Sprintf("%d", port)
}

func usageBar(pct float64, width int) string {
	if pct < 0 {
		pct = 0
	}
	if pct > 1 {
		pct = 1
	}
	filled := int(pct * float64(width))
	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	status := "running"
	if pct >= 0.9 {
		status = "error"
	} else if pct >= 0.7 {
		status = "warning"
	}
	return tui.StatusStyle(status).Render(bar)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	if n <= 1 {
		return s[:n]
	}
	return s[:n-1] + "…"
}

func shortDuration(d time.Duration) string {
	switch {
	case d <= 0:
		return "-"
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%.1fh", d.Hours())
	default:
		return fmt.Sprintf("%dd", int(d.Hours()/24))
	}
}

func relTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return shortDuration(time.Since(t)) + " ago"
}

func byteSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%dB", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f%cB", float64(n)/float64(div), "KMGTPE"[exp])
}
