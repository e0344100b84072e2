package fetch

import (
	"fmt"
	"time"

	"github.com/opsdeck/opsdeck/internal/gateway"
	"github.com/opsdeck/opsdeck/internal/state"
)

// Normalization converts wire records into canonical domain shapes. A record
// that cannot be normalized fails the whole fetch; for reporting purposes a
// validation failure is indistinguishable from a transport failure.

func normalizeServices(records []*gateway.ServiceRecord) ([]state.ServiceInfo, error) {
	services := make([]state.ServiceInfo, 0, len(records))
	for i, r := range records {
		if r == nil || r.Name == "" {
			return nil, fmt.Errorf("service record %d missing name", i)
		}
		services = append(services, state.ServiceInfo{
			Name:        r.Name,
			DisplayName: r.DisplayName,
			Status:      normalizeServiceStatus(r.Status),
			PID:         r.PID,
			Port:        r.Port,
			Uptime:      time.Duration(r.UptimeSec * float64(time.Second)),
			CPUPercent:  r.CPUPercent,
			MemoryMB:    r.MemoryMB,
			LastError:   r.LastError,
		})
	}
	return services, nil
}

func normalizeServiceStatus(s string) state.ServiceStatus {
	switch state.ServiceStatus(s) {
	case state.ServiceRunning, state.ServiceStopped, state.ServiceDegraded, state.ServiceError:
		return state.ServiceStatus(s)
	default:
		return state.ServiceError
	}
}

func normalizePreflight(r *gateway.PreflightRecord) (state.PreflightReport, error) {
	if r == nil {
		return state.PreflightReport{}, fmt.Errorf("empty preflight payload")
	}
	report := state.PreflightReport{
		RanAt:  parseTime(r.RanAt),
		Passed: r.Passed,
		Checks: make([]state.PreflightCheck, 0, len(r.Checks)),
	}
	for i, c := range r.Checks {
		if c.Name == "" {
			return state.PreflightReport{}, fmt.Errorf("preflight check %d missing name", i)
		}
		report.Checks = append(report.Checks, state.PreflightCheck{
			Name:     c.Name,
			Status:   c.Status,
			Detail:   c.Detail,
			Duration: time.Duration(c.DurationMS * float64(time.Millisecond)),
		})
	}
	return report, nil
}

func normalizeJobs(records []*gateway.JobRecord) ([]state.JobInfo, error) {
	jobs := make([]state.JobInfo, 0, len(records))
	for i, r := range records {
		if r == nil || r.ID == "" {
			return nil, fmt.Errorf("job record %d missing id", i)
		}
		jobs = append(jobs, state.JobInfo{
			ID:         r.ID,
			Name:       r.Name,
			Status:     state.JobStatus(r.Status),
			Progress:   clamp01(r.Progress),
			CreatedAt:  parseTime(r.CreatedAt),
			StartedAt:  parseTime(r.StartedAt),
			FinishedAt: parseTime(r.FinishedAt),
			Error:      r.Error,
		})
	}
	return jobs, nil
}

func normalizeMilestones(records []*gateway.MilestoneRecord) ([]state.Milestone, error) {
	milestones := make([]state.Milestone, 0, len(records))
	for i, r := range records {
		if r == nil || r.Name == "" {
			return nil, fmt.Errorf("milestone record %d missing name", i)
		}
		milestones = append(milestones, state.Milestone{
			Name:   r.Name,
			Status: r.Status,
			At:     parseTime(r.At),
			Detail: r.Detail,
		})
	}
	return milestones, nil
}

func normalizeLogs(service string, records []*gateway.LogRecord) []state.LogEntry {
	entries := make([]state.LogEntry, 0, len(records))
	for _, r := range records {
		if r == nil {
			continue
		}
		entries = append(entries, state.LogEntry{
			At:      parseTime(r.Timestamp),
			Level:   r.Level,
			Service: service,
			Message: r.Message,
		})
	}
	return entries
}

func normalizeKBStats(r *gateway.KBStatsRecord) (state.KBStats, error) {
	if r == nil {
		return state.KBStats{}, fmt.Errorf("empty kb stats payload")
	}
	return state.KBStats{
		Documents:     r.Documents,
		Chunks:        r.Chunks,
		IndexSizeByte: r.IndexSizeByte,
		PendingJobs:   r.PendingJobs,
		LastIndexedAt: parseTime(r.LastIndexedAt),
	}, nil
}

func normalizeQuotas(records []*gateway.QuotaRecord) (state.UsageSummary, error) {
	summary := state.UsageSummary{
		Quotas:    make([]state.Quota, 0, len(records)),
		FetchedAt: time.Now(),
	}
	for i, r := range records {
		if r == nil || r.Name == "" {
			return state.UsageSummary{}, fmt.Errorf("quota record %d missing name", i)
		}
		summary.Quotas = append(summary.Quotas, state.Quota{
			Name:     r.Name,
			Used:     r.Used,
			Limit:    r.Limit,
			Window:   r.Window,
			ResetsAt: parseTime(r.ResetsAt),
		})
	}
	return summary, nil
}

func normalizeAlerts(records []*gateway.AlertRecord) ([]state.AlertInfo, error) {
	alerts := make([]state.AlertInfo, 0, len(records))
	for i, r := range records {
		if r == nil || r.ID == "" {
			return nil, fmt.Errorf("alert record %d missing id", i)
		}
		alerts = append(alerts, state.AlertInfo{
			ID:           r.ID,
			Severity:     r.Severity,
			Message:      r.Message,
			At:           parseTime(r.At),
			Acknowledged: r.Acknowledged,
		})
	}
	return alerts, nil
}

func normalizeOverview(r *gateway.OverviewRecord) (state.OverviewMetrics, error) {
	if r == nil {
		return state.OverviewMetrics{}, fmt.Errorf("empty overview payload")
	}
	return state.OverviewMetrics{
		ServicesHealthy: r.ServicesHealthy,
		ServicesTotal:   r.ServicesTotal,
		ActiveJobs:      r.ActiveJobs,
		QueuedJobs:      r.QueuedJobs,
		RequestsPerMin:  r.RequestsPerMin,
		ErrorRate:       r.ErrorRate,
		CollectedAt:     parseTime(r.CollectedAt),
	}, nil
}

// parseTime accepts RFC3339 and returns the zero time for anything else.
// Timestamps are display data; a malformed one should not fail the fetch.
func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
