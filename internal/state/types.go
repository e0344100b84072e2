package state

import "time"

// ServiceInfo is the canonical shape of one managed backend service.
type ServiceInfo struct {
	Name        string        `json:"name"`
	DisplayName string        `json:"display_name,omitempty"`
	Status      ServiceStatus `json:"status"`
	PID         int           `json:"pid,omitempty"`
	Port        int           `json:"port,omitempty"`
	Uptime      time.Duration `json:"uptime"`
	CPUPercent  float64       `json:"cpu_percent"`
	MemoryMB    float64       `json:"memory_mb"`
	LastError   string        `json:"last_error,omitempty"`
}

// ServiceStatus enumerates service health states.
type ServiceStatus string

const (
	ServiceRunning  ServiceStatus = "running"
	ServiceStopped  ServiceStatus = "stopped"
	ServiceDegraded ServiceStatus = "degraded"
	ServiceError    ServiceStatus = "error"
)

// PreflightReport is the result of the backend's environment verification.
type PreflightReport struct {
	RanAt  time.Time        `json:"ran_at"`
	Passed bool             `json:"passed"`
	Checks []PreflightCheck `json:"checks"`
}

// PreflightCheck is one verification step.
type PreflightCheck struct {
	Name     string        `json:"name"`
	Status   string        `json:"status"` // pass | warn | fail
	Detail   string        `json:"detail,omitempty"`
	Duration time.Duration `json:"duration"`
}

// JobInfo is one pipeline job.
type JobInfo struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Status     JobStatus `json:"status"`
	Progress   float64   `json:"progress"` // 0..1
	CreatedAt  time.Time `json:"created_at"`
	StartedAt  time.Time `json:"started_at,omitempty"`
	FinishedAt time.Time `json:"finished_at,omitempty"`
	Error      string    `json:"error,omitempty"`
}

// JobStatus enumerates job lifecycle states.
type JobStatus string

const (
	JobQueued    JobStatus = "queued"
	JobRunning   JobStatus = "running"
	JobSucceeded JobStatus = "succeeded"
	JobFailed    JobStatus = "failed"
	JobCancelled JobStatus = "cancelled"
)

// Milestone is one step of a job's pipeline, keyed in the store by job id.
type Milestone struct {
	Name   string    `json:"name"`
	Status string    `json:"status"` // pending | active | done | failed
	At     time.Time `json:"at,omitempty"`
	Detail string    `json:"detail,omitempty"`
}

// LogEntry is one normalized backend log line, keyed by service name.
type LogEntry struct {
	At      time.Time `json:"at"`
	Level   string    `json:"level"`
	Service string    `json:"service"`
	Message string    `json:"message"`
}

// KBStats summarizes the knowledge-base index.
type KBStats struct {
	Documents     int       `json:"documents"`
	Chunks        int       `json:"chunks"`
	IndexSizeByte int64     `json:"index_size_bytes"`
	PendingJobs   int       `json:"pending_jobs"`
	LastIndexedAt time.Time `json:"last_indexed_at,omitempty"`
}

// Quota is one API quota bucket.
type Quota struct {
	Name     string    `json:"name"`
	Used     float64   `json:"used"`
	Limit    float64   `json:"limit"`
	Window   string    `json:"window"` // e.g. "1h", "24h"
	ResetsAt time.Time `json:"resets_at,omitempty"`
}

// UsageSummary is the full quota snapshot.
type UsageSummary struct {
	Quotas    []Quota   `json:"quotas"`
	FetchedAt time.Time `json:"fetched_at"`
}

// AlertInfo is one backend-raised alert.
type AlertInfo struct {
	ID           string    `json:"id"`
	Severity     string    `json:"severity"` // info | warning | critical
	Message      string    `json:"message"`
	At           time.Time `json:"at"`
	Acknowledged bool      `json:"acknowledged"`
}

// OverviewMetrics is the dashboard headline snapshot.
type OverviewMetrics struct {
	ServicesHealthy int       `json:"services_healthy"`
	ServicesTotal   int       `json:"services_total"`
	ActiveJobs      int       `json:"active_jobs"`
	QueuedJobs      int       `json:"queued_jobs"`
	RequestsPerMin  float64   `json:"requests_per_min"`
	ErrorRate       float64   `json:"error_rate"`
	CollectedAt     time.Time `json:"collected_at"`
}
