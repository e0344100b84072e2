// Package gateway is the command channel to the opsdeckd backend.
//
// The wire protocol is newline-delimited JSON over a unix socket: each
// request names a command and carries structured params, each response
// carries a typed payload or an error string. The backend may also push
// unsolicited events; those are surfaced on a channel.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Request is an outgoing command.
type Request struct {
	Method string          `json:"method"`
	Params json.RawMessage `json:"params,omitempty"`
	ID     string          `json:"id,omitempty"`
}

// Response is the backend's answer to one request.
type Response struct {
	Data  json.RawMessage `json:"data,omitempty"`
	Error string          `json:"error,omitempty"`
	ID    string          `json:"id,omitempty"`
}

// Event is an unsolicited push from the backend.
type Event struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// CommandError is a typed failure from a gateway call: a backend-reported
// error, a transport failure, or a client-side timeout. All three share the
// same shape per the polling error taxonomy.
type CommandError struct {
	Method  string
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *CommandError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Method, e.Message)
	}
	return fmt.Sprintf("%s: %v", e.Method, e.Cause)
}

// Unwrap exposes the cause for errors.Is checks.
func (e *CommandError) Unwrap() error { return e.Cause }

// IsTimeout reports whether err is a gateway call that exceeded its
// client-side ceiling.
func IsTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded)
}

// Wire records: payloads as the backend sends them. Timestamps are RFC3339
// strings; fetchers normalize them into domain shapes.

// ServiceRecord is one service as reported by list_services.
type ServiceRecord struct {
	Name        string  `json:"name"`
	DisplayName string  `json:"display_name,omitempty"`
	Status      string  `json:"status"`
	PID         int     `json:"pid,omitempty"`
	Port        int     `json:"port,omitempty"`
	UptimeSec   float64 `json:"uptime_sec"`
	CPUPercent  float64 `json:"cpu_percent"`
	MemoryMB    float64 `json:"memory_mb"`
	LastError   string  `json:"last_error,omitempty"`
}

// LogRecord is one log line from get_service_logs.
type LogRecord struct {
	Timestamp string `json:"timestamp"`
	Level     string `json:"level"`
	Service   string `json:"service"`
	Message   string `json:"message"`
}

// PreflightRecord is the result of run_preflight.
type PreflightRecord struct {
	RanAt  string                 `json:"ran_at"`
	Passed bool                   `json:"passed"`
	Checks []PreflightCheckRecord `json:"checks"`
}

// PreflightCheckRecord is one check inside a preflight run.
type PreflightCheckRecord struct {
	Name       string  `json:"name"`
	Status     string  `json:"status"`
	Detail     string  `json:"detail,omitempty"`
	DurationMS float64 `json:"duration_ms"`
}

// JobRecord is one job from list_jobs.
type JobRecord struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Status     string  `json:"status"`
	Progress   float64 `json:"progress"`
	CreatedAt  string  `json:"created_at"`
	StartedAt  string  `json:"started_at,omitempty"`
	FinishedAt string  `json:"finished_at,omitempty"`
	Error      string  `json:"error,omitempty"`
}

// MilestoneRecord is one pipeline step from get_job_milestones.
type MilestoneRecord struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	At     string `json:"at,omitempty"`
	Detail string `json:"detail,omitempty"`
}

// KBStatsRecord is the knowledge-base summary from get_kb_stats.
type KBStatsRecord struct {
	Documents     int    `json:"documents"`
	Chunks        int    `json:"chunks"`
	IndexSizeByte int64  `json:"index_size_bytes"`
	PendingJobs   int    `json:"pending_jobs"`
	LastIndexedAt string `json:"last_indexed_at,omitempty"`
}

// QuotaRecord is one quota bucket from get_quotas.
type QuotaRecord struct {
	Name     string  `json:"name"`
	Used     float64 `json:"used"`
	Limit    float64 `json:"limit"`
	Window   string  `json:"window"`
	ResetsAt string  `json:"resets_at,omitempty"`
}

// AlertRecord is one alert from list_alerts.
type AlertRecord struct {
	ID           string `json:"id"`
	Severity     string `json:"severity"`
	Message      string `json:"message"`
	At           string `json:"at"`
	Acknowledged bool   `json:"acknowledged"`
}

// OverviewRecord is the headline snapshot from get_overview.
type OverviewRecord struct {
	ServicesHealthy int     `json:"services_healthy"`
	ServicesTotal   int     `json:"services_total"`
	ActiveJobs      int     `json:"active_jobs"`
	QueuedJobs      int     `json:"queued_jobs"`
	RequestsPerMin  float64 `json:"requests_per_min"`
	ErrorRate       float64 `json:"error_rate"`
	CollectedAt     string  `json:"collected_at"`
}

// API is the typed command surface consumed by fetchers. *Client implements
// it; tests substitute fakes.
type API interface {
	ListServices(ctx context.Context) ([]*ServiceRecord, error)
	ServiceLogs(ctx context.Context, service string, limit int) ([]*LogRecord, error)
	RunPreflight(ctx context.Context) (*PreflightRecord, error)
	ListJobs(ctx context.Context) ([]*JobRecord, error)
	JobMilestones(ctx context.Context, jobID string) ([]*MilestoneRecord, error)
	KBStats(ctx context.Context) (*KBStatsRecord, error)
	Quotas(ctx context.Context) ([]*QuotaRecord, error)
	ListAlerts(ctx context.Context) ([]*AlertRecord, error)
	Overview(ctx context.Context) (*OverviewRecord, error)

	StartService(ctx context.Context, name string) error
	StopService(ctx context.Context, name string) error
	RestartService(ctx context.Context, name string) error
	AcknowledgeAlert(ctx context.Context, id string) error
}
