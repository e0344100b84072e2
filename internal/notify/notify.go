// Package notify delivers user-visible feedback and records absorbed
// background failures.
package notify

import (
	"log/slog"
	"sync"
	"time"
)

// Severity classifies a notification.
type Severity string

const (
	Success Severity = "success"
	Error   Severity = "error"
	Warning Severity = "warning"
	Info    Severity = "info"
)

// Sink accepts fire-and-forget user-visible notifications. Implementations
// must not block and must never be used for control flow.
type Sink interface {
	Publish(sev Severity, message string)
}

// Func adapts a function to the Sink interface.
type Func func(sev Severity, message string)

// Publish implements Sink.
func (f Func) Publish(sev Severity, message string) { f(sev, message) }

// LogSink writes notifications to a structured logger. Used by one-shot CLI
// commands where no toast surface exists.
type LogSink struct {
	Logger *slog.Logger
}

// Publish implements Sink.
func (s LogSink) Publish(sev Severity, message string) {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	switch sev {
	case Error:
		logger.Error(message)
	case Warning:
		logger.Warn(message)
	default:
		logger.Info(message)
	}
}

// Discard drops every notification.
type Discard struct{}

// Publish implements Sink.
func (Discard) Publish(Severity, string) {}

// SilentFailure is one background fetch failure that was absorbed rather
// than surfaced.
type SilentFailure struct {
	Resource string
	Message  string
	At       time.Time
}

// FailureRing is a bounded ring of recent silent failures. It is the
// minimum observability floor for background polling: the UI can show the
// tail without any failure ever reaching the toast surface.
type FailureRing struct {
	mu    sync.Mutex
	buf   []SilentFailure
	next  int
	count int
}

// NewFailureRing creates a ring holding at most capacity entries.
func NewFailureRing(capacity int) *FailureRing {
	if capacity <= 0 {
		capacity = 64
	}
	return &FailureRing{buf: make([]SilentFailure, capacity)}
}

// Record appends a failure, evicting the oldest entry when full.
func (r *FailureRing) Record(resource, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.buf[r.next] = SilentFailure{Resource: resource, Message: message, At: time.Now()}
	r.next = (r.next + 1) % len(r.buf)
	if r.count < len(r.buf) {
		r.count++
	}
}

// Recent returns up to n failures, newest first.
func (r *FailureRing) Recent(n int) []SilentFailure {
	r.mu.Lock()
	defer r.mu.Unlock()
	if n <= 0 || n > r.count {
		n = r.count
	}
	out := make([]SilentFailure, 0, n)
	for i := 1; i <= n; i++ {
		idx := (r.next - i + len(r.buf)) % len(r.buf)
		out = append(out, r.buf[idx])
	}
	return out
}

// Len returns the number of recorded failures, capped at capacity.
func (r *FailureRing) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}
