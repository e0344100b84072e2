package poll

import (
	"fmt"
	"time"

	"github.com/opsdeck/opsdeck/internal/fetch"
)

// Resource names one polled data domain. Values match the fetch package's
// guard keys so manual and polled refreshes collide on the same token.
const (
	ResourceServices   = fetch.KeyServices
	ResourcePreflight  = fetch.KeyPreflight
	ResourceJobs       = fetch.KeyJobs
	ResourceMilestones = "milestones"
	ResourceLogs       = "logs"
	ResourceKBStats    = fetch.KeyKBStats
	ResourceQuotas     = fetch.KeyQuotas
	ResourceAlerts     = fetch.KeyAlerts
	ResourceOverview   = fetch.KeyOverview
)

// Policy binds one resource to one context with a refresh cadence.
type Policy struct {
	Context           Context
	Resource          string
	Interval          time.Duration
	SuspendWhenHidden bool
}

// Table is the immutable polling policy set, built once at startup.
type Table struct {
	rows []Policy
}

// defaultRows returns the built-in policy set. Alerts poll in every context
// and keep polling while hidden: they feed notifications, not just pixels.
func defaultRows() []Policy {
	alerts := func(c Context) Policy {
		return Policy{Context: c, Resource: ResourceAlerts, Interval: 15 * time.Second}
	}
	rows := []Policy{
		{Context: ContextOverview, Resource: ResourceOverview, Interval: 5 * time.Second, SuspendWhenHidden: true},

		{Context: ContextRuntime, Resource: ResourceServices, Interval: 3 * time.Second, SuspendWhenHidden: true},
		{Context: ContextRuntime, Resource: ResourceOverview, Interval: 10 * time.Second, SuspendWhenHidden: true},

		{Context: ContextJobs, Resource: ResourceJobs, Interval: 8 * time.Second, SuspendWhenHidden: true},
		{Context: ContextJobs, Resource: ResourceMilestones, Interval: 2 * time.Second, SuspendWhenHidden: true},

		{Context: ContextLogs, Resource: ResourceLogs, Interval: 2 * time.Second, SuspendWhenHidden: true},
		{Context: ContextLogs, Resource: ResourceServices, Interval: 10 * time.Second, SuspendWhenHidden: true},

		{Context: ContextVerify, Resource: ResourcePreflight, Interval: 30 * time.Second, SuspendWhenHidden: true},

		{Context: ContextKB, Resource: ResourceKBStats, Interval: 10 * time.Second, SuspendWhenHidden: true},

		{Context: ContextUsage, Resource: ResourceQuotas, Interval: 20 * time.Second, SuspendWhenHidden: true},
	}
	for _, c := range Contexts() {
		rows = append(rows, alerts(c))
	}
	return rows
}

// NewTable builds the policy table, applying per-resource interval overrides
// from config. It rejects duplicate (context, resource) pairs.
func NewTable(overrides map[string]time.Duration) (Table, error) {
	rows := defaultRows()

	seen := make(map[string]bool, len(rows))
	for i := range rows {
		key := string(rows[i].Context) + "/" + rows[i].Resource
		if seen[key] {
			return Table{}, fmt.Errorf("duplicate policy for %s", key)
		}
		seen[key] = true

		if d, ok := overrides[rows[i].Resource]; ok && d > 0 {
			rows[i].Interval = d
		}
	}

	return Table{rows: rows}, nil
}

// For returns the policies bound to a context.
func (t Table) For(c Context) []Policy {
	var out []Policy
	for _, row := range t.rows {
		if row.Context == c {
			out = append(out, row)
		}
	}
	return out
}

// Resources returns the distinct resource names in the table.
func (t Table) Resources() []string {
	seen := make(map[string]bool)
	var out []string
	for _, row := range t.rows {
		if !seen[row.Resource] {
			seen[row.Resource] = true
			out = append(out, row.Resource)
		}
	}
	return out
}
