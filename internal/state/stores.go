package state

// Stores aggregates every domain container. It is built once at startup and
// handed to fetchers (writers) and the UI (reader).
type Stores struct {
	Services   *Store[[]ServiceInfo]
	Preflight  *Store[PreflightReport]
	Jobs       *Store[[]JobInfo]
	Milestones *KeyedStore[[]Milestone] // keyed by job id
	Logs       *KeyedStore[[]LogEntry]  // keyed by service name
	KB         *Store[KBStats]
	Usage      *Store[UsageSummary]
	Alerts     *Store[[]AlertInfo]
	Overview   *Store[OverviewMetrics]
}

// NewStores creates the full set of empty containers.
func NewStores() *Stores {
	return &Stores{
		Services:   NewStore[[]ServiceInfo](),
		Preflight:  NewStore[PreflightReport](),
		Jobs:       NewStore[[]JobInfo](),
		Milestones: NewKeyedStore[[]Milestone](),
		Logs:       NewKeyedStore[[]LogEntry](),
		KB:         NewStore[KBStats](),
		Usage:      NewStore[UsageSummary](),
		Alerts:     NewStore[[]AlertInfo](),
		Overview:   NewStore[OverviewMetrics](),
	}
}
