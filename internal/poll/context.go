// Package poll decides which remote data to refresh, how often, and under
// what suspension conditions, per navigational context.
package poll

// Context is the navigational section the user is currently looking at.
// Exactly one is active at a time; it scopes which resources get polled.
type Context string

const (
	ContextOverview Context = "overview"
	ContextRuntime  Context = "runtime"
	ContextJobs     Context = "jobs"
	ContextLogs     Context = "logs"
	ContextVerify   Context = "verify"
	ContextKB       Context = "kb"
	ContextUsage    Context = "usage"
	ContextSettings Context = "settings"
)

// Contexts lists every navigational context in display order.
func Contexts() []Context {
	return []Context{
		ContextOverview,
		ContextRuntime,
		ContextJobs,
		ContextLogs,
		ContextVerify,
		ContextKB,
		ContextUsage,
		ContextSettings,
	}
}

// ParseContext maps any input to a context. Unrecognized input falls back to
// the overview so every route resolves somewhere.
func ParseContext(s string) Context {
	switch Context(s) {
	case ContextOverview, ContextRuntime, ContextJobs, ContextLogs,
		ContextVerify, ContextKB, ContextUsage, ContextSettings:
		return Context(s)
	default:
		return ContextOverview
	}
}
