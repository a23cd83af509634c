package core

// Logger is any service that can log and report application events.
// args may hold errors, key/value maps and the caller's user.Identity.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}

// Metrics records domain events.
type Metrics interface {
	QuestionAsked(outcome string)
	VoteCast(direction, outcome string)
	UpstreamFailure(kind string)
	DashboardFallback(dashboard string)
}

// NopMetrics discards every event.
type NopMetrics struct{}

func (NopMetrics) QuestionAsked(string) {}
func (NopMetrics) VoteCast(string, string) {}
func (NopMetrics) UpstreamFailure(string) {}
func (NopMetrics) DashboardFallback(string) {}
