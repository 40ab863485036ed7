package record

import "time"

// Access operations reported to AccessLogger.
const (
	OpGet  = "get"
	OpSet  = "set"
	OpRule = "rule"
)

// Sources describe which stage of the pipeline produced an event's outcome.
const (
	SourceStorage   = "storage"
	SourceOverride  = "override"
	SourceValidator = "validator"
	SourcePolicy    = "policy"
	SourceMissing   = "missing"
)

// AccessEvent describes one property access for logging.
type AccessEvent struct {
	Op       string
	Property string
	Key      string
	Source   string
	Engine   string
	Expr     string
	Duration time.Duration
	Err      error
}

// AccessLogger records property access events.
type AccessLogger interface {
	LogAccess(AccessEvent)
}

// AccessLoggerFunc adapts a function to AccessLogger.
type AccessLoggerFunc func(AccessEvent)

// LogAccess implements AccessLogger.
func (f AccessLoggerFunc) LogAccess(event AccessEvent) {
	if f != nil {
		f(event)
	}
}

type noopAccessLogger struct{}

func (noopAccessLogger) LogAccess(AccessEvent) {}
