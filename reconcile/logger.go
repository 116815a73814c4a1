package reconcile

// Logger receives diagnostic events from a reconciler. The method set matches
// the logger this module ships in internal/logger, so that type satisfies it
// directly; any structured logger can be adapted.
type Logger interface {
	Info(msg string, fields map[string]any)
	Warn(msg string, fields map[string]any)
	Error(msg string, fields map[string]any)
}

type nopLogger struct{}

func (nopLogger) Info(string, map[string]any)  {}
func (nopLogger) Warn(string, map[string]any)  {}
func (nopLogger) Error(string, map[string]any) {}
