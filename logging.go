package rtbind

// LogEvent describes one step of a binding for logging.
type LogEvent struct {
	Binding string
	Kind    Kind
	Field   string
	Event   EventType
	Key     string
	Index   int
	Message string
	Err     error
}

// Logger records binding events.
type Logger interface {
	LogBinding(LogEvent)
}

// LoggerFunc adapts a function to Logger.
type LoggerFunc func(LogEvent)

// LogBinding implements Logger.
func (f LoggerFunc) LogBinding(event LogEvent) {
	if f != nil {
		f(event)
	}
}

type noopLogger struct{}

func (noopLogger) LogBinding(LogEvent) {}

// WithLogger attaches a logger to a binding.
func WithLogger(logger Logger) Option {
	return func(o *Options) {
		if logger == nil {
			o.Logger = noopLogger{}
			return
		}
		o.Logger = logger
	}
}
