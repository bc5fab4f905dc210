package rtbind

// Metrics observes binding activity. pkg/metrics provides a Prometheus
// implementation.
type Metrics interface {
	BindingOpened(kind Kind)
	BindingClosed(kind Kind)
	EventApplied(kind Kind, event EventType)
	EventMissed(kind Kind, event EventType)
	ListenerError(kind Kind)
}

type noopMetrics struct{}

func (noopMetrics) BindingOpened(Kind)           {}
func (noopMetrics) BindingClosed(Kind)           {}
func (noopMetrics) EventApplied(Kind, EventType) {}
func (noopMetrics) EventMissed(Kind, EventType)  {}
func (noopMetrics) ListenerError(Kind)           {}

// WithMetrics attaches a metrics observer to a binding.
func WithMetrics(metrics Metrics) Option {
	return func(o *Options) {
		if metrics == nil {
			o.Metrics = noopMetrics{}
			return
		}
		o.Metrics = metrics
	}
}
