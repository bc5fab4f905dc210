// Package metrics exports binding activity to Prometheus.
package metrics

import (
	"github.com/goliatone/go-rtbind"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Config configures the Prometheus collector.
type Config struct {
	// Namespace is the metrics namespace (default: "rtbind").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// Option configures the Prometheus collector.
type Option func(*Config)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) Option {
	return func(c *Config) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) Option {
	return func(c *Config) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) Option {
	return func(c *Config) {
		c.ConstLabels = labels
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) Option {
	return func(c *Config) {
		c.Registry = registry
	}
}

func defaultConfig() Config {
	return Config{
		Namespace: "rtbind",
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Collector implements rtbind.Metrics on Prometheus counters and gauges.
//
// Metrics collected:
//   - rtbind_bindings_opened_total: bindings registered, by kind
//   - rtbind_bindings_closed_total: bindings torn down, by kind
//   - rtbind_bindings_active: bindings currently registered, by kind
//   - rtbind_events_applied_total: child and value events applied, by kind and event
//   - rtbind_events_missed_total: events dropped for an unknown key, by kind and event
//   - rtbind_listener_errors_total: listener cancellations, by kind
type Collector struct {
	opened   *prometheus.CounterVec
	closed   *prometheus.CounterVec
	active   *prometheus.GaugeVec
	applied  *prometheus.CounterVec
	missed   *prometheus.CounterVec
	failures *prometheus.CounterVec
}

var _ rtbind.Metrics = (*Collector)(nil)

// New registers the collector's metrics and returns it. Registering twice
// against the same registry panics, as promauto does.
func New(opts ...Option) *Collector {
	config := defaultConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(&config)
		}
	}
	factory := promauto.With(config.Registry)

	return &Collector{
		opened: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "bindings_opened_total",
			Help:        "Total number of bindings registered",
			ConstLabels: config.ConstLabels,
		}, []string{"kind"}),

		closed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "bindings_closed_total",
			Help:        "Total number of bindings torn down",
			ConstLabels: config.ConstLabels,
		}, []string{"kind"}),

		active: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "bindings_active",
			Help:        "Number of bindings currently registered",
			ConstLabels: config.ConstLabels,
		}, []string{"kind"}),

		applied: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "events_applied_total",
			Help:        "Total number of source events applied to bound state",
			ConstLabels: config.ConstLabels,
		}, []string{"kind", "event"}),

		missed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "events_missed_total",
			Help:        "Total number of events referencing a key absent from the bound array",
			ConstLabels: config.ConstLabels,
		}, []string{"kind", "event"}),

		failures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "listener_errors_total",
			Help:        "Total number of listener cancellations reported by sources",
			ConstLabels: config.ConstLabels,
		}, []string{"kind"}),
	}
}

func (c *Collector) BindingOpened(kind rtbind.Kind) {
	c.opened.WithLabelValues(string(kind)).Inc()
	c.active.WithLabelValues(string(kind)).Inc()
}

func (c *Collector) BindingClosed(kind rtbind.Kind) {
	c.closed.WithLabelValues(string(kind)).Inc()
	c.active.WithLabelValues(string(kind)).Dec()
}

func (c *Collector) EventApplied(kind rtbind.Kind, event rtbind.EventType) {
	c.applied.WithLabelValues(string(kind), string(event)).Inc()
}

func (c *Collector) EventMissed(kind rtbind.Kind, event rtbind.EventType) {
	c.missed.WithLabelValues(string(kind), string(event)).Inc()
}

func (c *Collector) ListenerError(kind rtbind.Kind) {
	c.failures.WithLabelValues(string(kind)).Inc()
}
