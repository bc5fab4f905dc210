package rtbind

import (
	"github.com/goliatone/go-rtbind/layering"
	"github.com/goliatone/go-rtbind/pkg/activity"
)

// Reset controls what teardown writes into the bound field.
type Reset struct {
	// Disabled leaves the last synchronized value in place.
	Disabled bool
	// Producer supplies the value written on teardown. When nil the binding
	// writes its own empty value (nil for objects, an empty *Array for arrays).
	Producer func() any
}

// Options is the configuration of one binding. It is resolved once per bind
// call by merging the supplied options over DefaultOptions.
type Options struct {
	Reset     *Reset
	Serialize Serializer
	Logger    Logger
	Metrics   Metrics

	// Activity receives lifecycle events for the binding.
	Activity activity.Hooks
	// ActivityTemplate seeds actor, tenant and channel fields of emitted events.
	ActivityTemplate activity.BindingEventInput
}

// Option configures a binding.
type Option func(*Options)

// DefaultOptions returns the configuration applied when nothing is supplied:
// reset enabled and CreateRecord as serializer.
func DefaultOptions() Options {
	return Options{
		Reset:     &Reset{},
		Serialize: CreateRecord,
		Logger:    noopLogger{},
		Metrics:   noopMetrics{},
	}
}

// WithReset toggles the teardown reset. WithReset(false) keeps the last
// synchronized value in the bound field.
func WithReset(enabled bool) Option {
	return func(o *Options) {
		o.Reset = &Reset{Disabled: !enabled}
	}
}

// WithResetFunc makes teardown write the result of fn into the bound field.
func WithResetFunc(fn func() any) Option {
	return func(o *Options) {
		o.Reset = &Reset{Producer: fn}
	}
}

// WithSerializer replaces the default CreateRecord serializer.
func WithSerializer(serialize Serializer) Option {
	return func(o *Options) {
		o.Serialize = serialize
	}
}

// WithActivity emits lifecycle events to hooks. Nil hooks are dropped.
func WithActivity(hooks activity.Hooks, template activity.BindingEventInput) Option {
	normalized := cloneActivityHooks(hooks)
	return func(o *Options) {
		o.Activity = normalized
		o.ActivityTemplate = template
	}
}

// WithOptions applies every set field of supplied, keeping values already
// configured where supplied leaves them unset.
func WithOptions(supplied Options) Option {
	return func(o *Options) {
		*o = layering.MergeLayers(supplied, *o)
	}
}

func resolveOptions(opts []Option) Options {
	supplied := Options{}
	for _, opt := range opts {
		if opt != nil {
			opt(&supplied)
		}
	}
	return layering.MergeLayers(supplied, DefaultOptions())
}

// resetValue reports the value teardown writes, or false when reset is
// disabled. fallback provides the binding's own empty value.
func (o Options) resetValue(fallback func() any) (any, bool) {
	if o.Reset == nil {
		return fallback(), true
	}
	if o.Reset.Disabled {
		return nil, false
	}
	if o.Reset.Producer != nil {
		return o.Reset.Producer(), true
	}
	return fallback(), true
}

func cloneActivityHooks(hooks activity.Hooks) activity.Hooks {
	if len(hooks) == 0 {
		return nil
	}
	normalized := make([]activity.ActivityHook, 0, len(hooks))
	for _, hook := range hooks {
		if hook == nil {
			continue
		}
		normalized = append(normalized, hook)
	}
	if len(normalized) == 0 {
		return nil
	}
	return activity.Hooks(normalized)
}
