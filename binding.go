package rtbind

import (
	"context"
	"errors"

	"github.com/goliatone/go-rtbind/pkg/activity"
	"github.com/google/uuid"
)

// ErrNilSource is passed to Reject when a bind call has no source.
var ErrNilSource = errors.New("rtbind: source is required")

// binding carries the per-call state shared by both binders.
type binding struct {
	id      string
	kind    Kind
	field   string
	options Options
	emitter *activity.Emitter
}

func newBinding(kind Kind, field string, opts []Option) *binding {
	options := resolveOptions(opts)
	return &binding{
		id:      uuid.NewString(),
		kind:    kind,
		field:   field,
		options: options,
		emitter: activity.NewEmitter(options.Activity, activity.Config{
			Enabled: len(options.Activity) > 0,
			Channel: options.ActivityTemplate.Channel,
		}),
	}
}

func (b *binding) log(event LogEvent) {
	event.Binding = b.id
	event.Kind = b.kind
	event.Field = b.field
	b.options.Logger.LogBinding(event)
}

func (b *binding) emit(build func(activity.BindingEventInput) activity.Event, err error) {
	if !b.emitter.Enabled() {
		return
	}
	input := b.options.ActivityTemplate
	input.BindingID = b.id
	input.Kind = string(b.kind)
	input.Field = b.field
	input.Err = err
	if emitErr := b.emitter.Emit(context.Background(), build(input)); emitErr != nil {
		b.log(LogEvent{Message: "activity emit failed", Err: emitErr})
	}
}

func (b *binding) opened() {
	b.options.Metrics.BindingOpened(b.kind)
	b.log(LogEvent{Message: "bound"})
	b.emit(activity.BuildBindingBoundEvent, nil)
}

func (b *binding) closed() {
	b.options.Metrics.BindingClosed(b.kind)
	b.log(LogEvent{Message: "unbound"})
	b.emit(activity.BuildBindingUnboundEvent, nil)
}

func (b *binding) applied(event EventType, key string, index int) {
	b.options.Metrics.EventApplied(b.kind, event)
	b.log(LogEvent{Event: event, Key: key, Index: index, Message: "applied"})
}

func (b *binding) missed(event EventType, key string) {
	b.options.Metrics.EventMissed(b.kind, event)
	b.log(LogEvent{Event: event, Key: key, Index: -1, Message: "missed", Err: &MissError{Event: event, Key: key}})
}

// rejecter forwards listener errors verbatim to reject.
func (b *binding) rejecter(reject func(error)) CancelCallback {
	return func(err error) {
		b.options.Metrics.ListenerError(b.kind)
		b.log(LogEvent{Message: "listener error", Err: err})
		b.emit(activity.BuildBindingRejectedEvent, err)
		if reject != nil {
			reject(err)
		}
	}
}

// resolver signals completion of the one-time initial read.
func (b *binding) resolver(resolve func(Snapshot)) func(Snapshot) {
	return func(snapshot Snapshot) {
		b.log(LogEvent{Event: EventValue, Message: "synced"})
		b.emit(activity.BuildBindingSyncedEvent, nil)
		if resolve != nil {
			resolve(snapshot)
		}
	}
}

func opsOrDefault(ops Ops) Ops {
	if ops == nil {
		return DefaultOps
	}
	return ops
}
