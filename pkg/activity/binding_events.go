package activity

import "strings"

const (
	VerbBindingBound    = "binding.bound"
	VerbBindingSynced   = "binding.synced"
	VerbBindingRejected = "binding.rejected"
	VerbBindingUnbound  = "binding.unbound"

	// ObjectTypeBinding is the object type of every binding lifecycle event.
	ObjectTypeBinding = "rtbind.binding"
)

// BindingEventInput describes the common fields for binding lifecycle events.
type BindingEventInput struct {
	ActorID        string
	UserID         string
	TenantID       string
	BindingID      string
	Kind           string
	Field          string
	Channel        string
	DefinitionCode string
	Recipients     []string
	Metadata       map[string]any
	Err            error
}

// BuildBindingBoundEvent constructs the event emitted when listeners register.
func BuildBindingBoundEvent(input BindingEventInput) Event {
	return buildBindingEvent(VerbBindingBound, input)
}

// BuildBindingSyncedEvent constructs the event emitted when the initial read completes.
func BuildBindingSyncedEvent(input BindingEventInput) Event {
	return buildBindingEvent(VerbBindingSynced, input)
}

// BuildBindingRejectedEvent constructs the event emitted on a listener error.
func BuildBindingRejectedEvent(input BindingEventInput) Event {
	return buildBindingEvent(VerbBindingRejected, input)
}

// BuildBindingUnboundEvent constructs the event emitted on teardown.
func BuildBindingUnboundEvent(input BindingEventInput) Event {
	return buildBindingEvent(VerbBindingUnbound, input)
}

func buildBindingEvent(verb string, input BindingEventInput) Event {
	metadata := cloneMap(input.Metadata)
	if input.Kind != "" {
		metadata = ensureMetadata(metadata)
		metadata["kind"] = input.Kind
	}
	if input.Field != "" {
		metadata = ensureMetadata(metadata)
		metadata["field"] = input.Field
	}
	if input.Err != nil {
		metadata = ensureMetadata(metadata)
		metadata["error"] = input.Err.Error()
	}

	recipients := input.Recipients
	if len(recipients) > 0 {
		recipients = append([]string{}, input.Recipients...)
	}

	objectID := strings.TrimSpace(input.BindingID)
	if objectID == "" {
		objectID = strings.TrimSpace(input.Field)
	}
	if objectID == "" {
		objectID = ObjectTypeBinding
	}

	return Event{
		Verb:           verb,
		ActorID:        strings.TrimSpace(input.ActorID),
		UserID:         strings.TrimSpace(input.UserID),
		TenantID:       strings.TrimSpace(input.TenantID),
		ObjectType:     ObjectTypeBinding,
		ObjectID:       objectID,
		Channel:        strings.TrimSpace(input.Channel),
		DefinitionCode: strings.TrimSpace(input.DefinitionCode),
		Recipients:     recipients,
		Metadata:       metadata,
	}
}

func ensureMetadata(meta map[string]any) map[string]any {
	if meta == nil {
		return map[string]any{}
	}
	return meta
}
