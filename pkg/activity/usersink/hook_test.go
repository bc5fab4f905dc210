package usersink_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/goliatone/go-rtbind/pkg/activity"
	"github.com/goliatone/go-rtbind/pkg/activity/usersink"
	usertypes "github.com/goliatone/go-users/pkg/types"
	"github.com/google/uuid"
)

type recordingSink struct {
	records []usertypes.ActivityRecord
	err     error
}

func (s *recordingSink) Log(_ context.Context, record usertypes.ActivityRecord) error {
	s.records = append(s.records, record)
	return s.err
}

func TestHookNotifyMapsBindingEvent(t *testing.T) {
	sink := &recordingSink{}
	hook := usersink.Hook{Sink: sink}

	actorID := uuid.New()
	userID := uuid.New()
	tenantID := uuid.New()
	bindingID := uuid.NewString()

	event := activity.BuildBindingRejectedEvent(activity.BindingEventInput{
		ActorID:        actorID.String(),
		UserID:         userID.String(),
		TenantID:       tenantID.String(),
		BindingID:      bindingID,
		Kind:           "array",
		Field:          "todos",
		Channel:        "dashboard",
		DefinitionCode: "binding:rejected",
		Recipients:     []string{"ops@example.com"},
		Err:            errors.New("permission denied"),
	})
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	event.OccurredAt = now

	if err := hook.Notify(context.Background(), event); err != nil {
		t.Fatalf("notify: %v", err)
	}

	if len(sink.records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(sink.records))
	}
	record := sink.records[0]
	if record.ActorID != actorID || record.UserID != userID || record.TenantID != tenantID {
		t.Fatalf("unexpected ids: %+v", record)
	}
	if record.Verb != activity.VerbBindingRejected || record.ObjectType != activity.ObjectTypeBinding || record.ObjectID != bindingID {
		t.Fatalf("unexpected record payload: %+v", record)
	}
	if record.Channel != "dashboard" {
		t.Fatalf("expected channel dashboard got %q", record.Channel)
	}
	if record.OccurredAt != now {
		t.Fatalf("expected occurred_at %v got %v", now, record.OccurredAt)
	}
	if record.Data["field"] != "todos" || record.Data["kind"] != "array" {
		t.Fatalf("expected binding metadata got %v", record.Data)
	}
	if record.Data["error"] != "permission denied" {
		t.Fatalf("expected error metadata got %v", record.Data["error"])
	}
	if record.Data["definition_code"] != "binding:rejected" {
		t.Fatalf("expected definition_code metadata got %v", record.Data["definition_code"])
	}
	recipients, ok := record.Data["recipients"].([]string)
	if !ok || len(recipients) != 1 || recipients[0] != "ops@example.com" {
		t.Fatalf("expected recipients metadata got %v", record.Data["recipients"])
	}
}

func TestHookNotifySkipsInvalidEvent(t *testing.T) {
	sink := &recordingSink{}
	hook := usersink.Hook{Sink: sink}

	_ = hook.Notify(context.Background(), activity.Event{})

	if len(sink.records) != 0 {
		t.Fatalf("expected no records for empty event, got %d", len(sink.records))
	}
}

func TestHookNotifyUsesSystemActor(t *testing.T) {
	sink := &recordingSink{}
	system := uuid.New()
	hook := usersink.Hook{Sink: sink, SystemActor: system}

	err := hook.Notify(context.Background(), activity.BuildBindingBoundEvent(activity.BindingEventInput{
		ActorID:   "not-a-uuid",
		BindingID: "b1",
	}))
	if err != nil {
		t.Fatalf("notify: %v", err)
	}
	if len(sink.records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(sink.records))
	}
	if sink.records[0].ActorID != system {
		t.Fatalf("expected system actor, got %s", sink.records[0].ActorID)
	}
	if sink.records[0].OccurredAt.IsZero() {
		t.Fatalf("expected occurred_at to be defaulted")
	}
}

func TestHookNotifyReturnsSinkError(t *testing.T) {
	boom := errors.New("sink down")
	hook := usersink.Hook{Sink: &recordingSink{err: boom}}

	err := hook.Notify(context.Background(), activity.BuildBindingUnboundEvent(activity.BindingEventInput{BindingID: "b1"}))
	if !errors.Is(err, boom) {
		t.Fatalf("expected sink error, got %v", err)
	}
}
