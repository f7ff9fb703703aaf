package events_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/stint/internal/events"
)

func TestNewEvent(t *testing.T) {
	sessionID := uuid.New()
	userID := uuid.New()
	occurredAt := time.Now()
	duration := int64(3600)

	evt := events.NewEvent(events.TypeClockOut, sessionID, userID, &duration, true, occurredAt)

	if evt.ID == uuid.Nil {
		t.Error("event ID should be generated")
	}
	if evt.Type != events.TypeClockOut {
		t.Errorf("Type = %q; want %q", evt.Type, events.TypeClockOut)
	}
	if evt.SessionID != sessionID {
		t.Errorf("SessionID = %v; want %v", evt.SessionID, sessionID)
	}
	if evt.UserID != userID {
		t.Errorf("UserID = %v; want %v", evt.UserID, userID)
	}
	if evt.Duration == nil || *evt.Duration != 3600 {
		t.Errorf("Duration = %v; want 3600", evt.Duration)
	}
	if !evt.Verified {
		t.Error("Verified should be true")
	}
	if !evt.OccurredAt.Equal(occurredAt) {
		t.Errorf("OccurredAt = %v; want %v", evt.OccurredAt, occurredAt)
	}
}

func TestNewEvent_GeneratesUniqueIDs(t *testing.T) {
	sessionID := uuid.New()
	userID := uuid.New()

	ids := make(map[uuid.UUID]bool)
	for i := 0; i < 10; i++ {
		evt := events.NewEvent(events.TypeClockIn, sessionID, userID, nil, false, time.Now())
		if ids[evt.ID] {
			t.Errorf("duplicate event ID generated: %v", evt.ID)
		}
		ids[evt.ID] = true
	}
}

func TestEvent_MarshalShape(t *testing.T) {
	duration := int64(1800)
	evt := events.Event{
		ID:         uuid.New(),
		Type:       events.TypeSplit,
		SessionID:  uuid.New(),
		UserID:     uuid.New(),
		Duration:   &duration,
		Verified:   true,
		OccurredAt: time.Date(2026, 3, 15, 4, 59, 59, 0, time.UTC),
	}

	body, err := json.Marshal(evt)
	if err != nil {
		t.Fatalf("marshal event: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(body, &decoded); err != nil {
		t.Fatalf("unmarshal event: %v", err)
	}

	for _, key := range []string{"id", "type", "session_id", "user_id", "duration", "verified", "occurred_at"} {
		if _, ok := decoded[key]; !ok {
			t.Errorf("marshaled event missing key %q", key)
		}
	}
	if decoded["type"] != "session.split" {
		t.Errorf("type = %v; want session.split", decoded["type"])
	}
	if decoded["duration"] != float64(1800) {
		t.Errorf("duration = %v; want 1800", decoded["duration"])
	}
}

func TestEvent_MarshalOmitsNilDuration(t *testing.T) {
	evt := events.NewEvent(events.TypeClockIn, uuid.New(), uuid.New(), nil, false, time.Now())

	body, err := json.Marshal(evt)
	if err != nil {
		t.Fatalf("marshal event: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(body, &decoded); err != nil {
		t.Fatalf("unmarshal event: %v", err)
	}

	if _, ok := decoded["duration"]; ok {
		t.Error("duration should be omitted for open sessions")
	}
}

func TestNoopPublisher(t *testing.T) {
	var p events.NoopPublisher

	evt := events.NewEvent(events.TypeVerified, uuid.New(), uuid.New(), nil, true, time.Now())
	if err := p.Publish(context.Background(), evt); err != nil {
		t.Errorf("Publish() = %v; want nil", err)
	}
	if err := p.Close(); err != nil {
		t.Errorf("Close() = %v; want nil", err)
	}
}

func TestResilientPublisher_DelegatesPublish(t *testing.T) {
	inner := &recordingPublisher{}
	p := events.NewResilientPublisher(inner, events.ResilientConfig{})

	evt := events.NewEvent(events.TypeCorrected, uuid.New(), uuid.New(), nil, true, time.Now())
	if err := p.Publish(context.Background(), evt); err != nil {
		t.Fatalf("Publish() = %v; want nil", err)
	}
	if inner.published != 1 {
		t.Errorf("published = %d; want 1", inner.published)
	}

	if err := p.Close(); err != nil {
		t.Errorf("Close() = %v; want nil", err)
	}
	if !inner.closed {
		t.Error("Close should reach the underlying publisher")
	}
}

type recordingPublisher struct {
	published int
	closed    bool
}

func (p *recordingPublisher) Publish(ctx context.Context, evt events.Event) error {
	p.published++
	return nil
}

func (p *recordingPublisher) Close() error {
	p.closed = true
	return nil
}
