package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/commercekit/slack-relay/internal/bus"
	"github.com/commercekit/slack-relay/internal/domain"
	"github.com/commercekit/slack-relay/internal/template"
)

func orderDescriptor(t *testing.T, prepare template.PrepareFn) template.Descriptor {
	t.Helper()

	if prepare == nil {
		prepare = func(ctx context.Context, eventName string, payload domain.EventPayload) (domain.Snapshot, error) {
			return &domain.OrderSnapshot{ID: payload.ID}, nil
		}
	}
	return template.Descriptor{
		Name:    "orders",
		Events:  []string{domain.EventOrderPlaced},
		Prepare: prepare,
		Format:  template.FallbackFormat,
	}
}

func capturedEnvelopes(t *testing.T, eventBus *bus.LocalBus) *[]domain.Envelope {
	t.Helper()

	envelopes := &[]domain.Envelope{}
	err := eventBus.Subscribe(domain.EventNotificationPrepared, func(ctx context.Context, eventName string, payload json.RawMessage) error {
		var envelope domain.Envelope
		if err := json.Unmarshal(payload, &envelope); err != nil {
			return err
		}
		*envelopes = append(*envelopes, envelope)
		return nil
	}, bus.SubscribeOptions{SubscriberID: "test-capture"})
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	return envelopes
}

func TestMultiplexerDispatch(t *testing.T) {
	t.Parallel()

	eventBus := bus.NewLocalBus(nil)
	registry := template.NewRegistry()
	if err := registry.Register(orderDescriptor(t, nil)); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	mux, err := NewMultiplexer(eventBus, registry, nil)
	if err != nil {
		t.Fatalf("NewMultiplexer() error = %v", err)
	}
	if err := mux.AttachAll(); err != nil {
		t.Fatalf("AttachAll() error = %v", err)
	}

	envelopes := capturedEnvelopes(t, eventBus)

	err = eventBus.Emit(context.Background(), domain.EventOrderPlaced, domain.EventPayload{ID: "order_1"})
	if err != nil {
		t.Fatalf("Emit() error = %v", err)
	}

	if len(*envelopes) != 1 {
		t.Fatalf("expected 1 envelope, got %d", len(*envelopes))
	}
	envelope := (*envelopes)[0]
	if envelope.TemplateID != "orders" {
		t.Errorf("template id = %q, want orders", envelope.TemplateID)
	}
	if envelope.EventName != domain.EventOrderPlaced {
		t.Errorf("event name = %q, want %q", envelope.EventName, domain.EventOrderPlaced)
	}
	if envelope.RecordID != "order_1" {
		t.Errorf("record id = %q, want order_1", envelope.RecordID)
	}
	if envelope.Data.Kind() != domain.SnapshotOrder {
		t.Errorf("snapshot kind = %q, want order", envelope.Data.Kind())
	}
}

func TestMultiplexerSuppressedEventEmitsNothing(t *testing.T) {
	t.Parallel()

	eventBus := bus.NewLocalBus(nil)
	registry := template.NewRegistry()
	prepare := func(ctx context.Context, eventName string, payload domain.EventPayload) (domain.Snapshot, error) {
		return nil, domain.ErrSuppressed
	}
	if err := registry.Register(orderDescriptor(t, prepare)); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	mux, err := NewMultiplexer(eventBus, registry, nil)
	if err != nil {
		t.Fatalf("NewMultiplexer() error = %v", err)
	}
	if err := mux.Attach(domain.EventOrderPlaced); err != nil {
		t.Fatalf("Attach() error = %v", err)
	}

	envelopes := capturedEnvelopes(t, eventBus)

	// Suppression is not an error: the emit must succeed silently.
	err = eventBus.Emit(context.Background(), domain.EventOrderPlaced, domain.EventPayload{ID: "order_1", NoNotification: true})
	if err != nil {
		t.Fatalf("Emit() error = %v", err)
	}
	if len(*envelopes) != 0 {
		t.Fatalf("expected no envelopes, got %d", len(*envelopes))
	}
}

func TestMultiplexerPrepareFailurePropagates(t *testing.T) {
	t.Parallel()

	eventBus := bus.NewLocalBus(nil)
	registry := template.NewRegistry()
	prepare := func(ctx context.Context, eventName string, payload domain.EventPayload) (domain.Snapshot, error) {
		return nil, errors.New("platform unavailable")
	}
	if err := registry.Register(orderDescriptor(t, prepare)); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	mux, err := NewMultiplexer(eventBus, registry, nil)
	if err != nil {
		t.Fatalf("NewMultiplexer() error = %v", err)
	}
	if err := mux.Attach(domain.EventOrderPlaced); err != nil {
		t.Fatalf("Attach() error = %v", err)
	}

	err = eventBus.Emit(context.Background(), domain.EventOrderPlaced, domain.EventPayload{ID: "order_1"})
	if err == nil {
		t.Fatal("expected prepare failure to surface")
	}
}

func TestMultiplexerReattachAfterOverrideKeepsOneDispatcher(t *testing.T) {
	t.Parallel()

	eventBus := bus.NewLocalBus(nil)
	registry := template.NewRegistry()
	if err := registry.Register(orderDescriptor(t, nil)); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	mux, err := NewMultiplexer(eventBus, registry, nil)
	if err != nil {
		t.Fatalf("NewMultiplexer() error = %v", err)
	}
	if err := mux.AttachAll(); err != nil {
		t.Fatalf("AttachAll() error = %v", err)
	}

	// A later descriptor with a different name takes over the event; the
	// re-attach must replace the subscription, not add a second one.
	override := orderDescriptor(t, nil)
	override.Name = "orders-override"
	if err := registry.Register(override); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if err := mux.AttachAll(); err != nil {
		t.Fatalf("AttachAll() error = %v", err)
	}

	if got := eventBus.SubscriberCount(domain.EventOrderPlaced); got != 1 {
		t.Fatalf("subscribers on %s = %d, want 1", domain.EventOrderPlaced, got)
	}

	envelopes := capturedEnvelopes(t, eventBus)
	err = eventBus.Emit(context.Background(), domain.EventOrderPlaced, domain.EventPayload{ID: "order_1"})
	if err != nil {
		t.Fatalf("Emit() error = %v", err)
	}
	if len(*envelopes) != 1 {
		t.Fatalf("expected 1 envelope for one emit, got %d", len(*envelopes))
	}
	if (*envelopes)[0].TemplateID != "orders-override" {
		t.Errorf("template id = %q, want the overriding descriptor", (*envelopes)[0].TemplateID)
	}
}

func TestMultiplexerDetachDropsEvents(t *testing.T) {
	t.Parallel()

	eventBus := bus.NewLocalBus(nil)
	registry := template.NewRegistry()
	if err := registry.Register(orderDescriptor(t, nil)); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	mux, err := NewMultiplexer(eventBus, registry, nil)
	if err != nil {
		t.Fatalf("NewMultiplexer() error = %v", err)
	}
	if err := mux.Attach(domain.EventOrderPlaced); err != nil {
		t.Fatalf("Attach() error = %v", err)
	}

	envelopes := capturedEnvelopes(t, eventBus)
	mux.Detach(domain.EventOrderPlaced)

	err = eventBus.Emit(context.Background(), domain.EventOrderPlaced, domain.EventPayload{ID: "order_1"})
	if err != nil {
		t.Fatalf("Emit() error = %v", err)
	}
	if len(*envelopes) != 0 {
		t.Fatalf("expected detached dispatcher to drop the event, got %d envelopes", len(*envelopes))
	}
}

func TestMultiplexerAttachUnknownEvent(t *testing.T) {
	t.Parallel()

	mux, err := NewMultiplexer(bus.NewLocalBus(nil), template.NewRegistry(), nil)
	if err != nil {
		t.Fatalf("NewMultiplexer() error = %v", err)
	}

	err = mux.Attach("order.placed")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("Attach() error = %v, want not found", err)
	}
}
