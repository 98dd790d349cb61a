package template

import (
	"context"
	"errors"
	"testing"

	"github.com/commercekit/slack-relay/internal/domain"
	"github.com/commercekit/slack-relay/internal/platform"
)

type fakeProviders struct {
	RetrieveOrderFn  func(ctx context.Context, id string, q platform.RetrieveQuery) (*domain.OrderSnapshot, error)
	RetrieveReturnFn func(ctx context.Context, id string, q platform.RetrieveQuery) (*domain.ReturnSnapshot, error)
	RetrieveSwapFn   func(ctx context.Context, id string, q platform.RetrieveQuery) (*domain.SwapSnapshot, error)
	RetrieveClaimFn  func(ctx context.Context, id string, q platform.RetrieveQuery) (*domain.ClaimSnapshot, error)
}

func (f *fakeProviders) RetrieveOrder(ctx context.Context, id string, q platform.RetrieveQuery) (*domain.OrderSnapshot, error) {
	return f.RetrieveOrderFn(ctx, id, q)
}

func (f *fakeProviders) RetrieveReturn(ctx context.Context, id string, q platform.RetrieveQuery) (*domain.ReturnSnapshot, error) {
	return f.RetrieveReturnFn(ctx, id, q)
}

func (f *fakeProviders) RetrieveSwap(ctx context.Context, id string, q platform.RetrieveQuery) (*domain.SwapSnapshot, error) {
	return f.RetrieveSwapFn(ctx, id, q)
}

func (f *fakeProviders) RetrieveClaim(ctx context.Context, id string, q platform.RetrieveQuery) (*domain.ClaimSnapshot, error) {
	return f.RetrieveClaimFn(ctx, id, q)
}

func staticDescriptor(name string, events ...string) Descriptor {
	return Descriptor{
		Name:   name,
		Events: events,
		Prepare: func(ctx context.Context, eventName string, payload domain.EventPayload) (domain.Snapshot, error) {
			return &domain.GenericSnapshot{ID: payload.ID}, nil
		},
		Format: FallbackFormat,
	}
}

func TestRegistryRegister(t *testing.T) {
	t.Parallel()

	t.Run("indexes descriptor under every event", func(t *testing.T) {
		t.Parallel()

		registry := NewRegistry()
		if err := registry.Register(staticDescriptor("orders", "order.placed", "order.canceled")); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		for _, event := range []string{"order.placed", "order.canceled"} {
			d, ok := registry.Resolve(event)
			if !ok {
				t.Fatalf("expected %q to resolve", event)
			}
			if d.Name != "orders" {
				t.Errorf("expected descriptor orders, got %q", d.Name)
			}
		}
	})

	t.Run("last registration wins", func(t *testing.T) {
		t.Parallel()

		registry := NewRegistry()
		if err := registry.Register(staticDescriptor("first", "order.placed")); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if err := registry.Register(staticDescriptor("second", "order.placed")); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		d, ok := registry.Resolve("order.placed")
		if !ok {
			t.Fatal("expected order.placed to resolve")
		}
		if d.Name != "second" {
			t.Errorf("expected later registration to win, got %q", d.Name)
		}
	})

	t.Run("rejects invalid descriptors", func(t *testing.T) {
		t.Parallel()

		registry := NewRegistry()
		cases := []Descriptor{
			{},
			{Name: "no-events", Prepare: staticDescriptor("x", "e").Prepare, Format: FallbackFormat},
			{Name: "dup", Events: []string{"a", "a"}, Prepare: staticDescriptor("x", "e").Prepare, Format: FallbackFormat},
			{Name: "no-prepare", Events: []string{"a"}, Format: FallbackFormat},
			{Name: "no-format", Events: []string{"a"}, Prepare: staticDescriptor("x", "e").Prepare},
		}
		for _, d := range cases {
			if err := registry.Register(d); !errors.Is(err, domain.ErrValidation) {
				t.Errorf("descriptor %q: expected validation error, got %v", d.Name, err)
			}
		}
	})
}

func TestRegistryRegisterAll(t *testing.T) {
	t.Parallel()

	registry := NewRegistry()
	err := registry.RegisterAll(
		staticDescriptor("good", "order.placed"),
		Descriptor{Name: "broken"},
		staticDescriptor("also-good", "order.canceled"),
	)
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error for the broken descriptor, got %v", err)
	}

	// Valid descriptors register despite the failure.
	if _, ok := registry.Resolve("order.placed"); !ok {
		t.Error("expected order.placed to resolve")
	}
	if _, ok := registry.Resolve("order.canceled"); !ok {
		t.Error("expected order.canceled to resolve")
	}
}

func TestRegistryEvents(t *testing.T) {
	t.Parallel()

	registry := NewRegistry()
	if err := registry.RegisterAll(
		staticDescriptor("swaps", "swap.created"),
		staticDescriptor("orders", "order.placed", "order.canceled"),
	); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	got := registry.Events()
	want := []string{"order.canceled", "order.placed", "swap.created"}
	if len(got) != len(want) {
		t.Fatalf("expected %d events, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event %d: expected %q, got %q", i, want[i], got[i])
		}
	}
}

func TestRegistryMergeFormatters(t *testing.T) {
	t.Parallel()

	t.Run("custom formatter replaces built-in, prepare is kept", func(t *testing.T) {
		t.Parallel()

		prepared := false
		base := staticDescriptor("orders", "order.placed")
		base.Prepare = func(ctx context.Context, eventName string, payload domain.EventPayload) (domain.Snapshot, error) {
			prepared = true
			return &domain.GenericSnapshot{ID: payload.ID}, nil
		}

		registry := NewRegistry()
		if err := registry.Register(base); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		err := registry.MergeFormatters(map[string]FormatFn{
			"order.placed": func(eventName string, data domain.Snapshot, opts Options) (domain.StructuredMessage, error) {
				return domain.StructuredMessage{Text: "custom"}, nil
			},
		})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		d, ok := registry.Resolve("order.placed")
		if !ok {
			t.Fatal("expected order.placed to resolve")
		}
		if _, err := d.Prepare(context.Background(), "order.placed", domain.EventPayload{ID: "order_1"}); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !prepared {
			t.Error("expected the original prepare step to run")
		}
		msg, err := d.Format("order.placed", &domain.GenericSnapshot{ID: "order_1"}, Options{})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if msg.Text != "custom" {
			t.Errorf("expected the custom formatter to run, got %q", msg.Text)
		}
	})

	t.Run("override stays scoped to its event name", func(t *testing.T) {
		t.Parallel()

		registry := NewRegistry()
		if err := registry.RegisterAll(Builtins(&fakeProviders{})...); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		err := registry.MergeFormatters(map[string]FormatFn{
			domain.EventOrderPlaced: func(eventName string, data domain.Snapshot, opts Options) (domain.StructuredMessage, error) {
				return domain.StructuredMessage{Text: "custom"}, nil
			},
		})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		placed, ok := registry.Resolve(domain.EventOrderPlaced)
		if !ok {
			t.Fatal("expected order.placed to resolve")
		}
		if len(placed.Events) != 1 || placed.Events[0] != domain.EventOrderPlaced {
			t.Fatalf("override must be narrowed to one event, got %v", placed.Events)
		}
		msg, err := placed.Format(domain.EventOrderPlaced, &domain.OrderSnapshot{ID: "order_1", CurrencyCode: "usd"}, Options{})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if msg.Text != "custom" {
			t.Errorf("expected the custom formatter on order.placed, got %q", msg.Text)
		}

		canceled, ok := registry.Resolve(domain.EventOrderCanceled)
		if !ok {
			t.Fatal("expected order.canceled to resolve")
		}
		if canceled.Name != "orders" {
			t.Errorf("sibling event must keep the built-in descriptor, got %q", canceled.Name)
		}
		msg, err = canceled.Format(domain.EventOrderCanceled, &domain.OrderSnapshot{ID: "order_1", CurrencyCode: "usd"}, Options{})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if msg.Text == "custom" {
			t.Error("custom formatter for order.placed leaked to order.canceled")
		}
	})

	t.Run("unknown event gets a generic descriptor", func(t *testing.T) {
		t.Parallel()

		registry := NewRegistry()
		err := registry.MergeFormatters(map[string]FormatFn{
			"customer.created": func(eventName string, data domain.Snapshot, opts Options) (domain.StructuredMessage, error) {
				return domain.StructuredMessage{Text: "custom"}, nil
			},
		})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		d, ok := registry.Resolve("customer.created")
		if !ok {
			t.Fatal("expected customer.created to resolve")
		}
		snap, err := d.Prepare(context.Background(), "customer.created", domain.EventPayload{ID: "cus_1"})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if snap.RecordID() != "cus_1" {
			t.Errorf("expected record id cus_1, got %q", snap.RecordID())
		}
	})

	t.Run("nil formatter is rejected", func(t *testing.T) {
		t.Parallel()

		registry := NewRegistry()
		err := registry.MergeFormatters(map[string]FormatFn{"order.placed": nil})
		if !errors.Is(err, domain.ErrValidation) {
			t.Fatalf("expected validation error, got %v", err)
		}
	})
}

func TestGenericDescriptor(t *testing.T) {
	t.Parallel()

	d := GenericDescriptor("customer.password_reset")
	if d.Name != "event-customer-password_reset" {
		t.Errorf("unexpected descriptor name %q", d.Name)
	}
	if d.SubscriberID() != "slack-relay-event-customer-password_reset" {
		t.Errorf("unexpected subscriber id %q", d.SubscriberID())
	}

	t.Run("suppression flag short-circuits", func(t *testing.T) {
		t.Parallel()

		_, err := d.Prepare(context.Background(), "customer.password_reset", domain.EventPayload{ID: "cus_1", NoNotification: true})
		if !errors.Is(err, domain.ErrSuppressed) {
			t.Fatalf("expected suppression, got %v", err)
		}
	})

	t.Run("formats the title-only fallback", func(t *testing.T) {
		t.Parallel()

		snap, err := d.Prepare(context.Background(), "customer.password_reset", domain.EventPayload{ID: "cus_1"})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		msg, err := d.Format("customer.password_reset", snap, Options{})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if msg.Text != "CUSTOMER PASSWORD RESET" {
			t.Errorf("unexpected fallback text %q", msg.Text)
		}
		if msg.CorrelationID != "cus_1" {
			t.Errorf("expected correlation id cus_1, got %q", msg.CorrelationID)
		}
	})
}

func TestBuiltinsCoverEventFamilies(t *testing.T) {
	t.Parallel()

	registry := NewRegistry()
	if err := registry.RegisterAll(Builtins(&fakeProviders{})...); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	for _, event := range []string{
		domain.EventOrderPlaced,
		domain.EventOrderShipmentCreated,
		domain.EventOrderReturnRequested,
		domain.EventSwapCreated,
		domain.EventClaimCreated,
	} {
		if _, ok := registry.Resolve(event); !ok {
			t.Errorf("expected built-in template for %q", event)
		}
	}
}
