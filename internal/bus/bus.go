package bus

import (
	"context"
	"encoding/json"
)

// Handler consumes one event occurrence. The payload is the JSON encoding of
// whatever was emitted; handlers decode the slice they expect. A returned
// error is surfaced to the bus's own failure policy (requeue for brokered
// buses, joined error for the in-process bus).
type Handler func(ctx context.Context, eventName string, payload json.RawMessage) error

// SubscribeOptions tags a subscription.
type SubscribeOptions struct {
	// SubscriberID must be stable across restarts. Subscribing twice with the
	// same event name and subscriber id replaces the previous handler instead
	// of adding a second one.
	SubscriberID string
}

// EventBus is the internal event fabric the pipeline consumes: one dispatcher
// per event name goes in, prepared-notification envelopes come back out.
type EventBus interface {
	Subscribe(eventName string, handler Handler, opts SubscribeOptions) error
	Emit(ctx context.Context, eventName string, payload any) error
}
