package domain

import (
	"fmt"
	"strings"
	"time"
)

// Domain event names emitted by the commerce platform.
const (
	EventOrderPlaced               = "order.placed"
	EventOrderCanceled             = "order.canceled"
	EventOrderShipmentCreated      = "order.shipment_created"
	EventOrderRefundCreated        = "order.refund_created"
	EventOrderRefundFailed         = "order.refund_failed"
	EventOrderReturnRequested      = "order.return_requested"
	EventOrderItemsReturned        = "order.items_returned"
	EventOrderReturnActionRequired = "order.return_action_required"
	EventSwapCreated               = "swap.created"
	EventSwapReceived              = "swap.received"
	EventSwapShipmentCreated       = "swap.shipment_created"
	EventSwapPaymentCompleted      = "swap.payment_completed"
	EventClaimCreated              = "claim.created"
	EventClaimCanceled             = "claim.canceled"
	EventClaimShipmentCreated      = "claim.shipment_created"
)

// EventNotificationPrepared is the internal hop between enrichment and
// delivery. The multiplexer emits it after a successful prepare step so that
// delivery backends subscribe to prepared envelopes instead of raw domain
// events.
const EventNotificationPrepared = "slack.notification.prepared"

// EventPayload is the terse payload the platform attaches to its domain
// events. It references records by id; enrichment fetches the rest.
type EventPayload struct {
	ID             string `json:"id"`
	ReturnID       string `json:"return_id,omitempty"`
	FulfillmentID  string `json:"fulfillment_id,omitempty"`
	RefundID       string `json:"refund_id,omitempty"`
	NoNotification bool   `json:"no_notification,omitempty"`
}

// SlackNotificationEvent is a managed subscription record: while it exists,
// the multiplexer keeps a dispatcher attached for its event name.
type SlackNotificationEvent struct {
	ID        string `gorm:"type:varchar(64);primaryKey"`
	EventName string `gorm:"type:varchar(255);not null;uniqueIndex:idx_slack_events_event_name"`
	Value     []byte `gorm:"type:jsonb"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (SlackNotificationEvent) TableName() string {
	return "slack_notification_events"
}

func (e *SlackNotificationEvent) Validate() error {
	if strings.TrimSpace(e.EventName) == "" {
		return fmt.Errorf("%w: event name is required", ErrValidation)
	}
	return nil
}

// EventTitle renders an event name as human-readable fallback text,
// e.g. "order.refund_created" becomes "ORDER REFUND CREATED".
func EventTitle(eventName string) string {
	words := strings.FieldsFunc(eventName, func(r rune) bool {
		return r == '.' || r == '_'
	})
	return strings.ToUpper(strings.Join(words, " "))
}
