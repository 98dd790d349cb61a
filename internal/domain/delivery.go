package domain

import (
	"fmt"
	"strings"
	"time"
)

// DeliveryStatus is the terminal outcome of a single channel post.
type DeliveryStatus string

const (
	DeliverySent   DeliveryStatus = "SENT"
	DeliveryFailed DeliveryStatus = "FAILED"
)

func (s DeliveryStatus) String() string { return string(s) }

func (s DeliveryStatus) IsValid() bool {
	switch s {
	case DeliverySent, DeliveryFailed:
		return true
	}
	return false
}

func ParseDeliveryStatusFromString(s string) (DeliveryStatus, error) {
	st := DeliveryStatus(strings.ToUpper(strings.TrimSpace(s)))
	if !st.IsValid() {
		return "", fmt.Errorf("%w: invalid delivery status %q", ErrValidation, s)
	}
	return st, nil
}

// DeliveryResult is what a send or resend reports back. It is terminal: a
// failed delivery is recorded, never retried by the sender itself.
type DeliveryResult struct {
	Destination string
	Status      DeliveryStatus
	Payload     StructuredMessage
}

// NotificationRecord is the stored outcome of a delivery attempt, holding the
// raw formatted message so a failed or stale delivery can be reposted without
// re-running enrichment or formatting.
type NotificationRecord struct {
	ID            string         `gorm:"type:uuid;primaryKey"`
	EventName     string         `gorm:"type:varchar(255);not null"`
	TemplateID    string         `gorm:"type:varchar(255);not null"`
	CorrelationID string         `gorm:"type:varchar(255);not null"`
	Destination   string         `gorm:"type:varchar(64);not null"`
	Status        DeliveryStatus `gorm:"type:varchar(20);not null"`
	Payload       []byte         `gorm:"type:jsonb;not null"`
	ResendOfID    *string        `gorm:"type:uuid"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (NotificationRecord) TableName() string {
	return "notifications"
}

func (n *NotificationRecord) Validate() error {
	if strings.TrimSpace(n.EventName) == "" {
		return fmt.Errorf("%w: event name is required", ErrValidation)
	}
	if strings.TrimSpace(n.CorrelationID) == "" {
		return fmt.Errorf("%w: correlation id is required", ErrValidation)
	}
	if !n.Status.IsValid() {
		return fmt.Errorf("%w: invalid delivery status %q", ErrValidation, n.Status)
	}
	if len(n.Payload) == 0 {
		return fmt.Errorf("%w: payload is required", ErrValidation)
	}
	return nil
}
