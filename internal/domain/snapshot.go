package domain

import (
	"fmt"
	"strings"
)

// SnapshotKind discriminates the enriched record families.
type SnapshotKind string

const (
	SnapshotOrder   SnapshotKind = "order"
	SnapshotReturn  SnapshotKind = "return"
	SnapshotSwap    SnapshotKind = "swap"
	SnapshotClaim   SnapshotKind = "claim"
	SnapshotGeneric SnapshotKind = "generic"
)

func (k SnapshotKind) IsValid() bool {
	switch k {
	case SnapshotOrder, SnapshotReturn, SnapshotSwap, SnapshotClaim, SnapshotGeneric:
		return true
	}
	return false
}

// Snapshot is an immutable, event-family-specific projection of the domain
// record an event refers to. It carries exactly what the formatters need.
type Snapshot interface {
	Kind() SnapshotKind
	// RecordID is the primary identifier of the enriched record and becomes
	// the correlation id of every message formatted from this snapshot.
	RecordID() string
}

// LineItem is an order line as the order formatters consume it.
// Monetary fields are integer minor units.
type LineItem struct {
	ID          string `json:"id"`
	ProductID   string `json:"product_id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Thumbnail   string `json:"thumbnail"`
	Quantity    int    `json:"quantity"`
	Total       int64  `json:"total"`
}

// Fulfillment identifies which line items a shipment covered.
type Fulfillment struct {
	ID      string   `json:"id"`
	ItemIDs []string `json:"item_ids"`
}

func (f Fulfillment) Contains(itemID string) bool {
	for _, id := range f.ItemIDs {
		if id == itemID {
			return true
		}
	}
	return false
}

// Refund is a single refund row on an order.
type Refund struct {
	ID     string `json:"id"`
	Amount int64  `json:"amount"`
	Reason string `json:"reason"`
	Note   string `json:"note,omitempty"`
}

// OrderSnapshot backs the order.* event family.
type OrderSnapshot struct {
	ID            string        `json:"id"`
	DisplayID     int           `json:"display_id"`
	CurrencyCode  string        `json:"currency_code"`
	Subtotal      int64         `json:"subtotal"`
	ShippingTotal int64         `json:"shipping_total"`
	DiscountTotal int64         `json:"discount_total"`
	TaxTotal      int64         `json:"tax_total"`
	Total         int64         `json:"total"`
	RefundedTotal int64         `json:"refunded_total"`
	PaidTotal     int64         `json:"paid_total"`
	Items         []LineItem    `json:"items"`
	Fulfillments  []Fulfillment `json:"fulfillments,omitempty"`
	Refunds       []Refund      `json:"refunds,omitempty"`

	// FulfillmentID and RefundID select the sub-entity a shipment or refund
	// event is about. Enrichment copies them from the event payload; the
	// formatters filter by them without re-validating existence.
	FulfillmentID string `json:"fulfillment_id,omitempty"`
	RefundID      string `json:"refund_id,omitempty"`
}

func (s *OrderSnapshot) Kind() SnapshotKind { return SnapshotOrder }
func (s *OrderSnapshot) RecordID() string   { return s.ID }

// ReturnItem is a returned line with requested/received quantities.
type ReturnItem struct {
	ProductID         string `json:"product_id"`
	Title             string `json:"title"`
	Description       string `json:"description"`
	Thumbnail         string `json:"thumbnail"`
	RequestedQuantity int    `json:"requested_quantity"`
	ReceivedQuantity  int    `json:"received_quantity"`
}

// ReturnSnapshot backs the return-related order.* events.
type ReturnSnapshot struct {
	ID             string       `json:"id"`
	OrderID        string       `json:"order_id"`
	OrderDisplayID int          `json:"order_display_id"`
	CurrencyCode   string       `json:"currency_code"`
	RefundAmount   int64        `json:"refund_amount"`
	Items          []ReturnItem `json:"items"`
}

func (s *ReturnSnapshot) Kind() SnapshotKind { return SnapshotReturn }
func (s *ReturnSnapshot) RecordID() string   { return s.ID }

// ExchangeItem is an item shipped out as part of a swap or claim replacement.
type ExchangeItem struct {
	ID                string `json:"id"`
	ProductID         string `json:"product_id"`
	Title             string `json:"title"`
	Description       string `json:"description"`
	Thumbnail         string `json:"thumbnail"`
	Quantity          int    `json:"quantity"`
	FulfilledQuantity int    `json:"fulfilled_quantity"`
	ShippedQuantity   int    `json:"shipped_quantity"`
}

// SwapSnapshot backs the swap.* event family.
type SwapSnapshot struct {
	ID              string         `json:"id"`
	OrderID         string         `json:"order_id"`
	OrderDisplayID  int            `json:"order_display_id"`
	CurrencyCode    string         `json:"currency_code"`
	ReturnItems     []ReturnItem   `json:"return_items"`
	AdditionalItems []ExchangeItem `json:"additional_items"`
	RefundAmount    int64          `json:"refund_amount"`
	CartTotal       int64          `json:"cart_total"`
	DifferenceDue   int64          `json:"difference_due"`
}

func (s *SwapSnapshot) Kind() SnapshotKind { return SnapshotSwap }
func (s *SwapSnapshot) RecordID() string   { return s.ID }

// Claim resolution types.
const (
	ClaimTypeRefund  = "refund"
	ClaimTypeReplace = "replace"
)

// ClaimItem is a claimed line with its reason.
type ClaimItem struct {
	ProductID    string `json:"product_id"`
	ProductTitle string `json:"product_title"`
	VariantTitle string `json:"variant_title"`
	Thumbnail    string `json:"thumbnail"`
	Quantity     int    `json:"quantity"`
	Reason       string `json:"reason"`
	Note         string `json:"note,omitempty"`
}

// ClaimSnapshot backs the claim.* event family.
type ClaimSnapshot struct {
	ID                 string         `json:"id"`
	OrderID            string         `json:"order_id"`
	OrderDisplayID     int            `json:"order_display_id"`
	CurrencyCode       string         `json:"currency_code"`
	Type               string         `json:"type"`
	RefundAmount       int64          `json:"refund_amount"`
	ClaimItems         []ClaimItem    `json:"claim_items"`
	AdditionalItems    []ExchangeItem `json:"additional_items,omitempty"`
	ReturnRefundAmount int64          `json:"return_refund_amount"`
	Fulfillments       []Fulfillment  `json:"fulfillments,omitempty"`

	FulfillmentID string `json:"fulfillment_id,omitempty"`
}

func (s *ClaimSnapshot) Kind() SnapshotKind { return SnapshotClaim }
func (s *ClaimSnapshot) RecordID() string   { return s.ID }

// GenericSnapshot backs dynamically registered events that have no dedicated
// template. It carries only the record id from the raw payload.
type GenericSnapshot struct {
	ID string `json:"id"`
}

func (s *GenericSnapshot) Kind() SnapshotKind { return SnapshotGeneric }
func (s *GenericSnapshot) RecordID() string   { return s.ID }

// NewSnapshot returns an empty snapshot of the given kind, used when decoding
// tagged envelopes off the bus.
func NewSnapshot(kind SnapshotKind) (Snapshot, error) {
	switch kind {
	case SnapshotOrder:
		return &OrderSnapshot{}, nil
	case SnapshotReturn:
		return &ReturnSnapshot{}, nil
	case SnapshotSwap:
		return &SwapSnapshot{}, nil
	case SnapshotClaim:
		return &ClaimSnapshot{}, nil
	case SnapshotGeneric:
		return &GenericSnapshot{}, nil
	}
	return nil, fmt.Errorf("%w: unknown snapshot kind %q", ErrValidation, strings.TrimSpace(string(kind)))
}
