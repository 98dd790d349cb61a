package template

import (
	"context"
	"fmt"

	"github.com/commercekit/slack-relay/internal/domain"
	"github.com/commercekit/slack-relay/internal/platform"
)

var orderRetrieveQuery = platform.RetrieveQuery{
	Fields: []string{
		"shipping_total", "discount_total", "tax_total", "subtotal",
		"total", "refunded_total", "paid_total",
	},
	Expand: []string{
		"customer", "billing_address", "shipping_address", "discounts",
		"discounts.rule", "shipping_methods", "payments", "items",
		"fulfillments", "refunds",
	},
}

// OrdersDescriptor handles the order lifecycle events that render from an
// order snapshot: placed, canceled, shipment created, refund created/failed.
func OrdersDescriptor(providers Providers) Descriptor {
	return Descriptor{
		Name: "orders",
		Events: []string{
			domain.EventOrderPlaced,
			domain.EventOrderCanceled,
			domain.EventOrderShipmentCreated,
			domain.EventOrderRefundCreated,
			domain.EventOrderRefundFailed,
		},
		Prepare: prepareOrder(providers),
		Format:  formatOrder,
	}
}

func prepareOrder(providers Providers) PrepareFn {
	return func(ctx context.Context, eventName string, payload domain.EventPayload) (domain.Snapshot, error) {
		if payload.NoNotification {
			return nil, domain.ErrSuppressed
		}

		order, err := providers.RetrieveOrder(ctx, payload.ID, orderRetrieveQuery)
		if err != nil {
			return nil, err
		}

		// The shipment and refund events reference a sub-entity; carry its id
		// on the snapshot so the formatter can select it.
		order.FulfillmentID = payload.FulfillmentID
		order.RefundID = payload.RefundID
		return order, nil
	}
}

func formatOrder(eventName string, data domain.Snapshot, opts Options) (domain.StructuredMessage, error) {
	order, ok := data.(*domain.OrderSnapshot)
	if !ok {
		return domain.StructuredMessage{}, wrongSnapshot(eventName, domain.SnapshotOrder, data)
	}

	switch eventName {
	case domain.EventOrderRefundCreated, domain.EventOrderRefundFailed:
		return formatOrderRefund(eventName, order, opts), nil
	case domain.EventOrderShipmentCreated:
		return formatOrderItems(eventName, order, shippedItems(order), opts), nil
	default:
		return formatOrderItems(eventName, order, order.Items, opts), nil
	}
}

// shippedItems narrows the order's items to those covered by the fulfillment
// the event is about. Enrichment already selected the fulfillment id; a
// missing fulfillment simply yields no item sections.
func shippedItems(order *domain.OrderSnapshot) []domain.LineItem {
	var fulfillment *domain.Fulfillment
	for i := range order.Fulfillments {
		if order.Fulfillments[i].ID == order.FulfillmentID {
			fulfillment = &order.Fulfillments[i]
			break
		}
	}
	if fulfillment == nil {
		return nil
	}

	items := make([]domain.LineItem, 0, len(order.Items))
	for _, item := range order.Items {
		if fulfillment.Contains(item.ID) {
			items = append(items, item)
		}
	}
	return items
}

func formatOrderItems(eventName string, order *domain.OrderSnapshot, items []domain.LineItem, opts Options) domain.StructuredMessage {
	blocks := make([]domain.Block, 0, len(items)+3)
	blocks = append(blocks, headerBlock(eventName, opts, order.ID, order.DisplayID))
	for _, item := range items {
		blocks = append(blocks, lineItemBlock(opts, item, order.CurrencyCode))
	}
	blocks = append(blocks,
		domain.NewDividerBlock(),
		domain.NewContextBlock(
			"Subtotal: \t"+domain.FormatAmount(order.Subtotal, order.CurrencyCode),
			"Shipping: \t"+domain.FormatAmount(order.ShippingTotal, order.CurrencyCode),
			"Discount: \t"+domain.FormatAmount(order.DiscountTotal, order.CurrencyCode),
			"Total: "+domain.FormatAmount(order.Total, order.CurrencyCode),
		),
	)

	return domain.StructuredMessage{
		Text:          domain.EventTitle(eventName),
		Blocks:        blocks,
		CorrelationID: order.ID,
	}
}

func formatOrderRefund(eventName string, order *domain.OrderSnapshot, opts Options) domain.StructuredMessage {
	blocks := []domain.Block{headerBlock(eventName, opts, order.ID, order.DisplayID)}

	for _, refund := range order.Refunds {
		if refund.ID != order.RefundID {
			continue
		}

		elements := []string{
			"Refund amount: \t" + domain.FormatAmount(refund.Amount, order.CurrencyCode),
			"Reason: \t" + refund.Reason,
		}
		if refund.Note != "" {
			elements = append(elements, fmt.Sprintf("Note: \t%s", refund.Note))
		}
		blocks = append(blocks, domain.NewContextBlock(elements...))
	}

	blocks = append(blocks, domain.NewDividerBlock())

	return domain.StructuredMessage{
		Text:          domain.EventTitle(eventName),
		Blocks:        blocks,
		CorrelationID: order.ID,
	}
}
