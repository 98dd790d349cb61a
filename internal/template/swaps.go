package template

import (
	"context"

	"github.com/commercekit/slack-relay/internal/domain"
	"github.com/commercekit/slack-relay/internal/platform"
)

var swapRetrieveQuery = platform.RetrieveQuery{
	Fields: []string{"id", "order_id", "difference_due"},
	Expand: []string{
		"order", "return_order", "return_order.items",
		"return_order.items.item", "return_order.items.item.variant",
		"additional_items", "additional_items.variant", "fulfillments", "cart",
	},
}

// SwapsDescriptor handles the swap lifecycle events.
func SwapsDescriptor(providers Providers) Descriptor {
	return Descriptor{
		Name: "swaps",
		Events: []string{
			domain.EventSwapCreated,
			domain.EventSwapReceived,
			domain.EventSwapShipmentCreated,
			domain.EventSwapPaymentCompleted,
		},
		Prepare: func(ctx context.Context, eventName string, payload domain.EventPayload) (domain.Snapshot, error) {
			if payload.NoNotification {
				return nil, domain.ErrSuppressed
			}
			return providers.RetrieveSwap(ctx, payload.ID, swapRetrieveQuery)
		},
		Format: formatSwap,
	}
}

func formatSwap(eventName string, data domain.Snapshot, opts Options) (domain.StructuredMessage, error) {
	swap, ok := data.(*domain.SwapSnapshot)
	if !ok {
		return domain.StructuredMessage{}, wrongSnapshot(eventName, domain.SnapshotSwap, data)
	}

	blocks := []domain.Block{headerBlock(eventName, opts, swap.OrderID, swap.OrderDisplayID)}

	switch eventName {
	case domain.EventSwapCreated:
		blocks = append(blocks, domain.NewSectionBlock("_Items to return_", ""))
		for _, item := range swap.ReturnItems {
			blocks = append(blocks, returnItemBlock(opts, item))
		}
		blocks = append(blocks,
			domain.NewDividerBlock(),
			domain.NewContextBlock("Refund amount: \t"+domain.FormatAmount(swap.RefundAmount, swap.CurrencyCode)),
			domain.NewSectionBlock("_Items to send_", ""),
		)
		for _, item := range swap.AdditionalItems {
			blocks = append(blocks, exchangeItemBlock(opts, item))
		}
		blocks = append(blocks,
			domain.NewDividerBlock(),
			domain.NewContextBlock(
				"Cart total: \t"+domain.FormatAmount(swap.CartTotal, swap.CurrencyCode),
				"Difference due: \t"+domain.FormatAmount(swap.DifferenceDue, swap.CurrencyCode),
			),
		)

	case domain.EventSwapReceived:
		for _, item := range swap.ReturnItems {
			blocks = append(blocks, returnItemBlock(opts, item))
		}
		blocks = append(blocks,
			domain.NewDividerBlock(),
			domain.NewContextBlock("Refund amount: \t"+domain.FormatAmount(swap.RefundAmount, swap.CurrencyCode)),
		)

	case domain.EventSwapShipmentCreated:
		for _, item := range swap.AdditionalItems {
			blocks = append(blocks, exchangeItemBlock(opts, item))
		}
		blocks = append(blocks,
			domain.NewDividerBlock(),
			domain.NewContextBlock("Cart total: \t"+domain.FormatAmount(swap.CartTotal, swap.CurrencyCode)),
		)

	default: // swap.payment_completed
		blocks = append(blocks,
			domain.NewContextBlock("Difference due: \t"+domain.FormatAmount(swap.DifferenceDue, swap.CurrencyCode)),
			domain.NewDividerBlock(),
		)
	}

	return domain.StructuredMessage{
		Text:          domain.EventTitle(eventName),
		Blocks:        blocks,
		CorrelationID: swap.ID,
	}, nil
}
