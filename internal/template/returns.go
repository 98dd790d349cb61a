package template

import (
	"context"

	"github.com/commercekit/slack-relay/internal/domain"
	"github.com/commercekit/slack-relay/internal/platform"
)

var returnRetrieveQuery = platform.RetrieveQuery{
	Expand: []string{
		"order", "items", "items.item", "items.item.variant",
		"items.item.variant.product", "shipping_method",
		"shipping_method.shipping_option",
	},
}

// ReturnsDescriptor handles the return-related order events, which render
// from a return snapshot rather than the order itself.
func ReturnsDescriptor(providers Providers) Descriptor {
	return Descriptor{
		Name: "returns",
		Events: []string{
			domain.EventOrderReturnRequested,
			domain.EventOrderItemsReturned,
			domain.EventOrderReturnActionRequired,
		},
		Prepare: func(ctx context.Context, eventName string, payload domain.EventPayload) (domain.Snapshot, error) {
			if payload.NoNotification {
				return nil, domain.ErrSuppressed
			}
			return providers.RetrieveReturn(ctx, payload.ReturnID, returnRetrieveQuery)
		},
		Format: formatReturn,
	}
}

func formatReturn(eventName string, data domain.Snapshot, opts Options) (domain.StructuredMessage, error) {
	ret, ok := data.(*domain.ReturnSnapshot)
	if !ok {
		return domain.StructuredMessage{}, wrongSnapshot(eventName, domain.SnapshotReturn, data)
	}

	blocks := make([]domain.Block, 0, len(ret.Items)+3)
	blocks = append(blocks, headerBlock(eventName, opts, ret.OrderID, ret.OrderDisplayID))
	for _, item := range ret.Items {
		blocks = append(blocks, returnItemBlock(opts, item))
	}
	blocks = append(blocks,
		domain.NewDividerBlock(),
		domain.NewContextBlock("Refund amount: \t"+domain.FormatAmount(ret.RefundAmount, ret.CurrencyCode)),
	)

	return domain.StructuredMessage{
		Text:          domain.EventTitle(eventName),
		Blocks:        blocks,
		CorrelationID: ret.ID,
	}, nil
}
