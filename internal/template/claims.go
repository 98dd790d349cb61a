package template

import (
	"context"
	"fmt"

	"github.com/commercekit/slack-relay/internal/domain"
	"github.com/commercekit/slack-relay/internal/platform"
)

var claimRetrieveQuery = platform.RetrieveQuery{
	Fields: []string{"id", "order_id", "refund_amount", "type"},
	Expand: []string{
		"claim_items", "claim_items.variant", "claim_items.variant.product",
		"additional_items", "additional_items.variant", "return_order",
		"fulfillments", "order",
	},
}

// ClaimsDescriptor handles the claim lifecycle events.
func ClaimsDescriptor(providers Providers) Descriptor {
	return Descriptor{
		Name: "claims",
		Events: []string{
			domain.EventClaimCreated,
			domain.EventClaimCanceled,
			domain.EventClaimShipmentCreated,
		},
		Prepare: func(ctx context.Context, eventName string, payload domain.EventPayload) (domain.Snapshot, error) {
			if payload.NoNotification {
				return nil, domain.ErrSuppressed
			}

			claim, err := providers.RetrieveClaim(ctx, payload.ID, claimRetrieveQuery)
			if err != nil {
				return nil, err
			}
			claim.FulfillmentID = payload.FulfillmentID
			return claim, nil
		},
		Format: formatClaim,
	}
}

func formatClaim(eventName string, data domain.Snapshot, opts Options) (domain.StructuredMessage, error) {
	claim, ok := data.(*domain.ClaimSnapshot)
	if !ok {
		return domain.StructuredMessage{}, wrongSnapshot(eventName, domain.SnapshotClaim, data)
	}

	if eventName == domain.EventClaimShipmentCreated {
		return formatClaimShipment(eventName, claim, opts), nil
	}

	blocks := []domain.Block{
		headerBlock(eventName, opts, claim.OrderID, claim.OrderDisplayID),
		domain.NewSectionBlock("_Items to return_", ""),
	}
	for _, item := range claim.ClaimItems {
		blocks = append(blocks, claimItemBlock(opts, item))
	}
	blocks = append(blocks, domain.NewDividerBlock())

	if claim.Type == domain.ClaimTypeRefund {
		blocks = append(blocks,
			domain.NewContextBlock("Refund amount: \t"+domain.FormatAmount(claim.RefundAmount, claim.CurrencyCode)),
		)
	} else {
		blocks = append(blocks, domain.NewSectionBlock("_Items to send_", ""))
		for _, item := range claim.AdditionalItems {
			blocks = append(blocks, exchangeItemBlock(opts, item))
		}
		blocks = append(blocks,
			domain.NewDividerBlock(),
			domain.NewContextBlock("Refund amount: \t"+domain.FormatAmount(claim.ReturnRefundAmount, claim.CurrencyCode)),
		)
	}

	return domain.StructuredMessage{
		Text:          domain.EventTitle(eventName),
		Blocks:        blocks,
		CorrelationID: claim.ID,
	}, nil
}

func claimItemBlock(opts Options, item domain.ClaimItem) domain.Block {
	text := fmt.Sprintf("%s\n Description: \t%s\n Requested quantity: \t%d\n Reason: \t%s",
		productLink(opts, item.ProductID, item.ProductTitle),
		item.VariantTitle,
		item.Quantity,
		item.Reason,
	)
	if item.Note != "" {
		text += fmt.Sprintf("\n Note: \t%s", item.Note)
	}
	return domain.NewSectionBlock(text, item.Thumbnail)
}

func formatClaimShipment(eventName string, claim *domain.ClaimSnapshot, opts Options) domain.StructuredMessage {
	var fulfillment *domain.Fulfillment
	for i := range claim.Fulfillments {
		if claim.Fulfillments[i].ID == claim.FulfillmentID {
			fulfillment = &claim.Fulfillments[i]
			break
		}
	}

	blocks := []domain.Block{headerBlock(eventName, opts, claim.OrderID, claim.OrderDisplayID)}
	for _, item := range claim.AdditionalItems {
		if fulfillment == nil || !fulfillment.Contains(item.ID) {
			continue
		}
		text := fmt.Sprintf("%s\n Description: \t%s\n Requested: \t%d\n Shipped: \t%d",
			productLink(opts, item.ProductID, item.Title),
			item.Description,
			item.Quantity,
			item.ShippedQuantity,
		)
		blocks = append(blocks, domain.NewSectionBlock(text, item.Thumbnail))
	}
	blocks = append(blocks, domain.NewDividerBlock())

	return domain.StructuredMessage{
		Text:          domain.EventTitle(eventName),
		Blocks:        blocks,
		CorrelationID: claim.ID,
	}
}
