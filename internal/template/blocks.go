package template

import (
	"fmt"

	"github.com/commercekit/slack-relay/internal/domain"
)

const defaultBackendURL = "http://localhost:9000/app"

func backendURL(opts Options) string {
	if opts.BackendURL != "" {
		return opts.BackendURL
	}
	return defaultBackendURL
}

func orderLink(opts Options, orderID string, displayID int) string {
	return fmt.Sprintf("*<%s/orders/%s|#%d>*", backendURL(opts), orderID, displayID)
}

func productLink(opts Options, productID, title string) string {
	return fmt.Sprintf("*<%s/products/%s|#%s>*", backendURL(opts), productID, title)
}

func headerBlock(eventName string, opts Options, orderID string, displayID int) domain.Block {
	return domain.NewSectionBlock(
		fmt.Sprintf("%s %s", domain.EventTitle(eventName), orderLink(opts, orderID, displayID)),
		"",
	)
}

func lineItemBlock(opts Options, item domain.LineItem, currencyCode string) domain.Block {
	text := fmt.Sprintf("%s\n Description: \t%s\n Quantity: \t%d\n Total: \t%s",
		productLink(opts, item.ProductID, item.Title),
		item.Description,
		item.Quantity,
		domain.FormatAmount(item.Total, currencyCode),
	)
	return domain.NewSectionBlock(text, item.Thumbnail)
}

func returnItemBlock(opts Options, item domain.ReturnItem) domain.Block {
	text := fmt.Sprintf("%s\n Description: \t%s\n Requested quantity: \t%d\n Received quantity: \t%d",
		productLink(opts, item.ProductID, item.Title),
		item.Description,
		item.RequestedQuantity,
		item.ReceivedQuantity,
	)
	return domain.NewSectionBlock(text, item.Thumbnail)
}

func exchangeItemBlock(opts Options, item domain.ExchangeItem) domain.Block {
	text := fmt.Sprintf("%s\n Description: \t%s\n Requested quantity: \t%d\n Received quantity: \t%d",
		productLink(opts, item.ProductID, item.Title),
		item.Description,
		item.Quantity,
		item.FulfilledQuantity,
	)
	return domain.NewSectionBlock(text, item.Thumbnail)
}

// FallbackFormat renders the title-only message used when an event has no
// dedicated formatter, so newly registered events always produce something.
func FallbackFormat(eventName string, data domain.Snapshot, opts Options) (domain.StructuredMessage, error) {
	return FallbackMessage(eventName, data.RecordID()), nil
}

// FallbackMessage is the title-only rendering of an event.
func FallbackMessage(eventName, correlationID string) domain.StructuredMessage {
	title := domain.EventTitle(eventName)
	return domain.StructuredMessage{
		Text: title,
		Blocks: []domain.Block{
			domain.NewSectionBlock(title, ""),
			domain.NewDividerBlock(),
		},
		CorrelationID: correlationID,
	}
}

func wrongSnapshot(eventName string, want domain.SnapshotKind, got domain.Snapshot) error {
	kind := domain.SnapshotKind("nil")
	if got != nil {
		kind = got.Kind()
	}
	return fmt.Errorf("event %q: snapshot kind %q, want %q", eventName, kind, want)
}
