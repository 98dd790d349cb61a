package platform

import "github.com/commercekit/slack-relay/internal/domain"

// Wire types mirror the commerce backend's admin API JSON. They stay in this
// package; everything downstream works on domain snapshots.

type variantWire struct {
	ID        string       `json:"id"`
	Title     string       `json:"title"`
	ProductID string       `json:"product_id"`
	Product   *productWire `json:"product,omitempty"`
}

type productWire struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Thumbnail string `json:"thumbnail"`
}

type lineItemWire struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Thumbnail   string       `json:"thumbnail"`
	Quantity    int          `json:"quantity"`
	Total       int64        `json:"total"`
	Variant     *variantWire `json:"variant,omitempty"`
}

func (w lineItemWire) item() domain.LineItem {
	item := domain.LineItem{
		ID:          w.ID,
		Title:       w.Title,
		Description: w.Description,
		Thumbnail:   w.Thumbnail,
		Quantity:    w.Quantity,
		Total:       w.Total,
	}
	if w.Variant != nil {
		item.ProductID = w.Variant.ProductID
	}
	return item
}

type fulfillmentWire struct {
	ID    string `json:"id"`
	Items []struct {
		ItemID string `json:"item_id"`
	} `json:"items"`
}

func (w fulfillmentWire) fulfillment() domain.Fulfillment {
	f := domain.Fulfillment{ID: w.ID, ItemIDs: make([]string, 0, len(w.Items))}
	for _, item := range w.Items {
		f.ItemIDs = append(f.ItemIDs, item.ItemID)
	}
	return f
}

type refundWire struct {
	ID     string `json:"id"`
	Amount int64  `json:"amount"`
	Reason string `json:"reason"`
	Note   string `json:"note"`
}

type orderWire struct {
	ID            string            `json:"id"`
	DisplayID     int               `json:"display_id"`
	CurrencyCode  string            `json:"currency_code"`
	Subtotal      int64             `json:"subtotal"`
	ShippingTotal int64             `json:"shipping_total"`
	DiscountTotal int64             `json:"discount_total"`
	TaxTotal      int64             `json:"tax_total"`
	Total         int64             `json:"total"`
	RefundedTotal int64             `json:"refunded_total"`
	PaidTotal     int64             `json:"paid_total"`
	Items         []lineItemWire    `json:"items"`
	Fulfillments  []fulfillmentWire `json:"fulfillments"`
	Refunds       []refundWire      `json:"refunds"`
}

func (w orderWire) snapshot() *domain.OrderSnapshot {
	snap := &domain.OrderSnapshot{
		ID:            w.ID,
		DisplayID:     w.DisplayID,
		CurrencyCode:  w.CurrencyCode,
		Subtotal:      w.Subtotal,
		ShippingTotal: w.ShippingTotal,
		DiscountTotal: w.DiscountTotal,
		TaxTotal:      w.TaxTotal,
		Total:         w.Total,
		RefundedTotal: w.RefundedTotal,
		PaidTotal:     w.PaidTotal,
	}
	for _, item := range w.Items {
		snap.Items = append(snap.Items, item.item())
	}
	for _, f := range w.Fulfillments {
		snap.Fulfillments = append(snap.Fulfillments, f.fulfillment())
	}
	for _, r := range w.Refunds {
		snap.Refunds = append(snap.Refunds, domain.Refund{
			ID:     r.ID,
			Amount: r.Amount,
			Reason: r.Reason,
			Note:   r.Note,
		})
	}
	return snap
}

type returnItemWire struct {
	RequestedQuantity int           `json:"requested_quantity"`
	ReceivedQuantity  int           `json:"received_quantity"`
	Item              *lineItemWire `json:"item,omitempty"`
}

func (w returnItemWire) item() domain.ReturnItem {
	item := domain.ReturnItem{
		RequestedQuantity: w.RequestedQuantity,
		ReceivedQuantity:  w.ReceivedQuantity,
	}
	if w.Item != nil {
		item.Description = w.Item.Description
		item.Thumbnail = w.Item.Thumbnail
		item.Title = w.Item.Title
		if w.Item.Variant != nil {
			item.ProductID = w.Item.Variant.ProductID
			if w.Item.Variant.Product != nil {
				item.Title = w.Item.Variant.Product.Title
			}
		}
	}
	return item
}

type orderRefWire struct {
	ID           string `json:"id"`
	DisplayID    int    `json:"display_id"`
	CurrencyCode string `json:"currency_code"`
}

type returnWire struct {
	ID           string           `json:"id"`
	OrderID      string           `json:"order_id"`
	RefundAmount int64            `json:"refund_amount"`
	Order        *orderRefWire    `json:"order,omitempty"`
	Items        []returnItemWire `json:"items"`
}

func (w returnWire) snapshot() *domain.ReturnSnapshot {
	snap := &domain.ReturnSnapshot{
		ID:           w.ID,
		OrderID:      w.OrderID,
		RefundAmount: w.RefundAmount,
	}
	if w.Order != nil {
		snap.OrderDisplayID = w.Order.DisplayID
		snap.CurrencyCode = w.Order.CurrencyCode
		if snap.OrderID == "" {
			snap.OrderID = w.Order.ID
		}
	}
	for _, item := range w.Items {
		snap.Items = append(snap.Items, item.item())
	}
	return snap
}

type exchangeItemWire struct {
	ID                string       `json:"id"`
	Title             string       `json:"title"`
	Description       string       `json:"description"`
	Thumbnail         string       `json:"thumbnail"`
	Quantity          int          `json:"quantity"`
	FulfilledQuantity int          `json:"fulfilled_quantity"`
	ShippedQuantity   int          `json:"shipped_quantity"`
	Variant           *variantWire `json:"variant,omitempty"`
}

func (w exchangeItemWire) item() domain.ExchangeItem {
	item := domain.ExchangeItem{
		ID:                w.ID,
		Title:             w.Title,
		Description:       w.Description,
		Thumbnail:         w.Thumbnail,
		Quantity:          w.Quantity,
		FulfilledQuantity: w.FulfilledQuantity,
		ShippedQuantity:   w.ShippedQuantity,
	}
	if w.Variant != nil {
		item.ProductID = w.Variant.ProductID
	}
	return item
}

type swapWire struct {
	ID            string        `json:"id"`
	OrderID       string        `json:"order_id"`
	DifferenceDue int64         `json:"difference_due"`
	Order         *orderRefWire `json:"order,omitempty"`
	ReturnOrder   *struct {
		RefundAmount int64            `json:"refund_amount"`
		Items        []returnItemWire `json:"items"`
	} `json:"return_order,omitempty"`
	AdditionalItems []exchangeItemWire `json:"additional_items"`
	Cart            *struct {
		Total int64 `json:"total"`
	} `json:"cart,omitempty"`
}

func (w swapWire) snapshot() *domain.SwapSnapshot {
	snap := &domain.SwapSnapshot{
		ID:            w.ID,
		OrderID:       w.OrderID,
		DifferenceDue: w.DifferenceDue,
	}
	if w.Order != nil {
		snap.OrderDisplayID = w.Order.DisplayID
		snap.CurrencyCode = w.Order.CurrencyCode
	}
	if w.ReturnOrder != nil {
		snap.RefundAmount = w.ReturnOrder.RefundAmount
		for _, item := range w.ReturnOrder.Items {
			snap.ReturnItems = append(snap.ReturnItems, item.item())
		}
	}
	if w.Cart != nil {
		snap.CartTotal = w.Cart.Total
	}
	for _, item := range w.AdditionalItems {
		snap.AdditionalItems = append(snap.AdditionalItems, item.item())
	}
	return snap
}

type claimItemWire struct {
	Quantity int          `json:"quantity"`
	Reason   string       `json:"reason"`
	Note     string       `json:"note"`
	Variant  *variantWire `json:"variant,omitempty"`
}

func (w claimItemWire) item() domain.ClaimItem {
	item := domain.ClaimItem{
		Quantity: w.Quantity,
		Reason:   w.Reason,
		Note:     w.Note,
	}
	if w.Variant != nil {
		item.VariantTitle = w.Variant.Title
		item.ProductID = w.Variant.ProductID
		if w.Variant.Product != nil {
			item.ProductTitle = w.Variant.Product.Title
			item.Thumbnail = w.Variant.Product.Thumbnail
		}
	}
	return item
}

type claimWire struct {
	ID           string        `json:"id"`
	OrderID      string        `json:"order_id"`
	Type         string        `json:"type"`
	RefundAmount int64         `json:"refund_amount"`
	Order        *orderRefWire `json:"order,omitempty"`
	ClaimItems   []claimItemWire `json:"claim_items"`
	ReturnOrder  *struct {
		RefundAmount int64 `json:"refund_amount"`
	} `json:"return_order,omitempty"`
	AdditionalItems []exchangeItemWire `json:"additional_items"`
	Fulfillments    []fulfillmentWire  `json:"fulfillments"`
}

func (w claimWire) snapshot() *domain.ClaimSnapshot {
	snap := &domain.ClaimSnapshot{
		ID:           w.ID,
		OrderID:      w.OrderID,
		Type:         w.Type,
		RefundAmount: w.RefundAmount,
	}
	if w.Order != nil {
		snap.OrderDisplayID = w.Order.DisplayID
		snap.CurrencyCode = w.Order.CurrencyCode
	}
	if w.ReturnOrder != nil {
		snap.ReturnRefundAmount = w.ReturnOrder.RefundAmount
	}
	for _, item := range w.ClaimItems {
		snap.ClaimItems = append(snap.ClaimItems, item.item())
	}
	for _, item := range w.AdditionalItems {
		snap.AdditionalItems = append(snap.AdditionalItems, item.item())
	}
	for _, f := range w.Fulfillments {
		snap.Fulfillments = append(snap.Fulfillments, f.fulfillment())
	}
	return snap
}
