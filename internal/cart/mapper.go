package cart

import (
	"time"

	"github.com/shopspring/decimal"
)

type CartView struct {
	ID        string         `json:"id,omitempty"`
	UserID    string         `json:"userId"`
	VendorID  string         `json:"vendorId,omitempty"`
	Currency  string         `json:"currency,omitempty"`
	Items     []CartItemView `json:"items"`
	ItemCount int            `json:"itemCount"`
	Subtotal  string         `json:"subtotal"`
	UpdatedAt string         `json:"updatedAt,omitempty"`
}

type CartItemView struct {
	ID           string `json:"id"`
	VariantID    string `json:"variantId"`
	SKU          string `json:"sku,omitempty"`
	VariantName  string `json:"variantName,omitempty"`
	ProductID    string `json:"productId,omitempty"`
	ProductTitle string `json:"productTitle,omitempty"`
	Quantity     int    `json:"quantity"`
	UnitPrice    string `json:"unitPrice"`
	CurrentPrice string `json:"currentPrice,omitempty"`
	LineTotal    string `json:"lineTotal"`
}

// MapCartToView renders c for userID; a nil cart yields the empty view.
func MapCartToView(userID string, c *Cart) *CartView {
	view := &CartView{
		UserID:   userID,
		Items:    []CartItemView{},
		Subtotal: decimal.Zero.StringFixed(2),
	}
	if c == nil {
		return view
	}

	view.ID = c.ID
	view.VendorID = c.VendorID
	view.Currency = c.Currency
	view.UpdatedAt = c.UpdatedAt.Format(time.RFC3339)

	subtotal := decimal.Zero
	for _, item := range c.Items {
		line := item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))
		subtotal = subtotal.Add(line)

		iv := CartItemView{
			ID:        item.ID,
			VariantID: item.VariantID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice.StringFixed(2),
			LineTotal: line.StringFixed(2),
		}
		if item.Variant != nil {
			iv.SKU = item.Variant.SKU
			iv.VariantName = item.Variant.Name
			iv.ProductID = item.Variant.ProductID
			iv.ProductTitle = item.Variant.ProductTitle
			iv.CurrentPrice = item.Variant.Price.StringFixed(2)
		}

		view.Items = append(view.Items, iv)
		view.ItemCount += item.Quantity
	}
	view.Subtotal = subtotal.StringFixed(2)

	return view
}
