package cart

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// MaxQuantity is the largest quantity a single request may carry; it is the
// range of cart_items.quantity.
const MaxQuantity = math.MaxInt32

type Cart struct {
	ID        string
	UserID    string
	VendorID  string
	Currency  string
	CreatedAt time.Time
	UpdatedAt time.Time

	Items []*CartItem
}

// ItemFor returns the line holding variantID, or nil.
func (c *Cart) ItemFor(variantID string) *CartItem {
	if c == nil {
		return nil
	}
	for _, item := range c.Items {
		if item.VariantID == variantID {
			return item
		}
	}
	return nil
}

type CartItem struct {
	ID        string
	CartID    string
	VariantID string
	Quantity  int
	UnitPrice decimal.Decimal
	CreatedAt time.Time
	UpdatedAt time.Time

	Variant *VariantDetail
}

// VariantDetail is the variant/product data joined onto a cart line for
// display. It is never used for availability decisions.
type VariantDetail struct {
	SKU          string
	Name         string
	Price        decimal.Decimal
	ProductID    string
	ProductTitle string
}

// OwnedCartItem is a cart line together with the user owning its cart.
type OwnedCartItem struct {
	CartItem
	UserID string
}

type AddItemParams struct {
	UserID    string
	VariantID string
	Quantity  int
}

type UpdateItemParams struct {
	UserID   string
	ItemID   string
	Quantity int
}

type CreateCartParams struct {
	UserID    string
	VendorID  string
	Currency  string
	VariantID string
	Quantity  int
	UnitPrice decimal.Decimal
}
