package catalog

import (
	"time"

	"marketplace-be/internal/cursor"
	"marketplace-be/internal/locale"

	"github.com/shopspring/decimal"
)

const (
	StatusActive = "ACTIVE"

	DefaultLimit = 20
	MaxLimit     = 50
)

// NamedRow is a category or tag as stored, with every name field it has.
type NamedRow struct {
	ID    string
	Names locale.Names
}

type ProductRow struct {
	ID          string
	VendorID    string
	VendorName  string
	Title       string
	Description string
	Status      string
	CreatedAt   time.Time
	MinPrice    decimal.NullDecimal

	Category *NamedRow
	Tags     []NamedRow
}

// Key is the row's position in the listing order.
func (p *ProductRow) Key() cursor.Key {
	return cursor.Key{CreatedAt: p.CreatedAt, ID: p.ID}
}

type VariantRow struct {
	ID          string
	SKU         string
	Name        string
	Price       decimal.Decimal
	StockQty    int
	ReservedQty int
}

type ListParams struct {
	Search     string
	CategoryID string
	TagIDs     []string
	Cursor     string
	Limit      int
	Locale     string
}

type NamedView struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type ProductView struct {
	ID          string      `json:"id"`
	VendorID    string      `json:"vendorId"`
	VendorName  string      `json:"vendorName,omitempty"`
	Title       string      `json:"title"`
	Description string      `json:"description,omitempty"`
	Category    *NamedView  `json:"category,omitempty"`
	Tags        []NamedView `json:"tags"`
	MinPrice    *string     `json:"minPrice,omitempty"`
	CreatedAt   string      `json:"createdAt"`
}

type VariantView struct {
	ID        string `json:"id"`
	SKU       string `json:"sku"`
	Name      string `json:"name"`
	Price     string `json:"price"`
	Available int    `json:"available"`
}

type ProductDetailView struct {
	ProductView
	Variants []VariantView `json:"variants"`
}

type ProductPage struct {
	Items      []ProductView `json:"items"`
	NextCursor *string       `json:"nextCursor"`
}
