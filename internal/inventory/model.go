package inventory

import "github.com/shopspring/decimal"

const (
	ProductStatusActive  = "ACTIVE"
	VendorStatusApproved = "APPROVED"
)

// Snapshot is a variant's stock counters together with the status of its
// product and vendor, all read at one point in time.
type Snapshot struct {
	VariantID      string
	SKU            string
	VariantName    string
	StockQty       int
	ReservedQty    int
	Price          decimal.Decimal
	ProductID      string
	ProductTitle   string
	ProductStatus  string
	VendorID       string
	VendorStatus   string
	VendorCurrency string
}

// Available is the ceiling for any cart quantity of this variant.
func (s *Snapshot) Available() int {
	return s.StockQty - s.ReservedQty
}

// Purchasable reports whether the product is ACTIVE and its vendor APPROVED.
func (s *Snapshot) Purchasable() bool {
	return s.ProductStatus == ProductStatusActive && s.VendorStatus == VendorStatusApproved
}
