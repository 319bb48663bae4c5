package catalog

import "github.com/shopspring/decimal"

// Variant is a single inventory-tracked (product, size) unit, resolved
// together with its owning store and current price so checkout can group and
// snapshot cart lines in one lookup.
type Variant struct {
	ID          int64
	ProductID   int64
	StoreID     int64
	StoreSlug   string
	ProductName string
	SKU         string
	SizeName    string
	UnitPrice   decimal.Decimal
	Stock       int
}
