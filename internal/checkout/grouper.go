package checkout

import (
	"context"
	"fmt"

	"github.com/example/marketplace/internal/domain/catalog"
	"github.com/example/marketplace/internal/inventory"
	"github.com/example/marketplace/internal/storage"
)

// CartItem is one requested line as sent by the buyer.
type CartItem struct {
	VariantID int64 `json:"variant_id"`
	Quantity  int   `json:"quantity"`
}

// BuyerInfo is the contact block shared by every order a checkout creates.
type BuyerInfo struct {
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
	Notes   string `json:"notes"`
}

// PricedLine is a cart line resolved against the live catalog.
type PricedLine struct {
	Variant  *catalog.Variant
	Quantity int
}

// StoreGroup is one store's share of the cart, lines in input order.
type StoreGroup struct {
	StoreID   int64
	StoreSlug string
	Lines     []PricedLine
}

// groupCart partitions the cart by owning store, resolving each variant's
// price and store in one lookup. Groups keep the order in which each store
// first appears in the cart, so responses are stable across retries.
//
// The stock comparison here is advisory only; the ledger repeats it
// authoritatively inside the same transaction.
func groupCart(ctx context.Context, cat storage.CatalogStore, items []CartItem) ([]StoreGroup, error) {
	groups := make([]StoreGroup, 0, 2)
	index := make(map[int64]int)

	for _, item := range items {
		v, err := cat.ResolveVariant(ctx, item.VariantID)
		if err != nil {
			return nil, fmt.Errorf("variant %d: %w", item.VariantID, err)
		}
		if v.Stock < item.Quantity {
			return nil, &inventory.StockError{VariantID: v.ID, Requested: item.Quantity}
		}

		i, ok := index[v.StoreID]
		if !ok {
			i = len(groups)
			index[v.StoreID] = i
			groups = append(groups, StoreGroup{StoreID: v.StoreID, StoreSlug: v.StoreSlug})
		}
		groups[i].Lines = append(groups[i].Lines, PricedLine{Variant: v, Quantity: item.Quantity})
	}

	return groups, nil
}
