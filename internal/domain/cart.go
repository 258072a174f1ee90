package domain

import (
	"sort"

	"github.com/shopspring/decimal"
)

// MaxLineQuantity caps the quantity of a single cart line.
const MaxLineQuantity = 9999

// CartLine is one item in a cart.
type CartLine struct {
	ItemID   int64 `json:"skuId"`
	Quantity int   `json:"count"`
	Selected bool  `json:"selected"`
}

// CartLines maps item id to its line.
type CartLines map[int64]CartLine

// ItemIDs returns the line keys in ascending order.
func (l CartLines) ItemIDs() []int64 {
	ids := make([]int64, 0, len(l))
	for id := range l {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Selected returns item id -> quantity for the selected lines only.
func (l CartLines) Selected() map[int64]int {
	out := make(map[int64]int)
	for id, line := range l {
		if line.Selected {
			out[id] = line.Quantity
		}
	}
	return out
}

// CartItem is a cart line joined with live item attributes for display.
type CartItem struct {
	ItemID          int64           `json:"id"`
	Name            string          `json:"name"`
	DefaultImageURL string          `json:"defaultImageUrl,omitempty"`
	Price           decimal.Decimal `json:"price"`
	Quantity        int             `json:"count"`
	Selected        bool            `json:"selected"`
}
