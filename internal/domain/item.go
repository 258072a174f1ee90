package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product groups SKUs and carries their aggregate sales.
type Product struct {
	ID        int64     `json:"id"`
	Key       string    `json:"key"`
	Name      string    `json:"name"`
	Sales     int64     `json:"sales"`
	CreatedAt time.Time `json:"createdAt"`
}

// Item is a purchasable SKU. Stock only decreases through checkout and Sales
// only increases; the two move together.
type Item struct {
	ID              int64           `json:"id"`
	ProductID       int64           `json:"productId"`
	Key             string          `json:"key"`
	Name            string          `json:"name"`
	Price           decimal.Decimal `json:"price"`
	Stock           int             `json:"stock"`
	Sales           int             `json:"sales"`
	DefaultImageURL string          `json:"defaultImageUrl,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
}
