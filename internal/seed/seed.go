package seed

import (
	"context"
	"fmt"

	"storefront/internal/domain"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// CatalogWriter is the slice of the item repository the seed needs.
type CatalogWriter interface {
	UpsertProduct(ctx context.Context, p domain.Product) (*domain.Product, error)
	UpsertItem(ctx context.Context, it domain.Item) (*domain.Item, error)
}

type skuSeed struct {
	Key   string
	Name  string
	Price string
	Stock int
	Image string
}

type productSeed struct {
	Key  string
	Name string
	SKUs []skuSeed
}

var demoCatalog = []productSeed{
	{
		Key:  "demo-mug",
		Name: "Demo Mug",
		SKUs: []skuSeed{
			{Key: "SKU-DEMO-MUG-WHITE", Name: "Demo Mug, white", Price: "12.50", Stock: 40, Image: "https://example.com/mug-white.jpg"},
			{Key: "SKU-DEMO-MUG-BLACK", Name: "Demo Mug, black", Price: "12.50", Stock: 25, Image: "https://example.com/mug-black.jpg"},
		},
	},
	{
		Key:  "demo-shirt",
		Name: "Demo T-Shirt",
		SKUs: []skuSeed{
			{Key: "SKU-DEMO-TSHIRT-M", Name: "Demo T-Shirt, M", Price: "19.99", Stock: 10},
			{Key: "SKU-DEMO-TSHIRT-L", Name: "Demo T-Shirt, L", Price: "19.99", Stock: 1},
		},
	},
}

// Apply upserts a small catalog for manual testing. Re-running it resets
// stock and prices to the seeded values.
func Apply(ctx context.Context, w CatalogWriter, logger zerolog.Logger) (int, error) {
	var count int
	for _, p := range demoCatalog {
		product, err := w.UpsertProduct(ctx, domain.Product{Key: p.Key, Name: p.Name})
		if err != nil {
			return count, fmt.Errorf("upsert product %s: %w", p.Key, err)
		}
		for _, s := range p.SKUs {
			price, err := decimal.NewFromString(s.Price)
			if err != nil {
				return count, fmt.Errorf("sku %s price: %w", s.Key, err)
			}
			item, err := w.UpsertItem(ctx, domain.Item{
				ProductID:       product.ID,
				Key:             s.Key,
				Name:            s.Name,
				Price:           price,
				Stock:           s.Stock,
				DefaultImageURL: s.Image,
			})
			if err != nil {
				return count, fmt.Errorf("upsert sku %s: %w", s.Key, err)
			}
			logger.Debug().Str("key", item.Key).Int64("id", item.ID).Int("stock", item.Stock).Msg("seeded sku")
			count++
		}
	}
	return count, nil
}
