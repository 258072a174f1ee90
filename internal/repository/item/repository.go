package item

import (
	"context"

	"storefront/internal/domain"
)

// Repository reads and writes catalog items (SKUs) and their products.
type Repository interface {
	GetByID(ctx context.Context, id int64) (*domain.Item, error)
	ListByIDs(ctx context.Context, ids []int64) ([]domain.Item, error)
	UpsertProduct(ctx context.Context, p domain.Product) (*domain.Product, error)
	UpsertItem(ctx context.Context, it domain.Item) (*domain.Item, error)
}
