package cart

import (
	"context"
	"time"

	"storefront/internal/domain"
)

// Repository stores authenticated carts server-side. Quantities and the
// selection live in separate structures; every mutation writes both in one
// atomic unit.
type Repository interface {
	Lines(ctx context.Context, customerID int64) (domain.CartLines, error)
	Add(ctx context.Context, customerID, itemID int64, quantity int, selected bool) error
	Set(ctx context.Context, customerID, itemID int64, quantity int, selected bool) error
	Remove(ctx context.Context, customerID int64, itemIDs ...int64) error
	SetAllSelected(ctx context.Context, customerID int64, selected bool) error
	Merge(ctx context.Context, customerID int64, lines domain.CartLines) error
	ClaimMerge(ctx context.Context, loginEvent string, ttl time.Duration) (bool, error)
}
