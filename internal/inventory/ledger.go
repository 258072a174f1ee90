package inventory

import (
	"context"
	"fmt"

	"storefront/internal/domain"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Level is the stock row as read at one instant.
type Level struct {
	ItemID    int64
	ProductID int64
	Price     decimal.Decimal
	Stock     int
	Sales     int
}

// Store is the backing row store. CompareAndSwap must apply both counters in
// one atomic step and only while the stored stock still equals
// expectedStock; it reports false when another writer got there first.
type Store interface {
	ReadLevel(ctx context.Context, itemID int64) (Level, error)
	CompareAndSwap(ctx context.Context, itemID int64, expectedStock, newStock, newSales int) (bool, error)
}

// Result describes a successful decrement.
type Result struct {
	// Read is the level the winning attempt was based on; its Price is the
	// price the buyer pays.
	Read     Level
	NewStock int
	NewSales int
	Attempts int
}

// Ledger decrements stock with an optimistic compare-and-swap loop.
type Ledger struct {
	maxAttempts int
	logger      zerolog.Logger
}

// NewLedger returns a Ledger. maxAttempts <= 0 retries until the swap wins
// or stock runs out.
func NewLedger(maxAttempts int, logger zerolog.Logger) *Ledger {
	return &Ledger{maxAttempts: maxAttempts, logger: logger}
}

// TryDecrement removes quantity units of itemID from stock and adds them to
// sales. A lost swap is retried at once against a fresh read; running short
// of stock fails with domain.ErrInsufficientStock and is never retried.
func (l *Ledger) TryDecrement(ctx context.Context, store Store, itemID int64, quantity int) (Result, error) {
	if quantity <= 0 {
		return Result{}, domain.NewValidationError("quantity", "must be positive")
	}

	for attempt := 1; ; attempt++ {
		level, err := store.ReadLevel(ctx, itemID)
		if err != nil {
			return Result{}, fmt.Errorf("read stock item_id=%d: %w", itemID, err)
		}
		if quantity > level.Stock {
			return Result{}, fmt.Errorf("item %d: requested %d, available %d: %w", itemID, quantity, level.Stock, domain.ErrInsufficientStock)
		}

		newStock := level.Stock - quantity
		newSales := level.Sales + quantity
		ok, err := store.CompareAndSwap(ctx, itemID, level.Stock, newStock, newSales)
		if err != nil {
			return Result{}, fmt.Errorf("swap stock item_id=%d: %w", itemID, err)
		}
		if ok {
			if attempt > 1 {
				l.logger.Debug().Int64("item_id", itemID).Int("attempts", attempt).Msg("stock swap won after contention")
			}
			return Result{Read: level, NewStock: newStock, NewSales: newSales, Attempts: attempt}, nil
		}

		if l.maxAttempts > 0 && attempt >= l.maxAttempts {
			l.logger.Warn().Int64("item_id", itemID).Int("attempts", attempt).Msg("stock swap gave up")
			return Result{}, fmt.Errorf("item %d after %d attempts: %w", itemID, attempt, domain.ErrConcurrencyRetryExhausted)
		}
	}
}
