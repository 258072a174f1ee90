package inventory

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"testing"

	"storefront/internal/domain"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memoryStore is a linearizable in-process Store. Yielding between the read
// and the swap lets concurrent callers interleave and lose swaps.
type memoryStore struct {
	mu     sync.Mutex
	levels map[int64]Level
	swaps  int
	losses int
}

func newMemoryStore(levels ...Level) *memoryStore {
	s := &memoryStore{levels: make(map[int64]Level)}
	for _, l := range levels {
		s.levels[l.ItemID] = l
	}
	return s
}

func (s *memoryStore) ReadLevel(_ context.Context, itemID int64) (Level, error) {
	s.mu.Lock()
	l, ok := s.levels[itemID]
	s.mu.Unlock()
	if !ok {
		return Level{}, domain.ErrNotFound
	}
	runtime.Gosched()
	return l, nil
}

func (s *memoryStore) CompareAndSwap(_ context.Context, itemID int64, expectedStock, newStock, newSales int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.swaps++
	l, ok := s.levels[itemID]
	if !ok {
		return false, domain.ErrNotFound
	}
	if l.Stock != expectedStock {
		s.losses++
		return false, nil
	}
	l.Stock = newStock
	l.Sales = newSales
	s.levels[itemID] = l
	return true, nil
}

func (s *memoryStore) level(itemID int64) Level {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.levels[itemID]
}

// losingStore loses the first n swaps regardless of the stored value.
type losingStore struct {
	*memoryStore
	lose int
}

func (s *losingStore) CompareAndSwap(ctx context.Context, itemID int64, expectedStock, newStock, newSales int) (bool, error) {
	if s.lose > 0 {
		s.lose--
		return false, nil
	}
	return s.memoryStore.CompareAndSwap(ctx, itemID, expectedStock, newStock, newSales)
}

func TestTryDecrement_Success(t *testing.T) {
	store := newMemoryStore(Level{ItemID: 1, ProductID: 10, Price: decimal.RequireFromString("3.50"), Stock: 5, Sales: 2})
	ledger := NewLedger(0, zerolog.Nop())

	res, err := ledger.TryDecrement(context.Background(), store, 1, 3)
	require.NoError(t, err)
	assert.Equal(t, 2, res.NewStock)
	assert.Equal(t, 5, res.NewSales)
	assert.Equal(t, 1, res.Attempts)
	assert.Equal(t, int64(10), res.Read.ProductID)
	assert.Equal(t, "3.5", res.Read.Price.String())

	got := store.level(1)
	assert.Equal(t, 2, got.Stock)
	assert.Equal(t, 5, got.Sales)
}

func TestTryDecrement_InsufficientStockDoesNotRetry(t *testing.T) {
	store := newMemoryStore(Level{ItemID: 1, Stock: 2})
	ledger := NewLedger(0, zerolog.Nop())

	_, err := ledger.TryDecrement(context.Background(), store, 1, 3)
	require.ErrorIs(t, err, domain.ErrInsufficientStock)
	assert.Equal(t, 0, store.swaps)
	assert.Equal(t, 2, store.level(1).Stock)
}

func TestTryDecrement_RejectsNonPositiveQuantity(t *testing.T) {
	store := newMemoryStore(Level{ItemID: 1, Stock: 2})
	ledger := NewLedger(0, zerolog.Nop())

	_, err := ledger.TryDecrement(context.Background(), store, 1, 0)
	assert.True(t, domain.IsValidation(err))
}

func TestTryDecrement_UnknownItem(t *testing.T) {
	ledger := NewLedger(0, zerolog.Nop())
	_, err := ledger.TryDecrement(context.Background(), newMemoryStore(), 99, 1)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestTryDecrement_RetriesLostSwaps(t *testing.T) {
	store := &losingStore{memoryStore: newMemoryStore(Level{ItemID: 1, Stock: 4}), lose: 3}
	ledger := NewLedger(0, zerolog.Nop())

	res, err := ledger.TryDecrement(context.Background(), store, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, 4, res.Attempts)
	assert.Equal(t, 3, store.level(1).Stock)
}

func TestTryDecrement_CapSurfacesRetryExhausted(t *testing.T) {
	store := &losingStore{memoryStore: newMemoryStore(Level{ItemID: 1, Stock: 4}), lose: 10}
	ledger := NewLedger(3, zerolog.Nop())

	_, err := ledger.TryDecrement(context.Background(), store, 1, 1)
	require.ErrorIs(t, err, domain.ErrConcurrencyRetryExhausted)
	assert.False(t, errors.Is(err, domain.ErrInsufficientStock))
	assert.Equal(t, 4, store.level(1).Stock)
}

func TestTryDecrement_ConcurrentWithinStock(t *testing.T) {
	const workers = 50
	store := newMemoryStore(Level{ItemID: 7, Stock: 200, Sales: 11})
	ledger := NewLedger(0, zerolog.Nop())

	var wg sync.WaitGroup
	errs := make(chan error, workers)
	total := 0
	for i := 0; i < workers; i++ {
		qty := i%4 + 1
		total += qty
		wg.Add(1)
		go func(qty int) {
			defer wg.Done()
			_, err := ledger.TryDecrement(context.Background(), store, 7, qty)
			errs <- err
		}(qty)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	got := store.level(7)
	assert.Equal(t, 200-total, got.Stock)
	assert.Equal(t, 11+total, got.Sales)
}

func TestTryDecrement_ConcurrentNeverOversells(t *testing.T) {
	const workers = 40
	const initial = 25
	store := newMemoryStore(Level{ItemID: 3, Stock: initial})
	ledger := NewLedger(0, zerolog.Nop())

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		sold      int
	)
	for i := 0; i < workers; i++ {
		qty := i%3 + 1
		wg.Add(1)
		go func(qty int) {
			defer wg.Done()
			_, err := ledger.TryDecrement(context.Background(), store, 3, qty)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
				sold += qty
			case errors.Is(err, domain.ErrInsufficientStock):
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(qty)
	}
	wg.Wait()

	got := store.level(3)
	assert.GreaterOrEqual(t, got.Stock, 0)
	assert.Equal(t, initial-sold, got.Stock)
	assert.Equal(t, sold, got.Sales)
	assert.Less(t, got.Stock, 3, "a request for the remaining stock would have succeeded")
	assert.Positive(t, succeeded)
}
