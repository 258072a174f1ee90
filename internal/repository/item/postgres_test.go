package item

import (
	"context"
	"os"
	"testing"

	"storefront/internal/domain"
	"storefront/internal/migrate"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgres_UpsertAndGet(t *testing.T) {
	ctx := context.Background()
	pool := testPool(ctx, t)
	defer pool.Close()

	_, err := migrate.Apply(ctx, pool)
	require.NoError(t, err)
	resetTables(ctx, t, pool)

	repo := NewPostgres(pool, zerolog.Nop())

	prod, err := repo.UpsertProduct(ctx, domain.Product{Key: "mug", Name: "Mug"})
	require.NoError(t, err)

	created, err := repo.UpsertItem(ctx, domain.Item{
		ProductID: prod.ID,
		Key:       "mug-red",
		Name:      "Red mug",
		Price:     decimal.RequireFromString("12.99"),
		Stock:     4,
	})
	require.NoError(t, err)
	assert.NotZero(t, created.ID)

	got, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "12.99", got.Price.StringFixed(2))
	assert.Equal(t, 4, got.Stock)

	updated, err := repo.UpsertItem(ctx, domain.Item{
		ProductID: prod.ID,
		Key:       "mug-red",
		Name:      "Red mug v2",
		Price:     decimal.RequireFromString("14"),
		Stock:     9,
	})
	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, 9, updated.Stock)

	list, err := repo.ListByIDs(ctx, []int64{created.ID, 999999})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Red mug v2", list[0].Name)

	_, err = repo.GetByID(ctx, 999999)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func testPool(ctx context.Context, t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		t.Skip("TEST_DB_DSN not set")
	}
	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err, "connect db")
	return pool
}

func resetTables(ctx context.Context, t *testing.T, pool *pgxpool.Pool) {
	t.Helper()
	_, err := pool.Exec(ctx, `TRUNCATE payments, order_lines, orders, skus, products, tokens, customers RESTART IDENTITY CASCADE`)
	require.NoError(t, err, "truncate tables")
}
