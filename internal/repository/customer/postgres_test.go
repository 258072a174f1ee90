package customer

import (
	"context"
	"os"
	"testing"
	"time"

	"storefront/internal/domain"
	"storefront/internal/migrate"
	"storefront/internal/repository/token"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgres_CreateAndLookup(t *testing.T) {
	ctx := context.Background()
	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		t.Skip("TEST_DB_DSN not set")
	}
	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	defer pool.Close()

	_, err = migrate.Apply(ctx, pool)
	require.NoError(t, err)
	_, err = pool.Exec(ctx, `TRUNCATE payments, order_lines, orders, skus, products, tokens, customers RESTART IDENTITY CASCADE`)
	require.NoError(t, err)

	repo := NewPostgres(pool, zerolog.Nop())
	created, err := repo.Create(ctx, domain.Customer{Email: "Ada@Example.com", PasswordHash: "x", FirstName: "Ada"})
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", created.Email)

	byEmail, err := repo.GetByEmail(ctx, "ADA@example.com")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byEmail.ID)

	_, err = repo.Create(ctx, domain.Customer{Email: "ada@example.com", PasswordHash: "y"})
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)

	_, err = repo.GetByID(ctx, created.ID+100)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	tokens := token.NewPostgres(pool)
	require.NoError(t, tokens.Create(ctx, token.Token{Token: "abc", CustomerID: created.ID, Kind: "access", ExpiresAt: time.Now().Add(time.Hour)}))
	got, err := tokens.Get(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.CustomerID)
	require.NoError(t, tokens.Delete(ctx, "abc"))
	assert.ErrorIs(t, tokens.Delete(ctx, "abc"), domain.ErrNotFound)
}
