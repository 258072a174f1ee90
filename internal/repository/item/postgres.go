package item

import (
	"context"
	"errors"
	"fmt"

	"storefront/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

type postgresRepo struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

func NewPostgres(pool *pgxpool.Pool, logger zerolog.Logger) Repository {
	return &postgresRepo{pool: pool, logger: logger.With().Str("repo", "item").Logger()}
}

const itemColumns = `id, product_id, key, name, price::text, stock, sales, default_image_url, created_at`

func (r *postgresRepo) GetByID(ctx context.Context, id int64) (*domain.Item, error) {
	q := `SELECT ` + itemColumns + ` FROM skus WHERE id = $1`
	it, err := scanItem(r.pool.QueryRow(ctx, q, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug().Int64("id", id).Msg("get: not found")
			return nil, domain.ErrNotFound
		}
		r.logger.Error().Err(err).Int64("id", id).Msg("get")
		return nil, err
	}
	return it, nil
}

func (r *postgresRepo) ListByIDs(ctx context.Context, ids []int64) ([]domain.Item, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	q := `SELECT ` + itemColumns + ` FROM skus WHERE id = ANY($1) ORDER BY id`
	rows, err := r.pool.Query(ctx, q, ids)
	if err != nil {
		r.logger.Error().Err(err).Int("count", len(ids)).Msg("list")
		return nil, err
	}
	defer rows.Close()

	var result []domain.Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *it)
	}
	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("list rows")
		return nil, err
	}
	return result, nil
}

func (r *postgresRepo) UpsertProduct(ctx context.Context, p domain.Product) (*domain.Product, error) {
	const q = `
INSERT INTO products (key, name)
VALUES ($1, $2)
ON CONFLICT (key) DO UPDATE SET name = EXCLUDED.name
RETURNING id, sales, created_at
`
	out := p
	if err := r.pool.QueryRow(ctx, q, p.Key, p.Name).Scan(&out.ID, &out.Sales, &out.CreatedAt); err != nil {
		r.logger.Error().Err(err).Str("key", p.Key).Msg("upsert product")
		return nil, err
	}
	return &out, nil
}

// UpsertItem creates or updates a SKU by key. Price, name, image and stock
// are overwritten; sales are left untouched.
func (r *postgresRepo) UpsertItem(ctx context.Context, it domain.Item) (*domain.Item, error) {
	if it.Stock < 0 {
		return nil, fmt.Errorf("item %q: negative stock", it.Key)
	}
	const q = `
INSERT INTO skus (product_id, key, name, price, stock, default_image_url)
VALUES ($1, $2, $3, $4::numeric, $5, $6)
ON CONFLICT (key) DO UPDATE SET
    product_id = EXCLUDED.product_id,
    name = EXCLUDED.name,
    price = EXCLUDED.price,
    stock = EXCLUDED.stock,
    default_image_url = EXCLUDED.default_image_url,
    updated_at = now()
RETURNING ` + itemColumns
	out, err := scanItem(r.pool.QueryRow(ctx, q, it.ProductID, it.Key, it.Name, it.Price.String(), it.Stock, it.DefaultImageURL))
	if err != nil {
		r.logger.Error().Err(err).Str("key", it.Key).Msg("upsert item")
		return nil, err
	}
	r.logger.Debug().Str("key", out.Key).Int64("id", out.ID).Msg("upserted item")
	return out, nil
}

func scanItem(row pgx.Row) (*domain.Item, error) {
	var (
		it    domain.Item
		price string
	)
	if err := row.Scan(&it.ID, &it.ProductID, &it.Key, &it.Name, &price, &it.Stock, &it.Sales, &it.DefaultImageURL, &it.CreatedAt); err != nil {
		return nil, err
	}
	p, err := decimal.NewFromString(price)
	if err != nil {
		return nil, fmt.Errorf("parse price of item %d: %w", it.ID, err)
	}
	it.Price = p
	return &it, nil
}
