package order

import (
	"context"
	"errors"
	"fmt"

	"storefront/internal/domain"
	"storefront/internal/inventory"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const orderColumns = `order_id, customer_id, address_id, payment_method, status, total_quantity,
       total_amount::text, shipping_fee::text, created_at`

type postgresRepo struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewPostgres returns a Repository backed by Postgres.
func NewPostgres(pool *pgxpool.Pool, logger zerolog.Logger) Repository {
	return &postgresRepo{pool: pool, logger: logger.With().Str("repo", "order").Logger()}
}

// WithinTx uses READ COMMITTED: a guarded stock UPDATE that lost a race is
// re-evaluated against the committed row and matches nothing, and the next
// read in the same transaction sees the winner's value.
func (r *postgresRepo) WithinTx(ctx context.Context, fn func(tx Tx) error) error {
	return r.inTx(ctx, func(tx pgx.Tx) error {
		return fn(&pgTx{tx: tx})
	})
}

func (r *postgresRepo) inTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return err
	}
	defer func() {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			r.logger.Error().Err(rbErr).Msg("rollback")
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *postgresRepo) GetByID(ctx context.Context, orderID string) (*domain.Order, error) {
	o, err := scanOrder(r.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE order_id = $1`, orderID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		r.logger.Error().Err(err).Str("order_id", orderID).Msg("get")
		return nil, err
	}

	rows, err := r.pool.Query(ctx, `
SELECT order_id, sku_id, quantity, unit_price::text
FROM order_lines
WHERE order_id = $1
ORDER BY sku_id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			line  domain.OrderLine
			price string
		)
		if err := rows.Scan(&line.OrderID, &line.ItemID, &line.Quantity, &price); err != nil {
			return nil, err
		}
		if line.UnitPrice, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("order line %s/%d price %q: %w", orderID, line.ItemID, price, err)
		}
		o.Lines = append(o.Lines, line)
	}
	return o, rows.Err()
}

func (r *postgresRepo) ListByCustomer(ctx context.Context, customerID int64, limit int) ([]domain.Order, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.pool.Query(ctx, `
SELECT `+orderColumns+`
FROM orders
WHERE customer_id = $1
ORDER BY created_at DESC, order_id DESC
LIMIT $2`, customerID, limit)
	if err != nil {
		r.logger.Error().Err(err).Int64("customer_id", customerID).Msg("list")
		return nil, err
	}
	defer rows.Close()

	var out []domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *o)
	}
	return out, rows.Err()
}

func (r *postgresRepo) SetStatus(ctx context.Context, orderID string, status domain.OrderStatus) (*domain.Order, error) {
	o, err := scanOrder(r.pool.QueryRow(ctx, `
UPDATE orders SET status = $2, updated_at = now()
WHERE order_id = $1
RETURNING `+orderColumns, orderID, string(status)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return o, nil
}

func (r *postgresRepo) RecordPayment(ctx context.Context, orderID, tradeID string) (*domain.Order, error) {
	var out *domain.Order
	err := r.inTx(ctx, func(tx pgx.Tx) error {
		o, err := scanOrder(tx.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE order_id = $1 FOR UPDATE`, orderID))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return domain.ErrNotFound
			}
			return err
		}

		if _, err := tx.Exec(ctx, `
INSERT INTO payments (order_id, trade_id) VALUES ($1, $2)
ON CONFLICT DO NOTHING`, orderID, tradeID); err != nil {
			return err
		}

		if o.Status == domain.StatusAwaitingPayment {
			if _, err := tx.Exec(ctx, `
UPDATE orders SET status = $2, updated_at = now()
WHERE order_id = $1`, orderID, string(domain.StatusAwaitingFulfillment)); err != nil {
				return err
			}
			o.Status = domain.StatusAwaitingFulfillment
		}
		out = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func scanOrder(row pgx.Row) (*domain.Order, error) {
	var (
		o           domain.Order
		method      string
		status      string
		amount, fee string
	)
	if err := row.Scan(&o.ID, &o.CustomerID, &o.AddressID, &method, &status, &o.TotalQuantity, &amount, &fee, &o.CreatedAt); err != nil {
		return nil, err
	}
	o.PaymentMethod = domain.PaymentMethod(method)
	o.Status = domain.OrderStatus(status)
	var err error
	if o.TotalAmount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("order %s total %q: %w", o.ID, amount, err)
	}
	if o.ShippingFee, err = decimal.NewFromString(fee); err != nil {
		return nil, fmt.Errorf("order %s shipping fee %q: %w", o.ID, fee, err)
	}
	return &o, nil
}

type pgTx struct {
	tx pgx.Tx
}

func (t *pgTx) ReadLevel(ctx context.Context, itemID int64) (inventory.Level, error) {
	var (
		lvl   inventory.Level
		price string
	)
	err := t.tx.QueryRow(ctx, `SELECT id, product_id, price::text, stock, sales FROM skus WHERE id = $1`, itemID).
		Scan(&lvl.ItemID, &lvl.ProductID, &price, &lvl.Stock, &lvl.Sales)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return inventory.Level{}, domain.ErrNotFound
		}
		return inventory.Level{}, err
	}
	if lvl.Price, err = decimal.NewFromString(price); err != nil {
		return inventory.Level{}, fmt.Errorf("sku %d price %q: %w", itemID, price, err)
	}
	return lvl, nil
}

func (t *pgTx) CompareAndSwap(ctx context.Context, itemID int64, expectedStock, newStock, newSales int) (bool, error) {
	cmd, err := t.tx.Exec(ctx, `
UPDATE skus SET stock = $1, sales = $2, updated_at = now()
WHERE id = $3 AND stock = $4`, newStock, newSales, itemID, expectedStock)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() == 1, nil
}

func (t *pgTx) AddProductSales(ctx context.Context, productID int64, quantity int) error {
	cmd, err := t.tx.Exec(ctx, `UPDATE products SET sales = sales + $1 WHERE id = $2`, quantity, productID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("product %d: %w", productID, domain.ErrNotFound)
	}
	return nil
}

func (t *pgTx) CreateOrder(ctx context.Context, o domain.Order) error {
	_, err := t.tx.Exec(ctx, `
INSERT INTO orders (order_id, customer_id, address_id, payment_method, status, total_quantity, total_amount, shipping_fee, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7::numeric, $8::numeric, $9, $9)`,
		o.ID, o.CustomerID, o.AddressID, string(o.PaymentMethod), string(o.Status),
		o.TotalQuantity, o.TotalAmount.String(), o.ShippingFee.String(), o.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("order %s: %w", o.ID, domain.ErrAlreadyExists)
		}
		return err
	}
	return nil
}

func (t *pgTx) CreateOrderLine(ctx context.Context, line domain.OrderLine) error {
	_, err := t.tx.Exec(ctx, `
INSERT INTO order_lines (order_id, sku_id, quantity, unit_price)
VALUES ($1, $2, $3, $4::numeric)`, line.OrderID, line.ItemID, line.Quantity, line.UnitPrice.String())
	return err
}

func (t *pgTx) FinalizeOrder(ctx context.Context, orderID string, totalQuantity int, totalAmount decimal.Decimal) error {
	cmd, err := t.tx.Exec(ctx, `
UPDATE orders SET total_quantity = $2, total_amount = $3::numeric, updated_at = now()
WHERE order_id = $1`, orderID, totalQuantity, totalAmount.String())
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("order %s: %w", orderID, domain.ErrNotFound)
	}
	return nil
}
