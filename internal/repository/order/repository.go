package order

import (
	"context"

	"storefront/internal/domain"
	"storefront/internal/inventory"

	"github.com/shopspring/decimal"
)

// Tx is the unit of work a checkout runs in. Nothing written through it is
// visible to other sessions until WithinTx commits.
type Tx interface {
	inventory.Store
	AddProductSales(ctx context.Context, productID int64, quantity int) error
	CreateOrder(ctx context.Context, o domain.Order) error
	CreateOrderLine(ctx context.Context, line domain.OrderLine) error
	FinalizeOrder(ctx context.Context, orderID string, totalQuantity int, totalAmount decimal.Decimal) error
}

// Repository persists orders and runs checkout transactions.
type Repository interface {
	// WithinTx runs fn in a transaction. An error from fn rolls back every
	// write fn made; otherwise the transaction commits.
	WithinTx(ctx context.Context, fn func(tx Tx) error) error
	GetByID(ctx context.Context, orderID string) (*domain.Order, error)
	ListByCustomer(ctx context.Context, customerID int64, limit int) ([]domain.Order, error)
	SetStatus(ctx context.Context, orderID string, status domain.OrderStatus) (*domain.Order, error)
	// RecordPayment stores the external trade id and moves the order from
	// awaiting payment to awaiting fulfillment. Orders in any other status
	// are returned unchanged.
	RecordPayment(ctx context.Context, orderID, tradeID string) (*domain.Order, error)
}
