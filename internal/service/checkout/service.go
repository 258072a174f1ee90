package checkout

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"storefront/internal/domain"
	"storefront/internal/inventory"
	orderrepo "storefront/internal/repository/order"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

type orderStore interface {
	WithinTx(ctx context.Context, fn func(tx orderrepo.Tx) error) error
}

type cartStore interface {
	Lines(ctx context.Context, customerID int64) (domain.CartLines, error)
	Remove(ctx context.Context, customerID int64, itemIDs ...int64) error
}

type itemRepo interface {
	ListByIDs(ctx context.Context, ids []int64) ([]domain.Item, error)
}

// Publisher announces committed orders.
type Publisher interface {
	PublishOrderCreated(ctx context.Context, o domain.Order) error
}

// Service turns the selected part of a customer's cart into an order.
type Service struct {
	orders      orderStore
	carts       cartStore
	items       itemRepo
	ledger      *inventory.Ledger
	publisher   Publisher
	shippingFee decimal.Decimal
	logger      zerolog.Logger
	now         func() time.Time
}

// Options carries the tunables of Service.
type Options struct {
	ShippingFee decimal.Decimal
	// MaxAttempts caps compare-and-swap rounds per item; 0 is unbounded.
	MaxAttempts int
}

func New(orders orderStore, carts cartStore, items itemRepo, publisher Publisher, opts Options, logger zerolog.Logger) *Service {
	logger = logger.With().Str("service", "checkout").Logger()
	return &Service{
		orders:      orders,
		carts:       carts,
		items:       items,
		ledger:      inventory.NewLedger(opts.MaxAttempts, logger),
		publisher:   publisher,
		shippingFee: opts.ShippingFee,
		logger:      logger,
		now:         time.Now,
	}
}

// SettleInput is the checkout request.
type SettleInput struct {
	AddressID     int64                `json:"addressId"`
	PaymentMethod domain.PaymentMethod `json:"paymentMethod"`
}

// Settlement is what the customer would pay for the current selection.
type Settlement struct {
	Items         []domain.CartItem `json:"skus"`
	TotalQuantity int               `json:"totalCount"`
	ItemsAmount   decimal.Decimal   `json:"itemsAmount"`
	ShippingFee   decimal.Decimal   `json:"freight"`
	TotalAmount   decimal.Decimal   `json:"totalAmount"`
}

// Preview prices the selected lines at current prices. It writes nothing and
// an empty selection is not an error.
func (s *Service) Preview(ctx context.Context, customerID int64) (*Settlement, error) {
	lines, err := s.carts.Lines(ctx, customerID)
	if err != nil {
		return nil, err
	}
	selected := lines.Selected()
	out := &Settlement{Items: []domain.CartItem{}, ItemsAmount: decimal.Zero, ShippingFee: s.shippingFee}
	if len(selected) > 0 {
		items, err := s.items.ListByIDs(ctx, sortedIDs(selected))
		if err != nil {
			return nil, err
		}
		for _, it := range items {
			qty := selected[it.ID]
			out.Items = append(out.Items, domain.CartItem{
				ItemID:          it.ID,
				Name:            it.Name,
				DefaultImageURL: it.DefaultImageURL,
				Price:           it.Price,
				Quantity:        qty,
				Selected:        true,
			})
			out.TotalQuantity += qty
			out.ItemsAmount = out.ItemsAmount.Add(it.Price.Mul(decimal.NewFromInt(int64(qty))))
		}
	}
	out.TotalAmount = out.ItemsAmount.Add(out.ShippingFee)
	return out, nil
}

// Settle creates an order from the customer's selected cart lines. Order,
// lines and every stock decrement commit together or not at all. Checked-out
// lines leave the cart only after the commit; unselected lines stay.
//
// Once started, a settle runs to its outcome: cancellation of ctx (a client
// disconnect) is ignored, while its values are kept.
func (s *Service) Settle(ctx context.Context, customerID int64, in SettleInput) (*domain.Order, error) {
	ctx = context.WithoutCancel(ctx)
	if customerID <= 0 {
		return nil, domain.NewValidationError("customer", "required")
	}
	if in.AddressID <= 0 {
		return nil, domain.NewValidationError("addressId", "required")
	}
	if !in.PaymentMethod.Valid() {
		return nil, domain.NewValidationError("paymentMethod", fmt.Sprintf("unsupported %q", in.PaymentMethod))
	}

	lines, err := s.carts.Lines(ctx, customerID)
	if err != nil {
		return nil, err
	}
	selected := lines.Selected()
	if len(selected) == 0 {
		return nil, domain.ErrEmptyCart
	}
	ids := sortedIDs(selected)

	now := s.now()
	order := domain.Order{
		ID:            domain.NewOrderID(now, customerID),
		CustomerID:    customerID,
		AddressID:     in.AddressID,
		PaymentMethod: in.PaymentMethod,
		Status:        in.PaymentMethod.InitialStatus(),
		TotalAmount:   decimal.Zero,
		ShippingFee:   s.shippingFee,
		CreatedAt:     now,
	}

	err = s.orders.WithinTx(ctx, func(tx orderrepo.Tx) error {
		if err := tx.CreateOrder(ctx, order); err != nil {
			return err
		}

		var (
			totalQty     int
			totalAmount  = decimal.Zero
			productSales = make(map[int64]int)
			orderLines   = make([]domain.OrderLine, 0, len(ids))
		)
		for _, id := range ids {
			qty := selected[id]
			res, err := s.ledger.TryDecrement(ctx, tx, id, qty)
			if err != nil {
				if errors.Is(err, domain.ErrNotFound) {
					return domain.NewValidationError("skuId", fmt.Sprintf("item %d does not exist", id))
				}
				return err
			}
			line := domain.OrderLine{OrderID: order.ID, ItemID: id, Quantity: qty, UnitPrice: res.Read.Price}
			if err := tx.CreateOrderLine(ctx, line); err != nil {
				return fmt.Errorf("order line item_id=%d: %w", id, err)
			}
			productSales[res.Read.ProductID] += qty
			totalQty += qty
			totalAmount = totalAmount.Add(line.Amount())
			orderLines = append(orderLines, line)
		}

		// Product rows are locked after every sku row, in id order, so two
		// settles sharing a product cannot deadlock.
		for _, pid := range sortedIDs(productSales) {
			if err := tx.AddProductSales(ctx, pid, productSales[pid]); err != nil {
				return err
			}
		}

		totalAmount = totalAmount.Add(s.shippingFee)
		if err := tx.FinalizeOrder(ctx, order.ID, totalQty, totalAmount); err != nil {
			return err
		}
		order.TotalQuantity = totalQty
		order.TotalAmount = totalAmount
		order.Lines = orderLines
		return nil
	})
	if err != nil {
		s.logger.Info().Err(err).Int64("customer_id", customerID).Str("order_id", order.ID).Msg("settle rolled back")
		return nil, err
	}

	if err := s.carts.Remove(ctx, customerID, ids...); err != nil {
		s.logger.Error().Err(err).Int64("customer_id", customerID).Str("order_id", order.ID).Msg("clear checked-out cart lines")
	}
	if s.publisher != nil {
		if err := s.publisher.PublishOrderCreated(ctx, order); err != nil {
			s.logger.Error().Err(err).Str("order_id", order.ID).Msg("publish order created")
		}
	}
	s.logger.Info().Int64("customer_id", customerID).Str("order_id", order.ID).
		Int("lines", len(order.Lines)).Str("total", order.TotalAmount.StringFixed(2)).Msg("order settled")
	return &order, nil
}

func sortedIDs(m map[int64]int) []int64 {
	ids := make([]int64, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
