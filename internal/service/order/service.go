package order

import (
	"context"
	"fmt"
	"strings"

	"storefront/internal/domain"

	"github.com/rs/zerolog"
)

type orderRepo interface {
	GetByID(ctx context.Context, orderID string) (*domain.Order, error)
	ListByCustomer(ctx context.Context, customerID int64, limit int) ([]domain.Order, error)
	SetStatus(ctx context.Context, orderID string, status domain.OrderStatus) (*domain.Order, error)
	RecordPayment(ctx context.Context, orderID, tradeID string) (*domain.Order, error)
}

// Service exposes committed orders to their owners and lets the payment
// collaborator move them through the lifecycle.
type Service struct {
	repo   orderRepo
	logger zerolog.Logger
}

func New(repo orderRepo, logger zerolog.Logger) *Service {
	return &Service{repo: repo, logger: logger.With().Str("service", "order").Logger()}
}

// Get returns the order when it belongs to customerID. Other customers'
// orders are reported as not found.
func (s *Service) Get(ctx context.Context, customerID int64, orderID string) (*domain.Order, error) {
	o, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.CustomerID != customerID {
		return nil, domain.ErrNotFound
	}
	return o, nil
}

func (s *Service) List(ctx context.Context, customerID int64, limit int) ([]domain.Order, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	orders, err := s.repo.ListByCustomer(ctx, customerID, limit)
	if err != nil {
		return nil, err
	}
	if orders == nil {
		orders = []domain.Order{}
	}
	return orders, nil
}

func (s *Service) SetStatus(ctx context.Context, orderID string, status domain.OrderStatus) (*domain.Order, error) {
	if strings.TrimSpace(orderID) == "" {
		return nil, domain.NewValidationError("orderId", "required")
	}
	if !status.Valid() {
		return nil, domain.NewValidationError("status", fmt.Sprintf("unknown status %q", status))
	}
	o, err := s.repo.SetStatus(ctx, orderID, status)
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("order_id", orderID).Str("status", string(status)).Msg("status set")
	return o, nil
}

// RecordPayment applies a successful payment notification. Redelivered
// notifications are harmless.
func (s *Service) RecordPayment(ctx context.Context, orderID, tradeID string) (*domain.Order, error) {
	if strings.TrimSpace(orderID) == "" {
		return nil, domain.NewValidationError("orderId", "required")
	}
	if strings.TrimSpace(tradeID) == "" {
		return nil, domain.NewValidationError("tradeId", "required")
	}
	o, err := s.repo.RecordPayment(ctx, orderID, tradeID)
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("order_id", orderID).Str("trade_id", tradeID).Str("status", string(o.Status)).Msg("payment recorded")
	return o, nil
}
