package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront/internal/domain"
)

type cartRepo interface {
	Lines(ctx context.Context, customerID int64) (domain.CartLines, error)
	Add(ctx context.Context, customerID, itemID int64, quantity int, selected bool) error
	Set(ctx context.Context, customerID, itemID int64, quantity int, selected bool) error
	Remove(ctx context.Context, customerID int64, itemIDs ...int64) error
	SetAllSelected(ctx context.Context, customerID int64, selected bool) error
	Merge(ctx context.Context, customerID int64, lines domain.CartLines) error
	ClaimMerge(ctx context.Context, loginEvent string, ttl time.Duration) (bool, error)
}

type itemRepo interface {
	GetByID(ctx context.Context, id int64) (*domain.Item, error)
	ListByIDs(ctx context.Context, ids []int64) ([]domain.Item, error)
}

type tokenCodec interface {
	Encode(lines domain.CartLines) (string, error)
	Decode(token string) (domain.CartLines, error)
}

// ErrMergeAlreadyApplied is returned when a login event was merged before.
var ErrMergeAlreadyApplied = errors.New("cart merge already applied")

type Service struct {
	repo     cartRepo
	items    itemRepo
	codec    tokenCodec
	mergeTTL time.Duration
}

func New(repo cartRepo, items itemRepo, codec tokenCodec) *Service {
	return &Service{repo: repo, items: items, codec: codec, mergeTTL: 48 * time.Hour}
}

// LineInput is the payload of add and update.
type LineInput struct {
	ItemID   int64 `json:"skuId"`
	Quantity int   `json:"count"`
	Selected *bool `json:"selected,omitempty"`
}

func (in LineInput) selected() bool {
	return in.Selected == nil || *in.Selected
}

// ForCustomer returns the server-held cart of an authenticated customer.
func (s *Service) ForCustomer(customerID int64) Cart {
	return &customerCart{repo: s.repo, customerID: customerID}
}

// ForAnonymous decodes a client-held cart. An empty token is an empty cart.
func (s *Service) ForAnonymous(token string) (Cart, error) {
	lines, err := s.codec.Decode(token)
	if err != nil {
		return nil, err
	}
	return &anonymousCart{codec: s.codec, lines: lines}, nil
}

// Add accumulates quantity onto the line. Selection defaults to true and an
// add never clears it.
func (s *Service) Add(ctx context.Context, cart Cart, in LineInput) error {
	if err := s.validateLine(ctx, in); err != nil {
		return err
	}
	lines, err := cart.Lines(ctx)
	if err != nil {
		return err
	}
	if lines[in.ItemID].Quantity+in.Quantity > domain.MaxLineQuantity {
		return domain.NewValidationError("count", fmt.Sprintf("line total may not exceed %d", domain.MaxLineQuantity))
	}
	return cart.Add(ctx, in.ItemID, in.Quantity, in.selected())
}

// Update overwrites quantity and selection of the line.
func (s *Service) Update(ctx context.Context, cart Cart, in LineInput) error {
	if err := s.validateLine(ctx, in); err != nil {
		return err
	}
	return cart.Update(ctx, in.ItemID, in.Quantity, in.selected())
}

func (s *Service) Remove(ctx context.Context, cart Cart, itemID int64) error {
	if itemID <= 0 {
		return domain.NewValidationError("skuId", "required")
	}
	return cart.Remove(ctx, itemID)
}

func (s *Service) SelectAll(ctx context.Context, cart Cart, selected bool) error {
	return cart.SetAllSelected(ctx, selected)
}

// List joins the cart with live item attributes, ordered by item id. Lines
// whose item left the catalog are omitted.
func (s *Service) List(ctx context.Context, cart Cart) ([]domain.CartItem, error) {
	lines, err := cart.Lines(ctx)
	if err != nil {
		return nil, err
	}
	return s.join(ctx, lines, false)
}

// Selected is List restricted to selected lines.
func (s *Service) Selected(ctx context.Context, cart Cart) ([]domain.CartItem, error) {
	lines, err := cart.Lines(ctx)
	if err != nil {
		return nil, err
	}
	return s.join(ctx, lines, true)
}

func (s *Service) join(ctx context.Context, lines domain.CartLines, selectedOnly bool) ([]domain.CartItem, error) {
	ids := make([]int64, 0, len(lines))
	for _, id := range lines.ItemIDs() {
		if selectedOnly && !lines[id].Selected {
			continue
		}
		ids = append(ids, id)
	}
	out := make([]domain.CartItem, 0, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	items, err := s.items.ListByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, it := range items {
		line, ok := lines[it.ID]
		if !ok {
			continue
		}
		out = append(out, domain.CartItem{
			ItemID:          it.ID,
			Name:            it.Name,
			DefaultImageURL: it.DefaultImageURL,
			Price:           it.Price,
			Quantity:        line.Quantity,
			Selected:        line.Selected,
		})
	}
	return out, nil
}

// Merge folds an anonymous cart into the customer's cart: quantities are
// overwritten and selected lines join the selection. A login event merges at
// most once; repeats return ErrMergeAlreadyApplied. It returns how many
// lines were merged.
func (s *Service) Merge(ctx context.Context, token string, customerID int64, loginEvent string) (int, error) {
	lines, err := s.codec.Decode(token)
	if err != nil {
		return 0, err
	}
	if len(lines) == 0 {
		return 0, nil
	}
	if loginEvent != "" {
		claimed, err := s.repo.ClaimMerge(ctx, loginEvent, s.mergeTTL)
		if err != nil {
			return 0, fmt.Errorf("claim merge: %w", err)
		}
		if !claimed {
			return 0, ErrMergeAlreadyApplied
		}
	}
	if err := s.repo.Merge(ctx, customerID, lines); err != nil {
		return 0, err
	}
	return len(lines), nil
}

func (s *Service) validateLine(ctx context.Context, in LineInput) error {
	if in.ItemID <= 0 {
		return domain.NewValidationError("skuId", "required")
	}
	if in.Quantity <= 0 {
		return domain.NewValidationError("count", "must be positive")
	}
	if in.Quantity > domain.MaxLineQuantity {
		return domain.NewValidationError("count", fmt.Sprintf("may not exceed %d", domain.MaxLineQuantity))
	}
	if _, err := s.items.GetByID(ctx, in.ItemID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.NewValidationError("skuId", fmt.Sprintf("item %d does not exist", in.ItemID))
		}
		return err
	}
	return nil
}
