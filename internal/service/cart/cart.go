package cart

import (
	"context"

	"storefront/internal/domain"
)

// Cart is one shopper's cart regardless of where it is held. Callers never
// branch on the representation.
type Cart interface {
	Lines(ctx context.Context) (domain.CartLines, error)
	Add(ctx context.Context, itemID int64, quantity int, selected bool) error
	Update(ctx context.Context, itemID int64, quantity int, selected bool) error
	Remove(ctx context.Context, itemID int64) error
	SetAllSelected(ctx context.Context, selected bool) error
	// Token returns the blob the client must carry for the next request.
	// Server-held carts and emptied anonymous carts return "".
	Token() (string, error)
	// Anonymous reports whether the cart lives on the client.
	Anonymous() bool
}

type customerCart struct {
	repo       cartRepo
	customerID int64
}

func (c *customerCart) Lines(ctx context.Context) (domain.CartLines, error) {
	return c.repo.Lines(ctx, c.customerID)
}

func (c *customerCart) Add(ctx context.Context, itemID int64, quantity int, selected bool) error {
	return c.repo.Add(ctx, c.customerID, itemID, quantity, selected)
}

func (c *customerCart) Update(ctx context.Context, itemID int64, quantity int, selected bool) error {
	return c.repo.Set(ctx, c.customerID, itemID, quantity, selected)
}

func (c *customerCart) Remove(ctx context.Context, itemID int64) error {
	return c.repo.Remove(ctx, c.customerID, itemID)
}

func (c *customerCart) SetAllSelected(ctx context.Context, selected bool) error {
	return c.repo.SetAllSelected(ctx, c.customerID, selected)
}

func (c *customerCart) Token() (string, error) { return "", nil }
func (c *customerCart) Anonymous() bool        { return false }

type anonymousCart struct {
	codec tokenCodec
	lines domain.CartLines
}

func (c *anonymousCart) Lines(context.Context) (domain.CartLines, error) {
	out := make(domain.CartLines, len(c.lines))
	for id, line := range c.lines {
		out[id] = line
	}
	return out, nil
}

func (c *anonymousCart) Add(_ context.Context, itemID int64, quantity int, selected bool) error {
	line, ok := c.lines[itemID]
	if !ok {
		line = domain.CartLine{ItemID: itemID}
	}
	line.Quantity += quantity
	line.Selected = line.Selected || selected
	c.lines[itemID] = line
	return nil
}

func (c *anonymousCart) Update(_ context.Context, itemID int64, quantity int, selected bool) error {
	c.lines[itemID] = domain.CartLine{ItemID: itemID, Quantity: quantity, Selected: selected}
	return nil
}

func (c *anonymousCart) Remove(_ context.Context, itemID int64) error {
	delete(c.lines, itemID)
	return nil
}

func (c *anonymousCart) SetAllSelected(_ context.Context, selected bool) error {
	for id, line := range c.lines {
		line.Selected = selected
		c.lines[id] = line
	}
	return nil
}

func (c *anonymousCart) Token() (string, error) { return c.codec.Encode(c.lines) }
func (c *anonymousCart) Anonymous() bool        { return true }
