package cart

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"storefront/internal/domain"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"
)

const watchRetries = 5

type redisRepo struct {
	client *redis.Client
	logger zerolog.Logger
}

// NewRedis returns a Repository keeping quantities in the hash cart_<id> and
// the selection in the set selected_<id>. Redis drops both keys once they are
// empty, so an emptied cart leaves nothing behind.
func NewRedis(client *redis.Client, logger zerolog.Logger) Repository {
	return &redisRepo{client: client, logger: logger.With().Str("repo", "cart").Logger()}
}

func cartKey(customerID int64) string     { return fmt.Sprintf("cart_%d", customerID) }
func selectedKey(customerID int64) string { return fmt.Sprintf("selected_%d", customerID) }
func mergeKey(loginEvent string) string   { return "cart_merge_" + loginEvent }

func (r *redisRepo) Lines(ctx context.Context, customerID int64) (domain.CartLines, error) {
	var (
		counts  *redis.StringStringMapCmd
		members *redis.StringSliceCmd
	)
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		counts = pipe.HGetAll(ctx, cartKey(customerID))
		members = pipe.SMembers(ctx, selectedKey(customerID))
		return nil
	})
	if err != nil {
		r.logger.Error().Err(err).Int64("customer_id", customerID).Msg("read cart")
		return nil, err
	}

	lines := make(domain.CartLines, len(counts.Val()))
	for rawID, rawCount := range counts.Val() {
		id, err := strconv.ParseInt(rawID, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("cart %d: item key %q: %w", customerID, rawID, domain.ErrInvalidCart)
		}
		count, err := strconv.Atoi(rawCount)
		if err != nil {
			return nil, fmt.Errorf("cart %d: quantity %q: %w", customerID, rawCount, domain.ErrInvalidCart)
		}
		lines[id] = domain.CartLine{ItemID: id, Quantity: count}
	}
	for _, rawID := range members.Val() {
		id, err := strconv.ParseInt(rawID, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("cart %d: selected key %q: %w", customerID, rawID, domain.ErrInvalidCart)
		}
		line, ok := lines[id]
		if !ok {
			r.logger.Error().Int64("customer_id", customerID).Int64("item_id", id).Msg("selected item has no quantity")
			return nil, fmt.Errorf("cart %d: item %d selected without quantity: %w", customerID, id, domain.ErrInvalidCart)
		}
		line.Selected = true
		lines[id] = line
	}
	return lines, nil
}

// Add increments the line under WATCH so the stored total never passes
// domain.MaxLineQuantity, even with concurrent adds.
func (r *redisRepo) Add(ctx context.Context, customerID, itemID int64, quantity int, selected bool) error {
	key := cartKey(customerID)
	field := strconv.FormatInt(itemID, 10)
	for i := 0; i < watchRetries; i++ {
		err := r.client.Watch(ctx, func(tx *redis.Tx) error {
			current, err := tx.HGet(ctx, key, field).Int()
			if err != nil && !errors.Is(err, redis.Nil) {
				return err
			}
			if current+quantity > domain.MaxLineQuantity {
				return domain.NewValidationError("count", fmt.Sprintf("line total may not exceed %d", domain.MaxLineQuantity))
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.HIncrBy(ctx, key, field, int64(quantity))
				if selected {
					pipe.SAdd(ctx, selectedKey(customerID), itemID)
				}
				return nil
			})
			return err
		}, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return fmt.Errorf("add item %d for customer %d: %w", itemID, customerID, redis.TxFailedErr)
}

func (r *redisRepo) Set(ctx context.Context, customerID, itemID int64, quantity int, selected bool) error {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, cartKey(customerID), strconv.FormatInt(itemID, 10), quantity)
		if selected {
			pipe.SAdd(ctx, selectedKey(customerID), itemID)
		} else {
			pipe.SRem(ctx, selectedKey(customerID), itemID)
		}
		return nil
	})
	return err
}

func (r *redisRepo) Remove(ctx context.Context, customerID int64, itemIDs ...int64) error {
	if len(itemIDs) == 0 {
		return nil
	}
	fields := make([]string, 0, len(itemIDs))
	members := make([]interface{}, 0, len(itemIDs))
	for _, id := range itemIDs {
		fields = append(fields, strconv.FormatInt(id, 10))
		members = append(members, id)
	}
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HDel(ctx, cartKey(customerID), fields...)
		pipe.SRem(ctx, selectedKey(customerID), members...)
		return nil
	})
	return err
}

// SetAllSelected watches the quantity hash so that a line added between the
// key read and the selection write is not missed.
func (r *redisRepo) SetAllSelected(ctx context.Context, customerID int64, selected bool) error {
	key := cartKey(customerID)
	for i := 0; i < watchRetries; i++ {
		err := r.client.Watch(ctx, func(tx *redis.Tx) error {
			ids, err := tx.HKeys(ctx, key).Result()
			if err != nil {
				return err
			}
			if len(ids) == 0 {
				return nil
			}
			members := make([]interface{}, len(ids))
			for i, id := range ids {
				members[i] = id
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				if selected {
					pipe.SAdd(ctx, selectedKey(customerID), members...)
				} else {
					pipe.SRem(ctx, selectedKey(customerID), members...)
				}
				return nil
			})
			return err
		}, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return fmt.Errorf("select all for customer %d: %w", customerID, redis.TxFailedErr)
}

// Merge overwrites the stored quantity of every incoming line and adds the
// selected ones to the selection. Existing selections are never cleared.
func (r *redisRepo) Merge(ctx context.Context, customerID int64, lines domain.CartLines) error {
	if len(lines) == 0 {
		return nil
	}
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, id := range lines.ItemIDs() {
			line := lines[id]
			pipe.HSet(ctx, cartKey(customerID), strconv.FormatInt(id, 10), line.Quantity)
			if line.Selected {
				pipe.SAdd(ctx, selectedKey(customerID), id)
			}
		}
		return nil
	})
	if err != nil {
		r.logger.Error().Err(err).Int64("customer_id", customerID).Int("lines", len(lines)).Msg("merge")
	}
	return err
}

// ClaimMerge marks loginEvent as merged. Only the first claim succeeds.
func (r *redisRepo) ClaimMerge(ctx context.Context, loginEvent string, ttl time.Duration) (bool, error) {
	return r.client.SetNX(ctx, mergeKey(loginEvent), 1, ttl).Result()
}
