package events

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"storefront/internal/domain"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

const (
	applyAttempts = 3
	retryDelay    = 500 * time.Millisecond
)

// PaymentEvent is a notification from the payment provider.
type PaymentEvent struct {
	OrderID string `json:"order_id"`
	Status  string `json:"status"`
	TradeNo string `json:"trade_no"`
}

// Succeeded reports whether the event confirms the money arrived.
func (e PaymentEvent) Succeeded() bool {
	switch strings.ToUpper(e.Status) {
	case "TRADE_SUCCESS", "TRADE_FINISHED", "SUCCEEDED":
		return true
	}
	return false
}

type paymentApplier interface {
	RecordPayment(ctx context.Context, orderID, tradeID string) (*domain.Order, error)
}

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// NewKafkaReader returns a consumer-group reader for topic.
func NewKafkaReader(brokers []string, topic, groupID string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		GroupID:  groupID,
		Topic:    topic,
		MinBytes: 1,
		MaxBytes: 10e6, // 10MB
		MaxWait:  time.Second,
	})
}

// PaymentConsumer applies payment notifications to orders.
type PaymentConsumer struct {
	reader   messageReader
	payments paymentApplier
	logger   zerolog.Logger
	delay    time.Duration
}

func NewPaymentConsumer(reader messageReader, payments paymentApplier, logger zerolog.Logger) *PaymentConsumer {
	return &PaymentConsumer{
		reader:   reader,
		payments: payments,
		logger:   logger.With().Str("component", "payment-consumer").Logger(),
		delay:    retryDelay,
	}
}

// Run consumes until ctx is cancelled. Each message is committed once it has
// been applied or judged unusable.
func (c *PaymentConsumer) Run(ctx context.Context) error {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.logger.Error().Err(err).Msg("fetch message")
			if !sleep(ctx, c.delay) {
				return nil
			}
			continue
		}

		c.handle(ctx, msg)
		if err := c.reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
			c.logger.Error().Err(err).Int64("offset", msg.Offset).Msg("commit message")
		}
	}
}

func (c *PaymentConsumer) handle(ctx context.Context, msg kafka.Message) {
	for attempt := 1; ; attempt++ {
		err := c.processMessage(ctx, msg)
		if err == nil {
			return
		}
		if attempt >= applyAttempts || !retryable(err) {
			c.logger.Error().Err(err).Int64("offset", msg.Offset).Int("attempts", attempt).Msg("payment event dropped")
			return
		}
		if !sleep(ctx, c.delay) {
			return
		}
	}
}

func (c *PaymentConsumer) processMessage(ctx context.Context, msg kafka.Message) error {
	var evt PaymentEvent
	if err := json.Unmarshal(msg.Value, &evt); err != nil {
		return domain.NewValidationError("payload", err.Error())
	}
	if !evt.Succeeded() {
		c.logger.Debug().Str("order_id", evt.OrderID).Str("status", evt.Status).Msg("payment event ignored")
		return nil
	}
	o, err := c.payments.RecordPayment(ctx, evt.OrderID, evt.TradeNo)
	if err != nil {
		return err
	}
	c.logger.Info().Str("order_id", o.ID).Str("status", string(o.Status)).Msg("payment applied")
	return nil
}

func (c *PaymentConsumer) Close() error {
	return c.reader.Close()
}

func retryable(err error) bool {
	return !domain.IsValidation(err) && !errors.Is(err, domain.ErrNotFound)
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
