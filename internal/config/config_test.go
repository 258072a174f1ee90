package config

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestFromEnv_Defaults(t *testing.T) {
	for _, k := range []string{"HTTP_ADDR", "KAFKA_BROKERS", "SHIPPING_FEE", "CHECKOUT_MAX_ATTEMPTS", "CORS_ORIGINS", "INTERNAL_ROUTES_OPEN"} {
		t.Setenv(k, "")
	}
	cfg := FromEnv()

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.True(t, cfg.ShippingFee.Equal(decimal.RequireFromString("10")))
	assert.Equal(t, 0, cfg.CheckoutMaxAttempts)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.False(t, cfg.InternalRoutesOpen)
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("SHIPPING_FEE", "7.50")
	t.Setenv("CHECKOUT_MAX_ATTEMPTS", "25")
	t.Setenv("SHUTDOWN_TIMEOUT_SECONDS", "3")
	t.Setenv("RATE_LIMIT_RPS", "2.5")
	t.Setenv("INTERNAL_ROUTES_OPEN", "true")

	cfg := FromEnv()

	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "7.5", cfg.ShippingFee.String())
	assert.Equal(t, 25, cfg.CheckoutMaxAttempts)
	assert.Equal(t, 3*time.Second, cfg.ShutdownTimeout)
	assert.InDelta(t, 2.5, cfg.RateLimitRPS, 0.0001)
	assert.True(t, cfg.InternalRoutesOpen)
}

func TestFromEnv_RejectsNegativeShippingFee(t *testing.T) {
	t.Setenv("SHIPPING_FEE", "-1")
	cfg := FromEnv()
	assert.Equal(t, "10", cfg.ShippingFee.String())
}
