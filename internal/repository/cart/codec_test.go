package cart

import (
	"strings"
	"testing"

	"storefront/internal/domain"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenCodec_RoundTrip(t *testing.T) {
	codec := NewTokenCodec("secret")
	lines := domain.CartLines{
		7: {ItemID: 7, Quantity: 2, Selected: true},
		3: {ItemID: 3, Quantity: 1},
	}

	token, err := codec.Encode(lines)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	got, err := codec.Decode(token)
	require.NoError(t, err)
	assert.Equal(t, lines, got)
}

func TestTokenCodec_EmptyCart(t *testing.T) {
	codec := NewTokenCodec("secret")

	token, err := codec.Encode(domain.CartLines{})
	require.NoError(t, err)
	assert.Empty(t, token)

	got, err := codec.Decode("")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestTokenCodec_RejectsTampering(t *testing.T) {
	codec := NewTokenCodec("secret")
	token, err := codec.Encode(domain.CartLines{1: {ItemID: 1, Quantity: 1}})
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)
	other, err := codec.Encode(domain.CartLines{1: {ItemID: 1, Quantity: 50}})
	require.NoError(t, err)
	forged := strings.Split(other, ".")[0] + "." + strings.Split(other, ".")[1] + "." + parts[2]

	_, err = codec.Decode(forged)
	assert.True(t, domain.IsValidation(err))
}

func TestTokenCodec_RejectsWrongSecret(t *testing.T) {
	token, err := NewTokenCodec("one").Encode(domain.CartLines{1: {ItemID: 1, Quantity: 1}})
	require.NoError(t, err)

	_, err = NewTokenCodec("two").Decode(token)
	assert.True(t, domain.IsValidation(err))
}

func TestTokenCodec_RejectsGarbage(t *testing.T) {
	_, err := NewTokenCodec("secret").Decode("not-a-token")
	assert.True(t, domain.IsValidation(err))
}

func TestTokenCodec_RejectsBadShape(t *testing.T) {
	codec := NewTokenCodec("secret")
	cases := map[string][]domain.CartLine{
		"zero quantity": {{ItemID: 1, Quantity: 0}},
		"over limit":    {{ItemID: 1, Quantity: domain.MaxLineQuantity + 1}},
		"negative id":   {{ItemID: -4, Quantity: 1}},
		"duplicate":     {{ItemID: 2, Quantity: 1}, {ItemID: 2, Quantity: 3}},
	}
	for name, lines := range cases {
		t.Run(name, func(t *testing.T) {
			token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, tokenClaims{Lines: lines}).SignedString(codec.secret)
			require.NoError(t, err)

			_, err = codec.Decode(token)
			assert.True(t, domain.IsValidation(err), "got %v", err)
		})
	}
}

func TestTokenCodec_RejectsOtherAlgorithms(t *testing.T) {
	codec := NewTokenCodec("secret")
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, tokenClaims{
		Lines: []domain.CartLine{{ItemID: 1, Quantity: 1}},
	}).SignedString(codec.secret)
	require.NoError(t, err)

	_, err = codec.Decode(token)
	assert.True(t, domain.IsValidation(err))
}
