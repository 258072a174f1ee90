package cart

import (
	"errors"
	"fmt"
	"time"

	"storefront/internal/domain"

	"github.com/golang-jwt/jwt/v5"
)

const maxTokenLines = 200

// TokenCodec encodes anonymous carts into an HMAC-signed token the client
// carries between requests. Decoded tokens are still shape-checked.
type TokenCodec struct {
	secret []byte
	now    func() time.Time
}

// NewTokenCodec returns a codec signing with secret.
func NewTokenCodec(secret string) *TokenCodec {
	return &TokenCodec{secret: []byte(secret), now: time.Now}
}

type tokenClaims struct {
	Lines []domain.CartLine `json:"lines"`
	jwt.RegisteredClaims
}

// Encode returns the token for lines; an empty cart encodes to "".
func (c *TokenCodec) Encode(lines domain.CartLines) (string, error) {
	if len(lines) == 0 {
		return "", nil
	}
	claims := tokenClaims{
		Lines:            make([]domain.CartLine, 0, len(lines)),
		RegisteredClaims: jwt.RegisteredClaims{IssuedAt: jwt.NewNumericDate(c.now())},
	}
	for _, id := range lines.ItemIDs() {
		line := lines[id]
		line.ItemID = id
		claims.Lines = append(claims.Lines, line)
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
}

// Decode parses a token produced by Encode. "" decodes to an empty cart. Any
// signature or shape problem is a *domain.ValidationError.
func (c *TokenCodec) Decode(token string) (domain.CartLines, error) {
	lines := make(domain.CartLines)
	if token == "" {
		return lines, nil
	}

	var claims tokenClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		return c.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, &domain.ValidationError{Field: "cart", Reason: "malformed cart token: " + errorReason(err)}
	}

	if len(claims.Lines) > maxTokenLines {
		return nil, domain.NewValidationError("cart", "too many lines")
	}
	for _, line := range claims.Lines {
		if line.ItemID <= 0 {
			return nil, domain.NewValidationError("cart", fmt.Sprintf("invalid item id %d", line.ItemID))
		}
		if line.Quantity <= 0 || line.Quantity > domain.MaxLineQuantity {
			return nil, domain.NewValidationError("cart", fmt.Sprintf("invalid quantity for item %d", line.ItemID))
		}
		if _, dup := lines[line.ItemID]; dup {
			return nil, domain.NewValidationError("cart", fmt.Sprintf("duplicate item %d", line.ItemID))
		}
		lines[line.ItemID] = line
	}
	return lines, nil
}

func errorReason(err error) string {
	switch {
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return "bad signature"
	case errors.Is(err, jwt.ErrTokenMalformed):
		return "malformed"
	case errors.Is(err, jwt.ErrTokenUnverifiable):
		return "unverifiable"
	}
	return "invalid"
}
