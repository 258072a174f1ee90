package httpserver

import (
	"net/http"
	"testing"

	"storefront/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnonymousCartRoundTrip(t *testing.T) {
	env := newTestEnv(Options{})

	rec := do(t, env.router, http.MethodPost, "/carts", `{"skuId":1,"count":2}`, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	token := rec.Header().Get(cartHeader)
	require.NotEmpty(t, token)
	assert.Contains(t, rec.Header().Get("Set-Cookie"), "cart="+token)

	rec = do(t, env.router, http.MethodPost, "/carts", `{"skuId":1,"count":1}`, map[string]string{cartHeader: token})
	require.Equal(t, http.StatusCreated, rec.Code)
	token = rec.Header().Get(cartHeader)

	rec = do(t, env.router, http.MethodGet, "/carts", "", map[string]string{cartHeader: token})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"count":3`)
	assert.Contains(t, rec.Body.String(), `"name":"Mug"`)

	rec = do(t, env.router, http.MethodDelete, "/carts?skuId=1", "", map[string]string{cartHeader: token})
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Header().Get(cartHeader))
	assert.Contains(t, rec.Header().Get("Set-Cookie"), "Max-Age=0")
}

func TestAnonymousCart_RejectsTamperedToken(t *testing.T) {
	env := newTestEnv(Options{})

	rec := do(t, env.router, http.MethodGet, "/carts", "", map[string]string{cartHeader: "abc.def.ghi"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCustomerCart(t *testing.T) {
	env := newTestEnv(Options{})
	auth := map[string]string{"Authorization": "Bearer " + testAccessToken}

	rec := do(t, env.router, http.MethodPost, "/carts", `{"skuId":2,"count":4,"selected":false}`, auth)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Empty(t, rec.Header().Get(cartHeader))

	rec = do(t, env.router, http.MethodPut, "/carts", `{"skuId":2,"count":1,"selected":true}`, auth)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.CartLine{ItemID: 2, Quantity: 1, Selected: true}, env.carts.carts[42][2])

	rec = do(t, env.router, http.MethodPut, "/carts/selection", `{"selected":false}`, auth)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, env.carts.carts[42][2].Selected)

	rec = do(t, env.router, http.MethodDelete, "/carts", `{"skuId":2}`, auth)
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, env.carts.carts[42])
}

func TestCart_Validation(t *testing.T) {
	env := newTestEnv(Options{})
	auth := map[string]string{"Authorization": "Bearer " + testAccessToken}

	cases := []string{
		`{"skuId":1,"count":0}`,
		`{"skuId":99,"count":1}`,
		`{"count":1}`,
		`{"skuId":"x"}`,
	}
	for _, body := range cases {
		rec := do(t, env.router, http.MethodPost, "/carts", body, auth)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
	assert.Empty(t, env.carts.carts[42])

	rec := do(t, env.router, http.MethodPut, "/carts/selection", `{}`, auth)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
