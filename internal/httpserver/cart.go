package httpserver

import (
	"net/http"
	"strconv"

	"storefront/internal/domain"
	cartsvc "storefront/internal/service/cart"

	"github.com/gin-gonic/gin"
)

const (
	cartHeader    = "X-Cart-Token"
	cartCookieTTL = 14 * 24 * 60 * 60
)

type selectionRequest struct {
	Selected *bool `json:"selected" binding:"required"`
}

type removeRequest struct {
	ItemID int64 `json:"skuId"`
}

// cartToken reads the anonymous cart blob from the header or the cookie.
func (a *api) cartToken(c *gin.Context) string {
	if v := c.GetHeader(cartHeader); v != "" {
		return v
	}
	v, err := c.Cookie(a.opts.CartCookieName)
	if err != nil {
		return ""
	}
	return v
}

func (a *api) clearCartToken(c *gin.Context) {
	c.SetCookie(a.opts.CartCookieName, "", -1, "/", "", false, true)
	c.Header(cartHeader, "")
}

func (a *api) resolveCart(c *gin.Context) (cartsvc.Cart, bool) {
	if cust := currentCustomer(c); cust != nil {
		return a.deps.CartSvc.ForCustomer(cust.ID), true
	}
	cart, err := a.deps.CartSvc.ForAnonymous(a.cartToken(c))
	if err != nil {
		respondError(c, a.logger, err)
		return nil, false
	}
	return cart, true
}

// writeCartToken hands the updated anonymous cart back to the client. An
// emptied cart drops the cookie instead of storing an empty blob.
func (a *api) writeCartToken(c *gin.Context, cart cartsvc.Cart) bool {
	if !cart.Anonymous() {
		return true
	}
	token, err := cart.Token()
	if err != nil {
		respondError(c, a.logger, err)
		return false
	}
	if token == "" {
		a.clearCartToken(c)
		return true
	}
	c.SetCookie(a.opts.CartCookieName, token, cartCookieTTL, "/", "", false, true)
	c.Header(cartHeader, token)
	return true
}

func (a *api) addToCart(c *gin.Context) {
	var req cartsvc.LineInput
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	cart, ok := a.resolveCart(c)
	if !ok {
		return
	}
	if err := a.deps.CartSvc.Add(c.Request.Context(), cart, req); err != nil {
		respondError(c, a.logger, err)
		return
	}
	if !a.writeCartToken(c, cart) {
		return
	}
	selected := req.Selected == nil || *req.Selected
	c.JSON(http.StatusCreated, gin.H{"skuId": req.ItemID, "count": req.Quantity, "selected": selected})
}

func (a *api) listCart(c *gin.Context) {
	cart, ok := a.resolveCart(c)
	if !ok {
		return
	}
	items, err := a.deps.CartSvc.List(c.Request.Context(), cart)
	if err != nil {
		respondError(c, a.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cart": items})
}

func (a *api) updateCart(c *gin.Context) {
	var req cartsvc.LineInput
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	cart, ok := a.resolveCart(c)
	if !ok {
		return
	}
	if err := a.deps.CartSvc.Update(c.Request.Context(), cart, req); err != nil {
		respondError(c, a.logger, err)
		return
	}
	if !a.writeCartToken(c, cart) {
		return
	}
	selected := req.Selected == nil || *req.Selected
	c.JSON(http.StatusOK, gin.H{"skuId": req.ItemID, "count": req.Quantity, "selected": selected})
}

func (a *api) removeFromCart(c *gin.Context) {
	itemID, err := removeTarget(c)
	if err != nil {
		bindError(c, err)
		return
	}
	cart, ok := a.resolveCart(c)
	if !ok {
		return
	}
	if err := a.deps.CartSvc.Remove(c.Request.Context(), cart, itemID); err != nil {
		respondError(c, a.logger, err)
		return
	}
	if !a.writeCartToken(c, cart) {
		return
	}
	c.Status(http.StatusNoContent)
}

func (a *api) selectAll(c *gin.Context) {
	var req selectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	cart, ok := a.resolveCart(c)
	if !ok {
		return
	}
	if err := a.deps.CartSvc.SelectAll(c.Request.Context(), cart, *req.Selected); err != nil {
		respondError(c, a.logger, err)
		return
	}
	if !a.writeCartToken(c, cart) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"selected": *req.Selected})
}

// removeTarget accepts the item id as ?skuId= or in a JSON body.
func removeTarget(c *gin.Context) (int64, error) {
	if raw := c.Query("skuId"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return 0, domain.NewValidationError("skuId", "must be an integer")
		}
		return id, nil
	}
	var req removeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return 0, err
	}
	return req.ItemID, nil
}
