package httpserver

import (
	"errors"
	"net/http"

	"storefront/internal/domain"
	cartsvc "storefront/internal/service/cart"
	customersvc "storefront/internal/service/customer"

	"github.com/gin-gonic/gin"
)

type signupRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

type tokenRequest struct {
	Email    string `json:"email" form:"email" binding:"required"`
	Password string `json:"password" form:"password" binding:"required"`
}

type tokenResponse struct {
	AccessToken  string           `json:"access_token"`
	RefreshToken string           `json:"refresh_token"`
	TokenType    string           `json:"token_type"`
	ExpiresIn    int              `json:"expires_in"`
	Customer     *domain.Customer `json:"customer"`
}

func (a *api) signup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	cust, err := a.deps.CustomerSvc.Signup(c.Request.Context(), customersvc.SignupInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		respondError(c, a.logger, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"customer": cust})
}

// login issues tokens and folds any anonymous cart the client carried into
// the customer's cart. A failed merge never fails the login; the anonymous
// cart is dropped either way.
func (a *api) login(c *gin.Context) {
	var req tokenRequest
	if err := c.ShouldBind(&req); err != nil {
		bindError(c, err)
		return
	}
	ctx := c.Request.Context()
	session, err := a.deps.CustomerSvc.Login(ctx, req.Email, req.Password)
	if err != nil {
		respondError(c, a.logger, err)
		return
	}

	if token := a.cartToken(c); token != "" {
		merged, err := a.deps.CartSvc.Merge(ctx, token, session.Customer.ID, session.ID)
		switch {
		case err == nil:
			a.logger.Info().Int64("customer_id", session.Customer.ID).Int("lines", merged).Msg("anonymous cart merged")
		case errors.Is(err, cartsvc.ErrMergeAlreadyApplied):
			a.logger.Warn().Int64("customer_id", session.Customer.ID).Msg("anonymous cart merge repeated")
		default:
			a.logger.Error().Err(err).Int64("customer_id", session.Customer.ID).Msg("anonymous cart merge failed")
		}
		a.clearCartToken(c)
	}

	c.JSON(http.StatusOK, tokenResponse{
		AccessToken:  session.AccessToken,
		RefreshToken: session.RefreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    a.deps.CustomerSvc.AccessTTLSeconds(),
		Customer:     session.Customer,
	})
}

func (a *api) me(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"customer": currentCustomer(c)})
}
