package httpserver

import (
	"errors"
	"net/http"

	"storefront/internal/domain"
	customersvc "storefront/internal/service/customer"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

func errorBody(code, message string) gin.H {
	return gin.H{"error": code, "message": message}
}

// respondError maps service errors onto status codes in one place.
func respondError(c *gin.Context, logger zerolog.Logger, err error) {
	var ve *domain.ValidationError
	switch {
	case errors.As(err, &ve):
		body := errorBody("validation", ve.Error())
		if ve.Field != "" {
			body["field"] = ve.Field
		}
		c.JSON(http.StatusBadRequest, body)
	case errors.Is(err, customersvc.ErrInvalidCredentials), errors.Is(err, customersvc.ErrInvalidToken):
		c.JSON(http.StatusUnauthorized, errorBody("unauthorized", err.Error()))
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, errorBody("not_found", err.Error()))
	case errors.Is(err, domain.ErrInsufficientStock):
		c.JSON(http.StatusConflict, errorBody("insufficient_stock", err.Error()))
	case errors.Is(err, domain.ErrEmptyCart):
		c.JSON(http.StatusBadRequest, errorBody("empty_cart", err.Error()))
	case errors.Is(err, domain.ErrConcurrencyRetryExhausted):
		c.Header("Retry-After", "1")
		c.JSON(http.StatusServiceUnavailable, errorBody("retry", err.Error()))
	case errors.Is(err, domain.ErrAlreadyExists):
		c.JSON(http.StatusConflict, errorBody("conflict", err.Error()))
	default:
		logger.Error().Err(err).Str("method", c.Request.Method).Str("path", c.FullPath()).Msg("request failed")
		c.JSON(http.StatusInternalServerError, errorBody("internal", "internal error"))
	}
}

func bindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, errorBody("validation", "invalid body: "+err.Error()))
}
