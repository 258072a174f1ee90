package httpserver

import (
	"context"
	"errors"
	"time"

	"storefront/internal/domain"
	cartsvc "storefront/internal/service/cart"
	checkoutsvc "storefront/internal/service/checkout"
	customersvc "storefront/internal/service/customer"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

type customerService interface {
	Signup(ctx context.Context, in customersvc.SignupInput) (*domain.Customer, error)
	Login(ctx context.Context, email, password string) (*customersvc.Session, error)
	LookupByToken(ctx context.Context, token string) (*domain.Customer, error)
	AccessTTLSeconds() int
}

type cartService interface {
	ForCustomer(customerID int64) cartsvc.Cart
	ForAnonymous(token string) (cartsvc.Cart, error)
	Add(ctx context.Context, cart cartsvc.Cart, in cartsvc.LineInput) error
	Update(ctx context.Context, cart cartsvc.Cart, in cartsvc.LineInput) error
	Remove(ctx context.Context, cart cartsvc.Cart, itemID int64) error
	SelectAll(ctx context.Context, cart cartsvc.Cart, selected bool) error
	List(ctx context.Context, cart cartsvc.Cart) ([]domain.CartItem, error)
	Merge(ctx context.Context, token string, customerID int64, loginEvent string) (int, error)
}

type checkoutService interface {
	Preview(ctx context.Context, customerID int64) (*checkoutsvc.Settlement, error)
	Settle(ctx context.Context, customerID int64, in checkoutsvc.SettleInput) (*domain.Order, error)
}

type orderService interface {
	Get(ctx context.Context, customerID int64, orderID string) (*domain.Order, error)
	List(ctx context.Context, customerID int64, limit int) ([]domain.Order, error)
	SetStatus(ctx context.Context, orderID string, status domain.OrderStatus) (*domain.Order, error)
	RecordPayment(ctx context.Context, orderID, tradeID string) (*domain.Order, error)
}

type itemReader interface {
	GetByID(ctx context.Context, id int64) (*domain.Item, error)
}

// Deps holds the services the routes call.
type Deps struct {
	CustomerSvc customerService
	CartSvc     cartService
	CheckoutSvc checkoutService
	OrderSvc    orderService
	Items       itemReader
	Probes      map[string]Probe
}

// Options tunes the HTTP surface.
type Options struct {
	CartCookieName   string
	InternalAPIToken string

	// InternalRoutesOpen serves the collaborator routes without a token.
	// Only meant for local development.
	InternalRoutesOpen bool
	CORSOrigins        []string
	RateLimitRPS       float64
	RateLimitBurst     int
}

type api struct {
	deps   Deps
	opts   Options
	logger zerolog.Logger
}

// buildRouter wires routes for the API.
func buildRouter(logger zerolog.Logger, deps Deps, opts Options) (*gin.Engine, error) {
	if deps.CustomerSvc == nil || deps.CartSvc == nil || deps.CheckoutSvc == nil || deps.OrderSvc == nil || deps.Items == nil {
		return nil, errors.New("httpserver: missing dependencies")
	}
	if opts.CartCookieName == "" {
		opts.CartCookieName = "cart"
	}

	router := gin.New()
	router.Use(requestLogger(logger), gin.Recovery(), corsMiddleware(opts.CORSOrigins))
	if opts.RateLimitRPS > 0 {
		router.Use(newIPRateLimiter(opts.RateLimitRPS, opts.RateLimitBurst, 10*time.Minute).middleware())
	}

	a := &api{deps: deps, opts: opts, logger: logger}

	router.GET("/healthz", healthHandler)
	router.GET("/readyz", readyHandler(deps.Probes))

	router.POST("/customers", a.signup)
	router.POST("/customers/token", a.login)
	router.GET("/items/:itemId", a.getItem)

	authed := router.Group("/", a.authenticate)
	authed.GET("/me", a.requireCustomer, a.me)

	carts := authed.Group("/carts")
	carts.POST("", a.addToCart)
	carts.GET("", a.listCart)
	carts.PUT("", a.updateCart)
	carts.DELETE("", a.removeFromCart)
	carts.PUT("/selection", a.selectAll)

	orders := authed.Group("/orders")
	orders.GET("/settlement", a.requireCustomer, a.settlement)
	orders.POST("", a.requireCustomer, a.settle)
	orders.GET("", a.requireCustomer, a.listOrders)
	orders.GET("/:orderId", a.requireCustomer, a.getOrder)

	switch {
	case opts.InternalAPIToken != "":
		registerInternal(router.Group("/", a.requireInternalToken), a)
	case opts.InternalRoutesOpen:
		logger.Warn().Msg("internal routes served without a token")
		registerInternal(router.Group("/"), a)
	default:
		logger.Warn().Msg("INTERNAL_API_TOKEN not set, status and payment routes disabled")
	}

	return router, nil
}

func registerInternal(g *gin.RouterGroup, a *api) {
	g.PUT("/orders/:orderId/status", a.setOrderStatus)
	g.POST("/payments", a.recordPayment)
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", cartHeader},
		ExposeHeaders: []string{cartHeader},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
		cfg.AllowCredentials = true
	}
	return cors.New(cfg)
}
