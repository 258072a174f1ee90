package httpserver

import (
	"context"
	"sync"
	"time"

	"storefront/internal/domain"
	cartrepo "storefront/internal/repository/cart"
	cartsvc "storefront/internal/service/cart"
	checkoutsvc "storefront/internal/service/checkout"
	customersvc "storefront/internal/service/customer"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const testAccessToken = "good-token"

type stubCustomerSvc struct {
	customer *domain.Customer
	signErr  error
	loginErr error
}

func (s *stubCustomerSvc) Signup(_ context.Context, in customersvc.SignupInput) (*domain.Customer, error) {
	if s.signErr != nil {
		return nil, s.signErr
	}
	return &domain.Customer{ID: 7, Email: in.Email}, nil
}

func (s *stubCustomerSvc) Login(_ context.Context, _, _ string) (*customersvc.Session, error) {
	if s.loginErr != nil {
		return nil, s.loginErr
	}
	return &customersvc.Session{ID: "login-1", Customer: s.customer, AccessToken: testAccessToken, RefreshToken: "refresh"}, nil
}

func (s *stubCustomerSvc) LookupByToken(_ context.Context, token string) (*domain.Customer, error) {
	if token != testAccessToken || s.customer == nil {
		return nil, customersvc.ErrInvalidToken
	}
	return s.customer, nil
}

func (s *stubCustomerSvc) AccessTTLSeconds() int { return 3600 }

type memoryCartRepo struct {
	mu     sync.Mutex
	carts  map[int64]domain.CartLines
	merged []string
}

func newMemoryCartRepo() *memoryCartRepo {
	return &memoryCartRepo{carts: make(map[int64]domain.CartLines)}
}

func (r *memoryCartRepo) cart(id int64) domain.CartLines {
	if r.carts[id] == nil {
		r.carts[id] = make(domain.CartLines)
	}
	return r.carts[id]
}

func (r *memoryCartRepo) Lines(_ context.Context, id int64) (domain.CartLines, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(domain.CartLines)
	for k, v := range r.carts[id] {
		out[k] = v
	}
	return out, nil
}

func (r *memoryCartRepo) Add(_ context.Context, id, itemID int64, qty int, selected bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	l := r.cart(id)[itemID]
	l.ItemID = itemID
	l.Quantity += qty
	l.Selected = l.Selected || selected
	r.cart(id)[itemID] = l
	return nil
}

func (r *memoryCartRepo) Set(_ context.Context, id, itemID int64, qty int, selected bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cart(id)[itemID] = domain.CartLine{ItemID: itemID, Quantity: qty, Selected: selected}
	return nil
}

func (r *memoryCartRepo) Remove(_ context.Context, id int64, itemIDs ...int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, itemID := range itemIDs {
		delete(r.cart(id), itemID)
	}
	return nil
}

func (r *memoryCartRepo) SetAllSelected(_ context.Context, id int64, selected bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for k, l := range r.cart(id) {
		l.Selected = selected
		r.cart(id)[k] = l
	}
	return nil
}

func (r *memoryCartRepo) Merge(_ context.Context, id int64, lines domain.CartLines) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for k, in := range lines {
		l := r.cart(id)[k]
		l.ItemID = k
		l.Quantity = in.Quantity
		l.Selected = l.Selected || in.Selected
		r.cart(id)[k] = l
	}
	return nil
}

func (r *memoryCartRepo) ClaimMerge(_ context.Context, event string, _ time.Duration) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.merged {
		if e == event {
			return false, nil
		}
	}
	r.merged = append(r.merged, event)
	return true, nil
}

type stubItems map[int64]domain.Item

func (s stubItems) GetByID(_ context.Context, id int64) (*domain.Item, error) {
	it, ok := s[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &it, nil
}

func (s stubItems) ListByIDs(_ context.Context, ids []int64) ([]domain.Item, error) {
	var out []domain.Item
	for _, id := range ids {
		if it, ok := s[id]; ok {
			out = append(out, it)
		}
	}
	return out, nil
}

type stubCheckout struct {
	order    *domain.Order
	err      error
	lastIn   checkoutsvc.SettleInput
	lastCust int64
}

func (s *stubCheckout) Preview(_ context.Context, customerID int64) (*checkoutsvc.Settlement, error) {
	s.lastCust = customerID
	return &checkoutsvc.Settlement{Items: []domain.CartItem{}, ShippingFee: decimal.NewFromInt(10), TotalAmount: decimal.NewFromInt(10)}, s.err
}

func (s *stubCheckout) Settle(_ context.Context, customerID int64, in checkoutsvc.SettleInput) (*domain.Order, error) {
	s.lastCust = customerID
	s.lastIn = in
	return s.order, s.err
}

type stubOrders struct {
	order *domain.Order
	err   error
}

func (s *stubOrders) Get(_ context.Context, _ int64, _ string) (*domain.Order, error) {
	return s.order, s.err
}

func (s *stubOrders) List(_ context.Context, _ int64, _ int) ([]domain.Order, error) {
	if s.order == nil {
		return []domain.Order{}, s.err
	}
	return []domain.Order{*s.order}, s.err
}

func (s *stubOrders) SetStatus(_ context.Context, _ string, status domain.OrderStatus) (*domain.Order, error) {
	if s.err != nil {
		return nil, s.err
	}
	o := *s.order
	o.Status = status
	return &o, nil
}

func (s *stubOrders) RecordPayment(_ context.Context, _, _ string) (*domain.Order, error) {
	if s.err != nil {
		return nil, s.err
	}
	o := *s.order
	o.Status = domain.StatusAwaitingFulfillment
	return &o, nil
}

type testEnv struct {
	router    *gin.Engine
	customers *stubCustomerSvc
	carts     *memoryCartRepo
	checkout  *stubCheckout
	orders    *stubOrders
}

func newTestEnv(opts Options) *testEnv {
	gin.SetMode(gin.TestMode)
	items := stubItems{
		1: {ID: 1, Name: "Mug", Price: decimal.RequireFromString("12.50"), Stock: 3},
		2: {ID: 2, Name: "Plate", Price: decimal.RequireFromString("4.00"), Stock: 8},
	}
	env := &testEnv{
		customers: &stubCustomerSvc{customer: &domain.Customer{ID: 42, Email: "user@example.com"}},
		carts:     newMemoryCartRepo(),
		checkout:  &stubCheckout{},
		orders:    &stubOrders{order: &domain.Order{ID: "o-1", CustomerID: 42, Status: domain.StatusAwaitingPayment}},
	}
	router, err := buildRouter(zerolog.Nop(), Deps{
		CustomerSvc: env.customers,
		CartSvc:     cartsvc.New(env.carts, items, cartrepo.NewTokenCodec("test-secret")),
		CheckoutSvc: env.checkout,
		OrderSvc:    env.orders,
		Items:       items,
		Probes:      map[string]Probe{"db": func(context.Context) error { return nil }},
	}, opts)
	if err != nil {
		panic(err)
	}
	env.router = router
	return env
}
