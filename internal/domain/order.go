package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// PaymentMethod is how the customer pays for an order.
type PaymentMethod string

const (
	PaymentCashOnDelivery PaymentMethod = "cash_on_delivery"
	PaymentAlipay         PaymentMethod = "alipay"
)

// Valid reports whether m is a known payment method.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCashOnDelivery, PaymentAlipay:
		return true
	}
	return false
}

// InitialStatus is the status a freshly settled order starts in. Only online
// payment waits for money before fulfillment.
func (m PaymentMethod) InitialStatus() OrderStatus {
	if m == PaymentAlipay {
		return StatusAwaitingPayment
	}
	return StatusAwaitingFulfillment
}

// OrderStatus is the order lifecycle state. Transitions are driven from
// outside the checkout core.
type OrderStatus string

const (
	StatusAwaitingPayment     OrderStatus = "awaiting_payment"
	StatusPaid                OrderStatus = "paid"
	StatusAwaitingFulfillment OrderStatus = "awaiting_fulfillment"
	StatusShipped             OrderStatus = "shipped"
	StatusAwaitingReview      OrderStatus = "awaiting_review"
	StatusFinished            OrderStatus = "finished"
	StatusCancelled           OrderStatus = "cancelled"
)

// Valid reports whether s is a known status.
func (s OrderStatus) Valid() bool {
	switch s {
	case StatusAwaitingPayment, StatusPaid, StatusAwaitingFulfillment, StatusShipped,
		StatusAwaitingReview, StatusFinished, StatusCancelled:
		return true
	}
	return false
}

// Order is the durable record of a checkout. Everything but Status is fixed
// once the order is committed.
type Order struct {
	ID            string          `json:"orderId"`
	CustomerID    int64           `json:"customerId"`
	AddressID     int64           `json:"addressId"`
	PaymentMethod PaymentMethod   `json:"paymentMethod"`
	Status        OrderStatus     `json:"status"`
	TotalQuantity int             `json:"totalCount"`
	TotalAmount   decimal.Decimal `json:"totalAmount"`
	ShippingFee   decimal.Decimal `json:"freight"`
	CreatedAt     time.Time       `json:"createdAt"`
	Lines         []OrderLine     `json:"lines,omitempty"`
}

// OrderLine snapshots the unit price at purchase time.
type OrderLine struct {
	OrderID   string          `json:"orderId"`
	ItemID    int64           `json:"skuId"`
	Quantity  int             `json:"count"`
	UnitPrice decimal.Decimal `json:"price"`
}

// Amount is UnitPrice × Quantity.
func (l OrderLine) Amount() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// NewOrderID derives an order id from the checkout instant and the customer:
// the timestamp at second resolution followed by the customer id padded to
// nine digits. Two checkouts by one customer within the same second collide;
// the orders table rejects the second one.
func NewOrderID(at time.Time, customerID int64) string {
	return at.Format("20060102150405") + fmt.Sprintf("%09d", customerID)
}
