package domain

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

type OrderStatus string

const (
	OrderStatusCreated   OrderStatus = "created"
	OrderStatusPaid      OrderStatus = "paid"
	OrderStatusShipped   OrderStatus = "shipped"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCancelled OrderStatus = "cancelled"
	OrderStatusRefunded  OrderStatus = "refunded"
)

type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusRefunded PaymentStatus = "refunded"
	PaymentStatusVoided   PaymentStatus = "voided"
)

const PaymentProviderMock = "mock"

var transitions = map[OrderStatus][]OrderStatus{
	OrderStatusCreated:   {OrderStatusPaid, OrderStatusCancelled},
	OrderStatusPaid:      {OrderStatusShipped, OrderStatusCancelled, OrderStatusRefunded},
	OrderStatusShipped:   {OrderStatusDelivered, OrderStatusRefunded},
	OrderStatusDelivered: {OrderStatusRefunded},
	OrderStatusCancelled: nil,
	OrderStatusRefunded:  nil,
}

func ParseOrderStatus(s string) (OrderStatus, error) {
	st := OrderStatus(s)
	if _, ok := transitions[st]; !ok {
		return "", ErrUnknownStatus
	}
	return st, nil
}

func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	return slices.Contains(transitions[s], next)
}

func (s OrderStatus) IsTerminal() bool {
	return len(transitions[s]) == 0
}

type Payment struct {
	Provider string        `json:"provider"`
	Status   PaymentStatus `json:"status"`
}

type OrderItem struct {
	ProductID     string  `json:"productId"`
	TitleSnapshot string  `json:"titleSnapshot"`
	PriceSnapshot float64 `json:"priceSnapshot"`
	Qty           int     `json:"qty"`
}

type Order struct {
	ID             uuid.UUID   `json:"id"`
	UserID         string      `json:"userId"`
	Items          []OrderItem `json:"items"`
	Totals         Totals      `json:"totals"`
	Currency       string      `json:"currency"`
	Status         OrderStatus `json:"status"`
	Payment        Payment     `json:"payment"`
	IdempotencyKey string      `json:"idempotencyKey,omitempty"`
	CancelReason   string      `json:"cancelReason,omitempty"`
	CreatedAt      time.Time   `json:"createdAt"`
	UpdatedAt      time.Time   `json:"updatedAt"`
}

// NewOrder freezes the given cart lines into a fresh order awaiting payment.
func NewOrder(userID, currency, idempotencyKey string, lines []CartItem, now time.Time) *Order {
	items := make([]OrderItem, 0, len(lines))
	for _, l := range lines {
		items = append(items, OrderItem{
			ProductID:     l.ProductID,
			TitleSnapshot: l.TitleSnapshot,
			PriceSnapshot: l.PriceSnapshot,
			Qty:           l.Qty,
		})
	}
	if currency == "" {
		currency = DefaultCurrency
	}
	return &Order{
		ID:             uuid.New(),
		UserID:         userID,
		Items:          items,
		Totals:         ComputeTotals(lines),
		Currency:       currency,
		Status:         OrderStatusCreated,
		Payment:        Payment{Provider: PaymentProviderMock, Status: PaymentStatusPending},
		IdempotencyKey: idempotencyKey,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// TransitionTo moves the order along the status table and keeps the payment
// sub-state in step with it.
func (o *Order) TransitionTo(next OrderStatus, now time.Time) error {
	if !o.Status.CanTransitionTo(next) {
		return ErrInvalidTransition
	}
	switch next {
	case OrderStatusPaid:
		o.Payment.Status = PaymentStatusPaid
	case OrderStatusRefunded:
		o.Payment.Status = PaymentStatusRefunded
	case OrderStatusCancelled:
		if o.Payment.Status == PaymentStatusPending {
			o.Payment.Status = PaymentStatusVoided
		}
	}
	o.Status = next
	o.UpdatedAt = now
	return nil
}

func (o *Order) Clone() *Order {
	c := *o
	c.Items = append([]OrderItem(nil), o.Items...)
	return &c
}
