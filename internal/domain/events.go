package domain

import "time"

const (
	EventOrderCreated       = "order.created"
	EventOrderStatusChanged = "order.status_changed"
)

// OrderEvent is the payload written to the outbox next to every order write.
type OrderEvent struct {
	Type       string        `json:"type"`
	OrderID    string        `json:"orderId"`
	UserID     string        `json:"userId"`
	Status     OrderStatus   `json:"status"`
	Payment    PaymentStatus `json:"paymentStatus"`
	GrandTotal float64       `json:"grandTotal"`
	Currency   string        `json:"currency"`
	Items      []OrderItem   `json:"items,omitempty"`
	Reason     string        `json:"reason,omitempty"`
	OccurredAt time.Time     `json:"occurredAt"`
}

func NewOrderEvent(eventType string, o *Order) OrderEvent {
	ev := OrderEvent{
		Type:       eventType,
		OrderID:    o.ID.String(),
		UserID:     o.UserID,
		Status:     o.Status,
		Payment:    o.Payment.Status,
		GrandTotal: o.Totals.GrandTotal,
		Currency:   o.Currency,
		Reason:     o.CancelReason,
		OccurredAt: o.UpdatedAt,
	}
	if eventType == EventOrderCreated {
		ev.Items = o.Items
	}
	return ev
}
