package domain

import "time"

// TimelineEvent описывает событие в истории заказа.
type TimelineEvent struct {
	OrderID  string      `json:"orderId"`
	Type     string      `json:"type"`
	From     OrderStatus `json:"from,omitempty"`
	To       OrderStatus `json:"to"`
	Reason   string      `json:"reason,omitempty"`
	Occurred time.Time   `json:"occurred"`
}

// Типы событий истории.
const (
	TimelineOrderPlaced    = "OrderPlaced"
	TimelineStatusChanged  = "OrderStatusChanged"
	TimelinePaymentUpdated = "OrderPaymentUpdated"
	TimelineAddressChanged = "OrderAddressChanged"
)
