package kafka

import (
	"time"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// EventType определяет тип события
type EventType string

const (
	// Order события
	EventTypeOrderPlaced         EventType = "order.placed"
	EventTypeOrderStatusChanged  EventType = "order.status_changed"
	EventTypeOrderPaymentUpdated EventType = "order.payment_updated"
	EventTypeOrderAddressChanged EventType = "order.address_changed"

	// User события
	EventTypeSnapshotChanged EventType = "user.snapshot_changed"
)

// Topics для Kafka
const (
	TopicOrderEvents     = "storefront.order.events"
	TopicUserEvents      = "storefront.user.events"
	TopicDeadLetterQueue = "storefront.dlq"
)

// Заголовки сообщений DLQ
const (
	HeaderRetryCount    = "x-retry-count"
	HeaderOriginalTopic = "x-original-topic"
	HeaderErrorMessage  = "x-error-message"
	HeaderFailedAt      = "x-failed-at"
)

var timelineEventTypes = map[string]EventType{
	domain.TimelineOrderPlaced:    EventTypeOrderPlaced,
	domain.TimelineStatusChanged:  EventTypeOrderStatusChanged,
	domain.TimelinePaymentUpdated: EventTypeOrderPaymentUpdated,
	domain.TimelineAddressChanged: EventTypeOrderAddressChanged,
}

// OrderEvent представляет событие заказа
type OrderEvent struct {
	EventType EventType `json:"event_type"`
	OrderID   string    `json:"order_id"`
	UserID    string    `json:"user_id"`
	From      string    `json:"from,omitempty"`
	To        string    `json:"to"`
	Reason    string    `json:"reason,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// SnapshotChangedEvent сообщает другим экземплярам, что данные пользователя перезаписаны.
// OriginID позволяет отправителю пропустить собственное оповещение.
type SnapshotChangedEvent struct {
	EventType EventType `json:"event_type"`
	UserID    string    `json:"user_id"`
	OriginID  string    `json:"origin_id"`
	Timestamp time.Time `json:"timestamp"`
}

// NewOrderEvent создает событие заказа из записи истории.
func NewOrderEvent(userID string, event domain.TimelineEvent) *OrderEvent {
	eventType, ok := timelineEventTypes[event.Type]
	if !ok {
		eventType = EventType("order." + event.Type)
	}
	ts := event.Occurred
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	return &OrderEvent{
		EventType: eventType,
		OrderID:   event.OrderID,
		UserID:    userID,
		From:      string(event.From),
		To:        string(event.To),
		Reason:    event.Reason,
		Timestamp: ts,
	}
}

// NewSnapshotChangedEvent создает оповещение об изменении данных пользователя.
func NewSnapshotChangedEvent(userID, originID string) *SnapshotChangedEvent {
	return &SnapshotChangedEvent{
		EventType: EventTypeSnapshotChanged,
		UserID:    userID,
		OriginID:  originID,
		Timestamp: time.Now().UTC(),
	}
}

// DeadLetter: сообщение, которое не удалось обработать за отведённые попытки.
type DeadLetter struct {
	OriginalTopic     string    `json:"original_topic"`
	OriginalPartition int32     `json:"original_partition"`
	OriginalOffset    int64     `json:"original_offset"`
	OriginalKey       string    `json:"original_key"`
	OriginalValue     string    `json:"original_value"`
	Error             string    `json:"error_message"`
	RetryCount        int       `json:"retry_count"`
	FailedAt          time.Time `json:"failed_at"`
}
