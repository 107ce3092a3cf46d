package domain

import "context"

// PaymentGateway проводит оплату заказа.
type PaymentGateway interface {
	// Charge списывает сумму и возвращает сведения об оплате.
	// Блокирует вызывающего до ответа шлюза или отмены контекста.
	Charge(ctx context.Context, req ChargeRequest) (PaymentInfo, error)
}

// ChargeRequest описывает запрос на оплату.
type ChargeRequest struct {
	OrderID string
	Method  string
	Amount  int64
}

// OrderEventPublisher публикует события заказов во внешние системы.
type OrderEventPublisher interface {
	PublishOrderEvent(ctx context.Context, userID string, event TimelineEvent) error
}

// ChangeNotifier оповещает другие сессии пользователя об изменении его данных.
type ChangeNotifier interface {
	NotifySnapshotChanged(ctx context.Context, userID, originID string) error
}

// TimelineRepository хранит историю статусов заказов.
type TimelineRepository interface {
	Append(event TimelineEvent) error
	List(orderID string) ([]TimelineEvent, error)
}
