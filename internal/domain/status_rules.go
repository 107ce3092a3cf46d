package domain

// Permissions описывает действия, доступные пользователю в текущем статусе заказа.
type Permissions struct {
	CanCancel       bool `json:"canCancel"`
	CanRefund       bool `json:"canRefund"`
	CanExchange     bool `json:"canExchange"`
	CanReview       bool `json:"canReview"`
	CanInvoice      bool `json:"canInvoice"`
	AddressEditable bool `json:"addressEditable"`
}

var statusRules = map[OrderStatus]Permissions{
	OrderStatusPlaced:            {CanCancel: true, AddressEditable: true},
	OrderStatusConfirmed:         {CanCancel: true, AddressEditable: true},
	OrderStatusPacked:            {CanCancel: true, AddressEditable: true},
	OrderStatusOutForDelivery:    {},
	OrderStatusDelivered:         {CanRefund: true, CanExchange: true, CanReview: true, CanInvoice: true},
	OrderStatusCancelled:         {},
	OrderStatusReturned:          {},
	OrderStatusExchangeRequested: {},
	OrderStatusExchanged:         {CanReview: true, CanInvoice: true},
}

// RulesFor возвращает строку таблицы разрешений. Неизвестные статусы получают правила PLACED.
func RulesFor(status OrderStatus) Permissions {
	if rules, ok := statusRules[status]; ok {
		return rules
	}
	return statusRules[OrderStatusPlaced]
}

// IsTerminal сообщает, что пользовательские действия со статусом больше невозможны.
func IsTerminal(status OrderStatus) bool {
	switch status {
	case OrderStatusCancelled, OrderStatusReturned, OrderStatusExchangeRequested, OrderStatusExchanged:
		return true
	}
	return false
}

// IsActive сообщает, что заказ ещё в пути к покупателю.
func IsActive(status OrderStatus) bool {
	switch status {
	case OrderStatusPlaced, OrderStatusConfirmed, OrderStatusPacked, OrderStatusOutForDelivery:
		return true
	}
	return false
}

// InvoiceVisible: счёт доступен по таблице правил либо после оплаты.
func InvoiceVisible(o Order) bool {
	return RulesFor(o.Status).CanInvoice || o.Paid()
}

// TrackingSteps: шаги, отображаемые на шкале доставки.
var TrackingSteps = []OrderStatus{
	OrderStatusPlaced,
	OrderStatusPacked,
	OrderStatusOutForDelivery,
	OrderStatusDelivered,
}

// fulfilmentTransitions задаёт переходы, которые выполняет магазин.
// Пользовательские действия (возврат, обмен, оплата) проверяются по таблице разрешений.
var fulfilmentTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPlaced:            {OrderStatusPacked, OrderStatusCancelled},
	OrderStatusConfirmed:         {OrderStatusPacked, OrderStatusCancelled},
	OrderStatusPacked:            {OrderStatusOutForDelivery, OrderStatusCancelled},
	OrderStatusOutForDelivery:    {OrderStatusDelivered},
	OrderStatusExchangeRequested: {OrderStatusExchanged},
}

// CanTransition проверяет ребро графа доставки.
func CanTransition(from, to OrderStatus) bool {
	for _, next := range fulfilmentTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
