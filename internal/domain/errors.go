package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrOrderNotFound возвращается, если заказ не найден у пользователя.
	ErrOrderNotFound = errors.New("order not found")
	// ErrProductNotFound возвращается, если товара нет в каталоге.
	ErrProductNotFound = errors.New("product not found")
	// ErrAddressNotFound возвращается, если адрес отсутствует в профиле.
	ErrAddressNotFound = errors.New("address not found")
	// ErrSnapshotNotFound возвращается, если у пользователя ещё нет сохранённых данных.
	ErrSnapshotNotFound = errors.New("user snapshot not found")
	// ErrUserIDRequired возвращается при пустом идентификаторе пользователя.
	ErrUserIDRequired = errors.New("user_id is required")
	// ErrOrderIDRequired: событие истории без заказа.
	ErrOrderIDRequired = errors.New("order_id is required")
	// ErrQuantityInvalid: количество должно быть положительным.
	ErrQuantityInvalid = errors.New("quantity must be greater than zero")
	// ErrItemsRequired: заказ должен содержать хотя бы одну позицию.
	ErrItemsRequired = errors.New("order must contain at least one item")
	// ErrPricingMismatch: итог заказа не сходится с составляющими.
	ErrPricingMismatch = errors.New("pricing total does not match components")
	// ErrCouponInconsistent: код и процент купона заданы несогласованно.
	ErrCouponInconsistent = errors.New("coupon code and percent are inconsistent")
	// ErrPaymentMethodRequired возвращается, если не указан способ оплаты.
	ErrPaymentMethodRequired = errors.New("payment method is required")
	// ErrPaymentFailed: платёжный шлюз не подтвердил оплату.
	ErrPaymentFailed = errors.New("payment failed")
	// ErrPersistence: не удалось сохранить данные пользователя.
	ErrPersistence = errors.New("persistence failed")
	// ErrRejected означает, что операция запрещена текущим состоянием.
	ErrRejected = errors.New("operation rejected")
)

// RejectionReason содержит машиночитаемую причину отказа.
type RejectionReason string

const (
	ReasonActionNotAllowed   RejectionReason = "action_not_allowed"
	ReasonCancelNotAllowed   RejectionReason = "cancel_not_allowed"
	ReasonTerminalStatus     RejectionReason = "terminal_status"
	ReasonAlreadyPaid        RejectionReason = "already_paid"
	ReasonAddressLocked      RejectionReason = "address_locked"
	ReasonCartEmpty          RejectionReason = "cart_empty"
	ReasonAddressRequired    RejectionReason = "address_required"
	ReasonNoDefaultAddress   RejectionReason = "no_default_address"
	ReasonInvalidTransition  RejectionReason = "invalid_transition"
	ReasonCouponNotEligible  RejectionReason = "coupon_not_eligible"
	ReasonAddressNotComplete RejectionReason = "address_incomplete"
)

// Сообщения, которые показываются пользователю при отказе.
const (
	MessageActionNotAllowed = "Action not allowed for the current order status."
	MessageCancelNotAllowed = "Cancellation not allowed at this stage."
	MessageRefundRequested  = "Refund requested — we will process it in 3–5 business days."
	MessageExchangeRequest  = "Exchange requested — we will contact you for pickup."
	MessageCancelled        = "Order cancelled."
	MessageCartEmpty        = "Your cart is empty."
	MessageAddressRequired  = "Please add a delivery address."
	MessageAlreadyPaid      = "This order is already paid."
	MessageAddressLocked    = "Address can no longer be changed for this order."
	MessageNoDefaultAddress = "Please save a default address first."
)

// Rejection описывает запрещённую операцию. Состояние при этом не изменяется.
type Rejection struct {
	Reason  RejectionReason
	Message string
}

// Reject создаёт отказ с причиной и пользовательским сообщением.
func Reject(reason RejectionReason, message string) *Rejection {
	return &Rejection{Reason: reason, Message: message}
}

func (r *Rejection) Error() string {
	return fmt.Sprintf("%s: %s", ErrRejected, r.Reason)
}

// Unwrap позволяет сравнивать отказ через errors.Is(err, ErrRejected).
func (r *Rejection) Unwrap() error {
	return ErrRejected
}

// AsRejection извлекает Rejection из цепочки ошибок.
func AsRejection(err error) (*Rejection, bool) {
	var rejection *Rejection
	if errors.As(err, &rejection) {
		return rejection, true
	}
	return nil, false
}

// IsRejection проверяет, является ли ошибка отказом по бизнес-правилу.
func IsRejection(err error) bool {
	return errors.Is(err, ErrRejected)
}

// IsNotFound проверяет ошибки отсутствия сущностей.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrOrderNotFound) ||
		errors.Is(err, ErrProductNotFound) ||
		errors.Is(err, ErrAddressNotFound) ||
		errors.Is(err, ErrSnapshotNotFound)
}
