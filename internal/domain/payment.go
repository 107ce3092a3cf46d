package domain

import "strings"

// PaymentStatus описывает состояние оплаты заказа.
type PaymentStatus string

const (
	PaymentStatusPaid            PaymentStatus = "PAID"
	PaymentStatusPending         PaymentStatus = "PENDING"
	PaymentStatusFailed          PaymentStatus = "FAILED"
	PaymentStatusRefundRequested PaymentStatus = "REFUND_REQUESTED"
)

// PaymentMethodCOD: оплата при получении.
const PaymentMethodCOD = "cod"

// PaymentInfo хранит сведения об оплате заказа.
type PaymentInfo struct {
	Method     string        `json:"method"`
	Status     PaymentStatus `json:"status"`
	GatewayRef *string       `json:"gatewayRef"`
}

// IsCashOnDelivery проверяет, что способ оплаты не требует обращения к шлюзу.
func IsCashOnDelivery(method string) bool {
	return strings.EqualFold(strings.TrimSpace(method), PaymentMethodCOD)
}

// NormalizePaymentMethod приводит способ оплаты к нижнему регистру.
func NormalizePaymentMethod(method string) string {
	return strings.ToLower(strings.TrimSpace(method))
}
