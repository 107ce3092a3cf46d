package domain

import "time"

// OrderStatus описывает жизненный цикл заказа.
type OrderStatus string

const (
	OrderStatusPlaced            OrderStatus = "PLACED"
	OrderStatusConfirmed         OrderStatus = "CONFIRMED"
	OrderStatusPacked            OrderStatus = "PACKED"
	OrderStatusOutForDelivery    OrderStatus = "OUT_FOR_DELIVERY"
	OrderStatusDelivered         OrderStatus = "DELIVERED"
	OrderStatusCancelled         OrderStatus = "CANCELLED"
	OrderStatusReturned          OrderStatus = "RETURNED"
	OrderStatusExchangeRequested OrderStatus = "EXCHANGE_REQUESTED"
	OrderStatusExchanged         OrderStatus = "EXCHANGED"
)

// Known сообщает, входит ли статус в перечень.
func (s OrderStatus) Known() bool {
	switch s {
	case OrderStatusPlaced, OrderStatusConfirmed, OrderStatusPacked, OrderStatusOutForDelivery,
		OrderStatusDelivered, OrderStatusCancelled, OrderStatusReturned,
		OrderStatusExchangeRequested, OrderStatusExchanged:
		return true
	}
	return false
}

// Pricing фиксирует расчёт стоимости на момент оформления.
type Pricing struct {
	Subtotal      int64  `json:"subtotal"`
	Delivery      int64  `json:"delivery"`
	Discount      int64  `json:"discount"`
	GST           int64  `json:"gst"`
	Total         int64  `json:"total"`
	CouponCode    string `json:"couponCode,omitempty"`
	CouponPercent int    `json:"couponPercent"`
}

// Consistent проверяет, что итог равен subtotal + delivery - discount.
func (p Pricing) Consistent() bool {
	return p.Total == p.Subtotal+p.Delivery-p.Discount
}

// Order: оформленный заказ. Items, Pricing и Coupon после создания не меняются.
type Order struct {
	ID              string           `json:"id"`
	CreatedAt       time.Time        `json:"createdAt"`
	UpdatedAt       time.Time        `json:"updatedAt,omitempty"`
	Status          OrderStatus      `json:"status"`
	Items           []CartLine       `json:"items"`
	Pricing         Pricing          `json:"pricing"`
	Coupon          *string          `json:"coupon"`
	Payment         *PaymentInfo     `json:"payment"`
	AddressSnapshot *AddressSnapshot `json:"addressSnapshot"`
	Notes           string           `json:"notes"`
}

// OrderPatch содержит только изменяемые поля заказа.
type OrderPatch struct {
	Status          *OrderStatus
	Payment         *PaymentInfo
	Notes           *string
	AddressSnapshot *AddressSnapshot
}

// Apply применяет патч к копии заказа и возвращает её.
func (p OrderPatch) Apply(o Order, now time.Time) Order {
	o = o.Clone()
	if p.Status != nil {
		o.Status = *p.Status
	}
	if p.Payment != nil {
		pay := *p.Payment
		o.Payment = &pay
	}
	if p.Notes != nil {
		o.Notes = *p.Notes
	}
	if p.AddressSnapshot != nil {
		snap := *p.AddressSnapshot
		o.AddressSnapshot = &snap
	}
	o.UpdatedAt = now
	return o
}

// Clone возвращает глубокую копию заказа.
func (o Order) Clone() Order {
	o.Items = CloneLines(o.Items)
	if o.Coupon != nil {
		code := *o.Coupon
		o.Coupon = &code
	}
	if o.Payment != nil {
		pay := *o.Payment
		if pay.GatewayRef != nil {
			ref := *pay.GatewayRef
			pay.GatewayRef = &ref
		}
		o.Payment = &pay
	}
	if o.AddressSnapshot != nil {
		snap := *o.AddressSnapshot
		o.AddressSnapshot = &snap
	}
	return o
}

// CouponCode возвращает код купона заказа или пустую строку.
func (o Order) CouponCode() string {
	if o.Coupon == nil {
		return ""
	}
	return *o.Coupon
}

// Paid сообщает, оплачен ли заказ.
func (o Order) Paid() bool {
	return o.Payment != nil && o.Payment.Status == PaymentStatusPaid
}

// NormalizeOrder заполняет отсутствующие поля значениями по умолчанию.
// Применяется при чтении сохранённых данных.
func NormalizeOrder(o Order, now time.Time, newID func() string) Order {
	if o.ID == "" && newID != nil {
		o.ID = newID()
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = now
	}
	if o.Status == "" {
		o.Status = OrderStatusPlaced
	}
	if o.Items == nil {
		o.Items = []CartLine{}
	}
	if o.Coupon == nil && o.Pricing.CouponCode != "" {
		code := o.Pricing.CouponCode
		o.Coupon = &code
	}
	return o
}

// ValidateInvariants проверяет базовые инварианты заказа и возвращает список замечаний.
func (o *Order) ValidateInvariants() []error {
	var errs []error

	if len(o.Items) == 0 {
		errs = append(errs, ErrItemsRequired)
	}
	for _, item := range o.Items {
		if item.Quantity <= 0 {
			errs = append(errs, ErrQuantityInvalid)
			break
		}
	}
	if !o.Pricing.Consistent() {
		errs = append(errs, ErrPricingMismatch)
	}
	coupon := CouponState{Code: o.Pricing.CouponCode, Percent: o.Pricing.CouponPercent}
	if !coupon.Valid() || o.CouponCode() != o.Pricing.CouponCode {
		errs = append(errs, ErrCouponInconsistent)
	}

	return errs
}
