// Package pricing содержит чистые функции расчёта стоимости корзины и правил купонов.
package pricing

import (
	"sort"
	"strings"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

const (
	// DefaultDeliveryFee: фиксированная стоимость доставки для непустой корзины.
	DefaultDeliveryFee int64 = 40
	// GSTPercent: ставка налога, которая показывается в заказе.
	GSTPercent int64 = 5
)

// Quote: результат расчёта корзины.
type Quote struct {
	Subtotal int64              `json:"subtotal"`
	Delivery int64              `json:"delivery"`
	Discount int64              `json:"discount"`
	Total    int64              `json:"total"`
	Coupon   domain.CouponState `json:"coupon"`
}

// Subtotal суммирует price * quantity по всем позициям.
func Subtotal(lines []domain.CartLine) int64 {
	var sum int64
	for _, line := range lines {
		sum += line.Amount()
	}
	return sum
}

// Delivery возвращает fee для непустой корзины и 0 для пустой.
func Delivery(lines []domain.CartLine, fee int64) int64 {
	if len(lines) == 0 {
		return 0
	}
	return fee
}

// Discount округляет subtotal * percent / 100 до ближайшего целого, половины вверх.
func Discount(subtotal int64, percent int) int64 {
	if percent <= 0 || subtotal <= 0 {
		return 0
	}
	return roundPercent(subtotal, int64(percent))
}

// GST считает налог с subtotal по той же схеме округления.
func GST(subtotal int64) int64 {
	if subtotal <= 0 {
		return 0
	}
	return roundPercent(subtotal, GSTPercent)
}

// Total = subtotal + delivery - discount.
func Total(subtotal, delivery, discount int64) int64 {
	return subtotal + delivery - discount
}

// Calculate собирает полный расчёт корзины.
func Calculate(lines []domain.CartLine, coupon domain.CouponState, fee int64) Quote {
	subtotal := Subtotal(lines)
	delivery := Delivery(lines, fee)
	discount := Discount(subtotal, coupon.Percent)
	return Quote{
		Subtotal: subtotal,
		Delivery: delivery,
		Discount: discount,
		Total:    Total(subtotal, delivery, discount),
		Coupon:   coupon,
	}
}

// Pricing фиксирует расчёт для заказа вместе с налогом.
func (q Quote) Pricing() domain.Pricing {
	return domain.Pricing{
		Subtotal:      q.Subtotal,
		Delivery:      q.Delivery,
		Discount:      q.Discount,
		GST:           GST(q.Subtotal),
		Total:         q.Total,
		CouponCode:    q.Coupon.Code,
		CouponPercent: q.Coupon.Percent,
	}
}

func roundPercent(amount, percent int64) int64 {
	return (amount*percent + 50) / 100
}

// BestsellerSet возвращает id первых n товаров по убыванию orders.
// Сортировка устойчивая: при равенстве сохраняется порядок каталога.
func BestsellerSet(products []domain.Product, n int) []string {
	if n <= 0 {
		return []string{}
	}
	ranked := make([]domain.Product, len(products))
	copy(ranked, products)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Orders > ranked[j].Orders
	})
	if n > len(ranked) {
		n = len(ranked)
	}
	ids := make([]string, 0, n)
	for _, p := range ranked[:n] {
		ids = append(ids, p.ID)
	}
	return ids
}

// HasCombo сообщает, что в корзине есть каждый бестселлер с количеством >= 1.
// Пустой набор бестселлеров комбо не образует.
func HasCombo(lines []domain.CartLine, bestsellers []string) bool {
	if len(bestsellers) == 0 {
		return false
	}
	qty := make(map[string]int, len(lines))
	for _, line := range lines {
		qty[line.ID] += line.Quantity
	}
	for _, id := range bestsellers {
		if qty[id] < 1 {
			return false
		}
	}
	return true
}

// NormalizeCode обрезает пробелы и переводит код купона в верхний регистр.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
