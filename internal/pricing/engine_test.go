package pricing

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

func line(id string, price int64, qty int) domain.CartLine {
	return domain.CartLine{ID: id, Name: id, Price: price, Weight: "300gms", Quantity: qty}
}

func TestCalculate(t *testing.T) {
	tests := []struct {
		name   string
		lines  []domain.CartLine
		coupon domain.CouponState
		want   Quote
	}{
		{
			name: "empty cart has no delivery",
			want: Quote{},
		},
		{
			name:  "single line",
			lines: []domain.CartLine{line("mango", 249, 2)},
			want:  Quote{Subtotal: 498, Delivery: 40, Total: 538},
		},
		{
			name: "combo with coupon",
			lines: []domain.CartLine{
				line("chicken", 599, 1),
				line("putharekulu", 299, 1),
				line("mango", 249, 1),
			},
			coupon: domain.CouponState{Code: BestsellersCode, Percent: 15},
			want: Quote{
				Subtotal: 1147,
				Delivery: 40,
				Discount: 172,
				Total:    1015,
				Coupon:   domain.CouponState{Code: BestsellersCode, Percent: 15},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, Calculate(tt.lines, tt.coupon, DefaultDeliveryFee))
		})
	}
}

func TestDiscountRoundsHalfUp(t *testing.T) {
	// 10 * 15 / 100 = 1.5 -> 2
	require.EqualValues(t, 2, Discount(10, 15))
	// 1147 * 0.15 = 172.05 -> 172
	require.EqualValues(t, 172, Discount(1147, 15))
	require.EqualValues(t, 0, Discount(1000, 0))
}

func TestGST(t *testing.T) {
	require.EqualValues(t, 57, GST(1147))
	require.EqualValues(t, 25, GST(498))
	require.EqualValues(t, 0, GST(0))
}

func TestQuotePricingCarriesGST(t *testing.T) {
	q := Calculate([]domain.CartLine{line("mango", 249, 2)}, domain.CouponState{}, DefaultDeliveryFee)
	p := q.Pricing()
	require.EqualValues(t, 25, p.GST)
	require.True(t, p.Consistent())
}

func TestBestsellerSetIsStable(t *testing.T) {
	products := []domain.Product{
		{ID: "a", Orders: 10},
		{ID: "b", Orders: 30},
		{ID: "c", Orders: 10},
		{ID: "d", Orders: 30},
		{ID: "e", Orders: 5},
	}
	require.Equal(t, []string{"b", "d", "a"}, BestsellerSet(products, 3))
	require.Equal(t, []string{"b", "d", "a", "c", "e"}, BestsellerSet(products, 10))
	require.Empty(t, BestsellerSet(products, 0))
	// входной срез не сортируется на месте
	require.Equal(t, "a", products[0].ID)
}

func TestHasCombo(t *testing.T) {
	bs := []string{"chicken", "putharekulu", "mango"}
	full := []domain.CartLine{line("chicken", 599, 1), line("putharekulu", 299, 2), line("mango", 249, 1)}
	require.True(t, HasCombo(full, bs))
	require.False(t, HasCombo(full[:2], bs))
	require.False(t, HasCombo(full, nil))
}

func TestNormalizeCode(t *testing.T) {
	require.Equal(t, "BESTSELLERS", NormalizeCode("  bestsellers "))
}

// Случайные корзины: total всегда сходится, скидка не превышает subtotal.
func TestPricingProperties(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	ids := []string{"mango", "gongura", "chicken", "mutton", "putharekulu", "pindi"}

	for i := 0; i < 500; i++ {
		var lines []domain.CartLine
		for _, id := range ids {
			if rng.Intn(2) == 0 {
				continue
			}
			lines = append(lines, line(id, int64(100+rng.Intn(600)), 1+rng.Intn(5)))
		}
		percent := []int{0, 5, 15, 50, 100}[rng.Intn(5)]
		coupon := domain.CouponState{}
		if percent > 0 {
			coupon = domain.CouponState{Code: BestsellersCode, Percent: percent}
		}

		q := Calculate(lines, coupon, DefaultDeliveryFee)
		require.Equal(t, q.Subtotal+q.Delivery-q.Discount, q.Total)
		require.GreaterOrEqual(t, q.Discount, int64(0))
		require.LessOrEqual(t, q.Discount, q.Subtotal)
		if len(lines) == 0 {
			require.Zero(t, q.Delivery)
		} else {
			require.Equal(t, DefaultDeliveryFee, q.Delivery)
		}
	}
}
