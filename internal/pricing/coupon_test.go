package pricing

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

var bestsellers = []string{"chicken", "putharekulu", "mango"}

func comboLines() []domain.CartLine {
	return []domain.CartLine{line("chicken", 599, 1), line("putharekulu", 299, 1), line("mango", 249, 1)}
}

func TestComboCouponEvaluate(t *testing.T) {
	coupon := DefaultComboCoupon()

	state, ok := coupon.Evaluate(" bestsellers", comboLines(), bestsellers)
	require.True(t, ok)
	require.Equal(t, domain.CouponState{Code: "BESTSELLERS", Percent: 15}, state)

	state, ok = coupon.Evaluate("WELCOME10", comboLines(), bestsellers)
	require.False(t, ok)
	require.False(t, state.Applied())

	_, ok = coupon.Evaluate("BESTSELLERS", comboLines()[:2], bestsellers)
	require.False(t, ok)
}

func TestComboCouponReconcile(t *testing.T) {
	coupon := DefaultComboCoupon()

	applied := coupon.Reconcile(domain.CouponState{}, comboLines(), bestsellers)
	require.Equal(t, coupon.State(), applied)

	removed := coupon.Reconcile(applied, comboLines()[1:], bestsellers)
	require.False(t, removed.Applied())
	require.True(t, removed.Valid())

	unchanged := coupon.Reconcile(domain.CouponState{}, comboLines()[1:], bestsellers)
	require.Equal(t, domain.CouponState{}, unchanged)
}
