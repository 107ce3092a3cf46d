package pricing

import "github.com/vladislavdragonenkov/storefront/internal/domain"

const (
	// BestsellersCode: единственный поддерживаемый купон.
	BestsellersCode = "BESTSELLERS"
	// DefaultComboPercent: скидка за комбо из всех бестселлеров.
	DefaultComboPercent = 15
)

// ComboCoupon описывает купон, который действует только при наличии комбо.
type ComboCoupon struct {
	Code    string
	Percent int
}

// DefaultComboCoupon возвращает купон BESTSELLERS на 15%.
func DefaultComboCoupon() ComboCoupon {
	return ComboCoupon{Code: BestsellersCode, Percent: DefaultComboPercent}
}

// State возвращает состояние применённого купона.
func (c ComboCoupon) State() domain.CouponState {
	return domain.CouponState{Code: c.Code, Percent: c.Percent}
}

// Evaluate проверяет введённый код. Возвращает состояние и признак успеха.
func (c ComboCoupon) Evaluate(code string, lines []domain.CartLine, bestsellers []string) (domain.CouponState, bool) {
	if NormalizeCode(code) != c.Code {
		return domain.CouponState{}, false
	}
	if !HasCombo(lines, bestsellers) {
		return domain.CouponState{}, false
	}
	return c.State(), true
}

// Reconcile возвращает состояние купона, согласованное с корзиной:
// при наличии комбо купон применён, без комбо купон этого правила снят.
func (c ComboCoupon) Reconcile(current domain.CouponState, lines []domain.CartLine, bestsellers []string) domain.CouponState {
	combo := HasCombo(lines, bestsellers)
	switch {
	case combo && !current.Applied():
		return c.State()
	case !combo && current.Code == c.Code:
		return domain.CouponState{}
	default:
		return current
	}
}
