package domain

// CartLine хранит позицию корзины вместе со снимком данных товара.
type CartLine struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Price    int64    `json:"price"`
	Weight   string   `json:"weight"`
	Image    string   `json:"image,omitempty"`
	Category Category `json:"category"`
	Quantity int      `json:"quantity"`
}

// Amount возвращает стоимость позиции.
func (l CartLine) Amount() int64 {
	return l.Price * int64(l.Quantity)
}

// CouponState описывает применённый купон. Пустой Code означает отсутствие купона.
type CouponState struct {
	Code    string `json:"code,omitempty"`
	Percent int    `json:"percent"`
}

// Applied сообщает, действует ли купон.
func (c CouponState) Applied() bool {
	return c.Code != ""
}

// Valid проверяет согласованность: код задан тогда и только тогда, когда процент ненулевой.
func (c CouponState) Valid() bool {
	if c.Code == "" {
		return c.Percent == 0
	}
	return c.Percent > 0 && c.Percent <= 100
}

// CloneLines возвращает независимую копию позиций.
func CloneLines(lines []CartLine) []CartLine {
	out := make([]CartLine, len(lines))
	copy(out, lines)
	return out
}
