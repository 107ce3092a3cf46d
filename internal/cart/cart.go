// Package cart реализует корзину покупателя: позиции, купон и адрес доставки.
package cart

import (
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/metrics"
	"github.com/vladislavdragonenkov/storefront/internal/pricing"
)

// Catalog описывает то, что корзине нужно от каталога.
type Catalog interface {
	Lookup(id string) (domain.Product, error)
	Bestsellers() []string
}

// Options задаёт параметры корзины.
type Options struct {
	DeliveryFee int64
	Coupon      pricing.ComboCoupon
	Logger      *log.Entry
	Metrics     *metrics.StoreMetrics
}

// Snapshot: согласованное состояние корзины для чтения.
type Snapshot struct {
	Lines    []domain.CartLine  `json:"items"`
	Coupon   domain.CouponState `json:"coupon"`
	Address  *domain.Address    `json:"address"`
	Quote    pricing.Quote      `json:"pricing"`
	HasCombo bool               `json:"hasCombo"`
	Count    int                `json:"count"`
	Open     bool               `json:"open"`
}

// Cart: агрегат корзины. Все изменения сериализуются мьютексом,
// купон согласуется с комбо до освобождения блокировки.
type Cart struct {
	mu sync.Mutex

	lines   []domain.CartLine
	coupon  domain.CouponState
	address *domain.Address
	// explicitAddress: адрес выбран в корзине, синхронизация с профилем его не трогает.
	explicitAddress bool
	open            bool

	catalog     Catalog
	rule        pricing.ComboCoupon
	deliveryFee int64
	logger      *log.Entry
	metrics     *metrics.StoreMetrics
}

// New создаёт пустую корзину.
func New(catalog Catalog, opts Options) *Cart {
	if opts.Logger == nil {
		opts.Logger = log.New().WithField("component", "cart")
	}
	if opts.Coupon.Code == "" {
		opts.Coupon = pricing.DefaultComboCoupon()
	}
	if opts.DeliveryFee <= 0 {
		opts.DeliveryFee = pricing.DefaultDeliveryFee
	}
	return &Cart{
		lines:       []domain.CartLine{},
		catalog:     catalog,
		rule:        opts.Coupon,
		deliveryFee: opts.DeliveryFee,
		logger:      opts.Logger,
		metrics:     opts.Metrics,
	}
}

// AddOne увеличивает количество товара на 1 или добавляет новую позицию.
func (c *Cart) AddOne(productID string) error {
	product, err := c.catalog.Lookup(productID)
	if err != nil {
		return fmt.Errorf("add to cart: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if i := c.indexOf(productID); i >= 0 {
		c.lines[i].Quantity++
	} else {
		c.lines = append(c.lines, product.Line(1))
	}
	c.afterMutation("add_one", productID)
	return nil
}

// RemoveOne уменьшает количество на 1; позиция с количеством 1 удаляется.
// Отсутствующий товар игнорируется.
func (c *Cart) RemoveOne(productID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.indexOf(productID)
	if i < 0 {
		return
	}
	if c.lines[i].Quantity > 1 {
		c.lines[i].Quantity--
	} else {
		c.removeAt(i)
	}
	c.afterMutation("remove_one", productID)
}

// SetQuantity задаёт количество позиции; qty <= 0 удаляет её.
// Товар, которого нет в корзине, не добавляется.
func (c *Cart) SetQuantity(productID string, qty int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.indexOf(productID)
	if i < 0 {
		return
	}
	if qty <= 0 {
		c.removeAt(i)
	} else {
		c.lines[i].Quantity = qty
	}
	c.afterMutation("set_quantity", productID)
}

// BuyNow перезаписывает количество товара (или добавляет его) и открывает корзину.
func (c *Cart) BuyNow(productID string, qty int) error {
	if qty <= 0 {
		return fmt.Errorf("buy now: %w", domain.ErrQuantityInvalid)
	}
	product, err := c.catalog.Lookup(productID)
	if err != nil {
		return fmt.Errorf("buy now: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if i := c.indexOf(productID); i >= 0 {
		c.lines[i].Quantity = qty
	} else {
		c.lines = append(c.lines, product.Line(qty))
	}
	c.open = true
	c.afterMutation("buy_now", productID)
	return nil
}

// Clear очищает позиции, купон и адрес.
func (c *Cart) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clearLocked()
}

func (c *Cart) clearLocked() {
	c.lines = []domain.CartLine{}
	c.coupon = domain.CouponState{}
	c.address = nil
	c.explicitAddress = false
	c.open = false
	c.afterMutation("clear", "")
}

// ApplyCoupon применяет купон. При отказе состояние не меняется.
func (c *Cart) ApplyCoupon(code string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	state, ok := c.rule.Evaluate(code, c.lines, c.catalog.Bestsellers())
	if !ok {
		c.metrics.RecordCouponEvent("rejected")
		c.logger.WithField("code", pricing.NormalizeCode(code)).Debug("coupon rejected")
		return false
	}
	c.coupon = state
	c.metrics.RecordCouponEvent("applied")
	return true
}

// RemoveCoupon снимает купон.
func (c *Cart) RemoveCoupon() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.coupon.Applied() {
		c.metrics.RecordCouponEvent("removed")
	}
	c.coupon = domain.CouponState{}
}

// SetAddress задаёт адрес доставки, выбранный в корзине.
// Признак обслуживания пересчитывается из индекса.
func (c *Cart) SetAddress(addr domain.Address) {
	normalized := addr.Normalize()

	c.mu.Lock()
	defer c.mu.Unlock()

	c.address = &normalized
	c.explicitAddress = true
	c.metrics.RecordCartMutation("set_address")
}

// SyncDefaultAddress подставляет адрес профиля по умолчанию,
// если пользователь не выбрал адрес в самой корзине.
func (c *Cart) SyncDefaultAddress(addr *domain.Address) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.explicitAddress || addr == nil {
		return false
	}
	normalized := addr.Normalize()
	c.address = &normalized
	return true
}

// SetOpen открывает или закрывает корзину.
func (c *Cart) SetOpen(open bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.open = open
}

// Snapshot возвращает копию состояния вместе с расчётом.
func (c *Cart) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Checkout атомарно передаёт снимок корзины в place и очищает корзину,
// только если place завершился успешно. Пока place работает, корзина заблокирована.
func (c *Cart) Checkout(place func(Snapshot) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := place(c.snapshotLocked()); err != nil {
		return err
	}
	c.clearLocked()
	return nil
}

func (c *Cart) snapshotLocked() Snapshot {
	count := 0
	for _, line := range c.lines {
		count += line.Quantity
	}
	return Snapshot{
		Lines:    domain.CloneLines(c.lines),
		Coupon:   c.coupon,
		Address:  c.address.Clone(),
		Quote:    pricing.Calculate(c.lines, c.coupon, c.deliveryFee),
		HasCombo: pricing.HasCombo(c.lines, c.catalog.Bestsellers()),
		Count:    count,
		Open:     c.open,
	}
}

// afterMutation согласует купон с комбо и пишет диагностику. Вызывается под блокировкой.
func (c *Cart) afterMutation(op, productID string) {
	before := c.coupon
	c.coupon = c.rule.Reconcile(c.coupon, c.lines, c.catalog.Bestsellers())
	switch {
	case !before.Applied() && c.coupon.Applied():
		c.metrics.RecordCouponEvent("auto_applied")
	case before.Applied() && !c.coupon.Applied():
		c.metrics.RecordCouponEvent("auto_removed")
	}

	c.metrics.RecordCartMutation(op)
	quote := pricing.Calculate(c.lines, c.coupon, c.deliveryFee)
	c.logger.WithFields(log.Fields{
		"op":         op,
		"product_id": productID,
		"lines":      len(c.lines),
		"subtotal":   quote.Subtotal,
		"total":      quote.Total,
		"coupon":     c.coupon.Code,
	}).Debug("cart state changed")
}

func (c *Cart) indexOf(productID string) int {
	for i, line := range c.lines {
		if line.ID == productID {
			return i
		}
	}
	return -1
}

func (c *Cart) removeAt(i int) {
	c.lines = append(c.lines[:i:i], c.lines[i+1:]...)
}
