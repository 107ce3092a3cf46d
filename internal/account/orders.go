package account

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// Orders возвращает заказы, новые первыми. activeOnly оставляет только заказы в пути.
func (a *Account) Orders(activeOnly bool) []domain.Order {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]domain.Order, 0, len(a.snap.Orders))
	for _, o := range a.snap.Orders {
		if activeOnly && !domain.IsActive(o.Status) {
			continue
		}
		out = append(out, o.Clone())
	}
	return out
}

// Order возвращает заказ по id или ErrOrderNotFound.
func (a *Account) Order(id string) (domain.Order, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if i := a.indexOfOrder(id); i >= 0 {
		return a.snap.Orders[i].Clone(), nil
	}
	return domain.Order{}, fmt.Errorf("%w: %s", domain.ErrOrderNotFound, id)
}

// AppendOrder добавляет заказ в начало истории и обязательно сохраняет его.
// Если запись не удалась, заказ убирается из памяти и возвращается ошибка ErrPersistence.
func (a *Account) AppendOrder(ctx context.Context, order domain.Order) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	previous := a.snap.Orders
	orders := make([]domain.Order, 0, len(previous)+1)
	orders = append(orders, order.Clone())
	orders = append(orders, previous...)
	a.snap.Orders = orders

	if err := a.persistLocked(ctx, "append_order"); err != nil {
		a.snap.Orders = previous
		return err
	}
	a.logger.WithFields(log.Fields{
		"order_id": order.ID,
		"total":    order.Pricing.Total,
	}).Info("order stored")
	return nil
}

// UpdateOrder под блокировкой передаёт текущий заказ в decide и применяет полученный патч.
// Ошибка decide возвращается как есть, заказ при этом не меняется.
func (a *Account) UpdateOrder(ctx context.Context, id string, decide func(domain.Order) (domain.OrderPatch, error)) (domain.Order, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	i := a.indexOfOrder(id)
	if i < 0 {
		return domain.Order{}, fmt.Errorf("%w: %s", domain.ErrOrderNotFound, id)
	}
	current := a.snap.Orders[i]

	patch, err := decide(current.Clone())
	if err != nil {
		return current.Clone(), err
	}

	updated := patch.Apply(current, a.now())
	a.snap.Orders[i] = updated
	_ = a.persistLocked(ctx, "patch_order")
	return updated.Clone(), nil
}

// PatchOrder применяет патч к заказу без дополнительных проверок.
func (a *Account) PatchOrder(ctx context.Context, id string, patch domain.OrderPatch) (domain.Order, error) {
	return a.UpdateOrder(ctx, id, func(domain.Order) (domain.OrderPatch, error) {
		return patch, nil
	})
}

func (a *Account) indexOfOrder(id string) int {
	for i := range a.snap.Orders {
		if a.snap.Orders[i].ID == id {
			return i
		}
	}
	return -1
}
