// Package orders управляет жизненным циклом заказа: оформление, действия пользователя
// (возврат, обмен, отмена, оплата) и продвижение статуса магазином.
package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/account"
	"github.com/vladislavdragonenkov/storefront/internal/cart"
	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/metrics"
)

// Заметки, которые сервис оставляет в заказе.
const (
	NoteRefund        = "User requested REFUND"
	NoteExchange      = "User requested EXCHANGE"
	NoteCancel        = "User requested CANCEL"
	NoteStoreCancel   = "Cancelled by store"
	orderIDPrefix     = "ORD-"
	actionCheckout    = "checkout"
	actionRefund      = "refund"
	actionExchange    = "exchange"
	actionCancel      = "cancel"
	actionPayNow      = "pay_now"
	actionAdvance     = "advance"
	actionAddress     = "update_address"
	resultApplied     = "applied"
	resultRejected    = "rejected"
	resultFailed      = "failed"
	paymentKindCOD    = "cod"
	paymentKindOnline = "online"
)

// Options задаёт зависимости сервиса.
type Options struct {
	Gateway   domain.PaymentGateway
	Timeline  domain.TimelineRepository
	Publisher domain.OrderEventPublisher
	// RequireAddress запрещает оформление без адреса доставки.
	RequireAddress bool
	Logger         *log.Entry
	Metrics        *metrics.StoreMetrics
	Now            func() time.Time
	NewOrderID     func() string
}

// Service реализует переходы заказа поверх агрегата пользователя.
type Service struct {
	gateway        domain.PaymentGateway
	timeline       domain.TimelineRepository
	publisher      domain.OrderEventPublisher
	requireAddress bool
	logger         *log.Entry
	metrics        *metrics.StoreMetrics
	now            func() time.Time
	newOrderID     func() string
}

// Result: заказ после действия и сообщение для пользователя.
type Result struct {
	Order   domain.Order `json:"order"`
	Message string       `json:"message,omitempty"`
}

// NewService создаёт сервис заказов.
func NewService(opts Options) *Service {
	if opts.Logger == nil {
		opts.Logger = log.New().WithField("component", "orders")
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Now().UTC() }
	}
	if opts.NewOrderID == nil {
		opts.NewOrderID = func() string { return orderIDPrefix + ulid.Make().String() }
	}
	return &Service{
		gateway:        opts.Gateway,
		timeline:       opts.Timeline,
		publisher:      opts.Publisher,
		requireAddress: opts.RequireAddress,
		logger:         opts.Logger,
		metrics:        opts.Metrics,
		now:            opts.Now,
		newOrderID:     opts.NewOrderID,
	}
}

// Checkout превращает корзину в заказ. Заказ сохраняется до очистки корзины;
// при ошибке оплаты или записи корзина остаётся нетронутой.
func (s *Service) Checkout(ctx context.Context, c *cart.Cart, acc *account.Account, method string) (domain.Order, error) {
	method = domain.NormalizePaymentMethod(method)
	if method == "" {
		return domain.Order{}, domain.ErrPaymentMethodRequired
	}
	logger := s.logger.WithFields(log.Fields{"user_id": acc.UserID(), "method": method})

	var placed domain.Order
	err := c.Checkout(func(snap cart.Snapshot) error {
		if len(snap.Lines) == 0 {
			return domain.Reject(domain.ReasonCartEmpty, domain.MessageCartEmpty)
		}
		if s.requireAddress && snap.Address == nil {
			return domain.Reject(domain.ReasonAddressRequired, domain.MessageAddressRequired)
		}

		orderID := s.newOrderID()
		payment, err := s.paymentFor(ctx, orderID, method, snap.Quote.Total)
		if err != nil {
			return err
		}

		order := domain.Order{
			ID:        orderID,
			CreatedAt: s.now(),
			Status:    domain.OrderStatusPlaced,
			Items:     domain.CloneLines(snap.Lines),
			Pricing:   snap.Quote.Pricing(),
			Payment:   &payment,
		}
		if snap.Quote.Coupon.Applied() {
			code := snap.Quote.Coupon.Code
			order.Coupon = &code
		}
		if snap.Address != nil {
			order.AddressSnapshot = snap.Address.Snapshot()
		}
		if errs := order.ValidateInvariants(); len(errs) > 0 {
			return fmt.Errorf("checkout %s: %w", orderID, errors.Join(errs...))
		}

		if err := acc.AppendOrder(ctx, order); err != nil {
			return err
		}
		if snap.Address != nil && acc.RememberFirstAddress(ctx, *snap.Address) {
			logger.WithField("order_id", orderID).Debug("checkout address saved to profile")
		}
		placed = order
		return nil
	})
	if err != nil {
		s.metrics.RecordTransition(actionCheckout, resultOf(err))
		logger.WithError(err).Warn("checkout failed")
		return domain.Order{}, err
	}

	kind := paymentKindOnline
	if domain.IsCashOnDelivery(method) {
		kind = paymentKindCOD
	}
	s.metrics.RecordOrderCreated(kind)
	s.metrics.RecordTransition(actionCheckout, resultApplied)
	s.record(ctx, acc.UserID(), domain.TimelineEvent{
		OrderID:  placed.ID,
		Type:     domain.TimelineOrderPlaced,
		To:       placed.Status,
		Occurred: placed.CreatedAt,
	})
	logger.WithFields(log.Fields{
		"order_id": placed.ID,
		"total":    placed.Pricing.Total,
		"coupon":   placed.CouponCode(),
	}).Info("order placed")
	return placed, nil
}

// paymentFor возвращает состояние оплаты для нового заказа. Наложенный платёж
// остаётся PENDING без обращения к шлюзу.
func (s *Service) paymentFor(ctx context.Context, orderID, method string, amount int64) (domain.PaymentInfo, error) {
	if domain.IsCashOnDelivery(method) {
		return domain.PaymentInfo{Method: method, Status: domain.PaymentStatusPending}, nil
	}
	return s.charge(ctx, orderID, method, amount)
}

func (s *Service) charge(ctx context.Context, orderID, method string, amount int64) (domain.PaymentInfo, error) {
	if s.gateway == nil {
		return domain.PaymentInfo{}, fmt.Errorf("%w: gateway not configured", domain.ErrPaymentFailed)
	}
	start := time.Now()
	info, err := s.gateway.Charge(ctx, domain.ChargeRequest{OrderID: orderID, Method: method, Amount: amount})
	s.metrics.RecordPaymentDuration(time.Since(start))
	if err != nil {
		return domain.PaymentInfo{}, fmt.Errorf("%w: %v", domain.ErrPaymentFailed, err)
	}
	if info.Status != domain.PaymentStatusPaid {
		return domain.PaymentInfo{}, fmt.Errorf("%w: unexpected status %s", domain.ErrPaymentFailed, info.Status)
	}
	if info.Method == "" {
		info.Method = method
	}
	return info, nil
}

// Permissions возвращает разрешённые действия для заказа.
func (s *Service) Permissions(order domain.Order) domain.Permissions {
	perms := domain.RulesFor(order.Status)
	if domain.IsTerminal(order.Status) {
		perms.CanCancel, perms.CanRefund, perms.CanExchange = false, false, false
	}
	perms.CanInvoice = domain.InvoiceVisible(order)
	return perms
}

// Timeline возвращает историю заказа.
func (s *Service) Timeline(orderID string) ([]domain.TimelineEvent, error) {
	if s.timeline == nil {
		return []domain.TimelineEvent{}, nil
	}
	return s.timeline.List(orderID)
}

// transition применяет решение decide к заказу и фиксирует результат в истории и метриках.
func (s *Service) transition(
	ctx context.Context,
	acc *account.Account,
	orderID, action string,
	decide func(domain.Order) (domain.OrderPatch, error),
) (domain.Order, error) {
	var before domain.Order
	after, err := acc.UpdateOrder(ctx, orderID, func(o domain.Order) (domain.OrderPatch, error) {
		before = o
		return decide(o)
	})
	logger := s.logger.WithFields(log.Fields{
		"user_id":  acc.UserID(),
		"order_id": orderID,
		"action":   action,
	})
	if err != nil {
		s.metrics.RecordTransition(action, resultOf(err))
		if rej, ok := domain.AsRejection(err); ok {
			logger.WithFields(log.Fields{
				"status": before.Status,
				"reason": rej.Reason,
			}).Warn("order action rejected")
		} else {
			logger.WithError(err).Warn("order action failed")
		}
		return after, err
	}

	s.metrics.RecordTransition(action, resultApplied)
	s.recordChanges(ctx, acc.UserID(), before, after, action)
	logger.WithFields(log.Fields{
		"from": before.Status,
		"to":   after.Status,
	}).Info("order updated")
	return after, nil
}

func (s *Service) recordChanges(ctx context.Context, userID string, before, after domain.Order, reason string) {
	occurred := after.UpdatedAt
	if occurred.IsZero() {
		occurred = s.now()
	}
	if before.Status != after.Status {
		s.record(ctx, userID, domain.TimelineEvent{
			OrderID:  after.ID,
			Type:     domain.TimelineStatusChanged,
			From:     before.Status,
			To:       after.Status,
			Reason:   reason,
			Occurred: occurred,
		})
	}
	if paymentStatus(before) != paymentStatus(after) {
		s.record(ctx, userID, domain.TimelineEvent{
			OrderID:  after.ID,
			Type:     domain.TimelinePaymentUpdated,
			From:     before.Status,
			To:       after.Status,
			Reason:   string(paymentStatus(after)),
			Occurred: occurred,
		})
	}
	if !sameAddress(before.AddressSnapshot, after.AddressSnapshot) {
		s.record(ctx, userID, domain.TimelineEvent{
			OrderID:  after.ID,
			Type:     domain.TimelineAddressChanged,
			From:     before.Status,
			To:       after.Status,
			Reason:   reason,
			Occurred: occurred,
		})
	}
}

// record сохраняет событие в истории и публикует его. Ошибки только логируются.
func (s *Service) record(ctx context.Context, userID string, event domain.TimelineEvent) {
	logger := s.logger.WithFields(log.Fields{"order_id": event.OrderID, "event": event.Type})
	if s.timeline != nil {
		if err := s.timeline.Append(event); err != nil {
			logger.WithError(err).Warn("failed to append timeline event")
		} else {
			s.metrics.RecordTimelineEvent()
		}
	}
	if s.publisher != nil {
		if err := s.publisher.PublishOrderEvent(ctx, userID, event); err != nil {
			logger.WithError(err).Warn("failed to publish order event")
		}
	}
}

func paymentStatus(o domain.Order) domain.PaymentStatus {
	if o.Payment == nil {
		return ""
	}
	return o.Payment.Status
}

func sameAddress(a, b *domain.AddressSnapshot) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func resultOf(err error) string {
	if domain.IsRejection(err) {
		return resultRejected
	}
	return resultFailed
}
