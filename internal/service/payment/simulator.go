// Package payment содержит реализации платёжного шлюза.
package payment

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// DefaultDelay имитирует время ответа внешнего шлюза.
const DefaultDelay = 800 * time.Millisecond

// Simulator подтверждает любой онлайн-платёж после задержки.
type Simulator struct {
	delay  time.Duration
	now    func() time.Time
	logger *log.Entry
}

// NewSimulator создаёт симулятор; отрицательная задержка трактуется как нулевая.
func NewSimulator(delay time.Duration, logger *log.Entry) *Simulator {
	if delay < 0 {
		delay = 0
	}
	if logger == nil {
		logger = log.New().WithField("component", "payment-simulator")
	}
	return &Simulator{
		delay:  delay,
		now:    time.Now,
		logger: logger,
	}
}

// Charge ждёт задержку и возвращает PAID со ссылкой на транзакцию.
// Отмена контекста прерывает ожидание.
func (s *Simulator) Charge(ctx context.Context, req domain.ChargeRequest) (domain.PaymentInfo, error) {
	method := domain.NormalizePaymentMethod(req.Method)
	if method == "" {
		return domain.PaymentInfo{}, domain.ErrPaymentMethodRequired
	}
	if domain.IsCashOnDelivery(method) {
		return domain.PaymentInfo{Method: method, Status: domain.PaymentStatusPending}, nil
	}

	if s.delay > 0 {
		timer := time.NewTimer(s.delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return domain.PaymentInfo{}, fmt.Errorf("charge %s: %w", req.OrderID, ctx.Err())
		case <-timer.C:
		}
	}

	ref := fmt.Sprintf("TXN-%d", s.now().UnixMilli())
	s.logger.WithFields(log.Fields{
		"order_id": req.OrderID,
		"method":   method,
		"amount":   req.Amount,
		"ref":      ref,
	}).Info("payment captured")

	return domain.PaymentInfo{Method: method, Status: domain.PaymentStatusPaid, GatewayRef: &ref}, nil
}

var _ domain.PaymentGateway = (*Simulator)(nil)
