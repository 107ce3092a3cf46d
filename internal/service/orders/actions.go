package orders

import (
	"context"
	"fmt"

	"github.com/vladislavdragonenkov/storefront/internal/account"
	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

var actionNotAllowed = domain.Reject(domain.ReasonActionNotAllowed, domain.MessageActionNotAllowed)

// RequestRefund отменяет доставленный заказ и переводит оплату в REFUND_REQUESTED.
func (s *Service) RequestRefund(ctx context.Context, acc *account.Account, orderID string) (Result, error) {
	order, err := s.transition(ctx, acc, orderID, actionRefund, func(o domain.Order) (domain.OrderPatch, error) {
		if domain.IsTerminal(o.Status) || !domain.RulesFor(o.Status).CanRefund {
			return domain.OrderPatch{}, actionNotAllowed
		}
		return domain.OrderPatch{
			Status:  statusPtr(domain.OrderStatusCancelled),
			Payment: refundRequested(o.Payment),
			Notes:   stringPtr(NoteRefund),
		}, nil
	})
	if err != nil {
		return Result{Order: order}, err
	}
	return Result{Order: order, Message: domain.MessageRefundRequested}, nil
}

// RequestExchange переводит доставленный заказ в EXCHANGE_REQUESTED.
func (s *Service) RequestExchange(ctx context.Context, acc *account.Account, orderID string) (Result, error) {
	order, err := s.transition(ctx, acc, orderID, actionExchange, func(o domain.Order) (domain.OrderPatch, error) {
		if domain.IsTerminal(o.Status) || !domain.RulesFor(o.Status).CanExchange {
			return domain.OrderPatch{}, actionNotAllowed
		}
		return domain.OrderPatch{
			Status: statusPtr(domain.OrderStatusExchangeRequested),
			Notes:  stringPtr(NoteExchange),
		}, nil
	})
	if err != nil {
		return Result{Order: order}, err
	}
	return Result{Order: order, Message: domain.MessageExchangeRequest}, nil
}

// Cancel отменяет заказ до передачи в доставку. Оплаченный заказ получает запрос на возврат.
func (s *Service) Cancel(ctx context.Context, acc *account.Account, orderID string) (Result, error) {
	order, err := s.transition(ctx, acc, orderID, actionCancel, func(o domain.Order) (domain.OrderPatch, error) {
		if domain.IsTerminal(o.Status) || !domain.RulesFor(o.Status).CanCancel {
			return domain.OrderPatch{}, domain.Reject(domain.ReasonCancelNotAllowed, domain.MessageCancelNotAllowed)
		}
		patch := domain.OrderPatch{
			Status: statusPtr(domain.OrderStatusCancelled),
			Notes:  stringPtr(NoteCancel),
		}
		if o.Paid() {
			patch.Payment = refundRequested(o.Payment)
		}
		return patch, nil
	})
	if err != nil {
		return Result{Order: order}, err
	}
	message := domain.MessageCancelled
	if order.Payment != nil && order.Payment.Status == domain.PaymentStatusRefundRequested {
		message = domain.MessageRefundRequested
	}
	return Result{Order: order, Message: message}, nil
}

// PayNow оплачивает заказ онлайн. Заказ в статусе PLACED становится CONFIRMED.
func (s *Service) PayNow(ctx context.Context, acc *account.Account, orderID, method string) (Result, error) {
	method = domain.NormalizePaymentMethod(method)
	if method == "" || domain.IsCashOnDelivery(method) {
		return Result{}, fmt.Errorf("%w: online method expected", domain.ErrPaymentMethodRequired)
	}

	current, err := acc.Order(orderID)
	if err != nil {
		return Result{}, err
	}
	if err := payable(current); err != nil {
		s.metrics.RecordTransition(actionPayNow, resultRejected)
		return Result{Order: current}, err
	}

	// Шлюз вызывается без блокировки агрегата; статус проверяется повторно при записи.
	info, err := s.charge(ctx, orderID, method, current.Pricing.Total)
	if err != nil {
		s.metrics.RecordTransition(actionPayNow, resultFailed)
		s.logger.WithError(err).WithField("order_id", orderID).Warn("pay now failed")
		return Result{Order: current}, err
	}

	order, err := s.transition(ctx, acc, orderID, actionPayNow, func(o domain.Order) (domain.OrderPatch, error) {
		if err := payable(o); err != nil {
			return domain.OrderPatch{}, err
		}
		patch := domain.OrderPatch{Payment: &info}
		if o.Status == domain.OrderStatusPlaced {
			patch.Status = statusPtr(domain.OrderStatusConfirmed)
		}
		return patch, nil
	})
	if err != nil {
		return Result{Order: order}, err
	}
	return Result{Order: order}, nil
}

func payable(o domain.Order) error {
	if o.Paid() {
		return domain.Reject(domain.ReasonAlreadyPaid, domain.MessageAlreadyPaid)
	}
	if domain.IsTerminal(o.Status) {
		return domain.Reject(domain.ReasonTerminalStatus, domain.MessageActionNotAllowed)
	}
	return nil
}

// UpdateAddress переносит текущий адрес по умолчанию из профиля в заказ.
func (s *Service) UpdateAddress(ctx context.Context, acc *account.Account, orderID string) (Result, error) {
	def, ok := acc.DefaultAddress()
	order, err := s.transition(ctx, acc, orderID, actionAddress, func(o domain.Order) (domain.OrderPatch, error) {
		if domain.IsTerminal(o.Status) || !domain.RulesFor(o.Status).AddressEditable {
			return domain.OrderPatch{}, domain.Reject(domain.ReasonAddressLocked, domain.MessageAddressLocked)
		}
		if !ok {
			return domain.OrderPatch{}, domain.Reject(domain.ReasonNoDefaultAddress, domain.MessageNoDefaultAddress)
		}
		return domain.OrderPatch{AddressSnapshot: def.Address.Snapshot()}, nil
	})
	if err != nil {
		return Result{Order: order}, err
	}
	return Result{Order: order}, nil
}

// Advance продвигает заказ по графу доставки от имени магазина.
func (s *Service) Advance(ctx context.Context, acc *account.Account, orderID string, target domain.OrderStatus) (Result, error) {
	order, err := s.transition(ctx, acc, orderID, actionAdvance, func(o domain.Order) (domain.OrderPatch, error) {
		if !domain.CanTransition(o.Status, target) {
			return domain.OrderPatch{}, domain.Reject(
				domain.ReasonInvalidTransition,
				fmt.Sprintf("Cannot move order from %s to %s.", o.Status, target),
			)
		}
		patch := domain.OrderPatch{Status: statusPtr(target)}
		if target == domain.OrderStatusCancelled {
			patch.Notes = stringPtr(NoteStoreCancel)
			if o.Paid() {
				patch.Payment = refundRequested(o.Payment)
			}
		}
		return patch, nil
	})
	if err != nil {
		return Result{Order: order}, err
	}
	return Result{Order: order}, nil
}

func refundRequested(current *domain.PaymentInfo) *domain.PaymentInfo {
	next := domain.PaymentInfo{Status: domain.PaymentStatusRefundRequested}
	if current != nil {
		next.Method = current.Method
		next.GatewayRef = current.GatewayRef
	}
	return &next
}

func statusPtr(s domain.OrderStatus) *domain.OrderStatus { return &s }

func stringPtr(s string) *string { return &s }
