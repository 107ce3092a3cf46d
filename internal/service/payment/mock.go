package payment

import (
	"context"
	"sync"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// MockGateway — конфигурируемая заглушка PaymentGateway для тестов.
type MockGateway struct {
	mu sync.Mutex

	Status domain.PaymentStatus
	Ref    string
	Err    error

	Calls    int
	Requests []domain.ChargeRequest
}

// NewMockGateway возвращает mock с успешным сценарием по умолчанию.
func NewMockGateway() *MockGateway {
	return &MockGateway{
		Status: domain.PaymentStatusPaid,
		Ref:    "TXN-TEST",
	}
}

// Charge возвращает заранее настроенный результат и считает вызовы.
func (m *MockGateway) Charge(_ context.Context, req domain.ChargeRequest) (domain.PaymentInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls++
	m.Requests = append(m.Requests, req)
	if m.Err != nil {
		return domain.PaymentInfo{}, m.Err
	}
	ref := m.Ref
	return domain.PaymentInfo{
		Method:     domain.NormalizePaymentMethod(req.Method),
		Status:     m.Status,
		GatewayRef: &ref,
	}, nil
}

// CallCount возвращает число вызовов Charge.
func (m *MockGateway) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Calls
}

var _ domain.PaymentGateway = (*MockGateway)(nil)
