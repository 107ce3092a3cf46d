// Package session связывает корзину и данные пользователя в одну сессию
// и хранит открытые сессии без глобального состояния.
package session

import (
	"context"
	"sync"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/account"
	"github.com/vladislavdragonenkov/storefront/internal/cart"
	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/metrics"
	"github.com/vladislavdragonenkov/storefront/internal/service/orders"
)

// Session: состояние одного пользователя: корзина, профиль и заказы.
type Session struct {
	UserID  string
	Cart    *cart.Cart
	Account *account.Account
}

// SyncAddress подставляет в корзину адрес по умолчанию из профиля.
func (s *Session) SyncAddress() bool {
	def, ok := s.Account.DefaultAddress()
	if !ok {
		return false
	}
	addr := def.CartAddress()
	return s.Cart.SyncDefaultAddress(&addr)
}

// Options задаёт зависимости менеджера.
type Options struct {
	Catalog  cart.Catalog
	Store    domain.SnapshotStore
	Notifier domain.ChangeNotifier
	Orders   *orders.Service
	Cart     cart.Options
	Retry    account.RetryConfig
	Logger   *log.Entry
	Metrics  *metrics.StoreMetrics
}

// Manager открывает, выдаёт и закрывает сессии.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session

	catalog  cart.Catalog
	store    domain.SnapshotStore
	notifier domain.ChangeNotifier
	orders   *orders.Service
	cartOpts cart.Options
	retry    account.RetryConfig
	logger   *log.Entry
	metrics  *metrics.StoreMetrics
}

// NewManager создаёт менеджер сессий.
func NewManager(opts Options) *Manager {
	if opts.Logger == nil {
		opts.Logger = log.New().WithField("component", "session")
	}
	if opts.Orders == nil {
		opts.Orders = orders.NewService(orders.Options{Logger: opts.Logger, Metrics: opts.Metrics})
	}
	if opts.Cart.Logger == nil {
		opts.Cart.Logger = opts.Logger.WithField("component", "cart")
	}
	if opts.Cart.Metrics == nil {
		opts.Cart.Metrics = opts.Metrics
	}
	return &Manager{
		sessions: make(map[string]*Session),
		catalog:  opts.Catalog,
		store:    opts.Store,
		notifier: opts.Notifier,
		orders:   opts.Orders,
		cartOpts: opts.Cart,
		retry:    opts.Retry,
		logger:   opts.Logger,
		metrics:  opts.Metrics,
	}
}

// Orders возвращает сервис заказов, общий для всех сессий.
func (m *Manager) Orders() *orders.Service { return m.orders }

// Open возвращает сессию пользователя, создавая её при первом обращении.
func (m *Manager) Open(ctx context.Context, userID string) (*Session, error) {
	if userID == "" {
		return nil, domain.ErrUserIDRequired
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.sessions[userID]; ok {
		return s, nil
	}

	acc, err := account.Open(ctx, userID, m.store, account.Options{
		OriginID: uuid.NewString(),
		Notifier: m.notifier,
		Retry:    m.retry,
		Logger:   m.logger.WithField("component", "account"),
		Metrics:  m.metrics,
	})
	if err != nil {
		return nil, err
	}
	s := &Session{
		UserID:  userID,
		Cart:    cart.New(m.catalog, m.cartOpts),
		Account: acc,
	}
	s.SyncAddress()
	m.sessions[userID] = s
	m.metrics.SessionOpened()
	m.logger.WithFields(log.Fields{
		"user_id":   userID,
		"origin_id": acc.OriginID(),
	}).Info("session opened")
	return s, nil
}

// Get возвращает открытую сессию без создания новой.
func (m *Manager) Get(userID string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[userID]
	return s, ok
}

// Close закрывает сессию. Корзина не сохраняется: она живёт только в сессии.
func (m *Manager) Close(userID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[userID]; !ok {
		return false
	}
	delete(m.sessions, userID)
	m.metrics.SessionClosed()
	m.logger.WithField("user_id", userID).Info("session closed")
	return true
}

// CloseAll закрывает все сессии при остановке сервиса.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id := range m.sessions {
		delete(m.sessions, id)
		m.metrics.SessionClosed()
	}
}

// Reload перечитывает данные пользователя после оповещения из другой сессии.
// Собственные оповещения (originID совпадает) пропускаются.
func (m *Manager) Reload(ctx context.Context, userID, originID string) bool {
	s, ok := m.Get(userID)
	if !ok {
		return false
	}
	if originID != "" && originID == s.Account.OriginID() {
		return false
	}
	s.Account.Reload(ctx)
	s.SyncAddress()
	m.metrics.RecordBroadcast("received")
	m.logger.WithFields(log.Fields{
		"user_id":   userID,
		"origin_id": originID,
	}).Debug("session reloaded from broadcast")
	return true
}

// Len возвращает число открытых сессий.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Unsaved возвращает число сессий, чьи последние изменения могли не сохраниться.
func (m *Manager) Unsaved() int {
	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.Unlock()

	n := 0
	for _, s := range sessions {
		if s.Account.Unsaved() {
			n++
		}
	}
	return n
}
