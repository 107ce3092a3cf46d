// Package account хранит данные пользователя: профиль, адреса, избранное и заказы.
// Каждое изменение сразу записывается в хранилище (write-through).
package account

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/metrics"
)

// errUnchanged прерывает изменение без записи в хранилище.
var errUnchanged = errors.New("snapshot unchanged")

// Options задаёт зависимости агрегата.
type Options struct {
	// OriginID помечает оповещения этой сессии, чтобы не обрабатывать собственные.
	OriginID string
	Notifier domain.ChangeNotifier
	Retry    RetryConfig
	Logger   *log.Entry
	Metrics  *metrics.StoreMetrics
	Now      func() time.Time
	NewID    func() string
}

// Account: агрегат данных одного пользователя.
type Account struct {
	mu   sync.Mutex
	snap domain.UserSnapshot
	// unsaved выставляется, если последняя запись не удалась.
	unsaved bool

	userID   string
	originID string
	store    domain.SnapshotStore
	notifier domain.ChangeNotifier
	retry    RetryConfig
	logger   *log.Entry
	metrics  *metrics.StoreMetrics
	now      func() time.Time
	newID    func() string
}

// Open загружает данные пользователя. Отсутствующие или повреждённые данные
// заменяются пустым состоянием, ошибка чтения не прерывает сессию.
func Open(ctx context.Context, userID string, store domain.SnapshotStore, opts Options) (*Account, error) {
	if userID == "" {
		return nil, domain.ErrUserIDRequired
	}
	if opts.Logger == nil {
		opts.Logger = log.New().WithField("component", "account")
	}
	if opts.Retry.MaxAttempts == 0 {
		opts.Retry = DefaultRetryConfig()
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Now().UTC() }
	}
	if opts.NewID == nil {
		opts.NewID = func() string { return uuid.NewString() }
	}
	if opts.OriginID == "" {
		opts.OriginID = uuid.NewString()
	}

	a := &Account{
		userID:   userID,
		originID: opts.OriginID,
		store:    store,
		notifier: opts.Notifier,
		retry:    opts.Retry,
		logger:   opts.Logger.WithField("user_id", userID),
		metrics:  opts.Metrics,
		now:      opts.Now,
		newID:    opts.NewID,
	}
	a.snap = a.load(ctx)
	return a, nil
}

// UserID возвращает идентификатор владельца.
func (a *Account) UserID() string { return a.userID }

// OriginID возвращает идентификатор сессии для оповещений.
func (a *Account) OriginID() string { return a.originID }

func (a *Account) load(ctx context.Context) domain.UserSnapshot {
	snap, err := a.store.Load(ctx, a.userID)
	if err != nil {
		if !errors.Is(err, domain.ErrSnapshotNotFound) {
			a.logger.WithError(err).Warn("failed to load user snapshot, starting empty")
		}
		snap = domain.UserSnapshot{}
	}
	return snap.Normalize(a.now(), a.newOrderID)
}

func (a *Account) newOrderID() string {
	return "ORD-" + a.newID()
}

// Reload перечитывает данные из хранилища. Побеждает последняя запись.
func (a *Account) Reload(ctx context.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.snap = a.load(ctx)
	a.logger.Debug("user snapshot reloaded")
}

// Snapshot возвращает копию всех данных пользователя.
func (a *Account) Snapshot() domain.UserSnapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.snap.Clone()
}

// Unsaved сообщает, что последние изменения могли не сохраниться.
func (a *Account) Unsaved() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.unsaved
}

// persistLocked записывает снимок с повторами. Вызывается под блокировкой.
func (a *Account) persistLocked(ctx context.Context, operation string) error {
	snap := a.snap.Clone()
	err := executeWithRetry(ctx, a.retry, a.logger, operation, func(ctx context.Context) error {
		return a.store.Save(ctx, a.userID, snap)
	})
	if err != nil {
		a.unsaved = true
		a.metrics.RecordPersistenceFailure()
		a.logger.WithError(err).WithField("operation", operation).Warn("changes may not be saved")
		return fmt.Errorf("%w: %s: %v", domain.ErrPersistence, operation, err)
	}
	a.unsaved = false
	a.notifyLocked(ctx)
	return nil
}

func (a *Account) notifyLocked(ctx context.Context) {
	if a.notifier == nil {
		return
	}
	if err := a.notifier.NotifySnapshotChanged(ctx, a.userID, a.originID); err != nil {
		a.logger.WithError(err).Warn("failed to broadcast snapshot change")
		return
	}
	a.metrics.RecordBroadcast("sent")
}

// mutate применяет fn под блокировкой и сохраняет результат.
// Ошибка записи только логируется: сессия продолжает работать с данными в памяти.
func (a *Account) mutate(ctx context.Context, operation string, fn func(*domain.UserSnapshot) error) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := fn(&a.snap); err != nil {
		if errors.Is(err, errUnchanged) {
			return nil
		}
		return err
	}
	_ = a.persistLocked(ctx, operation)
	return nil
}

// Profile возвращает профиль пользователя.
func (a *Account) Profile() domain.Profile {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.snap.Profile
}

// UpdateProfile применяет частичное обновление профиля.
func (a *Account) UpdateProfile(ctx context.Context, patch domain.ProfilePatch) domain.Profile {
	var out domain.Profile
	_ = a.mutate(ctx, "update_profile", func(s *domain.UserSnapshot) error {
		if patch.Name != nil {
			s.Profile.Name = *patch.Name
		}
		if patch.Phone != nil {
			s.Profile.Phone = *patch.Phone
		}
		if patch.Email != nil {
			s.Profile.Email = *patch.Email
		}
		out = s.Profile
		return nil
	})
	return out
}

// ClearAll удаляет все данные пользователя.
func (a *Account) ClearAll(ctx context.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.snap = domain.UserSnapshot{}.Normalize(a.now(), nil)
	if err := a.store.Delete(ctx, a.userID); err != nil {
		a.unsaved = true
		a.metrics.RecordPersistenceFailure()
		a.logger.WithError(err).Warn("failed to delete user snapshot")
		return
	}
	a.unsaved = false
	a.notifyLocked(ctx)
	a.logger.Info("user data cleared")
}
