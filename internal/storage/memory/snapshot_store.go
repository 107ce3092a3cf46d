package memory

import (
	"context"
	"sync"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// snapshotStoreInMemory — простая in-memory реализация SnapshotStore.
type snapshotStoreInMemory struct {
	mu    sync.RWMutex
	items map[string]domain.UserSnapshot
}

// NewSnapshotStore возвращает in-memory хранилище для локальной разработки и тестов.
func NewSnapshotStore() domain.SnapshotStore {
	return &snapshotStoreInMemory{
		items: make(map[string]domain.UserSnapshot),
	}
}

// Load возвращает снимок пользователя или ErrSnapshotNotFound.
func (s *snapshotStoreInMemory) Load(ctx context.Context, userID string) (domain.UserSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return domain.UserSnapshot{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap, ok := s.items[userID]
	if !ok {
		return domain.UserSnapshot{}, domain.ErrSnapshotNotFound
	}
	return snap.Clone(), nil
}

// Save перезаписывает снимок целиком.
func (s *snapshotStoreInMemory) Save(ctx context.Context, userID string, snap domain.UserSnapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	// Храним копию, чтобы вызывающий не менял данные в обход Save.
	s.items[userID] = snap.Clone()
	return nil
}

// Delete удаляет снимок; отсутствие записи ошибкой не считается.
func (s *snapshotStoreInMemory) Delete(ctx context.Context, userID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.items, userID)
	return nil
}

var _ domain.SnapshotStore = (*snapshotStoreInMemory)(nil)
