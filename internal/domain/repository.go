package domain

import "context"

// SnapshotStore описывает требования к хранилищу данных пользователя.
type SnapshotStore interface {
	// Load возвращает снимок пользователя или ErrSnapshotNotFound, если записи нет.
	Load(ctx context.Context, userID string) (UserSnapshot, error)
	// Save полностью перезаписывает снимок пользователя.
	Save(ctx context.Context, userID string, snapshot UserSnapshot) error
	// Delete удаляет снимок; отсутствие записи не считается ошибкой.
	Delete(ctx context.Context, userID string) error
}
