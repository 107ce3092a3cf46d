package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

const (
	opTimeout = 5 * time.Second
)

// ErrSnapshotCorrupt возвращается, если сохранённый JSON не удалось разобрать.
var ErrSnapshotCorrupt = errors.New("user snapshot is corrupt")

type snapshotStore struct {
	db *sql.DB
}

// NewSnapshotStore создаёт PostgreSQL-реализацию SnapshotStore.
// Снимок пользователя хранится одной JSONB-записью и перезаписывается целиком.
func NewSnapshotStore(store *Store) domain.SnapshotStore {
	return &snapshotStore{db: store.DB()}
}

func (r *snapshotStore) Load(ctx context.Context, userID string) (domain.UserSnapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var payload []byte
	err := r.db.QueryRowContext(ctx, `
		SELECT payload
		FROM user_snapshots
		WHERE user_id = $1
	`, userID).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.UserSnapshot{}, domain.ErrSnapshotNotFound
		}
		return domain.UserSnapshot{}, fmt.Errorf("select user snapshot: %w", err)
	}

	var snap domain.UserSnapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return domain.UserSnapshot{}, fmt.Errorf("%w: %s: %v", ErrSnapshotCorrupt, userID, err)
	}
	return snap, nil
}

func (r *snapshotStore) Save(ctx context.Context, userID string, snapshot domain.UserSnapshot) error {
	if userID == "" {
		return domain.ErrUserIDRequired
	}
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("encode user snapshot: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if _, err := r.db.ExecContext(ctx, `
		INSERT INTO user_snapshots (user_id, payload, version, created_at, updated_at)
		VALUES ($1, $2, 1, NOW(), NOW())
		ON CONFLICT (user_id) DO UPDATE
		SET payload = EXCLUDED.payload,
			version = user_snapshots.version + 1,
			updated_at = NOW()
	`, userID, payload); err != nil {
		if isSerializationFailure(err) {
			return fmt.Errorf("save user snapshot %s: concurrent update: %w", userID, err)
		}
		return fmt.Errorf("save user snapshot %s: %w", userID, err)
	}
	return nil
}

func (r *snapshotStore) Delete(ctx context.Context, userID string) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if _, err := r.db.ExecContext(ctx, `DELETE FROM user_snapshots WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("delete user snapshot %s: %w", userID, err)
	}
	return nil
}

// isSerializationFailure распознаёт конфликты параллельных транзакций (класс 40).
func isSerializationFailure(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "40001" || pgErr.Code == "40P01"
	}
	return false
}

var _ domain.SnapshotStore = (*snapshotStore)(nil)
