package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

const (
	defaultConnTimeout     = 5 * time.Second
	defaultMaxOpenConns    = 20
	defaultMaxIdleConns    = 10
	defaultConnMaxLifetime = 30 * time.Minute
	defaultConnMaxIdleTime = 5 * time.Minute
)

// ErrNotInitialized возвращается при обращении к nil-Store или Store без пула.
var ErrNotInitialized = errors.New("postgres store is not initialized")

// ErrSchemaOutdated: в базе применены не все встроенные миграции.
var ErrSchemaOutdated = errors.New("postgres schema is outdated")

// Store держит пул подключений к PostgreSQL для снимков пользователей и истории заказов.
type Store struct {
	db *sql.DB
}

// Open открывает пул через драйвер pgx и проверяет доступность базы.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres connection: %w", err)
	}
	db.SetMaxOpenConns(defaultMaxOpenConns)
	db.SetMaxIdleConns(defaultMaxIdleConns)
	db.SetConnMaxLifetime(defaultConnMaxLifetime)
	db.SetConnMaxIdleTime(defaultConnMaxIdleTime)

	store := &Store{db: db}
	if err := store.Ping(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return store, nil
}

// DB возвращает пул для репозиториев пакета и тестов.
func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) initialized() error {
	if s == nil || s.db == nil {
		return ErrNotInitialized
	}
	return nil
}

// Ping проверяет доступность подключения.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.initialized(); err != nil {
		return err
	}

	pingCtx, cancel := context.WithTimeout(ctx, defaultConnTimeout)
	defer cancel()
	return s.db.PingContext(pingCtx)
}

// Ready проверяет подключение и то, что схема соответствует встроенным миграциям.
// Используется пробой готовности: без актуальной схемы снимки не читаются.
func (s *Store) Ready(ctx context.Context) error {
	if err := s.Ping(ctx); err != nil {
		return err
	}
	latest, err := LatestMigrationVersion()
	if err != nil {
		return err
	}
	version, _, err := s.MigrationStatus(ctx)
	if err != nil {
		return err
	}
	if version < latest {
		return fmt.Errorf("%w: version %d, expected %d", ErrSchemaOutdated, version, latest)
	}
	return nil
}

// Close закрывает пул. Повторный вызов и nil-Store безопасны.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
