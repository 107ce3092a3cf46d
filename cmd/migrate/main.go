package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/vladislavdragonenkov/storefront/internal/storage/postgres"
)

const (
	defaultTimeout = 30 * time.Second
	envPostgresDSN = "STOREFRONT_POSTGRES_DSN"
)

var errUnsupportedDirection = errors.New("unsupported direction")

// schemaMigrator: часть postgres.Store, нужная утилите.
type schemaMigrator interface {
	MigrateUp(ctx context.Context, steps int) error
	MigrateDown(ctx context.Context, steps int) error
	MigrationStatus(ctx context.Context) (int64, int, error)
}

var _ schemaMigrator = (*postgres.Store)(nil)

func main() {
	_ = godotenv.Load()

	var (
		direction string
		steps     int
		dsn       string
	)

	flag.StringVar(&direction, "direction", "up", "migration direction: up|down|redo|status")
	flag.IntVar(&steps, "steps", 0, "number of migrations to apply/rollback (0=all for up, 1 for down and redo)")
	flag.StringVar(&dsn, "dsn", "", "PostgreSQL DSN (fallback: "+envPostgresDSN+")")
	flag.Parse()

	if strings.TrimSpace(dsn) == "" {
		dsn = strings.TrimSpace(os.Getenv(envPostgresDSN))
	}
	if dsn == "" {
		fail("%s (or -dsn) is required", envPostgresDSN)
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	store, err := postgres.Open(ctx, dsn)
	if err != nil {
		fail("open postgres store: %v", err)
	}
	defer store.Close()

	report, err := runMigration(ctx, store, direction, steps)
	if err != nil {
		fail("%v", err)
	}
	fmt.Println(report)
}

// runMigration выполняет команду и возвращает строку отчёта со статусом схемы.
func runMigration(ctx context.Context, m schemaMigrator, direction string, steps int) (string, error) {
	direction = strings.ToLower(strings.TrimSpace(direction))

	switch direction {
	case "up":
		if err := m.MigrateUp(ctx, steps); err != nil {
			return "", fmt.Errorf("migrate up failed: %w", err)
		}
	case "down":
		if steps <= 0 {
			steps = 1
		}
		if err := m.MigrateDown(ctx, steps); err != nil {
			return "", fmt.Errorf("migrate down failed: %w", err)
		}
	case "redo":
		// Откатываем и заново применяем последние шаги: удобно при правке свежей миграции.
		if steps <= 0 {
			steps = 1
		}
		if err := m.MigrateDown(ctx, steps); err != nil {
			return "", fmt.Errorf("migrate redo (down) failed: %w", err)
		}
		if err := m.MigrateUp(ctx, steps); err != nil {
			return "", fmt.Errorf("migrate redo (up) failed: %w", err)
		}
	case "status":
	default:
		return "", fmt.Errorf("%w: %s (use up|down|redo|status)", errUnsupportedDirection, direction)
	}

	version, count, err := m.MigrationStatus(ctx)
	if err != nil {
		return "", fmt.Errorf("migration status failed: %w", err)
	}
	if direction == "status" {
		return fmt.Sprintf("migration status: version=%d applied=%d", version, count), nil
	}
	return fmt.Sprintf("migrate %s ok: version=%d applied=%d", direction, version, count), nil
}

func fail(format string, args ...any) {
	_, _ = fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
