package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/app"
)

const (
	envHTTPAddr                 = "STOREFRONT_HTTP_ADDR"
	envGRPCAddr                 = "STOREFRONT_GRPC_ADDR"
	envMetricsAddr              = "STOREFRONT_METRICS_ADDR"
	envStorageDriver            = "STOREFRONT_STORAGE_DRIVER"
	envPostgresDSN              = "STOREFRONT_POSTGRES_DSN"
	envPostgresAutoMigrate      = "STOREFRONT_POSTGRES_AUTO_MIGRATE"
	envKafkaBrokers             = "STOREFRONT_KAFKA_BROKERS"
	envCatalogPath              = "STOREFRONT_CATALOG_PATH"
	envDeliveryFee              = "STOREFRONT_DELIVERY_FEE"
	envBestsellerCount          = "STOREFRONT_BESTSELLER_COUNT"
	envCouponPercent            = "STOREFRONT_COUPON_PERCENT"
	envPaymentDelay             = "STOREFRONT_PAYMENT_DELAY"
	envRequireAddressAtCheckout = "STOREFRONT_REQUIRE_ADDRESS_AT_CHECKOUT"
	envAdminKey                 = "STOREFRONT_ADMIN_KEY"
	envLogLevel                 = "STOREFRONT_LOG_LEVEL"
)

type envLookup func(string) (string, bool)

// setupLogger настраивает формат и уровень логирования для сервиса.
func setupLogger(lookup envLookup) error {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	log.SetLevel(log.InfoLevel)

	raw, ok := lookupTrimmed(lookup, envLogLevel)
	if !ok {
		return nil
	}
	level, err := log.ParseLevel(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", envLogLevel, err)
	}
	log.SetLevel(level)
	return nil
}

// readConfigFromEnv собирает конфигурацию поверх значений по умолчанию.
// Некорректные значения не прерывают запуск: остаётся значение по умолчанию, а в ответ попадает предупреждение.
func readConfigFromEnv(lookup envLookup) (app.Config, []string) {
	cfg := app.DefaultConfig()
	var warnings []string
	warn := func(key, raw string, err error) {
		warnings = append(warnings, fmt.Sprintf("%s=%q ignored: %v", key, raw, err))
	}

	if v, ok := lookupTrimmed(lookup, envHTTPAddr); ok {
		cfg.HTTPAddr = v
	}
	if v, ok := lookupTrimmed(lookup, envGRPCAddr); ok {
		cfg.GRPCAddr = v
	}
	if v, ok := lookupTrimmed(lookup, envMetricsAddr); ok {
		cfg.MetricsAddr = v
	}
	if v, ok := lookupTrimmed(lookup, envStorageDriver); ok {
		cfg.StorageDriver = app.StorageDriver(strings.ToLower(v))
	}
	if v, ok := lookupTrimmed(lookup, envPostgresDSN); ok {
		cfg.PostgresDSN = v
	}
	if v, ok := lookupTrimmed(lookup, envPostgresAutoMigrate); ok {
		if parsed, err := parseBool(v); err != nil {
			warn(envPostgresAutoMigrate, v, err)
		} else {
			cfg.PostgresAutoMigrate = parsed
		}
	}
	if v, ok := lookupTrimmed(lookup, envKafkaBrokers); ok {
		cfg.KafkaBrokers = v
	}
	if v, ok := lookupTrimmed(lookup, envCatalogPath); ok {
		cfg.CatalogPath = v
	}
	if v, ok := lookupTrimmed(lookup, envDeliveryFee); ok {
		if parsed, err := parseInt(v, func(n int) bool { return n >= 0 }, "must be >= 0"); err != nil {
			warn(envDeliveryFee, v, err)
		} else {
			cfg.DeliveryFee = int64(parsed)
		}
	}
	if v, ok := lookupTrimmed(lookup, envBestsellerCount); ok {
		if parsed, err := parseInt(v, func(n int) bool { return n > 0 }, "must be > 0"); err != nil {
			warn(envBestsellerCount, v, err)
		} else {
			cfg.BestsellerCount = parsed
		}
	}
	if v, ok := lookupTrimmed(lookup, envCouponPercent); ok {
		if parsed, err := parseInt(v, func(n int) bool { return n > 0 && n <= 100 }, "must be in 1..100"); err != nil {
			warn(envCouponPercent, v, err)
		} else {
			cfg.CouponPercent = parsed
		}
	}
	if v, ok := lookupTrimmed(lookup, envPaymentDelay); ok {
		if parsed, err := parseDuration(v, func(d time.Duration) bool { return d >= 0 }, "must be >= 0"); err != nil {
			warn(envPaymentDelay, v, err)
		} else {
			cfg.PaymentDelay = parsed
		}
	}
	if v, ok := lookupTrimmed(lookup, envRequireAddressAtCheckout); ok {
		if parsed, err := parseBool(v); err != nil {
			warn(envRequireAddressAtCheckout, v, err)
		} else {
			cfg.RequireAddressAtCheckout = parsed
		}
	}
	if v, ok := lookupTrimmed(lookup, envAdminKey); ok {
		cfg.AdminKey = v
	}

	return cfg, warnings
}

func lookupTrimmed(lookup envLookup, key string) (string, bool) {
	raw, ok := lookup(key)
	if !ok {
		return "", false
	}
	value := strings.TrimSpace(raw)
	return value, value != ""
}

func parseBool(raw string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes", "on":
		return true, nil
	case "0", "false", "no", "off":
		return false, nil
	}
	return false, fmt.Errorf("invalid bool value %q", raw)
}

func parseInt(raw string, valid func(int) bool, rule string) (int, error) {
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, err
	}
	if !valid(value) {
		return 0, errors.New(rule)
	}
	return value, nil
}

func parseDuration(raw string, valid func(time.Duration) bool, rule string) (time.Duration, error) {
	value, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return 0, err
	}
	if !valid(value) {
		return 0, errors.New(rule)
	}
	return value, nil
}

func main() {
	// .env необязателен: в контейнере переменные приходят из окружения.
	_ = godotenv.Load()

	if err := setupLogger(os.LookupEnv); err != nil {
		log.WithError(err).Warn("unknown log level, falling back to info")
	}
	cfg, warnings := readConfigFromEnv(os.LookupEnv)
	for _, w := range warnings {
		log.Warn(w)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.WithFields(log.Fields{
		"http_addr":      cfg.HTTPAddr,
		"grpc_addr":      cfg.GRPCAddr,
		"metrics_addr":   cfg.MetricsAddr,
		"storage_driver": cfg.StorageDriver,
	}).Info("запускаем storefront")

	if err := app.Run(ctx, cfg); err != nil && !errors.Is(err, context.Canceled) {
		log.WithError(err).Fatal("приложение завершилось с ошибкой")
	}

	log.Info("storefront остановлен")
}
