package app

import (
	"time"

	"github.com/vladislavdragonenkov/storefront/internal/catalog"
	"github.com/vladislavdragonenkov/storefront/internal/pricing"
	"github.com/vladislavdragonenkov/storefront/internal/service/payment"
)

// StorageDriver выбирает хранилище данных пользователей.
type StorageDriver string

const (
	StorageDriverMemory   StorageDriver = "memory"
	StorageDriverPostgres StorageDriver = "postgres"
)

// Config описывает настройки запуска приложения.
type Config struct {
	HTTPAddr    string
	GRPCAddr    string
	MetricsAddr string

	StorageDriver       StorageDriver
	PostgresDSN         string
	PostgresAutoMigrate bool

	// KafkaBrokers: список через запятую; пусто означает работу без брокера.
	KafkaBrokers string

	CatalogPath     string
	DeliveryFee     int64
	BestsellerCount int
	CouponPercent   int
	PaymentDelay    time.Duration
	// RequireAddressAtCheckout запрещает оформление заказа без адреса доставки.
	RequireAddressAtCheckout bool

	AdminKey string
}

// DefaultConfig возвращает базовые настройки для локального запуска.
func DefaultConfig() Config {
	return Config{
		HTTPAddr:            ":8080",
		GRPCAddr:            ":50051",
		MetricsAddr:         ":9090",
		StorageDriver:       StorageDriverMemory,
		PostgresAutoMigrate: true,
		DeliveryFee:         pricing.DefaultDeliveryFee,
		BestsellerCount:     catalog.DefaultBestsellerCount,
		CouponPercent:       pricing.DefaultComboPercent,
		PaymentDelay:        payment.DefaultDelay,
	}
}
