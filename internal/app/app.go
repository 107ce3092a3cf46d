package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	promgrpc "github.com/grpc-ecosystem/go-grpc-prometheus"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/vladislavdragonenkov/storefront/internal/account"
	"github.com/vladislavdragonenkov/storefront/internal/cart"
	"github.com/vladislavdragonenkov/storefront/internal/catalog"
	"github.com/vladislavdragonenkov/storefront/internal/domain"
	healthcheck "github.com/vladislavdragonenkov/storefront/internal/health"
	"github.com/vladislavdragonenkov/storefront/internal/httpapi"
	"github.com/vladislavdragonenkov/storefront/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/storefront/internal/metrics"
	"github.com/vladislavdragonenkov/storefront/internal/pricing"
	"github.com/vladislavdragonenkov/storefront/internal/service/orders"
	"github.com/vladislavdragonenkov/storefront/internal/service/payment"
	"github.com/vladislavdragonenkov/storefront/internal/session"
	"github.com/vladislavdragonenkov/storefront/internal/version"
)

const (
	shutdownTimeout     = 5 * time.Second
	healthWatchInterval = 10 * time.Second
	readHeaderTimeout   = 5 * time.Second
)

// Run поднимает HTTP API, gRPC health и сервер метрик и блокируется до отмены ctx.
func Run(ctx context.Context, cfg Config) error {
	logger := log.WithField("component", "app")

	deps, err := initRuntimeDependencies(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer deps.close(logger)

	provider, err := loadCatalog(cfg)
	if err != nil {
		return err
	}

	storeMetrics := metrics.NewStoreMetrics()

	// Kafka необязателен: без брокера события не публикуются, сессии не синхронизируются между экземплярами.
	producer, _ := initKafkaProducer(cfg.KafkaBrokers, logger)
	var (
		publisher domain.OrderEventPublisher
		notifier  domain.ChangeNotifier
	)
	if producer != nil {
		publisher = producer
		notifier = producer
	}

	orderService := orders.NewService(orders.Options{
		Gateway:        payment.NewSimulator(cfg.PaymentDelay, logger.WithField("component", "payment")),
		Timeline:       deps.timeline,
		Publisher:      publisher,
		RequireAddress: cfg.RequireAddressAtCheckout,
		Logger:         logger.WithField("component", "orders"),
		Metrics:        storeMetrics,
	})
	couponPercent := cfg.CouponPercent
	if couponPercent <= 0 {
		couponPercent = pricing.DefaultComboPercent
	}
	manager := session.NewManager(session.Options{
		Catalog:  provider,
		Store:    deps.snapshots,
		Notifier: notifier,
		Orders:   orderService,
		Cart: cart.Options{
			DeliveryFee: cfg.DeliveryFee,
			Coupon:      pricing.ComboCoupon{Code: pricing.BestsellersCode, Percent: couponPercent},
		},
		Retry:   account.DefaultRetryConfig(),
		Logger:  logger.WithField("component", "session"),
		Metrics: storeMetrics,
	})

	var consumer *kafka.Consumer
	if producer != nil {
		consumer, _ = startSnapshotConsumer(ctx, cfg.KafkaBrokers, producer, manager, logger)
	}
	// Сначала перестаём принимать оповещения, затем закрываем сессии, producer последним.
	defer func() {
		closeKafka(consumer, nil, logger)
		manager.CloseAll()
		closeKafka(nil, producer, logger)
	}()

	healthHandler := healthcheck.NewHandler(version.GetVersion())
	healthHandler.RegisterChecker("storage", deps.storageChecker)
	healthHandler.RegisterChecker("sessions", healthcheck.NewDegradedChecker("sessions", func() (bool, string) {
		if n := manager.Unsaved(); n > 0 {
			return true, fmt.Sprintf("%d sessions have unsaved changes", n)
		}
		return false, ""
	}))
	if cfg.KafkaBrokers != "" {
		healthHandler.RegisterChecker("kafka", healthcheck.NewDegradedChecker("kafka", func() (bool, string) {
			if producer == nil {
				return true, "kafka producer unavailable, events are not published"
			}
			return false, ""
		}))
	}

	grpcMetrics := promgrpc.NewServerMetrics()
	grpcServer := grpc.NewServer(grpc.ChainUnaryInterceptor(grpcMetrics.UnaryServerInterceptor()))
	if err := prometheus.Register(grpcMetrics); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok2 := are.ExistingCollector.(*promgrpc.ServerMetrics); ok2 {
				grpcMetrics = existing
			}
		} else {
			logger.WithError(err).Warn("failed to register grpc metrics")
		}
	}

	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	grpcMetrics.InitializeMetrics(grpcServer)
	reflection.Register(grpcServer)
	go watchHealth(ctx, healthServer, healthHandler, healthWatchInterval)

	metricsSrv := startMetricsServer(ctx, cfg.MetricsAddr, logger, healthHandler)

	apiSrv := &http.Server{
		Addr: cfg.HTTPAddr,
		Handler: httpapi.NewRouter(httpapi.Config{
			Sessions: manager,
			Catalog:  provider,
			AdminKey: cfg.AdminKey,
			Logger:   logger.WithField("component", "http"),
		}),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	grpcLis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		shutdownHTTP(metricsSrv, logger)
		return err
	}
	apiLis, err := net.Listen("tcp", cfg.HTTPAddr)
	if err != nil {
		_ = grpcLis.Close()
		shutdownHTTP(metricsSrv, logger)
		return err
	}

	errCh := make(chan error, 2)
	go func() {
		logger.Infof("gRPC health слушает %s", grpcLis.Addr())
		errCh <- grpcServer.Serve(grpcLis)
	}()
	go func() {
		logger.Infof("HTTP API слушает %s", apiLis.Addr())
		if err := apiSrv.Serve(apiLis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("получен сигнал остановки, останавливаем серверы")
		healthServer.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
		shutdownHTTP(apiSrv, logger)
		stopGRPC(grpcServer, logger)
		shutdownHTTP(metricsSrv, logger)
		return ctx.Err()
	case err := <-errCh:
		shutdownHTTP(apiSrv, logger)
		stopGRPC(grpcServer, logger)
		shutdownHTTP(metricsSrv, logger)
		if errors.Is(err, grpc.ErrServerStopped) {
			return nil
		}
		return err
	}
}

// loadCatalog загружает каталог из файла или встроенный.
func loadCatalog(cfg Config) (*catalog.Provider, error) {
	if cfg.CatalogPath != "" {
		return catalog.LoadFile(cfg.CatalogPath, cfg.BestsellerCount)
	}
	provider, err := catalog.Default()
	if err != nil {
		return nil, err
	}
	if cfg.BestsellerCount > 0 && cfg.BestsellerCount != catalog.DefaultBestsellerCount {
		return catalog.New(provider.Products(), cfg.BestsellerCount)
	}
	return provider, nil
}

// watchHealth переносит состояние проверок в gRPC health до отмены ctx.
func watchHealth(ctx context.Context, server *health.Server, handler *healthcheck.Handler, interval time.Duration) {
	update := func() {
		status := healthpb.HealthCheckResponse_NOT_SERVING
		if handler.Ready(ctx) {
			status = healthpb.HealthCheckResponse_SERVING
		}
		server.SetServingStatus("", status)
	}
	update()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			update()
		}
	}
}

func stopGRPC(server *grpc.Server, logger *log.Entry) {
	stoppedCh := make(chan struct{})
	go func() {
		server.GracefulStop()
		close(stoppedCh)
	}()
	select {
	case <-stoppedCh:
	case <-time.After(shutdownTimeout):
		logger.Warn("graceful stop превысил таймаут, принудительно останавливаем")
		server.Stop()
	}
}

// newOpsMux собирает служебные обработчики: метрики и пробы оркестратора.
func newOpsMux(healthHandler *healthcheck.Handler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/healthz", healthHandler)
	mux.HandleFunc("/livez", healthcheck.LivenessHandler)
	mux.HandleFunc("/readyz", healthHandler.ReadinessHandler)
	return mux
}

// startMetricsServer поднимает служебный HTTP-сервер и гасит его при отмене ctx.
func startMetricsServer(ctx context.Context, addr string, logger *log.Entry, healthHandler *healthcheck.Handler) *http.Server {
	srv := &http.Server{Addr: addr, Handler: newOpsMux(healthHandler), ReadHeaderTimeout: readHeaderTimeout}
	go func() {
		logger.Infof("метрики и пробы доступны на %s (/metrics, /healthz, /livez, /readyz)", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Warn("metrics server failed")
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownHTTP(srv, logger)
	}()

	return srv
}

// shutdownHTTP аккуратно останавливает HTTP-сервер.
func shutdownHTTP(srv *http.Server, logger *log.Entry) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Warn("http shutdown with error")
	}
}
