package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// StoreMetrics содержит метрики корзины, заказов и хранилища.
// Методы безопасно вызывать на nil-получателе: метрики тогда не пишутся.
type StoreMetrics struct {
	// Корзина и купоны
	cartMutations *prometheus.CounterVec
	couponEvents  *prometheus.CounterVec

	// Заказы
	ordersCreated    *prometheus.CounterVec
	orderTransitions *prometheus.CounterVec
	timelineEvents   prometheus.Counter
	paymentDuration  prometheus.Histogram

	// Хранилище и синхронизация
	persistenceFailures prometheus.Counter
	broadcasts          *prometheus.CounterVec
	activeSessions      prometheus.Gauge
}

// NewStoreMetrics регистрирует метрики в глобальном реестре Prometheus.
func NewStoreMetrics() *StoreMetrics {
	return NewStoreMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

// NewStoreMetricsWithRegisterer регистрирует метрики в указанном реестре.
func NewStoreMetricsWithRegisterer(registerer prometheus.Registerer) *StoreMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &StoreMetrics{
		cartMutations: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "storefront_cart_mutations_total",
			Help: "Total number of cart mutations by operation",
		}, []string{"op"}),
		couponEvents: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "storefront_coupon_events_total",
			Help: "Coupon applications, removals and rejections",
		}, []string{"event"}),
		ordersCreated: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "storefront_orders_created_total",
			Help: "Total number of orders placed by payment kind",
		}, []string{"payment"}),
		orderTransitions: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "storefront_order_transitions_total",
			Help: "Order lifecycle actions by result",
		}, []string{"action", "result"}),
		timelineEvents: registerCounter(registerer, prometheus.CounterOpts{
			Name: "storefront_timeline_events_total",
			Help: "Total number of order timeline events recorded",
		}),
		paymentDuration: registerHistogram(registerer, prometheus.HistogramOpts{
			Name:    "storefront_payment_duration_seconds",
			Help:    "Duration of payment gateway calls in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 0.8, 1.0, 2.5, 5.0},
		}),
		persistenceFailures: registerCounter(registerer, prometheus.CounterOpts{
			Name: "storefront_persistence_failures_total",
			Help: "Total number of user snapshot writes that failed after retries",
		}),
		broadcasts: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "storefront_snapshot_broadcasts_total",
			Help: "Cross-session snapshot change notifications by direction",
		}, []string{"direction"}),
		activeSessions: registerGauge(registerer, prometheus.GaugeOpts{
			Name: "storefront_active_sessions",
			Help: "Number of open user sessions",
		}),
	}
}

func registerCounter(registerer prometheus.Registerer, opts prometheus.CounterOpts) prometheus.Counter {
	collector := prometheus.NewCounter(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Counter)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter %q: %v", opts.Name, err))
	}
	return collector
}

func registerCounterVec(registerer prometheus.Registerer, opts prometheus.CounterOpts, labels []string) *prometheus.CounterVec {
	collector := prometheus.NewCounterVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.CounterVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter vec %q: %v", opts.Name, err))
	}
	return collector
}

func registerGauge(registerer prometheus.Registerer, opts prometheus.GaugeOpts) prometheus.Gauge {
	collector := prometheus.NewGauge(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Gauge)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register gauge %q: %v", opts.Name, err))
	}
	return collector
}

func registerHistogram(registerer prometheus.Registerer, opts prometheus.HistogramOpts) prometheus.Histogram {
	collector := prometheus.NewHistogram(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Histogram)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register histogram %q: %v", opts.Name, err))
	}
	return collector
}

// RecordCartMutation учитывает изменение корзины.
func (m *StoreMetrics) RecordCartMutation(op string) {
	if m == nil {
		return
	}
	m.cartMutations.WithLabelValues(op).Inc()
}

// RecordCouponEvent учитывает применение, снятие или отказ купона.
func (m *StoreMetrics) RecordCouponEvent(event string) {
	if m == nil {
		return
	}
	m.couponEvents.WithLabelValues(event).Inc()
}

// RecordOrderCreated учитывает оформленный заказ.
func (m *StoreMetrics) RecordOrderCreated(paymentKind string) {
	if m == nil {
		return
	}
	m.ordersCreated.WithLabelValues(paymentKind).Inc()
}

// RecordTransition учитывает действие над заказом и его итог (ok|rejected|error).
func (m *StoreMetrics) RecordTransition(action, result string) {
	if m == nil {
		return
	}
	m.orderTransitions.WithLabelValues(action, result).Inc()
}

// RecordTimelineEvent увеличивает счётчик событий истории.
func (m *StoreMetrics) RecordTimelineEvent() {
	if m == nil {
		return
	}
	m.timelineEvents.Inc()
}

// RecordPaymentDuration записывает длительность обращения к шлюзу.
func (m *StoreMetrics) RecordPaymentDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.paymentDuration.Observe(d.Seconds())
}

// RecordPersistenceFailure учитывает неудачную запись снимка.
func (m *StoreMetrics) RecordPersistenceFailure() {
	if m == nil {
		return
	}
	m.persistenceFailures.Inc()
}

// RecordBroadcast учитывает отправленное (sent) или полученное (received) оповещение.
func (m *StoreMetrics) RecordBroadcast(direction string) {
	if m == nil {
		return
	}
	m.broadcasts.WithLabelValues(direction).Inc()
}

// SessionOpened увеличивает количество активных сессий.
func (m *StoreMetrics) SessionOpened() {
	if m == nil {
		return
	}
	m.activeSessions.Inc()
}

// SessionClosed уменьшает количество активных сессий.
func (m *StoreMetrics) SessionClosed() {
	if m == nil {
		return
	}
	m.activeSessions.Dec()
}
