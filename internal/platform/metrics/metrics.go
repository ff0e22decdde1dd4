package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/fx"
)

// Metrics содержит все Prometheus-метрики сервиса
type Metrics struct {
	// HTTP
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Каталог
	CreatorMetricsRecomputeTotal prometheus.Counter
	LinkChecksTotal              *prometheus.CounterVec
	ParserImportedTotal          *prometheus.CounterVec
	LoginAttemptsTotal           *prometheus.CounterVec
}

var (
	defaultMetrics *Metrics
	once           sync.Once
)

// Default возвращает единственный экземпляр метрик, зарегистрированный в default registry
func Default() *Metrics {
	once.Do(func() {
		defaultMetrics = newMetrics()
	})
	return defaultMetrics
}

func newMetrics() *Metrics {
	return &Metrics{
		HTTPRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		CreatorMetricsRecomputeTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "creator_metrics_recompute_total",
			Help: "Total number of creator metrics recomputations",
		}),
		LinkChecksTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "link_checks_total",
				Help: "Channel link liveness checks by result",
			},
			[]string{"result"},
		),
		ParserImportedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "parser_imported_channels_total",
				Help: "Channels imported from listing pages",
			},
			[]string{"outcome"},
		),
		LoginAttemptsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "auth_login_attempts_total",
				Help: "Login attempts by result",
			},
			[]string{"result"},
		),
	}
}

var Module = fx.Module(
	"metrics",
	fx.Provide(Default),
)
