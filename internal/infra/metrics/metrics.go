package metrics

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// HTTP
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "http_request_duration_seconds",
			Help: "Duration of HTTP requests in seconds",
		},
		[]string{"method", "path"},
	)
	HTTPRequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Current number of HTTP requests in flight",
		},
	)

	// VIP-клуб
	UsageChecksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "club_usage_checks_total",
			Help: "Subscription usage checks by outcome",
		},
		[]string{"outcome"},
	)
	UsageRecordsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "club_usage_records_total",
			Help: "Usage record inserts by result",
		},
		[]string{"result"},
	)
	RenewalsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "club_renewals_total",
			Help: "Manual subscription renewals by result",
		},
		[]string{"result"},
	)
	CancellationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "club_cancellations_total",
			Help: "Subscription cancellations by result",
		},
		[]string{"result"},
	)

	// Asaas
	AsaasRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "asaas_api_requests_total",
			Help: "Total number of Asaas API requests",
		},
		[]string{"endpoint", "status"},
	)
	AsaasRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "asaas_api_request_duration_seconds",
			Help: "Duration of Asaas API requests in seconds",
		},
		[]string{"endpoint"},
	)
)

// Register регистрирует метрики в глобальном реестре. Вызывать один раз из main.
func Register() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		HTTPRequestsInFlight,
		UsageChecksTotal,
		UsageRecordsTotal,
		RenewalsTotal,
		CancellationsTotal,
		AsaasRequestsTotal,
		AsaasRequestDuration,
	)
}

// RegisterPgxPool отдаёт статистику пула соединений как gauge-метрики.
func RegisterPgxPool(pool *pgxpool.Pool) {
	prometheus.MustRegister(
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "pgxpool_acquired_conns",
			Help: "Number of currently acquired connections in the pool",
		}, func() float64 {
			return float64(pool.Stat().AcquiredConns())
		}),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "pgxpool_total_conns",
			Help: "Total number of connections in the pool",
		}, func() float64 {
			return float64(pool.Stat().TotalConns())
		}),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "pgxpool_idle_conns",
			Help: "Number of idle connections in the pool",
		}, func() float64 {
			return float64(pool.Stat().IdleConns())
		}),
	)
}
