package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusMetrics contains all Prometheus metrics for the hackathon platform
type PrometheusMetrics struct {
	// Ledger metrics
	ContractCallsTotal    *prometheus.CounterVec
	ContractCallDuration  *prometheus.HistogramVec
	ConnectionErrorsTotal *prometheus.CounterVec

	// Read model metrics
	ProjectionFailuresTotal *prometheus.CounterVec
	QueryDuration           *prometheus.HistogramVec

	// Submission metrics
	TransactionsTotal        *prometheus.CounterVec
	TransactionConfirmDelay  *prometheus.HistogramVec
	NotificationsSentTotal   *prometheus.CounterVec
	NotificationFailureTotal *prometheus.CounterVec

	// Storage metrics
	DatabaseOperationsTotal   *prometheus.CounterVec
	DatabaseOperationDuration *prometheus.HistogramVec

	// API metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Application health metrics
	ApplicationUptime prometheus.Gauge
	ComponentHealth   *prometheus.GaugeVec
	MemoryUsage       prometheus.Gauge
	GoroutineCount    prometheus.Gauge
}

// NewPrometheusMetrics creates all metrics and registers them with reg
func NewPrometheusMetrics(reg prometheus.Registerer) *PrometheusMetrics {
	factory := promauto.With(reg)

	return &PrometheusMetrics{
		ContractCallsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hackathon_contract_calls_total",
				Help: "Total number of calls and transactions sent to the hackathon contract",
			},
			[]string{"method", "status"},
		),

		ContractCallDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "hackathon_contract_call_duration_seconds",
				Help:    "Duration of contract calls",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method"},
		),

		ConnectionErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hackathon_connection_errors_total",
				Help: "Total number of connection errors to ledger nodes",
			},
			[]string{"endpoint", "error_type"},
		),

		ProjectionFailuresTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hackathon_projection_failures_total",
				Help: "Raw tuples that could not be projected into the read model",
			},
			[]string{"entity"},
		),

		QueryDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "hackathon_query_duration_seconds",
				Help:    "Duration of query service operations",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation", "status"},
		),

		TransactionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hackathon_transactions_total",
				Help: "Write transactions by kind and outcome",
			},
			[]string{"kind", "status"},
		),

		TransactionConfirmDelay: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "hackathon_transaction_confirmation_seconds",
				Help:    "Time from submission to receipt",
				Buckets: []float64{1, 2, 5, 10, 15, 30, 60, 120, 300},
			},
			[]string{"kind"},
		),

		NotificationsSentTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hackathon_notifications_sent_total",
				Help: "Total number of user notifications delivered",
			},
			[]string{"channel", "level"},
		),

		NotificationFailureTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hackathon_notification_failures_total",
				Help: "Total number of failed notification deliveries",
			},
			[]string{"channel"},
		),

		DatabaseOperationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hackathon_database_operations_total",
				Help: "Total number of database operations",
			},
			[]string{"operation", "table", "status"},
		),

		DatabaseOperationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "hackathon_database_operation_duration_seconds",
				Help:    "Duration of database operations",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation", "table"},
		),

		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hackathon_http_requests_total",
				Help: "Total number of HTTP requests received",
			},
			[]string{"method", "path", "status"},
		),

		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "hackathon_http_request_duration_seconds",
				Help:    "Duration of HTTP requests",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		ApplicationUptime: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "hackathon_application_uptime_seconds",
				Help: "Application uptime in seconds",
			},
		),

		ComponentHealth: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "hackathon_component_health",
				Help: "Health status of application components (1=healthy, 0=unhealthy)",
			},
			[]string{"component"},
		),

		MemoryUsage: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "hackathon_memory_usage_bytes",
				Help: "Current memory usage in bytes",
			},
		),

		GoroutineCount: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "hackathon_goroutines",
				Help: "Number of running goroutines",
			},
		),
	}
}

// RecordContractCall records a contract call or transaction submission
func (m *PrometheusMetrics) RecordContractCall(method, status string, duration time.Duration) {
	m.ContractCallsTotal.WithLabelValues(method, status).Inc()
	m.ContractCallDuration.WithLabelValues(method).Observe(duration.Seconds())
}

// RecordConnectionError records a connection error
func (m *PrometheusMetrics) RecordConnectionError(endpoint, errorType string) {
	m.ConnectionErrorsTotal.WithLabelValues(endpoint, errorType).Inc()
}

// RecordProjectionFailure records a tuple rejected by the projector
func (m *PrometheusMetrics) RecordProjectionFailure(entity string) {
	m.ProjectionFailuresTotal.WithLabelValues(entity).Inc()
}

// RecordQuery records a query service operation
func (m *PrometheusMetrics) RecordQuery(operation, status string, duration time.Duration) {
	m.QueryDuration.WithLabelValues(operation, status).Observe(duration.Seconds())
}

// RecordTransaction records the outcome of a write transaction
func (m *PrometheusMetrics) RecordTransaction(kind, status string) {
	m.TransactionsTotal.WithLabelValues(kind, status).Inc()
}

// RecordTransactionConfirmed records how long a transaction took to be mined
func (m *PrometheusMetrics) RecordTransactionConfirmed(kind string, delay time.Duration) {
	m.TransactionConfirmDelay.WithLabelValues(kind).Observe(delay.Seconds())
}

// RecordNotificationSent records a delivered notification
func (m *PrometheusMetrics) RecordNotificationSent(channel, level string) {
	m.NotificationsSentTotal.WithLabelValues(channel, level).Inc()
}

// RecordNotificationFailure records a failed notification
func (m *PrometheusMetrics) RecordNotificationFailure(channel string) {
	m.NotificationFailureTotal.WithLabelValues(channel).Inc()
}

// RecordDatabaseOperation records a database operation
func (m *PrometheusMetrics) RecordDatabaseOperation(operation, table, status string, duration time.Duration) {
	m.DatabaseOperationsTotal.WithLabelValues(operation, table, status).Inc()
	m.DatabaseOperationDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
}

// RecordHTTPRequest records an HTTP request
func (m *PrometheusMetrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// UpdateApplicationUptime updates the application uptime metric
func (m *PrometheusMetrics) UpdateApplicationUptime(startTime time.Time) {
	m.ApplicationUptime.Set(time.Since(startTime).Seconds())
}

// UpdateComponentHealth updates the health status of a component
func (m *PrometheusMetrics) UpdateComponentHealth(component string, healthy bool) {
	value := 0.0
	if healthy {
		value = 1.0
	}
	m.ComponentHealth.WithLabelValues(component).Set(value)
}

// UpdateMemoryUsage updates the memory usage metric
func (m *PrometheusMetrics) UpdateMemoryUsage(bytes uint64) {
	m.MemoryUsage.Set(float64(bytes))
}

// UpdateGoroutineCount updates the goroutine count metric
func (m *PrometheusMetrics) UpdateGoroutineCount(count int) {
	m.GoroutineCount.Set(float64(count))
}
