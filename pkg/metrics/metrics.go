package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics набор метрик сервиса
// Все методы безопасны для nil-получателя, что позволяет отключать метрики конфигурацией
type Metrics struct {
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	DBQueryDuration     *prometheus.HistogramVec
	DBQueryErrors       *prometheus.CounterVec
	DBOpenConnections   prometheus.Gauge
	DBInUseConnections  prometheus.Gauge
	DBIdleConnections   prometheus.Gauge
	DBWaitCount         prometheus.Gauge

	BookingsTotal      *prometheus.CounterVec
	CancellationsTotal *prometheus.CounterVec
	PaymentsTotal      *prometheus.CounterVec
	EmailsTotal        *prometheus.CounterVec

	JobRunsTotal       *prometheus.CounterVec
	JobItemsTotal      *prometheus.CounterVec
	WebhookEventsTotal *prometheus.CounterVec
}

// New создает метрики и регистрирует их в глобальном реестре Prometheus
func New(serviceName string) *Metrics {
	return NewWithRegistry(serviceName, prometheus.DefaultRegisterer)
}

// NewWithRegistry создает метрики в указанном реестре
func NewWithRegistry(serviceName string, reg prometheus.Registerer) *Metrics {
	constLabels := prometheus.Labels{"service": serviceName}

	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "http_requests_total",
			Help:        "Total number of HTTP requests",
			ConstLabels: constLabels,
		}, []string{"method", "path", "status"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "http_request_duration_seconds",
			Help:        "HTTP request latency",
			ConstLabels: constLabels,
			Buckets:     prometheus.DefBuckets,
		}, []string{"method", "path"}),
		DBQueryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "db_query_duration_seconds",
			Help:        "Database query latency",
			ConstLabels: constLabels,
			Buckets:     []float64{.001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
		}, []string{"operation"}),
		DBQueryErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "db_query_errors_total",
			Help:        "Database query errors",
			ConstLabels: constLabels,
		}, []string{"operation"}),
		DBOpenConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "db_open_connections",
			Help:        "Number of established connections",
			ConstLabels: constLabels,
		}),
		DBInUseConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "db_in_use_connections",
			Help:        "Number of connections currently in use",
			ConstLabels: constLabels,
		}),
		DBIdleConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "db_idle_connections",
			Help:        "Number of idle connections",
			ConstLabels: constLabels,
		}),
		DBWaitCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "db_wait_count",
			Help:        "Total number of connections waited for",
			ConstLabels: constLabels,
		}),
		BookingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "bookings_total",
			Help:        "Booking attempts by result",
			ConstLabels: constLabels,
		}, []string{"result"}),
		CancellationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "cancellations_total",
			Help:        "Appointment cancellations by initiator",
			ConstLabels: constLabels,
		}, []string{"initiator"}),
		PaymentsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "payments_total",
			Help:        "Payment state changes by method and status",
			ConstLabels: constLabels,
		}, []string{"method", "status"}),
		EmailsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "emails_total",
			Help:        "Notification hand-offs by template and result",
			ConstLabels: constLabels,
		}, []string{"template", "result"}),
		JobRunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "job_runs_total",
			Help:        "Background job runs by job and result",
			ConstLabels: constLabels,
		}, []string{"job", "result"}),
		JobItemsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "job_items_total",
			Help:        "Items processed by background jobs",
			ConstLabels: constLabels,
		}, []string{"job"}),
		WebhookEventsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "webhook_events_total",
			Help:        "Payment webhook events by provider and outcome",
			ConstLabels: constLabels,
		}, []string{"provider", "outcome"}),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.DBQueryDuration,
		m.DBQueryErrors,
		m.DBOpenConnections,
		m.DBInUseConnections,
		m.DBIdleConnections,
		m.DBWaitCount,
		m.BookingsTotal,
		m.CancellationsTotal,
		m.PaymentsTotal,
		m.EmailsTotal,
		m.JobRunsTotal,
		m.JobItemsTotal,
		m.WebhookEventsTotal,
	)

	return m
}

// ObserveBooking учитывает попытку бронирования (created, conflict, rejected)
func (m *Metrics) ObserveBooking(result string) {
	if m == nil {
		return
	}
	m.BookingsTotal.WithLabelValues(result).Inc()
}

// ObserveCancellation учитывает отмену (client, admin, expired)
func (m *Metrics) ObserveCancellation(initiator string) {
	if m == nil {
		return
	}
	m.CancellationsTotal.WithLabelValues(initiator).Inc()
}

// ObservePayment учитывает изменение статуса платежа
func (m *Metrics) ObservePayment(method, status string) {
	if m == nil {
		return
	}
	m.PaymentsTotal.WithLabelValues(method, status).Inc()
}

// ObserveEmail учитывает передачу письма транспорту
func (m *Metrics) ObserveEmail(template, result string) {
	if m == nil {
		return
	}
	m.EmailsTotal.WithLabelValues(template, result).Inc()
}

// ObserveHTTPRequest учитывает обработанный HTTP запрос
func (m *Metrics) ObserveHTTPRequest(method, path, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// ObserveJob учитывает запуск фоновой задачи и число обработанных записей
func (m *Metrics) ObserveJob(job, result string, items int) {
	if m == nil {
		return
	}
	m.JobRunsTotal.WithLabelValues(job, result).Inc()
	if items > 0 {
		m.JobItemsTotal.WithLabelValues(job).Add(float64(items))
	}
}

// ObserveWebhook учитывает входящее событие платежной системы
func (m *Metrics) ObserveWebhook(provider, outcome string) {
	if m == nil {
		return
	}
	m.WebhookEventsTotal.WithLabelValues(provider, outcome).Inc()
}
