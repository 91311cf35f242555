// Package metrics wires the daemon's Prometheus collectors: one
// package-level registry, every counter/histogram registered once via
// sync.Once, scraped by the transport layer's metrics endpoint.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds every collector the daemon exports. There is exactly one
// instance, created by Init and retrieved everywhere else via Get.
type Metrics struct {
	Registry *prometheus.Registry

	PaymentsTotal           *prometheus.CounterVec
	PaymentAmountMsat       *prometheus.HistogramVec
	PaymentFeesMsat         *prometheus.HistogramVec
	InvoicesTotal           *prometheus.CounterVec
	InvoiceAmountMsat       *prometheus.HistogramVec
	GatewaySelectionsTotal  *prometheus.CounterVec
	GatewayFailuresTotal    *prometheus.CounterVec
	FederationConnsTotal    *prometheus.CounterVec
	FederationBalanceMsat   *prometheus.GaugeVec
	APIRequestsTotal        *prometheus.CounterVec
	APIRequestDuration      *prometheus.HistogramVec
	DatabaseQueriesTotal    *prometheus.CounterVec
	DatabaseQueryDuration   *prometheus.HistogramVec
	AuthAttemptsTotal       *prometheus.CounterVec
	WebhookDeliveriesTotal  *prometheus.CounterVec
	WebhookDeliveryDuration *prometheus.HistogramVec
	EventBusEventsTotal     *prometheus.CounterVec
}

var (
	once sync.Once
	m    *Metrics
)

// moneyBuckets spans typical msat payment sizes from ~1 sat to ~1 BTC.
var moneyBuckets = []float64{1000, 10000, 100000, 1_000_000, 10_000_000, 100_000_000, 1_000_000_000, 10_000_000_000}

// Init registers every collector against a fresh registry exactly once.
// Subsequent calls are no-ops and return the same instance.
func Init() *Metrics {
	once.Do(func() {
		reg := prometheus.NewRegistry()
		factory := promauto.With(reg)

		m = &Metrics{
			Registry: reg,
			PaymentsTotal: factory.NewCounterVec(prometheus.CounterOpts{
				Name: "payments_total",
				Help: "Total number of payment operations by status.",
			}, []string{"federation_id", "status", "type"}),
			PaymentAmountMsat: factory.NewHistogramVec(prometheus.HistogramOpts{
				Name:    "payment_amount_msat",
				Help:    "Distribution of payment amounts in millisatoshis.",
				Buckets: moneyBuckets,
			}, []string{"federation_id"}),
			PaymentFeesMsat: factory.NewHistogramVec(prometheus.HistogramOpts{
				Name:    "payment_fees_msat",
				Help:    "Distribution of payment routing fees in millisatoshis.",
				Buckets: moneyBuckets,
			}, []string{"federation_id"}),
			InvoicesTotal: factory.NewCounterVec(prometheus.CounterOpts{
				Name: "invoices_total",
				Help: "Total number of Lightning invoices by status.",
			}, []string{"federation_id", "status"}),
			InvoiceAmountMsat: factory.NewHistogramVec(prometheus.HistogramOpts{
				Name:    "invoice_amount_msat",
				Help:    "Distribution of invoice amounts in millisatoshis.",
				Buckets: moneyBuckets,
			}, []string{"federation_id"}),
			GatewaySelectionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
				Name: "gateway_selections_total",
				Help: "Total number of gateway selection attempts.",
			}, []string{"gateway_id", "federation_id", "result"}),
			GatewayFailuresTotal: factory.NewCounterVec(prometheus.CounterOpts{
				Name: "gateway_failures_total",
				Help: "Total number of gateway failures.",
			}, []string{"gateway_id", "federation_id", "result"}),
			FederationConnsTotal: factory.NewCounterVec(prometheus.CounterOpts{
				Name: "federation_connections_total",
				Help: "Total number of federation connect/disconnect events.",
			}, []string{"federation_id", "status"}),
			FederationBalanceMsat: factory.NewGaugeVec(prometheus.GaugeOpts{
				Name: "federation_balance_msat",
				Help: "Current e-cash balance per federation in millisatoshis.",
			}, []string{"federation_id"}),
			APIRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
				Name: "api_requests_total",
				Help: "Total number of inbound API requests.",
			}, []string{"method", "endpoint", "status"}),
			APIRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
				Name:    "api_request_duration_seconds",
				Help:    "API request latency in seconds.",
				Buckets: prometheus.DefBuckets,
			}, []string{"method", "endpoint", "status"}),
			DatabaseQueriesTotal: factory.NewCounterVec(prometheus.CounterOpts{
				Name: "database_queries_total",
				Help: "Total number of federation-client operation-log reads.",
			}, []string{"operation", "status"}),
			DatabaseQueryDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
				Name:    "database_query_duration_seconds",
				Help:    "Federation-client operation-log read latency in seconds.",
				Buckets: prometheus.DefBuckets,
			}, []string{"operation", "status"}),
			AuthAttemptsTotal: factory.NewCounterVec(prometheus.CounterOpts{
				Name: "auth_attempts_total",
				Help: "Total number of authentication attempts reported by the transport layer.",
			}, []string{"endpoint", "status"}),
			WebhookDeliveriesTotal: factory.NewCounterVec(prometheus.CounterOpts{
				Name: "webhook_deliveries_total",
				Help: "Total number of webhook delivery attempts by outcome.",
			}, []string{"endpoint_id", "event_type", "status"}),
			WebhookDeliveryDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
				Name:    "webhook_delivery_duration_seconds",
				Help:    "Webhook delivery latency in seconds.",
				Buckets: prometheus.DefBuckets,
			}, []string{"endpoint_id", "event_type", "status"}),
			EventBusEventsTotal: factory.NewCounterVec(prometheus.CounterOpts{
				Name: "event_bus_events_total",
				Help: "Total number of events published on the event bus, by type.",
			}, []string{"event_type"}),
		}
	})
	return m
}

// Get returns the process-wide Metrics instance, initializing it on first
// use if Init has not already been called (e.g. by tests that never start
// the full daemon).
func Get() *Metrics {
	if m == nil {
		return Init()
	}
	return m
}
