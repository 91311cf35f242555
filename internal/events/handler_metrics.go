package events

import (
	"context"

	"fmcd/internal/metrics"
)

// MetricsHandler bumps counters/histograms for every event that has a
// metric defined. It is non-critical: a metrics failure must
// never block or fail publication.
type MetricsHandler struct {
	m *metrics.Metrics
}

// NewMetricsHandler constructs the shipped metrics sink against the
// process-wide registry.
func NewMetricsHandler() *MetricsHandler {
	return &MetricsHandler{m: metrics.Get()}
}

func (*MetricsHandler) Name() string     { return "metrics" }
func (*MetricsHandler) IsCritical() bool { return false }

func (h *MetricsHandler) Handle(_ context.Context, event FmcdEvent) error {
	switch e := event.(type) {
	case PaymentInitiated:
		h.m.PaymentsTotal.WithLabelValues(e.FederationID, "initiated", e.PaymentType).Inc()
		if e.AmountMsat > 0 {
			h.m.PaymentAmountMsat.WithLabelValues(e.FederationID).Observe(float64(e.AmountMsat))
		}
	case PaymentSucceeded:
		h.m.PaymentsTotal.WithLabelValues(e.FederationID, "succeeded", "").Inc()
		h.m.PaymentAmountMsat.WithLabelValues(e.FederationID).Observe(float64(e.AmountMsat))
		h.m.PaymentFeesMsat.WithLabelValues(e.FederationID).Observe(float64(e.FeeMsat))
	case PaymentRefunded:
		h.m.PaymentsTotal.WithLabelValues(e.FederationID, "refunded", "").Inc()
	case PaymentFailed:
		h.m.PaymentsTotal.WithLabelValues(e.FederationID, "failed", "").Inc()

	case InvoiceCreated:
		h.m.InvoicesTotal.WithLabelValues(e.FederationID, "created").Inc()
		h.m.InvoiceAmountMsat.WithLabelValues(e.FederationID).Observe(float64(e.AmountMsat))
	case InvoicePaid:
		h.m.InvoicesTotal.WithLabelValues(e.FederationID, "paid").Inc()
	case InvoiceExpired:
		h.m.InvoicesTotal.WithLabelValues(e.FederationID, "expired").Inc()

	case FederationConnected:
		h.m.FederationConnsTotal.WithLabelValues(e.FederationID, "connected").Inc()
	case FederationDisconnected:
		h.m.FederationConnsTotal.WithLabelValues(e.FederationID, "disconnected").Inc()
	case FederationBalanceUpdated:
		h.m.FederationBalanceMsat.WithLabelValues(e.FederationID).Set(float64(e.CurrentMsat))

	case GatewaySelected:
		h.m.GatewaySelectionsTotal.WithLabelValues(e.GatewayID, e.FederationID, "selected").Inc()
	case GatewayUnavailable:
		h.m.GatewaySelectionsTotal.WithLabelValues(e.GatewayID, e.FederationID, "unavailable").Inc()
		h.m.GatewayFailuresTotal.WithLabelValues(e.GatewayID, e.FederationID, "unavailable").Inc()

	case DatabaseQueryExecuted:
		status := "ok"
		if !e.Success {
			status = "error"
		}
		h.m.DatabaseQueriesTotal.WithLabelValues(e.Operation, status).Inc()
		h.m.DatabaseQueryDuration.WithLabelValues(e.Operation, status).Observe(e.DurationMs / 1000)

	case AuthenticationAttempted:
		status := "ok"
		if !e.Success {
			status = "denied"
		}
		h.m.AuthAttemptsTotal.WithLabelValues(e.Endpoint, status).Inc()
	}

	return nil
}
