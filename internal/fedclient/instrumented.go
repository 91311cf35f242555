package fedclient

import (
	"context"
	"time"

	"fmcd/internal/metrics"
)

// InstrumentedOperationLog wraps an OperationLog and records
// database_queries_total / database_query_duration_seconds around every
// read, without knowing what storage engine backs the underlying client.
// The lifecycle manager's recovery sweep wraps each federation's log in
// one of these so operation-log latency shows up on the scrape surface.
type InstrumentedOperationLog struct {
	inner OperationLog
	m     *metrics.Metrics
}

// InstrumentOperationLog wraps log with query metrics. A nil log returns
// nil so callers can wrap unconditionally.
func InstrumentOperationLog(log OperationLog) *InstrumentedOperationLog {
	if log == nil {
		return nil
	}
	return &InstrumentedOperationLog{inner: log, m: metrics.Get()}
}

// Recent implements OperationLog.
func (l *InstrumentedOperationLog) Recent(ctx context.Context, limit int) ([]LoggedOperation, error) {
	start := time.Now()
	ops, err := l.inner.Recent(ctx, limit)

	status := "ok"
	if err != nil {
		status = "error"
	}
	l.m.DatabaseQueriesTotal.WithLabelValues("operation_log_recent", status).Inc()
	l.m.DatabaseQueryDuration.WithLabelValues("operation_log_recent", status).Observe(time.Since(start).Seconds())

	return ops, err
}
