package alerts

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.uber.org/zap"
)

// Enrichment outcomes
const (
	resultAttached = "attached"
	resultEmpty    = "empty"
	resultSkipped  = "skipped"
	resultDisabled = "disabled"
	resultError    = "error"
)

var (
	enrichmentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tradealerts",
			Subsystem: "orders_alert",
			Name:      "enrichments_total",
			Help:      "Requests seen by the orders alert filter, by enrichment outcome",
		},
		[]string{"result"},
	)

	diagnosticPause = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "tradealerts",
			Subsystem: "orders_alert",
			Name:      "diagnostic_pause_seconds",
			Help:      "Synthetic latency actually spent per request",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
	)
)

const instrumentationName = "tradealerts/orders-alert-filter"

var tracer = otel.Tracer(instrumentationName)

// newEnrichmentCounter mirrors enrichmentsTotal on the global otel meter
// provider so the stdout exporter sees the same outcomes as /metrics.
func newEnrichmentCounter(logger *zap.Logger) metric.Int64Counter {
	counter, err := otel.Meter(instrumentationName).Int64Counter(
		"tradealerts.orders_alert.enrichments",
		metric.WithDescription("Requests seen by the orders alert filter, by enrichment outcome"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		logger.Warn("Enrichment counter unavailable", zap.Error(err))
		return noop.Int64Counter{}
	}
	return counter
}

func (f *OrdersAlertFilter) record(ctx context.Context, result string) {
	enrichmentsTotal.WithLabelValues(result).Inc()
	f.enrichments.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}
