package alerts

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func withManualReader(t *testing.T) *sdkmetric.ManualReader {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	previous := otel.GetMeterProvider()
	otel.SetMeterProvider(provider)
	t.Cleanup(func() {
		otel.SetMeterProvider(previous)
		_ = provider.Shutdown(context.Background())
	})
	return reader
}

func enrichmentCounts(t *testing.T, reader *sdkmetric.ManualReader) map[string]int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	counts := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		if sm.Scope.Name != instrumentationName {
			continue
		}
		for _, m := range sm.Metrics {
			if m.Name != "tradealerts.orders_alert.enrichments" {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok, "unexpected aggregation %T", m.Data)
			assert.True(t, sum.IsMonotonic)
			for _, dp := range sum.DataPoints {
				v, _ := dp.Attributes.Value(attribute.Key("result"))
				counts[v.AsString()] += dp.Value
			}
		}
	}
	return counts
}

func TestEnrichmentCounter_RecordsOutcomes(t *testing.T) {
	reader := withManualReader(t)

	h := newHarness(t, true, sessionFor("alice"), Diagnostics{})
	h.trade.On("GetClosedOrders", mock.Anything, "alice").Return(orders(1), nil).Once()
	h.trade.On("GetClosedOrders", mock.Anything, "alice").Return(nil, nil).Once()

	h.run(get("action=home"))
	h.run(get("action=home"))
	h.run(get("action=logout"))

	assert.Equal(t, map[string]int64{
		resultAttached: 1,
		resultEmpty:    1,
		resultSkipped:  1,
	}, enrichmentCounts(t, reader))
}

func TestEnrichmentCounter_RecordsDisabled(t *testing.T) {
	reader := withManualReader(t)

	h := newHarness(t, false, sessionFor("alice"), Diagnostics{})
	h.run(get("action=home"))

	assert.Equal(t, map[string]int64{resultDisabled: 1}, enrichmentCounts(t, reader))
	h.trade.AssertNotCalled(t, "GetClosedOrders", mock.Anything, mock.Anything)
}
