package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}

func TestOrderMetricsCounters(t *testing.T) {
	m := newOrderMetricsWithRegisterer(prometheus.NewRegistry())

	m.RecordOrderPlaced()
	m.RecordOrderPlaced()
	m.RecordOrderRevised()
	m.RecordStatusUpdate()
	m.RecordStockConflict()
	m.RecordOutboxEvent()

	require.Equal(t, 2.0, counterValue(t, m.ordersPlaced))
	require.Equal(t, 1.0, counterValue(t, m.ordersRevised))
	require.Equal(t, 1.0, counterValue(t, m.statusUpdates))
	require.Equal(t, 1.0, counterValue(t, m.stockConflicts))
	require.Equal(t, 1.0, counterValue(t, m.outboxEvents))
}

func TestOrderMetricsRejectedByReason(t *testing.T) {
	m := newOrderMetricsWithRegisterer(prometheus.NewRegistry())

	m.RecordOrderRejected("insufficient_stock")
	m.RecordOrderRejected("insufficient_stock")
	m.RecordOrderRejected("invalid_product")

	require.Equal(t, 2.0, counterValue(t, m.ordersRejected.WithLabelValues("insufficient_stock")))
	require.Equal(t, 1.0, counterValue(t, m.ordersRejected.WithLabelValues("invalid_product")))
}

func TestOrderMetricsDoubleRegistration(t *testing.T) {
	registry := prometheus.NewRegistry()

	// Повторная регистрация должна вернуть уже существующие коллекторы.
	first := newOrderMetricsWithRegisterer(registry)
	second := newOrderMetricsWithRegisterer(registry)

	first.RecordOrderPlaced()
	second.RecordOrderPlaced()
	require.Equal(t, 2.0, counterValue(t, first.ordersPlaced))

	first.RecordCommitDuration(10 * time.Millisecond)
}
