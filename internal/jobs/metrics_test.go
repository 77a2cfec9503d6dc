package jobmetrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestTrackerRecordsOutcome(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	assert.NoError(t, m.Track("stock_scan").End(nil))
	boom := errors.New("boom")
	assert.ErrorIs(t, m.Track("stock_scan").End(boom), boom)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("stock_scan", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("stock_scan", "failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.failures.WithLabelValues("stock_scan")))
}

func TestStockAlertsAndPurge(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	m.SetStockAlerts("low_stock", 4)
	m.SetStockAlerts("low_stock", 2)
	m.AddPurgedDrafts(3)
	m.AddPurgedDrafts(0)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.alerts.WithLabelValues("low_stock")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.purged))
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	assert.NoError(t, m.Track("x").End(nil))
	m.SetStockAlerts("expired", 1)
	m.AddPurgedDrafts(1)
}
