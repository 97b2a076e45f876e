package jobmetrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestTrackerRecordsOutcome(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	require.NoError(t, m.Track("sellthru_weekly").End(nil))
	boom := errors.New("boom")
	require.ErrorIs(t, m.Track("sellthru_weekly").End(boom), boom)

	require.Equal(t, float64(1), testutil.ToFloat64(m.runs.WithLabelValues("sellthru_weekly", "success")))
	require.Equal(t, float64(1), testutil.ToFloat64(m.runs.WithLabelValues("sellthru_weekly", "failure")))
	require.Equal(t, float64(1), testutil.ToFloat64(m.failures.WithLabelValues("sellthru_weekly")))
}

func TestObserveReport(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	m.ObserveReport("HMDGLOBAL", RowCounts{Summary: 3, Breakdown: 5, Serials: 40}, 12, 90)
	m.ObserveReport("HMDGLOBAL", RowCounts{Summary: 3}, 7, 80)

	require.Equal(t, float64(6), testutil.ToFloat64(m.rows.WithLabelValues("HMDGLOBAL", "summary")))
	require.Equal(t, float64(40), testutil.ToFloat64(m.rows.WithLabelValues("HMDGLOBAL", "imei")))
	require.Equal(t, float64(7), testutil.ToFloat64(m.units.WithLabelValues("HMDGLOBAL", "sell_thru")))
	require.Equal(t, float64(80), testutil.ToFloat64(m.units.WithLabelValues("HMDGLOBAL", "warehouse")))
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	require.NoError(t, m.Track("x").End(nil))
	m.ObserveReport("V", RowCounts{}, 0, 0)
}
