package chart_test

import (
	"testing"

	"github.com/go-kit/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/grafana/tsdb/pkg/chart"
	"github.com/grafana/tsdb/pkg/observation"
	"github.com/grafana/tsdb/pkg/timebase"
	"github.com/grafana/tsdb/pkg/tsdb"
)

type fakeDataSource struct {
	db *tsdb.Database
}

func (f fakeDataSource) Query(name string, span timebase.Span, minPoints int) (tsdb.QueryResult[observation.Sample], error) {
	return f.db.Query(name, span, minPoints)
}

func (f fakeDataSource) Summary(name string, span *timebase.Span) (tsdb.Aggregation[observation.Sample], error) {
	return f.db.Summary(name, span)
}

func TestChartAutoscaleFitsBothAxesToData(t *testing.T) {
	c := chart.NewChart()
	c.AddCurve(chart.NewPointsCurve(
		[]float64{0, 1, 2, 3, 4},
		[]float64{10, 20, 5, 30, 15},
	))

	c.Autoscale()

	require.Less(t, c.XAxis.Begin(), 0.0)
	require.Greater(t, c.XAxis.End(), 4.0)
	require.Less(t, c.YAxis.Begin(), 5.0)
	require.Greater(t, c.YAxis.End(), 30.0)
}

func TestChartFitYAxisUsesOnlyVisibleXRange(t *testing.T) {
	db := tsdb.NewDatabase(log.NewNopLogger(), prometheus.NewRegistry())
	timestamps := []float64{0, 1, 2, 100}
	values := []float64{1, 2, 3, 1000}
	for i := range timestamps {
		require.NoError(t, db.AddValue("cpu", observation.New(timebase.Timestamp(timestamps[i]), observation.Sample(values[i]))))
	}

	c := chart.NewChart()
	c.AddCurve(chart.NewTraceCurve("cpu", fakeDataSource{db: db}))
	c.XAxis.SetLimits(0, 3)

	c.FitYAxis()

	require.Less(t, c.YAxis.End(), 100.0)
}

func TestChartClearCurvesEmptiesChart(t *testing.T) {
	c := chart.NewChart()
	c.AddCurve(chart.NewPointsCurve([]float64{0}, []float64{0}))
	require.Len(t, c.Curves, 1)

	c.ClearCurves()
	require.Empty(t, c.Curves)
}
