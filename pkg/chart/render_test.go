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

func TestPointBudgetScalesWithPlotWidth(t *testing.T) {
	require.Equal(t, 1, chart.PointBudget(0))
	require.Equal(t, 1, chart.PointBudget(4))
	require.Equal(t, 20, chart.PointBudget(100))
}

func TestNTicksHasAFloorOfTwo(t *testing.T) {
	require.Equal(t, 2, chart.NTicks(50, chart.PixelsPerXTick))
	require.Equal(t, 5, chart.NTicks(500, chart.PixelsPerXTick))
}

type spyDataSource struct {
	fakeDataSource
	lastMinPoints int
}

func (s *spyDataSource) Query(name string, span timebase.Span, minPoints int) (tsdb.QueryResult[observation.Sample], error) {
	s.lastMinPoints = minPoints
	return s.fakeDataSource.Query(name, span, minPoints)
}

func TestQueryCurveForLayoutSizesMinPointsFromPlotWidth(t *testing.T) {
	db := tsdb.NewDatabase(log.NewNopLogger(), prometheus.NewRegistry())
	require.NoError(t, db.AddValue("cpu", observation.New(timebase.Timestamp(0), observation.Sample(1))))

	spy := &spyDataSource{fakeDataSource: fakeDataSource{db: db}}
	c := chart.NewChart()
	curve := chart.NewTraceCurve("cpu", spy)
	c.AddCurve(curve)

	layout := chart.NewLayout(1000, 500)
	_, err := c.QueryCurveForLayout(curve, layout)
	require.NoError(t, err)

	require.Equal(t, chart.PointBudget(layout.PlotWidth), spy.lastMinPoints)
}

func TestRenderObservationsDrawsMarkersWhenSparse(t *testing.T) {
	layout := chart.NewLayout(1000, 500)
	xAxis := chart.NewValueAxis()
	xAxis.SetLimits(0, 10)
	yAxis := chart.NewValueAxis()
	yAxis.SetLimits(0, 10)

	obs := []observation.Observation[observation.Sample]{
		observation.New(timebase.Timestamp(0), observation.Sample(1)),
		observation.New(timebase.Timestamp(5), observation.Sample(9)),
		observation.New(timebase.Timestamp(10), observation.Sample(3)),
	}

	r := chart.RenderObservations(obs, xAxis, yAxis, layout)
	require.Len(t, r.Line, 3)
	require.Len(t, r.Markers, 3)
}

func TestRenderObservationsOmitsMarkersWhenDense(t *testing.T) {
	layout := chart.NewLayout(1000, 500)
	xAxis := chart.NewValueAxis()
	xAxis.SetLimits(0, 1000)
	yAxis := chart.NewValueAxis()
	yAxis.SetLimits(0, 10)

	obs := make([]observation.Observation[observation.Sample], 500)
	for i := range obs {
		obs[i] = observation.New(timebase.Timestamp(i), observation.Sample(float64(i%10)))
	}

	r := chart.RenderObservations(obs, xAxis, yAxis, layout)
	require.Len(t, r.Line, 500)
	require.Empty(t, r.Markers)
}

func TestRenderAggregationsProducesFivePolylines(t *testing.T) {
	db := tsdb.NewDatabase(log.NewNopLogger(), prometheus.NewRegistry())
	for i := 0; i < 2000; i++ {
		require.NoError(t, db.AddValue("cpu", observation.New(timebase.Timestamp(i), observation.Sample(float64(i%50)))))
	}

	span := timebase.NewSpan(0, 2000)
	result, err := db.Query("cpu", span, 10)
	require.NoError(t, err)
	require.False(t, result.IsObservations())
	require.NotEmpty(t, result.Aggregations)

	xAxis := chart.NewValueAxis()
	xAxis.SetLimits(0, 2000)
	yAxis := chart.NewValueAxis()
	yAxis.SetLimits(0, 50)
	layout := chart.NewLayout(1000, 500)

	r := chart.RenderAggregations(result.Aggregations, xAxis, yAxis, layout)
	require.Len(t, r.MinMaxPolygon, len(result.Aggregations)*2+2)
	require.Len(t, r.StdDevPolygon, len(result.Aggregations)*2+2)
	require.Len(t, r.MeanLine, len(result.Aggregations)+2)
}

func TestRenderCurveDispatchesOnResultKind(t *testing.T) {
	db := tsdb.NewDatabase(log.NewNopLogger(), prometheus.NewRegistry())
	require.NoError(t, db.AddValue("cpu", observation.New(timebase.Timestamp(0), observation.Sample(1))))
	require.NoError(t, db.AddValue("cpu", observation.New(timebase.Timestamp(1), observation.Sample(2))))

	c := chart.NewChart()
	c.XAxis.SetLimits(0, 1)
	curve := chart.NewTraceCurve("cpu", fakeDataSource{db: db})
	c.AddCurve(curve)

	layout := chart.NewLayout(1000, 500)
	aggRender, obsRender, err := c.RenderCurve(curve, layout)
	require.NoError(t, err)
	require.NotEmpty(t, obsRender.Line)
	require.Empty(t, aggRender.MeanLine)
}
