package chart

import (
	"github.com/grafana/tsdb/pkg/metrics"
	"github.com/grafana/tsdb/pkg/observation"
	"github.com/grafana/tsdb/pkg/tsdb"
)

// Pixel budgets a canvas renderer should use when laying out a chart.
// PixelsPerAggregation sizes the minPoints requested from a Curve's Query
// so the database does no more aggregation work than the plot can show;
// PixelsPerXTick/PixelsPerYTick size how many ticks calc_ticks should be
// asked to compute for a given plot dimension.
const (
	PixelsPerXTick       = 100
	PixelsPerYTick       = 60
	PixelsPerAggregation = 5
)

// PointBudget returns the minPoints a Curve should be queried with so that
// a plotWidth-pixel-wide plot area gets at least one data point, or one
// aggregate, per PixelsPerAggregation pixels.
func PointBudget(plotWidth float64) int {
	budget := int(plotWidth) / PixelsPerAggregation
	if budget < 1 {
		budget = 1
	}
	return budget
}

// NTicks returns how many ticks an axis of the given pixel length should
// compute, given the spacing budget per pixel.
func NTicks(lengthPixels float64, pixelsPerTick int) int {
	n := int(lengthPixels) / pixelsPerTick
	if n < 2 {
		n = 2
	}
	return n
}

// QueryCurveForLayout pulls curve's data sized to the plot area described
// by layout: minPoints is derived from PlotWidth via PointBudget, matching
// the pixel-driven resolution the original renderer requests on every
// redraw.
func (c *Chart) QueryCurveForLayout(curve *Curve, layout Layout) (tsdb.QueryResult[observation.Sample], error) {
	return curve.Query(c.XAxis.Span(), PointBudget(layout.PlotWidth))
}

// AggregationRender holds the shapes, built from the five per-aggregate
// polylines (min, max, mean-stddev, mean+stddev, mean), drawn for a curve
// whose query result came back as per-node aggregates rather than raw
// observations: a min/max polygon, a mean-+/-stddev polygon (clipped to
// min/max so it never visually exceeds the envelope it sits inside), and
// the stroked mean line.
type AggregationRender struct {
	MinMaxPolygon []Point
	StdDevPolygon []Point
	MeanLine      []Point
}

// RenderAggregations builds the polygons and mean line for a sequence of
// per-node Aggregations, in plot-area pixel coordinates.
func RenderAggregations(aggs []tsdb.Aggregation[observation.Sample], xAxis, yAxis *ValueAxis, layout Layout) AggregationRender {
	if len(aggs) == 0 {
		return AggregationRender{}
	}

	first := aggs[0].Metrics.(*metrics.SampleMetrics)
	last := aggs[len(aggs)-1].Metrics.(*metrics.SampleMetrics)
	firstPoint := Point{
		X: XDomainToPixel(float64(aggs[0].Span.Start), xAxis, layout),
		Y: YDomainToPixel(first.First, yAxis, layout),
	}
	lastPoint := Point{
		X: XDomainToPixel(float64(aggs[len(aggs)-1].Span.End), xAxis, layout),
		Y: YDomainToPixel(last.Last, yAxis, layout),
	}

	topLine := make([]Point, 0, len(aggs))
	bottomLine := make([]Point, 0, len(aggs))
	stddevHighLine := make([]Point, 0, len(aggs))
	stddevLowLine := make([]Point, 0, len(aggs))
	meanLine := make([]Point, 0, len(aggs)+2)
	meanLine = append(meanLine, firstPoint)

	for _, agg := range aggs {
		sm := agg.Metrics.(*metrics.SampleMetrics)
		mean := sm.Mean()
		stddev := sm.StdDev()

		// Clipping mean +/- stddev to [min, max] keeps the stddev band
		// visually nested inside the min/max envelope even though the
		// unclipped band can mathematically exceed it.
		highValue := sm.Max
		if v := mean + stddev; v < highValue {
			highValue = v
		}
		lowValue := sm.Min
		if v := mean - stddev; v > lowValue {
			lowValue = v
		}

		x := XDomainToPixel(float64(agg.Span.Middle()), xAxis, layout)
		topLine = append(topLine, Point{X: x, Y: YDomainToPixel(sm.Max, yAxis, layout)})
		bottomLine = append(bottomLine, Point{X: x, Y: YDomainToPixel(sm.Min, yAxis, layout)})
		meanLine = append(meanLine, Point{X: x, Y: YDomainToPixel(mean, yAxis, layout)})
		stddevHighLine = append(stddevHighLine, Point{X: x, Y: YDomainToPixel(highValue, yAxis, layout)})
		stddevLowLine = append(stddevLowLine, Point{X: x, Y: YDomainToPixel(lowValue, yAxis, layout)})
	}
	meanLine = append(meanLine, lastPoint)

	minMaxPoly := make([]Point, 0, len(topLine)+len(bottomLine)+2)
	minMaxPoly = append(minMaxPoly, firstPoint)
	minMaxPoly = append(minMaxPoly, topLine...)
	minMaxPoly = append(minMaxPoly, lastPoint)
	minMaxPoly = append(minMaxPoly, reversed(bottomLine)...)

	stddevPoly := make([]Point, 0, len(stddevHighLine)+len(stddevLowLine)+2)
	stddevPoly = append(stddevPoly, firstPoint)
	stddevPoly = append(stddevPoly, stddevHighLine...)
	stddevPoly = append(stddevPoly, lastPoint)
	stddevPoly = append(stddevPoly, reversed(stddevLowLine)...)

	return AggregationRender{
		MinMaxPolygon: minMaxPoly,
		StdDevPolygon: stddevPoly,
		MeanLine:      meanLine,
	}
}

func reversed(points []Point) []Point {
	out := make([]Point, len(points))
	for i, p := range points {
		out[len(points)-1-i] = p
	}
	return out
}

// ObservationRender holds the stroked polyline drawn for a curve whose
// query result came back as raw observations, plus marker points when the
// series is sparse enough that individual samples should stand out.
type ObservationRender struct {
	Line    []Point
	Markers []Point
}

// RenderObservations builds the polyline (and, when the series is sparse
// relative to plotWidth, per-sample markers) for a sequence of raw
// observations, in plot-area pixel coordinates. A series draws markers
// once it has fewer points than one per five aggregation-sized buckets,
// mirroring the original's density threshold for switching from a bare
// line to a line-plus-dots rendering.
func RenderObservations(obs []observation.Observation[observation.Sample], xAxis, yAxis *ValueAxis, layout Layout) ObservationRender {
	line := make([]Point, len(obs))
	for i, o := range obs {
		line[i] = Point{
			X: XDomainToPixel(float64(o.Timestamp), xAxis, layout),
			Y: YDomainToPixel(float64(o.Value), yAxis, layout),
		}
	}

	drawMarkers := len(obs) < int(layout.PlotWidth)/(PixelsPerAggregation*5)
	var markers []Point
	if drawMarkers {
		markers = append([]Point(nil), line...)
	}
	return ObservationRender{Line: line, Markers: markers}
}

// RenderCurve queries curve sized to layout's plot width and renders
// whichever of RenderAggregations/RenderObservations matches the kind of
// result the query returned.
func (c *Chart) RenderCurve(curve *Curve, layout Layout) (AggregationRender, ObservationRender, error) {
	result, err := c.QueryCurveForLayout(curve, layout)
	if err != nil {
		return AggregationRender{}, ObservationRender{}, err
	}
	if result.IsObservations() {
		return AggregationRender{}, RenderObservations(result.Observations, c.XAxis, c.YAxis, layout), nil
	}
	return RenderAggregations(result.Aggregations, c.XAxis, c.YAxis, layout), ObservationRender{}, nil
}
