package chart

import (
	"github.com/grafana/tsdb/pkg/metrics"
	"github.com/grafana/tsdb/pkg/observation"
	"github.com/grafana/tsdb/pkg/timebase"
	"github.com/grafana/tsdb/pkg/tsdb"
)

// DataSource is the subset of *tsdb.Database a curve needs to pull sample
// data for drawing. Declared locally so chart does not depend on the full
// Database surface.
type DataSource interface {
	Query(name string, span timebase.Span, minPoints int) (tsdb.QueryResult[observation.Sample], error)
	Summary(name string, span *timebase.Span) (tsdb.Aggregation[observation.Sample], error)
}

// Point is a single (x, y) pair used by a points-backed curve.
type Point struct {
	X, Y float64
}

// Curve is one drawable series in a Chart: either backed by a named track
// in a DataSource, queried live on every render, or a fixed slice of
// points supplied directly (e.g. for overlays or annotations).
type Curve struct {
	Label string

	name string
	db   DataSource

	points []Point
}

// NewTraceCurve creates a curve that queries name from db on every render.
func NewTraceCurve(name string, db DataSource) *Curve {
	return &Curve{name: name, db: db}
}

// NewPointsCurve creates a curve backed by a fixed set of points.
func NewPointsCurve(x, y []float64) *Curve {
	n := len(x)
	if len(y) < n {
		n = len(y)
	}
	points := make([]Point, n)
	for i := 0; i < n; i++ {
		points[i] = Point{X: x[i], Y: y[i]}
	}
	return &Curve{points: points}
}

func (c *Curve) isTrace() bool { return c.db != nil }

// Query pulls the data needed to draw this curve within span, asking for
// at least minPoints resolution when backed by a trace.
func (c *Curve) Query(span timebase.Span, minPoints int) (tsdb.QueryResult[observation.Sample], error) {
	if !c.isTrace() {
		obs := make([]observation.Observation[observation.Sample], 0, len(c.points))
		for _, p := range c.points {
			if !span.Contains(timebase.Timestamp(p.X)) {
				continue
			}
			obs = append(obs, observation.New(timebase.Timestamp(p.X), observation.Sample(p.Y)))
		}
		return tsdb.QueryResult[observation.Sample]{Observations: obs}, nil
	}
	return c.db.Query(c.name, span, minPoints)
}

// Summary reports aggregate metrics for this curve, optionally restricted
// to span (nil means the curve's full extent).
func (c *Curve) Summary(span *timebase.Span) (tsdb.Aggregation[observation.Sample], bool) {
	if !c.isTrace() {
		return pointsSummary(c.points, span)
	}
	agg, err := c.db.Summary(c.name, span)
	if err != nil {
		return tsdb.Aggregation[observation.Sample]{}, false
	}
	return agg, true
}

func pointsSummary(points []Point, span *timebase.Span) (tsdb.Aggregation[observation.Sample], bool) {
	if span != nil {
		inSpan := make([]Point, 0, len(points))
		for _, p := range points {
			if span.Contains(timebase.Timestamp(p.X)) {
				inSpan = append(inSpan, p)
			}
		}
		points = inSpan
	}
	if len(points) == 0 {
		return tsdb.Aggregation[observation.Sample]{}, false
	}

	xmin, xmax := points[0].X, points[0].X
	values := make([]float64, len(points))
	for i, p := range points {
		values[i] = p.Y
		if p.X > xmax {
			xmax = p.X
		}
		if p.X < xmin {
			xmin = p.X
		}
	}

	return tsdb.Aggregation[observation.Sample]{
		Metrics: metrics.FromValues(values),
		Count:   int64(len(points)),
		Span:    timebase.NewSpan(timebase.Timestamp(xmin), timebase.Timestamp(xmax)),
	}, true
}
