package chart

import (
	"github.com/grafana/tsdb/pkg/metrics"
	"github.com/grafana/tsdb/pkg/observation"
	"github.com/grafana/tsdb/pkg/timebase"
	"github.com/grafana/tsdb/pkg/tsdb"
)

// Cursor marks a highlighted position on the chart, in domain coordinates.
type Cursor struct {
	X float64
}

// Chart is a single 2D plot: an x/y axis pair plus a set of curves drawn
// against them.
type Chart struct {
	Title string
	Grid  bool

	XAxis *ValueAxis
	YAxis *ValueAxis

	Curves []*Curve
	Cursor *Cursor
}

// NewChart returns an empty chart with grid lines on and default axes.
func NewChart() *Chart {
	return &Chart{
		Grid:  true,
		XAxis: NewValueAxis(),
		YAxis: NewValueAxis(),
	}
}

func (c *Chart) AddCurve(curve *Curve) {
	c.Curves = append(c.Curves, curve)
}

func (c *Chart) ClearCurves() {
	c.Curves = nil
}

func (c *Chart) ZoomHorizontal(amount float64, around *float64) {
	c.XAxis.Zoom(amount, around)
}

func (c *Chart) ZoomVertical(amount float64) {
	c.YAxis.Zoom(amount, nil)
}

func (c *Chart) PanHorizontalRelative(amount float64) {
	c.XAxis.PanRelative(amount)
}

func (c *Chart) PanHorizontalAbsolute(amount float64) {
	c.XAxis.PanAbsolute(amount)
}

func (c *Chart) PanVertical(amount float64) {
	c.YAxis.PanRelative(amount)
}

// FitYAxis adjusts the y-axis to the data visible within the current
// x-axis span.
func (c *Chart) FitYAxis() {
	span := c.XAxis.Span()
	if summary, ok := c.dataSummary(&span); ok {
		c.fitYAxisToMetrics(summary.Metrics)
	}
}

// ZoomToLast sets the x-axis to the trailing tailDuration of whatever data
// is currently available across all curves.
func (c *Chart) ZoomToLast(tailDuration float64) {
	summary, ok := c.dataSummary(nil)
	if !ok {
		return
	}
	end := summary.Span.End
	begin := end - timebase.Timestamp(tailDuration)
	c.XAxis.SetLimits(float64(begin), float64(end))
}

// Autoscale fits both axes to the full extent of all curve data.
func (c *Chart) Autoscale() {
	summary, ok := c.dataSummary(nil)
	if !ok {
		return
	}
	c.fitXAxisToSpan(summary.Span)
	c.fitYAxisToMetrics(summary.Metrics)
}

func (c *Chart) fitYAxisToMetrics(m metrics.Metrics[observation.Sample]) {
	sm, ok := m.(*metrics.SampleMetrics)
	if !ok {
		return
	}
	domain := sm.Max - sm.Min
	if domain < 0 {
		domain = -domain
	}
	if domain < 1e-17 {
		domain = 1
	}
	c.YAxis.SetLimits(sm.Min-0.05*domain, sm.Max+0.05*domain)
}

func (c *Chart) fitXAxisToSpan(span timebase.Span) {
	domain := float64(span.Duration())
	if domain < 0 {
		domain = -domain
	}
	if domain < 1e-18 {
		domain = 1
	}
	c.XAxis.SetLimits(float64(span.Start)-domain*0.05, float64(span.End)+domain*0.05)
}

// dataSummary folds every curve's summary into one aggregation, optionally
// restricted to span.
func (c *Chart) dataSummary(span *timebase.Span) (tsdb.Aggregation[observation.Sample], bool) {
	var acc tsdb.Aggregation[observation.Sample]
	found := false
	for _, curve := range c.Curves {
		agg, ok := curve.Summary(span)
		if !ok {
			continue
		}
		if !found {
			acc = agg
			found = true
			continue
		}
		acc.Metrics.Merge(agg.Metrics)
		acc.Count += agg.Count
		acc.Span = acc.Span.Union(agg.Span)
	}
	return acc, found
}
