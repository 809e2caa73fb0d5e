// Package chart implements the plotting model behind a live chart: value
// axes with pan/zoom and tick calculation, curves backed by either a track
// query or a fixed set of points, and pixel/domain transforms used by a
// renderer.
package chart

import (
	"fmt"
	"math"

	"github.com/grafana/tsdb/pkg/timebase"
)

// Tick is one axis tick: the domain value it sits at and its label.
type Tick struct {
	Value float64
	Label string
}

// ValueAxis is a one-dimensional axis over a closed [Begin, End] domain range,
// supporting panning, zooming, and tick calculation for rendering.
type ValueAxis struct {
	Label string
	begin float64
	end   float64
}

// NewValueAxis returns an axis defaulted to [0, 10], matching a freshly
// created chart before any data has been seen.
func NewValueAxis() *ValueAxis {
	return &ValueAxis{begin: 0, end: 10}
}

func (a *ValueAxis) SetLimits(begin, end float64) {
	a.begin = begin
	a.end = end
}

// CopyLimits takes the begin/end range from other, leaving label untouched.
func (a *ValueAxis) CopyLimits(other *ValueAxis) {
	a.begin = other.begin
	a.end = other.end
}

func (a *ValueAxis) Begin() float64 { return a.begin }
func (a *ValueAxis) End() float64   { return a.end }
func (a *ValueAxis) Domain() float64 {
	return a.end - a.begin
}

func (a *ValueAxis) Contains(v float64) bool {
	return a.begin <= v && v <= a.end
}

// Span returns the axis range as a timebase.Span, for axes that represent
// time.
func (a *ValueAxis) Span() timebase.Span {
	return timebase.NewSpan(timebase.Timestamp(a.begin), timebase.Timestamp(a.end))
}

// Zoom scales the domain by amount (negative zooms in, positive zooms out),
// optionally centered around a domain value. Degenerate domains refuse to
// shrink below or grow above sane bounds.
func (a *ValueAxis) Zoom(amount float64, around *float64) {
	domain := a.Domain()
	if domain < 1e-18 && amount < 0 {
		return
	}
	if domain > 1e18 && amount > 0 {
		return
	}

	leftPercent, rightPercent := 0.5, 0.5
	if around != nil && a.begin < *around && *around < a.end {
		leftPercent = (*around - a.begin) / domain
		rightPercent = 1 - leftPercent
	}

	step := domain * amount * 2
	a.SetLimits(a.begin-step*leftPercent, a.end+step*rightPercent)
}

// PanRelative pans by a fraction of the current domain.
func (a *ValueAxis) PanRelative(amount float64) {
	a.PanAbsolute(a.Domain() * amount)
}

// PanAbsolute shifts both bounds by step.
func (a *ValueAxis) PanAbsolute(step float64) {
	a.SetLimits(a.begin+step, a.end+step)
}

// CalcTicks computes roughly nTicks evenly-spaced major ticks over the axis
// range, at a 1/2/5-scaled power-of-ten step.
func (a *ValueAxis) CalcTicks(nTicks int) []Tick {
	return calcTicks(a.begin, a.end, nTicks)
}

// CalcDateTicks computes ticks as for CalcTicks, but when the axis begin
// value falls in a plausible Unix-time range it instead returns a leading
// absolute-time prefix plus relative "+N s" tick labels.
func (a *ValueAxis) CalcDateTicks(nTicks int) (prefix string, ticks []Tick) {
	if a.begin > 1.0e8 && a.begin < 4.0e9 {
		return calcDateTicks(a.begin, a.end, nTicks)
	}
	return "", calcTicks(a.begin, a.end, nTicks)
}

func calcTicks(begin, end float64, nTicks int) []Tick {
	scale, step := calcTickSpacing(end-begin, nTicks)
	first := ceilToMultipleOf(begin, step)

	var ticks []Tick
	for x := first; x < end; x += step {
		ticks = append(ticks, Tick{Value: x, Label: formatAtScale(x, scale)})
	}
	return ticks
}

// calcTickSpacing chooses a "nice" tick step (a 1/2/5-scaled power of ten)
// closest to dividing domain into n_ticks equal parts.
func calcTickSpacing(domain float64, nTicks int) (scale int, step float64) {
	if nTicks < 2 {
		nTicks = 2
	}
	logScale := math.Floor(math.Log10(domain))
	approx := math.Pow(10, -logScale) * domain / float64(nTicks)

	options := []float64{0.1, 0.2, 0.5, 1.0, 2.0, 5.0}
	best := options[0]
	bestDist := math.Abs(best - approx)
	for _, o := range options[1:] {
		d := math.Abs(o - approx)
		if d < bestDist {
			best, bestDist = o, d
		}
	}

	return int(logScale), best * math.Pow(10, logScale)
}

func ceilToMultipleOf(x, step float64) float64 {
	offset := math.Mod(x, step)
	switch {
	case offset > 0:
		return x + step - offset
	case offset < 0:
		return x - offset
	default:
		return x
	}
}

func formatAtScale(value float64, scale int) string {
	switch {
	case scale > 5:
		exp := scale - 1
		factor := math.Pow(10, float64(exp))
		return fmt.Sprintf("%.0fe%d", value/factor, exp)
	case scale > 0:
		return fmt.Sprintf("%.0f", value)
	default:
		digits := -scale + 1
		return fmt.Sprintf("%.*f", digits, value)
	}
}
