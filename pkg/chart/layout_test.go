package chart_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/grafana/tsdb/pkg/chart"
)

func TestXAxisPixelRoundTrip(t *testing.T) {
	axis := chart.NewValueAxis()
	axis.SetLimits(10, 1000)
	layout := chart.NewLayout(500, 500)

	pixel := chart.XDomainToPixel(100, axis, layout)
	value := chart.XPixelToDomain(pixel, axis, layout)

	require.InDelta(t, 100, value, 1e-9)
}

func TestYAxisPixelRoundTrip(t *testing.T) {
	axis := chart.NewValueAxis()
	axis.SetLimits(10, 1000)
	layout := chart.NewLayout(500, 500)

	pixel := chart.YDomainToPixel(100, axis, layout)
	value := chart.YPixelToDomain(pixel, axis, layout)

	require.InDelta(t, 100, value, 1e-9)
}

func TestYDomainToPixelIsInverted(t *testing.T) {
	axis := chart.NewValueAxis()
	axis.SetLimits(0, 100)
	layout := chart.NewLayout(500, 500)

	top := chart.YDomainToPixel(100, axis, layout)
	bottom := chart.YDomainToPixel(0, axis, layout)

	require.Less(t, top, bottom)
}

func TestXDomainToPixelClipsToPlotBounds(t *testing.T) {
	axis := chart.NewValueAxis()
	axis.SetLimits(0, 100)
	layout := chart.NewLayout(500, 500)

	require.Equal(t, layout.PlotLeft, chart.XDomainToPixel(-50, axis, layout))
	require.Equal(t, layout.PlotRight, chart.XDomainToPixel(500, axis, layout))
}
