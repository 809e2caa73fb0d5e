package chart

import (
	"fmt"
	"time"
)

// calcDateTicks computes a leading absolute-time prefix for the first tick
// plus relative "+N s" labels for the rest, matching an axis whose domain is
// plausibly Unix time.
func calcDateTicks(begin, end float64, nTicks int) (prefix string, ticks []Tick) {
	scale, step := calcTickSpacing(end-begin, nTicks)
	first := ceilToMultipleOf(begin, step)

	prefix = f64ToTime(first).Format("2006-01-02 15:04:05.000000000")

	x := first
	count := 0
	for x < end {
		secondsAfterFirst := float64(count) * step
		ticks = append(ticks, Tick{
			Value: x,
			Label: fmt.Sprintf("+%s s", formatAtScale(secondsAfterFirst, scale)),
		})
		x += step
		count++
	}
	return prefix, ticks
}

func f64ToTime(timestamp float64) time.Time {
	seconds := int64(timestamp)
	nanos := int64((timestamp - float64(seconds)) * 1e9)
	return time.Unix(seconds, nanos).Local()
}
