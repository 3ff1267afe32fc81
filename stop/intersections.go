package stop

import (
	"time"

	"linebot/device"
)

// CrossingDebounce is how long the line sensor must travel after a crossing
// before another black reading counts as a new crossing.
const CrossingDebounce = 300 * time.Millisecond

// CrossingColors are the colors read when the sensor is over a crossing line.
var CrossingColors = []device.Color{device.Black, device.Brown}

// Crossing fires on a black or brown reading once CrossingDebounce has elapsed.
// A non-nil beeper sounds on every accepted crossing.
func Crossing(clock device.Clock, sensor device.ColorSensor, beeper device.Beeper) Indicator {
	return AllOf(AfterTime(clock, CrossingDebounce), crossingColor(sensor, beeper))
}

func crossingColor(sensor device.ColorSensor, beeper device.Beeper) *ColorIndicator {
	ci := AtColor(sensor, CrossingColors...)
	if beeper != nil {
		ci.WithBeeper(beeper)
	}
	return ci
}

// AfterNIntersections passes n crossings and fires on the next one. A non-nil
// beeper sounds once per crossing counted, the final one included.
//
// With includeInitialDebounce every crossing, the first included, must be preceded
// by CrossingDebounce of travel, which keeps a maneuver started on top of a
// crossing from counting it. Without it the first crossing is accepted at once.
func AfterNIntersections(clock device.Clock, sensor device.ColorSensor, n int, includeInitialDebounce bool, beeper device.Beeper) Indicator {
	if n < 0 {
		n = 0
	}
	if includeInitialDebounce {
		return AfterNTimes(n+1, Crossing(clock, sensor, beeper))
	}
	first := crossingColor(sensor, beeper)
	if n == 0 {
		return first
	}
	return AllOf(first, AfterNTimes(n, Crossing(clock, sensor, beeper)))
}
