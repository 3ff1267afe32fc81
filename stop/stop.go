// Package stop provides composable predicates that decide when a maneuver ends.
//
// An Indicator is evaluated once per control tick. Each indicator owns its
// progress state (time anchors, counters, cursors) and the indicators it wraps;
// Reset returns it to the unevaluated state so it can be used again.
package stop

import (
	"time"

	"linebot/device"
)

// Indicator reports whether the current maneuver should end.
//
// The set of implementations is closed: AfterTime, AtColor, AfterNTimes, AllOf,
// AnyOf and Never.
type Indicator interface {
	// ShouldEnd evaluates the indicator for the current tick.
	ShouldEnd() (bool, error)

	// Reset clears all progress, including that of wrapped indicators.
	Reset()

	indicator()
}

// TimeIndicator fires once its delay has elapsed since the first evaluation.
type TimeIndicator struct {
	clock device.Clock
	delay time.Duration
	end   *time.Time
}

// AfterTime returns an indicator that fires delay after it is first evaluated.
// A nil clock reads the wall clock.
func AfterTime(clock device.Clock, delay time.Duration) *TimeIndicator {
	if clock == nil {
		clock = device.SystemClock{}
	}
	return &TimeIndicator{clock: clock, delay: delay}
}

func (ti *TimeIndicator) ShouldEnd() (bool, error) {
	now := ti.clock.Now()
	if ti.end == nil {
		end := now.Add(ti.delay)
		ti.end = &end
	}
	return now.After(*ti.end), nil
}

func (ti *TimeIndicator) Reset() { ti.end = nil }

func (*TimeIndicator) indicator() {}

// ColorIndicator fires when the sensor sees one of a set of colors.
type ColorIndicator struct {
	sensor  device.ColorSensor
	colors  []device.Color
	confirm int
	beeper  device.Beeper

	seen int
}

// AtColor returns an indicator that fires on the first tick the sensor reads any
// of colors.
func AtColor(sensor device.ColorSensor, colors ...device.Color) *ColorIndicator {
	return &ColorIndicator{sensor: sensor, colors: colors, confirm: 1}
}

// Confirm requires the color to be read on n consecutive evaluations before the
// indicator fires. Values below 1 mean 1.
func (ci *ColorIndicator) Confirm(n int) *ColorIndicator {
	if n < 1 {
		n = 1
	}
	ci.confirm = n
	return ci
}

// WithBeeper sounds b whenever the indicator fires.
func (ci *ColorIndicator) WithBeeper(b device.Beeper) *ColorIndicator {
	ci.beeper = b
	return ci
}

func (ci *ColorIndicator) ShouldEnd() (bool, error) {
	color, err := ci.sensor.Color()
	if err != nil {
		return false, err
	}
	if !ci.matches(color) {
		ci.seen = 0
		return false, nil
	}
	ci.seen++
	if ci.seen < ci.confirm {
		return false, nil
	}
	if ci.beeper != nil {
		ci.beeper.Beep()
	}
	return true, nil
}

func (ci *ColorIndicator) matches(c device.Color) bool {
	for _, want := range ci.colors {
		if c == want {
			return true
		}
	}
	return false
}

func (ci *ColorIndicator) Reset() { ci.seen = 0 }

func (*ColorIndicator) indicator() {}

// CountIndicator fires on the n-th time its inner indicator fires.
type CountIndicator struct {
	n     int
	inner Indicator

	count int
}

// AfterNTimes wraps inner so that the first n-1 times it fires are swallowed:
// each one resets inner and is counted. Values of n below 1 mean 1.
func AfterNTimes(n int, inner Indicator) *CountIndicator {
	if n < 1 {
		n = 1
	}
	return &CountIndicator{n: n, inner: inner}
}

func (ci *CountIndicator) ShouldEnd() (bool, error) {
	if ci.count >= ci.n {
		return true, nil
	}
	ended, err := ci.inner.ShouldEnd()
	if err != nil || !ended {
		return false, err
	}
	ci.count++
	if ci.count >= ci.n {
		return true, nil
	}
	ci.inner.Reset()
	return false, nil
}

// Count returns how many times the inner indicator has fired.
func (ci *CountIndicator) Count() int { return ci.count }

func (ci *CountIndicator) Reset() {
	ci.count = 0
	ci.inner.Reset()
}

func (*CountIndicator) indicator() {}

// SequenceIndicator fires once every item has fired, one after the other.
type SequenceIndicator struct {
	items  []Indicator
	cursor int
}

// AllOf returns an indicator that evaluates only the item at its cursor and
// advances when that item fires. It fires once the cursor passes the last item;
// an empty list fires immediately.
func AllOf(items ...Indicator) *SequenceIndicator {
	return &SequenceIndicator{items: items}
}

func (si *SequenceIndicator) ShouldEnd() (bool, error) {
	if si.cursor >= len(si.items) {
		return true, nil
	}
	ended, err := si.items[si.cursor].ShouldEnd()
	if err != nil || !ended {
		return false, err
	}
	si.cursor++
	return si.cursor >= len(si.items), nil
}

// Cursor returns the index of the item currently being evaluated.
func (si *SequenceIndicator) Cursor() int { return si.cursor }

func (si *SequenceIndicator) Reset() {
	si.cursor = 0
	for _, item := range si.items {
		item.Reset()
	}
}

func (*SequenceIndicator) indicator() {}

// EitherIndicator fires as soon as any item fires.
type EitherIndicator struct {
	items []Indicator
}

// AnyOf returns an indicator that evaluates every item each tick and fires when at
// least one of them does. An empty list never fires.
func AnyOf(items ...Indicator) *EitherIndicator {
	return &EitherIndicator{items: items}
}

func (ei *EitherIndicator) ShouldEnd() (bool, error) {
	fired := false
	for _, item := range ei.items {
		ended, err := item.ShouldEnd()
		if err != nil {
			return false, err
		}
		fired = fired || ended
	}
	return fired, nil
}

func (ei *EitherIndicator) Reset() {
	for _, item := range ei.items {
		item.Reset()
	}
}

func (*EitherIndicator) indicator() {}

type never struct{}

// Never returns an indicator that never fires.
func Never() Indicator { return never{} }

func (never) ShouldEnd() (bool, error) { return false, nil }
func (never) Reset()                   {}
func (never) indicator()               {}
