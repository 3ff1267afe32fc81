// Package sim simulates a differential-drive robot on a printed track.
//
// Conventions:
//   - the main line runs along the x axis, centred on y = 0; x and y in mm.
//   - heading is in radians, 0 along +x, counter-clockwise positive.
//   - crossings are perpendicular bars centred on a given x.
//
// The simulation is single-threaded. Time only advances when the line sensor is
// read in reflected mode or when a blocking wheel command runs, which mirrors one
// control tick per sensor round-trip.
package sim

import (
	"math"

	"github.com/golang/geo/r2"

	"linebot/device"
)

// Cue is a colored patch on the line.
type Cue struct {
	From      float64      `json:"from"`
	To        float64      `json:"to"`
	HalfWidth float64      `json:"half_width"`
	Color     device.Color `json:"color"`
	Reflected float64      `json:"reflected"`
}

// Track describes the printed course.
type Track struct {
	LineWidth float64 `json:"line_width"`
	Blur      float64 `json:"blur"` // width of the edge transition seen by the sensor
	White     float64 `json:"white"`
	Black     float64 `json:"black"`

	Crossings   []float64 `json:"crossings"`
	CrossingArm float64   `json:"crossing_arm"` // half length of a crossing bar
	Cues        []Cue     `json:"cues"`
}

// DefaultTrack returns a straight line with four crossings and a red stop cue.
func DefaultTrack() Track {
	return Track{
		LineWidth:   20,
		Blur:        8,
		White:       85,
		Black:       10,
		Crossings:   []float64{400, 800, 1200, 1600},
		CrossingArm: 120,
		Cues: []Cue{
			{From: 1900, To: 1960, HalfWidth: 80, Color: device.Red, Reflected: 40},
		},
	}
}

// coverage returns how much of the sensor spot is over ink for a feature of the
// given width whose centre is dist away.
func (t Track) coverage(dist, width float64) float64 {
	blur := math.Max(t.Blur, 1e-6)
	return clamp((width/2+blur/2-dist)/blur, 0, 1)
}

// darkness returns the ink coverage at p in [0, 1].
func (t Track) darkness(p r2.Point) float64 {
	d := t.coverage(math.Abs(p.Y), t.LineWidth)
	for _, x := range t.Crossings {
		if math.Abs(p.Y) > t.CrossingArm {
			continue
		}
		d = math.Max(d, t.coverage(math.Abs(p.X-x), t.LineWidth))
	}
	return d
}

func (t Track) cueAt(p r2.Point) (Cue, bool) {
	for _, c := range t.Cues {
		if p.X >= c.From && p.X <= c.To && math.Abs(p.Y) <= c.HalfWidth {
			return c, true
		}
	}
	return Cue{}, false
}

// ReflectedAt returns the reflected light percentage at p.
func (t Track) ReflectedAt(p r2.Point) float64 {
	if c, ok := t.cueAt(p); ok {
		return c.Reflected
	}
	return t.White - (t.White-t.Black)*t.darkness(p)
}

// ColorAt returns the color a sensor reads at p.
func (t Track) ColorAt(p r2.Point) device.Color {
	if c, ok := t.cueAt(p); ok {
		return c.Color
	}
	if t.darkness(p) >= 0.5 {
		return device.Black
	}
	return device.White
}

// clamp keeps value inside [lo, hi].
func clamp(value, lo, hi float64) float64 {
	if value < lo {
		return lo
	}
	if value > hi {
		return hi
	}
	return value
}
