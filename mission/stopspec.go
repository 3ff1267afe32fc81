package mission

import (
	"fmt"
	"time"

	"linebot/device"
	"linebot/stop"
)

// Stop spec kinds.
const (
	StopAfterTime     = "after_time"
	StopAtColor       = "at_color"
	StopAfterN        = "after_n"
	StopAllOf         = "all_of"
	StopAnyOf         = "any_of"
	StopNever         = "never"
	StopIntersections = "intersections"
)

// StopSpec describes a stop indicator tree. Which fields apply depends on Kind.
type StopSpec struct {
	Kind string `json:"kind"`

	MS float64 `json:"ms"` // after_time

	Colors  []device.Color `json:"colors"`  // at_color
	Confirm int            `json:"confirm"` // at_color: consecutive matches
	Beep    bool           `json:"beep"`    // at_color; intersections always beep

	Sensor string `json:"sensor"` // at_color, intersections; default "side"

	N               int   `json:"n"`                // after_n, intersections
	InitialDebounce *bool `json:"initial_debounce"` // intersections; default true

	Inner *StopSpec  `json:"inner"` // after_n
	Items []StopSpec `json:"items"` // all_of, any_of
}

// Env supplies the devices indicators read from.
type Env struct {
	Sensors map[string]device.Sensor
	Clock   device.Clock
	Beeper  device.Beeper
}

// DefaultColorSensor is used by color based specs that name no sensor.
const DefaultColorSensor = "side"

func (e Env) colorSensor(name string) (device.ColorSensor, error) {
	if name == "" {
		name = DefaultColorSensor
	}
	s, ok := e.Sensors[name]
	if !ok || s == nil {
		return nil, fmt.Errorf("unknown sensor %q", name)
	}
	return s, nil
}

// Build turns the spec into a fresh indicator.
func (s StopSpec) Build(env Env) (stop.Indicator, error) {
	switch s.Kind {
	case StopAfterTime:
		if s.MS < 0 {
			return nil, fmt.Errorf("%s: ms must be >= 0, got %v", s.Kind, s.MS)
		}
		return stop.AfterTime(env.Clock, time.Duration(s.MS*float64(time.Millisecond))), nil

	case StopAtColor:
		if len(s.Colors) == 0 {
			return nil, fmt.Errorf("%s: colors must not be empty", s.Kind)
		}
		sensor, err := env.colorSensor(s.Sensor)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", s.Kind, err)
		}
		ind := stop.AtColor(sensor, s.Colors...).Confirm(s.Confirm)
		if s.Beep && env.Beeper != nil {
			ind.WithBeeper(env.Beeper)
		}
		return ind, nil

	case StopAfterN:
		if s.Inner == nil {
			return nil, fmt.Errorf("%s: missing \"inner\"", s.Kind)
		}
		if s.N < 1 {
			return nil, fmt.Errorf("%s: n must be >= 1, got %d", s.Kind, s.N)
		}
		inner, err := s.Inner.Build(env)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", s.Kind, err)
		}
		return stop.AfterNTimes(s.N, inner), nil

	case StopAllOf, StopAnyOf:
		items := make([]stop.Indicator, 0, len(s.Items))
		for i, spec := range s.Items {
			ind, err := spec.Build(env)
			if err != nil {
				return nil, fmt.Errorf("%s[%d]: %w", s.Kind, i, err)
			}
			items = append(items, ind)
		}
		if s.Kind == StopAllOf {
			return stop.AllOf(items...), nil
		}
		return stop.AnyOf(items...), nil

	case StopNever:
		return stop.Never(), nil

	case StopIntersections:
		if s.N < 0 {
			return nil, fmt.Errorf("%s: n must be >= 0, got %d", s.Kind, s.N)
		}
		sensor, err := env.colorSensor(s.Sensor)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", s.Kind, err)
		}
		debounce := true
		if s.InitialDebounce != nil {
			debounce = *s.InitialDebounce
		}
		return stop.AfterNIntersections(env.Clock, sensor, s.N, debounce, env.Beeper), nil

	case "":
		return nil, fmt.Errorf("missing stop \"kind\"")
	default:
		return nil, fmt.Errorf("unknown stop kind %q", s.Kind)
	}
}
