// Package kinematics converts motion requests for a differential-drive robot into
// left/right wheel commands.
//
// All distances are in millimetres, angles handed in by callers are in degrees of
// robot heading, and wheel angles sent to the motors are in degrees of wheel
// rotation. Speeds are signed motor percentages; the kinematics never converts them
// to linear velocities, so wheel speed ratios are what carry geometric meaning.
package kinematics

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidArgument marks an out-of-contract motion request.
var ErrInvalidArgument = errors.New("invalid argument")

// WheelGeometry describes the drive train.
type WheelGeometry struct {
	WheelRadius   float64 `json:"wheel_radius"`   // mm
	ChassisRadius float64 `json:"chassis_radius"` // mm, half the track width
}

// NewWheelGeometry validates and returns a geometry.
func NewWheelGeometry(wheelRadius, chassisRadius float64) (WheelGeometry, error) {
	g := WheelGeometry{WheelRadius: wheelRadius, ChassisRadius: chassisRadius}
	if err := g.Validate(); err != nil {
		return WheelGeometry{}, err
	}
	return g, nil
}

// Validate checks that both radii are strictly positive.
func (g WheelGeometry) Validate() error {
	if !(g.WheelRadius > 0) {
		return fmt.Errorf("%w: wheel radius must be > 0, got %v", ErrInvalidArgument, g.WheelRadius)
	}
	if !(g.ChassisRadius > 0) {
		return fmt.Errorf("%w: chassis radius must be > 0, got %v", ErrInvalidArgument, g.ChassisRadius)
	}
	return nil
}

// DistanceToRad returns the wheel rotation in radians that rolls distance mm.
func (g WheelGeometry) DistanceToRad(distance float64) float64 {
	return distance / g.WheelRadius
}

// WheelDegrees returns the wheel rotation in degrees that rolls distance mm.
func (g WheelGeometry) WheelDegrees(distance float64) float64 {
	return RadToDeg(g.DistanceToRad(distance))
}

// DegToRad converts degrees to radians.
func DegToRad(deg float64) float64 {
	return deg * math.Pi / 180
}

// RadToDeg converts radians to degrees.
func RadToDeg(rad float64) float64 {
	return rad / math.Pi * 180
}
