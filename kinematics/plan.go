package kinematics

import (
	"fmt"
	"math"
)

// MaxSpeed is the largest motor speed percentage.
const MaxSpeed = 100

// WheelCommand is a planned pair of wheel speeds.
//
// When Open is false the wheels run until the faster one has turned Degrees;
// otherwise they run until the next command.
type WheelCommand struct {
	Left    float64
	Right   float64
	Degrees float64
	Open    bool
}

// PlanTravel drives both wheels at the same speed for |distance| mm.
// A negative distance or backwards reverses the wheels; both together cancel out.
func (g WheelGeometry) PlanTravel(distance, speed float64, backwards bool) (WheelCommand, error) {
	if err := checkSpeed(speed); err != nil {
		return WheelCommand{}, err
	}
	if distance < 0 {
		backwards = !backwards
	}
	s := speed
	if backwards {
		s = -speed
	}
	return WheelCommand{Left: s, Right: s, Degrees: g.WheelDegrees(math.Abs(distance))}, nil
}

// PlanTravelForever drives both wheels at the same speed with no angle target.
func (g WheelGeometry) PlanTravelForever(speed float64, backwards bool) (WheelCommand, error) {
	if err := checkSpeed(speed); err != nil {
		return WheelCommand{}, err
	}
	s := speed
	if backwards {
		s = -speed
	}
	return WheelCommand{Left: s, Right: s, Open: true}, nil
}

// ArcDistances returns the distance rolled by the inside and outside wheel while
// the robot sweeps degrees around a turn centre arcRadius mm from its middle.
// The inside distance is negative when the turn centre lies between the wheels.
func (g WheelGeometry) ArcDistances(degrees, arcRadius float64) (inside, outside float64) {
	rad := DegToRad(degrees)
	inside = (arcRadius - g.ChassisRadius) * rad
	outside = (arcRadius + g.ChassisRadius) * rad
	return inside, outside
}

// PlanRotate computes the wheel speeds for an arc turn.
//
// The outside wheel runs at r.Speed and the inside wheel at the speed that makes it
// finish its shorter (or reversed) arc in the same time.
func (g WheelGeometry) PlanRotate(r Rotate, block bool) (WheelCommand, error) {
	if err := checkSpeed(r.Speed); err != nil {
		return WheelCommand{}, err
	}
	if r.ArcRadius < 0 || math.IsNaN(r.ArcRadius) {
		return WheelCommand{}, fmt.Errorf("%w: arc radius must be >= 0, got %v", ErrInvalidArgument, r.ArcRadius)
	}

	var cmd WheelCommand
	var insideSpeed float64
	if r.Degrees == nil {
		if block {
			return WheelCommand{}, fmt.Errorf("%w: cannot rotate forever with block set", ErrInvalidArgument)
		}
		insideSpeed = (r.ArcRadius - g.ChassisRadius) / (r.ArcRadius + g.ChassisRadius) * r.Speed
		cmd.Open = true
	} else {
		degrees := *r.Degrees
		if !(degrees > 0) {
			return WheelCommand{}, fmt.Errorf(
				"%w: cannot rotate %v degrees, use Clockwise to choose the direction", ErrInvalidArgument, degrees)
		}
		inside, outside := g.ArcDistances(degrees, r.ArcRadius)
		t := outside / r.Speed
		insideSpeed = inside / t
		cmd.Degrees = g.WheelDegrees(outside)
	}

	switch {
	case r.Clockwise && !r.Backwards:
		cmd.Left, cmd.Right = r.Speed, insideSpeed
	case r.Clockwise && r.Backwards:
		cmd.Left, cmd.Right = -insideSpeed, -r.Speed
	case !r.Clockwise && !r.Backwards:
		cmd.Left, cmd.Right = insideSpeed, r.Speed
	default:
		cmd.Left, cmd.Right = -r.Speed, -insideSpeed
	}
	return cmd, nil
}

// PlanSteer slows one wheel to curve the path. +100 pivots right, -100 pivots left.
func PlanSteer(correction, speed float64) (WheelCommand, error) {
	if correction < -100 || correction > 100 || math.IsNaN(correction) {
		return WheelCommand{}, fmt.Errorf("%w: steering must be within [-100, 100], got %v", ErrInvalidArgument, correction)
	}
	if math.Abs(speed) > MaxSpeed || math.IsNaN(speed) {
		return WheelCommand{}, fmt.Errorf("%w: speed must be within [-%d, %d], got %v", ErrInvalidArgument, MaxSpeed, MaxSpeed, speed)
	}

	inside := speed - speed*math.Abs(correction)/50
	if correction >= 0 {
		return WheelCommand{Left: speed, Right: inside, Open: true}, nil
	}
	return WheelCommand{Left: inside, Right: speed, Open: true}, nil
}

func checkSpeed(speed float64) error {
	if !(speed > 0) {
		return fmt.Errorf("%w: speed must be > 0, got %v", ErrInvalidArgument, speed)
	}
	if speed > MaxSpeed {
		return fmt.Errorf("%w: speed must be <= %d, got %v", ErrInvalidArgument, MaxSpeed, speed)
	}
	return nil
}
