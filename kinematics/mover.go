package kinematics

import (
	"fmt"

	"linebot/device"
)

// Mover owns the drive motors and is the only component that commands them.
type Mover struct {
	geom WheelGeometry
	tank device.Tank
}

// NewMover constructs a mover for the given drive train.
func NewMover(geom WheelGeometry, tank device.Tank) (*Mover, error) {
	if err := geom.Validate(); err != nil {
		return nil, err
	}
	if tank == nil {
		return nil, fmt.Errorf("%w: nil tank", ErrInvalidArgument)
	}
	return &Mover{geom: geom, tank: tank}, nil
}

// Geometry returns the drive train the mover plans for.
func (m *Mover) Geometry() WheelGeometry { return m.geom }

// Travel moves distance mm in a straight line.
func (m *Mover) Travel(distance, speed float64, backwards, block bool) error {
	cmd, err := m.geom.PlanTravel(distance, speed, backwards)
	if err != nil {
		return err
	}
	return m.apply(cmd, block)
}

// TravelForever drives straight until the next command.
func (m *Mover) TravelForever(speed float64, backwards bool) error {
	cmd, err := m.geom.PlanTravelForever(speed, backwards)
	if err != nil {
		return err
	}
	return m.apply(cmd, false)
}

// Rotate turns along an arc. See WheelGeometry.PlanRotate.
func (m *Mover) Rotate(r Rotate, block bool) error {
	cmd, err := m.geom.PlanRotate(r, block)
	if err != nil {
		return err
	}
	return m.apply(cmd, block)
}

// Steer sets the wheels for a continuous curve and returns immediately.
func (m *Mover) Steer(correction, speed float64) error {
	cmd, err := PlanSteer(correction, speed)
	if err != nil {
		return err
	}
	return m.apply(cmd, false)
}

// Stop switches both wheels off. Calling it on stopped wheels is harmless.
func (m *Mover) Stop() error {
	return m.tank.Off()
}

// Execute runs a MotionCommand. block applies to Travel and Rotate only.
func (m *Mover) Execute(cmd MotionCommand, block bool) error {
	switch c := cmd.(type) {
	case Travel:
		if c.Forever {
			return m.TravelForever(c.Speed, c.Backwards)
		}
		return m.Travel(c.Distance, c.Speed, c.Backwards, block)
	case *Travel:
		return m.Execute(*c, block)
	case Rotate:
		return m.Rotate(c, block)
	case *Rotate:
		return m.Rotate(*c, block)
	case Steer:
		return m.Steer(c.Correction, c.Speed)
	case *Steer:
		return m.Steer(c.Correction, c.Speed)
	case Stop, *Stop:
		return m.Stop()
	default:
		return fmt.Errorf("%w: unsupported motion command %T", ErrInvalidArgument, cmd)
	}
}

func (m *Mover) apply(cmd WheelCommand, block bool) error {
	if cmd.Open {
		return m.tank.On(cmd.Left, cmd.Right)
	}
	return m.tank.OnForDegrees(cmd.Left, cmd.Right, cmd.Degrees, block)
}
