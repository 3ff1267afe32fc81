package kinematics

import (
	"encoding/json"
	"fmt"
)

// MotionCommand is one of Travel, Rotate, Steer or Stop.
type MotionCommand interface {
	motionCommand()
}

// Travel moves straight for Distance mm. With Forever set Distance is ignored and
// the robot keeps driving until the next command.
type Travel struct {
	Distance  float64 `json:"distance"`
	Speed     float64 `json:"speed"`
	Backwards bool    `json:"backwards"`
	Forever   bool    `json:"forever"`
}

// Rotate turns the robot around a centre ArcRadius mm away from its middle.
// A nil Degrees rotates until the next command. ArcRadius 0 pivots in place.
type Rotate struct {
	Degrees   *float64 `json:"degrees"`
	ArcRadius float64  `json:"arc_radius"`
	Clockwise bool     `json:"clockwise"`
	Backwards bool     `json:"backwards"`
	Speed     float64  `json:"speed"`
}

// Steer curves the path continuously. Correction is a percentage in [-100, 100].
type Steer struct {
	Correction float64 `json:"correction"`
	Speed      float64 `json:"speed"`
}

// Stop halts both wheels.
type Stop struct{}

func (Travel) motionCommand() {}
func (Rotate) motionCommand() {}
func (Steer) motionCommand()  {}
func (Stop) motionCommand()   {}

// Degrees returns a pointer to d, for filling Rotate.Degrees.
func Degrees(d float64) *float64 { return &d }

// Command kinds used by the JSON form.
const (
	KindTravel = "travel"
	KindRotate = "rotate"
	KindSteer  = "steer"
	KindStop   = "stop"
)

type commandDisc struct {
	Kind string `json:"kind"`
}

// KindOf returns the JSON discriminator for cmd.
func KindOf(cmd MotionCommand) string {
	switch cmd.(type) {
	case Travel, *Travel:
		return KindTravel
	case Rotate, *Rotate:
		return KindRotate
	case Steer, *Steer:
		return KindSteer
	case Stop, *Stop:
		return KindStop
	default:
		return ""
	}
}

// DecodeCommand reads a command object carrying a "kind" discriminator.
func DecodeCommand(data []byte) (MotionCommand, error) {
	var disc commandDisc
	if err := json.Unmarshal(data, &disc); err != nil {
		return nil, fmt.Errorf("reading command kind: %w", err)
	}

	switch disc.Kind {
	case KindTravel:
		var c Travel
		if err := json.Unmarshal(data, &c); err != nil {
			return nil, fmt.Errorf("travel: %w", err)
		}
		return c, nil
	case KindRotate:
		var c Rotate
		if err := json.Unmarshal(data, &c); err != nil {
			return nil, fmt.Errorf("rotate: %w", err)
		}
		return c, nil
	case KindSteer:
		var c Steer
		if err := json.Unmarshal(data, &c); err != nil {
			return nil, fmt.Errorf("steer: %w", err)
		}
		return c, nil
	case KindStop:
		return Stop{}, nil
	case "":
		return nil, fmt.Errorf("missing \"kind\" field")
	default:
		return nil, fmt.Errorf("unknown command kind %q", disc.Kind)
	}
}
