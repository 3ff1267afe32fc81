package follower

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Calibration holds the reflected-light readings of the line and the floor.
type Calibration struct {
	White    float64 `json:"white"`
	Black    float64 `json:"black"`
	Fraction float64 `json:"fraction"` // where between black and white the edge is tracked
}

// Middle returns the reflected value the controller steers towards.
func (c Calibration) Middle() float64 {
	return (c.White-c.Black)*c.Fraction + c.Black
}

// Gains are the PID coefficients applied to the reflectance error.
type Gains struct {
	Kp float64 `json:"kp"`
	Kd float64 `json:"kd"`
	Ki float64 `json:"ki"`
}

// IntegralPolicy controls how the accumulated error is managed within one follow.
type IntegralPolicy int

const (
	// IntegralResetOnSignFlip clears the accumulated error whenever the error
	// changes sign.
	IntegralResetOnSignFlip IntegralPolicy = iota
	// IntegralAccumulate keeps accumulating for the whole follow.
	IntegralAccumulate
)

func (p IntegralPolicy) String() string {
	switch p {
	case IntegralResetOnSignFlip:
		return "reset_on_sign_flip"
	case IntegralAccumulate:
		return "accumulate"
	default:
		return fmt.Sprintf("IntegralPolicy(%d)", int(p))
	}
}

// ParseIntegralPolicy converts a policy name into an IntegralPolicy.
func ParseIntegralPolicy(value string) (IntegralPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "reset_on_sign_flip":
		return IntegralResetOnSignFlip, nil
	case "accumulate":
		return IntegralAccumulate, nil
	default:
		return IntegralResetOnSignFlip, fmt.Errorf("unknown integral policy %q", value)
	}
}

// UnmarshalJSON allows policies to be loaded from JSON strings.
func (p *IntegralPolicy) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	parsed, err := ParseIntegralPolicy(raw)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// Side selects which edge of the line the sensor tracks.
type Side int

const (
	Right Side = iota
	Left
)

func (s Side) String() string {
	switch s {
	case Right:
		return "RIGHT"
	case Left:
		return "LEFT"
	default:
		return fmt.Sprintf("Side(%d)", int(s))
	}
}

// ParseSide converts "left" or "right" into a Side.
func ParseSide(value string) (Side, error) {
	switch strings.ToUpper(strings.TrimSpace(value)) {
	case "RIGHT":
		return Right, nil
	case "LEFT":
		return Left, nil
	default:
		return Right, fmt.Errorf("unknown side %q", value)
	}
}

// UnmarshalJSON allows sides to be loaded from JSON strings.
func (s *Side) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	parsed, err := ParseSide(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Config bundles calibration, default gains and loop policy.
type Config struct {
	Calibration  Calibration    `json:"calibration"`
	Gains        Gains          `json:"gains"`
	Speed        float64        `json:"speed"`
	Integral     IntegralPolicy `json:"integral"`
	PersistState bool           `json:"persist_state"` // keep errors across Follow calls
	Log          bool           `json:"log"`           // print one line per tick
}

// DefaultConfig returns the tuning used on the competition robot.
func DefaultConfig() Config {
	return Config{
		Calibration: Calibration{White: 85, Black: 10, Fraction: 0.5},
		Gains:       Gains{Kp: 0.25, Kd: 1.25, Ki: 0},
		Speed:       40,
		Integral:    IntegralResetOnSignFlip,
	}
}
