// Package device declares the hardware capabilities the motion core consumes.
//
// Conventions:
//   - wheel speeds are signed percentages of the motor's maximum speed in [-100, +100].
//   - wheel angles are in degrees of wheel rotation.
//   - reflected light is a percentage in [0, 100].
package device

import (
	"errors"
	"fmt"
	"time"
)

// ErrHardwareFault marks a sensor or motor I/O failure. Nothing in the core retries it.
var ErrHardwareFault = errors.New("hardware fault")

// Fault wraps err as a hardware fault on the named device.
func Fault(name string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %s: %w", ErrHardwareFault, name, err)
}

// ColorSensor reports the color under the sensor.
type ColorSensor interface {
	Color() (Color, error)
}

// ReflectanceSensor reports the amount of reflected light.
type ReflectanceSensor interface {
	Reflected() (float64, error)
}

// Sensor is a color sensor that can also run in reflected-light mode.
type Sensor interface {
	ColorSensor
	ReflectanceSensor
}

// Tank drives the left and right wheels as a pair.
type Tank interface {
	// On runs both wheels until the next command.
	On(left, right float64) error

	// OnForDegrees runs both wheels until the faster wheel has turned degrees.
	// With block set it returns only once the rotation finished.
	OnForDegrees(left, right, degrees float64, block bool) error

	// Off stops both wheels.
	Off() error
}

// Clock is a monotonic time source.
type Clock interface {
	Now() time.Time
}

// Beeper emits an audible signal without waiting for it to finish.
type Beeper interface {
	Beep()
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }
