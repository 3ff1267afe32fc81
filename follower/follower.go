// Package follower runs the closed-loop line following controller.
//
// Each tick reads the reflected light under the line sensor, turns the distance
// from the calibrated edge value into a PID steering correction, and hands it to
// the kinematics steer primitive. The loop runs until the supplied stop indicator
// fires; the controller itself knows nothing about why it stops.
package follower

import (
	"fmt"
	"log"

	"linebot/device"
	"linebot/kinematics"
	"linebot/stop"
)

// SteeringLimit bounds the correction passed to the steer primitive.
const SteeringLimit = 100

// BackwardsSpeedFactor scales the speed when following in reverse.
const BackwardsSpeedFactor = -0.8

// Steerer is the part of the kinematics engine the follower drives.
type Steerer interface {
	Steer(correction, speed float64) error
	Stop() error
}

// Sample is the controller state after one tick.
type Sample struct {
	Tick        int     `json:"tick"`
	Side        string  `json:"side"`
	Reflected   float64 `json:"reflected"`
	Error       float64 `json:"error"`
	Accumulated float64 `json:"accumulated"`
	Direction   float64 `json:"direction"`
	Saturated   bool    `json:"saturated"`
	Speed       float64 `json:"speed"`
}

// Observer receives a Sample every tick. It must not block.
type Observer interface {
	Observe(Sample)
}

// Params describes one follow maneuver. Zero values fall back to the Config.
type Params struct {
	Side  Side
	Speed float64
	Gains *Gains

	// Backwards follows in reverse at BackwardsSpeedFactor of the speed.
	Backwards bool

	// PassThrough leaves the wheels running when the indicator fires so the next
	// maneuver takes over without a halt.
	PassThrough bool

	// Callback runs after every tick. An error aborts the follow.
	Callback func() error
}

// Report summarises a finished follow.
type Report struct {
	Ticks       int
	Saturations int
}

type loopState struct {
	lastError        float64
	accumulatedError float64
	errorPositive    bool
}

// Follower follows a line with one reflectance sensor.
type Follower struct {
	mover    Steerer
	sensor   device.ReflectanceSensor
	cfg      Config
	logger   *log.Logger
	observer Observer

	state loopState
}

// New constructs a follower. A nil logger logs to the standard logger.
func New(mover Steerer, sensor device.ReflectanceSensor, cfg Config, logger *log.Logger) *Follower {
	if logger == nil {
		logger = log.Default()
	}
	return &Follower{mover: mover, sensor: sensor, cfg: cfg, logger: logger}
}

// SetObserver installs an observer for per-tick samples. nil removes it.
func (f *Follower) SetObserver(o Observer) { f.observer = o }

// Config returns the follower configuration.
func (f *Follower) Config() Config { return f.cfg }

// FollowOnLeft follows with the default speed and gains on the left edge.
func (f *Follower) FollowOnLeft(ind stop.Indicator) (Report, error) {
	return f.Follow(ind, Params{Side: Left})
}

// FollowOnRight follows with the default speed and gains on the right edge.
func (f *Follower) FollowOnRight(ind stop.Indicator) (Report, error) {
	return f.Follow(ind, Params{Side: Right})
}

// Follow steers along the line until ind fires, then stops the wheels unless
// p.PassThrough is set.
func (f *Follower) Follow(ind stop.Indicator, p Params) (Report, error) {
	var rep Report
	if ind == nil {
		return rep, fmt.Errorf("%w: nil stop indicator", kinematics.ErrInvalidArgument)
	}

	speed := p.Speed
	if speed == 0 {
		speed = f.cfg.Speed
	}
	gains := f.cfg.Gains
	if p.Gains != nil {
		gains = *p.Gains
	}
	invert := p.Side == Left
	if p.Backwards {
		invert = !invert
		speed *= BackwardsSpeedFactor
	}
	middle := f.cfg.Calibration.Middle()

	if !f.cfg.PersistState {
		f.state = loopState{}
	}
	st := &f.state

	for {
		ended, err := ind.ShouldEnd()
		if err != nil {
			return rep, fmt.Errorf("follow: stop indicator: %w", err)
		}
		if ended {
			break
		}

		reflected, err := f.sensor.Reflected()
		if err != nil {
			return rep, fmt.Errorf("follow: reading reflected light: %w", err)
		}
		e := middle - reflected

		if f.cfg.Integral == IntegralResetOnSignFlip && signFlipped(e, st.errorPositive) {
			st.accumulatedError = 0
		}
		if e != 0 {
			st.errorPositive = e > 0
		}
		st.accumulatedError += e

		direction := gains.Kp*e + gains.Kd*(e-st.lastError) + gains.Ki*st.accumulatedError
		if invert {
			direction = -direction
		}

		saturated := false
		if direction > SteeringLimit || direction < -SteeringLimit {
			raw := direction
			direction = clamp(direction, -SteeringLimit, SteeringLimit)
			saturated = true
			rep.Saturations++
			f.logger.Printf("warning: steering saturated at %+.0f (raw %+.2f)", direction, raw)
		}

		if err := f.mover.Steer(direction, speed); err != nil {
			return rep, fmt.Errorf("follow: steer: %w", err)
		}
		st.lastError = e
		rep.Ticks++

		sample := Sample{
			Tick:        rep.Ticks,
			Side:        p.Side.String(),
			Reflected:   reflected,
			Error:       e,
			Accumulated: st.accumulatedError,
			Direction:   direction,
			Saturated:   saturated,
			Speed:       speed,
		}
		if f.observer != nil {
			f.observer.Observe(sample)
		}
		if f.cfg.Log {
			f.logger.Printf("%6d side=%-5s refl=%5.1f err=%+6.2f acc=%+8.2f dir=%+7.2f",
				sample.Tick, sample.Side, reflected, e, st.accumulatedError, direction)
		}

		if p.Callback != nil {
			if err := p.Callback(); err != nil {
				return rep, fmt.Errorf("follow: callback: %w", err)
			}
		}
	}

	if p.PassThrough {
		return rep, nil
	}
	if err := f.mover.Stop(); err != nil {
		return rep, fmt.Errorf("follow: stop: %w", err)
	}
	return rep, nil
}

// signFlipped reports whether e has the opposite sign of the last non-zero error.
func signFlipped(e float64, wasPositive bool) bool {
	return (e > 0 && !wasPositive) || (e < 0 && wasPositive)
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
