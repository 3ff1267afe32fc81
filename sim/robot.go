package sim

import (
	"fmt"
	"math"
	"time"

	"github.com/felixge/pidctrl"
	"github.com/golang/geo/r2"

	"linebot/device"
	"linebot/kinematics"
)

// Mount places a sensor relative to the robot centre.
type Mount struct {
	Forward float64 `json:"forward"` // mm ahead of the axle
	Lateral float64 `json:"lateral"` // mm to the left
}

// Regulator is the per-wheel speed loop of the motor controller.
type Regulator struct {
	P        float64 `json:"p"`
	I        float64 `json:"i"`
	D        float64 `json:"d"`
	MaxAccel float64 `json:"max_accel"` // deg/s²
}

// Pose is the robot position and heading.
type Pose struct {
	Pos     r2.Point `json:"pos"`
	Heading float64  `json:"heading"`
}

// Config parameterises the simulated robot.
type Config struct {
	Geometry      kinematics.WheelGeometry `json:"geometry"`
	MaxWheelSpeed float64                  `json:"max_wheel_speed"` // wheel deg/s at 100 %
	TickMS        float64                  `json:"tick_ms"`
	MaxBlockS     float64                  `json:"max_block_s"` // longest blocking command
	LineSensor    Mount                    `json:"line_sensor"`
	SideSensor    Mount                    `json:"side_sensor"`
	Regulator     *Regulator               `json:"regulator"`
	Start         Pose                     `json:"start"`
}

// DefaultConfig matches the competition chassis.
func DefaultConfig() Config {
	return Config{
		Geometry:      kinematics.WheelGeometry{WheelRadius: 28, ChassisRadius: 67},
		MaxWheelSpeed: 1050,
		TickMS:        10,
		MaxBlockS:     120,
		LineSensor:    Mount{Forward: 60},
		SideSensor:    Mount{Forward: 60, Lateral: 50},
		Regulator:     &Regulator{P: 25, MaxAccel: 8000},
		Start:         Pose{Pos: r2.Point{X: 0, Y: -10}},
	}
}

type wheel struct {
	target float64 // deg/s
	actual float64 // deg/s
	angle  float64 // deg
	pid    *pidctrl.PIDController
}

func (w *wheel) step(dt time.Duration) {
	if w.pid == nil {
		w.actual = w.target
	} else {
		w.pid.Set(w.target)
		accel := w.pid.UpdateDuration(w.actual, dt)
		w.actual += accel * dt.Seconds()
	}
	w.angle += w.actual * dt.Seconds()
}

func (w *wheel) halt() {
	w.target = 0
	w.actual = 0
}

type angleGoal struct {
	startLeft, startRight float64
	degrees               float64
	useLeft               bool
}

// Robot is a simulated robot. It implements device.Tank, device.Clock and
// device.Beeper; Line and Side return its sensors.
type Robot struct {
	cfg   Config
	track Track
	tick  time.Duration

	pose  Pose
	now   time.Time
	left  wheel
	right wheel
	goal  *angleGoal

	beeps int
	offs  int
}

// NewRobot places a robot at cfg.Start on track.
func NewRobot(cfg Config, track Track) (*Robot, error) {
	if err := cfg.Geometry.Validate(); err != nil {
		return nil, err
	}
	if cfg.MaxWheelSpeed <= 0 {
		return nil, fmt.Errorf("max_wheel_speed must be > 0")
	}
	if cfg.TickMS <= 0 {
		return nil, fmt.Errorf("tick_ms must be > 0")
	}
	r := &Robot{
		cfg:   cfg,
		track: track,
		tick:  time.Duration(cfg.TickMS * float64(time.Millisecond)),
		pose:  cfg.Start,
		now:   time.Unix(0, 0),
	}
	if reg := cfg.Regulator; reg != nil {
		limit := reg.MaxAccel
		if limit <= 0 {
			limit = math.Inf(1)
		}
		r.left.pid = pidctrl.NewPIDController(reg.P, reg.I, reg.D).SetOutputLimits(-limit, limit)
		r.right.pid = pidctrl.NewPIDController(reg.P, reg.I, reg.D).SetOutputLimits(-limit, limit)
	}
	return r, nil
}

// Now returns the simulated time.
func (r *Robot) Now() time.Time { return r.now }

// Elapsed returns the simulated time since the start.
func (r *Robot) Elapsed() time.Duration { return r.now.Sub(time.Unix(0, 0)) }

// Pose returns the current pose.
func (r *Robot) Pose() Pose { return r.pose }

// Beep counts a beep.
func (r *Robot) Beep() { r.beeps++ }

// Beeps returns how many beeps were emitted.
func (r *Robot) Beeps() int { return r.beeps }

// Offs returns how many times the wheels were switched off.
func (r *Robot) Offs() int { return r.offs }

// WheelSpeeds returns the commanded wheel speeds in percent.
func (r *Robot) WheelSpeeds() (left, right float64) {
	return r.left.target / r.cfg.MaxWheelSpeed * 100, r.right.target / r.cfg.MaxWheelSpeed * 100
}

func (r *Robot) setTargets(left, right float64) {
	r.left.target = left / 100 * r.cfg.MaxWheelSpeed
	r.right.target = right / 100 * r.cfg.MaxWheelSpeed
}

// On implements device.Tank.
func (r *Robot) On(left, right float64) error {
	r.goal = nil
	r.setTargets(left, right)
	return nil
}

// OnForDegrees implements device.Tank. The faster wheel turns degrees.
func (r *Robot) OnForDegrees(left, right, degrees float64, block bool) error {
	r.setTargets(left, right)
	r.goal = &angleGoal{
		startLeft:  r.left.angle,
		startRight: r.right.angle,
		degrees:    math.Abs(degrees),
		useLeft:    math.Abs(left) >= math.Abs(right),
	}
	if left == 0 && right == 0 || degrees == 0 {
		r.halt()
		return nil
	}
	if !block {
		return nil
	}

	limit := r.now.Add(time.Duration(r.cfg.MaxBlockS * float64(time.Second)))
	for r.goal != nil {
		if r.now.After(limit) {
			r.halt()
			return device.Fault("sim tank", fmt.Errorf("rotation of %.0f degrees did not finish", degrees))
		}
		r.Step()
	}
	return nil
}

// Off implements device.Tank.
func (r *Robot) Off() error {
	r.offs++
	r.halt()
	return nil
}

func (r *Robot) halt() {
	r.goal = nil
	r.left.halt()
	r.right.halt()
}

// Step advances the simulation by one tick.
func (r *Robot) Step() {
	dt := r.tick
	r.left.step(dt)
	r.right.step(dt)

	g := r.cfg.Geometry
	vl := kinematics.DegToRad(r.left.actual) * g.WheelRadius
	vr := kinematics.DegToRad(r.right.actual) * g.WheelRadius
	v := (vl + vr) / 2
	w := (vr - vl) / (2 * g.ChassisRadius)

	s := dt.Seconds()
	mid := r.pose.Heading + w*s/2
	r.pose.Pos = r.pose.Pos.Add(r2.Point{X: math.Cos(mid), Y: math.Sin(mid)}.Mul(v * s))
	r.pose.Heading += w * s
	r.now = r.now.Add(dt)

	if goal := r.goal; goal != nil {
		turned := math.Abs(r.right.angle - goal.startRight)
		if goal.useLeft {
			turned = math.Abs(r.left.angle - goal.startLeft)
		}
		if turned >= goal.degrees {
			r.halt()
		}
	}
}

// SensorPoint returns the world position of a sensor mount.
func (r *Robot) SensorPoint(m Mount) r2.Point {
	ahead := r2.Point{X: math.Cos(r.pose.Heading), Y: math.Sin(r.pose.Heading)}
	return r.pose.Pos.Add(ahead.Mul(m.Forward)).Add(ahead.Ortho().Mul(m.Lateral))
}

// Sensor is a simulated color sensor.
type Sensor struct {
	robot *Robot
	mount Mount
	ticks bool
}

// Line returns the line-following sensor. Reading its reflected light advances
// the simulation by one tick.
func (r *Robot) Line() *Sensor { return &Sensor{robot: r, mount: r.cfg.LineSensor, ticks: true} }

// Side returns the side sensor used to spot crossings and cues.
func (r *Robot) Side() *Sensor { return &Sensor{robot: r, mount: r.cfg.SideSensor} }

// Color implements device.ColorSensor.
func (s *Sensor) Color() (device.Color, error) {
	return s.robot.track.ColorAt(s.robot.SensorPoint(s.mount)), nil
}

// Reflected implements device.ReflectanceSensor.
func (s *Sensor) Reflected() (float64, error) {
	if s.ticks {
		s.robot.Step()
	}
	return s.robot.track.ReflectedAt(s.robot.SensorPoint(s.mount)), nil
}
