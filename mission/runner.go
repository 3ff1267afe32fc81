package mission

import (
	"errors"
	"fmt"
	"log"

	"linebot/follower"
	"linebot/kinematics"
)

// DefaultLineSensor is the reflectance sensor a follow step reads by default.
const DefaultLineSensor = "line"

// Rig is the robot a mission runs on.
type Rig struct {
	Mover    *kinematics.Mover
	Env      Env
	Follower follower.Config
	Observer follower.Observer
}

// Summary totals a finished mission.
type Summary struct {
	Steps       int
	Ticks       int
	Saturations int
}

// Runner executes missions step by step.
type Runner struct {
	rig       Rig
	logger    *log.Logger
	followers map[string]*follower.Follower
}

// NewRunner validates the rig. A nil logger logs to the standard logger.
func NewRunner(rig Rig, logger *log.Logger) (*Runner, error) {
	if rig.Mover == nil {
		return nil, errors.New("mission: rig has no mover")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{rig: rig, logger: logger, followers: map[string]*follower.Follower{}}, nil
}

// followerFor returns the follower bound to the named reflectance sensor. Followers
// are kept for the runner's lifetime so a persisted loop state carries over.
func (r *Runner) followerFor(name string) (*follower.Follower, error) {
	if name == "" {
		name = DefaultLineSensor
	}
	if f, ok := r.followers[name]; ok {
		return f, nil
	}
	sensor, ok := r.rig.Env.Sensors[name]
	if !ok || sensor == nil {
		return nil, fmt.Errorf("unknown sensor %q", name)
	}
	f := follower.New(r.rig.Mover, sensor, r.rig.Follower, r.logger)
	if r.rig.Observer != nil {
		f.SetObserver(r.rig.Observer)
	}
	r.followers[name] = f
	return f, nil
}

// Run executes the steps in order. On the first failure the wheels are stopped
// and the error is returned with the failing step.
func (r *Runner) Run(m Mission) (Summary, error) {
	var sum Summary
	label := "mission"
	if m.Name != "" {
		label = "mission " + m.Name
	}
	for i, step := range m.Steps {
		r.logger.Printf("%s: step %d/%d %s", label, i+1, len(m.Steps), step)
		if err := r.runStep(step, &sum); err != nil {
			if serr := r.rig.Mover.Stop(); serr != nil {
				r.logger.Printf("%s: stopping after failure: %v", label, serr)
			}
			return sum, fmt.Errorf("%s: step %d (%s): %w", label, i+1, step, err)
		}
		sum.Steps++
	}
	return sum, nil
}

func (r *Runner) runStep(step Step, sum *Summary) error {
	if step.Follow == nil {
		if step.Motion == nil {
			return errors.New("empty step")
		}
		return r.rig.Mover.Execute(step.Motion, step.Block)
	}

	fs := step.Follow
	if fs.Stop == nil {
		return errors.New("follow step without stop")
	}
	ind, err := fs.Stop.Build(r.rig.Env)
	if err != nil {
		return err
	}
	f, err := r.followerFor(fs.Sensor)
	if err != nil {
		return err
	}
	rep, err := f.Follow(ind, follower.Params{
		Side:        fs.Side,
		Speed:       fs.Speed,
		Gains:       fs.Gains,
		Backwards:   fs.Backwards,
		PassThrough: fs.PassThrough,
	})
	sum.Ticks += rep.Ticks
	sum.Saturations += rep.Saturations
	return err
}
