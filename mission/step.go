// Package mission runs a scripted sequence of motion and follow steps.
//
// Steps are JSON objects selected by a "kind" field:
//
//	{"kind": "travel", "distance": 200, "speed": 30}
//	{"kind": "rotate", "degrees": 90, "clockwise": true, "speed": 20}
//	{"kind": "follow", "side": "left", "stop": {"kind": "intersections", "n": 2}}
//
// Motion steps block until the wheels finish unless "block" is false.
package mission

import (
	"encoding/json"
	"fmt"

	"linebot/follower"
	"linebot/kinematics"
)

// KindFollow selects a line-follow step.
const KindFollow = "follow"

// Mission is a named list of steps.
type Mission struct {
	Name  string `json:"name"`
	Steps []Step `json:"steps"`
}

// Step is either a motion command or a follow maneuver.
type Step struct {
	Name   string
	Block  bool
	Motion kinematics.MotionCommand
	Follow *FollowStep
}

// FollowStep follows the line until Stop fires.
type FollowStep struct {
	Side        follower.Side   `json:"side"`
	Speed       float64         `json:"speed"`
	Gains       *follower.Gains `json:"gains"`
	Backwards   bool            `json:"backwards"`
	PassThrough bool            `json:"pass_through"`
	Sensor      string          `json:"sensor"` // reflectance sensor, default "line"
	Stop        *StopSpec       `json:"stop"`
}

// Kind returns the step discriminator.
func (s Step) Kind() string {
	if s.Follow != nil {
		return KindFollow
	}
	return kinematics.KindOf(s.Motion)
}

func (s Step) String() string {
	if s.Name != "" {
		return fmt.Sprintf("%s %q", s.Kind(), s.Name)
	}
	return s.Kind()
}

type stepHeader struct {
	Kind  string `json:"kind"`
	Name  string `json:"name"`
	Block *bool  `json:"block"`
}

// UnmarshalJSON decodes a step by its "kind" field.
func (s *Step) UnmarshalJSON(data []byte) error {
	var h stepHeader
	if err := json.Unmarshal(data, &h); err != nil {
		return fmt.Errorf("reading step kind: %w", err)
	}
	step := Step{Name: h.Name, Block: true}
	if h.Block != nil {
		step.Block = *h.Block
	}

	if h.Kind == KindFollow {
		var f FollowStep
		if err := json.Unmarshal(data, &f); err != nil {
			return fmt.Errorf("follow: %w", err)
		}
		if f.Stop == nil {
			return fmt.Errorf("follow: missing \"stop\"")
		}
		step.Follow = &f
	} else {
		cmd, err := kinematics.DecodeCommand(data)
		if err != nil {
			return err
		}
		step.Motion = cmd
	}
	*s = step
	return nil
}

// Decode reads a mission document.
func Decode(data []byte) (Mission, error) {
	var m Mission
	if err := json.Unmarshal(data, &m); err != nil {
		return m, err
	}
	return m, nil
}
