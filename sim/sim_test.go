package sim

import (
	"bytes"
	"errors"
	"log"
	"math"
	"testing"
	"time"

	"github.com/golang/geo/r2"

	"linebot/device"
	"linebot/follower"
	"linebot/kinematics"
	"linebot/stop"
)

func newRig(t *testing.T, start Pose) (*Robot, *kinematics.Mover, *follower.Follower) {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Start = start
	robot, err := NewRobot(cfg, DefaultTrack())
	if err != nil {
		t.Fatal(err)
	}
	mover, err := kinematics.NewMover(cfg.Geometry, robot)
	if err != nil {
		t.Fatal(err)
	}
	f := follower.New(mover, robot.Line(), follower.DefaultConfig(), log.New(&bytes.Buffer{}, "", 0))
	return robot, mover, f
}

func TestTrackReadings(t *testing.T) {
	tr := DefaultTrack()
	tests := []struct {
		p     r2.Point
		refl  float64
		color device.Color
	}{
		{r2.Point{X: 100, Y: 0}, 10, device.Black},
		{r2.Point{X: 100, Y: 200}, 85, device.White},
		{r2.Point{X: 100, Y: -10}, 47.5, device.Black},
		{r2.Point{X: 400, Y: 60}, 10, device.Black},
		{r2.Point{X: 400, Y: 300}, 85, device.White},
		{r2.Point{X: 1930, Y: 50}, 40, device.Red},
	}
	for _, tt := range tests {
		if got := tr.ReflectedAt(tt.p); math.Abs(got-tt.refl) > 1e-9 {
			t.Errorf("ReflectedAt(%v) = %v, want %v", tt.p, got, tt.refl)
		}
		if got := tr.ColorAt(tt.p); got != tt.color {
			t.Errorf("ColorAt(%v) = %v, want %v", tt.p, got, tt.color)
		}
	}
}

func TestTravelMovesStraight(t *testing.T) {
	robot, mover, _ := newRig(t, Pose{})
	if err := mover.Travel(200, 30, false, true); err != nil {
		t.Fatal(err)
	}
	p := robot.Pose()
	if math.Abs(p.Pos.X-200) > 3 || math.Abs(p.Pos.Y) > 1e-6 || math.Abs(p.Heading) > 1e-9 {
		t.Fatalf("pose after travel = %+v", p)
	}

	if err := mover.Travel(100, 30, true, true); err != nil {
		t.Fatal(err)
	}
	if x := robot.Pose().Pos.X; math.Abs(x-100) > 5 {
		t.Fatalf("x after reversing = %v, want ~100", x)
	}
}

func TestPivotTurn(t *testing.T) {
	robot, mover, _ := newRig(t, Pose{})
	err := mover.Rotate(kinematics.Rotate{Degrees: kinematics.Degrees(90), Clockwise: true, Speed: 10}, true)
	if err != nil {
		t.Fatal(err)
	}
	p := robot.Pose()
	if got := p.Heading * 180 / math.Pi; math.Abs(got+90) > 2 {
		t.Fatalf("heading = %v degrees, want -90", got)
	}
	if p.Pos.Norm() > 1 {
		t.Fatalf("pivot drifted to %v", p.Pos)
	}
}

func TestArcTurn(t *testing.T) {
	robot, mover, _ := newRig(t, Pose{})
	err := mover.Rotate(kinematics.Rotate{Degrees: kinematics.Degrees(90), ArcRadius: 200, Clockwise: false, Speed: 30}, true)
	if err != nil {
		t.Fatal(err)
	}
	p := robot.Pose()
	if got := p.Heading * 180 / math.Pi; math.Abs(got-90) > 3 {
		t.Fatalf("heading = %v degrees, want 90", got)
	}
	// A quarter circle of radius 200 to the left ends near (200, 200).
	if math.Abs(p.Pos.X-200) > 10 || math.Abs(p.Pos.Y-200) > 10 {
		t.Fatalf("arc ended at %v, want ~(200, 200)", p.Pos)
	}
}

func TestBlockingCommandGivesUp(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxBlockS = 0.05
	robot, err := NewRobot(cfg, DefaultTrack())
	if err != nil {
		t.Fatal(err)
	}
	err = robot.OnForDegrees(20, 20, 3600, true)
	if !errors.Is(err, device.ErrHardwareFault) {
		t.Fatalf("err = %v, want hardware fault", err)
	}
}

func TestFollowPastIntersections(t *testing.T) {
	crossings := DefaultTrack().Crossings
	for _, tt := range []struct {
		side  follower.Side
		start float64
		n     int
	}{
		{follower.Right, -10, 0},
		{follower.Right, -10, 1},
		{follower.Right, -4, 2},
		{follower.Left, 10, 3},
	} {
		robot, _, f := newRig(t, Pose{Pos: r2.Point{Y: tt.start}})
		ind := stop.AfterNIntersections(robot, robot.Side(), tt.n, true, robot)

		rep, err := f.Follow(ind, follower.Params{Side: tt.side})
		if err != nil {
			t.Fatal(err)
		}
		p := robot.Pose()
		want := crossings[tt.n] - 70
		if math.Abs(p.Pos.X-want) > 10 {
			t.Errorf("%v n=%d: stopped at x=%.1f, want ~%.0f", tt.side, tt.n, p.Pos.X, want)
		}
		edge := -10.0
		if tt.side == follower.Left {
			edge = 10
		}
		if math.Abs(p.Pos.Y-edge) > 3 {
			t.Errorf("%v n=%d: y=%.2f, want ~%.0f", tt.side, tt.n, p.Pos.Y, edge)
		}
		if rep.Ticks == 0 || robot.Offs() != 1 {
			t.Errorf("ticks=%d offs=%d", rep.Ticks, robot.Offs())
		}
		if robot.Beeps() != tt.n+1 {
			t.Errorf("%v n=%d: beeps = %d, want %d", tt.side, tt.n, robot.Beeps(), tt.n+1)
		}
	}
}

func TestFollowToColorCue(t *testing.T) {
	robot, _, f := newRig(t, Pose{Pos: r2.Point{Y: 10}})
	ind := stop.AtColor(robot.Side(), device.Red).WithBeeper(robot)
	if _, err := f.Follow(ind, follower.Params{Side: follower.Left}); err != nil {
		t.Fatal(err)
	}
	if x := robot.Pose().Pos.X; math.Abs(x-1840) > 10 {
		t.Fatalf("stopped at x=%.1f, want ~1840", x)
	}
	if robot.Beeps() != 1 {
		t.Fatalf("beeps = %d, want 1", robot.Beeps())
	}
}

func TestFollowForTimeUsesSimClock(t *testing.T) {
	robot, _, f := newRig(t, Pose{Pos: r2.Point{Y: -10}})
	if _, err := f.Follow(stop.AfterTime(robot, time.Second), follower.Params{}); err != nil {
		t.Fatal(err)
	}
	if e := robot.Elapsed(); e < time.Second || e > time.Second+20*time.Millisecond {
		t.Fatalf("elapsed = %v", e)
	}
	if l, r := robot.WheelSpeeds(); l != 0 || r != 0 {
		t.Fatalf("wheels still running: %v %v", l, r)
	}
}

func TestPassThroughKeepsWheelsRunning(t *testing.T) {
	robot, _, f := newRig(t, Pose{Pos: r2.Point{Y: -10}})
	if _, err := f.Follow(stop.AfterTime(robot, 200*time.Millisecond), follower.Params{PassThrough: true}); err != nil {
		t.Fatal(err)
	}
	if l, r := robot.WheelSpeeds(); l == 0 && r == 0 {
		t.Fatal("wheels stopped despite pass-through")
	}
	if robot.Offs() != 0 {
		t.Fatalf("offs = %d", robot.Offs())
	}
}
