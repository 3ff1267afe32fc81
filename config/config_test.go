package config

import (
	"io"
	"log"
	"math"
	"os"
	"path/filepath"
	"testing"

	"linebot/device"
	"linebot/follower"
	"linebot/kinematics"
	"linebot/mission"
	"linebot/sim"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "linebot.json")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
	if cfg.Link.Kind != LinkSim || cfg.Follower.Speed != 40 || cfg.Robot.WheelRadius != 28 {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
}

func TestLoadOverlaysDefaults(t *testing.T) {
	path := writeConfig(t, `{
		"robot": {"wheel_radius": 40.8, "chassis_radius": 57.5},
		"follower": {"gains": {"kp": 0.4, "kd": 1.0}, "integral": "accumulate"},
		"link": {"kind": "udp", "udp": {"robot_addr": "10.0.0.2:9101"}},
		"sim": {"robot": {"regulator": {"p": 10}}},
		"log": {"enabled": true},
		"mission": {"name": "m1", "steps": [{"kind": "follow", "side": "left", "stop": {"kind": "never"}}]}
	}`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Robot.WheelRadius != 40.8 || cfg.Robot.ChassisRadius != 57.5 {
		t.Fatalf("robot = %+v", cfg.Robot)
	}
	if cfg.Follower.Gains.Kp != 0.4 || cfg.Follower.Integral != follower.IntegralAccumulate {
		t.Fatalf("follower = %+v", cfg.Follower)
	}
	// Fields the file leaves out keep their defaults.
	if cfg.Follower.Speed != 40 || cfg.Follower.Calibration.White != 85 {
		t.Fatalf("follower defaults lost: %+v", cfg.Follower)
	}
	if cfg.Link.Kind != LinkUDP || cfg.Link.UDP.RobotAddr != "10.0.0.2:9101" || cfg.Link.UDP.ListenAddr == "" {
		t.Fatalf("link = %+v", cfg.Link)
	}
	if reg := cfg.Sim.Robot.Regulator; reg == nil || reg.P != 10 || reg.MaxAccel != 8000 {
		t.Fatalf("regulator = %+v", reg)
	}
	if !cfg.Log.Enabled || cfg.Mission.Name != "m1" || len(cfg.Mission.Steps) != 1 {
		t.Fatalf("log/mission = %+v %+v", cfg.Log, cfg.Mission)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatal("expected error for missing file")
	}
	for _, body := range []string{
		`{`,
		`{"link": {"kind": "carrier-pigeon"}}`,
		`{"robot": {"wheel_radius": 0}}`,
		`{"follower": {"speed": 150}}`,
		`{"follower": {"calibration": {"white": 10, "black": 80}}}`,
		`{"link": {"kind": "serial", "serial": {"port": ""}}}`,
		`{"mission": {"steps": [{"kind": "hover"}]}}`,
	} {
		if _, err := Load(writeConfig(t, body)); err == nil {
			t.Errorf("Load(%s): expected error", body)
		}
	}
}

func TestParseLinkKind(t *testing.T) {
	for in, want := range map[string]LinkKind{"sim": LinkSim, " UDP ": LinkUDP, "serial": LinkSerial} {
		got, err := ParseLinkKind(in)
		if err != nil || got != want {
			t.Errorf("ParseLinkKind(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseLinkKind("wifi"); err == nil {
		t.Fatal("expected error")
	}
	if LinkSerial.String() != "serial" {
		t.Fatalf("String = %s", LinkSerial)
	}
	if err := (AppConfig{}).Validate(); err == nil {
		t.Fatal("zero config should not validate")
	}
}

func TestGeometryFollowsLink(t *testing.T) {
	cfg := Default()
	cfg.Robot.WheelRadius = 40.8
	if g := cfg.Geometry(); g != cfg.Sim.Robot.Geometry {
		t.Fatalf("sim link plans with %+v, want the simulated robot's %+v", g, cfg.Sim.Robot.Geometry)
	}
	cfg.Link.Kind = LinkUDP
	if g := cfg.Geometry(); g.WheelRadius != 40.8 {
		t.Fatalf("udp link plans with %+v, want robot geometry", g)
	}
}

func TestDemoMissionOnSimulator(t *testing.T) {
	cfg := Default()
	robot, err := sim.NewRobot(cfg.Sim.Robot, cfg.Sim.Track)
	if err != nil {
		t.Fatal(err)
	}
	mover, err := kinematics.NewMover(cfg.Geometry(), robot)
	if err != nil {
		t.Fatal(err)
	}
	r, err := mission.NewRunner(mission.Rig{
		Mover: mover,
		Env: mission.Env{
			Sensors: map[string]device.Sensor{"line": robot.Line(), "side": robot.Side()},
			Clock:   robot,
			Beeper:  robot,
		},
		Follower: cfg.Follower,
	}, log.New(io.Discard, "", 0))
	if err != nil {
		t.Fatal(err)
	}

	sum, err := r.Run(DemoMission())
	if err != nil {
		t.Fatal(err)
	}
	if sum.Steps != 2 {
		t.Fatalf("steps = %d, want 2", sum.Steps)
	}
	// Three crossings counted, then the red cue.
	if robot.Beeps() != 4 {
		t.Fatalf("beeps = %d, want 4", robot.Beeps())
	}
	if x := robot.Pose().Pos.X; math.Abs(x-1840) > 15 {
		t.Fatalf("stopped at x=%.1f, want ~1840", x)
	}
}
