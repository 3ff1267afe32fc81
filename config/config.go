// Package config loads the JSON application configuration.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"linebot/device"
	"linebot/follower"
	"linebot/kinematics"
	"linebot/mission"
	"linebot/seriallink"
	"linebot/sim"
	"linebot/telemetry"
	"linebot/udplink"
)

// LinkKind selects the robot the binary drives.
type LinkKind int

const (
	LinkSim LinkKind = iota + 1
	LinkUDP
	LinkSerial
)

func (k LinkKind) String() string {
	switch k {
	case LinkSim:
		return "sim"
	case LinkUDP:
		return "udp"
	case LinkSerial:
		return "serial"
	default:
		return fmt.Sprintf("LinkKind(%d)", int(k))
	}
}

// ParseLinkKind converts a link name into a LinkKind.
func ParseLinkKind(value string) (LinkKind, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "sim":
		return LinkSim, nil
	case "udp":
		return LinkUDP, nil
	case "serial":
		return LinkSerial, nil
	default:
		return LinkSim, fmt.Errorf("unknown link %q", value)
	}
}

// UnmarshalJSON allows link kinds to be loaded from JSON strings.
func (k *LinkKind) UnmarshalJSON(b []byte) error {
	var raw *string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if raw == nil {
		return nil
	}
	parsed, err := ParseLinkKind(*raw)
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// MarshalJSON writes the link name.
func (k LinkKind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

// LinkConfig chooses and configures the robot connection.
type LinkConfig struct {
	Kind       LinkKind          `json:"kind"`
	UDP        udplink.Config    `json:"udp"`
	Serial     seriallink.Config `json:"serial"`
	LineSensor string            `json:"line_sensor"`
	SideSensor string            `json:"side_sensor"`
}

// SimConfig configures the simulated robot and its track.
type SimConfig struct {
	Robot sim.Config `json:"robot"`
	Track sim.Track  `json:"track"`
}

// LogConfig controls console logging.
type LogConfig struct {
	Enabled bool   `json:"enabled"` // one line per control tick
	Prefix  string `json:"prefix"`
}

// AppConfig aggregates all configuration sections.
type AppConfig struct {
	Robot     kinematics.WheelGeometry `json:"robot"`
	Follower  follower.Config          `json:"follower"`
	Link      LinkConfig               `json:"link"`
	Sim       SimConfig                `json:"sim"`
	Telemetry telemetry.Config         `json:"telemetry"`
	Log       LogConfig                `json:"log"`
	Mission   mission.Mission          `json:"mission"`
}

// Default returns the configuration of the competition robot on the simulator.
func Default() AppConfig {
	simCfg := sim.DefaultConfig()
	return AppConfig{
		Robot:    simCfg.Geometry,
		Follower: follower.DefaultConfig(),
		Link: LinkConfig{
			Kind: LinkSim,
			UDP: udplink.Config{
				ListenAddr: "0.0.0.0:9100",
				RobotAddr:  "192.168.0.1:9101",
			},
			Serial: seriallink.Config{
				Port: "/dev/ttyACM0",
				Baud: 115200,
			},
			LineSensor: "line",
			SideSensor: "side",
		},
		Sim:       SimConfig{Robot: simCfg, Track: sim.DefaultTrack()},
		Telemetry: telemetry.Config{Expvar: telemetry.ExpvarConfig{Addr: "127.0.0.1:7070"}},
	}
}

// DemoMission runs on DefaultTrack: it follows the right edge past two crossings,
// stops at the third, then follows on to the red cue.
func DemoMission() mission.Mission {
	return mission.Mission{
		Name: "demo",
		Steps: []mission.Step{
			{Name: "third crossing", Follow: &mission.FollowStep{
				Side: follower.Right,
				Stop: &mission.StopSpec{Kind: mission.StopIntersections, N: 2},
			}},
			{Name: "red cue", Follow: &mission.FollowStep{
				Side: follower.Right,
				Stop: &mission.StopSpec{Kind: mission.StopAtColor, Colors: []device.Color{device.Red}, Beep: true},
			}},
		},
	}
}

// Geometry returns the wheel geometry motions are planned with. On the simulator
// it is the simulated robot's, so plans and the plant always agree.
func (c AppConfig) Geometry() kinematics.WheelGeometry {
	if c.Link.Kind == LinkSim {
		return c.Sim.Robot.Geometry
	}
	return c.Robot
}

// Load reads the JSON config from disk on top of Default.
func Load(path string) (AppConfig, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the settings the robot cannot run without.
func (c AppConfig) Validate() error {
	if err := c.Robot.Validate(); err != nil {
		return fmt.Errorf("robot: %w", err)
	}
	if c.Follower.Speed <= 0 || c.Follower.Speed > kinematics.MaxSpeed {
		return fmt.Errorf("follower.speed must be in (0, %d], got %v", kinematics.MaxSpeed, c.Follower.Speed)
	}
	cal := c.Follower.Calibration
	if cal.White <= cal.Black {
		return fmt.Errorf("follower.calibration.white must be above black")
	}
	if cal.Fraction < 0 || cal.Fraction > 1 {
		return fmt.Errorf("follower.calibration.fraction must be in [0, 1]")
	}
	switch c.Link.Kind {
	case LinkSim:
		if err := c.Sim.Robot.Geometry.Validate(); err != nil {
			return fmt.Errorf("sim.robot: %w", err)
		}
	case LinkUDP:
		if c.Link.UDP.ListenAddr == "" || c.Link.UDP.RobotAddr == "" {
			return fmt.Errorf("link.udp.listen_addr and link.udp.robot_addr must be set")
		}
	case LinkSerial:
		if c.Link.Serial.Port == "" {
			return fmt.Errorf("link.serial.port must be set")
		}
	default:
		return fmt.Errorf("link.kind must be set")
	}
	return nil
}
