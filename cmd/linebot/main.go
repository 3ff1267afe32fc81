package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"

	"github.com/urfave/cli"

	"linebot/config"
	"linebot/device"
	"linebot/kinematics"
	"linebot/mission"
	"linebot/seriallink"
	"linebot/sim"
	"linebot/telemetry"
	"linebot/udplink"
)

func main() {
	app := cli.NewApp()
	app.Name = "linebot"
	app.Usage = "run line following missions on a robot or the simulator"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "config",
			Usage: "path to JSON config (built-in defaults when empty)",
		},
		cli.StringFlag{
			Name:  "mission",
			Usage: "path to a JSON mission, replacing the one in the config",
		},
		cli.BoolFlag{
			Name:  "log",
			Usage: "print one line per control tick",
		},
	}
	app.Commands = []cli.Command{
		{
			Name:  "run",
			Usage: "run the mission on the configured link",
			Flags: []cli.Flag{
				cli.StringFlag{Name: "link", Usage: "override link kind (sim, udp, serial)"},
				cli.StringFlag{Name: "listen-addr", Usage: "override UDP listen addr (host:port)"},
				cli.StringFlag{Name: "robot-addr", Usage: "override UDP robot addr (host:port)"},
				cli.StringFlag{Name: "port", Usage: "override serial port"},
			},
			Action: runAction,
		},
		{
			Name:   "sim",
			Usage:  "run the mission on the simulator and report the final pose",
			Action: simAction,
		},
	}
	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// loadConfig applies the global flags on top of the config file.
func loadConfig(c *cli.Context) (config.AppConfig, error) {
	cfg := config.Default()
	if path := c.GlobalString("config"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return cfg, fmt.Errorf("load config %q: %w", path, err)
		}
		cfg = loaded
	}
	if path := c.GlobalString("mission"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		m, err := mission.Decode(data)
		if err != nil {
			return cfg, fmt.Errorf("mission %q: %w", path, err)
		}
		cfg.Mission = m
	}
	if c.GlobalBool("log") {
		cfg.Log.Enabled = true
	}
	cfg.Follower.Log = cfg.Follower.Log || cfg.Log.Enabled
	return cfg, nil
}

// robot is a connected robot ready to be driven.
type robot struct {
	tank   device.Tank
	env    mission.Env
	closer func() error
}

func connectSim(cfg config.AppConfig) (*sim.Robot, robot, error) {
	r, err := sim.NewRobot(cfg.Sim.Robot, cfg.Sim.Track)
	if err != nil {
		return nil, robot{}, fmt.Errorf("sim: %w", err)
	}
	return r, robot{
		tank: r,
		env: mission.Env{
			Sensors: map[string]device.Sensor{"line": r.Line(), "side": r.Side()},
			Clock:   r,
			Beeper:  r,
		},
		closer: func() error { return nil },
	}, nil
}

func connect(cfg config.AppConfig) (robot, error) {
	switch cfg.Link.Kind {
	case config.LinkSim:
		_, r, err := connectSim(cfg)
		return r, err
	case config.LinkUDP:
		l, err := udplink.Open(cfg.Link.UDP)
		if err != nil {
			return robot{}, fmt.Errorf("udp link: %w", err)
		}
		return robot{
			tank: l,
			env: mission.Env{
				Sensors: map[string]device.Sensor{
					"line": l.Sensor(cfg.Link.LineSensor),
					"side": l.Sensor(cfg.Link.SideSensor),
				},
				Clock:  device.SystemClock{},
				Beeper: l,
			},
			closer: l.Close,
		}, nil
	case config.LinkSerial:
		l, err := seriallink.Open(cfg.Link.Serial)
		if err != nil {
			return robot{}, fmt.Errorf("serial link: %w", err)
		}
		return robot{
			tank: l,
			env: mission.Env{
				Sensors: map[string]device.Sensor{
					"line": l.Sensor(cfg.Link.LineSensor),
					"side": l.Sensor(cfg.Link.SideSensor),
				},
				Clock:  device.SystemClock{},
				Beeper: l,
			},
			closer: l.Close,
		}, nil
	default:
		return robot{}, fmt.Errorf("unsupported link %v", cfg.Link.Kind)
	}
}

// execute runs the configured mission on bot.
func execute(cfg config.AppConfig, bot robot, logger *log.Logger) (mission.Summary, error) {
	mover, err := kinematics.NewMover(cfg.Geometry(), bot.tank)
	if err != nil {
		return mission.Summary{}, err
	}
	sinks := telemetry.Start(cfg.Telemetry, logger)
	defer sinks.Close()

	runner, err := mission.NewRunner(mission.Rig{
		Mover:    mover,
		Env:      bot.env,
		Follower: cfg.Follower,
		Observer: sinks.Observer(),
	}, logger)
	if err != nil {
		return mission.Summary{}, err
	}
	return runner.Run(cfg.Mission)
}

func newLogger(cfg config.AppConfig) *log.Logger {
	return log.New(os.Stderr, cfg.Log.Prefix, log.LstdFlags|log.Lmicroseconds)
}

func runAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if v := c.String("link"); v != "" {
		kind, err := config.ParseLinkKind(v)
		if err != nil {
			return fmt.Errorf("invalid link override %q: %w", v, err)
		}
		cfg.Link.Kind = kind
	}
	if v := c.String("listen-addr"); v != "" {
		cfg.Link.UDP.ListenAddr = v
	}
	if v := c.String("robot-addr"); v != "" {
		cfg.Link.UDP.RobotAddr = v
	}
	if v := c.String("port"); v != "" {
		cfg.Link.Serial.Port = v
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := newLogger(cfg)
	if len(cfg.Mission.Steps) == 0 {
		logger.Printf("mission is empty, nothing to run (set one with --mission or in the config)")
		return nil
	}
	bot, err := connect(cfg)
	if err != nil {
		return err
	}
	defer func() {
		_ = bot.closer()
	}()

	if cfg.Link.Kind != config.LinkSim {
		// Leave the wheels off when interrupted mid-maneuver.
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt)
		go func() {
			<-sig
			if err := bot.tank.Off(); err != nil {
				logger.Printf("stopping wheels: %v", err)
			}
			os.Exit(1)
		}()
	}

	sum, err := execute(cfg, bot, logger)
	if err != nil {
		return err
	}
	logger.Printf("mission done: %d steps, %d ticks, %d saturations", sum.Steps, sum.Ticks, sum.Saturations)
	return nil
}

func simAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	cfg.Link.Kind = config.LinkSim
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := newLogger(cfg)
	if len(cfg.Mission.Steps) == 0 {
		logger.Printf("mission is empty, running the demo mission")
		cfg.Mission = config.DemoMission()
	}
	r, bot, err := connectSim(cfg)
	if err != nil {
		return err
	}
	sum, err := execute(cfg, bot, logger)
	pose := r.Pose()
	fmt.Printf("pose x=%.1f y=%.1f heading=%.1f deg, sim time %v, %d beeps\n",
		pose.Pos.X, pose.Pos.Y, kinematics.RadToDeg(pose.Heading), r.Elapsed(), r.Beeps())
	if err != nil {
		return err
	}
	fmt.Printf("%d steps, %d ticks, %d saturations\n", sum.Steps, sum.Ticks, sum.Saturations)
	return nil
}
