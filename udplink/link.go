// Package udplink drives a remote robot over UDP.
//
// The robot streams sensor packets to the link and acknowledges finished angle
// commands; the link sends motor commands as CSV payloads:
//
//	robot -> link   S,<sensor>,<color>,<reflected>
//	robot -> link   D,<seq>
//	link  -> robot  ON,<left>,<right>
//	link  -> robot  DEG,<seq>,<left>,<right>,<degrees>
//	link  -> robot  OFF
//	link  -> robot  BEEP
package udplink

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"linebot/device"
)

// ErrTimeout is wrapped in the hardware fault raised when the robot goes quiet.
var ErrTimeout = errors.New("timed out")

// Config controls the UDP sockets and timeouts.
type Config struct {
	ListenAddr   string  `json:"listen_addr"`
	RobotAddr    string  `json:"robot_addr"`
	ReadBuffer   int     `json:"read_buffer"`
	SensorWaitMS float64 `json:"sensor_wait_ms"` // longest wait for a fresh reading
	CommandMS    float64 `json:"command_ms"`     // longest wait for a blocking command
}

func (c Config) sensorWait() time.Duration {
	if c.SensorWaitMS <= 0 {
		return 500 * time.Millisecond
	}
	return time.Duration(c.SensorWaitMS * float64(time.Millisecond))
}

func (c Config) commandWait() time.Duration {
	if c.CommandMS <= 0 {
		return 60 * time.Second
	}
	return time.Duration(c.CommandMS * float64(time.Millisecond))
}

// Link is a remote robot. It implements device.Tank and device.Beeper.
type Link struct {
	cfg   Config
	in    *net.UDPConn
	out   *net.UDPConn
	store *liveStore

	mu  sync.Mutex
	seq uint64
}

// Open binds the listen socket, dials the robot and starts the receive loop.
func Open(cfg Config) (*Link, error) {
	if cfg.ListenAddr == "" {
		return nil, fmt.Errorf("link.listen_addr must be set")
	}
	if cfg.RobotAddr == "" {
		return nil, fmt.Errorf("link.robot_addr must be set")
	}

	laddr, err := net.ResolveUDPAddr("udp", cfg.ListenAddr)
	if err != nil {
		return nil, err
	}
	in, err := net.ListenUDP("udp", laddr)
	if err != nil {
		return nil, err
	}
	raddr, err := net.ResolveUDPAddr("udp", cfg.RobotAddr)
	if err != nil {
		_ = in.Close()
		return nil, err
	}
	out, err := net.DialUDP("udp", nil, raddr)
	if err != nil {
		_ = in.Close()
		return nil, err
	}

	l := &Link{cfg: cfg, in: in, out: out, store: newLiveStore()}
	go serve(in, l.store, cfg.ReadBuffer)
	return l, nil
}

// LocalAddr returns the address sensor packets must be sent to.
func (l *Link) LocalAddr() net.Addr { return l.in.LocalAddr() }

// Close releases both sockets.
func (l *Link) Close() error {
	err := l.in.Close()
	if cerr := l.out.Close(); err == nil {
		err = cerr
	}
	return err
}

func (l *Link) send(format string, args ...any) error {
	payload := fmt.Sprintf(format, args...)
	if _, err := l.out.Write([]byte(payload)); err != nil {
		return device.Fault("udp link", err)
	}
	return nil
}

// On implements device.Tank.
func (l *Link) On(left, right float64) error {
	return l.send("ON,%.2f,%.2f", left, right)
}

// OnForDegrees implements device.Tank. With block set it waits for the robot to
// acknowledge the command.
func (l *Link) OnForDegrees(left, right, degrees float64, block bool) error {
	l.mu.Lock()
	l.seq++
	seq := l.seq
	l.mu.Unlock()

	if err := l.send("DEG,%d,%.2f,%.2f,%.2f", seq, left, right, degrees); err != nil {
		return err
	}
	if !block {
		return nil
	}

	deadline := time.NewTimer(l.cfg.commandWait())
	defer deadline.Stop()
	for {
		done, changed := l.store.Done()
		if done >= seq {
			return nil
		}
		select {
		case <-changed:
		case <-deadline.C:
			return device.Fault("udp link", fmt.Errorf("command %d: %w", seq, ErrTimeout))
		}
	}
}

// Off implements device.Tank.
func (l *Link) Off() error { return l.send("OFF") }

// Beep implements device.Beeper. A failed send is dropped.
func (l *Link) Beep() { _ = l.send("BEEP") }

// Sensor returns the remote sensor reported under name.
func (l *Link) Sensor(name string) *Sensor {
	return &Sensor{link: l, name: name}
}

// Sensor is a remote color sensor. A Reflected read waits for a reading newer
// than the last one it returned, so the control loop runs at the rate the robot
// reports.
type Sensor struct {
	link    *Link
	name    string
	lastSeq uint64
}

func (s *Sensor) fresh(after uint64) (Reading, error) {
	deadline := time.NewTimer(s.link.cfg.sensorWait())
	defer deadline.Stop()
	for {
		r, ok, changed := s.link.store.Snapshot(s.name)
		if ok && r.Seq > after {
			return r, nil
		}
		select {
		case <-changed:
		case <-deadline.C:
			return Reading{}, device.Fault(s.name+" sensor", ErrTimeout)
		}
	}
}

// Color implements device.ColorSensor. It returns the latest reading, waiting
// only until the first one arrives.
func (s *Sensor) Color() (device.Color, error) {
	r, err := s.fresh(0)
	if err != nil {
		return device.Unknown, err
	}
	return r.Color, nil
}

// Reflected implements device.ReflectanceSensor.
func (s *Sensor) Reflected() (float64, error) {
	r, err := s.fresh(s.lastSeq)
	if err != nil {
		return 0, err
	}
	s.lastSeq = r.Seq
	return r.Reflected, nil
}
