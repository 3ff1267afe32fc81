// Package seriallink drives a robot brick over a serial line.
//
// Every request is one text line answered by one line:
//
//	C <sensor>             -> C <code>
//	R <sensor>             -> R <percent>
//	ON <l> <r>             -> OK
//	DEG <l> <r> <deg> <b>  -> OK (sent after the move when b is 1)
//	OFF                    -> OK
//	BEEP                   -> OK
//
// Any request may be answered with "ERR <message>", reported as a hardware
// fault.
package seriallink

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/tarm/serial"

	"linebot/device"
)

// Config selects the serial port.
type Config struct {
	Port          string  `json:"port"`
	Baud          int     `json:"baud"`
	ReadTimeoutMS float64 `json:"read_timeout_ms"`
	Handshake     bool    `json:"handshake"` // wait for "READY" after opening
}

// Link is a robot brick on a serial line. It implements device.Tank and
// device.Beeper.
type Link struct {
	mu     sync.Mutex
	closer io.Closer
	serout *bufio.Reader
	serin  *bufio.Writer
}

// Open opens the port and optionally waits for the brick to announce itself.
func Open(cfg Config) (*Link, error) {
	if cfg.Port == "" {
		return nil, fmt.Errorf("link.port must be set")
	}
	baud := cfg.Baud
	if baud <= 0 {
		baud = 115200
	}
	port, err := serial.OpenPort(&serial.Config{
		Name:        cfg.Port,
		Baud:        baud,
		ReadTimeout: time.Duration(cfg.ReadTimeoutMS * float64(time.Millisecond)),
	})
	if err != nil {
		return nil, err
	}
	l := NewLink(port)
	l.closer = port
	if cfg.Handshake {
		if err := l.awaitReady(); err != nil {
			_ = port.Close()
			return nil, err
		}
	}
	return l, nil
}

// NewLink speaks the protocol over rw.
func NewLink(rw io.ReadWriter) *Link {
	return &Link{serout: bufio.NewReader(rw), serin: bufio.NewWriter(rw)}
}

// Close closes the underlying port, if Open created it.
func (l *Link) Close() error {
	if l.closer == nil {
		return nil
	}
	return l.closer.Close()
}

func (l *Link) awaitReady() error {
	ln, err := l.serout.ReadString('\n')
	if err != nil {
		return err
	}
	if ln = strings.TrimSpace(ln); ln != "READY" {
		return fmt.Errorf("expected \"READY\" but got %q", ln)
	}
	return nil
}

// call sends one request line and returns the reply without its trailing newline.
func (l *Link) call(name, format string, args ...any) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, err := fmt.Fprintf(l.serin, format+"\n", args...); err != nil {
		return "", device.Fault(name, err)
	}
	if err := l.serin.Flush(); err != nil {
		return "", device.Fault(name, err)
	}
	ln, err := l.serout.ReadString('\n')
	if err != nil {
		return "", device.Fault(name, err)
	}
	ln = strings.TrimSpace(ln)
	if msg, ok := strings.CutPrefix(ln, "ERR"); ok {
		return "", device.Fault(name, errors.New(strings.TrimSpace(msg)))
	}
	return ln, nil
}

// expectOK runs a request whose only valid answer is OK.
func (l *Link) expectOK(name, format string, args ...any) error {
	ln, err := l.call(name, format, args...)
	if err != nil {
		return err
	}
	if ln != "OK" {
		return device.Fault(name, fmt.Errorf("expected \"OK\" but got %q", ln))
	}
	return nil
}

// On implements device.Tank.
func (l *Link) On(left, right float64) error {
	return l.expectOK("tank", "ON %.2f %.2f", left, right)
}

// OnForDegrees implements device.Tank.
func (l *Link) OnForDegrees(left, right, degrees float64, block bool) error {
	b := 0
	if block {
		b = 1
	}
	return l.expectOK("tank", "DEG %.2f %.2f %.2f %d", left, right, degrees, b)
}

// Off implements device.Tank.
func (l *Link) Off() error { return l.expectOK("tank", "OFF") }

// Beep implements device.Beeper. Failures are dropped.
func (l *Link) Beep() { _ = l.expectOK("speaker", "BEEP") }

// Sensor returns the color sensor attached under name.
func (l *Link) Sensor(name string) *Sensor { return &Sensor{link: l, name: name} }

// Sensor is a color sensor on the brick.
type Sensor struct {
	link *Link
	name string
}

// value sends "<op> <sensor>" and parses the "<op> <value>" reply.
func (s *Sensor) value(op string) (string, error) {
	ln, err := s.link.call(s.name+" sensor", "%s %s", op, s.name)
	if err != nil {
		return "", err
	}
	fields := strings.Fields(ln)
	if len(fields) != 2 || fields[0] != op {
		return "", device.Fault(s.name+" sensor", fmt.Errorf("unexpected reply %q", ln))
	}
	return fields[1], nil
}

// Color implements device.ColorSensor.
func (s *Sensor) Color() (device.Color, error) {
	v, err := s.value("C")
	if err != nil {
		return device.Unknown, err
	}
	code, err := strconv.Atoi(v)
	if err != nil {
		return device.Unknown, device.Fault(s.name+" sensor", err)
	}
	return device.ColorFromCode(code), nil
}

// Reflected implements device.ReflectanceSensor.
func (s *Sensor) Reflected() (float64, error) {
	v, err := s.value("R")
	if err != nil {
		return 0, err
	}
	pct, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, device.Fault(s.name+" sensor", err)
	}
	return pct, nil
}
