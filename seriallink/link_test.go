package seriallink

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"linebot/device"
)

// fakeBrick answers every complete request line through reply.
type fakeBrick struct {
	reply    func(req string) string
	pending  bytes.Buffer
	out      bytes.Buffer
	requests []string
}

func (b *fakeBrick) Write(p []byte) (int, error) {
	b.pending.Write(p)
	for {
		line, err := b.pending.ReadString('\n')
		if err != nil {
			// Put the partial line back for the next write.
			rest := line
			b.pending.Reset()
			b.pending.WriteString(rest)
			return len(p), nil
		}
		req := strings.TrimSuffix(line, "\n")
		b.requests = append(b.requests, req)
		b.out.WriteString(b.reply(req) + "\n")
	}
}

func (b *fakeBrick) Read(p []byte) (int, error) { return b.out.Read(p) }

func okBrick() *fakeBrick {
	return &fakeBrick{reply: func(req string) string {
		switch {
		case strings.HasPrefix(req, "C "):
			return "C 1"
		case strings.HasPrefix(req, "R "):
			return "R 42.5"
		default:
			return "OK"
		}
	}}
}

func TestMotorRequests(t *testing.T) {
	brick := okBrick()
	l := NewLink(brick)

	if err := l.On(40, -12.5); err != nil {
		t.Fatal(err)
	}
	if err := l.OnForDegrees(30, 15, 215.36, true); err != nil {
		t.Fatal(err)
	}
	if err := l.OnForDegrees(30, 30, 90, false); err != nil {
		t.Fatal(err)
	}
	if err := l.Off(); err != nil {
		t.Fatal(err)
	}
	l.Beep()

	want := []string{
		"ON 40.00 -12.50",
		"DEG 30.00 15.00 215.36 1",
		"DEG 30.00 30.00 90.00 0",
		"OFF",
		"BEEP",
	}
	if strings.Join(brick.requests, "|") != strings.Join(want, "|") {
		t.Fatalf("requests = %q, want %q", brick.requests, want)
	}
}

func TestSensorRequests(t *testing.T) {
	brick := okBrick()
	l := NewLink(brick)
	s := l.Sensor("line")

	c, err := s.Color()
	if err != nil || c != device.Black {
		t.Fatalf("Color = %v, %v", c, err)
	}
	refl, err := s.Reflected()
	if err != nil || refl != 42.5 {
		t.Fatalf("Reflected = %v, %v", refl, err)
	}
	if got := strings.Join(brick.requests, "|"); got != "C line|R line" {
		t.Fatalf("requests = %q", got)
	}
}

func TestErrorsAreHardwareFaults(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		run   func(*Link) error
		msg   string
	}{
		{"motor error", "ERR left motor stalled", func(l *Link) error { return l.On(10, 10) }, "left motor stalled"},
		{"bad ack", "NOPE", func(l *Link) error { return l.Off() }, "NOPE"},
		{"wrong op", "R 10", func(l *Link) error { _, err := l.Sensor("side").Color(); return err }, "unexpected reply"},
		{"bad number", "R bright", func(l *Link) error { _, err := l.Sensor("side").Reflected(); return err }, "bright"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reply := tt.reply
			l := NewLink(&fakeBrick{reply: func(string) string { return reply }})
			err := tt.run(l)
			if !errors.Is(err, device.ErrHardwareFault) {
				t.Fatalf("err = %v, want hardware fault", err)
			}
			if !strings.Contains(err.Error(), tt.msg) {
				t.Fatalf("err = %v, want it to mention %q", err, tt.msg)
			}
		})
	}
}

func TestClosedLineIsFault(t *testing.T) {
	// A brick that never answers leaves the reader at EOF.
	l := NewLink(&fakeBrick{reply: func(string) string { return "" }})
	l.serout.Reset(strings.NewReader(""))
	if err := l.On(1, 1); !errors.Is(err, device.ErrHardwareFault) {
		t.Fatalf("err = %v, want hardware fault", err)
	}
}

func TestAwaitReady(t *testing.T) {
	l := NewLink(&bytes.Buffer{})
	l.serout.Reset(strings.NewReader("READY\n"))
	if err := l.awaitReady(); err != nil {
		t.Fatal(err)
	}
	l.serout.Reset(strings.NewReader("BOOT\n"))
	if err := l.awaitReady(); err == nil {
		t.Fatal("expected error")
	}
}
