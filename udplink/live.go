package udplink

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"linebot/device"
)

// Reading is the latest report from one robot sensor.
type Reading struct {
	Color     device.Color
	Reflected float64
	At        time.Time
	Seq       uint64
}

type liveStore struct {
	mu       sync.RWMutex
	readings map[string]Reading
	seq      uint64
	done     uint64
	changed  chan struct{}
}

func newLiveStore() *liveStore {
	return &liveStore{readings: map[string]Reading{}, changed: make(chan struct{})}
}

// notify wakes every waiter. Callers hold mu.
func (s *liveStore) notify() {
	close(s.changed)
	s.changed = make(chan struct{})
}

// Update stores the latest reading for a sensor and advances the sequence counter.
func (s *liveStore) Update(sensor string, r Reading) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	r.Seq = s.seq
	s.readings[sensor] = r
	s.notify()
}

// Complete records that the robot finished command seq.
func (s *liveStore) Complete(seq uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if seq > s.done {
		s.done = seq
	}
	s.notify()
}

// Snapshot returns the most recent reading for a sensor.
func (s *liveStore) Snapshot(sensor string) (Reading, bool, <-chan struct{}) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.readings[sensor]
	return r, ok, s.changed
}

// Done returns the highest completed command sequence.
func (s *liveStore) Done() (uint64, <-chan struct{}) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.done, s.changed
}

// serve reads packets until the connection is closed.
func serve(conn *net.UDPConn, store *liveStore, bufSize int) {
	if bufSize <= 0 {
		bufSize = 2048
	}
	buf := make([]byte, bufSize)
	for {
		n, _, err := conn.ReadFromUDP(buf)
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			continue
		}
		pkt, err := parsePacket(buf[:n])
		if err != nil {
			continue
		}
		switch pkt.kind {
		case packetSensor:
			pkt.reading.At = time.Now()
			store.Update(pkt.sensor, pkt.reading)
		case packetDone:
			store.Complete(pkt.seq)
		}
	}
}

type packetKind int

const (
	packetSensor packetKind = iota + 1
	packetDone
)

type packet struct {
	kind    packetKind
	sensor  string
	reading Reading
	seq     uint64
}

// parsePacket parses "S,<sensor>,<color>,<reflected>" and "D,<seq>" payloads.
func parsePacket(b []byte) (packet, error) {
	s := strings.TrimSpace(string(b))
	if s == "" {
		return packet{}, errors.New("empty payload")
	}
	parts := strings.Split(s, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	switch strings.ToUpper(parts[0]) {
	case "S":
		if len(parts) != 4 {
			return packet{}, fmt.Errorf("sensor packet: expected 4 fields, got %d", len(parts))
		}
		if parts[1] == "" {
			return packet{}, errors.New("sensor packet: empty sensor name")
		}
		color, err := parseColorField(parts[2])
		if err != nil {
			return packet{}, err
		}
		refl, err := strconv.ParseFloat(parts[3], 64)
		if err != nil {
			return packet{}, fmt.Errorf("sensor packet: reflected: %w", err)
		}
		return packet{kind: packetSensor, sensor: parts[1], reading: Reading{Color: color, Reflected: refl}}, nil
	case "D":
		if len(parts) != 2 {
			return packet{}, fmt.Errorf("done packet: expected 2 fields, got %d", len(parts))
		}
		seq, err := strconv.ParseUint(parts[1], 10, 64)
		if err != nil {
			return packet{}, fmt.Errorf("done packet: seq: %w", err)
		}
		return packet{kind: packetDone, seq: seq}, nil
	default:
		return packet{}, fmt.Errorf("unknown packet type %q", parts[0])
	}
}

// parseColorField accepts a color name or an EV3 color code.
func parseColorField(value string) (device.Color, error) {
	if code, err := strconv.Atoi(value); err == nil {
		return device.ColorFromCode(code), nil
	}
	return device.ParseColor(value)
}
