package device

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
)

func TestParseColor(t *testing.T) {
	cases := map[string]Color{
		"black":    Black,
		" Brown ":  Brown,
		"no-color": NoColor,
		"RED":      Red,
		"unknown":  Unknown,
	}
	for in, want := range cases {
		got, err := ParseColor(in)
		if err != nil {
			t.Fatalf("ParseColor(%q): %v", in, err)
		}
		if got != want {
			t.Errorf("ParseColor(%q) = %v, want %v", in, got, want)
		}
	}
	if _, err := ParseColor("purple"); err == nil {
		t.Fatal("expected error for unknown color")
	}
}

func TestColorFromCode(t *testing.T) {
	if got := ColorFromCode(1); got != Black {
		t.Errorf("code 1 = %v, want BLACK", got)
	}
	if got := ColorFromCode(7); got != Brown {
		t.Errorf("code 7 = %v, want BROWN", got)
	}
	if got := ColorFromCode(42); got != Unknown {
		t.Errorf("code 42 = %v, want UNKNOWN", got)
	}
}

func TestColorJSON(t *testing.T) {
	var colors []Color
	if err := json.Unmarshal([]byte(`["black", 5, "white"]`), &colors); err != nil {
		t.Fatal(err)
	}
	if len(colors) != 3 || colors[0] != Black || colors[1] != Red || colors[2] != White {
		t.Fatalf("unexpected colors: %v", colors)
	}
	b, err := json.Marshal(Green)
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `"GREEN"` {
		t.Errorf("marshal = %s", b)
	}
}

func TestFault(t *testing.T) {
	if Fault("left motor", nil) != nil {
		t.Fatal("nil error should stay nil")
	}
	err := Fault("left motor", errors.New("stalled"))
	if !errors.Is(err, ErrHardwareFault) {
		t.Fatalf("expected hardware fault, got %v", err)
	}
	if err.Error() != "hardware fault: left motor: stalled" {
		t.Errorf("unexpected message %q", err.Error())
	}
}

func TestFaultKeepsCause(t *testing.T) {
	cause := errors.New("timed out")
	err := Fault("udp link", fmt.Errorf("command 1: %w", cause))
	if !errors.Is(err, ErrHardwareFault) || !errors.Is(err, cause) {
		t.Fatalf("Fault(...) = %v, want both hardware fault and cause", err)
	}
	if err.Error() != "hardware fault: udp link: command 1: timed out" {
		t.Fatalf("message = %q", err.Error())
	}
}
