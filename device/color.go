package device

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Color is a color code reported by a color sensor.
type Color int

const (
	Unknown Color = iota - 1
	NoColor
	Black
	Blue
	Green
	Yellow
	Red
	White
	Brown
)

func (c Color) String() string {
	switch c {
	case Unknown:
		return "UNKNOWN"
	case NoColor:
		return "NO_COLOR"
	case Black:
		return "BLACK"
	case Blue:
		return "BLUE"
	case Green:
		return "GREEN"
	case Yellow:
		return "YELLOW"
	case Red:
		return "RED"
	case White:
		return "WHITE"
	case Brown:
		return "BROWN"
	default:
		return fmt.Sprintf("Color(%d)", int(c))
	}
}

// ParseColor converts a color name into a Color.
func ParseColor(value string) (Color, error) {
	normalized := strings.ToUpper(strings.TrimSpace(value))
	normalized = strings.ReplaceAll(normalized, "-", "_")
	switch normalized {
	case "UNKNOWN":
		return Unknown, nil
	case "NO_COLOR", "NOCOLOR", "NONE":
		return NoColor, nil
	case "BLACK":
		return Black, nil
	case "BLUE":
		return Blue, nil
	case "GREEN":
		return Green, nil
	case "YELLOW":
		return Yellow, nil
	case "RED":
		return Red, nil
	case "WHITE":
		return White, nil
	case "BROWN":
		return Brown, nil
	default:
		return Unknown, fmt.Errorf("unknown color %q", value)
	}
}

// ColorFromCode maps an EV3 color sensor code (0 none, 1 black ... 7 brown) to a Color.
func ColorFromCode(code int) Color {
	if code < int(NoColor) || code > int(Brown) {
		return Unknown
	}
	return Color(code)
}

// MarshalJSON writes the color name.
func (c Color) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

// UnmarshalJSON accepts a color name or an EV3 color code.
func (c *Color) UnmarshalJSON(b []byte) error {
	var name string
	if err := json.Unmarshal(b, &name); err == nil {
		parsed, err := ParseColor(name)
		if err != nil {
			return err
		}
		*c = parsed
		return nil
	}

	var code int
	if err := json.Unmarshal(b, &code); err != nil {
		return err
	}
	*c = ColorFromCode(code)
	return nil
}
