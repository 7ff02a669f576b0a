package output

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
)

// ColorToken is one of the eight basic terminal colors
type ColorToken int

const (
	Black ColorToken = iota
	Red
	Green
	Yellow
	Blue
	Magenta
	Cyan
	White
)

// DefaultColor is used for categories the table has no color for
const DefaultColor = White

var colorNames = [...]string{"black", "red", "green", "yellow", "blue", "magenta", "cyan", "white"}

func (c ColorToken) String() string {
	if c < Black || c > White {
		return fmt.Sprintf("ColorToken(%d)", int(c))
	}
	return colorNames[c]
}

// ParseColor converts a color name such as "cyan" into its token
func ParseColor(name string) (ColorToken, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	for i, cn := range colorNames {
		if cn == n {
			return ColorToken(i), nil
		}
	}
	return 0, fmt.Errorf("unknown color %q", name)
}

// MarshalText implements encoding.TextMarshaler
func (c ColorToken) MarshalText() ([]byte, error) {
	if c < Black || c > White {
		return nil, fmt.Errorf("invalid color token %d", int(c))
	}
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (c *ColorToken) UnmarshalText(text []byte) error {
	parsed, err := ParseColor(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Wrap surrounds text with the bold foreground escape for c: ESC[1;3Xm text ESC[0m
func (c ColorToken) Wrap(text string) string {
	fg := color.FgBlack + color.Attribute(c)
	return fmt.Sprintf("\x1b[%d;%dm%s\x1b[%dm", color.Bold, fg, text, color.Reset)
}
