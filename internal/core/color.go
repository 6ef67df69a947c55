package core

import (
	"fmt"

	"github.com/lucasb-eyer/go-colorful"
)

// Color is an HSL color with hue in degrees and saturation/lightness in
// percent, matching the CSS custom-property form "H S% L%".
type Color struct {
	H int `json:"h"`
	S int `json:"s"`
	L int `json:"l"`
}

// DefaultAmbient is the tint used before any artwork has been analysed.
var DefaultAmbient = Color{H: 280, S: 80, L: 60}

// String renders the color as "H S% L%".
func (c Color) String() string {
	return fmt.Sprintf("%d %d%% %d%%", c.H, c.S, c.L)
}

// Hex renders the color as #rrggbb.
func (c Color) Hex() string {
	return colorful.Hsl(float64(c.H), float64(c.S)/100, float64(c.L)/100).Clamped().Hex()
}

// IsZero reports whether the color is unset.
func (c Color) IsZero() bool {
	return c == Color{}
}
