// Package ambient derives a UI tint from album artwork.
package ambient

import (
	"errors"
	"image"
	"image/color"
	"math"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/tessro/vibe/internal/core"
)

const (
	// DefaultThreshold is the minimum R+G+B for a pixel to count. Darker
	// pixels (letterboxing, black backgrounds) would drag the mean to black.
	DefaultThreshold = 50

	// DefaultMinLightness keeps the tint usable as a background.
	DefaultMinLightness = 50
)

// ErrNoBrightPixels is returned when every pixel falls below the threshold.
var ErrNoBrightPixels = errors.New("no pixels above brightness threshold")

// Options tunes color extraction.
type Options struct {
	Threshold    int
	MinLightness int
}

// DefaultOptions returns the standard extraction settings.
func DefaultOptions() Options {
	return Options{
		Threshold:    DefaultThreshold,
		MinLightness: DefaultMinLightness,
	}
}

// Extract averages the non-dark pixels of img and returns the mean as HSL
// with lightness floored at opts.MinLightness.
func Extract(img image.Image, opts Options) (core.Color, error) {
	if img == nil {
		return core.Color{}, errors.New("nil image")
	}

	var r, g, b, count uint64
	bounds := img.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			px := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			if int(px.R)+int(px.G)+int(px.B) <= opts.Threshold {
				continue
			}
			r += uint64(px.R)
			g += uint64(px.G)
			b += uint64(px.B)
			count++
		}
	}

	if count == 0 {
		return core.Color{}, ErrNoBrightPixels
	}

	return toHSL(uint8(r/count), uint8(g/count), uint8(b/count), opts.MinLightness), nil
}

func toHSL(r, g, b uint8, minLightness int) core.Color {
	c := colorful.Color{R: float64(r) / 255, G: float64(g) / 255, B: float64(b) / 255}
	h, s, l := c.Hsl()

	out := core.Color{
		H: int(math.Round(h)) % 360,
		S: int(math.Round(s * 100)),
		L: int(math.Round(l * 100)),
	}
	if out.L < minLightness {
		out.L = minLightness
	}
	return out
}
