package color

import (
	"math"

	"github.com/berfenger/devstate2mqtt/internal/core/domain"
)

// RGBToHSV converts 8-bit channels to hue in degrees [0,360) and
// saturation/brightness in [0,100]. Values are not rounded.
func RGBToHSV(r, g, b int) domain.HSV {
	maxC := max(r, g, b)
	minC := min(r, g, b)
	delta := float64(maxC - minC)

	hsv := domain.HSV{
		Brightness: float64(maxC) / 255 * 100,
	}
	if maxC == 0 || delta == 0 {
		return hsv
	}
	hsv.Saturation = delta / float64(maxC) * 100

	var hue float64
	switch maxC {
	case r:
		hue = math.Mod(float64(g-b)/delta, 6)
	case g:
		hue = float64(b-r)/delta + 2
	default:
		hue = float64(r-g)/delta + 4
	}
	hue *= 60
	if hue < 0 {
		hue += 360
	}
	hsv.Hue = hue
	return hsv
}

// HSVToRGB is the inverse of RGBToHSV. Hue wraps modulo 360, saturation and
// brightness are clamped to [0,100] and channels are rounded to the nearest integer.
func HSVToRGB(h, s, v float64) domain.RGB {
	h = math.Mod(h, 360)
	if h < 0 {
		h += 360
	}
	s = clamp(s, 0, 100) / 100
	v = clamp(v, 0, 100) / 100

	c := v * s
	x := c * (1 - math.Abs(math.Mod(h/60, 2)-1))
	m := v - c

	var r, g, b float64
	switch {
	case h < 60:
		r, g, b = c, x, 0
	case h < 120:
		r, g, b = x, c, 0
	case h < 180:
		r, g, b = 0, c, x
	case h < 240:
		r, g, b = 0, x, c
	case h < 300:
		r, g, b = x, 0, c
	default:
		r, g, b = c, 0, x
	}
	return domain.RGB{
		Red:   int(math.Round((r + m) * 255)),
		Green: int(math.Round((g + m) * 255)),
		Blue:  int(math.Round((b + m) * 255)),
	}
}

func clamp(x, lo, hi float64) float64 {
	if math.IsNaN(x) {
		return lo
	}
	return math.Max(lo, math.Min(hi, x))
}
