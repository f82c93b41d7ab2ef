// Package color converts light colors between RGB, HSV and the packed RGBW string form.
package color

import (
	"fmt"

	"github.com/berfenger/devstate2mqtt/internal/core/convert"
	"github.com/berfenger/devstate2mqtt/internal/core/domain"
)

const DEFAULT_RGBW = "#00000000"

// PackRGBW encodes c as "#RRGGBBWW".
func PackRGBW(c domain.RGBW) string {
	return "#" + convert.IntToHex(c.Red) + convert.IntToHex(c.Green) +
		convert.IntToHex(c.Blue) + convert.IntToHex(c.White)
}

// UnpackRGBW decodes a "#RRGGBBWW" string. An empty string decodes as all zero,
// and a short string leaves the missing channels at zero.
func UnpackRGBW(s string) (domain.RGBW, error) {
	if s == "" {
		s = DEFAULT_RGBW
	}
	var channels [4]int
	for i := range channels {
		part := substr(s, 1+2*i, 2)
		if part == "" {
			part = "00"
		}
		n, err := convert.HexToInt(part)
		if err != nil {
			return domain.RGBW{}, fmt.Errorf("rgbw %q channel %d: %w", s, i, err)
		}
		channels[i] = n
	}
	return domain.RGBW{
		Red:   channels[0],
		Green: channels[1],
		Blue:  channels[2],
		White: channels[3],
	}, nil
}

func substr(s string, start, length int) string {
	if start >= len(s) {
		return ""
	}
	end := start + length
	if end > len(s) {
		end = len(s)
	}
	return s[start:end]
}
