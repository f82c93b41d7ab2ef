package color

import (
	"testing"

	"github.com/berfenger/devstate2mqtt/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPackRGBW(t *testing.T) {

	assert := assert.New(t)

	assert.Equal("#00000000", PackRGBW(domain.RGBW{}))
	assert.Equal("#FF0A6300", PackRGBW(domain.RGBW{Red: 255, Green: 10, Blue: 99}))
	assert.Equal("#010203FF", PackRGBW(domain.RGBW{Red: 1, Green: 2, Blue: 3, White: 255}))
}

func TestUnpackRGBW(t *testing.T) {

	assert := assert.New(t)
	require := require.New(t)

	c, err := UnpackRGBW("#FF0A6300")
	require.NoError(err)
	assert.Equal(domain.RGBW{Red: 255, Green: 10, Blue: 99, White: 0}, c)

	c, err = UnpackRGBW("")
	require.NoError(err)
	assert.Equal(domain.RGBW{}, c, "empty decodes as #00000000")

	c, err = UnpackRGBW("#FF80")
	require.NoError(err)
	assert.Equal(domain.RGBW{Red: 255, Green: 128}, c, "short string")

	c, err = UnpackRGBW("#FF8")
	require.NoError(err)
	assert.Equal(domain.RGBW{Red: 255, Green: 8}, c, "one digit channel")
}

func TestUnpackRGBWInvalid(t *testing.T) {

	assert := assert.New(t)

	c, err := UnpackRGBW("#ZZ000000")
	assert.ErrorIs(err, domain.ErrInvalidInput)
	assert.Equal(domain.RGBW{}, c)
}

func TestRGBWRoundTrip(t *testing.T) {

	for _, v := range []int{0, 1, 15, 16, 127, 128, 200, 254, 255} {
		for _, w := range []int{0, 9, 255} {
			in := domain.RGBW{Red: v, Green: 255 - v, Blue: v / 2, White: w}
			out, err := UnpackRGBW(PackRGBW(in))
			if err != nil {
				t.Fatal(err)
			}
			if in != out {
				t.Fatalf("%+v decoded as %+v", in, out)
			}
		}
	}
}

func TestRGBToHSV(t *testing.T) {

	assert := assert.New(t)

	assert.Equal(domain.HSV{Hue: 0, Saturation: 100, Brightness: 100}, RGBToHSV(255, 0, 0), "red")
	assert.Equal(domain.HSV{Hue: 120, Saturation: 100, Brightness: 100}, RGBToHSV(0, 255, 0), "green")
	assert.Equal(domain.HSV{Hue: 240, Saturation: 100, Brightness: 100}, RGBToHSV(0, 0, 255), "blue")

	gray := RGBToHSV(128, 128, 128)
	assert.Equal(0.0, gray.Hue, "gray hue")
	assert.Equal(0.0, gray.Saturation, "gray saturation")
	assert.InDelta(50.2, gray.Brightness, 0.01)

	black := RGBToHSV(0, 0, 0)
	assert.Equal(domain.HSV{}, black)

	magenta := RGBToHSV(255, 0, 128)
	assert.InDelta(329.88, magenta.Hue, 0.01)
}

func TestHSVToRGB(t *testing.T) {

	assert := assert.New(t)

	assert.Equal(domain.RGB{Red: 255}, HSVToRGB(0, 100, 100))
	assert.Equal(domain.RGB{Red: 255}, HSVToRGB(360, 100, 100), "hue wraps")
	assert.Equal(domain.RGB{Green: 255}, HSVToRGB(-240, 100, 100), "negative hue wraps")
	assert.Equal(domain.RGB{Red: 255, Green: 255, Blue: 255}, HSVToRGB(42, 0, 100))
	assert.Equal(domain.RGB{}, HSVToRGB(42, 100, 0))
}

func TestHSVRoundTrip(t *testing.T) {

	for r := 0; r <= 255; r++ {
		for g := 0; g <= 255; g++ {
			for b := 0; b <= 255; b++ {
				hsv := RGBToHSV(r, g, b)
				rgb := HSVToRGB(hsv.Hue, hsv.Saturation, hsv.Brightness)
				if abs(rgb.Red-r) > 1 || abs(rgb.Green-g) > 1 || abs(rgb.Blue-b) > 1 {
					t.Fatalf("(%d,%d,%d) -> %+v -> %+v", r, g, b, hsv, rgb)
				}
			}
		}
	}
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
