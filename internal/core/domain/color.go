package domain

type RGB struct {
	Red   int `json:"red"`
	Green int `json:"green"`
	Blue  int `json:"blue"`
}

type RGBW struct {
	Red   int `json:"red"`
	Green int `json:"green"`
	Blue  int `json:"blue"`
	White int `json:"white"`
}

func (c RGBW) RGB() RGB {
	return RGB{Red: c.Red, Green: c.Green, Blue: c.Blue}
}

type HSV struct {
	Hue        float64 `json:"hue"`
	Saturation float64 `json:"saturation"`
	Brightness float64 `json:"brightness"`
}

// Light sub-state paths, relative to the device id.
const (
	PATH_LIGHTS_SWITCH     = "lights.Switch"
	PATH_LIGHTS_MODE       = "lights.mode"
	PATH_LIGHTS_RED        = "lights.red"
	PATH_LIGHTS_GREEN      = "lights.green"
	PATH_LIGHTS_BLUE       = "lights.blue"
	PATH_LIGHTS_WHITE      = "lights.white"
	PATH_LIGHTS_GAIN       = "lights.gain"
	PATH_LIGHTS_TEMP       = "lights.temp"
	PATH_LIGHTS_BRIGHTNESS = "lights.brightness"
	PATH_LIGHTS_EFFECT     = "lights.effect"
	PATH_LIGHTS_HUE        = "lights.hue"
	PATH_LIGHTS_SATURATION = "lights.saturation"
	PATH_LIGHTS_RGBW       = "lights.rgbw"
	PATH_LIGHTS_VALUE      = "lights.value"
)

// BundleField names one entry of a light bundle.
type BundleField string

const (
	FIELD_ISON       BundleField = "ison"
	FIELD_MODE       BundleField = "mode"
	FIELD_RED        BundleField = "red"
	FIELD_GREEN      BundleField = "green"
	FIELD_BLUE       BundleField = "blue"
	FIELD_WHITE      BundleField = "white"
	FIELD_GAIN       BundleField = "gain"
	FIELD_TEMP       BundleField = "temp"
	FIELD_BRIGHTNESS BundleField = "brightness"
	FIELD_EFFECT     BundleField = "effect"
)

type FieldPath struct {
	Field BundleField
	Path  string
}

// ColorBundlePaths is the ordered read plan of a color light bundle.
var ColorBundlePaths = []FieldPath{
	{FIELD_ISON, PATH_LIGHTS_SWITCH},
	{FIELD_MODE, PATH_LIGHTS_MODE},
	{FIELD_RED, PATH_LIGHTS_RED},
	{FIELD_GREEN, PATH_LIGHTS_GREEN},
	{FIELD_BLUE, PATH_LIGHTS_BLUE},
	{FIELD_WHITE, PATH_LIGHTS_WHITE},
	{FIELD_GAIN, PATH_LIGHTS_GAIN},
	{FIELD_TEMP, PATH_LIGHTS_TEMP},
	{FIELD_BRIGHTNESS, PATH_LIGHTS_BRIGHTNESS},
	{FIELD_EFFECT, PATH_LIGHTS_EFFECT},
}

// WhiteBundlePaths is the ordered read plan of a white light bundle.
var WhiteBundlePaths = []FieldPath{
	{FIELD_ISON, PATH_LIGHTS_SWITCH},
	{FIELD_WHITE, PATH_LIGHTS_WHITE},
	{FIELD_TEMP, PATH_LIGHTS_TEMP},
	{FIELD_BRIGHTNESS, PATH_LIGHTS_BRIGHTNESS},
}

// ColorBundle is a flat snapshot of a color light. Nil fields were absent in the store.
type ColorBundle struct {
	Ison       *bool   `json:"ison,omitempty"`
	Mode       *string `json:"mode,omitempty"`
	Red        *int    `json:"red,omitempty"`
	Green      *int    `json:"green,omitempty"`
	Blue       *int    `json:"blue,omitempty"`
	White      *int    `json:"white,omitempty"`
	Gain       *int    `json:"gain,omitempty"`
	Temp       *int    `json:"temp,omitempty"`
	Brightness *int    `json:"brightness,omitempty"`
	Effect     *int    `json:"effect,omitempty"`
}

type WhiteBundle struct {
	Ison       *bool `json:"ison,omitempty"`
	White      *int  `json:"white,omitempty"`
	Temp       *int  `json:"temp,omitempty"`
	Brightness *int  `json:"brightness,omitempty"`
}

// Set stores v into the bundle field f. Values that cannot be coerced leave the field nil.
func (b *ColorBundle) Set(f BundleField, v StateValue) {
	switch f {
	case FIELD_ISON:
		b.Ison = boolPtr(v)
	case FIELD_MODE:
		b.Mode = textPtr(v)
	case FIELD_RED:
		b.Red = intPtr(v)
	case FIELD_GREEN:
		b.Green = intPtr(v)
	case FIELD_BLUE:
		b.Blue = intPtr(v)
	case FIELD_WHITE:
		b.White = intPtr(v)
	case FIELD_GAIN:
		b.Gain = intPtr(v)
	case FIELD_TEMP:
		b.Temp = intPtr(v)
	case FIELD_BRIGHTNESS:
		b.Brightness = intPtr(v)
	case FIELD_EFFECT:
		b.Effect = intPtr(v)
	}
}

func (b *WhiteBundle) Set(f BundleField, v StateValue) {
	switch f {
	case FIELD_ISON:
		b.Ison = boolPtr(v)
	case FIELD_WHITE:
		b.White = intPtr(v)
	case FIELD_TEMP:
		b.Temp = intPtr(v)
	case FIELD_BRIGHTNESS:
		b.Brightness = intPtr(v)
	}
}

func boolPtr(v StateValue) *bool {
	if b, ok := v.Bool(); ok {
		return &b
	}
	return nil
}

func intPtr(v StateValue) *int {
	if i, ok := v.Int(); ok {
		return &i
	}
	return nil
}

func textPtr(v StateValue) *string {
	if s, ok := v.Text(); ok {
		return &s
	}
	return nil
}
