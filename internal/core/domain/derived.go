package domain

// DerivedColor is the derived state of a color light.
type DerivedColor struct {
	Bundle ColorBundle `json:"bundle"`
	RGBW   string      `json:"rgbw"`
	HSV    HSV         `json:"hsv"`
}

// DerivedMeter holds the three-phase aggregates. Nil values lacked channel data.
type DerivedMeter struct {
	Power         *float64              `json:"power,omitempty"`
	Current       *float64              `json:"current,omitempty"`
	Total         *float64              `json:"total,omitempty"`
	TotalReturned *float64              `json:"total_returned,omitempty"`
	Voltage       *float64              `json:"voltage,omitempty"`
	PowerFactor   [PHASE_COUNT]*float64 `json:"power_factor"`
}

// DerivedSnapshot is the outcome of one derive run over a device.
type DerivedSnapshot struct {
	DeviceId  string             `json:"device_id"`
	Kind      string             `json:"kind"`
	Color     *DerivedColor      `json:"color,omitempty"`
	White     *WhiteBundle       `json:"white,omitempty"`
	Meter     *DerivedMeter      `json:"meter,omitempty"`
	Ext       []ExtSensorReading `json:"ext,omitempty"`
	Durations map[string]float64 `json:"durations,omitempty"`
	Favorites map[string]float64 `json:"favorites,omitempty"`
	Written   int                `json:"written"`
}
