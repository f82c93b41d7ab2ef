package domain

// Add-on sensor paths, formatted with the sensor index.
const (
	PATH_EXT_TEMPERATURE_C = "ext.temperatureC%d"
	PATH_EXT_TEMPERATURE_F = "ext.temperatureF%d"
	PATH_EXT_HUMIDITY      = "ext.humidity%d"
)

// PATH_DEVICE_STATUS holds the last raw status payload reported by the device.
const PATH_DEVICE_STATUS = "info.status"

// ExtSensorReading is one add-on sensor. Nil fields were not reported.
type ExtSensorReading struct {
	Index        int      `json:"index"`
	TemperatureC *float64 `json:"temperature_c,omitempty"`
	TemperatureF *float64 `json:"temperature_f,omitempty"`
	Humidity     *float64 `json:"humidity,omitempty"`
}
