package convert

import (
	"encoding/json"
	"fmt"
)

const (
	UNIT_CELSIUS    = "C"
	UNIT_FAHRENHEIT = "F"
)

// DeviceStatus is the part of a device status payload carrying add-on sensor readings.
type DeviceStatus struct {
	ExtTemperature map[string]ExtTemperatureReading `json:"ext_temperature"`
	ExtHumidity    map[string]ExtHumidityReading    `json:"ext_humidity"`
}

type ExtTemperatureReading struct {
	TC float64 `json:"tC"`
	TF float64 `json:"tF"`
}

type ExtHumidityReading struct {
	Hum float64 `json:"hum"`
}

func ParseDeviceStatus(payload []byte) (*DeviceStatus, error) {
	var status DeviceStatus
	if err := json.Unmarshal(payload, &status); err != nil {
		return nil, fmt.Errorf("device status: %w", err)
	}
	return &status, nil
}

// ExtTemperature returns the add-on temperature of sensor key in unit.
// An unknown unit yields (0, true). A missing or zero reading yields ok=false,
// devices report an unplugged probe as 0.
func ExtTemperature(status *DeviceStatus, key string, unit string) (float64, bool) {
	if unit != UNIT_CELSIUS && unit != UNIT_FAHRENHEIT {
		return 0, true
	}
	if status == nil {
		return 0, false
	}
	reading, ok := status.ExtTemperature[key]
	if !ok {
		return 0, false
	}
	value := reading.TC
	if unit == UNIT_FAHRENHEIT {
		value = reading.TF
	}
	if value == 0 {
		return 0, false
	}
	return value, true
}

// ExtHumidity returns the add-on humidity of sensor key. Zero counts as missing.
func ExtHumidity(status *DeviceStatus, key string) (float64, bool) {
	if status == nil {
		return 0, false
	}
	reading, ok := status.ExtHumidity[key]
	if !ok || reading.Hum == 0 {
		return 0, false
	}
	return reading.Hum, true
}
