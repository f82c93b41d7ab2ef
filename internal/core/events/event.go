package events

import (
	. "github.com/berfenger/devstate2mqtt/internal/core/domain"
)

// DerivedSnapshotToUpdateEvents maps a derive run to the sensor updates of its device.
func DerivedSnapshotToUpdateEvents(s *DerivedSnapshot) []any {
	var events []any
	if s == nil {
		return events
	}
	if s.Color != nil {
		events = append(events, ColorToUpdateEvents(s.DeviceId, s.Color)...)
	}
	if s.White != nil {
		events = append(events, WhiteToUpdateEvents(s.DeviceId, s.White)...)
	}
	if s.Meter != nil {
		events = append(events, MeterToUpdateEvents(s.DeviceId, s.Meter)...)
	}
	events = append(events, ExtSensorsToUpdateEvents(s.DeviceId, s.Ext)...)
	for key, value := range s.Durations {
		events = append(events, DurationUpdateEvent(s.DeviceId, key, value))
	}
	for key, value := range s.Favorites {
		events = append(events, NewFloatSensorUpdate(FavoriteSensorId(s.DeviceId, key), value, 0))
	}
	return events
}

func ColorToUpdateEvents(deviceId string, c *DerivedColor) []any {
	var events []any

	if c.Bundle.Ison != nil {
		events = append(events, lightOnUpdateEvent(deviceId, *c.Bundle.Ison))
	}
	events = append(events,
		NewTextSensorUpdate(SensorId(deviceId, SENSOR_SUFFIX_RGBW), c.RGBW),
		NewFloatSensorUpdate(SensorId(deviceId, SENSOR_SUFFIX_HUE), c.HSV.Hue, 2),
		NewFloatSensorUpdate(SensorId(deviceId, SENSOR_SUFFIX_SATURATION), c.HSV.Saturation, 2),
		NewFloatSensorUpdate(SensorId(deviceId, SENSOR_SUFFIX_HSV_BRIGHTNESS), c.HSV.Brightness, 2),
	)

	return events
}

func WhiteToUpdateEvents(deviceId string, w *WhiteBundle) []any {
	var events []any

	if w.Ison != nil {
		events = append(events, lightOnUpdateEvent(deviceId, *w.Ison))
	}
	ints := []struct {
		suffix string
		value  *int
	}{
		{SENSOR_SUFFIX_WHITE, w.White},
		{SENSOR_SUFFIX_BRIGHTNESS, w.Brightness},
		{SENSOR_SUFFIX_TEMP, w.Temp},
	}
	for _, i := range ints {
		if i.value != nil {
			events = append(events, NewFloatSensorUpdate(SensorId(deviceId, i.suffix), float64(*i.value), 0))
		}
	}

	return events
}

func MeterToUpdateEvents(deviceId string, m *DerivedMeter) []any {
	var events []any

	totals := []struct {
		suffix string
		value  *float64
	}{
		{SENSOR_SUFFIX_TOTAL_POWER, m.Power},
		{SENSOR_SUFFIX_TOTAL_CURRENT, m.Current},
		{SENSOR_SUFFIX_TOTAL_ENERGY, m.Total},
		{SENSOR_SUFFIX_TOTAL_RETURNED, m.TotalReturned},
		{SENSOR_SUFFIX_VOLTAGE, m.Voltage},
	}
	for _, t := range totals {
		if t.value != nil {
			events = append(events, NewFloatSensorUpdate(SensorId(deviceId, t.suffix), *t.value, 2))
		}
	}
	for phase, pf := range m.PowerFactor {
		if pf != nil {
			events = append(events, NewFloatSensorUpdate(PowerFactorSensorId(deviceId, phase), *pf, 2))
		}
	}

	return events
}

// ExtSensorsToUpdateEvents publishes external probe readings with one decimal.
func ExtSensorsToUpdateEvents(deviceId string, readings []ExtSensorReading) []any {
	var events []any

	for _, r := range readings {
		if r.TemperatureC != nil {
			events = append(events, NewFloatSensorUpdate(ExtTemperatureCSensorId(deviceId, r.Index), *r.TemperatureC, 1))
		}
		if r.TemperatureF != nil {
			events = append(events, NewFloatSensorUpdate(ExtTemperatureFSensorId(deviceId, r.Index), *r.TemperatureF, 1))
		}
		if r.Humidity != nil {
			events = append(events, NewFloatSensorUpdate(ExtHumiditySensorId(deviceId, r.Index), *r.Humidity, 1))
		}
	}

	return events
}

func DurationUpdateEvent(deviceId, key string, value float64) any {
	return NewInputNumberUpdate(DurationInputNumberId(deviceId, key), value, 0)
}

func lightOnUpdateEvent(deviceId string, ison bool) any {
	return NewBinarySensorUpdate(SensorId(deviceId, SENSOR_SUFFIX_ISON), ison)
}
