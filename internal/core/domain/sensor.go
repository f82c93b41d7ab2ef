package domain

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"

	"github.com/carlmjohnson/versioninfo"
)

const (
	SENSOR_ID_BRIDGE_STATE       = "bridge"
	SENSOR_SUFFIX_ISON           = "ison"
	SENSOR_SUFFIX_RGBW           = "rgbw"
	SENSOR_SUFFIX_HUE            = "hue"
	SENSOR_SUFFIX_SATURATION     = "saturation"
	SENSOR_SUFFIX_HSV_BRIGHTNESS = "hsv_brightness"
	SENSOR_SUFFIX_WHITE          = "white"
	SENSOR_SUFFIX_BRIGHTNESS     = "brightness"
	SENSOR_SUFFIX_TEMP           = "temp"
	SENSOR_SUFFIX_TOTAL_POWER    = "total_power"
	SENSOR_SUFFIX_TOTAL_CURRENT  = "total_current"
	SENSOR_SUFFIX_TOTAL_ENERGY   = "total_energy"
	SENSOR_SUFFIX_TOTAL_RETURNED = "total_returned"
	SENSOR_SUFFIX_VOLTAGE        = "voltage"
	STATE_CLASS_MEASUREMENT      = "measurement"
	STATE_CLASS_TOTAL_INCREASING = "total_increasing"
	DEVICE_CLASS_CURRENT         = "current"
	DEVICE_CLASS_DURATION        = "duration"
	DEVICE_CLASS_ENERGY          = "energy"
	DEVICE_CLASS_HUMIDITY        = "humidity"
	DEVICE_CLASS_LIGHT           = "light"
	DEVICE_CLASS_POWER           = "power"
	DEVICE_CLASS_POWER_FACTOR    = "power_factor"
	DEVICE_CLASS_TEMPERATURE     = "temperature"
	DEVICE_CLASS_VOLTAGE         = "voltage"
	DEVICE_CLASS_CONNECTIVITY    = "connectivity"
	ENTITY_CLASS_DIAGNOSTIC      = "diagnostic"
	ENTITY_CLASS_CONFIG          = "config"
	SENSOR_TYPE_SENSOR           = "sensor"
	SENSOR_TYPE_BINARY           = "binary_sensor"
	INPUT_NUMBER_MODE_BOX        = "box"
	INPUT_NUMBER_MODE_SLIDER     = "slider"
	DURATION_INPUT_NUMBER_MAX    = 86400
	DEVICE_MANUFACTURER_DEVSTATE = "devstate2mqtt"
	DEVICE_MODEL_DEVSTATE_BRIDGE = "Devstate bridge"
	DEVICE_MODEL_DERIVED_SENSORS = "Derived state"
	SENSOR_PREFIX_POWER_FACTOR   = "pf"
	SENSOR_PREFIX_EXT_SENSOR     = "ext"
	SENSOR_SUFFIX_EXT_TEMP_C     = "temperature_c"
	SENSOR_SUFFIX_EXT_TEMP_F     = "temperature_f"
	SENSOR_SUFFIX_EXT_HUMIDITY   = "humidity"
	SENSOR_PREFIX_FAVORITE       = "favorite"
	INPUT_NUMBER_PREFIX_DURATION = "duration"
)

var slugRegexp = regexp.MustCompile("[^a-z0-9]+")

// Slug lowercases s and collapses every run of characters outside [a-z0-9] into one underscore.
func Slug(s string) string {
	return strings.Trim(slugRegexp.ReplaceAllString(strings.ToLower(s), "_"), "_")
}

// SensorId builds the bridge-wide id of a derived sensor of a device.
func SensorId(deviceId string, parts ...string) string {
	id := Slug(deviceId)
	for _, p := range parts {
		id = id + "_" + Slug(p)
	}
	return id
}

func PowerFactorSensorId(deviceId string, phase int) string {
	return SensorId(deviceId, fmt.Sprintf("%s%d", SENSOR_PREFIX_POWER_FACTOR, phase))
}

func ExtTemperatureCSensorId(deviceId string, index int) string {
	return SensorId(deviceId, fmt.Sprintf("%s%d", SENSOR_PREFIX_EXT_SENSOR, index), SENSOR_SUFFIX_EXT_TEMP_C)
}

func ExtTemperatureFSensorId(deviceId string, index int) string {
	return SensorId(deviceId, fmt.Sprintf("%s%d", SENSOR_PREFIX_EXT_SENSOR, index), SENSOR_SUFFIX_EXT_TEMP_F)
}

func ExtHumiditySensorId(deviceId string, index int) string {
	return SensorId(deviceId, fmt.Sprintf("%s%d", SENSOR_PREFIX_EXT_SENSOR, index), SENSOR_SUFFIX_EXT_HUMIDITY)
}

func FavoriteSensorId(deviceId, key string) string {
	return SensorId(deviceId, SENSOR_PREFIX_FAVORITE, key)
}

func DurationInputNumberId(deviceId, key string) string {
	return SensorId(deviceId, INPUT_NUMBER_PREFIX_DURATION, key)
}

func BridgeDevice(baseTopic string) Device {
	return Device{
		Id:           fmt.Sprintf("devstate_bridge_%s", md5HashShort(baseTopic)),
		Manufacturer: DEVICE_MANUFACTURER_DEVSTATE,
		Model:        DEVICE_MODEL_DEVSTATE_BRIDGE,
		Version:      versioninfo.Short(),
		Name:         fmt.Sprintf("Devstate %s", md5HashShort(baseTopic)),
	}
}

// DerivedDevice groups the derived entities of one configured device under the bridge.
func DerivedDevice(bridge Device, deviceId, name string) Device {
	if name == "" {
		name = deviceId
	}
	return Device{
		Id:           fmt.Sprintf("devstate_%s_%s", Slug(deviceId), md5HashShort(bridge.Id+deviceId)),
		Manufacturer: DEVICE_MANUFACTURER_DEVSTATE,
		Model:        DEVICE_MODEL_DERIVED_SENSORS,
		Version:      bridge.Version,
		Name:         name,
		ViaDevice:    bridge.Id,
	}
}

func IdDevice(device Device) Device {
	return Device{
		Id:   device.Id,
		Name: device.Name,
	}
}

func BridgeSensors(bridgeDevice Device) []GenericSensor {

	var sensors []GenericSensor

	// Bridge connection state
	sensors = append(sensors, GenericSensor{
		Device:         bridgeDevice,
		Id:             SENSOR_ID_BRIDGE_STATE,
		SensorType:     SENSOR_TYPE_BINARY,
		Name:           "Connection state",
		DeviceClass:    DEVICE_CLASS_CONNECTIVITY,
		EntityCategory: ENTITY_CLASS_DIAGNOSTIC,
		UniqueId:       uniqueId(bridgeDevice.Id, SENSOR_ID_BRIDGE_STATE),
	})

	return sensors
}

func ColorLightSensors(device Device, deviceId string) []GenericSensor {

	var sensors []GenericSensor

	sensors = append(sensors, lightOnSensor(device, deviceId))

	// Packed RGBW
	sensors = append(sensors, GenericSensor{
		Device:     device,
		Id:         SensorId(deviceId, SENSOR_SUFFIX_RGBW),
		SensorType: SENSOR_TYPE_SENSOR,
		Name:       "RGBW",
		Icon:       "mdi:palette",
		UniqueId:   uniqueId(device.Id, SensorId(deviceId, SENSOR_SUFFIX_RGBW)),
	})

	// Hue
	sensors = append(sensors, GenericSensor{
		Device:            device,
		Id:                SensorId(deviceId, SENSOR_SUFFIX_HUE),
		SensorType:        SENSOR_TYPE_SENSOR,
		Name:              "Hue",
		StateClass:        STATE_CLASS_MEASUREMENT,
		UnitOfMeasurement: "°",
		Icon:              "mdi:palette",
		UniqueId:          uniqueId(device.Id, SensorId(deviceId, SENSOR_SUFFIX_HUE)),
	})

	// Saturation
	sensors = append(sensors, GenericSensor{
		Device:            device,
		Id:                SensorId(deviceId, SENSOR_SUFFIX_SATURATION),
		SensorType:        SENSOR_TYPE_SENSOR,
		Name:              "Saturation",
		StateClass:        STATE_CLASS_MEASUREMENT,
		UnitOfMeasurement: "%",
		Icon:              "mdi:gradient-horizontal",
		UniqueId:          uniqueId(device.Id, SensorId(deviceId, SENSOR_SUFFIX_SATURATION)),
	})

	// HSV brightness
	sensors = append(sensors, GenericSensor{
		Device:            device,
		Id:                SensorId(deviceId, SENSOR_SUFFIX_HSV_BRIGHTNESS),
		SensorType:        SENSOR_TYPE_SENSOR,
		Name:              "Color brightness",
		StateClass:        STATE_CLASS_MEASUREMENT,
		UnitOfMeasurement: "%",
		Icon:              "mdi:brightness-6",
		UniqueId:          uniqueId(device.Id, SensorId(deviceId, SENSOR_SUFFIX_HSV_BRIGHTNESS)),
	})

	return sensors
}

func WhiteLightSensors(device Device, deviceId string) []GenericSensor {

	var sensors []GenericSensor

	sensors = append(sensors, lightOnSensor(device, deviceId))

	// White level
	sensors = append(sensors, GenericSensor{
		Device:            device,
		Id:                SensorId(deviceId, SENSOR_SUFFIX_WHITE),
		SensorType:        SENSOR_TYPE_SENSOR,
		Name:              "White",
		StateClass:        STATE_CLASS_MEASUREMENT,
		UnitOfMeasurement: "%",
		UniqueId:          uniqueId(device.Id, SensorId(deviceId, SENSOR_SUFFIX_WHITE)),
	})

	// Brightness
	sensors = append(sensors, GenericSensor{
		Device:            device,
		Id:                SensorId(deviceId, SENSOR_SUFFIX_BRIGHTNESS),
		SensorType:        SENSOR_TYPE_SENSOR,
		Name:              "Brightness",
		StateClass:        STATE_CLASS_MEASUREMENT,
		UnitOfMeasurement: "%",
		Icon:              "mdi:brightness-6",
		UniqueId:          uniqueId(device.Id, SensorId(deviceId, SENSOR_SUFFIX_BRIGHTNESS)),
	})

	// Color temperature
	sensors = append(sensors, GenericSensor{
		Device:            device,
		Id:                SensorId(deviceId, SENSOR_SUFFIX_TEMP),
		SensorType:        SENSOR_TYPE_SENSOR,
		Name:              "Color temperature",
		StateClass:        STATE_CLASS_MEASUREMENT,
		UnitOfMeasurement: "K",
		Icon:              "mdi:thermometer",
		UniqueId:          uniqueId(device.Id, SensorId(deviceId, SENSOR_SUFFIX_TEMP)),
	})

	return sensors
}

func lightOnSensor(device Device, deviceId string) GenericSensor {
	return GenericSensor{
		Device:      device,
		Id:          SensorId(deviceId, SENSOR_SUFFIX_ISON),
		SensorType:  SENSOR_TYPE_BINARY,
		Name:        "Light",
		DeviceClass: DEVICE_CLASS_LIGHT,
		UniqueId:    uniqueId(device.Id, SensorId(deviceId, SENSOR_SUFFIX_ISON)),
	}
}

func EmeterSensors(device Device, deviceId string) []GenericSensor {

	var sensors []GenericSensor

	// Total power
	sensors = append(sensors, GenericSensor{
		Device:            device,
		Id:                SensorId(deviceId, SENSOR_SUFFIX_TOTAL_POWER),
		SensorType:        SENSOR_TYPE_SENSOR,
		Name:              "Total power",
		StateClass:        STATE_CLASS_MEASUREMENT,
		DeviceClass:       DEVICE_CLASS_POWER,
		UnitOfMeasurement: "W",
		UniqueId:          uniqueId(device.Id, SensorId(deviceId, SENSOR_SUFFIX_TOTAL_POWER)),
	})

	// Total current
	sensors = append(sensors, GenericSensor{
		Device:            device,
		Id:                SensorId(deviceId, SENSOR_SUFFIX_TOTAL_CURRENT),
		SensorType:        SENSOR_TYPE_SENSOR,
		Name:              "Total current",
		StateClass:        STATE_CLASS_MEASUREMENT,
		DeviceClass:       DEVICE_CLASS_CURRENT,
		UnitOfMeasurement: "A",
		UniqueId:          uniqueId(device.Id, SensorId(deviceId, SENSOR_SUFFIX_TOTAL_CURRENT)),
	})

	// Total consumed energy
	sensors = append(sensors, GenericSensor{
		Device:            device,
		Id:                SensorId(deviceId, SENSOR_SUFFIX_TOTAL_ENERGY),
		SensorType:        SENSOR_TYPE_SENSOR,
		Name:              "Total energy",
		StateClass:        STATE_CLASS_TOTAL_INCREASING,
		DeviceClass:       DEVICE_CLASS_ENERGY,
		UnitOfMeasurement: "Wh",
		UniqueId:          uniqueId(device.Id, SensorId(deviceId, SENSOR_SUFFIX_TOTAL_ENERGY)),
	})

	// Total returned energy
	sensors = append(sensors, GenericSensor{
		Device:            device,
		Id:                SensorId(deviceId, SENSOR_SUFFIX_TOTAL_RETURNED),
		SensorType:        SENSOR_TYPE_SENSOR,
		Name:              "Total returned energy",
		StateClass:        STATE_CLASS_TOTAL_INCREASING,
		DeviceClass:       DEVICE_CLASS_ENERGY,
		UnitOfMeasurement: "Wh",
		UniqueId:          uniqueId(device.Id, SensorId(deviceId, SENSOR_SUFFIX_TOTAL_RETURNED)),
	})

	// Voltage
	sensors = append(sensors, GenericSensor{
		Device:            device,
		Id:                SensorId(deviceId, SENSOR_SUFFIX_VOLTAGE),
		SensorType:        SENSOR_TYPE_SENSOR,
		Name:              "Voltage",
		StateClass:        STATE_CLASS_MEASUREMENT,
		DeviceClass:       DEVICE_CLASS_VOLTAGE,
		UnitOfMeasurement: "V",
		UniqueId:          uniqueId(device.Id, SensorId(deviceId, SENSOR_SUFFIX_VOLTAGE)),
	})

	for phase := 0; phase < PHASE_COUNT; phase++ {
		id := PowerFactorSensorId(deviceId, phase)
		sensors = append(sensors, GenericSensor{
			Device:           device,
			Id:               id,
			SensorType:       SENSOR_TYPE_SENSOR,
			Name:             fmt.Sprintf("Power factor phase %d", phase+1),
			StateClass:       STATE_CLASS_MEASUREMENT,
			DeviceClass:      DEVICE_CLASS_POWER_FACTOR,
			EnabledByDefault: optionalBool(false),
			UniqueId:         uniqueId(device.Id, id),
		})
	}

	return sensors
}

func ExtSensors(device Device, deviceId string, count int) []GenericSensor {

	var sensors []GenericSensor

	for i := 0; i < count; i++ {
		tempC := ExtTemperatureCSensorId(deviceId, i)
		sensors = append(sensors, GenericSensor{
			Device:            device,
			Id:                tempC,
			SensorType:        SENSOR_TYPE_SENSOR,
			Name:              fmt.Sprintf("External temperature %d", i+1),
			StateClass:        STATE_CLASS_MEASUREMENT,
			DeviceClass:       DEVICE_CLASS_TEMPERATURE,
			UnitOfMeasurement: "°C",
			UniqueId:          uniqueId(device.Id, tempC),
		})
		tempF := ExtTemperatureFSensorId(deviceId, i)
		sensors = append(sensors, GenericSensor{
			Device:            device,
			Id:                tempF,
			SensorType:        SENSOR_TYPE_SENSOR,
			Name:              fmt.Sprintf("External temperature %d (F)", i+1),
			StateClass:        STATE_CLASS_MEASUREMENT,
			DeviceClass:       DEVICE_CLASS_TEMPERATURE,
			UnitOfMeasurement: "°F",
			EnabledByDefault:  optionalBool(false),
			UniqueId:          uniqueId(device.Id, tempF),
		})
		hum := ExtHumiditySensorId(deviceId, i)
		sensors = append(sensors, GenericSensor{
			Device:            device,
			Id:                hum,
			SensorType:        SENSOR_TYPE_SENSOR,
			Name:              fmt.Sprintf("External humidity %d", i+1),
			StateClass:        STATE_CLASS_MEASUREMENT,
			DeviceClass:       DEVICE_CLASS_HUMIDITY,
			UnitOfMeasurement: "%",
			UniqueId:          uniqueId(device.Id, hum),
		})
	}

	return sensors
}

func FavoriteSensors(device Device, deviceId string, keys []string) []GenericSensor {

	var sensors []GenericSensor

	for _, key := range keys {
		id := FavoriteSensorId(deviceId, key)
		sensors = append(sensors, GenericSensor{
			Device:            device,
			Id:                id,
			SensorType:        SENSOR_TYPE_SENSOR,
			Name:              fmt.Sprintf("Favorite %s", key),
			UnitOfMeasurement: "%",
			EntityCategory:    ENTITY_CLASS_DIAGNOSTIC,
			Icon:              "mdi:star",
			UniqueId:          uniqueId(device.Id, id),
		})
	}

	return sensors
}

func DurationInputNumbers(device Device, deviceId string, keys []string) []GenericInputNumber {

	var inputNumbers []GenericInputNumber

	for _, key := range keys {
		id := DurationInputNumberId(deviceId, key)
		inputNumbers = append(inputNumbers, GenericInputNumber{
			Device:   device,
			Id:       id,
			DeviceId: deviceId,
			Key:      key,
			Name:     fmt.Sprintf("Duration %s", key),
			UniqueId: uniqueId(device.Id, id),
			Icon:     "mdi:timer-outline",
			Max:      DURATION_INPUT_NUMBER_MAX,
			Min:      0,
			Step:     1,
			Mode:     INPUT_NUMBER_MODE_BOX,
			Unit:     "s",
		})
	}

	return inputNumbers
}

func uniqueId(baseId, id string) string {
	return fmt.Sprintf("uid_%s_%s", baseId, id)
}

func md5Hash(text string) string {
	hash := md5.Sum([]byte(text))
	return hex.EncodeToString(hash[:])
}

func md5HashShort(text string) string {
	hash := md5Hash(text)
	return hash[0:8]
}

func optionalBool(value bool) *bool {
	return &value
}
