package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheckMQTTTopic(t *testing.T) {

	assert := assert.New(t)

	topic, err := CheckMQTTTopic("DevState")
	assert.NoError(err)
	assert.Equal("devstate", topic)

	_, err = CheckMQTTTopic("dev/state")
	assert.Error(err)
}

func TestCheckDevices(t *testing.T) {

	assert := assert.New(t)

	valid := []DeviceConfig{
		{Id: "shellyrgbw2_A1B2C3", Kind: DEVICE_KIND_RGBW},
		{Id: "shellyem3-01", Kind: DEVICE_KIND_EM3},
		{Id: "shelly1", Kind: DEVICE_KIND_RELAY, ExtSensors: 3, Durations: []string{"Relay0.Timer"}},
	}
	assert.NoError(CheckDevices(valid))

	assert.Error(CheckDevices([]DeviceConfig{{Id: "shelly#1", Kind: DEVICE_KIND_RGBW}}), "invalid id")
	assert.Error(CheckDevices([]DeviceConfig{{Id: "a", Kind: "dimmer"}}), "unknown kind")
	assert.Error(CheckDevices([]DeviceConfig{{Id: "a", Kind: DEVICE_KIND_RGBW}, {Id: "a", Kind: DEVICE_KIND_EM3}}), "duplicated")
	assert.Error(CheckDevices([]DeviceConfig{{Id: "a", Kind: DEVICE_KIND_RELAY, ExtSensors: 4}}), "ext sensors")
	assert.Error(CheckDevices([]DeviceConfig{{Id: "a", Kind: DEVICE_KIND_RELAY, Durations: []string{"Relay0/Timer"}}}), "state key")
}

func TestConfigDevice(t *testing.T) {

	assert := assert.New(t)

	cfg := Config{Devices: []DeviceConfig{{Id: "a", Kind: DEVICE_KIND_RGBW}}}
	d, ok := cfg.Device("a")
	assert.True(ok)
	assert.Equal(DEVICE_KIND_RGBW, d.Kind)

	_, ok = cfg.Device("b")
	assert.False(ok)
}
