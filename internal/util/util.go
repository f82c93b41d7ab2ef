package util

import (
	"github.com/berfenger/devstate2mqtt/internal/config"

	"go.uber.org/zap"
)

func LoadTestConfig() config.Config {
	return config.Config{
		LogLevel: zap.DebugLevel,
		MQTT: config.MQTTConfig{
			Host:      "localhost",
			Port:      1883,
			BaseTopic: "devstate",
		},
		Store: config.StoreConfig{
			Backend: "memory",
		},
		Derive: config.DeriveConfig{
			PollIntervalMillis: 1000,
			VoltageMode:        "mean",
		},
		MeterModbusTcp: config.MeterModbusTCPConfig{
			Host:               "-.-.-.-",
			Port:               502,
			MeterId:            200,
			DeviceId:           "meter",
			PollIntervalMillis: 1000,
		},
		Devices: []config.DeviceConfig{
			{Id: "rgbw", Name: "Living room strip", Kind: config.DEVICE_KIND_RGBW},
			{Id: "white", Name: "Desk lamp", Kind: config.DEVICE_KIND_WHITE},
			{Id: "meter", Name: "House meter", Kind: config.DEVICE_KIND_EM3},
			{Id: "relay", Name: "Boiler", Kind: config.DEVICE_KIND_RELAY, ExtSensors: 1,
				Durations: []string{"Relay0.Timer"}, Favorites: []string{"Shutter.Favorite1"}},
		},
		Port: 8080,
	}
}
