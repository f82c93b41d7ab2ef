package config

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap/zapcore"
)

const (
	DEVICE_KIND_RGBW  = "rgbw"
	DEVICE_KIND_WHITE = "white"
	DEVICE_KIND_EM3   = "em3"
	DEVICE_KIND_RELAY = "relay"
)

type Config struct {
	LogLevel       zapcore.Level
	MQTT           MQTTConfig           `mapstructure:"mqtt"`
	Store          StoreConfig          `mapstructure:"store"`
	Derive         DeriveConfig         `mapstructure:"derive"`
	MeterModbusTcp MeterModbusTCPConfig `mapstructure:"meter_modbus_tcp"`
	Devices        []DeviceConfig       `mapstructure:"devices"`
	Port           uint                 `mapstructure:"port"`
	HttpLog        bool                 `mapstructure:"http_log"`
}

type MQTTConfig struct {
	Host              string
	Port              int
	Username          string
	Password          string
	BaseTopic         string `mapstructure:"base_topic"`
	HADiscoveryEnable bool   `mapstructure:"ha_discovery_enable"`
	HADiscoveryTopic  string `mapstructure:"ha_discovery_topic"`
}

type StoreConfig struct {
	Backend string
	Path    string
}

type DeriveConfig struct {
	PollIntervalMillis uint32 `mapstructure:"poll_interval_millis"`
	VoltageMode        string `mapstructure:"voltage_mode"`
}

type MeterModbusTCPConfig struct {
	Enabled            bool
	Host               string
	Port               uint
	MeterId            uint   `mapstructure:"meter_id"`
	DeviceId           string `mapstructure:"device_id"`
	PollIntervalMillis uint32 `mapstructure:"poll_interval_millis"`
}

type DeviceConfig struct {
	Id         string
	Name       string
	Kind       string
	ExtSensors int      `mapstructure:"ext_sensors"`
	Durations  []string `mapstructure:"durations"`
	Favorites  []string `mapstructure:"favorites"`
}

// Device returns the configured device with the given id.
func (c *Config) Device(id string) (DeviceConfig, bool) {
	for _, d := range c.Devices {
		if d.Id == id {
			return d, true
		}
	}
	return DeviceConfig{}, false
}

func CheckMQTTTopic(baseTopic string) (string, error) {
	// check and fix base topic
	lowerBaseTopic := strings.ToLower(baseTopic)
	baseTopicRegexp := regexp.MustCompile("^[a-z0-9_]+$")
	matches := baseTopicRegexp.FindAllStringSubmatch(lowerBaseTopic, 1)
	if len(matches) <= 0 {
		return "", errors.New("invalid topic. can only contain letters, numbers and underscores")
	}
	return lowerBaseTopic, nil
}

var deviceIdRegexp = regexp.MustCompile("^[a-zA-Z0-9_-]+$")

// CheckDevices validates the device list. Ids end up in MQTT topics.
func CheckDevices(devices []DeviceConfig) error {
	seen := map[string]bool{}
	for _, d := range devices {
		if !deviceIdRegexp.MatchString(d.Id) {
			return fmt.Errorf("invalid device id %q. can only contain letters, numbers, dashes and underscores", d.Id)
		}
		if seen[d.Id] {
			return fmt.Errorf("duplicated device id %q", d.Id)
		}
		seen[d.Id] = true
		switch d.Kind {
		case DEVICE_KIND_RGBW, DEVICE_KIND_WHITE, DEVICE_KIND_EM3, DEVICE_KIND_RELAY:
		default:
			return fmt.Errorf("device %s: unknown kind %q", d.Id, d.Kind)
		}
		if d.ExtSensors < 0 || d.ExtSensors > 3 {
			return fmt.Errorf("device %s: ext_sensors must be in [0,3]", d.Id)
		}
		for _, key := range append(append([]string{}, d.Durations...), d.Favorites...) {
			if key == "" || strings.ContainsAny(key, "/#+ ") {
				return fmt.Errorf("device %s: invalid state key %q", d.Id, key)
			}
		}
	}
	return nil
}
