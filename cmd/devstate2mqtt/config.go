package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/berfenger/devstate2mqtt/internal/config"
	"github.com/berfenger/devstate2mqtt/internal/core/domain"
	"github.com/berfenger/devstate2mqtt/internal/store"

	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// initConfig reads DEVSTATE_* variables and, when CONFIG_FILE names one, a config file.
func initConfig() (*config.Config, error) {

	// PORT is honored as DEVSTATE_PORT
	if port := os.Getenv("PORT"); port != "" {
		os.Setenv("DEVSTATE_PORT", port)
	}

	setConfigDefaults()

	viper.SetEnvPrefix("devstate")
	viper.AutomaticEnv()

	if cfgFile := os.Getenv("CONFIG_FILE"); cfgFile != "" {
		if _, err := os.Stat(cfgFile); err == nil {
			slog.Info("Using config", "file", cfgFile)
			viper.SetConfigFile(cfgFile)
			if err := viper.ReadInConfig(); err != nil {
				slog.Error("Error reading config file", "error", err)
			}
		}
	}

	var cfg config.Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	cfg.LogLevel = parseLogLevel(viper.GetString("log_level"))

	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// parseLogLevel accepts zap level names plus trace, an alias of debug. Unknown names mean info.
func parseLogLevel(name string) zapcore.Level {
	if name == "trace" {
		return zap.DebugLevel
	}
	level, err := zapcore.ParseLevel(name)
	if err != nil {
		return zap.InfoLevel
	}
	return level
}

// validateConfig normalizes topics in place and checks bounds.
func validateConfig(cfg *config.Config) error {
	baseTopic, err := config.CheckMQTTTopic(cfg.MQTT.BaseTopic)
	if err != nil {
		return errors.New("invalid base topic. can only contain letters, numbers and underscores")
	}
	cfg.MQTT.BaseTopic = baseTopic

	hadBaseTopic, err := config.CheckMQTTTopic(cfg.MQTT.HADiscoveryTopic)
	if err != nil {
		return errors.New("invalid homeassistant discovery topic. can only contain letters, numbers and underscores")
	}
	cfg.MQTT.HADiscoveryTopic = hadBaseTopic

	if err := config.CheckDevices(cfg.Devices); err != nil {
		return err
	}

	if cfg.Derive.PollIntervalMillis < 100 {
		return errors.New("config param derive.poll_interval_millis should be >= 100")
	}
	switch cfg.Derive.VoltageMode {
	case domain.VOLTAGE_MODE_MEAN, domain.VOLTAGE_MODE_RMS:
	default:
		return fmt.Errorf("config param derive.voltage_mode must be %q or %q", domain.VOLTAGE_MODE_MEAN, domain.VOLTAGE_MODE_RMS)
	}

	if cfg.MeterModbusTcp.Enabled {
		if cfg.MeterModbusTcp.PollIntervalMillis < 500 {
			return errors.New("config param meter_modbus_tcp.poll_interval_millis should be >= 500")
		}
		if dev, ok := cfg.Device(cfg.MeterModbusTcp.DeviceId); !ok || dev.Kind != config.DEVICE_KIND_EM3 {
			return errors.New("config param meter_modbus_tcp.device_id must name an em3 device")
		}
	}

	if cfg.Store.Backend == store.BACKEND_SQLITE && cfg.Store.Path == "" {
		return errors.New("config param store.path is required by the sqlite backend")
	}
	return nil
}

func setConfigDefaults() {
	viper.SetDefault("log_level", "warn")
	viper.SetDefault("mqtt.ha_discovery_enable", false)
	viper.SetDefault("mqtt.base_topic", "devstate")
	viper.SetDefault("mqtt.ha_discovery_topic", "homeassistant")
	viper.SetDefault("store.backend", store.BACKEND_MEMORY)
	viper.SetDefault("derive.poll_interval_millis", 1000)
	viper.SetDefault("derive.voltage_mode", domain.VOLTAGE_MODE_MEAN)
	viper.SetDefault("meter_modbus_tcp.enabled", false)
	viper.SetDefault("meter_modbus_tcp.port", 502)
	viper.SetDefault("meter_modbus_tcp.meter_id", 200)
	viper.SetDefault("meter_modbus_tcp.poll_interval_millis", 1000)
	viper.SetDefault("port", 8080)
}

func safePrintConfig(cfg config.Config) {
	cfg.MQTT.Username = "*redacted*"
	cfg.MQTT.Password = "*redacted*"
	slog.Info("Using", "config", cfg)
}
