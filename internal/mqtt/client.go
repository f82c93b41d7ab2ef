package mqtt

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/berfenger/devstate2mqtt/internal/config"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
)

const (
	MQTT_PAYLOAD_ONLINE   = "online"
	MQTT_PAYLOAD_OFFLINE  = "offline"
	MQTT_PAYLOAD_ON       = "on"
	MQTT_PAYLOAD_OFF      = "off"
	MQTT_COMMAND_DURATION = "duration"
	MQTT_COMMAND_NAME     = "name"
)

var ErrNotACommand = errors.New("not a command topic")

func OptsFromConfig(cfg *config.Config) *mqtt.ClientOptions {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", cfg.MQTT.Host, cfg.MQTT.Port))
	opts.SetClientID(fmt.Sprintf("devstate_%s", uuid.NewString()[:8]))
	if cfg.MQTT.Username != "" && cfg.MQTT.Password != "" {
		opts.SetUsername(cfg.MQTT.Username)
		opts.SetPassword(cfg.MQTT.Password)
	}
	opts.WillEnabled = true
	opts.WillPayload = []byte(MQTT_PAYLOAD_OFFLINE)
	opts.WillRetained = true
	opts.WillTopic = bridgeStateTopic(cfg.MQTT.BaseTopic)
	opts.WillQos = 0

	return opts
}

func CreateMQTTClient(cfg *config.Config, opts *mqtt.ClientOptions, onConnectHandler func(client mqtt.Client),
	onConnectionLostHandler func(mqtt.Client, error)) *MQTTClient {
	if onConnectHandler != nil {
		opts.OnConnect = onConnectHandler
	}
	if onConnectionLostHandler != nil {
		opts.OnConnectionLost = onConnectionLostHandler
	}
	return &MQTTClient{
		client:                mqtt.NewClient(opts),
		cfg:                   cfg.MQTT,
		durationCommandRegexp: durationCommandExtractor(cfg.MQTT.BaseTopic),
		nameCommandRegexp:     nameCommandExtractor(cfg.MQTT.BaseTopic),
	}
}

type MQTTClient struct {
	client                mqtt.Client
	cfg                   config.MQTTConfig
	durationCommandRegexp *regexp.Regexp
	nameCommandRegexp     *regexp.Regexp
}

type ParsedMQTTCommand struct {
	DeviceId string
	Command  string
	Param    string
	Payload  string
}

func (c *MQTTClient) baseTopic() string {
	return c.cfg.BaseTopic
}

func (c *MQTTClient) BridgeStateTopic() string {
	return bridgeStateTopic(c.baseTopic())
}

func (c *MQTTClient) SensorStateTopic(sensorId string) string {
	return fmt.Sprintf("%s/sensor/%s/state", c.baseTopic(), sensorId)
}

func (c *MQTTClient) BinarySensorStateTopic(sensorId string) string {
	return fmt.Sprintf("%s/binary_sensor/%s/state", c.baseTopic(), sensorId)
}

func (c *MQTTClient) InputNumberStateTopic(id string) string {
	return fmt.Sprintf("%s/number/%s/state", c.baseTopic(), id)
}

func (c *MQTTClient) DurationCommandTopic(deviceId, key string) string {
	return fmt.Sprintf("%s/%s/duration/%s/set", c.baseTopic(), deviceId, key)
}

func (c *MQTTClient) NameCommandTopic(deviceId, channel string) string {
	if channel == "" {
		return fmt.Sprintf("%s/%s/name/set", c.baseTopic(), deviceId)
	}
	return fmt.Sprintf("%s/%s/%s/name/set", c.baseTopic(), deviceId, channel)
}

// ParseMQTTCommand returns ErrNotACommand for topics that carry no command, such as published states.
func (c *MQTTClient) ParseMQTTCommand(msg mqtt.Message) (*ParsedMQTTCommand, error) {
	return parseCommand(c.durationCommandRegexp, c.nameCommandRegexp, msg.Topic(), msg.Payload())
}

func parseCommand(durationRegexp, nameRegexp *regexp.Regexp, topic string, payload []byte) (*ParsedMQTTCommand, error) {
	if matches := durationRegexp.FindStringSubmatch(topic); matches != nil {
		// try to parse a valid number
		_, err := strconv.ParseFloat(string(payload), 64)
		if err != nil {
			return nil, err
		}
		return &ParsedMQTTCommand{
			DeviceId: matches[1],
			Command:  MQTT_COMMAND_DURATION,
			Param:    matches[2],
			Payload:  string(payload),
		}, nil
	}
	if matches := nameRegexp.FindStringSubmatch(topic); matches != nil {
		return &ParsedMQTTCommand{
			DeviceId: matches[1],
			Command:  MQTT_COMMAND_NAME,
			Param:    matches[2],
			Payload:  string(payload),
		}, nil
	}
	return nil, ErrNotACommand
}

func (c *MQTTClient) Publish(topic string, payload any, qos byte, retain bool, continuation func(error), timeout time.Duration) {
	token := c.client.Publish(topic, qos, retain, payload)
	go func() {
		didTO := token.WaitTimeout(timeout)
		if !didTO {
			continuation(errors.New("MQTT publish timed out"))
		} else {
			continuation(token.Error())
		}
	}()
}

func (c *MQTTClient) Subscribe(topic string, qos byte, handler mqtt.MessageHandler, continuation func(error), timeout time.Duration) {
	token := c.client.Subscribe(topic, qos, handler)
	go func() {
		didTO := token.WaitTimeout(timeout)
		if !didTO {
			continuation(errors.New("MQTT subscribe timed out"))
		} else {
			continuation(token.Error())
		}
	}()
}

func (c *MQTTClient) SubscribeToCommandTopic(handler mqtt.MessageHandler, continuation func(error), timeout time.Duration) {
	c.Subscribe(c.commandTopic(), 1, handler, continuation, timeout)
}

func (c *MQTTClient) Unsubscribe(topic string, continuation func(error), timeout time.Duration) {
	token := c.client.Unsubscribe(topic)
	go func() {
		didTO := token.WaitTimeout(timeout)
		if !didTO {
			continuation(errors.New("MQTT unsubscribe timed out"))
		} else {
			continuation(token.Error())
		}
	}()
}

func (c *MQTTClient) Connect(continuation func(error), timeout time.Duration) {
	token := c.client.Connect()
	go func() {
		didTO := token.WaitTimeout(timeout)
		if !didTO {
			continuation(errors.New("MQTT connect timed out"))
		} else {
			continuation(token.Error())
		}
	}()
}

func (c *MQTTClient) Disconnect(timeout time.Duration) {
	c.client.Disconnect(uint(timeout.Milliseconds()))
}

func (c *MQTTClient) commandTopic() string {
	return fmt.Sprintf("%s/#", c.baseTopic())
}

func durationCommandExtractor(baseTopic string) *regexp.Regexp {
	return regexp.MustCompile(fmt.Sprintf(`^%s/([a-zA-Z0-9_-]+)/duration/([^/#+ ]+)/set$`, regexp.QuoteMeta(baseTopic)))
}

func nameCommandExtractor(baseTopic string) *regexp.Regexp {
	return regexp.MustCompile(fmt.Sprintf(`^%s/([a-zA-Z0-9_-]+)/(?:([^/#+ ]+)/)?name/set$`, regexp.QuoteMeta(baseTopic)))
}

func bridgeStateTopic(baseTopic string) string {
	return fmt.Sprintf("%s/bridge/state", baseTopic)
}
