package mqtt

import (
	"encoding/json"
	"testing"

	"github.com/berfenger/devstate2mqtt/internal/core/domain"
	"github.com/berfenger/devstate2mqtt/internal/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parse(baseTopic, topic, payload string) (*ParsedMQTTCommand, error) {
	return parseCommand(durationCommandExtractor(baseTopic), nameCommandExtractor(baseTopic), topic, []byte(payload))
}

func TestDurationCommandParse(t *testing.T) {

	assert := assert.New(t)
	require := require.New(t)

	cmd, err := parse("loremTopic", "loremTopic/relay-1/duration/Relay0.Timer/set", "30")
	require.NoError(err)

	assert.Equal("relay-1", cmd.DeviceId, "device extract")
	assert.Equal(MQTT_COMMAND_DURATION, cmd.Command)
	assert.Equal("Relay0.Timer", cmd.Param, "key extract")
	assert.Equal("30", cmd.Payload)
}

func TestDurationCommandParseInvalidNumber(t *testing.T) {

	assert := assert.New(t)

	cmd, err := parse("loremTopic", "loremTopic/relay/duration/Relay0.Timer/set", "soon")
	assert.Error(err)
	assert.Nil(cmd)
}

func TestNameCommandParse(t *testing.T) {

	assert := assert.New(t)
	require := require.New(t)

	cmd, err := parse("loremTopic", "loremTopic/rgbw/name/set", "Kitchen")
	require.NoError(err)
	assert.Equal("rgbw", cmd.DeviceId)
	assert.Equal(MQTT_COMMAND_NAME, cmd.Command)
	assert.Equal("", cmd.Param)
	assert.Equal("Kitchen", cmd.Payload)

	cmd, err = parse("loremTopic", "loremTopic/rgbw/lights/name/set", "Kitchen strip")
	require.NoError(err)
	assert.Equal("rgbw", cmd.DeviceId)
	assert.Equal("lights", cmd.Param, "channel extract")
}

func TestCommandParseFail(t *testing.T) {

	assert := assert.New(t)

	for _, topic := range []string{
		"loremTopic/sensor/rgbw_hue/state",
		"loremTopic/number/relay_duration_relay0_timer/state",
		"loremTopic/bridge/state",
		"other/rgbw/name/set",
		"loremTopic/rgbw/a/b/name/set",
	} {
		_, err := parse("loremTopic", topic, "1")
		assert.ErrorIs(err, ErrNotACommand, topic)
	}
}

func TestBaseTopicIsQuoted(t *testing.T) {

	assert := assert.New(t)

	_, err := parse("home.dev", "homeXdev/rgbw/name/set", "x")
	assert.ErrorIs(err, ErrNotACommand)
}

func TestTopics(t *testing.T) {

	assert := assert.New(t)

	cfg := util.LoadTestConfig()
	client := CreateMQTTClient(&cfg, OptsFromConfig(&cfg), nil, nil)

	assert.Equal("devstate/bridge/state", client.BridgeStateTopic())
	assert.Equal("devstate/sensor/rgbw_hue/state", client.SensorStateTopic("rgbw_hue"))
	assert.Equal("devstate/relay/duration/Relay0.Timer/set", client.DurationCommandTopic("relay", "Relay0.Timer"))
	assert.Equal("devstate/rgbw/name/set", client.NameCommandTopic("rgbw", ""))
	assert.Equal("devstate/rgbw/lights/name/set", client.NameCommandTopic("rgbw", "lights"))
}

func TestHADiscoveryMessages(t *testing.T) {

	assert := assert.New(t)
	require := require.New(t)

	cfg := util.LoadTestConfig()
	client := CreateMQTTClient(&cfg, OptsFromConfig(&cfg), nil, nil)

	bridge := domain.BridgeDevice(cfg.MQTT.BaseTopic)
	bridgeSensor := domain.BridgeSensors(bridge)[0]
	msg := GenericSensorToHADiscoveryMessage(client, bridgeSensor)
	assert.Equal(client.BridgeStateTopic(), msg.StateTopic)
	assert.Equal(MQTT_PAYLOAD_ONLINE, msg.PayloadOn)
	assert.Equal("homeassistant/binary_sensor/"+bridge.Id+"/bridge/config", HADiscoverySensorTopic("", bridgeSensor))

	device := domain.DerivedDevice(bridge, "rgbw", "")
	light := domain.ExpiringSensors(domain.ColorLightSensors(device, "rgbw"), 60)
	msg = GenericSensorToHADiscoveryMessage(client, light[0])
	assert.Equal("devstate/binary_sensor/rgbw_ison/state", msg.StateTopic)
	assert.Equal(MQTT_PAYLOAD_ON, msg.PayloadOn)
	assert.Equal(60, msg.ExpireAfter)
	raw, err := json.Marshal(msg)
	require.NoError(err)
	assert.Contains(string(raw), `"expire_after":60`)

	number := domain.DurationInputNumbers(device, "relay", []string{"Relay0.Timer"})[0]
	msg = GenericInputNumberToHADiscoveryMessage(client, number)
	assert.Equal("devstate/relay/duration/Relay0.Timer/set", msg.CommandTopic)
	assert.Equal("s", msg.UnitOfMeasurement)
	assert.Equal("ha/number/"+device.Id+"/"+number.Id+"/config", HADiscoveryInputNumberTopic("ha", number))

	raw, err = json.Marshal(msg)
	require.NoError(err)
	assert.NotContains(string(raw), "expire_after")
	assert.Contains(string(raw), `"device":{"identifiers":["`+device.Id+`"]`)
}
