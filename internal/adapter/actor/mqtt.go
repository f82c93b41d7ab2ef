package actor

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/berfenger/devstate2mqtt/internal/config"
	"github.com/berfenger/devstate2mqtt/internal/core/domain"
	"github.com/berfenger/devstate2mqtt/internal/mqtt"
	"github.com/berfenger/devstate2mqtt/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

const (
	MQTT_STATE_CONNECTING = "connecting"
	MQTT_STATE_IDLE       = "idle"
	MQTT_STATE_PUBLISHING = "publishing"
	MQTT_STATE_RECORDING  = "recording"

	mqttPublishTimeout = 5 * time.Second
	// sensor updates held while connecting or publishing
	mqttStashLimit = 1024
)

// MQTTActor publishes derived values and forwards device commands received on
// the command topics to its parent. One publish is in flight at a time.
type MQTTActor struct {
	actorutil.ActorWithStates
	config   *config.Config
	stash    *actorutil.Stash
	client   *mqtt.MQTTClient
	logger   *zap.Logger
	recorder *PublishRecorder
}

type MQTTConnected struct {
}

type MQTTSubscribed struct {
}

type MQTTConnectionLost struct {
	Error error
}

// publishResult answers the original requester, if any, with a response built from the publish error.
type publishResult struct {
	replyTo  *actor.PID
	response func(error) any
	err      error
}

type ParsedCommand struct {
	Command *mqtt.ParsedMQTTCommand
}

type rawMessage struct {
	topic   string
	message string
	retain  bool
}

func NewMQTTActor(config *config.Config, logger *zap.Logger) *MQTTActor {
	act := &MQTTActor{
		ActorWithStates: actorutil.NewActorWithStates(),
		config:          config,
		stash:           actorutil.NewBoundedStash(mqttStashLimit),
		logger:          actorutil.ActorLogger(domain.ACTOR_ID_MQTT, logger),
	}
	act.Become(actorutil.NamedState{StateName: MQTT_STATE_CONNECTING, Fn: act.ConnectingReceive})
	return act
}

func (state *MQTTActor) Receive(context actor.Context) {
	state.Behavior.Receive(context)
}

func (state *MQTTActor) ConnectingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("mqtt@connecting started")

		state.client = mqtt.CreateMQTTClient(state.config, mqtt.OptsFromConfig(state.config), func(_ pahomqtt.Client) {
		}, func(_ pahomqtt.Client, err error) {
			ctx.Send(ctx.Self(), MQTTConnectionLost{Error: err})
		})

		state.client.Connect(func(err error) {
			if err != nil {
				ctx.Send(ctx.Self(), MQTTConnectionLost{Error: err})
			} else {
				ctx.Send(ctx.Self(), MQTTConnected{})
			}
		}, 10*time.Second)

	case MQTTConnected:
		state.logger.Debug("mqtt@connecting connected")

		state.client.Publish(state.client.BridgeStateTopic(), mqtt.MQTT_PAYLOAD_ONLINE, 0, true, func(error) {}, 500*time.Millisecond)

		// duration and name commands
		state.client.SubscribeToCommandTopic(func(c pahomqtt.Client, m pahomqtt.Message) {
			cmd, err := state.client.ParseMQTTCommand(m)
			if err == nil && cmd != nil {
				ctx.Send(ctx.Self(), ParsedCommand{Command: cmd})
			} else if !errors.Is(err, mqtt.ErrNotACommand) {
				state.logger.Warn("mqtt@subscriber invalid command", zap.String("topic", m.Topic()), zap.Error(err))
			}
		}, func(err error) {
			if err != nil {
				ctx.Send(ctx.Self(), MQTTConnectionLost{Error: err})
			} else {
				ctx.Send(ctx.Self(), MQTTSubscribed{})
			}
		}, 1*time.Second)
	case MQTTSubscribed:
		state.logger.Info("mqtt@connecting ready", zap.String("bridge", state.client.BridgeStateTopic()))
		state.Become(actorutil.NamedState{StateName: MQTT_STATE_IDLE, Fn: state.IdleReceive})
		state.stash.UnstashAll(ctx)
	case domain.ActorHealthRequest:
		ctx.Respond(state.health(false))
	case MQTTConnectionLost:
		// the supervisor restarts us with backoff
		state.logger.Error("mqtt@connecting connection lost", zap.Error(msg.Error))
		panic(msg.Error)
	case *actor.Restarting:
		state.stop()
	default:
		state.logger.Debug("mqtt@connecting stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stashMessage(ctx, msg)
	}
}

func (state *MQTTActor) IdleReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Restarting:
		state.stop()
	case *actor.Stopping:
		state.stop()
	case domain.ActorHealthRequest:
		state.logger.Debug("mqtt@idle ActorHealthRequest")
		ctx.Respond(state.health(true))
	case ParsedCommand:
		state.forwardCommand(ctx, msg)
	case domain.PublishMessageRequest:
		state.logger.Debug("mqtt@idle PublishMessageRequest", zap.String("topic", msg.Topic))
		state.publish(ctx, &rawMessage{topic: msg.Topic, message: msg.Payload, retain: msg.Retain}, actorutil.ForRequest(msg).ReplyTo(ctx), func(err error) any {
			return domain.PublishMessageResponse{ActorResponseMixIn: domain.ErrorResponse(err)}
		})
	case domain.PublishSensorUpdateRequest:
		state.logger.Debug("mqtt@idle PublishSensorUpdateRequest", zap.String("sensor", msg.Event.SensorId()))
		m := state.event2MQTTMessage(msg.Event)
		if m == nil {
			state.logger.Warn("mqtt@idle unsupported sensor event", zap.String("type", fmt.Sprintf("%T", msg.Event)))
			if replyTo := actorutil.ForRequest(msg).ReplyTo(ctx); replyTo != nil {
				ctx.Send(replyTo, domain.PublishSensorUpdateResponse{})
			}
			return
		}
		m.retain = m.retain || msg.Retain
		state.publish(ctx, m, actorutil.ForRequest(msg).ReplyTo(ctx), func(err error) any {
			return domain.PublishSensorUpdateResponse{ActorResponseMixIn: domain.ErrorResponse(err)}
		})
	case domain.SetDurationResponse:
		state.commandResult(domain.DEVICE_COMMAND_DURATION, msg)
	case domain.SyncNameResponse:
		state.commandResult(domain.DEVICE_COMMAND_NAME, msg)
	case domain.PublishDiscoveryRequest:
		state.logger.Debug("mqtt@idle PublishDiscoveryRequest")
		if err := state.PublishHomeAssistantDiscovery(ctx, msg.Sensors, msg.InputNumbers); err != nil {
			state.logger.Error("mqtt@idle PublishDiscoveryRequest error", zap.Error(err))
		}
	case MQTTConnectionLost:
		state.logger.Error("mqtt@idle connection lost", zap.Error(msg.Error))
		panic(msg.Error)
	default:
		state.logger.Debug("mqtt@idle default recv", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

func (state *MQTTActor) PublishingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case publishResult:
		if msg.err != nil {
			state.logger.Error("mqtt@publishing could not publish a message", zap.Error(msg.err))
		}
		if msg.replyTo != nil {
			ctx.Send(msg.replyTo, msg.response(msg.err))
		}
		state.UnbecomeStacked()
		state.stash.UnstashOldest(ctx)
	case domain.ActorHealthRequest:
		ctx.Respond(state.health(true))
	case *actor.Restarting:
		state.stop()
	case *actor.Stopping:
		state.stop()
	case MQTTConnectionLost:
		state.logger.Error("mqtt@publishing connection lost", zap.Error(msg.Error))
		panic(msg.Error)
	default:
		state.logger.Debug("mqtt@publishing stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stashMessage(ctx, msg)
	}
}

func (state *MQTTActor) publish(ctx actor.Context, m *rawMessage, replyTo *actor.PID, response func(error) any) {
	state.logger.Debug("mqtt@publish", zap.String("topic", m.topic), zap.String("payload", m.message))
	state.client.Publish(m.topic, m.message, 1, m.retain, func(err error) {
		ctx.Send(ctx.Self(), publishResult{replyTo: replyTo, response: response, err: err})
	}, mqttPublishTimeout)
	state.BecomeStacked(actorutil.NamedState{StateName: MQTT_STATE_PUBLISHING, Fn: state.PublishingReceive})
}

func (state *MQTTActor) forwardCommand(ctx actor.Context, msg ParsedCommand) {
	req, err := actorutil.ParsedMQTTCommandToCommand(*msg.Command, ctx.Self())
	if err != nil {
		state.logger.Warn("mqtt@"+state.StateName()+" unsupported command", zap.Any("command", msg.Command), zap.Error(err))
		return
	}
	state.logger.Debug("mqtt@"+state.StateName()+" command", zap.String("command", req.DeviceCommand()), zap.String("device", req.TargetDevice()))
	ctx.Send(ctx.Parent(), req)
}

func (state *MQTTActor) stashMessage(ctx actor.Context, msg any) {
	if state.stash.Stash(ctx, msg) {
		state.logger.Warn("mqtt@"+state.StateName()+" stash full, oldest message dropped", zap.Int("limit", mqttStashLimit))
	}
}

// commandResult logs the outcome of a command received over MQTT, which has nobody else to tell.
func (state *MQTTActor) commandResult(command string, resp domain.ActorResponse) {
	if resp.HasResponseError() {
		state.logger.Warn("mqtt@idle command failed", zap.String("command", command), zap.Error(resp.GetResponseError()))
		return
	}
	state.logger.Debug("mqtt@idle command done", zap.String("command", command))
}

func (state *MQTTActor) health(healthy bool) domain.ActorHealthResponse {
	return domain.ActorHealthResponse{
		Id:      domain.ACTOR_ID_MQTT,
		Healthy: healthy,
		State:   state.StateName(),
	}
}

func (state *MQTTActor) event2MQTTMessage(event domain.SensorUpdateEvent) *rawMessage {
	switch msg := event.(type) {
	case domain.FloatSensorUpdateEvent:
		return &rawMessage{topic: state.client.SensorStateTopic(msg.Id), message: msg.Formatted()}
	case domain.TextSensorUpdateEvent:
		return &rawMessage{topic: state.client.SensorStateTopic(msg.Id), message: msg.Value}
	case domain.BinarySensorUpdateEvent:
		return &rawMessage{topic: state.client.BinarySensorStateTopic(msg.Id), message: bool2MQTTPayload(msg.Value)}
	case domain.InputNumberSensorUpdateEvent:
		// numbers keep their state across restarts of Home Assistant
		return &rawMessage{topic: state.client.InputNumberStateTopic(msg.Id), message: msg.Formatted(), retain: true}
	case domain.BridgeStateUpdateEvent:
		payload := mqtt.MQTT_PAYLOAD_OFFLINE
		if msg.Value {
			payload = mqtt.MQTT_PAYLOAD_ONLINE
		}
		return &rawMessage{topic: state.client.BridgeStateTopic(), message: payload, retain: true}
	default:
		return nil
	}
}

func (state *MQTTActor) PublishHomeAssistantDiscovery(ctx actor.Context, sensors []domain.GenericSensor,
	inputNumbers []domain.GenericInputNumber) error {
	prefix := state.config.MQTT.HADiscoveryTopic
	for i := range sensors {
		msg := mqtt.GenericSensorToHADiscoveryMessage(state.client, sensors[i])
		payload, err := json.Marshal(msg)
		if err != nil {
			return err
		}
		topic := mqtt.HADiscoverySensorTopic(prefix, sensors[i])
		state.client.Publish(topic, payload, 0, true, func(error) {}, 1*time.Second)
	}
	for i := range inputNumbers {
		msg := mqtt.GenericInputNumberToHADiscoveryMessage(state.client, inputNumbers[i])
		payload, err := json.Marshal(msg)
		if err != nil {
			return err
		}
		topic := mqtt.HADiscoveryInputNumberTopic(prefix, inputNumbers[i])
		state.client.Publish(topic, payload, 0, true, func(error) {}, 1*time.Second)
	}
	return nil
}

func (state *MQTTActor) stop() {
	state.logger.Debug("mqtt: disconnect")
	if state.client != nil {
		state.client.Publish(state.client.BridgeStateTopic(), mqtt.MQTT_PAYLOAD_OFFLINE, 0, true, func(error) {}, 500*time.Millisecond)
		state.client.Disconnect(500 * time.Millisecond)
	}
}

func bool2MQTTPayload(value bool) string {
	if value {
		return mqtt.MQTT_PAYLOAD_ON
	}
	return mqtt.MQTT_PAYLOAD_OFF
}

// NewTestMQTTActor never connects. It records what would have been published.
func NewTestMQTTActor(config *config.Config, recorder *PublishRecorder, logger *zap.Logger) *MQTTActor {
	act := &MQTTActor{
		ActorWithStates: actorutil.NewActorWithStates(),
		config:          config,
		stash:           &actorutil.Stash{},
		logger:          actorutil.ActorLogger(domain.ACTOR_ID_MQTT, logger),
		recorder:        recorder,
	}
	act.Become(actorutil.NamedState{StateName: MQTT_STATE_RECORDING, Fn: act.RecordingReceive})
	return act
}

func (state *MQTTActor) RecordingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.client = mqtt.CreateMQTTClient(state.config, mqtt.OptsFromConfig(state.config), nil, nil)
	case domain.ActorHealthRequest:
		ctx.Respond(state.health(true))
	case domain.PublishSensorUpdateRequest:
		if m := state.event2MQTTMessage(msg.Event); m != nil && state.recorder != nil {
			state.recorder.record(m.topic, m.message)
		}
		actorutil.ForRequest(msg).Respond(ctx, domain.PublishSensorUpdateResponse{})
	case domain.PublishMessageRequest:
		if state.recorder != nil {
			state.recorder.record(msg.Topic, msg.Payload)
		}
		actorutil.ForRequest(msg).Respond(ctx, domain.PublishMessageResponse{})
	case domain.PublishDiscoveryRequest:
		if state.recorder != nil {
			state.recorder.discovery(len(msg.Sensors) + len(msg.InputNumbers))
		}
	case ParsedCommand:
		state.forwardCommand(ctx, msg)
	}
}

// PublishRecorder collects the messages a test MQTT actor was asked to publish.
type PublishRecorder struct {
	mu         sync.Mutex
	messages   map[string]string
	discovered int
}

func NewPublishRecorder() *PublishRecorder {
	return &PublishRecorder{messages: map[string]string{}}
}

func (r *PublishRecorder) record(topic, payload string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages[topic] = payload
}

func (r *PublishRecorder) discovery(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.discovered += n
}

// Last returns the last payload published on topic.
func (r *PublishRecorder) Last(topic string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.messages[topic]
	return p, ok
}

func (r *PublishRecorder) Discovered() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.discovered
}
