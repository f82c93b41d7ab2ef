package actor

import (
	"errors"
	"fmt"
	"time"

	"github.com/berfenger/devstate2mqtt/internal/config"
	"github.com/berfenger/devstate2mqtt/internal/core/domain"
	"github.com/berfenger/devstate2mqtt/internal/util/actorutil"
	"github.com/berfenger/devstate2mqtt/pkg/sunspec_modbus"

	"github.com/asynkron/protoactor-go/actor"
	"go.uber.org/zap"
)

const minExpireAfterSeconds = 30

type HADiscoveryActor struct {
	config            *config.Config
	behavior          actor.Behavior
	stash             *actorutil.Stash
	meterActor        *actor.PID
	mqttActor         *actor.PID
	meterActorHealthy bool
	mqttActorHealthy  bool
	healthyRecv       int
	healthyExpected   int

	logger *zap.Logger
}

// NewHADiscoveryActor publishes the discovery catalog once. meterActor may be nil.
func NewHADiscoveryActor(config *config.Config, meterActor *actor.PID, mqttActor *actor.PID, logger *zap.Logger) *HADiscoveryActor {
	act := &HADiscoveryActor{
		config:     config,
		meterActor: meterActor,
		mqttActor:  mqttActor,
		behavior:   actor.NewBehavior(),
		stash:      &actorutil.Stash{},
		logger:     actorutil.ActorLogger(domain.ACTOR_ID_HA_DISCOVERY, logger),
	}
	act.behavior.Become(act.StartingReceive)
	return act
}

func (state *HADiscoveryActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *HADiscoveryActor) StartingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("hadiscovery@starting started")

		// Check Meter and MQTT actor healthy
		state.healthyRecv = 0
		state.healthyExpected = 1
		state.meterActorHealthy = state.meterActor == nil
		state.mqttActorHealthy = false
		// Meter Actor Request
		if state.meterActor != nil {
			state.healthyExpected++
			actorutil.PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.meterActor, domain.ActorHealthRequest{}, 2*time.Second), func(err error) any {
				return domain.ActorHealthResponse{
					Id:      domain.ACTOR_ID_METER,
					Healthy: false,
				}
			})
		}
		// MQTT Actor Request
		actorutil.PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.mqttActor, domain.ActorHealthRequest{}, 2*time.Second), func(err error) any {
			return domain.ActorHealthResponse{
				Id:      domain.ACTOR_ID_MQTT,
				Healthy: false,
			}
		})
		state.behavior.Become(state.WaitingHealthyReceive)
	case *actor.Restarting:
	default:
		state.logger.Debug("hadiscovery@starting: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *HADiscoveryActor) WaitingHealthyReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthResponse:
		state.logger.Debug("hadiscovery@healthcheck ActorHealthResponse", zap.String("sender", msg.Id), zap.Bool("healthy", msg.Healthy))
		state.healthyRecv++
		if msg.Healthy {
			switch msg.Id {
			case domain.ACTOR_ID_METER:
				state.meterActorHealthy = true
			case domain.ACTOR_ID_MQTT:
				state.mqttActorHealthy = true
			}
		}
		if state.healthyRecv < state.healthyExpected {
			return
		}
		if !state.meterActorHealthy || !state.mqttActorHealthy {
			panic(errors.New("MQTT Actor or Meter Actor are not healthy"))
		}
		if state.meterActor == nil {
			state.publish(ctx, nil)
			return
		}
		// Ask the meter who it is
		actorutil.PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.meterActor, domain.GetMeterInfoRequest{}, 2*time.Second), func(err error) any {
			return domain.GetMeterInfoResponse{
				ActorResponseMixIn: domain.ActorResponseMixIn{
					ResponseError: err,
				},
			}
		})
		state.behavior.Become(state.WaitingInfoReceive)
		state.stash.UnstashAll(ctx)
	default:
		state.logger.Debug("hadiscovery@healthcheck: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *HADiscoveryActor) Done(ctx actor.Context) {

}

func (state *HADiscoveryActor) WaitingInfoReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.GetMeterInfoResponse:
		if msg.HasResponseError() {
			// the catalog does not depend on the meter, only its labels do
			state.logger.Warn("hadiscovery@info GetMeterInfoResponse", zap.Error(msg.GetResponseError()))
			state.publish(ctx, nil)
			return
		}
		state.logger.Debug("hadiscovery@info GetMeterInfoResponse", zap.Any("response", msg))
		state.publish(ctx, msg.Meter)
	default:
		state.logger.Debug("hadiscovery@info: default recv", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

func (state *HADiscoveryActor) publish(ctx actor.Context, meter *sunspec_modbus.ACMeterInfo) {
	sensors, inputNumbers := DiscoveryCatalog(state.config, meter)
	state.logger.Info("hadiscovery@publish", zap.Int("sensors", len(sensors)), zap.Int("inputNumbers", len(inputNumbers)))
	ctx.Send(state.mqttActor, domain.PublishDiscoveryRequest{
		Sensors:      sensors,
		InputNumbers: inputNumbers,
	})
	state.behavior.Become(state.Done)
}

// DiscoveryExpireAfter is how long derived values stay valid in Home Assistant:
// ten derive periods, never less than half a minute.
func DiscoveryExpireAfter(cfg *config.Config) int {
	seconds := int(cfg.Derive.PollIntervalMillis) * 10 / 1000
	if seconds < minExpireAfterSeconds {
		return minExpireAfterSeconds
	}
	return seconds
}

// DiscoveryCatalog lists the bridge entities plus the derived entities of every
// configured device. The meter model, when known, labels the device it feeds.
func DiscoveryCatalog(cfg *config.Config, meter *sunspec_modbus.ACMeterInfo) ([]domain.GenericSensor, []domain.GenericInputNumber) {
	var sensors []domain.GenericSensor
	var inputNumbers []domain.GenericInputNumber

	expireAfter := DiscoveryExpireAfter(cfg)
	bridgeDevice := domain.BridgeDevice(cfg.MQTT.BaseTopic)
	sensors = append(sensors, domain.BridgeSensors(bridgeDevice)...)

	for _, dev := range cfg.Devices {
		device := domain.DerivedDevice(bridgeDevice, dev.Id, dev.Name)
		if meter != nil && cfg.MeterModbusTcp.Enabled && dev.Id == cfg.MeterModbusTcp.DeviceId {
			device.Manufacturer = meter.Manufacturer
			device.Model = meter.Model
		}

		var devSensors []domain.GenericSensor
		switch dev.Kind {
		case config.DEVICE_KIND_RGBW:
			devSensors = append(devSensors, domain.ColorLightSensors(device, dev.Id)...)
		case config.DEVICE_KIND_WHITE:
			devSensors = append(devSensors, domain.WhiteLightSensors(device, dev.Id)...)
		case config.DEVICE_KIND_EM3:
			devSensors = append(devSensors, domain.EmeterSensors(device, dev.Id)...)
		}
		if dev.ExtSensors > 0 {
			devSensors = append(devSensors, domain.ExtSensors(device, dev.Id, dev.ExtSensors)...)
		}
		devSensors = append(devSensors, domain.FavoriteSensors(device, dev.Id, dev.Favorites)...)
		devSensors = domain.ExpiringSensors(devSensors, expireAfter)
		devNumbers := domain.DurationInputNumbers(device, dev.Id, dev.Durations)

		// only the first entity carries the full device description
		for i := range devSensors {
			if i > 0 {
				devSensors[i].Device = domain.IdDevice(device)
			}
		}
		for i := range devNumbers {
			if i > 0 || len(devSensors) > 0 {
				devNumbers[i].Device = domain.IdDevice(device)
			}
		}
		sensors = append(sensors, devSensors...)
		inputNumbers = append(inputNumbers, devNumbers...)
	}
	return sensors, inputNumbers
}
