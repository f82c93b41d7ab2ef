package actor

import (
	"errors"
	"fmt"
	"time"

	adactor "github.com/berfenger/devstate2mqtt/internal/adapter/actor"
	"github.com/berfenger/devstate2mqtt/internal/config"
	"github.com/berfenger/devstate2mqtt/internal/core/domain"
	"github.com/berfenger/devstate2mqtt/internal/core/port"
	. "github.com/berfenger/devstate2mqtt/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"go.uber.org/zap"
)

type MQTTActorProvider func() *adactor.MQTTActor

// MeterActorProvider is nil when no Modbus meter is configured.
type MeterActorProvider func() *adactor.MeterActor

// Stores groups the collaborators the derive actor works on.
type Stores struct {
	States port.StateStore
	Meta   port.MetadataStore
	Names  port.NameCache
}

type MasterOfPuppetsActor struct {
	config   config.Config
	behavior actor.Behavior
	stash    *Stash

	currentHealthCheck healthCheckResult
	eventStream        *eventstream.EventStream
	subscription       *eventstream.Subscription
	stores             Stores
	meterActor         *actor.PID
	mqttActor          *actor.PID
	deriveActor        *actor.PID
	meterActorProvider MeterActorProvider
	mqttActorProvider  MQTTActorProvider
	logger             *zap.Logger
}

type healthCheckResult struct {
	healthy        map[string]bool
	expected       int
	checksReceived int
	respondTo      *actor.PID
}

func NewMasterOfPuppetsActor(config config.Config, stores Stores, meterActorProvider MeterActorProvider, mqttActorProvider MQTTActorProvider, logger *zap.Logger) *MasterOfPuppetsActor {
	act := &MasterOfPuppetsActor{
		config:             config,
		behavior:           actor.NewBehavior(),
		stash:              &Stash{},
		logger:             ActorLogger(domain.ACTOR_ID_MASTER, logger),
		eventStream:        &eventstream.EventStream{},
		stores:             stores,
		meterActorProvider: meterActorProvider,
		mqttActorProvider:  mqttActorProvider,
	}
	act.behavior.Become(act.StartingReceive)
	return act
}

func (state *MasterOfPuppetsActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *MasterOfPuppetsActor) StartingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("master@starting started")

		// start Meter child
		if state.meterActorProvider != nil {
			meterActorPID, err := state.startMeterActor(ctx)
			if err != nil {
				panic(err)
			}
			state.meterActor = meterActorPID
		}

		// start MQTT child
		mqttActorPID, err := state.startMQTTActor(ctx)
		if err != nil {
			panic(err)
		}
		state.mqttActor = mqttActorPID

		// derived values flow to MQTT through the event stream
		root := ctx.ActorSystem().Root
		state.subscription = state.eventStream.Subscribe(func(evt any) {
			if ev, ok := evt.(domain.SensorUpdateEvent); ok {
				root.Send(mqttActorPID, domain.PublishSensorUpdateRequest{Event: ev})
			}
		})

		// start Derive child
		deriveActorPID, err := state.startDeriveActor(ctx)
		if err != nil {
			panic(err)
		}
		state.deriveActor = deriveActorPID

		// start HA Discovery
		if state.config.MQTT.HADiscoveryEnable {
			_, err := state.startHADiscoveryActor(ctx)
			if err != nil {
				panic(err)
			}
		}

		state.behavior.Become(state.DefaultReceive)
		state.stash.UnstashAll(ctx)
	default:
		state.logger.Debug("master@starting stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *MasterOfPuppetsActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthRequest:
		state.logger.Debug("master@default ActorHealthRequest")
		state.currentHealthCheck.reset(state.children())
		state.currentHealthCheck.respondTo = ctx.Sender()
		for id, pid := range state.children() {
			PipeToSelfWithRecover(ctx, ctx.RequestFuture(pid, domain.ActorHealthRequest{}, 500*time.Millisecond), func(err error) any {
				return domain.ActorHealthResponse{
					Id:      id,
					Healthy: false,
				}
			})
		}

		ctx.SetReceiveTimeout(1 * time.Second)

		state.behavior.BecomeStacked(state.HealthCheckReceive)
	case domain.DeriveRequest, GetDeviceBridgeRequest, GetLastRunRequest:
		ctx.Forward(state.deriveActor)
	case domain.DeviceCommandRequest:
		// device commands are served by the derive actor, which owns the device services
		state.logger.Debug("master@default DeviceCommandRequest", zap.String("command", msg.DeviceCommand()), zap.String("device", msg.TargetDevice()))
		if _, ok := state.config.Device(msg.TargetDevice()); !ok {
			state.logger.Warn("master@default command for unknown device", zap.String("device", msg.TargetDevice()))
		}
		ctx.Forward(state.deriveActor)
	case domain.GetMeterInfoRequest, domain.GetMeterReadingRequest:
		if state.meterActor == nil {
			errResp := domain.ErrorResponse(ErrNoMeter)
			if _, ok := msg.(domain.GetMeterInfoRequest); ok {
				ctx.Respond(domain.GetMeterInfoResponse{ActorResponseMixIn: errResp})
			} else {
				ctx.Respond(domain.GetMeterReadingResponse{ActorResponseMixIn: errResp})
			}
			return
		}
		ctx.Forward(state.meterActor)
	case *actor.Terminated:
		// if the meter fails on boot, terminate
		if state.meterActor != nil && msg.Who.Id == state.meterActor.Id {
			state.logger.Error("master@default meter error")
			panic(errors.New("meter terminated"))
		}
	case *actor.Stopping:
		if state.subscription != nil {
			state.eventStream.Unsubscribe(state.subscription)
		}
	default:
		state.logger.Debug("master@default stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *MasterOfPuppetsActor) HealthCheckReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.ReceiveTimeout:
		// if some actor does not respond to healthCheck, assume not healthy
		ctx.CancelReceiveTimeout()
		state.currentHealthCheck.respond(ctx)
		state.behavior.UnbecomeStacked()
		state.stash.UnstashAll(ctx)
	case domain.ActorHealthResponse:
		state.logger.Debug("master@healthcheck ActorHealthResponse", zap.String("sender", msg.Id), zap.Bool("healthy", msg.Healthy))
		state.currentHealthCheck.checksReceived++
		if msg.Healthy {
			state.currentHealthCheck.healthy[msg.Id] = true
		}
		if state.currentHealthCheck.allReceived() {
			ctx.CancelReceiveTimeout()
			state.currentHealthCheck.respond(ctx)

			state.behavior.UnbecomeStacked()
			state.stash.UnstashAll(ctx)
		} else {
			ctx.SetReceiveTimeout(1 * time.Second)
		}
	default:
		state.logger.Debug("master@healthcheck stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *MasterOfPuppetsActor) children() map[string]*actor.PID {
	children := map[string]*actor.PID{
		domain.ACTOR_ID_MQTT:   state.mqttActor,
		domain.ACTOR_ID_DERIVE: state.deriveActor,
	}
	if state.meterActor != nil {
		children[domain.ACTOR_ID_METER] = state.meterActor
	}
	return children
}

func (state *MasterOfPuppetsActor) startMeterActor(ctx actor.Context) (*actor.PID, error) {

	supervisor := actor.NewExponentialBackoffStrategy(10*time.Second, 1*time.Second)

	meterProps := actor.PropsFromProducer(func() actor.Actor {
		return state.meterActorProvider()
	}, actor.WithSupervisor(supervisor))
	meterActorPID, err := ctx.SpawnNamed(meterProps, domain.ACTOR_ID_METER)
	if err != nil {
		return nil, err
	}

	return meterActorPID, nil
}

func (state *MasterOfPuppetsActor) startDeriveActor(ctx actor.Context) (*actor.PID, error) {

	decider := func(reason interface{}) actor.Directive {
		state.logger.Warn("master@supervisor restarting child", zap.Any("reason", reason))
		return actor.RestartDirective
	}
	supervisor := actor.NewOneForOneStrategy(3, 10*time.Second, decider)

	deriveProps := actor.PropsFromProducer(func() actor.Actor {
		return NewDeriveActor(&state.config, state.stores.States, state.stores.Meta, state.stores.Names, state.eventStream, state.logger)
	}, actor.WithSupervisor(supervisor))
	deriveActorPID, err := ctx.SpawnNamed(deriveProps, domain.ACTOR_ID_DERIVE)
	if err != nil {
		return nil, err
	}

	return deriveActorPID, nil
}

func (state *MasterOfPuppetsActor) startHADiscoveryActor(ctx actor.Context) (*actor.PID, error) {

	decider := func(reason interface{}) actor.Directive {
		state.logger.Warn("master@supervisor restarting child", zap.Any("reason", reason))
		return actor.RestartDirective
	}
	supervisor := actor.NewOneForOneStrategy(1, 10*time.Second, decider)

	haDiscProps := actor.PropsFromProducer(func() actor.Actor {
		return NewHADiscoveryActor(&state.config, state.meterActor, state.mqttActor, state.logger)
	}, actor.WithSupervisor(supervisor))
	haDiscPID, err := ctx.SpawnNamed(haDiscProps, domain.ACTOR_ID_HA_DISCOVERY)
	if err != nil {
		return nil, err
	}

	return haDiscPID, nil
}

func (state *MasterOfPuppetsActor) startMQTTActor(ctx actor.Context) (*actor.PID, error) {

	supervisor := actor.NewExponentialBackoffStrategy(10*time.Second, 1*time.Second)

	mqttProps := actor.PropsFromProducer(func() actor.Actor {
		return state.mqttActorProvider()
	}, actor.WithSupervisor(supervisor))
	mqttActorPID, err := ctx.SpawnNamed(mqttProps, domain.ACTOR_ID_MQTT)
	if err != nil {
		return nil, err
	}

	return mqttActorPID, nil
}

func (state *healthCheckResult) reset(children map[string]*actor.PID) {
	state.healthy = map[string]bool{}
	state.expected = len(children)
	state.checksReceived = 0
}

func (state *healthCheckResult) allReceived() bool {
	return state.checksReceived >= state.expected
}

func (state *healthCheckResult) allHealthy() bool {
	return len(state.healthy) == state.expected
}

func (state *healthCheckResult) respond(ctx actor.Context) {
	resp := domain.ActorHealthResponse{
		Id:      domain.ACTOR_ID_MASTER,
		Healthy: state.allHealthy(),
	}
	if state.respondTo != nil {
		ctx.Send(state.respondTo, resp)
	}
}
