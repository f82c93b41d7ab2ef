package actor

import (
	"context"
	"fmt"
	"time"

	"github.com/berfenger/devstate2mqtt/internal/core/domain"
	"github.com/berfenger/devstate2mqtt/internal/core/port"
	"github.com/berfenger/devstate2mqtt/internal/util/actorutil"
	"github.com/berfenger/devstate2mqtt/pkg/sunspec_modbus"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/scheduler"
	"go.uber.org/zap"
)

// MeterActor polls a SunSpec meter over Modbus TCP and feeds its phases into
// the state store, as a three-phase energy meter device would.
type MeterActor struct {
	behavior  actor.Behavior
	stash     *actorutil.Stash
	scheduler *scheduler.TimerScheduler
	meter     sunspec_modbus.ACMeterModbusReader
	writer    port.StateWriter
	deviceId  string
	interval  time.Duration
	logger    *zap.Logger
}

type backgroundTaskResult struct {
	message any
	replyTo *actor.PID
}

type meterTick struct {
}

type meterPollResult struct {
	written int
	err     error
}

func NewMeterActor(meter sunspec_modbus.ACMeterModbusReader, writer port.StateWriter, deviceId string, interval time.Duration, logger *zap.Logger) *MeterActor {
	act := &MeterActor{
		meter:    meter,
		writer:   writer,
		deviceId: deviceId,
		interval: interval,
		behavior: actor.NewBehavior(),
		stash:    &actorutil.Stash{},
		logger:   actorutil.ActorLogger(domain.ACTOR_ID_METER, logger),
	}
	act.behavior.Become(act.StartingReceive)
	return act
}

func (state *MeterActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *MeterActor) StartingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("meter@starting started")
		if err := state.meter.Open(); err != nil {
			panic(err)
		}
		if state.interval > 0 && state.writer != nil {
			state.scheduler = scheduler.NewTimerScheduler(ctx)
			state.scheduler.RequestOnce(state.interval, ctx.Self(), meterTick{})
		}
		state.behavior.Become(state.DefaultReceive)
		state.stash.UnstashAll(ctx)
	case *actor.Restarting:
		state.meter.Close()
	default:
		state.logger.Debug("meter@starting stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *MeterActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthRequest:
		state.logger.Debug("meter@default ActorHealthRequest")
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_METER,
			Healthy: true,
			State:   "idle",
		})
	case domain.GetMeterInfoRequest:
		state.logger.Debug("meter@default GetMeterInfoRequest")
		sender := actorutil.ForRequest(msg).ReplyTo(ctx)
		actorutil.MapBackgroundTask(actorutil.NewBackgroundTask(ctx, state.getMeterInfo),
			mapTaskResult[domain.GetMeterInfoResponse](sender)).Recover(func(err error) backgroundTaskResult {
			return backgroundTaskResult{
				message: domain.GetMeterInfoResponse{ActorResponseMixIn: domain.ErrorResponse(err)},
				replyTo: sender,
			}
		}).WithTimeout(2 * time.Second).PipeTo(ctx.Self())
		state.behavior.BecomeStacked(state.WaitingModbus)
	case domain.GetMeterReadingRequest:
		state.logger.Debug("meter@default GetMeterReadingRequest")
		sender := actorutil.ForRequest(msg).ReplyTo(ctx)
		actorutil.MapBackgroundTask(actorutil.NewBackgroundTask(ctx, state.getMeterReading),
			mapTaskResult[domain.GetMeterReadingResponse](sender)).Recover(func(err error) backgroundTaskResult {
			return backgroundTaskResult{
				message: domain.GetMeterReadingResponse{ActorResponseMixIn: domain.ErrorResponse(err)},
				replyTo: sender,
			}
		}).WithTimeout(2 * time.Second).PipeTo(ctx.Self())
		state.behavior.BecomeStacked(state.WaitingModbus)
	case meterTick:
		state.logger.Debug("meter@default tick")
		actorutil.NewBackgroundTaskCtx(ctx, func(pollCtx context.Context) (*meterPollResult, error) {
			n, err := state.poll(pollCtx)
			return &meterPollResult{written: n, err: err}, nil
		}).Recover(func(err error) meterPollResult {
			return meterPollResult{err: err}
		}).WithTimeout(2 * time.Second).PipeTo(ctx.Self())
		state.behavior.BecomeStacked(state.WaitingPoll)
	case *actor.Stopping:
		state.meter.Close()
	default:
		state.logger.Debug("meter@default default recv", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

func (state *MeterActor) WaitingModbus(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case backgroundTaskResult:
		state.logger.Debug("meter@WaitingModbus backgroundTaskResult", zap.String("type", fmt.Sprintf("%T", msg.message)))
		ctx.Send(msg.replyTo, msg.message)
		state.behavior.UnbecomeStacked()
		state.stash.UnstashAll(ctx)
	case *actor.Stopping:
		state.meter.Close()
	default:
		state.logger.Debug("meter@WaitingModbus stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *MeterActor) WaitingPoll(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case meterPollResult:
		if msg.err != nil {
			state.logger.Error("meter@WaitingPoll poll failed", zap.Error(msg.err))
		} else {
			state.logger.Debug("meter@WaitingPoll poll done", zap.Int("written", msg.written))
		}
		state.scheduler.RequestOnce(state.interval, ctx.Self(), meterTick{})
		state.behavior.UnbecomeStacked()
		state.stash.UnstashAll(ctx)
	case *actor.Stopping:
		state.meter.Close()
	default:
		state.logger.Debug("meter@WaitingPoll stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (a *MeterActor) getMeterInfo() (*domain.GetMeterInfoResponse, error) {
	info, err := a.meter.GetInfo()
	if err != nil {
		a.logger.Error("meter: could not read info", zap.Error(err))
		return nil, err
	}
	return &domain.GetMeterInfoResponse{Meter: info}, nil
}

func (a *MeterActor) getMeterReading() (*domain.GetMeterReadingResponse, error) {
	reading, err := a.meter.GetPhaseReadings()
	if err != nil {
		a.logger.Error("meter: could not read phases", zap.Error(err))
		return nil, err
	}
	return &domain.GetMeterReadingResponse{Reading: reading}, nil
}

// poll writes one sample of every phase as acknowledged Emeter states.
func (a *MeterActor) poll(ctx context.Context) (int, error) {
	reading, err := a.meter.GetPhaseReadings()
	if err != nil {
		return 0, err
	}
	states := MeterReadingStates(a.deviceId, reading)
	for _, s := range states {
		if err := a.writer.SetState(ctx, s.Id, s.Value, true); err != nil {
			return 0, domain.NewStoreFault("set", s.Id, err)
		}
	}
	return len(states), nil
}

type MeterState struct {
	Id    string
	Value float64
}

// MeterReadingStates maps a meter sample onto the Emeter0..2 states of deviceId.
// Imported energy is the phase total and exported energy the returned total.
func MeterReadingStates(deviceId string, reading *sunspec_modbus.ACMeterPhaseReadings) []MeterState {
	var states []MeterState
	for i, phase := range reading.Phases {
		values := map[domain.EmeterField]float64{
			domain.EMETER_POWER:          phase.PowerWatt,
			domain.EMETER_REACTIVE_POWER: phase.ReactivePowerVar,
			domain.EMETER_VOLTAGE:        phase.VoltageVolt,
			domain.EMETER_CURRENT:        phase.CurrentAmp,
			domain.EMETER_TOTAL:          phase.EnergyImportedWh,
			domain.EMETER_TOTAL_RETURNED: phase.EnergyExportedWh,
		}
		for _, field := range domain.EmeterFields {
			states = append(states, MeterState{
				Id:    deviceId + "." + domain.EmeterPath(i, field),
				Value: values[field],
			})
		}
	}
	return states
}

func mapTaskResult[T any](sender *actor.PID) func(t *T) *backgroundTaskResult {
	return func(t *T) *backgroundTaskResult {
		return &backgroundTaskResult{
			message: *t,
			replyTo: sender,
		}
	}
}
