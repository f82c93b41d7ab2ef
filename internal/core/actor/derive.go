package actor

import (
	"context"
	"fmt"
	"time"

	"github.com/berfenger/devstate2mqtt/internal/config"
	"github.com/berfenger/devstate2mqtt/internal/core/domain"
	"github.com/berfenger/devstate2mqtt/internal/core/events"
	"github.com/berfenger/devstate2mqtt/internal/core/port"
	"github.com/berfenger/devstate2mqtt/internal/core/service"
	"github.com/berfenger/devstate2mqtt/internal/store"
	. "github.com/berfenger/devstate2mqtt/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"go.uber.org/zap"
)

const (
	DERIVE_STATE_IDLE     = "idle"
	DERIVE_STATE_DERIVING = "deriving"
	DERIVE_STATE_COMMAND  = "command"

	deriveRunTimeout     = 5 * time.Second
	deriveCommandTimeout = 2 * time.Second
)

// DeriveActor owns the StateBridge and NameSync of every configured device.
// Derive runs and device commands are served one at a time.
type DeriveActor struct {
	ActorWithStates
	stash       *Stash
	config      *config.Config
	derivers    map[string]*service.Deriver
	nameSyncs   map[string]*service.NameSync
	eventStream *eventstream.EventStream
	lastRun     *domain.DeriveResponse
	logger      *zap.Logger
}

type deriveRunResult struct {
	response  domain.DeriveResponse
	snapshots []*domain.DerivedSnapshot
	replyTo   *actor.PID
}

type commandResult struct {
	response any
	events   []any
	replyTo  *actor.PID
}

func NewDeriveActor(config *config.Config, states port.StateStore, meta port.MetadataStore, names port.NameCache,
	eventStream *eventstream.EventStream, logger *zap.Logger) *DeriveActor {
	act := &DeriveActor{
		ActorWithStates: NewActorWithStates(),
		stash:           &Stash{},
		config:          config,
		derivers:        map[string]*service.Deriver{},
		nameSyncs:       map[string]*service.NameSync{},
		eventStream:     eventStream,
		logger:          ActorLogger(domain.ACTOR_ID_DERIVE, logger),
	}
	for _, device := range config.Devices {
		identity := store.DeviceID(device.Id)
		bridge := service.NewStateBridge(identity, states, states, logger)
		act.derivers[device.Id] = service.NewDeriver(bridge, device, config.Derive.VoltageMode, logger)
		act.nameSyncs[device.Id] = service.NewNameSync(identity, meta, meta, names, logger)
	}
	act.Become(NamedState{StateName: DERIVE_STATE_IDLE, Fn: act.IdleReceive})
	return act
}

func (state *DeriveActor) Receive(context actor.Context) {
	state.Behavior.Receive(context)
}

func (state *DeriveActor) IdleReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("derive@idle started", zap.Int("devices", len(state.derivers)))
	case domain.ActorHealthRequest:
		state.logger.Debug("derive@idle ActorHealthRequest")
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_DERIVE,
			Healthy: true,
			State:   state.StateName(),
		})
	case domain.DeriveRequest:
		state.logger.Debug("derive@idle DeriveRequest", zap.String("run", msg.RunId))
		sender := ForRequest(msg).ReplyTo(ctx)
		NewBackgroundTaskCtx(ctx, func(runCtx context.Context) (*deriveRunResult, error) {
			return state.runDerive(runCtx, msg.RunId, sender), nil
		}).Recover(func(err error) deriveRunResult {
			return deriveRunResult{
				response: domain.DeriveResponse{ActorResponseMixIn: domain.ErrorResponse(err), RunId: msg.RunId},
				replyTo:  sender,
			}
		}).WithTimeout(deriveRunTimeout).PipeTo(ctx.Self())
		state.BecomeStacked(NamedState{StateName: DERIVE_STATE_DERIVING, Fn: state.DerivingReceive})
	case domain.SetDurationRequest:
		state.logger.Debug("derive@idle SetDurationRequest", zap.String("device", msg.DeviceId), zap.String("key", msg.Key))
		deriver, ok := state.derivers[msg.DeviceId]
		if !ok {
			respond(ctx, msg, domain.SetDurationResponse{ActorResponseMixIn: domain.ErrorResponse(unknownDevice(msg.DeviceId))})
			return
		}
		sender := ForRequest(msg).ReplyTo(ctx)
		NewBackgroundTaskCtx(ctx, func(cmdCtx context.Context) (*commandResult, error) {
			return state.setDuration(cmdCtx, deriver, msg, sender), nil
		}).Recover(func(err error) commandResult {
			return commandResult{response: domain.SetDurationResponse{ActorResponseMixIn: domain.ErrorResponse(err)}, replyTo: sender}
		}).WithTimeout(deriveCommandTimeout).PipeTo(ctx.Self())
		state.BecomeStacked(NamedState{StateName: DERIVE_STATE_COMMAND, Fn: state.CommandReceive})
	case domain.SyncNameRequest:
		state.logger.Debug("derive@idle SyncNameRequest", zap.String("device", msg.DeviceId), zap.String("channel", msg.Channel))
		nameSync, ok := state.nameSyncs[msg.DeviceId]
		if !ok {
			respond(ctx, msg, domain.SyncNameResponse{ActorResponseMixIn: domain.ErrorResponse(unknownDevice(msg.DeviceId))})
			return
		}
		sender := ForRequest(msg).ReplyTo(ctx)
		NewBackgroundTaskCtx(ctx, func(cmdCtx context.Context) (*commandResult, error) {
			return state.syncName(cmdCtx, nameSync, msg, sender), nil
		}).Recover(func(err error) commandResult {
			return commandResult{response: domain.SyncNameResponse{ActorResponseMixIn: domain.ErrorResponse(err)}, replyTo: sender}
		}).WithTimeout(deriveCommandTimeout).PipeTo(ctx.Self())
		state.BecomeStacked(NamedState{StateName: DERIVE_STATE_COMMAND, Fn: state.CommandReceive})
	case GetDeviceBridgeRequest:
		resp := GetDeviceBridgeResponse{}
		if deriver, ok := state.derivers[msg.DeviceId]; ok {
			resp.Bridge = deriver.Bridge()
			resp.Device = deriver.Device()
			resp.NameSync = state.nameSyncs[msg.DeviceId]
		}
		ctx.Respond(resp)
	case GetLastRunRequest:
		ctx.Respond(GetLastRunResponse{Run: state.lastRun})
	default:
		state.logger.Debug("derive@idle default recv", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

func (state *DeriveActor) DerivingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case deriveRunResult:
		if msg.response.HasResponseError() {
			state.logger.Error("derive@deriving run failed", zap.String("run", msg.response.RunId), zap.Error(msg.response.GetResponseError()))
		} else {
			state.logger.Debug("derive@deriving run done", zap.String("run", msg.response.RunId),
				zap.Int("devices", msg.response.Devices), zap.Int("values", msg.response.Values))
		}
		for _, snapshot := range msg.snapshots {
			state.publish(events.DerivedSnapshotToUpdateEvents(snapshot))
		}
		run := msg.response
		state.lastRun = &run
		if msg.replyTo != nil {
			ctx.Send(msg.replyTo, msg.response)
		}
		state.UnbecomeStacked()
		state.stash.UnstashAll(ctx)
	case domain.ActorHealthRequest:
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_DERIVE,
			Healthy: true,
			State:   state.StateName(),
		})
	case domain.DeriveRequest:
		// a run is in progress, this tick is dropped
		state.logger.Debug("derive@deriving drop DeriveRequest", zap.String("run", msg.RunId))
		respond(ctx, msg, domain.DeriveResponse{
			ActorResponseMixIn: domain.ErrorResponse(ErrDeriveInProgress),
			RunId:              msg.RunId,
		})
	default:
		state.logger.Debug("derive@deriving stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *DeriveActor) CommandReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case commandResult:
		state.logger.Debug("derive@command result", zap.String("type", fmt.Sprintf("%T", msg.response)))
		state.publish(msg.events)
		if msg.replyTo != nil {
			ctx.Send(msg.replyTo, msg.response)
		}
		state.UnbecomeStacked()
		state.stash.UnstashAll(ctx)
	case domain.ActorHealthRequest:
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_DERIVE,
			Healthy: true,
			State:   state.StateName(),
		})
	default:
		state.logger.Debug("derive@command stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

// runDerive derives every device in config order. A failing device is logged
// and does not stop the others.
func (state *DeriveActor) runDerive(ctx context.Context, runId string, replyTo *actor.PID) *deriveRunResult {
	result := &deriveRunResult{
		response: domain.DeriveResponse{RunId: runId},
		replyTo:  replyTo,
	}
	var firstErr error
	for _, device := range state.config.Devices {
		snapshot, err := state.derivers[device.Id].Derive(ctx)
		if err != nil {
			state.logger.Warn("derive@run device failed", zap.String("run", runId), zap.String("device", device.Id), zap.Error(err))
			if firstErr == nil {
				firstErr = fmt.Errorf("device %s: %w", device.Id, err)
			}
			continue
		}
		result.snapshots = append(result.snapshots, snapshot)
		result.response.Devices++
		result.response.Values += snapshot.Written
	}
	if result.response.Devices == 0 && firstErr != nil {
		result.response.ActorResponseMixIn = domain.ErrorResponse(firstErr)
	}
	return result
}

func (state *DeriveActor) setDuration(ctx context.Context, deriver *service.Deriver, msg domain.SetDurationRequest, replyTo *actor.PID) *commandResult {
	previous, written, err := deriver.Bridge().SetDuration(ctx, msg.Key, msg.Value)
	if err != nil {
		state.logger.Warn("derive@command duration not stored", zap.String("device", msg.DeviceId), zap.String("key", msg.Key), zap.Error(err))
		return &commandResult{
			response: domain.SetDurationResponse{ActorResponseMixIn: domain.ErrorResponse(err)},
			replyTo:  replyTo,
		}
	}
	result := &commandResult{
		response: domain.SetDurationResponse{Previous: previous},
		replyTo:  replyTo,
	}
	// only values that reached the store are published
	if written {
		result.events = append(result.events, events.DurationUpdateEvent(msg.DeviceId, msg.Key, *msg.Value))
	}
	return result
}

func (state *DeriveActor) syncName(ctx context.Context, nameSync *service.NameSync, msg domain.SyncNameRequest, replyTo *actor.PID) *commandResult {
	var name string
	var err error
	if msg.Channel == "" {
		name, err = nameSync.SyncDeviceName(ctx, msg.Name)
	} else {
		name, err = nameSync.SyncChannelName(ctx, msg.Channel, msg.Name)
	}
	return &commandResult{
		response: domain.SyncNameResponse{ActorResponseMixIn: domain.ErrorResponse(err), Name: name},
		replyTo:  replyTo,
	}
}

func (state *DeriveActor) publish(evs []any) {
	if state.eventStream == nil {
		return
	}
	for _, ev := range evs {
		state.eventStream.Publish(ev)
	}
}

// respond answers req unless nobody waits for it, as with commands arriving over MQTT.
func respond(ctx actor.Context, req domain.ActorRequest, resp domain.ActorResponse) {
	if replyTo := ForRequest(req).ReplyTo(ctx); replyTo != nil {
		ctx.Send(replyTo, resp)
	}
}

func unknownDevice(id string) error {
	return fmt.Errorf("%w: %q", domain.ErrUnknownDevice, id)
}
