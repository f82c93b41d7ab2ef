package actor

import (
	"context"
	"testing"
	"time"

	adactor "github.com/berfenger/devstate2mqtt/internal/adapter/actor"
	"github.com/berfenger/devstate2mqtt/internal/core/domain"
	"github.com/berfenger/devstate2mqtt/internal/store"
	"github.com/berfenger/devstate2mqtt/internal/util"
	"github.com/berfenger/devstate2mqtt/internal/util/actorutil"
	"github.com/berfenger/devstate2mqtt/pkg/sunspec_modbus"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMasterActor(t *testing.T) {

	assert := assert.New(t)
	require := require.New(t)

	cfg := util.LoadTestConfig()
	cfg.MeterModbusTcp.Enabled = true
	cfg.MQTT.HADiscoveryEnable = true
	logCfg := zap.NewDevelopmentConfig()
	logCfg.Level = zap.NewAtomicLevelAt(cfg.LogLevel)
	logger := zap.Must(logCfg.Build())

	as := actorutil.NewActorSystemWithZapLogger(logger)
	rootCtx := as.Root

	mem := store.NewMemoryStore()
	recorder := adactor.NewPublishRecorder()

	props := actor.PropsFromProducer(func() actor.Actor {
		return NewMasterOfPuppetsActor(cfg, Stores{States: mem, Meta: mem, Names: store.NewNameCache()}, func() *adactor.MeterActor {
			return adactor.NewMeterActor(sunspec_modbus.TestACMeterModbusReader{}, mem, cfg.MeterModbusTcp.DeviceId, 50*time.Millisecond, logger)
		}, func() *adactor.MQTTActor {
			return adactor.NewTestMQTTActor(&cfg, recorder, logger)
		}, logger)
	})
	pid, err := rootCtx.SpawnNamed(props, domain.ACTOR_ID_MASTER)
	require.NoError(err)

	res, err := rootCtx.RequestFuture(pid, domain.ActorHealthRequest{}, 10*time.Second).Result()
	require.NoError(err)
	healthResp, ok := res.(domain.ActorHealthResponse)
	assert.True(ok)
	assert.True(healthResp.Healthy, "healthy is true")
	assert.Equal(domain.ACTOR_ID_MASTER, healthResp.Id)

	// the meter feeds the em3 device, a derive run totals it
	assert.Eventually(func() bool {
		v, _ := mem.GetState(context.Background(), "meter.Emeter2.Total")
		return v.IsPresent()
	}, 3*time.Second, 50*time.Millisecond)

	res, err = rootCtx.RequestFuture(pid, domain.DeriveRequest{RunId: "run-1"}, 5*time.Second).Result()
	require.NoError(err)
	run := res.(domain.DeriveResponse)
	assert.False(run.HasResponseError())
	assert.Equal("run-1", run.RunId)
	assert.Equal(len(cfg.Devices), run.Devices)

	v, err := mem.GetState(context.Background(), "meter."+domain.PATH_TOTAL_ACTIVE_POWER)
	require.NoError(err)
	power, ok := v.Float()
	assert.True(ok)
	assert.InDelta(385.25, power, 0.001)

	assert.Eventually(func() bool {
		_, ok := recorder.Last("devstate/sensor/meter_total_power/state")
		return ok
	}, 2*time.Second, 20*time.Millisecond)
	assert.Eventually(func() bool {
		return recorder.Discovered() > 0
	}, 2*time.Second, 20*time.Millisecond)

	res, err = rootCtx.RequestFuture(pid, domain.GetMeterInfoRequest{}, 5*time.Second).Result()
	require.NoError(err)
	assert.Equal(uint16(203), res.(domain.GetMeterInfoResponse).Meter.MeterModel)

	rootCtx.Stop(pid)

	as.Shutdown()
}

func TestMasterRoutesCommands(t *testing.T) {

	assert := assert.New(t)
	require := require.New(t)

	cfg := util.LoadTestConfig()
	logger := zap.Must(zap.NewDevelopment())
	as := actorutil.NewActorSystemWithZapLogger(logger)
	rootCtx := as.Root

	mem := store.NewMemoryStore()
	require.NoError(mem.PutObject(context.Background(), domain.Object{ID: "relay", Type: "device", Common: domain.ObjectCommon{Name: "Old"}}))
	recorder := adactor.NewPublishRecorder()

	props := actor.PropsFromProducer(func() actor.Actor {
		return NewMasterOfPuppetsActor(cfg, Stores{States: mem, Meta: mem, Names: store.NewNameCache()}, nil, func() *adactor.MQTTActor {
			return adactor.NewTestMQTTActor(&cfg, recorder, logger)
		}, logger)
	})
	pid := rootCtx.Spawn(props)

	value := 300.0
	res, err := rootCtx.RequestFuture(pid, domain.SetDurationRequest{
		DeviceCommandRequestMixIn: domain.DeviceCommandRequestMixIn{DeviceId: "relay"},
		Key:                       "Relay0.Timer",
		Value:                     &value,
	}, 5*time.Second).Result()
	require.NoError(err)
	durResp := res.(domain.SetDurationResponse)
	assert.False(durResp.HasResponseError())
	assert.Equal(0.0, durResp.Previous)

	v, _ := mem.GetState(context.Background(), "relay.Relay0.Timer")
	stored, _ := v.Float()
	assert.Equal(300.0, stored)
	assert.Eventually(func() bool {
		p, _ := recorder.Last("devstate/number/relay_duration_relay0_timer/state")
		return p == "300"
	}, 2*time.Second, 20*time.Millisecond)

	res, err = rootCtx.RequestFuture(pid, domain.SyncNameRequest{
		DeviceCommandRequestMixIn: domain.DeviceCommandRequestMixIn{DeviceId: "relay"},
		Name:                      "Boiler",
	}, 5*time.Second).Result()
	require.NoError(err)
	nameResp := res.(domain.SyncNameResponse)
	assert.False(nameResp.HasResponseError())
	obj, _ := mem.GetObject(context.Background(), "relay")
	assert.Equal("Boiler", obj.Common.Name)

	res, err = rootCtx.RequestFuture(pid, domain.SetDurationRequest{
		DeviceCommandRequestMixIn: domain.DeviceCommandRequestMixIn{DeviceId: "nope"},
		Key:                       "Relay0.Timer",
	}, 5*time.Second).Result()
	require.NoError(err)
	assert.ErrorIs(res.(domain.SetDurationResponse).GetResponseError(), domain.ErrUnknownDevice)

	res, err = rootCtx.RequestFuture(pid, domain.GetMeterReadingRequest{}, 5*time.Second).Result()
	require.NoError(err)
	assert.ErrorIs(res.(domain.GetMeterReadingResponse).GetResponseError(), ErrNoMeter)

	rootCtx.Stop(pid)

	as.Shutdown()
}
