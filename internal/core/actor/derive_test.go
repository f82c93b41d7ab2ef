package actor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/berfenger/devstate2mqtt/internal/config"
	"github.com/berfenger/devstate2mqtt/internal/core/domain"
	"github.com/berfenger/devstate2mqtt/internal/store"
	"github.com/berfenger/devstate2mqtt/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type eventCollector struct {
	mu     sync.Mutex
	events map[string]any
}

func collect(es *eventstream.EventStream) *eventCollector {
	c := &eventCollector{events: map[string]any{}}
	es.Subscribe(func(evt any) {
		if ev, ok := evt.(domain.SensorUpdateEvent); ok {
			c.mu.Lock()
			c.events[ev.SensorId()] = evt
			c.mu.Unlock()
		}
	})
	return c
}

func (c *eventCollector) get(id string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ev, ok := c.events[id]
	return ev, ok
}

// failingWriteStore reads through to a MemoryStore and rejects every write.
type failingWriteStore struct {
	*store.MemoryStore
}

func (s failingWriteStore) SetState(ctx context.Context, id string, val any, ack bool) error {
	return errors.New("write rejected")
}

func TestDeriveActorRun(t *testing.T) {

	assert := assert.New(t)
	require := require.New(t)

	cfg := config.Config{
		Derive: config.DeriveConfig{VoltageMode: domain.VOLTAGE_MODE_MEAN},
		Devices: []config.DeviceConfig{
			{Id: "strip", Kind: config.DEVICE_KIND_RGBW},
			{Id: "em", Kind: config.DEVICE_KIND_EM3},
		},
	}
	logger := zap.Must(zap.NewDevelopment())
	as := actorutil.NewActorSystemWithZapLogger(logger)
	rootCtx := as.Root

	mem := store.NewMemoryStore()
	bg := context.Background()
	require.NoError(mem.SetState(bg, "strip."+domain.PATH_LIGHTS_RED, 255, true))
	require.NoError(mem.SetState(bg, "strip."+domain.PATH_LIGHTS_GREEN, 0, true))
	require.NoError(mem.SetState(bg, "strip."+domain.PATH_LIGHTS_BLUE, 0, true))
	require.NoError(mem.SetState(bg, "strip."+domain.PATH_LIGHTS_WHITE, 16, true))
	for phase := 0; phase < domain.PHASE_COUNT; phase++ {
		require.NoError(mem.SetState(bg, "em."+domain.EmeterPath(phase, domain.EMETER_POWER), 100.0, true))
		require.NoError(mem.SetState(bg, "em."+domain.EmeterPath(phase, domain.EMETER_VOLTAGE), 230.0, true))
	}

	es := &eventstream.EventStream{}
	collector := collect(es)

	pid := rootCtx.Spawn(actor.PropsFromProducer(func() actor.Actor {
		return NewDeriveActor(&cfg, mem, mem, store.NewNameCache(), es, logger)
	}))

	res, err := rootCtx.RequestFuture(pid, domain.DeriveRequest{RunId: "r1"}, 5*time.Second).Result()
	require.NoError(err)
	run := res.(domain.DeriveResponse)
	assert.False(run.HasResponseError())
	assert.Equal(2, run.Devices)
	assert.Greater(run.Values, 0)

	v, _ := mem.GetState(bg, "strip."+domain.PATH_LIGHTS_RGBW)
	rgbw, _ := v.Text()
	assert.Equal("#FF000010", rgbw)
	v, _ = mem.GetState(bg, "em."+domain.PATH_TOTAL_ACTIVE_POWER)
	power, _ := v.Float()
	assert.Equal(300.0, power)
	v, _ = mem.GetState(bg, "em."+domain.PATH_TOTAL_CURRENT)
	assert.False(v.IsPresent(), "missing currents skip the total")

	ev, ok := collector.get(domain.SensorId("em", domain.SENSOR_SUFFIX_TOTAL_POWER))
	assert.True(ok)
	assert.Equal(300.0, ev.(domain.FloatSensorUpdateEvent).Value)
	ev, ok = collector.get(domain.SensorId("strip", domain.SENSOR_SUFFIX_RGBW))
	assert.True(ok)
	assert.Equal("#FF000010", ev.(domain.TextSensorUpdateEvent).Value)

	res, err = rootCtx.RequestFuture(pid, GetLastRunRequest{}, 2*time.Second).Result()
	require.NoError(err)
	assert.Equal("r1", res.(GetLastRunResponse).Run.RunId)

	res, err = rootCtx.RequestFuture(pid, domain.ActorHealthRequest{}, 2*time.Second).Result()
	require.NoError(err)
	assert.Equal(DERIVE_STATE_IDLE, res.(domain.ActorHealthResponse).State)

	rootCtx.Stop(pid)
	as.Shutdown()
}

func TestDeriveActorDeviceBridge(t *testing.T) {

	assert := assert.New(t)
	require := require.New(t)

	cfg := config.Config{Devices: []config.DeviceConfig{{Id: "lamp", Name: "Lamp", Kind: config.DEVICE_KIND_WHITE}}}
	logger := zap.Must(zap.NewDevelopment())
	as := actorutil.NewActorSystemWithZapLogger(logger)
	rootCtx := as.Root
	mem := store.NewMemoryStore()

	pid := rootCtx.Spawn(actor.PropsFromProducer(func() actor.Actor {
		return NewDeriveActor(&cfg, mem, mem, store.NewNameCache(), nil, logger)
	}))

	res, err := rootCtx.RequestFuture(pid, GetDeviceBridgeRequest{DeviceId: "lamp"}, 2*time.Second).Result()
	require.NoError(err)
	resp := res.(GetDeviceBridgeResponse)
	assert.NotNil(resp.Bridge)
	assert.NotNil(resp.NameSync)
	assert.Equal("lamp", resp.Bridge.DeviceID())
	assert.Equal("Lamp", resp.Device.Name)

	res, err = rootCtx.RequestFuture(pid, GetDeviceBridgeRequest{DeviceId: "other"}, 2*time.Second).Result()
	require.NoError(err)
	assert.Nil(res.(GetDeviceBridgeResponse).Bridge)

	// no run yet
	res, err = rootCtx.RequestFuture(pid, GetLastRunRequest{}, 2*time.Second).Result()
	require.NoError(err)
	assert.Nil(res.(GetLastRunResponse).Run)

	rootCtx.Stop(pid)
	as.Shutdown()
}

func TestDeriveActorSetDuration(t *testing.T) {

	assert := assert.New(t)
	require := require.New(t)

	cfg := config.Config{Devices: []config.DeviceConfig{{Id: "relay", Kind: config.DEVICE_KIND_RELAY}}}
	logger := zap.Must(zap.NewDevelopment())
	as := actorutil.NewActorSystemWithZapLogger(logger)
	rootCtx := as.Root
	mem := store.NewMemoryStore()
	bg := context.Background()
	require.NoError(mem.SetState(bg, "relay.Relay0.Timer", 30.0, true))

	es := &eventstream.EventStream{}
	collector := collect(es)
	pid := rootCtx.Spawn(actor.PropsFromProducer(func() actor.Actor {
		return NewDeriveActor(&cfg, mem, mem, store.NewNameCache(), es, logger)
	}))

	value := 300.0
	req := domain.SetDurationRequest{
		DeviceCommandRequestMixIn: domain.DeviceCommandRequestMixIn{DeviceId: "relay"},
		Key:                       "Relay0.Timer",
		Value:                     &value,
	}
	res, err := rootCtx.RequestFuture(pid, req, 2*time.Second).Result()
	require.NoError(err)
	resp := res.(domain.SetDurationResponse)
	assert.False(resp.HasResponseError())
	assert.Equal(30.0, resp.Previous)

	v, _ := mem.GetState(bg, "relay.Relay0.Timer")
	stored, _ := v.Float()
	assert.Equal(300.0, stored)
	assert.Eventually(func() bool {
		ev, ok := collector.get(domain.DurationInputNumberId("relay", "Relay0.Timer"))
		return ok && ev.(domain.InputNumberSensorUpdateEvent).Value == 300.0
	}, 2*time.Second, 20*time.Millisecond)

	// read only
	res, err = rootCtx.RequestFuture(pid, domain.SetDurationRequest{
		DeviceCommandRequestMixIn: domain.DeviceCommandRequestMixIn{DeviceId: "relay"},
		Key:                       "Relay0.Timer",
	}, 2*time.Second).Result()
	require.NoError(err)
	assert.Equal(300.0, res.(domain.SetDurationResponse).Previous)

	res, err = rootCtx.RequestFuture(pid, domain.SetDurationRequest{
		DeviceCommandRequestMixIn: domain.DeviceCommandRequestMixIn{DeviceId: "other"},
		Key:                       "Relay0.Timer",
		Value:                     &value,
	}, 2*time.Second).Result()
	require.NoError(err)
	assert.ErrorIs(res.(domain.SetDurationResponse).GetResponseError(), domain.ErrUnknownDevice)

	rootCtx.Stop(pid)
	as.Shutdown()
}

func TestDeriveActorSetDurationWriteFailure(t *testing.T) {

	assert := assert.New(t)
	require := require.New(t)

	cfg := config.Config{Devices: []config.DeviceConfig{{Id: "relay", Kind: config.DEVICE_KIND_RELAY}}}
	logger := zap.Must(zap.NewDevelopment())
	as := actorutil.NewActorSystemWithZapLogger(logger)
	rootCtx := as.Root
	mem := store.NewMemoryStore()
	states := failingWriteStore{MemoryStore: mem}

	es := &eventstream.EventStream{}
	published := 0
	var mu sync.Mutex
	es.Subscribe(func(evt any) {
		if _, ok := evt.(domain.SensorUpdateEvent); ok {
			mu.Lock()
			published++
			mu.Unlock()
		}
	})
	pid := rootCtx.Spawn(actor.PropsFromProducer(func() actor.Actor {
		return NewDeriveActor(&cfg, states, mem, store.NewNameCache(), es, logger)
	}))

	value := 300.0
	res, err := rootCtx.RequestFuture(pid, domain.SetDurationRequest{
		DeviceCommandRequestMixIn: domain.DeviceCommandRequestMixIn{DeviceId: "relay"},
		Key:                       "Relay0.Timer",
		Value:                     &value,
	}, 2*time.Second).Result()
	require.NoError(err)
	resp := res.(domain.SetDurationResponse)
	assert.True(resp.HasResponseError())
	assert.ErrorIs(resp.GetResponseError(), domain.ErrStoreFault)

	v, _ := mem.GetState(context.Background(), "relay.Relay0.Timer")
	assert.False(v.IsPresent())

	// the actor is back to idle once the command is answered
	res, err = rootCtx.RequestFuture(pid, domain.ActorHealthRequest{}, 2*time.Second).Result()
	require.NoError(err)
	assert.Equal(DERIVE_STATE_IDLE, res.(domain.ActorHealthResponse).State)
	mu.Lock()
	assert.Equal(0, published, "nothing published for a value that was not stored")
	mu.Unlock()

	rootCtx.Stop(pid)
	as.Shutdown()
}
