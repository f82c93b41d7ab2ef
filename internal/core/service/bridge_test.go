package service

import (
	"context"
	"testing"

	"github.com/berfenger/devstate2mqtt/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testDevice = "shellyrgbw2_A1B2C3"

func newTestBridge(store *fakeStore) *StateBridge {
	logger := zap.Must(zap.NewDevelopment())
	return NewStateBridge(deviceId(testDevice), store, store, logger)
}

func dev(rel string) string {
	return testDevice + "." + rel
}

func TestAssembleColorBundle(t *testing.T) {

	assert := assert.New(t)
	require := require.New(t)

	store := newFakeStore()
	store.put(dev("lights.Switch"), true)
	store.put(dev("lights.mode"), "color")
	store.put(dev("lights.red"), 255)
	store.put(dev("lights.green"), 128.0)
	store.put(dev("lights.blue"), 0)
	store.put(dev("lights.white"), 12)
	store.put(dev("lights.gain"), 80)
	store.put(dev("lights.temp"), 4000)
	store.put(dev("lights.brightness"), 55)
	store.put(dev("lights.effect"), 0)

	bundle, err := newTestBridge(store).AssembleColorBundle(context.Background())
	require.NoError(err)

	require.NotNil(bundle.Ison)
	assert.True(*bundle.Ison)
	require.NotNil(bundle.Mode)
	assert.Equal("color", *bundle.Mode)
	assert.Equal(255, *bundle.Red)
	assert.Equal(128, *bundle.Green)
	assert.Equal(0, *bundle.Blue)
	assert.Equal(12, *bundle.White)
	assert.Equal(80, *bundle.Gain)
	assert.Equal(4000, *bundle.Temp)
	assert.Equal(55, *bundle.Brightness)
	assert.Equal(0, *bundle.Effect)
}

func TestAssembleColorBundlePartial(t *testing.T) {

	assert := assert.New(t)
	require := require.New(t)

	store := newFakeStore()
	store.put(dev("lights.Switch"), false)
	store.put(dev("lights.red"), 10)

	bundle, err := newTestBridge(store).AssembleColorBundle(context.Background())
	require.NoError(err)

	require.NotNil(bundle.Ison)
	assert.False(*bundle.Ison)
	assert.Equal(10, *bundle.Red)
	assert.Nil(bundle.Mode)
	assert.Nil(bundle.Green)
	assert.Nil(bundle.Effect)
}

func TestAssembleBundleStoreFault(t *testing.T) {

	assert := assert.New(t)

	store := newFakeStore()
	store.failGet[dev("lights.temp")] = true

	_, err := newTestBridge(store).AssembleColorBundle(context.Background())
	assert.ErrorIs(err, domain.ErrStoreFault)
	assert.ErrorIs(err, errBoom)

	_, err = newTestBridge(store).AssembleWhiteBundle(context.Background())
	assert.ErrorIs(err, domain.ErrStoreFault)
}

func TestAssembleWhiteBundle(t *testing.T) {

	assert := assert.New(t)
	require := require.New(t)

	store := newFakeStore()
	store.put(dev("lights.Switch"), "on")
	store.put(dev("lights.white"), 200)
	store.put(dev("lights.brightness"), 75)

	bundle, err := newTestBridge(store).AssembleWhiteBundle(context.Background())
	require.NoError(err)
	assert.True(*bundle.Ison)
	assert.Equal(200, *bundle.White)
	assert.Nil(bundle.Temp)
	assert.Equal(75, *bundle.Brightness)
}

func TestReadRGBW(t *testing.T) {

	assert := assert.New(t)
	require := require.New(t)

	store := newFakeStore()
	store.put(dev("lights.red"), 255)
	store.put(dev("lights.blue"), 16)

	rgbw, err := newTestBridge(store).ReadRGBW(context.Background())
	require.NoError(err)
	assert.Equal("#FF001000", rgbw, "absent channels are 0")

	store.failGet[dev("lights.white")] = true
	_, err = newTestBridge(store).ReadRGBW(context.Background())
	assert.ErrorIs(err, domain.ErrStoreFault)
}

func TestReadHSVAndColorsFromHue(t *testing.T) {

	assert := assert.New(t)
	require := require.New(t)

	store := newFakeStore()
	store.put(dev("lights.red"), 255)
	bridge := newTestBridge(store)

	hsv, err := bridge.ReadHSV(context.Background())
	require.NoError(err)
	assert.Equal(domain.HSV{Hue: 0, Saturation: 100, Brightness: 100}, hsv)

	store.put(dev("lights.hue"), 120)
	store.put(dev("lights.saturation"), 100)
	store.put(dev("lights.gain"), 100)
	rgb, err := bridge.ColorsFromHue(context.Background())
	require.NoError(err)
	assert.Equal(domain.RGB{Green: 255}, rgb)
}

func putPhases(store *fakeStore, field domain.EmeterField, values ...float64) {
	for i, v := range values {
		store.put(dev(domain.EmeterPath(i, field)), v)
	}
}

func TestElectricalSums(t *testing.T) {

	assert := assert.New(t)
	require := require.New(t)

	store := newFakeStore()
	putPhases(store, domain.EMETER_TOTAL, 1000.004, 2000.004, 3000.004)
	putPhases(store, domain.EMETER_TOTAL_RETURNED, 1, 2, 3.5)
	putPhases(store, domain.EMETER_CURRENT, 1.11, 2.22, 3.33)
	putPhases(store, domain.EMETER_POWER, 230, -100, 70.5)
	putPhases(store, domain.EMETER_VOLTAGE, 230, 231, 229)
	bridge := newTestBridge(store)
	ctx := context.Background()

	v, err := bridge.TotalSum(ctx)
	require.NoError(err)
	assert.Equal(6000.01, v)

	v, err = bridge.TotalReturnedSum(ctx)
	require.NoError(err)
	assert.Equal(6.5, v)

	v, err = bridge.CurrentSum(ctx)
	require.NoError(err)
	assert.Equal(6.66, v)

	v, err = bridge.PowerSum(ctx)
	require.NoError(err)
	assert.Equal(200.5, v)

	v, err = bridge.VoltageCalc(ctx, domain.VOLTAGE_MODE_MEAN)
	require.NoError(err)
	assert.Equal(230.0, v)

	v, err = bridge.VoltageCalc(ctx, domain.VOLTAGE_MODE_RMS)
	require.NoError(err)
	assert.Equal(398.37, v)
}

func TestElectricalSumMissingPhase(t *testing.T) {

	assert := assert.New(t)

	store := newFakeStore()
	putPhases(store, domain.EMETER_TOTAL, 1, 2)

	_, err := newTestBridge(store).TotalSum(context.Background())
	assert.ErrorIs(err, domain.ErrMissingChannelData)

	store.failGet[dev("Emeter2.Total")] = true
	_, err = newTestBridge(store).TotalSum(context.Background())
	assert.ErrorIs(err, domain.ErrStoreFault)
}

func TestPowerFactorChannel(t *testing.T) {

	assert := assert.New(t)
	require := require.New(t)

	store := newFakeStore()
	bridge := newTestBridge(store)
	ctx := context.Background()

	pf, err := bridge.PowerFactor(ctx, 1)
	require.NoError(err)
	assert.Equal(0.0, pf, "absent readings")

	store.put(dev("Emeter1.Power"), 100)
	store.put(dev("Emeter1.ReactivePower"), 100)
	pf, err = bridge.PowerFactor(ctx, 1)
	require.NoError(err)
	assert.Equal(0.71, pf)

	_, err = bridge.PowerFactor(ctx, 3)
	assert.ErrorIs(err, domain.ErrInvalidInput)
}

func ptr(f float64) *float64 {
	return &f
}

func TestPersistDuration(t *testing.T) {

	assert := assert.New(t)

	store := newFakeStore()
	store.put(dev("Relay0.Timer"), 30)
	bridge := newTestBridge(store)
	ctx := context.Background()

	assert.Equal(30.0, bridge.PersistDuration(ctx, "Relay0.Timer", ptr(60)), "previous value")
	assert.Len(store.sets, 1)
	assert.Equal(setCall{id: dev("Relay0.Timer"), val: 60.0, ack: true}, store.sets[0])

	assert.Equal(60.0, bridge.PersistDuration(ctx, "Relay0.Timer", nil), "read only")
	assert.Len(store.sets, 1)
}

func TestPersistDurationRejectsNegative(t *testing.T) {

	assert := assert.New(t)

	store := newFakeStore()
	store.put(dev("Relay0.Timer"), 15)
	bridge := newTestBridge(store)

	assert.Equal(15.0, bridge.PersistDuration(context.Background(), "Relay0.Timer", ptr(-1)))
	assert.Empty(store.sets, "negative durations are never written")

	store.put(dev("Relay1.Timer"), -5)
	assert.Equal(0.0, bridge.PersistDuration(context.Background(), "Relay1.Timer", nil), "negative stored value reads as 0")

	assert.Equal(0.0, bridge.PersistDuration(context.Background(), "Relay2.Timer", ptr(0)), "absent")
	assert.Len(store.sets, 1, "zero is a valid duration")
}

func TestPersistDurationStoreFault(t *testing.T) {

	assert := assert.New(t)

	store := newFakeStore()
	store.put(dev("Relay0.Timer"), 30)
	store.failGet[dev("Relay0.Timer")] = true
	bridge := newTestBridge(store)

	assert.Equal(0.0, bridge.PersistDuration(context.Background(), "Relay0.Timer", ptr(10)))
	assert.Empty(store.sets)

	store.failGet = map[string]bool{}
	store.failSet = true
	assert.Equal(0.0, bridge.PersistDuration(context.Background(), "Relay0.Timer", ptr(10)))
}

func TestSetDurationReportsWrite(t *testing.T) {

	assert := assert.New(t)
	require := require.New(t)

	store := newFakeStore()
	store.put(dev("Relay0.Timer"), 30)
	bridge := newTestBridge(store)
	ctx := context.Background()

	prev, written, err := bridge.SetDuration(ctx, "Relay0.Timer", ptr(45))
	require.NoError(err)
	assert.True(written)
	assert.Equal(30.0, prev)

	prev, written, err = bridge.SetDuration(ctx, "Relay0.Timer", ptr(-1))
	require.NoError(err)
	assert.False(written, "negative")
	assert.Equal(45.0, prev)

	_, written, err = bridge.SetDuration(ctx, "Relay0.Timer", nil)
	require.NoError(err)
	assert.False(written, "read only")

	store.failSet = true
	prev, written, err = bridge.SetDuration(ctx, "Relay0.Timer", ptr(60))
	assert.ErrorIs(err, domain.ErrStoreFault)
	assert.False(written)
	assert.Equal(0.0, prev)
	assert.Equal(45.0, store.states[dev("Relay0.Timer")].Val)
}

func TestPersistDurationCancelledBetweenReadAndWrite(t *testing.T) {

	assert := assert.New(t)

	store := newFakeStore()
	store.put(dev("Relay0.Timer"), 30)
	ctx, cancel := context.WithCancel(context.Background())
	store.afterGet = cancel

	newTestBridge(store).PersistDuration(ctx, "Relay0.Timer", ptr(10))
	assert.Empty(store.sets, "write skipped")
	assert.Equal(30, store.states[dev("Relay0.Timer")].Val)
}

func TestReadFavoritePosition(t *testing.T) {

	assert := assert.New(t)

	store := newFakeStore()
	store.put(dev("Shutter.Favorite1"), 42)
	bridge := newTestBridge(store)

	v, ok := bridge.ReadFavoritePosition(context.Background(), "Shutter.Favorite1")
	assert.True(ok)
	assert.Equal(42.0, v)

	_, ok = bridge.ReadFavoritePosition(context.Background(), "Shutter.Favorite2")
	assert.False(ok)

	store.failGet[dev("Shutter.Favorite1")] = true
	_, ok = bridge.ReadFavoritePosition(context.Background(), "Shutter.Favorite1")
	assert.False(ok, "faults read as absent")
}

func TestReadExtSensors(t *testing.T) {

	assert := assert.New(t)
	require := require.New(t)

	store := newFakeStore()
	store.put(dev("info.status"), `{"ext_temperature":{"0":{"tC":20},"1":{"tC":0}},"ext_humidity":{"0":{"hum":55.5}}}`)

	readings, err := newTestBridge(store).ReadExtSensors(context.Background(), 2)
	require.NoError(err)
	require.Len(readings, 2)

	assert.Equal(20.0, *readings[0].TemperatureC)
	assert.Equal(68.0, *readings[0].TemperatureF, "derived from celsius")
	assert.Equal(55.5, *readings[0].Humidity)
	assert.Nil(readings[1].TemperatureC)
	assert.Nil(readings[1].Humidity)

	store.put(dev("info.status"), `{`)
	_, err = newTestBridge(store).ReadExtSensors(context.Background(), 1)
	assert.ErrorIs(err, domain.ErrInvalidInput)
}
