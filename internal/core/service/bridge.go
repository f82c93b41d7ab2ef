package service

import (
	"context"
	"fmt"
	"strconv"

	"github.com/berfenger/devstate2mqtt/internal/core/color"
	"github.com/berfenger/devstate2mqtt/internal/core/convert"
	"github.com/berfenger/devstate2mqtt/internal/core/domain"
	"github.com/berfenger/devstate2mqtt/internal/core/electrical"
	"github.com/berfenger/devstate2mqtt/internal/core/port"

	"go.uber.org/zap"
)

// StateBridge derives composite values from the states of one device.
// Every call reads fresh values from the store.
type StateBridge struct {
	identity port.DeviceIdentity
	reader   port.StateReader
	writer   port.StateWriter
	logger   *zap.Logger
}

func NewStateBridge(identity port.DeviceIdentity, reader port.StateReader, writer port.StateWriter, logger *zap.Logger) *StateBridge {
	return &StateBridge{
		identity: identity,
		reader:   reader,
		writer:   writer,
		logger:   logger.With(zap.String("component", "bridge"), zap.String("device", identity.DeviceID())),
	}
}

func (b *StateBridge) DeviceID() string {
	return b.identity.DeviceID()
}

func (b *StateBridge) key(rel string) string {
	return b.identity.DeviceID() + "." + rel
}

func (b *StateBridge) get(ctx context.Context, rel string) (domain.StateValue, error) {
	if err := ctx.Err(); err != nil {
		return domain.Absent(), err
	}
	id := b.key(rel)
	v, err := b.reader.GetState(ctx, id)
	if err != nil {
		return domain.Absent(), domain.NewStoreFault("get", id, err)
	}
	return v, nil
}

func (b *StateBridge) set(ctx context.Context, rel string, val any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	id := b.key(rel)
	if err := b.writer.SetState(ctx, id, val, true); err != nil {
		return domain.NewStoreFault("set", id, err)
	}
	return nil
}

// SetDerived writes an acknowledged derived value under the device.
func (b *StateBridge) SetDerived(ctx context.Context, rel string, val any) error {
	return b.set(ctx, rel, val)
}

// AssembleColorBundle reads the color light states. Absent states leave their field nil.
func (b *StateBridge) AssembleColorBundle(ctx context.Context) (domain.ColorBundle, error) {
	var bundle domain.ColorBundle
	for _, fp := range domain.ColorBundlePaths {
		v, err := b.get(ctx, fp.Path)
		if err != nil {
			return domain.ColorBundle{}, err
		}
		bundle.Set(fp.Field, v)
	}
	return bundle, nil
}

func (b *StateBridge) AssembleWhiteBundle(ctx context.Context) (domain.WhiteBundle, error) {
	var bundle domain.WhiteBundle
	for _, fp := range domain.WhiteBundlePaths {
		v, err := b.get(ctx, fp.Path)
		if err != nil {
			return domain.WhiteBundle{}, err
		}
		bundle.Set(fp.Field, v)
	}
	return bundle, nil
}

func (b *StateBridge) readRGBWChannels(ctx context.Context) (domain.RGBW, error) {
	var channels [4]int
	for i, path := range []string{domain.PATH_LIGHTS_RED, domain.PATH_LIGHTS_GREEN, domain.PATH_LIGHTS_BLUE, domain.PATH_LIGHTS_WHITE} {
		v, err := b.get(ctx, path)
		if err != nil {
			return domain.RGBW{}, err
		}
		channels[i] = v.IntOr(0)
	}
	return domain.RGBW{Red: channels[0], Green: channels[1], Blue: channels[2], White: channels[3]}, nil
}

// ReadRGBW packs the raw channel states as "#RRGGBBWW". Absent channels count as 0.
func (b *StateBridge) ReadRGBW(ctx context.Context) (string, error) {
	c, err := b.readRGBWChannels(ctx)
	if err != nil {
		return "", err
	}
	return color.PackRGBW(c), nil
}

// ReadHSV converts the current RGB channels to HSV.
func (b *StateBridge) ReadHSV(ctx context.Context) (domain.HSV, error) {
	packed, err := b.ReadRGBW(ctx)
	if err != nil {
		return domain.HSV{}, err
	}
	c, err := color.UnpackRGBW(packed)
	if err != nil {
		return domain.HSV{}, err
	}
	return color.RGBToHSV(c.Red, c.Green, c.Blue), nil
}

// ColorsFromHue converts the hue, saturation and gain states to RGB.
// Gain is the HSV value channel.
func (b *StateBridge) ColorsFromHue(ctx context.Context) (domain.RGB, error) {
	var hsv [3]float64
	for i, path := range []string{domain.PATH_LIGHTS_HUE, domain.PATH_LIGHTS_SATURATION, domain.PATH_LIGHTS_GAIN} {
		v, err := b.get(ctx, path)
		if err != nil {
			return domain.RGB{}, err
		}
		hsv[i] = v.FloatOr(0)
	}
	return color.HSVToRGB(hsv[0], hsv[1], hsv[2]), nil
}

// ReadPhases reads the given fields of the three phases. With no fields, all of them are read.
func (b *StateBridge) ReadPhases(ctx context.Context, fields ...domain.EmeterField) ([]domain.PhaseReading, error) {
	if len(fields) == 0 {
		fields = domain.EmeterFields
	}
	phases := make([]domain.PhaseReading, domain.PHASE_COUNT)
	for i := range phases {
		phases[i] = domain.NewPhaseReading(i)
		for _, field := range fields {
			v, err := b.get(ctx, domain.EmeterPath(i, field))
			if err != nil {
				return nil, err
			}
			if f, ok := v.Float(); ok {
				phases[i].Set(field, f)
			}
		}
	}
	return phases, nil
}

func (b *StateBridge) sumField(ctx context.Context, field domain.EmeterField) (float64, error) {
	phases, err := b.ReadPhases(ctx, field)
	if err != nil {
		return 0, err
	}
	return electrical.SumAcrossPhases(phases, field)
}

func (b *StateBridge) TotalSum(ctx context.Context) (float64, error) {
	return b.sumField(ctx, domain.EMETER_TOTAL)
}

func (b *StateBridge) TotalReturnedSum(ctx context.Context) (float64, error) {
	return b.sumField(ctx, domain.EMETER_TOTAL_RETURNED)
}

func (b *StateBridge) CurrentSum(ctx context.Context) (float64, error) {
	return b.sumField(ctx, domain.EMETER_CURRENT)
}

func (b *StateBridge) PowerSum(ctx context.Context) (float64, error) {
	return b.sumField(ctx, domain.EMETER_POWER)
}

func (b *StateBridge) VoltageCalc(ctx context.Context, mode string) (float64, error) {
	phases, err := b.ReadPhases(ctx, domain.EMETER_VOLTAGE)
	if err != nil {
		return 0, err
	}
	return electrical.MeanOrRMSVoltage(phases, mode)
}

// PowerFactor of one phase. Absent readings give 0.
func (b *StateBridge) PowerFactor(ctx context.Context, channel int) (float64, error) {
	if channel < 0 || channel >= domain.PHASE_COUNT {
		return 0, domain.InvalidInput("phase %d", channel)
	}
	reading := domain.NewPhaseReading(channel)
	for _, field := range []domain.EmeterField{domain.EMETER_POWER, domain.EMETER_REACTIVE_POWER} {
		v, err := b.get(ctx, domain.EmeterPath(channel, field))
		if err != nil {
			return 0, err
		}
		if f, ok := v.Float(); ok {
			reading.Set(field, f)
		}
	}
	return electrical.PhasePowerFactor(reading), nil
}

// PersistDuration returns the stored duration of key, negative or absent read as 0,
// then stores newValue when it is set and not negative. Store faults are logged and yield 0.
func (b *StateBridge) PersistDuration(ctx context.Context, key string, newValue *float64) float64 {
	prev, _, err := b.persistDuration(ctx, key, newValue)
	if err != nil {
		b.logger.Warn("bridge@duration store failed", zap.String("key", key), zap.Error(err))
		return 0
	}
	return prev
}

// SetDuration is PersistDuration for callers that must know whether newValue reached the store.
// written is false when newValue is nil or negative.
func (b *StateBridge) SetDuration(ctx context.Context, key string, newValue *float64) (prev float64, written bool, err error) {
	return b.persistDuration(ctx, key, newValue)
}

func (b *StateBridge) persistDuration(ctx context.Context, key string, newValue *float64) (float64, bool, error) {
	v, err := b.get(ctx, key)
	if err != nil {
		return 0, false, err
	}
	var value float64
	if f, ok := v.Float(); ok && f > 0 {
		value = f
	}
	if newValue == nil || *newValue < 0 {
		return value, false, nil
	}
	if err := b.set(ctx, key, *newValue); err != nil {
		return 0, false, err
	}
	b.logger.Debug("bridge@duration stored", zap.String("key", key), zap.Float64("value", *newValue))
	return value, true, nil
}

// ReadFavoritePosition reports ok=false when the position is absent or unreadable.
func (b *StateBridge) ReadFavoritePosition(ctx context.Context, key string) (float64, bool) {
	v, err := b.get(ctx, key)
	if err != nil {
		b.logger.Warn("bridge@favorite read failed", zap.String("key", key), zap.Error(err))
		return 0, false
	}
	return v.Float()
}

// ReadExtSensors decodes the add-on sensors 0..count-1 from the last status payload.
// Fahrenheit is derived from Celsius when the device did not report it.
func (b *StateBridge) ReadExtSensors(ctx context.Context, count int) ([]domain.ExtSensorReading, error) {
	v, err := b.get(ctx, domain.PATH_DEVICE_STATUS)
	if err != nil {
		return nil, err
	}
	payload, ok := v.Text()
	if !ok || payload == "" {
		return nil, nil
	}
	status, err := convert.ParseDeviceStatus([]byte(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	readings := make([]domain.ExtSensorReading, 0, count)
	for i := 0; i < count; i++ {
		key := strconv.Itoa(i)
		reading := domain.ExtSensorReading{Index: i}
		if c, ok := convert.ExtTemperature(status, key, convert.UNIT_CELSIUS); ok {
			reading.TemperatureC = &c
			if f, ok := convert.ExtTemperature(status, key, convert.UNIT_FAHRENHEIT); ok {
				reading.TemperatureF = &f
			} else if f, ok := convert.CelsiusToFahrenheit(c); ok {
				reading.TemperatureF = &f
			}
		}
		if h, ok := convert.ExtHumidity(status, key); ok {
			reading.Humidity = &h
		}
		readings = append(readings, reading)
	}
	return readings, nil
}
