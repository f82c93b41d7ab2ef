package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/berfenger/devstate2mqtt/internal/config"
	"github.com/berfenger/devstate2mqtt/internal/core/convert"
	"github.com/berfenger/devstate2mqtt/internal/core/domain"

	"go.uber.org/zap"
)

// Deriver runs the derivations of one configured device and writes them back acknowledged.
type Deriver struct {
	bridge      *StateBridge
	device      config.DeviceConfig
	voltageMode string
	logger      *zap.Logger
}

func NewDeriver(bridge *StateBridge, device config.DeviceConfig, voltageMode string, logger *zap.Logger) *Deriver {
	return &Deriver{
		bridge:      bridge,
		device:      device,
		voltageMode: voltageMode,
		logger:      logger.With(zap.String("component", "deriver"), zap.String("device", device.Id)),
	}
}

func (d *Deriver) Bridge() *StateBridge {
	return d.bridge
}

func (d *Deriver) Device() config.DeviceConfig {
	return d.device
}

// Derive computes every value the device kind supports.
// Values lacking channel data are skipped; store faults abort the run.
func (d *Deriver) Derive(ctx context.Context) (*domain.DerivedSnapshot, error) {
	snapshot := &domain.DerivedSnapshot{
		DeviceId: d.device.Id,
		Kind:     d.device.Kind,
	}

	var err error
	switch d.device.Kind {
	case config.DEVICE_KIND_RGBW:
		err = d.deriveColor(ctx, snapshot)
	case config.DEVICE_KIND_WHITE:
		err = d.deriveWhite(ctx, snapshot)
	case config.DEVICE_KIND_EM3:
		err = d.deriveMeter(ctx, snapshot)
	}
	if err != nil {
		return nil, err
	}

	if d.device.ExtSensors > 0 {
		if err := d.deriveExt(ctx, snapshot); err != nil {
			return nil, err
		}
	}

	if len(d.device.Durations) > 0 {
		snapshot.Durations = make(map[string]float64, len(d.device.Durations))
		for _, key := range d.device.Durations {
			snapshot.Durations[key] = d.bridge.PersistDuration(ctx, key, nil)
		}
	}

	if len(d.device.Favorites) > 0 {
		snapshot.Favorites = make(map[string]float64, len(d.device.Favorites))
		for _, key := range d.device.Favorites {
			if pos, ok := d.bridge.ReadFavoritePosition(ctx, key); ok {
				snapshot.Favorites[key] = pos
			}
		}
	}

	return snapshot, nil
}

func (d *Deriver) write(ctx context.Context, snapshot *domain.DerivedSnapshot, rel string, val any) error {
	if err := d.bridge.SetDerived(ctx, rel, val); err != nil {
		return err
	}
	snapshot.Written++
	return nil
}

func (d *Deriver) deriveColor(ctx context.Context, snapshot *domain.DerivedSnapshot) error {
	bundle, err := d.bridge.AssembleColorBundle(ctx)
	if err != nil {
		return err
	}
	rgbw, err := d.bridge.ReadRGBW(ctx)
	if err != nil {
		return err
	}
	hsv, err := d.bridge.ReadHSV(ctx)
	if err != nil {
		return err
	}
	hsv = domain.HSV{
		Hue:        convert.Round2(hsv.Hue),
		Saturation: convert.Round2(hsv.Saturation),
		Brightness: convert.Round2(hsv.Brightness),
	}
	snapshot.Color = &domain.DerivedColor{Bundle: bundle, RGBW: rgbw, HSV: hsv}

	writes := []struct {
		path string
		val  any
	}{
		{domain.PATH_LIGHTS_RGBW, rgbw},
		{domain.PATH_LIGHTS_HUE, hsv.Hue},
		{domain.PATH_LIGHTS_SATURATION, hsv.Saturation},
		{domain.PATH_LIGHTS_VALUE, hsv.Brightness},
	}
	for _, w := range writes {
		if err := d.write(ctx, snapshot, w.path, w.val); err != nil {
			return err
		}
	}
	return nil
}

func (d *Deriver) deriveWhite(ctx context.Context, snapshot *domain.DerivedSnapshot) error {
	bundle, err := d.bridge.AssembleWhiteBundle(ctx)
	if err != nil {
		return err
	}
	snapshot.White = &bundle
	return nil
}

func (d *Deriver) deriveMeter(ctx context.Context, snapshot *domain.DerivedSnapshot) error {
	meter := &domain.DerivedMeter{}
	snapshot.Meter = meter

	totals := []struct {
		path   string
		target **float64
		calc   func(context.Context) (float64, error)
	}{
		{domain.PATH_TOTAL_ACTIVE_POWER, &meter.Power, d.bridge.PowerSum},
		{domain.PATH_TOTAL_CURRENT, &meter.Current, d.bridge.CurrentSum},
		{domain.PATH_TOTAL_CONSUMED_POWER, &meter.Total, d.bridge.TotalSum},
		{domain.PATH_TOTAL_RETURNED, &meter.TotalReturned, d.bridge.TotalReturnedSum},
		{domain.PATH_TOTAL_VOLTAGE, &meter.Voltage, func(ctx context.Context) (float64, error) {
			return d.bridge.VoltageCalc(ctx, d.voltageMode)
		}},
	}
	for _, t := range totals {
		v, err := t.calc(ctx)
		if errors.Is(err, domain.ErrMissingChannelData) {
			d.logger.Debug("deriver@skip", zap.String("path", t.path), zap.Error(err))
			continue
		} else if err != nil {
			return err
		}
		*t.target = &v
		if err := d.write(ctx, snapshot, t.path, v); err != nil {
			return err
		}
	}

	for phase := 0; phase < domain.PHASE_COUNT; phase++ {
		pf, err := d.bridge.PowerFactor(ctx, phase)
		if err != nil {
			return err
		}
		meter.PowerFactor[phase] = &pf
		if err := d.write(ctx, snapshot, domain.EmeterPath(phase, domain.EMETER_POWER_FACTOR), pf); err != nil {
			return err
		}
	}
	return nil
}

func (d *Deriver) deriveExt(ctx context.Context, snapshot *domain.DerivedSnapshot) error {
	readings, err := d.bridge.ReadExtSensors(ctx, d.device.ExtSensors)
	if errors.Is(err, domain.ErrInvalidInput) {
		d.logger.Warn("deriver@ext status unreadable", zap.Error(err))
		return nil
	} else if err != nil {
		return err
	}
	snapshot.Ext = readings
	for _, r := range readings {
		if r.TemperatureF == nil {
			continue
		}
		f := convert.Round2(*r.TemperatureF)
		if err := d.write(ctx, snapshot, fmt.Sprintf(domain.PATH_EXT_TEMPERATURE_F, r.Index), f); err != nil {
			return err
		}
	}
	return nil
}
