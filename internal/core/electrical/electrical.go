// Package electrical aggregates three-phase energy meter readings.
package electrical

import (
	"math"

	"github.com/berfenger/devstate2mqtt/internal/core/convert"
	"github.com/berfenger/devstate2mqtt/internal/core/domain"
)

// POWER_FACTOR_NOISE_FLOOR is the |P|+|Q| level at or below which the power factor is reported as 0.
const POWER_FACTOR_NOISE_FLOOR = 1.5

// SumAcrossPhases adds field over the three phases and rounds to two decimals.
func SumAcrossPhases(phases []domain.PhaseReading, field domain.EmeterField) (float64, error) {
	values, err := phaseValues(phases, field)
	if err != nil {
		return 0, err
	}
	return convert.Round2(values[0] + values[1] + values[2]), nil
}

// MeanOrRMSVoltage averages the phase voltages in mean mode. Any other mode
// divides the sum by sqrt(3), the legacy line-to-line approximation.
func MeanOrRMSVoltage(phases []domain.PhaseReading, mode string) (float64, error) {
	values, err := phaseValues(phases, domain.EMETER_VOLTAGE)
	if err != nil {
		return 0, err
	}
	sum := values[0] + values[1] + values[2]
	if mode == domain.VOLTAGE_MODE_MEAN {
		return convert.Round2(sum / 3), nil
	}
	return convert.Round2(sum / math.Sqrt(3)), nil
}

func PowerFactor(power, reactive float64) float64 {
	if math.Abs(power)+math.Abs(reactive) <= POWER_FACTOR_NOISE_FLOOR {
		return 0
	}
	return convert.Round2(power / math.Sqrt(power*power+reactive*reactive))
}

// PhasePowerFactor is PowerFactor over one phase, 0 when either reading is absent.
func PhasePowerFactor(reading domain.PhaseReading) float64 {
	power, ok := reading.Get(domain.EMETER_POWER)
	if !ok {
		return 0
	}
	reactive, ok := reading.Get(domain.EMETER_REACTIVE_POWER)
	if !ok {
		return 0
	}
	return PowerFactor(power, reactive)
}

func phaseValues(phases []domain.PhaseReading, field domain.EmeterField) ([domain.PHASE_COUNT]float64, error) {
	var values [domain.PHASE_COUNT]float64
	for i := range values {
		if i >= len(phases) {
			return values, domain.MissingChannelDataError{Phase: i, Field: field}
		}
		v, ok := phases[i].Get(field)
		if !ok || math.IsNaN(v) {
			return values, domain.MissingChannelDataError{Phase: i, Field: field}
		}
		values[i] = v
	}
	return values, nil
}
