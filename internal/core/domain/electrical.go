package domain

import "fmt"

// PHASE_COUNT is fixed: only three-phase meters are supported.
const PHASE_COUNT = 3

type EmeterField string

const (
	EMETER_POWER          EmeterField = "Power"
	EMETER_REACTIVE_POWER EmeterField = "ReactivePower"
	EMETER_VOLTAGE        EmeterField = "Voltage"
	EMETER_CURRENT        EmeterField = "Current"
	EMETER_TOTAL          EmeterField = "Total"
	EMETER_TOTAL_RETURNED EmeterField = "Total_Returned"
	EMETER_POWER_FACTOR   EmeterField = "PowerFactor"
)

// EmeterFields lists the per-phase readings, in read order.
var EmeterFields = []EmeterField{
	EMETER_POWER,
	EMETER_REACTIVE_POWER,
	EMETER_VOLTAGE,
	EMETER_CURRENT,
	EMETER_TOTAL,
	EMETER_TOTAL_RETURNED,
}

// Voltage aggregation modes.
const (
	VOLTAGE_MODE_MEAN = "mean"
	VOLTAGE_MODE_RMS  = "rms"
)

// Derived totals, relative to the device id.
const (
	PATH_TOTAL_CURRENT        = "Total.Current"
	PATH_TOTAL_ACTIVE_POWER   = "Total.ActivePower"
	PATH_TOTAL_CONSUMED_POWER = "Total.ConsumedPower"
	PATH_TOTAL_RETURNED       = "Total.Total_Returned"
	PATH_TOTAL_VOLTAGE        = "Total.Voltage"
)

func EmeterPath(phase int, field EmeterField) string {
	return fmt.Sprintf("Emeter%d.%s", phase, field)
}

// PhaseReading holds the readings of one phase. Missing keys are absent readings.
type PhaseReading struct {
	Phase  int
	Values map[EmeterField]float64
}

func NewPhaseReading(phase int) PhaseReading {
	return PhaseReading{Phase: phase, Values: map[EmeterField]float64{}}
}

func (r PhaseReading) Get(field EmeterField) (float64, bool) {
	v, ok := r.Values[field]
	return v, ok
}

func (r PhaseReading) Set(field EmeterField, v float64) {
	r.Values[field] = v
}
