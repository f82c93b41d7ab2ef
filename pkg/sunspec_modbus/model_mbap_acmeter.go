package sunspec_modbus

type ACMeterInfo struct {
	Manufacturer string
	Model        string
	Version      string
	Serial       string
	// SunSpec meter model: 201 single phase, 202 split phase, 203 wye, 204 delta
	MeterModel uint16
}

// ACMeterPhaseReading is one phase of the meter. Positive power is import.
type ACMeterPhaseReading struct {
	PowerWatt        float64
	ReactivePowerVar float64
	VoltageVolt      float64
	CurrentAmp       float64
	// Lifetime energy in Wh
	EnergyImportedWh float64
	EnergyExportedWh float64
}

type ACMeterPhaseReadings struct {
	Phases         [3]ACMeterPhaseReading
	TotalPowerWatt float64
	Frequency      float64
}

type ACMeterModbusReader interface {
	Open() error
	Close() error
	Validate() error
	GetInfo() (*ACMeterInfo, error)
	GetPhaseReadings() (*ACMeterPhaseReadings, error)
}
