package sunspec_modbus

func CreateTestACMeterModbusReader() (ACMeterModbusReader, error) {
	return TestACMeterModbusReader{}, nil
}

// TestACMeterModbusReader serves a fixed three-phase sample without a device.
type TestACMeterModbusReader struct {
}

func (reader TestACMeterModbusReader) Open() error {
	return nil
}

func (reader TestACMeterModbusReader) Close() error {
	return nil
}

func (reader TestACMeterModbusReader) Validate() error {
	return nil
}

func (reader TestACMeterModbusReader) GetInfo() (*ACMeterInfo, error) {
	return &ACMeterInfo{
		Manufacturer: "Devstate",
		Model:        "Smart Meter TS 65A-3",
		Version:      "1.2",
		Serial:       "0000000001",
		MeterModel:   203,
	}, nil
}

func (reader TestACMeterModbusReader) GetPhaseReadings() (*ACMeterPhaseReadings, error) {
	return &ACMeterPhaseReadings{
		Phases: [3]ACMeterPhaseReading{
			{
				PowerWatt:        410.5,
				ReactivePowerVar: -35.2,
				VoltageVolt:      231.4,
				CurrentAmp:       1.82,
				EnergyImportedWh: 1250300,
				EnergyExportedWh: 820100,
			},
			{
				PowerWatt:        -120.25,
				ReactivePowerVar: 12.4,
				VoltageVolt:      229.8,
				CurrentAmp:       0.61,
				EnergyImportedWh: 980450,
				EnergyExportedWh: 1020000,
			},
			{
				PowerWatt:        95,
				ReactivePowerVar: 0,
				VoltageVolt:      232.1,
				CurrentAmp:       0.44,
				EnergyImportedWh: 705000,
				EnergyExportedWh: 0,
			},
		},
		TotalPowerWatt: 385.25,
		Frequency:      50,
	}, nil
}
