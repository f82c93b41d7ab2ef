package sunspec_modbus

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	USE_MOCKED_READER = true
)

func TestMeter(t *testing.T) {

	reader := ACMeterReader()

	err := reader.Open()
	if err != nil {
		t.Error(err)
		return
	}
	err = reader.Validate()
	if err != nil {
		t.Error(err)
		return
	}

	info, err := reader.GetInfo()
	if err != nil {
		t.Error(err)
		return
	}
	fmt.Printf("Meter info: %+v\n", info)

	readings, err := reader.GetPhaseReadings()
	if err != nil {
		t.Error(err)
		return
	}
	for i, phase := range readings.Phases {
		fmt.Printf("Meter phase %d: %+v\n", i, phase)
	}
}

func meterBlock() []uint16 {
	regs := make([]uint16, meterBlockDataLength)
	// currents 1.82, 0.61, 0.44 A with SF -2
	regs[meterOffCurrentA] = 182
	regs[meterOffCurrentA+1] = 61
	regs[meterOffCurrentA+2] = 44
	regs[meterOffCurrentSF] = uint16(0xFFFE)
	// voltages with SF -1
	regs[meterOffVoltageA] = 2314
	regs[meterOffVoltageA+1] = 2298
	regs[meterOffVoltageA+2] = 2321
	regs[meterOffVoltageSF] = uint16(0xFFFF)
	regs[meterOffFrequency] = 5000
	regs[meterOffFrequencySF] = uint16(0xFFFE)
	// power, second phase exporting
	regs[meterOffPower] = 385
	regs[meterOffPowerA] = 410
	regs[meterOffPowerA+1] = uint16(0xFFFF - 119) // -120
	regs[meterOffPowerA+2] = 95
	regs[meterOffPowerSF] = 0
	regs[meterOffVarA] = uint16(0xFFFF - 34) // -35
	regs[meterOffVarA+1] = 12
	regs[meterOffVarSF] = 0
	// energy, SF 1 (tens of Wh)
	regs[meterOffImportedA] = 0x0001
	regs[meterOffImportedA+1] = 0x0000 // 65536
	regs[meterOffImportedA+2] = 0x0000
	regs[meterOffImportedA+3] = 1000
	regs[meterOffExportedA+4] = 0x0000
	regs[meterOffExportedA+5] = 7
	regs[meterOffEnergySF] = 1
	return regs
}

func TestDecodePhaseReadings(t *testing.T) {

	assert := assert.New(t)
	require := require.New(t)

	readings, err := ModbusClient{}.decodePhaseReadings(meterBlock())
	require.NoError(err)

	assert.InDelta(1.82, readings.Phases[0].CurrentAmp, 1e-9)
	assert.InDelta(0.44, readings.Phases[2].CurrentAmp, 1e-9)
	assert.InDelta(229.8, readings.Phases[1].VoltageVolt, 1e-9)
	assert.InDelta(50.0, readings.Frequency, 1e-9)
	assert.Equal(385.0, readings.TotalPowerWatt)
	assert.Equal(410.0, readings.Phases[0].PowerWatt)
	assert.Equal(-120.0, readings.Phases[1].PowerWatt)
	assert.Equal(-35.0, readings.Phases[0].ReactivePowerVar)
	assert.Equal(12.0, readings.Phases[1].ReactivePowerVar)
	assert.Equal(655360.0, readings.Phases[0].EnergyImportedWh)
	assert.Equal(10000.0, readings.Phases[1].EnergyImportedWh)
	assert.Equal(70.0, readings.Phases[2].EnergyExportedWh)
	assert.Equal(0.0, readings.Phases[0].EnergyExportedWh)
}

func TestDecodePhaseReadingsShortBlock(t *testing.T) {
	_, err := ModbusClient{}.decodePhaseReadings(make([]uint16, 10))
	assert.Error(t, err)
}

func TestMeterBlockIdentification(t *testing.T) {

	assert := assert.New(t)

	for id, isMeter := range map[uint16]bool{1: false, 200: false, 201: true, 203: true, 204: true, 205: false} {
		block := modbusBlock{id: id}
		assert.Equal(isMeter, block.isMeter(), "block %d", id)
	}
	assert.True((&modbusBlock{id: 0xFFFF}).isEndBlock())
}

func TestRecordTimer(t *testing.T) {

	assert := assert.New(t)

	var names []string
	inst := []ModbusInstrument{{RecordTime: func(fnName string, _ time.Duration) {
		names = append(names, fnName)
	}}}
	RecordTimer("ReadRegisters", inst)()
	RecordTimer("ReadRawBytes", nil)()
	assert.Equal([]string{"ReadRegisters"}, names)
}

func TestScaled(t *testing.T) {

	assert := assert.New(t)

	// -2 as a scale factor register
	sfMinus2 := uint16(0xFFFE)
	assert.InDelta(230.15, scaled(uint16(23015), sfMinus2), 1e-9)
	assert.InDelta(-12.5, scaled(int16(-125), uint16(0xFFFF)), 1e-9)
	assert.InDelta(1500000, scaled(uint32(1500), 3), 1e-9)
	assert.Equal(uint32(0x00010002), decodeUint32([]uint16{1, 2}, 0))
}

func RealACMeterReader() ACMeterModbusReader {
	logger := zap.Must(zap.NewDevelopment())
	reader, err := CreateACMeterIntSFModbusReader("-.-.-.-", 502, 240, 1*time.Second, false, logger, nil)
	if err != nil {
		panic(err)
	}
	return reader
}

func MockedACMeterReader() ACMeterModbusReader {
	reader, err := CreateTestACMeterModbusReader()
	if err != nil {
		panic(err)
	}
	return reader
}

func ACMeterReader() ACMeterModbusReader {
	if USE_MOCKED_READER {
		return MockedACMeterReader()
	} else {
		return RealACMeterReader()
	}
}
