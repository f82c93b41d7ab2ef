package sunspec_modbus

import (
	"errors"
	"fmt"
	"time"

	"github.com/simonvetter/modbus"
	"go.uber.org/zap"
)

// Register offsets inside the data of a 201-204 meter block.
const (
	meterBlockDataOffset = 2
	meterBlockDataLength = 53
	meterOffCurrentA     = 1
	meterOffCurrentSF    = 4
	meterOffVoltageA     = 6
	meterOffVoltageSF    = 13
	meterOffFrequency    = 14
	meterOffFrequencySF  = 15
	meterOffPower        = 16
	meterOffPowerA       = 17
	meterOffPowerSF      = 20
	meterOffVarA         = 27
	meterOffVarSF        = 30
	meterOffExportedA    = 38
	meterOffImportedA    = 46
	meterOffEnergySF     = 52
)

type acMeterIntSFModbusBlocks struct {
	common     uint16
	acMeter    uint16
	meterModel uint16
}

func (blk *acMeterIntSFModbusBlocks) AllBlocksDefined() bool {
	return blk.common > 0 && blk.acMeter > 0
}

type ACMeterIntSFModbusReader struct {
	ModbusClient
	blocks        acMeterIntSFModbusBlocks
	ignoreFronius bool
}

func CreateACMeterIntSFModbusReader(ip string, port uint, acMeterAddress uint8, timeout time.Duration,
	ignoreFronius bool, logger *zap.Logger, instrumentation *ModbusInstrument) (ACMeterModbusReader, error) {
	client, err := modbus.NewClient(&modbus.ClientConfiguration{
		URL:     fmt.Sprintf("tcp://%s:%d", ip, port),
		Timeout: timeout,
	})
	if err != nil {
		return nil, err
	}
	// instrumentation
	var inst []ModbusInstrument
	logInst := traceLoggerInstrumentation(logger.With(zap.String("target", "acMeter")).With(zap.Uint8("acMeter", acMeterAddress)))
	if logInst != nil {
		inst = append(inst, *logInst)
	}
	if instrumentation != nil {
		inst = append(inst, *instrumentation)
	}

	// set ac meter address
	err = client.SetUnitId(acMeterAddress)
	if err != nil {
		return nil, err
	}
	// create reader instance
	fron := ACMeterIntSFModbusReader{
		ModbusClient: ModbusClient{
			client:     client,
			instrument: inst,
		},
		ignoreFronius: ignoreFronius,
	}
	return &fron, nil
}

func (reader *ACMeterIntSFModbusReader) Open() error {
	if err := reader.client.Open(); err != nil {
		return err
	}
	if err := reader.survey(); err != nil {
		return err
	}
	return nil
}

func (reader *ACMeterIntSFModbusReader) Close() error {
	return reader.client.Close()
}

func (reader *ACMeterIntSFModbusReader) Validate() error {
	str, err := reader.readString(SUNSPEC_BASE_ADDR, 4)
	if err != nil {
		return err
	}
	if str != "SunS" {
		return ErrNotSunSpec
	}
	str, err = reader.readString(reader.blocks.common+2, 32)
	if err != nil {
		return err
	}
	if !reader.ignoreFronius {
		if str != "Fronius" {
			return errors.New("could not find a Fronius smart meter")
		}
	}
	return nil
}

func (reader *ACMeterIntSFModbusReader) GetInfo() (*ACMeterInfo, error) {
	manufacturer, err := reader.readString(reader.blocks.common+2, 32)
	if err != nil {
		return nil, err
	}
	model, err := reader.readString(reader.blocks.common+18, 32)
	if err != nil {
		return nil, err
	}
	version, err := reader.readString(reader.blocks.common+42, 16)
	if err != nil {
		return nil, err
	}
	serial, err := reader.readString(reader.blocks.common+50, 32)
	if err != nil {
		return nil, err
	}

	return &ACMeterInfo{
		Manufacturer: manufacturer,
		Model:        model,
		Version:      version,
		Serial:       serial,
		MeterModel:   reader.blocks.meterModel,
	}, nil
}

// GetPhaseReadings reads the whole meter block at once, so the three phases share one sample.
func (reader *ACMeterIntSFModbusReader) GetPhaseReadings() (*ACMeterPhaseReadings, error) {
	regs, err := reader.readRegisters(reader.blocks.acMeter+meterBlockDataOffset, meterBlockDataLength, modbus.HOLDING_REGISTER)
	if err != nil {
		return nil, err
	}
	return reader.decodePhaseReadings(regs)
}

func (reader ModbusClient) decodePhaseReadings(regs []uint16) (*ACMeterPhaseReadings, error) {
	if len(regs) < meterBlockDataLength {
		return nil, fmt.Errorf("short meter block: %d registers", len(regs))
	}
	readings := &ACMeterPhaseReadings{
		TotalPowerWatt: scaled(int16(regs[meterOffPower]), regs[meterOffPowerSF]),
		Frequency:      scaled(regs[meterOffFrequency], regs[meterOffFrequencySF]),
	}
	for i := range readings.Phases {
		readings.Phases[i] = ACMeterPhaseReading{
			PowerWatt:        scaled(int16(regs[meterOffPowerA+i]), regs[meterOffPowerSF]),
			ReactivePowerVar: scaled(int16(regs[meterOffVarA+i]), regs[meterOffVarSF]),
			VoltageVolt:      scaled(regs[meterOffVoltageA+i], regs[meterOffVoltageSF]),
			CurrentAmp:       scaled(int16(regs[meterOffCurrentA+i]), regs[meterOffCurrentSF]),
			EnergyImportedWh: scaled(decodeUint32(regs, meterOffImportedA+2*i), regs[meterOffEnergySF]),
			EnergyExportedWh: scaled(decodeUint32(regs, meterOffExportedA+2*i), regs[meterOffEnergySF]),
		}
	}
	return readings, nil
}

func (inv *ACMeterIntSFModbusReader) survey() error {

	// check SunSpec
	str, err := inv.readString(SUNSPEC_BASE_ADDR, 4)
	if err != nil {
		return err
	}
	if str != "SunS" {
		return ErrNotSunSpec
	}

	// survey blocks
	blocks := acMeterIntSFModbusBlocks{}
	var baseAddr uint16 = SUNSPEC_FIRST_BLOCK_ADDR
	n := 0
	for {
		block, err := surveyModbusBlock(inv.client, baseAddr)
		if err != nil {
			return err
		}
		if block.isEndBlock() {
			break
		}
		// identify block
		switch {
		case block.id == SUNSPEC_WK_COMMON:
			blocks.common = block.baseAddr
		case block.isMeter():
			blocks.acMeter = block.baseAddr
			blocks.meterModel = block.id
		}
		baseAddr = baseAddr + block.length + 2
		// ensure the loop has an ending
		if blocks.AllBlocksDefined() || n > SUNSPEC_SURVEY_MAX_BLOCK {
			break
		}
		n++
	}
	if blocks.AllBlocksDefined() {
		inv.blocks = blocks
		return nil
	}
	return errors.New("could not find all required sunspec blocks (common, ac_meter)")
}
