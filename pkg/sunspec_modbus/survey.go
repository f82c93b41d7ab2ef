package sunspec_modbus

import (
	"errors"
	"time"

	"github.com/simonvetter/modbus"
	"go.uber.org/zap"
)

const (
	SUNSPEC_BASE_ADDR        = 40000
	SUNSPEC_FIRST_BLOCK_ADDR = 40002
	SUNSPEC_WK_COMMON        = 1
	SUNSPEC_WK_METER_MIN     = 201
	SUNSPEC_WK_METER_MAX     = 204
	SUNSPEC_SURVEY_MAX_BLOCK = 10
)

var ErrNotSunSpec = errors.New("could not find a SunSpec device")

type modbusBlock struct {
	id       uint16
	baseAddr uint16
	length   uint16
}

func (block *modbusBlock) isEndBlock() bool {
	return block.id == 0xFFFF
}

func (block *modbusBlock) isMeter() bool {
	return block.id >= SUNSPEC_WK_METER_MIN && block.id <= SUNSPEC_WK_METER_MAX
}

func surveyModbusBlock(client *modbus.ModbusClient, baseAddr uint16) (*modbusBlock, error) {
	wellKnownValue, err := client.ReadRegister(baseAddr, modbus.HOLDING_REGISTER)
	if err != nil {
		return nil, err
	}
	length, err := client.ReadRegister(baseAddr+1, modbus.HOLDING_REGISTER)
	if err != nil {
		return nil, err
	}
	return &modbusBlock{
		id:       wellKnownValue,
		length:   length,
		baseAddr: baseAddr,
	}, nil
}

func traceLoggerInstrumentation(logger *zap.Logger) *ModbusInstrument {
	if logger == nil {
		return nil
	}
	return &ModbusInstrument{
		RecordTime: func(fnName string, readTime time.Duration) {
			logger.Debug("modbus read", zap.String("fn", fnName), zap.Int64("millis", readTime.Milliseconds()))
		},
	}
}
