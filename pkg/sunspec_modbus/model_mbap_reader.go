package sunspec_modbus

import (
	"bytes"
	"math"
	"time"

	"github.com/simonvetter/modbus"
)

// ModbusClient wraps a connected client with optional access timing.
type ModbusClient struct {
	client     *modbus.ModbusClient
	instrument []ModbusInstrument
}

// ModbusInstrument observes the duration of every register access.
type ModbusInstrument struct {
	RecordTime func(fnName string, readTime time.Duration)
}

// registerValue covers the raw register encodings a SunSpec scale factor applies to.
type registerValue interface {
	~int16 | ~uint16 | ~uint32
}

// scaled applies a SunSpec scale factor: value * 10^sf, sf being a signed register.
func scaled[N registerValue](value N, sf uint16) float64 {
	return float64(value) * math.Pow(10, float64(int16(sf)))
}

// decodeUint32 joins two registers, high word first.
func decodeUint32(regs []uint16, offset int) uint32 {
	return uint32(regs[offset])<<16 | uint32(regs[offset+1])
}

// readString reads a NUL padded string of size registers.
func (reader ModbusClient) readString(address uint16, size uint16) (string, error) {
	raw, err := reader.readRawBytes(address, size, modbus.HOLDING_REGISTER)
	if err != nil {
		return "", err
	}
	if end := bytes.IndexByte(raw, 0x00); end >= 0 {
		raw = raw[:end]
	}
	return string(raw), nil
}

func (reader ModbusClient) readRegisters(addr uint16, quantity uint16, regType modbus.RegType) ([]uint16, error) {
	defer RecordTimer("ReadRegisters", reader.instrument)()
	return reader.client.ReadRegisters(addr, quantity, regType)
}

func (reader ModbusClient) readRawBytes(addr uint16, quantity uint16, regType modbus.RegType) ([]byte, error) {
	defer RecordTimer("ReadRawBytes", reader.instrument)()
	return reader.client.ReadRawBytes(addr, quantity, regType)
}

// RecordTimer starts timing name and returns the func that reports it.
func RecordTimer(name string, instrument []ModbusInstrument) func() {
	if len(instrument) == 0 {
		return func() {}
	}
	start := time.Now()
	return func() {
		elapsed := time.Since(start)
		for _, inst := range instrument {
			inst.RecordTime(name, elapsed)
		}
	}
}
