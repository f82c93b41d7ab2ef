package domain

import (
	"fmt"
	"strconv"
)

// SensorUpdateEvent is one derived value on its way to a published sensor.
type SensorUpdateEvent interface {
	SensorUpdateEvent() string
	SensorId() string
}

type SensorUpdateEventMixIn struct {
	Id string
}

func (e SensorUpdateEventMixIn) SensorUpdateEvent() string {
	return fmt.Sprintf("%T", e)
}

func (e SensorUpdateEventMixIn) SensorId() string {
	return e.Id
}

// FloatSensorUpdateEvent is rendered with Decimals fractional digits.
type FloatSensorUpdateEvent struct {
	SensorUpdateEventMixIn
	Value    float64
	Decimals uint
}

func NewFloatSensorUpdate(id string, value float64, decimals uint) FloatSensorUpdateEvent {
	return FloatSensorUpdateEvent{SensorUpdateEventMixIn: SensorUpdateEventMixIn{Id: id}, Value: value, Decimals: decimals}
}

func (e FloatSensorUpdateEvent) Formatted() string {
	return formatDecimals(e.Value, e.Decimals)
}

type BinarySensorUpdateEvent struct {
	SensorUpdateEventMixIn
	Value bool
}

func NewBinarySensorUpdate(id string, value bool) BinarySensorUpdateEvent {
	return BinarySensorUpdateEvent{SensorUpdateEventMixIn: SensorUpdateEventMixIn{Id: id}, Value: value}
}

// TextSensorUpdateEvent carries values published verbatim, like packed RGBW colors.
type TextSensorUpdateEvent struct {
	SensorUpdateEventMixIn
	Value string
}

func NewTextSensorUpdate(id, value string) TextSensorUpdateEvent {
	return TextSensorUpdateEvent{SensorUpdateEventMixIn: SensorUpdateEventMixIn{Id: id}, Value: value}
}

type BridgeStateUpdateEvent struct {
	SensorUpdateEventMixIn
	Value bool
}

// InputNumberSensorUpdateEvent reports the state of a settable number, such as a duration.
type InputNumberSensorUpdateEvent struct {
	SensorUpdateEventMixIn
	Value    float64
	Decimals uint
}

func NewInputNumberUpdate(id string, value float64, decimals uint) InputNumberSensorUpdateEvent {
	return InputNumberSensorUpdateEvent{SensorUpdateEventMixIn: SensorUpdateEventMixIn{Id: id}, Value: value, Decimals: decimals}
}

func (e InputNumberSensorUpdateEvent) Formatted() string {
	return formatDecimals(e.Value, e.Decimals)
}

func formatDecimals(value float64, decimals uint) string {
	return strconv.FormatFloat(value, 'f', int(decimals), 64)
}
