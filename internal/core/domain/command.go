package domain

const (
	DEVICE_COMMAND_DURATION = "duration"
	DEVICE_COMMAND_NAME     = "name"
)

// DeviceCommandRequest is a change requested for one configured device.
type DeviceCommandRequest interface {
	ActorRequest
	DeviceCommand() string
	TargetDevice() string
}

type DeviceCommandRequestMixIn struct {
	ActorRequestMixIn
	DeviceId string
}

func (r DeviceCommandRequestMixIn) TargetDevice() string {
	return r.DeviceId
}

// Device commands

// SetDurationRequest stores Value under Key when set. The response carries the previous duration.
type SetDurationRequest struct {
	DeviceCommandRequestMixIn
	Key   string
	Value *float64
}

func (r SetDurationRequest) DeviceCommand() string {
	return DEVICE_COMMAND_DURATION
}

type SetDurationResponse struct {
	ActorResponseMixIn
	Previous float64
}

// SyncNameRequest renames the device, or one of its channels when Channel is set.
type SyncNameRequest struct {
	DeviceCommandRequestMixIn
	Channel string
	Name    string
}

func (r SyncNameRequest) DeviceCommand() string {
	return DEVICE_COMMAND_NAME
}

type SyncNameResponse struct {
	ActorResponseMixIn
	Name string
}

// ensure interface compliance
var _ DeviceCommandRequest = (*SetDurationRequest)(nil)
var _ DeviceCommandRequest = (*SyncNameRequest)(nil)
