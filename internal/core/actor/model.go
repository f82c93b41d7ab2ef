package actor

import (
	"errors"

	"github.com/berfenger/devstate2mqtt/internal/config"
	"github.com/berfenger/devstate2mqtt/internal/core/domain"
	"github.com/berfenger/devstate2mqtt/internal/core/service"
)

var (
	ErrDeriveInProgress = errors.New("a derive run is in progress")
	ErrNoMeter          = errors.New("no meter configured")
)

// GetDeviceBridgeRequest asks for the services bound to one configured device.
type GetDeviceBridgeRequest struct {
	DeviceId string
}

// GetDeviceBridgeResponse has a nil Bridge when the device is not configured.
type GetDeviceBridgeResponse struct {
	Bridge   *service.StateBridge
	NameSync *service.NameSync
	Device   config.DeviceConfig
}

type GetLastRunRequest struct {
}

type GetLastRunResponse struct {
	Run *domain.DeriveResponse
}
