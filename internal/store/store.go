// Package store provides the state and object stores the device bridges read from.
package store

import (
	"context"
	"fmt"

	"github.com/berfenger/devstate2mqtt/internal/config"
	"github.com/berfenger/devstate2mqtt/internal/core/domain"
	"github.com/berfenger/devstate2mqtt/internal/core/port"

	"go.uber.org/zap"
)

const (
	BACKEND_MEMORY = "memory"
	BACKEND_SQLITE = "sqlite"
)

type Store interface {
	port.StateStore
	port.MetadataStore
	// States returns every state whose id starts with prefix.
	States(ctx context.Context, prefix string) (map[string]domain.State, error)
	// PutObject creates or replaces an object.
	PutObject(ctx context.Context, obj domain.Object) error
	Close() error
}

func Open(cfg config.StoreConfig, logger *zap.Logger) (Store, error) {
	switch cfg.Backend {
	case BACKEND_MEMORY, "":
		logger.Info("store: using memory backend")
		return NewMemoryStore(), nil
	case BACKEND_SQLITE:
		logger.Info("store: using sqlite backend", zap.String("path", cfg.Path))
		return OpenSQLiteStore(cfg.Path)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}

// DeviceID is a fixed device identity.
type DeviceID string

func (d DeviceID) DeviceID() string {
	return string(d)
}

var _ port.DeviceIdentity = DeviceID("")
