package port

import (
	"context"

	"github.com/berfenger/devstate2mqtt/internal/core/domain"
)

// StateReader reads single values from the state store. A missing key is
// reported as domain.Absent(), never as an error.
type StateReader interface {
	GetState(ctx context.Context, id string) (domain.StateValue, error)
}

type StateWriter interface {
	SetState(ctx context.Context, id string, val any, ack bool) error
}

type StateStore interface {
	StateReader
	StateWriter
}

// MetadataReader returns nil, nil when the object does not exist.
type MetadataReader interface {
	GetObject(ctx context.Context, id string) (*domain.Object, error)
}

type MetadataWriter interface {
	ExtendObject(ctx context.Context, id string, patch domain.ObjectPatch) error
}

type MetadataStore interface {
	MetadataReader
	MetadataWriter
}

type DeviceIdentity interface {
	DeviceID() string
}

// NameCache is the caller-owned record of names last written to the metadata store.
type NameCache interface {
	SetName(id, name string)
	Name(id string) (string, bool)
}
