package service

import (
	"context"

	"github.com/berfenger/devstate2mqtt/internal/core/domain"
	"github.com/berfenger/devstate2mqtt/internal/core/port"

	"go.uber.org/zap"
)

// NameSync keeps the display names of a device and its channels in line with
// the names reported by the device. A name is written at most once per change.
type NameSync struct {
	identity port.DeviceIdentity
	reader   port.MetadataReader
	writer   port.MetadataWriter
	cache    port.NameCache
	logger   *zap.Logger
}

func NewNameSync(identity port.DeviceIdentity, reader port.MetadataReader, writer port.MetadataWriter,
	cache port.NameCache, logger *zap.Logger) *NameSync {
	return &NameSync{
		identity: identity,
		reader:   reader,
		writer:   writer,
		cache:    cache,
		logger:   logger.With(zap.String("component", "namesync"), zap.String("device", identity.DeviceID())),
	}
}

func (s *NameSync) SyncDeviceName(ctx context.Context, name string) (string, error) {
	return s.sync(ctx, s.identity.DeviceID(), name)
}

// SyncChannelName syncs the name of a channel such as "Relay0".
func (s *NameSync) SyncChannelName(ctx context.Context, channel, name string) (string, error) {
	if channel == "" {
		return name, domain.InvalidInput("empty channel id")
	}
	return s.sync(ctx, s.identity.DeviceID()+"."+channel, name)
}

func (s *NameSync) sync(ctx context.Context, id, name string) (string, error) {
	if name == "" {
		return name, nil
	}
	if err := ctx.Err(); err != nil {
		return name, err
	}
	obj, err := s.reader.GetObject(ctx, id)
	if err != nil {
		return name, domain.NewStoreFault("getObject", id, err)
	}
	if obj == nil || obj.Common.Name == name {
		return name, nil
	}
	// the write is skipped if the caller gave up after the read
	if err := ctx.Err(); err != nil {
		return name, err
	}
	if err := s.writer.ExtendObject(ctx, id, domain.NamePatch(name)); err != nil {
		return name, domain.NewStoreFault("extendObject", id, err)
	}
	s.cache.SetName(id, name)
	s.logger.Info("namesync@sync renamed", zap.String("id", id), zap.String("from", obj.Common.Name), zap.String("to", name))
	return name, nil
}
