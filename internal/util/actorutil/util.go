package actorutil

import (
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/berfenger/devstate2mqtt/internal/core/domain"
	"github.com/berfenger/devstate2mqtt/internal/mqtt"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/lmittmann/tint"
	"go.uber.org/zap"
)

func PipeToSelfWithRecover(ctx actor.Context, future *actor.Future, mapFn func(error) any) {
	ctx.ReenterAfter(future, func(msg any, err error) {
		if err != nil {
			ctx.Send(ctx.Self(), mapFn(err))
			return
		}
		ctx.Send(ctx.Self(), msg)
	})
}

func NewActorSystemWithZapLogger(logger *zap.Logger) *actor.ActorSystem {
	stdOutLogger := zap.NewStdLog(logger)

	var slogLevel slog.Level = slog.LevelInfo

	switch logger.Level() {
	case zap.DebugLevel:
		slogLevel = slog.LevelDebug
	case zap.InfoLevel:
		slogLevel = slog.LevelInfo
	case zap.WarnLevel:
		slogLevel = slog.LevelWarn
	case zap.ErrorLevel:
		slogLevel = slog.LevelError
	case zap.PanicLevel:
		slogLevel = slog.LevelError
	}

	return actor.NewActorSystem(actor.WithLoggerFactory(func(system *actor.ActorSystem) *slog.Logger {

		// create a new logger
		return slog.New(tint.NewHandler(stdOutLogger.Writer(), &tint.Options{
			Level:      slogLevel,
			TimeFormat: time.DateTime,
		}))
	}))
}

func ActorLogger(actorName string, logger *zap.Logger) *zap.Logger {
	return logger.With(zap.String("actor", actorName))
}

var ErrUnknownCommand = errors.New("unknown command")

// ParsedMQTTCommandToCommand maps a parsed MQTT command to the device request it asks for.
// The outcome is sent to replyTo, when set.
func ParsedMQTTCommandToCommand(cmd mqtt.ParsedMQTTCommand, replyTo *actor.PID) (domain.DeviceCommandRequest, error) {
	mixIn := domain.DeviceCommandRequestMixIn{DeviceId: cmd.DeviceId}
	if replyTo != nil {
		mixIn.ActorRequestMixIn = domain.ReplyVia(replyTo)
	}
	switch cmd.Command {
	case mqtt.MQTT_COMMAND_DURATION:
		value, err := strconv.ParseFloat(strings.TrimSpace(cmd.Payload), 64)
		if err != nil {
			return nil, domain.InvalidInput("duration %q", cmd.Payload)
		}
		return domain.SetDurationRequest{
			DeviceCommandRequestMixIn: mixIn,
			Key:                       cmd.Param,
			Value:                     &value,
		}, nil
	case mqtt.MQTT_COMMAND_NAME:
		return domain.SyncNameRequest{
			DeviceCommandRequestMixIn: mixIn,
			Channel:                   cmd.Param,
			Name:                      strings.TrimSpace(cmd.Payload),
		}, nil
	}
	return nil, ErrUnknownCommand
}
