package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	adactor "github.com/berfenger/devstate2mqtt/internal/adapter/actor"
	"github.com/berfenger/devstate2mqtt/internal/adapter/schedule"
	"github.com/berfenger/devstate2mqtt/internal/config"
	"github.com/berfenger/devstate2mqtt/internal/core/actor"
	"github.com/berfenger/devstate2mqtt/internal/core/domain"
	"github.com/berfenger/devstate2mqtt/internal/server"
	"github.com/berfenger/devstate2mqtt/internal/store"
	"github.com/berfenger/devstate2mqtt/internal/util/actorutil"
	"github.com/berfenger/devstate2mqtt/pkg/sunspec_modbus"

	pactor "github.com/asynkron/protoactor-go/actor"
	"go.uber.org/zap"
)

const (
	shutdownTimeout = 5 * time.Second
	stopTimeout     = 2 * time.Second
)

// waitForSignal stops apiServer on SIGINT or SIGTERM and closes done once it returned.
func waitForSignal(apiServer *http.Server, logger *zap.Logger, done chan<- struct{}) {
	defer close(done)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	logger.Info("shutting down gracefully, press Ctrl+C again to force")

	// in-flight requests get shutdownTimeout to finish
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := apiServer.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}
}

func main() {

	cfg, err := initConfig()
	if err != nil {
		slog.Error("config errors", "error", err)
		return
	}
	safePrintConfig(*cfg)

	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = zap.NewAtomicLevelAt(cfg.LogLevel)
	logger := zap.Must(zapCfg.Build())
	defer logger.Sync()

	st, err := store.Open(cfg.Store, logger)
	if err != nil {
		logger.Error("could not open store", zap.String("backend", cfg.Store.Backend), zap.Error(err))
		return
	}
	defer st.Close()

	meterProv, err := meterActorProvider(cfg, st, logger)
	if err != nil {
		logger.Error("could not create meter reader", zap.Error(err))
		return
	}

	as := actorutil.NewActorSystemWithZapLogger(logger)
	root := as.Root

	stores := actor.Stores{States: st, Meta: st, Names: store.NewNameCache()}
	masterProps := pactor.PropsFromProducer(func() pactor.Actor {
		return actor.NewMasterOfPuppetsActor(*cfg, stores, meterProv, mqttActorProvider(cfg, logger), logger)
	})
	master, err := root.SpawnNamed(masterProps, domain.ACTOR_ID_MASTER)
	if err != nil {
		logger.Error("could not start master actor", zap.Error(err))
		return
	}

	schedCtx, schedCancel := context.WithCancel(context.Background())
	deriveScheduler := schedule.NewDeriveScheduler(root, master, time.Duration(cfg.Derive.PollIntervalMillis)*time.Millisecond, logger)
	if err := deriveScheduler.Start(schedCtx); err != nil {
		panic(err)
	}

	apiServer := server.NewServer(*cfg, root, master, logger)
	done := make(chan struct{})
	go waitForSignal(apiServer, logger, done)

	logger.Info("listening", zap.String("addr", apiServer.Addr), zap.Int("devices", len(cfg.Devices)))
	if err := apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		panic(fmt.Sprintf("http server error: %s", err))
	}
	<-done

	// no new runs once the actors start stopping
	stopCtx, stopCancel := context.WithTimeout(context.Background(), stopTimeout)
	defer stopCancel()
	schedCancel()
	deriveScheduler.Stop(stopCtx)

	root.Stop(master)
	as.Shutdown()
	logger.Info("shutdown complete")
}

func meterActorProvider(cfg *config.Config, writer store.Store, logger *zap.Logger) (actor.MeterActorProvider, error) {

	if !cfg.MeterModbusTcp.Enabled {
		return nil, nil
	}

	acMeter, err := sunspec_modbus.CreateACMeterIntSFModbusReader(cfg.MeterModbusTcp.Host,
		cfg.MeterModbusTcp.Port, uint8(cfg.MeterModbusTcp.MeterId), 1*time.Second,
		true, logger, nil)
	if err != nil {
		return nil, err
	}

	interval := time.Duration(cfg.MeterModbusTcp.PollIntervalMillis) * time.Millisecond
	return func() *adactor.MeterActor {
		return adactor.NewMeterActor(acMeter, writer, cfg.MeterModbusTcp.DeviceId, interval, logger)
	}, nil
}

func mqttActorProvider(cfg *config.Config, logger *zap.Logger) actor.MQTTActorProvider {
	return func() *adactor.MQTTActor {
		return adactor.NewMQTTActor(cfg, logger)
	}
}
