package schedule

import (
	"context"
	"errors"
	"time"

	"github.com/berfenger/devstate2mqtt/internal/core/domain"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/google/uuid"
	"github.com/reugn/go-quartz/job"
	"github.com/reugn/go-quartz/quartz"
	"go.uber.org/zap"
)

const DERIVE_JOB_KEY = "derive"

// DeriveScheduler fires a DeriveRequest at a fixed interval. Each run gets a fresh id.
type DeriveScheduler struct {
	scheduler   quartz.Scheduler
	rootContext *actor.RootContext
	target      *actor.PID
	interval    time.Duration
	timeout     time.Duration
	logger      *zap.Logger
}

func NewDeriveScheduler(rootContext *actor.RootContext, target *actor.PID, interval time.Duration, logger *zap.Logger) *DeriveScheduler {
	timeout := interval
	if timeout < time.Second {
		timeout = time.Second
	}
	return &DeriveScheduler{
		scheduler:   quartz.NewStdScheduler(),
		rootContext: rootContext,
		target:      target,
		interval:    interval,
		timeout:     timeout,
		logger:      logger.With(zap.String("component", "scheduler")),
	}
}

func (s *DeriveScheduler) Start(ctx context.Context) error {
	s.scheduler.Start(ctx)
	deriveJob := job.NewFunctionJob(func(ctx context.Context) (string, error) {
		return s.Tick(ctx)
	})
	return s.scheduler.ScheduleJob(quartz.NewJobDetail(deriveJob, quartz.NewJobKey(DERIVE_JOB_KEY)),
		quartz.NewSimpleTrigger(s.interval))
}

// Tick requests a single derive run and waits for its outcome.
func (s *DeriveScheduler) Tick(ctx context.Context) (string, error) {
	runId := uuid.NewString()
	res, err := s.rootContext.RequestFuture(s.target, domain.DeriveRequest{RunId: runId}, s.timeout).Result()
	if err != nil {
		s.logger.Warn("scheduler@tick no response", zap.String("run", runId), zap.Error(err))
		return runId, err
	}
	run, ok := res.(domain.DeriveResponse)
	if !ok {
		return runId, errors.New("unexpected derive response")
	}
	if run.HasResponseError() {
		s.logger.Debug("scheduler@tick run failed", zap.String("run", runId), zap.Error(run.GetResponseError()))
		return runId, run.GetResponseError()
	}
	s.logger.Debug("scheduler@tick run done", zap.String("run", runId), zap.Int("devices", run.Devices))
	return runId, nil
}

func (s *DeriveScheduler) Stop(ctx context.Context) {
	s.scheduler.Stop()
	s.scheduler.Wait(ctx)
}
