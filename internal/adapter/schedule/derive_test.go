package schedule

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/berfenger/devstate2mqtt/internal/core/domain"
	"github.com/berfenger/devstate2mqtt/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type runLog struct {
	mu   sync.Mutex
	runs []string
}

func (l *runLog) add(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.runs = append(l.runs, id)
}

func (l *runLog) snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string{}, l.runs...)
}

func deriveStub(log *runLog, fail error) *actor.Props {
	return actor.PropsFromFunc(func(ctx actor.Context) {
		if msg, ok := ctx.Message().(domain.DeriveRequest); ok {
			log.add(msg.RunId)
			ctx.Respond(domain.DeriveResponse{ActorResponseMixIn: domain.ErrorResponse(fail), RunId: msg.RunId, Devices: 1})
		}
	})
}

func TestDeriveSchedulerTick(t *testing.T) {

	assert := assert.New(t)
	require := require.New(t)

	logger := zap.Must(zap.NewDevelopment())
	as := actorutil.NewActorSystemWithZapLogger(logger)
	log := &runLog{}
	pid := as.Root.Spawn(deriveStub(log, nil))

	s := NewDeriveScheduler(as.Root, pid, 100*time.Millisecond, logger)
	first, err := s.Tick(context.Background())
	require.NoError(err)
	second, err := s.Tick(context.Background())
	require.NoError(err)

	assert.NotEqual(first, second)
	assert.Equal([]string{first, second}, log.snapshot())

	as.Root.Stop(pid)
	as.Shutdown()
}

func TestDeriveSchedulerTickError(t *testing.T) {

	assert := assert.New(t)

	logger := zap.Must(zap.NewDevelopment())
	as := actorutil.NewActorSystemWithZapLogger(logger)
	busy := errors.New("busy")
	pid := as.Root.Spawn(deriveStub(&runLog{}, busy))

	s := NewDeriveScheduler(as.Root, pid, 100*time.Millisecond, logger)
	_, err := s.Tick(context.Background())
	assert.ErrorIs(err, busy)

	as.Root.Stop(pid)
	as.Shutdown()
}

func TestDeriveSchedulerFires(t *testing.T) {

	assert := assert.New(t)
	require := require.New(t)

	logger := zap.Must(zap.NewDevelopment())
	as := actorutil.NewActorSystemWithZapLogger(logger)
	log := &runLog{}
	pid := as.Root.Spawn(deriveStub(log, nil))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s := NewDeriveScheduler(as.Root, pid, 50*time.Millisecond, logger)
	require.NoError(s.Start(ctx))

	assert.Eventually(func() bool {
		return len(log.snapshot()) >= 2
	}, 2*time.Second, 10*time.Millisecond)

	stopCtx, stopCancel := context.WithTimeout(context.Background(), time.Second)
	defer stopCancel()
	s.Stop(stopCtx)

	as.Root.Stop(pid)
	as.Shutdown()
}
