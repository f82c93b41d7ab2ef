package actorutil

import (
	"context"
	"errors"
	"time"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/primetalk/goio/io"
)

var ErrNilTaskResult = errors.New("result is nil")

// SafeBackgroundTask runs blocking work (store or Modbus I/O) off the actor
// goroutine and delivers exactly one message back: the result, or the
// recovered value when the work fails, panics or times out.
type SafeBackgroundTask[T any] struct {
	ctx     actor.Context
	fn      func(context.Context) (*T, error)
	timeout *time.Duration
	recover func(error) T
}

func NewBackgroundTask[T any](ctx actor.Context, fn func() (*T, error)) *SafeBackgroundTask[T] {
	return NewBackgroundTaskCtx(ctx, func(context.Context) (*T, error) {
		return fn()
	})
}

// NewBackgroundTaskCtx hands fn a context that is cancelled once the task timeout expires.
func NewBackgroundTaskCtx[T any](ctx actor.Context, fn func(context.Context) (*T, error)) *SafeBackgroundTask[T] {
	return &SafeBackgroundTask[T]{
		ctx: ctx,
		fn:  fn,
	}
}

func (t *SafeBackgroundTask[T]) WithTimeout(timeout time.Duration) *SafeBackgroundTask[T] {
	t.timeout = &timeout
	return t
}

func (t *SafeBackgroundTask[T]) Recover(fn func(error) T) *SafeBackgroundTask[T] {
	t.recover = fn
	return t
}

// PipeTo starts the task and sends its outcome to pid. Without Recover, failures are dropped.
func (t *SafeBackgroundTask[T]) PipeTo(pid *actor.PID) {
	root := t.ctx.ActorSystem().Root
	go func() {
		if value, ok := t.run(); ok {
			root.Send(pid, value)
		}
	}()
}

func (t *SafeBackgroundTask[T]) run() (T, bool) {
	runCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	bgFn := io.Eval(func() (*T, error) {
		return t.fn(runCtx)
	})
	bg := io.FlatMap(bgFn, func(a *T) io.IO[T] {
		if a == nil {
			return io.Fail[T](ErrNilTaskResult)
		}
		return io.Lift(*a)
	})
	if t.timeout != nil {
		bg = io.WithTimeout[T](*t.timeout)(bg)
	}
	result := io.RunSync(bg)
	if result.Error != nil {
		if t.recover == nil {
			var zero T
			return zero, false
		}
		return t.recover(result.Error), true
	}
	return result.Value, true
}

func MapBackgroundTask[T, T2 any](bgt *SafeBackgroundTask[T], mapFn func(*T) *T2) *SafeBackgroundTask[T2] {
	newFn := func(ctx context.Context) (*T2, error) {
		r, err := bgt.fn(ctx)
		if err != nil {
			return nil, err
		}
		return mapFn(r), nil
	}
	return &SafeBackgroundTask[T2]{
		ctx:     bgt.ctx,
		fn:      newFn,
		timeout: bgt.timeout,
	}
}
