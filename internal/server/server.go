package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/berfenger/devstate2mqtt/internal/config"
	"github.com/berfenger/devstate2mqtt/internal/core/domain"

	"github.com/asynkron/protoactor-go/actor"
	_ "github.com/joho/godotenv/autoload"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const requestTimeout = 5 * time.Second

// Server exposes the derived state of every device over HTTP. Derive runs and
// device commands go through the master actor, reads go to the device bridge.
type Server struct {
	port        uint
	httpLog     bool
	rootContext *actor.RootContext
	masterActor *actor.PID
	logger      *zap.Logger
}

func NewServer(cfg config.Config, rootContext *actor.RootContext, masterActor *actor.PID, logger *zap.Logger) *http.Server {
	srv := &Server{
		port:        cfg.Port,
		httpLog:     cfg.HttpLog,
		rootContext: rootContext,
		masterActor: masterActor,
		logger:      logger.With(zap.String("component", "http")),
	}

	return &http.Server{
		Addr:         fmt.Sprintf(":%d", srv.port),
		Handler:      srv.RegisterRoutes(),
		ErrorLog:     zap.NewStdLog(srv.logger),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
}

// ask sends msg to the master actor and waits for a T. A response carrying an
// error is returned along with that error.
func ask[T any](s *Server, msg any) (T, error) {
	var zero T
	res, err := s.rootContext.RequestFuture(s.masterActor, msg, requestTimeout).Result()
	if err != nil {
		return zero, err
	}
	resp, ok := res.(T)
	if !ok {
		return zero, fmt.Errorf("unexpected response %T", res)
	}
	if r, ok := res.(domain.ActorResponse); ok && r.HasResponseError() {
		return resp, r.GetResponseError()
	}
	return resp, nil
}

// requestContext bounds store reads made on behalf of c.
func requestContext(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), requestTimeout)
}
