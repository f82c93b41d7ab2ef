package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/berfenger/devstate2mqtt/internal/config"
	coreactor "github.com/berfenger/devstate2mqtt/internal/core/actor"
	"github.com/berfenger/devstate2mqtt/internal/core/domain"
	"github.com/berfenger/devstate2mqtt/internal/core/service"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

type nameBody struct {
	Name    string `json:"name"`
	Channel string `json:"channel"`
}

type durationBody struct {
	Value *float64 `json:"value"`
}

type phaseBody struct {
	Phase       int                            `json:"phase"`
	Values      map[domain.EmeterField]float64 `json:"values"`
	PowerFactor float64                        `json:"power_factor"`
}

type runBody struct {
	RunId   string `json:"run_id"`
	Devices int    `json:"devices"`
	Values  int    `json:"values"`
	Error   string `json:"error,omitempty"`
}

type errorBody struct {
	Error string `json:"error"`
}

func (s *Server) RegisterRoutes() http.Handler {
	e := echo.New()
	e.HideBanner = true
	if s.httpLog {
		e.Use(middleware.Logger())
	}
	e.Use(middleware.Recover())

	e.GET("/healthcheck", s.HealthCheckHandler)

	e.POST("/derive", s.DeriveHandler)
	e.GET("/derive/last", s.LastRunHandler)
	e.GET("/meter", s.MeterReadingHandler)

	dev := e.Group("/devices/:id", s.withDevice)
	dev.GET("/light", s.LightHandler)
	dev.GET("/light/rgbw", s.RGBWHandler)
	dev.GET("/light/hsv", s.HSVHandler)
	dev.GET("/light/hue", s.HueColorsHandler)
	dev.GET("/emeter", s.EmeterHandler)
	dev.GET("/ext", s.ExtSensorsHandler)
	dev.GET("/favorite/:key", s.FavoriteHandler)
	dev.PUT("/duration/:key", s.DurationHandler)
	dev.PUT("/name", s.NameHandler)

	return e
}

func (s *Server) HealthCheckHandler(c echo.Context) error {
	res, err := s.rootContext.RequestFuture(s.masterActor, domain.ActorHealthRequest{}, 10*time.Second).Result()
	if err != nil {
		return c.String(http.StatusServiceUnavailable, "health_check: FAIL")
	}
	if response, ok := res.(domain.ActorHealthResponse); ok && response.Healthy {
		return c.String(http.StatusOK, "health_check: OK")
	}
	return c.String(http.StatusServiceUnavailable, "health_check: FAIL")
}

func (s *Server) DeriveHandler(c echo.Context) error {
	run, err := ask[domain.DeriveResponse](s, domain.DeriveRequest{RunId: uuid.NewString()})
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, toRunBody(run))
}

func (s *Server) LastRunHandler(c echo.Context) error {
	resp, err := ask[coreactor.GetLastRunResponse](s, coreactor.GetLastRunRequest{})
	if err != nil {
		return s.fail(c, err)
	}
	run := resp.Run
	if run == nil {
		return c.NoContent(http.StatusNoContent)
	}
	return c.JSON(http.StatusOK, toRunBody(*run))
}

func toRunBody(run domain.DeriveResponse) runBody {
	body := runBody{RunId: run.RunId, Devices: run.Devices, Values: run.Values}
	if run.HasResponseError() {
		body.Error = run.GetResponseError().Error()
	}
	return body
}

func (s *Server) MeterReadingHandler(c echo.Context) error {
	reading, err := ask[domain.GetMeterReadingResponse](s, domain.GetMeterReadingRequest{})
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, reading.Reading)
}

// withDevice resolves the device bridge once per request.
func (s *Server) withDevice(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		resp, err := ask[coreactor.GetDeviceBridgeResponse](s, coreactor.GetDeviceBridgeRequest{DeviceId: c.Param("id")})
		if err != nil {
			return s.fail(c, err)
		}
		if resp.Bridge == nil {
			return c.JSON(http.StatusNotFound, errorBody{Error: domain.ErrUnknownDevice.Error()})
		}
		c.Set("bridge", resp.Bridge)
		c.Set("device", resp.Device)
		return next(c)
	}
}

func bridgeOf(c echo.Context) (*service.StateBridge, config.DeviceConfig) {
	return c.Get("bridge").(*service.StateBridge), c.Get("device").(config.DeviceConfig)
}

func (s *Server) LightHandler(c echo.Context) error {
	bridge, device := bridgeOf(c)
	ctx, cancel := requestContext(c)
	defer cancel()
	switch device.Kind {
	case config.DEVICE_KIND_RGBW:
		bundle, err := bridge.AssembleColorBundle(ctx)
		if err != nil {
			return s.fail(c, err)
		}
		return c.JSON(http.StatusOK, bundle)
	case config.DEVICE_KIND_WHITE:
		bundle, err := bridge.AssembleWhiteBundle(ctx)
		if err != nil {
			return s.fail(c, err)
		}
		return c.JSON(http.StatusOK, bundle)
	}
	return c.JSON(http.StatusNotFound, errorBody{Error: "device is not a light"})
}

func (s *Server) RGBWHandler(c echo.Context) error {
	bridge, _ := bridgeOf(c)
	ctx, cancel := requestContext(c)
	defer cancel()
	rgbw, err := bridge.ReadRGBW(ctx)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"rgbw": rgbw})
}

func (s *Server) HSVHandler(c echo.Context) error {
	bridge, _ := bridgeOf(c)
	ctx, cancel := requestContext(c)
	defer cancel()
	hsv, err := bridge.ReadHSV(ctx)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, hsv)
}

func (s *Server) HueColorsHandler(c echo.Context) error {
	bridge, _ := bridgeOf(c)
	ctx, cancel := requestContext(c)
	defer cancel()
	rgb, err := bridge.ColorsFromHue(ctx)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, rgb)
}

func (s *Server) EmeterHandler(c echo.Context) error {
	bridge, _ := bridgeOf(c)
	ctx, cancel := requestContext(c)
	defer cancel()
	phases, err := bridge.ReadPhases(ctx)
	if err != nil {
		return s.fail(c, err)
	}
	body := make([]phaseBody, 0, len(phases))
	for _, p := range phases {
		pf, err := bridge.PowerFactor(ctx, p.Phase)
		if err != nil {
			return s.fail(c, err)
		}
		body = append(body, phaseBody{Phase: p.Phase, Values: p.Values, PowerFactor: pf})
	}
	return c.JSON(http.StatusOK, body)
}

func (s *Server) ExtSensorsHandler(c echo.Context) error {
	bridge, device := bridgeOf(c)
	ctx, cancel := requestContext(c)
	defer cancel()
	readings, err := bridge.ReadExtSensors(ctx, device.ExtSensors)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, readings)
}

func (s *Server) FavoriteHandler(c echo.Context) error {
	bridge, _ := bridgeOf(c)
	ctx, cancel := requestContext(c)
	defer cancel()
	pos, ok := bridge.ReadFavoritePosition(ctx, c.Param("key"))
	if !ok {
		return c.NoContent(http.StatusNoContent)
	}
	return c.JSON(http.StatusOK, map[string]float64{"position": pos})
}

func (s *Server) DurationHandler(c echo.Context) error {
	var body durationBody
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody{Error: err.Error()})
	}
	req := domain.SetDurationRequest{
		DeviceCommandRequestMixIn: domain.DeviceCommandRequestMixIn{DeviceId: c.Param("id")},
		Key:                       c.Param("key"),
		Value:                     body.Value,
	}
	resp, err := ask[domain.SetDurationResponse](s, req)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, map[string]float64{"previous": resp.Previous})
}

func (s *Server) NameHandler(c echo.Context) error {
	var body nameBody
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody{Error: err.Error()})
	}
	req := domain.SyncNameRequest{
		DeviceCommandRequestMixIn: domain.DeviceCommandRequestMixIn{DeviceId: c.Param("id")},
		Channel:                   body.Channel,
		Name:                      body.Name,
	}
	resp, err := ask[domain.SyncNameResponse](s, req)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"name": resp.Name})
}

func (s *Server) fail(c echo.Context, err error) error {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrMissingChannelData):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrUnknownDevice), errors.Is(err, coreactor.ErrNoMeter):
		status = http.StatusNotFound
	case errors.Is(err, coreactor.ErrDeriveInProgress):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrStoreFault):
		status = http.StatusBadGateway
	}
	s.logger.Warn("http request failed", zap.String("path", c.Path()), zap.Int("status", status), zap.Error(err))
	return c.JSON(status, errorBody{Error: err.Error()})
}
