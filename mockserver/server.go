// Package mockserver serves the deterministic mock backend over HTTP so
// front ends can be developed against the real wire contract without the
// NL-to-SQL service.
package mockserver

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/DachengChen/asksql/applog"
	"github.com/DachengChen/asksql/transport"
)

// New creates the echo server answering POST /api/chat with backend.
func New(backend transport.Transport) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			applog.L().Info("http request",
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
			)
			return nil
		},
	}))

	NewHandler(backend).RegisterRoutes(e)
	return e
}
