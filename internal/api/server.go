package api

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

type ServerOptions struct {
	// MaxUpload is an echo BodyLimit size such as "32M".
	MaxUpload string
	CORS      bool
	// RateLimit is requests per second per client IP; 0 disables it.
	RateLimit float64
	RateBurst int
}

// NewServer builds the echo instance with middleware and routes.
func NewServer(h *Handler, log *zap.Logger, opt ServerOptions) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.JSONSerializer = JSONSerializer{}

	if opt.CORS {
		e.Use(middleware.CORS())
	}
	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
			}
			if v.Error != nil {
				fields = append(fields, zap.Error(v.Error))
				log.Warn("request", fields...)
				return nil
			}
			log.Info("request", fields...)
			return nil
		},
	}))
	if opt.RateLimit > 0 {
		e.Use(middleware.RateLimiter(middleware.NewRateLimiterMemoryStoreWithConfig(
			middleware.RateLimiterMemoryStoreConfig{Rate: rate.Limit(opt.RateLimit), Burst: opt.RateBurst},
		)))
	}
	if opt.MaxUpload != "" {
		e.Use(middleware.BodyLimit(opt.MaxUpload))
	}

	h.RegisterRoutes(e)
	return e
}
