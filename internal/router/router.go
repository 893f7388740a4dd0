package router // package router wires handlers and middleware onto echo

import (
	"log/slog"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/table-reservation/internal/config"
	"github.com/iliyamo/table-reservation/internal/handler"
	"github.com/iliyamo/table-reservation/internal/middleware"
)

// Handlers groups everything RegisterRoutes mounts.
type Handlers struct {
	Health    *handler.HealthHandler
	Bookings  *handler.BookingHandler
	Slots     *handler.SlotHandler
	Reconcile *handler.ReconcileHandler
	Zones     *handler.ZoneHandler
}

// New returns an echo instance with the common middleware installed:
// panic recovery, a uuid request id on every response and request
// logging.
func New(log *slog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(middleware.Logger(log))
	e.Use(echomw.Recover())
	return e
}

// RegisterRoutes mounts the API.  rdb may be nil; rate limiting then runs
// in process and availability reads are not cached.
//
//	GET  /healthz                  public
//	GET  /slots/:id                public, response cache
//	POST /book                     public, token bucket
//	GET  /bookings/:id             STAFF, OPERATOR
//	POST /bookings/:id/cancel      STAFF, OPERATOR
//	GET  /reconcile                OPERATOR
//	PUT  /zones/:id/capacity       OPERATOR
func RegisterRoutes(e *echo.Echo, h Handlers, cfg config.Config, rdb *redis.Client, log *slog.Logger) {
	e.GET("/healthz", h.Health.Healthz)
	e.GET("/slots/:id", h.Slots.Availability, middleware.NewRedisCache(cfg.Cache, rdb, log))
	e.POST("/book", h.Bookings.Book, middleware.NewTokenBucket(cfg.RateLimit, rdb, log))

	bookings := e.Group("/bookings", middleware.JWTAuth(cfg.JWTSecret), middleware.RequireRole(middleware.RoleStaff, middleware.RoleOperator))
	bookings.GET("/:id", h.Bookings.Get)
	bookings.POST("/:id/cancel", h.Bookings.Cancel)

	operator := []echo.MiddlewareFunc{middleware.JWTAuth(cfg.JWTSecret), middleware.RequireRole(middleware.RoleOperator)}
	e.GET("/reconcile", h.Reconcile.Reconcile, operator...)
	e.PUT("/zones/:id/capacity", h.Zones.UpdateCapacity, operator...)
}
