package handler

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
)

// HealthHandler reports whether the ledger answers.  Redis is optional
// and only reported.
type HealthHandler struct {
	db  *sql.DB
	rdb *redis.Client
}

func NewHealthHandler(db *sql.DB, rdb *redis.Client) *HealthHandler {
	return &HealthHandler{db: db, rdb: rdb}
}

// Healthz handles GET /healthz: 200 when the database pings, 503 otherwise.
func (h *HealthHandler) Healthz(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	body := echo.Map{"status": "ok", "database": "ok", "redis": "disabled"}
	status := http.StatusOK
	if err := h.db.PingContext(ctx); err != nil {
		body["status"], body["database"] = "unavailable", "down"
		status = http.StatusServiceUnavailable
	}
	if h.rdb != nil {
		body["redis"] = "ok"
		if err := h.rdb.Ping(ctx).Err(); err != nil {
			body["redis"] = "down"
		}
	}
	return c.JSON(status, body)
}
