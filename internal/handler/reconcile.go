package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/table-reservation/internal/middleware"
	"github.com/iliyamo/table-reservation/internal/service"
)

// ReconcileHandler exposes the counter audit to operators.
type ReconcileHandler struct {
	rec *service.Reconciler
	log *slog.Logger
}

func NewReconcileHandler(rec *service.Reconciler, log *slog.Logger) *ReconcileHandler {
	return &ReconcileHandler{rec: rec, log: log}
}

// Reconcile handles GET /reconcile?repair=bool for the caller's
// restaurant.  repair defaults to false.
func (h *ReconcileHandler) Reconcile(c echo.Context) error {
	const op = "handler.ReconcileHandler.Reconcile"

	restaurantID, ok := middleware.RestaurantID(c)
	if !ok {
		return unauthorized(c)
	}
	repair := false
	if raw := c.QueryParam("repair"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": "must be a boolean", "field": "repair"})
		}
		repair = v
	}

	report, err := h.rec.Reconcile(c.Request().Context(), restaurantID, repair)
	if err != nil {
		return fail(c, h.log, op, err, "not found")
	}
	if report.Status != service.StatusOK {
		h.log.Warn("slot counters drifted",
			slog.String("request_id", requestID(c)),
			slog.Uint64("restaurant_id", restaurantID),
			slog.Int("mismatches", len(report.Mismatches)),
			slog.Int("repaired", report.Repaired),
		)
	}
	return c.JSON(http.StatusOK, report)
}
