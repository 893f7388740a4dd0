package handler

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/table-reservation/internal/service"
)

// SlotHandler serves the public availability read.
type SlotHandler struct {
	engine *service.BookingEngine
	log    *slog.Logger
}

func NewSlotHandler(engine *service.BookingEngine, log *slog.Logger) *SlotHandler {
	return &SlotHandler{engine: engine, log: log}
}

// Availability handles GET /slots/:id.
func (h *SlotHandler) Availability(c echo.Context) error {
	const op = "handler.SlotHandler.Availability"

	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid slot id"})
	}
	a, err := h.engine.Availability(c.Request().Context(), id)
	if err != nil {
		return fail(c, h.log, op, err, "slot not found")
	}
	return c.JSON(http.StatusOK, a)
}
