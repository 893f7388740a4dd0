package handler // HTTP handlers of the booking API

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/table-reservation/internal/lib/logger/sl"
	"github.com/iliyamo/table-reservation/internal/service"
)

// requestID returns the id the RequestID middleware put on the response.
func requestID(c echo.Context) string {
	return c.Response().Header().Get(echo.HeaderXRequestID)
}

// fail maps a service error onto its HTTP answer.  notFound is the message
// used for ErrNotFound.  Anything unclassified is logged and answered as
// an internal error carrying the request id.
func fail(c echo.Context, log *slog.Logger, op string, err error, notFound string) error {
	var ve *service.ValidationError
	switch {
	case errors.As(err, &ve):
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": ve.Message, "field": ve.Field})
	case errors.Is(err, service.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": notFound})
	case errors.Is(err, service.ErrCapacityExceeded):
		return c.JSON(http.StatusConflict, echo.Map{"error": "capacity exceeded"})
	case errors.Is(err, service.ErrAlreadyCancelled):
		return c.JSON(http.StatusConflict, echo.Map{"error": "booking already cancelled"})
	}

	rid := requestID(c)
	log.Error("request failed",
		slog.String("op", op),
		slog.String("request_id", rid),
		sl.Err(err),
	)
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error", "request_id": rid})
}

// parseID reads a positive numeric path parameter.
func parseID(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	return id, err == nil && id > 0
}

// unauthorized answers requests that reach a scoped handler without a
// restaurant scope.
func unauthorized(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
}
