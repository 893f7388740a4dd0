package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/table-reservation/internal/middleware"
	"github.com/iliyamo/table-reservation/internal/repository"
)

// ZoneHandler lets operators edit a zone's table inventory while
// bookings are running against it.
type ZoneHandler struct {
	zones    *repository.ZoneRepo
	validate *validator.Validate
	log      *slog.Logger
}

func NewZoneHandler(zones *repository.ZoneRepo, log *slog.Logger) *ZoneHandler {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
	})
	return &ZoneHandler{zones: zones, validate: v, log: log}
}

type zoneCapacityRequest struct {
	Tables2     *int `json:"tables_2" validate:"required,min=0,max=500"`
	Tables4     *int `json:"tables_4" validate:"required,min=0,max=500"`
	Tables6     *int `json:"tables_6" validate:"required,min=0,max=500"`
	MaxCouverts *int `json:"max_couverts" validate:"omitempty,min=0"`
}

// UpdateCapacity handles PUT /zones/:id/capacity.  Existing bookings are
// kept even when the new inventory is smaller; the slot then shows no
// availability for that class until cancellations free it.
func (h *ZoneHandler) UpdateCapacity(c echo.Context) error {
	const op = "handler.ZoneHandler.UpdateCapacity"

	restaurantID, ok := middleware.RestaurantID(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid zone id"})
	}
	var body zoneCapacityRequest
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := h.validate.Struct(body); err != nil {
		var ve validator.ValidationErrors
		if errors.As(err, &ve) && len(ve) > 0 {
			return c.JSON(http.StatusUnprocessableEntity, echo.Map{
				"error": capacityMessage(ve[0]),
				"field": ve[0].Field(),
			})
		}
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}

	err := h.zones.UpdateCapacity(c.Request().Context(), restaurantID, id,
		*body.Tables2, *body.Tables4, *body.Tables6, body.MaxCouverts)
	if errors.Is(err, repository.ErrZoneNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "zone not found"})
	}
	if err != nil {
		return fail(c, h.log, op, err, "zone not found")
	}
	h.log.Info("zone capacity updated",
		slog.String("request_id", requestID(c)),
		slog.Uint64("zone_id", id),
	)
	return c.JSON(http.StatusOK, echo.Map{
		"zone_id":      id,
		"tables_2":     *body.Tables2,
		"tables_4":     *body.Tables4,
		"tables_6":     *body.Tables6,
		"max_couverts": body.MaxCouverts,
	})
}

func capacityMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	}
	return "is invalid"
}
