package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/table-reservation/internal/allocator"
	"github.com/iliyamo/table-reservation/internal/middleware"
	"github.com/iliyamo/table-reservation/internal/model"
	"github.com/iliyamo/table-reservation/internal/service"
)

// BookingHandler serves booking creation, lookup and cancellation.
type BookingHandler struct {
	engine *service.BookingEngine
	log    *slog.Logger
}

// NewBookingHandler panics when engine is nil.
func NewBookingHandler(engine *service.BookingEngine, log *slog.Logger) *BookingHandler {
	if engine == nil {
		panic("nil engine passed to NewBookingHandler")
	}
	return &BookingHandler{engine: engine, log: log}
}

// bookingResponse is the JSON shape of a booking.  A replayed POST /book
// answers with the stored booking, whatever the retry carried.
type bookingResponse struct {
	BookingID      uint64               `json:"booking_id"`
	Replayed       bool                 `json:"replayed"`
	SlotID         uint64               `json:"slot_id"`
	GuestCount     int                  `json:"guest_count"`
	TableType      *int                 `json:"table_type,omitempty"`
	Tables         allocator.Allocation `json:"tables,omitempty"`
	CustomerName   string               `json:"customer_name"`
	CustomerEmail  *string              `json:"customer_email,omitempty"`
	CustomerPhone  *string              `json:"customer_phone,omitempty"`
	Remarks        *string              `json:"remarks,omitempty"`
	IdempotencyKey *string              `json:"idempotency_key,omitempty"`
	Status         string               `json:"status,omitempty"`
	CreatedAt      *time.Time           `json:"created_at,omitempty"`
	CancelledAt    *time.Time           `json:"cancelled_at,omitempty"`
}

func fromBooking(b *model.Booking) bookingResponse {
	created := b.CreatedAt
	return bookingResponse{
		BookingID:      b.ID,
		SlotID:         b.SlotID,
		GuestCount:     b.GuestCount,
		TableType:      b.TableType,
		Tables:         b.TableUsage(),
		CustomerName:   b.CustomerName,
		CustomerEmail:  b.CustomerEmail,
		CustomerPhone:  b.CustomerPhone,
		Remarks:        b.Remarks,
		IdempotencyKey: b.IdempotencyKey,
		Status:         b.Status,
		CreatedAt:      &created,
		CancelledAt:    b.CancelledAt,
	}
}

// Book handles POST /book.  A new booking answers 201, a replayed
// idempotency key 200 with the original booking id.
func (h *BookingHandler) Book(c echo.Context) error {
	const op = "handler.BookingHandler.Book"

	var req service.BookingRequest
	if err := c.Bind(&req); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			return c.JSON(http.StatusUnprocessableEntity, echo.Map{
				"error": "must be of type " + typeErr.Type.String(),
				"field": typeErr.Field,
			})
		}
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}

	res, err := h.engine.Create(c.Request().Context(), req)
	if err != nil {
		return fail(c, h.log, op, err, "slot not found")
	}

	var resp bookingResponse
	if res.Booking != nil {
		resp = fromBooking(res.Booking)
	} else {
		resp = bookingResponse{BookingID: res.BookingID}
	}
	resp.Replayed = res.Replayed

	if res.Replayed {
		h.log.Info("booking replayed",
			slog.String("request_id", requestID(c)),
			slog.Uint64("booking_id", res.BookingID),
		)
		return c.JSON(http.StatusOK, resp)
	}
	h.log.Info("booking created",
		slog.String("request_id", requestID(c)),
		slog.Uint64("booking_id", res.BookingID),
		slog.Uint64("slot_id", resp.SlotID),
		slog.Int("guests", resp.GuestCount),
	)
	return c.JSON(http.StatusCreated, resp)
}

// Get handles GET /bookings/:id for the caller's restaurant.
func (h *BookingHandler) Get(c echo.Context) error {
	const op = "handler.BookingHandler.Get"

	restaurantID, ok := middleware.RestaurantID(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}

	b, err := h.engine.Booking(c.Request().Context(), restaurantID, id)
	if err != nil {
		return fail(c, h.log, op, err, "booking not found")
	}
	return c.JSON(http.StatusOK, fromBooking(b))
}

// Cancel handles POST /bookings/:id/cancel.  Cancelling twice answers 409.
func (h *BookingHandler) Cancel(c echo.Context) error {
	const op = "handler.BookingHandler.Cancel"

	restaurantID, ok := middleware.RestaurantID(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}

	b, err := h.engine.Cancel(c.Request().Context(), restaurantID, id)
	if err != nil {
		return fail(c, h.log, op, err, "booking not found")
	}
	h.log.Info("booking cancelled",
		slog.String("request_id", requestID(c)),
		slog.Uint64("booking_id", b.ID),
	)
	return c.JSON(http.StatusOK, fromBooking(b))
}
