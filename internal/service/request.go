package service

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/iliyamo/table-reservation/internal/model"
)

// BookingRequest is the input of BookingEngine.Create.  The JSON tags are
// the wire names of POST /book and are also the field names reported in
// validation errors.
type BookingRequest struct {
	SlotID         uint64  `json:"slot_id" validate:"required"`
	TableType      *int    `json:"table_type,omitempty" validate:"omitempty,oneof=2 4 6"`
	GuestCount     int     `json:"guest_count" validate:"min=1,max=50"`
	CustomerName   string  `json:"customer_name" validate:"required,max=120"`
	CustomerEmail  *string `json:"customer_email,omitempty" validate:"omitempty,max=254,email"`
	CustomerPhone  *string `json:"customer_phone,omitempty" validate:"omitempty,max=32"`
	Remarks        *string `json:"remarks,omitempty" validate:"omitempty,max=500"`
	IdempotencyKey *string `json:"idempotency_key,omitempty" validate:"omitempty,max=128"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Normalize trims text fields and turns blank optional fields into nil.
func (r *BookingRequest) Normalize() {
	r.CustomerName = strings.TrimSpace(r.CustomerName)
	r.CustomerEmail = trimOptional(r.CustomerEmail)
	r.CustomerPhone = trimOptional(r.CustomerPhone)
	r.Remarks = trimOptional(r.Remarks)
	r.IdempotencyKey = trimOptional(r.IdempotencyKey)
}

func trimOptional(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

// Validate checks every field constraint and returns the first violation
// as a *ValidationError.  Parties below the large group size must name a
// table type that seats them; for larger parties the table type is
// ignored.
func (r *BookingRequest) Validate() error {
	if err := validate.Struct(r); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fieldError(verrs[0])
		}
		return &ValidationError{Field: "body", Message: err.Error()}
	}
	if !model.IsLargeGroup(r.GuestCount) {
		if r.TableType == nil {
			return &ValidationError{Field: "table_type", Message: "is required for parties of 1 to 6"}
		}
		if *r.TableType < r.GuestCount {
			return &ValidationError{
				Field:   "table_type",
				Message: fmt.Sprintf("a %d-top cannot seat %d guests", *r.TableType, r.GuestCount),
			}
		}
	}
	return nil
}

func fieldError(fe validator.FieldError) *ValidationError {
	var msg string
	switch fe.Tag() {
	case "required":
		msg = "is required"
	case "min":
		msg = "must be at least " + fe.Param()
	case "max":
		if fe.Kind() == reflect.String {
			msg = "must be at most " + fe.Param() + " characters"
		} else {
			msg = "must be at most " + fe.Param()
		}
	case "oneof":
		msg = "must be one of " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "email":
		msg = "must be a valid email address"
	default:
		msg = "is invalid"
	}
	return &ValidationError{Field: fe.Field(), Message: msg}
}
