package model

import (
	"time"

	"github.com/iliyamo/table-reservation/internal/allocator"
)

// Booking statuses.  A booking is created confirmed and may move to
// cancelled exactly once; it is never deleted.
const (
	BookingConfirmed = "confirmed"
	BookingCancelled = "cancelled"
)

// Party size limits.  Parties of LargeGroupMin guests or more are seated
// through the table allocator instead of a single size class.
const (
	MinGuests     = 1
	MaxGuests     = 50
	LargeGroupMin = 7
)

// Booking records one party's claim on a slot.
//
// Fields:
//
//	ID             – primary key identifier.
//	RestaurantID   – tenant, copied from the slot.
//	SlotID         – slot being booked.
//	GuestCount     – party size.
//	TableType      – size class for parties below LargeGroupMin (nil otherwise).
//	Allocation     – tables assigned to a large group (nil otherwise).
//	CustomerName   – name the booking is under.
//	CustomerEmail  – optional email address.
//	CustomerPhone  – optional phone number.
//	Remarks        – optional free text.
//	Status         – confirmed or cancelled.
//	IdempotencyKey – optional client token, unique per restaurant.
//	CreatedAt      – creation timestamp.
//	CancelledAt    – cancellation timestamp (nil while confirmed).
type Booking struct {
	ID             uint64               // bookings.id
	RestaurantID   uint64               // bookings.restaurant_id
	SlotID         uint64               // bookings.slot_id
	GuestCount     int                  // bookings.guest_count
	TableType      *int                 // bookings.table_type (nullable)
	Allocation     allocator.Allocation // bookings.allocation_json (nullable)
	CustomerName   string               // bookings.customer_name
	CustomerEmail  *string              // bookings.customer_email (nullable)
	CustomerPhone  *string              // bookings.customer_phone (nullable)
	Remarks        *string              // bookings.remarks (nullable)
	Status         string               // bookings.status
	IdempotencyKey *string              // bookings.idempotency_key (nullable)
	CreatedAt      time.Time            // bookings.created_at
	CancelledAt    *time.Time           // bookings.cancelled_at (nullable)
}

// IsLargeGroup reports whether the party size is handled by the table
// allocator.
func IsLargeGroup(guests int) bool { return guests >= LargeGroupMin }

// TableUsage returns the tables this booking holds, whichever way it was
// seated.  Counters are incremented and decremented by exactly this
// amount.
func (b Booking) TableUsage() allocator.Allocation {
	if len(b.Allocation) > 0 {
		return b.Allocation
	}
	if b.TableType != nil {
		return allocator.Allocation{{Seats: *b.TableType, Count: 1}}
	}
	return nil
}
