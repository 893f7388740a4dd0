// Package repository holds the SQL access for zones, slots and bookings.
// The sentinel errors below let the booking engine tell "row missing"
// and "guard rejected the write" apart from driver failures.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
	"github.com/mattn/go-sqlite3"
)

// ErrConflict is returned when an update is refused because the row is no
// longer in the state the caller expected, such as cancelling a booking
// that is already cancelled.
var ErrConflict = errors.New("conflict")

var (
	ErrZoneNotFound    = errors.New("zone not found")
	ErrSlotNotFound    = errors.New("slot not found")
	ErrBookingNotFound = errors.New("booking not found")

	// ErrDuplicateIdempotencyKey means another booking already owns the
	// (restaurant_id, idempotency_key) pair.
	ErrDuplicateIdempotencyKey = errors.New("duplicate idempotency key")

	// ErrCapacityGuard means the guarded counter increment matched no row:
	// at least one size class (or the couverts ceiling) had no room left.
	ErrCapacityGuard = errors.New("capacity guard rejected update")
)

// isDuplicateKey reports whether err is a unique constraint violation on
// either supported driver.
func isDuplicateKey(err error) bool {
	var me *mysql.MySQLError
	if errors.As(err, &me) && me.Number == 1062 {
		return true
	}
	var se sqlite3.Error
	if errors.As(err, &se) && se.ExtendedCode == sqlite3.ErrConstraintUnique {
		return true
	}
	return false
}
