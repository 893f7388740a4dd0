package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/table-reservation/internal/allocator"
	"github.com/iliyamo/table-reservation/internal/database"
	"github.com/iliyamo/table-reservation/internal/model"
)

// BookingRepo provides access to the bookings table, the append-only
// ledger the slot counters are derived from.  Rows are never deleted.
type BookingRepo struct {
	db      *sql.DB
	dialect database.Dialect
}

// NewBookingRepo returns a new BookingRepo bound to the given database.
func NewBookingRepo(db *sql.DB, dialect database.Dialect) *BookingRepo {
	return &BookingRepo{db: db, dialect: dialect}
}

const bookingColumns = `id, restaurant_id, slot_id, guest_count, table_type, allocation_json,
	customer_name, customer_email, customer_phone, remarks, status, idempotency_key,
	created_at, cancelled_at`

func scanBooking(row interface{ Scan(...interface{}) error }) (*model.Booking, error) {
	var (
		b           model.Booking
		tableType   sql.NullInt64
		allocJSON   sql.NullString
		email       sql.NullString
		phone       sql.NullString
		remarks     sql.NullString
		idemKey     sql.NullString
		cancelledAt sql.NullTime
	)
	err := row.Scan(
		&b.ID, &b.RestaurantID, &b.SlotID, &b.GuestCount, &tableType, &allocJSON,
		&b.CustomerName, &email, &phone, &remarks, &b.Status, &idemKey,
		&b.CreatedAt, &cancelledAt,
	)
	if err != nil {
		return nil, err
	}
	b.TableType = intPtr(tableType)
	b.CustomerEmail = stringPtr(email)
	b.CustomerPhone = stringPtr(phone)
	b.Remarks = stringPtr(remarks)
	b.IdempotencyKey = stringPtr(idemKey)
	if cancelledAt.Valid {
		t := cancelledAt.Time
		b.CancelledAt = &t
	}
	if allocJSON.Valid && allocJSON.String != "" {
		var a allocator.Allocation
		if err := json.Unmarshal([]byte(allocJSON.String), &a); err != nil {
			return nil, fmt.Errorf("booking %d allocation: %w", b.ID, err)
		}
		b.Allocation = a
	}
	return &b, nil
}

// CreateTx inserts a confirmed booking within tx and fills in its ID,
// Status and CreatedAt.  A collision on (restaurant_id, idempotency_key)
// is reported as ErrDuplicateIdempotencyKey.
func (r *BookingRepo) CreateTx(ctx context.Context, tx *sql.Tx, b *model.Booking) error {
	const q = `INSERT INTO bookings (restaurant_id, slot_id, guest_count, table_type, allocation_json,
	               customer_name, customer_email, customer_phone, remarks, status, idempotency_key, created_at)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	var allocJSON interface{}
	if len(b.Allocation) > 0 {
		raw, err := json.Marshal(b.Allocation)
		if err != nil {
			return err
		}
		allocJSON = string(raw)
	}
	now := time.Now().UTC()
	res, err := tx.ExecContext(ctx, q,
		b.RestaurantID, b.SlotID, b.GuestCount, nullInt(b.TableType), allocJSON,
		b.CustomerName, nullString(b.CustomerEmail), nullString(b.CustomerPhone), nullString(b.Remarks),
		model.BookingConfirmed, nullString(b.IdempotencyKey), now,
	)
	if err != nil {
		if isDuplicateKey(err) {
			return ErrDuplicateIdempotencyKey
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)
	b.Status = model.BookingConfirmed
	b.CreatedAt = now
	return nil
}

// GetByIdempotencyKey returns the booking a token maps to within a
// restaurant, or ErrBookingNotFound.
func (r *BookingRepo) GetByIdempotencyKey(ctx context.Context, restaurantID uint64, key string) (*model.Booking, error) {
	q := `SELECT ` + bookingColumns + ` FROM bookings WHERE restaurant_id = ? AND idempotency_key = ?`
	b, err := scanBooking(r.db.QueryRowContext(ctx, q, restaurantID, key))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBookingNotFound
	}
	return b, err
}

// GetByIDForRestaurant returns a booking only when it belongs to the
// restaurant.  A booking of another restaurant is reported exactly like a
// missing one.
func (r *BookingRepo) GetByIDForRestaurant(ctx context.Context, restaurantID, id uint64) (*model.Booking, error) {
	q := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = ? AND restaurant_id = ?`
	b, err := scanBooking(r.db.QueryRowContext(ctx, q, id, restaurantID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBookingNotFound
	}
	return b, err
}

// LockForRestaurantTx locks a booking row of the restaurant for the rest
// of tx.
func (r *BookingRepo) LockForRestaurantTx(ctx context.Context, tx *sql.Tx, restaurantID, id uint64) (*model.Booking, error) {
	q := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = ? AND restaurant_id = ?` + r.dialect.ForUpdate()
	b, err := scanBooking(tx.QueryRowContext(ctx, q, id, restaurantID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBookingNotFound
	}
	return b, err
}

// MarkCancelledTx moves a confirmed booking to cancelled.  ErrConflict is
// returned when the booking was not confirmed any more.
func (r *BookingRepo) MarkCancelledTx(ctx context.Context, tx *sql.Tx, id uint64, at time.Time) error {
	const q = `UPDATE bookings SET status = ?, cancelled_at = ? WHERE id = ? AND status = ?`
	res, err := tx.ExecContext(ctx, q, model.BookingCancelled, at.UTC(), id, model.BookingConfirmed)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrConflict
	}
	return nil
}

// ConfirmedUsageBySlot folds every confirmed booking of a restaurant into
// a per-slot tally.  Slots without confirmed bookings are absent from the
// map.
func (r *BookingRepo) ConfirmedUsageBySlot(ctx context.Context, restaurantID uint64) (map[uint64]model.Usage, error) {
	const q = `SELECT slot_id, guest_count, table_type, allocation_json
	           FROM bookings WHERE restaurant_id = ? AND status = ?`
	rows, err := r.db.QueryContext(ctx, q, restaurantID, model.BookingConfirmed)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[uint64]model.Usage{}
	for rows.Next() {
		var (
			b         model.Booking
			tableType sql.NullInt64
			allocJSON sql.NullString
		)
		if err := rows.Scan(&b.SlotID, &b.GuestCount, &tableType, &allocJSON); err != nil {
			return nil, err
		}
		b.TableType = intPtr(tableType)
		if allocJSON.Valid && allocJSON.String != "" {
			if err := json.Unmarshal([]byte(allocJSON.String), &b.Allocation); err != nil {
				return nil, fmt.Errorf("slot %d allocation: %w", b.SlotID, err)
			}
		}
		u := out[b.SlotID]
		u.AddBooking(b)
		out[b.SlotID] = u
	}
	return out, rows.Err()
}
