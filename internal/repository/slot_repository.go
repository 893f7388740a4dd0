package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/iliyamo/table-reservation/internal/database"
	"github.com/iliyamo/table-reservation/internal/model"
)

// SlotRepo provides access to the slots table and owns every statement
// that touches the capacity counters.  Counter writes only happen inside
// a transaction that already holds the slot lock, except for the repair
// pass which is explicitly unlocked.
type SlotRepo struct {
	db      *sql.DB
	dialect database.Dialect
	zones   *ZoneRepo
}

// NewSlotRepo returns a new SlotRepo bound to the given database.
func NewSlotRepo(db *sql.DB, dialect database.Dialect) *SlotRepo {
	return &SlotRepo{db: db, dialect: dialect, zones: NewZoneRepo(db)}
}

const slotColumns = `id, restaurant_id, zone_id, event_name, slot_date, start_time,
	booked_2, booked_4, booked_6, current_couverts, created_at`

func scanSlot(row interface{ Scan(...interface{}) error }, s *model.Slot) error {
	return row.Scan(
		&s.ID, &s.RestaurantID, &s.ZoneID, &s.EventName, &s.SlotDate, &s.StartTime,
		&s.Booked2, &s.Booked4, &s.Booked6, &s.CurrentCouverts, &s.CreatedAt,
	)
}

// Create inserts a slot with all counters at zero.
func (r *SlotRepo) Create(ctx context.Context, s *model.Slot) error {
	const q = `INSERT INTO slots (restaurant_id, zone_id, event_name, slot_date, start_time,
	               booked_2, booked_4, booked_6, current_couverts, created_at)
	           VALUES (?, ?, ?, ?, ?, 0, 0, 0, 0, ?)`
	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx, q, s.RestaurantID, s.ZoneID, s.EventName, s.SlotDate, s.StartTime, now)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = uint64(id)
	s.Booked2, s.Booked4, s.Booked6, s.CurrentCouverts = 0, 0, 0, 0
	s.CreatedAt = now
	return nil
}

// GetWithZone loads a slot and its zone without locking.  Returns
// ErrSlotNotFound when the slot does not exist.
func (r *SlotRepo) GetWithZone(ctx context.Context, id uint64) (*model.SlotWithZone, error) {
	var out model.SlotWithZone
	err := scanSlot(r.db.QueryRowContext(ctx, `SELECT `+slotColumns+` FROM slots WHERE id = ?`, id), &out.Slot)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSlotNotFound
	}
	if err != nil {
		return nil, err
	}
	z, err := r.zones.GetByID(ctx, out.ZoneID)
	if err != nil {
		return nil, fmt.Errorf("zone of slot %d: %w", id, err)
	}
	out.Zone = *z
	return &out, nil
}

// LockWithZoneTx locks the slot row for the rest of tx and returns it with
// its zone.  The zone row is read but not locked.
func (r *SlotRepo) LockWithZoneTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.SlotWithZone, error) {
	var out model.SlotWithZone
	q := `SELECT ` + slotColumns + ` FROM slots WHERE id = ?` + r.dialect.ForUpdate()
	err := scanSlot(tx.QueryRowContext(ctx, q, id), &out.Slot)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSlotNotFound
	}
	if err != nil {
		return nil, err
	}
	z, err := r.zones.GetByIDTx(ctx, tx, out.ZoneID)
	if err != nil {
		return nil, fmt.Errorf("zone of slot %d: %w", id, err)
	}
	out.Zone = *z
	return &out, nil
}

// IncrementTx adds delta to the slot counters in one statement that
// re-checks every touched size class against the zone capacity, and the
// couverts total against maxCouverts when set.  Classes with a zero delta
// are neither updated nor guarded.  ErrCapacityGuard is returned when the
// guard matches no row; the caller must then roll back.
func (r *SlotRepo) IncrementTx(ctx context.Context, tx *sql.Tx, slotID uint64, delta model.Usage, zone model.Zone) error {
	var sets, guards []string
	var setArgs, guardArgs []interface{}
	for _, c := range []struct {
		col   string
		delta int
		cap   int
	}{
		{"booked_2", delta.Tables2, zone.Tables2},
		{"booked_4", delta.Tables4, zone.Tables4},
		{"booked_6", delta.Tables6, zone.Tables6},
	} {
		if c.delta <= 0 {
			continue
		}
		sets = append(sets, c.col+" = "+c.col+" + ?")
		setArgs = append(setArgs, c.delta)
		guards = append(guards, c.col+" + ? <= ?")
		guardArgs = append(guardArgs, c.delta, c.cap)
	}
	if len(sets) == 0 {
		return fmt.Errorf("increment slot %d: empty delta", slotID)
	}
	sets = append(sets, "current_couverts = current_couverts + ?")
	setArgs = append(setArgs, delta.Couverts)
	if zone.MaxCouverts != nil {
		guards = append(guards, "current_couverts + ? <= ?")
		guardArgs = append(guardArgs, delta.Couverts, *zone.MaxCouverts)
	}

	q := `UPDATE slots SET ` + strings.Join(sets, ", ") + ` WHERE id = ? AND ` + strings.Join(guards, " AND ")
	args := append(append(setArgs, slotID), guardArgs...)
	res, err := tx.ExecContext(ctx, q, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrCapacityGuard
	}
	return nil
}

// DecrementTx subtracts delta from the slot counters, flooring each one
// at zero.
func (r *SlotRepo) DecrementTx(ctx context.Context, tx *sql.Tx, slotID uint64, delta model.Usage) error {
	const q = `UPDATE slots SET
	    booked_2 = CASE WHEN booked_2 >= ? THEN booked_2 - ? ELSE 0 END,
	    booked_4 = CASE WHEN booked_4 >= ? THEN booked_4 - ? ELSE 0 END,
	    booked_6 = CASE WHEN booked_6 >= ? THEN booked_6 - ? ELSE 0 END,
	    current_couverts = CASE WHEN current_couverts >= ? THEN current_couverts - ? ELSE 0 END
	    WHERE id = ?`
	_, err := tx.ExecContext(ctx, q,
		delta.Tables2, delta.Tables2,
		delta.Tables4, delta.Tables4,
		delta.Tables6, delta.Tables6,
		delta.Couverts, delta.Couverts,
		slotID,
	)
	return err
}

// SetCounters overwrites the cached counters of a slot.  It runs outside
// any booking transaction and is used by the repair pass only.
func (r *SlotRepo) SetCounters(ctx context.Context, slotID uint64, u model.Usage) error {
	const q = `UPDATE slots SET booked_2 = ?, booked_4 = ?, booked_6 = ?, current_couverts = ? WHERE id = ?`
	_, err := r.db.ExecContext(ctx, q, u.Tables2, u.Tables4, u.Tables6, u.Couverts, slotID)
	return err
}

// ListByRestaurant returns every slot of a restaurant ordered by ID.
func (r *SlotRepo) ListByRestaurant(ctx context.Context, restaurantID uint64) ([]model.Slot, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+slotColumns+` FROM slots WHERE restaurant_id = ? ORDER BY id`, restaurantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Slot
	for rows.Next() {
		var s model.Slot
		if err := scanSlot(rows, &s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
