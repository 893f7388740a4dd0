package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/table-reservation/internal/model"
)

// ZoneRepo provides access to the zones table.  Zones are written by the
// admin tooling; the booking engine only reads them.
type ZoneRepo struct {
	db *sql.DB
}

// NewZoneRepo returns a new ZoneRepo bound to the given database.
func NewZoneRepo(db *sql.DB) *ZoneRepo { return &ZoneRepo{db: db} }

// Create inserts a zone and fills in its ID and CreatedAt.
func (r *ZoneRepo) Create(ctx context.Context, z *model.Zone) error {
	const q = `INSERT INTO zones (restaurant_id, name, tables_2, tables_4, tables_6, max_couverts, created_at)
	           VALUES (?, ?, ?, ?, ?, ?, ?)`
	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx, q, z.RestaurantID, z.Name, z.Tables2, z.Tables4, z.Tables6, nullInt(z.MaxCouverts), now)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	z.ID = uint64(id)
	z.CreatedAt = now
	return nil
}

// GetByID returns a zone or ErrZoneNotFound.
func (r *ZoneRepo) GetByID(ctx context.Context, id uint64) (*model.Zone, error) {
	return r.get(ctx, r.db, id)
}

// GetByIDTx reads a zone inside tx without locking it, so bookings on
// different slots of the same zone do not serialise on the zone row.
func (r *ZoneRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Zone, error) {
	return r.get(ctx, tx, id)
}

func (r *ZoneRepo) get(ctx context.Context, q queryer, id uint64) (*model.Zone, error) {
	const sel = `SELECT id, restaurant_id, name, tables_2, tables_4, tables_6, max_couverts, created_at
	             FROM zones WHERE id = ?`
	var z model.Zone
	var maxCouverts sql.NullInt64
	err := q.QueryRowContext(ctx, sel, id).Scan(
		&z.ID, &z.RestaurantID, &z.Name, &z.Tables2, &z.Tables4, &z.Tables6, &maxCouverts, &z.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrZoneNotFound
	}
	if err != nil {
		return nil, err
	}
	z.MaxCouverts = intPtr(maxCouverts)
	return &z, nil
}

// UpdateCapacity changes the table inventory of a zone.  Slot counters
// are left alone; when capacity drops below what is already booked the
// slot simply has no availability until cancellations bring it back.
func (r *ZoneRepo) UpdateCapacity(ctx context.Context, restaurantID, id uint64, tables2, tables4, tables6 int, maxCouverts *int) error {
	const q = `UPDATE zones SET tables_2 = ?, tables_4 = ?, tables_6 = ?, max_couverts = ?
	           WHERE id = ? AND restaurant_id = ?`
	res, err := r.db.ExecContext(ctx, q, tables2, tables4, tables6, nullInt(maxCouverts), id, restaurantID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// MySQL reports zero affected rows when nothing changed.
		var one int
		err := r.db.QueryRowContext(ctx, `SELECT 1 FROM zones WHERE id = ? AND restaurant_id = ?`, id, restaurantID).Scan(&one)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrZoneNotFound
		}
		return err
	}
	return nil
}

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

func nullInt(p *int) interface{} {
	if p == nil {
		return nil
	}
	return int64(*p)
}

func nullString(p *string) interface{} {
	if p == nil {
		return nil
	}
	return *p
}

func intPtr(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}

func stringPtr(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}
