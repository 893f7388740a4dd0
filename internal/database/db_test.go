package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_UnknownDriver(t *testing.T) {
	_, _, err := Open(Options{Driver: "oracle"})
	assert.Error(t, err)
}

func TestDialect_ForUpdate(t *testing.T) {
	assert.Equal(t, " FOR UPDATE", MySQL.ForUpdate())
	assert.Equal(t, "", SQLite.ForUpdate())
}

func TestMigrate_SQLite(t *testing.T) {
	ctx := context.Background()
	db, d, err := Open(Options{Driver: "sqlite", SQLitePath: filepath.Join(t.TempDir(), "ledger.db")})
	require.NoError(t, err)
	defer db.Close()
	require.Equal(t, SQLite, d)

	require.NoError(t, Migrate(ctx, db, d))
	require.NoError(t, Migrate(ctx, db, d), "second run must be a no-op")

	now := time.Now().UTC()
	_, err = db.ExecContext(ctx, `INSERT INTO zones (restaurant_id, name, tables_6, created_at) VALUES (1, 'Serre', 2, ?)`, now)
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, `INSERT INTO slots (restaurant_id, zone_id, event_name, slot_date, start_time, created_at) VALUES (1, 1, 'Kerst', '2030-12-24', '19:00', ?)`, now)
	require.NoError(t, err)

	insert := `INSERT INTO bookings (restaurant_id, slot_id, guest_count, table_type, customer_name, status, idempotency_key, created_at)
		VALUES (?, 1, 2, 2, 'Jansen', 'confirmed', ?, ?)`

	// tokenless bookings never collide
	_, err = db.ExecContext(ctx, insert, 1, nil, now)
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, insert, 1, nil, now)
	require.NoError(t, err)

	_, err = db.ExecContext(ctx, insert, 1, "tok-1", now)
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, insert, 1, "tok-1", now)
	assert.Error(t, err)

	// the same token under another restaurant is a different key
	_, err = db.ExecContext(ctx, insert, 2, "tok-1", now)
	assert.NoError(t, err)
}
