package database

import (
	"context"
	"database/sql"
	"fmt"
)

var mysqlSchema = []string{
	`CREATE TABLE IF NOT EXISTS zones (
		id            BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		restaurant_id BIGINT UNSIGNED NOT NULL,
		name          VARCHAR(120)    NOT NULL,
		tables_2      INT UNSIGNED    NOT NULL DEFAULT 0,
		tables_4      INT UNSIGNED    NOT NULL DEFAULT 0,
		tables_6      INT UNSIGNED    NOT NULL DEFAULT 0,
		max_couverts  INT UNSIGNED    NULL,
		created_at    DATETIME        NOT NULL,
		KEY idx_zones_restaurant (restaurant_id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS slots (
		id               BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		restaurant_id    BIGINT UNSIGNED NOT NULL,
		zone_id          BIGINT UNSIGNED NOT NULL,
		event_name       VARCHAR(160)    NOT NULL,
		slot_date        VARCHAR(10)     NOT NULL,
		start_time       VARCHAR(8)      NOT NULL,
		booked_2         INT UNSIGNED    NOT NULL DEFAULT 0,
		booked_4         INT UNSIGNED    NOT NULL DEFAULT 0,
		booked_6         INT UNSIGNED    NOT NULL DEFAULT 0,
		current_couverts INT UNSIGNED    NOT NULL DEFAULT 0,
		created_at       DATETIME        NOT NULL,
		KEY idx_slots_restaurant (restaurant_id),
		CONSTRAINT fk_slots_zone FOREIGN KEY (zone_id) REFERENCES zones(id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS bookings (
		id              BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		restaurant_id   BIGINT UNSIGNED NOT NULL,
		slot_id         BIGINT UNSIGNED NOT NULL,
		guest_count     INT UNSIGNED    NOT NULL,
		table_type      TINYINT UNSIGNED NULL,
		allocation_json JSON            NULL,
		customer_name   VARCHAR(120)    NOT NULL,
		customer_email  VARCHAR(254)    NULL,
		customer_phone  VARCHAR(32)     NULL,
		remarks         VARCHAR(500)    NULL,
		status          ENUM('confirmed','cancelled') NOT NULL,
		idempotency_key VARCHAR(128)    NULL,
		created_at      DATETIME        NOT NULL,
		cancelled_at    DATETIME        NULL,
		UNIQUE KEY uq_bookings_idempotency (restaurant_id, idempotency_key),
		KEY idx_bookings_slot_status (slot_id, status),
		CONSTRAINT fk_bookings_slot FOREIGN KEY (slot_id) REFERENCES slots(id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS zones (
		id            INTEGER PRIMARY KEY AUTOINCREMENT,
		restaurant_id INTEGER NOT NULL,
		name          TEXT    NOT NULL,
		tables_2      INTEGER NOT NULL DEFAULT 0,
		tables_4      INTEGER NOT NULL DEFAULT 0,
		tables_6      INTEGER NOT NULL DEFAULT 0,
		max_couverts  INTEGER NULL,
		created_at    DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS slots (
		id               INTEGER PRIMARY KEY AUTOINCREMENT,
		restaurant_id    INTEGER NOT NULL,
		zone_id          INTEGER NOT NULL REFERENCES zones(id),
		event_name       TEXT    NOT NULL,
		slot_date        TEXT    NOT NULL,
		start_time       TEXT    NOT NULL,
		booked_2         INTEGER NOT NULL DEFAULT 0,
		booked_4         INTEGER NOT NULL DEFAULT 0,
		booked_6         INTEGER NOT NULL DEFAULT 0,
		current_couverts INTEGER NOT NULL DEFAULT 0,
		created_at       DATETIME NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_slots_restaurant ON slots (restaurant_id)`,
	`CREATE TABLE IF NOT EXISTS bookings (
		id              INTEGER PRIMARY KEY AUTOINCREMENT,
		restaurant_id   INTEGER NOT NULL,
		slot_id         INTEGER NOT NULL REFERENCES slots(id),
		guest_count     INTEGER NOT NULL,
		table_type      INTEGER NULL,
		allocation_json TEXT    NULL,
		customer_name   TEXT    NOT NULL,
		customer_email  TEXT    NULL,
		customer_phone  TEXT    NULL,
		remarks         TEXT    NULL,
		status          TEXT    NOT NULL CHECK (status IN ('confirmed','cancelled')),
		idempotency_key TEXT    NULL,
		created_at      DATETIME NOT NULL,
		cancelled_at    DATETIME NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_bookings_idempotency
		ON bookings (restaurant_id, idempotency_key) WHERE idempotency_key IS NOT NULL`,
	`CREATE INDEX IF NOT EXISTS idx_bookings_slot_status ON bookings (slot_id, status)`,
}

// Migrate creates the ledger tables when they do not exist yet.  It is
// safe to run on every start.
func Migrate(ctx context.Context, db *sql.DB, d Dialect) error {
	stmts := mysqlSchema
	if d == SQLite {
		stmts = sqliteSchema
	}
	for _, s := range stmts {
		if _, err := db.ExecContext(ctx, s); err != nil {
			return fmt.Errorf("migrate %s: %w", d, err)
		}
	}
	return nil
}
