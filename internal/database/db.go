package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"
)

// Dialect names the SQL flavour behind a *sql.DB.  Queries are written
// with ? placeholders, which both drivers accept; the dialect only
// changes row locking and DDL.
type Dialect string

const (
	MySQL  Dialect = "mysql"
	SQLite Dialect = "sqlite3"
)

// ForUpdate returns the row lock suffix for a SELECT.  SQLite has no row
// locks: connections are opened with _txlock=immediate so every
// transaction takes the write lock at BEGIN, which serialises writers
// just as strictly.
func (d Dialect) ForUpdate() string {
	if d == MySQL {
		return " FOR UPDATE"
	}
	return ""
}

// Options describes how to reach the ledger database.
type Options struct {
	Driver          string // "mysql" or "sqlite"
	User            string
	Pass            string
	Host            string
	Port            string
	Name            string
	SQLitePath      string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Open connects to the configured driver and verifies the connection.
func Open(opts Options) (*sql.DB, Dialect, error) {
	switch opts.Driver {
	case "", "mysql":
		db, err := OpenMySQL(opts)
		return db, MySQL, err
	case "sqlite", "sqlite3":
		db, err := OpenSQLite(opts.SQLitePath)
		return db, SQLite, err
	}
	return nil, "", fmt.Errorf("unknown database driver %q", opts.Driver)
}

// OpenMySQL connects to MySQL and verifies the connection.
func OpenMySQL(opts Options) (*sql.DB, error) {
	auth := opts.User
	if opts.Pass != "" {
		auth = fmt.Sprintf("%s:%s", opts.User, opts.Pass)
	}
	// parseTime=true -> DATETIME -> time.Time | loc=UTC keeps times consistent
	dsn := fmt.Sprintf("%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=true&loc=UTC",
		auth, opts.Host, opts.Port, opts.Name)

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}

	// Pool settings
	db.SetMaxOpenConns(orDefault(opts.MaxOpenConns, 25))
	db.SetMaxIdleConns(orDefault(opts.MaxIdleConns, 25))
	if opts.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(opts.ConnMaxLifetime)
	} else {
		db.SetConnMaxLifetime(30 * time.Minute)
	}

	if err := ping(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// OpenSQLite opens a file backed SQLite ledger.  Every transaction is
// BEGIN IMMEDIATE and waits up to five seconds for the write lock.
func OpenSQLite(path string) (*sql.DB, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite path is empty")
	}
	dsn := fmt.Sprintf("file:%s?_txlock=immediate&_busy_timeout=5000&_foreign_keys=on&_journal_mode=WAL", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(8)
	if err := ping(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func ping(db *sql.DB) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return db.PingContext(ctx)
}

func orDefault(n, def int) int {
	if n > 0 {
		return n
	}
	return def
}
