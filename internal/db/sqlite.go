// Package db persists the network, the station/cell graph, hubs and
// walking transfers in a single SQLite file.
package db

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"log"
	"net/url"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// pragmas are applied by the driver to every new connection
var pragmas = []string{
	"journal_mode(WAL)",
	"busy_timeout(5000)",
	"synchronous(NORMAL)",
	"cache_size(10000)",
	"temp_store(MEMORY)",
}

// DB is the graph store. All writes go through writeMu and a single pooled
// connection, so a rebuild transaction never shares the file with another
// writer from this process.
type DB struct {
	conn    *sql.DB
	writeMu sync.Mutex
}

func dsn(path string) string {
	q := url.Values{}
	for _, p := range pragmas {
		q.Add("_pragma", p)
	}
	return path + "?" + q.Encode()
}

// Connect opens the database file, creating it if needed
func Connect(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(time.Hour)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	log.Printf("Connected to SQLite database: %s", dbPath)
	return &DB{conn: conn}, nil
}

// Open connects and ensures the schema, which is what every command does
// first
func Open(ctx context.Context, dbPath string) (*DB, error) {
	d, err := Connect(dbPath)
	if err != nil {
		return nil, err
	}
	if err := d.EnsureSchema(ctx); err != nil {
		d.Close()
		return nil, err
	}
	return d, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// Conn exposes the pool for health checks
func (db *DB) Conn() *sql.DB {
	return db.conn
}

// LockWrite acquires the write mutex. Must be paired with UnlockWrite.
func (db *DB) LockWrite() {
	db.writeMu.Lock()
}

// UnlockWrite releases the write mutex
func (db *DB) UnlockWrite() {
	db.writeMu.Unlock()
}

// inTx runs fn inside one write transaction and commits when it returns
// nil. Any error rolls the whole transaction back.
func (db *DB) inTx(ctx context.Context, what string, fn func(tx *sql.Tx) error) error {
	db.LockWrite()
	defer db.UnlockWrite()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin %s transaction: %w", what, err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit %s: %w", what, err)
	}
	return nil
}

// EnsureSchema creates missing tables from the embedded schema.sql
func (db *DB) EnsureSchema(ctx context.Context) error {
	return db.inTx(ctx, "schema", func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
		return nil
	})
}
