package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Build kinds recorded in graph_builds
const (
	BuildNetwork   = "network"
	BuildCorridor  = "corridor"
	BuildHubs      = "hubs"
	BuildTransfers = "transfers"
)

// Build is one recorded offline rebuild
type Build struct {
	ID      string
	Kind    string
	BuiltAt time.Time
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// recordBuild inserts a graph_builds row using the caller's transaction so
// the generation only moves when the rebuild commits
func recordBuild(ctx context.Context, ex execer, kind string) (string, error) {
	buildID := uuid.New().String()
	_, err := ex.ExecContext(ctx,
		"INSERT INTO graph_builds (build_id, kind, built_at) VALUES (?, ?, ?)",
		buildID, kind, time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return "", fmt.Errorf("failed to record %s build: %w", kind, err)
	}
	return buildID, nil
}

// RecordBuild records a rebuild that was not done inside one transaction
// (the transfer edge job commits edge by edge)
func (db *DB) RecordBuild(ctx context.Context, kind string) (string, error) {
	db.LockWrite()
	defer db.UnlockWrite()
	return recordBuild(ctx, db.conn, kind)
}

// LatestBuild returns the newest rebuild of any kind, or nil when the
// database has never been built
func (db *DB) LatestBuild(ctx context.Context) (*Build, error) {
	var b Build
	var builtAt string
	err := db.conn.QueryRowContext(ctx,
		"SELECT build_id, kind, built_at FROM graph_builds ORDER BY seq DESC LIMIT 1",
	).Scan(&b.ID, &b.Kind, &builtAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read latest build: %w", err)
	}
	if t, err := time.Parse(time.RFC3339Nano, builtAt); err == nil {
		b.BuiltAt = t
	}
	return &b, nil
}

// Generation returns the id of the newest build, or "" before the first
func (db *DB) Generation(ctx context.Context) (string, error) {
	b, err := db.LatestBuild(ctx)
	if err != nil || b == nil {
		return "", err
	}
	return b.ID, nil
}
