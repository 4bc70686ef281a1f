package db

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	"github.com/paulmach/orb/encoding/wkt"

	"github.com/thigam/Nishukishe-Back-End-sub001/internal/models"
)

// TransferEdgeKeys returns every stored ordered (from, to) pair. The transfer
// job seeds its skip set from this in continue mode.
func (db *DB) TransferEdgeKeys(ctx context.Context) (map[models.EdgeKey]struct{}, error) {
	rows, err := db.conn.QueryContext(ctx, "SELECT from_stop_id, to_stop_id FROM transfer_edges")
	if err != nil {
		return nil, fmt.Errorf("failed to query transfer edges: %w", err)
	}
	defer rows.Close()

	out := make(map[models.EdgeKey]struct{})
	for rows.Next() {
		var k models.EdgeKey
		if err := rows.Scan(&k.From, &k.To); err != nil {
			return nil, fmt.Errorf("failed to scan transfer edge: %w", err)
		}
		out[k] = struct{}{}
	}
	return out, rows.Err()
}

// InsertTransferEdge commits a single edge on its own. It reports false when
// the ordered pair already existed.
func (db *DB) InsertTransferEdge(ctx context.Context, e models.TransferEdge) (bool, error) {
	db.LockWrite()
	defer db.UnlockWrite()

	var geom *string
	if len(e.Geometry) > 0 {
		g := wkt.MarshalString(e.Geometry)
		geom = &g
	}

	res, err := db.conn.ExecContext(ctx, `
		INSERT OR IGNORE INTO transfer_edges (from_stop_id, to_stop_id, walk_time_seconds, geometry_wkt, phase)
		VALUES (?, ?, ?, ?, ?)
	`, string(e.From), string(e.To), e.WalkSeconds, geom, e.Phase)
	if err != nil {
		return false, fmt.Errorf("failed to insert transfer edge %s->%s: %w", e.From, e.To, err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// ClearTransferEdges removes every edge, used when a run starts from scratch
func (db *DB) ClearTransferEdges(ctx context.Context) (int64, error) {
	db.LockWrite()
	defer db.UnlockWrite()

	res, err := db.conn.ExecContext(ctx, "DELETE FROM transfer_edges")
	if err != nil {
		return 0, fmt.Errorf("failed to clear transfer edges: %w", err)
	}
	n, _ := res.RowsAffected()
	if n > 0 {
		log.Printf("Transfers: cleared %d existing edges", n)
	}
	return n, nil
}

// HasTransferEdge reports whether a walking edge exists for the ordered pair
func (db *DB) HasTransferEdge(ctx context.Context, from, to models.StopID) (bool, error) {
	var one int
	err := db.conn.QueryRowContext(ctx,
		"SELECT 1 FROM transfer_edges WHERE from_stop_id = ? AND to_stop_id = ?",
		string(from), string(to),
	).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to look up transfer edge: %w", err)
	}
	return true, nil
}

// GetTransferEdge returns the stored edge for the ordered pair, or nil
func (db *DB) GetTransferEdge(ctx context.Context, from, to models.StopID) (*models.TransferEdge, error) {
	e := models.TransferEdge{From: from, To: to}
	var geom sql.NullString
	err := db.conn.QueryRowContext(ctx, `
		SELECT walk_time_seconds, geometry_wkt, phase FROM transfer_edges
		WHERE from_stop_id = ? AND to_stop_id = ?
	`, string(from), string(to)).Scan(&e.WalkSeconds, &geom, &e.Phase)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read transfer edge: %w", err)
	}
	if geom.Valid && geom.String != "" {
		ls, err := wkt.UnmarshalLineString(geom.String)
		if err != nil {
			log.Printf("Warning: bad geometry on transfer edge %s->%s: %v", from, to, err)
		} else {
			e.Geometry = ls
		}
	}
	return &e, nil
}

// TransferDegree counts outgoing walking edges per stop
func (db *DB) TransferDegree(ctx context.Context) (map[models.StopID]int, error) {
	rows, err := db.conn.QueryContext(ctx,
		"SELECT from_stop_id, COUNT(*) FROM transfer_edges GROUP BY from_stop_id")
	if err != nil {
		return nil, fmt.Errorf("failed to query transfer degree: %w", err)
	}
	defer rows.Close()

	out := make(map[models.StopID]int)
	for rows.Next() {
		var id models.StopID
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			return nil, fmt.Errorf("failed to scan transfer degree: %w", err)
		}
		out[id] = n
	}
	return out, rows.Err()
}

// CountTransferEdges returns the number of edges per phase
func (db *DB) CountTransferEdges(ctx context.Context) (map[int]int, error) {
	rows, err := db.conn.QueryContext(ctx,
		"SELECT phase, COUNT(*) FROM transfer_edges GROUP BY phase ORDER BY phase")
	if err != nil {
		return nil, fmt.Errorf("failed to count transfer edges: %w", err)
	}
	defer rows.Close()

	out := make(map[int]int)
	for rows.Next() {
		var phase, n int
		if err := rows.Scan(&phase, &n); err != nil {
			return nil, fmt.Errorf("failed to scan transfer edge count: %w", err)
		}
		out[phase] = n
	}
	return out, rows.Err()
}
