package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"

	"github.com/thigam/Nishukishe-Back-End-sub001/internal/models"
)

const routeStopsVersion = 1

// routeStopsV1 is the stored form of a route's ordered stop sequence
type routeStopsV1 struct {
	V     int             `json:"v"`
	Stops []models.StopID `json:"stops"`
}

// EncodeRouteStops serializes a stop sequence in the versioned format
func EncodeRouteStops(stops []models.StopID) (string, error) {
	if stops == nil {
		stops = []models.StopID{}
	}
	b, err := json.Marshal(routeStopsV1{V: routeStopsVersion, Stops: stops})
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// DecodeRouteStops parses a stored stop sequence, rejecting unknown versions
func DecodeRouteStops(raw string) ([]models.StopID, error) {
	var v routeStopsV1
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return nil, fmt.Errorf("invalid route stop sequence: %w", err)
	}
	if v.V != routeStopsVersion {
		return nil, fmt.Errorf("unsupported route stop sequence version %d", v.V)
	}
	return v.Stops, nil
}

// ReplaceNetwork rewrites the stops and routes tables in one transaction
func (db *DB) ReplaceNetwork(ctx context.Context, stops []models.Stop, routes []models.Route) error {
	err := db.inTx(ctx, "network", func(tx *sql.Tx) error {
		for _, table := range []string{"stops", "routes"} {
			if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
				return fmt.Errorf("failed to clear %s: %w", table, err)
			}
		}

		stopStmt, err := tx.PrepareContext(ctx,
			"INSERT INTO stops (stop_id, stop_name, stop_lat, stop_lon) VALUES (?, ?, ?, ?)")
		if err != nil {
			return fmt.Errorf("failed to prepare stop insert: %w", err)
		}
		defer stopStmt.Close()

		for _, s := range stops {
			if _, err := stopStmt.ExecContext(ctx, string(s.ID), s.Name, s.Lat, s.Lng); err != nil {
				return fmt.Errorf("failed to insert stop %s: %w", s.ID, err)
			}
		}

		routeStmt, err := tx.PrepareContext(ctx,
			"INSERT INTO routes (sacco_route_id, route_name, stop_ids, trip_count) VALUES (?, ?, ?, ?)")
		if err != nil {
			return fmt.Errorf("failed to prepare route insert: %w", err)
		}
		defer routeStmt.Close()

		for _, r := range routes {
			seq, err := EncodeRouteStops(r.StopIDs)
			if err != nil {
				return fmt.Errorf("failed to encode route %s: %w", r.ID, err)
			}
			if _, err := routeStmt.ExecContext(ctx, string(r.ID), r.Name, seq, r.TripCount); err != nil {
				return fmt.Errorf("failed to insert route %s: %w", r.ID, err)
			}
		}

		_, err = recordBuild(ctx, tx, BuildNetwork)
		return err
	})
	if err != nil {
		return err
	}

	log.Printf("Network: stored %d stops, %d routes", len(stops), len(routes))
	return nil
}

// LoadStops returns every stop ordered by id
func (db *DB) LoadStops(ctx context.Context) ([]models.Stop, error) {
	rows, err := db.conn.QueryContext(ctx,
		"SELECT stop_id, stop_name, stop_lat, stop_lon FROM stops ORDER BY stop_id")
	if err != nil {
		return nil, fmt.Errorf("failed to query stops: %w", err)
	}
	defer rows.Close()

	var stops []models.Stop
	for rows.Next() {
		var s models.Stop
		if err := rows.Scan(&s.ID, &s.Name, &s.Lat, &s.Lng); err != nil {
			return nil, fmt.Errorf("failed to scan stop: %w", err)
		}
		stops = append(stops, s)
	}
	return stops, rows.Err()
}

// LoadRoutes returns every route ordered by id. Rows with an unreadable
// stop sequence are skipped and logged.
func (db *DB) LoadRoutes(ctx context.Context) ([]models.Route, error) {
	rows, err := db.conn.QueryContext(ctx,
		"SELECT sacco_route_id, route_name, stop_ids, trip_count FROM routes ORDER BY sacco_route_id")
	if err != nil {
		return nil, fmt.Errorf("failed to query routes: %w", err)
	}
	defer rows.Close()

	var routes []models.Route
	for rows.Next() {
		var r models.Route
		var raw string
		if err := rows.Scan(&r.ID, &r.Name, &raw, &r.TripCount); err != nil {
			return nil, fmt.Errorf("failed to scan route: %w", err)
		}
		stops, err := DecodeRouteStops(raw)
		if err != nil {
			log.Printf("Warning: skipping route %s: %v", r.ID, err)
			continue
		}
		r.StopIDs = stops
		routes = append(routes, r)
	}
	return routes, rows.Err()
}
