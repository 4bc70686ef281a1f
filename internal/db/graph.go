package db

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"

	"github.com/thigam/Nishukishe-Back-End-sub001/internal/graph"
	"github.com/thigam/Nishukishe-Back-End-sub001/internal/models"
)

var graphTables = []string{
	"stations",
	"station_members",
	"cells",
	"cell_neighbors",
	"cell_portals",
	"cell_edge_summaries",
}

// ReplaceGraph rewrites every station and cell graph table in a single
// transaction and returns the new build id. Readers never observe a half
// written graph.
func (db *DB) ReplaceGraph(ctx context.Context, res *graph.Result) (string, error) {
	var buildID string
	err := db.inTx(ctx, "graph", func(tx *sql.Tx) error {
		for _, table := range graphTables {
			if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
				return fmt.Errorf("failed to clear %s: %w", table, err)
			}
		}

		stationStmt, err := tx.PrepareContext(ctx, `
			INSERT INTO stations (station_id, lat, lng, l1_cell, l0_cell, route_degree)
			VALUES (?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare station insert: %w", err)
		}
		defer stationStmt.Close()

		memberStmt, err := tx.PrepareContext(ctx,
			"INSERT INTO station_members (stop_id, station_id) VALUES (?, ?)")
		if err != nil {
			return fmt.Errorf("failed to prepare member insert: %w", err)
		}
		defer memberStmt.Close()

		for _, st := range res.Stations {
			if _, err := stationStmt.ExecContext(ctx,
				string(st.ID), st.Lat, st.Lng, string(st.L1Cell), string(st.L0Cell), st.RouteDegree,
			); err != nil {
				return fmt.Errorf("failed to insert station %s: %w", st.ID, err)
			}
			for _, m := range st.Members {
				if _, err := memberStmt.ExecContext(ctx, string(m), string(st.ID)); err != nil {
					return fmt.Errorf("failed to insert member %s: %w", m, err)
				}
			}
		}

		cellStmt, err := tx.PrepareContext(ctx,
			"INSERT INTO cells (level, cell_id, lat, lng, l0_parent) VALUES (?, ?, ?, ?, ?)")
		if err != nil {
			return fmt.Errorf("failed to prepare cell insert: %w", err)
		}
		defer cellStmt.Close()

		neighborStmt, err := tx.PrepareContext(ctx,
			"INSERT INTO cell_neighbors (level, cell_id, neighbor_id) VALUES (?, ?, ?)")
		if err != nil {
			return fmt.Errorf("failed to prepare neighbour insert: %w", err)
		}
		defer neighborStmt.Close()

		for _, c := range res.Cells {
			var parent *string
			if c.L0Parent != "" {
				p := string(c.L0Parent)
				parent = &p
			}
			if _, err := cellStmt.ExecContext(ctx, int(c.Level), string(c.ID), c.Lat, c.Lng, parent); err != nil {
				return fmt.Errorf("failed to insert cell %s: %w", c.ID, err)
			}
			for _, n := range c.Neighbors {
				if _, err := neighborStmt.ExecContext(ctx, int(c.Level), string(c.ID), string(n)); err != nil {
					return fmt.Errorf("failed to insert neighbour %s-%s: %w", c.ID, n, err)
				}
			}
		}

		portalStmt, err := tx.PrepareContext(ctx,
			"INSERT INTO cell_portals (level, cell_id, station_id, score, rank) VALUES (?, ?, ?, ?, ?)")
		if err != nil {
			return fmt.Errorf("failed to prepare portal insert: %w", err)
		}
		defer portalStmt.Close()

		for _, p := range res.Portals {
			if _, err := portalStmt.ExecContext(ctx,
				int(p.Level), string(p.Cell), string(p.Station), p.Score, p.Rank,
			); err != nil {
				return fmt.Errorf("failed to insert portal %s/%s: %w", p.Cell, p.Station, err)
			}
		}

		summaryStmt, err := tx.PrepareContext(ctx, `
			INSERT INTO cell_edge_summaries (level, from_cell, to_cell, from_station, to_station, minutes, rank)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare summary insert: %w", err)
		}
		defer summaryStmt.Close()

		for _, s := range res.Summaries {
			if _, err := summaryStmt.ExecContext(ctx,
				int(s.Level), string(s.FromCell), string(s.ToCell),
				string(s.FromStation), string(s.ToStation), s.Minutes, s.Rank,
			); err != nil {
				return fmt.Errorf("failed to insert summary %s->%s: %w", s.FromCell, s.ToCell, err)
			}
		}

		id, err := recordBuild(ctx, tx, BuildCorridor)
		if err != nil {
			return err
		}
		buildID = id
		return nil
	})
	if err != nil {
		return "", err
	}

	log.Printf("Graph: stored %d stations, %d cells, %d portals, %d summaries (build %s)",
		len(res.Stations), len(res.Cells), len(res.Portals), len(res.Summaries), buildID)
	return buildID, nil
}

// LoadStations returns every station with its members, ordered by id
func (db *DB) LoadStations(ctx context.Context) ([]models.Station, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT station_id, lat, lng, l1_cell, l0_cell, route_degree
		FROM stations ORDER BY station_id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query stations: %w", err)
	}

	var stations []models.Station
	index := make(map[models.StationID]int)
	for rows.Next() {
		var st models.Station
		if err := rows.Scan(&st.ID, &st.Lat, &st.Lng, &st.L1Cell, &st.L0Cell, &st.RouteDegree); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan station: %w", err)
		}
		index[st.ID] = len(stations)
		stations = append(stations, st)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// The pool has a single connection, so the first cursor must be closed
	// before the second query.
	members, err := db.conn.QueryContext(ctx,
		"SELECT stop_id, station_id FROM station_members ORDER BY station_id, stop_id")
	if err != nil {
		return nil, fmt.Errorf("failed to query station members: %w", err)
	}
	defer members.Close()

	for members.Next() {
		var stop models.StopID
		var station models.StationID
		if err := members.Scan(&stop, &station); err != nil {
			return nil, fmt.Errorf("failed to scan station member: %w", err)
		}
		if i, ok := index[station]; ok {
			stations[i].Members = append(stations[i].Members, stop)
		}
	}
	return stations, members.Err()
}

// LoadCells returns the cells at a level with their neighbour lists
func (db *DB) LoadCells(ctx context.Context, level models.Level) ([]models.Cell, error) {
	rows, err := db.conn.QueryContext(ctx,
		"SELECT cell_id, lat, lng, COALESCE(l0_parent, '') FROM cells WHERE level = ? ORDER BY cell_id",
		int(level))
	if err != nil {
		return nil, fmt.Errorf("failed to query cells: %w", err)
	}

	var cells []models.Cell
	index := make(map[models.CellID]int)
	for rows.Next() {
		c := models.Cell{Level: level}
		if err := rows.Scan(&c.ID, &c.Lat, &c.Lng, &c.L0Parent); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan cell: %w", err)
		}
		index[c.ID] = len(cells)
		cells = append(cells, c)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	nbRows, err := db.conn.QueryContext(ctx,
		"SELECT cell_id, neighbor_id FROM cell_neighbors WHERE level = ? ORDER BY cell_id, neighbor_id",
		int(level))
	if err != nil {
		return nil, fmt.Errorf("failed to query cell neighbours: %w", err)
	}
	defer nbRows.Close()

	for nbRows.Next() {
		var id, nb models.CellID
		if err := nbRows.Scan(&id, &nb); err != nil {
			return nil, fmt.Errorf("failed to scan cell neighbour: %w", err)
		}
		if i, ok := index[id]; ok {
			cells[i].Neighbors = append(cells[i].Neighbors, nb)
		}
	}
	return cells, nbRows.Err()
}

// LoadPortals returns the portals at a level keyed by cell, rank ascending
func (db *DB) LoadPortals(ctx context.Context, level models.Level) (map[models.CellID][]models.Portal, error) {
	rows, err := db.conn.QueryContext(ctx,
		"SELECT cell_id, station_id, score, rank FROM cell_portals WHERE level = ? ORDER BY cell_id, rank",
		int(level))
	if err != nil {
		return nil, fmt.Errorf("failed to query portals: %w", err)
	}
	defer rows.Close()

	out := make(map[models.CellID][]models.Portal)
	for rows.Next() {
		p := models.Portal{Level: level}
		if err := rows.Scan(&p.Cell, &p.Station, &p.Score, &p.Rank); err != nil {
			return nil, fmt.Errorf("failed to scan portal: %w", err)
		}
		out[p.Cell] = append(out[p.Cell], p)
	}
	return out, rows.Err()
}

// LoadEdgeSummaries returns the summaries at a level, ordered by pair then
// rank
func (db *DB) LoadEdgeSummaries(ctx context.Context, level models.Level) ([]models.EdgeSummary, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT from_cell, to_cell, from_station, to_station, minutes, rank
		FROM cell_edge_summaries WHERE level = ?
		ORDER BY from_cell, to_cell, rank
	`, int(level))
	if err != nil {
		return nil, fmt.Errorf("failed to query edge summaries: %w", err)
	}
	defer rows.Close()

	var out []models.EdgeSummary
	for rows.Next() {
		s := models.EdgeSummary{Level: level}
		if err := rows.Scan(&s.FromCell, &s.ToCell, &s.FromStation, &s.ToStation, &s.Minutes, &s.Rank); err != nil {
			return nil, fmt.Errorf("failed to scan edge summary: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// StationsForStops maps each stop with a station to its station id
func (db *DB) StationsForStops(ctx context.Context) (map[models.StopID]models.StationID, error) {
	rows, err := db.conn.QueryContext(ctx, "SELECT stop_id, station_id FROM station_members")
	if err != nil {
		return nil, fmt.Errorf("failed to query station members: %w", err)
	}
	defer rows.Close()

	out := make(map[models.StopID]models.StationID)
	for rows.Next() {
		var stop models.StopID
		var station models.StationID
		if err := rows.Scan(&stop, &station); err != nil {
			return nil, fmt.Errorf("failed to scan station member: %w", err)
		}
		out[stop] = station
	}
	return out, rows.Err()
}

// memberChunk keeps IN lists well under SQLite's bound variable limit
const memberChunk = 500

// MembersOf returns the member stops of the given stations
func (db *DB) MembersOf(ctx context.Context, stations []models.StationID) (map[models.StationID][]models.StopID, error) {
	out := make(map[models.StationID][]models.StopID, len(stations))
	for start := 0; start < len(stations); start += memberChunk {
		end := start + memberChunk
		if end > len(stations) {
			end = len(stations)
		}
		chunk := stations[start:end]

		args := make([]any, len(chunk))
		for i, id := range chunk {
			args[i] = string(id)
		}
		query := "SELECT stop_id, station_id FROM station_members WHERE station_id IN (?" +
			strings.Repeat(",?", len(chunk)-1) + ") ORDER BY station_id, stop_id"

		rows, err := db.conn.QueryContext(ctx, query, args...)
		if err != nil {
			return nil, fmt.Errorf("failed to query station members: %w", err)
		}
		for rows.Next() {
			var stop models.StopID
			var station models.StationID
			if err := rows.Scan(&stop, &station); err != nil {
				rows.Close()
				return nil, fmt.Errorf("failed to scan station member: %w", err)
			}
			out[station] = append(out[station], stop)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return nil, err
		}
	}
	return out, nil
}
