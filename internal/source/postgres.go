// Package source reads the raw matatu network from the ingestion Postgres
// database.
package source

import (
	"context"
	"fmt"
	"log"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/thigam/Nishukishe-Back-End-sub001/internal/models"
)

// Postgres reads stops and sacco routes written by ingestion
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres connects to databaseURL and checks the connection
func NewPostgres(ctx context.Context, databaseURL string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Postgres{pool: pool}, nil
}

func (p *Postgres) Close() {
	p.pool.Close()
}

// LoadStops returns every stop, skipping rows without a usable coordinate
func (p *Postgres) LoadStops(ctx context.Context) ([]models.Stop, error) {
	query := `
		SELECT
			stop_id,
			COALESCE(stop_name, '') AS stop_name,
			stop_lat,
			stop_lon
		FROM stops
		WHERE stop_lat IS NOT NULL AND stop_lon IS NOT NULL
		ORDER BY stop_id
	`

	rows, err := p.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query stops: %w", err)
	}
	stops, err := pgx.CollectRows(rows, pgx.RowToStructByName[models.Stop])
	if err != nil {
		return nil, fmt.Errorf("failed to scan stops: %w", err)
	}

	valid := stops[:0]
	for _, s := range stops {
		if err := s.Validate(); err != nil {
			log.Printf("Source: skipping stop %q: %v", s.ID, err)
			continue
		}
		valid = append(valid, s)
	}
	return valid, nil
}

type routeRow struct {
	ID        string   `db:"sacco_route_id"`
	Name      string   `db:"route_name"`
	StopIDs   []string `db:"stop_ids"`
	TripCount int      `db:"trip_count"`
}

// LoadRoutes returns every sacco route variant with at least two stops.
// stop_ids may be a text[] or a jsonb array of strings.
func (p *Postgres) LoadRoutes(ctx context.Context) ([]models.Route, error) {
	query := `
		SELECT
			sacco_route_id,
			COALESCE(route_name, '') AS route_name,
			stop_ids,
			COALESCE(trip_count, 0) AS trip_count
		FROM sacco_routes
		ORDER BY sacco_route_id
	`

	rows, err := p.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query sacco routes: %w", err)
	}
	raw, err := pgx.CollectRows(rows, pgx.RowToStructByName[routeRow])
	if err != nil {
		return nil, fmt.Errorf("failed to scan sacco routes: %w", err)
	}

	routes := make([]models.Route, 0, len(raw))
	for _, r := range raw {
		route := models.Route{ID: models.RouteID(r.ID), Name: r.Name, TripCount: r.TripCount}
		for _, id := range r.StopIDs {
			route.StopIDs = append(route.StopIDs, models.StopID(id))
		}
		if err := route.Validate(); err != nil {
			log.Printf("Source: skipping route %q: %v", r.ID, err)
			continue
		}
		routes = append(routes, route)
	}
	return routes, nil
}
