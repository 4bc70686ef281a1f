// Package planner answers journey queries online: a coarse cell corridor
// between two coordinates, a bounded round-based station search, and the
// expansion of station paths into boardable stop-level legs.
package planner

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/thigam/Nishukishe-Back-End-sub001/internal/geo"
	"github.com/thigam/Nishukishe-Back-End-sub001/internal/metrics"
	"github.com/thigam/Nishukishe-Back-End-sub001/internal/models"
)

// LongTripMeters is the crow-flies distance from which the coarse L0 graph
// is used instead of L1
const LongTripMeters = 120_000

// CorridorStore reads the persisted cell graph
type CorridorStore interface {
	LoadCells(ctx context.Context, level models.Level) ([]models.Cell, error)
	LoadPortals(ctx context.Context, level models.Level) (map[models.CellID][]models.Portal, error)
	LoadEdgeSummaries(ctx context.Context, level models.Level) ([]models.EdgeSummary, error)
	MembersOf(ctx context.Context, stations []models.StationID) (map[models.StationID][]models.StopID, error)
}

// Whitelist bounds the station search to the neighbourhood of a cell path.
// An empty whitelist means no corridor was found.
type Whitelist struct {
	Level           models.Level       `json:"level"`
	OriginCell      models.CellID      `json:"originCell,omitempty"`
	DestCell        models.CellID      `json:"destCell,omitempty"`
	Path            []models.CellID    `json:"path"`
	CorridorCells   []models.CellID    `json:"corridorCells"`
	AllowedStations []models.StationID `json:"allowedStations"`
	AllowedStops    []models.StopID    `json:"allowedStops"`
	Widened         bool               `json:"widened"`
}

// Empty reports whether the whitelist allows nothing
func (w Whitelist) Empty() bool {
	return len(w.AllowedStops) == 0
}

// StationSet returns the allowed stations as a set
func (w Whitelist) StationSet() map[models.StationID]struct{} {
	out := make(map[models.StationID]struct{}, len(w.AllowedStations))
	for _, id := range w.AllowedStations {
		out[id] = struct{}{}
	}
	return out
}

// Corridor builds whitelists from the persisted cell graph. It holds no
// mutable state and is safe for concurrent use.
type Corridor struct {
	store   CorridorStore
	metrics *metrics.Registry
}

// NewCorridor creates a corridor planner
func NewCorridor(store CorridorStore, reg *metrics.Registry) *Corridor {
	return &Corridor{store: store, metrics: reg}
}

// BuildWhitelist finds the cheapest cell path between two coordinates and
// returns the portal stations and member stops along it. When widen is
// false and the narrow corridor allows nothing, it retries widened.
func (c *Corridor) BuildWhitelist(ctx context.Context, originLat, originLng, destLat, destLng float64, widen bool) (Whitelist, error) {
	start := time.Now()
	defer func() {
		if c.metrics != nil {
			c.metrics.RecordPlanner("whitelist", time.Since(start))
		}
	}()

	level := models.L1
	if geo.Haversine(originLat, originLng, destLat, destLng) >= LongTripMeters {
		level = models.L0
	}
	wl := Whitelist{Level: level}

	cells, err := c.store.LoadCells(ctx, level)
	if err != nil {
		return wl, fmt.Errorf("failed to load %s cells: %w", level, err)
	}
	src, ok := nearestCell(cells, originLat, originLng)
	if !ok {
		return wl, nil
	}
	dst, _ := nearestCell(cells, destLat, destLng)
	wl.OriginCell, wl.DestCell = src, dst

	summaries, err := c.store.LoadEdgeSummaries(ctx, level)
	if err != nil {
		return wl, fmt.Errorf("failed to load %s edge summaries: %w", level, err)
	}

	g := newCellGraph(cells, summaries)
	path := g.shortestPath(src, dst)
	if path == nil {
		return wl, nil
	}
	wl.Path = path

	portals, err := c.store.LoadPortals(ctx, level)
	if err != nil {
		return wl, fmt.Errorf("failed to load %s portals: %w", level, err)
	}

	if err := c.fill(ctx, &wl, g, portals, widen); err != nil {
		return wl, err
	}
	if wl.Empty() && !widen {
		if err := c.fill(ctx, &wl, g, portals, true); err != nil {
			return wl, err
		}
	}
	return wl, nil
}

// fill derives the corridor cells, stations and stops from wl.Path
func (c *Corridor) fill(ctx context.Context, wl *Whitelist, g *cellGraph, portals map[models.CellID][]models.Portal, widen bool) error {
	corridor := make(map[models.CellID]struct{}, len(wl.Path))
	for _, id := range wl.Path {
		corridor[id] = struct{}{}
	}
	if widen {
		for _, id := range wl.Path {
			for _, n := range g.adj[id] {
				corridor[n] = struct{}{}
			}
		}
	}

	wl.Widened = widen
	wl.CorridorCells = sortedCells(corridor)

	seen := make(map[models.StationID]struct{})
	wl.AllowedStations = wl.AllowedStations[:0]
	for _, id := range wl.CorridorCells {
		for _, p := range portals[id] {
			if _, dup := seen[p.Station]; dup {
				continue
			}
			seen[p.Station] = struct{}{}
			wl.AllowedStations = append(wl.AllowedStations, p.Station)
		}
	}

	wl.AllowedStops = nil
	if len(wl.AllowedStations) == 0 {
		return nil
	}
	members, err := c.store.MembersOf(ctx, wl.AllowedStations)
	if err != nil {
		return fmt.Errorf("failed to load portal members: %w", err)
	}
	for _, st := range wl.AllowedStations {
		wl.AllowedStops = append(wl.AllowedStops, members[st]...)
	}
	return nil
}

func newCellGraph(cells []models.Cell, summaries []models.EdgeSummary) *cellGraph {
	centers := make(map[models.CellID][2]float64, len(cells))
	adj := make(map[models.CellID][]models.CellID, len(cells))
	for _, c := range cells {
		centers[c.ID] = [2]float64{c.Lat, c.Lng}
		adj[c.ID] = c.Neighbors
	}

	type pair struct{ from, to models.CellID }
	best := make(map[pair]float64)
	for _, s := range summaries {
		k := pair{s.FromCell, s.ToCell}
		if old, ok := best[k]; !ok || s.Minutes < old {
			best[k] = s.Minutes
		}
	}

	return &cellGraph{
		adj: adj,
		weight: func(a, b models.CellID) float64 {
			if m, ok := best[pair{a, b}]; ok {
				return m
			}
			ca, cb := centers[a], centers[b]
			return geo.BusMinutes(ca[0], ca[1], cb[0], cb[1])
		},
	}
}

// nearestCell snaps a coordinate to the cell with the closest centroid
func nearestCell(cells []models.Cell, lat, lng float64) (models.CellID, bool) {
	var best models.CellID
	bestDist := math.Inf(1)
	for _, c := range cells {
		d := geo.Haversine(lat, lng, c.Lat, c.Lng)
		if d < bestDist || (d == bestDist && c.ID < best) {
			best, bestDist = c.ID, d
		}
	}
	return best, !math.IsInf(bestDist, 1)
}

func sortedCells(set map[models.CellID]struct{}) []models.CellID {
	out := make([]models.CellID, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
