package planner

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/thigam/Nishukishe-Back-End-sub001/internal/geo"
	"github.com/thigam/Nishukishe-Back-End-sub001/internal/models"
)

// DetailedLeg is a leg resolved to the stops a rider boards and alights at
type DetailedLeg struct {
	RouteID     models.RouteID   `json:"route_id"`
	FromStation models.StationID `json:"from_station"`
	ToStation   models.StationID `json:"to_station"`
	FromStop    models.StopID    `json:"from_stop"`
	ToStop      models.StopID    `json:"to_stop"`
	WalkValid   bool             `json:"walk_valid"`
}

// ExpandPath resolves every leg of path to concrete stops. The result has
// one entry per leg, or is empty when any leg cannot be resolved. A walk
// between legs with no recorded transfer edge is kept but flagged.
func (r *Raptor) ExpandPath(ctx context.Context, path Path, origin, dest models.StopID) ([]DetailedLeg, error) {
	start := time.Now()
	idx, err := r.cache.Get(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		if r.metrics != nil {
			r.metrics.RecordPlanner("expand", time.Since(start))
		}
	}()

	resolved, ok := resolveLegs(idx, path, origin, dest)
	if !ok {
		return []DetailedLeg{}, nil
	}

	for i := 1; i < len(resolved); i++ {
		prev, leg := resolved[i-1].ToStop, resolved[i].FromStop
		if prev == leg {
			resolved[i].WalkValid = true
			continue
		}
		valid, err := r.transfers.HasTransferEdge(ctx, prev, leg)
		if err != nil {
			return nil, fmt.Errorf("failed to check transfer %s -> %s: %w", prev, leg, err)
		}
		resolved[i].WalkValid = valid
	}
	return resolved, nil
}

// resolveLegs picks boarding and alighting stops for each leg. Walk
// validity is left for the caller except on the first leg.
func resolveLegs(idx *Index, path Path, origin, dest models.StopID) ([]DetailedLeg, bool) {
	if len(path.Legs) == 0 {
		return nil, false
	}
	originStop, ok := idx.Stops[origin]
	if !ok {
		return nil, false
	}
	destStop, ok := idx.Stops[dest]
	if !ok {
		return nil, false
	}

	curLat, curLng := originStop.Lat, originStop.Lng
	out := make([]DetailedLeg, 0, len(path.Legs))

	for i, leg := range path.Legs {
		stops := idx.RouteStops[leg.RouteID]

		board := nearestOnRoute(idx, stops, leg.FromStation, 0, curLat, curLng)
		if board < 0 {
			return nil, false
		}

		tLat, tLng := destStop.Lat, destStop.Lng
		if i+1 < len(path.Legs) {
			next := path.Legs[i+1]
			lat, lng, ok := memberCentroid(idx, idx.RouteStops[next.RouteID], next.FromStation)
			if !ok {
				return nil, false
			}
			tLat, tLng = lat, lng
		}

		alight := nearestOnRoute(idx, stops, leg.ToStation, board+1, tLat, tLng)
		if alight < 0 {
			return nil, false
		}

		out = append(out, DetailedLeg{
			RouteID:     leg.RouteID,
			FromStation: leg.FromStation,
			ToStation:   leg.ToStation,
			FromStop:    stops[board],
			ToStop:      stops[alight],
			WalkValid:   i == 0,
		})

		s := idx.Stops[stops[alight]]
		curLat, curLng = s.Lat, s.Lng
	}
	return out, true
}

// nearestOnRoute returns the position in stops, at or after from, of the
// member of station closest to (lat, lng), or -1
func nearestOnRoute(idx *Index, stops []models.StopID, station models.StationID, from int, lat, lng float64) int {
	best := -1
	bestDist := math.Inf(1)
	for i := from; i < len(stops); i++ {
		if idx.StopStation[stops[i]] != station {
			continue
		}
		s, ok := idx.Stops[stops[i]]
		if !ok {
			continue
		}
		d := geo.SquaredDistance(lat, lng, s.Lat, s.Lng)
		if d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}

// memberCentroid averages the route's stops that belong to station
func memberCentroid(idx *Index, stops []models.StopID, station models.StationID) (float64, float64, bool) {
	var lats, lngs []float64
	for _, id := range stops {
		if idx.StopStation[id] != station {
			continue
		}
		if s, ok := idx.Stops[id]; ok {
			lats = append(lats, s.Lat)
			lngs = append(lngs, s.Lng)
		}
	}
	if len(lats) == 0 {
		return 0, 0, false
	}
	lat, lng := geo.Centroid(lats, lngs)
	return lat, lng, true
}
