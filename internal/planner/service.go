package planner

import (
	"context"
	"time"

	"github.com/thigam/Nishukishe-Back-End-sub001/internal/metrics"
	"github.com/thigam/Nishukishe-Back-End-sub001/internal/models"
)

// Store is everything the planner reads. *db.DB satisfies it.
type Store interface {
	CorridorStore
	IndexStore
	TransferChecker
}

// Itinerary is a station path with its stop-level legs. Legs is empty when
// the path could not be expanded.
type Itinerary struct {
	Path  Path          `json:"path"`
	Legs  []DetailedLeg `json:"legs"`
	Valid bool          `json:"valid"` // every walk is backed by a transfer edge
}

// Plan is the answer to a stop-to-stop query
type Plan struct {
	Origin      models.StopID `json:"origin"`
	Destination models.StopID `json:"destination"`
	Whitelist   Whitelist     `json:"whitelist"`
	Unbounded   bool          `json:"unbounded"` // corridor search found nothing, fell back to a full search
	Itineraries []Itinerary   `json:"itineraries"`
}

// Service owns the corridor planner, station search and their index cache
type Service struct {
	Corridor *Corridor
	Raptor   *Raptor
	Cache    *IndexCache
	metrics  *metrics.Registry
}

// NewService wires the online planner over store
func NewService(store Store, ttl time.Duration, reg *metrics.Registry) *Service {
	cache := NewIndexCache(store, ttl, reg)
	return &Service{
		Corridor: NewCorridor(store, reg),
		Raptor:   NewRaptor(cache, store, reg),
		Cache:    cache,
		metrics:  reg,
	}
}

// Invalidate drops the cached search index
func (s *Service) Invalidate() {
	s.Cache.Invalidate()
}

// Plan builds a corridor between the two stops, searches station paths
// inside it and expands each path. An empty corridor yields no
// itineraries. When the corridor exists but the bounded search finds
// nothing, the search is repeated without the corridor.
func (s *Service) Plan(ctx context.Context, origin, dest models.StopID, limit int, widen bool) (*Plan, error) {
	start := time.Now()
	defer func() {
		if s.metrics != nil {
			s.metrics.RecordPlanner("plan", time.Since(start))
		}
	}()

	idx, err := s.Cache.Get(ctx)
	if err != nil {
		return nil, err
	}
	if _, ok := idx.StopStation[origin]; !ok {
		return nil, &UnmappedStopError{StopID: origin, Role: "origin"}
	}
	if _, ok := idx.StopStation[dest]; !ok {
		return nil, &UnmappedStopError{StopID: dest, Role: "destination"}
	}
	o, d := idx.Stops[origin], idx.Stops[dest]

	plan := &Plan{Origin: origin, Destination: dest, Itineraries: []Itinerary{}}

	wl, err := s.Corridor.BuildWhitelist(ctx, o.Lat, o.Lng, d.Lat, d.Lng, widen)
	if err != nil {
		return nil, err
	}
	plan.Whitelist = wl
	if wl.Empty() {
		return plan, nil
	}

	paths, err := s.Raptor.SearchWithin(ctx, origin, dest, limit, wl.StationSet())
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		plan.Unbounded = true
		paths, err = s.Raptor.Search(ctx, origin, dest, limit)
		if err != nil {
			return nil, err
		}
	}

	for _, p := range paths {
		legs, err := s.Raptor.ExpandPath(ctx, p, origin, dest)
		if err != nil {
			return nil, err
		}
		it := Itinerary{Path: p, Legs: legs, Valid: len(legs) > 0}
		for _, l := range legs {
			if !l.WalkValid {
				it.Valid = false
			}
		}
		plan.Itineraries = append(plan.Itineraries, it)
	}
	return plan, nil
}

// BuildWhitelist delegates to the corridor planner
func (s *Service) BuildWhitelist(ctx context.Context, originLat, originLng, destLat, destLng float64, widen bool) (Whitelist, error) {
	return s.Corridor.BuildWhitelist(ctx, originLat, originLng, destLat, destLng, widen)
}

// Search delegates to the unbounded station search
func (s *Service) Search(ctx context.Context, origin, dest models.StopID, limit int) ([]Path, error) {
	return s.Raptor.Search(ctx, origin, dest, limit)
}

// ExpandPath delegates to the station search's path expansion
func (s *Service) ExpandPath(ctx context.Context, path Path, origin, dest models.StopID) ([]DetailedLeg, error) {
	return s.Raptor.ExpandPath(ctx, path, origin, dest)
}
