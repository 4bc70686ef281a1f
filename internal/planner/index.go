package planner

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/thigam/Nishukishe-Back-End-sub001/internal/metrics"
	"github.com/thigam/Nishukishe-Back-End-sub001/internal/models"
)

// DefaultIndexTTL bounds how long a search index is served before rebuild
const DefaultIndexTTL = 24 * time.Hour

// Rebuild reasons reported to metrics
const (
	ReasonCold        = "cold"
	ReasonExpired     = "expired"
	ReasonGeneration  = "generation"
	ReasonInvalidated = "invalidated"
)

// IndexStore reads what the search index is derived from
type IndexStore interface {
	LoadStops(ctx context.Context) ([]models.Stop, error)
	LoadRoutes(ctx context.Context) ([]models.Route, error)
	LoadStations(ctx context.Context) ([]models.Station, error)
	Generation(ctx context.Context) (string, error)
}

// Index is an immutable snapshot of the network shaped for station search
type Index struct {
	Generation string
	BuiltAt    time.Time

	StopStation    map[models.StopID]models.StationID
	Stops          map[models.StopID]models.Stop
	RouteStops     map[models.RouteID][]models.StopID
	RouteStations  map[models.RouteID][]models.StationID // consecutive duplicates collapsed
	StationRoutes  map[models.StationID][]models.RouteID
	StationMembers map[models.StationID][]models.StopID
}

// NewIndex derives the search index from stops, routes and stations
func NewIndex(stops []models.Stop, routes []models.Route, stations []models.Station) *Index {
	idx := &Index{
		BuiltAt:        time.Now(),
		StopStation:    make(map[models.StopID]models.StationID),
		Stops:          make(map[models.StopID]models.Stop, len(stops)),
		RouteStops:     make(map[models.RouteID][]models.StopID, len(routes)),
		RouteStations:  make(map[models.RouteID][]models.StationID, len(routes)),
		StationRoutes:  make(map[models.StationID][]models.RouteID),
		StationMembers: make(map[models.StationID][]models.StopID, len(stations)),
	}

	for _, s := range stops {
		idx.Stops[s.ID] = s
	}
	for _, st := range stations {
		idx.StationMembers[st.ID] = st.Members
		for _, m := range st.Members {
			idx.StopStation[m] = st.ID
		}
	}

	for _, r := range routes {
		idx.RouteStops[r.ID] = r.StopIDs

		var seq []models.StationID
		touched := make(map[models.StationID]struct{})
		for _, stopID := range r.StopIDs {
			st, ok := idx.StopStation[stopID]
			if !ok {
				continue
			}
			if len(seq) > 0 && seq[len(seq)-1] == st {
				continue
			}
			seq = append(seq, st)
			touched[st] = struct{}{}
		}
		if len(seq) < 2 {
			continue
		}
		idx.RouteStations[r.ID] = seq
		for st := range touched {
			idx.StationRoutes[st] = append(idx.StationRoutes[st], r.ID)
		}
	}

	for st := range idx.StationRoutes {
		ids := idx.StationRoutes[st]
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	}
	return idx
}

// IndexCache owns the search index. It is populated on first use, rebuilt
// once per TTL, and rebuilt early after Invalidate or when the store
// reports a newer build generation.
type IndexCache struct {
	store   IndexStore
	ttl     time.Duration
	metrics *metrics.Registry

	// GenerationCheck throttles generation lookups; zero checks every call
	GenerationCheck time.Duration

	mu          sync.RWMutex
	index       *Index
	invalidated bool
	epoch       uint64 // bumped by every Invalidate
	checkedAt   time.Time

	group singleflight.Group
	now   func() time.Time
}

// NewIndexCache creates an empty cache. A zero ttl uses DefaultIndexTTL.
func NewIndexCache(store IndexStore, ttl time.Duration, reg *metrics.Registry) *IndexCache {
	if ttl <= 0 {
		ttl = DefaultIndexTTL
	}
	return &IndexCache{
		store:           store,
		ttl:             ttl,
		metrics:         reg,
		GenerationCheck: 30 * time.Second,
		now:             time.Now,
	}
}

// Invalidate forces the next Get to rebuild
func (c *IndexCache) Invalidate() {
	c.mu.Lock()
	c.invalidated = true
	c.epoch++
	c.mu.Unlock()
}

// Get returns the current index, rebuilding it if needed. Concurrent
// callers share a single rebuild.
func (c *IndexCache) Get(ctx context.Context) (*Index, error) {
	reason, err := c.staleReason(ctx)
	if err != nil {
		return nil, err
	}
	if reason == "" {
		c.mu.RLock()
		idx := c.index
		c.mu.RUnlock()
		return idx, nil
	}

	v, err, _ := c.group.Do("index", func() (interface{}, error) {
		return c.rebuild(context.WithoutCancel(ctx), reason)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Index), nil
}

func (c *IndexCache) staleReason(ctx context.Context) (string, error) {
	c.mu.RLock()
	idx := c.index
	invalidated := c.invalidated
	checkedAt := c.checkedAt
	c.mu.RUnlock()

	now := c.now()
	switch {
	case idx == nil:
		return ReasonCold, nil
	case invalidated:
		return ReasonInvalidated, nil
	case now.Sub(idx.BuiltAt) >= c.ttl:
		return ReasonExpired, nil
	}

	if c.GenerationCheck > 0 && now.Sub(checkedAt) < c.GenerationCheck {
		return "", nil
	}
	gen, err := c.store.Generation(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to read build generation: %w", err)
	}
	c.mu.Lock()
	c.checkedAt = now
	c.mu.Unlock()
	if gen != idx.Generation {
		return ReasonGeneration, nil
	}
	return "", nil
}

func (c *IndexCache) rebuild(ctx context.Context, reason string) (*Index, error) {
	start := c.now()

	c.mu.RLock()
	epoch := c.epoch
	c.mu.RUnlock()

	gen, err := c.store.Generation(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read build generation: %w", err)
	}
	stops, err := c.store.LoadStops(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load stops: %w", err)
	}
	routes, err := c.store.LoadRoutes(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load routes: %w", err)
	}
	stations, err := c.store.LoadStations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load stations: %w", err)
	}

	idx := NewIndex(stops, routes, stations)
	idx.Generation = gen
	idx.BuiltAt = c.now()

	c.mu.Lock()
	c.index = idx
	// an Invalidate that raced with the loads above still needs a rebuild
	if c.epoch == epoch {
		c.invalidated = false
	}
	c.checkedAt = idx.BuiltAt
	c.mu.Unlock()

	if c.metrics != nil {
		c.metrics.RecordIndexRebuild(reason)
	}
	log.Printf("Planner: rebuilt search index (%s): %d stations, %d routes in %v",
		reason, len(idx.StationMembers), len(idx.RouteStations), c.now().Sub(start))
	return idx, nil
}
