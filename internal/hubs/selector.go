// Package hubs picks high-value transfer stops per region. Hubs anchor the
// longer walking transfers built later.
package hubs

import (
	"fmt"
	"log"
	"sort"

	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"github.com/thigam/Nishukishe-Back-End-sub001/internal/config"
	"github.com/thigam/Nishukishe-Back-End-sub001/internal/geo"
	"github.com/thigam/Nishukishe-Back-End-sub001/internal/models"
	"github.com/thigam/Nishukishe-Back-End-sub001/internal/spatial"
)

// Weights scale each scoring signal
type Weights struct {
	Reach   float64
	Degree  float64
	RouteKm float64
	Walk    float64
	Trips   float64
	Cluster float64
}

// DefaultWeights returns the production weights
func DefaultWeights() Weights {
	return Weights{Reach: 3, Degree: 2, RouteKm: 0.05, Walk: 0.5, Trips: 0.01, Cluster: 0.3}
}

// Options controls hub selection
type Options struct {
	K           int     // hubs per region, raised to the curated count when larger
	Res         int     // cell resolution for reach and cell-defined regions
	WalkCap     int     // walking degree cap
	SpacingM    float64 // minimum distance between greedily chosen hubs
	ClusterM    float64 // micro-cluster radius
	ClusterCap  int
	SubstituteM float64 // search radius for a missing curated stop
	Weights     Weights
}

// DefaultOptions returns the defaults used by build-hubs
func DefaultOptions() Options {
	return Options{
		K:           8,
		Res:         8,
		WalkCap:     20,
		SpacingM:    350,
		ClusterM:    100,
		ClusterCap:  10,
		SubstituteM: 350,
		Weights:     DefaultWeights(),
	}
}

// Input is the network the selector scores
type Input struct {
	Stops      []models.Stop
	Routes     []models.Route
	WalkDegree map[models.StopID]int // outgoing transfer edges per stop, may be nil
}

// Selector scores stops and picks hubs region by region
type Selector struct {
	opts  Options
	index *geo.StopIndex

	stopCell     map[models.StopID]models.CellID
	routesByStop map[models.StopID][]int
	routeCells   []map[models.CellID]struct{}
	routeKm      []float64
	routes       []models.Route
	walkDegree   map[models.StopID]int
}

// NewSelector precomputes per-route cells and lengths
func NewSelector(in Input, idx spatial.Index, opts Options) (*Selector, error) {
	valid := make([]models.Stop, 0, len(in.Stops))
	for _, s := range in.Stops {
		if s.Validate() == nil {
			valid = append(valid, s)
		}
	}

	s := &Selector{
		opts:         opts,
		index:        geo.NewStopIndex(valid),
		stopCell:     make(map[models.StopID]models.CellID, len(valid)),
		routesByStop: make(map[models.StopID][]int),
		routes:       in.Routes,
		walkDegree:   in.WalkDegree,
	}

	for _, stop := range valid {
		cell, err := idx.CellOf(stop.Lat, stop.Lng, opts.Res)
		if err != nil {
			return nil, fmt.Errorf("failed to index stop %s: %w", stop.ID, err)
		}
		s.stopCell[stop.ID] = cell
	}

	s.routeCells = make([]map[models.CellID]struct{}, len(in.Routes))
	s.routeKm = make([]float64, len(in.Routes))
	for i, r := range in.Routes {
		cells := make(map[models.CellID]struct{})
		var pts []orb.Point
		seen := make(map[models.StopID]bool)
		for _, id := range r.StopIDs {
			stop, ok := s.index.Get(id)
			if !ok {
				continue
			}
			pts = append(pts, stop.Point())
			cells[s.stopCell[id]] = struct{}{}
			if !seen[id] {
				seen[id] = true
				s.routesByStop[id] = append(s.routesByStop[id], i)
			}
		}
		s.routeCells[i] = cells
		s.routeKm[i] = geo.LineLengthKm(pts)
	}
	return s, nil
}

// Metrics computes the raw scoring signals of a stop
func (s *Selector) Metrics(id models.StopID) models.HubMetrics {
	var m models.HubMetrics
	stop, ok := s.index.Get(id)
	if !ok {
		return m
	}

	own := s.stopCell[id]
	reach := make(map[models.CellID]struct{})
	for _, ri := range s.routesByStop[id] {
		for c := range s.routeCells[ri] {
			if c != own {
				reach[c] = struct{}{}
			}
		}
		m.RouteKm += s.routeKm[ri]
		m.TripDensity += s.routes[ri].TripCount
	}
	m.CrossCellReach = len(reach)
	m.RouteDegree = len(s.routesByStop[id])
	m.RouteKm = geo.Round(m.RouteKm, 3)

	m.WalkDegree = s.walkDegree[id]
	if s.opts.WalkCap > 0 && m.WalkDegree > s.opts.WalkCap {
		m.WalkDegree = s.opts.WalkCap
	}
	m.MicroCluster = s.index.CountWithin(stop.Point(), s.opts.ClusterM, id, s.opts.ClusterCap)
	return m
}

// Score is the weighted sum of a stop's metrics
func (s *Selector) Score(m models.HubMetrics) float64 {
	w := s.opts.Weights
	return w.Reach*float64(m.CrossCellReach) +
		w.Degree*float64(m.RouteDegree) +
		w.RouteKm*m.RouteKm +
		w.Walk*float64(m.WalkDegree) +
		w.Trips*float64(m.TripDensity) +
		w.Cluster*float64(m.MicroCluster)
}

// Members returns the stops inside a region ordered by id
func (s *Selector) Members(r config.Region) []models.Stop {
	cells := make(map[models.CellID]struct{}, len(r.Cells))
	for _, c := range r.Cells {
		cells[c] = struct{}{}
	}

	var out []models.Stop
	for id, cell := range s.stopCell {
		stop, _ := s.index.Get(id)
		if _, ok := cells[cell]; ok {
			out = append(out, stop)
			continue
		}
		if len(r.Polygon) > 0 && planar.PolygonContains(r.Polygon, stop.Point()) {
			out = append(out, stop)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

type candidate struct {
	stop    models.Stop
	metrics models.HubMetrics
	score   float64
}

// SelectRegion picks the hubs of one region. Curated stops come first and
// ignore spacing; the rest are chosen greedily by score.
func (s *Selector) SelectRegion(r config.Region, curated []config.CuratedHub) []models.Hub {
	members := s.Members(r)
	memberIDs := make(map[models.StopID]bool, len(members))
	for _, m := range members {
		memberIDs[m.ID] = true
	}

	var chosen []candidate
	taken := make(map[models.StopID]bool)

	for _, c := range curated {
		if c.Region != r.ID {
			continue
		}
		id := models.StopID(c.StopID)
		stop, ok := s.index.Get(id)
		var subFor models.StopID
		var subM float64
		if !ok {
			sub, dist, found := s.substitute(c, memberIDs, taken)
			if !found {
				log.Printf("Hubs: curated stop %s (%s) missing and nothing within %.0fm, skipped",
					c.StopID, c.Name, s.opts.SubstituteM)
				continue
			}
			log.Printf("Hubs: curated stop %s missing, using %s at %.0fm", c.StopID, sub.ID, dist)
			stop, subFor, subM = sub, id, geo.Round(dist, 1)
		}
		if taken[stop.ID] {
			continue
		}
		m := s.Metrics(stop.ID)
		m.SubstitutedFor, m.SubstitutionM = subFor, subM
		chosen = append(chosen, candidate{stop: stop, metrics: m, score: s.Score(m)})
		taken[stop.ID] = true
	}
	nCurated := len(chosen)

	target := s.opts.K
	if nCurated > target {
		target = nCurated
	}

	pool := make([]candidate, 0, len(members))
	for _, stop := range members {
		if taken[stop.ID] {
			continue
		}
		m := s.Metrics(stop.ID)
		pool = append(pool, candidate{stop: stop, metrics: m, score: s.Score(m)})
	}
	sort.SliceStable(pool, func(i, j int) bool {
		if pool[i].score != pool[j].score {
			return pool[i].score > pool[j].score
		}
		return pool[i].stop.ID < pool[j].stop.ID
	})

	for _, c := range pool {
		if len(chosen) >= target {
			break
		}
		if s.tooClose(c.stop, chosen) {
			continue
		}
		chosen = append(chosen, c)
	}

	hubs := make([]models.Hub, len(chosen))
	for i, c := range chosen {
		hubs[i] = models.Hub{
			ID:       uuid.New().String(),
			RegionID: r.ID,
			StopID:   c.stop.ID,
			Rank:     i + 1,
			Score:    geo.Round(c.score, 3),
			Curated:  i < nCurated,
			Metrics:  c.metrics,
		}
	}
	log.Printf("Hubs: region %s: %d members, %d hubs (%d curated)", r.ID, len(members), len(hubs), nCurated)
	return hubs
}

// Select runs SelectRegion for every region
func (s *Selector) Select(regions []config.Region, curated []config.CuratedHub) []models.Hub {
	var out []models.Hub
	for _, r := range regions {
		out = append(out, s.SelectRegion(r, curated)...)
	}
	return out
}

func (s *Selector) tooClose(stop models.Stop, chosen []candidate) bool {
	for _, c := range chosen {
		if geo.Distance(stop.Point(), c.stop.Point()) < s.opts.SpacingM {
			return true
		}
	}
	return false
}

// substitute finds the nearest region member to a curated entry's declared
// coordinates
func (s *Selector) substitute(c config.CuratedHub, members, taken map[models.StopID]bool) (models.Stop, float64, bool) {
	at := orb.Point{c.Lng, c.Lat}
	for _, n := range s.index.Within(at, s.opts.SubstituteM) {
		if members[n.Stop.ID] && !taken[n.Stop.ID] {
			return n.Stop, n.DistanceM, true
		}
	}
	return models.Stop{}, 0, false
}
