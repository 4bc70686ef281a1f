package planner

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/thigam/Nishukishe-Back-End-sub001/internal/metrics"
	"github.com/thigam/Nishukishe-Back-End-sub001/internal/models"
)

// MaxRounds bounds the search to this many legs (one fewer transfers)
const MaxRounds = 2

// DefaultLimit is used when a search asks for no particular limit
const DefaultLimit = 5

// UnmappedStopError is returned when a stop belongs to no station
type UnmappedStopError struct {
	StopID models.StopID
	Role   string // origin or destination
}

func (e *UnmappedStopError) Error() string {
	return fmt.Sprintf("%s stop %s is not mapped to a station", e.Role, e.StopID)
}

// Leg rides one route between two stations
type Leg struct {
	RouteID     models.RouteID   `json:"routeId"`
	FromStation models.StationID `json:"fromStation"`
	ToStation   models.StationID `json:"toStation"`
}

// Path is an ordered list of legs from the origin station
type Path struct {
	Legs []Leg `json:"legs"`
}

// Transfers returns the number of vehicle changes
func (p Path) Transfers() int {
	if len(p.Legs) == 0 {
		return 0
	}
	return len(p.Legs) - 1
}

// TransferChecker reports whether a walking edge exists between two stops
type TransferChecker interface {
	HasTransferEdge(ctx context.Context, from, to models.StopID) (bool, error)
}

// Raptor runs bounded round-based searches over the cached station index
type Raptor struct {
	cache     *IndexCache
	transfers TransferChecker
	metrics   *metrics.Registry
}

// NewRaptor creates a station search over cache
func NewRaptor(cache *IndexCache, transfers TransferChecker, reg *metrics.Registry) *Raptor {
	return &Raptor{cache: cache, transfers: transfers, metrics: reg}
}

// arrival records reaching a station by riding route from board
type arrival struct {
	route models.RouteID
	board models.StationID
}

// Search finds up to limit station paths with at most MaxRounds legs
func (r *Raptor) Search(ctx context.Context, origin, dest models.StopID, limit int) ([]Path, error) {
	return r.SearchWithin(ctx, origin, dest, limit, nil)
}

// SearchWithin is Search with intermediate stations restricted to allowed.
// A nil allowed set means no restriction.
func (r *Raptor) SearchWithin(ctx context.Context, origin, dest models.StopID, limit int, allowed map[models.StationID]struct{}) ([]Path, error) {
	start := time.Now()
	idx, err := r.cache.Get(ctx)
	if err != nil {
		return nil, err
	}

	paths, err := search(idx, origin, dest, limit, allowed)
	if err != nil {
		return nil, err
	}
	if r.metrics != nil {
		r.metrics.RecordPlanner("search", time.Since(start))
		r.metrics.PlannerPaths.Observe(float64(len(paths)))
	}
	return paths, nil
}

func search(idx *Index, origin, dest models.StopID, limit int, allowed map[models.StationID]struct{}) ([]Path, error) {
	src, ok := idx.StopStation[origin]
	if !ok {
		return nil, &UnmappedStopError{StopID: origin, Role: "origin"}
	}
	dst, ok := idx.StopStation[dest]
	if !ok {
		return nil, &UnmappedStopError{StopID: dest, Role: "destination"}
	}
	if src == dst {
		return []Path{}, nil
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	// rounds[k] holds the arrivals recorded in round k+1
	rounds := make([]map[models.StationID][]arrival, 0, MaxRounds)
	reached := map[models.StationID]bool{src: true}
	marked := map[models.StationID]bool{src: true}
	var paths []Path

	for k := 0; k < MaxRounds && len(marked) > 0; k++ {
		arrivals := make(map[models.StationID][]arrival)
		var prev map[models.StationID][]arrival
		if k > 0 {
			prev = rounds[k-1]
		}

		for _, routeID := range routesThrough(idx, marked) {
			seq := idx.RouteStations[routeID]
			boarded := false
			var boardAt models.StationID

			for _, st := range seq {
				if boarded && st != boardAt {
					if st == dst || (!reached[st] && inAllowed(allowed, st)) {
						arrivals[st] = appendArrival(arrivals[st], arrival{route: routeID, board: boardAt})
					}
				}
				if !boarded && marked[st] && !arrivedBy(prev[st], routeID) {
					boarded = true
					boardAt = st
				}
			}
		}

		rounds = append(rounds, arrivals)

		for _, a := range arrivals[dst] {
			if p, ok := backtrack(rounds, k, src, dst, a); ok {
				paths = append(paths, p)
			}
		}

		next := make(map[models.StationID]bool, len(arrivals))
		for st := range arrivals {
			if st == dst {
				continue
			}
			next[st] = true
		}
		for st := range next {
			reached[st] = true
		}
		marked = next
	}

	paths = dedupePaths(paths)
	sort.SliceStable(paths, func(i, j int) bool {
		return len(paths[i].Legs) < len(paths[j].Legs)
	})
	if len(paths) > limit {
		paths = paths[:limit]
	}
	if paths == nil {
		paths = []Path{}
	}
	return paths, nil
}

// backtrack rebuilds the path ending with arrival a in round k, taking the
// first recorded arrival at each earlier hop
func backtrack(rounds []map[models.StationID][]arrival, k int, src, dst models.StationID, a arrival) (Path, bool) {
	legs := make([]Leg, k+1)
	legs[k] = Leg{RouteID: a.route, FromStation: a.board, ToStation: dst}
	cur := a.board
	for j := k - 1; j >= 0; j-- {
		hops := rounds[j][cur]
		if len(hops) == 0 {
			return Path{}, false
		}
		first := hops[0]
		legs[j] = Leg{RouteID: first.route, FromStation: first.board, ToStation: cur}
		cur = first.board
	}
	if cur != src {
		return Path{}, false
	}
	return Path{Legs: legs}, true
}

func routesThrough(idx *Index, marked map[models.StationID]bool) []models.RouteID {
	seen := make(map[models.RouteID]struct{})
	var out []models.RouteID
	for st := range marked {
		for _, id := range idx.StationRoutes[st] {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// arrivedBy reports whether route already delivered the rider here, in
// which case boarding it again only repeats the previous leg
func arrivedBy(arrivals []arrival, route models.RouteID) bool {
	for _, a := range arrivals {
		if a.route == route {
			return true
		}
	}
	return false
}

func appendArrival(list []arrival, a arrival) []arrival {
	for _, existing := range list {
		if existing == a {
			return list
		}
	}
	return append(list, a)
}

func inAllowed(allowed map[models.StationID]struct{}, st models.StationID) bool {
	if allowed == nil {
		return true
	}
	_, ok := allowed[st]
	return ok
}

func dedupePaths(paths []Path) []Path {
	seen := make(map[string]struct{}, len(paths))
	out := paths[:0]
	for _, p := range paths {
		key := ""
		for _, l := range p.Legs {
			key += string(l.RouteID) + "|" + string(l.FromStation) + "|" + string(l.ToStation) + ";"
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, p)
	}
	return out
}
