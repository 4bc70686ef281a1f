package geo

import (
	"sort"

	"github.com/paulmach/orb"
	"github.com/tidwall/rtree"

	"github.com/thigam/Nishukishe-Back-End-sub001/internal/models"
)

// Neighbor is a stop found near a query point
type Neighbor struct {
	Stop      models.Stop
	DistanceM float64
}

// StopIndex is an R-tree over stop coordinates. Points are stored as
// [lat, lon] boxes of zero size.
type StopIndex struct {
	tree  rtree.RTree
	stops map[models.StopID]models.Stop
}

// NewStopIndex creates an index over the given stops
func NewStopIndex(stops []models.Stop) *StopIndex {
	ix := &StopIndex{stops: make(map[models.StopID]models.Stop, len(stops))}
	for _, s := range stops {
		ix.stops[s.ID] = s
		ix.tree.Insert([2]float64{s.Lat, s.Lng}, [2]float64{s.Lat, s.Lng}, s)
	}
	return ix
}

// Len returns the number of indexed stops
func (ix *StopIndex) Len() int {
	return len(ix.stops)
}

// Get returns an indexed stop by id
func (ix *StopIndex) Get(id models.StopID) (models.Stop, bool) {
	s, ok := ix.stops[id]
	return s, ok
}

// Within returns all stops within radiusM meters of center, nearest first.
// The bounding box query is only a prefilter; every hit is checked with
// the haversine distance.
func (ix *StopIndex) Within(center orb.Point, radiusM float64) []Neighbor {
	b := BoundAround(center, radiusM)

	var out []Neighbor
	ix.tree.Search(
		[2]float64{b.Min.Lat(), b.Min.Lon()},
		[2]float64{b.Max.Lat(), b.Max.Lon()},
		func(min, max [2]float64, data interface{}) bool {
			stop, ok := data.(models.Stop)
			if !ok {
				return true
			}
			d := Distance(center, stop.Point())
			if d <= radiusM {
				out = append(out, Neighbor{Stop: stop, DistanceM: d})
			}
			return true
		},
	)

	sortNeighbors(out)
	return out
}

// Nearest returns up to limit stops within radiusM of center, excluding the
// given stop id (usually the query stop itself)
func (ix *StopIndex) Nearest(center orb.Point, radiusM float64, limit int, exclude models.StopID) []Neighbor {
	all := ix.Within(center, radiusM)
	out := make([]Neighbor, 0, limit)
	for _, n := range all {
		if n.Stop.ID == exclude {
			continue
		}
		out = append(out, n)
		if len(out) == limit {
			break
		}
	}
	return out
}

// CountWithin counts stops within radiusM of center other than exclude,
// stopping early once cap is reached (cap <= 0 means no cap)
func (ix *StopIndex) CountWithin(center orb.Point, radiusM float64, exclude models.StopID, cap int) int {
	n := 0
	for _, nb := range ix.Within(center, radiusM) {
		if nb.Stop.ID == exclude {
			continue
		}
		n++
		if cap > 0 && n >= cap {
			return cap
		}
	}
	return n
}

func sortNeighbors(ns []Neighbor) {
	sort.Slice(ns, func(i, j int) bool {
		if ns[i].DistanceM != ns[j].DistanceM {
			return ns[i].DistanceM < ns[j].DistanceM
		}
		return ns[i].Stop.ID < ns[j].Stop.ID
	})
}
