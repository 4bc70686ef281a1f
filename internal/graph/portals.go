package graph

import (
	"sort"

	"github.com/thigam/Nishukishe-Back-End-sub001/internal/models"
)

// Portal score weights
const (
	crossRouteWeight = 3.0
	reachWeight      = 2.0
	degreeWeight     = 1.0
)

type portalCandidate struct {
	station     models.Station
	crossRoutes int
	reach       map[models.CellID]struct{}
}

func (c *portalCandidate) score() float64 {
	return crossRouteWeight*float64(c.crossRoutes) +
		reachWeight*float64(len(c.reach)) +
		degreeWeight*float64(c.station.RouteDegree)
}

// SelectPortals scores every station as a cross-cell gateway at the given
// level and keeps the top k per cell. A route counts toward a station's
// cross count only when it touches at least two distinct cells at the
// level. Must run after CollectCells.
func (b *CellGraphBuilder) SelectPortals(level models.Level, k int) map[models.CellID][]models.Portal {
	candidates := make(map[models.StationID]*portalCandidate, b.stations.Len())
	for _, st := range b.stations.Stations {
		candidates[st.ID] = &portalCandidate{
			station: st,
			reach:   make(map[models.CellID]struct{}),
		}
	}

	// Walk every route once
	for _, r := range b.routes {
		onRoute := b.stations.stationsOnRoute(r)
		cells := make(map[models.CellID]struct{})
		for stID := range onRoute {
			cells[candidates[stID].station.CellAt(level)] = struct{}{}
		}
		if len(cells) < 2 {
			continue
		}
		for stID := range onRoute {
			c := candidates[stID]
			c.crossRoutes++
			own := c.station.CellAt(level)
			for cell := range cells {
				if cell != own && containsCell(b.graph.Neighbors(level, own), cell) {
					c.reach[cell] = struct{}{}
				}
			}
		}
	}

	byCell := make(map[models.CellID][]*portalCandidate)
	for _, st := range b.stations.Stations {
		cell := st.CellAt(level)
		byCell[cell] = append(byCell[cell], candidates[st.ID])
	}

	out := make(map[models.CellID][]models.Portal, len(byCell))
	for cell, list := range byCell {
		sort.Slice(list, func(i, j int) bool {
			si, sj := list[i].score(), list[j].score()
			if si != sj {
				return si > sj
			}
			if list[i].station.RouteDegree != list[j].station.RouteDegree {
				return list[i].station.RouteDegree > list[j].station.RouteDegree
			}
			return list[i].station.ID < list[j].station.ID
		})
		if k > 0 && len(list) > k {
			list = list[:k]
		}
		portals := make([]models.Portal, len(list))
		for i, c := range list {
			portals[i] = models.Portal{
				Level:   level,
				Cell:    cell,
				Station: c.station.ID,
				Score:   c.score(),
				Rank:    i + 1,
			}
		}
		out[cell] = portals
	}

	b.portals[level] = out
	return out
}
