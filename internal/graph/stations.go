// Package graph builds the offline multi-resolution station and cell graph
// from raw stops and routes.
package graph

import (
	"fmt"
	"log"
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"github.com/thigam/Nishukishe-Back-End-sub001/internal/geo"
	"github.com/thigam/Nishukishe-Back-End-sub001/internal/models"
	"github.com/thigam/Nishukishe-Back-End-sub001/internal/spatial"
)

// StationConfig controls how stops are clustered into stations
type StationConfig struct {
	CBD      orb.Polygon // finer clustering inside this polygon
	CBDRes   int
	OuterRes int
	L1Res    int
	L0Res    int
}

// NairobiCBD is the central business district outline (lng, lat), roughly
// Uhuru Highway, University Way, Muranga Road, River Road and Haile Selassie.
var NairobiCBD = orb.Polygon{orb.Ring{
	{36.8140, -1.2830},
	{36.8168, -1.2790},
	{36.8260, -1.2800},
	{36.8320, -1.2835},
	{36.8290, -1.2905},
	{36.8190, -1.2930},
	{36.8140, -1.2830},
}}

// DefaultStationConfig returns the production clustering resolutions
func DefaultStationConfig() StationConfig {
	return StationConfig{
		CBD:      NairobiCBD,
		CBDRes:   10,
		OuterRes: 9,
		L1Res:    7,
		L0Res:    5,
	}
}

// StationSet is the result of clustering: stations ordered by id plus the
// stop -> station membership map
type StationSet struct {
	Stations    []models.Station
	byID        map[models.StationID]int
	stopStation map[models.StopID]models.StationID
}

// Get returns a station by id
func (s *StationSet) Get(id models.StationID) (models.Station, bool) {
	i, ok := s.byID[id]
	if !ok {
		return models.Station{}, false
	}
	return s.Stations[i], true
}

// StationOf returns the station a stop belongs to
func (s *StationSet) StationOf(stop models.StopID) (models.StationID, bool) {
	id, ok := s.stopStation[stop]
	return id, ok
}

// Len returns the number of stations
func (s *StationSet) Len() int {
	return len(s.Stations)
}

// NewStationSet indexes an existing list of stations (for example one read
// back from the database)
func NewStationSet(stations []models.Station) *StationSet {
	set := &StationSet{
		Stations:    stations,
		byID:        make(map[models.StationID]int, len(stations)),
		stopStation: make(map[models.StopID]models.StationID),
	}
	for i, st := range stations {
		set.byID[st.ID] = i
		for _, m := range st.Members {
			set.stopStation[m] = st.ID
		}
	}
	return set
}

// BuildStations clusters stops into stations. Stops sharing a cell become
// one station; the cell resolution is finer inside the CBD polygon. Stops
// with unusable coordinates are skipped and logged.
func BuildStations(stops []models.Stop, routes []models.Route, idx spatial.Index, cfg StationConfig) (*StationSet, error) {
	type acc struct {
		lats, lngs []float64
		members    []models.StopID
	}
	groups := make(map[models.StationID]*acc)

	sorted := make([]models.Stop, len(stops))
	copy(sorted, stops)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	skipped := 0
	for _, s := range sorted {
		if err := s.Validate(); err != nil {
			skipped++
			continue
		}
		res := cfg.OuterRes
		if len(cfg.CBD) > 0 && planar.PolygonContains(cfg.CBD, s.Point()) {
			res = cfg.CBDRes
		}
		cell, err := idx.CellOf(s.Lat, s.Lng, res)
		if err != nil {
			return nil, fmt.Errorf("failed to index stop %s: %w", s.ID, err)
		}
		id := models.StationID(cell)
		g, ok := groups[id]
		if !ok {
			g = &acc{}
			groups[id] = g
		}
		g.lats = append(g.lats, s.Lat)
		g.lngs = append(g.lngs, s.Lng)
		g.members = append(g.members, s.ID)
	}
	if skipped > 0 {
		log.Printf("Stations: skipped %d stops with invalid coordinates", skipped)
	}

	stations := make([]models.Station, 0, len(groups))
	for id, g := range groups {
		lat, lng := geo.Centroid(g.lats, g.lngs)
		l1, err := idx.CellOf(lat, lng, cfg.L1Res)
		if err != nil {
			return nil, fmt.Errorf("failed to index station %s at L1: %w", id, err)
		}
		// L0 comes from the L1 cell so both levels nest the same way
		l0, err := idx.Parent(l1, cfg.L0Res)
		if err != nil {
			return nil, fmt.Errorf("failed to index station %s at L0: %w", id, err)
		}
		stations = append(stations, models.Station{
			ID:      id,
			Lat:     lat,
			Lng:     lng,
			L1Cell:  l1,
			L0Cell:  l0,
			Members: g.members,
		})
	}
	sort.Slice(stations, func(i, j int) bool { return stations[i].ID < stations[j].ID })

	set := NewStationSet(stations)
	set.assignRouteDegree(routes)
	return set, nil
}

// assignRouteDegree counts the distinct routes touching each station
func (s *StationSet) assignRouteDegree(routes []models.Route) {
	degree := make(map[models.StationID]int)
	for _, r := range routes {
		for st := range s.stationsOnRoute(r) {
			degree[st]++
		}
	}
	for i := range s.Stations {
		s.Stations[i].RouteDegree = degree[s.Stations[i].ID]
	}
}

// stationsOnRoute returns the distinct stations a route's stops map to
func (s *StationSet) stationsOnRoute(r models.Route) map[models.StationID]struct{} {
	seen := make(map[models.StationID]struct{})
	for _, stop := range r.StopIDs {
		if st, ok := s.stopStation[stop]; ok {
			seen[st] = struct{}{}
		}
	}
	return seen
}
