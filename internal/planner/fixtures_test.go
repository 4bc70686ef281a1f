package planner

import (
	"context"
	"errors"
	"sync"

	"github.com/thigam/Nishukishe-Back-End-sub001/internal/models"
)

// memStore is an in-memory Store
type memStore struct {
	mu sync.Mutex

	stops    []models.Stop
	routes   []models.Route
	stations []models.Station

	cells     map[models.Level][]models.Cell
	portals   map[models.Level]map[models.CellID][]models.Portal
	summaries map[models.Level][]models.EdgeSummary
	edges     map[models.EdgeKey]bool

	gen     string
	loads   int
	loadErr error
	onLoad  func() // runs after each successful LoadStops
}

func newMemStore() *memStore {
	return &memStore{
		cells:     make(map[models.Level][]models.Cell),
		portals:   make(map[models.Level]map[models.CellID][]models.Portal),
		summaries: make(map[models.Level][]models.EdgeSummary),
		edges:     make(map[models.EdgeKey]bool),
		gen:       "gen-1",
	}
}

func (s *memStore) LoadStops(ctx context.Context) ([]models.Stop, error) {
	s.mu.Lock()
	if s.loadErr != nil {
		s.mu.Unlock()
		return nil, s.loadErr
	}
	s.loads++
	stops, hook := s.stops, s.onLoad
	s.mu.Unlock()

	if hook != nil {
		hook()
	}
	return stops, nil
}

func (s *memStore) LoadRoutes(ctx context.Context) ([]models.Route, error) {
	return s.routes, nil
}

func (s *memStore) LoadStations(ctx context.Context) ([]models.Station, error) {
	return s.stations, nil
}

func (s *memStore) Generation(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen, nil
}

func (s *memStore) setGeneration(gen string) {
	s.mu.Lock()
	s.gen = gen
	s.mu.Unlock()
}

func (s *memStore) loadCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loads
}

func (s *memStore) LoadCells(ctx context.Context, level models.Level) ([]models.Cell, error) {
	return s.cells[level], nil
}

func (s *memStore) LoadPortals(ctx context.Context, level models.Level) (map[models.CellID][]models.Portal, error) {
	return s.portals[level], nil
}

func (s *memStore) LoadEdgeSummaries(ctx context.Context, level models.Level) ([]models.EdgeSummary, error) {
	return s.summaries[level], nil
}

func (s *memStore) MembersOf(ctx context.Context, ids []models.StationID) (map[models.StationID][]models.StopID, error) {
	out := make(map[models.StationID][]models.StopID)
	want := make(map[models.StationID]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	for _, st := range s.stations {
		if want[st.ID] {
			out[st.ID] = st.Members
		}
	}
	return out, nil
}

func (s *memStore) HasTransferEdge(ctx context.Context, from, to models.StopID) (bool, error) {
	return s.edges[models.EdgeKey{From: from, To: to}], nil
}

var errStoreDown = errors.New("store down")

// addStation registers a station and its member stops at the same point
func (s *memStore) addStation(id string, lat, lng float64, members ...string) {
	st := models.Station{ID: models.StationID(id), Lat: lat, Lng: lng}
	for i, m := range members {
		// members step ~11 m north of the station point
		stop := models.Stop{ID: models.StopID(m), Lat: lat + float64(i)*0.0001, Lng: lng}
		s.stops = append(s.stops, stop)
		st.Members = append(st.Members, stop.ID)
	}
	s.stations = append(s.stations, st)
}

func (s *memStore) addRoute(id string, stops ...string) {
	r := models.Route{ID: models.RouteID(id)}
	for _, st := range stops {
		r.StopIDs = append(r.StopIDs, models.StopID(st))
	}
	s.routes = append(s.routes, r)
}

// addCell adds a cell with at most one portal station
func (s *memStore) addCell(level models.Level, id string, lat, lng float64, portal string) {
	s.cells[level] = append(s.cells[level], models.Cell{
		ID: models.CellID(id), Level: level, Lat: lat, Lng: lng,
	})
	if portal == "" {
		return
	}
	if s.portals[level] == nil {
		s.portals[level] = make(map[models.CellID][]models.Portal)
	}
	s.portals[level][models.CellID(id)] = append(s.portals[level][models.CellID(id)], models.Portal{
		Level: level, Cell: models.CellID(id), Station: models.StationID(portal), Score: 1, Rank: 1,
	})
}

// link makes two cells neighbours in both directions
func (s *memStore) link(level models.Level, a, b string) {
	for i := range s.cells[level] {
		c := &s.cells[level][i]
		switch c.ID {
		case models.CellID(a):
			c.Neighbors = append(c.Neighbors, models.CellID(b))
		case models.CellID(b):
			c.Neighbors = append(c.Neighbors, models.CellID(a))
		}
	}
}

func newTestRaptor(store *memStore) *Raptor {
	return NewRaptor(NewIndexCache(store, 0, nil), store, nil)
}
