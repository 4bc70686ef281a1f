package graph

import (
	"fmt"
	"sort"

	"github.com/thigam/Nishukishe-Back-End-sub001/internal/models"
	"github.com/thigam/Nishukishe-Back-End-sub001/internal/spatial"
)

// CellGraph holds the cells hosting stations at each level and their
// adjacency lists. Neighbour links are always symmetric.
type CellGraph struct {
	cells map[models.Level]map[models.CellID]*models.Cell
}

// NewCellGraph returns an empty graph
func NewCellGraph() *CellGraph {
	g := &CellGraph{cells: make(map[models.Level]map[models.CellID]*models.Cell)}
	for _, l := range models.Levels() {
		g.cells[l] = make(map[models.CellID]*models.Cell)
	}
	return g
}

// Has reports whether the cell hosts a station at the level
func (g *CellGraph) Has(level models.Level, id models.CellID) bool {
	_, ok := g.cells[level][id]
	return ok
}

// Cell returns a cell by level and id
func (g *CellGraph) Cell(level models.Level, id models.CellID) (models.Cell, bool) {
	c, ok := g.cells[level][id]
	if !ok {
		return models.Cell{}, false
	}
	return *c, true
}

// Neighbors returns the registered neighbours of a cell
func (g *CellGraph) Neighbors(level models.Level, id models.CellID) []models.CellID {
	c, ok := g.cells[level][id]
	if !ok {
		return nil
	}
	return c.Neighbors
}

// CellsAt returns all cells at a level sorted by id
func (g *CellGraph) CellsAt(level models.Level) []models.Cell {
	out := make([]models.Cell, 0, len(g.cells[level]))
	for _, c := range g.cells[level] {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Len returns the number of cells at a level
func (g *CellGraph) Len(level models.Level) int {
	return len(g.cells[level])
}

func (g *CellGraph) link(level models.Level, a, b models.CellID) {
	ca, cb := g.cells[level][a], g.cells[level][b]
	if !containsCell(ca.Neighbors, b) {
		ca.Neighbors = append(ca.Neighbors, b)
	}
	if !containsCell(cb.Neighbors, a) {
		cb.Neighbors = append(cb.Neighbors, a)
	}
}

func containsCell(ids []models.CellID, id models.CellID) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}

// CellGraphBuilder derives cells, portals and edge summaries from a
// station set
type CellGraphBuilder struct {
	stations *StationSet
	routes   []models.Route
	idx      spatial.Index

	graph   *CellGraph
	portals map[models.Level]map[models.CellID][]models.Portal
}

// NewCellGraphBuilder creates a builder over clustered stations
func NewCellGraphBuilder(stations *StationSet, routes []models.Route, idx spatial.Index) *CellGraphBuilder {
	return &CellGraphBuilder{
		stations: stations,
		routes:   routes,
		idx:      idx,
		graph:    NewCellGraph(),
		portals:  make(map[models.Level]map[models.CellID][]models.Portal),
	}
}

// Graph returns the cell graph collected so far
func (b *CellGraphBuilder) Graph() *CellGraph {
	return b.graph
}

// CollectCells registers every station's L1 and L0 cell once. Each newly
// seen cell is linked to the cells of its 1-ring that already host
// stations, so adjacency only spans populated cells.
func (b *CellGraphBuilder) CollectCells() error {
	type sum struct {
		lat, lng float64
		n        int
	}
	sums := make(map[models.Level]map[models.CellID]*sum)
	for _, l := range models.Levels() {
		sums[l] = make(map[models.CellID]*sum)
	}

	for _, st := range b.stations.Stations {
		for _, level := range models.Levels() {
			id := st.CellAt(level)
			if id == "" {
				continue
			}
			if !b.graph.Has(level, id) {
				cell := &models.Cell{ID: id, Level: level}
				if level == models.L1 {
					cell.L0Parent = st.L0Cell
				}
				b.graph.cells[level][id] = cell
				sums[level][id] = &sum{}

				ring, err := b.idx.KRing(id, 1)
				if err != nil {
					return fmt.Errorf("failed to enumerate ring of %s: %w", id, err)
				}
				for _, n := range ring {
					if n == id || !b.graph.Has(level, n) {
						continue
					}
					b.graph.link(level, id, n)
				}
			}
			s := sums[level][id]
			s.lat += st.Lat
			s.lng += st.Lng
			s.n++
		}
	}

	for level, byCell := range sums {
		for id, s := range byCell {
			c := b.graph.cells[level][id]
			c.Lat = s.lat / float64(s.n)
			c.Lng = s.lng / float64(s.n)
			sort.Slice(c.Neighbors, func(i, j int) bool { return c.Neighbors[i] < c.Neighbors[j] })
		}
	}
	return nil
}

// Portals returns the portals selected for a level, keyed by cell
func (b *CellGraphBuilder) Portals(level models.Level) map[models.CellID][]models.Portal {
	return b.portals[level]
}
