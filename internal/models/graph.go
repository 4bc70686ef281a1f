package models

import "fmt"

// StationID identifies a cluster of nearby stops. It is the id of the
// spatial cell the member stops share.
type StationID string

// CellID identifies a hexagonal cell at some resolution
type CellID string

// Level is a cell graph resolution tier
type Level int

const (
	// L0 is the coarse cell graph, used for long trips
	L0 Level = 0
	// L1 is the medium cell graph
	L1 Level = 1
)

// Levels lists the cell graph tiers in build order
func Levels() []Level {
	return []Level{L0, L1}
}

func (l Level) String() string {
	return fmt.Sprintf("L%d", int(l))
}

// Station is a cluster of nearby stops treated as one node for transfers
type Station struct {
	ID          StationID `json:"stationId"`
	Lat         float64   `json:"lat"`
	Lng         float64   `json:"lng"`
	L1Cell      CellID    `json:"l1Cell"`
	L0Cell      CellID    `json:"l0Cell"`
	Members     []StopID  `json:"members"`
	RouteDegree int       `json:"routeDegree"`
}

// CellAt returns the station's parent cell at the given level
func (s Station) CellAt(level Level) CellID {
	if level == L0 {
		return s.L0Cell
	}
	return s.L1Cell
}

// Cell is a hexagonal region hosting at least one station
type Cell struct {
	ID        CellID   `json:"cellId"`
	Level     Level    `json:"level"`
	Lat       float64  `json:"lat"`
	Lng       float64  `json:"lng"`
	L0Parent  CellID   `json:"l0Parent,omitempty"` // set for L1 cells only
	Neighbors []CellID `json:"neighbors"`
}

// Portal is a station designated to carry cross-cell traffic for a cell
type Portal struct {
	Level   Level     `json:"level"`
	Cell    CellID    `json:"cellId"`
	Station StationID `json:"stationId"`
	Score   float64   `json:"score"`
	Rank    int       `json:"rank"`
}

// EdgeSummary is a candidate travel-time edge between portals of two
// neighbouring cells
type EdgeSummary struct {
	Level       Level     `json:"level"`
	FromCell    CellID    `json:"fromCell"`
	ToCell      CellID    `json:"toCell"`
	FromStation StationID `json:"fromStation"`
	ToStation   StationID `json:"toStation"`
	Minutes     float64   `json:"minutes"`
	Rank        int       `json:"rank"`
}
