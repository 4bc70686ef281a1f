package models

import "github.com/paulmach/orb"

// Hub is a high-priority transfer stop within a named region
type Hub struct {
	ID       string     `json:"hubId"`
	RegionID string     `json:"regionId"`
	StopID   StopID     `json:"stopId"`
	Rank     int        `json:"rank"`
	Score    float64    `json:"score"`
	Curated  bool       `json:"curated"`
	Metrics  HubMetrics `json:"metrics"`
}

// HubMetrics are the scoring signals recorded alongside a hub
type HubMetrics struct {
	CrossCellReach int     `json:"crossCellReach"`
	RouteDegree    int     `json:"routeDegree"`
	RouteKm        float64 `json:"routeKm"`
	WalkDegree     int     `json:"walkDegree"`
	TripDensity    int     `json:"tripDensity"`
	MicroCluster   int     `json:"microCluster"`

	// Set when a curated stop id was missing and a nearby stop stood in
	SubstitutedFor StopID  `json:"substitutedFor,omitempty"`
	SubstitutionM  float64 `json:"substitutionM,omitempty"`
}

// TransferEdge is a directed walking edge between two stops
type TransferEdge struct {
	From        StopID         `json:"fromStopId"`
	To          StopID         `json:"toStopId"`
	WalkSeconds int            `json:"walkTimeSeconds"`
	Geometry    orb.LineString `json:"-"`
	Phase       int            `json:"phase"`
}

// EdgeKey is an ordered (from, to) stop pair
type EdgeKey struct {
	From StopID
	To   StopID
}

// Key returns the ordered pair identifying the edge
func (e TransferEdge) Key() EdgeKey {
	return EdgeKey{From: e.From, To: e.To}
}
