package models

import (
	"errors"
	"strings"

	"github.com/paulmach/orb"
)

// StopID identifies a physical boarding point
type StopID string

// RouteID identifies one physical sacco route variant
type RouteID string

// Stop represents a physical boarding point from the stops table.
// Stops are created by external ingestion and are read-only here.
type Stop struct {
	ID   StopID  `db:"stop_id" json:"stopId"`
	Name string  `db:"stop_name" json:"stopName,omitempty"`
	Lat  float64 `db:"stop_lat" json:"lat"`
	Lng  float64 `db:"stop_lon" json:"lng"`
}

// Point returns the stop location as an orb point (lng, lat order)
func (s Stop) Point() orb.Point {
	return orb.Point{s.Lng, s.Lat}
}

// Validate checks that the stop has an id and a plausible coordinate
func (s Stop) Validate() error {
	if strings.TrimSpace(string(s.ID)) == "" {
		return errors.New("stop_id cannot be empty")
	}
	if s.Lat < -90 || s.Lat > 90 {
		return errors.New("stop latitude out of range")
	}
	if s.Lng < -180 || s.Lng > 180 {
		return errors.New("stop longitude out of range")
	}
	if s.Lat == 0 && s.Lng == 0 {
		return errors.New("stop has null island coordinate")
	}
	return nil
}

// Route is an ordered sequence of stops forming one physical bus route variant
type Route struct {
	ID        RouteID  `db:"sacco_route_id" json:"saccoRouteId"`
	Name      string   `db:"route_name" json:"routeName,omitempty"`
	StopIDs   []StopID `db:"stop_ids" json:"stopIds"`
	TripCount int      `db:"trip_count" json:"tripCount"` // scheduled trips, 0 when unknown
}

// Validate checks the route has an id and at least two stops
func (r Route) Validate() error {
	if strings.TrimSpace(string(r.ID)) == "" {
		return errors.New("sacco_route_id cannot be empty")
	}
	if len(r.StopIDs) < 2 {
		return errors.New("route must have at least two stops")
	}
	return nil
}
