// Package gtfs reads a static GTFS feed and folds its trips into the
// stops and route variants the planner works with.
package gtfs

import (
	"archive/zip"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"
)

// Feed is the subset of a GTFS feed needed to derive route variants
type Feed struct {
	Stops     []Stop
	Routes    []Route
	Trips     []Trip
	StopTimes []StopTime
}

// Stop represents a stop from stops.txt
type Stop struct {
	StopID        string
	StopName      string
	StopLat       float64
	StopLon       float64
	LocationType  int
	ParentStation string
}

// Route represents a route from routes.txt
type Route struct {
	RouteID        string
	AgencyID       string
	RouteShortName string
	RouteLongName  string
}

// Trip represents a trip from trips.txt
type Trip struct {
	RouteID     string
	TripID      string
	DirectionID int
}

// StopTime represents a stop time from stop_times.txt
type StopTime struct {
	TripID       string
	StopID       string
	StopSequence int
}

// Parse reads a GTFS zip file. stops.txt, routes.txt, trips.txt and
// stop_times.txt are required.
func Parse(zipPath string) (*Feed, error) {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open zip: %w", err)
	}
	defer r.Close()

	files := make(map[string]*zip.File)
	for _, f := range r.File {
		files[f.Name] = f
	}

	feed := &Feed{}
	steps := []struct {
		name string
		read func(row func(string) string)
	}{
		{"stops.txt", func(row func(string) string) {
			lat, _ := strconv.ParseFloat(row("stop_lat"), 64)
			lon, _ := strconv.ParseFloat(row("stop_lon"), 64)
			locType, _ := strconv.Atoi(row("location_type"))
			feed.Stops = append(feed.Stops, Stop{
				StopID:        row("stop_id"),
				StopName:      row("stop_name"),
				StopLat:       lat,
				StopLon:       lon,
				LocationType:  locType,
				ParentStation: row("parent_station"),
			})
		}},
		{"routes.txt", func(row func(string) string) {
			feed.Routes = append(feed.Routes, Route{
				RouteID:        row("route_id"),
				AgencyID:       row("agency_id"),
				RouteShortName: row("route_short_name"),
				RouteLongName:  row("route_long_name"),
			})
		}},
		{"trips.txt", func(row func(string) string) {
			directionID, _ := strconv.Atoi(row("direction_id"))
			feed.Trips = append(feed.Trips, Trip{
				RouteID:     row("route_id"),
				TripID:      row("trip_id"),
				DirectionID: directionID,
			})
		}},
		{"stop_times.txt", func(row func(string) string) {
			seq, _ := strconv.Atoi(row("stop_sequence"))
			feed.StopTimes = append(feed.StopTimes, StopTime{
				TripID:       row("trip_id"),
				StopID:       row("stop_id"),
				StopSequence: seq,
			})
		}},
	}

	for _, step := range steps {
		f, ok := files[step.name]
		if !ok {
			return nil, fmt.Errorf("feed has no %s", step.name)
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", step.name, err)
		}
		err = readCSV(rc, step.read)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", step.name, err)
		}
	}

	log.Printf("GTFS parsed: %d routes, %d stops, %d trips, %d stop times",
		len(feed.Routes), len(feed.Stops), len(feed.Trips), len(feed.StopTimes))
	return feed, nil
}

// readCSV calls fn for each data row with a field lookup by header name.
// Malformed rows are skipped.
func readCSV(r io.Reader, fn func(row func(string) string)) error {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return err
	}
	idx := makeIndex(header)

	for {
		record, err := reader.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				continue
			}
			return err
		}
		fn(func(field string) string { return getField(record, idx, field) })
	}
}

func makeIndex(header []string) map[string]int {
	idx := make(map[string]int)
	for i, h := range header {
		// strip a UTF-8 BOM on the first column
		idx[strings.TrimPrefix(strings.TrimSpace(h), "\ufeff")] = i
	}
	return idx
}

func getField(record []string, idx map[string]int, field string) string {
	if i, ok := idx[field]; ok && i < len(record) {
		return strings.TrimSpace(record[i])
	}
	return ""
}
