package hubs

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thigam/Nishukishe-Back-End-sub001/internal/config"
	"github.com/thigam/Nishukishe-Back-End-sub001/internal/geo"
	"github.com/thigam/Nishukishe-Back-End-sub001/internal/models"
	"github.com/thigam/Nishukishe-Back-End-sub001/internal/spatial/spatialtest"
)

// cbd covers roughly 36.80-36.85 E, 1.26-1.31 S
var cbd = config.Region{
	ID: "cbd",
	Polygon: orb.Polygon{orb.Ring{
		{36.80, -1.31}, {36.85, -1.31}, {36.85, -1.26}, {36.80, -1.26}, {36.80, -1.31},
	}},
}

func testOptions() Options {
	opts := DefaultOptions()
	opts.Res = 6 // 0.001 degree cells on the test grid
	return opts
}

func newSelector(t *testing.T, in Input, opts Options) *Selector {
	t.Helper()
	s, err := NewSelector(in, spatialtest.NewGrid(0.064), opts)
	require.NoError(t, err)
	return s
}

func TestSpacingKeepsOneHubInTightCluster(t *testing.T) {
	// five stops spread over ~130 m
	stops := []models.Stop{
		{ID: "k1", Lat: -1.28600, Lng: 36.82500},
		{ID: "k2", Lat: -1.28630, Lng: 36.82530},
		{ID: "k3", Lat: -1.28660, Lng: 36.82560},
		{ID: "k4", Lat: -1.28690, Lng: 36.82590},
		{ID: "k5", Lat: -1.28720, Lng: 36.82620},
	}
	opts := testOptions()
	opts.K = 3
	s := newSelector(t, Input{Stops: stops}, opts)

	hubs := s.SelectRegion(cbd, nil)
	require.Len(t, hubs, 1)
	assert.Equal(t, 1, hubs[0].Rank)
	assert.False(t, hubs[0].Curated)
	assert.NotEmpty(t, hubs[0].ID)
}

func TestSpacedStopsAllQualify(t *testing.T) {
	stops := []models.Stop{
		{ID: "a", Lat: -1.28000, Lng: 36.81000},
		{ID: "b", Lat: -1.28000, Lng: 36.82000},
		{ID: "c", Lat: -1.28000, Lng: 36.83000},
		{ID: "d", Lat: -1.28000, Lng: 36.84000},
	}
	routes := []models.Route{
		{ID: "r1", StopIDs: []models.StopID{"a", "b", "c"}, TripCount: 10},
		{ID: "r2", StopIDs: []models.StopID{"b", "d"}, TripCount: 10},
	}
	opts := testOptions()
	opts.K = 3
	s := newSelector(t, Input{Stops: stops, Routes: routes}, opts)

	hubs := s.SelectRegion(cbd, nil)
	require.Len(t, hubs, 3)
	assert.Equal(t, models.StopID("b"), hubs[0].StopID, "b is on both routes")
	for i := 1; i < len(hubs); i++ {
		assert.GreaterOrEqual(t, hubs[i-1].Score, hubs[i].Score)
		for j := 0; j < i; j++ {
			a, _ := s.index.Get(hubs[i].StopID)
			b, _ := s.index.Get(hubs[j].StopID)
			assert.GreaterOrEqual(t, geo.Distance(a.Point(), b.Point()), opts.SpacingM)
		}
	}
}

func TestMetricsAndScore(t *testing.T) {
	stops := []models.Stop{
		{ID: "s", Lat: -1.28050, Lng: 36.81050},
		{ID: "t", Lat: -1.28050, Lng: 36.81550},
		{ID: "u", Lat: -1.28050, Lng: 36.82050},
		{ID: "near", Lat: -1.28060, Lng: 36.81060}, // ~15 m from s, same cell
	}
	routes := []models.Route{
		{ID: "r1", StopIDs: []models.StopID{"s", "t"}, TripCount: 12},
		{ID: "r2", StopIDs: []models.StopID{"near", "s", "u"}, TripCount: 3},
	}
	opts := testOptions()
	s := newSelector(t, Input{
		Stops:      stops,
		Routes:     routes,
		WalkDegree: map[models.StopID]int{"s": 30},
	}, opts)

	m := s.Metrics("s")
	assert.Equal(t, 2, m.CrossCellReach, "cells of t and u")
	assert.Equal(t, 2, m.RouteDegree)
	assert.Equal(t, 15, m.TripDensity)
	assert.Equal(t, 20, m.WalkDegree, "capped")
	assert.Equal(t, 1, m.MicroCluster)
	assert.Greater(t, m.RouteKm, 1.5)

	w := DefaultWeights()
	want := w.Reach*2 + w.Degree*2 + w.RouteKm*m.RouteKm + w.Walk*20 + w.Trips*15 + w.Cluster*1
	assert.InDelta(t, want, s.Score(m), 1e-9)

	assert.Equal(t, models.HubMetrics{}, s.Metrics("missing"))
}

func TestMembersByCells(t *testing.T) {
	stops := []models.Stop{
		{ID: "in", Lat: -1.28050, Lng: 36.81050},
		{ID: "out", Lat: -1.28050, Lng: 36.81550},
	}
	s := newSelector(t, Input{Stops: stops}, testOptions())
	region := config.Region{ID: "one-cell", Cells: []models.CellID{s.stopCell["in"]}}

	members := s.Members(region)
	require.Len(t, members, 1)
	assert.Equal(t, models.StopID("in"), members[0].ID)
}

func TestCuratedForcedAndSubstituted(t *testing.T) {
	stops := []models.Stop{
		{ID: "kencom", Lat: -1.28570, Lng: 36.82500},
		{ID: "ambassadeur", Lat: -1.28590, Lng: 36.82520}, // ~30 m from kencom
		{ID: "odeon", Lat: -1.28300, Lng: 36.82700},
		{ID: "far", Lat: -1.27000, Lng: 36.84000},
	}
	curated := []config.CuratedHub{
		{Region: "cbd", StopID: "kencom", Lat: -1.28570, Lng: 36.82500},
		// renamed stop, declared ~45 m from odeon
		{Region: "cbd", StopID: "odeon-old", Lat: -1.28330, Lng: 36.82720},
		{Region: "cbd", StopID: "ambassadeur", Lat: -1.28590, Lng: 36.82520},
		{Region: "other", StopID: "far", Lat: -1.27, Lng: 36.84},
		{Region: "cbd", StopID: "vanished", Lat: -1.0, Lng: 36.0},
	}
	opts := testOptions()
	opts.K = 2
	s := newSelector(t, Input{Stops: stops}, opts)

	hubs := s.SelectRegion(cbd, curated)
	require.Len(t, hubs, 3, "curated count exceeds K")

	assert.Equal(t, models.StopID("kencom"), hubs[0].StopID)
	assert.True(t, hubs[0].Curated)

	assert.Equal(t, models.StopID("odeon"), hubs[1].StopID)
	assert.Equal(t, models.StopID("odeon-old"), hubs[1].Metrics.SubstitutedFor)
	assert.InDelta(t, 40, hubs[1].Metrics.SubstitutionM, 10)

	// curated hubs ignore spacing
	assert.Equal(t, models.StopID("ambassadeur"), hubs[2].StopID)
	for i, h := range hubs {
		assert.Equal(t, i+1, h.Rank)
		assert.Equal(t, "cbd", h.RegionID)
	}
}

func TestSelectAcrossRegions(t *testing.T) {
	stops := []models.Stop{
		{ID: "a", Lat: -1.28000, Lng: 36.81000},
		{ID: "z", Lat: -1.20000, Lng: 36.90000},
	}
	north := config.Region{ID: "north", Polygon: orb.Polygon{orb.Ring{
		{36.88, -1.22}, {36.92, -1.22}, {36.92, -1.18}, {36.88, -1.18}, {36.88, -1.22},
	}}}
	s := newSelector(t, Input{Stops: stops}, testOptions())

	hubs := s.Select([]config.Region{cbd, north}, nil)
	require.Len(t, hubs, 2)
	assert.Equal(t, "cbd", hubs[0].RegionID)
	assert.Equal(t, models.StopID("z"), hubs[1].StopID)
}
