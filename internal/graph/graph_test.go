package graph

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thigam/Nishukishe-Back-End-sub001/internal/geo"
	"github.com/thigam/Nishukishe-Back-End-sub001/internal/models"
	"github.com/thigam/Nishukishe-Back-End-sub001/internal/spatial"
	"github.com/thigam/Nishukishe-Back-End-sub001/internal/spatial/spatialtest"
)

// With a 0.064 degree base, station cells are 0.001 degrees wide, L1
// cells 0.008 and L0 cells 0.032.
func testIndex() spatialtest.Grid {
	return spatialtest.NewGrid(0.064)
}

func testConfig() StationConfig {
	return StationConfig{CBDRes: 7, OuterRes: 6, L1Res: 3, L0Res: 1}
}

func stop(id string, lat, lng float64) models.Stop {
	return models.Stop{ID: models.StopID(id), Lat: lat, Lng: lng}
}

func route(id string, stops ...string) models.Route {
	r := models.Route{ID: models.RouteID(id)}
	for _, s := range stops {
		r.StopIDs = append(r.StopIDs, models.StopID(s))
	}
	return r
}

func TestBuildStationsClustersSharedCells(t *testing.T) {
	stops := []models.Stop{
		stop("s1", -1.29950, 36.80050),
		stop("s2", -1.29960, 36.80060), // same 0.001 cell as s1
		stop("s3", -1.29750, 36.80250),
	}
	routes := []models.Route{route("r1", "s1", "s3"), route("r2", "s2", "s3")}

	set, err := BuildStations(stops, routes, testIndex(), testConfig())
	require.NoError(t, err)
	require.Equal(t, 2, set.Len())

	st1, ok := set.StationOf("s1")
	require.True(t, ok)
	st2, _ := set.StationOf("s2")
	assert.Equal(t, st1, st2)

	station, ok := set.Get(st1)
	require.True(t, ok)
	assert.InDelta(t, -1.29955, station.Lat, 1e-9)
	assert.InDelta(t, 36.80055, station.Lng, 1e-9)
	assert.ElementsMatch(t, []models.StopID{"s1", "s2"}, station.Members)
	assert.Equal(t, 2, station.RouteDegree)
	assert.NotEmpty(t, station.L1Cell)
	assert.NotEmpty(t, station.L0Cell)
}

func TestBuildStationsUsesFinerResolutionInsideCBD(t *testing.T) {
	cfg := DefaultStationConfig()
	grid := spatialtest.NewGrid(0.064)
	cfg.CBDRes, cfg.OuterRes, cfg.L1Res, cfg.L0Res = 8, 6, 3, 1

	// Two stops 0.0004 apart inside the CBD land in different res-8 cells
	// (0.00025 wide) while the same spacing outside shares a res-6 cell.
	stops := []models.Stop{
		stop("in1", -1.28510, 36.82110),
		stop("in2", -1.28510, 36.82150),
		stop("out1", -1.35010, 36.90010),
		stop("out2", -1.35010, 36.90050),
	}
	set, err := BuildStations(stops, nil, grid, cfg)
	require.NoError(t, err)

	in1, _ := set.StationOf("in1")
	in2, _ := set.StationOf("in2")
	out1, _ := set.StationOf("out1")
	out2, _ := set.StationOf("out2")
	assert.NotEqual(t, in1, in2)
	assert.Equal(t, out1, out2)
}

func TestBuildStationsSkipsInvalidStops(t *testing.T) {
	stops := []models.Stop{stop("ok", -1.3, 36.8), stop("bad", 0, 0)}
	set, err := BuildStations(stops, nil, testIndex(), testConfig())
	require.NoError(t, err)

	_, ok := set.StationOf("bad")
	assert.False(t, ok)
	assert.Equal(t, 1, set.Len())
}

func genStops(lats, lngs []float64) []models.Stop {
	n := len(lats)
	if len(lngs) < n {
		n = len(lngs)
	}
	out := make([]models.Stop, n)
	for i := 0; i < n; i++ {
		out[i] = stop(fmt.Sprintf("p%03d", i), lats[i], lngs[i])
	}
	return out
}

func TestStationsPartitionStopsProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	properties.Property("every stop belongs to exactly one station", prop.ForAll(
		func(lats, lngs []float64) bool {
			stops := genStops(lats, lngs)
			set, err := BuildStations(stops, nil, testIndex(), testConfig())
			if err != nil {
				return false
			}
			seen := make(map[models.StopID]int)
			for _, st := range set.Stations {
				for _, m := range st.Members {
					seen[m]++
					if back, _ := set.StationOf(m); back != st.ID {
						return false
					}
				}
			}
			if len(seen) != len(stops) {
				return false
			}
			for _, n := range seen {
				if n != 1 {
					return false
				}
			}
			return true
		},
		gen.SliceOfN(60, gen.Float64Range(-1.35, -1.25)),
		gen.SliceOfN(60, gen.Float64Range(36.75, 36.85)),
	))

	properties.TestingRun(t)
}

func TestNeighbourSymmetryProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	properties.Property("neighbour links are symmetric", prop.ForAll(
		func(lats, lngs []float64) bool {
			set, err := BuildStations(genStops(lats, lngs), nil, testIndex(), testConfig())
			if err != nil {
				return false
			}
			b := NewCellGraphBuilder(set, nil, testIndex())
			if err := b.CollectCells(); err != nil {
				return false
			}
			g := b.Graph()
			for _, level := range models.Levels() {
				for _, c := range g.CellsAt(level) {
					for _, n := range c.Neighbors {
						if !g.Has(level, n) || !containsCell(g.Neighbors(level, n), c.ID) {
							return false
						}
					}
				}
			}
			return true
		},
		gen.SliceOfN(40, gen.Float64Range(-1.40, -1.20)),
		gen.SliceOfN(40, gen.Float64Range(36.70, 36.90)),
	))

	properties.TestingRun(t)
}

func TestCollectCellsParentsAndCentroids(t *testing.T) {
	stops := []models.Stop{
		stop("a", -1.29950, 36.80050),
		stop("b", -1.29750, 36.80250),
	}
	set, err := BuildStations(stops, nil, testIndex(), testConfig())
	require.NoError(t, err)

	b := NewCellGraphBuilder(set, nil, testIndex())
	require.NoError(t, b.CollectCells())
	g := b.Graph()

	require.Equal(t, 1, g.Len(models.L1))
	require.Equal(t, 1, g.Len(models.L0))

	l1 := g.CellsAt(models.L1)[0]
	l0 := g.CellsAt(models.L0)[0]
	assert.Equal(t, l0.ID, l1.L0Parent)
	assert.InDelta(t, -1.2985, l1.Lat, 1e-9)
	assert.InDelta(t, 36.8015, l1.Lng, 1e-9)
	assert.Empty(t, l1.Neighbors)
}

// twoCellFixture places two stations in each of two horizontally adjacent
// L1 cells, connected pairwise by routes.
func twoCellFixture(t *testing.T) (*StationSet, []models.Route) {
	t.Helper()
	stops := []models.Stop{
		stop("a1", -1.29950, 36.80050),
		stop("a2", -1.29750, 36.80250),
		stop("b1", -1.29950, 36.80850),
		stop("b2", -1.29750, 36.81050),
	}
	routes := []models.Route{route("r1", "a1", "b1"), route("r2", "a2", "b2")}
	set, err := BuildStations(stops, routes, testIndex(), testConfig())
	require.NoError(t, err)
	return set, routes
}

func TestBuildEdgeSummariesTwoByTwo(t *testing.T) {
	set, routes := twoCellFixture(t)

	for _, m := range []int{1, 3, 4, 10} {
		b := NewCellGraphBuilder(set, routes, testIndex())
		require.NoError(t, b.CollectCells())
		b.SelectPortals(models.L1, 2)
		summaries := b.BuildEdgeSummaries(models.L1, m)

		byPair := make(map[[2]models.CellID][]models.EdgeSummary)
		for _, s := range summaries {
			key := [2]models.CellID{s.FromCell, s.ToCell}
			byPair[key] = append(byPair[key], s)
		}
		require.Len(t, byPair, 2, "one entry per direction")

		want := m
		if want > 4 {
			want = 4
		}
		for key, list := range byPair {
			require.Len(t, list, want, "pair %v with m=%d", key, m)
			for i := 1; i < len(list); i++ {
				assert.LessOrEqual(t, list[i-1].Minutes, list[i].Minutes)
				assert.Equal(t, i+1, list[i].Rank)
			}

			// the kept summaries are the cheapest of all four pairs
			var all []float64
			for _, pa := range b.Portals(models.L1)[key[0]] {
				sa, _ := set.Get(pa.Station)
				for _, pb := range b.Portals(models.L1)[key[1]] {
					sb, _ := set.Get(pb.Station)
					all = append(all, geo.BusMinutes(sa.Lat, sa.Lng, sb.Lat, sb.Lng))
				}
			}
			require.Len(t, all, 4)
			for _, kept := range list {
				cheaper := 0
				for _, v := range all {
					if v < kept.Minutes {
						cheaper++
					}
				}
				assert.Less(t, cheaper, want)
			}
		}
	}
}

func TestBuildEdgeSummariesSkipsPairsWithoutPortals(t *testing.T) {
	set, routes := twoCellFixture(t)
	b := NewCellGraphBuilder(set, routes, testIndex())
	require.NoError(t, b.CollectCells())

	// k=0 keeps every station; emptying one side must drop the pair
	b.SelectPortals(models.L1, 0)
	for cell := range b.portals[models.L1] {
		b.portals[models.L1][cell] = nil
		break
	}
	assert.Empty(t, b.BuildEdgeSummaries(models.L1, 4))
}

func TestSelectPortalsBoundedAndSorted(t *testing.T) {
	// Three stations in one L1 cell, two more in the neighbouring cell
	stops := []models.Stop{
		stop("x1", -1.29950, 36.80050),
		stop("x2", -1.29750, 36.80250),
		stop("x3", -1.29650, 36.80450),
		stop("y1", -1.29950, 36.80850),
		stop("y2", -1.29750, 36.81050),
	}
	routes := []models.Route{
		route("cross1", "x1", "y1"),
		route("cross2", "x2", "y1"),
		route("cross3", "x2", "y2"),
		route("local", "x3", "x1"),
	}
	set, err := BuildStations(stops, routes, testIndex(), testConfig())
	require.NoError(t, err)

	b := NewCellGraphBuilder(set, routes, testIndex())
	require.NoError(t, b.CollectCells())

	x2, _ := set.StationOf("x2")
	x1, _ := set.StationOf("x1")
	x3, _ := set.StationOf("x3")
	xCell := set.Stations[set.byID[x2]].L1Cell

	portals := b.SelectPortals(models.L1, 2)
	list := portals[xCell]
	require.Len(t, list, 2)
	assert.Equal(t, x2, list[0].Station)
	assert.Equal(t, x1, list[1].Station)
	assert.NotContains(t, []models.StationID{list[0].Station, list[1].Station}, x3)

	for cell, ps := range portals {
		assert.LessOrEqual(t, len(ps), 2, "cell %s", cell)
		for i := 1; i < len(ps); i++ {
			assert.GreaterOrEqual(t, ps[i-1].Score, ps[i].Score)
		}
	}

	// x2: 2 crossing routes, 1 neighbour cell reached, degree 2
	assert.Equal(t, 3*2.0+2*1.0+1*2.0, list[0].Score)
}

func TestBuildProducesBothLevels(t *testing.T) {
	set, routes := twoCellFixture(t)
	res, err := NewCellGraphBuilder(set, routes, testIndex()).Build(2, 3)
	require.NoError(t, err)

	levels := make(map[models.Level]int)
	for _, c := range res.Cells {
		levels[c.Level]++
	}
	assert.Equal(t, 2, levels[models.L1])
	assert.Equal(t, 1, levels[models.L0])
	assert.Len(t, res.Stations, 4)
	assert.Len(t, res.Summaries, 6) // 3 per direction at L1, none at L0
}

func TestH3StationLevelsNest(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	stops := make([]models.Stop, 0, 3000)
	for i := 0; i < 3000; i++ {
		stops = append(stops, stop(fmt.Sprintf("s%d", i),
			-1.45+rng.Float64()*0.35, 36.65+rng.Float64()*0.35))
	}

	idx := spatial.H3{}
	cfg := DefaultStationConfig()
	set, err := BuildStations(stops, nil, idx, cfg)
	require.NoError(t, err)

	b := NewCellGraphBuilder(set, nil, idx)
	require.NoError(t, b.CollectCells())

	for _, st := range set.Stations {
		parent, err := idx.Parent(st.L1Cell, cfg.L0Res)
		require.NoError(t, err)
		require.Equal(t, parent, st.L0Cell, "station %s", st.ID)

		cell, ok := b.Graph().Cell(models.L1, st.L1Cell)
		require.True(t, ok)
		require.Equal(t, st.L0Cell, cell.L0Parent, "station %s", st.ID)
	}
}

func TestStationLevelsNestOnGrid(t *testing.T) {
	stops := []models.Stop{
		stop("a", -1.2001, 36.8001),
		stop("b", -1.2301, 36.8301),
		stop("c", -1.2009, 36.8009),
	}
	idx := testIndex()
	cfg := testConfig()
	set, err := BuildStations(stops, nil, idx, cfg)
	require.NoError(t, err)

	b := NewCellGraphBuilder(set, nil, idx)
	require.NoError(t, b.CollectCells())
	for _, st := range set.Stations {
		cell, ok := b.Graph().Cell(models.L1, st.L1Cell)
		require.True(t, ok)
		assert.Equal(t, st.L0Cell, cell.L0Parent)
	}
}
