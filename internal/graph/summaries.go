package graph

import (
	"fmt"
	"log"
	"sort"

	"github.com/thigam/Nishukishe-Back-End-sub001/internal/geo"
	"github.com/thigam/Nishukishe-Back-End-sub001/internal/models"
)

// BuildEdgeSummaries precomputes the m cheapest portal-to-portal crow-flies
// edges for every ordered neighbour pair at the level. Pairs where either
// side has no portal are skipped; that is normal for thinly served border
// cells. Must run after SelectPortals for the same level.
func (b *CellGraphBuilder) BuildEdgeSummaries(level models.Level, m int) []models.EdgeSummary {
	portals := b.portals[level]
	var out []models.EdgeSummary

	for _, cell := range b.graph.CellsAt(level) {
		from := portals[cell.ID]
		if len(from) == 0 {
			continue
		}
		for _, nb := range cell.Neighbors {
			to := portals[nb]
			if len(to) == 0 {
				continue
			}

			pairs := make([]models.EdgeSummary, 0, len(from)*len(to))
			for _, pa := range from {
				sa, _ := b.stations.Get(pa.Station)
				for _, pb := range to {
					sb, _ := b.stations.Get(pb.Station)
					pairs = append(pairs, models.EdgeSummary{
						Level:       level,
						FromCell:    cell.ID,
						ToCell:      nb,
						FromStation: pa.Station,
						ToStation:   pb.Station,
						Minutes:     geo.BusMinutes(sa.Lat, sa.Lng, sb.Lat, sb.Lng),
					})
				}
			}

			sort.SliceStable(pairs, func(i, j int) bool {
				if pairs[i].Minutes != pairs[j].Minutes {
					return pairs[i].Minutes < pairs[j].Minutes
				}
				if pairs[i].FromStation != pairs[j].FromStation {
					return pairs[i].FromStation < pairs[j].FromStation
				}
				return pairs[i].ToStation < pairs[j].ToStation
			})
			if m > 0 && len(pairs) > m {
				pairs = pairs[:m]
			}
			for i := range pairs {
				pairs[i].Rank = i + 1
			}
			out = append(out, pairs...)
		}
	}
	return out
}

// Result is a complete cell graph ready to be persisted
type Result struct {
	Stations  []models.Station
	Cells     []models.Cell
	Portals   []models.Portal
	Summaries []models.EdgeSummary
}

// Build runs CollectCells, then SelectPortals and BuildEdgeSummaries for
// both levels
func (b *CellGraphBuilder) Build(k, m int) (*Result, error) {
	if err := b.CollectCells(); err != nil {
		return nil, fmt.Errorf("failed to collect cells: %w", err)
	}

	res := &Result{Stations: b.stations.Stations}
	for _, level := range models.Levels() {
		res.Cells = append(res.Cells, b.graph.CellsAt(level)...)

		byCell := b.SelectPortals(level, k)
		cells := make([]models.CellID, 0, len(byCell))
		for c := range byCell {
			cells = append(cells, c)
		}
		sort.Slice(cells, func(i, j int) bool { return cells[i] < cells[j] })
		nPortals := 0
		for _, c := range cells {
			res.Portals = append(res.Portals, byCell[c]...)
			nPortals += len(byCell[c])
		}

		summaries := b.BuildEdgeSummaries(level, m)
		res.Summaries = append(res.Summaries, summaries...)

		log.Printf("Cells %s: %d cells, %d portals, %d edge summaries",
			level, b.graph.Len(level), nPortals, len(summaries))
	}
	return res, nil
}
