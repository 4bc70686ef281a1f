// Package spatialtest provides a deterministic square grid implementing
// spatial.Index for tests that need to reason about exact cell layouts.
package spatialtest

import (
	"fmt"
	"math"

	"github.com/thigam/Nishukishe-Back-End-sub001/internal/models"
)

// Grid buckets coordinates into square cells. The cell edge at resolution
// r is Base / 2^r degrees.
type Grid struct {
	Base float64
}

// NewGrid returns a grid whose resolution 0 cell is base degrees wide
func NewGrid(base float64) Grid {
	return Grid{Base: base}
}

func (g Grid) size(res int) float64 {
	return g.Base / math.Pow(2, float64(res))
}

// CellOf returns "res:row:col" for the point
func (g Grid) CellOf(lat, lng float64, res int) (models.CellID, error) {
	if res < 0 {
		return "", fmt.Errorf("invalid resolution %d", res)
	}
	s := g.size(res)
	row := int(math.Floor(lat / s))
	col := int(math.Floor(lng / s))
	return cellID(res, row, col), nil
}

// KRing returns the (2k+1)^2 block of cells centred on the cell
func (g Grid) KRing(id models.CellID, k int) ([]models.CellID, error) {
	var res, row, col int
	if _, err := fmt.Sscanf(string(id), "%d:%d:%d", &res, &row, &col); err != nil {
		return nil, fmt.Errorf("invalid grid cell %q: %w", id, err)
	}
	out := make([]models.CellID, 0, (2*k+1)*(2*k+1))
	for dr := -k; dr <= k; dr++ {
		for dc := -k; dc <= k; dc++ {
			out = append(out, cellID(res, row+dr, col+dc))
		}
	}
	return out, nil
}

// Parent returns the cell at the coarser resolution covering the cell
func (g Grid) Parent(id models.CellID, res int) (models.CellID, error) {
	var r, row, col int
	if _, err := fmt.Sscanf(string(id), "%d:%d:%d", &r, &row, &col); err != nil {
		return "", fmt.Errorf("invalid grid cell %q: %w", id, err)
	}
	if res < 0 || res > r {
		return "", fmt.Errorf("invalid parent resolution %d for %s", res, id)
	}
	div := math.Pow(2, float64(r-res))
	return cellID(res, int(math.Floor(float64(row)/div)), int(math.Floor(float64(col)/div))), nil
}

func cellID(res, row, col int) models.CellID {
	return models.CellID(fmt.Sprintf("%d:%d:%d", res, row, col))
}
