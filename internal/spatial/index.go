// Package spatial wraps the hexagonal grid used to bucket stops and
// stations into cells.
package spatial

import (
	"fmt"

	"github.com/uber/h3-go/v4"

	"github.com/thigam/Nishukishe-Back-End-sub001/internal/models"
)

// Index maps coordinates to hexagonal cells and enumerates cell rings.
// KRing(c, 1) must include every hex neighbour of c. Parent returns the
// coarser cell that contains c in the grid's own hierarchy.
type Index interface {
	CellOf(lat, lng float64, res int) (models.CellID, error)
	KRing(cell models.CellID, k int) ([]models.CellID, error)
	Parent(cell models.CellID, res int) (models.CellID, error)
}

// H3 implements Index with Uber's H3 grid
type H3 struct{}

// CellOf returns the H3 cell containing the point at the given resolution
func (H3) CellOf(lat, lng float64, res int) (models.CellID, error) {
	if res < 0 || res > 15 {
		return "", fmt.Errorf("invalid h3 resolution %d", res)
	}
	cell := h3.LatLngToCell(h3.NewLatLng(lat, lng), res)
	if !cell.IsValid() {
		return "", fmt.Errorf("no h3 cell for (%f, %f)", lat, lng)
	}
	return models.CellID(cell.String()), nil
}

// KRing returns the cell and every cell within k grid steps of it
func (H3) KRing(id models.CellID, k int) ([]models.CellID, error) {
	cell := h3.Cell(h3.IndexFromString(string(id)))
	if !cell.IsValid() {
		return nil, fmt.Errorf("invalid h3 cell %q", id)
	}
	disk := h3.GridDisk(cell, k)
	out := make([]models.CellID, 0, len(disk))
	for _, c := range disk {
		out = append(out, models.CellID(c.String()))
	}
	return out, nil
}

// Parent returns the H3 ancestor of the cell at a coarser resolution
func (H3) Parent(id models.CellID, res int) (models.CellID, error) {
	cell := h3.Cell(h3.IndexFromString(string(id)))
	if !cell.IsValid() {
		return "", fmt.Errorf("invalid h3 cell %q", id)
	}
	if res < 0 || res > cell.Resolution() {
		return "", fmt.Errorf("invalid parent resolution %d for %s", res, id)
	}
	return models.CellID(cell.Parent(res).String()), nil
}
