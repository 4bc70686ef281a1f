package spatial

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thigam/Nishukishe-Back-End-sub001/internal/models"
	"github.com/thigam/Nishukishe-Back-End-sub001/internal/spatial/spatialtest"
)

func TestH3CellOfIsStable(t *testing.T) {
	var idx Index = H3{}

	a, err := idx.CellOf(-1.2833, 36.8167, 9)
	require.NoError(t, err)
	b, err := idx.CellOf(-1.2833, 36.8167, 9)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	coarse, err := idx.CellOf(-1.2833, 36.8167, 5)
	require.NoError(t, err)
	assert.NotEqual(t, a, coarse)
}

func TestH3KRingIncludesSelfAndNeighbours(t *testing.T) {
	var idx Index = H3{}

	c, err := idx.CellOf(-1.2833, 36.8167, 7)
	require.NoError(t, err)

	ring, err := idx.KRing(c, 1)
	require.NoError(t, err)
	assert.Len(t, ring, 7)
	assert.Contains(t, ring, c)

	// every neighbour sees c in its own ring
	for _, n := range ring {
		back, err := idx.KRing(n, 1)
		require.NoError(t, err)
		assert.Contains(t, back, c)
	}
}

func TestH3Errors(t *testing.T) {
	var idx Index = H3{}

	_, err := idx.CellOf(-1.28, 36.81, 16)
	assert.Error(t, err)

	_, err = idx.KRing("not-a-cell", 1)
	assert.Error(t, err)
}

func TestSquareGrid(t *testing.T) {
	var idx Index = spatialtest.NewGrid(1.0)

	c, err := idx.CellOf(-1.25, 36.75, 2)
	require.NoError(t, err)
	assert.Equal(t, "2:-5:147", string(c))

	ring, err := idx.KRing(c, 1)
	require.NoError(t, err)
	assert.Len(t, ring, 9)
	assert.Contains(t, ring, c)
}

func TestH3Parent(t *testing.T) {
	var idx Index = H3{}

	fine, err := idx.CellOf(-1.2833, 36.8167, 7)
	require.NoError(t, err)
	parent, err := idx.Parent(fine, 5)
	require.NoError(t, err)

	ring, err := idx.KRing(parent, 0)
	require.NoError(t, err)
	assert.Equal(t, []models.CellID{parent}, ring)
	assert.NotEqual(t, fine, parent)

	same, err := idx.Parent(fine, 7)
	require.NoError(t, err)
	assert.Equal(t, fine, same)

	_, err = idx.Parent(parent, 7)
	assert.Error(t, err)
	_, err = idx.Parent("not-a-cell", 5)
	assert.Error(t, err)
}

func TestSquareGridParent(t *testing.T) {
	var idx Index = spatialtest.NewGrid(1.0)

	c, err := idx.CellOf(-1.25, 36.75, 2)
	require.NoError(t, err)
	p, err := idx.Parent(c, 0)
	require.NoError(t, err)
	direct, err := idx.CellOf(-1.25, 36.75, 0)
	require.NoError(t, err)
	assert.Equal(t, direct, p)

	_, err = idx.Parent(c, 3)
	assert.Error(t, err)
}
