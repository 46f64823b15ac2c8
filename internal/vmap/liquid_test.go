package vmap

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWmoLiquidHeight(t *testing.T) {
	// 2×1 tiles; heights rise by 1 per vertex along x
	heights := []float32{0, 1, 2, 0, 1, 2}
	l, err := NewWmoLiquid(2, 1, mgl32.Vec3{0, 0, 0}, 5, heights, []uint8{0, liquidTileUnused})
	require.NoError(t, err)
	assert.Equal(t, uint32(5), l.Type())

	h, ok := l.Height(mgl32.Vec3{LiquidTileSize * 0.5, LiquidTileSize * 0.25, 0})
	require.True(t, ok)
	assert.InDelta(t, 0.5, h, 1e-4)

	h, ok = l.Height(mgl32.Vec3{LiquidTileSize * 0.25, LiquidTileSize * 0.75, 0})
	require.True(t, ok)
	assert.InDelta(t, 0.25, h, 1e-4)

	_, ok = l.Height(mgl32.Vec3{LiquidTileSize * 1.5, LiquidTileSize * 0.5, 0})
	assert.False(t, ok, "unused tile")

	_, ok = l.Height(mgl32.Vec3{-1, 0, 0})
	assert.False(t, ok)
	_, ok = l.Height(mgl32.Vec3{0, LiquidTileSize * 2, 0})
	assert.False(t, ok)
}

func TestWmoLiquidFlat(t *testing.T) {
	l, err := NewWmoLiquid(0, 0, mgl32.Vec3{}, 1, []float32{7}, nil)
	require.NoError(t, err)
	h, ok := l.Height(mgl32.Vec3{1000, -1000, 0})
	require.True(t, ok)
	assert.Equal(t, float32(7), h)
}

func TestNewWmoLiquidSizeMismatch(t *testing.T) {
	_, err := NewWmoLiquid(2, 2, mgl32.Vec3{}, 1, make([]float32, 4), make([]uint8, 4))
	assert.Error(t, err)
}
