package vmap

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// liquidTileUnused marks a tile without liquid in the low flag nibble.
const liquidTileUnused = 0x0F

// WmoLiquid is a height field of liquid tiles inside a model group. A
// liquid without tiles has a single flat height.
type WmoLiquid struct {
	tilesX, tilesY uint32
	corner         mgl32.Vec3
	liquidType     uint32
	heights        []float32
	flags          []uint8
}

// NewWmoLiquid builds a liquid of tilesX×tilesY tiles. heights holds
// (tilesX+1)*(tilesY+1) vertex heights, flags one byte per tile.
func NewWmoLiquid(tilesX, tilesY uint32, corner mgl32.Vec3, liquidType uint32, heights []float32, flags []uint8) (*WmoLiquid, error) {
	wantHeights := int((tilesX + 1) * (tilesY + 1))
	wantFlags := int(tilesX * tilesY)
	if len(heights) != wantHeights || len(flags) != wantFlags {
		return nil, fmt.Errorf("liquid %dx%d needs %d heights and %d flags, got %d and %d",
			tilesX, tilesY, wantHeights, wantFlags, len(heights), len(flags))
	}
	return &WmoLiquid{
		tilesX:     tilesX,
		tilesY:     tilesY,
		corner:     corner,
		liquidType: liquidType,
		heights:    heights,
		flags:      flags,
	}, nil
}

// Type returns the liquid type id.
func (l *WmoLiquid) Type() uint32 { return l.liquidType }

// Height returns the liquid surface height at pos in model space. Each tile
// is split into two triangles along its diagonal.
func (l *WmoLiquid) Height(pos mgl32.Vec3) (float32, bool) {
	if len(l.flags) == 0 {
		return l.heights[0], true
	}

	txf := (pos[0] - l.corner[0]) / LiquidTileSize
	if txf < 0 || uint32(txf) >= l.tilesX {
		return 0, false
	}
	tyf := (pos[1] - l.corner[1]) / LiquidTileSize
	if tyf < 0 || uint32(tyf) >= l.tilesY {
		return 0, false
	}
	tx, ty := uint32(txf), uint32(tyf)

	if l.flags[tx+ty*l.tilesX]&liquidTileUnused == liquidTileUnused {
		return 0, false
	}

	dx := txf - float32(tx)
	dy := tyf - float32(ty)
	row := l.tilesX + 1
	h := func(x, y uint32) float32 { return l.heights[x+y*row] }

	var sx, sy float32
	if dx > dy {
		sx = h(tx+1, ty) - h(tx, ty)
		sy = h(tx+1, ty+1) - h(tx+1, ty)
	} else {
		sx = h(tx+1, ty+1) - h(tx, ty+1)
		sy = h(tx, ty+1) - h(tx, ty)
	}
	return h(tx, ty) + dx*sx + dy*sy, true
}

func (l *WmoLiquid) encodedSize() int {
	return 4 + 4 + 12 + 4 + 4*len(l.heights) + len(l.flags)
}

func readWmoLiquid(d *decoder) (*WmoLiquid, error) {
	tilesX := d.u32()
	tilesY := d.u32()
	corner := d.vec3()
	liquidType := d.u32()
	if d.err != nil {
		return nil, d.err
	}
	nHeights := (uint64(tilesX) + 1) * (uint64(tilesY) + 1)
	nFlags := uint64(tilesX) * uint64(tilesY)
	if nHeights*4+nFlags > uint64(d.remaining()) {
		return nil, fmt.Errorf("liquid %dx%d: %w", tilesX, tilesY, ErrTruncated)
	}
	heights := make([]float32, nHeights)
	for i := range heights {
		heights[i] = d.f32()
	}
	flags := append([]uint8(nil), d.take(int(nFlags))...)
	if d.err != nil {
		return nil, d.err
	}
	return NewWmoLiquid(tilesX, tilesY, corner, liquidType, heights, flags)
}

func (l *WmoLiquid) write(e *encoder) {
	e.u32(l.tilesX)
	e.u32(l.tilesY)
	e.vec3(l.corner)
	e.u32(l.liquidType)
	for _, h := range l.heights {
		e.f32(h)
	}
	e.buf = append(e.buf, l.flags...)
}
