package geom

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// AABox is an axis-aligned bounding box. Lo and Hi are inclusive.
type AABox struct {
	Lo mgl32.Vec3
	Hi mgl32.Vec3
}

// NewAABox builds a box from two arbitrary opposite corners.
func NewAABox(a, b mgl32.Vec3) AABox {
	return AABox{
		Lo: mgl32.Vec3{min(a[0], b[0]), min(a[1], b[1]), min(a[2], b[2])},
		Hi: mgl32.Vec3{max(a[0], b[0]), max(a[1], b[1]), max(a[2], b[2])},
	}
}

// EmptyAABox returns an inverted box that any Merge overrides.
func EmptyAABox() AABox {
	inf := float32(math.Inf(1))
	return AABox{
		Lo: mgl32.Vec3{inf, inf, inf},
		Hi: mgl32.Vec3{-inf, -inf, -inf},
	}
}

// IsEmpty reports whether the box was never merged with a point.
func (b AABox) IsEmpty() bool {
	return b.Lo[0] > b.Hi[0] || b.Lo[1] > b.Hi[1] || b.Lo[2] > b.Hi[2]
}

// IsZero reports whether both corners are the origin.
func (b AABox) IsZero() bool {
	return b.Lo == mgl32.Vec3{} && b.Hi == mgl32.Vec3{}
}

// HasNaN reports whether any coordinate is NaN.
func (b AABox) HasNaN() bool {
	return HasNaN(b.Lo) || HasNaN(b.Hi)
}

// Corner returns one of the 8 corners. Corners 0-3 lie on the top (Hi.Z)
// face in counter-clockwise order, 4-7 mirror them on the bottom face.
func (b AABox) Corner(i int) mgl32.Vec3 {
	switch i {
	case 0:
		return mgl32.Vec3{b.Lo[0], b.Lo[1], b.Hi[2]}
	case 1:
		return mgl32.Vec3{b.Hi[0], b.Lo[1], b.Hi[2]}
	case 2:
		return mgl32.Vec3{b.Hi[0], b.Hi[1], b.Hi[2]}
	case 3:
		return mgl32.Vec3{b.Lo[0], b.Hi[1], b.Hi[2]}
	case 4:
		return mgl32.Vec3{b.Lo[0], b.Lo[1], b.Lo[2]}
	case 5:
		return mgl32.Vec3{b.Hi[0], b.Lo[1], b.Lo[2]}
	case 6:
		return mgl32.Vec3{b.Hi[0], b.Hi[1], b.Lo[2]}
	case 7:
		return mgl32.Vec3{b.Lo[0], b.Hi[1], b.Lo[2]}
	}
	panic(fmt.Sprintf("geom: corner index %d out of range", i))
}

// Merge grows the box to include p.
func (b *AABox) Merge(p mgl32.Vec3) {
	for i := range 3 {
		b.Lo[i] = min(b.Lo[i], p[i])
		b.Hi[i] = max(b.Hi[i], p[i])
	}
}

// MergeBox grows the box to include o.
func (b *AABox) MergeBox(o AABox) {
	if o.IsEmpty() {
		return
	}
	b.Merge(o.Lo)
	b.Merge(o.Hi)
}

// Translate returns the box moved by offset.
func (b AABox) Translate(offset mgl32.Vec3) AABox {
	return AABox{Lo: b.Lo.Add(offset), Hi: b.Hi.Add(offset)}
}

// Scale returns the box with both corners multiplied by s.
func (b AABox) Scale(s float32) AABox {
	return NewAABox(b.Lo.Mul(s), b.Hi.Mul(s))
}

// Transform returns the world box enclosing b rotated by rot, scaled by
// scale and moved to pos.
func (b AABox) Transform(rot mgl32.Mat3, scale float32, pos mgl32.Vec3) AABox {
	scaled := b.Scale(scale)
	out := EmptyAABox()
	for i := range 8 {
		out.Merge(rot.Mul3x1(scaled.Corner(i)))
	}
	return out.Translate(pos)
}

// Contains reports whether p lies inside the box, borders included.
func (b AABox) Contains(p mgl32.Vec3) bool {
	return p[0] >= b.Lo[0] && p[0] <= b.Hi[0] &&
		p[1] >= b.Lo[1] && p[1] <= b.Hi[1] &&
		p[2] >= b.Lo[2] && p[2] <= b.Hi[2]
}

// Center returns the midpoint of the box.
func (b AABox) Center() mgl32.Vec3 {
	return b.Lo.Add(b.Hi).Mul(0.5)
}

// Extent returns Hi - Lo.
func (b AABox) Extent() mgl32.Vec3 {
	return b.Hi.Sub(b.Lo)
}

func (b AABox) String() string {
	return fmt.Sprintf("[%v - %v]", b.Lo, b.Hi)
}

// HasNaN reports whether any component of v is NaN.
func HasNaN(v mgl32.Vec3) bool {
	return v[0] != v[0] || v[1] != v[1] || v[2] != v[2]
}
