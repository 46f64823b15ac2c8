package geom

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
)

func TestAABoxCornersAndContains(t *testing.T) {
	b := NewAABox(mgl32.Vec3{1, 2, 3}, mgl32.Vec3{-1, -2, -3})
	assert.Equal(t, mgl32.Vec3{-1, -2, -3}, b.Lo)
	assert.Equal(t, mgl32.Vec3{1, 2, 3}, b.Hi)

	assert.Equal(t, mgl32.Vec3{-1, -2, 3}, b.Corner(0))
	assert.Equal(t, mgl32.Vec3{1, 2, 3}, b.Corner(2))
	assert.Equal(t, mgl32.Vec3{-1, 2, -3}, b.Corner(7))

	assert.True(t, b.Contains(mgl32.Vec3{0, 0, 0}))
	assert.True(t, b.Contains(mgl32.Vec3{1, 2, 3}))
	assert.False(t, b.Contains(mgl32.Vec3{1.01, 0, 0}))
	assert.Panics(t, func() { b.Corner(8) })
}

func TestAABoxZeroAndEmpty(t *testing.T) {
	assert.True(t, AABox{}.IsZero())
	assert.False(t, NewAABox(mgl32.Vec3{}, mgl32.Vec3{0, 0, 1}).IsZero())

	e := EmptyAABox()
	assert.True(t, e.IsEmpty())
	e.Merge(mgl32.Vec3{5, 5, 5})
	assert.False(t, e.IsEmpty())
	assert.Equal(t, e.Lo, e.Hi)
}

func TestAABoxTransform(t *testing.T) {
	b := NewAABox(mgl32.Vec3{0, 0, 0}, mgl32.Vec3{2, 1, 1})
	out := b.Transform(RotationZ(math.Pi/2), 2, mgl32.Vec3{10, 10, 0})

	// 90° about Z maps x onto y; the 4x2 footprint becomes 2x4.
	assert.InDelta(t, 8, out.Lo[0], 1e-4)
	assert.InDelta(t, 10, out.Hi[0], 1e-4)
	assert.InDelta(t, 10, out.Lo[1], 1e-4)
	assert.InDelta(t, 14, out.Hi[1], 1e-4)
	assert.InDelta(t, 2, out.Hi[2], 1e-4)
}

func TestRayIntersectionTime(t *testing.T) {
	box := NewAABox(mgl32.Vec3{10, -1, -1}, mgl32.Vec3{12, 1, 1})

	tests := []struct {
		name string
		ray  Ray
		want float32
	}{
		{"hit along x", NewRay(mgl32.Vec3{0, 0, 0}, mgl32.Vec3{1, 0, 0}), 10},
		{"inside", NewRay(mgl32.Vec3{11, 0, 0}, mgl32.Vec3{1, 0, 0}), 0},
		{"behind", NewRay(mgl32.Vec3{20, 0, 0}, mgl32.Vec3{1, 0, 0}), Inf},
		{"parallel outside slab", NewRay(mgl32.Vec3{0, 5, 0}, mgl32.Vec3{1, 0, 0}), Inf},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.ray.IntersectionTime(box))
		})
	}
}

func TestRayZeroComponentInverse(t *testing.T) {
	r := NewRay(mgl32.Vec3{}, mgl32.Vec3{0, 0, -1})
	assert.True(t, math.IsInf(float64(r.InvDir[0]), 1))
	assert.True(t, math.IsInf(float64(r.InvDir[1]), 1))
	assert.Equal(t, float32(-1), r.InvDir[2])
}

func TestRayIntersectTriangle(t *testing.T) {
	a := mgl32.Vec3{5, -10, -10}
	b := mgl32.Vec3{5, 10, -10}
	c := mgl32.Vec3{5, 0, 10}

	r := NewRay(mgl32.Vec3{0, 0, 0}, mgl32.Vec3{1, 0, 0})
	dist := float32(100)
	assert.True(t, r.IntersectTriangle(a, b, c, &dist))
	assert.InDelta(t, 5, dist, 1e-5)

	// farther than the current best
	dist = 4
	assert.False(t, r.IntersectTriangle(a, b, c, &dist))

	// backwards ray misses
	back := NewRay(mgl32.Vec3{0, 0, 0}, mgl32.Vec3{-1, 0, 0})
	dist = 100
	assert.False(t, back.IntersectTriangle(a, b, c, &dist))
}

func TestClipTimes(t *testing.T) {
	box := NewAABox(mgl32.Vec3{10, -1, -1}, mgl32.Vec3{12, 1, 1})
	r := NewRay(mgl32.Vec3{0, 0, 0}, mgl32.Vec3{1, 0, 0})

	enter, exit, ok := r.ClipTimes(box, 100)
	assert.True(t, ok)
	assert.InDelta(t, 10, enter, 1e-6)
	assert.InDelta(t, 12, exit, 1e-6)

	_, _, ok = r.ClipTimes(box, 5)
	assert.False(t, ok)
}
