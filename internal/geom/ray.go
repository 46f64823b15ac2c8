package geom

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Inf is positive infinity in single precision.
var Inf = float32(math.Inf(1))

// Ray is a half-line with a cached inverse direction. Components of the
// direction that are zero get an infinite inverse, so traversal code never
// divides by zero.
type Ray struct {
	Origin    mgl32.Vec3
	Direction mgl32.Vec3
	InvDir    mgl32.Vec3
}

// NewRay builds a ray. The direction is used as given.
func NewRay(origin, direction mgl32.Vec3) Ray {
	r := Ray{Origin: origin, Direction: direction}
	for i := range 3 {
		if direction[i] == 0 {
			r.InvDir[i] = Inf
		} else {
			r.InvDir[i] = 1 / direction[i]
		}
	}
	return r
}

// At returns Origin + Direction*t.
func (r Ray) At(t float32) mgl32.Vec3 {
	return r.Origin.Add(r.Direction.Mul(t))
}

// IntersectionTime returns the distance along the ray at which it enters
// the box, 0 when the origin is inside, or Inf when the ray misses.
func (r Ray) IntersectionTime(b AABox) float32 {
	tMin := float32(0)
	tMax := Inf
	for i := range 3 {
		o := r.Origin[i]
		if r.Direction[i] == 0 {
			if o < b.Lo[i] || o > b.Hi[i] {
				return Inf
			}
			continue
		}
		t1 := (b.Lo[i] - o) * r.InvDir[i]
		t2 := (b.Hi[i] - o) * r.InvDir[i]
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		tMin = max(tMin, t1)
		tMax = min(tMax, t2)
		if tMin > tMax {
			return Inf
		}
	}
	return tMin
}

// ClipTimes returns the entry and exit distances of the ray through the box.
// ok is false when the ray misses the box within [0, maxDist].
func (r Ray) ClipTimes(b AABox, maxDist float32) (enter, exit float32, ok bool) {
	enter, exit = 0, maxDist
	for i := range 3 {
		o := r.Origin[i]
		if r.Direction[i] == 0 {
			if o < b.Lo[i] || o > b.Hi[i] {
				return 0, 0, false
			}
			continue
		}
		t1 := (b.Lo[i] - o) * r.InvDir[i]
		t2 := (b.Hi[i] - o) * r.InvDir[i]
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		enter = max(enter, t1)
		exit = min(exit, t2)
		if enter > exit {
			return 0, 0, false
		}
	}
	return enter, exit, true
}

const triangleEpsilon = 1e-5

// IntersectTriangle tests the ray against triangle (a, b, c), both sides.
// On a hit closer than *dist it stores the distance and returns true.
func (r Ray) IntersectTriangle(a, b, c mgl32.Vec3, dist *float32) bool {
	e1 := b.Sub(a)
	e2 := c.Sub(a)
	p := r.Direction.Cross(e2)
	det := e1.Dot(p)
	if float32(math.Abs(float64(det))) < triangleEpsilon {
		return false
	}
	f := 1 / det
	s := r.Origin.Sub(a)
	u := f * s.Dot(p)
	if u < 0 || u > 1 {
		return false
	}
	q := s.Cross(e1)
	v := f * r.Direction.Dot(q)
	if v < 0 || u+v > 1 {
		return false
	}
	t := f * e2.Dot(q)
	if t > 0 && t < *dist {
		*dist = t
		return true
	}
	return false
}
