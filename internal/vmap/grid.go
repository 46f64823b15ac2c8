package vmap

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/udisondev/vmapd/internal/geom"
)

const (
	// CellNumber is the grid resolution per axis.
	CellNumber = 64
	// MapSize is the world extent covered by the grid along each axis.
	MapSize = 533.33333 * 64
	// CellSize is the edge length of one grid cell.
	CellSize = MapSize / CellNumber
)

// Bounded is anything with a world-space bounding box.
type Bounded interface {
	Bounds() geom.AABox
}

// RayCallback tests one element against a ray. It may shrink *maxDist and
// returns true on a hit.
type RayCallback[T any] func(ray geom.Ray, v T, maxDist *float32, stopAtFirstHit bool) bool

// PointCallback is called for every element of the cell containing p.
type PointCallback[T any] func(p mgl32.Vec3, v T)

// GridNode is the per-cell container of a RegularGrid2D.
type GridNode[T any] interface {
	Insert(v T)
	Remove(v T)
	Balance()
	IntersectRay(ray geom.Ray, cb RayCallback[T], maxDist *float32, stopAtFirstHit bool) bool
	IntersectPoint(p mgl32.Vec3, cb PointCallback[T])
}

// GridElement is an element type a RegularGrid2D can index.
type GridElement interface {
	comparable
	Bounded
}

// ComparableNode is a GridNode usable as a lazily created cell slot.
type ComparableNode[T any] interface {
	comparable
	GridNode[T]
}

// Cell is a grid cell index.
type Cell struct {
	X, Y int
}

// ComputeCell returns the cell containing world position (x, y).
func ComputeCell(x, y float32) Cell {
	return Cell{
		X: int(math.Floor(float64(x/CellSize + CellNumber/2))),
		Y: int(math.Floor(float64(y/CellSize + CellNumber/2))),
	}
}

// Valid reports whether the cell lies inside the grid.
func (c Cell) Valid() bool {
	return c.X >= 0 && c.X < CellNumber && c.Y >= 0 && c.Y < CellNumber
}

// Bounds returns the world-space x/y extent of the cell.
func (c Cell) Bounds() (lo, hi mgl32.Vec2) {
	lo = mgl32.Vec2{float32(c.X-CellNumber/2) * CellSize, float32(c.Y-CellNumber/2) * CellSize}
	return lo, lo.Add(mgl32.Vec2{CellSize, CellSize})
}

// cellSet is the deduplicated set of cells an element was inserted into.
type cellSet struct {
	cells [9]Cell
	n     int
}

func (s *cellSet) add(c Cell) {
	for i := range s.n {
		if s.cells[i] == c {
			return
		}
	}
	s.cells[s.n] = c
	s.n++
}

// RegularGrid2D is a fixed 64×64 uniform grid over the world x/y plane.
// Each element is stored in the nodes of the cells touched by its bounding
// box corners, edge midpoints and centre. The grid does no locking.
type RegularGrid2D[T GridElement, N ComparableNode[T]] struct {
	nodes   [CellNumber][CellNumber]N
	members map[T]cellSet
	newNode func(x, y int) N
}

// NewRegularGrid2D returns an empty grid creating nodes with newNode.
func NewRegularGrid2D[T GridElement, N ComparableNode[T]](newNode func(x, y int) N) *RegularGrid2D[T, N] {
	return &RegularGrid2D[T, N]{
		members: make(map[T]cellSet),
		newNode: newNode,
	}
}

// Insert adds v to every distinct cell touched by its bounds.
func (g *RegularGrid2D[T, N]) Insert(v T) {
	if _, ok := g.members[v]; ok {
		panic(fmt.Sprintf("vmap: grid element %v inserted twice", v))
	}

	b := v.Bounds()
	var pos [9]mgl32.Vec3
	pos[0] = b.Corner(0)
	pos[1] = b.Corner(1)
	pos[2] = b.Corner(2)
	pos[3] = b.Corner(3)
	pos[4] = pos[0].Add(pos[1]).Mul(0.5)
	pos[5] = pos[1].Add(pos[2]).Mul(0.5)
	pos[6] = pos[2].Add(pos[3]).Mul(0.5)
	pos[7] = pos[3].Add(pos[0]).Mul(0.5)
	pos[8] = pos[0].Add(pos[2]).Mul(0.5)

	var set cellSet
	for _, p := range pos {
		c := ComputeCell(p[0], p[1])
		if !c.Valid() {
			continue
		}
		set.add(c)
	}
	for _, c := range set.cells[:set.n] {
		g.node(c).Insert(v)
	}
	g.members[v] = set
}

// Remove deletes v from exactly the cells it was inserted into.
func (g *RegularGrid2D[T, N]) Remove(v T) {
	set, ok := g.members[v]
	if !ok {
		panic(fmt.Sprintf("vmap: removing grid element %v that is not a member", v))
	}
	for _, c := range set.cells[:set.n] {
		g.nodes[c.X][c.Y].Remove(v)
	}
	delete(g.members, v)
}

// Contains reports whether v is a member.
func (g *RegularGrid2D[T, N]) Contains(v T) bool {
	_, ok := g.members[v]
	return ok
}

// Size returns the number of members.
func (g *RegularGrid2D[T, N]) Size() int { return len(g.members) }

// CellsOf returns the cells v was inserted into.
func (g *RegularGrid2D[T, N]) CellsOf(v T) []Cell {
	set := g.members[v]
	return append([]Cell(nil), set.cells[:set.n]...)
}

// Balance rebalances every existing node.
func (g *RegularGrid2D[T, N]) Balance() {
	var zero N
	for x := range CellNumber {
		for y := range CellNumber {
			if n := g.nodes[x][y]; n != zero {
				n.Balance()
			}
		}
	}
}

// node returns the node of c, creating it on first use.
func (g *RegularGrid2D[T, N]) node(c Cell) N {
	if !c.Valid() {
		panic(fmt.Sprintf("vmap: grid cell %v out of range", c))
	}
	var zero N
	if g.nodes[c.X][c.Y] == zero {
		g.nodes[c.X][c.Y] = g.newNode(c.X, c.Y)
	}
	return g.nodes[c.X][c.Y]
}

// existing returns the node of c without creating it.
func (g *RegularGrid2D[T, N]) existing(c Cell) (N, bool) {
	var zero N
	n := g.nodes[c.X][c.Y]
	return n, n != zero
}

// IntersectRay walks the cells crossed by the ray from its origin up to
// *maxDist and tests every node on the way. Callbacks shrink *maxDist as
// they report hits. The walk still goes on to the last cell of the
// original segment: an element is only registered in the cells of its
// sample points, so a nearer hit can come from a cell further along.
func (g *RegularGrid2D[T, N]) IntersectRay(ray geom.Ray, cb RayCallback[T], maxDist *float32, stopAtFirstHit bool) {
	g.walkRay(ray, *maxDist, func(c Cell) bool {
		n, ok := g.existing(c)
		if !ok {
			return true
		}
		hit := n.IntersectRay(ray, cb, maxDist, stopAtFirstHit)
		return !(hit && stopAtFirstHit)
	})
}

// walkRay visits the cells of the segment [origin, origin+dir*dist] in
// order until visit returns false.
func (g *RegularGrid2D[T, N]) walkRay(ray geom.Ray, dist float32, visit func(Cell) bool) {
	cell := ComputeCell(ray.Origin[0], ray.Origin[1])
	if !cell.Valid() {
		return
	}
	end := ray.At(dist)
	last := ComputeCell(end[0], end[1])

	if cell == last {
		visit(cell)
		return
	}

	stepX, tMaxX, tDeltaX := dda(cell.X, ray.Origin[0], ray.Direction[0], ray.InvDir[0])
	stepY, tMaxY, tDeltaY := dda(cell.Y, ray.Origin[1], ray.Direction[1], ray.InvDir[1])

	for {
		if !visit(cell) || cell == last {
			return
		}
		next := min(tMaxX, tMaxY)
		if next > dist {
			return
		}
		if tMaxX < tMaxY {
			tMaxX += tDeltaX
			cell.X += stepX
		} else {
			tMaxY += tDeltaY
			cell.Y += stepY
		}
		if !cell.Valid() {
			return
		}
	}
}

// dda returns the step direction, the ray distance to the first cell
// border and the distance between borders along one axis. Borders are in
// world coordinates. An axis the ray does not move along never steps.
func dda(cell int, origin, dir, invDir float32) (step int, tMax, tDelta float32) {
	switch {
	case dir > 0:
		border := float32(cell+1-CellNumber/2) * CellSize
		return 1, (border - origin) * invDir, CellSize * invDir
	case dir < 0:
		border := float32(cell-CellNumber/2) * CellSize
		return -1, (border - origin) * invDir, -CellSize * invDir
	}
	return 0, geom.Inf, geom.Inf
}

// IntersectZAlignedRay tests only the cell of the origin. Use it for
// vertical rays.
func (g *RegularGrid2D[T, N]) IntersectZAlignedRay(ray geom.Ray, cb RayCallback[T], maxDist *float32) {
	cell := ComputeCell(ray.Origin[0], ray.Origin[1])
	if !cell.Valid() {
		return
	}
	if n, ok := g.existing(cell); ok {
		n.IntersectRay(ray, cb, maxDist, false)
	}
}

// IntersectPoint calls cb for the elements of the cell containing p.
func (g *RegularGrid2D[T, N]) IntersectPoint(p mgl32.Vec3, cb PointCallback[T]) {
	cell := ComputeCell(p[0], p[1])
	if !cell.Valid() {
		return
	}
	if n, ok := g.existing(cell); ok {
		n.IntersectPoint(p, cb)
	}
}
