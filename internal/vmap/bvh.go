package vmap

import (
	"slices"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/udisondev/vmapd/internal/geom"
)

// maxLeafSize is the most primitives a bvh leaf holds.
const maxLeafSize = 4

// maxTraversalDepth bounds the traversal stack. Median splits keep the tree
// depth near log2(n/maxLeafSize).
const maxTraversalDepth = 64

type bvhNode struct {
	bounds geom.AABox
	// left < 0 marks a leaf covering prims[start:start+count]
	left, right  int32
	start, count int32
}

// bvh is a bounding volume hierarchy over primitives identified by index.
// It is built once and is read-only afterwards.
type bvh struct {
	nodes []bvhNode
	prims []int32
}

// buildBVH builds a tree over len(bounds) primitives by splitting at the
// median centroid along the longest axis.
func buildBVH(bounds []geom.AABox) bvh {
	if len(bounds) == 0 {
		return bvh{}
	}
	t := bvh{
		nodes: make([]bvhNode, 0, 2*len(bounds)/maxLeafSize+1),
		prims: make([]int32, len(bounds)),
	}
	centroids := make([]mgl32.Vec3, len(bounds))
	for i, b := range bounds {
		t.prims[i] = int32(i)
		centroids[i] = b.Center()
	}
	t.build(bounds, centroids, 0, int32(len(bounds)), 0)
	return t
}

func (t *bvh) build(bounds []geom.AABox, centroids []mgl32.Vec3, start, end int32, depth int) int32 {
	idx := int32(len(t.nodes))
	t.nodes = append(t.nodes, bvhNode{left: -1, right: -1, start: start, count: end - start})

	box := geom.EmptyAABox()
	centre := geom.EmptyAABox()
	for _, p := range t.prims[start:end] {
		box.MergeBox(bounds[p])
		centre.Merge(centroids[p])
	}
	t.nodes[idx].bounds = box

	if end-start <= maxLeafSize || depth >= maxTraversalDepth-2 {
		return idx
	}

	ext := centre.Extent()
	axis := 0
	if ext[1] > ext[axis] {
		axis = 1
	}
	if ext[2] > ext[axis] {
		axis = 2
	}
	slices.SortFunc(t.prims[start:end], func(a, b int32) int {
		ca, cb := centroids[a][axis], centroids[b][axis]
		switch {
		case ca < cb:
			return -1
		case ca > cb:
			return 1
		}
		return int(a - b)
	})

	mid := start + (end-start)/2
	left := t.build(bounds, centroids, start, mid, depth+1)
	right := t.build(bounds, centroids, mid, end, depth+1)
	t.nodes[idx].left = left
	t.nodes[idx].right = right
	return idx
}

// bounds returns the root box, or an empty box for an empty tree.
func (t *bvh) bounds() geom.AABox {
	if len(t.nodes) == 0 {
		return geom.EmptyAABox()
	}
	return t.nodes[0].bounds
}

// intersectRay calls hit for every primitive whose node box the ray
// reaches within *maxDist. hit may shrink *maxDist.
func (t *bvh) intersectRay(ray geom.Ray, maxDist *float32, stopAtFirstHit bool, hit func(prim int32, maxDist *float32) bool) bool {
	if len(t.nodes) == 0 {
		return false
	}
	var stack [maxTraversalDepth]int32
	sp := 0
	stack[sp] = 0
	sp++

	found := false
	for sp > 0 {
		sp--
		n := &t.nodes[stack[sp]]
		if _, _, ok := ray.ClipTimes(n.bounds, *maxDist); !ok {
			continue
		}
		if n.left < 0 {
			for _, p := range t.prims[n.start : n.start+n.count] {
				if hit(p, maxDist) {
					found = true
					if stopAtFirstHit {
						return true
					}
				}
			}
			continue
		}
		stack[sp] = n.right
		stack[sp+1] = n.left
		sp += 2
	}
	return found
}

// intersectPoint calls fn for every primitive in a leaf whose box contains p.
func (t *bvh) intersectPoint(p mgl32.Vec3, fn func(prim int32)) {
	if len(t.nodes) == 0 {
		return
	}
	var stack [maxTraversalDepth]int32
	sp := 0
	stack[sp] = 0
	sp++

	for sp > 0 {
		sp--
		n := &t.nodes[stack[sp]]
		if !n.bounds.Contains(p) {
			continue
		}
		if n.left < 0 {
			for _, prim := range t.prims[n.start : n.start+n.count] {
				fn(prim)
			}
			continue
		}
		stack[sp] = n.right
		stack[sp+1] = n.left
		sp += 2
	}
}

// BVHNode is a grid cell holding elements in a bvh. Mutations mark the
// tree stale; queries on a stale node fall back to a linear scan and never
// mutate, so concurrent readers are safe. Balance rebuilds the tree.
type BVHNode[T GridElement] struct {
	objects []T
	index   map[T]int
	tree    bvh
	built   bool
}

// NewBVHNode returns an empty node. The cell coordinates are unused.
func NewBVHNode[T GridElement](_, _ int) *BVHNode[T] {
	return &BVHNode[T]{index: make(map[T]int)}
}

func (n *BVHNode[T]) Insert(v T) {
	if _, ok := n.index[v]; ok {
		return
	}
	n.index[v] = len(n.objects)
	n.objects = append(n.objects, v)
	n.built = false
}

func (n *BVHNode[T]) Remove(v T) {
	i, ok := n.index[v]
	if !ok {
		return
	}
	last := len(n.objects) - 1
	if i != last {
		n.objects[i] = n.objects[last]
		n.index[n.objects[i]] = i
	}
	var zero T
	n.objects[last] = zero
	n.objects = n.objects[:last]
	delete(n.index, v)
	n.built = false
}

// Len returns the number of elements in the node.
func (n *BVHNode[T]) Len() int { return len(n.objects) }

func (n *BVHNode[T]) Balance() {
	bounds := make([]geom.AABox, len(n.objects))
	for i, o := range n.objects {
		bounds[i] = o.Bounds()
	}
	n.tree = buildBVH(bounds)
	n.built = true
}

func (n *BVHNode[T]) IntersectRay(ray geom.Ray, cb RayCallback[T], maxDist *float32, stopAtFirstHit bool) bool {
	if n.built {
		return n.tree.intersectRay(ray, maxDist, stopAtFirstHit, func(prim int32, d *float32) bool {
			return cb(ray, n.objects[prim], d, stopAtFirstHit)
		})
	}
	found := false
	for _, o := range n.objects {
		if _, _, ok := ray.ClipTimes(o.Bounds(), *maxDist); !ok {
			continue
		}
		if cb(ray, o, maxDist, stopAtFirstHit) {
			found = true
			if stopAtFirstHit {
				return true
			}
		}
	}
	return found
}

func (n *BVHNode[T]) IntersectPoint(p mgl32.Vec3, cb PointCallback[T]) {
	if n.built {
		n.tree.intersectPoint(p, func(prim int32) {
			if o := n.objects[prim]; o.Bounds().Contains(p) {
				cb(p, o)
			}
		})
		return
	}
	for _, o := range n.objects {
		if o.Bounds().Contains(p) {
			cb(p, o)
		}
	}
}
