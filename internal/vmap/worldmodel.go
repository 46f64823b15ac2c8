package vmap

import (
	"fmt"
	"os"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/udisondev/vmapd/internal/geom"
)

// MeshTriangle indexes three vertices of a group.
type MeshTriangle struct {
	I0, I1, I2 uint32
}

// AreaInfo accumulates the result of an area point query.
type AreaInfo struct {
	Result  bool
	GroundZ float32
	Flags   uint32
	AdtID   int32
	RootID  int32
	GroupID int32
}

// NewAreaInfo returns an empty result with no ground found yet.
func NewAreaInfo() AreaInfo {
	return AreaInfo{GroundZ: -geom.Inf}
}

// LocationInfo accumulates the result of a location point query.
type LocationInfo struct {
	RootID   int32
	HitModel *GroupModel
	GroundZ  float32

	hitInstance *ModelInstance
}

// NewLocationInfo returns an empty result with no ground found yet.
func NewLocationInfo() LocationInfo {
	return LocationInfo{GroundZ: -geom.Inf}
}

// GroupModel is one mesh group of a model with its own triangle tree and an
// optional liquid.
type GroupModel struct {
	bound      geom.AABox
	mogpFlags  uint32
	groupWMOID uint32
	vertices   []mgl32.Vec3
	triangles  []MeshTriangle
	meshTree   bvh
	liquid     *WmoLiquid
}

// NewGroupModel validates the mesh and builds its triangle tree.
func NewGroupModel(mogpFlags, groupWMOID uint32, bound geom.AABox, vertices []mgl32.Vec3, triangles []MeshTriangle, liquid *WmoLiquid) (*GroupModel, error) {
	boxes := make([]geom.AABox, len(triangles))
	for i, t := range triangles {
		if int(t.I0) >= len(vertices) || int(t.I1) >= len(vertices) || int(t.I2) >= len(vertices) {
			return nil, fmt.Errorf("triangle %d (%d,%d,%d) with %d vertices: %w", i, t.I0, t.I1, t.I2, len(vertices), ErrInvalidIndex)
		}
		b := geom.EmptyAABox()
		b.Merge(vertices[t.I0])
		b.Merge(vertices[t.I1])
		b.Merge(vertices[t.I2])
		boxes[i] = b
	}
	return &GroupModel{
		bound:      bound,
		mogpFlags:  mogpFlags,
		groupWMOID: groupWMOID,
		vertices:   vertices,
		triangles:  triangles,
		meshTree:   buildBVH(boxes),
		liquid:     liquid,
	}, nil
}

func (g *GroupModel) Bounds() geom.AABox { return g.bound }
func (g *GroupModel) MogpFlags() uint32  { return g.mogpFlags }
func (g *GroupModel) WmoID() uint32      { return g.groupWMOID }
func (g *GroupModel) Liquid() *WmoLiquid { return g.liquid }

// LiquidType returns the liquid type, 0 without liquid.
func (g *GroupModel) LiquidType() uint32 {
	if g.liquid == nil {
		return 0
	}
	return g.liquid.Type()
}

// IntersectRay tests the ray against the group triangles.
func (g *GroupModel) IntersectRay(ray geom.Ray, dist *float32, stopAtFirstHit bool) bool {
	if len(g.triangles) == 0 {
		return false
	}
	return g.meshTree.intersectRay(ray, dist, stopAtFirstHit, func(prim int32, d *float32) bool {
		t := g.triangles[prim]
		return ray.IntersectTriangle(g.vertices[t.I0], g.vertices[t.I1], g.vertices[t.I2], d)
	})
}

// insideProbeOffset is how far above pos the downward probe starts.
const insideProbeOffset = 0.1

// IsInsideObject casts a probe along down from slightly above pos and
// returns the distance from pos to the surface below.
func (g *GroupModel) IsInsideObject(pos, down mgl32.Vec3) (float32, bool) {
	if len(g.triangles) == 0 || !g.bound.Contains(pos) {
		return 0, false
	}
	start := pos.Sub(down.Mul(insideProbeOffset))
	dist := geom.Inf
	if !g.IntersectRay(geom.NewRay(start, down), &dist, false) {
		return 0, false
	}
	return dist - insideProbeOffset, true
}

// LiquidLevel returns the liquid surface height at pos in model space.
func (g *GroupModel) LiquidLevel(pos mgl32.Vec3) (float32, bool) {
	if g.liquid == nil {
		return 0, false
	}
	return g.liquid.Height(pos)
}

func readGroupModel(d *decoder) (*GroupModel, error) {
	lo := d.vec3()
	hi := d.vec3()
	mogpFlags := d.u32()
	groupWMOID := d.u32()

	d.chunk("VERT", ErrBadChunk)
	vertices := make([]mgl32.Vec3, d.count(12))
	for i := range vertices {
		vertices[i] = d.vec3()
	}

	d.chunk("TRIM", ErrBadChunk)
	triangles := make([]MeshTriangle, d.count(12))
	for i := range triangles {
		triangles[i] = MeshTriangle{d.u32(), d.u32(), d.u32()}
	}

	d.chunk("LIQU", ErrBadChunk)
	size := d.count(1)
	if d.err != nil {
		return nil, d.err
	}

	var liquid *WmoLiquid
	if size > 0 {
		sub := newDecoder(d.take(size))
		var err error
		if liquid, err = readWmoLiquid(sub); err != nil {
			return nil, fmt.Errorf("group %d liquid: %w", groupWMOID, err)
		}
	}
	return NewGroupModel(mogpFlags, groupWMOID, geom.AABox{Lo: lo, Hi: hi}, vertices, triangles, liquid)
}

func (g *GroupModel) write(e *encoder) {
	e.vec3(g.bound.Lo)
	e.vec3(g.bound.Hi)
	e.u32(g.mogpFlags)
	e.u32(g.groupWMOID)

	e.raw("VERT")
	e.u32(uint32(len(g.vertices)))
	for _, v := range g.vertices {
		e.vec3(v)
	}

	e.raw("TRIM")
	e.u32(uint32(len(g.triangles)))
	for _, t := range g.triangles {
		e.u32(t.I0)
		e.u32(t.I1)
		e.u32(t.I2)
	}

	e.raw("LIQU")
	if g.liquid == nil {
		e.u32(0)
		return
	}
	e.u32(uint32(g.liquid.encodedSize()))
	g.liquid.write(e)
}

// WorldModel is a collision model shared by all of its spawns.
type WorldModel struct {
	rootWMOID uint32
	flags     ModelFlags
	groups    []*GroupModel
	groupTree bvh
}

// NewWorldModel builds a model and its group tree.
func NewWorldModel(rootWMOID uint32, flags ModelFlags, groups []*GroupModel) *WorldModel {
	boxes := make([]geom.AABox, len(groups))
	for i, g := range groups {
		boxes[i] = g.bound
	}
	return &WorldModel{
		rootWMOID: rootWMOID,
		flags:     flags,
		groups:    groups,
		groupTree: buildBVH(boxes),
	}
}

func (m *WorldModel) RootWMOID() uint32     { return m.rootWMOID }
func (m *WorldModel) Flags() ModelFlags     { return m.flags }
func (m *WorldModel) SetFlags(f ModelFlags) { m.flags = f }
func (m *WorldModel) Groups() []*GroupModel { return m.groups }
func (m *WorldModel) Bounds() geom.AABox    { return m.groupTree.bounds() }

// IntersectRay tests the ray, in model space, against every group.
func (m *WorldModel) IntersectRay(ray geom.Ray, dist *float32, stopAtFirstHit bool, ignore ModelIgnoreFlags) bool {
	if ignore&IgnoreM2 != 0 && m.flags&ModM2 != 0 {
		return false
	}
	// a single group needs no group tree
	if len(m.groups) == 1 {
		return m.groups[0].IntersectRay(ray, dist, stopAtFirstHit)
	}
	return m.groupTree.intersectRay(ray, dist, stopAtFirstHit, func(prim int32, d *float32) bool {
		return m.groups[prim].IntersectRay(ray, d, stopAtFirstHit)
	})
}

// groupBelow returns the group whose surface lies closest below p along
// down, and the distance to it.
func (m *WorldModel) groupBelow(p, down mgl32.Vec3) (*GroupModel, float32) {
	var hit *GroupModel
	zDist := geom.Inf
	m.groupTree.intersectPoint(p, func(prim int32) {
		g := m.groups[prim]
		if !g.bound.Contains(p) {
			return
		}
		if d, ok := g.IsInsideObject(p, down); ok && d < zDist {
			zDist = d
			hit = g
		}
	})
	return hit, zDist
}

// IntersectPoint fills info with the group below p in model space.
func (m *WorldModel) IntersectPoint(p, down mgl32.Vec3, info *AreaInfo) (float32, bool) {
	if len(m.groups) == 0 {
		return 0, false
	}
	g, dist := m.groupBelow(p, down)
	if g == nil {
		return 0, false
	}
	info.RootID = int32(m.rootWMOID)
	info.GroupID = int32(g.groupWMOID)
	info.Flags = g.mogpFlags
	info.Result = true
	return dist, true
}

// GetLocationInfo fills info with the group below p in model space.
func (m *WorldModel) GetLocationInfo(p, down mgl32.Vec3, info *LocationInfo) (float32, bool) {
	if len(m.groups) == 0 {
		return 0, false
	}
	g, dist := m.groupBelow(p, down)
	if g == nil {
		return 0, false
	}
	info.RootID = int32(m.rootWMOID)
	info.HitModel = g
	return dist, true
}

// ReadWorldModel parses a model file.
func ReadWorldModel(data []byte) (*WorldModel, error) {
	d := newDecoder(data)
	d.magic()
	d.chunk("WMOD", ErrBadChunk)
	_ = d.u32() // chunk size
	rootWMOID := d.u32()
	flags := ModelFlags(d.u32())

	d.chunk("GMOD", ErrBadChunk)
	// a group takes at least 48 bytes
	groups := make([]*GroupModel, d.count(48))
	if d.err != nil {
		return nil, d.err
	}
	for i := range groups {
		g, err := readGroupModel(d)
		if err != nil {
			return nil, fmt.Errorf("group %d: %w", i, err)
		}
		groups[i] = g
	}
	return NewWorldModel(rootWMOID, flags, groups), nil
}

// LoadWorldModel reads and parses a model file.
func LoadWorldModel(path string) (*WorldModel, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading model %s: %w", path, err)
	}
	m, err := ReadWorldModel(data)
	if err != nil {
		return nil, fmt.Errorf("parsing model %s: %w", path, err)
	}
	return m, nil
}

// Encode serializes the model in the format ReadWorldModel reads.
func (m *WorldModel) Encode() []byte {
	e := &encoder{}
	e.raw(Magic)
	e.raw("WMOD")
	e.u32(8)
	e.u32(m.rootWMOID)
	e.u32(uint32(m.flags))
	e.raw("GMOD")
	e.u32(uint32(len(m.groups)))
	for _, g := range m.groups {
		g.write(e)
	}
	return e.buf
}
