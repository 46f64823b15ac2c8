package vmap

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/udisondev/vmapd/internal/geom"
)

// ModelSpawn places a named model in the world.
type ModelSpawn struct {
	Flags ModelFlags
	AdtID uint16
	ID    uint32
	Pos   mgl32.Vec3
	// Rot holds rotations around x, y and z in degrees.
	Rot   mgl32.Vec3
	Scale float32
	// Bound is the world bound, present when Flags has ModHasBound.
	Bound geom.AABox
	Name  string
}

// Rotation returns the model-to-world rotation matrix of the spawn.
func (s *ModelSpawn) Rotation() mgl32.Mat3 {
	return geom.EulerZYX(geom.DegToRad(s.Rot[1]), geom.DegToRad(s.Rot[0]), geom.DegToRad(s.Rot[2]))
}

func readModelSpawn(d *decoder) (ModelSpawn, error) {
	var s ModelSpawn
	s.Flags = ModelFlags(d.u32())
	s.AdtID = d.u16()
	s.ID = d.u32()
	s.Pos = d.vec3()
	s.Rot = d.vec3()
	s.Scale = d.f32()
	if s.Flags&ModHasBound != 0 {
		lo := d.vec3()
		hi := d.vec3()
		s.Bound = geom.AABox{Lo: lo, Hi: hi}
	}
	nameLen := d.u32()
	if d.err != nil {
		return s, d.err
	}
	if nameLen > maxNameLength {
		return s, fmt.Errorf("spawn %d name length %d: %w", s.ID, nameLen, ErrNameTooLong)
	}
	s.Name = d.str(int(nameLen))
	return s, d.err
}

func (s *ModelSpawn) write(e *encoder) {
	e.u32(uint32(s.Flags))
	e.u16(s.AdtID)
	e.u32(s.ID)
	e.vec3(s.Pos)
	e.vec3(s.Rot)
	e.f32(s.Scale)
	if s.Flags&ModHasBound != 0 {
		e.vec3(s.Bound.Lo)
		e.vec3(s.Bound.Hi)
	}
	e.u32(uint32(len(s.Name)))
	e.raw(s.Name)
}

// ModelInstance is a spawn bound to its loaded model.
type ModelInstance struct {
	ModelSpawn
	rot      mgl32.Mat3
	invRot   mgl32.Mat3
	invScale float32
	model    *WorldModel
}

// NewModelInstance binds spawn to model. Spawns without a stored bound get
// the model bound transformed into the world.
func NewModelInstance(spawn ModelSpawn, model *WorldModel) *ModelInstance {
	mi := &ModelInstance{
		ModelSpawn: spawn,
		rot:        spawn.Rotation(),
		invScale:   1 / spawn.Scale,
		model:      model,
	}
	mi.invRot = mi.rot.Transpose()
	if spawn.Flags&ModHasBound == 0 {
		mi.Bound = model.Bounds().Transform(mi.rot, spawn.Scale, spawn.Pos)
	}
	return mi
}

func (mi *ModelInstance) Bounds() geom.AABox { return mi.Bound }

// Model returns the shared model.
func (mi *ModelInstance) Model() *WorldModel { return mi.model }

func (mi *ModelInstance) String() string {
	return fmt.Sprintf("ModelInstance(%d %s)", mi.ID, mi.Name)
}

// toModel transforms a world point into model space.
func (mi *ModelInstance) toModel(p mgl32.Vec3) mgl32.Vec3 {
	return mi.invRot.Mul3x1(p.Sub(mi.Pos)).Mul(mi.invScale)
}

// worldZ returns the world height of a model-space point.
func (mi *ModelInstance) worldZ(p mgl32.Vec3) float32 {
	return mi.rot.Mul3x1(p).Mul(mi.Scale).Add(mi.Pos)[2]
}

// IntersectRay tests a world ray against the model. On a hit *maxDist is
// set to the world distance.
func (mi *ModelInstance) IntersectRay(ray geom.Ray, maxDist *float32, stopAtFirstHit bool, ignore ModelIgnoreFlags) bool {
	if mi.model == nil {
		return false
	}
	if ray.IntersectionTime(mi.Bound) == geom.Inf {
		return false
	}
	modelRay := geom.NewRay(mi.toModel(ray.Origin), mi.invRot.Mul3x1(ray.Direction))
	dist := *maxDist * mi.invScale
	if !mi.model.IntersectRay(modelRay, &dist, stopAtFirstHit, ignore) {
		return false
	}
	*maxDist = dist * mi.Scale
	return true
}

// IntersectPoint records area information below p. Only map objects carry
// area information; M2 spawns are skipped.
func (mi *ModelInstance) IntersectPoint(p mgl32.Vec3, info *AreaInfo) {
	if mi.model == nil || mi.Flags&ModM2 != 0 || !mi.Bound.Contains(p) {
		return
	}
	pModel := mi.toModel(p)
	down := mi.invRot.Mul3x1(mgl32.Vec3{0, 0, -1})
	zDist, ok := mi.model.IntersectPoint(pModel, down, info)
	if !ok {
		return
	}
	z := mi.worldZ(pModel.Add(down.Mul(zDist)))
	if info.GroundZ < z {
		info.GroundZ = z
		info.AdtID = int32(mi.AdtID)
	}
}

// GetLocationInfo records the group below p when it is higher than what
// info already holds.
func (mi *ModelInstance) GetLocationInfo(p mgl32.Vec3, info *LocationInfo) bool {
	if mi.model == nil || mi.Flags&ModM2 != 0 || !mi.Bound.Contains(p) {
		return false
	}
	pModel := mi.toModel(p)
	down := mi.invRot.Mul3x1(mgl32.Vec3{0, 0, -1})
	candidate := *info
	zDist, ok := mi.model.GetLocationInfo(pModel, down, &candidate)
	if !ok {
		return false
	}
	z := mi.worldZ(pModel.Add(down.Mul(zDist)))
	if info.GroundZ < z {
		*info = candidate
		info.GroundZ = z
		info.hitInstance = mi
		return true
	}
	return false
}

// LiquidLevel returns the world liquid height at p of the group recorded in
// info. Models are assumed not to be tilted.
func (mi *ModelInstance) LiquidLevel(p mgl32.Vec3, info *LocationInfo) (float32, bool) {
	if info.HitModel == nil {
		return 0, false
	}
	h, ok := info.HitModel.LiquidLevel(mi.toModel(p))
	if !ok {
		return 0, false
	}
	return h*mi.Scale + mi.Pos[2], true
}
