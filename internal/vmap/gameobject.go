package vmap

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/udisondev/vmapd/internal/geom"
)

// GameObjectModelData is the model of one game object display id.
type GameObjectModelData struct {
	Name  string
	Bound geom.AABox
	IsWMO bool
}

// GameObjectModelList maps display ids to models.
type GameObjectModelList map[uint32]GameObjectModelData

// GameObjectModelEntry is one record of the model list file.
type GameObjectModelEntry struct {
	DisplayID uint32
	GameObjectModelData
}

// ReadGameObjectModelList parses a model list. A truncated or corrupt
// record stops parsing and the records read so far are kept; a record with
// NaN bounds is skipped on its own. Only a bad header is an error.
func ReadGameObjectModelList(data []byte) (GameObjectModelList, error) {
	d := newDecoder(data)
	d.magic()
	if d.err != nil {
		return nil, d.err
	}

	list := make(GameObjectModelList)
	for d.remaining() > 0 {
		displayID := d.u32()
		isWMO := d.u8()
		nameLen := d.u32()
		if d.err == nil && nameLen >= maxNameLength {
			d.err = fmt.Errorf("display %d name length %d: %w", displayID, nameLen, ErrNameTooLong)
		}
		name := d.str(int(nameLen))
		lo := d.vec3()
		hi := d.vec3()
		if d.err != nil {
			slog.Error("game object model list is corrupted", "records", len(list), "error", d.err)
			break
		}
		if geom.HasNaN(lo) || geom.HasNaN(hi) {
			slog.Error("game object model has invalid bounds", "model", name, "low", lo, "high", hi)
			continue
		}
		list[displayID] = GameObjectModelData{
			Name:  name,
			Bound: geom.AABox{Lo: lo, Hi: hi},
			IsWMO: isWMO != 0,
		}
	}
	return list, nil
}

// LoadGameObjectModelList reads the model list file.
func LoadGameObjectModelList(path string) (GameObjectModelList, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading game object models %s: %w", path, err)
	}
	list, err := ReadGameObjectModelList(data)
	if err != nil {
		return nil, fmt.Errorf("parsing game object models %s: %w", path, err)
	}
	slog.Info("game object models loaded", "count", len(list))
	return list, nil
}

// EncodeGameObjectModelList serializes entries in order.
func EncodeGameObjectModelList(entries []GameObjectModelEntry) []byte {
	e := &encoder{}
	e.raw(Magic)
	for _, m := range entries {
		e.u32(m.DisplayID)
		if m.IsWMO {
			e.u8(1)
		} else {
			e.u8(0)
		}
		e.u32(uint32(len(m.Name)))
		e.raw(m.Name)
		e.vec3(m.Bound.Lo)
		e.vec3(m.Bound.Hi)
	}
	return e.buf
}

// Owner is the game object a GameObjectModel collides for.
type Owner interface {
	DisplayID() uint32
	Position() mgl32.Vec3
	Orientation() float32
	Scale() float32
	PhaseMask() uint32
	IsSpawned() bool
}

// GameObjectModel gives a shared model the transform of a game object.
// Call UpdatePosition whenever the owner moves or turns.
type GameObjectModel struct {
	owner    Owner
	provider ModelLoader
	models   GameObjectModelList

	name      string
	isWMO     bool
	collision bool
	phaseMask uint32

	bound    geom.AABox
	rot      mgl32.Mat3
	invRot   mgl32.Mat3
	pos      mgl32.Vec3
	scale    float32
	invScale float32
	model    *WorldModel
}

// CreateGameObjectModel builds the collision model of owner. It returns
// nil when the display id has no model, the model has zero bounds, or the
// model cannot be acquired.
func CreateGameObjectModel(owner Owner, models GameObjectModelList, provider ModelLoader, basePath string) *GameObjectModel {
	data, ok := models[owner.DisplayID()]
	if !ok {
		return nil
	}
	if data.Bound.IsZero() {
		slog.Error("game object model skipped", "model", data.Name, "error", ErrZeroBound)
		return nil
	}

	flags := ModM2
	if data.IsWMO {
		flags = ModWorldSpawn
	}
	model := provider.AcquireModelInstance(basePath, data.Name, flags)
	if model == nil {
		return nil
	}

	m := &GameObjectModel{
		owner:     owner,
		provider:  provider,
		models:    models,
		name:      data.Name,
		isWMO:     data.IsWMO,
		collision: true,
		phaseMask: owner.PhaseMask(),
		scale:     owner.Scale(),
		model:     model,
	}
	m.invScale = 1 / m.scale
	m.place(data.Bound)
	return m
}

// place recomputes the transform and world bound from the owner and the
// object-space bound.
func (m *GameObjectModel) place(objBound geom.AABox) {
	m.pos = m.owner.Position()
	m.rot = geom.RotationZ(m.owner.Orientation())
	m.invRot = m.rot.Transpose()
	m.bound = objBound.Transform(m.rot, m.scale, m.pos)
}

// UpdatePosition refreshes the world bound after the owner moved.
func (m *GameObjectModel) UpdatePosition() bool {
	if m.model == nil {
		return false
	}
	data, ok := m.models[m.owner.DisplayID()]
	if !ok || data.Bound.IsZero() {
		return false
	}
	m.place(data.Bound)
	return true
}

// Close releases the model reference. Later calls do nothing.
func (m *GameObjectModel) Close() {
	if m.model == nil {
		return
	}
	m.provider.ReleaseModelInstance(m.name)
	m.model = nil
}

func (m *GameObjectModel) Bounds() geom.AABox       { return m.bound }
func (m *GameObjectModel) Name() string             { return m.name }
func (m *GameObjectModel) IsMapObject() bool        { return m.isWMO }
func (m *GameObjectModel) Position() mgl32.Vec3     { return m.pos }
func (m *GameObjectModel) PhaseMask() uint32        { return m.phaseMask }
func (m *GameObjectModel) SetPhaseMask(p uint32)    { m.phaseMask = p }
func (m *GameObjectModel) EnableCollision(on bool)  { m.collision = on }
func (m *GameObjectModel) IsCollisionEnabled() bool { return m.collision }

func (m *GameObjectModel) String() string {
	return fmt.Sprintf("GameObjectModel(%d %s)", m.owner.DisplayID(), m.name)
}

// active reports whether the model collides for phaseMask.
func (m *GameObjectModel) active(phaseMask uint32) bool {
	return m.model != nil && m.collision && m.phaseMask&phaseMask != 0 && m.owner.IsSpawned()
}

func (m *GameObjectModel) toModel(p mgl32.Vec3) mgl32.Vec3 {
	return m.invRot.Mul3x1(p.Sub(m.pos)).Mul(m.invScale)
}

func (m *GameObjectModel) worldZ(p mgl32.Vec3) float32 {
	return m.rot.Mul3x1(p).Mul(m.scale).Add(m.pos)[2]
}

// IntersectRay tests a world ray against the object. On a hit *maxDist is
// set to the world distance.
func (m *GameObjectModel) IntersectRay(ray geom.Ray, maxDist *float32, stopAtFirstHit bool, phaseMask uint32, ignore ModelIgnoreFlags) bool {
	if !m.active(phaseMask) {
		return false
	}
	if ray.IntersectionTime(m.bound) == geom.Inf {
		return false
	}
	modelRay := geom.NewRay(m.toModel(ray.Origin), m.invRot.Mul3x1(ray.Direction))
	dist := *maxDist * m.invScale
	if !m.model.IntersectRay(modelRay, &dist, stopAtFirstHit, ignore) {
		return false
	}
	*maxDist = dist * m.scale
	return true
}

// IntersectPoint records area information below p for map objects.
func (m *GameObjectModel) IntersectPoint(p mgl32.Vec3, info *AreaInfo, phaseMask uint32) {
	if !m.active(phaseMask) || !m.isWMO || !m.bound.Contains(p) {
		return
	}
	pModel := m.toModel(p)
	down := m.invRot.Mul3x1(mgl32.Vec3{0, 0, -1})
	zDist, ok := m.model.IntersectPoint(pModel, down, info)
	if !ok {
		return
	}
	if z := m.worldZ(pModel.Add(down.Mul(zDist))); info.GroundZ < z {
		info.GroundZ = z
	}
}

// GetLocationInfo records the group below p when it is higher than what
// info already holds.
func (m *GameObjectModel) GetLocationInfo(p mgl32.Vec3, info *LocationInfo, phaseMask uint32) bool {
	if !m.active(phaseMask) || !m.isWMO || !m.bound.Contains(p) {
		return false
	}
	pModel := m.toModel(p)
	down := m.invRot.Mul3x1(mgl32.Vec3{0, 0, -1})
	candidate := *info
	zDist, ok := m.model.GetLocationInfo(pModel, down, &candidate)
	if !ok {
		return false
	}
	if z := m.worldZ(pModel.Add(down.Mul(zDist))); info.GroundZ < z {
		*info = candidate
		info.GroundZ = z
		return true
	}
	return false
}

// LiquidLevel returns the world liquid height at p of the group recorded
// in info.
func (m *GameObjectModel) LiquidLevel(p mgl32.Vec3, info *LocationInfo) (float32, bool) {
	if info.HitModel == nil {
		return 0, false
	}
	h, ok := info.HitModel.LiquidLevel(m.toModel(p))
	if !ok {
		return 0, false
	}
	return h*m.scale + m.pos[2], true
}
