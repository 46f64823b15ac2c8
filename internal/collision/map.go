// Package collision combines the static geometry of a map with the game
// objects placed on it.
package collision

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/udisondev/vmapd/internal/vmap"
)

// Map answers collision queries for one map. Static geometry comes from the
// shared manager, game objects live in the map's own dynamic tree.
type Map struct {
	id      uint32
	mgr     *vmap.Manager
	dataDir string
	models  vmap.GameObjectModelList

	mu      sync.RWMutex
	dynamic *vmap.DynamicMapTree
	objects map[vmap.Owner]*vmap.GameObjectModel
}

// New returns the collision view of mapID. models is the game object model
// list; it may be nil when the map has no game objects.
func New(mgr *vmap.Manager, mapID uint32, dataDir string, models vmap.GameObjectModelList) *Map {
	return &Map{
		id:      mapID,
		mgr:     mgr,
		dataDir: dataDir,
		models:  models,
		dynamic: vmap.NewDynamicMapTree(mgr.Policy()),
		objects: make(map[vmap.Owner]*vmap.GameObjectModel),
	}
}

// ID returns the map id.
func (m *Map) ID() uint32 { return m.id }

// LoadTile loads a static tile of the map.
func (m *Map) LoadTile(tileX, tileY uint32) vmap.LoadResult {
	return m.mgr.LoadMap(m.dataDir, m.id, tileX, tileY)
}

// UnloadTile unloads a static tile of the map.
func (m *Map) UnloadTile(tileX, tileY uint32) {
	m.mgr.UnloadMapTile(m.id, tileX, tileY)
}

// AddDynamic places the collision model of owner on the map.
func (m *Map) AddDynamic(owner vmap.Owner) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.objects[owner]; ok {
		return fmt.Errorf("display %d: %w", owner.DisplayID(), ErrDuplicateObject)
	}
	model := vmap.CreateGameObjectModel(owner, m.models, m.mgr, m.dataDir)
	if model == nil {
		return fmt.Errorf("display %d: %w", owner.DisplayID(), ErrNoModel)
	}
	m.dynamic.Insert(model)
	m.objects[owner] = model
	slog.Debug("game object collision added", "map", m.id, "model", model.Name(), "position", model.Position())
	return nil
}

// RemoveDynamic takes the model of owner off the map and releases it.
func (m *Map) RemoveDynamic(owner vmap.Owner) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	model, ok := m.objects[owner]
	if !ok {
		return fmt.Errorf("display %d: %w", owner.DisplayID(), ErrUnknownObject)
	}
	m.dynamic.Remove(model)
	model.Close()
	delete(m.objects, owner)
	return nil
}

// UpdateDynamic picks up a new position, orientation or phase mask of
// owner.
func (m *Map) UpdateDynamic(owner vmap.Owner) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	model, ok := m.objects[owner]
	if !ok {
		return fmt.Errorf("display %d: %w", owner.DisplayID(), ErrUnknownObject)
	}
	// the grid cells follow the bound, so the model is re-inserted
	m.dynamic.Remove(model)
	model.UpdatePosition()
	model.SetPhaseMask(owner.PhaseMask())
	m.dynamic.Insert(model)
	return nil
}

// NumDynamic returns the number of placed game objects.
func (m *Map) NumDynamic() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}

// Update advances the dynamic tree by diff milliseconds.
func (m *Map) Update(diff int32) {
	m.mu.Lock()
	m.dynamic.Update(diff)
	m.mu.Unlock()
}

// Close removes every game object and releases its model.
func (m *Map) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for owner, model := range m.objects {
		m.dynamic.Remove(model)
		model.Close()
		delete(m.objects, owner)
	}
}

// IsInLineOfSight reports whether neither static geometry nor a game
// object in phaseMask blocks p1-p2.
func (m *Map) IsInLineOfSight(p1, p2 mgl32.Vec3, phaseMask uint32, ignore vmap.ModelIgnoreFlags) bool {
	if !m.mgr.IsInLineOfSight(m.id, p1, p2, ignore) {
		return false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.dynamic.IsInLineOfSight(p1, p2, phaseMask, ignore)
}

// GetObjectHitPos returns the hit nearest to p1 of static geometry and game
// objects, moved by modifyDist. Without a hit it returns p2 and false.
func (m *Map) GetObjectHitPos(p1, p2 mgl32.Vec3, phaseMask uint32, modifyDist float32) (mgl32.Vec3, bool) {
	staticPos, staticHit := m.mgr.GetObjectHitPos(m.id, p1, p2, modifyDist)

	m.mu.RLock()
	dynPos, dynHit := m.dynamic.GetObjectHitPos(p1, p2, phaseMask, modifyDist)
	m.mu.RUnlock()

	switch {
	case staticHit && dynHit:
		if dynPos.Sub(p1).LenSqr() < staticPos.Sub(p1).LenSqr() {
			return dynPos, true
		}
		return staticPos, true
	case staticHit:
		return staticPos, true
	case dynHit:
		return dynPos, true
	}
	return p2, false
}

// GetHeight returns the highest static or game object surface below pos
// within maxSearchDist, or vmap.InvalidHeightValue.
func (m *Map) GetHeight(pos mgl32.Vec3, maxSearchDist float32, phaseMask uint32) float32 {
	h := m.mgr.GetHeight(m.id, pos, maxSearchDist)

	m.mu.RLock()
	dyn := m.dynamic.GetHeight(pos, maxSearchDist, phaseMask)
	m.mu.RUnlock()

	if dyn > vmap.InvalidHeight && dyn > h {
		return dyn
	}
	return h
}

// GetAreaInfo returns the area of the highest map object below pos, static
// or dynamic.
func (m *Map) GetAreaInfo(pos mgl32.Vec3, phaseMask uint32) (vmap.AreaResult, bool) {
	area, ok := m.mgr.GetAreaInfo(m.id, pos)

	m.mu.RLock()
	dyn, dynOK := m.dynamic.GetAreaInfo(pos, phaseMask)
	m.mu.RUnlock()

	if dynOK && (!ok || dyn.Z > area.Z) {
		return dyn, true
	}
	return area, ok
}

// GetAreaAndLiquidData returns floor, area and liquid at pos from the
// higher of static geometry and game objects.
func (m *Map) GetAreaAndLiquidData(pos mgl32.Vec3, phaseMask uint32, reqLiquidType uint8) vmap.AreaAndLiquidData {
	data := m.mgr.GetAreaAndLiquidData(m.id, pos, reqLiquidType)

	m.mu.RLock()
	dyn := m.dynamic.GetAreaAndLiquidData(pos, phaseMask, reqLiquidType)
	m.mu.RUnlock()

	if dyn.Area != nil && dyn.FloorZ > data.FloorZ {
		return dyn
	}
	return data
}
