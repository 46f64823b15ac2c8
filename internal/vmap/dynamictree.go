package vmap

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/udisondev/vmapd/internal/geom"
)

// checkTreePeriod is how often, in milliseconds, Update rebalances a tree
// that changed.
const checkTreePeriod = 200

type objectGrid = RegularGrid2D[*GameObjectModel, *BVHNode[*GameObjectModel]]

// DynamicMapTree indexes the game object models of one map. It is not
// synchronized; the map update goroutine owns it.
type DynamicMapTree struct {
	grid            *objectGrid
	policy          Policy
	rebalanceTimer  int32
	unbalancedTimes int
}

// NewDynamicMapTree returns an empty tree. policy supplies liquid flags.
func NewDynamicMapTree(policy Policy) *DynamicMapTree {
	if policy == nil {
		policy = NopPolicy{}
	}
	return &DynamicMapTree{
		grid:           NewRegularGrid2D[*GameObjectModel](NewBVHNode[*GameObjectModel]),
		policy:         policy,
		rebalanceTimer: checkTreePeriod,
	}
}

func (t *DynamicMapTree) Insert(m *GameObjectModel) {
	t.grid.Insert(m)
	t.unbalancedTimes++
}

func (t *DynamicMapTree) Remove(m *GameObjectModel) {
	t.grid.Remove(m)
	t.unbalancedTimes++
}

func (t *DynamicMapTree) Contains(m *GameObjectModel) bool { return t.grid.Contains(m) }
func (t *DynamicMapTree) Size() int                        { return t.grid.Size() }

// Balance rebuilds every cell tree now.
func (t *DynamicMapTree) Balance() {
	t.grid.Balance()
	t.unbalancedTimes = 0
}

// Update advances the rebalance timer by diff milliseconds and rebalances
// when the period passed and the tree changed since the last rebalance.
func (t *DynamicMapTree) Update(diff int32) {
	if t.grid.Size() == 0 {
		return
	}
	t.rebalanceTimer -= diff
	if t.rebalanceTimer > 0 {
		return
	}
	t.rebalanceTimer = checkTreePeriod
	if t.unbalancedTimes > 0 {
		t.Balance()
	}
}

func (t *DynamicMapTree) intersectionTime(ray geom.Ray, maxDist *float32, stopAtFirstHit bool, phaseMask uint32, ignore ModelIgnoreFlags) bool {
	dist := *maxDist
	hit := false
	t.grid.IntersectRay(ray, func(r geom.Ray, m *GameObjectModel, d *float32, stop bool) bool {
		if m.IntersectRay(r, d, stop, phaseMask, ignore) {
			hit = true
			return true
		}
		return false
	}, &dist, stopAtFirstHit)
	if hit {
		*maxDist = dist
	}
	return hit
}

// IsInLineOfSight reports whether no object in phaseMask blocks p1-p2.
func (t *DynamicMapTree) IsInLineOfSight(p1, p2 mgl32.Vec3, phaseMask uint32, ignore ModelIgnoreFlags) bool {
	maxDist := p2.Sub(p1).Len()
	if maxDist < minRayLength {
		return true
	}
	ray := geom.NewRay(p1, p2.Sub(p1).Mul(1/maxDist))
	return !t.intersectionTime(ray, &maxDist, true, phaseMask, ignore)
}

// GetObjectHitPos returns the first object hit between p1 and p2 moved by
// modifyDist, or p2 and false.
func (t *DynamicMapTree) GetObjectHitPos(p1, p2 mgl32.Vec3, phaseMask uint32, modifyDist float32) (mgl32.Vec3, bool) {
	maxDist := p2.Sub(p1).Len()
	if maxDist < minRayLength {
		return p2, false
	}
	dir := p2.Sub(p1).Mul(1 / maxDist)
	if !t.intersectionTime(geom.NewRay(p1, dir), &maxDist, false, phaseMask, IgnoreNothing) {
		return p2, false
	}
	return adjustHitPos(p1, dir, maxDist, modifyDist), true
}

// GetHeight returns the highest object surface below pos within
// maxSearchDist, or -Inf.
func (t *DynamicMapTree) GetHeight(pos mgl32.Vec3, maxSearchDist float32, phaseMask uint32) float32 {
	start := pos.Add(mgl32.Vec3{0, 0, heightProbeOffset})
	ray := geom.NewRay(start, mgl32.Vec3{0, 0, -1})
	dist := maxSearchDist + heightProbeOffset
	hit := false
	t.grid.IntersectZAlignedRay(ray, func(r geom.Ray, m *GameObjectModel, d *float32, stop bool) bool {
		if m.IntersectRay(r, d, stop, phaseMask, IgnoreNothing) {
			hit = true
			return true
		}
		return false
	}, &dist)
	if !hit {
		return -geom.Inf
	}
	return start[2] - dist
}

// GetAreaInfo returns area information of the map object below pos.
func (t *DynamicMapTree) GetAreaInfo(pos mgl32.Vec3, phaseMask uint32) (AreaResult, bool) {
	probe := pos.Add(mgl32.Vec3{0, 0, heightProbeOffset})
	info := NewAreaInfo()
	t.grid.IntersectPoint(probe, func(p mgl32.Vec3, m *GameObjectModel) {
		m.IntersectPoint(p, &info, phaseMask)
	})
	if !info.Result {
		return AreaResult{}, false
	}
	return AreaResult{
		Z:       info.GroundZ,
		Flags:   info.Flags,
		AdtID:   info.AdtID,
		RootID:  info.RootID,
		GroupID: info.GroupID,
	}, true
}

// GetAreaAndLiquidData returns floor, area and liquid of the map object
// below pos.
func (t *DynamicMapTree) GetAreaAndLiquidData(pos mgl32.Vec3, phaseMask uint32, reqLiquidType uint8) AreaAndLiquidData {
	data := AreaAndLiquidData{FloorZ: InvalidHeight}
	probe := pos.Add(mgl32.Vec3{0, 0, heightProbeOffset})

	info := NewLocationInfo()
	var hit *GameObjectModel
	t.grid.IntersectPoint(probe, func(p mgl32.Vec3, m *GameObjectModel) {
		if m.GetLocationInfo(p, &info, phaseMask) {
			hit = m
		}
	})
	if hit == nil {
		return data
	}

	data.FloorZ = info.GroundZ
	liquidType := info.HitModel.LiquidType()
	if reqLiquidType == 0 || t.policy.LiquidFlags(liquidType)&uint32(reqLiquidType) != 0 {
		if level, ok := hit.LiquidLevel(probe, &info); ok {
			data.Liquid = &LiquidData{Type: liquidType, Level: level}
		}
	}
	data.Area = &AreaData{
		RootID:    info.RootID,
		GroupID:   int32(info.HitModel.WmoID()),
		MogpFlags: info.HitModel.MogpFlags(),
	}
	return data
}
