package collision_test

import (
	"path/filepath"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/vmapd/internal/collision"
	"github.com/udisondev/vmapd/internal/testutil"
	"github.com/udisondev/vmapd/internal/vmap"
)

func newMap(t *testing.T) (*collision.Map, *vmap.Manager) {
	t.Helper()
	dir := testutil.VMapDir(t)
	models, err := vmap.LoadGameObjectModelList(filepath.Join(dir, vmap.GameObjectModelsFile))
	require.NoError(t, err)

	mgr := vmap.NewManager()
	m := collision.New(mgr, testutil.FixtureMapID, dir, models)
	require.Equal(t, vmap.LoadSuccess, m.LoadTile(testutil.FixtureTileX, testutil.FixtureTileY))
	t.Cleanup(m.Close)
	return m, mgr
}

// wallAt is a wall game object in the plane x = pos.x.
func wallAt(pos mgl32.Vec3) *testutil.GameObject {
	return &testutil.GameObject{Display: testutil.WallDisplayID, Pos: pos, Size: 1, Phase: 1, Spawned: true}
}

func floorAt(pos mgl32.Vec3) *testutil.GameObject {
	return &testutil.GameObject{Display: testutil.FloorDisplayID, Pos: pos, Size: 1, Phase: 1, Spawned: true}
}

func TestMapDynamicLifecycle(t *testing.T) {
	m, mgr := newMap(t)
	assert.Equal(t, uint32(testutil.FixtureMapID), m.ID())

	wall := wallAt(mgl32.Vec3{120, 100, 0})
	require.NoError(t, m.AddDynamic(wall))
	assert.ErrorIs(t, m.AddDynamic(wall), collision.ErrDuplicateObject)
	assert.Equal(t, 1, m.NumDynamic())
	// the static wall spawn holds one reference
	assert.Equal(t, 2, mgr.ModelRefs(testutil.WallModel))

	door := &testutil.GameObject{Display: testutil.DoorDisplayID, Size: 1, Phase: 1, Spawned: true}
	assert.ErrorIs(t, m.AddDynamic(door), collision.ErrNoModel)
	assert.ErrorIs(t, m.RemoveDynamic(door), collision.ErrUnknownObject)
	assert.ErrorIs(t, m.UpdateDynamic(door), collision.ErrUnknownObject)

	require.NoError(t, m.RemoveDynamic(wall))
	assert.Zero(t, m.NumDynamic())
	assert.Equal(t, 1, mgr.ModelRefs(testutil.WallModel))
}

func TestMapLineOfSight(t *testing.T) {
	m, _ := newMap(t)
	from := mgl32.Vec3{110, 100, 5}
	to := mgl32.Vec3{130, 100, 5}
	assert.True(t, m.IsInLineOfSight(from, to, 1, vmap.IgnoreNothing))

	wall := wallAt(mgl32.Vec3{120, 100, 0})
	require.NoError(t, m.AddDynamic(wall))
	assert.False(t, m.IsInLineOfSight(from, to, 1, vmap.IgnoreNothing))
	assert.True(t, m.IsInLineOfSight(from, to, 2, vmap.IgnoreNothing), "other phase")

	// the static wall still blocks whatever the phase
	assert.False(t, m.IsInLineOfSight(mgl32.Vec3{90, 100, 5}, mgl32.Vec3{110, 100, 5}, 2, vmap.IgnoreNothing))

	wall.Pos = mgl32.Vec3{140, 100, 0}
	require.NoError(t, m.UpdateDynamic(wall))
	assert.True(t, m.IsInLineOfSight(from, to, 1, vmap.IgnoreNothing))

	wall.Phase = 2
	wall.Pos = mgl32.Vec3{120, 100, 0}
	require.NoError(t, m.UpdateDynamic(wall))
	assert.True(t, m.IsInLineOfSight(from, to, 1, vmap.IgnoreNothing))
	assert.False(t, m.IsInLineOfSight(from, to, 2, vmap.IgnoreNothing))
}

func TestMapObjectHitPosNearest(t *testing.T) {
	m, _ := newMap(t)
	require.NoError(t, m.AddDynamic(wallAt(mgl32.Vec3{120, 100, 0})))

	hit, ok := m.GetObjectHitPos(mgl32.Vec3{90, 100, 5}, mgl32.Vec3{130, 100, 5}, 1, -1)
	require.True(t, ok)
	assert.InDelta(t, 99, hit.X(), 1e-3, "static wall is nearer")

	hit, ok = m.GetObjectHitPos(mgl32.Vec3{130, 100, 5}, mgl32.Vec3{90, 100, 5}, 1, -1)
	require.True(t, ok)
	assert.InDelta(t, 121, hit.X(), 1e-3, "game object is nearer")

	hit, ok = m.GetObjectHitPos(mgl32.Vec3{110, 100, 5}, mgl32.Vec3{130, 100, 5}, 1, 0)
	require.True(t, ok)
	assert.InDelta(t, 120, hit.X(), 1e-3)

	to := mgl32.Vec3{130, 100, 30}
	hit, ok = m.GetObjectHitPos(mgl32.Vec3{90, 100, 30}, to, 1, 0)
	assert.False(t, ok)
	assert.Equal(t, to, hit)
}

func TestMapHeight(t *testing.T) {
	m, _ := newMap(t)

	assert.InDelta(t, 0, m.GetHeight(mgl32.Vec3{105, 100, 10}, 50, 1), 1e-4)
	assert.Equal(t, vmap.InvalidHeightValue, m.GetHeight(mgl32.Vec3{300, 300, 10}, 50, 1))

	require.NoError(t, m.AddDynamic(floorAt(mgl32.Vec3{300, 300, 5})))
	assert.InDelta(t, 5, m.GetHeight(mgl32.Vec3{305, 300, 10}, 50, 1), 1e-4)

	raised := floorAt(mgl32.Vec3{100, 100, 5})
	require.NoError(t, m.AddDynamic(raised))
	assert.InDelta(t, 5, m.GetHeight(mgl32.Vec3{105, 100, 10}, 50, 1), 1e-4, "higher of both")
	assert.InDelta(t, 0, m.GetHeight(mgl32.Vec3{105, 100, 10}, 50, 2), 1e-4, "static only")
	assert.InDelta(t, 0, m.GetHeight(mgl32.Vec3{105, 100, 3}, 50, 1), 1e-4, "below the raised floor")
}

func TestMapAreaAndLiquid(t *testing.T) {
	m, _ := newMap(t)
	pos := mgl32.Vec3{101, 99, 7}

	data := m.GetAreaAndLiquidData(pos, 1, 0)
	assert.InDelta(t, 0, data.FloorZ, 1e-4)
	require.NotNil(t, data.Liquid)
	assert.InDelta(t, testutil.FloorLiquidZ, data.Liquid.Level, 1e-4)

	require.NoError(t, m.AddDynamic(floorAt(mgl32.Vec3{100, 100, 5})))
	data = m.GetAreaAndLiquidData(pos, 1, 0)
	assert.InDelta(t, 5, data.FloorZ, 1e-4)
	require.NotNil(t, data.Liquid)
	assert.InDelta(t, 5+testutil.FloorLiquidZ, data.Liquid.Level, 1e-4)

	area, ok := m.GetAreaInfo(pos, 1)
	require.True(t, ok)
	assert.InDelta(t, 5, area.Z, 1e-4)
	assert.Equal(t, int32(testutil.FloorRootID), area.RootID)

	area, ok = m.GetAreaInfo(pos, 2)
	require.True(t, ok)
	assert.InDelta(t, 0, area.Z, 1e-4)
	assert.Equal(t, int32(testutil.FloorAdtID), area.AdtID)
}

func TestMapUpdateAndClose(t *testing.T) {
	m, mgr := newMap(t)
	require.NoError(t, m.AddDynamic(floorAt(mgl32.Vec3{300, 300, 5})))

	m.Update(500)
	assert.InDelta(t, 5, m.GetHeight(mgl32.Vec3{305, 300, 10}, 50, 1), 1e-4)

	m.Close()
	assert.Zero(t, m.NumDynamic())
	// only the static floor spawn is left
	assert.Equal(t, 1, mgr.ModelRefs(testutil.FloorModel))

	m.UnloadTile(testutil.FixtureTileX, testutil.FixtureTileY)
	assert.Zero(t, mgr.ModelCacheSize())
}
