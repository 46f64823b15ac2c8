package vmap_test

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/vmapd/internal/testutil"
	"github.com/udisondev/vmapd/internal/vmap"
)

func newFloorObject(t *testing.T, m *vmap.Manager, dir string, pos mgl32.Vec3, phase uint32) *vmap.GameObjectModel {
	t.Helper()
	list, err := vmap.LoadGameObjectModelList(dir + "/" + vmap.GameObjectModelsFile)
	require.NoError(t, err)
	owner := &testutil.GameObject{Display: testutil.FloorDisplayID, Pos: pos, Size: 1, Phase: phase, Spawned: true}
	model := vmap.CreateGameObjectModel(owner, list, m, dir)
	require.NotNil(t, model)
	assert.True(t, model.IsMapObject())
	return model
}

func TestDynamicMapTreeQueries(t *testing.T) {
	dir := testutil.VMapDir(t)
	m := vmap.NewManager()
	tree := vmap.NewDynamicMapTree(nil)

	floor := newFloorObject(t, m, dir, mgl32.Vec3{500, 500, 10}, 1)
	wall, _ := newWall(t, m, dir, mgl32.Vec3{500, 520, 10})
	tree.Insert(floor)
	tree.Insert(wall)
	assert.Equal(t, 2, tree.Size())
	assert.True(t, tree.Contains(wall))

	assert.InDelta(t, 10, tree.GetHeight(mgl32.Vec3{505, 500, 20}, 50, 1), 1e-4)
	assert.True(t, math.IsInf(float64(tree.GetHeight(mgl32.Vec3{505, 500, 20}, 50, 2)), -1), "other phase sees nothing")

	assert.False(t, tree.IsInLineOfSight(mgl32.Vec3{505, 510, 15}, mgl32.Vec3{505, 530, 15}, 1, vmap.IgnoreNothing))
	assert.True(t, tree.IsInLineOfSight(mgl32.Vec3{505, 510, 15}, mgl32.Vec3{505, 530, 15}, 1, vmap.IgnoreM2))
	assert.True(t, tree.IsInLineOfSight(mgl32.Vec3{505, 510, 15}, mgl32.Vec3{505, 530, 15}, 2, vmap.IgnoreNothing))

	hit, ok := tree.GetObjectHitPos(mgl32.Vec3{505, 510, 15}, mgl32.Vec3{505, 530, 15}, 1, -1)
	require.True(t, ok)
	assert.InDelta(t, 519, hit.Y(), 1e-3)

	area, ok := tree.GetAreaInfo(mgl32.Vec3{505, 500, 12}, 1)
	require.True(t, ok)
	assert.InDelta(t, 10, area.Z, 1e-4)
	assert.Equal(t, int32(testutil.FloorRootID), area.RootID)
	assert.Equal(t, int32(testutil.FloorGroupID), area.GroupID)

	data := tree.GetAreaAndLiquidData(mgl32.Vec3{501, 499, 12}, 1, 0)
	assert.InDelta(t, 10, data.FloorZ, 1e-4)
	require.NotNil(t, data.Liquid)
	assert.InDelta(t, 10+testutil.FloorLiquidZ, data.Liquid.Level, 1e-4)
	require.NotNil(t, data.Area)
	assert.Equal(t, int32(testutil.FloorRootID), data.Area.RootID)

	tree.Remove(floor)
	assert.False(t, tree.Contains(floor))
	assert.True(t, math.IsInf(float64(tree.GetHeight(mgl32.Vec3{505, 500, 20}, 50, 1)), -1))
	_, ok = tree.GetAreaInfo(mgl32.Vec3{505, 500, 12}, 1)
	assert.False(t, ok)
}

func TestDynamicMapTreeUpdateBalances(t *testing.T) {
	dir := testutil.VMapDir(t)
	m := vmap.NewManager()
	tree := vmap.NewDynamicMapTree(vmap.NopPolicy{})

	tree.Update(1000)
	floor := newFloorObject(t, m, dir, mgl32.Vec3{500, 500, 10}, 1)
	tree.Insert(floor)

	// queries work before and after the periodic rebalance
	assert.InDelta(t, 10, tree.GetHeight(mgl32.Vec3{505, 500, 20}, 50, 1), 1e-4)
	tree.Update(100)
	assert.InDelta(t, 10, tree.GetHeight(mgl32.Vec3{505, 500, 20}, 50, 1), 1e-4)
	tree.Update(100)
	assert.InDelta(t, 10, tree.GetHeight(mgl32.Vec3{505, 500, 20}, 50, 1), 1e-4)
}
