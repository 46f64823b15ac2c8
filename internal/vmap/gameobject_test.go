package vmap_test

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/vmapd/internal/geom"
	"github.com/udisondev/vmapd/internal/testutil"
	"github.com/udisondev/vmapd/internal/vmap"
)

func TestReadGameObjectModelList(t *testing.T) {
	nan := float32(math.NaN())
	entries := append(testutil.FixtureGameObjectModels(), vmap.GameObjectModelEntry{
		DisplayID: 9,
		GameObjectModelData: vmap.GameObjectModelData{
			Name:  "broken",
			Bound: geom.AABox{Lo: mgl32.Vec3{nan, 0, 0}, Hi: mgl32.Vec3{1, 1, 1}},
		},
	}, vmap.GameObjectModelEntry{
		DisplayID:           10,
		GameObjectModelData: vmap.GameObjectModelData{Name: "after", Bound: testutil.WallBound},
	})
	data := vmap.EncodeGameObjectModelList(entries)

	list, err := vmap.ReadGameObjectModelList(data)
	require.NoError(t, err)
	assert.Len(t, list, 4)
	assert.NotContains(t, list, uint32(9))
	assert.Equal(t, vmap.GameObjectModelData{Name: testutil.WallModel, Bound: testutil.WallBound}, list[testutil.WallDisplayID])
	assert.True(t, list[testutil.FloorDisplayID].IsWMO)
	assert.True(t, list[testutil.DoorDisplayID].Bound.IsZero())

	// a truncated last record leaves the earlier ones
	list, err = vmap.ReadGameObjectModelList(data[:len(data)-5])
	require.NoError(t, err)
	assert.Len(t, list, 3)
	assert.NotContains(t, list, uint32(10))

	_, err = vmap.ReadGameObjectModelList([]byte("VMAP_9.9"))
	assert.ErrorIs(t, err, vmap.ErrWrongMagic)
}

func TestLoadGameObjectModelList(t *testing.T) {
	dir := t.TempDir()
	path := testutil.WriteGameObjectModels(t, dir, testutil.FixtureGameObjectModels())

	list, err := vmap.LoadGameObjectModelList(path)
	require.NoError(t, err)
	assert.Len(t, list, 3)

	_, err = vmap.LoadGameObjectModelList(dir + "/missing")
	assert.Error(t, err)
}

// newWall places the wall model for a game object at pos turned by a
// quarter and scaled by 2, so it covers the plane y = pos.y.
func newWall(t *testing.T, m *vmap.Manager, dir string, pos mgl32.Vec3) (*vmap.GameObjectModel, *testutil.GameObject) {
	t.Helper()
	list, err := vmap.LoadGameObjectModelList(dir + "/" + vmap.GameObjectModelsFile)
	require.NoError(t, err)
	owner := &testutil.GameObject{
		Display: testutil.WallDisplayID,
		Pos:     pos,
		Orient:  math.Pi / 2,
		Size:    2,
		Phase:   1,
		Spawned: true,
	}
	model := vmap.CreateGameObjectModel(owner, list, m, dir)
	require.NotNil(t, model)
	return model, owner
}

func TestCreateGameObjectModelRejects(t *testing.T) {
	dir := testutil.VMapDir(t)
	m := vmap.NewManager()
	list, err := vmap.LoadGameObjectModelList(dir + "/" + vmap.GameObjectModelsFile)
	require.NoError(t, err)

	unknown := &testutil.GameObject{Display: 77, Size: 1, Phase: 1, Spawned: true}
	assert.Nil(t, vmap.CreateGameObjectModel(unknown, list, m, dir))

	door := &testutil.GameObject{Display: testutil.DoorDisplayID, Size: 1, Phase: 1, Spawned: true}
	assert.Nil(t, vmap.CreateGameObjectModel(door, list, m, dir))
	assert.Zero(t, m.ModelCacheSize(), "zero bound must not touch the model cache")

	list[50] = vmap.GameObjectModelData{Name: "nofile", Bound: testutil.WallBound}
	missing := &testutil.GameObject{Display: 50, Size: 1, Phase: 1, Spawned: true}
	assert.Nil(t, vmap.CreateGameObjectModel(missing, list, m, dir))
}

func TestGameObjectModelRay(t *testing.T) {
	dir := testutil.VMapDir(t)
	m := vmap.NewManager()
	wall, owner := newWall(t, m, dir, mgl32.Vec3{200, 200, 0})
	assert.False(t, wall.IsMapObject())
	assert.Equal(t, testutil.WallModel, wall.Name())
	assert.Equal(t, 1, m.ModelRefs(testutil.WallModel))

	b := wall.Bounds()
	assert.InDelta(t, 180, b.Lo.X(), 1e-3)
	assert.InDelta(t, 220, b.Hi.X(), 1e-3)
	assert.InDelta(t, 40, b.Hi.Z(), 1e-3)

	cast := func(from, to mgl32.Vec3, phase uint32, ignore vmap.ModelIgnoreFlags) (float32, bool) {
		d := to.Sub(from).Len()
		ray := geom.NewRay(from, to.Sub(from).Normalize())
		hit := wall.IntersectRay(ray, &d, true, phase, ignore)
		return d, hit
	}

	d, ok := cast(mgl32.Vec3{205, 190, 10}, mgl32.Vec3{205, 210, 10}, 1, vmap.IgnoreNothing)
	require.True(t, ok)
	assert.InDelta(t, 10, d, 1e-3)

	_, ok = cast(mgl32.Vec3{205, 190, 35}, mgl32.Vec3{205, 210, 35}, 1, vmap.IgnoreNothing)
	assert.True(t, ok, "scaled wall reaches z 40")
	_, ok = cast(mgl32.Vec3{205, 190, 45}, mgl32.Vec3{205, 210, 45}, 1, vmap.IgnoreNothing)
	assert.False(t, ok)
	_, ok = cast(mgl32.Vec3{205, 190, 10}, mgl32.Vec3{205, 210, 10}, 2, vmap.IgnoreNothing)
	assert.False(t, ok, "other phase")
	_, ok = cast(mgl32.Vec3{205, 190, 10}, mgl32.Vec3{205, 210, 10}, 1, vmap.IgnoreM2)
	assert.False(t, ok, "M2 ignored")

	wall.EnableCollision(false)
	_, ok = cast(mgl32.Vec3{205, 190, 10}, mgl32.Vec3{205, 210, 10}, 1, vmap.IgnoreNothing)
	assert.False(t, ok)
	wall.EnableCollision(true)

	owner.Spawned = false
	_, ok = cast(mgl32.Vec3{205, 190, 10}, mgl32.Vec3{205, 210, 10}, 1, vmap.IgnoreNothing)
	assert.False(t, ok)
	owner.Spawned = true

	owner.Pos = mgl32.Vec3{300, 300, 0}
	require.True(t, wall.UpdatePosition())
	_, ok = cast(mgl32.Vec3{205, 190, 10}, mgl32.Vec3{205, 210, 10}, 1, vmap.IgnoreNothing)
	assert.False(t, ok, "old place")
	_, ok = cast(mgl32.Vec3{305, 290, 10}, mgl32.Vec3{305, 310, 10}, 1, vmap.IgnoreNothing)
	assert.True(t, ok, "new place")

	wall.Close()
	wall.Close()
	assert.Zero(t, m.ModelRefs(testutil.WallModel))
	assert.False(t, wall.UpdatePosition())
}
