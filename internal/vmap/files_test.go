package vmap_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/vmapd/internal/testutil"
	"github.com/udisondev/vmapd/internal/vmap"
)

func TestReadWorldModelErrors(t *testing.T) {
	data := testutil.FloorWorldModel(t).Encode()

	model, err := vmap.ReadWorldModel(data)
	require.NoError(t, err)
	assert.Equal(t, uint32(testutil.FloorRootID), model.RootWMOID())
	require.Len(t, model.Groups(), 1)
	assert.Equal(t, uint32(testutil.FloorLiquidType), model.Groups()[0].LiquidType())

	_, err = vmap.ReadWorldModel(data[:len(data)-3])
	assert.ErrorIs(t, err, vmap.ErrTruncated)

	bad := append([]byte(nil), data...)
	copy(bad[len(vmap.Magic):], "XXXX")
	_, err = vmap.ReadWorldModel(bad)
	assert.ErrorIs(t, err, vmap.ErrBadChunk)

	_, err = vmap.ReadWorldModel([]byte("VMAP_1.0"))
	assert.ErrorIs(t, err, vmap.ErrWrongMagic)
}

func TestCorruptTileKeepsEarlierSpawns(t *testing.T) {
	dir := testutil.VMapDir(t)
	data := vmap.EncodeTile(testutil.FixtureSpawns())
	// drop the id of the last spawn
	path := filepath.Join(dir, vmap.TileFileName(testutil.FixtureMapID, 10, 10))
	require.NoError(t, os.WriteFile(path, data[:len(data)-4], 0o644))

	m := vmap.NewManager()
	assert.Equal(t, vmap.LoadReadFromFileFailed, m.LoadMap(dir, testutil.FixtureMapID, 10, 10))
	tree := m.Tree(testutil.FixtureMapID)
	require.NotNil(t, tree)
	assert.Equal(t, 1, tree.NumSpawns())
	assert.True(t, tree.HasLoadedTile(10, 10))

	m.UnloadMapTile(testutil.FixtureMapID, 10, 10)
	assert.Zero(t, m.ModelCacheSize())
}

func TestCorruptMapTreeReleasesGlobalSpawns(t *testing.T) {
	dir := testutil.VMapDir(t)
	data := vmap.EncodeMapTree(false, testutil.FixtureSpawns())
	// drop the id of the last spawn
	require.NoError(t, os.WriteFile(filepath.Join(dir, vmap.MapFileName(4)), data[:len(data)-4], 0o644))

	m := vmap.NewManager()
	assert.Equal(t, vmap.LoadReadFromFileFailed, m.LoadMap(dir, 4, 0, 0))
	assert.Nil(t, m.Tree(4))
	assert.Zero(t, m.ModelCacheSize())

	m.UnloadMap(4)
	assert.Zero(t, m.ModelCacheSize())
}

func TestGlobalSpawnsOfUntiledMap(t *testing.T) {
	dir := testutil.VMapDir(t)
	require.NoError(t, vmap.WriteMapTree(dir, 4, false, testutil.FixtureSpawns()))

	m := vmap.NewManager()
	require.Equal(t, vmap.LoadSuccess, m.LoadMap(dir, 4, 0, 0))
	tree := m.Tree(4)
	require.NotNil(t, tree)
	assert.False(t, tree.IsTiled())
	assert.Equal(t, 2, tree.NumSpawns())
	assert.False(t, m.IsInLineOfSight(4, mgl32.Vec3{90, 100, 5}, mgl32.Vec3{110, 100, 5}, vmap.IgnoreNothing))

	m.UnloadMap(4)
	assert.Zero(t, m.ModelCacheSize())
}

func TestSpawnWithoutStoredBound(t *testing.T) {
	spawn := testutil.FixtureSpawns()[0].Spawn
	spawn.Flags = vmap.ModM2
	spawn.Scale = 2
	spawn.Rot = mgl32.Vec3{0, 90, 0}

	inst := vmap.NewModelInstance(spawn, testutil.WallWorldModel(t))
	b := inst.Bounds()
	// a quarter turn around z swaps the wall extents
	assert.InDelta(t, 80, b.Lo.X(), 1e-3)
	assert.InDelta(t, 120, b.Hi.X(), 1e-3)
	assert.InDelta(t, 99, b.Lo.Y(), 1e-3)
	assert.InDelta(t, 101, b.Hi.Y(), 1e-3)
	assert.InDelta(t, 40, b.Hi.Z(), 1e-3)
}
