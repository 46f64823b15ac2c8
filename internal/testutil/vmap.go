package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/udisondev/vmapd/internal/geom"
	"github.com/udisondev/vmapd/internal/vmap"
)

// The vmap fixture is map 0 tile (32,32) with two spawns around
// FixtureOrigin: a thin vertical M2 wall in the plane x = FixtureOrigin.x
// spanning y ±10 and z 0..20, and a flat WMO floor at z = 0 spanning ±50
// with a liquid at height 3 near the origin.
const (
	FixtureMapID = 0
	FixtureTileX = 32
	FixtureTileY = 32

	WallModel  = "wall"
	FloorModel = "floor"
	DoorModel  = "door"

	FloorRootID     = 42
	FloorGroupID    = 7
	FloorMogpFlags  = 0x8
	FloorAdtID      = 3
	FloorLiquidType = 4
	FloorLiquidZ    = 3

	WallDisplayID  = 1
	DoorDisplayID  = 2
	FloorDisplayID = 3
)

// FixtureOrigin is where both fixture spawns are placed.
var FixtureOrigin = mgl32.Vec3{100, 100, 0}

// WallBound is the object-space bound of the wall model.
var WallBound = geom.AABox{Lo: mgl32.Vec3{-0.5, -10, 0}, Hi: mgl32.Vec3{0.5, 10, 20}}

// FloorBound is the object-space bound of the floor model.
var FloorBound = geom.AABox{Lo: mgl32.Vec3{-50, -50, -1}, Hi: mgl32.Vec3{50, 50, 10}}

// quad builds a group of two triangles over four corners.
func quad(tb testing.TB, wmoID, mogpFlags uint32, bound geom.AABox, corners [4]mgl32.Vec3, liquid *vmap.WmoLiquid) *vmap.GroupModel {
	tb.Helper()
	g, err := vmap.NewGroupModel(mogpFlags, wmoID, bound, corners[:], []vmap.MeshTriangle{{I0: 0, I1: 1, I2: 2}, {I0: 0, I1: 2, I2: 3}}, liquid)
	if err != nil {
		tb.Fatalf("building group: %v", err)
	}
	return g
}

// WallWorldModel returns the wall mesh.
func WallWorldModel(tb testing.TB) *vmap.WorldModel {
	tb.Helper()
	g := quad(tb, 1, 0, WallBound, [4]mgl32.Vec3{
		{0, -10, 0}, {0, 10, 0}, {0, 10, 20}, {0, -10, 20},
	}, nil)
	return vmap.NewWorldModel(11, vmap.ModM2, []*vmap.GroupModel{g})
}

// FloorWorldModel returns the floor mesh with its liquid.
func FloorWorldModel(tb testing.TB) *vmap.WorldModel {
	tb.Helper()
	heights := make([]float32, 9)
	for i := range heights {
		heights[i] = FloorLiquidZ
	}
	liquid, err := vmap.NewWmoLiquid(2, 2, mgl32.Vec3{-5, -5, 0}, FloorLiquidType, heights, make([]uint8, 4))
	if err != nil {
		tb.Fatalf("building liquid: %v", err)
	}
	g := quad(tb, FloorGroupID, FloorMogpFlags, FloorBound, [4]mgl32.Vec3{
		{-50, -50, 0}, {50, -50, 0}, {50, 50, 0}, {-50, 50, 0},
	}, liquid)
	return vmap.NewWorldModel(FloorRootID, vmap.ModWorldSpawn, []*vmap.GroupModel{g})
}

// FixtureSpawns returns the tile spawns of the fixture.
func FixtureSpawns() []vmap.SpawnEntry {
	return []vmap.SpawnEntry{
		{
			SpawnID: 0,
			Spawn: vmap.ModelSpawn{
				Flags: vmap.ModM2 | vmap.ModHasBound,
				ID:    1001,
				Pos:   FixtureOrigin,
				Scale: 1,
				Bound: WallBound.Translate(FixtureOrigin),
				Name:  WallModel,
			},
		},
		{
			SpawnID: 1,
			Spawn: vmap.ModelSpawn{
				Flags: vmap.ModWorldSpawn | vmap.ModHasBound,
				AdtID: FloorAdtID,
				ID:    1002,
				Pos:   FixtureOrigin,
				Scale: 1,
				Bound: FloorBound.Translate(FixtureOrigin),
				Name:  FloorModel,
			},
		},
	}
}

// WriteVMapFixture writes the fixture map tree, tile and models into dir.
func WriteVMapFixture(tb testing.TB, dir string) {
	tb.Helper()
	must(tb, vmap.WriteMapTree(dir, FixtureMapID, true, nil))
	must(tb, vmap.WriteTile(dir, FixtureMapID, FixtureTileX, FixtureTileY, FixtureSpawns()))
	must(tb, vmap.WriteWorldModel(dir, WallModel, WallWorldModel(tb)))
	must(tb, vmap.WriteWorldModel(dir, FloorModel, FloorWorldModel(tb)))
}

// FixtureGameObjectModels returns the model list entries of the fixture.
// The door has a zero bound.
func FixtureGameObjectModels() []vmap.GameObjectModelEntry {
	return []vmap.GameObjectModelEntry{
		{DisplayID: WallDisplayID, GameObjectModelData: vmap.GameObjectModelData{Name: WallModel, Bound: WallBound}},
		{DisplayID: DoorDisplayID, GameObjectModelData: vmap.GameObjectModelData{Name: DoorModel, IsWMO: true}},
		{DisplayID: FloorDisplayID, GameObjectModelData: vmap.GameObjectModelData{Name: FloorModel, Bound: FloorBound, IsWMO: true}},
	}
}

// WriteGameObjectModels writes a model list file into dir and returns its
// path.
func WriteGameObjectModels(tb testing.TB, dir string, entries []vmap.GameObjectModelEntry) string {
	tb.Helper()
	path := filepath.Join(dir, vmap.GameObjectModelsFile)
	must(tb, os.WriteFile(path, vmap.EncodeGameObjectModelList(entries), 0o644))
	return path
}

// VMapDir creates a temporary directory holding the full fixture.
func VMapDir(tb testing.TB) string {
	tb.Helper()
	dir := tb.TempDir()
	WriteVMapFixture(tb, dir)
	WriteGameObjectModels(tb, dir, FixtureGameObjectModels())
	return dir
}

// GameObject is a minimal vmap.Owner for tests.
type GameObject struct {
	Display uint32
	Pos     mgl32.Vec3
	Orient  float32
	Size    float32
	Phase   uint32
	Spawned bool
}

func (g *GameObject) DisplayID() uint32    { return g.Display }
func (g *GameObject) Position() mgl32.Vec3 { return g.Pos }
func (g *GameObject) Orientation() float32 { return g.Orient }
func (g *GameObject) Scale() float32       { return g.Size }
func (g *GameObject) PhaseMask() uint32    { return g.Phase }
func (g *GameObject) IsSpawned() bool      { return g.Spawned }

func must(tb testing.TB, err error) {
	tb.Helper()
	if err != nil {
		tb.Fatalf("writing vmap fixture: %v", err)
	}
}
