package vmap

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/udisondev/vmapd/internal/geom"
)

// minRayLength is the shortest segment ray queries trace.
const minRayLength = 1e-10

// heightProbeOffset lifts the start of height probes so that a point lying
// exactly on a surface still finds it.
const heightProbeOffset = 0.5

// ModelLoader acquires and releases shared models by name.
type ModelLoader interface {
	AcquireModelInstance(basePath, name string, flags ModelFlags) *WorldModel
	ReleaseModelInstance(name string)
}

type instanceGrid = RegularGrid2D[*ModelInstance, *BVHNode[*ModelInstance]]

// loadedSpawn is a spawn referenced by one or more loaded tiles.
type loadedSpawn struct {
	inst *ModelInstance
	refs int
}

// tileSpawn is what a tile acquired, so unloading needs no file access.
type tileSpawn struct {
	spawnID uint32
	name    string
}

// StaticMapTree indexes the static model spawns of one map. Queries take a
// read lock; tile loading and unloading take the write lock.
type StaticMapTree struct {
	mapID    uint32
	basePath string

	mu     sync.RWMutex
	tiled  bool
	grid   *instanceGrid
	spawns map[uint32]*loadedSpawn
	// tiles maps a packed tile id to the spawns loaded with it; a nil
	// slice means the tile had no file.
	tiles  map[uint32][]tileSpawn
	global []tileSpawn
}

// NewStaticMapTree returns an uninitialized tree for mapID.
func NewStaticMapTree(mapID uint32, basePath string) *StaticMapTree {
	return &StaticMapTree{
		mapID:    mapID,
		basePath: basePath,
		grid:     NewRegularGrid2D[*ModelInstance](NewBVHNode[*ModelInstance]),
		spawns:   make(map[uint32]*loadedSpawn),
		tiles:    make(map[uint32][]tileSpawn),
	}
}

// MapID returns the map id.
func (t *StaticMapTree) MapID() uint32 { return t.mapID }

// IsTiled reports whether the map is split into tiles.
func (t *StaticMapTree) IsTiled() bool { return t.tiled }

// InitMap reads the map tree file. Global spawns are loaded right away for
// maps that are not tiled.
func (t *StaticMapTree) InitMap(fname string, loader ModelLoader) error {
	path := filepath.Join(t.basePath, fname)
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading map tree %s: %w", path, err)
	}

	d := newDecoder(data)
	d.magic()
	tiled := d.u8() != 0
	n := d.u32()
	if d.err != nil {
		return fmt.Errorf("parsing map tree %s: %w", path, d.err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.tiled = tiled

	if tiled {
		slog.Debug("map tree initialized", "map", t.mapID, "tiled", true)
		return nil
	}
	for i := range n {
		spawn, err := readModelSpawn(d)
		spawnID := d.u32()
		if err == nil {
			err = d.err
		}
		if err != nil {
			// the tree is dropped, so nothing could release these later
			for _, ts := range t.global {
				t.releaseSpawn(ts, loader)
			}
			t.global = nil
			return fmt.Errorf("parsing map tree %s spawn %d: %w", path, i, err)
		}
		if t.addSpawn(spawn, spawnID, loader) {
			t.global = append(t.global, tileSpawn{spawnID: spawnID, name: spawn.Name})
		}
	}
	t.grid.Balance()
	slog.Debug("map tree initialized", "map", t.mapID, "tiled", false, "spawns", len(t.global))
	return nil
}

// addSpawn acquires the spawn model and indexes the spawn, or bumps its
// reference count when another tile already loaded it. Callers hold mu.
func (t *StaticMapTree) addSpawn(spawn ModelSpawn, spawnID uint32, loader ModelLoader) bool {
	model := loader.AcquireModelInstance(t.basePath, spawn.Name, spawn.Flags)
	if model == nil {
		slog.Error("could not acquire world model", "map", t.mapID, "model", spawn.Name)
		return false
	}
	if ls, ok := t.spawns[spawnID]; ok {
		ls.refs++
		return true
	}
	inst := NewModelInstance(spawn, model)
	t.spawns[spawnID] = &loadedSpawn{inst: inst, refs: 1}
	t.grid.Insert(inst)
	return true
}

// releaseSpawn drops one reference of a spawn and its model. Callers
// hold mu.
func (t *StaticMapTree) releaseSpawn(ts tileSpawn, loader ModelLoader) {
	loader.ReleaseModelInstance(ts.name)
	ls, ok := t.spawns[ts.spawnID]
	if !ok {
		slog.Error("unloading non-referenced spawn", "map", t.mapID, "spawn", ts.spawnID)
		return
	}
	ls.refs--
	if ls.refs == 0 {
		t.grid.Remove(ls.inst)
		delete(t.spawns, ts.spawnID)
	}
}

// LoadMapTile loads the spawns of a tile. A missing tile file is not an
// error; the tile counts as loaded without spawns. Loading a loaded tile
// does nothing.
func (t *StaticMapTree) LoadMapTile(tileX, tileY uint32, loader ModelLoader) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	id := packTileID(tileX, tileY)
	if _, ok := t.tiles[id]; ok {
		return nil
	}

	path := filepath.Join(t.basePath, TileFileName(t.mapID, tileX, tileY))
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		t.tiles[id] = nil
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading tile %s: %w", path, err)
	}

	d := newDecoder(data)
	d.magic()
	n := d.u32()
	if d.err != nil {
		return fmt.Errorf("parsing tile %s: %w", path, d.err)
	}

	loaded := make([]tileSpawn, 0, n)
	var parseErr error
	for i := range n {
		spawn, err := readModelSpawn(d)
		spawnID := d.u32()
		if err == nil {
			err = d.err
		}
		if err != nil {
			parseErr = fmt.Errorf("parsing tile %s spawn %d: %w", path, i, err)
			break
		}
		if t.addSpawn(spawn, spawnID, loader) {
			loaded = append(loaded, tileSpawn{spawnID: spawnID, name: spawn.Name})
		}
	}
	// spawns read before a parse error stay loaded with the tile
	t.tiles[id] = loaded
	t.grid.Balance()
	slog.Debug("map tile loaded", "map", t.mapID, "x", tileX, "y", tileY, "spawns", len(loaded))
	return parseErr
}

// UnloadMapTile releases the spawns of a tile.
func (t *StaticMapTree) UnloadMapTile(tileX, tileY uint32, loader ModelLoader) {
	t.mu.Lock()
	defer t.mu.Unlock()

	id := packTileID(tileX, tileY)
	spawns, ok := t.tiles[id]
	if !ok {
		slog.Error("unloading non-loaded tile", "map", t.mapID, "x", tileX, "y", tileY)
		return
	}
	for _, ts := range spawns {
		t.releaseSpawn(ts, loader)
	}
	delete(t.tiles, id)
	t.grid.Balance()
}

// UnloadMap releases every loaded spawn and forgets all tiles.
func (t *StaticMapTree) UnloadMap(loader ModelLoader) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for id, spawns := range t.tiles {
		for _, ts := range spawns {
			t.releaseSpawn(ts, loader)
		}
		delete(t.tiles, id)
	}
	for _, ts := range t.global {
		t.releaseSpawn(ts, loader)
	}
	t.global = nil
}

// NumLoadedTiles returns the number of loaded tiles.
func (t *StaticMapTree) NumLoadedTiles() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.tiles)
}

// HasLoadedTile reports whether the tile is loaded.
func (t *StaticMapTree) HasLoadedTile(tileX, tileY uint32) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.tiles[packTileID(tileX, tileY)]
	return ok
}

// LoadedTiles returns the coordinates of the loaded tiles.
func (t *StaticMapTree) LoadedTiles() [][2]uint32 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([][2]uint32, 0, len(t.tiles))
	for id := range t.tiles {
		x, y := unpackTileID(id)
		out = append(out, [2]uint32{x, y})
	}
	return out
}

// NumSpawns returns the number of indexed spawns.
func (t *StaticMapTree) NumSpawns() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.grid.Size()
}

// intersectionTime traces the ray and shrinks *maxDist to the nearest hit.
// Callers hold mu.
func (t *StaticMapTree) intersectionTime(ray geom.Ray, maxDist *float32, stopAtFirstHit bool, ignore ModelIgnoreFlags) bool {
	dist := *maxDist
	hit := false
	t.grid.IntersectRay(ray, func(r geom.Ray, mi *ModelInstance, d *float32, stop bool) bool {
		if mi.IntersectRay(r, d, stop, ignore) {
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

// IsInLineOfSight reports whether no model blocks the segment p1-p2.
func (t *StaticMapTree) IsInLineOfSight(p1, p2 mgl32.Vec3, ignore ModelIgnoreFlags) bool {
	maxDist := p2.Sub(p1).Len()
	if maxDist < minRayLength {
		return true
	}
	ray := geom.NewRay(p1, p2.Sub(p1).Mul(1/maxDist))

	t.mu.RLock()
	defer t.mu.RUnlock()
	return !t.intersectionTime(ray, &maxDist, true, ignore)
}

// GetObjectHitPos returns the first hit between p1 and p2, moved along
// the segment by modifyDist. Without a hit it returns p2 and false.
func (t *StaticMapTree) GetObjectHitPos(p1, p2 mgl32.Vec3, modifyDist float32) (mgl32.Vec3, bool) {
	maxDist := p2.Sub(p1).Len()
	if maxDist < minRayLength {
		return p2, false
	}
	dir := p2.Sub(p1).Mul(1 / maxDist)
	ray := geom.NewRay(p1, dir)

	t.mu.RLock()
	hit := t.intersectionTime(ray, &maxDist, false, IgnoreNothing)
	t.mu.RUnlock()
	if !hit {
		return p2, false
	}
	return adjustHitPos(p1, dir, maxDist, modifyDist), true
}

// adjustHitPos moves the hit at dist along dir by modifyDist, never
// further back than the start.
func adjustHitPos(start, dir mgl32.Vec3, dist, modifyDist float32) mgl32.Vec3 {
	hit := start.Add(dir.Mul(dist))
	if modifyDist < 0 && hit.Sub(start).Len() <= -modifyDist {
		return start
	}
	return hit.Add(dir.Mul(modifyDist))
}

// GetHeight returns the height of the highest surface below pos within
// maxSearchDist, or -Inf when there is none.
func (t *StaticMapTree) GetHeight(pos mgl32.Vec3, maxSearchDist float32) float32 {
	start := pos.Add(mgl32.Vec3{0, 0, heightProbeOffset})
	ray := geom.NewRay(start, mgl32.Vec3{0, 0, -1})
	dist := maxSearchDist + heightProbeOffset

	t.mu.RLock()
	defer t.mu.RUnlock()
	if !t.intersectionTime(ray, &dist, false, IgnoreNothing) {
		return -geom.Inf
	}
	return start[2] - dist
}

// GetAreaInfo returns area information of the map object below pos.
func (t *StaticMapTree) GetAreaInfo(pos mgl32.Vec3) (AreaInfo, bool) {
	info := NewAreaInfo()

	t.mu.RLock()
	defer t.mu.RUnlock()
	t.grid.IntersectPoint(pos, func(p mgl32.Vec3, mi *ModelInstance) {
		mi.IntersectPoint(p, &info)
	})
	return info, info.Result
}

// GetLocationInfo returns the highest map object group below pos.
func (t *StaticMapTree) GetLocationInfo(pos mgl32.Vec3) (LocationInfo, bool) {
	info := NewLocationInfo()
	found := false

	t.mu.RLock()
	defer t.mu.RUnlock()
	t.grid.IntersectPoint(pos, func(p mgl32.Vec3, mi *ModelInstance) {
		if mi.GetLocationInfo(p, &info) {
			found = true
		}
	})
	return info, found
}
