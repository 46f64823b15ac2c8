package vmap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/go-gl/mathgl/mgl32"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

type managedModel struct {
	model *WorldModel
	refs  int
}

type treeSlot struct {
	mu   sync.Mutex
	tree atomic.Pointer[StaticMapTree]
}

// TileRef names one tile of one map.
type TileRef struct {
	MapID uint32
	X, Y  uint32
}

// AreaResult is the answer of Manager.GetAreaInfo.
type AreaResult struct {
	Z       float32
	Flags   uint32
	AdtID   int32
	RootID  int32
	GroupID int32
}

// LiquidResult is the answer of Manager.GetLiquidLevel.
type LiquidResult struct {
	Level     float32
	Floor     float32
	Type      uint32
	MogpFlags uint32
}

// AreaData identifies the map object group at a position.
type AreaData struct {
	AdtID     int32
	RootID    int32
	GroupID   int32
	MogpFlags uint32
}

// LiquidData is the liquid at a position.
type LiquidData struct {
	Type  uint32
	Level float32
}

// AreaAndLiquidData combines floor, area and liquid of a position. Area and
// Liquid are nil when unknown.
type AreaAndLiquidData struct {
	FloorZ float32
	Area   *AreaData
	Liquid *LiquidData
}

// Option configures a Manager.
type Option func(*Manager)

// WithPolicy sets the disable and liquid policy.
func WithPolicy(p Policy) Option {
	return func(m *Manager) { m.policy = p }
}

// WithLineOfSight switches line of sight calculation.
func WithLineOfSight(enabled bool) Option {
	return func(m *Manager) { m.enableLOS = enabled }
}

// WithHeightCalc switches height calculation.
func WithHeightCalc(enabled bool) Option {
	return func(m *Manager) { m.enableHeight = enabled }
}

// Manager owns the static map trees and the shared model cache.
type Manager struct {
	policy       Policy
	enableLOS    bool
	enableHeight bool

	modelsMu sync.Mutex
	models   map[string]*managedModel
	loads    singleflight.Group
	// loadModel parses a model file; replaced in tests
	loadModel func(path string) (*WorldModel, error)

	treesMu    sync.RWMutex
	trees      map[uint32]*treeSlot
	threadSafe atomic.Bool
}

// NewManager returns a manager with line of sight and height calculation
// enabled and nothing disabled.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		policy:       NopPolicy{},
		enableLOS:    true,
		enableHeight: true,
		models:       make(map[string]*managedModel),
		loadModel:    LoadWorldModel,
		trees:        make(map[uint32]*treeSlot),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Policy returns the configured policy.
func (m *Manager) Policy() Policy { return m.policy }

// IsLineOfSightCalcEnabled reports whether line of sight is calculated.
func (m *Manager) IsLineOfSightCalcEnabled() bool { return m.enableLOS }

// IsHeightCalcEnabled reports whether heights are calculated.
func (m *Manager) IsHeightCalcEnabled() bool { return m.enableHeight }

// IsMapLoadingEnabled reports whether any query needs map data.
func (m *Manager) IsMapLoadingEnabled() bool { return m.enableLOS || m.enableHeight }

// InitializeThreadUnsafe creates the tree slots of the known maps and then
// switches the manager to thread-safe operation. Call it once at startup
// before any concurrent use.
func (m *Manager) InitializeThreadUnsafe(mapIDs []uint32) {
	for _, id := range mapIDs {
		if _, ok := m.trees[id]; !ok {
			m.trees[id] = &treeSlot{}
		}
	}
	m.threadSafe.Store(true)
	slog.Debug("vmap tree slots created", "maps", len(mapIDs))
}

// slot returns the slot of mapID, creating it when create is set.
func (m *Manager) slot(mapID uint32, create bool) *treeSlot {
	m.treesMu.RLock()
	s := m.trees[mapID]
	m.treesMu.RUnlock()
	if s != nil || !create {
		return s
	}

	m.treesMu.Lock()
	defer m.treesMu.Unlock()
	if s = m.trees[mapID]; s == nil {
		if m.threadSafe.Load() {
			slog.Warn("vmap tree slot created after startup", "map", mapID)
		}
		s = &treeSlot{}
		m.trees[mapID] = s
	}
	return s
}

// tree returns the loaded tree of mapID or nil.
func (m *Manager) tree(mapID uint32) *StaticMapTree {
	if s := m.slot(mapID, false); s != nil {
		return s.tree.Load()
	}
	return nil
}

// Tree returns the loaded tree of mapID or nil.
func (m *Manager) Tree(mapID uint32) *StaticMapTree { return m.tree(mapID) }

// LoadedMapIDs returns the ids of maps with a loaded tree, sorted.
func (m *Manager) LoadedMapIDs() []uint32 {
	m.treesMu.RLock()
	defer m.treesMu.RUnlock()
	ids := make([]uint32, 0, len(m.trees))
	for id, s := range m.trees {
		if s.tree.Load() != nil {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// LoadMap loads a map tile, creating the map tree on first use.
// Concurrent callers loading the same map are serialized.
func (m *Manager) LoadMap(basePath string, mapID, tileX, tileY uint32) LoadResult {
	if !m.IsMapLoadingEnabled() {
		return LoadDisabledInConfig
	}

	s := m.slot(mapID, true)
	s.mu.Lock()
	defer s.mu.Unlock()

	tree := s.tree.Load()
	if tree == nil {
		tree = NewStaticMapTree(mapID, basePath)
		if err := tree.InitMap(MapFileName(mapID), m); err != nil {
			slog.Error("vmap map tree load failed", "map", mapID, "error", err)
			return loadResultFor(err)
		}
		s.tree.Store(tree)
	}

	if err := tree.LoadMapTile(tileX, tileY, m); err != nil {
		slog.Error("vmap tile load failed", "map", mapID, "x", tileX, "y", tileY, "error", err)
		return loadResultFor(err)
	}
	return LoadSuccess
}

func loadResultFor(err error) LoadResult {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return LoadFileNotFound
	case errors.Is(err, ErrWrongMagic):
		return LoadVersionMismatch
	}
	return LoadReadFromFileFailed
}

// Preload loads the given tiles in parallel. It returns an error joining
// every tile that did not load.
func (m *Manager) Preload(ctx context.Context, basePath string, tiles []TileRef) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))

	var (
		mu   sync.Mutex
		errs []error
	)
	for _, tile := range tiles {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if res := m.LoadMap(basePath, tile.MapID, tile.X, tile.Y); res != LoadSuccess {
				mu.Lock()
				errs = append(errs, fmt.Errorf("map %d tile [%d,%d]: %s: %w", tile.MapID, tile.X, tile.Y, res, ErrLoadFailed))
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return errors.Join(errs...)
}

// ExistsMap checks that the map tree file and, for tiled maps, the tile
// file exist and carry the right magic.
func (m *Manager) ExistsMap(basePath string, mapID, tileX, tileY uint32) LoadResult {
	tiled, res := probeFile(filepath.Join(basePath, MapFileName(mapID)), true)
	if res != LoadSuccess || !tiled {
		return res
	}
	_, res = probeFile(filepath.Join(basePath, TileFileName(mapID, tileX, tileY)), false)
	return res
}

// probeFile checks the magic of a vmap file and reads the tiled flag of
// tree files.
func probeFile(path string, tree bool) (tiled bool, res LoadResult) {
	f, err := os.Open(path)
	if err != nil {
		return false, LoadFileNotFound
	}
	defer f.Close()

	header := make([]byte, len(Magic)+1)
	n, _ := io.ReadFull(f, header)
	if n < len(Magic) || string(header[:len(Magic)]) != Magic {
		return false, LoadVersionMismatch
	}
	if tree {
		if n < len(header) {
			return false, LoadReadFromFileFailed
		}
		tiled = header[len(Magic)] != 0
	}
	return tiled, LoadSuccess
}

// UnloadMapTile unloads a tile and drops the map tree once no tile is
// left. Unknown maps are ignored.
func (m *Manager) UnloadMapTile(mapID, tileX, tileY uint32) {
	s := m.slot(mapID, false)
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tree := s.tree.Load()
	if tree == nil {
		return
	}
	tree.UnloadMapTile(tileX, tileY, m)
	if tree.NumLoadedTiles() == 0 {
		tree.UnloadMap(m)
		s.tree.Store(nil)
	}
}

// UnloadMap unloads every tile of a map and drops its tree.
func (m *Manager) UnloadMap(mapID uint32) {
	s := m.slot(mapID, false)
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if tree := s.tree.Load(); tree != nil {
		tree.UnloadMap(m)
		s.tree.Store(nil)
	}
}

// AcquireModelInstance returns the shared model name, loading it on first
// use. Concurrent first acquirers share one file parse. It returns nil
// when the model cannot be loaded.
func (m *Manager) AcquireModelInstance(basePath, name string, flags ModelFlags) *WorldModel {
	m.modelsMu.Lock()
	if mm, ok := m.models[name]; ok {
		mm.refs++
		m.modelsMu.Unlock()
		return mm.model
	}
	m.modelsMu.Unlock()

	// The caller running the flight takes its reference inside it, so the
	// model cannot be released before the caller holds it.
	ran := false
	v, err, _ := m.loads.Do(name, func() (any, error) {
		ran = true
		m.modelsMu.Lock()
		if mm, ok := m.models[name]; ok {
			mm.refs++
			m.modelsMu.Unlock()
			return mm.model, nil
		}
		m.modelsMu.Unlock()

		model, err := m.loadModel(filepath.Join(basePath, name+ModelFileExt))
		if err != nil {
			return nil, err
		}
		model.SetFlags(flags)
		slog.Debug("vmap model loaded", "model", name)

		m.modelsMu.Lock()
		m.models[name] = &managedModel{model: model, refs: 1}
		m.modelsMu.Unlock()
		return model, nil
	})
	if err != nil {
		slog.Error("vmap model load failed", "model", name, "error", err)
		return nil
	}
	if ran {
		return v.(*WorldModel)
	}

	m.modelsMu.Lock()
	defer m.modelsMu.Unlock()
	mm, ok := m.models[name]
	if !ok {
		// Every holder released the shared parse before this waiter got
		// here. The parsed model is registered again, which counts as a
		// new load of the same file.
		mm = &managedModel{model: v.(*WorldModel)}
		m.models[name] = mm
		slog.Debug("vmap model loaded", "model", name)
	}
	mm.refs++
	return mm.model
}

// ReleaseModelInstance drops one reference and unloads the model when it
// was the last. Releasing a model that is not loaded is a bug.
func (m *Manager) ReleaseModelInstance(name string) {
	m.modelsMu.Lock()
	defer m.modelsMu.Unlock()

	mm, ok := m.models[name]
	if !ok {
		panic(fmt.Sprintf("vmap: releasing model %q that is not loaded", name))
	}
	mm.refs--
	if mm.refs == 0 {
		delete(m.models, name)
		slog.Debug("vmap model unloaded", "model", name)
	}
}

// ModelCacheSize returns the number of loaded models.
func (m *Manager) ModelCacheSize() int {
	m.modelsMu.Lock()
	defer m.modelsMu.Unlock()
	return len(m.models)
}

// ModelRefs returns the reference count of a model, 0 when not loaded.
func (m *Manager) ModelRefs(name string) int {
	m.modelsMu.Lock()
	defer m.modelsMu.Unlock()
	if mm, ok := m.models[name]; ok {
		return mm.refs
	}
	return 0
}

// IsInLineOfSight reports whether nothing static blocks p1-p2. Disabled
// checks and unloaded maps see everything.
func (m *Manager) IsInLineOfSight(mapID uint32, p1, p2 mgl32.Vec3, ignore ModelIgnoreFlags) bool {
	if !m.enableLOS || m.policy.IsVMAPDisabledFor(mapID, DisableLOS) {
		return true
	}
	tree := m.tree(mapID)
	if tree == nil || p1 == p2 {
		return true
	}
	return tree.IsInLineOfSight(p1, p2, ignore)
}

// GetObjectHitPos returns the first static hit between p1 and p2 moved by
// modifyDist, or p2 and false.
func (m *Manager) GetObjectHitPos(mapID uint32, p1, p2 mgl32.Vec3, modifyDist float32) (mgl32.Vec3, bool) {
	if !m.enableLOS || m.policy.IsVMAPDisabledFor(mapID, DisableLOS) {
		return p2, false
	}
	tree := m.tree(mapID)
	if tree == nil {
		return p2, false
	}
	return tree.GetObjectHitPos(p1, p2, modifyDist)
}

// GetHeight returns the highest surface below pos within maxSearchDist, or
// InvalidHeightValue.
func (m *Manager) GetHeight(mapID uint32, pos mgl32.Vec3, maxSearchDist float32) float32 {
	if !m.enableHeight || m.policy.IsVMAPDisabledFor(mapID, DisableHeight) {
		return InvalidHeightValue
	}
	tree := m.tree(mapID)
	if tree == nil {
		return InvalidHeightValue
	}
	h := tree.GetHeight(pos, maxSearchDist)
	if h <= InvalidHeight {
		return InvalidHeightValue
	}
	return h
}

// GetAreaInfo returns area information of the map object below pos.
func (m *Manager) GetAreaInfo(mapID uint32, pos mgl32.Vec3) (AreaResult, bool) {
	if m.policy.IsVMAPDisabledFor(mapID, DisableAreaFlag) {
		return AreaResult{}, false
	}
	tree := m.tree(mapID)
	if tree == nil {
		return AreaResult{}, false
	}
	info, ok := tree.GetAreaInfo(pos)
	if !ok {
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

// GetLiquidLevel returns the liquid at pos. A non-zero reqLiquidType
// restricts the answer to liquids whose policy flags match it.
func (m *Manager) GetLiquidLevel(mapID uint32, pos mgl32.Vec3, reqLiquidType uint8) (LiquidResult, bool) {
	if m.policy.IsVMAPDisabledFor(mapID, DisableLiquidStatus) {
		return LiquidResult{}, false
	}
	tree := m.tree(mapID)
	if tree == nil {
		return LiquidResult{}, false
	}
	info, ok := tree.GetLocationInfo(pos)
	if !ok {
		return LiquidResult{}, false
	}
	res := LiquidResult{
		Floor:     info.GroundZ,
		Type:      info.HitModel.LiquidType(),
		MogpFlags: info.HitModel.MogpFlags(),
	}
	if reqLiquidType != 0 && m.policy.LiquidFlags(res.Type)&uint32(reqLiquidType) == 0 {
		return LiquidResult{}, false
	}
	level, ok := info.hitInstance.LiquidLevel(pos, &info)
	if !ok {
		return LiquidResult{}, false
	}
	res.Level = level
	return res, true
}

// GetAreaAndLiquidData returns floor, area and liquid at pos. With liquid
// status disabled only area information is looked up.
func (m *Manager) GetAreaAndLiquidData(mapID uint32, pos mgl32.Vec3, reqLiquidType uint8) AreaAndLiquidData {
	data := AreaAndLiquidData{FloorZ: InvalidHeight}

	if m.policy.IsVMAPDisabledFor(mapID, DisableLiquidStatus) {
		data.FloorZ = pos[2]
		if area, ok := m.GetAreaInfo(mapID, pos); ok {
			data.FloorZ = area.Z
			data.Area = &AreaData{AdtID: area.AdtID, RootID: area.RootID, GroupID: area.GroupID, MogpFlags: area.Flags}
		}
		return data
	}

	tree := m.tree(mapID)
	if tree == nil {
		return data
	}
	info, ok := tree.GetLocationInfo(pos)
	if !ok {
		return data
	}

	data.FloorZ = info.GroundZ
	liquidType := info.HitModel.LiquidType()
	if reqLiquidType == 0 || m.policy.LiquidFlags(liquidType)&uint32(reqLiquidType) != 0 {
		if level, ok := info.hitInstance.LiquidLevel(pos, &info); ok {
			data.Liquid = &LiquidData{Type: liquidType, Level: level}
		}
	}
	if !m.policy.IsVMAPDisabledFor(mapID, DisableAreaFlag) {
		data.Area = &AreaData{
			AdtID:     int32(info.hitInstance.AdtID),
			RootID:    info.RootID,
			GroupID:   int32(info.HitModel.WmoID()),
			MogpFlags: info.HitModel.MogpFlags(),
		}
	}
	return data
}
