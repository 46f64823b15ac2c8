package vmap

import (
	"fmt"
	"strings"
)

// Magic is the 8-byte header of every vmap file.
const Magic = "VMAP_4.7"

// GameObjectModelsFile is the display id → model table for dynamic objects.
const GameObjectModelsFile = "GameObjectModels.dtree"

// ModelFileExt is appended to spawn model names to get the model file.
const ModelFileExt = ".vmo"

const (
	// InvalidHeight is returned by tree level height queries when nothing
	// was hit. Anything below it is treated as "no ground".
	InvalidHeight float32 = -100000
	// InvalidHeightValue is the sentinel height returned by the manager.
	InvalidHeightValue float32 = -200000
)

// LiquidTileSize is the edge length of one liquid tile in model units.
const LiquidTileSize = 533.33333 / 128

// ModelFlags describe a spawned model.
type ModelFlags uint32

const (
	ModM2         ModelFlags = 1 << 0
	ModWorldSpawn ModelFlags = 1 << 1
	ModHasBound   ModelFlags = 1 << 2
)

func (f ModelFlags) String() string {
	var parts []string
	if f&ModM2 != 0 {
		parts = append(parts, "M2")
	}
	if f&ModWorldSpawn != 0 {
		parts = append(parts, "WORLDSPAWN")
	}
	if f&ModHasBound != 0 {
		parts = append(parts, "HAS_BOUND")
	}
	if len(parts) == 0 {
		return "NONE"
	}
	return strings.Join(parts, "|")
}

// ModelIgnoreFlags let ray queries skip classes of models.
type ModelIgnoreFlags uint32

const (
	IgnoreNothing ModelIgnoreFlags = 0
	IgnoreM2      ModelIgnoreFlags = 1 << 0
)

// DisableFlag selects which vmap queries a map has switched off.
type DisableFlag uint8

const (
	DisableAreaFlag     DisableFlag = 0x1
	DisableHeight       DisableFlag = 0x2
	DisableLOS          DisableFlag = 0x4
	DisableLiquidStatus DisableFlag = 0x8

	DisableAll = DisableAreaFlag | DisableHeight | DisableLOS | DisableLiquidStatus
)

// LoadResult is the outcome of loading or probing a map tile.
type LoadResult uint8

const (
	LoadSuccess LoadResult = iota
	LoadFileNotFound
	LoadVersionMismatch
	LoadReadFromFileFailed
	LoadDisabledInConfig
)

func (r LoadResult) String() string {
	switch r {
	case LoadSuccess:
		return "Success"
	case LoadFileNotFound:
		return "FileNotFound"
	case LoadVersionMismatch:
		return "VersionMismatch"
	case LoadReadFromFileFailed:
		return "ReadFromFileFailed"
	case LoadDisabledInConfig:
		return "DisabledInConfig"
	}
	return fmt.Sprintf("LoadResult(%d)", r)
}

// MapFileName returns the tree file name of a map.
func MapFileName(mapID uint32) string {
	return fmt.Sprintf("%03d.vmtree", mapID)
}

// TileFileName returns the tile file name of a map tile.
func TileFileName(mapID, tileX, tileY uint32) string {
	return fmt.Sprintf("%03d_%02d_%02d.vmtile", mapID, tileX, tileY)
}

// packTileID packs tile coordinates into one map key.
func packTileID(tileX, tileY uint32) uint32 {
	return tileX<<16 | tileY
}

func unpackTileID(id uint32) (tileX, tileY uint32) {
	return id >> 16, id & 0xFFFF
}
