package vmap

import (
	"fmt"
	"os"
	"path/filepath"
)

// SpawnEntry is a spawn record together with its tree slot id.
type SpawnEntry struct {
	Spawn   ModelSpawn
	SpawnID uint32
}

// EncodeMapTree serializes a map tree file. Global spawns are only read
// back for maps that are not tiled.
func EncodeMapTree(tiled bool, global []SpawnEntry) []byte {
	e := &encoder{}
	e.raw(Magic)
	if tiled {
		e.u8(1)
	} else {
		e.u8(0)
	}
	e.u32(uint32(len(global)))
	for _, s := range global {
		s.Spawn.write(e)
		e.u32(s.SpawnID)
	}
	return e.buf
}

// EncodeTile serializes a tile file.
func EncodeTile(spawns []SpawnEntry) []byte {
	e := &encoder{}
	e.raw(Magic)
	e.u32(uint32(len(spawns)))
	for _, s := range spawns {
		s.Spawn.write(e)
		e.u32(s.SpawnID)
	}
	return e.buf
}

// WriteMapTree writes the tree file of mapID into dir.
func WriteMapTree(dir string, mapID uint32, tiled bool, global []SpawnEntry) error {
	return writeFile(filepath.Join(dir, MapFileName(mapID)), EncodeMapTree(tiled, global))
}

// WriteTile writes a tile file into dir.
func WriteTile(dir string, mapID, tileX, tileY uint32, spawns []SpawnEntry) error {
	return writeFile(filepath.Join(dir, TileFileName(mapID, tileX, tileY)), EncodeTile(spawns))
}

// WriteWorldModel writes the model file of name into dir.
func WriteWorldModel(dir, name string, m *WorldModel) error {
	return writeFile(filepath.Join(dir, name+ModelFileExt), m.Encode())
}

func writeFile(path string, data []byte) error {
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
