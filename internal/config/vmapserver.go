package config

import (
	"fmt"
	"os"
	"time"
)

// DefaultPath is where vmapd looks for its config.
const DefaultPath = "config/vmapd.yaml"

// EnvPath overrides DefaultPath.
const EnvPath = "VMAPD_CONFIG"

// Tile is one tile coordinate.
type Tile struct {
	X uint32 `yaml:"x"`
	Y uint32 `yaml:"y"`
}

// PreloadMap lists the tiles of one map loaded at startup. A map without
// tiles loads only its tree file, which is all a map that is not tiled has.
type PreloadMap struct {
	MapID uint32 `yaml:"map_id"`
	Tiles []Tile `yaml:"tiles"`
}

// VMapServer holds all configuration of the vmap service.
type VMapServer struct {
	DataDir  string `yaml:"data_dir"`
	LogLevel string `yaml:"log_level"`

	EnableLineOfSight bool `yaml:"enable_line_of_sight"`
	EnableHeightCalc  bool `yaml:"enable_height_calc"`

	// Maps are the map ids known at startup.
	Maps    []uint32     `yaml:"maps"`
	Preload []PreloadMap `yaml:"preload"`

	// UpdateInterval is the tick of the dynamic tree update loop.
	UpdateInterval time.Duration `yaml:"update_interval"`

	// LiquidFlags maps a liquid type to its flag bits.
	LiquidFlags map[uint32]uint32 `yaml:"liquid_flags"`

	Database            DatabaseConfig `yaml:"database"`
	UseDatabaseDisables bool           `yaml:"use_database_disables"`
}

// DefaultVMapServer returns VMapServer config with sensible defaults.
func DefaultVMapServer() VMapServer {
	return VMapServer{
		DataDir:           "data/vmaps",
		LogLevel:          "info",
		EnableLineOfSight: true,
		EnableHeightCalc:  true,
		UpdateInterval:    100 * time.Millisecond,
		LiquidFlags: map[uint32]uint32{
			1: 0x01, // water
			2: 0x02, // ocean
			3: 0x04, // magma
			4: 0x08, // slime
		},
		Database: DatabaseConfig{
			Host:     "127.0.0.1",
			Port:     5432,
			User:     "vmapd",
			Password: "vmapd",
			DBName:   "vmapd",
			SSLMode:  "disable",
		},
	}
}

// LoadVMapServer loads the service config from a YAML file.
// If the file doesn't exist, returns defaults.
func LoadVMapServer(path string) (VMapServer, error) {
	cfg := DefaultVMapServer()
	if err := loadYAML(path, &cfg); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Path returns the config path from EnvPath or DefaultPath.
func Path() string {
	if p := os.Getenv(EnvPath); p != "" {
		return p
	}
	return DefaultPath
}

// Validate checks values the service cannot run with.
func (c VMapServer) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("data_dir is empty")
	}
	if c.UpdateInterval <= 0 {
		return fmt.Errorf("update_interval must be positive, got %s", c.UpdateInterval)
	}
	return nil
}

// AllMaps returns Maps plus every preloaded map, without duplicates.
func (c VMapServer) AllMaps() []uint32 {
	seen := make(map[uint32]bool, len(c.Maps)+len(c.Preload))
	var out []uint32
	add := func(id uint32) {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	for _, id := range c.Maps {
		add(id)
	}
	for _, p := range c.Preload {
		add(p.MapID)
	}
	return out
}
