// Package disable decides which vmap checks are switched off per map and
// which flags each liquid type carries.
package disable

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"sync"

	"github.com/udisondev/vmapd/internal/db"
	"github.com/udisondev/vmapd/internal/vmap"
)

// Source supplies disable rows, usually a *db.DisableRepository.
type Source interface {
	LoadBySource(ctx context.Context, sourceType int16) ([]db.Disable, error)
}

// Policy is a vmap.Policy backed by the disables table and the configured
// liquid type flags. It is safe for concurrent use; Reload swaps the whole
// table at once.
type Policy struct {
	liquid map[uint32]uint32

	mu   sync.RWMutex
	maps map[uint32]vmap.DisableFlag
}

var _ vmap.Policy = (*Policy)(nil)

// New returns a policy with nothing disabled.
func New(liquidFlags map[uint32]uint32) *Policy {
	return &Policy{
		liquid: maps.Clone(liquidFlags),
		maps:   make(map[uint32]vmap.DisableFlag),
	}
}

// Reload replaces the disabled checks with the vmap rows of src.
func (p *Policy) Reload(ctx context.Context, src Source) error {
	rows, err := src.LoadBySource(ctx, db.SourceVMAP)
	if err != nil {
		return fmt.Errorf("loading vmap disables: %w", err)
	}

	next := make(map[uint32]vmap.DisableFlag, len(rows))
	for _, r := range rows {
		if unknown := r.Flags &^ uint32(vmap.DisableAll); unknown != 0 {
			slog.Warn("vmap disable has unknown flags", "map", r.Entry, "flags", unknown)
		}
		flags := vmap.DisableFlag(r.Flags & uint32(vmap.DisableAll))
		if flags != 0 {
			next[r.Entry] = flags
		}
	}

	p.mu.Lock()
	p.maps = next
	p.mu.Unlock()
	slog.Info("vmap disables loaded", "maps", len(next))
	return nil
}

// Set disables flags on mapID; zero flags enable everything again.
func (p *Policy) Set(mapID uint32, flags vmap.DisableFlag) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if flags == 0 {
		delete(p.maps, mapID)
		return
	}
	p.maps[mapID] = flags
}

// Len returns the number of maps with a disabled check.
func (p *Policy) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.maps)
}

func (p *Policy) LiquidFlags(liquidType uint32) uint32 {
	return p.liquid[liquidType]
}

func (p *Policy) IsVMAPDisabledFor(mapID uint32, flags vmap.DisableFlag) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.maps[mapID]&flags != 0
}
