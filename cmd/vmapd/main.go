package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/udisondev/vmapd/internal/collision"
	"github.com/udisondev/vmapd/internal/config"
	"github.com/udisondev/vmapd/internal/db"
	"github.com/udisondev/vmapd/internal/disable"
	"github.com/udisondev/vmapd/internal/vmap"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("shutting down", "signal", sig)
		cancel()
	}()

	if err := run(ctx); err != nil {
		slog.Error("fatal", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// Config first, it carries the log level
	cfgPath := config.Path()
	cfg, err := config.LoadVMapServer(cfgPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: config.ParseLogLevel(cfg.LogLevel),
	})))

	slog.Info("vmapd starting",
		"config", cfgPath,
		"data_dir", cfg.DataDir,
		"log_level", cfg.LogLevel,
		"los", cfg.EnableLineOfSight,
		"height", cfg.EnableHeightCalc)

	policy := disable.New(cfg.LiquidFlags)
	if cfg.UseDatabaseDisables {
		database, err := db.New(ctx, cfg.Database.DSN())
		if err != nil {
			return fmt.Errorf("connecting to database: %w", err)
		}
		defer database.Close()
		slog.Info("database connected")

		if err := db.RunMigrations(ctx, cfg.Database.DSN()); err != nil {
			return fmt.Errorf("running migrations: %w", err)
		}
		slog.Info("database migrations applied")

		if err := policy.Reload(ctx, db.NewDisableRepository(database.Pool())); err != nil {
			return fmt.Errorf("loading disables: %w", err)
		}
	}

	mgr := vmap.NewManager(
		vmap.WithPolicy(policy),
		vmap.WithLineOfSight(cfg.EnableLineOfSight),
		vmap.WithHeightCalc(cfg.EnableHeightCalc),
	)
	mapIDs := cfg.AllMaps()
	mgr.InitializeThreadUnsafe(mapIDs)

	models, err := vmap.LoadGameObjectModelList(filepath.Join(cfg.DataDir, vmap.GameObjectModelsFile))
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("loading game object models: %w", err)
		}
		slog.Warn("no game object models, dynamic objects disabled", "dir", cfg.DataDir)
	}

	if mgr.IsMapLoadingEnabled() {
		start := time.Now()
		if err := mgr.Preload(ctx, cfg.DataDir, preloadTiles(cfg.Preload)); err != nil {
			return fmt.Errorf("preloading maps: %w", err)
		}
		slog.Info("maps preloaded",
			"maps", len(mgr.LoadedMapIDs()),
			"models", mgr.ModelCacheSize(),
			"duration", time.Since(start))
	} else {
		slog.Info("vmap loading disabled, skipping preload")
	}

	maps := make([]*collision.Map, 0, len(mapIDs))
	for _, id := range mapIDs {
		maps = append(maps, collision.New(mgr, id, cfg.DataDir, models))
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("starting dynamic tree updater", "interval", cfg.UpdateInterval, "maps", len(maps))
		return runUpdater(gctx, maps, cfg.UpdateInterval)
	})

	err = g.Wait()

	for _, m := range maps {
		m.Close()
	}
	for _, id := range mgr.LoadedMapIDs() {
		mgr.UnloadMap(id)
	}
	slog.Info("vmapd stopped", "models_left", mgr.ModelCacheSize())

	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return nil
}

// runUpdater ticks the dynamic trees of all maps until ctx is done.
func runUpdater(ctx context.Context, maps []*collision.Map, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			diff := int32(now.Sub(last).Milliseconds())
			last = now
			for _, m := range maps {
				m.Update(diff)
			}
		}
	}
}

func preloadTiles(preload []config.PreloadMap) []vmap.TileRef {
	var tiles []vmap.TileRef
	for _, p := range preload {
		if len(p.Tiles) == 0 {
			// Tile coordinates are ignored for maps that are not tiled.
			tiles = append(tiles, vmap.TileRef{MapID: p.MapID})
			continue
		}
		for _, t := range p.Tiles {
			tiles = append(tiles, vmap.TileRef{MapID: p.MapID, X: t.X, Y: t.Y})
		}
	}
	return tiles
}
