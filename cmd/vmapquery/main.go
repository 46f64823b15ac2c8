// vmapquery runs a single collision query against extracted vmap data.
//
// Usage:
//
//	go run ./cmd/vmapquery -data data/vmaps -map 0 -tile 32,32 -q los -from 90,100,5 -to 110,100,5
//	go run ./cmd/vmapquery -data data/vmaps -map 0 -tile 32,32 -q height -from 105,100,10 -max-dist 50
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/udisondev/vmapd/internal/vmap"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

type options struct {
	dataDir    string
	mapID      uint32
	tileX      uint32
	tileY      uint32
	query      string
	from, to   mgl32.Vec3
	maxDist    float32
	modifyDist float32
	liquidType uint8
	ignoreM2   bool
}

func parseArgs(args []string) (options, error) {
	fs := flag.NewFlagSet("vmapquery", flag.ContinueOnError)
	dataDir := fs.String("data", "data/vmaps", "directory with extracted vmap files")
	mapID := fs.Uint("map", 0, "map id")
	tile := fs.String("tile", "32,32", "tile to load as x,y")
	query := fs.String("q", "los", "query: exists, los, hitpos, height, area, liquid")
	from := fs.String("from", "", "query position as x,y,z")
	to := fs.String("to", "", "ray end for los and hitpos as x,y,z")
	maxDist := fs.Float64("max-dist", 50, "height search distance")
	modifyDist := fs.Float64("modify-dist", 0, "hitpos pull back distance")
	liquidType := fs.Uint("liquid-type", 0, "required liquid type mask")
	ignoreM2 := fs.Bool("ignore-m2", false, "skip M2 models in ray queries")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}

	opts := options{
		dataDir:    *dataDir,
		mapID:      uint32(*mapID),
		query:      *query,
		maxDist:    float32(*maxDist),
		modifyDist: float32(*modifyDist),
		liquidType: uint8(*liquidType),
		ignoreM2:   *ignoreM2,
	}

	xy, err := parseFloats(*tile, 2)
	if err != nil {
		return options{}, fmt.Errorf("parsing -tile: %w", err)
	}
	opts.tileX, opts.tileY = uint32(xy[0]), uint32(xy[1])

	if opts.query == "exists" {
		return opts, nil
	}
	if opts.from, err = parseVec3(*from); err != nil {
		return options{}, fmt.Errorf("parsing -from: %w", err)
	}
	if opts.query == "los" || opts.query == "hitpos" {
		if opts.to, err = parseVec3(*to); err != nil {
			return options{}, fmt.Errorf("parsing -to: %w", err)
		}
	}
	return opts, nil
}

func run(args []string, out io.Writer) error {
	opts, err := parseArgs(args)
	if err != nil {
		return err
	}

	mgr := vmap.NewManager()
	if opts.query == "exists" {
		res := mgr.ExistsMap(opts.dataDir, opts.mapID, opts.tileX, opts.tileY)
		fmt.Fprintf(out, "exists: %s\n", res)
		return nil
	}

	if res := mgr.LoadMap(opts.dataDir, opts.mapID, opts.tileX, opts.tileY); res != vmap.LoadSuccess {
		return fmt.Errorf("loading map %d tile [%d,%d]: %s", opts.mapID, opts.tileX, opts.tileY, res)
	}
	defer mgr.UnloadMap(opts.mapID)

	ignore := vmap.IgnoreNothing
	if opts.ignoreM2 {
		ignore = vmap.IgnoreM2
	}

	switch opts.query {
	case "los":
		fmt.Fprintf(out, "los: %t\n", mgr.IsInLineOfSight(opts.mapID, opts.from, opts.to, ignore))
	case "hitpos":
		pos, hit := mgr.GetObjectHitPos(opts.mapID, opts.from, opts.to, opts.modifyDist)
		fmt.Fprintf(out, "hit: %t pos: %s\n", hit, formatVec3(pos))
	case "height":
		z := mgr.GetHeight(opts.mapID, opts.from, opts.maxDist)
		if z == vmap.InvalidHeightValue {
			fmt.Fprintln(out, "height: none")
			return nil
		}
		fmt.Fprintf(out, "height: %.3f\n", z)
	case "area":
		area, ok := mgr.GetAreaInfo(opts.mapID, opts.from)
		if !ok {
			fmt.Fprintln(out, "area: none")
			return nil
		}
		fmt.Fprintf(out, "area: z=%.3f flags=0x%x adt=%d root=%d group=%d\n",
			area.Z, area.Flags, area.AdtID, area.RootID, area.GroupID)
	case "liquid":
		data := mgr.GetAreaAndLiquidData(opts.mapID, opts.from, opts.liquidType)
		fmt.Fprintf(out, "floor: %.3f\n", data.FloorZ)
		if data.Area != nil {
			fmt.Fprintf(out, "area: adt=%d root=%d group=%d mogp=0x%x\n",
				data.Area.AdtID, data.Area.RootID, data.Area.GroupID, data.Area.MogpFlags)
		}
		if data.Liquid != nil {
			fmt.Fprintf(out, "liquid: type=%d level=%.3f\n", data.Liquid.Type, data.Liquid.Level)
		} else {
			fmt.Fprintln(out, "liquid: none")
		}
	default:
		return fmt.Errorf("unknown query %q", opts.query)
	}
	return nil
}

func parseVec3(s string) (mgl32.Vec3, error) {
	v, err := parseFloats(s, 3)
	if err != nil {
		return mgl32.Vec3{}, err
	}
	return mgl32.Vec3{v[0], v[1], v[2]}, nil
}

func parseFloats(s string, n int) ([]float32, error) {
	if s == "" {
		return nil, errors.New("value required")
	}
	parts := strings.Split(s, ",")
	if len(parts) != n {
		return nil, fmt.Errorf("want %d comma separated values, got %q", n, s)
	}
	out := make([]float32, n)
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
		if err != nil {
			return nil, err
		}
		out[i] = float32(f)
	}
	return out, nil
}

func formatVec3(v mgl32.Vec3) string {
	return fmt.Sprintf("%.3f,%.3f,%.3f", v.X(), v.Y(), v.Z())
}
