// Package bake runs the offline pipeline for one region: terrain tiles from
// the elevation raster, then the feature map from the OSM extract.
package bake

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/Faultbox/geobake/internal/config"
	"github.com/Faultbox/geobake/internal/features"
	"github.com/Faultbox/geobake/internal/overpass"
	"github.com/Faultbox/geobake/internal/raster"
	"github.com/Faultbox/geobake/internal/scheduler"
	"github.com/Faultbox/geobake/internal/store"
	"github.com/Faultbox/geobake/internal/terrain"
	"github.com/Faultbox/geobake/pkg/formats"
	"github.com/Faultbox/geobake/pkg/geotiff"
)

// MapName is the stored name of a region's feature file.
const MapName = "map"

// ErrNoOSM is returned when the map stage has no OSM extract to read.
var ErrNoOSM = errors.New("osm extract not found")

// Source is an elevation raster that holds an open file.
type Source interface {
	raster.ChunkSource
	io.Closer
}

// Opener opens the elevation raster at path.
type Opener func(path string) (Source, error)

// OpenGeoTIFF opens a tiled GeoTIFF.
func OpenGeoTIFF(path string) (Source, error) {
	f, err := geotiff.Open(path)
	if err != nil {
		return nil, err
	}
	return f, nil
}

// Request selects a region and the stages to run. With neither stage set
// both run.
type Request struct {
	Region    string
	Zone      int
	South     bool
	Elevation bool
	Map       bool
}

func (r Request) stages() (elevation, mapStage bool) {
	if !r.Elevation && !r.Map {
		return true, true
	}
	return r.Elevation, r.Map
}

// Result summarizes a bake.
type Result struct {
	Tiles    int
	Features features.Stats
	Elapsed  time.Duration
}

// Baker wires configuration into the pipeline stages.
type Baker struct {
	cfg  *config.Config
	log  *zap.Logger
	reg  prometheus.Registerer
	open Opener
}

// New creates a baker. A nil open uses OpenGeoTIFF; a nil reg disables
// scheduler metrics.
func New(cfg *config.Config, log *zap.Logger, reg prometheus.Registerer, open Opener) *Baker {
	if log == nil {
		log = zap.NewNop()
	}
	if open == nil {
		open = OpenGeoTIFF
	}
	return &Baker{cfg: cfg, log: log, reg: reg, open: open}
}

// RasterPath returns where the elevation raster of region is read from.
func (b *Baker) RasterPath(region string) string {
	return filepath.Join(b.cfg.Input.InputDir, region+".tif")
}

// OSMPath returns where the OSM extract of region is read from.
func (b *Baker) OSMPath(region string) string {
	return filepath.Join(b.cfg.Input.InputDir, region+".osm")
}

// Layout returns the configured raster layout.
func (b *Baker) Layout() raster.Layout {
	return raster.Layout{ChunkSize: b.cfg.Mesh.ChunkSize, GridSize: b.cfg.Mesh.GridSize}
}

// Run bakes one region. Load errors abort; tile failures are reported
// together after every tile has been attempted.
func (b *Baker) Run(ctx context.Context, req Request) (Result, error) {
	start := time.Now()
	var res Result

	src, err := b.open(b.RasterPath(req.Region))
	if err != nil {
		return res, fmt.Errorf("opening raster: %w", err)
	}
	defer src.Close()

	region, err := raster.Load(src, raster.Params{
		Name:   req.Region,
		Zone:   req.Zone,
		South:  req.South,
		Layout: b.Layout(),
	})
	if err != nil {
		return res, fmt.Errorf("loading raster: %w", err)
	}
	b.log.Info("raster loaded",
		zap.String("region", region.Name),
		zap.Int("width", region.Width),
		zap.Int("height", region.Height),
		zap.Stringer("origin", region.Origin))

	out, err := store.New(b.cfg.Input.OutputDir, req.Region)
	if err != nil {
		return res, err
	}
	if err := out.EnsureDir(); err != nil {
		return res, fmt.Errorf("creating output directory: %w", err)
	}

	doElevation, doMap := req.stages()
	if doElevation {
		if err := b.bakeTerrain(region, out); err != nil {
			return res, err
		}
		res.Tiles = region.TileCount()
	}
	if doMap {
		stats, err := b.bakeMap(ctx, region, out)
		if err != nil {
			return res, err
		}
		res.Features = stats
	}

	res.Elapsed = time.Since(start)
	b.log.Info("bake finished",
		zap.String("region", region.Name),
		zap.Duration("elapsed", res.Elapsed))
	return res, nil
}

func (b *Baker) bakeTerrain(region *raster.Region, out *store.Store) error {
	opts := terrain.Options{
		ChunkSize: b.cfg.Mesh.ChunkSize,
		MaxError:  b.cfg.Mesh.MaxError,
		MinFaces:  b.cfg.Mesh.MinFaces,
	}
	mesh := func(t *raster.Tile, nb raster.Neighbors) (*formats.Buffer, error) {
		return terrain.BuildTile(t, nb, opts)
	}

	var metrics *scheduler.Metrics
	if b.reg != nil {
		m, err := scheduler.NewMetrics(b.reg)
		if err != nil {
			return err
		}
		metrics = m
	}

	s := scheduler.New(scheduler.Config{Workers: b.cfg.Scheduler.Workers}, mesh, out, b.log.Named("scheduler"), metrics)
	if err := s.Run(scheduler.JobsFor(region)); err != nil {
		return fmt.Errorf("baking terrain: %w", err)
	}
	return nil
}

func (b *Baker) bakeMap(ctx context.Context, region *raster.Region, out *store.Store) (features.Stats, error) {
	path := b.OSMPath(region.Name)
	if err := b.ensureOSM(ctx, region, path); err != nil {
		return features.Stats{}, err
	}

	f, err := os.Open(path)
	if err != nil {
		return features.Stats{}, fmt.Errorf("opening osm extract: %w", err)
	}
	defer f.Close()

	opts := features.Options{
		SkipStructures:        b.cfg.Features.SkipStructures,
		LaneWidth:             float32(b.cfg.Features.RoadLaneWidth),
		PathHalfWidth:         float32(b.cfg.Features.PathHalfWidth),
		DefaultBuildingHeight: float32(b.cfg.Features.DefaultBuildingHeight),
		LevelHeight:           float32(b.cfg.Features.LevelHeight),
	}
	synth := features.New(region, opts, b.log.Named("features"))

	buf := formats.NewBuffer(1 << 20)
	stats, err := synth.Run(ctx, f, region.Origin, buf)
	if err != nil {
		return stats, fmt.Errorf("synthesizing features: %w", err)
	}
	if err := out.SaveCompressed(MapName, buf.Bytes()); err != nil {
		return stats, fmt.Errorf("saving map: %w", err)
	}
	return stats, nil
}

// ensureOSM downloads the region's extract when it is missing and fetching
// is enabled.
func (b *Baker) ensureOSM(ctx context.Context, region *raster.Region, path string) error {
	if !b.cfg.Overpass.FetchMissing {
		if _, err := os.Stat(path); err != nil {
			return fmt.Errorf("%w: %s", ErrNoOSM, path)
		}
		return nil
	}

	bounds, err := region.Bounds()
	if err != nil {
		return fmt.Errorf("computing region bounds: %w", err)
	}
	client := overpass.New(b.cfg.Overpass.Endpoint, b.cfg.Overpass.Timeout, b.log.Named("overpass"))
	fetched, err := client.EnsureFile(ctx, bounds, path)
	if err != nil {
		return fmt.Errorf("fetching osm extract: %w", err)
	}
	if fetched {
		b.log.Info("osm extract downloaded", zap.String("path", path))
	}
	return nil
}
