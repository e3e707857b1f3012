// Package config handles geobake configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalid is returned by Validate for out-of-range settings.
var ErrInvalid = errors.New("invalid config")

// Config holds all baker and server settings.
type Config struct {
	Input     InputConfig     `yaml:"input"`
	Mesh      MeshConfig      `yaml:"mesh"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Features  FeaturesConfig  `yaml:"features"`
	Overpass  OverpassConfig  `yaml:"overpass"`
	Server    ServerConfig    `yaml:"server"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// InputConfig holds data locations. A region named r reads
// <input_dir>/r.tif and <input_dir>/r.osm and writes under <output_dir>/r.
type InputConfig struct {
	InputDir  string `yaml:"input_dir"`
	OutputDir string `yaml:"output_dir"`
}

// MeshConfig holds raster layout and decimation settings.
type MeshConfig struct {
	ChunkSize int     `yaml:"chunk_size"` // samples per chunk side
	GridSize  int     `yaml:"grid_size"`  // chunks per raster side
	MaxError  float64 `yaml:"max_error"`  // metres
	MinFaces  int     `yaml:"min_faces"`
}

// SchedulerConfig holds tile worker settings.
type SchedulerConfig struct {
	Workers int `yaml:"workers"` // 0 = one per CPU
}

// FeaturesConfig holds building and road synthesis settings.
type FeaturesConfig struct {
	SkipStructures        bool    `yaml:"skip_structures"`
	RoadLaneWidth         float64 `yaml:"road_lane_width"`
	PathHalfWidth         float64 `yaml:"path_half_width"`
	DefaultBuildingHeight float64 `yaml:"default_building_height"`
	LevelHeight           float64 `yaml:"level_height"`
}

// OverpassConfig holds OSM extract download settings.
type OverpassConfig struct {
	Endpoint     string        `yaml:"endpoint"`
	Timeout      time.Duration `yaml:"timeout"`
	FetchMissing bool          `yaml:"fetch_missing"`
}

// ServerConfig holds elevation server settings.
type ServerConfig struct {
	Addr      string `yaml:"addr"`
	CacheSize int    `yaml:"cache_size"` // chunks per request
	MaxPoints int    `yaml:"max_points"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Input: InputConfig{
			InputDir:  "input",
			OutputDir: "output",
		},
		Mesh: MeshConfig{
			ChunkSize: 512,
			GridSize:  20,
			MaxError:  1.0,
			MinFaces:  10000,
		},
		Scheduler: SchedulerConfig{
			Workers: 0,
		},
		Features: FeaturesConfig{
			SkipStructures:        true,
			RoadLaneWidth:         1.5,
			PathHalfWidth:         1.0,
			DefaultBuildingHeight: 3,
			LevelHeight:           3,
		},
		Overpass: OverpassConfig{
			Endpoint:     "https://overpass-api.de/api/interpreter",
			Timeout:      90 * time.Second,
			FetchMissing: true,
		},
		Server: ServerConfig{
			Addr:      ":8080",
			CacheSize: 11,
			MaxPoints: 10000,
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}

// Validate reports the first setting the pipeline cannot run with.
func (c *Config) Validate() error {
	switch {
	case c.Mesh.ChunkSize < 2:
		return fmt.Errorf("%w: mesh.chunk_size %d", ErrInvalid, c.Mesh.ChunkSize)
	case c.Mesh.GridSize < 1:
		return fmt.Errorf("%w: mesh.grid_size %d", ErrInvalid, c.Mesh.GridSize)
	case c.Mesh.MaxError < 0:
		return fmt.Errorf("%w: mesh.max_error %g", ErrInvalid, c.Mesh.MaxError)
	case c.Mesh.MinFaces < 0:
		return fmt.Errorf("%w: mesh.min_faces %d", ErrInvalid, c.Mesh.MinFaces)
	case c.Scheduler.Workers < 0:
		return fmt.Errorf("%w: scheduler.workers %d", ErrInvalid, c.Scheduler.Workers)
	case c.Features.RoadLaneWidth <= 0 || c.Features.PathHalfWidth <= 0:
		return fmt.Errorf("%w: road widths must be positive", ErrInvalid)
	case c.Server.CacheSize < 1:
		return fmt.Errorf("%w: server.cache_size %d", ErrInvalid, c.Server.CacheSize)
	}
	return nil
}
