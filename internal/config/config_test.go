package config

import (
	"errors"
	"flag"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	// Test mesh defaults
	if cfg.Mesh.ChunkSize != 512 {
		t.Errorf("expected chunk size 512, got %d", cfg.Mesh.ChunkSize)
	}
	if cfg.Mesh.GridSize != 20 {
		t.Errorf("expected grid size 20, got %d", cfg.Mesh.GridSize)
	}
	if cfg.Mesh.MaxError != 1.0 {
		t.Errorf("expected max error 1.0, got %f", cfg.Mesh.MaxError)
	}
	if cfg.Mesh.MinFaces != 10000 {
		t.Errorf("expected min faces 10000, got %d", cfg.Mesh.MinFaces)
	}

	// Test feature defaults
	if !cfg.Features.SkipStructures {
		t.Error("expected skip_structures to be true by default")
	}
	if cfg.Features.RoadLaneWidth != 1.5 {
		t.Errorf("expected lane width 1.5, got %f", cfg.Features.RoadLaneWidth)
	}
	if cfg.Features.PathHalfWidth != 1.0 {
		t.Errorf("expected path half width 1.0, got %f", cfg.Features.PathHalfWidth)
	}

	// Test server defaults
	if cfg.Server.CacheSize != 11 {
		t.Errorf("expected cache size 11, got %d", cfg.Server.CacheSize)
	}
	if cfg.Overpass.Timeout != 90*time.Second {
		t.Errorf("expected timeout 90s, got %v", cfg.Overpass.Timeout)
	}

	// Test logging defaults
	if cfg.Logging.Level != "info" {
		t.Errorf("expected log level 'info', got %s", cfg.Logging.Level)
	}
	if cfg.Logging.LogFile != "" {
		t.Errorf("expected empty log file, got %s", cfg.Logging.LogFile)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yamlContent := `
input:
  input_dir: "/data/in"
  output_dir: "/data/out"

mesh:
  max_error: 0.5
  min_faces: 2000

scheduler:
  workers: 3

features:
  skip_structures: false
  road_lane_width: 1.75

overpass:
  endpoint: "http://localhost:12345/api/interpreter"
  timeout: 30s
  fetch_missing: false

server:
  addr: "127.0.0.1:9000"
  cache_size: 4

logging:
  level: "debug"
  log_file: "bake.log"
`

	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg := Default()
	if err := loadFromFile(cfg, configPath); err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Input.InputDir != "/data/in" || cfg.Input.OutputDir != "/data/out" {
		t.Errorf("unexpected input config: %+v", cfg.Input)
	}
	if cfg.Mesh.MaxError != 0.5 {
		t.Errorf("expected max error 0.5, got %f", cfg.Mesh.MaxError)
	}
	if cfg.Mesh.MinFaces != 2000 {
		t.Errorf("expected min faces 2000, got %d", cfg.Mesh.MinFaces)
	}
	// Unset keys keep their defaults
	if cfg.Mesh.ChunkSize != 512 {
		t.Errorf("expected chunk size 512 kept, got %d", cfg.Mesh.ChunkSize)
	}
	if cfg.Scheduler.Workers != 3 {
		t.Errorf("expected 3 workers, got %d", cfg.Scheduler.Workers)
	}
	if cfg.Features.SkipStructures {
		t.Error("expected skip_structures to be false")
	}
	if cfg.Features.RoadLaneWidth != 1.75 {
		t.Errorf("expected lane width 1.75, got %f", cfg.Features.RoadLaneWidth)
	}
	if cfg.Overpass.Timeout != 30*time.Second {
		t.Errorf("expected timeout 30s, got %v", cfg.Overpass.Timeout)
	}
	if cfg.Overpass.FetchMissing {
		t.Error("expected fetch_missing to be false")
	}
	if cfg.Server.Addr != "127.0.0.1:9000" || cfg.Server.CacheSize != 4 {
		t.Errorf("unexpected server config: %+v", cfg.Server)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected log level 'debug', got %s", cfg.Logging.Level)
	}
	if cfg.Logging.LogFile != "bake.log" {
		t.Errorf("expected log file 'bake.log', got %s", cfg.Logging.LogFile)
	}
}

func TestLoadFromFileInvalid(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid.yaml")

	invalidYAML := `
mesh:
  chunk_size: not a number
  invalid syntax here
`

	if err := os.WriteFile(configPath, []byte(invalidYAML), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg := Default()
	if err := loadFromFile(cfg, configPath); err == nil {
		t.Error("expected error loading invalid YAML, got nil")
	}
}

func TestLoadFromFileMissing(t *testing.T) {
	cfg := Default()
	if err := loadFromFile(cfg, "/nonexistent/path/config.yaml"); err == nil {
		t.Error("expected error loading missing file, got nil")
	}
}

func TestConfigDir(t *testing.T) {
	dir := ConfigDir()

	if dir == "" {
		t.Error("ConfigDir returned empty string")
	}
	if !filepath.IsAbs(dir) {
		t.Errorf("ConfigDir should return absolute path, got %s", dir)
	}
}

func TestFindConfigFile(t *testing.T) {
	origDir, _ := os.Getwd()
	defer os.Chdir(origDir)

	tmpDir := t.TempDir()
	os.Chdir(tmpDir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(tmpDir, "xdg"))

	t.Setenv(EnvConfig, "")

	if path := findConfigFile(""); path != "" {
		t.Errorf("expected empty path when no config exists, got %s", path)
	}

	if err := os.WriteFile(filepath.Join(tmpDir, "geobake.yaml"), []byte("mesh:\n  max_error: 2\n"), 0644); err != nil {
		t.Fatalf("failed to create test config: %v", err)
	}

	if path := findConfigFile(""); path != "geobake.yaml" {
		t.Errorf("expected geobake.yaml in current directory, got %q", path)
	}

	t.Setenv(EnvConfig, "/etc/geobake/site.yaml")
	if path := findConfigFile(""); path != "/etc/geobake/site.yaml" {
		t.Errorf("expected $%s to win over the working directory, got %q", EnvConfig, path)
	}
	if path := findConfigFile("explicit.yaml"); path != "explicit.yaml" {
		t.Errorf("expected explicit path to win, got %q", path)
	}
}

func TestLoadFromFileUnknownKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "typo.yaml")
	if err := os.WriteFile(path, []byte("mesh:\n  max_eror: 0.5\n"), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg := Default()
	if err := loadFromFile(cfg, path); err == nil {
		t.Error("expected unknown key to be rejected")
	}
}

func TestLoadFromFileEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.yaml")
	if err := os.WriteFile(path, nil, 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg := Default()
	if err := loadFromFile(cfg, path); err != nil {
		t.Fatalf("empty file should load: %v", err)
	}
	if cfg.Mesh.ChunkSize != 512 {
		t.Errorf("expected defaults kept, got chunk size %d", cfg.Mesh.ChunkSize)
	}
}

func TestApplyFlags(t *testing.T) {
	tests := []struct {
		name   string
		args   []string
		verify func(*testing.T, *Config)
	}{
		{
			name: "debug flag",
			args: []string{"-debug"},
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Logging.Level != "debug" {
					t.Errorf("expected log level 'debug', got %s", cfg.Logging.Level)
				}
			},
		},
		{
			name: "workers flag",
			args: []string{"-workers", "6"},
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Scheduler.Workers != 6 {
					t.Errorf("expected 6 workers, got %d", cfg.Scheduler.Workers)
				}
			},
		},
		{
			name: "addr flag",
			args: []string{"-addr", ":9999"},
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Server.Addr != ":9999" {
					t.Errorf("expected addr :9999, got %s", cfg.Server.Addr)
				}
			},
		},
		{
			name: "directory flags",
			args: []string{"-input", "in2", "-output", "out2"},
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Input.InputDir != "in2" || cfg.Input.OutputDir != "out2" {
					t.Errorf("unexpected directories: %+v", cfg.Input)
				}
			},
		},
		{
			name: "no flags keeps defaults",
			args: nil,
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Server.Addr != ":8080" || cfg.Scheduler.Workers != 0 {
					t.Errorf("defaults changed: %+v %+v", cfg.Server, cfg.Scheduler)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := flag.NewFlagSet("test", flag.ContinueOnError)
			f := RegisterFlags(fs)
			if err := fs.Parse(tt.args); err != nil {
				t.Fatalf("parse flags: %v", err)
			}

			cfg := Default()
			applyFlags(cfg, f)
			tt.verify(t, cfg)
		})
	}
}

func TestLoadPriority(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yamlContent := `
scheduler:
  workers: 2
server:
  addr: ":7000"
`

	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	f := RegisterFlags(fs)
	if err := fs.Parse([]string{"-config", configPath, "-workers", "8"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	cfg, err := Load(f)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	// Workers should be from flag (8), not file (2)
	if cfg.Scheduler.Workers != 8 {
		t.Errorf("expected 8 workers from flag, got %d", cfg.Scheduler.Workers)
	}
	// Addr should be from file since no flag override
	if cfg.Server.Addr != ":7000" {
		t.Errorf("expected addr :7000 from file, got %s", cfg.Server.Addr)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte("mesh:\n  chunk_size: 1\n"), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	f := RegisterFlags(fs)
	if err := fs.Parse([]string{"-config", configPath}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	if _, err := Load(f); !errors.Is(err, ErrInvalid) {
		t.Errorf("expected ErrInvalid, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"chunk size", func(c *Config) { c.Mesh.ChunkSize = 0 }},
		{"grid size", func(c *Config) { c.Mesh.GridSize = 0 }},
		{"negative error", func(c *Config) { c.Mesh.MaxError = -1 }},
		{"negative floor", func(c *Config) { c.Mesh.MinFaces = -1 }},
		{"negative workers", func(c *Config) { c.Scheduler.Workers = -2 }},
		{"lane width", func(c *Config) { c.Features.RoadLaneWidth = 0 }},
		{"cache size", func(c *Config) { c.Server.CacheSize = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			if err := cfg.Validate(); !errors.Is(err, ErrInvalid) {
				t.Errorf("expected ErrInvalid, got %v", err)
			}
		})
	}
}

func TestSaveTo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := Default()
	cfg.Mesh.MaxError = 0.25
	cfg.Server.Addr = ":1234"
	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("SaveTo failed: %v", err)
	}

	loaded := Default()
	if err := loadFromFile(loaded, path); err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if loaded.Mesh.MaxError != 0.25 || loaded.Server.Addr != ":1234" {
		t.Errorf("saved config not reloaded: %+v %+v", loaded.Mesh, loaded.Server)
	}
}
