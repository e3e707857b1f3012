package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// EnvConfig names a config file to use when no -config flag is given.
const EnvConfig = "GEOBAKE_CONFIG"

// Load builds the effective configuration: defaults, then the first config
// file found, then any flags set on the command line. The result is
// validated. f may be nil when a command registers no config flags.
func Load(f *Flags) (*Config, error) {
	cfg := Default()

	if path := findConfigFile(f.ConfigPath()); path != "" {
		if err := loadFromFile(cfg, path); err != nil {
			return nil, fmt.Errorf("loading config from %s: %w", path, err)
		}
	}
	applyFlags(cfg, f)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// findConfigFile resolves the config path. An explicit path (flag, then
// $GEOBAKE_CONFIG) is returned as is so a typo surfaces as a read error;
// otherwise ./geobake.yaml and the user config dir are tried in order.
func findConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if env := os.Getenv(EnvConfig); env != "" {
		return env
	}
	for _, path := range []string{"geobake.yaml", filepath.Join(ConfigDir(), "config.yaml")} {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// ConfigDir returns the per-user geobake config directory.
func ConfigDir() string {
	base, err := os.UserConfigDir()
	if err != nil {
		base = os.TempDir()
	}
	return filepath.Join(base, "geobake")
}

// loadFromFile merges a YAML file over cfg. Unknown keys are rejected, so a
// misspelt setting fails the run instead of silently keeping its default. An
// empty file changes nothing.
func loadFromFile(cfg *Config, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	dec := yaml.NewDecoder(file)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}
