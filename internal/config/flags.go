package config

import "flag"

// Flags are the config overrides shared by the geobake subcommands.
type Flags struct {
	config  *string
	debug   *bool
	workers *int
	addr    *string
	input   *string
	output  *string
}

// RegisterFlags binds the config override flags to fs. Call it before
// fs.Parse.
func RegisterFlags(fs *flag.FlagSet) *Flags {
	return &Flags{
		config:  fs.String("config", "", "Path to config file"),
		debug:   fs.Bool("debug", false, "Enable debug logging"),
		workers: fs.Int("workers", 0, "Tile worker count (0 = config or one per CPU)"),
		addr:    fs.String("addr", "", "Elevation server listen address"),
		input:   fs.String("input", "", "Input directory"),
		output:  fs.String("output", "", "Output directory"),
	}
}

// ConfigPath returns the explicit config path if provided via -config.
func (f *Flags) ConfigPath() string {
	if f == nil {
		return ""
	}
	return *f.config
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config, f *Flags) {
	if f == nil {
		return
	}
	if *f.debug {
		cfg.Logging.Level = "debug"
	}
	if *f.workers > 0 {
		cfg.Scheduler.Workers = *f.workers
	}
	if *f.addr != "" {
		cfg.Server.Addr = *f.addr
	}
	if *f.input != "" {
		cfg.Input.InputDir = *f.input
	}
	if *f.output != "" {
		cfg.Input.OutputDir = *f.output
	}
}
