// geobake bakes terrain tiles and feature maps from elevation rasters and
// OpenStreetMap extracts, and serves elevation lookups.
package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/Faultbox/geobake/internal/config"
	"github.com/Faultbox/geobake/internal/logger"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "bake":
		cmdBake(args)
	case "serve":
		cmdServe(args)
	case "inspect":
		cmdInspect(args)
	case "config":
		cmdConfig(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`geobake - terrain and map asset baker

Usage:
  geobake <command> [options]

Commands:
  bake [-elevation] [-map] <name> <zone>   Bake tiles and map for a region
  serve [-addr a] <name> <zone>            Serve elevation lookups over HTTP
  inspect [-v] <file.bin[.gz]>             Decode a baked tile or map file
  config [-o path]                         Print or save the effective config

Common options:
  -config f     Config file (default ./geobake.yaml or user config dir)
  -workers n    Tile workers (0 = one per CPU)
  -input d      Input directory
  -output d     Output directory
  -debug        Debug logging

Zones are UTM zone numbers; append S for the southern hemisphere (e.g. 33S).

Examples:
  geobake bake seattle 10
  geobake bake -map -workers 4 seattle 10
  geobake serve -addr :9000 seattle 10
  geobake inspect output/seattle/tile0.bin.gz`)
}

// loadConfig parses args into fs and loads the config and logger.
func loadConfig(fs *flag.FlagSet, cf *config.Flags, args []string) *config.Config {
	fs.Parse(args)

	cfg, err := config.Load(cf)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

// regionArgs returns the <name> <zone> positional arguments.
func regionArgs(fs *flag.FlagSet, usage string) (name string, zone int, south bool) {
	if fs.NArg() < 2 {
		fmt.Fprintln(os.Stderr, "Usage: "+usage)
		os.Exit(1)
	}
	zone, south, err := parseZone(fs.Arg(1))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	return fs.Arg(0), zone, south
}

// parseZone accepts a UTM zone number with an optional N or S suffix.
func parseZone(s string) (zone int, south bool, err error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	switch {
	case strings.HasSuffix(s, "S"):
		south = true
		s = strings.TrimSuffix(s, "S")
	case strings.HasSuffix(s, "N"):
		s = strings.TrimSuffix(s, "N")
	}
	zone, err = strconv.Atoi(s)
	if err != nil || zone < 1 || zone > 60 {
		return 0, false, fmt.Errorf("invalid UTM zone %q", s)
	}
	return zone, south, nil
}
