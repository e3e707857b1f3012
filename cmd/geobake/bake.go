package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/Faultbox/geobake/internal/bake"
	"github.com/Faultbox/geobake/internal/config"
	"github.com/Faultbox/geobake/internal/logger"
)

func cmdBake(args []string) {
	fs := flag.NewFlagSet("bake", flag.ExitOnError)
	cf := config.RegisterFlags(fs)
	elevation := fs.Bool("elevation", false, "Bake terrain tiles")
	mapStage := fs.Bool("map", false, "Bake the feature map")
	metricsFile := fs.String("metrics", "", "Write bake metrics to this textfile when done")
	cfg := loadConfig(fs, cf, args)
	defer logger.Sync()

	name, zone, south := regionArgs(fs, "geobake bake [options] <name> <zone>")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	b := bake.New(cfg, logger.Named("bake"), reg, nil)
	res, err := b.Run(ctx, bake.Request{
		Region:    name,
		Zone:      zone,
		South:     south,
		Elevation: *elevation,
		Map:       *mapStage,
	})

	if *metricsFile != "" {
		if werr := prometheus.WriteToTextfile(*metricsFile, reg); werr != nil {
			logger.Warn("writing metrics", zap.String("path", *metricsFile), zap.Error(werr))
		}
	}
	if err != nil {
		logger.Fatal("bake failed", zap.String("region", name), zap.Error(err))
	}

	fmt.Printf("Region:    %s (zone %d)\n", name, zone)
	fmt.Printf("Tiles:     %d\n", res.Tiles)
	fmt.Printf("Buildings: %d\n", res.Features.Buildings)
	fmt.Printf("Roads:     %d\n", res.Features.Roads)
	fmt.Printf("Skipped:   %d\n", res.Features.Skipped)
	fmt.Printf("Elapsed:   %s\n", res.Elapsed.Round(time.Millisecond))
}

func cmdConfig(args []string) {
	fs := flag.NewFlagSet("config", flag.ExitOnError)
	cf := config.RegisterFlags(fs)
	out := fs.String("o", "", "Write config to this path instead of stdout")
	cfg := loadConfig(fs, cf, args)

	if *out != "" {
		if err := cfg.SaveTo(*out); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Config written to %s\n", *out)
		return
	}

	data, err := cfg.Marshal()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	os.Stdout.Write(data)
}
