package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/Faultbox/geobake/internal/bake"
	"github.com/Faultbox/geobake/internal/config"
	"github.com/Faultbox/geobake/internal/logger"
	"github.com/Faultbox/geobake/internal/server"
	"github.com/Faultbox/geobake/pkg/utm"
)

func cmdServe(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	cf := config.RegisterFlags(fs)
	cfg := loadConfig(fs, cf, args)
	defer logger.Sync()

	name, zone, south := regionArgs(fs, "geobake serve [options] <name> <zone>")

	b := bake.New(cfg, nil, nil, nil)
	path := b.RasterPath(name)
	src, err := bake.OpenGeoTIFF(path)
	if err != nil {
		logger.Fatal("opening raster", zap.String("path", path), zap.Error(err))
	}
	defer src.Close()

	if e, n, err := src.TiePoint(); err == nil {
		origin := utm.Coord{Zone: zone, Easting: e, Northing: n, North: !south}
		if lat, lon, err := utm.ToLatLon(origin); err == nil {
			logger.Info("raster origin",
				zap.String("region", name),
				zap.Float64("lat", lat),
				zap.Float64("lon", lon))
		}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	srv, err := server.New(src, server.Config{
		Addr:      cfg.Server.Addr,
		CacheSize: cfg.Server.CacheSize,
		Layout:    b.Layout(),
		MaxPoints: cfg.Server.MaxPoints,
	}, logger.Named("server"), reg)
	if err != nil {
		logger.Fatal("starting server", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.ListenAndServe(ctx); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}
