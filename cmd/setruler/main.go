// Package main provides a CLI tool for installing a region's ruler, for
// seeding a realm or repairing one after a bad siege.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/cory-johannsen/fiefdom/internal/config"
	"github.com/cory-johannsen/fiefdom/internal/game/promotion"
	"github.com/cory-johannsen/fiefdom/internal/observability"
	"github.com/cory-johannsen/fiefdom/internal/storage/postgres"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	room := flag.String("room", "", "room holding the region (required)")
	region := flag.String("region", "", "region to hand over (required)")
	player := flag.String("player", "", "player to crown (required)")
	flag.Parse()

	if *room == "" || *region == "" || *player == "" {
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}
	logger, err := observability.NewLogger(cfg.Logging, "setruler")
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := postgres.NewPool(ctx, cfg.Database, "fiefdom-setruler")
	if err != nil {
		log.Fatalf("connecting to database: %v", err)
	}
	defer pool.Close()

	pipeline := promotion.New(pool.Documents(), cfg.Engine.MaxCASRetries, logger)
	p, err := pipeline.Promote(ctx, *room, *region, *player)
	if err != nil {
		log.Fatalf("setting ruler: %v", err)
	}

	elapsed := time.Since(start)
	switch {
	case p.Noop:
		fmt.Fprintf(os.Stdout, "%s already rules %s [%s]\n", p.WinnerID, p.RegionID, elapsed)
	case p.DeposedID != "":
		fmt.Fprintf(os.Stdout, "%s now rules %s (deposed %s) [%s]\n", p.WinnerID, p.RegionID, p.DeposedID, elapsed)
	default:
		fmt.Fprintf(os.Stdout, "%s now rules %s [%s]\n", p.WinnerID, p.RegionID, elapsed)
	}
	if p.Vacated != "" {
		fmt.Fprintf(os.Stdout, "%s left without a ruler\n", p.Vacated)
	}
}
