package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"

	"github.com/thigam/Nishukishe-Back-End-sub001/internal/config"
	"github.com/thigam/Nishukishe-Back-End-sub001/internal/db"
	"github.com/thigam/Nishukishe-Back-End-sub001/internal/handlers"
	"github.com/thigam/Nishukishe-Back-End-sub001/internal/hubs"
	"github.com/thigam/Nishukishe-Back-End-sub001/internal/logging"
	"github.com/thigam/Nishukishe-Back-End-sub001/internal/spatial"
)

func main() {
	logging.InitWithPrefix("build-hubs")
	config.LoadEnvFiles(".")
	cfg := config.Load()
	defaults := hubs.DefaultOptions()

	dbPath := flag.String("db", cfg.DatabasePath, "Path to SQLite database")
	regionsFile := flag.String("regions", cfg.RegionsFile, "Regions YAML file")
	k := flag.Int("k", defaults.K, "Hubs per region")
	res := flag.Int("h3res", defaults.Res, "Cell resolution for reach and cell-defined regions")
	walkCap := flag.Int("walkcap", defaults.WalkCap, "Cap on the walking degree signal")
	truncate := flag.Bool("truncate", false, "Delete every existing hub before writing")
	curatedFile := flag.String("curated-file", cfg.CuratedFile, "Curated hubs YAML file (optional)")
	notify := flag.String("notify", "", "Planner API base URL to invalidate after the build")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	regions, err := config.LoadRegions(*regionsFile)
	if err != nil {
		log.Fatalf("Failed to load regions: %v", err)
	}
	var curated []config.CuratedHub
	if *curatedFile != "" {
		curated, err = config.LoadCurated(*curatedFile)
		if err != nil {
			log.Fatalf("Failed to load curated hubs: %v", err)
		}
	}
	log.Printf("Hubs: %d regions, %d curated stops", len(regions), len(curated))

	database, err := db.Open(ctx, *dbPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer database.Close()

	stops, err := database.LoadStops(ctx)
	if err != nil {
		log.Fatalf("Failed to load stops: %v", err)
	}
	routes, err := database.LoadRoutes(ctx)
	if err != nil {
		log.Fatalf("Failed to load routes: %v", err)
	}
	walkDegree, err := database.TransferDegree(ctx)
	if err != nil {
		log.Fatalf("Failed to load walking degree: %v", err)
	}

	opts := defaults
	opts.K = *k
	opts.Res = *res
	opts.WalkCap = *walkCap

	selector, err := hubs.NewSelector(hubs.Input{Stops: stops, Routes: routes, WalkDegree: walkDegree}, spatial.H3{}, opts)
	if err != nil {
		log.Fatalf("Failed to prepare hub selection: %v", err)
	}
	selected := selector.Select(regions, curated)

	regionIDs := make([]string, 0, len(regions))
	for _, r := range regions {
		regionIDs = append(regionIDs, r.ID)
	}
	if err := database.ReplaceHubs(ctx, regionIDs, selected, *truncate); err != nil {
		log.Fatalf("Failed to write hubs: %v", err)
	}

	perRegion := make(map[string]int)
	for _, h := range selected {
		perRegion[h.RegionID]++
	}
	for _, id := range regionIDs {
		log.Printf("Hubs: region %s: %d hubs", id, perRegion[id])
	}
	log.Printf("Hubs: wrote %d hubs", len(selected))

	if *notify != "" {
		if err := handlers.NotifyRebuild(ctx, *notify); err != nil {
			log.Printf("Warning: %v", err)
		}
	}
}
