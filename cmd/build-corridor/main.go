package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/thigam/Nishukishe-Back-End-sub001/internal/config"
	"github.com/thigam/Nishukishe-Back-End-sub001/internal/db"
	"github.com/thigam/Nishukishe-Back-End-sub001/internal/graph"
	"github.com/thigam/Nishukishe-Back-End-sub001/internal/handlers"
	"github.com/thigam/Nishukishe-Back-End-sub001/internal/logging"
	"github.com/thigam/Nishukishe-Back-End-sub001/internal/spatial"
)

func main() {
	logging.InitWithPrefix("build-corridor")
	config.LoadEnvFiles(".")
	cfg := config.Load()

	dbPath := flag.String("db", cfg.DatabasePath, "Path to SQLite database")
	k := flag.Int("k", 6, "Portals per cell")
	m := flag.Int("m", 4, "Edge summaries per neighbouring cell pair")
	notify := flag.String("notify", "", "Planner API base URL to invalidate after the build")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	database, err := db.Open(ctx, *dbPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer database.Close()
	log.Printf("Connected to database: %s", *dbPath)

	start := time.Now()

	stops, err := database.LoadStops(ctx)
	if err != nil {
		log.Fatalf("Failed to load stops: %v", err)
	}
	routes, err := database.LoadRoutes(ctx)
	if err != nil {
		log.Fatalf("Failed to load routes: %v", err)
	}
	if len(stops) == 0 {
		log.Println("No stops in database, run import-network first")
		os.Exit(1)
	}
	log.Printf("Loaded %d stops and %d routes", len(stops), len(routes))

	idx := spatial.H3{}
	stations, err := graph.BuildStations(stops, routes, idx, graph.DefaultStationConfig())
	if err != nil {
		log.Fatalf("Failed to build stations: %v", err)
	}
	log.Printf("Clustered %d stops into %d stations", len(stops), stations.Len())

	res, err := graph.NewCellGraphBuilder(stations, routes, idx).Build(*k, *m)
	if err != nil {
		log.Fatalf("Failed to build cell graph: %v", err)
	}

	buildID, err := database.ReplaceGraph(ctx, res)
	if err != nil {
		log.Fatalf("Failed to write cell graph: %v", err)
	}
	log.Printf("Corridor graph %s written in %v: %d stations, %d cells, %d portals, %d edge summaries",
		buildID, time.Since(start).Round(time.Millisecond),
		len(res.Stations), len(res.Cells), len(res.Portals), len(res.Summaries))

	if *notify != "" {
		if err := handlers.NotifyRebuild(ctx, *notify); err != nil {
			log.Printf("Warning: %v", err)
		}
	}
}
