package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"

	"github.com/thigam/Nishukishe-Back-End-sub001/internal/config"
	"github.com/thigam/Nishukishe-Back-End-sub001/internal/db"
	"github.com/thigam/Nishukishe-Back-End-sub001/internal/gtfs"
	"github.com/thigam/Nishukishe-Back-End-sub001/internal/logging"
	"github.com/thigam/Nishukishe-Back-End-sub001/internal/models"
	"github.com/thigam/Nishukishe-Back-End-sub001/internal/source"
)

func main() {
	logging.InitWithPrefix("import-network")
	config.LoadEnvFiles(".")
	cfg := config.Load()

	dbPath := flag.String("db", cfg.DatabasePath, "Path to SQLite database")
	gtfsZip := flag.String("gtfs", "", "Import from a GTFS zip file")
	pgURL := flag.String("pg", "", "Import from the ingestion Postgres database (defaults to DATABASE_URL)")
	flag.Parse()

	if *gtfsZip == "" && *pgURL == "" {
		*pgURL = cfg.PostgresURL
	}
	if (*gtfsZip == "") == (*pgURL == "") {
		log.Fatal("Pass exactly one of -gtfs or -pg")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var stops []models.Stop
	var routes []models.Route

	if *gtfsZip != "" {
		feed, err := gtfs.Parse(*gtfsZip)
		if err != nil {
			log.Fatalf("Failed to parse GTFS: %v", err)
		}
		stops, routes = feed.Network()
	} else {
		pg, err := source.NewPostgres(ctx, *pgURL)
		if err != nil {
			log.Fatalf("Failed to connect to Postgres: %v", err)
		}
		defer pg.Close()

		if stops, err = pg.LoadStops(ctx); err != nil {
			log.Fatalf("Failed to read stops: %v", err)
		}
		if routes, err = pg.LoadRoutes(ctx); err != nil {
			log.Fatalf("Failed to read routes: %v", err)
		}
	}
	log.Printf("Read %d stops and %d route variants", len(stops), len(routes))

	database, err := db.Open(ctx, *dbPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer database.Close()

	if err := database.ReplaceNetwork(ctx, stops, routes); err != nil {
		log.Fatalf("Failed to write network: %v", err)
	}
	log.Println("Import complete!")
}
