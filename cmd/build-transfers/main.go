package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/thigam/Nishukishe-Back-End-sub001/internal/config"
	"github.com/thigam/Nishukishe-Back-End-sub001/internal/db"
	"github.com/thigam/Nishukishe-Back-End-sub001/internal/handlers"
	"github.com/thigam/Nishukishe-Back-End-sub001/internal/logging"
	"github.com/thigam/Nishukishe-Back-End-sub001/internal/metrics"
	"github.com/thigam/Nishukishe-Back-End-sub001/internal/transfers"
)

// exitCircuitOpen tells the supervisor the foot router is failing
const exitCircuitOpen = 3

func main() {
	logging.InitWithPrefix("build-transfers")
	config.LoadEnvFiles(".")
	cfg := config.Load()

	dbPath := flag.String("db", cfg.DatabasePath, "Path to SQLite database")
	host := flag.String("host", cfg.OSRMHost, "Foot router base URL")
	capSeconds := flag.Int("cap", cfg.WalkCapSeconds, "Discard walks longer than this many seconds")
	bbox := flag.String("bbox", "", "Only originate edges inside minLat,minLng,maxLat,maxLng")
	cont := flag.Bool("continue", false, "Keep existing edges and skip their pairs (implied unless phase 1 runs first)")
	phases := flag.String("phases", "1,2,3,4", "Phases to run")
	pace := flag.Duration("pace", 0, "Minimum delay between foot router calls")
	timeout := flag.Duration("timeout", cfg.WalkTimeout, "Per-call foot router timeout")
	metricsAddr := flag.String("metrics-addr", "", "Serve Prometheus metrics on this address while running")
	notify := flag.String("notify", "", "Planner API base URL to invalidate after the build")
	flag.Parse()

	opts := transfers.DefaultOptions()
	opts.CapSeconds = *capSeconds
	opts.Continue = *cont
	opts.Pace = *pace

	var err error
	if opts.Phases, err = transfers.ParsePhases(*phases); err != nil {
		log.Fatalf("Invalid -phases: %v", err)
	}
	if *bbox != "" {
		if opts.BBox, err = transfers.ParseBBox(*bbox); err != nil {
			log.Fatalf("Invalid -bbox: %v", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := metrics.DefaultRegistry()
	if *metricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", reg.Handler())
			log.Printf("Serving metrics on %s/metrics", *metricsAddr)
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil {
				log.Printf("Metrics server stopped: %v", err)
			}
		}()
	}

	database, err := db.Open(ctx, *dbPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer database.Close()

	stops, err := database.LoadStops(ctx)
	if err != nil {
		log.Fatalf("Failed to load stops: %v", err)
	}
	hubStops, err := database.HubStopIDs(ctx)
	if err != nil {
		log.Fatalf("Failed to load hubs: %v", err)
	}
	log.Printf("Transfers: %d stops, %d hubs, phases %v, cap %ds, continue=%v",
		len(stops), len(hubStops), opts.Phases, opts.CapSeconds, opts.Continue)

	router := transfers.NewOSRMClient(*host, *timeout)
	builder := transfers.NewBuilder(database, router, stops, hubStops, opts, reg)

	start := time.Now()
	stats, runErr := builder.Run(ctx)
	created := 0
	for _, s := range stats {
		created += s.Created
	}

	if runErr != nil {
		var fatal *transfers.FatalError
		if errors.As(runErr, &fatal) {
			log.Printf("Transfers: aborting: %v", fatal)
			database.Close()
			os.Exit(exitCircuitOpen)
		}
		log.Fatalf("Transfers: run failed after %v: %v", time.Since(start).Round(time.Second), runErr)
	}

	if _, err := database.RecordBuild(ctx, db.BuildTransfers); err != nil {
		log.Fatalf("Failed to record build: %v", err)
	}
	counts, err := database.CountTransferEdges(ctx)
	if err == nil {
		log.Printf("Transfers: table now holds %v edges by phase", counts)
	}
	log.Printf("Transfers: created %d edges in %v", created, time.Since(start).Round(time.Second))

	if *notify != "" {
		if err := handlers.NotifyRebuild(ctx, *notify); err != nil {
			log.Printf("Warning: %v", err)
		}
	}
}
