package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/thigam/Nishukishe-Back-End-sub001/internal/config"
	"github.com/thigam/Nishukishe-Back-End-sub001/internal/db"
	"github.com/thigam/Nishukishe-Back-End-sub001/internal/handlers"
	"github.com/thigam/Nishukishe-Back-End-sub001/internal/logging"
	"github.com/thigam/Nishukishe-Back-End-sub001/internal/metrics"
	"github.com/thigam/Nishukishe-Back-End-sub001/internal/planner"
)

func main() {
	logging.Init()
	config.LoadEnvFiles(".")
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Printf("Connecting to SQLite database: %s", cfg.DatabasePath)
	database, err := db.Open(ctx, cfg.DatabasePath)
	if err != nil {
		log.Fatalf("Failed to initialize SQLite database: %v", err)
	}
	defer database.Close()

	reg := metrics.DefaultRegistry()
	svc := planner.NewService(database, cfg.IndexTTL, reg)

	// Warm the search index so the first request does not pay for it
	if _, err := svc.Cache.Get(ctx); err != nil {
		log.Printf("Warning: failed to warm search index: %v", err)
	}

	h := handlers.NewPlanHandler(svc, cfg.SearchLimit)
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handlers.NewRouter(h, database.Conn(), reg, cfg.AllowedOrigins),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Printf("Planner API starting on :%s", cfg.Port)
		log.Println("  GET  /api/plan?origin=&dest=&limit=&widen=")
		log.Println("  GET  /api/plan/whitelist?origin_lat=&origin_lng=&dest_lat=&dest_lng=&widen=")
		log.Println("  GET  /api/plan/search?origin=&dest=&limit=")
		log.Println("  POST /api/plan/expand")
		log.Println("  POST /api/plan/invalidate")
		log.Println("  GET  /health, /metrics")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
	log.Println("Goodbye!")
}
