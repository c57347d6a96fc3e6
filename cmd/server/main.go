package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"github.com/evemgr/pricing-core/internal/api"
	"github.com/evemgr/pricing-core/internal/config"
	"github.com/evemgr/pricing-core/internal/database"
	"github.com/evemgr/pricing-core/internal/esi"
	"github.com/evemgr/pricing-core/internal/services"
)

func main() {
	// Load .env if present; real environment wins over file values
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: could not load .env file: %v", err)
	}

	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize database
	if err := database.Initialize(cfg.DBPath); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	db := database.GetDB()

	// Initialize services
	esiClient := esi.NewClient(cfg.ESI.BaseURL, cfg.ESI.Timeout, cfg.ESI.RateLimit)
	marketDataService := services.NewMarketDataService(esiClient, db, cfg)
	pricingService := services.NewPricingService(db, marketDataService, cfg)
	parser := services.NewParser()
	resolver := services.NewResolver(db)
	appraisalService := services.NewAppraisalService(db, parser, resolver, pricingService, cfg)

	// Create a cancellable context for background work
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Schedule recurring price refreshes and daily retention cleanup
	scheduler := cron.New()
	refreshSpec := fmt.Sprintf("@every %s", cfg.Pricing.UpdateFrequency)
	if _, err := scheduler.AddFunc(refreshSpec, func() {
		runRefreshCycle(ctx, pricingService, cfg)
	}); err != nil {
		log.Fatalf("Failed to schedule price refresh: %v", err)
	}
	if _, err := scheduler.AddFunc("@daily", func() {
		runCleanup(pricingService, appraisalService, cfg)
	}); err != nil {
		log.Fatalf("Failed to schedule cleanup: %v", err)
	}
	scheduler.Start()
	log.Printf("Scheduled price refresh every %s across %d markets", cfg.Pricing.UpdateFrequency, len(cfg.Pricing.Markets))

	// Setup router
	router := api.SetupRouter(appraisalService, pricingService, marketDataService, cfg)

	// Create HTTP server for graceful shutdown
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Stop background refreshes and wait for any running job to finish
	cancel()
	<-scheduler.Stop().Done()

	// Give outstanding requests a deadline to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}

// runRefreshCycle updates prices for every configured market from the
// subscription registry, with panic recovery so a bad cycle cannot kill
// the scheduler.
func runRefreshCycle(ctx context.Context, pricing *services.PricingService, cfg *config.Config) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("PANIC in price refresh cycle: %v", r)
		}
	}()

	for name := range cfg.Pricing.Markets {
		if ctx.Err() != nil {
			return
		}
		if err := pricing.UpdatePrices(ctx, name); err != nil {
			log.Printf("Price refresh for market %s failed: %v", name, err)
		}
	}
	pricing.InvalidateCache()
}

func runCleanup(pricing *services.PricingService, appraisals *services.AppraisalService, cfg *config.Config) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("PANIC in cleanup job: %v", r)
		}
	}()

	if removed, err := pricing.CleanupHistory(cfg.Pricing.HistoryRetentionDays); err != nil {
		log.Printf("History cleanup failed: %v", err)
	} else if removed > 0 {
		log.Printf("History cleanup removed %d daily rows", removed)
	}
	if deleted, err := appraisals.DeleteExpired(); err != nil {
		log.Printf("Expired appraisal cleanup failed: %v", err)
	} else if deleted > 0 {
		log.Printf("Expired appraisal cleanup removed %d appraisals", deleted)
	}
}
