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
	"github.com/vikramraju/attendedge/internal/config"
	"github.com/vikramraju/attendedge/internal/database"
	"github.com/vikramraju/attendedge/internal/handlers"
	"github.com/vikramraju/attendedge/internal/ingest"
	"github.com/vikramraju/attendedge/internal/repositories"
	"github.com/vikramraju/attendedge/internal/services"
	"golang.org/x/sync/errgroup"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	godotenv.Load()

	cfg, err := config.LoadServerConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize database connections
	postgresPool, err := database.NewPostgresPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to create postgres pool: %v", err)
	}
	defer postgresPool.Close()

	redisClient, err := database.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		log.Fatalf("Failed to create redis client: %v", err)
	}
	defer redisClient.Close()

	// Repositories
	attendanceRepo := repositories.NewPostgresAttendanceRepository(postgresPool)
	deadLetterRepo := repositories.NewPostgresDeadLetterRepository(postgresPool)
	scheduleRepo := repositories.NewPostgresScheduleRepository(postgresPool)
	deviceRepo := repositories.NewPostgresDeviceRepository(postgresPool)
	presenceRepo := repositories.NewRedisPresenceRepository(redisClient)

	// Partitions must exist before the first event arrives
	if err := attendanceRepo.EnsurePartitions(ctx, time.Now(), cfg.PartitionHorizon); err != nil {
		log.Fatalf("Failed to ensure partitions: %v", err)
	}

	// Ingestion pipeline
	workQueue := ingest.NewWorkQueue(cfg.IngestQueueSize)
	gateway := ingest.NewGateway(workQueue)

	// Services
	authService := services.NewAuthService(cfg.JWTSecret, 24*time.Hour)
	registry := services.NewDeviceRegistry(deviceRepo, presenceRepo, cfg.HeartbeatInterval)

	router := handlers.NewRouter(gateway, scheduleRepo, attendanceRepo, registry, authService)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.ServerPort),
		Handler: router,
	}

	g, ctx := errgroup.WithContext(ctx)

	// Async ingest workers
	for i := 0; i < cfg.IngestWorkers; i++ {
		worker := ingest.NewWorker(workQueue, attendanceRepo, deadLetterRepo, cfg.DedupWindow, cfg.IngestMaxAttempts)
		g.Go(func() error { return worker.Run(ctx) })
	}

	// Device staleness sweep
	g.Go(func() error { return registry.RunSweeper(ctx) })

	// Partition maintenance, independent of request traffic
	g.Go(func() error {
		ticker := time.NewTicker(cfg.PartitionSweep)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case now := <-ticker.C:
				if err := attendanceRepo.EnsurePartitions(ctx, now, cfg.PartitionHorizon); err != nil {
					log.Printf("Partition maintenance failed: %v", err)
				}
			}
		}
	})

	// HTTP server with graceful shutdown
	g.Go(func() error {
		log.Printf("Starting server on port %s", cfg.ServerPort)
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Println("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Fatalf("Server error: %v", err)
	}
	log.Println("Server stopped gracefully")
}
