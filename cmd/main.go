package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	_ "github.com/joho/godotenv/autoload"

	"stream-analytics-service/internal/config"
	"stream-analytics-service/internal/controller"
	httpserver "stream-analytics-service/internal/http"
	"stream-analytics-service/internal/repository"
	"stream-analytics-service/internal/service"
	"stream-analytics-service/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	influx := store.NewInfluxClient(cfg.InfluxURL, cfg.InfluxToken, cfg.InfluxOrg, cfg.InfluxBucket)
	defer influx.Close()

	repo := repository.NewEventRepository(influx, cfg.InfluxBucket)
	worker := service.NewBatchEventWorker(repo, cfg.WorkerBufferSize, cfg.WorkerBatchSize, cfg.WorkerFlushEvery)
	events := service.NewEventService(worker)
	analytics := service.NewAnalyticsService(influx, cfg.InfluxBucket)
	eventController := controller.NewEventController(events, analytics)

	server := httpserver.NewServer(cfg, eventController)

	errCh := make(chan error, 1)
	go func() {
		log.Printf("starting server on %s", cfg.HTTPPort)
		errCh <- server.Listen(cfg.HTTPPort)
	}()

	select {
	case <-ctx.Done():
		log.Println("shutting down")
		if err := server.Shutdown(); err != nil {
			log.Printf("server shutdown: %v", err)
		}
	case err := <-errCh:
		if err != nil {
			log.Fatalf("server stopped: %v", err)
		}
	}

	worker.Shutdown()
}
