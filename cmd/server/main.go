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

	"profit-guard/config"
	"profit-guard/internal/api"
	"profit-guard/internal/broker"
	"profit-guard/internal/notify"
	"profit-guard/internal/redisclient"
	"profit-guard/internal/service"
	"profit-guard/internal/store"
	"profit-guard/internal/util"
	"profit-guard/internal/worker"

	"github.com/gin-gonic/gin"
)

func main() {

	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting profit guard service")

	tp, err := util.InitTracer("profit-guard", cfg.Observ.JaegerEndpoint)
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			log.Printf("Error shutting down tracer: %v", err)
		}
	}()

	db, err := store.NewStore(cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Println("Database connected")

	redisClient, err := redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()
	log.Println("Redis connected")

	producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicOrders)
	defer producer.Close()
	log.Println("Kafka producer initialized")

	eventPublisher := broker.NewEventPublisher(producer)

	resolver := service.NewThresholdResolver(db, cfg.Profit.ThresholdRefreshInterval)
	if err := resolver.Refresh(context.Background()); err != nil {
		log.Printf("Initial threshold refresh failed, starting with defaults: %v", err)
	}

	rates := service.NewRateProvider(db, redisClient, cfg.Profit.DefaultExchangeRate, cfg.Profit.RateCacheTTL)
	engine := service.NewDecisionEngine(resolver, rates, db)

	dispatcher := notify.NewDispatcher(
		notify.NewStoreProvider(db),
		notify.NewConfigProvider(cfg.Notify),
		db,
		cfg.Notify,
	)

	orchestrator := service.NewOrchestrator(
		db, engine, db, dispatcher, eventPublisher,
		redisClient, cfg.Profit.DedupTTL, cfg.Profit.SweepBatchSize,
	)

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	go resolver.Start(workerCtx)

	orderConsumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicOrders, cfg.Kafka.ConsumerGroup)
	orderWorker := worker.NewOrderWorker(orderConsumer, orchestrator)
	go func() {
		if err := orderWorker.Start(workerCtx); err != nil {
			log.Printf("Order worker error: %v", err)
		}
	}()

	sweepWorker := worker.NewSweepWorker(orchestrator, cfg.Profit.SweepInterval)
	go sweepWorker.Start(workerCtx)

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()
	handler := api.NewHandler(orchestrator, dispatcher, eventPublisher, db)
	handler.SetupRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		log.Printf("Starting HTTP server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	workerCancel()
	orderWorker.Stop()

	log.Println("Server exited")
}
