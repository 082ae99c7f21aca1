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

	"parts-service/config"
	"parts-service/internal/api"
	"parts-service/internal/broker"
	"parts-service/internal/redisclient"
	"parts-service/internal/service"
	"parts-service/internal/store"
	"parts-service/internal/store/memstore"
	"parts-service/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const serviceName = "parts-service"

func main() {

	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting parts service",
		zap.String("env", cfg.Server.Env),
		zap.String("port", cfg.Server.Port),
		zap.String("store", cfg.Database.Driver))

	if cfg.Observ.JaegerEndpoint != "" {
		tp, err := util.InitTracer(serviceName, cfg.Observ.JaegerEndpoint)
		if err != nil {
			logger.Fatal("Failed to initialize tracer", zap.Error(err))
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tp.Shutdown(ctx); err != nil {
				logger.Error("Error shutting down tracer", zap.Error(err))
			}
		}()
	}

	checks := map[string]api.ReadinessCheck{}

	var repo store.Repository
	switch cfg.Database.Driver {
	case config.DriverMemory:
		repo = memstore.New()
		logger.Warn("Using in-memory store; data is lost on exit")
	case config.DriverPostgres:
		db, err := store.NewStore(cfg.Database.URL)
		if err != nil {
			logger.Fatal("Failed to connect to database", zap.Error(err))
		}
		defer db.Close()

		if cfg.Database.Migrate {
			if err := db.Migrate(); err != nil {
				logger.Fatal("Failed to apply migrations", zap.Error(err))
			}
		}
		checks["postgres"] = func(ctx context.Context) error { return db.GetDB().PingContext(ctx) }
		repo = db
		logger.Info("Database connected")
	default:
		logger.Fatal("Unknown store driver", zap.String("driver", cfg.Database.Driver))
	}

	var priceCache service.PriceCache
	if cfg.Redis.Addr != "" {
		redisClient, err := redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.PriceTTL)
		if err != nil {
			logger.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer redisClient.Close()
		checks["redis"] = redisClient.Ping
		priceCache = redisClient
		logger.Info("Redis price cache enabled", zap.Duration("ttl", cfg.Redis.PriceTTL))
	}

	var events service.EventPublisher
	if len(cfg.Kafka.Brokers) > 0 {
		producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicOrder)
		defer producer.Close()
		events = broker.NewEventPublisher(producer)
		logger.Info("Kafka producer initialized", zap.Strings("brokers", cfg.Kafka.Brokers))
	}

	ledger := service.NewStockLedger(repo)
	services := api.Services{
		Orders:   service.NewOrderService(repo, ledger, service.NewPricingResolver(priceCache), events),
		Statuses: service.NewOrderStatusMachine(repo, events),
		Payments: service.NewPaymentTracker(repo, events),
		Deletion: service.NewOrderDeletionService(repo, ledger, events),
		Ledger:   ledger,
		Transfer: service.NewStockTransferService(repo, ledger, events),
	}

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	handler := api.NewHandler(services, checks)
	handler.SetupRoutes(router)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Starting HTTP server", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	var metricsSrv *http.Server
	if cfg.Observ.PrometheusPort != "" && cfg.Observ.PrometheusPort != cfg.Server.Port {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsSrv = &http.Server{
			Addr:              fmt.Sprintf(":%s", cfg.Observ.PrometheusPort),
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("Metrics server stopped", zap.Error(err))
			}
		}()
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}
	if metricsSrv != nil {
		_ = metricsSrv.Shutdown(shutdownCtx)
	}

	logger.Info("Server exited")
}
