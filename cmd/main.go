package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"partscope/internal/api"
	"partscope/internal/auth"
	"partscope/internal/config"
	"partscope/internal/database"
	"partscope/internal/insights"
	"partscope/internal/inventory"
	"partscope/internal/monitoring"
	"partscope/internal/store"
	"partscope/internal/vision"
)

var (
	port        = flag.Int("port", 0, "API server port (overrides config)")
	metricsPort = flag.Int("metrics-port", 0, "Metrics server port (overrides config)")
	configFile  = flag.String("config", "configs/config.yaml", "Path to configuration file")
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *metricsPort != 0 {
		cfg.Server.MetricsPort = *metricsPort
	}

	log := config.NewLogger(cfg.LogLevel)

	db, err := database.InitDB(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}
	if err := database.SeedDefaultData(db); err != nil {
		log.Fatalf("Failed to seed database: %v", err)
	}

	if err := os.MkdirAll(cfg.Storage.ImagesDir, 0o755); err != nil {
		log.Fatalf("Failed to create images directory: %v", err)
	}

	// A missing checkpoint is a fatal configuration error; there is no
	// partial-service mode without a classifier.
	classifier, err := vision.NewNetClassifier(cfg.Model.CheckpointPath, log)
	if err != nil {
		log.Fatalf("Failed to load model checkpoint: %v", err)
	}

	metrics := monitoring.NewMetrics(prometheus.DefaultRegisterer)
	hub := api.NewHub(log)

	inventoryStore := store.NewInventoryStore(db)
	predictionStore := store.NewPredictionStore(db)
	userStore := store.NewUserStore(db)

	svc := inventory.NewService(inventory.Deps{
		Store:       inventoryStore,
		Predictions: predictionStore,
		Classifier:  classifier,
		ImagesDir:   cfg.Storage.ImagesDir,
		Log:         log,
		Metrics:     metrics,
		Notifier:    hub,
	})

	if cfg.OpenAIKey != "" {
		narrator, err := insights.NewLLMNarrator(cfg.OpenAIKey)
		if err != nil {
			log.WithError(err).Warn("insight narrator disabled")
		} else {
			svc.SetNarrator(narrator)
		}
	}

	var tokenManager *auth.Manager
	if cfg.Auth.Enabled {
		tokenManager = auth.NewManager(cfg.Auth.Secret, time.Duration(cfg.Auth.TTLMinutes)*time.Minute)
	}

	server := api.NewServer(api.Config{
		Service:     svc,
		Predictions: predictionStore,
		Users:       userStore,
		Auth:        tokenManager,
		Hub:         hub,
		Log:         log,
		ImagesDir:   cfg.Storage.ImagesDir,
		StaticDir:   cfg.Storage.StaticDir,
	})

	go startMetricsServer(cfg.Server.MetricsPort, log)

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: server.Router(),
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Info("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Error("API server shutdown error")
		}
	}()

	log.Infof("Starting API server on port %d", cfg.Server.Port)
	if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("API server error: %v", err)
	}
}

func startMetricsServer(port int, log *logrus.Logger) {
	metricsRouter := gin.Default()
	metricsRouter.GET("/metrics", gin.WrapH(promhttp.Handler()))

	metricsServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: metricsRouter,
	}

	log.Infof("Starting metrics server on port %d", port)
	if err := metricsServer.ListenAndServe(); err != http.ErrServerClosed {
		log.WithError(err).Error("Metrics server error")
	}
}
