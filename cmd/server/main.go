package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/pharmaco-risk-server/internal/api"
	"github.com/pharmaco-risk-server/internal/config"
	"github.com/pharmaco-risk-server/internal/domain"
	"github.com/pharmaco-risk-server/internal/logging"
	"github.com/pharmaco-risk-server/internal/repository"
	"github.com/pharmaco-risk-server/internal/service"
	"github.com/pharmaco-risk-server/pkg/external"
)

func main() {
	configPath := flag.String("config", "", "path to config.yaml (default: search ./, ./config, /etc/pharmaco-risk-server/)")
	flag.Parse()

	// Load configuration
	var (
		configManager *config.Manager
		err           error
	)
	if *configPath != "" {
		configManager, err = config.NewManagerFromFile(*configPath)
	} else {
		configManager, err = config.NewManager()
	}
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if err := configManager.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}

	logger, logCloser, err := logging.NewLogger(*configManager.GetLoggingConfig())
	if err != nil {
		log.Fatalf("Failed to initialize logging: %v", err)
	}
	defer logCloser.Close()

	if configManager.GetLoggingConfig().Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	predictorConfig := configManager.GetPredictorConfig()
	resilient, predictionCache, err := external.NewPredictorFromConfig(*predictorConfig, *configManager.GetCacheConfig(), logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to configure prediction model")
	}
	if predictionCache != nil {
		defer predictionCache.Close()
	}

	var (
		predictor domain.Predictor
		health    domain.HealthChecker
	)
	if resilient != nil {
		predictor = resilient
		health = resilient
	} else {
		logger.Info("Prediction model disabled, using heuristic scoring")
	}

	svc := service.NewAssessmentService(
		service.NewVariantParser(),
		service.NewRelevanceFilter(configManager.GeneDrugTable()),
		service.NewRiskScorer(predictor, predictorConfig.Timeout, logger),
		service.NewAlternativeRecommender(configManager.SubstituteTable()),
		logger,
	)

	store, err := repository.NewStore(*configManager.GetStorageConfig())
	if err != nil {
		logger.WithError(err).Fatal("Failed to open assessment store")
	}
	if store != nil {
		defer store.Close()
	}

	cfg := configManager.GetConfig()
	logger.WithFields(logrus.Fields{
		"environment": cfg.Environment,
		"host":        cfg.Server.Host,
		"port":        cfg.Server.Port,
		"storage":     cfg.Storage.Driver,
		"predictor":   predictorConfig.Enabled,
	}).Info("Starting pharmacogenomic risk server")

	server := api.NewServer(cfg.Server, api.Dependencies{
		Service:   svc,
		Store:     store,
		Predictor: health,
		Logger:    logger,
	})

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, gracefully shutting down...")
		cancel()
	}()

	if err := server.Start(ctx); err != nil {
		logger.WithError(err).Error("Server failed")
		return
	}

	logger.Info("Server stopped")
}
