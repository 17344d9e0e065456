package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/medreport-server/internal/api"
	"github.com/medreport-server/internal/config"
	"github.com/medreport-server/internal/database"
	"github.com/medreport-server/internal/domain"
	"github.com/medreport-server/internal/feedback"
	"github.com/medreport-server/internal/health"
	"github.com/medreport-server/internal/rules"
	"github.com/medreport-server/internal/service"
	"github.com/medreport-server/pkg/external"
)

func main() {
	configManager, err := config.NewManager()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := configManager.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}

	cfg := configManager.GetConfig()
	logger := newLogger(cfg.Logging)

	ruleSet, err := rules.Load(cfg.Rules, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to load rule tables")
	}
	store, err := rules.NewStore(ruleSet, cfg.Rules.CompiledCacheSize, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to compile rule tables")
	}

	aiClient := external.NewResilientAIClient(cfg.ExternalAPI, logger)

	classifier := service.NewContextClassifierService(store, cfg.Pipeline, logger)
	extractor := service.NewFieldExtractorService(store, cfg.Pipeline, logger)
	if cfg.Pipeline.LLMAssistEnabled {
		extractor.EnableLLMAssist(aiClient)
	}
	selector := service.NewTemplateSelectorService(store)
	generator := service.NewReportGeneratorService(aiClient, cfg.Pipeline, cfg.ExternalAPI.TextGen.Model, logger)
	validator := service.NewHallucinationValidatorService(store, selector, cfg.Pipeline, logger)

	pipeline := service.NewConsultationPipeline(
		aiClient, classifier, extractor, selector, generator, validator, cfg.Pipeline, logger)

	feedbackStore, dbHealth, closeStore, err := openFeedbackStore(cfg.Database, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to open feedback store")
	}
	defer closeStore()

	redisOpts, err := redis.ParseURL(cfg.Cache.RedisURL)
	if err != nil {
		logger.WithError(err).Fatal("Invalid Redis URL")
	}
	redisOpts.MaxRetries = cfg.Cache.MaxRetries
	redisOpts.PoolSize = cfg.Cache.PoolSize
	redisOpts.PoolTimeout = cfg.Cache.PoolTimeout
	redisClient := redis.NewClient(redisOpts)
	defer redisClient.Close()

	cachedStore := feedback.NewCachedStore(feedbackStore, redisClient, cfg.Cache.DefaultTTL, logger)

	checker := health.NewChecker(cfg.Pipeline.ExternalCallTimeout, logger)
	checker.Register("feedback_store", true, dbHealth)
	checker.Register("redis", false, func(ctx context.Context) error {
		return redisClient.Ping(ctx).Err()
	})
	checker.Register("text_generation", false, aiClient.PingTextGen)
	checker.Register("transcription", false, aiClient.PingTranscription)
	checker.Register("ocr", false, aiClient.PingOCR)

	server := api.NewServer(cfg.Server, pipeline, cachedStore, checker, store.Version(), logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, gracefully shutting down")
		cancel()
	}()

	logger.WithFields(logrus.Fields{
		"host":          cfg.Server.Host,
		"port":          cfg.Server.Port,
		"rules_version": store.Version(),
	}).Info("Starting medical report server")

	if err := server.Start(ctx); err != nil {
		logger.WithError(err).Fatal("Server failed")
	}

	logger.Info("Server stopped")
}

func newLogger(cfg domain.LoggingConfig) *logrus.Logger {
	logger := logrus.New()

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if cfg.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	if cfg.Output == "stderr" {
		logger.SetOutput(os.Stderr)
	}

	return logger
}

// openFeedbackStore builds the configured feedback backend, its health probe
// and a cleanup closing every connection it opened. Postgres deployments get
// their schema migrated on startup.
func openFeedbackStore(cfg domain.DatabaseConfig, logger *logrus.Logger) (feedback.Store, health.Probe, func(), error) {
	if cfg.Driver == "postgres" {
		dbCfg := database.Config{
			Host:        cfg.Host,
			Port:        cfg.Port,
			Database:    cfg.Database,
			Username:    cfg.Username,
			Password:    cfg.Password,
			SSLMode:     cfg.SSLMode,
			MaxConns:    int32(cfg.MaxOpenConns),
			MinConns:    int32(cfg.MaxIdleConns),
			MaxConnLife: cfg.ConnMaxLifetime,
		}

		runner, err := database.NewMigrationRunner(dbCfg.URL(), cfg.MigrationsPath, logger)
		if err != nil {
			return nil, nil, nil, err
		}
		defer runner.Close()
		if err := runner.Up(); err != nil {
			return nil, nil, nil, err
		}

		pool, err := database.NewConnection(context.Background(), dbCfg, logger)
		if err != nil {
			return nil, nil, nil, err
		}

		store, err := feedback.NewPostgresStoreFromURL(dbCfg.URL())
		if err != nil {
			pool.Close()
			return nil, nil, nil, err
		}

		probe := func(ctx context.Context) error { return pool.Health(ctx) }
		cleanup := func() {
			if err := store.Close(); err != nil {
				logger.WithError(err).Warn("Failed to close feedback store")
			}
			pool.Close()
		}
		return store, probe, cleanup, nil
	}

	store, err := feedback.NewSQLiteStore(cfg.SQLitePath)
	if err != nil {
		return nil, nil, nil, err
	}
	probe := func(ctx context.Context) error {
		_, err := store.Count(ctx)
		return err
	}
	cleanup := func() {
		if err := store.Close(); err != nil {
			logger.WithError(err).Warn("Failed to close feedback store")
		}
	}
	return store, probe, cleanup, nil
}
