package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chainfolio/internal/app/port"
	"chainfolio/internal/app/service"
	"chainfolio/internal/config"
	"chainfolio/internal/domain/entity"
	"chainfolio/internal/infrastructure/cacheservice"
	networkdefinition "chainfolio/internal/infrastructure/network/definition"
	"chainfolio/internal/infrastructure/pricing"
	"chainfolio/internal/infrastructure/providerclient"
	"chainfolio/internal/infrastructure/resolver"
	"chainfolio/internal/infrastructure/restapi"
	"chainfolio/internal/pkg/logger"
	"chainfolio/internal/pkg/metrics"
	"chainfolio/internal/pkg/utils"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/exp/zapslog"
)

const (
	defaultConfigPath  = "config/config.yml"
	ensGatewayBaseURL  = "https://api.ensideas.com"
	ensResolverTimeout = 5 * time.Second
	shutdownGrace      = 15 * time.Second
)

func main() {
	// Missing .env is fine; credentials may come from the real environment.
	_ = godotenv.Load()

	configPath := utils.GetEnv("CONFIG_PATH", defaultConfigPath)

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.Fatal("Failed to load configuration", "path", configPath, "error", err)
	}

	zapLogger := buildZapLogger(cfg.Logging.Level)
	defer func() { _ = zapLogger.Sync() }()

	logger.SetDefault(slog.New(zapslog.NewHandler(zapLogger.Core())))
	logger.Info("Service starting", "chains", cfg.Chains)

	appLogger := logger.NewSlogAdapter()
	metrics.MustRegisterMetrics()

	chains := networkdefinition.ByKeys(cfg.Chains)
	if len(chains) == 0 {
		logger.Fatal("No recognized chains configured", "configured", cfg.Chains)
	}

	adapters := buildAdapters(cfg, chains, zapLogger)
	if len(adapters) == 0 {
		logger.Warn("No provider adapters constructed; API requests will report the service as unconfigured")
	}

	priceClient := pricing.NewClient(
		cfg.Pricing.BaseURL,
		time.Duration(cfg.Pricing.RequestTimeoutMillis)*time.Millisecond,
		zapLogger,
		cfg.Pricing.MaxTokensPerBatchRequest,
	)
	oracle := service.NewPriceService(
		priceClient,
		time.Duration(cfg.Pricing.CacheTTLMinutes)*time.Minute,
		cfg.Pricing.MaxTokensPerBatchRequest,
		appLogger,
	)

	cache := cacheservice.New(
		time.Duration(cfg.Cache.TTLMinutes)*time.Minute,
		time.Duration(cfg.Cache.CleanupIntervalMinutes)*time.Minute,
		appLogger,
	)

	addressResolver := resolver.NewAddressResolver(ensGatewayBaseURL, ensResolverTimeout, zapLogger)

	portfolioService := service.NewPortfolioService(
		addressResolver,
		adapters,
		oracle,
		cache,
		time.Duration(cfg.Cache.TTLMinutes)*time.Minute,
		appLogger,
	)

	handler := restapi.NewPortfolioHandler(portfolioService, appLogger)
	router := restapi.SetupRouter(handler, cfg, zapLogger)

	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	go func() {
		logger.Info("HTTP server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutdown signal received, draining connections")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Graceful shutdown failed", "error", err)
	}
	logger.Info("Service stopped")
}

// buildZapLogger constructs the production zap logger at the configured
// level. An unparseable level falls back to info.
func buildZapLogger(level string) *zap.Logger {
	zapLevel, err := zap.ParseAtomicLevel(level)
	if err != nil {
		zapLevel = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = zapLevel
	zapLogger, err := zapCfg.Build()
	if err != nil {
		logger.Fatal("Failed to initialize zap logger", "error", err)
	}
	return zapLogger
}

// buildAdapters constructs one adapter per enabled provider. A provider
// with missing credentials is skipped with a warning instead of aborting
// startup, so a partially configured deployment still serves data.
func buildAdapters(cfg *config.Config, chains []entity.ChainDefinition, zapLogger *zap.Logger) []port.ProviderAdapter {
	var adapters []port.ProviderAdapter

	if cfg.Providers.Covalent.Enabled {
		covalent, err := providerclient.NewCovalentClient(cfg.Providers.Covalent, chains, zapLogger)
		if err != nil {
			logger.Warn("Skipping covalent adapter", "error", err)
		} else {
			adapters = append(adapters, covalent)
		}
	}

	if cfg.Providers.Alchemy.Enabled {
		alchemy, err := providerclient.NewAlchemyClient(cfg.Providers.Alchemy, chains, zapLogger)
		if err != nil {
			logger.Warn("Skipping alchemy adapter", "error", err)
		} else {
			adapters = append(adapters, alchemy)
		}
	}

	return adapters
}
