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

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"omnipool/internal/api"
	"omnipool/internal/blockchain/evm"
	"omnipool/internal/config"
	"omnipool/internal/database"
	"omnipool/internal/metrics"
	"omnipool/internal/pipeline/fees"
	"omnipool/internal/registry"
	"omnipool/internal/state"
	"omnipool/internal/worker"
)

func main() {
	// Initialize logger
	logger, err := initLogger()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("Starting Omnipool Service")

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}

	logger.Info("Configuration loaded",
		zap.Int("server_port", cfg.Server.Port),
		zap.String("db_host", cfg.Database.Host),
		zap.Uint64("settlement_chain", cfg.Settlement.ChainID),
		zap.Int("num_source_chains", len(cfg.SourceChains)))

	// Connect to database
	db, err := database.Connect(database.Config{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		DBName:   cfg.Database.DBName,
		SSLMode:  cfg.Database.SSLMode,
	})
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	logger.Info("Database connected successfully")

	// Run migrations
	migrationPath := "migrations/001_schema.sql"
	if err := database.RunMigrations(db, migrationPath); err != nil {
		logger.Warn("Failed to run migrations (may already be applied)", zap.Error(err))
	} else {
		logger.Info("Database migrations applied successfully")
	}

	// Initialize chain clients
	settlementClient, err := evm.NewClient(
		cfg.Settlement.ChainID,
		cfg.Settlement.Name,
		cfg.Settlement.RPCEndpoint,
		cfg.Operator.PrivateKey,
		logger,
	)
	if err != nil {
		logger.Fatal("Failed to create settlement chain client", zap.Error(err))
	}
	defer settlementClient.Close()

	receiptReaders := map[uint64]worker.ReceiptReader{
		cfg.Settlement.ChainID: settlementClient,
	}
	quoteEndpoints := make(map[uint64]string)

	sourceClients := make(map[uint64]*evm.Client)
	for chainID, sc := range cfg.SourceChains {
		client, err := evm.NewClient(sc.ChainID, sc.Name, sc.RPCEndpoint, cfg.Operator.PrivateKey, logger)
		if err != nil {
			logger.Fatal("Failed to create source chain client",
				zap.Uint64("chain_id", chainID),
				zap.Error(err))
		}
		defer client.Close()

		sourceClients[chainID] = client
		receiptReaders[chainID] = client
		if sc.QuoteEndpoint != "" {
			quoteEndpoints[chainID] = sc.QuoteEndpoint
		}
	}

	logger.Info("Chain clients initialized", zap.Int("num_chains", len(receiptReaders)))

	// Reference data registry and optimistic ledger
	refData := registry.New(logger)
	refData.SetWrappedNative(common.HexToAddress(cfg.Settlement.WrappedNativeToken))
	ledger := state.NewLedger(logger)

	// Metrics
	promRegistry := prometheus.NewRegistry()
	recorder := metrics.NewRecorder(promRegistry)

	// Fee estimator
	quoter := fees.NewQuoteClient(quoteEndpoints, logger)
	estimator := fees.NewEstimator(
		settlementClient,
		refData,
		cfg.GasLimits,
		quoter,
		fees.RelayParams{
			GasPaymentToken:  common.HexToAddress(cfg.Relay.GasPaymentToken),
			RelayFeeToken:    common.HexToAddress(cfg.Relay.RelayFeeToken),
			FeeMultiplierBps: 1000,
			Loaded:           cfg.Relay.GasPaymentToken != "" && cfg.Relay.RelayFeeToken != "",
		},
		refData.WrappedNative(),
		logger,
	)

	logger.Info("Pipeline services initialized")

	// Initialize API handlers
	apiHandler := api.NewHandler(db, estimator, logger)
	router := api.SetupRouter(apiHandler, promRegistry, logger)

	// Create HTTP server
	serverAddr := fmt.Sprintf(":%d", cfg.Server.Port)
	httpServer := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start HTTP server in goroutine
	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server",
			zap.String("addr", serverAddr))
		serverErrors <- httpServer.ListenAndServe()
	}()

	// Start the transfer tracker
	workerManager := worker.NewWorkerManager(db, ledger, recorder, receiptReaders, logger)
	workerManager.Start()

	logger.Info("Service initialized successfully",
		zap.String("status", "ready"),
		zap.Int("port", cfg.Server.Port))

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	// Wait for interrupt signal or server error
	select {
	case err := <-serverErrors:
		logger.Fatal("HTTP server error", zap.Error(err))
	case sig := <-quit:
		logger.Info("Received shutdown signal", zap.String("signal", sig.String()))
	}

	logger.Info("Shutting down service...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	// Shutdown workers first
	if err := workerManager.Shutdown(10 * time.Second); err != nil {
		logger.Error("Worker shutdown error", zap.Error(err))
	}

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
		httpServer.Close()
	} else {
		logger.Info("HTTP server stopped gracefully")
	}

	logger.Info("Service stopped successfully")
}

func initLogger() (*zap.Logger, error) {
	env := os.Getenv("ENV")
	if env == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}
