package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"omnipool/internal/database"
	"omnipool/internal/metrics"
	"omnipool/internal/state"
)

// Constants for worker configuration
const (
	DefaultPollInterval = 15 * time.Second
	TrackerTimeout      = 30 * time.Second
)

// WorkerManager orchestrates the background transfer tracker
type WorkerManager struct {
	db      *database.DB
	ledger  *state.Ledger
	metrics *metrics.Recorder
	logger  *zap.Logger

	// Receipt readers per chain id
	clients map[uint64]ReceiptReader

	tracker *Tracker

	// Control
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewWorkerManager creates a worker manager with all required dependencies
func NewWorkerManager(
	db *database.DB,
	ledger *state.Ledger,
	recorder *metrics.Recorder,
	clients map[uint64]ReceiptReader,
	logger *zap.Logger,
) *WorkerManager {
	logger = logger.Named("worker")

	ctx, cancel := context.WithCancel(context.Background())

	wm := &WorkerManager{
		db:      db,
		ledger:  ledger,
		metrics: recorder,
		logger:  logger,
		clients: clients,
		ctx:     ctx,
		cancel:  cancel,
	}
	wm.tracker = NewTracker(wm)

	return wm
}

// Start starts all worker goroutines
func (wm *WorkerManager) Start() {
	wm.logger.Info("Starting worker manager",
		zap.Int("num_chains", len(wm.clients)),
		zap.Duration("poll_interval", DefaultPollInterval))

	wm.wg.Add(1)
	go func() {
		defer wm.wg.Done()
		wm.tracker.Run(wm.ctx)
	}()

	wm.logger.Info("Worker manager started")
}

// Shutdown gracefully stops all workers
func (wm *WorkerManager) Shutdown(timeout time.Duration) error {
	wm.logger.Info("Shutting down worker manager")

	wm.cancel()

	done := make(chan struct{})
	go func() {
		wm.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		wm.logger.Info("Workers stopped gracefully")
	case <-time.After(timeout):
		wm.logger.Warn("Worker shutdown timed out")
	}

	wm.logger.Info("Worker manager shutdown complete")
	return nil
}
