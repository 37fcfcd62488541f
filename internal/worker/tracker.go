package worker

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"omnipool/internal/models"
)

// ReceiptReader reads transaction receipts on one chain. A nil receipt
// without error means the transaction is not yet mined.
type ReceiptReader interface {
	GetTransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

// Tracker polls initiated transfers and settles or reverts their optimistic
// balance adjustments once the originating transaction resolves
type Tracker struct {
	manager *WorkerManager
	logger  *zap.Logger
}

// NewTracker creates a transfer tracker
func NewTracker(manager *WorkerManager) *Tracker {
	return &Tracker{
		manager: manager,
		logger:  manager.logger.Named("tracker"),
	}
}

// Run starts the tracker polling loop
func (t *Tracker) Run(ctx context.Context) {
	t.logger.Info("Tracker started",
		zap.Duration("poll_interval", DefaultPollInterval))

	ticker := time.NewTicker(DefaultPollInterval)
	defer ticker.Stop()

	// Initial poll
	t.poll(ctx)

	for {
		select {
		case <-ctx.Done():
			t.logger.Info("Tracker stopping")
			return
		case <-ticker.C:
			t.poll(ctx)
		}
	}
}

// poll executes one polling cycle over all initiated transfers
func (t *Tracker) poll(ctx context.Context) {
	pollCtx, cancel := context.WithTimeout(ctx, TrackerTimeout)
	defer cancel()

	transfers, err := t.manager.db.GetActiveTransfers(pollCtx)
	if err != nil {
		t.logger.Error("Failed to load active transfers", zap.Error(err))
		return
	}

	for i := range transfers {
		select {
		case <-pollCtx.Done():
			return
		default:
		}
		t.checkTransfer(pollCtx, &transfers[i])
	}
}

// checkTransfer resolves one transfer against its origin chain
func (t *Tracker) checkTransfer(ctx context.Context, transfer *models.PendingTransfer) {
	client, ok := t.manager.clients[transfer.SourceChainID]
	if !ok {
		t.logger.Warn("No client for transfer's origin chain",
			zap.String("transfer_key", transfer.TransferKey),
			zap.Uint64("chain_id", transfer.SourceChainID))
		return
	}

	receipt, err := client.GetTransactionReceipt(ctx, common.HexToHash(transfer.TxHash))
	if err != nil {
		t.logger.Error("Failed to read receipt",
			zap.String("transfer_key", transfer.TransferKey),
			zap.Error(err))
		return
	}
	if receipt == nil {
		// Not mined yet
		return
	}

	if receipt.Status == types.ReceiptStatusSuccessful {
		t.resolve(ctx, transfer, models.TransferStatusExecuted, nil)
	} else {
		msg := "transaction reverted"
		t.resolve(ctx, transfer, models.TransferStatusFailed, &msg)
	}
}

// resolve records the terminal status and settles or reverts the ledger
func (t *Tracker) resolve(ctx context.Context, transfer *models.PendingTransfer, status models.TransferStatus, errorMessage *string) {
	if err := t.manager.db.UpdateTransferStatus(ctx, transfer.TransferKey, status, errorMessage); err != nil {
		t.logger.Error("Failed to update transfer status",
			zap.String("transfer_key", transfer.TransferKey),
			zap.Error(err))
		return
	}

	switch status {
	case models.TransferStatusExecuted:
		t.manager.ledger.Settle(transfer.TransferKey)
	case models.TransferStatusFailed:
		t.manager.ledger.Revert(transfer.TransferKey)
	}

	t.manager.metrics.RecordTransferStatus(status)

	t.logger.Info("Transfer resolved",
		zap.String("transfer_key", transfer.TransferKey),
		zap.String("status", string(status)),
		zap.String("operation", string(transfer.Operation)))
}
