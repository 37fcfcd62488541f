package database

import (
	"context"
	"database/sql"

	"omnipool/internal/models"
)

// ==================== Pending Transfer Queries ====================

// CreatePendingTransfer registers a newly initiated transfer
func (db *DB) CreatePendingTransfer(ctx context.Context, transfer *models.PendingTransfer) error {
	query := `
		INSERT INTO pending_transfers (
			transfer_key, account, operation, pay_source,
			source_chain_id, settlement_chain_id, token, amount,
			tx_hash, status
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`
	return db.QueryRowContext(
		ctx, query,
		transfer.TransferKey,
		transfer.Account,
		transfer.Operation,
		transfer.PaySource,
		transfer.SourceChainID,
		transfer.SettlementChainID,
		transfer.Token,
		transfer.Amount,
		transfer.TxHash,
		transfer.Status,
	).Scan(&transfer.ID)
}

// GetPendingTransferByKey retrieves a transfer by its key
func (db *DB) GetPendingTransferByKey(ctx context.Context, transferKey string) (*models.PendingTransfer, error) {
	var transfer models.PendingTransfer
	query := `
		SELECT id, transfer_key, account, operation, pay_source,
		       source_chain_id, settlement_chain_id, token, amount,
		       tx_hash, status, error_message
		FROM pending_transfers
		WHERE transfer_key = $1
	`
	err := db.GetContext(ctx, &transfer, query, transferKey)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return &transfer, err
}

// GetActiveTransfers retrieves all transfers still awaiting settlement
func (db *DB) GetActiveTransfers(ctx context.Context) ([]models.PendingTransfer, error) {
	var transfers []models.PendingTransfer
	query := `
		SELECT id, transfer_key, account, operation, pay_source,
		       source_chain_id, settlement_chain_id, token, amount,
		       tx_hash, status, error_message
		FROM pending_transfers
		WHERE status = $1
		ORDER BY id ASC
	`
	err := db.SelectContext(ctx, &transfers, query, models.TransferStatusInitiated)
	return transfers, err
}

// GetTransfersByAccount retrieves an account's transfers, newest first
func (db *DB) GetTransfersByAccount(ctx context.Context, account string) ([]models.PendingTransfer, error) {
	var transfers []models.PendingTransfer
	query := `
		SELECT id, transfer_key, account, operation, pay_source,
		       source_chain_id, settlement_chain_id, token, amount,
		       tx_hash, status, error_message
		FROM pending_transfers
		WHERE account = $1
		ORDER BY id DESC
	`
	err := db.SelectContext(ctx, &transfers, query, account)
	return transfers, err
}

// AttachRelayTxHash records the relayer's actual transaction hash for a
// relayed submission and moves the record into receipt polling. Records not
// awaiting a relay hash are left untouched.
func (db *DB) AttachRelayTxHash(ctx context.Context, transferKey, txHash string) (bool, error) {
	query := `
		UPDATE pending_transfers
		SET tx_hash = $2, status = $3, updated_at = NOW()
		WHERE transfer_key = $1 AND status = $4
	`
	result, err := db.ExecContext(ctx, query, transferKey, txHash,
		models.TransferStatusInitiated, models.TransferStatusAwaitingRelay)
	if err != nil {
		return false, err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

// UpdateTransferStatus records a transfer's status transition
func (db *DB) UpdateTransferStatus(ctx context.Context, transferKey string, status models.TransferStatus, errorMessage *string) error {
	query := `
		UPDATE pending_transfers
		SET status = $2, error_message = $3, updated_at = NOW()
		WHERE transfer_key = $1
	`
	_, err := db.ExecContext(ctx, query, transferKey, status, errorMessage)
	return err
}
