package api

import "omnipool/internal/models"

// ==================== Health ====================

// HealthResponse represents service health status
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// ==================== Fee Estimation ====================

// EstimateFeeRequest represents a request to price an operation's execution
type EstimateFeeRequest struct {
	Operation     models.Operation `json:"operation"`
	IsGlv         bool             `json:"is_glv"`
	NumGlvMarkets int              `json:"num_glv_markets"`
	SwapHops      int              `json:"swap_hops"`
}

// EstimateFeeResponse represents the modeled execution cost
type EstimateFeeResponse struct {
	GasLimit       uint64 `json:"gas_limit"`
	GasPrice       string `json:"gas_price"`
	FeeTokenAmount string `json:"fee_token_amount"`
	FeeUSD         string `json:"fee_usd"`
}

// ==================== Transfers ====================

// TransferResponse represents one pending transfer
type TransferResponse struct {
	TransferKey       string                `json:"transfer_key"`
	Account           string                `json:"account"`
	Operation         models.Operation      `json:"operation"`
	PaySource         models.PaySource      `json:"pay_source"`
	SourceChainID     uint64                `json:"source_chain_id"`
	SettlementChainID uint64                `json:"settlement_chain_id"`
	Token             string                `json:"token"`
	Amount            string                `json:"amount"`
	TxHash            string                `json:"tx_hash"`
	Status            models.TransferStatus `json:"status"`
	Error             *string               `json:"error,omitempty"`
}

// AttachRelayTxHashRequest carries the relayer's transaction hash for a
// relayed submission
type AttachRelayTxHashRequest struct {
	TxHash string `json:"tx_hash"`
}

// TransferListResponse represents an account's transfers
type TransferListResponse struct {
	Account   string             `json:"account"`
	Transfers []TransferResponse `json:"transfers"`
}

// ==================== Errors ====================

// ErrorResponse represents an API error
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
