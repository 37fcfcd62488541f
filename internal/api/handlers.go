package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"omnipool/internal/database"
	"omnipool/internal/models"
	"omnipool/internal/pipeline/fees"
)

// Handler holds dependencies for HTTP handlers
type Handler struct {
	db        *database.DB
	estimator *fees.Estimator
	logger    *zap.Logger
}

// NewHandler creates a new API handler
func NewHandler(db *database.DB, estimator *fees.Estimator, logger *zap.Logger) *Handler {
	return &Handler{
		db:        db,
		estimator: estimator,
		logger:    logger,
	}
}

// ==================== Health Check ====================

// HandleHealth returns service health status
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:  "ok",
		Version: "1.0.0",
	}
	respondJSON(w, http.StatusOK, response)
}

// ==================== Fee Estimation ====================

// HandleEstimateFee handles POST /api/v1/fees/estimate
// Prices the settlement-chain execution of an operation shape
func (h *Handler) HandleEstimateFee(w http.ResponseWriter, r *http.Request) {
	var req EstimateFeeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("Failed to decode request", zap.Error(err))
		respondError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if req.Operation != models.OperationDeposit && req.Operation != models.OperationWithdrawal {
		respondError(w, http.StatusBadRequest, "operation must be deposit or withdrawal", nil)
		return
	}

	estimateReq := fees.EstimateRequest{
		Operation:     req.Operation,
		PaySource:     models.PaySourceSettlementChain,
		NumGlvMarkets: req.NumGlvMarkets,
		SwapHops:      req.SwapHops,
	}
	if req.IsGlv {
		// Any non-zero GLV selection switches the gas model to GLV bases
		estimateReq.Pool = models.PoolSelection{
			Glv:       models.BootstrapReceiver,
			GlvMarket: models.BootstrapReceiver,
		}
	}
	if req.Operation == models.OperationDeposit {
		estimateReq.Params = models.GmDepositParams{}
	} else {
		estimateReq.Params = models.GmWithdrawalParams{}
	}

	result, err := h.estimator.Estimate(r.Context(), estimateReq)
	if err != nil {
		h.logger.Error("Fee estimation failed", zap.Error(err))
		respondError(w, http.StatusBadGateway, "Failed to estimate fee", err)
		return
	}
	if result == nil {
		respondError(w, http.StatusServiceUnavailable, "Fee data not loaded yet", nil)
		return
	}

	settlement, ok := result.(models.SettlementChainFees)
	if !ok {
		respondError(w, http.StatusInternalServerError, "Unexpected fee shape", nil)
		return
	}

	respondJSON(w, http.StatusOK, EstimateFeeResponse{
		GasLimit:       settlement.GasLimit,
		GasPrice:       settlement.GasPrice.String(),
		FeeTokenAmount: settlement.FeeTokenAmount.String(),
		FeeUSD:         settlement.FeeUSD.String(),
	})
}

// ==================== Transfers ====================

// HandleGetTransferStatus handles GET /api/v1/transfers/status/{transferKey}
func (h *Handler) HandleGetTransferStatus(w http.ResponseWriter, r *http.Request) {
	transferKey := mux.Vars(r)["transferKey"]

	transfer, err := h.db.GetPendingTransferByKey(r.Context(), transferKey)
	if err != nil {
		h.logger.Error("Failed to load transfer",
			zap.String("transfer_key", transferKey),
			zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Failed to load transfer", err)
		return
	}
	if transfer == nil {
		respondError(w, http.StatusNotFound, "Transfer not found", nil)
		return
	}

	respondJSON(w, http.StatusOK, toTransferResponse(transfer))
}

// HandleAttachRelayTxHash handles POST /api/v1/transfers/relay/{transferKey}
// Records the relayer's transaction hash so the tracker can start polling
func (h *Handler) HandleAttachRelayTxHash(w http.ResponseWriter, r *http.Request) {
	transferKey := mux.Vars(r)["transferKey"]

	var req AttachRelayTxHashRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.TxHash == "" {
		respondError(w, http.StatusBadRequest, "tx_hash is required", nil)
		return
	}

	attached, err := h.db.AttachRelayTxHash(r.Context(), transferKey, req.TxHash)
	if err != nil {
		h.logger.Error("Failed to attach relay tx hash",
			zap.String("transfer_key", transferKey),
			zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Failed to attach relay tx hash", err)
		return
	}
	if !attached {
		respondError(w, http.StatusNotFound, "No transfer awaiting a relay hash under this key", nil)
		return
	}

	transfer, err := h.db.GetPendingTransferByKey(r.Context(), transferKey)
	if err != nil || transfer == nil {
		respondError(w, http.StatusInternalServerError, "Failed to load transfer", err)
		return
	}
	respondJSON(w, http.StatusOK, toTransferResponse(transfer))
}

// HandleGetAccountTransfers handles GET /api/v1/transfers/account/{account}
func (h *Handler) HandleGetAccountTransfers(w http.ResponseWriter, r *http.Request) {
	account := mux.Vars(r)["account"]

	transfers, err := h.db.GetTransfersByAccount(r.Context(), account)
	if err != nil {
		h.logger.Error("Failed to load transfers",
			zap.String("account", account),
			zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Failed to load transfers", err)
		return
	}

	response := TransferListResponse{
		Account:   account,
		Transfers: make([]TransferResponse, 0, len(transfers)),
	}
	for i := range transfers {
		response.Transfers = append(response.Transfers, toTransferResponse(&transfers[i]))
	}

	respondJSON(w, http.StatusOK, response)
}

func toTransferResponse(t *models.PendingTransfer) TransferResponse {
	return TransferResponse{
		TransferKey:       t.TransferKey,
		Account:           t.Account,
		Operation:         t.Operation,
		PaySource:         t.PaySource,
		SourceChainID:     t.SourceChainID,
		SettlementChainID: t.SettlementChainID,
		Token:             t.Token,
		Amount:            t.Amount,
		TxHash:            t.TxHash,
		Status:            t.Status,
		Error:             t.ErrorMessage,
	}
}

// ==================== Response Helpers ====================

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string, err error) {
	response := ErrorResponse{Error: message}
	if err != nil {
		response.Message = err.Error()
	}
	respondJSON(w, status, response)
}
