package submit

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"omnipool/internal/blockchain/evm"
	"omnipool/internal/models"
)

// ErrMissingPrerequisites is returned when a submission is attempted before
// params or fees are ready. The gate should have prevented this.
var ErrMissingPrerequisites = errors.New("missing prerequisites for submission")

// ErrInvalidCombination marks invariant violations the UI should never have
// allowed, such as a two-leg spend on a single-leg bridge
var ErrInvalidCombination = errors.New("invalid operation combination")

// Metrics events recorded around every submission
const (
	EventSubmitted = "submitted"
	EventSent      = "sent"
	EventError     = "error"
)

// ChainWriter sends signed transactions on one chain
type ChainWriter interface {
	ChainID() uint64
	SignerAddress() common.Address
	SignAndSendTransaction(ctx context.Context, to common.Address, data []byte, value *big.Int) (common.Hash, error)
	SignAndSendWithGasLimit(ctx context.Context, to common.Address, data []byte, value *big.Int, gasLimit uint64) (common.Hash, error)
}

// CallEncoder encodes protocol entry-point calls
type CallEncoder interface {
	EncodeCall(params models.RawParams, executionFee *big.Int) ([]byte, common.Address, error)
}

// BridgeEncoder encodes source-chain bridge calls
type BridgeEncoder interface {
	Address() common.Address
	EncodeBridgeIn(token common.Address, amount *big.Int, dstEid uint32, dataList [][32]byte) ([]byte, error)
}

// RelaySigner signs gas-sponsored relay payloads
type RelaySigner interface {
	Sign(p evm.RelayPayload) ([]byte, error)
	Digest(p evm.RelayPayload) (common.Hash, error)
}

// TransferStore persists pending transfer records
type TransferStore interface {
	CreatePendingTransfer(ctx context.Context, transfer *models.PendingTransfer) error
}

// MetricsRecorder receives submission lifecycle events
type MetricsRecorder interface {
	RecordSubmission(operation models.Operation, paySource models.PaySource, event string)
}

// TokenSpend is one token the submission transfers out of the account
type TokenSpend struct {
	Token  common.Address
	Amount *big.Int
}

// SubmitInput is the finalized state of one submission
type SubmitInput struct {
	Account   common.Address
	Operation models.Operation
	PaySource models.PaySource
	Params    models.RawParams
	Fees      models.TechnicalFees

	// Spends drive optimistic balance deltas for custodial submissions
	Spends []TokenSpend

	// Source-chain specifics
	SourceChainID     uint64
	SourceToken       common.Address // source-chain representation of the spend token
	SourceTokenAmount *big.Int
	DestEndpointID    uint32 // settlement chain's bridge endpoint id

	// RelayNonce is required for GMX account submissions
	RelayNonce *big.Int

	// SkipSimulation sends with the modeled gas limit instead of
	// estimating, bypassing the pre-flight simulation
	SkipSimulation bool
}

// Submitter executes one of six operation/pay-source combinations
type Submitter struct {
	settlement  ChainWriter
	sources     map[uint64]ChainWriter
	router      CallEncoder
	gateways    map[uint64]BridgeEncoder
	relaySigner RelaySigner
	store       TransferStore
	metrics     MetricsRecorder

	settlementChainID uint64
	deadlineDuration  time.Duration

	// Now is the clock used for relay deadlines; injectable for tests
	Now func() time.Time

	logger *zap.Logger
}

// NewSubmitter creates a Submitter
func NewSubmitter(
	settlement ChainWriter,
	sources map[uint64]ChainWriter,
	router CallEncoder,
	gateways map[uint64]BridgeEncoder,
	relaySigner RelaySigner,
	store TransferStore,
	metrics MetricsRecorder,
	settlementChainID uint64,
	deadlineDuration time.Duration,
	logger *zap.Logger,
) *Submitter {
	return &Submitter{
		settlement:        settlement,
		sources:           sources,
		router:            router,
		gateways:          gateways,
		relaySigner:       relaySigner,
		store:             store,
		metrics:           metrics,
		settlementChainID: settlementChainID,
		deadlineDuration:  deadlineDuration,
		Now:               time.Now,
		logger:            logger.Named("submitter"),
	}
}

// Submit dispatches to the execution path for the operation and pay source.
// Failures are not retried; the caller must resubmit.
func (s *Submitter) Submit(ctx context.Context, in SubmitInput) (*models.SubmitResult, error) {
	s.metrics.RecordSubmission(in.Operation, in.PaySource, EventSubmitted)

	result, err := s.dispatch(ctx, in)
	if err != nil {
		s.metrics.RecordSubmission(in.Operation, in.PaySource, EventError)
		s.logger.Error("Submission failed",
			zap.String("operation", string(in.Operation)),
			zap.String("pay_source", string(in.PaySource)),
			zap.Error(err))
		return nil, err
	}

	s.metrics.RecordSubmission(in.Operation, in.PaySource, EventSent)
	return result, nil
}

func (s *Submitter) dispatch(ctx context.Context, in SubmitInput) (*models.SubmitResult, error) {
	if in.Params == nil || in.Fees == nil {
		return nil, ErrMissingPrerequisites
	}
	if in.Account == (common.Address{}) {
		return nil, ErrMissingPrerequisites
	}
	if in.Fees.Source() != in.PaySource {
		return nil, fmt.Errorf("%w: fees computed for %s but pay source is %s",
			ErrInvalidCombination, in.Fees.Source(), in.PaySource)
	}

	switch in.PaySource {
	case models.PaySourceSettlementChain:
		return s.submitSettlementChain(ctx, in)
	case models.PaySourceSourceChain:
		return s.submitSourceChain(ctx, in)
	case models.PaySourceGmxAccount:
		return s.submitGmxAccount(ctx, in)
	}
	return nil, fmt.Errorf("%w: unknown pay source %s", ErrInvalidCombination, in.PaySource)
}

func (s *Submitter) submitSettlementChain(ctx context.Context, in SubmitInput) (*models.SubmitResult, error) {
	fees, ok := in.Fees.(models.SettlementChainFees)
	if !ok {
		return nil, fmt.Errorf("%w: settlement chain submission with %T fees", ErrInvalidCombination, in.Fees)
	}

	data, target, err := s.router.EncodeCall(in.Params, fees.FeeTokenAmount)
	if err != nil {
		return nil, fmt.Errorf("failed to encode call: %w", err)
	}

	// The execution fee rides along as transaction value
	var txHash common.Hash
	if in.SkipSimulation {
		txHash, err = s.settlement.SignAndSendWithGasLimit(ctx, target, data, fees.FeeTokenAmount, fees.GasLimit)
	} else {
		txHash, err = s.settlement.SignAndSendTransaction(ctx, target, data, fees.FeeTokenAmount)
	}
	if err != nil {
		return nil, err
	}

	transfer := s.newTransfer(in, s.settlementChainID, txHash)
	if err := s.store.CreatePendingTransfer(ctx, transfer); err != nil {
		return nil, fmt.Errorf("failed to register pending transfer: %w", err)
	}

	return &models.SubmitResult{TxHash: txHash, Transfer: transfer}, nil
}

func (s *Submitter) submitSourceChain(ctx context.Context, in SubmitInput) (*models.SubmitResult, error) {
	fees, ok := in.Fees.(models.SourceChainFees)
	if !ok {
		return nil, fmt.Errorf("%w: source chain submission with %T fees", ErrInvalidCombination, in.Fees)
	}
	if err := s.checkSingleLeg(in.Params); err != nil {
		return nil, err
	}
	if in.SourceToken == (common.Address{}) || in.SourceTokenAmount == nil || in.SourceTokenAmount.Sign() == 0 {
		return nil, ErrMissingPrerequisites
	}

	client, ok := s.sources[in.SourceChainID]
	if !ok {
		return nil, fmt.Errorf("%w: no client for source chain %d", ErrInvalidCombination, in.SourceChainID)
	}
	gateway, ok := s.gateways[in.SourceChainID]
	if !ok {
		return nil, fmt.Errorf("%w: no bridge gateway for source chain %d", ErrInvalidCombination, in.SourceChainID)
	}

	// One call both moves the collateral and carries the bridge-out
	// instruction for the leg coming back
	data, err := gateway.EncodeBridgeIn(in.SourceToken, in.SourceTokenAmount, in.DestEndpointID, in.Params.DataChunks())
	if err != nil {
		return nil, fmt.Errorf("failed to encode bridge call: %w", err)
	}

	txHash, err := client.SignAndSendTransaction(ctx, gateway.Address(), data, fees.BridgeNativeFee)
	if err != nil {
		return nil, err
	}

	transfer := s.newTransfer(in, in.SourceChainID, txHash)
	if err := s.store.CreatePendingTransfer(ctx, transfer); err != nil {
		return nil, fmt.Errorf("failed to register pending transfer: %w", err)
	}

	return &models.SubmitResult{TxHash: txHash, Transfer: transfer}, nil
}

func (s *Submitter) submitGmxAccount(ctx context.Context, in SubmitInput) (*models.SubmitResult, error) {
	fees, ok := in.Fees.(models.GmxAccountFees)
	if !ok {
		return nil, fmt.Errorf("%w: gmx account submission with %T fees", ErrInvalidCombination, in.Fees)
	}
	if in.RelayNonce == nil {
		return nil, ErrMissingPrerequisites
	}
	if fees.RelayFeeToken == (common.Address{}) || fees.RelayFeeTokenAmount == nil {
		return nil, ErrMissingPrerequisites
	}

	// The relayed call pays no native execution fee; the relay recoups its
	// cost from the gas payment token
	data, target, err := s.router.EncodeCall(in.Params, big.NewInt(0))
	if err != nil {
		return nil, fmt.Errorf("failed to encode call: %w", err)
	}

	payload := evm.RelayPayload{
		Account:   in.Account,
		To:        target,
		Calldata:  data,
		FeeToken:  fees.RelayFeeToken,
		FeeAmount: fees.RelayFeeTokenAmount,
		Nonce:     in.RelayNonce,
		Deadline:  big.NewInt(s.Now().Add(s.deadlineDuration).Unix()),
	}

	signature, err := s.relaySigner.Sign(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to sign relay payload: %w", err)
	}
	digest, err := s.relaySigner.Digest(payload)
	if err != nil {
		return nil, err
	}

	// Optimistic deltas: each spent token and the gas payment go negative
	// immediately; the tracker reverts them if the relay fails
	deltas := make([]models.BalanceDelta, 0, len(in.Spends)+1)
	for _, spend := range in.Spends {
		if spend.Amount == nil || spend.Amount.Sign() == 0 {
			continue
		}
		deltas = append(deltas, models.BalanceDelta{
			Account: in.Account,
			ChainID: s.settlementChainID,
			Token:   spend.Token,
			Delta:   new(big.Int).Neg(spend.Amount),
		})
	}
	deltas = append(deltas, models.BalanceDelta{
		Account: in.Account,
		ChainID: s.settlementChainID,
		Token:   fees.GasPaymentToken,
		Delta:   new(big.Int).Neg(fees.GasPaymentTokenAmount),
	})

	// The digest keys the record, but it is not a transaction hash: receipt
	// polling starts only once the relayer's actual hash is attached
	transfer := s.newTransfer(in, s.settlementChainID, digest)
	transfer.Status = models.TransferStatusAwaitingRelay
	if err := s.store.CreatePendingTransfer(ctx, transfer); err != nil {
		return nil, fmt.Errorf("failed to register pending transfer: %w", err)
	}

	return &models.SubmitResult{
		TxHash:         digest,
		Transfer:       transfer,
		BalanceDeltas:  deltas,
		RelaySignature: signature,
	}, nil
}

// checkSingleLeg rejects source-chain deposits spending both collateral
// sides: the bridge moves exactly one token per call
func (s *Submitter) checkSingleLeg(params models.RawParams) error {
	var long, short *big.Int
	switch p := params.(type) {
	case models.GmDepositParams:
		long, short = p.LongTokenAmount, p.ShortTokenAmount
	case models.GlvDepositParams:
		long, short = p.LongTokenAmount, p.ShortTokenAmount
	default:
		return nil
	}
	if long != nil && short != nil && long.Sign() > 0 && short.Sign() > 0 {
		return fmt.Errorf("%w: both collateral legs positive for a single-leg bridge", ErrInvalidCombination)
	}
	return nil
}

func (s *Submitter) newTransfer(in SubmitInput, sourceChainID uint64, txHash common.Hash) *models.PendingTransfer {
	amount := "0"
	token := in.SourceToken
	if in.SourceTokenAmount != nil {
		amount = in.SourceTokenAmount.String()
	}
	if len(in.Spends) > 0 && in.Spends[0].Amount != nil {
		if token == (common.Address{}) {
			token = in.Spends[0].Token
		}
		if amount == "0" {
			amount = in.Spends[0].Amount.String()
		}
	}

	return &models.PendingTransfer{
		TransferKey:       fmt.Sprintf("%d:%d:%s", sourceChainID, s.settlementChainID, txHash.Hex()),
		Account:           in.Account.Hex(),
		Operation:         in.Operation,
		PaySource:         in.PaySource,
		SourceChainID:     sourceChainID,
		SettlementChainID: s.settlementChainID,
		Token:             token.Hex(),
		Amount:            amount,
		TxHash:            txHash.Hex(),
		Status:            models.TransferStatusInitiated,
	}
}
