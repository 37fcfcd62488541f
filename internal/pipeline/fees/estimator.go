// Package fees estimates the execution cost of an operation per pay source
// and normalizes the result into one USD-denominated breakdown.
package fees

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"omnipool/internal/config"
	"omnipool/internal/models"
)

const nativeTokenDecimals = 18

// GasPriceSource reads the current gas price of the settlement chain
type GasPriceSource interface {
	GetGasPrice(ctx context.Context) (*big.Int, error)
}

// PriceSource reads token prices and decimals
type PriceSource interface {
	TokenPriceUSD(token common.Address) (decimal.Decimal, bool)
	TokenDecimals(token common.Address) (uint8, bool)
}

// RelayParams are the global parameters of the gas-sponsoring relay
type RelayParams struct {
	GasPaymentToken common.Address
	// RelayFeeToken is the token the relayer collects its fee in
	RelayFeeToken common.Address
	// FeeMultiplierBps is the relay's premium over the raw execution cost
	FeeMultiplierBps uint16
	Loaded           bool
}

// EstimateRequest carries everything a fee estimate depends on
type EstimateRequest struct {
	// ChainID is the settlement chain the operation executes on
	ChainID   uint64
	Operation models.Operation
	PaySource models.PaySource
	Pool      models.PoolSelection

	// PairMode is false when a withdrawal pays out in a single token
	PairMode bool

	Params models.RawParams

	// NumGlvMarkets is the underlying market count for GLV operations
	NumGlvMarkets int
	// SwapHops is the total swap path length across both withdrawal legs
	SwapHops int

	// Source-chain specifics; zero values unless PaySource=SourceChain
	SourceChainID     uint64
	SourceToken       common.Address
	SourceTokenAmount *big.Int
	SourceEndpointID  uint32
	// SourceNativeToken prices the bridge's native fee
	SourceNativeToken common.Address
}

// Fingerprint identifies one estimate's inputs. Two requests with equal
// fingerprints produce the same estimate (modulo market movement).
type Fingerprint struct {
	ChainID     uint64
	PaySource   models.PaySource
	Operation   models.Operation
	IsGlv       bool
	PairMode    bool
	ParamsHash  common.Hash
	SourceChain uint64
	SourceToken common.Address
	SourceAmt   string
}

// Fingerprint derives the request's identity
func (r EstimateRequest) Fingerprint() Fingerprint {
	fp := Fingerprint{
		ChainID:     r.ChainID,
		PaySource:   r.PaySource,
		Operation:   r.Operation,
		IsGlv:       r.Pool.IsGlv(),
		PairMode:    r.PairMode,
		SourceChain: r.SourceChainID,
		SourceToken: r.SourceToken,
	}
	if r.SourceTokenAmount != nil {
		fp.SourceAmt = r.SourceTokenAmount.String()
	}
	if r.Params != nil {
		hash := crypto.NewKeccakState()
		for _, chunk := range r.Params.DataChunks() {
			hash.Write(chunk[:])
		}
		var sum common.Hash
		hash.Read(sum[:])
		fp.ParamsHash = sum
	}
	return fp
}

// StructuralChange reports whether moving from prev to this fingerprint
// switches pay source, operation, or pair mode. Structural changes bypass
// the debounce window.
func (f Fingerprint) StructuralChange(prev Fingerprint) bool {
	return f.PaySource != prev.PaySource ||
		f.Operation != prev.Operation ||
		f.PairMode != prev.PairMode
}

// Estimator computes technical fees for one request. It is stateless; the
// Scheduler adds throttling and last-request-wins ordering on top.
type Estimator struct {
	gas         GasPriceSource
	prices      PriceSource
	limits      config.GasLimitConfig
	quoter      BridgeQuoter
	relay       RelayParams
	nativeToken common.Address // settlement chain wrapped native, for pricing gas
	logger      *zap.Logger
}

// NewEstimator creates an Estimator
func NewEstimator(
	gas GasPriceSource,
	prices PriceSource,
	limits config.GasLimitConfig,
	quoter BridgeQuoter,
	relay RelayParams,
	nativeToken common.Address,
	logger *zap.Logger,
) *Estimator {
	return &Estimator{
		gas:         gas,
		prices:      prices,
		limits:      limits,
		quoter:      quoter,
		relay:       relay,
		nativeToken: nativeToken,
		logger:      logger.Named("fee_estimator"),
	}
}

// GasLimit models the execution gas of an operation from its shape: a base
// per operation and token kind, plus per-GLV-market and per-swap-hop terms
func (e *Estimator) GasLimit(req EstimateRequest) uint64 {
	var base uint64
	switch {
	case req.Operation == models.OperationDeposit && req.Pool.IsGlv():
		base = e.limits.GlvDepositBase
	case req.Operation == models.OperationDeposit:
		base = e.limits.DepositBase
	case req.Pool.IsGlv():
		base = e.limits.GlvWithdrawalBase
	default:
		base = e.limits.WithdrawalBase
	}

	if req.Pool.IsGlv() {
		base += e.limits.PerGlvMarket * uint64(req.NumGlvMarkets)
	}
	base += e.limits.PerSwapHop * uint64(req.SwapHops)
	return base
}

// Estimate computes the technical fees for a request. A nil result with a
// nil error means a prerequisite has not loaded yet; callers must treat
// that as "not ready", never as zero fees.
func (e *Estimator) Estimate(ctx context.Context, req EstimateRequest) (models.TechnicalFees, error) {
	if req.Params == nil {
		return nil, nil
	}

	switch req.PaySource {
	case models.PaySourceSettlementChain:
		return e.estimateSettlementChain(ctx, req)
	case models.PaySourceGmxAccount:
		return e.estimateGmxAccount(ctx, req)
	case models.PaySourceSourceChain:
		return e.estimateSourceChain(ctx, req)
	}
	return nil, nil
}

func (e *Estimator) estimateSettlementChain(ctx context.Context, req EstimateRequest) (models.TechnicalFees, error) {
	gasPrice, err := e.gas.GetGasPrice(ctx)
	if err != nil {
		return nil, err
	}

	nativePrice, ok := e.prices.TokenPriceUSD(e.nativeToken)
	if !ok {
		return nil, nil
	}

	gasLimit := e.GasLimit(req)
	feeAmount := new(big.Int).Mul(new(big.Int).SetUint64(gasLimit), gasPrice)
	feeUSD := decimal.NewFromBigInt(feeAmount, -nativeTokenDecimals).Mul(nativePrice)

	return models.SettlementChainFees{
		GasLimit:       gasLimit,
		GasPrice:       gasPrice,
		FeeTokenAmount: feeAmount,
		FeeUSD:         feeUSD,
	}, nil
}

func (e *Estimator) estimateGmxAccount(ctx context.Context, req EstimateRequest) (models.TechnicalFees, error) {
	if !e.relay.Loaded {
		return nil, nil
	}

	settlement, err := e.estimateSettlementChain(ctx, req)
	if err != nil || settlement == nil {
		return nil, err
	}
	executionUSD := settlement.(models.SettlementChainFees).FeeUSD

	relayUSD := executionUSD.Mul(decimal.New(int64(e.relay.FeeMultiplierBps), -4))

	paymentPrice, ok := e.prices.TokenPriceUSD(e.relay.GasPaymentToken)
	if !ok || paymentPrice.IsZero() {
		return nil, nil
	}
	paymentDecimals, ok := e.prices.TokenDecimals(e.relay.GasPaymentToken)
	if !ok {
		return nil, nil
	}

	feeTokenPrice, ok := e.prices.TokenPriceUSD(e.relay.RelayFeeToken)
	if !ok || feeTokenPrice.IsZero() {
		return nil, nil
	}
	feeTokenDecimals, ok := e.prices.TokenDecimals(e.relay.RelayFeeToken)
	if !ok {
		return nil, nil
	}

	totalUSD := executionUSD.Add(relayUSD)
	paymentAmount := totalUSD.Div(paymentPrice).Shift(int32(paymentDecimals)).BigInt()
	feeTokenAmount := totalUSD.Div(feeTokenPrice).Shift(int32(feeTokenDecimals)).BigInt()

	return models.GmxAccountFees{
		GasPaymentToken:       e.relay.GasPaymentToken,
		GasPaymentTokenAmount: paymentAmount,
		RelayFeeToken:         e.relay.RelayFeeToken,
		RelayFeeTokenAmount:   feeTokenAmount,
		RelayFeeUSD:           relayUSD,
		ExecutionFeeUSD:       executionUSD,
	}, nil
}

func (e *Estimator) estimateSourceChain(ctx context.Context, req EstimateRequest) (models.TechnicalFees, error) {
	if !e.relay.Loaded {
		return nil, nil
	}
	if req.SourceToken == (common.Address{}) || req.SourceTokenAmount == nil || req.SourceTokenAmount.Sign() == 0 {
		return nil, nil
	}
	if e.quoter == nil {
		return nil, nil
	}

	quote, err := e.quoter.Quote(ctx, req.SourceChainID, req.SourceToken, req.SourceTokenAmount, req.SourceEndpointID)
	if err != nil {
		return nil, err
	}

	settlement, err := e.estimateSettlementChain(ctx, req)
	if err != nil || settlement == nil {
		return nil, err
	}
	executionUSD := settlement.(models.SettlementChainFees).FeeUSD
	relayUSD := executionUSD.Mul(decimal.New(int64(e.relay.FeeMultiplierBps), -4))

	nativeFeeUSD := decimal.Zero
	if price, ok := e.prices.TokenPriceUSD(req.SourceNativeToken); ok {
		nativeFeeUSD = decimal.NewFromBigInt(quote.NativeFee, -nativeTokenDecimals).Mul(price)
	}

	protocolFeeUSD := decimal.Zero
	if price, ok := e.prices.TokenPriceUSD(req.SourceToken); ok {
		if decimals, ok := e.prices.TokenDecimals(req.SourceToken); ok {
			protocolFeeUSD = decimal.NewFromBigInt(quote.ProtocolFee, -int32(decimals)).Mul(price)
		}
	}

	return models.SourceChainFees{
		RelayFeeUSD:          relayUSD,
		BridgeNativeFee:      quote.NativeFee,
		BridgeNativeFeeUSD:   nativeFeeUSD,
		BridgeProtocolFee:    quote.ProtocolFee,
		BridgeProtocolFeeUSD: protocolFeeUSD,
		ExecutionGasUSD:      executionUSD,
	}, nil
}
