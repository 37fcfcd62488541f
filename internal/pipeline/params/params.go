// Package params builds the exact protocol entry-point arguments for a
// deposit or withdrawal. The builder is a pure selector: a nil result means
// some prerequisite is missing and the operation is not ready to submit.
package params

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"omnipool/internal/models"
	"omnipool/internal/registry"
)

// ReferenceData is the read-only registry view the builder needs.
// *registry.Registry satisfies it.
type ReferenceData interface {
	Market(token common.Address) (*registry.MarketInfo, bool)
	Glv(token common.Address) (*registry.GlvInfo, bool)
	MarketTokenData(token common.Address) (*big.Int, decimal.Decimal, bool)
	WrappedNative() common.Address
	BridgeRouteFor(settlementChainID, sourceChainID uint64, token common.Address) (registry.BridgeRoute, bool)
}

// Builder constructs raw entry-point parameters from current state
type Builder struct {
	data              ReferenceData
	settlementChainID uint64
	slippageBps       uint16
	deadlineDuration  time.Duration
	callbackGasLimit  uint64

	// Now is the clock used for bridge-out deadlines; injectable for tests
	Now func() time.Time
}

// NewBuilder creates a Builder with the given slippage and deadline policy
func NewBuilder(
	data ReferenceData,
	settlementChainID uint64,
	slippageBps uint16,
	deadlineDuration time.Duration,
	callbackGasLimit uint64,
) *Builder {
	return &Builder{
		data:              data,
		settlementChainID: settlementChainID,
		slippageBps:       slippageBps,
		deadlineDuration:  deadlineDuration,
		callbackGasLimit:  callbackGasLimit,
		Now:               time.Now,
	}
}

// BuildInput is the full upstream state the builder derives parameters from
type BuildInput struct {
	Account   common.Address
	Operation models.Operation
	PaySource models.PaySource
	Pool      models.PoolSelection

	// SourceChainID is the selected funding chain; zero when the pay source
	// is not a source chain
	SourceChainID uint64

	// LongTokenSlot and ShortTokenSlot are the two user-facing token slots:
	// the pay tokens for a deposit, the receive tokens for a withdrawal.
	// The zero address is the native-token sentinel.
	LongTokenSlot  common.Address
	ShortTokenSlot common.Address

	Deposit    *models.DepositAmounts
	Withdrawal *models.WithdrawalAmounts
}

// Build returns the raw parameters for the given state, or nil whenever any
// required upstream value is missing. It never partially constructs a result
// and never returns an error.
func (b *Builder) Build(in BuildInput) models.RawParams {
	if in.Account == (common.Address{}) {
		return nil
	}
	if in.PaySource == models.PaySourceSourceChain && in.SourceChainID == 0 {
		return nil
	}
	if !in.Pool.Valid() {
		return nil
	}

	if in.Pool.IsGlv() {
		if in.Operation == models.OperationDeposit {
			return b.buildGlvDeposit(in)
		}
		return b.buildGlvWithdrawal(in)
	}
	if in.Operation == models.OperationDeposit {
		return b.buildGmDeposit(in)
	}
	return b.buildGmWithdrawal(in)
}

func (b *Builder) buildGmDeposit(in BuildInput) models.RawParams {
	if in.Deposit == nil {
		return nil
	}
	market, ok := b.data.Market(in.Pool.Market)
	if !ok {
		return nil
	}

	receiver, ok := b.receiver(in.Account, in.Pool.Market)
	if !ok {
		return nil
	}

	minOut := b.applySlippage(in.Deposit.MarketTokenAmount)

	dataList, ok := b.depositDataList(in, minOut)
	if !ok {
		return nil
	}

	return models.GmDepositParams{
		Receiver:                receiver,
		Market:                  market.MarketToken,
		InitialLongToken:        in.LongTokenSlot,
		InitialShortToken:       in.ShortTokenSlot,
		LongTokenAmount:         amountOrZero(in.Deposit.LongTokenAmount),
		ShortTokenAmount:        amountOrZero(in.Deposit.ShortTokenAmount),
		MinMarketTokens:         minOut,
		ShouldUnwrapNativeToken: b.shouldUnwrapNative(in),
		CallbackGasLimit:        b.callbackGasLimit,
		DataList:                dataList,
	}
}

func (b *Builder) buildGlvDeposit(in BuildInput) models.RawParams {
	if in.Deposit == nil {
		return nil
	}
	glv, ok := b.data.Glv(in.Pool.Glv)
	if !ok {
		return nil
	}
	if _, ok := b.data.Market(in.Pool.GlvMarket); !ok {
		return nil
	}

	receiver, ok := b.receiver(in.Account, in.Pool.Glv)
	if !ok {
		return nil
	}

	minOut := b.applySlippage(in.Deposit.MarketTokenAmount)

	dataList, ok := b.depositDataList(in, minOut)
	if !ok {
		return nil
	}

	return models.GlvDepositParams{
		Receiver:                receiver,
		Glv:                     glv.GlvToken,
		Market:                  in.Pool.GlvMarket,
		InitialLongToken:        in.LongTokenSlot,
		InitialShortToken:       in.ShortTokenSlot,
		LongTokenAmount:         amountOrZero(in.Deposit.LongTokenAmount),
		ShortTokenAmount:        amountOrZero(in.Deposit.ShortTokenAmount),
		MinGlvTokens:            minOut,
		ShouldUnwrapNativeToken: b.shouldUnwrapNative(in),
		CallbackGasLimit:        b.callbackGasLimit,
		DataList:                dataList,
	}
}

func (b *Builder) buildGmWithdrawal(in BuildInput) models.RawParams {
	if in.Withdrawal == nil {
		return nil
	}
	market, ok := b.data.Market(in.Pool.Market)
	if !ok {
		return nil
	}

	minLong := b.applySlippage(in.Withdrawal.LongTokenAmount)
	minShort := b.applySlippage(in.Withdrawal.ShortTokenAmount)

	dataList, ok := b.withdrawalDataList(in, market.LongToken, market.ShortToken, minLong, minShort)
	if !ok {
		return nil
	}

	return models.GmWithdrawalParams{
		Receiver:                in.Account,
		Market:                  market.MarketToken,
		MarketTokenAmount:       amountOrZero(in.Withdrawal.MarketTokenAmount),
		MinLongTokenAmount:      minLong,
		MinShortTokenAmount:     minShort,
		LongTokenSwapPath:       swapPath(in.Withdrawal.LongSwapPathStats),
		ShortTokenSwapPath:      swapPath(in.Withdrawal.ShortSwapPathStats),
		ShouldUnwrapNativeToken: b.shouldUnwrapNative(in),
		CallbackGasLimit:        b.callbackGasLimit,
		DataList:                dataList,
	}
}

func (b *Builder) buildGlvWithdrawal(in BuildInput) models.RawParams {
	if in.Withdrawal == nil {
		return nil
	}
	glv, ok := b.data.Glv(in.Pool.Glv)
	if !ok {
		return nil
	}
	market, ok := b.data.Market(in.Pool.GlvMarket)
	if !ok {
		return nil
	}

	minLong := b.applySlippage(in.Withdrawal.LongTokenAmount)
	minShort := b.applySlippage(in.Withdrawal.ShortTokenAmount)

	// Realized output tokens follow the swap paths when present, falling
	// back to the market's declared collateral pair
	longOut := market.LongToken
	if s := in.Withdrawal.LongSwapPathStats; s != nil {
		longOut = s.OutToken
	}
	shortOut := market.ShortToken
	if s := in.Withdrawal.ShortSwapPathStats; s != nil {
		shortOut = s.OutToken
	}

	dataList, ok := b.withdrawalDataList(in, longOut, shortOut, minLong, minShort)
	if !ok {
		return nil
	}

	return models.GlvWithdrawalParams{
		Receiver:                in.Account,
		Glv:                     glv.GlvToken,
		Market:                  market.MarketToken,
		GlvTokenAmount:          amountOrZero(in.Withdrawal.MarketTokenAmount),
		MinLongTokenAmount:      minLong,
		MinShortTokenAmount:     minShort,
		LongTokenSwapPath:       swapPath(in.Withdrawal.LongSwapPathStats),
		ShortTokenSwapPath:      swapPath(in.Withdrawal.ShortSwapPathStats),
		ShouldUnwrapNativeToken: b.shouldUnwrapNative(in),
		CallbackGasLimit:        b.callbackGasLimit,
		DataList:                dataList,
	}
}

// receiver applies the first-depositor bootstrap rule: while the pool token
// has zero total supply, minted tokens go to the fixed bootstrap address
func (b *Builder) receiver(account, poolToken common.Address) (common.Address, bool) {
	supply, _, ok := b.data.MarketTokenData(poolToken)
	if !ok {
		return common.Address{}, false
	}
	if supply == nil || supply.Sign() == 0 {
		return models.BootstrapReceiver, true
	}
	return account, true
}

// depositDataList produces the data list for a deposit: empty unless funds
// arrive from a source chain, in which case the minted pool tokens are
// routed back out to that chain
func (b *Builder) depositDataList(in BuildInput, minOut *big.Int) ([][32]byte, bool) {
	if in.PaySource != models.PaySourceSourceChain {
		return nil, true
	}

	route, ok := b.data.BridgeRouteFor(b.settlementChainID, in.SourceChainID, in.Pool.TargetPool())
	if !ok {
		return nil, false
	}

	return EncodeBridgeOut(BridgeOutAction{
		Deadline:         b.deadline(),
		DestinationChain: in.SourceChainID,
		EndpointID:       route.EndpointID,
		Provider:         route.Provider,
		MinAmountOut:     minOut,
	}), true
}

// withdrawalDataList produces the data list for a withdrawal funded from a
// source chain: the paid-out collateral must be bridged back. The leg with
// the larger amount selects the primary provider; a second positive leg
// derives a secondary route.
func (b *Builder) withdrawalDataList(in BuildInput, longOut, shortOut common.Address, minLong, minShort *big.Int) ([][32]byte, bool) {
	if in.PaySource != models.PaySourceSourceChain {
		return nil, true
	}

	longAmount := amountOrZero(in.Withdrawal.LongTokenAmount)
	shortAmount := amountOrZero(in.Withdrawal.ShortTokenAmount)
	if longAmount.Sign() == 0 && shortAmount.Sign() == 0 {
		return nil, false
	}

	primaryToken, secondaryToken := longOut, shortOut
	primaryMin := minLong
	if shortAmount.Cmp(longAmount) > 0 {
		primaryToken, secondaryToken = shortOut, longOut
		primaryMin = minShort
		longAmount, shortAmount = shortAmount, longAmount
	}

	primary, ok := b.data.BridgeRouteFor(b.settlementChainID, in.SourceChainID, primaryToken)
	if !ok {
		return nil, false
	}

	secondaryProvider := common.Address{}
	if shortAmount.Sign() > 0 {
		secondary, ok := b.data.BridgeRouteFor(b.settlementChainID, in.SourceChainID, secondaryToken)
		if !ok {
			return nil, false
		}
		secondaryProvider = secondary.Provider
	}

	return EncodeBridgeOut(BridgeOutAction{
		Deadline:          b.deadline(),
		DestinationChain:  in.SourceChainID,
		EndpointID:        primary.EndpointID,
		Provider:          primary.Provider,
		SecondaryProvider: secondaryProvider,
		MinAmountOut:      primaryMin,
	}), true
}

// shouldUnwrapNative is true only for the settlement-chain pay source when
// one token slot is the wrapped native token and its counterpart is the
// native sentinel
func (b *Builder) shouldUnwrapNative(in BuildInput) bool {
	if in.PaySource != models.PaySourceSettlementChain {
		return false
	}
	wrapped := b.data.WrappedNative()
	if wrapped == (common.Address{}) {
		return false
	}
	long, short := in.LongTokenSlot, in.ShortTokenSlot
	return (long == wrapped && short == models.NativeTokenSentinel) ||
		(short == wrapped && long == models.NativeTokenSentinel)
}

// applySlippage scales an amount down by the configured tolerance
func (b *Builder) applySlippage(amount *big.Int) *big.Int {
	amount = amountOrZero(amount)
	if amount.Sign() == 0 {
		return new(big.Int)
	}
	scaled := new(big.Int).Mul(amount, big.NewInt(int64(10000-b.slippageBps)))
	return scaled.Div(scaled, big.NewInt(10000))
}

func (b *Builder) deadline() *big.Int {
	return big.NewInt(b.Now().Add(b.deadlineDuration).Unix())
}

func amountOrZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}

func swapPath(stats *models.SwapPathStats) []common.Address {
	if stats == nil {
		return []common.Address{}
	}
	if stats.Path == nil {
		return []common.Address{}
	}
	return stats.Path
}
