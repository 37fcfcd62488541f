package models

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// Operation is the user-selected pool operation
type Operation string

const (
	OperationDeposit    Operation = "deposit"
	OperationWithdrawal Operation = "withdrawal"
)

// PaySource is where the funds for an operation come from
type PaySource string

const (
	PaySourceSettlementChain PaySource = "settlement_chain"
	PaySourceSourceChain     PaySource = "source_chain"
	PaySourceGmxAccount      PaySource = "gmx_account"
)

// FocusedInput names the side the user is actively typing into.
// All other sides are recomputed from it.
type FocusedInput string

const (
	FocusLongCollateral  FocusedInput = "long_collateral"
	FocusShortCollateral FocusedInput = "short_collateral"
	FocusMarketToken     FocusedInput = "market_token"
)

// NativeTokenSentinel is the zero address, used in collateral slots to mean
// the chain's native (unwrapped) token
var NativeTokenSentinel = common.Address{}

// BootstrapReceiver receives pool tokens for the first deposit into an
// empty pool (total supply zero), instead of the depositing account
var BootstrapReceiver = common.HexToAddress("0x0000000000000000000000000000000000000001")

// PoolSelection identifies the target pool: either a bare GM market, or a
// GLV vault paired with a selected underlying market
type PoolSelection struct {
	Market    common.Address // GM market token address
	Glv       common.Address // zero unless operating on a GLV vault
	GlvMarket common.Address // selected underlying market for GLV operations
}

// IsGlv reports whether the selection targets a GLV vault
func (p PoolSelection) IsGlv() bool {
	return p.Glv != (common.Address{})
}

// Valid reports whether the selection can drive any downstream computation.
// A GLV selection without a selected underlying market is an invalid state.
func (p PoolSelection) Valid() bool {
	if p.IsGlv() {
		return p.GlvMarket != (common.Address{})
	}
	return p.Market != (common.Address{})
}

// TargetPool returns the pool token the operation mints or burns
func (p PoolSelection) TargetPool() common.Address {
	if p.IsGlv() {
		return p.Glv
	}
	return p.Market
}

// TokenInput is one side of the entry form: the token, the raw text typed
// by the user, and the amount/USD value derived from it
type TokenInput struct {
	Token  common.Address
	Text   string
	Amount *big.Int
	USD    decimal.Decimal
}

// AmountOrZero returns the input amount, degrading nil to zero
func (t TokenInput) AmountOrZero() *big.Int {
	if t.Amount == nil {
		return new(big.Int)
	}
	return t.Amount
}

// DepositStrategy selects which side of a deposit is derived
type DepositStrategy string

const (
	DepositByCollaterals DepositStrategy = "by_collaterals"
	DepositByMarketToken DepositStrategy = "by_market_token"
)

// WithdrawalStrategy selects which side of a withdrawal is derived
type WithdrawalStrategy string

const (
	WithdrawalByMarketToken     WithdrawalStrategy = "by_market_token"
	WithdrawalByLongCollateral  WithdrawalStrategy = "by_long_collateral"
	WithdrawalByShortCollateral WithdrawalStrategy = "by_short_collateral"
)

// DepositAmounts is the derived amount set for a deposit. Never user-edited.
type DepositAmounts struct {
	Strategy DepositStrategy

	LongTokenAmount  *big.Int
	ShortTokenAmount *big.Int
	LongTokenUSD     decimal.Decimal
	ShortTokenUSD    decimal.Decimal

	// MarketTokenAmount is the GM or GLV token amount, depending on the
	// pool selection
	MarketTokenAmount *big.Int
	MarketTokenUSD    decimal.Decimal

	SwapFeeUSD         decimal.Decimal
	SwapPriceImpactUSD decimal.Decimal
}

// SwapPathStats describes the resolved swap route for one withdrawal side
type SwapPathStats struct {
	Path     []common.Address // intermediate market addresses, empty = no swap
	OutToken common.Address   // realized output token after the swap
}

// WithdrawalAmounts is the derived amount set for a withdrawal
type WithdrawalAmounts struct {
	Strategy WithdrawalStrategy

	LongTokenAmount  *big.Int
	ShortTokenAmount *big.Int
	LongTokenUSD     decimal.Decimal
	ShortTokenUSD    decimal.Decimal

	MarketTokenAmount *big.Int
	MarketTokenUSD    decimal.Decimal

	SwapFeeUSD         decimal.Decimal
	SwapPriceImpactUSD decimal.Decimal

	// Swap path statistics per side; nil in pair mode (no conversion)
	LongSwapPathStats  *SwapPathStats
	ShortSwapPathStats *SwapPathStats
}

// ==================== Raw parameters ====================

// RawParams is the closed set of protocol entry-point argument shapes.
// Exactly one of GmDepositParams, GlvDepositParams, GmWithdrawalParams or
// GlvWithdrawalParams implements it; consumers dispatch with an exhaustive
// type switch.
type RawParams interface {
	rawParams()
	DataChunks() [][32]byte
}

// GmDepositParams are the arguments for a plain GM market deposit
type GmDepositParams struct {
	Receiver                common.Address
	Market                  common.Address
	InitialLongToken        common.Address
	InitialShortToken       common.Address
	LongTokenAmount         *big.Int
	ShortTokenAmount        *big.Int
	MinMarketTokens         *big.Int
	ShouldUnwrapNativeToken bool
	CallbackGasLimit        uint64
	DataList                [][32]byte
}

// GlvDepositParams are the arguments for a GLV vault deposit
type GlvDepositParams struct {
	Receiver                common.Address
	Glv                     common.Address
	Market                  common.Address
	InitialLongToken        common.Address
	InitialShortToken       common.Address
	LongTokenAmount         *big.Int
	ShortTokenAmount        *big.Int
	MinGlvTokens            *big.Int
	ShouldUnwrapNativeToken bool
	CallbackGasLimit        uint64
	DataList                [][32]byte
}

// GmWithdrawalParams are the arguments for a plain GM market withdrawal
type GmWithdrawalParams struct {
	Receiver                common.Address
	Market                  common.Address
	MarketTokenAmount       *big.Int
	MinLongTokenAmount      *big.Int
	MinShortTokenAmount     *big.Int
	LongTokenSwapPath       []common.Address
	ShortTokenSwapPath      []common.Address
	ShouldUnwrapNativeToken bool
	CallbackGasLimit        uint64
	DataList                [][32]byte
}

// GlvWithdrawalParams are the arguments for a GLV vault withdrawal
type GlvWithdrawalParams struct {
	Receiver                common.Address
	Glv                     common.Address
	Market                  common.Address
	GlvTokenAmount          *big.Int
	MinLongTokenAmount      *big.Int
	MinShortTokenAmount     *big.Int
	LongTokenSwapPath       []common.Address
	ShortTokenSwapPath      []common.Address
	ShouldUnwrapNativeToken bool
	CallbackGasLimit        uint64
	DataList                [][32]byte
}

func (GmDepositParams) rawParams()     {}
func (GlvDepositParams) rawParams()    {}
func (GmWithdrawalParams) rawParams()  {}
func (GlvWithdrawalParams) rawParams() {}

func (p GmDepositParams) DataChunks() [][32]byte     { return p.DataList }
func (p GlvDepositParams) DataChunks() [][32]byte    { return p.DataList }
func (p GmWithdrawalParams) DataChunks() [][32]byte  { return p.DataList }
func (p GlvWithdrawalParams) DataChunks() [][32]byte { return p.DataList }

// ==================== Technical fees ====================

// TechnicalFees is the pay-source-keyed union of execution cost estimates.
// Implemented by SettlementChainFees, SourceChainFees and GmxAccountFees.
type TechnicalFees interface {
	technicalFees()
	Source() PaySource
}

// SettlementChainFees is the direct execution cost on the settlement chain
type SettlementChainFees struct {
	GasLimit       uint64
	GasPrice       *big.Int
	FeeTokenAmount *big.Int // gasLimit * gasPrice, in native token base units
	FeeUSD         decimal.Decimal
}

// SourceChainFees is the cost of funding an operation through a bridge
type SourceChainFees struct {
	RelayFeeUSD          decimal.Decimal
	BridgeNativeFee      *big.Int // native token of the source chain
	BridgeNativeFeeUSD   decimal.Decimal
	BridgeProtocolFee    *big.Int // taken in the bridged token
	BridgeProtocolFeeUSD decimal.Decimal
	ExecutionGasUSD      decimal.Decimal // destination-chain execution
}

// GmxAccountFees is the cost of a relayed, gas-sponsored execution. The user
// is charged in the gas payment token; the relayer receives its fee in the
// relay fee token, so the total is carried in both denominations.
type GmxAccountFees struct {
	GasPaymentToken       common.Address
	GasPaymentTokenAmount *big.Int
	RelayFeeToken         common.Address
	RelayFeeTokenAmount   *big.Int
	RelayFeeUSD           decimal.Decimal
	ExecutionFeeUSD       decimal.Decimal
}

func (SettlementChainFees) technicalFees() {}
func (SourceChainFees) technicalFees()     {}
func (GmxAccountFees) technicalFees()      {}

func (SettlementChainFees) Source() PaySource { return PaySourceSettlementChain }
func (SourceChainFees) Source() PaySource     { return PaySourceSourceChain }
func (GmxAccountFees) Source() PaySource      { return PaySourceGmxAccount }

// LogicalFees is the normalized, USD-denominated fee breakdown shown to the
// user, independent of which pay source produced the underlying cost
type LogicalFees struct {
	SwapFeeUSD         decimal.Decimal
	SwapPriceImpactUSD decimal.Decimal
	UIFeeUSD           decimal.Decimal
	NetworkFeeUSD      decimal.Decimal // always <= 0
	TotalUSD           decimal.Decimal
	BasisUSD           decimal.Decimal // notional used for percentage display
}

// ==================== Submission ====================

// BalanceDelta is an optimistic balance adjustment command returned by the
// transaction submitter. The caller applies it to its own balance store;
// the pipeline never mutates balances on its own.
type BalanceDelta struct {
	Account common.Address
	ChainID uint64
	Token   common.Address
	Delta   *big.Int // negative for spent tokens
}

// SubmitResult is the outcome of a successful submission
type SubmitResult struct {
	TxHash         common.Hash
	Transfer       *PendingTransfer
	BalanceDeltas  []BalanceDelta
	RelaySignature []byte // set for GMX account submissions
}

// TransferStatus tracks an initiated cross-chain or relayed transfer
type TransferStatus string

const (
	// TransferStatusAwaitingRelay marks relayed submissions whose on-chain
	// transaction hash is not known yet. They enter receipt polling only
	// once the relayer's hash is attached.
	TransferStatusAwaitingRelay TransferStatus = "AWAITING_RELAY"

	TransferStatusInitiated TransferStatus = "INITIATED"
	TransferStatusExecuted  TransferStatus = "EXECUTED"
	TransferStatusFailed    TransferStatus = "FAILED"
)

// PendingTransfer is the record registered for every submission that does
// not settle synchronously. Keyed by the chain pair and transaction hash.
type PendingTransfer struct {
	ID                int64          `db:"id"`
	TransferKey       string         `db:"transfer_key"` // sourceChain:settlementChain:txHash
	Account           string         `db:"account"`
	Operation         Operation      `db:"operation"`
	PaySource         PaySource      `db:"pay_source"`
	SourceChainID     uint64         `db:"source_chain_id"`
	SettlementChainID uint64         `db:"settlement_chain_id"`
	Token             string         `db:"token"`
	Amount            string         `db:"amount"` // base units, decimal string
	TxHash            string         `db:"tx_hash"`
	Status            TransferStatus `db:"status"`
	ErrorMessage      *string        `db:"error_message"`
}
