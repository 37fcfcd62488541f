// Package amounts derives concrete deposit/withdrawal token amounts from the
// user's entry state. All functions are pure over the injected market data
// view: a nil result means "not ready", never an error.
package amounts

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"omnipool/internal/models"
)

// Pool and GLV tokens are minted with a fixed precision
const poolTokenDecimals = 18

// MarketData is the read-only view of reference data the calculator needs
type MarketData interface {
	// MarketTokenData returns total supply and USD price of a GM or GLV
	// token. ok is false until the data has been loaded from chain.
	MarketTokenData(token common.Address) (*big.Int, decimal.Decimal, bool)
	TokenPriceUSD(token common.Address) (decimal.Decimal, bool)
	TokenDecimals(token common.Address) (uint8, bool)
}

// SwapPathResolver finds the best route for converting one token into
// another when a withdrawal pays out in a single token. A nil result means
// no conversion is needed or no route exists.
type SwapPathResolver interface {
	BestSwapPath(from, to common.Address) *models.SwapPathStats
}

// PoolInfo is the pool the operation targets: the GM or GLV token together
// with the market's collateral pair
type PoolInfo struct {
	PoolToken  common.Address
	LongToken  common.Address
	ShortToken common.Address
}

// SameCollateral reports whether both collateral sides are the same token
func (p PoolInfo) SameCollateral() bool {
	return p.LongToken == p.ShortToken
}

// FeeRates parameterizes the fee components attributed to an operation
type FeeRates struct {
	SwapFeeBps     uint16
	PriceImpactBps int32 // signed, negative is a cost
}

// Calculator derives amounts from entry state and current market data
type Calculator struct {
	data     MarketData
	resolver SwapPathResolver
	rates    FeeRates
}

// NewCalculator creates a Calculator over the given market data view
func NewCalculator(data MarketData, resolver SwapPathResolver, rates FeeRates) *Calculator {
	return &Calculator{data: data, resolver: resolver, rates: rates}
}

// DepositInput is the entry state for a deposit
type DepositInput struct {
	Pool             PoolInfo
	Focus            models.FocusedInput
	LongInput        models.TokenInput
	ShortInput       models.TokenInput
	MarketTokenInput models.TokenInput
}

// WithdrawalInput is the entry state for a withdrawal
type WithdrawalInput struct {
	Pool             PoolInfo
	Focus            models.FocusedInput
	LongInput        models.TokenInput
	ShortInput       models.TokenInput
	MarketTokenInput models.TokenInput

	// ReceiveToken, when set, switches the withdrawal to single-token mode:
	// both collateral legs are converted into this token via swaps
	ReceiveToken *common.Address
}

// CalculateDeposit derives the deposit amount set. Returns nil while the
// pool token's supply/price data has not loaded.
func (c *Calculator) CalculateDeposit(in DepositInput) *models.DepositAmounts {
	_, poolPrice, ok := c.data.MarketTokenData(in.Pool.PoolToken)
	if !ok {
		return nil
	}

	out := &models.DepositAmounts{Strategy: models.DepositByCollaterals}
	if in.Focus == models.FocusMarketToken {
		out.Strategy = models.DepositByMarketToken
	}

	switch out.Strategy {
	case models.DepositByCollaterals:
		if in.Pool.SameCollateral() {
			// A single entered amount is split across the notional pair:
			// half long, remainder short, so the sum is exact.
			entered := in.LongInput.AmountOrZero()
			long := new(big.Int).Div(entered, big.NewInt(2))
			short := new(big.Int).Sub(entered, long)
			out.LongTokenAmount = long
			out.ShortTokenAmount = short
		} else {
			out.LongTokenAmount = in.LongInput.AmountOrZero()
			out.ShortTokenAmount = in.ShortInput.AmountOrZero()
		}

		out.LongTokenUSD = c.tokenUSD(in.Pool.LongToken, out.LongTokenAmount)
		out.ShortTokenUSD = c.tokenUSD(in.Pool.ShortToken, out.ShortTokenAmount)

		totalUSD := out.LongTokenUSD.Add(out.ShortTokenUSD)
		out.SwapFeeUSD = applyBps(totalUSD, int32(c.rates.SwapFeeBps))
		out.SwapPriceImpactUSD = applyBps(totalUSD, c.rates.PriceImpactBps)

		out.MarketTokenUSD = totalUSD.Sub(out.SwapFeeUSD).Add(out.SwapPriceImpactUSD)
		if out.MarketTokenUSD.IsNegative() {
			out.MarketTokenUSD = decimal.Zero
		}
		out.MarketTokenAmount = usdToAmount(out.MarketTokenUSD, poolPrice, poolTokenDecimals)

	case models.DepositByMarketToken:
		out.MarketTokenAmount = in.MarketTokenInput.AmountOrZero()
		out.MarketTokenUSD = amountToUSD(out.MarketTokenAmount, poolPrice, poolTokenDecimals)

		out.SwapFeeUSD = applyBps(out.MarketTokenUSD, int32(c.rates.SwapFeeBps))
		out.SwapPriceImpactUSD = applyBps(out.MarketTokenUSD, c.rates.PriceImpactBps)

		// The collateral the user must pay in to mint this amount
		payUSD := out.MarketTokenUSD.Add(out.SwapFeeUSD).Sub(out.SwapPriceImpactUSD)
		if payUSD.IsNegative() {
			payUSD = decimal.Zero
		}

		if in.Pool.SameCollateral() {
			entered := c.usdToToken(in.Pool.LongToken, payUSD)
			long := new(big.Int).Div(entered, big.NewInt(2))
			short := new(big.Int).Sub(entered, long)
			out.LongTokenAmount = long
			out.ShortTokenAmount = short
		} else {
			half := payUSD.Div(decimal.NewFromInt(2))
			out.LongTokenAmount = c.usdToToken(in.Pool.LongToken, half)
			out.ShortTokenAmount = c.usdToToken(in.Pool.ShortToken, payUSD.Sub(half))
		}

		out.LongTokenUSD = c.tokenUSD(in.Pool.LongToken, out.LongTokenAmount)
		out.ShortTokenUSD = c.tokenUSD(in.Pool.ShortToken, out.ShortTokenAmount)
	}

	return out
}

// CalculateWithdrawal derives the withdrawal amount set. Returns nil while
// the pool token's supply/price data has not loaded.
func (c *Calculator) CalculateWithdrawal(in WithdrawalInput) *models.WithdrawalAmounts {
	_, poolPrice, ok := c.data.MarketTokenData(in.Pool.PoolToken)
	if !ok {
		return nil
	}

	out := &models.WithdrawalAmounts{}
	switch in.Focus {
	case models.FocusLongCollateral:
		out.Strategy = models.WithdrawalByLongCollateral
	case models.FocusShortCollateral:
		out.Strategy = models.WithdrawalByShortCollateral
	default:
		out.Strategy = models.WithdrawalByMarketToken
	}

	var totalUSD decimal.Decimal

	switch out.Strategy {
	case models.WithdrawalByMarketToken:
		out.MarketTokenAmount = in.MarketTokenInput.AmountOrZero()
		out.MarketTokenUSD = amountToUSD(out.MarketTokenAmount, poolPrice, poolTokenDecimals)
		totalUSD = out.MarketTokenUSD

	case models.WithdrawalByLongCollateral:
		enteredUSD := c.tokenUSD(in.Pool.LongToken, in.LongInput.AmountOrZero())
		if in.Pool.SameCollateral() {
			// The entered amount already represents the combined payout
			totalUSD = enteredUSD
		} else {
			totalUSD = enteredUSD.Mul(decimal.NewFromInt(2))
		}
		out.MarketTokenUSD = totalUSD
		out.MarketTokenAmount = usdToAmount(totalUSD, poolPrice, poolTokenDecimals)

	case models.WithdrawalByShortCollateral:
		enteredUSD := c.tokenUSD(in.Pool.ShortToken, in.ShortInput.AmountOrZero())
		if in.Pool.SameCollateral() {
			totalUSD = enteredUSD
		} else {
			totalUSD = enteredUSD.Mul(decimal.NewFromInt(2))
		}
		out.MarketTokenUSD = totalUSD
		out.MarketTokenAmount = usdToAmount(totalUSD, poolPrice, poolTokenDecimals)
	}

	// Burning the pool token pays out both collateral sides, half the
	// notional each
	half := totalUSD.Div(decimal.NewFromInt(2))
	out.LongTokenUSD = half
	out.ShortTokenUSD = totalUSD.Sub(half)
	out.LongTokenAmount = c.usdToToken(in.Pool.LongToken, out.LongTokenUSD)
	out.ShortTokenAmount = c.usdToToken(in.Pool.ShortToken, out.ShortTokenUSD)

	if in.ReceiveToken != nil {
		c.attachSwapPaths(in.Pool, *in.ReceiveToken, out)
		swappedUSD := decimal.Zero
		if out.LongSwapPathStats != nil && len(out.LongSwapPathStats.Path) > 0 {
			swappedUSD = swappedUSD.Add(out.LongTokenUSD)
		}
		if out.ShortSwapPathStats != nil && len(out.ShortSwapPathStats.Path) > 0 {
			swappedUSD = swappedUSD.Add(out.ShortTokenUSD)
		}
		out.SwapFeeUSD = applyBps(swappedUSD, int32(c.rates.SwapFeeBps))
		out.SwapPriceImpactUSD = applyBps(swappedUSD, c.rates.PriceImpactBps)
	}

	return out
}

// attachSwapPaths resolves the conversion route for each collateral leg when
// the withdrawal pays out in a single token
func (c *Calculator) attachSwapPaths(pool PoolInfo, receiveToken common.Address, out *models.WithdrawalAmounts) {
	if c.resolver == nil {
		return
	}
	if pool.LongToken != receiveToken {
		out.LongSwapPathStats = c.resolver.BestSwapPath(pool.LongToken, receiveToken)
	}
	if pool.ShortToken != receiveToken {
		out.ShortSwapPathStats = c.resolver.BestSwapPath(pool.ShortToken, receiveToken)
	}
}

// tokenUSD converts a token amount to USD using current prices; unknown
// tokens and nil amounts degrade to zero
func (c *Calculator) tokenUSD(token common.Address, amount *big.Int) decimal.Decimal {
	if amount == nil || amount.Sign() == 0 {
		return decimal.Zero
	}
	price, ok := c.data.TokenPriceUSD(token)
	if !ok {
		return decimal.Zero
	}
	decimals, ok := c.data.TokenDecimals(token)
	if !ok {
		return decimal.Zero
	}
	return amountToUSD(amount, price, decimals)
}

// usdToToken converts a USD value into token base units; unknown tokens and
// zero prices degrade to a zero amount
func (c *Calculator) usdToToken(token common.Address, usd decimal.Decimal) *big.Int {
	if usd.Sign() <= 0 {
		return new(big.Int)
	}
	price, ok := c.data.TokenPriceUSD(token)
	if !ok || price.IsZero() {
		return new(big.Int)
	}
	decimals, ok := c.data.TokenDecimals(token)
	if !ok {
		return new(big.Int)
	}
	return usdToAmount(usd, price, decimals)
}

func amountToUSD(amount *big.Int, price decimal.Decimal, decimals uint8) decimal.Decimal {
	if amount == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(amount, -int32(decimals)).Mul(price)
}

func usdToAmount(usd, price decimal.Decimal, decimals uint8) *big.Int {
	if price.IsZero() || usd.Sign() <= 0 {
		return new(big.Int)
	}
	return usd.Div(price).Shift(int32(decimals)).BigInt()
}

func applyBps(value decimal.Decimal, bps int32) decimal.Decimal {
	if bps == 0 || value.IsZero() {
		return decimal.Zero
	}
	return value.Mul(decimal.New(int64(bps), -4))
}
