package amounts

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"omnipool/internal/models"
)

var (
	testPool  = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	testUSDC  = common.HexToAddress("0x00000000000000000000000000000000000000b1")
	testWETH  = common.HexToAddress("0x00000000000000000000000000000000000000b2")
	testUSDT  = common.HexToAddress("0x00000000000000000000000000000000000000b3")
)

type stubMarketData struct {
	loaded   bool
	supply   *big.Int
	price    decimal.Decimal
	prices   map[common.Address]decimal.Decimal
	decimals map[common.Address]uint8
}

func (s *stubMarketData) MarketTokenData(token common.Address) (*big.Int, decimal.Decimal, bool) {
	if !s.loaded {
		return nil, decimal.Zero, false
	}
	return s.supply, s.price, true
}

func (s *stubMarketData) TokenPriceUSD(token common.Address) (decimal.Decimal, bool) {
	p, ok := s.prices[token]
	return p, ok
}

func (s *stubMarketData) TokenDecimals(token common.Address) (uint8, bool) {
	d, ok := s.decimals[token]
	return d, ok
}

type stubResolver struct {
	paths map[common.Address]*models.SwapPathStats
}

func (s *stubResolver) BestSwapPath(from, to common.Address) *models.SwapPathStats {
	return s.paths[from]
}

func loadedData() *stubMarketData {
	return &stubMarketData{
		loaded: true,
		supply: big.NewInt(1_000_000),
		price:  decimal.NewFromInt(1),
		prices: map[common.Address]decimal.Decimal{
			testUSDC: decimal.NewFromInt(1),
			testUSDT: decimal.NewFromInt(1),
			testWETH: decimal.NewFromInt(2000),
		},
		decimals: map[common.Address]uint8{
			testUSDC: 6,
			testUSDT: 6,
			testWETH: 18,
		},
	}
}

func TestCalculateDepositNotLoaded(t *testing.T) {
	calc := NewCalculator(&stubMarketData{loaded: false}, nil, FeeRates{})

	result := calc.CalculateDeposit(DepositInput{
		Pool:      PoolInfo{PoolToken: testPool, LongToken: testUSDC, ShortToken: testWETH},
		Focus:     models.FocusLongCollateral,
		LongInput: models.TokenInput{Token: testUSDC, Amount: big.NewInt(1000)},
	})

	if result != nil {
		t.Errorf("expected nil result while pool data is not loaded, got %+v", result)
	}
}

func TestCalculateDepositSameCollateralSplit(t *testing.T) {
	calc := NewCalculator(loadedData(), nil, FeeRates{})
	pool := PoolInfo{PoolToken: testPool, LongToken: testUSDC, ShortToken: testUSDC}

	tests := []struct {
		name      string
		entered   int64
		wantLong  int64
		wantShort int64
	}{
		{"even amount", 1000, 500, 500},
		{"odd amount", 1001, 500, 501},
		{"one unit", 1, 0, 1},
		{"zero", 0, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := calc.CalculateDeposit(DepositInput{
				Pool:      pool,
				Focus:     models.FocusLongCollateral,
				LongInput: models.TokenInput{Token: testUSDC, Amount: big.NewInt(tt.entered)},
			})

			if result == nil {
				t.Fatal("expected a result, got nil")
			}
			if result.LongTokenAmount.Int64() != tt.wantLong {
				t.Errorf("long amount = %s, want %d", result.LongTokenAmount, tt.wantLong)
			}
			if result.ShortTokenAmount.Int64() != tt.wantShort {
				t.Errorf("short amount = %s, want %d", result.ShortTokenAmount, tt.wantShort)
			}

			sum := new(big.Int).Add(result.LongTokenAmount, result.ShortTokenAmount)
			if sum.Int64() != tt.entered {
				t.Errorf("split loses units: %d + %d != %d", tt.wantLong, tt.wantShort, tt.entered)
			}
		})
	}
}

func TestCalculateDepositByCollaterals(t *testing.T) {
	calc := NewCalculator(loadedData(), nil, FeeRates{})

	// 1000 USDC (6 decimals) + 1 WETH at $2000
	result := calc.CalculateDeposit(DepositInput{
		Pool:       PoolInfo{PoolToken: testPool, LongToken: testWETH, ShortToken: testUSDC},
		Focus:      models.FocusLongCollateral,
		LongInput:  models.TokenInput{Token: testWETH, Amount: big.NewInt(1e18)},
		ShortInput: models.TokenInput{Token: testUSDC, Amount: big.NewInt(1000_000000)},
	})

	if result == nil {
		t.Fatal("expected a result, got nil")
	}
	if result.Strategy != models.DepositByCollaterals {
		t.Errorf("strategy = %s, want %s", result.Strategy, models.DepositByCollaterals)
	}
	if !result.LongTokenUSD.Equal(decimal.NewFromInt(2000)) {
		t.Errorf("long USD = %s, want 2000", result.LongTokenUSD)
	}
	if !result.ShortTokenUSD.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("short USD = %s, want 1000", result.ShortTokenUSD)
	}
	if !result.MarketTokenUSD.Equal(decimal.NewFromInt(3000)) {
		t.Errorf("market token USD = %s, want 3000", result.MarketTokenUSD)
	}
	// Pool token priced at $1 with 18 decimals
	want := new(big.Int).Mul(big.NewInt(3000), big.NewInt(1e18))
	if result.MarketTokenAmount.Cmp(want) != 0 {
		t.Errorf("market token amount = %s, want %s", result.MarketTokenAmount, want)
	}
}

func TestCalculateDepositZeroInputs(t *testing.T) {
	calc := NewCalculator(loadedData(), nil, FeeRates{})

	result := calc.CalculateDeposit(DepositInput{
		Pool:  PoolInfo{PoolToken: testPool, LongToken: testWETH, ShortToken: testUSDC},
		Focus: models.FocusLongCollateral,
	})

	if result == nil {
		t.Fatal("zero inputs must produce a zero result once pool data is loaded, got nil")
	}
	if result.LongTokenAmount.Sign() != 0 || result.ShortTokenAmount.Sign() != 0 {
		t.Errorf("expected zero collateral amounts, got long=%s short=%s",
			result.LongTokenAmount, result.ShortTokenAmount)
	}
	if result.MarketTokenAmount.Sign() != 0 {
		t.Errorf("expected zero market token amount, got %s", result.MarketTokenAmount)
	}
}

func TestCalculateDepositSwapFee(t *testing.T) {
	calc := NewCalculator(loadedData(), nil, FeeRates{SwapFeeBps: 10})

	result := calc.CalculateDeposit(DepositInput{
		Pool:       PoolInfo{PoolToken: testPool, LongToken: testUSDC, ShortToken: testUSDT},
		Focus:      models.FocusLongCollateral,
		LongInput:  models.TokenInput{Token: testUSDC, Amount: big.NewInt(500_000000)},
		ShortInput: models.TokenInput{Token: testUSDT, Amount: big.NewInt(500_000000)},
	})

	if result == nil {
		t.Fatal("expected a result, got nil")
	}
	// 10 bps on $1000
	if !result.SwapFeeUSD.Equal(decimal.NewFromInt(1)) {
		t.Errorf("swap fee USD = %s, want 1", result.SwapFeeUSD)
	}
	if !result.MarketTokenUSD.Equal(decimal.NewFromInt(999)) {
		t.Errorf("market token USD = %s, want 999", result.MarketTokenUSD)
	}
}

func TestCalculateWithdrawalByMarketToken(t *testing.T) {
	calc := NewCalculator(loadedData(), nil, FeeRates{})

	result := calc.CalculateWithdrawal(WithdrawalInput{
		Pool:             PoolInfo{PoolToken: testPool, LongToken: testWETH, ShortToken: testUSDC},
		Focus:            models.FocusMarketToken,
		MarketTokenInput: models.TokenInput{Token: testPool, Amount: new(big.Int).Mul(big.NewInt(4000), big.NewInt(1e18))},
	})

	if result == nil {
		t.Fatal("expected a result, got nil")
	}
	if result.Strategy != models.WithdrawalByMarketToken {
		t.Errorf("strategy = %s, want %s", result.Strategy, models.WithdrawalByMarketToken)
	}
	if !result.LongTokenUSD.Equal(decimal.NewFromInt(2000)) {
		t.Errorf("long USD = %s, want 2000", result.LongTokenUSD)
	}
	if !result.ShortTokenUSD.Equal(decimal.NewFromInt(2000)) {
		t.Errorf("short USD = %s, want 2000", result.ShortTokenUSD)
	}
	// $2000 of WETH at $2000 = 1 WETH
	if result.LongTokenAmount.Cmp(big.NewInt(1e18)) != 0 {
		t.Errorf("long amount = %s, want 1e18", result.LongTokenAmount)
	}
	// $2000 of USDC at $1 = 2000 USDC
	if result.ShortTokenAmount.Cmp(big.NewInt(2000_000000)) != 0 {
		t.Errorf("short amount = %s, want 2000e6", result.ShortTokenAmount)
	}
	if result.LongSwapPathStats != nil || result.ShortSwapPathStats != nil {
		t.Error("pair-mode withdrawal must not attach swap paths")
	}
}

func TestCalculateWithdrawalByLongCollateral(t *testing.T) {
	calc := NewCalculator(loadedData(), nil, FeeRates{})

	// Focusing the long side: entered long amount drives the total
	result := calc.CalculateWithdrawal(WithdrawalInput{
		Pool:      PoolInfo{PoolToken: testPool, LongToken: testWETH, ShortToken: testUSDC},
		Focus:     models.FocusLongCollateral,
		LongInput: models.TokenInput{Token: testWETH, Amount: big.NewInt(1e18)},
	})

	if result == nil {
		t.Fatal("expected a result, got nil")
	}
	if result.Strategy != models.WithdrawalByLongCollateral {
		t.Errorf("strategy = %s, want %s", result.Strategy, models.WithdrawalByLongCollateral)
	}
	if !result.MarketTokenUSD.Equal(decimal.NewFromInt(4000)) {
		t.Errorf("market token USD = %s, want 4000", result.MarketTokenUSD)
	}
}

func TestCalculateWithdrawalSingleTokenMode(t *testing.T) {
	resolver := &stubResolver{paths: map[common.Address]*models.SwapPathStats{
		testWETH: {
			Path:     []common.Address{common.HexToAddress("0xcc")},
			OutToken: testUSDC,
		},
	}}
	calc := NewCalculator(loadedData(), resolver, FeeRates{SwapFeeBps: 10})

	receive := testUSDC
	result := calc.CalculateWithdrawal(WithdrawalInput{
		Pool:             PoolInfo{PoolToken: testPool, LongToken: testWETH, ShortToken: testUSDC},
		Focus:            models.FocusMarketToken,
		MarketTokenInput: models.TokenInput{Token: testPool, Amount: new(big.Int).Mul(big.NewInt(4000), big.NewInt(1e18))},
		ReceiveToken:     &receive,
	})

	if result == nil {
		t.Fatal("expected a result, got nil")
	}
	if result.LongSwapPathStats == nil {
		t.Fatal("expected a swap path for the long leg")
	}
	if result.LongSwapPathStats.OutToken != testUSDC {
		t.Errorf("long leg out token = %s, want %s", result.LongSwapPathStats.OutToken, testUSDC)
	}
	// Short leg is already the receive token, no conversion
	if result.ShortSwapPathStats != nil {
		t.Errorf("unexpected swap path for the short leg: %+v", result.ShortSwapPathStats)
	}
	// Swap fee applies only to the swapped long leg ($2000 at 10 bps)
	if !result.SwapFeeUSD.Equal(decimal.NewFromInt(2)) {
		t.Errorf("swap fee USD = %s, want 2", result.SwapFeeUSD)
	}
}

func TestCalculateWithdrawalNotLoaded(t *testing.T) {
	calc := NewCalculator(&stubMarketData{loaded: false}, nil, FeeRates{})

	result := calc.CalculateWithdrawal(WithdrawalInput{
		Pool:             PoolInfo{PoolToken: testPool, LongToken: testWETH, ShortToken: testUSDC},
		Focus:            models.FocusMarketToken,
		MarketTokenInput: models.TokenInput{Token: testPool, Amount: big.NewInt(1)},
	})

	if result != nil {
		t.Errorf("expected nil result while pool data is not loaded, got %+v", result)
	}
}
