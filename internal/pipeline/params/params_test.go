package params

import (
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"omnipool/internal/models"
	"omnipool/internal/registry"
)

var (
	testAccount  = common.HexToAddress("0x1111111111111111111111111111111111111111")
	testMarket   = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	testGlv      = common.HexToAddress("0x00000000000000000000000000000000000000ab")
	testWETH     = common.HexToAddress("0x00000000000000000000000000000000000000b2")
	testUSDC     = common.HexToAddress("0x00000000000000000000000000000000000000b1")
	testProvider = common.HexToAddress("0x00000000000000000000000000000000000000c1")
)

type stubData struct {
	markets       map[common.Address]*registry.MarketInfo
	glvs          map[common.Address]*registry.GlvInfo
	supplies      map[common.Address]*big.Int
	wrappedNative common.Address
	routes        map[common.Address]registry.BridgeRoute
}

func (s *stubData) Market(token common.Address) (*registry.MarketInfo, bool) {
	m, ok := s.markets[token]
	return m, ok
}

func (s *stubData) Glv(token common.Address) (*registry.GlvInfo, bool) {
	g, ok := s.glvs[token]
	return g, ok
}

func (s *stubData) MarketTokenData(token common.Address) (*big.Int, decimal.Decimal, bool) {
	supply, ok := s.supplies[token]
	if !ok {
		return nil, decimal.Zero, false
	}
	return supply, decimal.NewFromInt(1), true
}

func (s *stubData) WrappedNative() common.Address {
	return s.wrappedNative
}

func (s *stubData) BridgeRouteFor(settlementChainID, sourceChainID uint64, token common.Address) (registry.BridgeRoute, bool) {
	r, ok := s.routes[token]
	return r, ok
}

func defaultData() *stubData {
	return &stubData{
		markets: map[common.Address]*registry.MarketInfo{
			testMarket: {MarketToken: testMarket, LongToken: testWETH, ShortToken: testUSDC},
		},
		glvs: map[common.Address]*registry.GlvInfo{
			testGlv: {GlvToken: testGlv, Markets: []common.Address{testMarket}},
		},
		supplies: map[common.Address]*big.Int{
			testMarket: big.NewInt(1_000_000),
			testGlv:    big.NewInt(1_000_000),
		},
		wrappedNative: testWETH,
		routes: map[common.Address]registry.BridgeRoute{
			testWETH: {Provider: testProvider, EndpointID: 30101},
			testUSDC: {Provider: common.HexToAddress("0xc2"), EndpointID: 30101},
			testGlv:  {Provider: common.HexToAddress("0xc3"), EndpointID: 30101},
		},
	}
}

func newTestBuilder(data ReferenceData) *Builder {
	b := NewBuilder(data, 42161, 30, 30*time.Minute, 200000)
	b.Now = func() time.Time { return time.Unix(1_700_000_000, 0) }
	return b
}

func depositAmounts(marketTokens int64) *models.DepositAmounts {
	return &models.DepositAmounts{
		Strategy:          models.DepositByCollaterals,
		LongTokenAmount:   big.NewInt(500),
		ShortTokenAmount:  big.NewInt(500),
		MarketTokenAmount: big.NewInt(marketTokens),
	}
}

func TestBuildNotReady(t *testing.T) {
	builder := newTestBuilder(defaultData())

	tests := []struct {
		name string
		in   BuildInput
	}{
		{
			"no account",
			BuildInput{
				Operation: models.OperationDeposit,
				PaySource: models.PaySourceSettlementChain,
				Pool:      models.PoolSelection{Market: testMarket},
				Deposit:   depositAmounts(1000),
			},
		},
		{
			"source chain pay source without selected chain",
			BuildInput{
				Account:   testAccount,
				Operation: models.OperationDeposit,
				PaySource: models.PaySourceSourceChain,
				Pool:      models.PoolSelection{Market: testMarket},
				Deposit:   depositAmounts(1000),
			},
		},
		{
			"glv without selected market",
			BuildInput{
				Account:   testAccount,
				Operation: models.OperationDeposit,
				PaySource: models.PaySourceSettlementChain,
				Pool:      models.PoolSelection{Glv: testGlv},
				Deposit:   depositAmounts(1000),
			},
		},
		{
			"missing amounts",
			BuildInput{
				Account:   testAccount,
				Operation: models.OperationDeposit,
				PaySource: models.PaySourceSettlementChain,
				Pool:      models.PoolSelection{Market: testMarket},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if result := builder.Build(tt.in); result != nil {
				t.Errorf("expected nil params, got %T", result)
			}
		})
	}
}

func TestBuildGmDepositSettlementChain(t *testing.T) {
	builder := newTestBuilder(defaultData())

	result := builder.Build(BuildInput{
		Account:        testAccount,
		Operation:      models.OperationDeposit,
		PaySource:      models.PaySourceSettlementChain,
		Pool:           models.PoolSelection{Market: testMarket},
		LongTokenSlot:  testWETH,
		ShortTokenSlot: testUSDC,
		Deposit:        depositAmounts(10000),
	})

	p, ok := result.(models.GmDepositParams)
	if !ok {
		t.Fatalf("expected GmDepositParams, got %T", result)
	}
	if p.Receiver != testAccount {
		t.Errorf("receiver = %s, want the account", p.Receiver)
	}
	// 30 bps slippage: 10000 * 0.997
	if p.MinMarketTokens.Int64() != 9970 {
		t.Errorf("min market tokens = %s, want 9970", p.MinMarketTokens)
	}
	if len(p.DataList) != 0 {
		t.Errorf("settlement-chain deposit must carry an empty data list, got %d entries", len(p.DataList))
	}
	if p.ShouldUnwrapNativeToken {
		t.Error("unwrap flag must be false when both slots are ERC20 tokens")
	}
}

func TestBuildBootstrapReceiver(t *testing.T) {
	data := defaultData()
	data.supplies[testGlv] = big.NewInt(0)
	builder := newTestBuilder(data)

	result := builder.Build(BuildInput{
		Account:   testAccount,
		Operation: models.OperationDeposit,
		PaySource: models.PaySourceSettlementChain,
		Pool:      models.PoolSelection{Glv: testGlv, GlvMarket: testMarket},
		Deposit:   depositAmounts(1000),
	})

	p, ok := result.(models.GlvDepositParams)
	if !ok {
		t.Fatalf("expected GlvDepositParams, got %T", result)
	}
	if p.Receiver != models.BootstrapReceiver {
		t.Errorf("first deposit into an empty vault must mint to the bootstrap address, got %s", p.Receiver)
	}
}

func TestBuildUnwrapNativeFlag(t *testing.T) {
	builder := newTestBuilder(defaultData())

	base := BuildInput{
		Account:   testAccount,
		Operation: models.OperationDeposit,
		Pool:      models.PoolSelection{Market: testMarket},
		Deposit:   depositAmounts(1000),
	}

	tests := []struct {
		name      string
		paySource models.PaySource
		long      common.Address
		short     common.Address
		want      bool
	}{
		{"wrapped plus native on settlement chain", models.PaySourceSettlementChain, testWETH, models.NativeTokenSentinel, true},
		{"native plus wrapped on settlement chain", models.PaySourceSettlementChain, models.NativeTokenSentinel, testWETH, true},
		{"two erc20 tokens", models.PaySourceSettlementChain, testWETH, testUSDC, false},
		{"gmx account pay source", models.PaySourceGmxAccount, testWETH, models.NativeTokenSentinel, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := base
			in.PaySource = tt.paySource
			in.LongTokenSlot = tt.long
			in.ShortTokenSlot = tt.short

			result := builder.Build(in)
			p, ok := result.(models.GmDepositParams)
			if !ok {
				t.Fatalf("expected GmDepositParams, got %T", result)
			}
			if p.ShouldUnwrapNativeToken != tt.want {
				t.Errorf("unwrap flag = %v, want %v", p.ShouldUnwrapNativeToken, tt.want)
			}
		})
	}
}

func TestBuildGlvWithdrawalSourceChain(t *testing.T) {
	builder := newTestBuilder(defaultData())

	result := builder.Build(BuildInput{
		Account:   testAccount,
		Operation: models.OperationWithdrawal,
		PaySource: models.PaySourceSourceChain,
		Pool:      models.PoolSelection{Glv: testGlv, GlvMarket: testMarket},
		SourceChainID: 1,
		Withdrawal: &models.WithdrawalAmounts{
			Strategy:          models.WithdrawalByMarketToken,
			LongTokenAmount:   big.NewInt(100),
			ShortTokenAmount:  big.NewInt(0),
			MarketTokenAmount: big.NewInt(200),
		},
	})

	p, ok := result.(models.GlvWithdrawalParams)
	if !ok {
		t.Fatalf("expected GlvWithdrawalParams, got %T", result)
	}
	if len(p.DataList) != 3 {
		t.Fatalf("data list length = %d, want 3 (sentinel plus two chunks)", len(p.DataList))
	}

	// Only the long leg is positive: its route is the primary provider and
	// no secondary route is derived
	want := EncodeBridgeOut(BridgeOutAction{
		Deadline:         big.NewInt(1_700_000_000 + 1800),
		DestinationChain: 1,
		EndpointID:       30101,
		Provider:         testProvider,
		MinAmountOut:     big.NewInt(99), // 100 at 30 bps slippage, floored
	})
	for i := range want {
		if p.DataList[i] != want[i] {
			t.Errorf("data list chunk %d mismatch", i)
		}
	}
}

func TestBuildWithdrawalSlippageGuards(t *testing.T) {
	builder := newTestBuilder(defaultData())

	result := builder.Build(BuildInput{
		Account:   testAccount,
		Operation: models.OperationWithdrawal,
		PaySource: models.PaySourceSettlementChain,
		Pool:      models.PoolSelection{Market: testMarket},
		Withdrawal: &models.WithdrawalAmounts{
			Strategy:          models.WithdrawalByMarketToken,
			LongTokenAmount:   big.NewInt(10000),
			ShortTokenAmount:  big.NewInt(20000),
			MarketTokenAmount: big.NewInt(30000),
		},
	})

	p, ok := result.(models.GmWithdrawalParams)
	if !ok {
		t.Fatalf("expected GmWithdrawalParams, got %T", result)
	}
	if p.MinLongTokenAmount.Int64() != 9970 {
		t.Errorf("min long = %s, want 9970", p.MinLongTokenAmount)
	}
	if p.MinShortTokenAmount.Int64() != 19940 {
		t.Errorf("min short = %s, want 19940", p.MinShortTokenAmount)
	}
}

func TestBuildDataListDeterministic(t *testing.T) {
	builder := newTestBuilder(defaultData())

	in := BuildInput{
		Account:       testAccount,
		Operation:     models.OperationDeposit,
		PaySource:     models.PaySourceSourceChain,
		Pool:          models.PoolSelection{Glv: testGlv, GlvMarket: testMarket},
		SourceChainID: 1,
		Deposit:       depositAmounts(1000),
	}

	first := builder.Build(in)
	second := builder.Build(in)
	if first == nil || second == nil {
		t.Fatal("expected params, got nil")
	}

	a, b := first.DataChunks(), second.DataChunks()
	if len(a) != len(b) {
		t.Fatalf("chunk count mismatch: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Errorf("chunk %d differs between identical builds", i)
		}
	}
}

func TestBuildWithdrawalBothLegsPositive(t *testing.T) {
	builder := newTestBuilder(defaultData())

	result := builder.Build(BuildInput{
		Account:       testAccount,
		Operation:     models.OperationWithdrawal,
		PaySource:     models.PaySourceSourceChain,
		Pool:          models.PoolSelection{Market: testMarket},
		SourceChainID: 1,
		Withdrawal: &models.WithdrawalAmounts{
			Strategy:          models.WithdrawalByMarketToken,
			LongTokenAmount:   big.NewInt(50),
			ShortTokenAmount:  big.NewInt(300),
			MarketTokenAmount: big.NewInt(400),
		},
	})

	p, ok := result.(models.GmWithdrawalParams)
	if !ok {
		t.Fatalf("expected GmWithdrawalParams, got %T", result)
	}

	// Short leg is larger: its route is primary, the long leg's provider
	// fills the secondary slot, and the min-out word tracks the short leg
	want := EncodeBridgeOut(BridgeOutAction{
		Deadline:          big.NewInt(1_700_000_000 + 1800),
		DestinationChain:  1,
		EndpointID:        30101,
		Provider:          common.HexToAddress("0xc2"),
		SecondaryProvider: testProvider,
		MinAmountOut:      big.NewInt(299), // 300 at 30 bps, floored
	})
	if len(p.DataList) != len(want) {
		t.Fatalf("data list length = %d, want %d", len(p.DataList), len(want))
	}
	for i := range want {
		if p.DataList[i] != want[i] {
			t.Errorf("data list chunk %d mismatch", i)
		}
	}
}
