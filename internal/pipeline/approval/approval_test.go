package approval

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"omnipool/internal/models"
	"omnipool/internal/registry"
)

var (
	testAccount = common.HexToAddress("0x1111111111111111111111111111111111111111")
	testSpender = common.HexToAddress("0x2222222222222222222222222222222222222222")
	testGateway = common.HexToAddress("0x3333333333333333333333333333333333333333")
	testUSDC    = common.HexToAddress("0x00000000000000000000000000000000000000b1")
	testWETH    = common.HexToAddress("0x00000000000000000000000000000000000000b2")
	mappedUSDC  = common.HexToAddress("0x00000000000000000000000000000000000000d1")
)

type stubClient struct {
	allowances map[common.Address]*big.Int
	approved   []common.Address
}

func (s *stubClient) GetAllowance(ctx context.Context, token, owner, spender common.Address) (*big.Int, error) {
	if a, ok := s.allowances[token]; ok {
		return a, nil
	}
	return big.NewInt(0), nil
}

func (s *stubClient) ApproveToken(ctx context.Context, token, spender common.Address, amount *big.Int) (common.Hash, error) {
	s.approved = append(s.approved, token)
	return common.HexToHash("0x01"), nil
}

type stubTokens struct{}

func (stubTokens) Token(addr common.Address) (*registry.TokenInfo, bool) {
	switch addr {
	case testUSDC:
		return &registry.TokenInfo{Address: addr, Symbol: "USDC", Decimals: 6}, true
	case testWETH:
		return &registry.TokenInfo{Address: addr, Symbol: "WETH", Decimals: 18}, true
	}
	return nil, false
}

func (stubTokens) SourceChainToken(token common.Address, sourceChainID uint64) (common.Address, bool) {
	if token == testUSDC && sourceChainID == 1 {
		return mappedUSDC, true
	}
	return common.Address{}, false
}

func newTestManager(settlement, source *stubClient) *Manager {
	return NewManager(
		settlement,
		map[uint64]ChainClient{1: source},
		stubTokens{},
		testSpender,
		map[uint64]common.Address{1: testGateway},
		zap.NewNop(),
	)
}

func TestCheckGmxAccountNoOp(t *testing.T) {
	mgr := newTestManager(&stubClient{}, &stubClient{})

	result, err := mgr.Check(context.Background(), CheckInput{
		Account:   testAccount,
		PaySource: models.PaySourceGmxAccount,
		Spends:    []Spend{{Token: testUSDC, Amount: big.NewInt(1000)}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.NeedsApproval) != 0 {
		t.Errorf("gmx account must never need approvals, got %v", result.NeedsApproval)
	}
}

func TestCheckSettlementChain(t *testing.T) {
	settlement := &stubClient{allowances: map[common.Address]*big.Int{
		testUSDC: big.NewInt(1_000_000),
		testWETH: big.NewInt(10),
	}}
	mgr := newTestManager(settlement, &stubClient{})

	result, err := mgr.Check(context.Background(), CheckInput{
		Account:   testAccount,
		Operation: models.OperationDeposit,
		PaySource: models.PaySourceSettlementChain,
		Spends: []Spend{
			{Token: testUSDC, Amount: big.NewInt(500)},     // covered
			{Token: testWETH, Amount: big.NewInt(100)},     // short by 90
			{Token: models.NativeTokenSentinel, Amount: big.NewInt(5)}, // native, skipped
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(result.NeedsApproval) != 1 || result.NeedsApproval[0] != "WETH" {
		t.Errorf("needs approval = %v, want [WETH]", result.NeedsApproval)
	}
	if result.Spender != testSpender {
		t.Errorf("spender = %s, want the router spender", result.Spender)
	}
}

func TestCheckSourceChainMapsToken(t *testing.T) {
	source := &stubClient{allowances: map[common.Address]*big.Int{
		mappedUSDC: big.NewInt(1),
	}}
	mgr := newTestManager(&stubClient{}, source)

	result, err := mgr.Check(context.Background(), CheckInput{
		Account:       testAccount,
		Operation:     models.OperationDeposit,
		PaySource:     models.PaySourceSourceChain,
		SourceChainID: 1,
		Spends:        []Spend{{Token: testUSDC, Amount: big.NewInt(1000)}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(result.NeedsApproval) != 1 || result.NeedsApproval[0] != "USDC" {
		t.Errorf("needs approval = %v, want [USDC]", result.NeedsApproval)
	}
	// The returned address is the source-chain representation
	if len(result.Tokens) != 1 || result.Tokens[0] != mappedUSDC {
		t.Errorf("tokens = %v, want [%s]", result.Tokens, mappedUSDC)
	}
	if result.Spender != testGateway {
		t.Errorf("spender = %s, want the bridge gateway", result.Spender)
	}
}

func TestCheckSourceChainUnmappedToken(t *testing.T) {
	mgr := newTestManager(&stubClient{}, &stubClient{})

	_, err := mgr.Check(context.Background(), CheckInput{
		Account:       testAccount,
		PaySource:     models.PaySourceSourceChain,
		SourceChainID: 1,
		Spends:        []Spend{{Token: testWETH, Amount: big.NewInt(1)}},
	})
	if err == nil {
		t.Error("expected an error for a token with no source-chain representation")
	}
}

func TestApproveRoutesToCorrectChain(t *testing.T) {
	settlement := &stubClient{}
	source := &stubClient{}
	mgr := newTestManager(settlement, source)

	if _, err := mgr.Approve(context.Background(), models.PaySourceSettlementChain, 0, testUSDC, big.NewInt(1)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(settlement.approved) != 1 || settlement.approved[0] != testUSDC {
		t.Errorf("settlement approvals = %v, want [%s]", settlement.approved, testUSDC)
	}

	if _, err := mgr.Approve(context.Background(), models.PaySourceSourceChain, 1, mappedUSDC, big.NewInt(1)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(source.approved) != 1 || source.approved[0] != mappedUSDC {
		t.Errorf("source approvals = %v, want [%s]", source.approved, mappedUSDC)
	}

	if _, err := mgr.Approve(context.Background(), models.PaySourceGmxAccount, 0, testUSDC, big.NewInt(1)); err == nil {
		t.Error("expected an error approving for the gmx account pay source")
	}
}
