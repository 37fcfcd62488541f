package state

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"omnipool/internal/models"
)

var (
	testAccount = common.HexToAddress("0x1111111111111111111111111111111111111111")
	testToken   = common.HexToAddress("0x00000000000000000000000000000000000000b1")
)

func TestLedgerApplySettleRevert(t *testing.T) {
	ledger := NewLedger(zap.NewNop())
	ledger.SetBalance(testAccount, 42161, testToken, big.NewInt(1000))

	deltas := []models.BalanceDelta{
		{Account: testAccount, ChainID: 42161, Token: testToken, Delta: big.NewInt(-300)},
	}

	ledger.Apply("1:42161:0xaa", deltas)
	if got := ledger.Balance(testAccount, 42161, testToken); got.Int64() != 700 {
		t.Errorf("balance after apply = %s, want 700", got)
	}

	// Settling keeps the adjustment
	ledger.Settle("1:42161:0xaa")
	if got := ledger.Balance(testAccount, 42161, testToken); got.Int64() != 700 {
		t.Errorf("balance after settle = %s, want 700", got)
	}
	if ledger.PendingCount() != 0 {
		t.Errorf("pending count = %d, want 0", ledger.PendingCount())
	}

	// A second transfer that fails gets reverted
	ledger.Apply("1:42161:0xbb", deltas)
	if got := ledger.Balance(testAccount, 42161, testToken); got.Int64() != 400 {
		t.Errorf("balance after second apply = %s, want 400", got)
	}
	ledger.Revert("1:42161:0xbb")
	if got := ledger.Balance(testAccount, 42161, testToken); got.Int64() != 700 {
		t.Errorf("balance after revert = %s, want 700", got)
	}
}

func TestLedgerRevertUnknownKey(t *testing.T) {
	ledger := NewLedger(zap.NewNop())
	ledger.SetBalance(testAccount, 42161, testToken, big.NewInt(100))

	ledger.Revert("never-applied")
	if got := ledger.Balance(testAccount, 42161, testToken); got.Int64() != 100 {
		t.Errorf("balance = %s, want 100 (revert of unknown key must be a no-op)", got)
	}
}

func TestLedgerUnknownBalanceIsZero(t *testing.T) {
	ledger := NewLedger(zap.NewNop())
	if got := ledger.Balance(testAccount, 1, testToken); got.Sign() != 0 {
		t.Errorf("unknown balance = %s, want 0", got)
	}
}
