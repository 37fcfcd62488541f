// Package state holds the process-wide transient state the pipeline writes:
// optimistic token balances adjusted ahead of on-chain settlement.
package state

import (
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"omnipool/internal/models"
)

type balanceKey struct {
	account common.Address
	chainID uint64
	token   common.Address
}

// Ledger tracks token balances with optimistic adjustments. Deltas are
// applied per transfer key so a failed transfer can be reverted exactly.
type Ledger struct {
	mu       sync.RWMutex
	balances map[balanceKey]*big.Int
	pending  map[string][]models.BalanceDelta
	logger   *zap.Logger
}

// NewLedger creates an empty Ledger
func NewLedger(logger *zap.Logger) *Ledger {
	return &Ledger{
		balances: make(map[balanceKey]*big.Int),
		pending:  make(map[string][]models.BalanceDelta),
		logger:   logger.Named("ledger"),
	}
}

// SetBalance records an authoritative balance read from chain
func (l *Ledger) SetBalance(account common.Address, chainID uint64, token common.Address, balance *big.Int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[balanceKey{account, chainID, token}] = new(big.Int).Set(balance)
}

// Balance returns the current (optimistically adjusted) balance. Unknown
// balances degrade to zero.
func (l *Ledger) Balance(account common.Address, chainID uint64, token common.Address) *big.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if b, ok := l.balances[balanceKey{account, chainID, token}]; ok {
		return new(big.Int).Set(b)
	}
	return new(big.Int)
}

// Apply records a transfer's optimistic deltas and adjusts balances
func (l *Ledger) Apply(transferKey string, deltas []models.BalanceDelta) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, d := range deltas {
		l.add(balanceKey{d.Account, d.ChainID, d.Token}, d.Delta)
	}
	l.pending[transferKey] = deltas

	l.logger.Debug("Optimistic deltas applied",
		zap.String("transfer_key", transferKey),
		zap.Int("delta_count", len(deltas)))
}

// Settle confirms a transfer: the deltas become permanent
func (l *Ledger) Settle(transferKey string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.pending, transferKey)
}

// Revert undoes a failed transfer's deltas
func (l *Ledger) Revert(transferKey string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	deltas, ok := l.pending[transferKey]
	if !ok {
		return
	}
	for _, d := range deltas {
		l.add(balanceKey{d.Account, d.ChainID, d.Token}, new(big.Int).Neg(d.Delta))
	}
	delete(l.pending, transferKey)

	l.logger.Info("Optimistic deltas reverted", zap.String("transfer_key", transferKey))
}

// PendingCount returns the number of unsettled transfers
func (l *Ledger) PendingCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.pending)
}

func (l *Ledger) add(key balanceKey, delta *big.Int) {
	if delta == nil {
		return
	}
	current, ok := l.balances[key]
	if !ok {
		current = new(big.Int)
	}
	l.balances[key] = new(big.Int).Add(current, delta)
}
