// Package approval checks and establishes the token allowances an operation
// needs before it can be submitted. The spender depends on the pay source:
// the protocol router on the settlement chain, the bridge contract on a
// source chain. GMX account operations need no allowance at all.
package approval

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"omnipool/internal/models"
	"omnipool/internal/registry"
)

// ChainClient is the per-chain surface the manager needs
type ChainClient interface {
	GetAllowance(ctx context.Context, token, owner, spender common.Address) (*big.Int, error)
	ApproveToken(ctx context.Context, token, spender common.Address, amount *big.Int) (common.Hash, error)
}

// TokenView resolves token metadata and cross-chain representations
type TokenView interface {
	Token(addr common.Address) (*registry.TokenInfo, bool)
	SourceChainToken(token common.Address, sourceChainID uint64) (common.Address, bool)
}

// Spend is one token the operation will pull from the user's account
type Spend struct {
	Token  common.Address
	Amount *big.Int
}

// CheckInput describes the allowances one operation depends on
type CheckInput struct {
	Account   common.Address
	Operation models.Operation
	PaySource models.PaySource

	// Spends are the tokens spent directly: the pay tokens for a deposit,
	// the pool token for a withdrawal
	Spends []Spend

	SourceChainID uint64
}

// Result is the allowance status for one operation
type Result struct {
	// NeedsApproval lists the symbols of tokens whose allowance is below
	// the required spend
	NeedsApproval []string
	// Tokens are the corresponding token addresses, aligned with
	// NeedsApproval, on the chain where the approval must happen
	Tokens []common.Address
	// Spender is the contract the approvals must be granted to
	Spender common.Address
}

// Manager checks allowances and submits approvals per pay source
type Manager struct {
	settlement    ChainClient
	sourceClients map[uint64]ChainClient
	tokens        TokenView

	routerSpender common.Address
	gateways      map[uint64]common.Address

	logger *zap.Logger
}

// NewManager creates an approval Manager
func NewManager(
	settlement ChainClient,
	sourceClients map[uint64]ChainClient,
	tokens TokenView,
	routerSpender common.Address,
	gateways map[uint64]common.Address,
	logger *zap.Logger,
) *Manager {
	return &Manager{
		settlement:    settlement,
		sourceClients: sourceClients,
		tokens:        tokens,
		routerSpender: routerSpender,
		gateways:      gateways,
		logger:        logger.Named("approval"),
	}
}

// Check resolves the subset of spends whose allowance is insufficient.
// GMX account operations always return an empty result.
func (m *Manager) Check(ctx context.Context, in CheckInput) (*Result, error) {
	switch in.PaySource {
	case models.PaySourceGmxAccount:
		return &Result{}, nil
	case models.PaySourceSettlementChain:
		return m.checkSettlementChain(ctx, in)
	case models.PaySourceSourceChain:
		return m.checkSourceChain(ctx, in)
	}
	return nil, fmt.Errorf("unknown pay source: %s", in.PaySource)
}

// checkSettlementChain reads every spend token's allowance against the
// protocol router, in parallel
func (m *Manager) checkSettlementChain(ctx context.Context, in CheckInput) (*Result, error) {
	result := &Result{Spender: m.routerSpender}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)

	for _, spend := range in.Spends {
		spend := spend
		if spend.Token == models.NativeTokenSentinel || spend.Amount == nil || spend.Amount.Sign() == 0 {
			// Native payments and empty spends need no allowance
			continue
		}

		g.Go(func() error {
			allowance, err := m.settlement.GetAllowance(gctx, spend.Token, in.Account, m.routerSpender)
			if err != nil {
				return fmt.Errorf("failed to read allowance for %s: %w", spend.Token.Hex(), err)
			}
			if allowance.Cmp(spend.Amount) < 0 {
				mu.Lock()
				result.NeedsApproval = append(result.NeedsApproval, m.symbol(spend.Token))
				result.Tokens = append(result.Tokens, spend.Token)
				mu.Unlock()
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return result, nil
}

// checkSourceChain maps the single spend token to its source-chain
// representation and checks it against the bridge contract there
func (m *Manager) checkSourceChain(ctx context.Context, in CheckInput) (*Result, error) {
	gateway, ok := m.gateways[in.SourceChainID]
	if !ok {
		return nil, fmt.Errorf("no bridge gateway configured for chain %d", in.SourceChainID)
	}
	client, ok := m.sourceClients[in.SourceChainID]
	if !ok {
		return nil, fmt.Errorf("no client configured for chain %d", in.SourceChainID)
	}

	result := &Result{Spender: gateway}

	for _, spend := range in.Spends {
		if spend.Amount == nil || spend.Amount.Sign() == 0 {
			continue
		}

		mapped, ok := m.tokens.SourceChainToken(spend.Token, in.SourceChainID)
		if !ok {
			return nil, fmt.Errorf("token %s has no representation on chain %d", spend.Token.Hex(), in.SourceChainID)
		}

		allowance, err := client.GetAllowance(ctx, mapped, in.Account, gateway)
		if err != nil {
			return nil, fmt.Errorf("failed to read allowance on chain %d: %w", in.SourceChainID, err)
		}
		if allowance.Cmp(spend.Amount) < 0 {
			result.NeedsApproval = append(result.NeedsApproval, m.symbol(spend.Token))
			result.Tokens = append(result.Tokens, mapped)
		}
	}

	return result, nil
}

// Approve submits an allowance-increase transaction for one token on the
// chain implied by the pay source
func (m *Manager) Approve(ctx context.Context, paySource models.PaySource, sourceChainID uint64, token common.Address, amount *big.Int) (common.Hash, error) {
	switch paySource {
	case models.PaySourceGmxAccount:
		return common.Hash{}, fmt.Errorf("gmx account operations do not require approvals")
	case models.PaySourceSettlementChain:
		m.logger.Info("Submitting approval",
			zap.String("token", token.Hex()),
			zap.String("spender", m.routerSpender.Hex()))
		return m.settlement.ApproveToken(ctx, token, m.routerSpender, amount)
	case models.PaySourceSourceChain:
		gateway, ok := m.gateways[sourceChainID]
		if !ok {
			return common.Hash{}, fmt.Errorf("no bridge gateway configured for chain %d", sourceChainID)
		}
		client, ok := m.sourceClients[sourceChainID]
		if !ok {
			return common.Hash{}, fmt.Errorf("no client configured for chain %d", sourceChainID)
		}
		m.logger.Info("Submitting approval",
			zap.Uint64("chain_id", sourceChainID),
			zap.String("token", token.Hex()),
			zap.String("spender", gateway.Hex()))
		return client.ApproveToken(ctx, token, gateway, amount)
	}
	return common.Hash{}, fmt.Errorf("unknown pay source: %s", paySource)
}

func (m *Manager) symbol(token common.Address) string {
	if info, ok := m.tokens.Token(token); ok && info.Symbol != "" {
		return info.Symbol
	}
	return token.Hex()
}
