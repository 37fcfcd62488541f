// Package registry holds the read-only reference data the pipeline consumes:
// markets, GLV vaults, tokens, bridge provider routes, and current prices.
// The pipeline only ever reads from it; updates come from whatever feeds the
// surrounding application wires in.
package registry

import (
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// MarketInfo describes one GM market
type MarketInfo struct {
	MarketToken common.Address
	LongToken   common.Address
	ShortToken  common.Address

	// TotalSupply and PriceUSD are nil / zero until loaded from chain
	TotalSupply *big.Int
	PriceUSD    decimal.Decimal
	Loaded      bool
}

// SameCollateral reports whether both collateral sides are the same token
func (m *MarketInfo) SameCollateral() bool {
	return m.LongToken == m.ShortToken
}

// GlvInfo describes one GLV vault and its underlying markets
type GlvInfo struct {
	GlvToken common.Address
	Markets  []common.Address

	TotalSupply *big.Int
	PriceUSD    decimal.Decimal
	Loaded      bool
}

// TokenInfo describes a token known to the pipeline
type TokenInfo struct {
	Address  common.Address
	Symbol   string
	Decimals uint8

	// SourceChainAddress maps a source chain id to this token's
	// representation on that chain
	SourceChainAddress map[uint64]common.Address
}

// BridgeRoute is the provider used to bridge one token between two chains
type BridgeRoute struct {
	Provider   common.Address // bridge pool address on the settlement chain
	EndpointID uint32         // destination endpoint id
}

// Registry is an in-memory snapshot of reference data, safe for concurrent
// readers
type Registry struct {
	mu sync.RWMutex

	markets map[common.Address]*MarketInfo
	glvs    map[common.Address]*GlvInfo
	tokens  map[common.Address]*TokenInfo

	// routes is keyed by settlementChain -> sourceChain -> token
	routes map[uint64]map[uint64]map[common.Address]BridgeRoute

	// prices is keyed by token address, in USD per whole token
	prices map[common.Address]decimal.Decimal

	wrappedNative common.Address
	logger        *zap.Logger
}

// New creates an empty registry
func New(logger *zap.Logger) *Registry {
	return &Registry{
		markets: make(map[common.Address]*MarketInfo),
		glvs:    make(map[common.Address]*GlvInfo),
		tokens:  make(map[common.Address]*TokenInfo),
		routes:  make(map[uint64]map[uint64]map[common.Address]BridgeRoute),
		prices:  make(map[common.Address]decimal.Decimal),
		logger:  logger.Named("registry"),
	}
}

// SetWrappedNative records the settlement chain's wrapped native token
func (r *Registry) SetWrappedNative(token common.Address) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.wrappedNative = token
}

// WrappedNative returns the settlement chain's wrapped native token
func (r *Registry) WrappedNative() common.Address {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.wrappedNative
}

// PutMarket registers or replaces a market
func (r *Registry) PutMarket(m *MarketInfo) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.markets[m.MarketToken] = m
}

// Market returns the market with the given token address
func (r *Registry) Market(token common.Address) (*MarketInfo, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.markets[token]
	return m, ok
}

// PutGlv registers or replaces a GLV vault
func (r *Registry) PutGlv(g *GlvInfo) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.glvs[g.GlvToken] = g
}

// Glv returns the GLV vault with the given token address
func (r *Registry) Glv(token common.Address) (*GlvInfo, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.glvs[token]
	return g, ok
}

// PutToken registers or replaces a token
func (r *Registry) PutToken(t *TokenInfo) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tokens[t.Address] = t
}

// Token returns token info for an address
func (r *Registry) Token(addr common.Address) (*TokenInfo, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tokens[addr]
	return t, ok
}

// SourceChainToken maps a settlement-chain token to its representation on a
// source chain
func (r *Registry) SourceChainToken(token common.Address, sourceChainID uint64) (common.Address, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tokens[token]
	if !ok || t.SourceChainAddress == nil {
		return common.Address{}, false
	}
	mapped, ok := t.SourceChainAddress[sourceChainID]
	return mapped, ok
}

// PutBridgeRoute registers the bridge route for a token between two chains
func (r *Registry) PutBridgeRoute(settlementChainID, sourceChainID uint64, token common.Address, route BridgeRoute) {
	r.mu.Lock()
	defer r.mu.Unlock()
	bySource, ok := r.routes[settlementChainID]
	if !ok {
		bySource = make(map[uint64]map[common.Address]BridgeRoute)
		r.routes[settlementChainID] = bySource
	}
	byToken, ok := bySource[sourceChainID]
	if !ok {
		byToken = make(map[common.Address]BridgeRoute)
		bySource[sourceChainID] = byToken
	}
	byToken[token] = route
}

// BridgeRouteFor returns the bridge route for a token between two chains
func (r *Registry) BridgeRouteFor(settlementChainID, sourceChainID uint64, token common.Address) (BridgeRoute, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	bySource, ok := r.routes[settlementChainID]
	if !ok {
		return BridgeRoute{}, false
	}
	byToken, ok := bySource[sourceChainID]
	if !ok {
		return BridgeRoute{}, false
	}
	route, ok := byToken[token]
	return route, ok
}

// SetPriceUSD records the current USD price for a token
func (r *Registry) SetPriceUSD(token common.Address, price decimal.Decimal) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.prices[token] = price
}

// TokenPriceUSD returns the current USD price per whole token
func (r *Registry) TokenPriceUSD(token common.Address) (decimal.Decimal, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.prices[token]
	return p, ok
}

// TokenDecimals returns a token's decimals
func (r *Registry) TokenDecimals(token common.Address) (uint8, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tokens[token]
	if !ok {
		return 0, false
	}
	return t.Decimals, true
}

// MarketTokenData returns the total supply and USD price for a GM or GLV
// token. ok is false until the data has been loaded from chain.
func (r *Registry) MarketTokenData(token common.Address) (*big.Int, decimal.Decimal, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if m, ok := r.markets[token]; ok && m.Loaded {
		return m.TotalSupply, m.PriceUSD, true
	}
	if g, ok := r.glvs[token]; ok && g.Loaded {
		return g.TotalSupply, g.PriceUSD, true
	}
	return nil, decimal.Zero, false
}
