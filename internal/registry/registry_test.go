package registry

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var (
	marketAddr = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	glvAddr    = common.HexToAddress("0x00000000000000000000000000000000000000ab")
	usdcAddr   = common.HexToAddress("0x00000000000000000000000000000000000000b1")
	wethAddr   = common.HexToAddress("0x00000000000000000000000000000000000000b2")
)

func TestMarketTokenDataRequiresLoad(t *testing.T) {
	r := New(zap.NewNop())

	r.PutMarket(&MarketInfo{
		MarketToken: marketAddr,
		LongToken:   wethAddr,
		ShortToken:  usdcAddr,
	})

	// Registered but not loaded from chain yet
	_, _, ok := r.MarketTokenData(marketAddr)
	assert.False(t, ok, "unloaded market must not report token data")

	r.PutMarket(&MarketInfo{
		MarketToken: marketAddr,
		LongToken:   wethAddr,
		ShortToken:  usdcAddr,
		TotalSupply: big.NewInt(1000),
		PriceUSD:    decimal.NewFromInt(1),
		Loaded:      true,
	})

	supply, price, ok := r.MarketTokenData(marketAddr)
	require.True(t, ok)
	assert.Equal(t, int64(1000), supply.Int64())
	assert.True(t, price.Equal(decimal.NewFromInt(1)))
}

func TestMarketTokenDataResolvesGlv(t *testing.T) {
	r := New(zap.NewNop())

	r.PutGlv(&GlvInfo{
		GlvToken:    glvAddr,
		Markets:     []common.Address{marketAddr},
		TotalSupply: big.NewInt(0),
		PriceUSD:    decimal.NewFromInt(2),
		Loaded:      true,
	})

	supply, price, ok := r.MarketTokenData(glvAddr)
	require.True(t, ok)
	assert.Zero(t, supply.Sign())
	assert.True(t, price.Equal(decimal.NewFromInt(2)))
}

func TestSourceChainTokenMapping(t *testing.T) {
	r := New(zap.NewNop())

	mapped := common.HexToAddress("0x00000000000000000000000000000000000000d1")
	r.PutToken(&TokenInfo{
		Address:  usdcAddr,
		Symbol:   "USDC",
		Decimals: 6,
		SourceChainAddress: map[uint64]common.Address{
			1: mapped,
		},
	})

	got, ok := r.SourceChainToken(usdcAddr, 1)
	require.True(t, ok)
	assert.Equal(t, mapped, got)

	_, ok = r.SourceChainToken(usdcAddr, 8453)
	assert.False(t, ok, "unmapped chain must not resolve")

	_, ok = r.SourceChainToken(wethAddr, 1)
	assert.False(t, ok, "unknown token must not resolve")
}

func TestBridgeRouteLookup(t *testing.T) {
	r := New(zap.NewNop())

	route := BridgeRoute{
		Provider:   common.HexToAddress("0xc1"),
		EndpointID: 30101,
	}
	r.PutBridgeRoute(42161, 1, usdcAddr, route)

	got, ok := r.BridgeRouteFor(42161, 1, usdcAddr)
	require.True(t, ok)
	assert.Equal(t, route, got)

	_, ok = r.BridgeRouteFor(42161, 8453, usdcAddr)
	assert.False(t, ok)
}
