package fees

import (
	"context"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/url"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

// BridgeQuote is a bridge provider's fee quote for one transfer
type BridgeQuote struct {
	// NativeFee is paid in the source chain's native token
	NativeFee *big.Int
	// ProtocolFee is taken from the bridged token amount
	ProtocolFee *big.Int
}

// BridgeQuoter fetches fee quotes for bridging a token off a chain
type BridgeQuoter interface {
	Quote(ctx context.Context, sourceChainID uint64, token common.Address, amount *big.Int, dstEid uint32) (*BridgeQuote, error)
}

// QuoteClient fetches bridge fee quotes from per-chain provider REST
// endpoints
type QuoteClient struct {
	endpoints  map[uint64]string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewQuoteClient creates a QuoteClient over the given chain -> endpoint map
func NewQuoteClient(endpoints map[uint64]string, logger *zap.Logger) *QuoteClient {
	return &QuoteClient{
		endpoints:  endpoints,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger.Named("bridge_quote"),
	}
}

// Quote fetches the current bridge fee for moving a token amount from the
// given source chain to the destination endpoint
func (c *QuoteClient) Quote(ctx context.Context, sourceChainID uint64, token common.Address, amount *big.Int, dstEid uint32) (*BridgeQuote, error) {
	endpoint, ok := c.endpoints[sourceChainID]
	if !ok {
		return nil, fmt.Errorf("no quote endpoint configured for chain %d", sourceChainID)
	}

	query := url.Values{}
	query.Set("token", token.Hex())
	query.Set("amount", amount.String())
	query.Set("dstEid", fmt.Sprintf("%d", dstEid))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create quote request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch bridge quote: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("bridge quote endpoint returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read quote response: %w", err)
	}

	nativeFee, ok := new(big.Int).SetString(gjson.GetBytes(body, "nativeFee").String(), 10)
	if !ok {
		return nil, fmt.Errorf("invalid nativeFee in quote response")
	}
	protocolFee, ok := new(big.Int).SetString(gjson.GetBytes(body, "protocolFee").String(), 10)
	if !ok {
		return nil, fmt.Errorf("invalid protocolFee in quote response")
	}

	c.logger.Debug("Bridge quote fetched",
		zap.Uint64("source_chain", sourceChainID),
		zap.String("token", token.Hex()),
		zap.String("native_fee", nativeFee.String()),
		zap.String("protocol_fee", protocolFee.String()))

	return &BridgeQuote{NativeFee: nativeFee, ProtocolFee: protocolFee}, nil
}
