package evm

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"
)

// ERC20 function selectors
var (
	selectorBalanceOf = common.Hex2Bytes("70a08231") // balanceOf(address)
	selectorAllowance = common.Hex2Bytes("dd62ed3e") // allowance(address,address)
	selectorApprove   = common.Hex2Bytes("095ea7b3") // approve(address,uint256)
)

// Client wraps Ethereum client functionality for interacting with EVM chains
type Client struct {
	ethClient   *ethclient.Client
	chainID     uint64
	chainName   string
	privateKey  *ecdsa.PrivateKey
	fromAddress common.Address
	logger      *zap.Logger
}

// NewClient creates a new EVM client for the specified chain
func NewClient(chainID uint64, chainName, rpcEndpoint, operatorPrivateKey string, logger *zap.Logger) (*Client, error) {
	ethClient, err := ethclient.Dial(rpcEndpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RPC endpoint %s: %w", rpcEndpoint, err)
	}

	// Parse private key (remove 0x prefix if present)
	privateKeyHex := strings.TrimPrefix(operatorPrivateKey, "0x")
	privateKey, err := crypto.HexToECDSA(privateKeyHex)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}

	publicKey := privateKey.Public()
	publicKeyECDSA, ok := publicKey.(*ecdsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("failed to cast public key to ECDSA")
	}
	fromAddress := crypto.PubkeyToAddress(*publicKeyECDSA)

	logger.Info("EVM client initialized",
		zap.Uint64("chain_id", chainID),
		zap.String("chain_name", chainName),
		zap.String("signer_address", fromAddress.Hex()))

	return &Client{
		ethClient:   ethClient,
		chainID:     chainID,
		chainName:   chainName,
		privateKey:  privateKey,
		fromAddress: fromAddress,
		logger:      logger,
	}, nil
}

// Close closes the underlying RPC connection
func (c *Client) Close() {
	c.ethClient.Close()
}

// ChainID returns the configured chain ID
func (c *Client) ChainID() uint64 {
	return c.chainID
}

// SignerAddress returns the signing account's address
func (c *Client) SignerAddress() common.Address {
	return c.fromAddress
}

// GetTokenBalance returns the ERC20 balance of an address
func (c *Client) GetTokenBalance(ctx context.Context, token, address common.Address) (*big.Int, error) {
	data := append(
		append([]byte{}, selectorBalanceOf...),
		common.LeftPadBytes(address.Bytes(), 32)...,
	)

	result, err := c.ethClient.CallContract(ctx, ethereum.CallMsg{
		To:   &token,
		Data: data,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to call balanceOf: %w", err)
	}

	if len(result) < 32 {
		return nil, fmt.Errorf("invalid balance response length: %d", len(result))
	}

	return new(big.Int).SetBytes(result), nil
}

// GetAllowance returns the ERC20 allowance granted by owner to spender
func (c *Client) GetAllowance(ctx context.Context, token, owner, spender common.Address) (*big.Int, error) {
	data := append(
		append([]byte{}, selectorAllowance...),
		append(
			common.LeftPadBytes(owner.Bytes(), 32),
			common.LeftPadBytes(spender.Bytes(), 32)...,
		)...,
	)

	result, err := c.ethClient.CallContract(ctx, ethereum.CallMsg{
		To:   &token,
		Data: data,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to call allowance: %w", err)
	}

	if len(result) < 32 {
		return nil, fmt.Errorf("invalid allowance response length: %d", len(result))
	}

	return new(big.Int).SetBytes(result), nil
}

// ApproveToken submits an ERC20 approve transaction for the given spender
func (c *Client) ApproveToken(ctx context.Context, token, spender common.Address, amount *big.Int) (common.Hash, error) {
	data := append(
		append([]byte{}, selectorApprove...),
		append(
			common.LeftPadBytes(spender.Bytes(), 32),
			common.LeftPadBytes(amount.Bytes(), 32)...,
		)...,
	)

	return c.SignAndSendTransaction(ctx, token, data, big.NewInt(0))
}

// GetNativeBalance returns the native token balance of an address
func (c *Client) GetNativeBalance(ctx context.Context, address common.Address) (*big.Int, error) {
	return c.ethClient.BalanceAt(ctx, address, nil)
}

// GetGasPrice returns the suggested gas price
func (c *Client) GetGasPrice(ctx context.Context) (*big.Int, error) {
	return c.ethClient.SuggestGasPrice(ctx)
}

// EstimateGas estimates gas for a transaction
func (c *Client) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	return c.ethClient.EstimateGas(ctx, msg)
}

// CallContract executes a read-only contract call
func (c *Client) CallContract(ctx context.Context, msg ethereum.CallMsg) ([]byte, error) {
	return c.ethClient.CallContract(ctx, msg, nil)
}

// GetTransactionReceipt gets the receipt for a transaction. Returns a nil
// receipt without error while the transaction is not yet mined.
func (c *Client) GetTransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	receipt, err := c.ethClient.TransactionReceipt(ctx, txHash)
	if err == ethereum.NotFound {
		return nil, nil
	}
	return receipt, err
}

// WaitForTransaction waits for a transaction to be mined
func (c *Client) WaitForTransaction(ctx context.Context, txHash common.Hash, timeout time.Duration) (*types.Receipt, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("timeout waiting for transaction %s", txHash.Hex())
		case <-ticker.C:
			receipt, err := c.ethClient.TransactionReceipt(ctx, txHash)
			if err == nil && receipt != nil {
				if receipt.Status == 0 {
					return receipt, fmt.Errorf("transaction failed: %s", txHash.Hex())
				}
				return receipt, nil
			}
			// Transaction not yet mined, continue waiting
		}
	}
}

// SignAndSendTransaction creates, signs, and sends a transaction
func (c *Client) SignAndSendTransaction(
	ctx context.Context,
	to common.Address,
	data []byte,
	value *big.Int,
) (common.Hash, error) {
	return c.signAndSend(ctx, to, data, value, 0)
}

// SignAndSendWithGasLimit sends a transaction with a pre-resolved gas limit,
// skipping client-side estimation (and with it the pre-flight simulation)
func (c *Client) SignAndSendWithGasLimit(
	ctx context.Context,
	to common.Address,
	data []byte,
	value *big.Int,
	gasLimit uint64,
) (common.Hash, error) {
	return c.signAndSend(ctx, to, data, value, gasLimit)
}

func (c *Client) signAndSend(
	ctx context.Context,
	to common.Address,
	data []byte,
	value *big.Int,
	gasLimit uint64,
) (common.Hash, error) {
	chainID, err := c.ethClient.ChainID(ctx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to get chain ID: %w", err)
	}

	nonce, err := c.ethClient.PendingNonceAt(ctx, c.fromAddress)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to get nonce: %w", err)
	}

	gasPrice, err := c.ethClient.SuggestGasPrice(ctx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to suggest gas price: %w", err)
	}

	if gasLimit == 0 {
		gasLimit, err = c.ethClient.EstimateGas(ctx, ethereum.CallMsg{
			From:  c.fromAddress,
			To:    &to,
			Data:  data,
			Value: value,
		})
		if err != nil {
			return common.Hash{}, fmt.Errorf("failed to estimate gas: %w", err)
		}

		// Add 20% buffer
		gasLimit = gasLimit * 120 / 100
	}

	tx := types.NewTransaction(nonce, to, value, gasLimit, gasPrice, data)

	signedTx, err := types.SignTx(tx, types.NewEIP155Signer(chainID), c.privateKey)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to sign transaction: %w", err)
	}

	if err := c.ethClient.SendTransaction(ctx, signedTx); err != nil {
		return common.Hash{}, fmt.Errorf("failed to send transaction: %w", err)
	}

	c.logger.Info("Transaction sent",
		zap.String("tx_hash", signedTx.Hash().Hex()),
		zap.String("to", to.Hex()),
		zap.Uint64("nonce", nonce),
		zap.Uint64("gas_limit", gasLimit))

	return signedTx.Hash(), nil
}
