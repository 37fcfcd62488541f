package evm

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"omnipool/internal/models"
)

// ExchangeRouterABI covers the GM market deposit/withdrawal entry points
const ExchangeRouterABI = `[
	{
		"inputs": [
			{"internalType": "address", "name": "receiver", "type": "address"},
			{"internalType": "address", "name": "market", "type": "address"},
			{"internalType": "address", "name": "initialLongToken", "type": "address"},
			{"internalType": "address", "name": "initialShortToken", "type": "address"},
			{"internalType": "uint256", "name": "longTokenAmount", "type": "uint256"},
			{"internalType": "uint256", "name": "shortTokenAmount", "type": "uint256"},
			{"internalType": "uint256", "name": "minMarketTokens", "type": "uint256"},
			{"internalType": "bool", "name": "shouldUnwrapNativeToken", "type": "bool"},
			{"internalType": "uint256", "name": "executionFee", "type": "uint256"},
			{"internalType": "uint256", "name": "callbackGasLimit", "type": "uint256"},
			{"internalType": "bytes32[]", "name": "dataList", "type": "bytes32[]"}
		],
		"name": "createDeposit",
		"outputs": [{"internalType": "bytes32", "name": "", "type": "bytes32"}],
		"stateMutability": "payable",
		"type": "function"
	},
	{
		"inputs": [
			{"internalType": "address", "name": "receiver", "type": "address"},
			{"internalType": "address", "name": "market", "type": "address"},
			{"internalType": "uint256", "name": "marketTokenAmount", "type": "uint256"},
			{"internalType": "uint256", "name": "minLongTokenAmount", "type": "uint256"},
			{"internalType": "uint256", "name": "minShortTokenAmount", "type": "uint256"},
			{"internalType": "address[]", "name": "longTokenSwapPath", "type": "address[]"},
			{"internalType": "address[]", "name": "shortTokenSwapPath", "type": "address[]"},
			{"internalType": "bool", "name": "shouldUnwrapNativeToken", "type": "bool"},
			{"internalType": "uint256", "name": "executionFee", "type": "uint256"},
			{"internalType": "uint256", "name": "callbackGasLimit", "type": "uint256"},
			{"internalType": "bytes32[]", "name": "dataList", "type": "bytes32[]"}
		],
		"name": "createWithdrawal",
		"outputs": [{"internalType": "bytes32", "name": "", "type": "bytes32"}],
		"stateMutability": "payable",
		"type": "function"
	}
]`

// GlvRouterABI covers the GLV vault deposit/withdrawal entry points
const GlvRouterABI = `[
	{
		"inputs": [
			{"internalType": "address", "name": "receiver", "type": "address"},
			{"internalType": "address", "name": "glv", "type": "address"},
			{"internalType": "address", "name": "market", "type": "address"},
			{"internalType": "address", "name": "initialLongToken", "type": "address"},
			{"internalType": "address", "name": "initialShortToken", "type": "address"},
			{"internalType": "uint256", "name": "longTokenAmount", "type": "uint256"},
			{"internalType": "uint256", "name": "shortTokenAmount", "type": "uint256"},
			{"internalType": "uint256", "name": "minGlvTokens", "type": "uint256"},
			{"internalType": "bool", "name": "shouldUnwrapNativeToken", "type": "bool"},
			{"internalType": "uint256", "name": "executionFee", "type": "uint256"},
			{"internalType": "uint256", "name": "callbackGasLimit", "type": "uint256"},
			{"internalType": "bytes32[]", "name": "dataList", "type": "bytes32[]"}
		],
		"name": "createGlvDeposit",
		"outputs": [{"internalType": "bytes32", "name": "", "type": "bytes32"}],
		"stateMutability": "payable",
		"type": "function"
	},
	{
		"inputs": [
			{"internalType": "address", "name": "receiver", "type": "address"},
			{"internalType": "address", "name": "glv", "type": "address"},
			{"internalType": "address", "name": "market", "type": "address"},
			{"internalType": "uint256", "name": "glvTokenAmount", "type": "uint256"},
			{"internalType": "uint256", "name": "minLongTokenAmount", "type": "uint256"},
			{"internalType": "uint256", "name": "minShortTokenAmount", "type": "uint256"},
			{"internalType": "address[]", "name": "longTokenSwapPath", "type": "address[]"},
			{"internalType": "address[]", "name": "shortTokenSwapPath", "type": "address[]"},
			{"internalType": "bool", "name": "shouldUnwrapNativeToken", "type": "bool"},
			{"internalType": "uint256", "name": "executionFee", "type": "uint256"},
			{"internalType": "uint256", "name": "callbackGasLimit", "type": "uint256"},
			{"internalType": "bytes32[]", "name": "dataList", "type": "bytes32[]"}
		],
		"name": "createGlvWithdrawal",
		"outputs": [{"internalType": "bytes32", "name": "", "type": "bytes32"}],
		"stateMutability": "payable",
		"type": "function"
	}
]`

// BridgeGatewayABI is the source-chain bridge entry point: moves collateral
// to the settlement chain and carries the opaque bridge-out data list
const BridgeGatewayABI = `[
	{
		"inputs": [
			{"internalType": "address", "name": "token", "type": "address"},
			{"internalType": "uint256", "name": "amount", "type": "uint256"},
			{"internalType": "uint32", "name": "dstEid", "type": "uint32"},
			{"internalType": "bytes32[]", "name": "dataList", "type": "bytes32[]"}
		],
		"name": "bridgeIn",
		"outputs": [],
		"stateMutability": "payable",
		"type": "function"
	}
]`

// Router encodes calls to the settlement chain's protocol entry points
type Router struct {
	exchangeRouter common.Address
	glvRouter      common.Address
	exchangeABI    abi.ABI
	glvABI         abi.ABI
	logger         *zap.Logger
}

// NewRouter creates a Router for the given entry point addresses
func NewRouter(exchangeRouter, glvRouter common.Address, logger *zap.Logger) (*Router, error) {
	exchangeABI, err := abi.JSON(strings.NewReader(ExchangeRouterABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse exchange router ABI: %w", err)
	}

	glvABI, err := abi.JSON(strings.NewReader(GlvRouterABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse glv router ABI: %w", err)
	}

	return &Router{
		exchangeRouter: exchangeRouter,
		glvRouter:      glvRouter,
		exchangeABI:    exchangeABI,
		glvABI:         glvABI,
		logger:         logger,
	}, nil
}

// EncodeCall encodes the entry-point call for the given raw parameters and
// returns the calldata along with the contract it must be sent to.
// The type switch is exhaustive over the RawParams sum.
func (r *Router) EncodeCall(params models.RawParams, executionFee *big.Int) ([]byte, common.Address, error) {
	switch p := params.(type) {
	case models.GmDepositParams:
		data, err := r.exchangeABI.Pack("createDeposit",
			p.Receiver,
			p.Market,
			p.InitialLongToken,
			p.InitialShortToken,
			p.LongTokenAmount,
			p.ShortTokenAmount,
			p.MinMarketTokens,
			p.ShouldUnwrapNativeToken,
			executionFee,
			new(big.Int).SetUint64(p.CallbackGasLimit),
			p.DataList,
		)
		if err != nil {
			return nil, common.Address{}, fmt.Errorf("failed to pack createDeposit: %w", err)
		}
		return data, r.exchangeRouter, nil

	case models.GmWithdrawalParams:
		data, err := r.exchangeABI.Pack("createWithdrawal",
			p.Receiver,
			p.Market,
			p.MarketTokenAmount,
			p.MinLongTokenAmount,
			p.MinShortTokenAmount,
			p.LongTokenSwapPath,
			p.ShortTokenSwapPath,
			p.ShouldUnwrapNativeToken,
			executionFee,
			new(big.Int).SetUint64(p.CallbackGasLimit),
			p.DataList,
		)
		if err != nil {
			return nil, common.Address{}, fmt.Errorf("failed to pack createWithdrawal: %w", err)
		}
		return data, r.exchangeRouter, nil

	case models.GlvDepositParams:
		data, err := r.glvABI.Pack("createGlvDeposit",
			p.Receiver,
			p.Glv,
			p.Market,
			p.InitialLongToken,
			p.InitialShortToken,
			p.LongTokenAmount,
			p.ShortTokenAmount,
			p.MinGlvTokens,
			p.ShouldUnwrapNativeToken,
			executionFee,
			new(big.Int).SetUint64(p.CallbackGasLimit),
			p.DataList,
		)
		if err != nil {
			return nil, common.Address{}, fmt.Errorf("failed to pack createGlvDeposit: %w", err)
		}
		return data, r.glvRouter, nil

	case models.GlvWithdrawalParams:
		data, err := r.glvABI.Pack("createGlvWithdrawal",
			p.Receiver,
			p.Glv,
			p.Market,
			p.GlvTokenAmount,
			p.MinLongTokenAmount,
			p.MinShortTokenAmount,
			p.LongTokenSwapPath,
			p.ShortTokenSwapPath,
			p.ShouldUnwrapNativeToken,
			executionFee,
			new(big.Int).SetUint64(p.CallbackGasLimit),
			p.DataList,
		)
		if err != nil {
			return nil, common.Address{}, fmt.Errorf("failed to pack createGlvWithdrawal: %w", err)
		}
		return data, r.glvRouter, nil

	default:
		return nil, common.Address{}, fmt.Errorf("unknown raw params type %T", params)
	}
}

// Gateway encodes calls to a source chain's bridge contract
type Gateway struct {
	address common.Address
	abi     abi.ABI
	logger  *zap.Logger
}

// NewGateway creates a Gateway for the given bridge contract
func NewGateway(address common.Address, logger *zap.Logger) (*Gateway, error) {
	parsedABI, err := abi.JSON(strings.NewReader(BridgeGatewayABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse bridge gateway ABI: %w", err)
	}

	return &Gateway{
		address: address,
		abi:     parsedABI,
		logger:  logger,
	}, nil
}

// Address returns the bridge contract address
func (g *Gateway) Address() common.Address {
	return g.address
}

// EncodeBridgeIn encodes the bridgeIn call that moves collateral to the
// settlement chain together with the encoded bridge-out instruction
func (g *Gateway) EncodeBridgeIn(token common.Address, amount *big.Int, dstEid uint32, dataList [][32]byte) ([]byte, error) {
	data, err := g.abi.Pack("bridgeIn", token, amount, dstEid, dataList)
	if err != nil {
		return nil, fmt.Errorf("failed to pack bridgeIn: %w", err)
	}
	return data, nil
}
