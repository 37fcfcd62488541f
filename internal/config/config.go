package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the service
type Config struct {
	Server       ServerConfig
	Database     DatabaseConfig
	Settlement   SettlementConfig
	SourceChains map[uint64]SourceChainConfig
	Relay        RelayConfig
	Slippage     SlippageConfig
	GasLimits    GasLimitConfig
	Operator     OperatorConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port int
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// SettlementConfig holds configuration for the settlement chain, where the
// protocol contracts and the liquidity pools live
type SettlementConfig struct {
	ChainID            uint64
	Name               string
	RPCEndpoint        string
	ExchangeRouter     string // deposit/withdrawal entry point
	GlvRouter          string // GLV deposit/withdrawal entry point
	RouterSpender      string // token spender checked for allowances
	WrappedNativeToken string
	CallbackGasLimit   uint64
}

// SourceChainConfig holds configuration for a chain users can fund
// operations from via a cross-chain bridge
type SourceChainConfig struct {
	ChainID          uint64
	Name             string
	RPCEndpoint      string
	BridgeGateway    string // bridge contract, also the allowance spender
	EndpointID       uint32 // bridge endpoint id for this chain
	QuoteEndpoint    string // bridge provider REST endpoint for fee quotes
	NativeTokenPrice string // optional static USD price override
}

// RelayConfig holds parameters for relayed (GMX account) execution
type RelayConfig struct {
	RelayRouter     string // verifying contract for the signed relay payload
	GasPaymentToken string
	RelayFeeToken   string
	DomainName      string
	DomainVersion   string
}

// SlippageConfig holds minimum-output guard parameters
type SlippageConfig struct {
	DefaultBps       uint16 // e.g. 30 = 0.3%
	DeadlineDuration time.Duration
}

// GasLimitConfig parameterizes the execution gas model
type GasLimitConfig struct {
	DepositBase       uint64
	WithdrawalBase    uint64
	GlvDepositBase    uint64
	GlvWithdrawalBase uint64
	PerGlvMarket      uint64
	PerSwapHop        uint64
}

// OperatorConfig holds signing key configuration
type OperatorConfig struct {
	PrivateKey string // hex-encoded ECDSA key for EVM transactions
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port: getEnvInt("SERVER_PORT", 8080),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "omnipool"),
			SSLMode:  getEnv("DB_SSL_MODE", "disable"),
		},
		Settlement: SettlementConfig{
			ChainID:            uint64(getEnvInt("SETTLEMENT_CHAIN_ID", 42161)),
			Name:               getEnv("SETTLEMENT_CHAIN_NAME", "Arbitrum"),
			RPCEndpoint:        getEnv("SETTLEMENT_RPC_ENDPOINT", ""),
			ExchangeRouter:     getEnv("SETTLEMENT_EXCHANGE_ROUTER", ""),
			GlvRouter:          getEnv("SETTLEMENT_GLV_ROUTER", ""),
			RouterSpender:      getEnv("SETTLEMENT_ROUTER_SPENDER", ""),
			WrappedNativeToken: getEnv("SETTLEMENT_WRAPPED_NATIVE", ""),
			CallbackGasLimit:   uint64(getEnvInt("SETTLEMENT_CALLBACK_GAS_LIMIT", 200000)),
		},
		Relay: RelayConfig{
			RelayRouter:     getEnv("RELAY_ROUTER", ""),
			GasPaymentToken: getEnv("RELAY_GAS_PAYMENT_TOKEN", ""),
			RelayFeeToken:   getEnv("RELAY_FEE_TOKEN", ""),
			DomainName:      getEnv("RELAY_DOMAIN_NAME", "GmxBaseGelatoRelayRouter"),
			DomainVersion:   getEnv("RELAY_DOMAIN_VERSION", "1"),
		},
		Slippage: SlippageConfig{
			DefaultBps:       uint16(getEnvInt("SLIPPAGE_BPS", 30)),
			DeadlineDuration: time.Duration(getEnvInt("BRIDGE_DEADLINE_MINUTES", 30)) * time.Minute,
		},
		GasLimits: GasLimitConfig{
			DepositBase:       uint64(getEnvInt("GAS_DEPOSIT_BASE", 1500000)),
			WithdrawalBase:    uint64(getEnvInt("GAS_WITHDRAWAL_BASE", 1500000)),
			GlvDepositBase:    uint64(getEnvInt("GAS_GLV_DEPOSIT_BASE", 2000000)),
			GlvWithdrawalBase: uint64(getEnvInt("GAS_GLV_WITHDRAWAL_BASE", 2000000)),
			PerGlvMarket:      uint64(getEnvInt("GAS_PER_GLV_MARKET", 100000)),
			PerSwapHop:        uint64(getEnvInt("GAS_PER_SWAP_HOP", 150000)),
		},
		Operator: OperatorConfig{
			PrivateKey: getEnv("OPERATOR_PRIVATE_KEY", ""),
		},
		SourceChains: make(map[uint64]SourceChainConfig),
	}

	if err := loadSourceChains(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// loadSourceChains loads configuration for all supported source chains
func loadSourceChains(cfg *Config) error {
	// Ethereum
	if rpc := getEnv("ETH_RPC_ENDPOINT", ""); rpc != "" {
		cfg.SourceChains[1] = SourceChainConfig{
			ChainID:       1,
			Name:          "Ethereum",
			RPCEndpoint:   rpc,
			BridgeGateway: getEnv("ETH_BRIDGE_GATEWAY", ""),
			EndpointID:    uint32(getEnvInt("ETH_BRIDGE_ENDPOINT_ID", 30101)),
			QuoteEndpoint: getEnv("ETH_BRIDGE_QUOTE_ENDPOINT", ""),
		}
	}

	// Base
	if rpc := getEnv("BASE_RPC_ENDPOINT", ""); rpc != "" {
		cfg.SourceChains[8453] = SourceChainConfig{
			ChainID:       8453,
			Name:          "Base",
			RPCEndpoint:   rpc,
			BridgeGateway: getEnv("BASE_BRIDGE_GATEWAY", ""),
			EndpointID:    uint32(getEnvInt("BASE_BRIDGE_ENDPOINT_ID", 30184)),
			QuoteEndpoint: getEnv("BASE_BRIDGE_QUOTE_ENDPOINT", ""),
		}
	}

	// Avalanche
	if rpc := getEnv("AVAX_RPC_ENDPOINT", ""); rpc != "" {
		cfg.SourceChains[43114] = SourceChainConfig{
			ChainID:       43114,
			Name:          "Avalanche",
			RPCEndpoint:   rpc,
			BridgeGateway: getEnv("AVAX_BRIDGE_GATEWAY", ""),
			EndpointID:    uint32(getEnvInt("AVAX_BRIDGE_ENDPOINT_ID", 30106)),
			QuoteEndpoint: getEnv("AVAX_BRIDGE_QUOTE_ENDPOINT", ""),
		}
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}

	if c.Settlement.RPCEndpoint == "" {
		return fmt.Errorf("settlement chain RPC endpoint is required")
	}

	if c.Slippage.DefaultBps >= 10000 {
		return fmt.Errorf("slippage bps must be below 10000, got %d", c.Slippage.DefaultBps)
	}

	for chainID, sc := range c.SourceChains {
		if sc.BridgeGateway == "" {
			return fmt.Errorf("bridge gateway is required for source chain %d", chainID)
		}
	}

	return nil
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
