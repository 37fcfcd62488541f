package evm

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"go.uber.org/zap"
)

// RelayPayload is the message a user's key authorizes for gas-sponsored
// execution. The relay router verifies the signature on-chain and pulls the
// fee from the account's gas payment token balance.
type RelayPayload struct {
	Account   common.Address
	To        common.Address // protocol entry point the relayer must call
	Calldata  []byte
	FeeToken  common.Address
	FeeAmount *big.Int
	Nonce     *big.Int
	Deadline  *big.Int
}

// RelaySigner produces EIP-712 signatures over relay payloads
type RelaySigner struct {
	chainID           uint64
	verifyingContract common.Address
	domainName        string
	domainVersion     string
	privateKey        *ecdsa.PrivateKey
	logger            *zap.Logger
}

// NewRelaySigner creates a signer bound to one relay router domain
func NewRelaySigner(
	chainID uint64,
	verifyingContract common.Address,
	domainName, domainVersion string,
	privateKeyHex string,
	logger *zap.Logger,
) (*RelaySigner, error) {
	privateKey, err := crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse relay signing key: %w", err)
	}

	return &RelaySigner{
		chainID:           chainID,
		verifyingContract: verifyingContract,
		domainName:        domainName,
		domainVersion:     domainVersion,
		privateKey:        privateKey,
		logger:            logger,
	}, nil
}

// SignerAddress returns the address the signatures recover to
func (s *RelaySigner) SignerAddress() common.Address {
	return crypto.PubkeyToAddress(s.privateKey.PublicKey)
}

// typedData builds the EIP-712 structure for a payload
func (s *RelaySigner) typedData(p RelayPayload) apitypes.TypedData {
	return apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain": []apitypes.Type{
				{Name: "name", Type: "string"},
				{Name: "version", Type: "string"},
				{Name: "chainId", Type: "uint256"},
				{Name: "verifyingContract", Type: "address"},
			},
			"RelayCall": []apitypes.Type{
				{Name: "account", Type: "address"},
				{Name: "to", Type: "address"},
				{Name: "calldataHash", Type: "bytes32"},
				{Name: "feeToken", Type: "address"},
				{Name: "feeAmount", Type: "uint256"},
				{Name: "nonce", Type: "uint256"},
				{Name: "deadline", Type: "uint256"},
			},
		},
		PrimaryType: "RelayCall",
		Domain: apitypes.TypedDataDomain{
			Name:              s.domainName,
			Version:           s.domainVersion,
			ChainId:           math.NewHexOrDecimal256(int64(s.chainID)),
			VerifyingContract: s.verifyingContract.Hex(),
		},
		Message: apitypes.TypedDataMessage{
			"account":      p.Account.Hex(),
			"to":           p.To.Hex(),
			"calldataHash": hexutil.Encode(crypto.Keccak256(p.Calldata)),
			"feeToken":     p.FeeToken.Hex(),
			"feeAmount":    (*math.HexOrDecimal256)(p.FeeAmount),
			"nonce":        (*math.HexOrDecimal256)(p.Nonce),
			"deadline":     (*math.HexOrDecimal256)(p.Deadline),
		},
	}
}

// Sign hashes the payload per EIP-712 and signs it. The returned signature
// uses the 27/28 recovery id convention expected by on-chain ecrecover.
func (s *RelaySigner) Sign(p RelayPayload) ([]byte, error) {
	typedData := s.typedData(p)

	hash, _, err := apitypes.TypedDataAndHash(typedData)
	if err != nil {
		return nil, fmt.Errorf("failed to hash relay payload: %w", err)
	}

	signature, err := crypto.Sign(hash, s.privateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to sign relay payload: %w", err)
	}

	signature[64] += 27

	s.logger.Debug("Relay payload signed",
		zap.String("account", p.Account.Hex()),
		zap.String("to", p.To.Hex()),
		zap.String("nonce", p.Nonce.String()))

	return signature, nil
}

// Digest returns the EIP-712 digest without signing, for verification in
// other components
func (s *RelaySigner) Digest(p RelayPayload) (common.Hash, error) {
	hash, _, err := apitypes.TypedDataAndHash(s.typedData(p))
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to hash relay payload: %w", err)
	}
	return common.BytesToHash(hash), nil
}
