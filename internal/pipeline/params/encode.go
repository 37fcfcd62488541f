package params

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// bridgeOutSentinel marks a data list as carrying a bridge-out instruction.
// Contracts that do not understand the marker treat the list as opaque.
var bridgeOutSentinel = [32]byte(crypto.Keccak256Hash([]byte("OMNIPOOL_BRIDGE_OUT_V1")))

// BridgeOutAction describes how funds should be routed off the settlement
// chain after the operation executes
type BridgeOutAction struct {
	Deadline          *big.Int       // unix seconds
	DestinationChain  uint64
	EndpointID        uint32
	Provider          common.Address // bridge pool for the primary leg
	SecondaryProvider common.Address // zero unless a second leg exists
	MinAmountOut      *big.Int
}

// EncodeBridgeOut serializes a bridge-out action into fixed-width chunks:
// the sentinel, the hash of the routing tuple, and the minimum output word.
// The encoding is deterministic for a fixed deadline.
func EncodeBridgeOut(action BridgeOutAction) [][32]byte {
	routing := make([]byte, 0, 5*32)
	routing = append(routing, common.LeftPadBytes(action.Deadline.Bytes(), 32)...)
	routing = append(routing, common.LeftPadBytes(new(big.Int).SetUint64(action.DestinationChain).Bytes(), 32)...)
	routing = append(routing, common.LeftPadBytes(new(big.Int).SetUint64(uint64(action.EndpointID)).Bytes(), 32)...)
	routing = append(routing, common.LeftPadBytes(action.Provider.Bytes(), 32)...)
	routing = append(routing, common.LeftPadBytes(action.SecondaryProvider.Bytes(), 32)...)

	var routingHash [32]byte
	copy(routingHash[:], crypto.Keccak256(routing))

	var minOut [32]byte
	copy(minOut[:], common.LeftPadBytes(action.MinAmountOut.Bytes(), 32))

	return [][32]byte{bridgeOutSentinel, routingHash, minOut}
}
