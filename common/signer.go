package common

import (
	"github.com/ethereum/go-ethereum/common"
)

// Signer is the credential the bridge ledger holds as its authority.
// It signs 32 byte digests (or keccak256 of longer data) with 27/28 recovery ids.
type Signer interface {
	EthSign(data []byte) ([]byte, error)
	EthAddress() common.Address
	Destroy()
}
