package common

import (
	"fmt"
	"strings"

	"github.com/dan13ram/bridge-ledger/models"
	"github.com/ethereum/go-ethereum/common"
)

// IdentityFromAddress left-pads an EVM address to a 32 byte identity.
func IdentityFromAddress(address common.Address) models.Identity {
	var id models.Identity
	copy(id[models.Bytes32Length-AddressLength:], address.Bytes())
	return id
}

// AddressFromIdentity is the inverse of IdentityFromAddress. Identities with
// non-zero high bytes are not EVM addresses.
func AddressFromIdentity(id models.Identity) (common.Address, error) {
	for _, b := range id[:models.Bytes32Length-AddressLength] {
		if b != 0 {
			return common.Address{}, fmt.Errorf("identity %s is not an evm address", id.Hex())
		}
	}
	return common.BytesToAddress(id[models.Bytes32Length-AddressLength:]), nil
}

func IsValidEthereumAddress(address string) bool {
	return common.IsHexAddress(address)
}

// ParseIdentityOrAddress accepts either a 32 byte hex identity or a 20 byte EVM address.
func ParseIdentityOrAddress(s string) (models.Identity, error) {
	s = strings.TrimSpace(s)
	if IsValidEthereumAddress(s) {
		return IdentityFromAddress(common.HexToAddress(s)), nil
	}
	return models.ParseIdentity(s)
}
