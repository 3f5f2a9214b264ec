package eth

import (
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/dan13ram/bridge-ledger/common"
)

// NewSignerTransactor builds transact options that sign with the ledger
// credential, whether it is a local key or a KMS key.
func NewSignerTransactor(signer common.Signer, chainID *big.Int) *bind.TransactOpts {
	from := signer.EthAddress()
	txSigner := types.LatestSignerForChainID(chainID)

	return &bind.TransactOpts{
		From: from,
		Signer: func(address ethcommon.Address, tx *types.Transaction) (*types.Transaction, error) {
			if address != from {
				return nil, bind.ErrNotAuthorized
			}
			hash := txSigner.Hash(tx)
			sig, err := signer.EthSign(hash[:])
			if err != nil {
				return nil, err
			}
			// signers return 27/28, transactions expect 0/1
			sig = append([]byte(nil), sig...)
			if sig[64] >= 27 {
				sig[64] -= 27
			}
			return tx.WithSignature(txSigner, sig)
		},
	}
}
