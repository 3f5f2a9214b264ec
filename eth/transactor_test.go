package eth

import (
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"

	"github.com/dan13ram/bridge-ledger/common"
)

type failingSigner struct {
	common.Signer
}

func (failingSigner) EthSign([]byte) ([]byte, error) {
	return nil, errors.New("sign error")
}

func testTx(chainID *big.Int) *types.Transaction {
	to := ethcommon.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")
	return types.NewTx(&types.DynamicFeeTx{
		ChainID:   chainID,
		Nonce:     7,
		GasTipCap: big.NewInt(1),
		GasFeeCap: big.NewInt(100),
		Gas:       60000,
		To:        &to,
		Data:      []byte{0x40, 0xc1, 0x0f, 0x19},
	})
}

func TestNewSignerTransactor(t *testing.T) {
	key, _ := crypto.GenerateKey()
	signer := common.NewPrivateKeySigner(key)
	chainID := big.NewInt(31337)

	opts := NewSignerTransactor(signer, chainID)
	assert.Equal(t, signer.EthAddress(), opts.From)

	t.Run("Signs For Sender", func(t *testing.T) {
		signed, err := opts.Signer(opts.From, testTx(chainID))
		assert.NoError(t, err)

		sender, err := types.Sender(types.LatestSignerForChainID(chainID), signed)
		assert.NoError(t, err)
		assert.Equal(t, signer.EthAddress(), sender)
	})

	t.Run("Other Address", func(t *testing.T) {
		signed, err := opts.Signer(ethcommon.HexToAddress("0x01"), testTx(chainID))
		assert.ErrorIs(t, err, bind.ErrNotAuthorized)
		assert.Nil(t, signed)
	})

	t.Run("Sign Error", func(t *testing.T) {
		opts := NewSignerTransactor(failingSigner{signer}, chainID)
		signed, err := opts.Signer(opts.From, testTx(chainID))
		assert.Error(t, err)
		assert.Nil(t, signed)
	})
}
