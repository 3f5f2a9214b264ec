package common

import (
	"crypto/ecdsa"
	"fmt"

	"github.com/cosmos/go-bip39"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	hdwallet "github.com/miguelmota/go-ethereum-hdwallet"
)

// Struct Definition
type MnemonicSigner struct {
	ethAddress common.Address
	ethPrivKey *ecdsa.PrivateKey
}

var _ Signer = &MnemonicSigner{}

func EthereumPrivateKeyFromMnemonic(mnemonic string) (*ecdsa.PrivateKey, error) {
	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, fmt.Errorf("invalid mnemonic")
	}

	wallet, err := hdwallet.NewFromMnemonic(mnemonic)
	if err != nil {
		return nil, fmt.Errorf("failed to create wallet from mnemonic: %w", err)
	}

	path, err := hdwallet.ParseDerivationPath(DefaultETHHDPath)
	if err != nil {
		return nil, fmt.Errorf("failed to parse derivation path: %w", err)
	}

	account, err := wallet.Derive(path, false)
	if err != nil {
		return nil, fmt.Errorf("failed to derive account: %w", err)
	}

	return wallet.PrivateKey(account)
}

// Constructor Function
func NewMnemonicSigner(mnemonic string) (*MnemonicSigner, error) {

	ethPrivKey, err := EthereumPrivateKeyFromMnemonic(mnemonic)
	if err != nil {
		return nil, fmt.Errorf("failed to create ethereum private key: %w", err)
	}

	return NewPrivateKeySigner(ethPrivKey), nil
}

// NewPrivateKeySigner wraps an already loaded key.
func NewPrivateKeySigner(ethPrivKey *ecdsa.PrivateKey) *MnemonicSigner {
	return &MnemonicSigner{
		ethPrivKey: ethPrivKey,
		ethAddress: crypto.PubkeyToAddress(ethPrivKey.PublicKey),
	}
}

// Destructor Function
func (s *MnemonicSigner) Destroy() {
	// nothing to do
}

// Method Implementations
func (s *MnemonicSigner) EthSign(data []byte) ([]byte, error) {
	digest := data
	if len(digest) != 32 {
		digest = crypto.Keccak256(data)
	}
	hash := common.BytesToHash(digest)
	signature, err := crypto.Sign(hash[:], s.ethPrivKey)
	if err != nil {
		return nil, err
	}

	if signature[64] == 0 || signature[64] == 1 {
		signature[64] += 27
	}

	return signature, nil
}

func (s *MnemonicSigner) EthAddress() common.Address {
	return s.ethAddress
}
