package app

import (
	"context"
	"fmt"

	"github.com/dan13ram/bridge-ledger/common"
	"github.com/dan13ram/bridge-ledger/models"
	log "github.com/sirupsen/logrus"
)

// CreateSigner builds the ledger credential from a mnemonic or a KMS key.
// A mnemonic wins when both are configured.
func CreateSigner(ctx context.Context) (common.Signer, error) {
	config := Config.Signer
	if config.Mnemonic == "" && config.GcpKmsKeyName == "" {
		return nil, fmt.Errorf("both Mnemonic and GcpKmsKeyName are empty")
	}

	if config.Mnemonic != "" {
		signer, err := common.NewMnemonicSigner(config.Mnemonic)
		if err != nil {
			return nil, fmt.Errorf("error initializing mnemonic signer: %w", err)
		}
		log.Debugf("[SIGNER] Mnemonic signer address: %s", signer.EthAddress().Hex())
		return signer, nil
	}

	signer, err := common.NewGcpKmsSigner(ctx, config.GcpKmsKeyName)
	if err != nil {
		return nil, fmt.Errorf("error initializing gcp kms signer: %w", err)
	}
	log.Debugf("[SIGNER] GCP KMS signer address: %s", signer.EthAddress().Hex())
	return signer, nil
}

// LedgerAuthority is the configured admin identity, or the signer's own when unset.
func LedgerAuthority(signer common.Signer) (models.Identity, error) {
	if Config.Ledger.Authority == "" {
		return common.IdentityFromAddress(signer.EthAddress()), nil
	}
	return common.ParseIdentityOrAddress(Config.Ledger.Authority)
}

func TrustedEmitters() ([]models.TrustedEmitter, error) {
	var emitters []models.TrustedEmitter
	for i, e := range Config.Ledger.TrustedEmitters {
		emitter, err := common.ParseIdentityOrAddress(e.Emitter)
		if err != nil {
			return nil, fmt.Errorf("trusted emitter [%d]: %w", i, err)
		}
		emitters = append(emitters, models.TrustedEmitter{ChainID: e.ChainID, Emitter: emitter})
	}
	return emitters, nil
}
