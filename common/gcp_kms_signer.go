package common

import (
	"context"
	"crypto/x509/pkix"
	"encoding/asn1"
	"encoding/pem"
	"fmt"
	"math/big"
	"time"

	kms "cloud.google.com/go/kms/apiv1"
	"cloud.google.com/go/kms/apiv1/kmspb"
	btcecdsa "github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	gax "github.com/googleapis/gax-go/v2"
)

const kmsCallTimeout = 30 * time.Second

type GCPKeyManagementClient interface {
	Close() error
	GetPublicKey(ctx context.Context, req *kmspb.GetPublicKeyRequest, opts ...gax.CallOption) (*kmspb.PublicKey, error)
	AsymmetricSign(ctx context.Context, req *kmspb.AsymmetricSignRequest, opts ...gax.CallOption) (*kmspb.AsymmetricSignResponse, error)
	GetCryptoKeyVersion(ctx context.Context, req *kmspb.GetCryptoKeyVersionRequest, opts ...gax.CallOption) (*kmspb.CryptoKeyVersion, error)
}

// GcpKmsSigner keeps the authority key inside Cloud KMS. Only the public
// key is resolved locally.
type GcpKmsSigner struct {
	client     GCPKeyManagementClient
	keyName    string
	ethAddress common.Address
}

var _ Signer = &GcpKmsSigner{}

var NewGCPKeyManagementClient = func(ctx context.Context) (GCPKeyManagementClient, error) {
	return kms.NewKeyManagementClient(ctx)
}

func NewGcpKmsSigner(ctx context.Context, keyName string) (*GcpKmsSigner, error) {
	client, err := NewGCPKeyManagementClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create KMS client: %w", err)
	}

	signer, err := newGcpKmsSignerWithClient(ctx, client, keyName)
	if err != nil {
		client.Close()
		return nil, err
	}
	return signer, nil
}

func newGcpKmsSignerWithClient(ctx context.Context, client GCPKeyManagementClient, keyName string) (*GcpKmsSigner, error) {
	version, err := client.GetCryptoKeyVersion(ctx, &kmspb.GetCryptoKeyVersionRequest{Name: keyName})
	if err != nil {
		return nil, fmt.Errorf("failed to get key version details: %w", err)
	}

	if version.Algorithm != kmspb.CryptoKeyVersion_EC_SIGN_SECP256K1_SHA256 {
		return nil, fmt.Errorf("key algorithm %s is not EC_SIGN_SECP256K1_SHA256", version.Algorithm)
	}

	pubKeyBytes, err := resolvePubKeyBytes(ctx, client, keyName)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve public key: %w", err)
	}

	ethPublicKey, err := crypto.UnmarshalPubkey(pubKeyBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal public key: %w", err)
	}

	return &GcpKmsSigner{
		client:     client,
		keyName:    keyName,
		ethAddress: crypto.PubkeyToAddress(*ethPublicKey),
	}, nil
}

func (s *GcpKmsSigner) Destroy() {
	s.client.Close()
}

func (s *GcpKmsSigner) EthAddress() common.Address {
	return s.ethAddress
}

func (s *GcpKmsSigner) EthSign(data []byte) ([]byte, error) {
	digest := data
	if len(digest) != 32 {
		digest = crypto.Keccak256(data)
	}
	hash := common.BytesToHash(digest)

	ctx, cancel := context.WithTimeout(context.Background(), kmsCallTimeout)
	defer cancel()

	resp, err := s.client.AsymmetricSign(ctx, &kmspb.AsymmetricSignRequest{
		Name: s.keyName,
		Digest: &kmspb.Digest{
			Digest: &kmspb.Digest_Sha256{
				Sha256: hash[:],
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("asymmetric sign operation: %w", err)
	}

	return recoverableSignature(hash, resp.Signature, s.ethAddress)
}

func resolvePubKeyBytes(ctx context.Context, client GCPKeyManagementClient, keyName string) ([]byte, error) {
	publicKeyResp, err := client.GetPublicKey(ctx, &kmspb.GetPublicKeyRequest{Name: keyName})
	if err != nil {
		return nil, fmt.Errorf("failed to get public key: %w", err)
	}

	block, _ := pem.Decode([]byte(publicKeyResp.Pem))
	if block == nil {
		return nil, fmt.Errorf("public key %q PEM empty: %.130q", keyName, publicKeyResp.Pem)
	}

	var info struct {
		AlgID pkix.AlgorithmIdentifier
		Key   asn1.BitString
	}
	if _, err = asn1.Unmarshal(block.Bytes, &info); err != nil {
		return nil, fmt.Errorf("public key %q PEM block %q: %w", keyName, block.Type, err)
	}

	if gotAlg := info.AlgID.Algorithm; !gotAlg.Equal(oidPublicKeyECDSA) {
		return nil, fmt.Errorf("public key %q ASN.1 algorithm %s instead of %s", keyName, gotAlg, oidPublicKeyECDSA)
	}

	return info.Key.Bytes, nil
}

// recoverableSignature turns a DER (r, s) pair into the 65 byte [r || s || v]
// form, finding v by recovering the public key and matching the address.
func recoverableSignature(hash common.Hash, der []byte, ethAddress common.Address) ([]byte, error) {
	var params struct{ R, S *big.Int }
	if _, err := asn1.Unmarshal(der, &params); err != nil {
		return nil, fmt.Errorf("asymmetric signature encoding: %w", err)
	}

	var rLen, sLen int
	if params.R != nil {
		rLen = (params.R.BitLen() + 7) / 8
	}
	if params.S != nil {
		sLen = (params.S.BitLen() + 7) / 8
	}
	if rLen == 0 || rLen > 32 || sLen == 0 || sLen > 32 {
		return nil, fmt.Errorf("asymmetric signature with %d-byte r and %d-byte s denied on size", rLen, sLen)
	}

	// compact form: 1 byte header, r, s, then one spare byte for the ethereum v
	var sig [66]byte
	params.R.FillBytes(sig[33-rLen : 33])
	params.S.FillBytes(sig[65-sLen : 65])

	var recoverErr error
	for recoveryID := byte(0); recoveryID < 2; recoveryID++ {
		sig[0] = recoveryID + 27
		pubKey, _, err := btcecdsa.RecoverCompact(sig[:65], hash[:])
		if err != nil {
			recoverErr = err
			continue
		}

		pubKeyECDSA := pubKey.ToECDSA()
		if crypto.PubkeyToAddress(*pubKeyECDSA) != ethAddress {
			continue
		}

		final := make([]byte, 65)
		copy(final, sig[1:65])
		final[64] = recoveryID

		recovered, err := crypto.SigToPub(hash[:], final)
		if err != nil {
			return nil, fmt.Errorf("failed to recover public key: %w", err)
		}
		if crypto.PubkeyToAddress(*recovered) != ethAddress {
			return nil, fmt.Errorf("recovered address mismatch")
		}

		final[64] += 27
		return final, nil
	}

	if recoverErr != nil {
		return nil, fmt.Errorf("asymmetric signature address recovery failed: %w", recoverErr)
	}
	return nil, fmt.Errorf("signature address mismatch")
}
