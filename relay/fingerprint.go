package relay

import (
	"encoding/binary"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/dan13ram/bridge-ledger/ledger"
	"github.com/dan13ram/bridge-ledger/models"
)

// Fingerprint is keccak256 of the attestation envelope. Messages relayed
// without an envelope are keyed by emitter chain, emitter, sequence and
// payload instead.
func Fingerprint(msg models.AttestedMessage) models.Fingerprint {
	if len(msg.Envelope) > 0 {
		return models.Fingerprint(crypto.Keccak256Hash(msg.Envelope))
	}

	var header [2 + models.Bytes32Length + 8]byte
	binary.BigEndian.PutUint16(header[0:2], msg.EmitterChain)
	copy(header[2:2+models.Bytes32Length], msg.EmitterAddress[:])
	binary.BigEndian.PutUint64(header[2+models.Bytes32Length:], msg.Sequence)
	return models.Fingerprint(crypto.Keccak256Hash(header[:], msg.Payload))
}

var KeccakFingerprinter ledger.Fingerprinter = ledger.FingerprinterFunc(Fingerprint)
