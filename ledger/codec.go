package ledger

import (
	"encoding/binary"
	"fmt"

	"github.com/dan13ram/bridge-ledger/models"
)

// MessageLength is the size of an encoded cross-chain message:
// tag(1) amount(8) recipient(32) source(2) target(2) nonce(4), little endian.
const MessageLength = 1 + 8 + models.Bytes32Length + 2 + 2 + 4

func EncodeMessage(msg models.CrossChainMessage) []byte {
	buf := make([]byte, MessageLength)
	buf[0] = byte(msg.Action)
	binary.LittleEndian.PutUint64(buf[1:9], msg.Amount)
	copy(buf[9:41], msg.Recipient[:])
	binary.LittleEndian.PutUint16(buf[41:43], msg.SourceChain)
	binary.LittleEndian.PutUint16(buf[43:45], msg.TargetChain)
	binary.LittleEndian.PutUint32(buf[45:49], msg.Nonce)
	return buf
}

// DecodeMessage rejects anything that is not exactly one well-tagged message.
func DecodeMessage(payload []byte) (models.CrossChainMessage, error) {
	var msg models.CrossChainMessage
	if len(payload) != MessageLength {
		return msg, fmt.Errorf("%w: expected %d bytes, got %d", ErrMalformedMessage, MessageLength, len(payload))
	}

	action := models.Action(payload[0])
	switch action {
	case models.ActionBurn, models.ActionMint:
	default:
		return msg, fmt.Errorf("%w: unknown action tag %d", ErrMalformedMessage, payload[0])
	}

	msg.Action = action
	msg.Amount = binary.LittleEndian.Uint64(payload[1:9])
	copy(msg.Recipient[:], payload[9:41])
	msg.SourceChain = binary.LittleEndian.Uint16(payload[41:43])
	msg.TargetChain = binary.LittleEndian.Uint16(payload[43:45])
	msg.Nonce = binary.LittleEndian.Uint32(payload[45:49])
	return msg, nil
}
