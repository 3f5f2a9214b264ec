package models

import (
	"fmt"
)

// Action tags a cross-chain message. The numeric values are part of the wire format.
type Action uint8

const (
	ActionBurn Action = 1
	ActionMint Action = 2
)

func (a Action) String() string {
	switch a {
	case ActionBurn:
		return "burn"
	case ActionMint:
		return "mint"
	}
	return fmt.Sprintf("unknown(%d)", uint8(a))
}

type CrossChainMessage struct {
	Action      Action   `json:"action"`
	Amount      uint64   `json:"amount"`
	Recipient   Identity `json:"recipient"`
	SourceChain uint16   `json:"source_chain"`
	TargetChain uint16   `json:"target_chain"`
	Nonce       uint32   `json:"nonce"`
}

// AttestedMessage is a payload the transport has already verified.
type AttestedMessage struct {
	EmitterChain   uint16   `json:"emitter_chain"`
	EmitterAddress Identity `json:"emitter_address"`
	Sequence       uint64   `json:"sequence"`
	Payload        []byte   `json:"payload"`
	// Envelope is the full encoded attestation the payload was taken from.
	Envelope []byte `json:"envelope"`
}
