package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	CollectionInboundMessages = "inbound_messages"
)

// types of inbound message status
const (
	InboundStatusPending   = "pending"
	InboundStatusSuccess   = "success"
	InboundStatusDuplicate = "duplicate"
	InboundStatusRejected  = "rejected"
	InboundStatusFailed    = "failed"
)

// InboundMessage is an attested message queued by the transport watcher.
type InboundMessage struct {
	Id             *primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	EmitterChain   uint16              `bson:"emitter_chain" json:"emitter_chain"`
	EmitterAddress Identity            `bson:"emitter_address" json:"emitter_address"`
	Sequence       uint64              `bson:"sequence" json:"sequence"`
	Payload        []byte              `bson:"payload" json:"payload"`
	Envelope       []byte              `bson:"envelope" json:"envelope"`
	Status         string              `bson:"status" json:"status"`
	Attempts       int64               `bson:"attempts" json:"attempts"`
	LastError      string              `bson:"last_error" json:"last_error"`
	Fingerprint    string              `bson:"fingerprint" json:"fingerprint"`
	CreatedAt      time.Time           `bson:"created_at" json:"created_at"`
	UpdatedAt      time.Time           `bson:"updated_at" json:"updated_at"`
}

func (m *InboundMessage) Attested() AttestedMessage {
	return AttestedMessage{
		EmitterChain:   m.EmitterChain,
		EmitterAddress: m.EmitterAddress,
		Sequence:       m.Sequence,
		Payload:        m.Payload,
		Envelope:       m.Envelope,
	}
}
