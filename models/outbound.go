package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	CollectionOutboundMessages = "outbound_messages"
)

// types of outbound message status
const (
	OutboundStatusPending = "pending"
	OutboundStatusSent    = "sent"
)

// OutboundMessage is an announced burn waiting for the transport to pick it up.
type OutboundMessage struct {
	Id          *primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	MessageId   string              `bson:"message_id" json:"message_id"`
	Recipient   Identity            `bson:"recipient" json:"recipient"`
	Amount      uint64              `bson:"amount" json:"amount"`
	SourceChain uint16              `bson:"source_chain" json:"source_chain"`
	TargetChain uint16              `bson:"target_chain" json:"target_chain"`
	Nonce       uint32              `bson:"nonce" json:"nonce"`
	Payload     string              `bson:"payload" json:"payload"`
	Status      string              `bson:"status" json:"status"`
	CreatedAt   time.Time           `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time           `bson:"updated_at" json:"updated_at"`
}
