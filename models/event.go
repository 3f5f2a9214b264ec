package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	CollectionEvents = "events"

	EventBurnInitiated = "burn_initiated"
	EventMintCompleted = "mint_completed"
	EventPriceUpdated  = "price_updated"
	EventTrustAdded    = "trust_added"
	EventTrustRemoved  = "trust_removed"
	EventPauseChanged  = "pause_changed"
	EventInitialized   = "initialized"
)

// Event is an observable outcome of a successful mutating operation.
type Event interface {
	EventType() string
}

type BurnInitiated struct {
	Caller      Identity `bson:"caller" json:"caller"`
	Amount      uint64   `bson:"amount" json:"amount"`
	TargetChain uint16   `bson:"target_chain" json:"target_chain"`
	Recipient   Identity `bson:"recipient" json:"recipient"`
	Nonce       uint32   `bson:"nonce" json:"nonce"`
}

func (BurnInitiated) EventType() string { return EventBurnInitiated }

type MintCompleted struct {
	Recipient   Identity    `bson:"recipient" json:"recipient"`
	Amount      uint64      `bson:"amount" json:"amount"`
	SourceChain uint16      `bson:"source_chain" json:"source_chain"`
	Fingerprint Fingerprint `bson:"fingerprint" json:"fingerprint"`
}

func (MintCompleted) EventType() string { return EventMintCompleted }

type PriceUpdated struct {
	Price      uint64 `bson:"price" json:"price"`
	Confidence uint64 `bson:"confidence" json:"confidence"`
	Timestamp  int64  `bson:"timestamp" json:"timestamp"`
}

func (PriceUpdated) EventType() string { return EventPriceUpdated }

type TrustAdded struct {
	ChainID uint16   `bson:"chain_id" json:"chain_id"`
	Emitter Identity `bson:"emitter" json:"emitter"`
}

func (TrustAdded) EventType() string { return EventTrustAdded }

type TrustRemoved struct {
	ChainID uint16   `bson:"chain_id" json:"chain_id"`
	Emitter Identity `bson:"emitter" json:"emitter"`
}

func (TrustRemoved) EventType() string { return EventTrustRemoved }

type PauseChanged struct {
	Paused bool     `bson:"paused" json:"paused"`
	Caller Identity `bson:"caller" json:"caller"`
}

func (PauseChanged) EventType() string { return EventPauseChanged }

type Initialized struct {
	Authority     Identity `bson:"authority" json:"authority"`
	InitialSupply uint64   `bson:"initial_supply" json:"initial_supply"`
}

func (Initialized) EventType() string { return EventInitialized }

// EventRecord is how events are stored and published.
type EventRecord struct {
	Id        *primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	Ledger    string              `bson:"ledger" json:"ledger"`
	Type      string              `bson:"type" json:"type"`
	Data      Event               `bson:"data" json:"data"`
	CreatedAt time.Time           `bson:"created_at" json:"created_at"`
}
