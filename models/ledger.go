package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	CollectionLedgerState = "ledger_state"

	LedgerSchemaVersion = 1
)

type TrustedEmitter struct {
	ChainID uint16   `bson:"chain_id" json:"chain_id"`
	Emitter Identity `bson:"emitter" json:"emitter"`
}

// LedgerState is the single persisted record of a bridge ledger instance.
type LedgerState struct {
	Id            *primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	Name          string              `bson:"name" json:"name"`
	SchemaVersion int                 `bson:"schema_version" json:"schema_version"`
	Revision      uint64              `bson:"revision" json:"revision"`

	// WriteID is unique per committed revision. RecentWrites keeps the last
	// few so a writer can tell whether its own save landed.
	WriteID      string   `bson:"write_id" json:"write_id"`
	RecentWrites []string `bson:"recent_writes" json:"-"`

	Authority Identity `bson:"authority" json:"authority"`
	ChainID   uint16   `bson:"chain_id" json:"chain_id"`

	TotalBurned uint64 `bson:"total_burned" json:"total_burned"`
	TotalMinted uint64 `bson:"total_minted" json:"total_minted"`

	DailyBurnLimit  uint64 `bson:"daily_burn_limit" json:"daily_burn_limit"`
	DailyBurnAmount uint64 `bson:"daily_burn_amount" json:"daily_burn_amount"`
	LastBurnReset   int64  `bson:"last_burn_reset" json:"last_burn_reset"`

	Paused bool `bson:"paused" json:"paused"`

	CurrentPrice    uint64 `bson:"current_price" json:"current_price"`
	PriceConfidence uint64 `bson:"price_confidence" json:"price_confidence"`
	PriceTimestamp  int64  `bson:"price_timestamp" json:"price_timestamp"`

	ProcessedFingerprints []Fingerprint    `bson:"processed_fingerprints" json:"processed_fingerprints"`
	TrustedEmitters       []TrustedEmitter `bson:"trusted_emitters" json:"trusted_emitters"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// Clone returns a deep copy so callers can mutate it without touching the original.
func (s *LedgerState) Clone() *LedgerState {
	if s == nil {
		return nil
	}
	c := *s
	if s.Id != nil {
		id := *s.Id
		c.Id = &id
	}
	c.ProcessedFingerprints = append([]Fingerprint(nil), s.ProcessedFingerprints...)
	c.TrustedEmitters = append([]TrustedEmitter(nil), s.TrustedEmitters...)
	c.RecentWrites = append([]string(nil), s.RecentWrites...)
	return &c
}

type PriceSnapshot struct {
	Price      uint64 `json:"price"`
	Confidence uint64 `json:"confidence"`
	Timestamp  int64  `json:"timestamp"`
}

// PriceReading is an oracle observation handed to the ledger.
type PriceReading struct {
	Price       int64     `json:"price"`
	Confidence  uint64    `json:"confidence"`
	Exponent    int32     `json:"exponent"`
	PublishTime time.Time `json:"publish_time"`
	Trading     bool      `json:"trading"`
}
