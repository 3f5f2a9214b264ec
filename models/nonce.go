package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const CollectionRequestNonces = "request_nonces"

// RequestNonce marks a signed api request as used until it expires.
type RequestNonce struct {
	Id        *primitive.ObjectID `bson:"_id,omitempty"`
	Ledger    string              `bson:"ledger"`
	Caller    Identity            `bson:"caller"`
	Nonce     string              `bson:"nonce"`
	ExpiresAt time.Time           `bson:"expires_at"`
	CreatedAt time.Time           `bson:"created_at"`
}
