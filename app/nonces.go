package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dan13ram/bridge-ledger/models"
)

var ErrNonceUsed = errors.New("request nonce already used")

// MongoNonceStore remembers signed request nonces in the request_nonces
// collection. The unique index rejects a second use and the TTL index drops
// entries once a request could no longer pass the timestamp check.
type MongoNonceStore struct {
	ledger string
}

func NewMongoNonceStore(ledger string) *MongoNonceStore {
	return &MongoNonceStore{ledger: ledger}
}

func (s *MongoNonceStore) Remember(ctx context.Context, caller models.Identity, nonce string, expiresAt time.Time) error {
	doc := models.RequestNonce{
		Ledger:    s.ledger,
		Caller:    caller,
		Nonce:     nonce,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now(),
	}
	if _, err := DB.InsertOne(models.CollectionRequestNonces, doc); err != nil {
		if IsDuplicateKeyError(err) {
			return ErrNonceUsed
		}
		return fmt.Errorf("failed to store request nonce: %w", err)
	}
	return nil
}
