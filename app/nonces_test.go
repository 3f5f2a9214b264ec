package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/dan13ram/bridge-ledger/app/mocks"
	"github.com/dan13ram/bridge-ledger/models"
)

func TestMongoNonceStore(t *testing.T) {
	ctx := context.Background()
	store := NewMongoNonceStore("test")
	caller := models.Identity{0x0a}
	expiresAt := time.Unix(1_700_000_060, 0)

	t.Run("Remembered", func(t *testing.T) {
		mockDB := mocks.NewMockDatabase(t)
		DB = mockDB

		mockDB.EXPECT().InsertOne(models.CollectionRequestNonces, mock.Anything).
			Run(func(_ string, data interface{}) {
				doc := data.(models.RequestNonce)
				assert.Equal(t, "test", doc.Ledger)
				assert.Equal(t, caller, doc.Caller)
				assert.Equal(t, "nonce-1", doc.Nonce)
				assert.Equal(t, expiresAt, doc.ExpiresAt)
			}).Return(primitive.NewObjectID(), nil).Once()

		assert.NoError(t, store.Remember(ctx, caller, "nonce-1", expiresAt))
	})

	t.Run("Used Twice", func(t *testing.T) {
		mockDB := mocks.NewMockDatabase(t)
		DB = mockDB

		dup := mongo.WriteException{WriteErrors: []mongo.WriteError{{Code: 11000}}}
		mockDB.EXPECT().InsertOne(models.CollectionRequestNonces, mock.Anything).Return(primitive.NilObjectID, dup).Once()

		err := store.Remember(ctx, caller, "nonce-1", expiresAt)
		assert.ErrorIs(t, err, ErrNonceUsed)
	})

	t.Run("Insert Error", func(t *testing.T) {
		mockDB := mocks.NewMockDatabase(t)
		DB = mockDB

		mockDB.EXPECT().InsertOne(models.CollectionRequestNonces, mock.Anything).Return(primitive.NilObjectID, errors.New("timeout")).Once()

		err := store.Remember(ctx, caller, "nonce-1", expiresAt)
		assert.Error(t, err)
		assert.False(t, errors.Is(err, ErrNonceUsed))
	})
}
