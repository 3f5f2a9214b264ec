package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/dan13ram/bridge-ledger/app/mocks"
	"github.com/dan13ram/bridge-ledger/ledger"
	"github.com/dan13ram/bridge-ledger/models"
)

func TestMongoStateStoreLoad(t *testing.T) {
	ctx := context.Background()
	store := NewMongoStateStore("test")

	t.Run("Found", func(t *testing.T) {
		mockDB := mocks.NewMockDatabase(t)
		DB = mockDB

		mockDB.EXPECT().FindOne(models.CollectionLedgerState, bson.M{"name": "test"}, mock.Anything).
			Run(func(_ string, _ interface{}, result interface{}) {
				result.(*models.LedgerState).Revision = 7
			}).Return(nil)

		state, err := store.Load(ctx)
		assert.NoError(t, err)
		assert.Equal(t, uint64(7), state.Revision)
	})

	t.Run("Missing", func(t *testing.T) {
		mockDB := mocks.NewMockDatabase(t)
		DB = mockDB

		mockDB.EXPECT().FindOne(models.CollectionLedgerState, mock.Anything, mock.Anything).Return(mongo.ErrNoDocuments)

		_, err := store.Load(ctx)
		assert.True(t, errors.Is(err, ledger.ErrNotInitialized))
	})

	t.Run("Error", func(t *testing.T) {
		mockDB := mocks.NewMockDatabase(t)
		DB = mockDB

		mockDB.EXPECT().FindOne(models.CollectionLedgerState, mock.Anything, mock.Anything).Return(errors.New("timeout"))

		_, err := store.Load(ctx)
		assert.Error(t, err)
		assert.False(t, errors.Is(err, ledger.ErrNotInitialized))
	})
}

func TestMongoStateStoreCreate(t *testing.T) {
	ctx := context.Background()
	store := NewMongoStateStore("test")

	t.Run("Created", func(t *testing.T) {
		mockDB := mocks.NewMockDatabase(t)
		DB = mockDB

		mockDB.EXPECT().InsertOne(models.CollectionLedgerState, mock.Anything).
			Run(func(_ string, data interface{}) {
				doc := data.(*models.LedgerState)
				assert.Equal(t, "test", doc.Name)
				assert.Nil(t, doc.Id)
			}).Return(primitive.NewObjectID(), nil)

		assert.NoError(t, store.Create(ctx, &models.LedgerState{Revision: 1}))
	})

	t.Run("Duplicate", func(t *testing.T) {
		mockDB := mocks.NewMockDatabase(t)
		DB = mockDB

		dup := mongo.WriteException{WriteErrors: []mongo.WriteError{{Code: 11000}}}
		mockDB.EXPECT().InsertOne(models.CollectionLedgerState, mock.Anything).Return(primitive.NilObjectID, dup)

		err := store.Create(ctx, &models.LedgerState{Revision: 1})
		assert.True(t, errors.Is(err, ledger.ErrAlreadyInitialized))
	})
}

func TestMongoStateStoreSave(t *testing.T) {
	ctx := context.Background()
	store := NewMongoStateStore("test")
	id := primitive.NewObjectID()
	state := &models.LedgerState{Id: &id, Revision: 5, TotalMinted: 10}

	t.Run("Saved", func(t *testing.T) {
		mockDB := mocks.NewMockDatabase(t)
		DB = mockDB

		filter := bson.M{"name": "test", "revision": uint64(4)}
		mockDB.EXPECT().UpdateOne(models.CollectionLedgerState, filter, mock.Anything).
			Run(func(_ string, _ interface{}, update interface{}) {
				doc := update.(bson.M)["$set"].(*models.LedgerState)
				assert.Nil(t, doc.Id)
				assert.Equal(t, uint64(10), doc.TotalMinted)
			}).Return(int64(1), nil)

		assert.NoError(t, store.Save(ctx, state))
		assert.NotNil(t, state.Id)
	})

	t.Run("Conflict", func(t *testing.T) {
		mockDB := mocks.NewMockDatabase(t)
		DB = mockDB

		mockDB.EXPECT().UpdateOne(models.CollectionLedgerState, mock.Anything, mock.Anything).Return(int64(0), nil)

		err := store.Save(ctx, state)
		assert.True(t, errors.Is(err, ledger.ErrRevisionConflict))
	})

	t.Run("Error", func(t *testing.T) {
		mockDB := mocks.NewMockDatabase(t)
		DB = mockDB

		mockDB.EXPECT().UpdateOne(models.CollectionLedgerState, mock.Anything, mock.Anything).Return(int64(0), errors.New("timeout"))

		err := store.Save(ctx, state)
		assert.Error(t, err)
		assert.False(t, errors.Is(err, ledger.ErrRevisionConflict))
	})
}

func TestMongoLocker(t *testing.T) {
	locker := NewMongoLocker("test")

	t.Run("Lock And Unlock", func(t *testing.T) {
		mockDB := mocks.NewMockDatabase(t)
		DB = mockDB

		mockDB.EXPECT().XLock("ledger:test").Return("lock-id", nil).Once()
		mockDB.EXPECT().Unlock("lock-id").Return(nil).Once()

		unlock, err := locker.Lock(context.Background())
		assert.NoError(t, err)
		unlock()
	})

	t.Run("Purges Then Retries", func(t *testing.T) {
		mockDB := mocks.NewMockDatabase(t)
		DB = mockDB

		mockDB.EXPECT().XLock("ledger:test").Return("", ErrLocked).Once()
		mockDB.EXPECT().PurgeExpiredLocks().Return(nil).Once()
		mockDB.EXPECT().XLock("ledger:test").Return("lock-id", nil).Once()
		mockDB.EXPECT().Unlock("lock-id").Return(nil).Once()

		unlock, err := locker.Lock(context.Background())
		assert.NoError(t, err)
		unlock()
	})

	t.Run("Context Expires", func(t *testing.T) {
		mockDB := mocks.NewMockDatabase(t)
		DB = mockDB

		mockDB.EXPECT().XLock("ledger:test").Return("", ErrLocked)
		mockDB.EXPECT().PurgeExpiredLocks().Return(nil).Once()

		ctx, cancel := context.WithTimeout(context.Background(), 250*time.Millisecond)
		defer cancel()

		_, err := locker.Lock(ctx)
		assert.True(t, errors.Is(err, context.DeadlineExceeded))
	})

	t.Run("Renews While Held", func(t *testing.T) {
		mockDB := mocks.NewMockDatabase(t)
		DB = mockDB
		fast := NewMongoLocker("test")
		fast.renewEvery = 10 * time.Millisecond

		renewed := make(chan struct{}, 1)
		mockDB.EXPECT().XLock("ledger:test").Return("lock-id", nil).Once()
		mockDB.EXPECT().RenewLock("lock-id").Run(func(string) {
			select {
			case renewed <- struct{}{}:
			default:
			}
		}).Return(nil)
		mockDB.EXPECT().Unlock("lock-id").Return(nil).Once()

		unlock, err := fast.Lock(context.Background())
		assert.NoError(t, err)

		select {
		case <-renewed:
		case <-time.After(time.Second):
			t.Fatal("lock was not renewed")
		}
		unlock()
	})

	t.Run("Renew Error Keeps Holding", func(t *testing.T) {
		mockDB := mocks.NewMockDatabase(t)
		DB = mockDB
		fast := NewMongoLocker("test")
		fast.renewEvery = 10 * time.Millisecond

		renewed := make(chan struct{}, 1)
		mockDB.EXPECT().XLock("ledger:test").Return("lock-id", nil).Once()
		mockDB.EXPECT().RenewLock("lock-id").Run(func(string) {
			select {
			case renewed <- struct{}{}:
			default:
			}
		}).Return(errors.New("lock not found"))
		mockDB.EXPECT().Unlock("lock-id").Return(nil).Once()

		unlock, err := fast.Lock(context.Background())
		assert.NoError(t, err)

		select {
		case <-renewed:
		case <-time.After(time.Second):
			t.Fatal("lock was not renewed")
		}
		unlock()
	})

	t.Run("Lock Error", func(t *testing.T) {
		mockDB := mocks.NewMockDatabase(t)
		DB = mockDB

		mockDB.EXPECT().XLock("ledger:test").Return("", errors.New("connection refused")).Once()

		_, err := locker.Lock(context.Background())
		assert.Error(t, err)
	})
}

func TestLedgerOverMongoStore(t *testing.T) {
	mockDB := mocks.NewMockDatabase(t)
	DB = mockDB

	mockDB.EXPECT().XLock(mock.Anything).Return("lock-id", nil)
	mockDB.EXPECT().Unlock("lock-id").Return(nil)

	var stored *models.LedgerState
	mockDB.EXPECT().FindOne(models.CollectionLedgerState, mock.Anything, mock.Anything).
		RunAndReturn(func(_ string, _ interface{}, result interface{}) error {
			if stored == nil {
				return mongo.ErrNoDocuments
			}
			*result.(*models.LedgerState) = *stored.Clone()
			return nil
		})
	mockDB.EXPECT().InsertOne(models.CollectionLedgerState, mock.Anything).
		RunAndReturn(func(_ string, data interface{}) (primitive.ObjectID, error) {
			stored = data.(*models.LedgerState).Clone()
			return primitive.NewObjectID(), nil
		}).Once()
	mockDB.EXPECT().UpdateOne(models.CollectionLedgerState, mock.Anything, mock.Anything).
		RunAndReturn(func(_ string, filter interface{}, update interface{}) (int64, error) {
			if filter.(bson.M)["revision"] != stored.Revision {
				return 0, nil
			}
			stored = update.(bson.M)["$set"].(*models.LedgerState).Clone()
			return 1, nil
		})

	l, err := ledger.NewBridgeLedger(ledger.Options{
		Name:          "test",
		Authority:     testSigner(t),
		Token:         nopToken{},
		Store:         NewMongoStateStore("test"),
		Locker:        NewMongoLocker("test"),
		Fingerprinter: ledger.FingerprinterFunc(func(models.AttestedMessage) models.Fingerprint { return models.Fingerprint{1} }),
	})
	assert.NoError(t, err)

	authority := models.Identity{0xaa}
	_, err = l.Initialize(context.Background(), authority, 0)
	assert.NoError(t, err)

	assert.NoError(t, l.Pause(context.Background(), authority))

	state, err := l.State(context.Background())
	assert.NoError(t, err)
	assert.True(t, state.Paused)
	assert.Equal(t, uint64(2), state.Revision)
	assert.Equal(t, uint64(2), stored.Revision)
	assert.Equal(t, stored.WriteID, state.WriteID)
	assert.Len(t, stored.RecentWrites, 2)
}
