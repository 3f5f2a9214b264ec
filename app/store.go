package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/dan13ram/bridge-ledger/ledger"
	"github.com/dan13ram/bridge-ledger/models"
)

// MongoStateStore keeps one ledger record per name in the ledger_state collection.
type MongoStateStore struct {
	name string
}

var _ ledger.Store = &MongoStateStore{}

func NewMongoStateStore(name string) *MongoStateStore {
	return &MongoStateStore{name: name}
}

func (s *MongoStateStore) Load(ctx context.Context) (*models.LedgerState, error) {
	var state models.LedgerState
	err := DB.FindOne(models.CollectionLedgerState, bson.M{"name": s.name}, &state)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ledger.ErrNotInitialized
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load ledger state: %w", err)
	}
	return &state, nil
}

func (s *MongoStateStore) Create(ctx context.Context, state *models.LedgerState) error {
	doc := state.Clone()
	doc.Id = nil
	doc.Name = s.name

	if _, err := DB.InsertOne(models.CollectionLedgerState, doc); err != nil {
		if IsDuplicateKeyError(err) {
			return ledger.ErrAlreadyInitialized
		}
		return fmt.Errorf("failed to create ledger state: %w", err)
	}
	return nil
}

// Save replaces the record only when the stored revision is the one the
// state was derived from.
func (s *MongoStateStore) Save(ctx context.Context, state *models.LedgerState) error {
	if state.Revision == 0 {
		return fmt.Errorf("%w: revision 0 cannot be saved", ledger.ErrRevisionConflict)
	}

	doc := state.Clone()
	doc.Id = nil
	doc.Name = s.name

	filter := bson.M{"name": s.name, "revision": state.Revision - 1}
	matched, err := DB.UpdateOne(models.CollectionLedgerState, filter, bson.M{"$set": doc})
	if err != nil {
		return fmt.Errorf("failed to save ledger state: %w", err)
	}
	if matched == 0 {
		return fmt.Errorf("%w: revision %d is not current", ledger.ErrRevisionConflict, state.Revision-1)
	}
	return nil
}

const lockRetryInterval = 100 * time.Millisecond

// MongoLocker holds an exclusive mongo lock on ledger:<name> for the
// duration of an operation, waiting until the context expires. The lock is
// renewed while held so a slow token ledger call cannot outlive it.
type MongoLocker struct {
	resource   string
	renewEvery time.Duration
}

var _ ledger.Locker = &MongoLocker{}

func NewMongoLocker(name string) *MongoLocker {
	return &MongoLocker{
		resource:   "ledger:" + name,
		renewEvery: lockTTLSecs * time.Second / 3,
	}
}

func (l *MongoLocker) Lock(ctx context.Context) (func(), error) {
	purged := false
	for {
		lockId, err := DB.XLock(l.resource)
		if err == nil {
			stop := make(chan struct{})
			done := make(chan struct{})
			go l.keepAlive(lockId, stop, done)

			return func() {
				close(stop)
				<-done
				if err := DB.Unlock(lockId); err != nil {
					log.Error("[LOCKER] Error unlocking ", l.resource, ": ", err)
				}
			}, nil
		}
		if !errors.Is(err, ErrLocked) {
			return nil, err
		}

		if !purged {
			purged = true
			if err := DB.PurgeExpiredLocks(); err != nil {
				log.Warn("[LOCKER] Error purging expired locks: ", err)
			}
			continue
		}

		log.Debug("[LOCKER] Waiting for ", l.resource)
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("waiting for %s: %w", l.resource, ctx.Err())
		case <-time.After(lockRetryInterval):
		}
	}
}

func (l *MongoLocker) keepAlive(lockId string, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(l.renewEvery)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if err := DB.RenewLock(lockId); err != nil {
				log.Error("[LOCKER] Error renewing lock on ", l.resource, ": ", err)
			}
		}
	}
}
