package app

import (
	"context"
	"crypto/rand"
	"errors"
	"time"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"

	lock "github.com/square/mongo-lock"

	"github.com/dan13ram/bridge-ledger/models"
)

// lockTTLSecs bounds how long a dead holder blocks others. Live holders
// renew before it runs out.
const lockTTLSecs = 60

var ErrLocked = errors.New("resource is locked")

type Database interface {
	Connect() error
	SetupLocker() error
	SetupIndexes() error
	Disconnect() error
	InsertOne(collection string, data interface{}) (primitive.ObjectID, error)
	FindOne(collection string, filter interface{}, result interface{}) error
	FindMany(collection string, filter interface{}, result interface{}) error
	UpdateOne(collection string, filter interface{}, update interface{}) (int64, error)
	UpsertOne(collection string, filter interface{}, update interface{}) (primitive.ObjectID, error)

	XLock(resourceId string) (string, error)
	RenewLock(lockId string) error
	Unlock(lockId string) error
	PurgeExpiredLocks() error
}

// lockClient is the part of the mongo-lock client the database uses.
type lockClient interface {
	XLock(ctx context.Context, resourceName, lockId string, ld lock.LockDetails) error
	Renew(ctx context.Context, lockId string, ttl uint) ([]lock.LockStatus, error)
	Unlock(ctx context.Context, lockId string) ([]lock.LockStatus, error)
}

// mongoDatabase is a wrapper around the mongo database
type mongoDatabase struct {
	db       *mongo.Database
	uri      string
	database string
	timeout  time.Duration
	locker   lockClient
	purger   lock.Purger
}

var (
	DB Database
)

func (d *mongoDatabase) context() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), d.timeout)
}

// Connect connects to the database
func (d *mongoDatabase) Connect() error {
	log.Debug("[DB] Connecting to database")
	wcMajority := writeconcern.New(writeconcern.WMajority(), writeconcern.WTimeout(d.timeout))

	ctx, cancel := d.context()
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(d.uri).SetWriteConcern(wcMajority))
	if err != nil {
		return err
	}
	d.db = client.Database(d.database)

	log.Info("[DB] Connected to mongo database: ", d.database)
	return nil
}

// SetupLocker sets up the locker and the purger for expired locks
func (d *mongoDatabase) SetupLocker() error {
	log.Debug("[DB] Setting up locker")

	ctx, cancel := d.context()
	defer cancel()

	locker := lock.NewClient(d.db.Collection("locks"))
	if err := locker.CreateIndexes(ctx); err != nil {
		return err
	}
	d.locker = locker
	d.purger = lock.NewPurger(locker)

	log.Info("[DB] Locker setup")
	return nil
}

func randomString(n int) string {
	const alphanum = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"
	var bytes = make([]byte, n)
	rand.Read(bytes)
	for i, b := range bytes {
		bytes[i] = alphanum[b%byte(len(alphanum))]
	}
	return string(bytes)
}

// XLock locks a resource for exclusive access. It returns ErrLocked when
// another holder has it.
func (d *mongoDatabase) XLock(resourceId string) (string, error) {
	ctx, cancel := d.context()
	defer cancel()

	lockId := randomString(32)
	err := d.locker.XLock(ctx, resourceId, lockId, lock.LockDetails{TTL: lockTTLSecs})
	if errors.Is(err, lock.ErrAlreadyLocked) {
		return "", ErrLocked
	}
	return lockId, err
}

// RenewLock resets the TTL of a held lock. It fails when the lock already
// expired or was purged.
func (d *mongoDatabase) RenewLock(lockId string) error {
	ctx, cancel := d.context()
	defer cancel()

	_, err := d.locker.Renew(ctx, lockId, lockTTLSecs)
	return err
}

// Unlock unlocks a resource
func (d *mongoDatabase) Unlock(lockId string) error {
	ctx, cancel := d.context()
	defer cancel()

	_, err := d.locker.Unlock(ctx, lockId)
	return err
}

// PurgeExpiredLocks removes locks whose holder died without unlocking
func (d *mongoDatabase) PurgeExpiredLocks() error {
	ctx, cancel := d.context()
	defer cancel()

	purged, err := d.purger.Purge(ctx)
	if err != nil {
		return err
	}
	if len(purged) > 0 {
		log.Warnf("[DB] Purged %d expired locks", len(purged))
	}
	return nil
}

type collectionIndex struct {
	collection string
	keys       bson.D
	unique     bool
	// expires marks a TTL index: documents are removed once the indexed time passes
	expires    bool
}

var collectionIndexes = []collectionIndex{
	{collection: models.CollectionLedgerState, keys: bson.D{{Key: "name", Value: 1}}, unique: true},
	{collection: models.CollectionInboundMessages, keys: bson.D{{Key: "emitter_chain", Value: 1}, {Key: "emitter_address", Value: 1}, {Key: "sequence", Value: 1}}, unique: true},
	{collection: models.CollectionInboundMessages, keys: bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: 1}}},
	{collection: models.CollectionOutboundMessages, keys: bson.D{{Key: "message_id", Value: 1}}, unique: true},
	{collection: models.CollectionOutboundMessages, keys: bson.D{{Key: "status", Value: 1}}},
	{collection: models.CollectionEvents, keys: bson.D{{Key: "ledger", Value: 1}, {Key: "created_at", Value: 1}}},
	{collection: models.CollectionHealthChecks, keys: bson.D{{Key: "ledger", Value: 1}, {Key: "hostname", Value: 1}}, unique: true},
	{collection: models.CollectionRequestNonces, keys: bson.D{{Key: "caller", Value: 1}, {Key: "nonce", Value: 1}}, unique: true},
	{collection: models.CollectionRequestNonces, keys: bson.D{{Key: "expires_at", Value: 1}}, expires: true},
}

func (d *mongoDatabase) createIndex(index collectionIndex) error {
	log.Debug("[DB] Setting up indexes for ", index.collection)
	ctx, cancel := d.context()
	defer cancel()

	opts := options.Index().SetUnique(index.unique)
	if index.expires {
		opts.SetExpireAfterSeconds(0)
	}

	_, err := d.db.Collection(index.collection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    index.keys,
		Options: opts,
	})
	return err
}

// Setup Indexes
func (d *mongoDatabase) SetupIndexes() error {
	log.Debug("[DB] Setting up indexes")

	for _, index := range collectionIndexes {
		if err := d.createIndex(index); err != nil {
			return err
		}
	}

	log.Info("[DB] Indexes setup")
	return nil
}

// Disconnect disconnects from the database
func (d *mongoDatabase) Disconnect() error {
	log.Debug("[DB] Disconnecting from database")
	ctx, cancel := d.context()
	defer cancel()
	err := d.db.Client().Disconnect(ctx)
	log.Info("[DB] Disconnected from database")
	return err
}

// method for insert single value in a collection
func (d *mongoDatabase) InsertOne(collection string, data interface{}) (primitive.ObjectID, error) {
	ctx, cancel := d.context()
	defer cancel()
	result, err := d.db.Collection(collection).InsertOne(ctx, data)
	if err != nil {
		return primitive.NilObjectID, err
	}
	id, _ := result.InsertedID.(primitive.ObjectID)
	return id, nil
}

// method for find single value in a collection
func (d *mongoDatabase) FindOne(collection string, filter interface{}, result interface{}) error {
	ctx, cancel := d.context()
	defer cancel()
	return d.db.Collection(collection).FindOne(ctx, filter).Decode(result)
}

// method for find multiple values in a collection
func (d *mongoDatabase) FindMany(collection string, filter interface{}, result interface{}) error {
	ctx, cancel := d.context()
	defer cancel()
	cursor, err := d.db.Collection(collection).Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return err
	}
	return cursor.All(ctx, result)
}

// method for update single value in a collection, returns the matched count
func (d *mongoDatabase) UpdateOne(collection string, filter interface{}, update interface{}) (int64, error) {
	ctx, cancel := d.context()
	defer cancel()
	result, err := d.db.Collection(collection).UpdateOne(ctx, filter, update)
	if err != nil {
		return 0, err
	}
	return result.MatchedCount, nil
}

// method for upsert single value in a collection
func (d *mongoDatabase) UpsertOne(collection string, filter interface{}, update interface{}) (primitive.ObjectID, error) {
	ctx, cancel := d.context()
	defer cancel()

	opts := options.Update().SetUpsert(true)
	result, err := d.db.Collection(collection).UpdateOne(ctx, filter, update, opts)
	if err != nil {
		return primitive.NilObjectID, err
	}
	id, _ := result.UpsertedID.(primitive.ObjectID)
	return id, nil
}

// IsDuplicateKeyError reports whether err is a unique index violation
func IsDuplicateKeyError(err error) bool {
	return mongo.IsDuplicateKeyError(err)
}

// InitDB creates a new database wrapper
func InitDB() {
	DB = &mongoDatabase{
		uri:      Config.MongoDB.URI,
		database: Config.MongoDB.Database,
		timeout:  time.Duration(Config.MongoDB.TimeoutMillis) * time.Millisecond,
	}

	err := DB.Connect()
	if err != nil {
		log.Fatal("[DB] Error connecting to database: ", err)
	}
	err = DB.SetupIndexes()
	if err != nil {
		log.Fatal("[DB] Error setting up indexes: ", err)
	}
	err = DB.SetupLocker()
	if err != nil {
		log.Fatal("[DB] Error setting up locker: ", err)
	}
	log.Info("[DB] Database initialized")
}
