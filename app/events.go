package app

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gomodule/redigo/redis"
	log "github.com/sirupsen/logrus"

	"github.com/dan13ram/bridge-ledger/ledger"
	"github.com/dan13ram/bridge-ledger/models"
)

type LogEventSink struct {
	ledger string
}

func NewLogEventSink(ledger string) *LogEventSink {
	return &LogEventSink{ledger: ledger}
}

func (s *LogEventSink) Emit(ctx context.Context, event models.Event) {
	log.WithFields(log.Fields{
		"ledger": s.ledger,
		"type":   event.EventType(),
		"data":   fmt.Sprintf("%+v", event),
	}).Info("[EVENT] Ledger event")
}

// MongoEventSink appends every event to the events collection.
type MongoEventSink struct {
	ledger string
}

func NewMongoEventSink(ledger string) *MongoEventSink {
	return &MongoEventSink{ledger: ledger}
}

func newEventRecord(ledger string, event models.Event) models.EventRecord {
	return models.EventRecord{
		Ledger:    ledger,
		Type:      event.EventType(),
		Data:      event,
		CreatedAt: time.Now(),
	}
}

func (s *MongoEventSink) Emit(ctx context.Context, event models.Event) {
	record := newEventRecord(s.ledger, event)
	if _, err := DB.InsertOne(models.CollectionEvents, record); err != nil {
		log.Error("[EVENT] Error storing event ", record.Type, ": ", err)
	}
}

// RedisEventSink publishes events as JSON on a redis channel.
type RedisEventSink struct {
	ledger  string
	channel string
	pool    *redis.Pool
}

func timeoutDialOptions() []redis.DialOption {
	return []redis.DialOption{
		redis.DialConnectTimeout(5 * time.Second),
		redis.DialReadTimeout(5 * time.Second),
		redis.DialWriteTimeout(5 * time.Second),
	}
}

func NewRedisEventSink(ledger string, host string, port int, channel string) *RedisEventSink {
	redisAddr := fmt.Sprintf("%s:%d", host, port)
	return &RedisEventSink{
		ledger:  ledger,
		channel: channel,
		pool: &redis.Pool{
			MaxIdle:     5,
			IdleTimeout: 240 * time.Second,
			Dial:        func() (redis.Conn, error) { return redis.Dial("tcp", redisAddr, timeoutDialOptions()...) },
		},
	}
}

func (s *RedisEventSink) Emit(ctx context.Context, event models.Event) {
	data, err := json.Marshal(newEventRecord(s.ledger, event))
	if err != nil {
		log.Error("[EVENT] Error encoding event ", event.EventType(), ": ", err)
		return
	}

	conn, err := s.pool.GetContext(ctx)
	if err != nil {
		log.Error("[EVENT] Error connecting to redis: ", err)
		return
	}
	defer conn.Close()

	if _, err := conn.Do("PUBLISH", s.channel, data); err != nil {
		log.Error("[EVENT] Error publishing event ", event.EventType(), ": ", err)
	}
}

func (s *RedisEventSink) Close() error {
	return s.pool.Close()
}

// NewEventSink combines the sinks enabled in the config.
func NewEventSink() ledger.EventSink {
	name := Config.Ledger.Name
	sinks := ledger.MultiSink{NewLogEventSink(name), NewMongoEventSink(name)}
	if Config.Redis.Enabled {
		log.Info("[EVENT] Publishing events to redis channel ", Config.Redis.Channel)
		sinks = append(sinks, NewRedisEventSink(name, Config.Redis.Host, Config.Redis.Port, Config.Redis.Channel))
	}
	return sinks
}
