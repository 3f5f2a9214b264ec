package ledger

import (
	"fmt"

	"github.com/dan13ram/bridge-ledger/models"
)

const DefaultStalenessSecs int64 = 300

// PriceCache holds the last oracle snapshot. A price is usable only while
// now - timestamp < staleness.
type PriceCache struct {
	Snapshot  models.PriceSnapshot
	Staleness int64
}

func (c *PriceCache) Update(price uint64, confidence uint64, now int64) {
	c.Snapshot = models.PriceSnapshot{Price: price, Confidence: confidence, Timestamp: now}
}

func (c *PriceCache) Read(now int64) (uint64, error) {
	if _, err := c.ReadSnapshot(now); err != nil {
		return 0, err
	}
	return c.Snapshot.Price, nil
}

func (c *PriceCache) ReadSnapshot(now int64) (models.PriceSnapshot, error) {
	staleness := c.Staleness
	if staleness <= 0 {
		staleness = DefaultStalenessSecs
	}
	age := now - c.Snapshot.Timestamp
	if c.Snapshot.Timestamp == 0 || age >= staleness {
		return models.PriceSnapshot{}, fmt.Errorf("%w: price is %ds old", ErrOracleStale, age)
	}
	return c.Snapshot, nil
}
