package ledger

import (
	"fmt"
	"math"
)

const BurnWindowSecs int64 = 86400

// RateLimiter bounds the amount burned in a rolling window anchored at the
// first burn after the previous window expired. Rollover is lazy.
type RateLimiter struct {
	Limit     uint64
	Amount    uint64
	LastReset int64
}

func (r *RateLimiter) expired(now int64) bool {
	if r.LastReset > math.MaxInt64-BurnWindowSecs {
		return false
	}
	return now >= r.LastReset+BurnWindowSecs
}

// TryConsume adds amount to the window or fails without mutating anything.
func (r *RateLimiter) TryConsume(amount uint64, now int64) (uint64, error) {
	current, lastReset := r.Amount, r.LastReset
	if r.expired(now) {
		current, lastReset = 0, now
	}

	if amount > r.Limit || current > r.Limit-amount {
		return r.remaining(current), fmt.Errorf("%w: %d requested, %d remaining", ErrDailyLimitExceeded, amount, r.remaining(current))
	}

	r.Amount = current + amount
	r.LastReset = lastReset
	return r.Limit - r.Amount, nil
}

// Record adds amount to the window without checking the limit. It is used
// for burns that already happened.
func (r *RateLimiter) Record(amount uint64, now int64) {
	if r.expired(now) {
		r.Amount, r.LastReset = 0, now
	}
	if r.Amount > math.MaxUint64-amount {
		r.Amount = math.MaxUint64
		return
	}
	r.Amount += amount
}

// Remaining is what TryConsume would allow at now, without mutation.
func (r *RateLimiter) Remaining(now int64) uint64 {
	if r.expired(now) {
		return r.Limit
	}
	return r.remaining(r.Amount)
}

func (r *RateLimiter) remaining(current uint64) uint64 {
	if current >= r.Limit {
		return 0
	}
	return r.Limit - current
}
