package ledger

import (
	"fmt"

	"github.com/dan13ram/bridge-ledger/models"
)

// FingerprintStore is the append-only set of processed message fingerprints.
// It is full when it holds capacity entries; zero capacity means unbounded.
type FingerprintStore struct {
	capacity int
	order    []models.Fingerprint
	index    map[models.Fingerprint]struct{}
}

func NewFingerprintStore(capacity int, existing []models.Fingerprint) *FingerprintStore {
	s := &FingerprintStore{
		capacity: capacity,
		order:    make([]models.Fingerprint, 0, len(existing)),
		index:    make(map[models.Fingerprint]struct{}, len(existing)),
	}
	for _, fp := range existing {
		if _, ok := s.index[fp]; ok {
			continue
		}
		s.index[fp] = struct{}{}
		s.order = append(s.order, fp)
	}
	return s
}

func (s *FingerprintStore) Has(fp models.Fingerprint) bool {
	_, ok := s.index[fp]
	return ok
}

func (s *FingerprintStore) Full() bool {
	return s.capacity > 0 && len(s.order) >= s.capacity
}

func (s *FingerprintStore) Len() int {
	return len(s.order)
}

func (s *FingerprintStore) Insert(fp models.Fingerprint) error {
	if s.Has(fp) {
		return fmt.Errorf("%w: %s", ErrAlreadyProcessed, fp)
	}
	if s.Full() {
		return fmt.Errorf("%w: fingerprint store holds %d entries", ErrCapacityExceeded, s.capacity)
	}
	s.index[fp] = struct{}{}
	s.order = append(s.order, fp)
	return nil
}

// Fingerprints returns the entries in insertion order.
func (s *FingerprintStore) Fingerprints() []models.Fingerprint {
	return append([]models.Fingerprint(nil), s.order...)
}
