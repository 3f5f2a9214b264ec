package ledger

import (
	"fmt"

	"github.com/dan13ram/bridge-ledger/models"
)

// TrustRegistry is the allow-list of remote emitters whose messages are honored.
type TrustRegistry struct {
	capacity int
	emitters []models.TrustedEmitter
}

func NewTrustRegistry(capacity int, existing []models.TrustedEmitter) *TrustRegistry {
	r := &TrustRegistry{capacity: capacity}
	for _, e := range existing {
		if !r.IsTrusted(e.ChainID, e.Emitter) {
			r.emitters = append(r.emitters, e)
		}
	}
	return r
}

func (r *TrustRegistry) IsTrusted(chainID uint16, emitter models.Identity) bool {
	return r.find(chainID, emitter) >= 0
}

func (r *TrustRegistry) find(chainID uint16, emitter models.Identity) int {
	for i, e := range r.emitters {
		if e.ChainID == chainID && e.Emitter == emitter {
			return i
		}
	}
	return -1
}

// Add reports whether the pair was newly added. Adding a known pair is a no-op.
func (r *TrustRegistry) Add(chainID uint16, emitter models.Identity) (bool, error) {
	if r.IsTrusted(chainID, emitter) {
		return false, nil
	}
	if r.capacity > 0 && len(r.emitters) >= r.capacity {
		return false, fmt.Errorf("%w: trust list holds %d emitters", ErrCapacityExceeded, r.capacity)
	}
	r.emitters = append(r.emitters, models.TrustedEmitter{ChainID: chainID, Emitter: emitter})
	return true, nil
}

// Remove reports whether the pair was present.
func (r *TrustRegistry) Remove(chainID uint16, emitter models.Identity) bool {
	i := r.find(chainID, emitter)
	if i < 0 {
		return false
	}
	r.emitters = append(r.emitters[:i:i], r.emitters[i+1:]...)
	return true
}

func (r *TrustRegistry) Emitters() []models.TrustedEmitter {
	return append([]models.TrustedEmitter(nil), r.emitters...)
}
