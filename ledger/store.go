package ledger

import (
	"context"
	"fmt"
	"sync"

	"github.com/dan13ram/bridge-ledger/models"
)

// MemoryStore keeps the ledger record in process memory.
type MemoryStore struct {
	mu    sync.Mutex
	state *models.LedgerState
}

var _ Store = &MemoryStore{}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Load(ctx context.Context) (*models.LedgerState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == nil {
		return nil, ErrNotInitialized
	}
	return s.state.Clone(), nil
}

func (s *MemoryStore) Create(ctx context.Context, state *models.LedgerState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != nil {
		return ErrAlreadyInitialized
	}
	s.state = state.Clone()
	return nil
}

func (s *MemoryStore) Save(ctx context.Context, state *models.LedgerState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == nil {
		return ErrNotInitialized
	}
	if s.state.Revision+1 != state.Revision {
		return fmt.Errorf("%w: stored %d, saving %d", ErrRevisionConflict, s.state.Revision, state.Revision)
	}
	s.state = state.Clone()
	return nil
}
