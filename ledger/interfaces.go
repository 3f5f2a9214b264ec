package ledger

import (
	"context"

	"github.com/dan13ram/bridge-ledger/common"
	"github.com/dan13ram/bridge-ledger/models"
)

// TokenLedger is the fungible token the bridge mints and burns. Each call
// either fully applies or fails with no effect.
type TokenLedger interface {
	Mint(ctx context.Context, authority common.Signer, recipient models.Identity, amount uint64) error
	Burn(ctx context.Context, authority common.Signer, owner models.Identity, amount uint64) error
}

// Store persists the ledger record. Load returns ErrNotInitialized when no
// record exists and Create returns ErrAlreadyInitialized when one does. Save
// replaces the record only if the stored revision is state.Revision-1 and
// returns ErrRevisionConflict otherwise.
type Store interface {
	Load(ctx context.Context) (*models.LedgerState, error)
	Create(ctx context.Context, state *models.LedgerState) error
	Save(ctx context.Context, state *models.LedgerState) error
}

// Locker serializes operations across processes sharing one Store.
type Locker interface {
	Lock(ctx context.Context) (unlock func(), err error)
}

type EventSink interface {
	Emit(ctx context.Context, event models.Event)
}

// Dispatcher hands an outbound message to the transport.
type Dispatcher interface {
	Dispatch(ctx context.Context, msg models.CrossChainMessage, payload []byte) error
}

type Fingerprinter interface {
	Fingerprint(msg models.AttestedMessage) models.Fingerprint
}

type FingerprinterFunc func(msg models.AttestedMessage) models.Fingerprint

func (f FingerprinterFunc) Fingerprint(msg models.AttestedMessage) models.Fingerprint {
	return f(msg)
}

type noopLocker struct{}

func (noopLocker) Lock(context.Context) (func(), error) { return func() {}, nil }

var NoopLocker Locker = noopLocker{}

type noopDispatcher struct{}

func (noopDispatcher) Dispatch(context.Context, models.CrossChainMessage, []byte) error { return nil }

var NoopDispatcher Dispatcher = noopDispatcher{}

// MultiSink fans every event out to each sink in order.
type MultiSink []EventSink

func (m MultiSink) Emit(ctx context.Context, event models.Event) {
	for _, sink := range m {
		if sink != nil {
			sink.Emit(ctx, event)
		}
	}
}
