package ledger

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/dan13ram/bridge-ledger/common"
	"github.com/dan13ram/bridge-ledger/ledger/mocks"
	"github.com/dan13ram/bridge-ledger/models"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	log "github.com/sirupsen/logrus"
)

func init() {
	log.SetOutput(io.Discard)
}

const testStart = int64(1_700_000_000)

var (
	remoteEmitter = models.Identity{0xe1}
	otherEmitter  = models.Identity{0xe2}
	userIdentity  = models.Identity{0x05}
	recipient     = models.Identity{0xbe, 0xef}
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(secs int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Duration(secs) * time.Second)
}

type flakyStore struct {
	*MemoryStore
	mu        sync.Mutex
	failSaves int
	lostAcks  int
}

func (s *flakyStore) Save(ctx context.Context, state *models.LedgerState) error {
	s.mu.Lock()
	if s.failSaves > 0 {
		s.failSaves--
		s.mu.Unlock()
		return errors.New("store unavailable")
	}
	lost := s.lostAcks > 0
	if lost {
		s.lostAcks--
	}
	s.mu.Unlock()

	if err := s.MemoryStore.Save(ctx, state); err != nil {
		return err
	}
	if lost {
		return errors.New("connection reset before acknowledgement")
	}
	return nil
}

// LoseNextAcks makes the next n saves land but report failure.
func (s *flakyStore) LoseNextAcks(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lostAcks = n
}

func (s *flakyStore) FailNextSaves(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failSaves = n
}

var keccakFingerprinter = FingerprinterFunc(func(msg models.AttestedMessage) models.Fingerprint {
	return models.Fingerprint(crypto.Keccak256Hash(msg.Envelope))
})

type testEnv struct {
	ledger    *BridgeLedger
	token     *mocks.MockTokenLedger
	store     Store
	clock     *testClock
	authority models.Identity
	signer    common.Signer
}

func newTestEnv(t *testing.T, policy Policy, store Store) *testEnv {
	key, err := crypto.GenerateKey()
	assert.NoError(t, err)
	signer := common.NewPrivateKeySigner(key)

	if store == nil {
		store = NewMemoryStore()
	}
	clock := &testClock{now: time.Unix(testStart, 0)}
	token := mocks.NewMockTokenLedger(t)

	l, err := NewBridgeLedger(Options{
		Name:          "test",
		Policy:        policy,
		Authority:     signer,
		Token:         token,
		Store:         store,
		Fingerprinter: keccakFingerprinter,
		Now:           clock.Now,
	})
	assert.NoError(t, err)

	return &testEnv{
		ledger:    l,
		token:     token,
		store:     store,
		clock:     clock,
		authority: common.IdentityFromAddress(signer.EthAddress()),
		signer:    signer,
	}
}

func (e *testEnv) initialize(t *testing.T, trusted ...models.TrustedEmitter) {
	_, err := e.ledger.Initialize(context.Background(), e.authority, 0, trusted...)
	assert.NoError(t, err)
}

func attested(chain uint16, emitter models.Identity, sequence uint64, msg models.CrossChainMessage) models.AttestedMessage {
	payload := EncodeMessage(msg)
	envelope := append([]byte{byte(chain), byte(sequence)}, emitter[:]...)
	envelope = append(envelope, payload...)
	return models.AttestedMessage{
		EmitterChain:   chain,
		EmitterAddress: emitter,
		Sequence:       sequence,
		Payload:        payload,
		Envelope:       envelope,
	}
}

func mintMessage(amount uint64, nonce uint32) models.CrossChainMessage {
	return models.CrossChainMessage{
		Action:      models.ActionMint,
		Amount:      amount,
		Recipient:   recipient,
		SourceChain: 2,
		TargetChain: 1,
		Nonce:       nonce,
	}
}

func TestNewBridgeLedger(t *testing.T) {
	_, err := NewBridgeLedger(Options{})
	assert.Error(t, err)

	env := newTestEnv(t, Policy{}, nil)
	assert.Equal(t, "test", env.ledger.Name())
	assert.Equal(t, DefaultStalenessSecs, env.ledger.policy.StalenessSecs)
}

func TestInitialize(t *testing.T) {
	ctx := context.Background()

	t.Run("Mints Initial Supply", func(t *testing.T) {
		env := newTestEnv(t, Policy{ChainID: 1}, nil)
		env.token.EXPECT().Mint(mock.Anything, env.signer, env.authority, uint64(5000)).Return(nil).Once()

		state, err := env.ledger.Initialize(ctx, env.authority, 5000, models.TrustedEmitter{ChainID: 2, Emitter: remoteEmitter})
		assert.NoError(t, err)
		assert.Equal(t, uint64(1), state.Revision)
		assert.Equal(t, env.authority, state.Authority)
		assert.Equal(t, uint16(1), state.ChainID)
		assert.Equal(t, DefaultDailyBurnLimit, state.DailyBurnLimit)
		assert.Equal(t, uint64(0), state.TotalMinted)
		assert.Len(t, state.TrustedEmitters, 1)

		_, err = env.ledger.Initialize(ctx, env.authority, 0)
		assert.True(t, errors.Is(err, ErrAlreadyInitialized))
	})

	t.Run("Token Failure", func(t *testing.T) {
		env := newTestEnv(t, Policy{}, nil)
		env.token.EXPECT().Mint(mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("rpc down")).Once()

		_, err := env.ledger.Initialize(ctx, env.authority, 10)
		assert.True(t, errors.Is(err, ErrTokenLedgerFailure))

		_, err = env.ledger.State(ctx)
		assert.True(t, errors.Is(err, ErrNotInitialized))
	})

	t.Run("Not Initialized", func(t *testing.T) {
		env := newTestEnv(t, Policy{}, nil)

		_, err := env.ledger.Burn(ctx, userIdentity, 1, 2, recipient, 1)
		assert.True(t, errors.Is(err, ErrNotInitialized))

		_, err = env.ledger.RemainingDailyBurn(ctx)
		assert.True(t, errors.Is(err, ErrNotInitialized))
	})
}

func TestBurnWindowScenario(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, Policy{DailyBurnLimit: 1000}, nil)
	env.initialize(t)

	env.token.EXPECT().Burn(mock.Anything, env.signer, userIdentity, mock.Anything).Return(nil).Times(2)

	receipt, err := env.ledger.Burn(ctx, userIdentity, 600, 2, recipient, 1)
	assert.NoError(t, err)
	assert.Equal(t, uint64(400), receipt.Remaining)

	remaining, err := env.ledger.RemainingDailyBurn(ctx)
	assert.NoError(t, err)
	assert.Equal(t, uint64(400), remaining)

	_, err = env.ledger.Burn(ctx, userIdentity, 500, 2, recipient, 2)
	assert.True(t, errors.Is(err, ErrDailyLimitExceeded))

	remaining, err = env.ledger.RemainingDailyBurn(ctx)
	assert.NoError(t, err)
	assert.Equal(t, uint64(400), remaining)

	env.clock.Advance(86400)

	receipt, err = env.ledger.Burn(ctx, userIdentity, 500, 2, recipient, 3)
	assert.NoError(t, err)
	assert.Equal(t, uint64(500), receipt.Remaining)
	assert.Equal(t, uint64(1100), receipt.TotalBurned)

	state, err := env.ledger.State(ctx)
	assert.NoError(t, err)
	assert.Equal(t, uint64(1100), state.TotalBurned)
	assert.Equal(t, uint64(500), state.DailyBurnAmount)
	assert.Equal(t, testStart+86400, state.LastBurnReset)
}

func TestBurnMessage(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, Policy{ChainID: 1, DailyBurnLimit: 1000}, nil)

	events := mocks.NewMockEventSink(t)
	dispatcher := mocks.NewMockDispatcher(t)
	env.ledger.events = events
	env.ledger.dispatcher = dispatcher

	events.EXPECT().Emit(mock.Anything, mock.Anything).Return().Once()
	env.initialize(t)

	expected := models.CrossChainMessage{
		Action:      models.ActionBurn,
		Amount:      250,
		Recipient:   recipient,
		SourceChain: 1,
		TargetChain: 2,
		Nonce:       9,
	}

	env.token.EXPECT().Burn(mock.Anything, env.signer, userIdentity, uint64(250)).Return(nil).Once()
	events.EXPECT().Emit(mock.Anything, models.BurnInitiated{
		Caller:      userIdentity,
		Amount:      250,
		TargetChain: 2,
		Recipient:   recipient,
		Nonce:       9,
	}).Return().Once()
	dispatcher.EXPECT().Dispatch(mock.Anything, expected, EncodeMessage(expected)).Return(nil).Once()

	receipt, err := env.ledger.Burn(ctx, userIdentity, 250, 2, recipient, 9)
	assert.NoError(t, err)
	assert.Equal(t, expected, receipt.Message)
	assert.Equal(t, uint64(2), receipt.Revision)
}

func TestBurnDispatchFailure(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, Policy{DailyBurnLimit: 1000}, nil)
	dispatcher := mocks.NewMockDispatcher(t)
	env.ledger.dispatcher = dispatcher
	env.initialize(t)

	env.token.EXPECT().Burn(mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()
	dispatcher.EXPECT().Dispatch(mock.Anything, mock.Anything, mock.Anything).Return(errors.New("queue full")).Once()

	receipt, err := env.ledger.Burn(ctx, userIdentity, 100, 2, recipient, 1)
	assert.True(t, errors.Is(err, ErrDispatchFailed))
	assert.NotNil(t, receipt)

	state, err := env.ledger.State(ctx)
	assert.NoError(t, err)
	assert.Equal(t, uint64(100), state.TotalBurned)
}

func TestBurnTokenFailure(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, Policy{DailyBurnLimit: 1000}, nil)
	env.initialize(t)

	cause := errors.New("insufficient balance")
	env.token.EXPECT().Burn(mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(cause).Once()

	_, err := env.ledger.Burn(ctx, userIdentity, 100, 2, recipient, 1)
	assert.True(t, errors.Is(err, ErrTokenLedgerFailure))
	assert.True(t, errors.Is(err, cause))

	state, err := env.ledger.State(ctx)
	assert.NoError(t, err)
	assert.Equal(t, uint64(0), state.TotalBurned)
	assert.Equal(t, uint64(0), state.DailyBurnAmount)
	assert.Equal(t, int64(0), state.LastBurnReset)
	assert.Equal(t, uint64(1), state.Revision)
}

func TestPauseGating(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, Policy{DailyBurnLimit: 1000}, nil)
	env.initialize(t)

	err := env.ledger.Pause(ctx, userIdentity)
	assert.True(t, errors.Is(err, ErrUnauthorized))

	assert.NoError(t, env.ledger.Pause(ctx, env.authority))

	for i := 0; i < 3; i++ {
		_, err = env.ledger.Burn(ctx, userIdentity, 10, 2, recipient, uint32(i))
		assert.True(t, errors.Is(err, ErrPaused))
	}

	state, err := env.ledger.State(ctx)
	assert.NoError(t, err)
	assert.True(t, state.Paused)
	assert.Equal(t, uint64(0), state.TotalBurned)
	assert.Equal(t, uint64(0), state.DailyBurnAmount)

	err = env.ledger.Unpause(ctx, userIdentity)
	assert.True(t, errors.Is(err, ErrUnauthorized))

	assert.NoError(t, env.ledger.Unpause(ctx, env.authority))

	env.token.EXPECT().Burn(mock.Anything, mock.Anything, mock.Anything, uint64(10)).Return(nil).Once()
	receipt, err := env.ledger.Burn(ctx, userIdentity, 10, 2, recipient, 4)
	assert.NoError(t, err)
	assert.Equal(t, uint64(990), receipt.Remaining)
}

func TestPauseIsIdempotent(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, Policy{}, nil)
	env.initialize(t)

	assert.NoError(t, env.ledger.Pause(ctx, env.authority))
	assert.NoError(t, env.ledger.Pause(ctx, env.authority))

	state, err := env.ledger.State(ctx)
	assert.NoError(t, err)
	assert.Equal(t, uint64(2), state.Revision)
}

func TestDeliverReplayScenario(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, Policy{}, nil)
	env.initialize(t)

	added, err := env.ledger.AddTrustedEmitter(ctx, env.authority, 2, remoteEmitter)
	assert.NoError(t, err)
	assert.True(t, added)

	m := attested(2, remoteEmitter, 1, mintMessage(700, 1))
	env.token.EXPECT().Mint(mock.Anything, env.signer, recipient, uint64(700)).Return(nil).Once()

	receipt, err := env.ledger.Deliver(ctx, m)
	assert.NoError(t, err)
	assert.Equal(t, uint64(700), receipt.TotalMinted)
	assert.Equal(t, keccakFingerprinter(m), receipt.Fingerprint)

	_, err = env.ledger.Deliver(ctx, m)
	assert.True(t, errors.Is(err, ErrAlreadyProcessed))

	state, err := env.ledger.State(ctx)
	assert.NoError(t, err)
	assert.Equal(t, uint64(700), state.TotalMinted)
	assert.Equal(t, []models.Fingerprint{receipt.Fingerprint}, state.ProcessedFingerprints)
}

func TestDeliverUntrusted(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, Policy{}, nil)
	env.initialize(t, models.TrustedEmitter{ChainID: 2, Emitter: remoteEmitter})

	before, err := env.ledger.State(ctx)
	assert.NoError(t, err)

	for _, m := range []models.AttestedMessage{
		attested(3, otherEmitter, 1, mintMessage(1, 1)),
		attested(3, remoteEmitter, 1, mintMessage(1, 1)),
		attested(2, otherEmitter, 1, mintMessage(1, 1)),
	} {
		_, err := env.ledger.Deliver(ctx, m)
		assert.True(t, errors.Is(err, ErrUntrustedEmitter))
	}

	after, err := env.ledger.State(ctx)
	assert.NoError(t, err)
	assert.Equal(t, before, after)
	assert.Empty(t, after.ProcessedFingerprints)
}

func TestDeliverRejectsMalformed(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, Policy{}, nil)
	env.initialize(t, models.TrustedEmitter{ChainID: 2, Emitter: remoteEmitter})

	burn := mintMessage(5, 1)
	burn.Action = models.ActionBurn
	_, err := env.ledger.Deliver(ctx, attested(2, remoteEmitter, 1, burn))
	assert.True(t, errors.Is(err, ErrMalformedMessage))

	m := attested(2, remoteEmitter, 2, mintMessage(5, 2))
	m.Payload = m.Payload[:10]
	_, err = env.ledger.Deliver(ctx, m)
	assert.True(t, errors.Is(err, ErrMalformedMessage))

	state, err := env.ledger.State(ctx)
	assert.NoError(t, err)
	assert.Empty(t, state.ProcessedFingerprints)
}

func TestDeliverTokenFailure(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, Policy{}, nil)
	env.initialize(t, models.TrustedEmitter{ChainID: 2, Emitter: remoteEmitter})

	m := attested(2, remoteEmitter, 1, mintMessage(5, 1))
	env.token.EXPECT().Mint(mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("reverted")).Once()

	_, err := env.ledger.Deliver(ctx, m)
	assert.True(t, errors.Is(err, ErrTokenLedgerFailure))

	state, err := env.ledger.State(ctx)
	assert.NoError(t, err)
	assert.Equal(t, uint64(0), state.TotalMinted)
	assert.Empty(t, state.ProcessedFingerprints)

	env.token.EXPECT().Mint(mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()
	_, err = env.ledger.Deliver(ctx, m)
	assert.NoError(t, err)
}

func TestDeliverCapacity(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, Policy{MaxFingerprints: 1}, nil)
	env.initialize(t, models.TrustedEmitter{ChainID: 2, Emitter: remoteEmitter})

	first := attested(2, remoteEmitter, 1, mintMessage(5, 1))
	env.token.EXPECT().Mint(mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()
	_, err := env.ledger.Deliver(ctx, first)
	assert.NoError(t, err)

	_, err = env.ledger.Deliver(ctx, attested(2, remoteEmitter, 2, mintMessage(5, 2)))
	assert.True(t, errors.Is(err, ErrCapacityExceeded))

	_, err = env.ledger.Deliver(ctx, first)
	assert.True(t, errors.Is(err, ErrAlreadyProcessed))
}

func TestConcurrentDeliver(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, Policy{}, nil)
	env.initialize(t, models.TrustedEmitter{ChainID: 2, Emitter: remoteEmitter})

	m := attested(2, remoteEmitter, 1, mintMessage(50, 1))
	env.token.EXPECT().Mint(mock.Anything, mock.Anything, recipient, uint64(50)).Return(nil).Once()

	const workers = 16
	var wg sync.WaitGroup
	results := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.ledger.Deliver(ctx, m)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var ok, dup int
	for err := range results {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrAlreadyProcessed):
			dup++
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, workers-1, dup)

	state, err := env.ledger.State(ctx)
	assert.NoError(t, err)
	assert.Equal(t, uint64(50), state.TotalMinted)
}

func TestPendingStateAfterSaveFailure(t *testing.T) {
	ctx := context.Background()
	store := &flakyStore{MemoryStore: NewMemoryStore()}
	env := newTestEnv(t, Policy{DailyBurnLimit: 1000}, store)
	env.initialize(t, models.TrustedEmitter{ChainID: 2, Emitter: remoteEmitter})

	m := attested(2, remoteEmitter, 1, mintMessage(80, 1))
	env.token.EXPECT().Mint(mock.Anything, mock.Anything, mock.Anything, uint64(80)).Return(nil).Once()

	store.FailNextSaves(2)
	receipt, err := env.ledger.Deliver(ctx, m)
	assert.True(t, errors.Is(err, ErrStateNotPersisted))
	assert.NotNil(t, receipt)
	assert.Equal(t, uint64(80), receipt.TotalMinted)

	state, err := env.ledger.State(ctx)
	assert.NoError(t, err)
	assert.Equal(t, uint64(80), state.TotalMinted)

	stored, err := store.Load(ctx)
	assert.NoError(t, err)
	assert.Equal(t, uint64(0), stored.TotalMinted)

	_, err = env.ledger.Burn(ctx, userIdentity, 10, 2, recipient, 1)
	assert.True(t, errors.Is(err, ErrPendingState))
	assert.False(t, errors.Is(err, ErrStateNotPersisted))

	env.token.EXPECT().Burn(mock.Anything, mock.Anything, mock.Anything, uint64(10)).Return(nil).Once()
	_, err = env.ledger.Burn(ctx, userIdentity, 10, 2, recipient, 2)
	assert.NoError(t, err)

	stored, err = store.Load(ctx)
	assert.NoError(t, err)
	assert.Equal(t, uint64(80), stored.TotalMinted)
	assert.Equal(t, uint64(10), stored.TotalBurned)
	assert.Equal(t, uint64(3), stored.Revision)

	_, err = env.ledger.Deliver(ctx, m)
	assert.True(t, errors.Is(err, ErrAlreadyProcessed))
}

func TestLandedSaveIsNotRecordedTwice(t *testing.T) {
	ctx := context.Background()
	store := &flakyStore{MemoryStore: NewMemoryStore()}
	env := newTestEnv(t, Policy{DailyBurnLimit: 1000}, store)
	env.initialize(t, models.TrustedEmitter{ChainID: 2, Emitter: remoteEmitter})

	m := attested(2, remoteEmitter, 1, mintMessage(80, 1))
	env.token.EXPECT().Mint(mock.Anything, mock.Anything, mock.Anything, uint64(80)).Return(nil).Once()

	store.LoseNextAcks(1)
	receipt, err := env.ledger.Deliver(ctx, m)
	assert.True(t, errors.Is(err, ErrStateNotPersisted))
	assert.NotNil(t, receipt)

	env.token.EXPECT().Burn(mock.Anything, mock.Anything, mock.Anything, uint64(10)).Return(nil).Once()
	_, err = env.ledger.Burn(ctx, userIdentity, 10, 2, recipient, 1)
	assert.NoError(t, err)

	stored, err := store.Load(ctx)
	assert.NoError(t, err)
	assert.Equal(t, uint64(80), stored.TotalMinted)
	assert.Equal(t, uint64(10), stored.TotalBurned)
	assert.Equal(t, uint64(3), stored.Revision)
	assert.Len(t, stored.ProcessedFingerprints, 1)
	assert.Len(t, stored.RecentWrites, 3)
	assert.Equal(t, stored.WriteID, stored.RecentWrites[2])
}

func TestConflictingWriterDoesNotMintTwice(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	policy := Policy{DailyBurnLimit: 1000}
	first := newTestEnv(t, policy, store)
	second := newTestEnv(t, policy, store)
	first.initialize(t, models.TrustedEmitter{ChainID: 2, Emitter: remoteEmitter})

	m1 := attested(2, remoteEmitter, 1, mintMessage(100, 1))
	m2 := attested(2, remoteEmitter, 2, mintMessage(20, 2))

	// the shared lock is lost while the first mint is in flight
	second.token.EXPECT().Mint(mock.Anything, mock.Anything, mock.Anything, uint64(20)).Return(nil).Once()
	first.token.EXPECT().Mint(mock.Anything, mock.Anything, mock.Anything, uint64(100)).
		Run(func(context.Context, common.Signer, models.Identity, uint64) {
			receipt, err := second.ledger.Deliver(ctx, m2)
			assert.NoError(t, err)
			assert.Equal(t, uint64(2), receipt.Revision)
		}).Return(nil).Once()

	receipt, err := first.ledger.Deliver(ctx, m1)
	assert.NoError(t, err)
	assert.Equal(t, uint64(120), receipt.TotalMinted)
	assert.Equal(t, uint64(3), receipt.Revision)

	_, err = first.ledger.Deliver(ctx, m1)
	assert.True(t, errors.Is(err, ErrAlreadyProcessed))
	_, err = second.ledger.Deliver(ctx, m1)
	assert.True(t, errors.Is(err, ErrAlreadyProcessed))

	stored, err := store.Load(ctx)
	assert.NoError(t, err)
	assert.Equal(t, uint64(120), stored.TotalMinted)
	assert.Len(t, stored.ProcessedFingerprints, 2)
}

func TestConflictAfterBurnRecordsOnNewerRevision(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	policy := Policy{ChainID: 1, DailyBurnLimit: 1000}
	first := newTestEnv(t, policy, store)
	second := newTestEnv(t, policy, store)
	first.initialize(t)

	second.token.EXPECT().Burn(mock.Anything, mock.Anything, mock.Anything, uint64(30)).Return(nil).Once()
	first.token.EXPECT().Burn(mock.Anything, mock.Anything, mock.Anything, uint64(50)).
		Run(func(context.Context, common.Signer, models.Identity, uint64) {
			_, err := second.ledger.Burn(ctx, userIdentity, 30, 2, recipient, 2)
			assert.NoError(t, err)
		}).Return(nil).Once()

	receipt, err := first.ledger.Burn(ctx, userIdentity, 50, 2, recipient, 1)
	assert.NoError(t, err)
	assert.Equal(t, uint64(80), receipt.TotalBurned)
	assert.Equal(t, uint64(3), receipt.Revision)
	assert.Equal(t, uint64(920), receipt.Remaining)

	remaining, err := first.ledger.RemainingDailyBurn(ctx)
	assert.NoError(t, err)
	assert.Equal(t, uint64(920), remaining)
}

func TestBurnSaveFailureStillDispatches(t *testing.T) {
	ctx := context.Background()
	store := &flakyStore{MemoryStore: NewMemoryStore()}
	env := newTestEnv(t, Policy{ChainID: 1, DailyBurnLimit: 1000}, store)
	dispatcher := mocks.NewMockDispatcher(t)
	env.ledger.dispatcher = dispatcher
	env.initialize(t)

	env.token.EXPECT().Burn(mock.Anything, mock.Anything, userIdentity, uint64(10)).Return(nil).Once()
	dispatcher.EXPECT().Dispatch(mock.Anything, mock.Anything, mock.Anything).
		Run(func(_ context.Context, msg models.CrossChainMessage, _ []byte) {
			assert.Equal(t, uint64(10), msg.Amount)
		}).Return(nil).Once()

	store.FailNextSaves(1)
	receipt, err := env.ledger.Burn(ctx, userIdentity, 10, 2, recipient, 1)
	assert.True(t, errors.Is(err, ErrStateNotPersisted))
	assert.NotNil(t, receipt)
	assert.Equal(t, uint64(10), receipt.TotalBurned)
	assert.Equal(t, uint64(990), receipt.Remaining)

	remaining, err := env.ledger.RemainingDailyBurn(ctx)
	assert.NoError(t, err)
	assert.Equal(t, uint64(990), remaining)
}

func TestSaveFailureWithoutEffect(t *testing.T) {
	ctx := context.Background()
	store := &flakyStore{MemoryStore: NewMemoryStore()}
	env := newTestEnv(t, Policy{}, store)
	env.initialize(t)

	store.FailNextSaves(1)
	err := env.ledger.Pause(ctx, env.authority)
	assert.Error(t, err)
	assert.False(t, errors.Is(err, ErrStateNotPersisted))

	state, err := env.ledger.State(ctx)
	assert.NoError(t, err)
	assert.False(t, state.Paused)

	assert.NoError(t, env.ledger.Pause(ctx, env.authority))
}

func TestTrustManagement(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, Policy{MaxTrustedEmitters: 1}, nil)
	events := mocks.NewMockEventSink(t)
	env.ledger.events = events

	events.EXPECT().Emit(mock.Anything, models.Initialized{Authority: env.authority}).Return().Once()
	env.initialize(t)

	_, err := env.ledger.AddTrustedEmitter(ctx, userIdentity, 2, remoteEmitter)
	assert.True(t, errors.Is(err, ErrUnauthorized))

	events.EXPECT().Emit(mock.Anything, models.TrustAdded{ChainID: 2, Emitter: remoteEmitter}).Return().Once()
	added, err := env.ledger.AddTrustedEmitter(ctx, env.authority, 2, remoteEmitter)
	assert.NoError(t, err)
	assert.True(t, added)

	added, err = env.ledger.AddTrustedEmitter(ctx, env.authority, 2, remoteEmitter)
	assert.NoError(t, err)
	assert.False(t, added)

	_, err = env.ledger.AddTrustedEmitter(ctx, env.authority, 3, otherEmitter)
	assert.True(t, errors.Is(err, ErrCapacityExceeded))

	_, err = env.ledger.RemoveTrustedEmitter(ctx, userIdentity, 2, remoteEmitter)
	assert.True(t, errors.Is(err, ErrUnauthorized))

	events.EXPECT().Emit(mock.Anything, models.TrustRemoved{ChainID: 2, Emitter: remoteEmitter}).Return().Once()
	removed, err := env.ledger.RemoveTrustedEmitter(ctx, env.authority, 2, remoteEmitter)
	assert.NoError(t, err)
	assert.True(t, removed)

	removed, err = env.ledger.RemoveTrustedEmitter(ctx, env.authority, 2, remoteEmitter)
	assert.NoError(t, err)
	assert.False(t, removed)

	_, err = env.ledger.Deliver(ctx, attested(2, remoteEmitter, 1, mintMessage(1, 1)))
	assert.True(t, errors.Is(err, ErrUntrustedEmitter))
}

func TestRefreshPrice(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, Policy{}, nil)
	env.initialize(t)

	_, err := env.ledger.CurrentPrice(ctx)
	assert.True(t, errors.Is(err, ErrOracleStale))

	reading := models.PriceReading{
		Price:       123_456,
		Confidence:  78,
		Exponent:    -8,
		PublishTime: time.Unix(testStart-5, 0),
		Trading:     true,
	}

	snapshot, err := env.ledger.RefreshPrice(ctx, reading)
	assert.NoError(t, err)
	assert.Equal(t, models.PriceSnapshot{Price: 123_456, Confidence: 78, Timestamp: testStart}, snapshot)

	for _, bad := range []models.PriceReading{
		{Price: 1, PublishTime: reading.PublishTime, Trading: false},
		{Price: 0, PublishTime: reading.PublishTime, Trading: true},
		{Price: -5, PublishTime: reading.PublishTime, Trading: true},
		{Price: 1, Trading: true},
	} {
		_, err := env.ledger.RefreshPrice(ctx, bad)
		assert.True(t, errors.Is(err, ErrOracleInvalid))
	}

	env.clock.Advance(299)
	current, err := env.ledger.CurrentPrice(ctx)
	assert.NoError(t, err)
	assert.Equal(t, snapshot, current)

	env.clock.Advance(1)
	_, err = env.ledger.CurrentPrice(ctx)
	assert.True(t, errors.Is(err, ErrOracleStale))
}
