package ledger

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"sync"
	"time"

	"github.com/dan13ram/bridge-ledger/common"
	"github.com/dan13ram/bridge-ledger/models"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

const (
	DefaultDailyBurnLimit uint64 = 1_000_000 * 1_000_000_000

	recentWritesKept = 16
)

type Policy struct {
	ChainID            uint16
	DailyBurnLimit     uint64
	MaxFingerprints    int
	MaxTrustedEmitters int
	StalenessSecs      int64
}

type Options struct {
	Name   string
	Policy Policy

	// Authority is the credential the ledger presents to the token ledger.
	Authority     common.Signer
	Token         TokenLedger
	Store         Store
	Locker        Locker
	Fingerprinter Fingerprinter
	Events        EventSink
	Dispatcher    Dispatcher

	Now func() time.Time
}

type BurnReceipt struct {
	Message     models.CrossChainMessage `json:"message"`
	Payload     []byte                   `json:"payload"`
	Remaining   uint64                   `json:"remaining"`
	TotalBurned uint64                   `json:"total_burned"`
	Revision    uint64                   `json:"revision"`
}

type MintReceipt struct {
	Message     models.CrossChainMessage `json:"message"`
	Fingerprint models.Fingerprint       `json:"fingerprint"`
	TotalMinted uint64                   `json:"total_minted"`
	Revision    uint64                   `json:"revision"`
}

// pendingWrite is an unsaved record plus the bookkeeping of its external
// effect, so the effect can be recorded again on a newer stored record.
type pendingWrite struct {
	state  *models.LedgerState
	record func(*models.LedgerState) error
}

// BridgeLedger coordinates every state change of one ledger record. Each
// operation runs under an in-process mutex and the cross-process Locker,
// works on a private copy of the record and commits it with a single Save.
type BridgeLedger struct {
	mu sync.Mutex

	name          string
	policy        Policy
	authority     common.Signer
	token         TokenLedger
	store         Store
	locker        Locker
	fingerprinter Fingerprinter
	events        EventSink
	dispatcher    Dispatcher
	now           func() time.Time

	// pending holds a record whose external effect already happened but
	// whose save failed. No mutation runs until it is persisted.
	pending *pendingWrite

	logger *log.Entry
}

func NewBridgeLedger(opts Options) (*BridgeLedger, error) {
	if opts.Name == "" {
		return nil, fmt.Errorf("ledger name is required")
	}
	if opts.Authority == nil {
		return nil, fmt.Errorf("authority signer is required")
	}
	if opts.Token == nil {
		return nil, fmt.Errorf("token ledger is required")
	}
	if opts.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if opts.Fingerprinter == nil {
		return nil, fmt.Errorf("fingerprinter is required")
	}
	if opts.Locker == nil {
		opts.Locker = NoopLocker
	}
	if opts.Events == nil {
		opts.Events = MultiSink{}
	}
	if opts.Dispatcher == nil {
		opts.Dispatcher = NoopDispatcher
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Policy.StalenessSecs <= 0 {
		opts.Policy.StalenessSecs = DefaultStalenessSecs
	}

	return &BridgeLedger{
		name:          opts.Name,
		policy:        opts.Policy,
		authority:     opts.Authority,
		token:         opts.Token,
		store:         opts.Store,
		locker:        opts.Locker,
		fingerprinter: opts.Fingerprinter,
		events:        opts.Events,
		dispatcher:    opts.Dispatcher,
		now:           opts.Now,
		logger:        log.WithFields(log.Fields{"ledger": opts.Name}),
	}, nil
}

func (l *BridgeLedger) Name() string {
	return l.name
}

func (l *BridgeLedger) unix() int64 {
	return l.now().Unix()
}

// acquire takes both locks and persists any pending record.
func (l *BridgeLedger) acquire(ctx context.Context) (func(), error) {
	l.mu.Lock()
	unlock, err := l.locker.Lock(ctx)
	if err != nil {
		l.mu.Unlock()
		return nil, fmt.Errorf("failed to lock ledger: %w", err)
	}
	release := func() {
		unlock()
		l.mu.Unlock()
	}
	if err := l.flushPending(ctx); err != nil {
		release()
		return nil, err
	}
	return release, nil
}

// flushPending persists the pending record. Until it succeeds every mutation
// fails with ErrPendingState before running any check or effect.
func (l *BridgeLedger) flushPending(ctx context.Context) error {
	if l.pending == nil {
		return nil
	}

	saved, err := l.persistPending(ctx)
	if err != nil {
		return fmt.Errorf("%w: revision %d: %w", ErrPendingState, l.pending.state.Revision, err)
	}

	l.logger.Infof("[LEDGER] Persisted pending write as revision %d", saved.Revision)
	l.pending = nil
	return nil
}

// persistPending saves the pending record. On a conflict the stored record
// either already carries this write, or another writer moved it on and the
// effect is recorded again on top of it.
func (l *BridgeLedger) persistPending(ctx context.Context) (*models.LedgerState, error) {
	p := l.pending

	var err error
	if p.state.Revision == 1 {
		err = l.store.Create(ctx, p.state)
	} else {
		err = l.store.Save(ctx, p.state)
	}
	if err == nil {
		return p.state.Clone(), nil
	}
	if !errors.Is(err, ErrRevisionConflict) && !errors.Is(err, ErrAlreadyInitialized) {
		return nil, err
	}

	stored, loadErr := l.load(ctx)
	if loadErr != nil {
		return nil, errors.Join(err, loadErr)
	}
	if slices.Contains(stored.RecentWrites, p.state.WriteID) {
		return stored, nil
	}

	l.logger.Warnf("[LEDGER] Revision %d was taken by write %s, recording effect on top of it", stored.Revision, stored.WriteID)
	rebased := stored.Clone()
	if err := p.record(rebased); err != nil {
		return nil, err
	}
	l.stamp(rebased)
	l.pending = &pendingWrite{state: rebased.Clone(), record: p.record}

	if err := l.store.Save(ctx, rebased); err != nil {
		return nil, err
	}
	return rebased, nil
}

func (l *BridgeLedger) load(ctx context.Context) (*models.LedgerState, error) {
	state, err := l.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	if state.SchemaVersion > models.LedgerSchemaVersion {
		return nil, fmt.Errorf("ledger schema version %d is newer than supported %d", state.SchemaVersion, models.LedgerSchemaVersion)
	}
	return state, nil
}

// stamp turns state into the next revision with a fresh write id.
func (l *BridgeLedger) stamp(state *models.LedgerState) {
	state.Revision++
	state.SchemaVersion = models.LedgerSchemaVersion
	state.UpdatedAt = l.now()
	state.WriteID = uuid.NewString()

	writes := append(slices.Clone(state.RecentWrites), state.WriteID)
	if len(writes) > recentWritesKept {
		writes = writes[len(writes)-recentWritesKept:]
	}
	state.RecentWrites = writes
}

// commit saves state as the next revision. A non-nil record means an external
// effect already happened: a failed save keeps the record as pending, and a
// conflicting save is retried once on top of the newer stored record. On
// success state holds what was saved.
func (l *BridgeLedger) commit(ctx context.Context, state *models.LedgerState, record func(*models.LedgerState) error) error {
	l.stamp(state)

	err := l.store.Save(ctx, state)
	if err == nil {
		return nil
	}
	if record == nil {
		return fmt.Errorf("failed to save ledger state: %w", err)
	}

	l.logger.WithError(err).Errorf("[LEDGER] Failed to save revision %d after external effect", state.Revision)
	l.pending = &pendingWrite{state: state.Clone(), record: record}

	if errors.Is(err, ErrRevisionConflict) {
		saved, retryErr := l.persistPending(ctx)
		if retryErr == nil {
			l.pending = nil
			*state = *saved
			return nil
		}
		err = errors.Join(err, retryErr)
	}
	return fmt.Errorf("%w: %w", ErrStateNotPersisted, err)
}

func (l *BridgeLedger) authorize(state *models.LedgerState, caller models.Identity) error {
	if caller != state.Authority {
		return fmt.Errorf("%w: caller %s is not the authority", ErrUnauthorized, caller)
	}
	return nil
}

// Initialize creates the ledger record and mints the initial supply to the
// authority.
func (l *BridgeLedger) Initialize(ctx context.Context, authority models.Identity, initialSupply uint64, trusted ...models.TrustedEmitter) (*models.LedgerState, error) {
	release, err := l.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	if _, err := l.store.Load(ctx); err == nil {
		return nil, ErrAlreadyInitialized
	} else if !errors.Is(err, ErrNotInitialized) {
		return nil, fmt.Errorf("failed to load ledger state: %w", err)
	}

	if authority.IsZero() {
		return nil, fmt.Errorf("%w: authority is empty", ErrUnauthorized)
	}

	registry := NewTrustRegistry(l.policy.MaxTrustedEmitters, nil)
	for _, e := range trusted {
		if _, err := registry.Add(e.ChainID, e.Emitter); err != nil {
			return nil, err
		}
	}

	limit := l.policy.DailyBurnLimit
	if limit == 0 {
		limit = DefaultDailyBurnLimit
	}

	now := l.now()
	state := &models.LedgerState{
		Name:                  l.name,
		Authority:             authority,
		ChainID:               l.policy.ChainID,
		DailyBurnLimit:        limit,
		ProcessedFingerprints: []models.Fingerprint{},
		TrustedEmitters:       registry.Emitters(),
		CreatedAt:             now,
	}
	l.stamp(state)

	if initialSupply > 0 {
		if err := l.token.Mint(ctx, l.authority, authority, initialSupply); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrTokenLedgerFailure, err)
		}
	}

	if err := l.store.Create(ctx, state); err != nil {
		if initialSupply == 0 {
			return nil, fmt.Errorf("failed to create ledger state: %w", err)
		}
		l.logger.WithError(err).Error("[LEDGER] Failed to create ledger state after initial mint")
		// the supply is already minted, a concurrent initializer's record is kept as is
		l.pending = &pendingWrite{state: state.Clone(), record: func(*models.LedgerState) error { return nil }}
		return nil, fmt.Errorf("%w: %w", ErrStateNotPersisted, err)
	}

	l.logger.Infof("[LEDGER] Initialized with authority %s", authority)
	l.events.Emit(ctx, models.Initialized{Authority: authority, InitialSupply: initialSupply})
	for _, e := range state.TrustedEmitters {
		l.events.Emit(ctx, models.TrustAdded{ChainID: e.ChainID, Emitter: e.Emitter})
	}
	return state.Clone(), nil
}

// Burn removes amount from the caller's balance and announces a message for
// targetChain. Once the tokens are burned the message is always dispatched,
// so a save or dispatch failure is returned together with a valid receipt.
func (l *BridgeLedger) Burn(ctx context.Context, caller models.Identity, amount uint64, targetChain uint16, recipient models.Identity, nonce uint32) (*BurnReceipt, error) {
	release, err := l.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	state, err := l.load(ctx)
	if err != nil {
		return nil, err
	}

	if state.Paused {
		return nil, ErrPaused
	}

	now := l.unix()
	limiter := RateLimiter{
		Limit:     state.DailyBurnLimit,
		Amount:    state.DailyBurnAmount,
		LastReset: state.LastBurnReset,
	}
	if _, err := limiter.TryConsume(amount, now); err != nil {
		return nil, err
	}

	if state.TotalBurned > math.MaxUint64-amount {
		return nil, fmt.Errorf("%w: total burned", ErrArithmeticOverflow)
	}

	if err := l.token.Burn(ctx, l.authority, caller, amount); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTokenLedgerFailure, err)
	}

	record := func(s *models.LedgerState) error {
		if s.TotalBurned > math.MaxUint64-amount {
			return fmt.Errorf("%w: total burned", ErrArithmeticOverflow)
		}
		window := RateLimiter{Limit: s.DailyBurnLimit, Amount: s.DailyBurnAmount, LastReset: s.LastBurnReset}
		window.Record(amount, now)
		s.DailyBurnAmount = window.Amount
		s.LastBurnReset = window.LastReset
		s.TotalBurned += amount
		return nil
	}
	if err := record(state); err != nil {
		// unreachable after the checks above
		return nil, err
	}

	// the tokens are gone either way, so an unsaved record still announces
	// the burn and is reported next to the receipt
	persistErr := l.commit(ctx, state, record)
	window := RateLimiter{Limit: state.DailyBurnLimit, Amount: state.DailyBurnAmount, LastReset: state.LastBurnReset}

	msg := models.CrossChainMessage{
		Action:      models.ActionBurn,
		Amount:      amount,
		Recipient:   recipient,
		SourceChain: state.ChainID,
		TargetChain: targetChain,
		Nonce:       nonce,
	}
	receipt := &BurnReceipt{
		Message:     msg,
		Payload:     EncodeMessage(msg),
		Remaining:   window.Remaining(now),
		TotalBurned: state.TotalBurned,
		Revision:    state.Revision,
	}

	l.logger.WithFields(log.Fields{"caller": caller, "amount": amount, "target_chain": targetChain}).Debug("[LEDGER] Burn committed")
	l.events.Emit(ctx, models.BurnInitiated{
		Caller:      caller,
		Amount:      amount,
		TargetChain: targetChain,
		Recipient:   recipient,
		Nonce:       nonce,
	})

	if err := l.dispatcher.Dispatch(ctx, msg, receipt.Payload); err != nil {
		l.logger.WithError(err).Error("[LEDGER] Failed to dispatch burn message")
		return receipt, errors.Join(persistErr, fmt.Errorf("%w: %w", ErrDispatchFailed, err))
	}
	return receipt, persistErr
}

// Deliver mints the amount carried by an attested inbound message. A message
// is minted at most once.
func (l *BridgeLedger) Deliver(ctx context.Context, attested models.AttestedMessage) (*MintReceipt, error) {
	fingerprint := l.fingerprinter.Fingerprint(attested)

	release, err := l.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	state, err := l.load(ctx)
	if err != nil {
		return nil, err
	}

	trust := NewTrustRegistry(l.policy.MaxTrustedEmitters, state.TrustedEmitters)
	if !trust.IsTrusted(attested.EmitterChain, attested.EmitterAddress) {
		return nil, fmt.Errorf("%w: chain %d emitter %s", ErrUntrustedEmitter, attested.EmitterChain, attested.EmitterAddress)
	}

	processed := NewFingerprintStore(l.policy.MaxFingerprints, state.ProcessedFingerprints)
	if processed.Has(fingerprint) {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyProcessed, fingerprint)
	}

	msg, err := DecodeMessage(attested.Payload)
	if err != nil {
		return nil, err
	}
	if msg.Action != models.ActionMint {
		return nil, fmt.Errorf("%w: inbound action %s", ErrMalformedMessage, msg.Action)
	}

	if processed.Full() {
		return nil, fmt.Errorf("%w: fingerprint store is full", ErrCapacityExceeded)
	}
	if state.TotalMinted > math.MaxUint64-msg.Amount {
		return nil, fmt.Errorf("%w: total minted", ErrArithmeticOverflow)
	}

	if err := l.token.Mint(ctx, l.authority, msg.Recipient, msg.Amount); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTokenLedgerFailure, err)
	}

	record := func(s *models.LedgerState) error {
		recorded := NewFingerprintStore(l.policy.MaxFingerprints, s.ProcessedFingerprints)
		if recorded.Has(fingerprint) {
			l.logger.Errorf("[LEDGER] Fingerprint %s was also recorded by another writer", fingerprint)
			return nil
		}
		if s.TotalMinted > math.MaxUint64-msg.Amount {
			return fmt.Errorf("%w: total minted", ErrArithmeticOverflow)
		}
		if err := recorded.Insert(fingerprint); err != nil {
			return err
		}
		s.ProcessedFingerprints = recorded.Fingerprints()
		s.TotalMinted += msg.Amount
		return nil
	}
	if err := record(state); err != nil {
		// unreachable after the checks above
		return nil, err
	}

	persistErr := l.commit(ctx, state, record)

	l.logger.WithFields(log.Fields{"fingerprint": fingerprint, "amount": msg.Amount, "source_chain": msg.SourceChain}).Debug("[LEDGER] Mint committed")
	l.events.Emit(ctx, models.MintCompleted{
		Recipient:   msg.Recipient,
		Amount:      msg.Amount,
		SourceChain: msg.SourceChain,
		Fingerprint: fingerprint,
	})

	return &MintReceipt{
		Message:     msg,
		Fingerprint: fingerprint,
		TotalMinted: state.TotalMinted,
		Revision:    state.Revision,
	}, persistErr
}

func (l *BridgeLedger) Pause(ctx context.Context, caller models.Identity) error {
	return l.setPaused(ctx, caller, true)
}

func (l *BridgeLedger) Unpause(ctx context.Context, caller models.Identity) error {
	return l.setPaused(ctx, caller, false)
}

func (l *BridgeLedger) setPaused(ctx context.Context, caller models.Identity, paused bool) error {
	release, err := l.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	state, err := l.load(ctx)
	if err != nil {
		return err
	}
	if err := l.authorize(state, caller); err != nil {
		return err
	}
	if state.Paused == paused {
		return nil
	}

	state.Paused = paused
	if err := l.commit(ctx, state, nil); err != nil {
		return err
	}

	l.logger.Infof("[LEDGER] Paused set to %t", paused)
	l.events.Emit(ctx, models.PauseChanged{Paused: paused, Caller: caller})
	return nil
}

// AddTrustedEmitter reports whether the emitter was newly trusted.
func (l *BridgeLedger) AddTrustedEmitter(ctx context.Context, caller models.Identity, chainID uint16, emitter models.Identity) (bool, error) {
	release, err := l.acquire(ctx)
	if err != nil {
		return false, err
	}
	defer release()

	state, err := l.load(ctx)
	if err != nil {
		return false, err
	}
	if err := l.authorize(state, caller); err != nil {
		return false, err
	}

	registry := NewTrustRegistry(l.policy.MaxTrustedEmitters, state.TrustedEmitters)
	added, err := registry.Add(chainID, emitter)
	if err != nil || !added {
		return false, err
	}

	state.TrustedEmitters = registry.Emitters()
	if err := l.commit(ctx, state, nil); err != nil {
		return false, err
	}

	l.logger.Infof("[LEDGER] Trusted emitter %s on chain %d", emitter, chainID)
	l.events.Emit(ctx, models.TrustAdded{ChainID: chainID, Emitter: emitter})
	return true, nil
}

// RemoveTrustedEmitter reports whether the emitter was trusted before the call.
func (l *BridgeLedger) RemoveTrustedEmitter(ctx context.Context, caller models.Identity, chainID uint16, emitter models.Identity) (bool, error) {
	release, err := l.acquire(ctx)
	if err != nil {
		return false, err
	}
	defer release()

	state, err := l.load(ctx)
	if err != nil {
		return false, err
	}
	if err := l.authorize(state, caller); err != nil {
		return false, err
	}

	registry := NewTrustRegistry(l.policy.MaxTrustedEmitters, state.TrustedEmitters)
	if !registry.Remove(chainID, emitter) {
		return false, nil
	}

	state.TrustedEmitters = registry.Emitters()
	if err := l.commit(ctx, state, nil); err != nil {
		return false, err
	}

	l.logger.Infof("[LEDGER] Removed trusted emitter %s on chain %d", emitter, chainID)
	l.events.Emit(ctx, models.TrustRemoved{ChainID: chainID, Emitter: emitter})
	return true, nil
}

// RefreshPrice stores an oracle reading stamped with the ledger clock. An
// unusable reading leaves the previous snapshot in place.
func (l *BridgeLedger) RefreshPrice(ctx context.Context, reading models.PriceReading) (models.PriceSnapshot, error) {
	if !reading.Trading {
		return models.PriceSnapshot{}, fmt.Errorf("%w: feed is not trading", ErrOracleInvalid)
	}
	if reading.Price <= 0 {
		return models.PriceSnapshot{}, fmt.Errorf("%w: price %d", ErrOracleInvalid, reading.Price)
	}
	if reading.PublishTime.IsZero() {
		return models.PriceSnapshot{}, fmt.Errorf("%w: missing publish time", ErrOracleInvalid)
	}

	release, err := l.acquire(ctx)
	if err != nil {
		return models.PriceSnapshot{}, err
	}
	defer release()

	state, err := l.load(ctx)
	if err != nil {
		return models.PriceSnapshot{}, err
	}

	cache := PriceCache{Staleness: l.policy.StalenessSecs}
	cache.Update(uint64(reading.Price), reading.Confidence, l.unix())

	state.CurrentPrice = cache.Snapshot.Price
	state.PriceConfidence = cache.Snapshot.Confidence
	state.PriceTimestamp = cache.Snapshot.Timestamp

	if err := l.commit(ctx, state, nil); err != nil {
		return models.PriceSnapshot{}, err
	}

	l.events.Emit(ctx, models.PriceUpdated{
		Price:      cache.Snapshot.Price,
		Confidence: cache.Snapshot.Confidence,
		Timestamp:  cache.Snapshot.Timestamp,
	})
	return cache.Snapshot, nil
}

// snapshot returns the newest known record, pending or stored.
func (l *BridgeLedger) snapshot(ctx context.Context) (*models.LedgerState, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.pending != nil {
		return l.pending.state.Clone(), nil
	}
	return l.load(ctx)
}

func (l *BridgeLedger) State(ctx context.Context) (*models.LedgerState, error) {
	return l.snapshot(ctx)
}

func (l *BridgeLedger) RemainingDailyBurn(ctx context.Context) (uint64, error) {
	state, err := l.snapshot(ctx)
	if err != nil {
		return 0, err
	}
	limiter := RateLimiter{
		Limit:     state.DailyBurnLimit,
		Amount:    state.DailyBurnAmount,
		LastReset: state.LastBurnReset,
	}
	return limiter.Remaining(l.unix()), nil
}

func (l *BridgeLedger) CurrentPrice(ctx context.Context) (models.PriceSnapshot, error) {
	state, err := l.snapshot(ctx)
	if err != nil {
		return models.PriceSnapshot{}, err
	}
	cache := PriceCache{
		Snapshot: models.PriceSnapshot{
			Price:      state.CurrentPrice,
			Confidence: state.PriceConfidence,
			Timestamp:  state.PriceTimestamp,
		},
		Staleness: l.policy.StalenessSecs,
	}
	return cache.ReadSnapshot(l.unix())
}
