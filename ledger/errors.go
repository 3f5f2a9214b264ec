package ledger

import "errors"

// Every operation error wraps exactly one of these; compare with errors.Is.
var (
	ErrDailyLimitExceeded = errors.New("daily burn limit exceeded")
	ErrAlreadyProcessed   = errors.New("message already processed")
	ErrPaused             = errors.New("bridge is paused")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrUntrustedEmitter   = errors.New("untrusted emitter")
	ErrMalformedMessage   = errors.New("malformed message")
	ErrOracleStale        = errors.New("price data is stale")
	ErrOracleInvalid      = errors.New("invalid price data from oracle")
	ErrTokenLedgerFailure = errors.New("token ledger failure")

	ErrCapacityExceeded   = errors.New("capacity exceeded")
	ErrArithmeticOverflow = errors.New("arithmetic overflow")
	ErrNotInitialized     = errors.New("ledger not initialized")
	ErrAlreadyInitialized = errors.New("ledger already initialized")
	ErrStateNotPersisted  = errors.New("ledger state not persisted")
	ErrRevisionConflict   = errors.New("ledger state revision conflict")
	ErrDispatchFailed     = errors.New("message dispatch failed")

	// ErrPendingState is returned before any check or effect runs when an
	// earlier record is still unsaved. The operation can be retried as is.
	ErrPendingState = errors.New("earlier ledger state still unsaved")

	// ErrOutcomeUnknown is wrapped by token ledgers when a call was sent but
	// its result could not be observed. Retrying it may apply it twice.
	ErrOutcomeUnknown = errors.New("token ledger outcome unknown")
)
