package transfers

import "errors"

var (
	// ErrNoTransferEventsForLocalActor means registration succeeded but
	// produced nothing to apply: the proof is stale, already applied, or
	// unrelated to any pending local claim. A write attempt hitting this must
	// restart from a fresh debit request; replaying the same proof can never
	// succeed.
	ErrNoTransferEventsForLocalActor = errors.New("no transfer events for local actor")

	// ErrInsufficientBalance covers both the local pre-check and a
	// network-reported rejection of a debit that would overdraw the account.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrOutOfSequence means an event's sequence number is not the immediate
	// successor of the applied state.
	ErrOutOfSequence = errors.New("transfer event out of sequence")

	// ErrAccountNotTracked means the store has no snapshot for the account.
	ErrAccountNotTracked = errors.New("account not tracked")
)
