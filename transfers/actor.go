package transfers

import (
	"context"
	"sync"

	"github.com/filecoin-project/go-address"
	"github.com/google/uuid"
	"github.com/hannahhoward/go-pubsub"
	logging "github.com/ipfs/go-log/v2"
	"golang.org/x/xerrors"

	"github.com/Thierry61/safe-client-libs/types"
)

var log = logging.Logger("transfers")

// Actor is the client-held replica of the client's account state. It owns
// the committed balance and sequence number, tracks debit claims awaiting
// network agreement, and folds agreement proofs into local state through the
// two-phase register/apply protocol.
//
// One mutex guards all state. Commit holds it across the whole
// register+apply pair so no other operation can observe or mutate
// intervening state.
type Actor struct {
	lk sync.Mutex

	owner address.Address
	keys  *types.KeyInfo

	state   types.AccountInfo
	pending map[uint64]*types.DebitRequest

	store     *Store
	validator Validator
	listeners appliedListeners
}

func NewActor(ctx context.Context, keys *types.KeyInfo, store *Store, validator Validator) (*Actor, error) {
	owner, err := keys.Address()
	if err != nil {
		return nil, err
	}

	a := &Actor{
		owner:     owner,
		keys:      keys,
		pending:   make(map[uint64]*types.DebitRequest),
		store:     store,
		validator: validator,
		listeners: newAppliedListeners(),
	}

	ai, err := store.GetAccount(ctx, owner)
	switch err {
	default:
		return nil, err
	case nil:
		a.state = *ai
	case ErrAccountNotTracked:
		a.state = types.AccountInfo{
			Owner:   owner,
			Balance: types.NewAmount(0),
			Seq:     0,
		}
	}

	return a, nil
}

func (a *Actor) Owner() address.Address {
	return a.owner
}

// Balance returns the committed balance. Pending, unconfirmed debits are
// never included.
func (a *Actor) Balance() types.Amount {
	a.lk.Lock()
	defer a.lk.Unlock()

	return a.state.Balance
}

func (a *Actor) Seq() uint64 {
	a.lk.Lock()
	defer a.lk.Unlock()

	return a.state.Seq
}

// SyncBalance seeds the snapshot from the network's view of the account.
// Only a fresh actor with no applied history takes the network value; once
// local events exist they are the authority.
func (a *Actor) SyncBalance(ctx context.Context, amt types.Amount) error {
	a.lk.Lock()
	defer a.lk.Unlock()

	if a.state.Seq > 0 {
		return nil
	}

	a.state.Balance = amt
	return a.store.PutAccount(ctx, &a.state)
}

// Debit creates a signed debit request for the next free sequence number and
// tracks it as a pending claim. Fails with ErrInsufficientBalance if the
// committed balance minus all pending claims cannot cover the amount.
func (a *Actor) Debit(amount types.Amount, msg string) (*types.DebitRequest, error) {
	if amount.Nil() {
		return nil, xerrors.Errorf("debit amount not set")
	}

	a.lk.Lock()
	defer a.lk.Unlock()

	avail := a.state.Balance
	for _, req := range a.pending {
		avail = types.AmountSub(avail, req.Debit.Amount)
	}
	if avail.LessThan(amount) {
		return nil, xerrors.Errorf("debit of %s exceeds available balance %s: %w", amount, avail, ErrInsufficientBalance)
	}

	debit := types.Debit{
		Account: a.owner,
		Seq:     a.state.Seq + uint64(len(a.pending)) + 1,
		Amount:  amount,
		Msg:     msg,
	}

	sb, err := debit.SigningBytes()
	if err != nil {
		return nil, err
	}
	sig, err := a.keys.Sign(sb)
	if err != nil {
		return nil, err
	}

	req := &types.DebitRequest{
		ID:        uuid.New(),
		Debit:     debit,
		Requester: sig,
	}
	a.pending[debit.Seq] = req

	return req, nil
}

// Abandon drops a pending claim whose network round trip failed or was
// cancelled, along with every pending claim above it: higher claims were
// numbered on the assumption this one would apply first, and can never
// apply over the hole it leaves. Their reserved balance and sequence slots
// become available to fresh debit requests.
func (a *Actor) Abandon(req *types.DebitRequest) {
	a.lk.Lock()
	defer a.lk.Unlock()

	seq := req.Debit.Seq
	cur, ok := a.pending[seq]
	if !ok || cur.ID != req.ID {
		return
	}

	for s := range a.pending {
		if s > seq {
			log.Warnf("abandoning debit claim for seq %d: seq %d will never apply", s, seq)
			delete(a.pending, s)
		}
	}
	delete(a.pending, seq)
}

// Register submits a proof for validation against the actor's pending
// claims. A (nil, nil) return means the proof corresponds to no pending
// claim known to this actor: stale, already applied, or for some other
// account. That is not an error, it signals nothing to do. An error means
// the proof is structurally invalid or contradicts a pending claim.
func (a *Actor) Register(proof *types.AgreementProof) (*types.TransferEvent, error) {
	a.lk.Lock()
	defer a.lk.Unlock()

	return a.register(proof)
}

func (a *Actor) register(proof *types.AgreementProof) (*types.TransferEvent, error) {
	if proof.Debit.Account != a.owner {
		log.Debugf("ignoring proof for foreign account %s", proof.Debit.Account)
		return nil, nil
	}

	if proof.Debit.Seq <= a.state.Seq {
		// Already applied; a replayed proof is a no-op, not an error.
		return nil, nil
	}

	claim, ok := a.pending[proof.Debit.Seq]
	if !ok {
		return nil, nil
	}

	if err := a.validator.Validate(proof, &claim.Debit); err != nil {
		return nil, err
	}

	return &types.TransferEvent{Proof: *proof}, nil
}

// Apply commits a registered event into local state. The event's sequence
// number must be the immediate successor of the applied state; anything else
// fails with ErrOutOfSequence. The balance and sequence number advance as a
// single step under the actor lock, persisted before the in-memory state
// changes.
func (a *Actor) Apply(ctx context.Context, ev *types.TransferEvent) error {
	a.lk.Lock()
	defer a.lk.Unlock()

	return a.apply(ctx, ev)
}

func (a *Actor) apply(ctx context.Context, ev *types.TransferEvent) error {
	seq := ev.Proof.Debit.Seq
	if seq != a.state.Seq+1 {
		return xerrors.Errorf("event for seq %d against state at seq %d: %w", seq, a.state.Seq, ErrOutOfSequence)
	}

	ai := types.AccountInfo{
		Owner:   a.owner,
		Balance: types.AmountSub(a.state.Balance, ev.Proof.Debit.Amount),
		Seq:     seq,
	}

	if err := a.store.ApplyTransfer(ctx, ev, &ai); err != nil {
		return err
	}

	a.state = ai
	delete(a.pending, seq)

	a.listeners.fireApplied(ev)

	return nil
}

// Commit runs register then apply as one critical section. Returns
// ErrNoTransferEventsForLocalActor when registration produced nothing to
// apply.
func (a *Actor) Commit(ctx context.Context, proof *types.AgreementProof) (*types.TransferEvent, error) {
	a.lk.Lock()
	defer a.lk.Unlock()

	ev, err := a.register(proof)
	if err != nil {
		return nil, err
	}
	if ev == nil {
		return nil, ErrNoTransferEventsForLocalActor
	}

	if err := a.apply(ctx, ev); err != nil {
		return nil, err
	}

	return ev, nil
}

// OnApplied registers a callback for each applied transfer event.
func (a *Actor) OnApplied(cb func(*types.TransferEvent)) pubsub.Unsubscribe {
	return a.listeners.onApplied(cb)
}
