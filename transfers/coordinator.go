package transfers

import (
	"context"
	"errors"

	"golang.org/x/xerrors"

	"github.com/Thierry61/safe-client-libs/api"
	"github.com/Thierry61/safe-client-libs/types"
)

// WriteState tracks a single write attempt through the pay-then-write
// protocol.
type WriteState int

const (
	WriteStateIdle WriteState = iota
	WriteStateDebitRequested
	WriteStateProofReceived
	WriteStateRegistered
	WriteStateApplied
	WriteStatePaidWriteAuthorized
	WriteStateFailed
)

func (ws WriteState) String() string {
	switch ws {
	case WriteStateIdle:
		return "Idle"
	case WriteStateDebitRequested:
		return "DebitRequested"
	case WriteStateProofReceived:
		return "ProofReceived"
	case WriteStateRegistered:
		return "Registered"
	case WriteStateApplied:
		return "Applied"
	case WriteStatePaidWriteAuthorized:
		return "PaidWriteAuthorized"
	case WriteStateFailed:
		return "Failed"
	default:
		return "<unknown>"
	}
}

// WriteGrant is the terminal result of a funding attempt. The data write may
// only proceed when Authorized reports true.
type WriteGrant struct {
	state WriteState
	event *types.TransferEvent
}

func (g *WriteGrant) State() WriteState {
	return g.state
}

func (g *WriteGrant) Event() *types.TransferEvent {
	return g.event
}

func (g *WriteGrant) Authorized() bool {
	return g.state == WriteStatePaidWriteAuthorized
}

// Coordinator drives the pay-then-write flow: request a debit, send it to
// the network, commit the returned proof through the local actor. It never
// retries register/apply; a failed attempt must restart from a fresh debit
// request, since replaying a stale proof can never produce an event.
type Coordinator struct {
	actor *Actor
	net   api.Network
}

func NewCoordinator(actor *Actor, net api.Network) *Coordinator {
	return &Coordinator{
		actor: actor,
		net:   net,
	}
}

// Fund obtains payment commitment for a write of the given cost. On success
// the returned grant is in PaidWriteAuthorized and the debited event has
// been applied to local state. On any failure the grant records the state
// the attempt failed from and local state is left untouched.
func (c *Coordinator) Fund(ctx context.Context, amount types.Amount, msg string) (*WriteGrant, error) {
	state := WriteStateIdle

	req, err := c.actor.Debit(amount, msg)
	if err != nil {
		return &WriteGrant{state: WriteStateFailed}, xerrors.Errorf("requesting debit from %s: %w", state, err)
	}
	state = WriteStateDebitRequested

	proof, err := c.net.SubmitDebit(ctx, req)
	if err != nil {
		c.actor.Abandon(req)
		return &WriteGrant{state: WriteStateFailed}, xerrors.Errorf("submitting debit from %s: %w", state, err)
	}
	state = WriteStateProofReceived

	if err := ctx.Err(); err != nil {
		// Cancelled after the network accepted the debit: the claim is
		// orphaned on the network side, local state stays untouched.
		c.actor.Abandon(req)
		return &WriteGrant{state: WriteStateFailed}, xerrors.Errorf("cancelled from %s: %w", state, err)
	}

	ev, err := c.actor.Commit(ctx, proof)
	if err != nil {
		if !errors.Is(err, ErrNoTransferEventsForLocalActor) {
			// register produced an event but apply rejected it
			state = WriteStateRegistered
		}
		// The claim is dead locally either way; the network-side agreement,
		// if there was one, is orphaned.
		c.actor.Abandon(req)
		return &WriteGrant{state: WriteStateFailed}, xerrors.Errorf("committing proof from %s: %w", state, err)
	}
	state = WriteStateApplied

	log.Debugw("write payment applied", "seq", ev.Proof.Debit.Seq, "amount", ev.Proof.Debit.Amount, "state", state)

	return &WriteGrant{
		state: WriteStatePaidWriteAuthorized,
		event: ev,
	}, nil
}
