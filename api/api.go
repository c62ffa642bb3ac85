package api

import (
	"context"

	"github.com/filecoin-project/go-address"
	"github.com/ipfs/go-cid"

	"github.com/Thierry61/safe-client-libs/types"
)

// Network defines the methods the funding gate needs from the network
// layer. Wire format and transport are the network implementation's
// concern.
type Network interface {
	// SectionKey returns the public key the section uses to sign agreement
	// proofs for this client's account.
	SectionKey(ctx context.Context) (address.Address, error)

	// Balance returns the network's view of the account balance.
	Balance(ctx context.Context, owner address.Address) (types.Amount, error)

	// StoreCost quotes the debit amount for storing size bytes.
	StoreCost(ctx context.Context, size uint64) (types.Amount, error)

	// SubmitDebit submits a signed debit request and returns the section's
	// agreement proof, or an error if the network-side balance check failed.
	SubmitDebit(ctx context.Context, req *types.DebitRequest) (*types.AgreementProof, error)

	PutChunk(ctx context.Context, ch *types.Chunk) error
	GetChunk(ctx context.Context, c cid.Cid) (*types.Chunk, error)

	PutRecord(ctx context.Context, rec *types.Record) error
	GetRecord(ctx context.Context, id types.RecordID) (*types.Record, error)
}

// SimulatedPayouts is implemented by test networks that can mint balance
// into an account without a real farming reward.
type SimulatedPayouts interface {
	TriggerSimulatedPayout(ctx context.Context, owner address.Address, amt types.Amount) error
}

// WriteReceipt describes a completed pay-and-write: what was debited and
// where the data lives.
type WriteReceipt struct {
	Chunk   *cid.Cid        `json:",omitempty"`
	Record  *types.RecordID `json:",omitempty"`
	Debited types.Amount
	Seq     uint64
}
