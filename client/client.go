// Package client is the externally visible entry point: balance queries and
// pay-and-write operations for immutable chunks and mutable records. No data
// write ever reaches the network without a corresponding applied debit in
// the local transfer actor.
package client

import (
	"context"
	"errors"
	"fmt"

	"github.com/filecoin-project/go-address"
	"github.com/hannahhoward/go-pubsub"
	"github.com/ipfs/go-cid"
	"github.com/ipfs/go-datastore"
	logging "github.com/ipfs/go-log/v2"
	"golang.org/x/xerrors"

	"github.com/Thierry61/safe-client-libs/api"
	"github.com/Thierry61/safe-client-libs/transfers"
	"github.com/Thierry61/safe-client-libs/types"
)

var log = logging.Logger("client")

// ErrWriteAfterPayment marks the partial-failure case where the debit was
// applied but the data write failed. Callers must not pay again for the
// same write.
var ErrWriteAfterPayment = errors.New("data write failed after payment was applied")

type Client struct {
	owner address.Address
	net   api.Network

	actor *transfers.Actor
	coord *transfers.Coordinator
}

func New(ctx context.Context, ds datastore.Batching, net api.Network, keys *types.KeyInfo) (*Client, error) {
	owner, err := keys.Address()
	if err != nil {
		return nil, err
	}

	section, err := net.SectionKey(ctx)
	if err != nil {
		return nil, xerrors.Errorf("fetching section key: %w", err)
	}

	store := transfers.NewStore(ds)
	actor, err := transfers.NewActor(ctx, keys, store, transfers.NewSectionValidator(section))
	if err != nil {
		return nil, err
	}

	// A fresh actor starts with the network's view of the balance.
	amt, err := net.Balance(ctx, owner)
	if err != nil {
		return nil, xerrors.Errorf("fetching network balance: %w", err)
	}
	if err := actor.SyncBalance(ctx, amt); err != nil {
		return nil, err
	}

	return &Client{
		owner: owner,
		net:   net,
		actor: actor,
		coord: transfers.NewCoordinator(actor, net),
	}, nil
}

func (c *Client) Owner() address.Address {
	return c.owner
}

// Balance returns the committed local balance.
func (c *Client) Balance() types.Amount {
	return c.actor.Balance()
}

// OnSpend registers a callback fired for every applied debit.
func (c *Client) OnSpend(cb func(*types.TransferEvent)) pubsub.Unsubscribe {
	return c.actor.OnApplied(cb)
}

// PutChunk pays for and stores an immutable chunk, returning its address
// and a write receipt.
func (c *Client) PutChunk(ctx context.Context, data []byte) (cid.Cid, *api.WriteReceipt, error) {
	ch := types.NewChunk(data)
	chCid, err := ch.Cid()
	if err != nil {
		return cid.Undef, nil, err
	}

	grant, err := c.fund(ctx, uint64(len(data)), fmt.Sprintf("store chunk %s", chCid))
	if err != nil {
		return cid.Undef, nil, err
	}

	if err := c.net.PutChunk(ctx, ch); err != nil {
		return cid.Undef, nil, xerrors.Errorf("%w: put chunk %s: %s", ErrWriteAfterPayment, chCid, err)
	}

	ev := grant.Event()
	return chCid, &api.WriteReceipt{
		Chunk:   &chCid,
		Debited: ev.Proof.Debit.Amount,
		Seq:     ev.Proof.Debit.Seq,
	}, nil
}

func (c *Client) GetChunk(ctx context.Context, chCid cid.Cid) (*types.Chunk, error) {
	ch, err := c.net.GetChunk(ctx, chCid)
	if err != nil {
		return nil, err
	}

	// Chunks are self-verifying: the retrieved content must hash back to the
	// address it was fetched by.
	got, err := ch.Cid()
	if err != nil {
		return nil, err
	}
	if !got.Equals(chCid) {
		return nil, xerrors.Errorf("retrieved chunk %s does not match requested address %s", got, chCid)
	}

	return ch, nil
}

// PutRecord pays for and stores a mutable record.
func (c *Client) PutRecord(ctx context.Context, rec *types.Record) (*api.WriteReceipt, error) {
	grant, err := c.fund(ctx, rec.Size(), fmt.Sprintf("store record %x tag %d", rec.ID.Name, rec.ID.Tag))
	if err != nil {
		return nil, err
	}

	if err := c.net.PutRecord(ctx, rec); err != nil {
		return nil, xerrors.Errorf("%w: put record %x: %s", ErrWriteAfterPayment, rec.ID.Name, err)
	}

	ev := grant.Event()
	return &api.WriteReceipt{
		Record:  &rec.ID,
		Debited: ev.Proof.Debit.Amount,
		Seq:     ev.Proof.Debit.Seq,
	}, nil
}

func (c *Client) GetRecord(ctx context.Context, id types.RecordID) (*types.Record, error) {
	return c.net.GetRecord(ctx, id)
}

// fund obtains payment commitment for a write of the given size. The write
// itself only proceeds on an authorized grant.
func (c *Client) fund(ctx context.Context, size uint64, msg string) (*transfers.WriteGrant, error) {
	cost, err := c.net.StoreCost(ctx, size)
	if err != nil {
		return nil, xerrors.Errorf("quoting store cost: %w", err)
	}

	grant, err := c.coord.Fund(ctx, cost, msg)
	if err != nil {
		return nil, err
	}
	if !grant.Authorized() {
		return nil, xerrors.Errorf("write not authorized (funding state %s)", grant.State())
	}

	log.Debugw("write funded", "owner", c.owner, "cost", cost, "seq", grant.Event().Proof.Debit.Seq)

	return grant, nil
}
