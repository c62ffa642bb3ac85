package transfers

import (
	"context"
	"fmt"

	"github.com/filecoin-project/go-address"
	"github.com/ipfs/go-datastore"
	"github.com/ipfs/go-datastore/namespace"
	dsq "github.com/ipfs/go-datastore/query"
	cbor "github.com/ipfs/go-ipld-cbor"
	"golang.org/x/xerrors"

	"github.com/Thierry61/safe-client-libs/types"
)

// Store persists the local actor's account snapshot and the history of
// applied transfer events.
type Store struct {
	ds datastore.Batching
}

func NewStore(ds datastore.Batching) *Store {
	ds = namespace.Wrap(ds, datastore.NewKey("/transfers/"))
	return &Store{
		ds: ds,
	}
}

func dskeyForAccount(addr address.Address) datastore.Key {
	return datastore.KeyWithNamespaces([]string{"account", addr.String()})
}

func dskeyForTransfer(addr address.Address, seq uint64) datastore.Key {
	return datastore.KeyWithNamespaces([]string{"history", addr.String(), fmt.Sprintf("%020d", seq)})
}

func (ps *Store) PutAccount(ctx context.Context, ai *types.AccountInfo) error {
	b, err := cbor.DumpObject(ai)
	if err != nil {
		return err
	}

	return ps.ds.Put(ctx, dskeyForAccount(ai.Owner), b)
}

func (ps *Store) GetAccount(ctx context.Context, addr address.Address) (*types.AccountInfo, error) {
	b, err := ps.ds.Get(ctx, dskeyForAccount(addr))
	if err == datastore.ErrNotFound {
		return nil, ErrAccountNotTracked
	}
	if err != nil {
		return nil, err
	}

	var ai types.AccountInfo
	if err := cbor.DecodeInto(b, &ai); err != nil {
		return nil, err
	}

	return &ai, nil
}

// ApplyTransfer records an applied event under its sequence number together
// with the account snapshot it produced, as a single batch. The caller's
// ordering check keeps history append-only; a row already present at this
// sequence number can only be debris from an interrupted commit that never
// updated the snapshot, so it is rewritten rather than treated as a
// conflict.
func (ps *Store) ApplyTransfer(ctx context.Context, ev *types.TransferEvent, ai *types.AccountInfo) error {
	evb, err := cbor.DumpObject(ev)
	if err != nil {
		return err
	}
	aib, err := cbor.DumpObject(ai)
	if err != nil {
		return err
	}

	b, err := ps.ds.Batch(ctx)
	if err != nil {
		return err
	}
	if err := b.Put(ctx, dskeyForTransfer(ai.Owner, ev.Proof.Debit.Seq), evb); err != nil {
		return err
	}
	if err := b.Put(ctx, dskeyForAccount(ai.Owner), aib); err != nil {
		return err
	}

	return b.Commit(ctx)
}

// TransfersFor returns the applied transfer history for an account in
// sequence order.
func (ps *Store) TransfersFor(ctx context.Context, addr address.Address) ([]*types.TransferEvent, error) {
	prefix := datastore.KeyWithNamespaces([]string{"history", addr.String()})

	res, err := ps.ds.Query(ctx, dsq.Query{
		Prefix: prefix.String(),
		Orders: []dsq.Order{dsq.OrderByKey{}},
	})
	if err != nil {
		return nil, err
	}
	defer res.Close() //nolint:errcheck

	var out []*types.TransferEvent
	for {
		r, ok := res.NextSync()
		if !ok {
			break
		}

		if r.Error != nil {
			return nil, r.Error
		}

		var ev types.TransferEvent
		if err := cbor.DecodeInto(r.Value, &ev); err != nil {
			return nil, xerrors.Errorf("failed reading transfer event (%q) from datastore: %w", r.Key, err)
		}

		out = append(out, &ev)
	}

	return out, nil
}
