// Package simnet is an in-memory stand-in for the storage network: it holds
// account balances, signs agreement proofs with a section key, and stores
// chunks and records. Used by the stress harness and tests; it implements
// simulated payouts so fresh accounts can be funded without farming.
package simnet

import (
	"context"
	"sync"

	"github.com/filecoin-project/go-address"
	"github.com/ipfs/go-cid"
	logging "github.com/ipfs/go-log/v2"
	"golang.org/x/xerrors"

	"github.com/Thierry61/safe-client-libs/transfers"
	"github.com/Thierry61/safe-client-libs/types"
)

var log = logging.Logger("simnet")

// baseCost is charged per write on top of the per-KiB rate.
const baseCost = 1

type account struct {
	balance types.Amount
	seq     uint64
}

type Network struct {
	lk sync.Mutex

	section     *types.KeyInfo
	sectionAddr address.Address

	accounts map[address.Address]*account
	chunks   map[cid.Cid]*types.Chunk
	records  map[types.RecordID]*types.Record
}

func New() (*Network, error) {
	section, err := types.GenerateKey()
	if err != nil {
		return nil, err
	}
	sectionAddr, err := section.Address()
	if err != nil {
		return nil, err
	}

	return &Network{
		section:     section,
		sectionAddr: sectionAddr,
		accounts:    make(map[address.Address]*account),
		chunks:      make(map[cid.Cid]*types.Chunk),
		records:     make(map[types.RecordID]*types.Record),
	}, nil
}

func (n *Network) SectionKey(ctx context.Context) (address.Address, error) {
	return n.sectionAddr, nil
}

func (n *Network) Balance(ctx context.Context, owner address.Address) (types.Amount, error) {
	n.lk.Lock()
	defer n.lk.Unlock()

	return n.balanceOf(owner), nil
}

func (n *Network) balanceOf(owner address.Address) types.Amount {
	if acct, ok := n.accounts[owner]; ok {
		return acct.balance
	}
	return types.NewAmount(0)
}

func (n *Network) StoreCost(ctx context.Context, size uint64) (types.Amount, error) {
	return types.NewAmount(baseCost + size/1024), nil
}

// SubmitDebit runs the network-side agreement: verify the requester's
// signature, check the balance covers the debit, debit the account and
// return a section-signed proof.
func (n *Network) SubmitDebit(ctx context.Context, req *types.DebitRequest) (*types.AgreementProof, error) {
	n.lk.Lock()
	defer n.lk.Unlock()

	sb, err := req.Debit.SigningBytes()
	if err != nil {
		return nil, err
	}

	if req.Requester == nil {
		return nil, xerrors.New("debit request is unsigned")
	}
	if err := req.Requester.Verify(req.Debit.Account, sb); err != nil {
		return nil, xerrors.Errorf("debit request signature: %w", err)
	}

	acct, ok := n.accounts[req.Debit.Account]
	if !ok {
		acct = &account{balance: types.NewAmount(0)}
		n.accounts[req.Debit.Account] = acct
	}

	if acct.balance.LessThan(req.Debit.Amount) {
		return nil, xerrors.Errorf("debit of %s against network balance %s: %w",
			req.Debit.Amount, acct.balance, transfers.ErrInsufficientBalance)
	}
	if req.Debit.Seq <= acct.seq {
		return nil, xerrors.Errorf("debit seq %d already agreed (network at seq %d)", req.Debit.Seq, acct.seq)
	}

	acct.balance = types.AmountSub(acct.balance, req.Debit.Amount)
	acct.seq = req.Debit.Seq

	sig, err := n.section.Sign(sb)
	if err != nil {
		return nil, err
	}

	log.Debugw("debit agreed", "account", req.Debit.Account, "seq", req.Debit.Seq, "amount", req.Debit.Amount)

	return &types.AgreementProof{
		Debit:      req.Debit,
		SectionKey: n.sectionAddr,
		Signature:  sig,
	}, nil
}

// TriggerSimulatedPayout mints balance into an account.
func (n *Network) TriggerSimulatedPayout(ctx context.Context, owner address.Address, amt types.Amount) error {
	n.lk.Lock()
	defer n.lk.Unlock()

	acct, ok := n.accounts[owner]
	if !ok {
		acct = &account{balance: types.NewAmount(0)}
		n.accounts[owner] = acct
	}
	acct.balance = types.AmountAdd(acct.balance, amt)

	return nil
}

func (n *Network) PutChunk(ctx context.Context, ch *types.Chunk) error {
	c, err := ch.Cid()
	if err != nil {
		return err
	}

	n.lk.Lock()
	defer n.lk.Unlock()

	// Idempotent: immutable data stored twice is the same data.
	n.chunks[c] = &types.Chunk{Data: append([]byte(nil), ch.Data...)}
	return nil
}

func (n *Network) GetChunk(ctx context.Context, c cid.Cid) (*types.Chunk, error) {
	n.lk.Lock()
	defer n.lk.Unlock()

	ch, ok := n.chunks[c]
	if !ok {
		return nil, xerrors.Errorf("chunk not found: %s", c)
	}

	return &types.Chunk{Data: append([]byte(nil), ch.Data...)}, nil
}

func (n *Network) PutRecord(ctx context.Context, rec *types.Record) error {
	n.lk.Lock()
	defer n.lk.Unlock()

	if cur, ok := n.records[rec.ID]; ok {
		if cur.Owner != rec.Owner {
			return xerrors.Errorf("record %x owned by %s", rec.ID.Name, cur.Owner)
		}
		if rec.Version <= cur.Version {
			return xerrors.Errorf("record version %d not newer than stored version %d", rec.Version, cur.Version)
		}
	}

	n.records[rec.ID] = copyRecord(rec)
	return nil
}

func (n *Network) GetRecord(ctx context.Context, id types.RecordID) (*types.Record, error) {
	n.lk.Lock()
	defer n.lk.Unlock()

	rec, ok := n.records[id]
	if !ok {
		return nil, xerrors.Errorf("record not found: %x tag %d", id.Name, id.Tag)
	}

	return copyRecord(rec), nil
}

func copyRecord(rec *types.Record) *types.Record {
	cp := &types.Record{
		ID:      rec.ID,
		Owner:   rec.Owner,
		Version: rec.Version,
		Entries: make(map[string][]byte, len(rec.Entries)),
	}
	for k, v := range rec.Entries {
		cp.Entries[k] = append([]byte(nil), v...)
	}
	return cp
}
