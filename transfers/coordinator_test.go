package transfers

import (
	"context"
	"sync"
	"testing"

	"github.com/filecoin-project/go-address"
	"github.com/ipfs/go-cid"
	ds "github.com/ipfs/go-datastore"
	ds_sync "github.com/ipfs/go-datastore/sync"
	"github.com/stretchr/testify/require"
	"golang.org/x/xerrors"

	"github.com/Thierry61/safe-client-libs/types"
)

// mockNetwork implements api.Network for coordinator tests. It signs
// agreement proofs with a test section key, or fails/replays on demand.
type mockNetwork struct {
	lk sync.Mutex

	section     *types.KeyInfo
	sectionAddr address.Address

	submitErr error
	canned    *types.AgreementProof

	issued []*types.AgreementProof
}

func newMockNetwork(t *testing.T) *mockNetwork {
	t.Helper()

	section, sectionAddr := testKeys(t)
	return &mockNetwork{
		section:     section,
		sectionAddr: sectionAddr,
	}
}

func (m *mockNetwork) SectionKey(ctx context.Context) (address.Address, error) {
	return m.sectionAddr, nil
}

func (m *mockNetwork) Balance(ctx context.Context, owner address.Address) (types.Amount, error) {
	return types.NewAmount(0), nil
}

func (m *mockNetwork) StoreCost(ctx context.Context, size uint64) (types.Amount, error) {
	return types.NewAmount(1), nil
}

func (m *mockNetwork) SubmitDebit(ctx context.Context, req *types.DebitRequest) (*types.AgreementProof, error) {
	m.lk.Lock()
	defer m.lk.Unlock()

	if m.submitErr != nil {
		return nil, m.submitErr
	}
	if m.canned != nil {
		return m.canned, nil
	}

	sb, err := req.Debit.SigningBytes()
	if err != nil {
		return nil, err
	}
	sig, err := m.section.Sign(sb)
	if err != nil {
		return nil, err
	}

	proof := &types.AgreementProof{
		Debit:      req.Debit,
		SectionKey: m.sectionAddr,
		Signature:  sig,
	}
	m.issued = append(m.issued, proof)
	return proof, nil
}

func (m *mockNetwork) PutChunk(ctx context.Context, ch *types.Chunk) error {
	return xerrors.New("not implemented")
}

func (m *mockNetwork) GetChunk(ctx context.Context, c cid.Cid) (*types.Chunk, error) {
	return nil, xerrors.New("not implemented")
}

func (m *mockNetwork) PutRecord(ctx context.Context, rec *types.Record) error {
	return xerrors.New("not implemented")
}

func (m *mockNetwork) GetRecord(ctx context.Context, id types.RecordID) (*types.Record, error) {
	return nil, xerrors.New("not implemented")
}

func testCoordinator(t *testing.T) (*Coordinator, *Actor, *mockNetwork) {
	t.Helper()

	ctx := context.Background()
	store := NewStore(ds_sync.MutexWrap(ds.NewMapDatastore()))
	keys, _ := testKeys(t)
	mock := newMockNetwork(t)

	actor, err := NewActor(ctx, keys, store, NewSectionValidator(mock.sectionAddr))
	require.NoError(t, err)

	return NewCoordinator(actor, mock), actor, mock
}

func TestFundAuthorizesWrite(t *testing.T) {
	ctx := context.Background()
	coord, actor, _ := testCoordinator(t)
	require.NoError(t, actor.SyncBalance(ctx, types.NewAmount(1000)))

	grant, err := coord.Fund(ctx, types.NewAmount(1), "store chunk")
	require.NoError(t, err)
	require.True(t, grant.Authorized())
	require.Equal(t, WriteStatePaidWriteAuthorized, grant.State())
	require.Equal(t, uint64(1), grant.Event().Proof.Debit.Seq)

	require.True(t, actor.Balance().Equals(types.NewAmount(999)))
}

func TestFundFailsLocallyOnInsufficientBalance(t *testing.T) {
	ctx := context.Background()
	coord, actor, mock := testCoordinator(t)

	grant, err := coord.Fund(ctx, types.NewAmount(1), "store chunk")
	require.ErrorIs(t, err, ErrInsufficientBalance)
	require.False(t, grant.Authorized())
	require.Equal(t, WriteStateFailed, grant.State())

	// The debit never reached the network.
	require.Len(t, mock.issued, 0)
	require.Equal(t, uint64(0), actor.Seq())
}

func TestFundFailsOnNetworkRejection(t *testing.T) {
	ctx := context.Background()
	coord, actor, mock := testCoordinator(t)
	require.NoError(t, actor.SyncBalance(ctx, types.NewAmount(1000)))

	mock.submitErr = xerrors.Errorf("section says no: %w", ErrInsufficientBalance)

	grant, err := coord.Fund(ctx, types.NewAmount(1), "store chunk")
	require.ErrorIs(t, err, ErrInsufficientBalance)
	require.False(t, grant.Authorized())
	require.True(t, actor.Balance().Equals(types.NewAmount(1000)))

	// The abandoned claim's sequence number is free for the next attempt.
	mock.submitErr = nil
	grant, err = coord.Fund(ctx, types.NewAmount(1), "store chunk")
	require.NoError(t, err)
	require.Equal(t, uint64(1), grant.Event().Proof.Debit.Seq)
}

func TestFundFailsOnStaleProof(t *testing.T) {
	ctx := context.Background()
	coord, actor, mock := testCoordinator(t)
	require.NoError(t, actor.SyncBalance(ctx, types.NewAmount(1000)))

	grant, err := coord.Fund(ctx, types.NewAmount(1), "store chunk")
	require.NoError(t, err)

	// The network keeps returning the proof it already agreed: registration
	// produces nothing to apply, and the coordinator must not write.
	mock.canned = &grant.Event().Proof

	grant, err = coord.Fund(ctx, types.NewAmount(1), "store chunk")
	require.ErrorIs(t, err, ErrNoTransferEventsForLocalActor)
	require.False(t, grant.Authorized())

	require.True(t, actor.Balance().Equals(types.NewAmount(999)))
	require.Equal(t, uint64(1), actor.Seq())
}

func TestFundCancelledBeforeApply(t *testing.T) {
	coord, actor, _ := testCoordinator(t)
	require.NoError(t, actor.SyncBalance(context.Background(), types.NewAmount(1000)))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	grant, err := coord.Fund(ctx, types.NewAmount(1), "store chunk")
	require.ErrorIs(t, err, context.Canceled)
	require.False(t, grant.Authorized())

	// Local state untouched by the cancelled attempt.
	require.True(t, actor.Balance().Equals(types.NewAmount(1000)))
	require.Equal(t, uint64(0), actor.Seq())
}
