package simnet

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Thierry61/safe-client-libs/transfers"
	"github.com/Thierry61/safe-client-libs/types"
)

func testAccount(t *testing.T) (*types.KeyInfo, *Network) {
	t.Helper()

	net, err := New()
	require.NoError(t, err)
	keys, err := types.GenerateKey()
	require.NoError(t, err)
	return keys, net
}

func signedDebit(t *testing.T, keys *types.KeyInfo, seq uint64, amount uint64) *types.DebitRequest {
	t.Helper()

	owner, err := keys.Address()
	require.NoError(t, err)

	debit := types.Debit{
		Account: owner,
		Seq:     seq,
		Amount:  types.NewAmount(amount),
		Msg:     "test debit",
	}
	sb, err := debit.SigningBytes()
	require.NoError(t, err)
	sig, err := keys.Sign(sb)
	require.NoError(t, err)

	return &types.DebitRequest{Debit: debit, Requester: sig}
}

func TestSimulatedPayout(t *testing.T) {
	ctx := context.Background()
	keys, net := testAccount(t)
	owner, err := keys.Address()
	require.NoError(t, err)

	amt, err := net.Balance(ctx, owner)
	require.NoError(t, err)
	require.True(t, amt.Equals(types.NewAmount(0)))

	require.NoError(t, net.TriggerSimulatedPayout(ctx, owner, types.NewAmount(100)))
	require.NoError(t, net.TriggerSimulatedPayout(ctx, owner, types.NewAmount(11)))

	amt, err = net.Balance(ctx, owner)
	require.NoError(t, err)
	require.True(t, amt.Equals(types.NewAmount(111)))
}

func TestSubmitDebit(t *testing.T) {
	ctx := context.Background()
	keys, net := testAccount(t)
	owner, err := keys.Address()
	require.NoError(t, err)

	// Zero balance: rejected before anything is stored.
	_, err = net.SubmitDebit(ctx, signedDebit(t, keys, 1, 1))
	require.ErrorIs(t, err, transfers.ErrInsufficientBalance)

	require.NoError(t, net.TriggerSimulatedPayout(ctx, owner, types.NewAmount(10)))

	proof, err := net.SubmitDebit(ctx, signedDebit(t, keys, 1, 3))
	require.NoError(t, err)

	// The proof passes the same validation the local actor performs.
	sectionAddr, err := net.SectionKey(ctx)
	require.NoError(t, err)
	validator := transfers.NewSectionValidator(sectionAddr)
	req := signedDebit(t, keys, 1, 3)
	require.NoError(t, validator.Validate(proof, &req.Debit))

	amt, err := net.Balance(ctx, owner)
	require.NoError(t, err)
	require.True(t, amt.Equals(types.NewAmount(7)))

	// A sequence number can only be agreed once.
	_, err = net.SubmitDebit(ctx, signedDebit(t, keys, 1, 1))
	require.Error(t, err)
}

func TestSubmitDebitRejectsBadSignature(t *testing.T) {
	ctx := context.Background()
	keys, net := testAccount(t)
	owner, err := keys.Address()
	require.NoError(t, err)
	require.NoError(t, net.TriggerSimulatedPayout(ctx, owner, types.NewAmount(10)))

	req := signedDebit(t, keys, 1, 1)
	req.Requester = nil
	_, err = net.SubmitDebit(ctx, req)
	require.Error(t, err)

	// Signed by someone other than the account owner.
	imposter, err := types.GenerateKey()
	require.NoError(t, err)
	req = signedDebit(t, keys, 1, 1)
	sb, err := req.Debit.SigningBytes()
	require.NoError(t, err)
	req.Requester, err = imposter.Sign(sb)
	require.NoError(t, err)
	_, err = net.SubmitDebit(ctx, req)
	require.Error(t, err)
}

func TestChunkRoundTrip(t *testing.T) {
	ctx := context.Background()
	_, net := testAccount(t)

	ch := types.NewChunk([]byte("some immutable bytes"))
	c, err := ch.Cid()
	require.NoError(t, err)

	_, err = net.GetChunk(ctx, c)
	require.Error(t, err)

	require.NoError(t, net.PutChunk(ctx, ch))
	// Storing the same chunk twice is idempotent.
	require.NoError(t, net.PutChunk(ctx, ch))

	got, err := net.GetChunk(ctx, c)
	require.NoError(t, err)
	require.Equal(t, ch.Data, got.Data)
}

func TestRecordVersioning(t *testing.T) {
	ctx := context.Background()
	keys, net := testAccount(t)
	owner, err := keys.Address()
	require.NoError(t, err)

	var id types.RecordID
	copy(id.Name[:], "a-well-known-record-name")
	id.Tag = 100000

	rec := types.NewRecord(id, owner)
	rec.Version = 1
	rec.Entries["greeting"] = []byte("hello")

	require.NoError(t, net.PutRecord(ctx, rec))

	// Same version again: rejected.
	require.Error(t, net.PutRecord(ctx, rec))

	rec2 := types.NewRecord(id, owner)
	rec2.Version = 2
	rec2.Entries["greeting"] = []byte("hello again")
	require.NoError(t, net.PutRecord(ctx, rec2))

	got, err := net.GetRecord(ctx, id)
	require.NoError(t, err)
	require.Equal(t, uint64(2), got.Version)
	require.Equal(t, []byte("hello again"), got.Entries["greeting"])

	// Another owner cannot overwrite the record.
	other, err := types.GenerateKey()
	require.NoError(t, err)
	otherAddr, err := other.Address()
	require.NoError(t, err)
	rec3 := types.NewRecord(id, otherAddr)
	rec3.Version = 3
	require.Error(t, net.PutRecord(ctx, rec3))
}
