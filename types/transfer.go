package types

import (
	"github.com/filecoin-project/go-address"
	"github.com/google/uuid"
	cbor "github.com/ipfs/go-ipld-cbor"
)

func init() {
	cbor.RegisterCborType(Debit{})
	cbor.RegisterCborType(AgreementProof{})
	cbor.RegisterCborType(TransferEvent{})
	cbor.RegisterCborType(AccountInfo{})
}

// Debit is an intent to decrease an account's balance: the claim content
// that the network's section signs off on. Account, Seq and Amount together
// identify the debit; Msg is a human-readable purpose.
type Debit struct {
	Account address.Address
	Seq     uint64
	Amount  Amount
	Msg     string
}

// SigningBytes returns the canonical encoding of the debit that both the
// requester and the section sign.
func (d *Debit) SigningBytes() ([]byte, error) {
	return cbor.DumpObject(d)
}

func (d *Debit) Equals(o *Debit) bool {
	return d.Account == o.Account && d.Seq == o.Seq && d.Amount.Equals(o.Amount)
}

// DebitRequest is a debit claim signed by the account owner, submitted to
// the network for agreement. Immutable once created; consumed once
// submitted.
type DebitRequest struct {
	ID        uuid.UUID
	Debit     Debit
	Requester *Signature
}

// AgreementProof is the network-issued credential asserting that a specific
// debit has been accepted by section consensus. The Signature is the
// section's signature over the debit's signing bytes.
type AgreementProof struct {
	Debit      Debit
	SectionKey address.Address
	Signature  *Signature
}

// TransferEvent is the result of successfully registering a proof. Applying
// it advances the account's sequence number and balance. At most one event
// exists per sequence number.
type TransferEvent struct {
	Proof AgreementProof
}

// AccountInfo is the persisted snapshot of an account as seen by the local
// transfer actor: committed balance and most-recently-applied sequence
// number.
type AccountInfo struct {
	Owner   address.Address
	Balance Amount
	Seq     uint64
}
