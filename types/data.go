package types

import (
	"github.com/filecoin-project/go-address"
	"github.com/ipfs/go-cid"
	mh "github.com/multiformats/go-multihash"
)

// Chunk is an immutable, content-addressed piece of data. Its name is the
// cid of its contents, so a retrieved chunk can always be verified against
// the address it was fetched by.
type Chunk struct {
	Data []byte
}

func NewChunk(data []byte) *Chunk {
	return &Chunk{Data: data}
}

func (c *Chunk) Cid() (cid.Cid, error) {
	h, err := mh.Sum(c.Data, mh.BLAKE2B_MIN+31, -1)
	if err != nil {
		return cid.Undef, err
	}

	return cid.NewCidV1(cid.Raw, h), nil
}

// RecordID names a mutable record: a 32-byte name plus a type tag, the way
// applications partition their mutable data.
type RecordID struct {
	Name [32]byte
	Tag  uint64
}

// Record is a mutable, owned record with versioned entries. Writes must
// carry a version strictly greater than the stored one.
type Record struct {
	ID      RecordID
	Owner   address.Address
	Version uint64
	Entries map[string][]byte
}

func NewRecord(id RecordID, owner address.Address) *Record {
	return &Record{
		ID:      id,
		Owner:   owner,
		Entries: make(map[string][]byte),
	}
}

// Size is the billable size of the record: the sum of its entry keys and
// values.
func (r *Record) Size() uint64 {
	var size uint64
	for k, v := range r.Entries {
		size += uint64(len(k) + len(v))
	}
	return size
}
