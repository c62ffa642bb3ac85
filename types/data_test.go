package types

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestChunkCid(t *testing.T) {
	a := NewChunk([]byte("some bytes"))
	b := NewChunk([]byte("some bytes"))
	c := NewChunk([]byte("other bytes"))

	ca, err := a.Cid()
	require.NoError(t, err)
	cb, err := b.Cid()
	require.NoError(t, err)
	cc, err := c.Cid()
	require.NoError(t, err)

	require.True(t, ca.Equals(cb))
	require.False(t, ca.Equals(cc))
}

func TestRecordSize(t *testing.T) {
	var id RecordID
	id.Tag = 100000

	rec := &Record{ID: id, Entries: map[string][]byte{
		"abc": make([]byte, 10),
		"de":  make([]byte, 5),
	}}

	require.Equal(t, uint64(3+10+2+5), rec.Size())
}
