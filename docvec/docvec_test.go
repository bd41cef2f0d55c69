package docvec

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuilderAppendAndSeal(t *testing.T) {
	b := NewBuilder(2)
	for _, id := range []uint32{4, 7, 2, 9, 1} {
		b.Append(id)
	}
	require.Equal(t, 5, b.Len())
	require.Equal(t, []uint32{4, 7, 2, 9, 1}, b.Seal())
}

func TestBuilderExpandKeepsGrownArrayAndZeroesTail(t *testing.T) {
	b := NewBuilder(1)
	b.Append(10)
	b.Append(20) // forces a grow past capacity 1

	require.Equal(t, []uint32{10, 20}, b.Seal())
	// the grown backing array itself must not have stale/garbage tail data
	require.GreaterOrEqual(t, len(b.ids), 2)
	for i := b.pos; i < len(b.ids); i++ {
		require.Zero(t, b.ids[i])
	}
}

func TestBuilderResetForReuse(t *testing.T) {
	b := NewBuilder(4)
	b.Append(1)
	b.Reset()
	require.Equal(t, 0, b.Len())
	b.Append(2)
	require.Equal(t, []uint32{2}, b.Seal())
}

func TestStoreCommitAndGetSingleBlock(t *testing.T) {
	s := NewStore()
	ids := []uint32{3, 1, 4, 1, 5, 9, 2, 6}
	s.Commit(1, ids)

	got, err := s.Get(1)
	require.NoError(t, err)
	require.Equal(t, ids, got)
}

func TestStoreCommitAndGetMultiBlock(t *testing.T) {
	s := NewStore()
	ids := make([]uint32, 300)
	for i := range ids {
		ids[i] = uint32(i % 50)
	}
	s.Commit(2, ids)

	got, err := s.Get(2)
	require.NoError(t, err)
	require.Equal(t, ids, got)
}

func TestStoreGetEmptyDocument(t *testing.T) {
	s := NewStore()
	s.Commit(3, nil)

	got, err := s.Get(3)
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestStoreGetUncommittedDocumentReturnsNil(t *testing.T) {
	s := NewStore()
	got, err := s.Get(999)
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestStoreWriteReadRoundTrip(t *testing.T) {
	s := NewStore()
	s.Commit(1, []uint32{1, 2, 3})
	s.Commit(2, []uint32{4, 5})

	var buf bytes.Buffer
	require.NoError(t, s.Write(&buf))

	restored, err := Read(&buf)
	require.NoError(t, err)

	got1, err := restored.Get(1)
	require.NoError(t, err)
	require.Equal(t, []uint32{1, 2, 3}, got1)

	got2, err := restored.Get(2)
	require.NoError(t, err)
	require.Equal(t, []uint32{4, 5}, got2)
}
