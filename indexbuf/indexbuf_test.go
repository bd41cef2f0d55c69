package indexbuf

import "testing"

import "github.com/stretchr/testify/require"

func TestNewBufferStartsAtDFCutoffCapacity(t *testing.T) {
	m := NewMaps(2, 0)
	b := m.Get(0)
	require.Equal(t, 2, b.Cap())
}

func TestSmallBufferNeverFlushesBelowCutoff(t *testing.T) {
	m := NewMaps(2, 0)
	b := m.Get(0)

	b.Append(1, 0, nil)
	require.False(t, b.Full())
	b.Append(2, 0, nil)
	require.True(t, b.Full())
}

func TestPromoteToBlockCapacityPreservesContents(t *testing.T) {
	m := NewMaps(2, 0)
	b := m.Get(0)
	b.Append(5, 0, nil)
	b.Append(9, 0, nil)

	b.PromoteToBlockCapacity()
	require.Equal(t, B, b.Cap())
	require.Equal(t, uint32(5), b.DocIDs[0])
	require.Equal(t, uint32(9), b.DocIDs[1])
	require.Equal(t, 2, b.Len())
}

func TestExpandDoublesUpToMaxBlocksCeiling(t *testing.T) {
	m := NewMaps(2, 2) // ceiling = 2*B
	b := m.Get(0)
	b.PromoteToBlockCapacity()
	require.Equal(t, B, b.Cap())

	grew := m.Expand(b)
	require.True(t, grew)
	require.Equal(t, 2*B, b.Cap())

	grew = m.Expand(b)
	require.False(t, grew, "capacity is already at the maxBlocks ceiling")
	require.Equal(t, 2*B, b.Cap())
}

func TestExpandDisabledWhenMaxBlocksZero(t *testing.T) {
	m := NewMaps(2, 0)
	b := m.Get(0)
	b.PromoteToBlockCapacity()

	grew := m.Expand(b)
	require.False(t, grew)
	require.Equal(t, B, b.Cap())
}

func TestFullBlocksSplitsIntoBSizedRangesPlusShortTail(t *testing.T) {
	m := NewMaps(2, 0)
	b := m.Get(0)
	b.PromoteToBlockCapacity()
	m.Expand(b) // no-op since MaxBlocks==0, but harmless

	for i := 0; i < B+10; i++ {
		if b.Full() {
			b.growDocIDsTo(len(b.DocIDs) + B)
		}
		b.Append(uint32(i), 0, nil)
	}

	ranges := b.FullBlocks()
	require.Len(t, ranges, 2)
	require.Equal(t, [2]int{0, B}, ranges[0])
	require.Equal(t, [2]int{B, B + 10}, ranges[1])
}

func TestResetClearsLiveContents(t *testing.T) {
	m := NewMaps(2, 0)
	b := m.Get(0)
	b.Append(7, 0, nil)
	b.Reset()

	require.Equal(t, 0, b.Len())
	require.Equal(t, uint32(0), b.DocIDs[0])
}

func TestAppendWithTFAndPositions(t *testing.T) {
	m := NewMaps(4, 0)
	b := m.Get(0)
	b.EnableTF()
	b.EnablePositions()

	b.Append(3, 7, []uint32{1, 4, 9})
	require.Equal(t, uint32(3), b.DocIDs[0])
	require.Equal(t, uint32(7), b.TFs[0])
	require.Equal(t, []uint32{1, 4, 9}, b.Pos[0])
}
