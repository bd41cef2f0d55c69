package indexer

import (
	"testing"

	"github.com/stretchr/testify/require"

	"pfsearch/input"
	"pfsearch/storage"
)

func doc(id uint32, tokens ...string) input.Document {
	return input.Document{DocID: id, Tokens: tokens}
}

func TestNonPositionalDFAndCFAccumulate(t *testing.T) {
	ix := New(Options{Mode: storage.NonPositional, DFCutoff: 4})

	require.NoError(t, ix.IndexDocument(doc(0, "a", "b", "a")))
	require.NoError(t, ix.IndexDocument(doc(1, "a", "c")))
	require.NoError(t, ix.Finalize())

	a := ix.Dict.Lookup("a")
	require.GreaterOrEqual(t, a, 0)
	require.Equal(t, uint32(2), ix.Directory.DF(a), "term a appears in 2 documents")
	require.Equal(t, uint32(3), ix.Directory.CF(a), "term a occurs 3 times total")

	b := ix.Dict.Lookup("b")
	require.Equal(t, uint32(1), ix.Directory.DF(b))
	require.Equal(t, uint32(1), ix.Directory.CF(b))

	require.Equal(t, uint64(2), ix.Directory.TotalDocs)
	require.Equal(t, uint32(3), ix.Directory.DocLen[0])
	require.Equal(t, uint32(2), ix.Directory.DocLen[1])
}

func TestBelowDFCutoffStaysStagedUntilFinalize(t *testing.T) {
	ix := New(Options{Mode: storage.NonPositional, DFCutoff: 4})

	require.NoError(t, ix.IndexDocument(doc(0, "rare")))
	require.NoError(t, ix.IndexDocument(doc(1, "rare")))

	rare := ix.Dict.Lookup("rare")
	require.True(t, ix.Directory.HeadPtr(rare).IsUndefined(), "a term below df_cutoff stays in its small buffer during indexing")
	require.Equal(t, uint32(2), ix.Directory.DF(rare))

	require.NoError(t, ix.Finalize())

	head := ix.Directory.HeadPtr(rare)
	require.False(t, head.IsUndefined(), "Finalize flushes sub-block-capacity buffers so every df>0 term is queryable")

	docs, err := ix.Store.DecodeDocIDBlock(head)
	require.NoError(t, err)
	require.Equal(t, []uint32{0, 1}, docs)

	next, err := ix.Store.Next(head)
	require.NoError(t, err)
	require.True(t, next.IsUndefined(), "a two-posting term needs exactly one short segment")
}

func TestCrossingDFCutoffPromotesAndFlushesOnFullBlock(t *testing.T) {
	ix := New(Options{Mode: storage.NonPositional, DFCutoff: 1})

	term := "common"
	for d := uint32(0); d < 130; d++ {
		require.NoError(t, ix.IndexDocument(doc(d, term)))
	}

	id := ix.Dict.Lookup(term)
	require.Equal(t, uint32(130), ix.Directory.DF(id))
	require.False(t, ix.Directory.HeadPtr(id).IsUndefined(), "128 postings should have already triggered one flush")

	require.NoError(t, ix.Finalize())

	head := ix.Directory.HeadPtr(id)
	require.False(t, head.IsUndefined())

	docs, err := ix.Store.DecodeDocIDBlock(head)
	require.NoError(t, err)
	require.Equal(t, 128, len(docs))
	require.Equal(t, []uint32{0, 1, 2}, docs[:3])

	next, err := ix.Store.Next(head)
	require.NoError(t, err)
	require.False(t, next.IsUndefined())

	tailDocs, err := ix.Store.DecodeDocIDBlock(next)
	require.NoError(t, err)
	require.Equal(t, []uint32{128, 129}, tailDocs)
}

func TestPositionalModeRecordsTFAndPositions(t *testing.T) {
	ix := New(Options{Mode: storage.Positional, DFCutoff: 1})

	require.NoError(t, ix.IndexDocument(doc(0, "x", "y", "x", "y", "x")))
	require.NoError(t, ix.Finalize())

	x := ix.Dict.Lookup("x")
	head := ix.Directory.HeadPtr(x)
	require.False(t, head.IsUndefined())

	tfs, err := ix.Store.DecodeTFBlock(head)
	require.NoError(t, err)
	require.Equal(t, []uint32{3}, tfs)

	positions, err := ix.Store.DecodePositionsFor(head, 0)
	require.NoError(t, err)
	require.Equal(t, []uint32{1, 3, 5}, positions)
}

func TestReverseModeChainIsMostRecentFirst(t *testing.T) {
	ix := New(Options{Mode: storage.NonPositional, DFCutoff: 1, Reverse: true})

	term := "common"
	for d := uint32(0); d < 130; d++ {
		require.NoError(t, ix.IndexDocument(doc(d, term)))
	}
	require.NoError(t, ix.Finalize())

	id := ix.Dict.Lookup(term)
	head := ix.Directory.HeadPtr(id)
	require.False(t, head.IsUndefined())

	docs, err := ix.Store.DecodeDocIDBlock(head)
	require.NoError(t, err)
	require.Equal(t, []uint32{129, 128}, docs, "the most recently flushed short block is the new head, docids descending")

	next, err := ix.Store.Next(head)
	require.NoError(t, err)
	require.False(t, next.IsUndefined())

	olderDocs, err := ix.Store.DecodeDocIDBlock(next)
	require.NoError(t, err)
	require.Equal(t, uint32(127), olderDocs[0], "the older full block follows, itself docid-descending")
}

func TestMaxTFTracksBM25Saturation(t *testing.T) {
	ix := New(Options{Mode: storage.TFOnly, DFCutoff: 1})

	require.NoError(t, ix.IndexDocument(doc(0, "w", "w", "w")))
	require.NoError(t, ix.IndexDocument(doc(1, "w")))

	id := ix.Dict.Lookup("w")
	require.Greater(t, ix.Directory.MaxTF(id), 0.0)
	require.Equal(t, uint32(3), ix.Directory.MaxTFDocLen(id), "doc 0's tf=3 saturates higher than doc 1's tf=1")
}
