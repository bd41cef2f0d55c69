package directory

import (
	"bytes"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"pfsearch/storage"
)

func TestAbsentTermDefaults(t *testing.T) {
	d := New()
	require.Equal(t, uint32(0), d.DF(42))
	require.Equal(t, uint32(0), d.CF(42))
	require.True(t, d.HeadPtr(42).IsUndefined())
}

func TestForwardModeHeadPtrIsFirstWriteOnly(t *testing.T) {
	d := New()
	first := storage.NewPointer(0, 10)
	second := storage.NewPointer(0, 50)

	d.SetHeadPtrForward(1, first)
	d.SetHeadPtrForward(1, second)

	require.Equal(t, first, d.HeadPtr(1))
}

func TestReverseModeHeadPtrRewritesEveryAppend(t *testing.T) {
	d := New()
	first := storage.NewPointer(0, 10)
	second := storage.NewPointer(0, 50)

	d.SetHeadPtrReverse(1, first)
	d.SetHeadPtrReverse(1, second)

	require.Equal(t, second, d.HeadPtr(1))
}

func TestDFAndCFAccumulate(t *testing.T) {
	d := New()
	d.IncDF(3)
	d.IncDF(3)
	d.IncCF(3, 5)
	d.IncCF(3, 2)

	require.Equal(t, uint32(2), d.DF(3))
	require.Equal(t, uint32(7), d.CF(3))
}

func TestUpdateMaxTFTakesHigherSaturation(t *testing.T) {
	d := New()
	d.UpdateMaxTF(0, 2, 10, 10)
	firstMax := d.MaxTF(0)
	require.Greater(t, firstMax, 0.0)

	// A much higher tf at the same doc length must raise max_tf.
	d.UpdateMaxTF(0, 20, 10, 10)
	require.Greater(t, d.MaxTF(0), firstMax)
	require.Equal(t, uint32(10), d.MaxTFDocLen(0))

	// A lower tf must not lower it.
	higherMax := d.MaxTF(0)
	d.UpdateMaxTF(0, 1, 10, 10)
	require.Equal(t, higherMax, d.MaxTF(0))
}

func TestRecordDocumentAccumulatesTotals(t *testing.T) {
	d := New()
	d.RecordDocument(1, 3)
	d.RecordDocument(2, 5)

	require.Equal(t, uint64(2), d.TotalDocs)
	require.Equal(t, uint64(8), d.TotalDocLen)
	require.Equal(t, uint32(3), d.DocLen[1])
	require.Equal(t, uint32(5), d.DocLen[2])
	require.InDelta(t, 4.0, d.AvgDocLen(), 1e-9)
}

func TestIDFDecreasesAsDFGrows(t *testing.T) {
	lowDF := IDF(1000, 5)
	highDF := IDF(1000, 500)
	require.Greater(t, lowDF, highDF)
}

func TestIDFMatchesFormula(t *testing.T) {
	got := IDF(100, 10)
	want := math.Log((100.0 - 10 + 0.5) / (10 + 0.5))
	require.InDelta(t, want, got, 1e-12)
}

func TestWriteReadRoundTrip(t *testing.T) {
	d := New()
	d.SetHeadPtrForward(0, storage.NewPointer(1, 20))
	d.IncDF(0)
	d.IncCF(0, 4)
	d.UpdateMaxTF(0, 3, 8, 6)
	d.RecordDocument(1, 8)
	d.RecordDocument(2, 4)

	var buf bytes.Buffer
	require.NoError(t, d.Write(&buf))

	restored, err := Read(&buf)
	require.NoError(t, err)

	require.Equal(t, d.HeadPtr(0), restored.HeadPtr(0))
	require.Equal(t, d.DF(0), restored.DF(0))
	require.Equal(t, d.CF(0), restored.CF(0))
	require.Equal(t, d.MaxTF(0), restored.MaxTF(0))
	require.Equal(t, d.MaxTFDocLen(0), restored.MaxTFDocLen(0))
	require.Equal(t, d.TotalDocs, restored.TotalDocs)
	require.Equal(t, d.TotalDocLen, restored.TotalDocLen)
	require.Equal(t, d.DocLen, restored.DocLen)
}
