package bloom

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInsertAndTest(t *testing.T) {
	f := New(100, 10, 4)
	members := []uint32{1, 7, 13, 1000, 99999}
	for _, m := range members {
		f.Insert(m)
	}
	for _, m := range members {
		require.True(t, f.Test(m), "expected member %d to test positive", m)
	}
}

func TestNoFalseNegatives(t *testing.T) {
	f := New(1000, 12, 5)
	for i := uint32(0); i < 1000; i++ {
		f.Insert(i * 3)
	}
	for i := uint32(0); i < 1000; i++ {
		require.True(t, f.Test(i*3))
	}
}

func TestFalsePositiveRateWithinTolerance(t *testing.T) {
	const n = 2000
	const bitsPerElement = 10
	const numHashes = 7

	f := New(n, bitsPerElement, numHashes)
	present := make(map[uint32]bool, n)
	for i := uint32(0); i < n; i++ {
		v := i*2 + 1
		present[v] = true
		f.Insert(v)
	}

	falsePositives := 0
	trials := 20000
	for i := uint32(0); i < uint32(trials); i++ {
		v := i * 2 // disjoint from inserted odd values
		if present[v] {
			continue
		}
		if f.Test(v) {
			falsePositives++
		}
	}

	rate := float64(falsePositives) / float64(trials)
	// theoretical rate for these parameters is roughly (1-e^-(k*n/m))^k;
	// allow generous slack since this is a statistical property, not exact.
	require.Less(t, rate, 0.05)
}

func TestTargetBitLength(t *testing.T) {
	require.Equal(t, 1000, TargetBitLength(100, 10))
	require.Equal(t, 64, TargetBitLength(2, 10), "filters never shrink below one word")
}

func TestSerializeWordsRoundTrip(t *testing.T) {
	f := New(50, 10, 3)
	for _, v := range []uint32{2, 4, 6, 8, 10} {
		f.Insert(v)
	}

	words := SerializeWords(f)
	restored, consumed, err := DeserializeWords(words)
	require.NoError(t, err)
	require.Equal(t, len(words), consumed)
	for _, v := range []uint32{2, 4, 6, 8, 10} {
		require.True(t, restored.Test(v))
	}
	require.Equal(t, f.Test(99999), restored.Test(99999), "a restored filter answers exactly like the original")
}
