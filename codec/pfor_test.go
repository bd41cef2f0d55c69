package codec

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func sequential(start, step uint32) [BlockSize]uint32 {
	var a [BlockSize]uint32
	v := start
	for i := range a {
		a[i] = v
		v += step
	}
	return a
}

func TestRoundTripForward(t *testing.T) {
	input := sequential(10, 3)
	compressed, size := Encode(input, false)
	require.Equal(t, size, len(compressed))

	out, err := Decode(compressed, false)
	require.NoError(t, err)
	require.Equal(t, input, out)
}

func TestRoundTripReverse(t *testing.T) {
	// reverse mode: docids are strictly decreasing once the caller has
	// reversed them before calling Encode.
	var input [BlockSize]uint32
	v := uint32(10000)
	for i := range input {
		input[i] = v
		v -= 5
	}

	compressed, _ := Encode(input, true)
	out, err := Decode(compressed, true)
	require.NoError(t, err)
	require.Equal(t, input, out)
}

func TestRoundTripWithOutliers(t *testing.T) {
	input := sequential(0, 1)
	input[5] = input[5] + 1_000_000
	input[70] = input[70] + 5_000_000

	compressed, _ := Encode(input, false)
	out, err := Decode(compressed, false)
	require.NoError(t, err)
	require.Equal(t, input, out)
}

func TestRoundTripZeroPaddedTail(t *testing.T) {
	var input [BlockSize]uint32
	values := []uint32{5, 9, 12, 12, 30}
	for i, v := range values {
		input[i] = v
	}
	// remaining slots stay zero, matching the producer's zero-pad contract

	compressed, _ := Encode(input, false)
	out, err := Decode(compressed, false)
	require.NoError(t, err)

	require.Equal(t, values, out[:len(values)])
	for i := len(values); i < BlockSize; i++ {
		require.Zero(t, out[i])
	}
}

func TestDecodeMalformedTruncatedHeader(t *testing.T) {
	_, err := Decode([]uint32{1}, false)
	require.ErrorIs(t, err, ErrMalformed)
}

func TestDecodeMalformedBadWidth(t *testing.T) {
	_, err := Decode([]uint32{99, 0}, false)
	require.ErrorIs(t, err, ErrMalformed)
}

func TestDecodeMalformedExceptionOverrun(t *testing.T) {
	_, err := Decode([]uint32{4, 10, 0, 0}, false)
	require.ErrorIs(t, err, ErrMalformed)
}

func TestAllZeros(t *testing.T) {
	var input [BlockSize]uint32
	compressed, _ := Encode(input, false)
	out, err := Decode(compressed, false)
	require.NoError(t, err)
	require.Equal(t, input, out)
}
