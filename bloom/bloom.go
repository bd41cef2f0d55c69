// Package bloom implements a per-segment Bloom filter membership summary.
// It never reports a false negative; false positives occur at roughly the
// theoretical rate for the configured (n, k, bitsPerElement).
package bloom

import (
	"encoding/binary"
	"fmt"
	"hash/fnv"
)

// Filter is a fixed-size bit array tested with k probes derived by double
// hashing two seeded 32-bit hashes, following the standard
// g_i(x) = h1(x) + i*h2(x) construction.
type Filter struct {
	bits           []uint64
	numBits        int
	numHashes      int
	bitsPerElement int
}

// New sizes a filter for n elements at bitsPerElement bits each, using
// numHashes independent probes.
func New(n, bitsPerElement, numHashes int) *Filter {
	numBits := TargetBitLength(n, bitsPerElement)
	return &Filter{
		bits:           make([]uint64, (numBits+63)/64),
		numBits:        numBits,
		numHashes:      numHashes,
		bitsPerElement: bitsPerElement,
	}
}

// TargetBitLength returns the number of bits a filter for n elements at
// bitsPerElement bits each occupies. Filters never shrink below one
// word.
func TargetBitLength(n, bitsPerElement int) int {
	numBits := n * bitsPerElement
	if numBits < 64 {
		return 64
	}
	return numBits
}

func seedHashes(value uint32) (uint32, uint32) {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], value)

	h1 := fnv.New32a()
	h1.Write(buf[:])
	sum1 := h1.Sum32()

	h2 := fnv.New32()
	h2.Write(buf[:])
	sum2 := h2.Sum32()
	if sum2 == 0 {
		sum2 = 1 // a zero second hash would collapse every probe onto h1
	}
	return sum1, sum2
}

// Insert adds a 32-bit value to the filter.
func (f *Filter) Insert(value uint32) {
	h1, h2 := seedHashes(value)
	for i := 0; i < f.numHashes; i++ {
		bit := (uint64(h1) + uint64(i)*uint64(h2)) % uint64(f.numBits)
		f.bits[bit/64] |= 1 << (bit % 64)
	}
}

// Test reports whether value may be a member. A false return is certain;
// a true return may be a false positive.
func (f *Filter) Test(value uint32) bool {
	h1, h2 := seedHashes(value)
	for i := 0; i < f.numHashes; i++ {
		bit := (uint64(h1) + uint64(i)*uint64(h2)) % uint64(f.numBits)
		if f.bits[bit/64]&(1<<(bit%64)) == 0 {
			return false
		}
	}
	return true
}

// SerializeWords encodes f as a flat []uint32 (bit length, hash count,
// then the bit array split into two uint32 halves per uint64 word),
// for embedding directly inside another package's own word-oriented
// storage rather than through an io.Writer.
func SerializeWords(f *Filter) []uint32 {
	words := make([]uint32, 0, 2+2*len(f.bits))
	words = append(words, uint32(f.numBits), uint32(f.numHashes))
	for _, w := range f.bits {
		words = append(words, uint32(w), uint32(w>>32))
	}
	return words
}

// DeserializeWords inverts SerializeWords, returning the filter and how
// many words of data it consumed.
func DeserializeWords(data []uint32) (*Filter, int, error) {
	if len(data) < 2 {
		return nil, 0, fmt.Errorf("bloom: word buffer too short for header")
	}
	numBits := int(data[0])
	numHashes := int(data[1])
	numWords := (numBits + 63) / 64
	if 2+2*numWords > len(data) {
		return nil, 0, fmt.Errorf("bloom: word buffer too short for %d bit words", numWords)
	}
	bitsArr := make([]uint64, numWords)
	for i := 0; i < numWords; i++ {
		lo := uint64(data[2+2*i])
		hi := uint64(data[2+2*i+1])
		bitsArr[i] = lo | hi<<32
	}
	f := &Filter{bits: bitsArr, numBits: numBits, numHashes: numHashes}
	return f, 2 + 2*numWords, nil
}
