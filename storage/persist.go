package storage

import (
	"encoding/binary"
	"fmt"
	"io"
)

// storeHeader is the six-word index-file header: current segment (pool)
// index, current offset within it, the reverse flag, whether Bloom
// filters are enabled, the hash count, and the bits-per-element
// configured for them.
type storeHeader struct {
	Segment        uint32
	Offset         uint32
	Reverse        uint32
	BloomEnabled   uint32
	NbHash         uint32
	BitsPerElement uint32
}

// Write serializes the store: the six-word header, then every pool in
// order (NumberOfPools of them, trailing ones empty if unused). The
// active pool's current segment/offset are
// derived from the pool set itself so a reload can resume appending in
// the same place a fresh build would have left off.
func (s *Store) Write(w io.Writer) error {
	hdr := storeHeader{
		Segment: uint32(s.Pools.current),
		Offset:  s.Pools.activePool().offset(),
	}
	if s.Reverse {
		hdr.Reverse = 1
	}
	if s.UseBloom {
		hdr.BloomEnabled = 1
		hdr.NbHash = uint32(s.BloomNumHashes)
		hdr.BitsPerElement = uint32(s.BloomBitsPer)
	}
	if err := binary.Write(w, binary.LittleEndian, hdr); err != nil {
		return fmt.Errorf("storage: failed to write store header: %w", err)
	}
	return s.Pools.Write(w)
}

// ReadStore reconstructs a Store previously written with Write. capacity
// must be at least as large as the per-pool capacity the store was
// built with, matching ReadPoolSet's contract. The store's positional
// mode is not part of the file header; it is inferred from the first
// segment's layout.
func ReadStore(r io.Reader, capacity int) (*Store, error) {
	var hdr storeHeader
	if err := binary.Read(r, binary.LittleEndian, &hdr); err != nil {
		return nil, fmt.Errorf("storage: failed to read store header: %w", err)
	}

	pools, err := ReadPoolSet(r, capacity)
	if err != nil {
		return nil, err
	}

	s := &Store{
		Pools:   pools,
		Reverse: hdr.Reverse != 0,
	}
	if hdr.BloomEnabled != 0 {
		s.UseBloom = true
		s.BloomNumHashes = int(hdr.NbHash)
		s.BloomBitsPer = int(hdr.BitsPerElement)
	}
	mode, err := s.inferMode()
	if err != nil {
		return nil, err
	}
	s.Mode = mode
	return s, nil
}

// inferMode derives the store's positional mode from its first
// segment's layout: the compressed docid block either fills the segment
// body exactly (non-positional), or is followed by only a
// length-prefixed tf block (tf-only), or by a tf block and a position
// stream (positional). The body ends where the Bloom filter starts, if
// one is present. An empty store defaults to non-positional.
func (s *Store) inferMode() (Mode, error) {
	if s.Pools.pools[0] == nil || len(s.Pools.pools[0].words) == 0 {
		return NonPositional, nil
	}
	h, err := s.readHeader(NewPointer(0, 0))
	if err != nil {
		return NonPositional, fmt.Errorf("storage: inferring store mode: %w", err)
	}
	bodyEnd := h.reqspace
	if h.bloomOffset != 0 {
		bodyEnd = h.bloomOffset
	}
	afterDocs := uint32(hdrBodyStart) + h.csize
	if afterDocs == bodyEnd {
		return NonPositional, nil
	}
	tfsize, err := s.Pools.wordAt(NewPointer(0, afterDocs))
	if err != nil {
		return NonPositional, fmt.Errorf("storage: inferring store mode: %w", err)
	}
	if afterDocs+1+tfsize == bodyEnd {
		return TFOnly, nil
	}
	return Positional, nil
}

// Write serializes every allocated pool to w: a NumberOfPools-length
// table of pool word-counts, followed by each pool's raw words in
// order. Unallocated pools are written as zero-length.
func (ps *PoolSet) Write(w io.Writer) error {
	var lengths [NumberOfPools]uint32
	for i, p := range ps.pools {
		if p != nil {
			lengths[i] = uint32(len(p.words))
		}
	}
	if err := binary.Write(w, binary.LittleEndian, lengths); err != nil {
		return fmt.Errorf("storage: failed to write pool length table: %w", err)
	}
	for i, p := range ps.pools {
		if p == nil {
			continue
		}
		if err := binary.Write(w, binary.LittleEndian, p.words); err != nil {
			return fmt.Errorf("storage: failed to write pool %d: %w", i, err)
		}
	}
	return nil
}

// ReadPoolSet reconstructs a PoolSet previously written with Write. The
// restored set's per-pool capacity is set to capacity; it must be at
// least as large as the longest pool read back, or later appends find
// that pool already over capacity and move on to the next one.
func ReadPoolSet(r io.Reader, capacity int) (*PoolSet, error) {
	var lengths [NumberOfPools]uint32
	if err := binary.Read(r, binary.LittleEndian, &lengths); err != nil {
		return nil, fmt.Errorf("storage: failed to read pool length table: %w", err)
	}

	ps := &PoolSet{capacity: capacity}
	highestNonEmpty := -1
	for i, n := range lengths {
		if n == 0 {
			continue
		}
		words := make([]uint32, n)
		if err := binary.Read(r, binary.LittleEndian, words); err != nil {
			return nil, fmt.Errorf("storage: failed to read pool %d: %w", i, err)
		}
		ps.pools[i] = &pool{words: words, capacity: capacity}
		highestNonEmpty = i
	}
	if ps.pools[0] == nil {
		ps.pools[0] = newPool(capacity)
	}
	if highestNonEmpty > 0 {
		ps.current = highestNonEmpty
	}
	return ps, nil
}
